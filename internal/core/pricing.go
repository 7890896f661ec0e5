package core

import "github.com/shopspring/decimal"

// DiscountType selects how DiscountValue is applied to the subtotal.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountAmount     DiscountType = "amount"
)

// DefaultTaxRate is the tax percentage used when neither the draft nor the
// lookup table provides one.
var DefaultTaxRate = decimal.NewFromInt(18)

var hundred = decimal.NewFromInt(100)

// LineAmount is the priced part of a line item.
type LineAmount struct {
	Quantity  int64
	UnitPrice decimal.Decimal
}

// Total is Quantity × UnitPrice.
func (l LineAmount) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}

// PricingInput is everything the totals depend on.
// A nil TaxRate means DefaultTaxRate.
type PricingInput struct {
	Lines         []LineAmount
	LaborCost     decimal.Decimal
	DeliveryFee   decimal.Decimal
	TaxRate       *decimal.Decimal
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
}

// OrderTotals is the monetary breakdown of an order.
type OrderTotals struct {
	ItemsTotal     decimal.Decimal `json:"items_total"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
}

// ComputeOrderTotals is the single pricing rule used by every flow:
//
//	itemsTotal = Σ qty × unitPrice
//	tax        = itemsTotal × rate / 100
//	subtotal   = itemsTotal + tax + labor + delivery
//	discount   = subtotal × value / 100 (percentage) or value (amount)
//	grandTotal = max(0, subtotal − discount)
//
// Tax and discount are rounded to cents before they are combined.
func ComputeOrderTotals(in PricingInput) OrderTotals {
	rate := DefaultTaxRate
	if in.TaxRate != nil {
		rate = *in.TaxRate
	}

	items := decimal.Zero
	for _, l := range in.Lines {
		items = items.Add(l.Total())
	}

	tax := items.Mul(rate).Div(hundred).Round(2)
	subtotal := items.Add(tax).Add(in.LaborCost).Add(in.DeliveryFee)

	var discount decimal.Decimal
	if in.DiscountType == DiscountPercentage {
		discount = subtotal.Mul(in.DiscountValue).Div(hundred).Round(2)
	} else {
		discount = in.DiscountValue
	}

	grand := subtotal.Sub(discount)
	if grand.IsNegative() {
		grand = decimal.Zero
	}

	return OrderTotals{
		ItemsTotal:     items,
		TaxRate:        rate,
		TaxAmount:      tax,
		Subtotal:       subtotal,
		DiscountAmount: discount,
		GrandTotal:     grand,
	}
}
