package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the settlement state of an order.
//
//	PENDING → PARTIALLY_PAID → PAID
//	PENDING | PARTIALLY_PAID → CANCELLED
//
// PAID and CANCELLED are terminal for forward flows. A payment correction may
// move a settled order back (see CanRevertSettlement).
type OrderStatus string

const (
	StatusPending       OrderStatus = "PENDING"
	StatusPartiallyPaid OrderStatus = "PARTIALLY_PAID"
	StatusPaid          OrderStatus = "PAID"
	StatusCancelled     OrderStatus = "CANCELLED"
)

// IsTerminal reports whether no forward transition leaves s.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusPaid || s == StatusCancelled
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPartiallyPaid, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

var forwardTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:       {StatusPartiallyPaid, StatusPaid, StatusCancelled},
	StatusPartiallyPaid: {StatusPaid, StatusCancelled},
}

// CanTransition reports whether a status write from → to is allowed in the
// forward direction. Writing the same status is always allowed.
func CanTransition(from, to OrderStatus) bool {
	if from == to {
		return from.Valid()
	}
	for _, next := range forwardTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanCancel reports whether an order in status with paid received may be
// cancelled. A PAID order with no money received (a zero total) may still be
// cancelled so its stock can be returned.
func CanCancel(status OrderStatus, paid decimal.Decimal) bool {
	if status == StatusPaid && !paid.IsPositive() {
		return true
	}
	return CanTransition(status, StatusCancelled)
}

// CanRevertSettlement reports whether a payment correction may move an order
// from → to. Only settlement states take part; CANCELLED never does.
func CanRevertSettlement(from, to OrderStatus) bool {
	switch from {
	case StatusPaid:
		return to == StatusPartiallyPaid || to == StatusPending
	case StatusPartiallyPaid:
		return to == StatusPending
	}
	return false
}

// Order is an order header. TotalPrice is the grand total cached at the last save.
type Order struct {
	ID            int             `json:"id"`
	CustomerID    int             `json:"customer_id"`
	CustomerName  string          `json:"customer_name"` // joined from customers
	Status        OrderStatus     `json:"status"`
	Address       string          `json:"address,omitempty"`
	Description   string          `json:"description,omitempty"`
	LaborCost     decimal.Decimal `json:"labor_cost"`
	DeliveryFee   decimal.Decimal `json:"delivery_fee"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	DiscountType  DiscountType    `json:"discount_type,omitempty"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	IsActive      bool            `json:"is_active"`
	Items         []OrderItem     `json:"items"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// OrderItem is one line of an order: a catalog product or a manual entry.
type OrderItem struct {
	ID          int             `json:"id"`
	OrderID     int             `json:"order_id"`
	ProductID   *int            `json:"product_id,omitempty"`
	ProductName string          `json:"product_name,omitempty"` // joined from products
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	IsManual    bool            `json:"is_manual"`
	ManualName  string          `json:"manual_name,omitempty"`
	IsActive    bool            `json:"is_active"`
}

// DisplayName is the manual name for manual items, the product name otherwise.
func (i OrderItem) DisplayName() string {
	if i.IsManual {
		return i.ManualName
	}
	return i.ProductName
}

// LineTotal is Quantity × UnitPrice.
func (i OrderItem) LineTotal() decimal.Decimal {
	return LineAmount{Quantity: i.Quantity, UnitPrice: i.UnitPrice}.Total()
}

// CurrentItems returns the items that make up the order. A cancelled order
// keeps the items it had when it was cancelled.
func (o *Order) CurrentItems() []OrderItem {
	out := make([]OrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		if it.IsActive || !o.IsActive {
			out = append(out, it)
		}
	}
	return out
}

// Totals recomputes the breakdown from the stored fields of o and its current items.
func (o *Order) Totals() OrderTotals {
	items := o.CurrentItems()
	lines := make([]LineAmount, 0, len(items))
	for _, it := range items {
		lines = append(lines, LineAmount{Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	rate := o.TaxRate
	return ComputeOrderTotals(PricingInput{
		Lines:         lines,
		LaborCost:     o.LaborCost,
		DeliveryFee:   o.DeliveryFee,
		TaxRate:       &rate,
		DiscountType:  o.DiscountType,
		DiscountValue: o.DiscountValue,
	})
}

// OrderDraft is the unvalidated input of order creation and editing.
// A nil TaxRate means "use the configured default".
type OrderDraft struct {
	CustomerID    int              `json:"customer_id"`
	Address       string           `json:"address"`
	Description   string           `json:"description"`
	LaborCost     decimal.Decimal  `json:"labor_cost"`
	DeliveryFee   decimal.Decimal  `json:"delivery_fee"`
	TaxRate       *decimal.Decimal `json:"tax_rate,omitempty"`
	DiscountType  DiscountType     `json:"discount_type"`
	DiscountValue decimal.Decimal  `json:"discount_value"`
	Items         []OrderItemDraft `json:"items"`
}

// OrderItemDraft is one submitted line.
type OrderItemDraft struct {
	ProductID  *int            `json:"product_id,omitempty"`
	Quantity   int64           `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	IsManual   bool            `json:"is_manual"`
	ManualName string          `json:"manual_name,omitempty"`
}

// Totals prices the draft. A nil TaxRate falls back to DefaultTaxRate.
func (d OrderDraft) Totals() OrderTotals {
	lines := make([]LineAmount, len(d.Items))
	for i, it := range d.Items {
		lines[i] = LineAmount{Quantity: it.Quantity, UnitPrice: it.UnitPrice}
	}
	return ComputeOrderTotals(PricingInput{
		Lines:         lines,
		LaborCost:     d.LaborCost,
		DeliveryFee:   d.DeliveryFee,
		TaxRate:       d.TaxRate,
		DiscountType:  d.DiscountType,
		DiscountValue: d.DiscountValue,
	})
}

// OrderFilter narrows ListOrders. Zero values mean "any".
type OrderFilter struct {
	CustomerID      int
	Status          OrderStatus
	IncludeInactive bool
}
