package core

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// MoneyFormatter renders amounts with a currency symbol and the digit grouping
// of a locale, e.g. "₺1.234,50" for tr or "$1,234.50" for en.
type MoneyFormatter struct {
	Symbol     string
	Locale     string
	printer    *message.Printer
	decimalSep string
}

// NewMoneyFormatter builds a formatter. An unparseable locale falls back to tr.
func NewMoneyFormatter(symbol, locale string) MoneyFormatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Turkish
		locale = "tr"
	}
	p := message.NewPrinter(tag)

	// The locale's decimal separator is whatever sits between the digits of 1.5.
	sep := "."
	sample := []rune(p.Sprint(number.Decimal(1.5, number.MinFractionDigits(1))))
	if len(sample) >= 3 {
		sep = string(sample[1 : len(sample)-1])
	}
	return MoneyFormatter{Symbol: symbol, Locale: locale, printer: p, decimalSep: sep}
}

// Format renders v rounded to cents. The integer part is grouped by x/text;
// the cents are appended exactly so large amounts never pass through float64.
func (m MoneyFormatter) Format(v decimal.Decimal) string {
	if m.printer == nil {
		m = NewMoneyFormatter(m.Symbol, m.Locale)
	}
	v = v.Round(2)
	sign := ""
	if v.IsNegative() {
		sign = "-"
		v = v.Neg()
	}
	whole := v.Truncate(0)
	cents := v.Sub(whole).Mul(hundred).IntPart()
	grouped := m.printer.Sprint(number.Decimal(whole.IntPart()))
	return fmt.Sprintf("%s%s%s%s%02d", sign, m.Symbol, grouped, m.decimalSep, cents)
}

// DocumentLine is one printed line of an order document.
type DocumentLine struct {
	No            int             `json:"no"`
	Name          string          `json:"name"`
	IsManual      bool            `json:"is_manual"`
	Quantity      int64           `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	LineTotal     decimal.Decimal `json:"line_total"`
	UnitPriceText string          `json:"unit_price_text"`
	LineTotalText string          `json:"line_total_text"`
}

// DocumentParty is the customer block of a document.
type DocumentParty struct {
	Name      string `json:"name"`
	Address   string `json:"address,omitempty"`
	Phone     string `json:"phone,omitempty"`
	TaxNumber string `json:"tax_number,omitempty"`
}

// OrderDocument is the view model handed to the PDF renderer. Every amount is
// present both as a decimal and as formatted text.
type OrderDocument struct {
	OrderID         int               `json:"order_id"`
	Date            string            `json:"date"`
	Status          OrderStatus       `json:"status"`
	Company         CompanyInfo       `json:"company"`
	Customer        DocumentParty     `json:"customer"`
	DeliveryAddress string            `json:"delivery_address,omitempty"`
	Description     string            `json:"description,omitempty"`
	Lines           []DocumentLine    `json:"lines"`
	LaborCost       decimal.Decimal   `json:"labor_cost"`
	DeliveryFee     decimal.Decimal   `json:"delivery_fee"`
	Totals          OrderTotals       `json:"totals"`
	TotalPaid       decimal.Decimal   `json:"total_paid"`
	Remaining       decimal.Decimal   `json:"remaining"`
	Text            map[string]string `json:"text"`
	CurrencySymbol  string            `json:"currency_symbol"`
}

// BuildOrderDocument assembles the printable view of an order. Totals are
// recomputed with the same rule used when the order was saved.
func BuildOrderDocument(order *Order, customer *Customer, company CompanyInfo, settlement Settlement, money MoneyFormatter) OrderDocument {
	totals := order.Totals()

	doc := OrderDocument{
		OrderID:         order.ID,
		Date:            order.CreatedAt.Format(dateLayout),
		Status:          order.Status,
		Company:         company,
		DeliveryAddress: order.Address,
		Description:     order.Description,
		LaborCost:       order.LaborCost,
		DeliveryFee:     order.DeliveryFee,
		Totals:          totals,
		TotalPaid:       settlement.TotalPaid,
		Remaining:       settlement.Remaining,
		CurrencySymbol:  money.Symbol,
	}
	if customer != nil {
		doc.Customer = DocumentParty{
			Name:      customer.Name,
			Address:   customer.Address,
			Phone:     customer.Phone,
			TaxNumber: customer.TaxNumber,
		}
	} else {
		doc.Customer = DocumentParty{Name: order.CustomerName}
	}

	n := 0
	for _, it := range order.CurrentItems() {
		n++
		total := it.LineTotal()
		doc.Lines = append(doc.Lines, DocumentLine{
			No:            n,
			Name:          it.DisplayName(),
			IsManual:      it.IsManual,
			Quantity:      it.Quantity,
			UnitPrice:     it.UnitPrice,
			LineTotal:     total,
			UnitPriceText: money.Format(it.UnitPrice),
			LineTotalText: money.Format(total),
		})
	}

	doc.Text = map[string]string{
		"items_total":     money.Format(totals.ItemsTotal),
		"tax_rate":        "%" + totals.TaxRate.String(),
		"tax_amount":      money.Format(totals.TaxAmount),
		"labor_cost":      money.Format(order.LaborCost),
		"delivery_fee":    money.Format(order.DeliveryFee),
		"subtotal":        money.Format(totals.Subtotal),
		"discount_amount": money.Format(totals.DiscountAmount),
		"grand_total":     money.Format(totals.GrandTotal),
		"total_paid":      money.Format(settlement.TotalPaid),
		"remaining":       money.Format(settlement.Remaining),
	}
	return doc
}
