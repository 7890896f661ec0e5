package core

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ValidationResult is the outcome of a validator: either OK or a list of
// every failing field.
type ValidationResult struct {
	Errors []FieldError
}

// OK reports whether no field failed.
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

// Err returns nil when r is OK, otherwise a *ValidationError carrying all fields.
func (r ValidationResult) Err() error {
	if r.OK() {
		return nil
	}
	return &ValidationError{Fields: r.Errors}
}

func (r *ValidationResult) add(field, format string, args ...any) {
	r.Errors = append(r.Errors, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// maxAmount is the largest value a NUMERIC(14,2) column holds.
var maxAmount = decimal.RequireFromString("999999999999.99")

// cents rejects values the NUMERIC(p,2) columns would round or overflow, so the
// stored row always prices to the same grand total as the submitted draft.
func (r *ValidationResult) cents(field string, v decimal.Decimal) bool {
	if !v.Equal(v.Round(2)) {
		r.add(field, "must have at most 2 decimal places, got %s", v)
		return false
	}
	if v.GreaterThan(maxAmount) {
		r.add(field, "must be <= %s, got %s", maxAmount, v)
		return false
	}
	return true
}

func (r *ValidationResult) nonNegative(field string, v decimal.Decimal) {
	if v.IsNegative() {
		r.add(field, "must be >= 0, got %s", v)
		return
	}
	r.cents(field, v)
}

func (r *ValidationResult) positive(field string, v decimal.Decimal) {
	if !v.IsPositive() {
		r.add(field, "must be > 0, got %s", v)
		return
	}
	r.cents(field, v)
}

func (r *ValidationResult) date(field, v string) {
	if _, err := time.Parse(dateLayout, v); err != nil {
		r.add(field, "must be a date in YYYY-MM-DD format, got %q", v)
	}
}

// ValidateOrderDraft checks d and collects every failing field.
func ValidateOrderDraft(d OrderDraft) ValidationResult {
	var r ValidationResult

	if d.CustomerID <= 0 {
		r.add("customerId", "must reference a customer")
	}
	r.nonNegative("laborCost", d.LaborCost)
	r.nonNegative("deliveryFee", d.DeliveryFee)
	r.nonNegative("discountValue", d.DiscountValue)

	if d.TaxRate != nil {
		if d.TaxRate.IsNegative() || d.TaxRate.GreaterThan(hundred) {
			r.add("taxRate", "must be between 0 and 100, got %s", d.TaxRate)
		} else {
			r.cents("taxRate", *d.TaxRate)
		}
	}

	switch d.DiscountType {
	case "", DiscountPercentage, DiscountAmount:
	default:
		r.add("discountType", "must be %q or %q, got %q", DiscountPercentage, DiscountAmount, d.DiscountType)
	}

	if len(d.Items) == 0 {
		r.add("items", "at least one item is required")
	}
	for i, it := range d.Items {
		path := fmt.Sprintf("items[%d]", i)
		if it.IsManual {
			if strings.TrimSpace(it.ManualName) == "" {
				r.add(path+".manualName", "is required for a manual item")
			}
			if it.ProductID != nil {
				r.add(path+".productId", "must be empty for a manual item")
			}
		} else if it.ProductID == nil || *it.ProductID <= 0 {
			r.add(path+".productId", "must reference a product")
		}
		if it.Quantity < 1 {
			r.add(path+".quantity", "must be >= 1, got %d", it.Quantity)
		}
		r.positive(path+".unitPrice", it.UnitPrice)
	}

	return r
}

// Normalize trims free text and defaults an empty payment date to today.
func (in *RecordPaymentInput) Normalize() {
	in.PaymentDate = strings.TrimSpace(in.PaymentDate)
	in.Description = strings.TrimSpace(in.Description)
	if in.PaymentDate == "" {
		in.PaymentDate = time.Now().Format(dateLayout)
	}
}

// ValidatePaymentInput checks a payment submission.
func ValidatePaymentInput(in RecordPaymentInput) ValidationResult {
	var r ValidationResult
	if in.OrderID <= 0 {
		r.add("orderId", "must reference an order")
	}
	if in.CustomerID <= 0 {
		r.add("customerId", "must reference a customer")
	}
	r.positive("amount", in.Amount)
	r.date("paymentDate", in.PaymentDate)
	return r
}

// ValidateExpenseInput checks an expense submission.
func ValidateExpenseInput(in ExpenseInput) ValidationResult {
	var r ValidationResult
	if in.ExpenseTypeID <= 0 {
		r.add("expenseTypeId", "must reference an expense type")
	}
	r.positive("amount", in.Amount)
	r.date("expenseDate", in.ExpenseDate)
	return r
}

// ValidateCustomerInput checks a customer submission.
func ValidateCustomerInput(in CustomerInput) ValidationResult {
	var r ValidationResult
	if strings.TrimSpace(in.Name) == "" {
		r.add("name", "is required")
	}
	if email := strings.TrimSpace(in.Email); email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			r.add("email", "is not a valid address")
		}
	}
	return r
}

// ValidateProductInput checks a product submission.
func ValidateProductInput(in ProductInput) ValidationResult {
	var r ValidationResult
	if strings.TrimSpace(in.Name) == "" {
		r.add("name", "is required")
	}
	r.positive("currentPrice", in.CurrentPrice)
	if in.Stock < 0 {
		r.add("stock", "must be >= 0, got %d", in.Stock)
	}
	switch in.Unit {
	case "", UnitPiece, UnitWeight:
	default:
		r.add("unit", "must be %q or %q, got %q", UnitPiece, UnitWeight, in.Unit)
	}
	return r
}

// ValidateProductPrice checks a replacement catalog price.
func ValidateProductPrice(price decimal.Decimal) ValidationResult {
	var r ValidationResult
	r.positive("currentPrice", price)
	return r
}
