package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// TotalPaid sums the amounts of the active payments.
func TotalPaid(payments []Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		if p.IsActive {
			total = total.Add(p.Amount)
		}
	}
	return total
}

// RemainingBalance is max(0, totalPrice − paid). Overpayment shows as zero.
func RemainingBalance(totalPrice, paid decimal.Decimal) decimal.Decimal {
	rem := totalPrice.Sub(paid)
	if rem.IsNegative() {
		return decimal.Zero
	}
	return rem
}

// SettlementStatus derives the order status implied by the amount paid.
// A zero-total order is PAID.
func SettlementStatus(totalPrice, paid decimal.Decimal) OrderStatus {
	switch {
	case paid.GreaterThanOrEqual(totalPrice):
		return StatusPaid
	case paid.IsPositive():
		return StatusPartiallyPaid
	default:
		return StatusPending
	}
}

// Settlement is the payment state of one order.
type Settlement struct {
	OrderID    int             `json:"order_id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	TotalPaid  decimal.Decimal `json:"total_paid"`
	Remaining  decimal.Decimal `json:"remaining"`
	Status     OrderStatus     `json:"status"`
	Payments   []Payment       `json:"payments"`
}

// NewSettlement derives the settlement of an order from its payments.
// Status is the stored status for cancelled orders and the derived one otherwise.
func NewSettlement(order *Order, payments []Payment) Settlement {
	paid := TotalPaid(payments)
	status := SettlementStatus(order.TotalPrice, paid)
	if order.Status == StatusCancelled {
		status = StatusCancelled
	}
	return Settlement{
		OrderID:    order.ID,
		TotalPrice: order.TotalPrice,
		TotalPaid:  paid,
		Remaining:  RemainingBalance(order.TotalPrice, paid),
		Status:     status,
		Payments:   payments,
	}
}

// ── Customer debt ────────────────────────────────────────────────────────────

// OrderBalance is the input row of the debt aggregation: one active order and
// the sum of its active payments.
type OrderBalance struct {
	OrderID      int
	CustomerID   int
	CustomerName string
	TotalPrice   decimal.Decimal
	Paid         decimal.Decimal
}

// CustomerDebt is one row of the customer debt report.
type CustomerDebt struct {
	CustomerID       int             `json:"customer_id"`
	CustomerName     string          `json:"customer_name"`
	OrderCount       int             `json:"order_count"`
	TotalOrderAmount decimal.Decimal `json:"total_order_amount"`
	TotalPaidAmount  decimal.Decimal `json:"total_paid_amount"`
	RemainingDebt    decimal.Decimal `json:"remaining_debt"`
}

// AggregateCustomerDebt rolls order balances up per customer. RemainingDebt is
// the sum of per-order remainders, so an overpaid order never offsets another.
// Rows are sorted by remaining debt descending, then customer id.
func AggregateCustomerDebt(balances []OrderBalance) []CustomerDebt {
	byCustomer := make(map[int]*CustomerDebt)
	for _, b := range balances {
		d, ok := byCustomer[b.CustomerID]
		if !ok {
			d = &CustomerDebt{CustomerID: b.CustomerID, CustomerName: b.CustomerName}
			byCustomer[b.CustomerID] = d
		}
		d.OrderCount++
		d.TotalOrderAmount = d.TotalOrderAmount.Add(b.TotalPrice)
		d.TotalPaidAmount = d.TotalPaidAmount.Add(b.Paid)
		d.RemainingDebt = d.RemainingDebt.Add(RemainingBalance(b.TotalPrice, b.Paid))
	}

	out := make([]CustomerDebt, 0, len(byCustomer))
	for _, d := range byCustomer {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].RemainingDebt.Cmp(out[j].RemainingDebt); c != 0 {
			return c > 0
		}
		return out[i].CustomerID < out[j].CustomerID
	})
	return out
}

// ── Financial report ─────────────────────────────────────────────────────────

// DatedAmount is an amount recognised on Date (revenue at payment date).
type DatedAmount struct {
	Date   time.Time
	Amount decimal.Decimal
}

// ExpenseAmount is an expense with its type, for the breakdown.
type ExpenseAmount struct {
	Date     time.Time
	Amount   decimal.Decimal
	TypeID   int
	TypeName string
}

// MonthSummary is one calendar month of the financial report.
type MonthSummary struct {
	Month    int             `json:"month"`
	Revenue  decimal.Decimal `json:"revenue"`
	Expenses decimal.Decimal `json:"expenses"`
	Profit   decimal.Decimal `json:"profit"`
}

// ExpenseTypeTotal is the yearly amount spent on one expense type.
type ExpenseTypeTotal struct {
	TypeID   int             `json:"type_id"`
	TypeName string          `json:"type_name"`
	Amount   decimal.Decimal `json:"amount"`
}

// FinancialReport is the yearly rollup of revenue and expenses.
type FinancialReport struct {
	Year             int                `json:"year"`
	Months           [12]MonthSummary   `json:"months"`
	TotalRevenue     decimal.Decimal    `json:"total_revenue"`
	TotalExpenses    decimal.Decimal    `json:"total_expenses"`
	Profit           decimal.Decimal    `json:"profit"`
	ExpenseBreakdown []ExpenseTypeTotal `json:"expense_breakdown"`
}

// YearWindow returns the half-open window [Jan 1 year, Jan 1 year+1) in UTC.
func YearWindow(year int) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, 0)
}

// inYear reports whether t falls on a calendar day of year. Only the date part
// counts, so the caller's time zone never moves an entry across a boundary.
func inYear(t time.Time, year int) bool {
	return t.Year() == year
}

// BuildFinancialReport buckets payments and expenses into the 12 months of
// year. Entries outside the year are ignored. Profit may be negative.
func BuildFinancialReport(year int, payments []DatedAmount, expenses []ExpenseAmount) FinancialReport {
	r := FinancialReport{Year: year}
	for m := range r.Months {
		r.Months[m].Month = m + 1
	}

	for _, p := range payments {
		if !inYear(p.Date, year) {
			continue
		}
		m := &r.Months[p.Date.Month()-1]
		m.Revenue = m.Revenue.Add(p.Amount)
		r.TotalRevenue = r.TotalRevenue.Add(p.Amount)
	}

	byType := make(map[int]*ExpenseTypeTotal)
	for _, e := range expenses {
		if !inYear(e.Date, year) {
			continue
		}
		m := &r.Months[e.Date.Month()-1]
		m.Expenses = m.Expenses.Add(e.Amount)
		r.TotalExpenses = r.TotalExpenses.Add(e.Amount)

		t, ok := byType[e.TypeID]
		if !ok {
			t = &ExpenseTypeTotal{TypeID: e.TypeID, TypeName: e.TypeName}
			byType[e.TypeID] = t
		}
		t.Amount = t.Amount.Add(e.Amount)
	}

	for m := range r.Months {
		r.Months[m].Profit = r.Months[m].Revenue.Sub(r.Months[m].Expenses)
	}
	r.Profit = r.TotalRevenue.Sub(r.TotalExpenses)

	r.ExpenseBreakdown = make([]ExpenseTypeTotal, 0, len(byType))
	for _, t := range byType {
		r.ExpenseBreakdown = append(r.ExpenseBreakdown, *t)
	}
	sort.Slice(r.ExpenseBreakdown, func(i, j int) bool {
		if c := r.ExpenseBreakdown[i].Amount.Cmp(r.ExpenseBreakdown[j].Amount); c != 0 {
			return c > 0
		}
		return r.ExpenseBreakdown[i].TypeID < r.ExpenseBreakdown[j].TypeID
	})
	return r
}
