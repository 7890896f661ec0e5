package core_test

import (
	"testing"
	"time"

	"order-desk/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payments(amounts ...string) []core.Payment {
	out := make([]core.Payment, len(amounts))
	for i, a := range amounts {
		out[i] = core.Payment{Amount: d(a), IsActive: true}
	}
	return out
}

func TestRemainingBalance_Scenarios(t *testing.T) {
	tests := []struct {
		name       string
		total      string
		payments   []core.Payment
		wantRemain string
		wantStatus core.OrderStatus
	}{
		{name: "exact payment", total: "500", payments: payments("500"), wantRemain: "0", wantStatus: core.StatusPaid},
		{name: "two halves", total: "1200", payments: payments("600", "600"), wantRemain: "0", wantStatus: core.StatusPaid},
		{name: "one half", total: "1200", payments: payments("600"), wantRemain: "600", wantStatus: core.StatusPartiallyPaid},
		{name: "nothing paid", total: "1200", payments: nil, wantRemain: "1200", wantStatus: core.StatusPending},
		{name: "overpaid clamps", total: "100", payments: payments("80", "80"), wantRemain: "0", wantStatus: core.StatusPaid},
		{name: "zero total", total: "0", payments: nil, wantRemain: "0", wantStatus: core.StatusPaid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paid := core.TotalPaid(tt.payments)
			assertDec(t, tt.wantRemain, core.RemainingBalance(d(tt.total), paid), "remaining")
			assert.Equal(t, tt.wantStatus, core.SettlementStatus(d(tt.total), paid))
		})
	}
}

func TestTotalPaid_IgnoresInactive(t *testing.T) {
	ps := payments("10", "20")
	ps[1].IsActive = false
	assertDec(t, "10", core.TotalPaid(ps), "paid")
}

func TestRemainingBalance_Monotonic(t *testing.T) {
	total := d("1000")
	var ps []core.Payment
	prev := core.RemainingBalance(total, core.TotalPaid(ps))
	for _, a := range []string{"0.01", "250", "300", "0", "449.99", "100", "5000"} {
		ps = append(ps, core.Payment{Amount: d(a), IsActive: true})
		cur := core.RemainingBalance(total, core.TotalPaid(ps))
		assert.True(t, cur.LessThanOrEqual(prev), "remaining grew from %s to %s", prev, cur)
		assert.False(t, cur.IsNegative())
		prev = cur
	}
}

func TestNewSettlement_KeepsCancelled(t *testing.T) {
	o := &core.Order{ID: 9, Status: core.StatusCancelled, TotalPrice: d("50")}
	s := core.NewSettlement(o, payments("10"))
	assert.Equal(t, core.StatusCancelled, s.Status)
	assertDec(t, "40", s.Remaining, "remaining")
}

func TestCanTransition(t *testing.T) {
	allowed := [][2]core.OrderStatus{
		{core.StatusPending, core.StatusPartiallyPaid},
		{core.StatusPending, core.StatusPaid},
		{core.StatusPartiallyPaid, core.StatusPaid},
		{core.StatusPending, core.StatusCancelled},
		{core.StatusPartiallyPaid, core.StatusCancelled},
		{core.StatusPaid, core.StatusPaid},
	}
	for _, tr := range allowed {
		assert.True(t, core.CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}

	denied := [][2]core.OrderStatus{
		{core.StatusPaid, core.StatusCancelled},
		{core.StatusPaid, core.StatusPending},
		{core.StatusCancelled, core.StatusPending},
		{core.StatusCancelled, core.StatusPaid},
		{core.StatusPartiallyPaid, core.StatusPending},
		{"BOGUS", "BOGUS"},
	}
	for _, tr := range denied {
		assert.False(t, core.CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}

	assert.True(t, core.CanRevertSettlement(core.StatusPaid, core.StatusPending))
	assert.True(t, core.CanRevertSettlement(core.StatusPartiallyPaid, core.StatusPending))
	assert.False(t, core.CanRevertSettlement(core.StatusCancelled, core.StatusPending))
}

func TestCanCancel(t *testing.T) {
	assert.True(t, core.CanCancel(core.StatusPending, d("0")))
	assert.True(t, core.CanCancel(core.StatusPartiallyPaid, d("50")))
	assert.True(t, core.CanCancel(core.StatusPaid, d("0")), "zero-total order")
	assert.False(t, core.CanCancel(core.StatusPaid, d("0.01")))
	assert.False(t, core.CanCancel(core.StatusCancelled, d("0")))
}

func TestAggregateCustomerDebt(t *testing.T) {
	balances := []core.OrderBalance{
		{OrderID: 1, CustomerID: 1, CustomerName: "A", TotalPrice: d("100"), Paid: d("150")},
		{OrderID: 2, CustomerID: 1, CustomerName: "A", TotalPrice: d("200"), Paid: d("0")},
		{OrderID: 3, CustomerID: 2, CustomerName: "B", TotalPrice: d("500"), Paid: d("100")},
		{OrderID: 4, CustomerID: 3, CustomerName: "C", TotalPrice: d("50"), Paid: d("50")},
	}

	got := core.AggregateCustomerDebt(balances)
	require.Len(t, got, 3)

	assert.Equal(t, 2, got[0].CustomerID)
	assertDec(t, "400", got[0].RemainingDebt, "B debt")

	assert.Equal(t, 1, got[1].CustomerID)
	assert.Equal(t, 2, got[1].OrderCount)
	assertDec(t, "300", got[1].TotalOrderAmount, "A total")
	assertDec(t, "150", got[1].TotalPaidAmount, "A paid")
	assertDec(t, "200", got[1].RemainingDebt, "A debt: overpayment of order 1 must not offset order 2")

	assert.Equal(t, 3, got[2].CustomerID)
	assert.True(t, got[2].RemainingDebt.IsZero())

	// Σ customer debt equals Σ per-order remainder.
	perOrder := decimal.Zero
	for _, b := range balances {
		perOrder = perOrder.Add(core.RemainingBalance(b.TotalPrice, b.Paid))
	}
	sum := decimal.Zero
	for _, c := range got {
		sum = sum.Add(c.RemainingDebt)
	}
	assert.True(t, perOrder.Equal(sum), "per-order %s vs customers %s", perOrder, sum)
}

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestBuildFinancialReport(t *testing.T) {
	pays := []core.DatedAmount{
		{Date: at("2023-12-31T23:59:59Z"), Amount: d("999")}, // previous year
		{Date: at("2024-01-01T00:00:00Z"), Amount: d("100")},
		{Date: at("2024-01-31T12:00:00Z"), Amount: d("50")},
		{Date: at("2024-03-15T08:00:00Z"), Amount: d("200")},
		{Date: at("2025-01-01T00:00:00Z"), Amount: d("777")}, // next year
	}
	exps := []core.ExpenseAmount{
		{Date: at("2024-01-10T00:00:00Z"), Amount: d("30"), TypeID: 2, TypeName: "Fuel"},
		{Date: at("2024-02-10T00:00:00Z"), Amount: d("80"), TypeID: 1, TypeName: "Rent"},
		{Date: at("2024-12-31T00:00:00Z"), Amount: d("20"), TypeID: 2, TypeName: "Fuel"},
		{Date: at("2023-06-01T00:00:00Z"), Amount: d("1000"), TypeID: 1, TypeName: "Rent"},
	}

	r := core.BuildFinancialReport(2024, pays, exps)

	assert.Equal(t, 2024, r.Year)
	assertDec(t, "350", r.TotalRevenue, "revenue")
	assertDec(t, "130", r.TotalExpenses, "expenses")
	assertDec(t, "220", r.Profit, "profit")

	assertDec(t, "150", r.Months[0].Revenue, "jan revenue")
	assertDec(t, "120", r.Months[0].Profit, "jan profit")
	assertDec(t, "-80", r.Months[1].Profit, "feb profit is negative")
	assertDec(t, "200", r.Months[2].Revenue, "mar revenue")
	assertDec(t, "-20", r.Months[11].Profit, "dec profit")
	for i, m := range r.Months {
		assert.Equal(t, i+1, m.Month)
	}

	require.Len(t, r.ExpenseBreakdown, 2)
	assert.Equal(t, "Rent", r.ExpenseBreakdown[0].TypeName)
	assertDec(t, "80", r.ExpenseBreakdown[0].Amount, "rent")
	assertDec(t, "50", r.ExpenseBreakdown[1].Amount, "fuel")
}

func TestYearWindow(t *testing.T) {
	start, end := core.YearWindow(2024)
	assert.True(t, at("2024-01-01T00:00:00Z").Equal(start))
	assert.True(t, at("2025-01-01T00:00:00Z").Equal(end))
}
