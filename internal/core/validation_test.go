package core_test

import (
	"errors"
	"testing"

	"order-desk/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func validDraft() core.OrderDraft {
	return core.OrderDraft{
		CustomerID: 1,
		Items: []core.OrderItemDraft{
			{ProductID: intPtr(4), Quantity: 2, UnitPrice: d("100")},
			{IsManual: true, ManualName: "Installation", Quantity: 1, UnitPrice: d("40")},
		},
	}
}

func fields(r core.ValidationResult) []string {
	out := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		out = append(out, e.Field)
	}
	return out
}

func TestValidateOrderDraft_OK(t *testing.T) {
	r := core.ValidateOrderDraft(validDraft())
	assert.True(t, r.OK())
	assert.NoError(t, r.Err())
}

func TestValidateOrderDraft_Rules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *core.OrderDraft)
		want   []string
	}{
		{name: "no customer", mutate: func(dr *core.OrderDraft) { dr.CustomerID = 0 }, want: []string{"customerId"}},
		{name: "no items", mutate: func(dr *core.OrderDraft) { dr.Items = nil }, want: []string{"items"}},
		{name: "blank manual name", mutate: func(dr *core.OrderDraft) { dr.Items[1].ManualName = "   " }, want: []string{"items[1].manualName"}},
		{name: "manual with product", mutate: func(dr *core.OrderDraft) { dr.Items[1].ProductID = intPtr(3) }, want: []string{"items[1].productId"}},
		{name: "missing product", mutate: func(dr *core.OrderDraft) { dr.Items[0].ProductID = nil }, want: []string{"items[0].productId"}},
		{name: "zero product id", mutate: func(dr *core.OrderDraft) { dr.Items[0].ProductID = intPtr(0) }, want: []string{"items[0].productId"}},
		{name: "zero quantity", mutate: func(dr *core.OrderDraft) { dr.Items[0].Quantity = 0 }, want: []string{"items[0].quantity"}},
		{name: "zero price", mutate: func(dr *core.OrderDraft) { dr.Items[1].UnitPrice = d("0") }, want: []string{"items[1].unitPrice"}},
		{name: "negative labor", mutate: func(dr *core.OrderDraft) { dr.LaborCost = d("-1") }, want: []string{"laborCost"}},
		{name: "negative delivery", mutate: func(dr *core.OrderDraft) { dr.DeliveryFee = d("-0.01") }, want: []string{"deliveryFee"}},
		{name: "negative discount", mutate: func(dr *core.OrderDraft) { dr.DiscountValue = d("-5") }, want: []string{"discountValue"}},
		{name: "tax above 100", mutate: func(dr *core.OrderDraft) { dr.TaxRate = dp("101") }, want: []string{"taxRate"}},
		{name: "sub-cent price", mutate: func(dr *core.OrderDraft) { dr.Items[0].UnitPrice = d("10.005") }, want: []string{"items[0].unitPrice"}},
		{name: "sub-cent labor", mutate: func(dr *core.OrderDraft) { dr.LaborCost = d("0.004") }, want: []string{"laborCost"}},
		{name: "three-decimal tax", mutate: func(dr *core.OrderDraft) { dr.TaxRate = dp("18.125") }, want: []string{"taxRate"}},
		{name: "price above column range", mutate: func(dr *core.OrderDraft) { dr.Items[1].UnitPrice = d("10000000000000") }, want: []string{"items[1].unitPrice"}},
		{name: "unknown discount type", mutate: func(dr *core.OrderDraft) { dr.DiscountType = "coupon" }, want: []string{"discountType"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dr := validDraft()
			tt.mutate(&dr)
			r := core.ValidateOrderDraft(dr)
			assert.Equal(t, tt.want, fields(r))
		})
	}
}

func TestValidateOrderDraft_TrailingZerosAccepted(t *testing.T) {
	dr := validDraft()
	dr.Items[0].UnitPrice = d("10.500")
	dr.TaxRate = dp("18.00")
	assert.True(t, core.ValidateOrderDraft(dr).OK())
}

func TestValidateOrderDraft_RejectsUnstorableScale(t *testing.T) {
	dr := core.OrderDraft{
		CustomerID: 1,
		TaxRate:    dp("18.125"),
		LaborCost:  d("0.004"),
		Items:      []core.OrderItemDraft{{ProductID: intPtr(1), Quantity: 3, UnitPrice: d("10.005")}},
	}
	err := core.ValidateOrderDraft(dr).Err()
	require.ErrorIs(t, err, core.ErrValidation)

	var ve *core.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.ElementsMatch(t, []string{"laborCost", "taxRate", "items[0].unitPrice"},
		fields(core.ValidationResult{Errors: ve.Fields}))
}

// A draft that passes validation must price the same after a round trip
// through NUMERIC(…,2) columns.
func TestValidatedDraftMatchesStoredTotals(t *testing.T) {
	dr := validDraft()
	dr.Items[0].UnitPrice = d("10.05")
	dr.Items[0].Quantity = 3
	dr.TaxRate = dp("18.25")
	dr.LaborCost = d("0.04")
	dr.DiscountType = core.DiscountPercentage
	dr.DiscountValue = d("7.5")
	require.True(t, core.ValidateOrderDraft(dr).OK())

	want := dr.Totals()
	stored := &core.Order{
		LaborCost:     dr.LaborCost.Round(2),
		DeliveryFee:   dr.DeliveryFee.Round(2),
		TaxRate:       dr.TaxRate.Round(2),
		DiscountType:  dr.DiscountType,
		DiscountValue: dr.DiscountValue.Round(2),
		TotalPrice:    want.GrandTotal.Round(2),
		IsActive:      true,
	}
	for _, it := range dr.Items {
		stored.Items = append(stored.Items, core.OrderItem{
			ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice.Round(2),
			IsManual: it.IsManual, ManualName: it.ManualName, IsActive: true,
		})
	}

	got := stored.Totals()
	assert.True(t, want.GrandTotal.Equal(got.GrandTotal), "draft %s, stored row %s", want.GrandTotal, got.GrandTotal)
	assert.True(t, stored.TotalPrice.Equal(got.GrandTotal), "total_price %s, recomputed %s", stored.TotalPrice, got.GrandTotal)
}

func TestValidateOrderDraft_CollectsEveryField(t *testing.T) {
	dr := core.OrderDraft{
		LaborCost: d("-1"),
		Items: []core.OrderItemDraft{
			{Quantity: 0, UnitPrice: d("-3")},
		},
	}

	err := core.ValidateOrderDraft(dr).Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrValidation))

	var ve *core.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.ElementsMatch(t,
		[]string{"customerId", "laborCost", "items[0].productId", "items[0].quantity", "items[0].unitPrice"},
		fields(core.ValidationResult{Errors: ve.Fields}),
	)
}

func TestValidatePaymentInput(t *testing.T) {
	in := core.RecordPaymentInput{OrderID: 1, CustomerID: 2, Amount: d("10"), PaymentDate: "2024-02-29"}
	assert.True(t, core.ValidatePaymentInput(in).OK())

	assert.Equal(t, []string{"amount"},
		fields(core.ValidatePaymentInput(core.RecordPaymentInput{OrderID: 1, CustomerID: 2, Amount: d("10.001"), PaymentDate: "2024-02-29"})))

	bad := core.RecordPaymentInput{Amount: d("0"), PaymentDate: "29/02/2024"}
	assert.Equal(t,
		[]string{"orderId", "customerId", "amount", "paymentDate"},
		fields(core.ValidatePaymentInput(bad)),
	)
}

func TestRecordPaymentInput_NormalizeDefaultsDate(t *testing.T) {
	in := core.RecordPaymentInput{OrderID: 1, CustomerID: 1, Amount: d("1")}
	in.Normalize()
	assert.NotEmpty(t, in.PaymentDate)
	assert.True(t, core.ValidatePaymentInput(in).OK())
}

func TestValidateExpenseInput(t *testing.T) {
	ok := core.ExpenseInput{ExpenseTypeID: 1, Amount: d("5"), ExpenseDate: "2024-01-31"}
	assert.True(t, core.ValidateExpenseInput(ok).OK())

	assert.Equal(t, []string{"amount"},
		fields(core.ValidateExpenseInput(core.ExpenseInput{ExpenseTypeID: 1, Amount: d("1e13"), ExpenseDate: "2024-01-31"})))

	bad := core.ExpenseInput{Amount: d("-5"), ExpenseDate: ""}
	assert.Equal(t, []string{"expenseTypeId", "amount", "expenseDate"}, fields(core.ValidateExpenseInput(bad)))
}

func TestValidateCustomerAndProductInput(t *testing.T) {
	assert.True(t, core.ValidateCustomerInput(core.CustomerInput{Name: "Ayşe"}).OK())
	assert.Equal(t, []string{"name", "email"},
		fields(core.ValidateCustomerInput(core.CustomerInput{Email: "not-an-email"})))

	assert.True(t, core.ValidateProductInput(core.ProductInput{Name: "Tile", CurrentPrice: d("3")}).OK())
	assert.Equal(t, []string{"name", "currentPrice", "stock", "unit"},
		fields(core.ValidateProductInput(core.ProductInput{Stock: -1, Unit: "box"})))

	assert.True(t, core.ValidateProductPrice(d("12.50")).OK())
	assert.Equal(t, []string{"currentPrice"}, fields(core.ValidateProductPrice(d("12.505"))))
	assert.Equal(t, []string{"currentPrice"}, fields(core.ValidateProductPrice(d("0"))))
}
