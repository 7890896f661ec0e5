package core_test

import (
	"context"
	"testing"

	"order-desk/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentService_SettlementLifecycle(t *testing.T) {
	s := newTestServices(t, core.StockReject)
	ctx := context.Background()

	order, err := s.orders.CreateOrder(ctx, zeroTaxDraft(customerAyse, manualItem("Kitchen", 1, "1200")))
	require.NoError(t, err)

	first, err := s.payments.RecordPayment(ctx, pay(order.ID, customerAyse, "600"))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15", first.PaymentDate)

	st, err := s.payments.GetOrderSettlement(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPartiallyPaid, st.Status)
	assertDec(t, "600", st.Remaining, "remaining")

	_, err = s.payments.RecordPayment(ctx, pay(order.ID, customerAyse, "600"))
	require.NoError(t, err)

	st, err = s.payments.GetOrderSettlement(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPaid, st.Status)
	assertDec(t, "0", st.Remaining, "remaining")
	assert.Len(t, st.Payments, 2)

	// A PAID order can no longer be edited or cancelled.
	_, err = s.orders.UpdateOrder(ctx, order.ID, zeroTaxDraft(customerAyse, manualItem("Kitchen", 1, "1500")))
	assert.ErrorIs(t, err, core.ErrConflict)
	_, err = s.orders.CancelOrder(ctx, order.ID)
	assert.ErrorIs(t, err, core.ErrConflict)

	// Correcting a payment moves the order back.
	_, err = s.payments.CancelPayment(ctx, first.ID)
	require.NoError(t, err)
	got, err := s.orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPartiallyPaid, got.Status)

	_, err = s.payments.CancelPayment(ctx, first.ID)
	assert.ErrorIs(t, err, core.ErrNotFound, "already cancelled")
}

func TestPaymentService_Overpayment(t *testing.T) {
	s := newTestServices(t, core.StockReject)
	ctx := context.Background()

	order, err := s.orders.CreateOrder(ctx, zeroTaxDraft(customerAyse, manualItem("Door", 1, "500")))
	require.NoError(t, err)
	_, err = s.payments.RecordPayment(ctx, pay(order.ID, customerAyse, "700"))
	require.NoError(t, err)

	st, err := s.payments.GetOrderSettlement(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPaid, st.Status)
	assertDec(t, "0", st.Remaining, "remaining never negative")
	assertDec(t, "700", st.TotalPaid, "totalPaid")
}

func TestPaymentService_Rejections(t *testing.T) {
	s := newTestServices(t, core.StockReject)
	ctx := context.Background()

	order, err := s.orders.CreateOrder(ctx, zeroTaxDraft(customerAyse, manualItem("Door", 1, "500")))
	require.NoError(t, err)

	_, err = s.payments.RecordPayment(ctx, pay(order.ID, customerAyse, "0"))
	assert.ErrorIs(t, err, core.ErrValidation, "zero amount")

	_, err = s.payments.RecordPayment(ctx, pay(order.ID, customerMehmet, "10"))
	assert.ErrorIs(t, err, core.ErrValidation, "customer mismatch")

	_, err = s.payments.RecordPayment(ctx, pay(9999, customerAyse, "10"))
	assert.ErrorIs(t, err, core.ErrNotFound, "unknown order")

	_, err = s.orders.CancelOrder(ctx, order.ID)
	require.NoError(t, err)
	_, err = s.payments.RecordPayment(ctx, pay(order.ID, customerAyse, "10"))
	assert.ErrorIs(t, err, core.ErrNotFound, "cancelled order")

	payments, err := s.payments.ListPayments(ctx, core.PaymentFilter{OrderID: order.ID, IncludeInactive: true})
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestPaymentService_ReconcileRepairsLegacyStatus(t *testing.T) {
	s := newTestServices(t, core.StockReject)
	ctx := context.Background()

	order, err := s.orders.CreateOrder(ctx, zeroTaxDraft(customerAyse, manualItem("Door", 1, "500")))
	require.NoError(t, err)
	other, err := s.orders.CreateOrder(ctx, zeroTaxDraft(customerMehmet, manualItem("Shelf", 1, "80")))
	require.NoError(t, err)

	// Legacy rows: a payment inserted without the status moving forward.
	_, err = s.pool.Exec(ctx,
		"INSERT INTO payments (order_id, customer_id, amount, payment_date) VALUES ($1, $2, 500, '2024-01-10')",
		order.ID, customerAyse)
	require.NoError(t, err)

	res, err := s.payments.ReconcileOrderStatuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Checked)
	require.Len(t, res.Changed, 1)
	assert.Equal(t, core.StatusChange{OrderID: order.ID, From: core.StatusPending, To: core.StatusPaid}, res.Changed[0])

	got, err := s.orders.GetOrder(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPending, got.Status)

	res, err = s.payments.ReconcileOrderStatuses(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Changed, "second run is a no-op")
}
