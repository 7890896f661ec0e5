package core_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"order-desk/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestOrderService_CreateAndCancelRestoresStock(t *testing.T) {
	s := newTestServices(t, core.StockReject)
	ctx := context.Background()

	require.EqualValues(t, 10, s.stockOf(t, productTile))

	order, err := s.orders.CreateOrder(ctx, zeroTaxDraft(customerAyse, productItem(productTile, 3, "100")))
	require.NoError(t, err)
	assert.Equal(t, core.StatusPending, order.Status)
	assertDec(t, "300", order.TotalPrice, "totalPrice")
	assert.EqualValues(t, 7, s.stockOf(t, productTile))

	cancelled, err := s.orders.CancelOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCancelled, cancelled.Status)
	assert.False(t, cancelled.IsActive)
	require.Len(t, cancelled.Items, 1, "cancelled order keeps its items")
	assert.False(t, cancelled.Items[0].IsActive)
	assert.EqualValues(t, 10, s.stockOf(t, productTile))

	movements, err := s.stock.GetMovements(ctx, productTile)
	require.NoError(t, err)
	var net int64
	for _, m := range movements {
		net += m.Delta
	}
	assert.Zero(t, net)

	_, err = s.orders.CancelOrder(ctx, order.ID)
	assert.ErrorIs(t, err, core.ErrNotFound, "second cancel")
}

func TestOrderService_ConcurrentCreateNeverOversells(t *testing.T) {
	s := newTestServices(t, core.StockReject)
	ctx := context.Background()

	const buyers = 12
	startStock := s.stockOf(t, productTile)

	var created, rejected atomic.Int64
	var g errgroup.Group
	for i := 0; i < buyers; i++ {
		g.Go(func() error {
			_, err := s.orders.CreateOrder(ctx, zeroTaxDraft(customerAyse, productItem(productTile, 1, "100")))
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, core.ErrConflict):
				rejected.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.EqualValues(t, startStock, created.Load(), "every unit sold exactly once")
	assert.EqualValues(t, buyers-startStock, rejected.Load())
	assert.Zero(t, s.stockOf(t, productTile))

	movements, err := s.stock.GetMovements(ctx, productTile)
	require.NoError(t, err)
	var net int64
	for _, m := range movements {
		net += m.Delta
	}
	assert.Equal(t, -created.Load(), net)

	orders, err := s.orders.ListOrders(ctx, core.OrderFilter{CustomerID: customerAyse})
	require.NoError(t, err)
	assert.Len(t, orders, int(created.Load()))
}

func TestOrderService_ZeroTotalOrderCanBeCancelled(t *testing.T) {
	s := newTestServices(t, core.StockReject)
	ctx := context.Background()

	draft := zeroTaxDraft(customerAyse, productItem(productTile, 4, "100"))
	draft.DiscountType = core.DiscountPercentage
	draft.DiscountValue = decimal.NewFromInt(100)

	order, err := s.orders.CreateOrder(ctx, draft)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPaid, order.Status)
	assertDec(t, "0", order.TotalPrice, "totalPrice")
	assert.EqualValues(t, 6, s.stockOf(t, productTile))

	cancelled, err := s.orders.CancelOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCancelled, cancelled.Status)
	assert.EqualValues(t, 10, s.stockOf(t, productTile))
}

func TestOrderService_PaidOrderCannotBeCancelled(t *testing.T) {
	s := newTestServices(t, core.StockReject)
	ctx := context.Background()

	order, err := s.orders.CreateOrder(ctx, zeroTaxDraft(customerAyse, productItem(productTile, 1, "100")))
	require.NoError(t, err)
	_, err = s.payments.RecordPayment(ctx, pay(order.ID, customerAyse, "100"))
	require.NoError(t, err)

	_, err = s.orders.CancelOrder(ctx, order.ID)
	assert.ErrorIs(t, err, core.ErrConflict)
	assert.EqualValues(t, 9, s.stockOf(t, productTile))
}

func TestOrderService_TaxDefaultsToLookupRate(t *testing.T) {
	s := newTestServices(t, core.StockReject)
	ctx := context.Background()

	draft := core.OrderDraft{
		CustomerID: customerAyse,
		LaborCost:  d("10"),
		Items:      []core.OrderItemDraft{manualItem("Fitting", 1, "100")},
	}
	order, err := s.orders.CreateOrder(ctx, draft)
	require.NoError(t, err)
	assertDec(t, "18", order.TaxRate, "taxRate")
	assertDec(t, "128", order.TotalPrice, "totalPrice")
	assert.True(t, order.TotalPrice.Equal(order.Totals().GrandTotal), "stored total matches recomputed total")
}

func TestOrderService_RejectPolicyRollsBack(t *testing.T) {
	s := newTestServices(t, core.StockReject)
	ctx := context.Background()

	_, err := s.orders.CreateOrder(ctx, zeroTaxDraft(customerAyse,
		productItem(productTile, 4, "100"),
		productItem(productGrout, 5, "25"),
	))
	require.Error(t, err)
	var conflict *core.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Contains(t, conflict.Reason, "insufficient stock")

	// Tile was decremented before Grout failed; the whole transaction rolled back.
	assert.EqualValues(t, 10, s.stockOf(t, productTile))
	assert.EqualValues(t, 2, s.stockOf(t, productGrout))

	orders, err := s.orders.ListOrders(ctx, core.OrderFilter{IncludeInactive: true})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestOrderService_ClampPolicy(t *testing.T) {
	s := newTestServices(t, core.StockClamp)
	ctx := context.Background()

	order, err := s.orders.CreateOrder(ctx, zeroTaxDraft(customerAyse, productItem(productGrout, 5, "25")))
	require.NoError(t, err)
	assert.EqualValues(t, 0, s.stockOf(t, productGrout))
	assertDec(t, "125", order.TotalPrice, "order is priced on the requested quantity")

	_, err = s.orders.CancelOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, s.stockOf(t, productGrout), "only the clamped amount is restored")
}

func TestOrderService_AllowPolicyGoesNegative(t *testing.T) {
	s := newTestServices(t, core.StockAllow)
	ctx := context.Background()

	order, err := s.orders.CreateOrder(ctx, zeroTaxDraft(customerAyse, productItem(productAdhesive, 3, "40")))
	require.NoError(t, err)
	assert.EqualValues(t, -3, s.stockOf(t, productAdhesive))

	_, err = s.orders.CancelOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, s.stockOf(t, productAdhesive))
}

func TestOrderService_UpdateRebalancesStock(t *testing.T) {
	s := newTestServices(t, core.StockReject)
	ctx := context.Background()

	order, err := s.orders.CreateOrder(ctx, zeroTaxDraft(customerAyse, productItem(productTile, 3, "100")))
	require.NoError(t, err)
	require.EqualValues(t, 7, s.stockOf(t, productTile))

	updated, err := s.orders.UpdateOrder(ctx, order.ID, zeroTaxDraft(customerAyse,
		productItem(productTile, 5, "100"),
		manualItem("Fitting", 1, "50"),
	))
	require.NoError(t, err)
	assertDec(t, "550", updated.TotalPrice, "totalPrice")
	assert.Len(t, updated.Items, 2, "superseded items are hidden")
	assert.EqualValues(t, 5, s.stockOf(t, productTile))

	_, err = s.orders.CancelOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 10, s.stockOf(t, productTile))
}

func TestOrderService_ReferenceChecks(t *testing.T) {
	s := newTestServices(t, core.StockReject)
	ctx := context.Background()

	_, err := s.orders.CreateOrder(ctx, zeroTaxDraft(999, manualItem("x", 1, "1")))
	assert.ErrorIs(t, err, core.ErrNotFound, "unknown customer")

	require.NoError(t, s.catalog.DeactivateProduct(ctx, productGrout))
	_, err = s.orders.CreateOrder(ctx, zeroTaxDraft(customerAyse, productItem(productGrout, 1, "25")))
	assert.ErrorIs(t, err, core.ErrNotFound, "inactive product")

	_, err = s.orders.CreateOrder(ctx, zeroTaxDraft(customerAyse))
	assert.ErrorIs(t, err, core.ErrValidation, "no items")
}

func TestOrderService_AuditTrail(t *testing.T) {
	s := newTestServices(t, core.StockReject)
	ctx := core.WithRequestID(context.Background(), "req-42")

	order, err := s.orders.CreateOrder(ctx, zeroTaxDraft(customerAyse, manualItem("Fitting", 1, "10")))
	require.NoError(t, err)
	_, err = s.orders.CancelOrder(ctx, order.ID)
	require.NoError(t, err)

	trail, err := core.AuditTrail(ctx, s.pool, "order", order.ID)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, core.AuditCreate, trail[0].Action)
	assert.Equal(t, core.AuditCancel, trail[1].Action)
	assert.Equal(t, "req-42", trail[0].RequestID)
}
