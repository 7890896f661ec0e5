package core_test

import (
	"context"
	"testing"

	"order-desk/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestCatalogService_DuplicateEmailConflicts(t *testing.T) {
	s := newTestServices(t, core.StockReject)
	ctx := context.Background()

	c, err := s.catalog.CreateCustomer(ctx, core.CustomerInput{Name: "Zeynep Kaya", Email: "zeynep@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "zeynep@example.com", c.Email)

	_, err = s.catalog.CreateCustomer(ctx, core.CustomerInput{Name: "Another Zeynep", Email: " AYSE@example.com "})
	assert.ErrorIs(t, err, core.ErrConflict, "emails compare case-insensitively")

	_, err = s.catalog.CreateCustomer(ctx, core.CustomerInput{Name: "No Email"})
	assert.NoError(t, err, "customers without email never conflict")
}

func TestCatalogService_UpdateProductPrice(t *testing.T) {
	s := newTestServices(t, core.StockReject)
	ctx := context.Background()

	p, err := s.catalog.UpdateProductPrice(ctx, productGrout, decimal.RequireFromString("27.50"))
	require.NoError(t, err)
	assertDec(t, "27.50", p.CurrentPrice, "currentPrice")

	_, err = s.catalog.UpdateProductPrice(ctx, productGrout, decimal.RequireFromString("27.505"))
	assert.ErrorIs(t, err, core.ErrValidation)
	_, err = s.catalog.UpdateProductPrice(ctx, productGrout, decimal.Zero)
	assert.ErrorIs(t, err, core.ErrValidation)
	_, err = s.catalog.UpdateProductPrice(ctx, 999, decimal.NewFromInt(5))
	assert.ErrorIs(t, err, core.ErrNotFound)

	p, err = s.catalog.GetProduct(ctx, productGrout)
	require.NoError(t, err)
	assertDec(t, "27.50", p.CurrentPrice, "rejected updates leave the price alone")
}

func TestStockLedger_AdjustStock(t *testing.T) {
	s := newTestServices(t, core.StockReject)
	ctx := context.Background()

	p, err := s.stock.AdjustStock(ctx, productGrout, 5, "delivery")
	require.NoError(t, err)
	assert.EqualValues(t, 7, p.Stock)

	_, err = s.stock.AdjustStock(ctx, productGrout, -8, "count correction")
	assert.ErrorIs(t, err, core.ErrConflict)
	assert.EqualValues(t, 7, s.stockOf(t, productGrout))

	_, err = s.stock.AdjustStock(ctx, productGrout, 0, "")
	assert.ErrorIs(t, err, core.ErrValidation)
	_, err = s.stock.AdjustStock(ctx, 999, 1, "")
	assert.ErrorIs(t, err, core.ErrNotFound)

	movements, err := s.stock.GetMovements(ctx, productGrout)
	require.NoError(t, err)
	require.Len(t, movements, 1, "only the applied adjustment is recorded")
	assert.EqualValues(t, 5, movements[0].Delta)
	assert.Equal(t, core.MovementAdjustment, movements[0].Reason)
	assert.Equal(t, "delivery", movements[0].Note)
}

func TestLookupService_CreateAndSet(t *testing.T) {
	s := newTestServices(t, core.StockReject)
	ctx := context.Background()

	e, err := s.lookup.Create(ctx, core.LookupEntry{Category: "delivery", Key: "free_above", Value: "5000", DataType: core.LookupNumber})
	require.NoError(t, err)
	assert.NotZero(t, e.ID)

	_, err = s.lookup.Create(ctx, core.LookupEntry{Category: "delivery", Key: "free_above", Value: "1", DataType: core.LookupNumber})
	assert.ErrorIs(t, err, core.ErrConflict)

	_, err = s.lookup.Create(ctx, core.LookupEntry{Category: "delivery", Key: "enabled", Value: "sometimes", DataType: core.LookupBoolean})
	assert.ErrorIs(t, err, core.ErrValidation)

	updated, err := s.lookup.Set(ctx, core.LookupEntry{Category: "delivery", Key: "free_above", Value: "7500", DataType: core.LookupNumber})
	require.NoError(t, err)
	assert.Equal(t, e.ID, updated.ID, "set replaces in place")

	got, err := s.lookup.Get(ctx, "delivery", "free_above")
	require.NoError(t, err)
	n, err := got.Int()
	require.NoError(t, err)
	assert.EqualValues(t, 7500, n)

	_, err = s.lookup.Set(ctx, core.LookupEntry{Category: core.CategoryTax, Key: core.KeyDefaultRate, Value: "20", DataType: core.LookupNumber})
	require.NoError(t, err)
	rate, err := s.lookup.ResolveTaxRate(ctx)
	require.NoError(t, err)
	assertDec(t, "20", rate, "taxRate")
}

func TestLookupService_SeedsConfiguredTaxRate(t *testing.T) {
	s := newTestServices(t, core.StockReject)
	ctx := context.Background()

	_, err := s.pool.Exec(ctx, "DELETE FROM lookup_entries WHERE category = $1 AND key = $2", core.CategoryTax, core.KeyDefaultRate)
	require.NoError(t, err)

	lookup := core.NewLookupService(s.pool, decimal.NewFromInt(8), zaptest.NewLogger(t))
	rate, err := lookup.ResolveTaxRate(ctx)
	require.NoError(t, err)
	assertDec(t, "8", rate, "fallback while the row is missing")

	n, err := lookup.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	e, err := lookup.Get(ctx, core.CategoryTax, core.KeyDefaultRate)
	require.NoError(t, err)
	assert.Equal(t, "8", e.Value)

	n, err = lookup.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "seeding is idempotent")
}
