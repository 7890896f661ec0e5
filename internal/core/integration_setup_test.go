package core_test

import (
	"context"
	"os"
	"testing"

	"order-desk/internal/core"
	"order-desk/internal/events"
	"order-desk/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// setupTestDB migrates and truncates the test database. Integration tests are
// skipped unless TEST_DATABASE_URL points at a disposable database.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../.env")

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err, "connect to test database")
	t.Cleanup(pool.Close)

	_, err = migrations.Apply(ctx, pool, zaptest.NewLogger(t))
	require.NoError(t, err, "apply migrations")

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE audit_logs, stock_movements, payments, order_items, orders,
		               expenses, expense_types, products, customers, lookup_entries
		RESTART IDENTITY CASCADE;

		INSERT INTO customers (name, email) VALUES
		('Ayşe Yılmaz', 'ayse@example.com'),
		('Mehmet Demir', NULL);

		INSERT INTO products (name, current_price, stock, unit) VALUES
		('Ceramic tile', 100.00, 10, 'piece'),
		('Grout',         25.00,  2, 'weight'),
		('Adhesive',      40.00,  0, 'piece');
	`)
	require.NoError(t, err, "seed test database")
	return pool
}

const (
	customerAyse   = 1
	customerMehmet = 2

	productTile     = 1
	productGrout    = 2
	productAdhesive = 3
)

type testServices struct {
	pool     *pgxpool.Pool
	catalog  core.CatalogService
	lookup   core.LookupService
	stock    core.StockLedger
	orders   core.OrderService
	payments core.PaymentService
	expenses core.ExpenseService
	reports  core.ReportingService
}

func newTestServices(t *testing.T, policy core.StockPolicy) *testServices {
	t.Helper()
	pool := setupTestDB(t)
	log := zaptest.NewLogger(t)

	lookup := core.NewLookupService(pool, core.DefaultTaxRate, log)
	_, err := lookup.SeedDefaults(context.Background())
	require.NoError(t, err)

	stock := core.NewStockLedger(pool, policy, log)
	return &testServices{
		pool:     pool,
		catalog:  core.NewCatalogService(pool, log),
		lookup:   lookup,
		stock:    stock,
		orders:   core.NewOrderService(pool, stock, lookup, events.Nop{}, log),
		payments: core.NewPaymentService(pool, events.Nop{}, log, 4),
		expenses: core.NewExpenseService(pool, log),
		reports:  core.NewReportingService(pool, log),
	}
}

func (s *testServices) stockOf(t *testing.T, productID int) int64 {
	t.Helper()
	p, err := s.catalog.GetProduct(context.Background(), productID)
	require.NoError(t, err)
	return p.Stock
}

func productItem(productID int, qty int64, price string) core.OrderItemDraft {
	id := productID
	return core.OrderItemDraft{ProductID: &id, Quantity: qty, UnitPrice: decimal.RequireFromString(price)}
}

func manualItem(name string, qty int64, price string) core.OrderItemDraft {
	return core.OrderItemDraft{IsManual: true, ManualName: name, Quantity: qty, UnitPrice: decimal.RequireFromString(price)}
}

// zeroTaxDraft is a draft with an explicit 0% tax rate so totals are easy to read.
func zeroTaxDraft(customerID int, items ...core.OrderItemDraft) core.OrderDraft {
	rate := decimal.Zero
	return core.OrderDraft{CustomerID: customerID, TaxRate: &rate, Items: items}
}

func pay(orderID, customerID int, amount string) core.RecordPaymentInput {
	return core.RecordPaymentInput{
		OrderID:     orderID,
		CustomerID:  customerID,
		Amount:      decimal.RequireFromString(amount),
		PaymentDate: "2024-03-15",
	}
}
