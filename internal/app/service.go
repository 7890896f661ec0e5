package app

import (
	"context"

	"order-desk/internal/core"
)

// ApplicationService is the single interface all UI adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println, no ANSI codes, and no display logic of any kind.
type ApplicationService interface {
	// Health pings the database.
	Health(ctx context.Context) error

	// PreviewOrderTotals prices a draft without persisting anything.
	PreviewOrderTotals(ctx context.Context, draft core.OrderDraft) (*core.OrderTotals, error)

	// CreateOrder validates and stores an order, decrementing stock.
	CreateOrder(ctx context.Context, draft core.OrderDraft) (*OrderResult, error)

	// UpdateOrder replaces the items and pricing fields of an open order.
	UpdateOrder(ctx context.Context, orderID int, draft core.OrderDraft) (*OrderResult, error)

	// CancelOrder cancels an unpaid order and restores its stock.
	CancelOrder(ctx context.Context, orderID int) (*OrderResult, error)

	GetOrder(ctx context.Context, orderID int) (*OrderResult, error)
	ListOrders(ctx context.Context, filter core.OrderFilter) (*OrderListResult, error)

	// GetOrderSettlement returns totals, payments and remaining balance of an order.
	GetOrderSettlement(ctx context.Context, orderID int) (*core.Settlement, error)

	// GetOrderDocument builds the printable view of an order.
	GetOrderDocument(ctx context.Context, orderID int) (*core.OrderDocument, error)

	RecordPayment(ctx context.Context, in core.RecordPaymentInput) (*PaymentResult, error)
	CancelPayment(ctx context.Context, paymentID int) (*PaymentResult, error)
	ListPayments(ctx context.Context, filter core.PaymentFilter) (*PaymentListResult, error)

	ListCustomers(ctx context.Context, includeInactive bool) (*CustomerListResult, error)
	CreateCustomer(ctx context.Context, in core.CustomerInput) (*core.Customer, error)
	GetCustomer(ctx context.Context, customerID int) (*core.Customer, error)
	DeactivateCustomer(ctx context.Context, customerID int) error

	ListProducts(ctx context.Context, includeInactive bool) (*ProductListResult, error)
	CreateProduct(ctx context.Context, in core.ProductInput) (*core.Product, error)
	GetProduct(ctx context.Context, productID int) (*ProductResult, error)
	UpdateProductPrice(ctx context.Context, req UpdatePriceRequest) (*core.Product, error)
	DeactivateProduct(ctx context.Context, productID int) error

	// AdjustStock applies a manual restock or write-off.
	AdjustStock(ctx context.Context, req AdjustStockRequest) (*core.Product, error)

	ListExpenseTypes(ctx context.Context) (*ExpenseTypeListResult, error)
	CreateExpenseType(ctx context.Context, name string) (*core.ExpenseType, error)
	ListExpenses(ctx context.Context, year, month int) (*ExpenseListResult, error)
	RecordExpense(ctx context.Context, in core.ExpenseInput) (*core.Expense, error)
	CancelExpense(ctx context.Context, expenseID int) error

	// ListLookup returns the entries of one category, or all entries when category is empty.
	ListLookup(ctx context.Context, category string) (*LookupListResult, error)
	GetLookup(ctx context.Context, category, key string) (*core.LookupEntry, error)
	SetLookup(ctx context.Context, req SetLookupRequest) (*core.LookupEntry, error)

	// SeedLookupDefaults inserts the missing default lookup entries.
	SeedLookupDefaults(ctx context.Context) (int, error)

	CustomerDebtReport(ctx context.Context) (*DebtReportResult, error)
	FinancialReport(ctx context.Context, year int) (*core.FinancialReport, error)
	ExpenseBreakdown(ctx context.Context, year, month int) (*core.ExpenseBreakdown, error)
	CustomerStatement(ctx context.Context, customerID int) (*StatementResult, error)

	// ReconcileOrderStatuses re-derives every open order's status from its payments.
	ReconcileOrderStatuses(ctx context.Context) (*core.ReconcileResult, error)
}
