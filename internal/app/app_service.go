package app

import (
	"context"
	"fmt"
	"strings"

	"order-desk/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Services groups the core services the application facade delegates to.
type Services struct {
	Catalog  core.CatalogService
	Orders   core.OrderService
	Payments core.PaymentService
	Stock    core.StockLedger
	Expenses core.ExpenseService
	Lookup   core.LookupService
	Reports  core.ReportingService
}

type appService struct {
	pool *pgxpool.Pool
	svc  Services
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(pool *pgxpool.Pool, svc Services) ApplicationService {
	return &appService{pool: pool, svc: svc}
}

func (s *appService) Health(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}

// ── Orders ────────────────────────────────────────────────────────────────────

func (s *appService) PreviewOrderTotals(ctx context.Context, draft core.OrderDraft) (*core.OrderTotals, error) {
	totals, err := s.svc.Orders.PreviewTotals(ctx, draft)
	if err != nil {
		return nil, err
	}
	return &totals, nil
}

func orderResult(o *core.Order) *OrderResult {
	return &OrderResult{Order: o, Totals: o.Totals()}
}

func (s *appService) CreateOrder(ctx context.Context, draft core.OrderDraft) (*OrderResult, error) {
	o, err := s.svc.Orders.CreateOrder(ctx, draft)
	if err != nil {
		return nil, err
	}
	return orderResult(o), nil
}

func (s *appService) UpdateOrder(ctx context.Context, orderID int, draft core.OrderDraft) (*OrderResult, error) {
	o, err := s.svc.Orders.UpdateOrder(ctx, orderID, draft)
	if err != nil {
		return nil, err
	}
	return orderResult(o), nil
}

func (s *appService) CancelOrder(ctx context.Context, orderID int) (*OrderResult, error) {
	o, err := s.svc.Orders.CancelOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return orderResult(o), nil
}

func (s *appService) GetOrder(ctx context.Context, orderID int) (*OrderResult, error) {
	o, err := s.svc.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return orderResult(o), nil
}

func (s *appService) ListOrders(ctx context.Context, filter core.OrderFilter) (*OrderListResult, error) {
	orders, err := s.svc.Orders.ListOrders(ctx, filter)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []core.Order{}
	}
	return &OrderListResult{Orders: orders}, nil
}

func (s *appService) GetOrderSettlement(ctx context.Context, orderID int) (*core.Settlement, error) {
	return s.svc.Payments.GetOrderSettlement(ctx, orderID)
}

// GetOrderDocument assembles the order, its customer, the settlement and the
// company/currency lookups into one printable document.
func (s *appService) GetOrderDocument(ctx context.Context, orderID int) (*core.OrderDocument, error) {
	order, err := s.svc.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	customer, err := s.svc.Catalog.GetCustomer(ctx, order.CustomerID)
	if err != nil {
		return nil, err
	}
	settlement, err := s.svc.Payments.GetOrderSettlement(ctx, orderID)
	if err != nil {
		return nil, err
	}
	company, err := s.svc.Lookup.Company(ctx)
	if err != nil {
		return nil, err
	}
	doc := core.BuildOrderDocument(order, customer, company, *settlement, s.svc.Lookup.Money(ctx))
	return &doc, nil
}

// ── Payments ──────────────────────────────────────────────────────────────────

func (s *appService) paymentResult(ctx context.Context, p *core.Payment) (*PaymentResult, error) {
	st, err := s.svc.Payments.GetOrderSettlement(ctx, p.OrderID)
	if err != nil {
		return nil, err
	}
	return &PaymentResult{Payment: p, Status: st.Status, Remaining: st.Remaining}, nil
}

func (s *appService) RecordPayment(ctx context.Context, in core.RecordPaymentInput) (*PaymentResult, error) {
	p, err := s.svc.Payments.RecordPayment(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.paymentResult(ctx, p)
}

func (s *appService) CancelPayment(ctx context.Context, paymentID int) (*PaymentResult, error) {
	p, err := s.svc.Payments.CancelPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return s.paymentResult(ctx, p)
}

func (s *appService) ListPayments(ctx context.Context, filter core.PaymentFilter) (*PaymentListResult, error) {
	payments, err := s.svc.Payments.ListPayments(ctx, filter)
	if err != nil {
		return nil, err
	}
	if payments == nil {
		payments = []core.Payment{}
	}
	return &PaymentListResult{Payments: payments, Total: core.TotalPaid(payments)}, nil
}

// ── Catalog ───────────────────────────────────────────────────────────────────

func (s *appService) ListCustomers(ctx context.Context, includeInactive bool) (*CustomerListResult, error) {
	customers, err := s.svc.Catalog.ListCustomers(ctx, includeInactive)
	if err != nil {
		return nil, err
	}
	if customers == nil {
		customers = []core.Customer{}
	}
	return &CustomerListResult{Customers: customers}, nil
}

func (s *appService) CreateCustomer(ctx context.Context, in core.CustomerInput) (*core.Customer, error) {
	return s.svc.Catalog.CreateCustomer(ctx, in)
}

func (s *appService) GetCustomer(ctx context.Context, customerID int) (*core.Customer, error) {
	return s.svc.Catalog.GetCustomer(ctx, customerID)
}

func (s *appService) DeactivateCustomer(ctx context.Context, customerID int) error {
	return s.svc.Catalog.DeactivateCustomer(ctx, customerID)
}

func (s *appService) ListProducts(ctx context.Context, includeInactive bool) (*ProductListResult, error) {
	products, err := s.svc.Catalog.ListProducts(ctx, includeInactive)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []core.Product{}
	}
	return &ProductListResult{Products: products}, nil
}

func (s *appService) CreateProduct(ctx context.Context, in core.ProductInput) (*core.Product, error) {
	return s.svc.Catalog.CreateProduct(ctx, in)
}

func (s *appService) GetProduct(ctx context.Context, productID int) (*ProductResult, error) {
	p, err := s.svc.Catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	movements, err := s.svc.Stock.GetMovements(ctx, productID)
	if err != nil {
		return nil, err
	}
	if movements == nil {
		movements = []core.StockMovement{}
	}
	return &ProductResult{Product: p, Movements: movements}, nil
}

func (s *appService) UpdateProductPrice(ctx context.Context, req UpdatePriceRequest) (*core.Product, error) {
	return s.svc.Catalog.UpdateProductPrice(ctx, req.ProductID, req.Price)
}

func (s *appService) DeactivateProduct(ctx context.Context, productID int) error {
	return s.svc.Catalog.DeactivateProduct(ctx, productID)
}

func (s *appService) AdjustStock(ctx context.Context, req AdjustStockRequest) (*core.Product, error) {
	return s.svc.Stock.AdjustStock(ctx, req.ProductID, req.Delta, strings.TrimSpace(req.Note))
}

// ── Expenses ──────────────────────────────────────────────────────────────────

func (s *appService) ListExpenseTypes(ctx context.Context) (*ExpenseTypeListResult, error) {
	types, err := s.svc.Expenses.ListExpenseTypes(ctx, false)
	if err != nil {
		return nil, err
	}
	if types == nil {
		types = []core.ExpenseType{}
	}
	return &ExpenseTypeListResult{ExpenseTypes: types}, nil
}

func (s *appService) CreateExpenseType(ctx context.Context, name string) (*core.ExpenseType, error) {
	return s.svc.Expenses.CreateExpenseType(ctx, name)
}

func (s *appService) ListExpenses(ctx context.Context, year, month int) (*ExpenseListResult, error) {
	expenses, err := s.svc.Expenses.ListExpenses(ctx, year, month)
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}
	return &ExpenseListResult{Expenses: expenses, Total: total}, nil
}

func (s *appService) RecordExpense(ctx context.Context, in core.ExpenseInput) (*core.Expense, error) {
	return s.svc.Expenses.RecordExpense(ctx, in)
}

func (s *appService) CancelExpense(ctx context.Context, expenseID int) error {
	return s.svc.Expenses.CancelExpense(ctx, expenseID)
}

// ── Lookup ────────────────────────────────────────────────────────────────────

func (s *appService) ListLookup(ctx context.Context, category string) (*LookupListResult, error) {
	entries, err := s.svc.Lookup.List(ctx, category)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []core.LookupEntry{}
	}
	return &LookupListResult{Entries: entries}, nil
}

func (s *appService) GetLookup(ctx context.Context, category, key string) (*core.LookupEntry, error) {
	return s.svc.Lookup.Get(ctx, category, key)
}

func (s *appService) SetLookup(ctx context.Context, req SetLookupRequest) (*core.LookupEntry, error) {
	dataType := req.DataType
	if dataType == "" {
		dataType = core.LookupString
	}
	return s.svc.Lookup.Set(ctx, core.LookupEntry{
		Category:    req.Category,
		Key:         req.Key,
		Value:       req.Value,
		DataType:    dataType,
		Description: req.Description,
	})
}

func (s *appService) SeedLookupDefaults(ctx context.Context) (int, error) {
	return s.svc.Lookup.SeedDefaults(ctx)
}

// ── Reports ───────────────────────────────────────────────────────────────────

func (s *appService) CustomerDebtReport(ctx context.Context) (*DebtReportResult, error) {
	debts, err := s.svc.Reports.CustomerDebtReport(ctx)
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	for _, d := range debts {
		total = total.Add(d.RemainingDebt)
	}
	return &DebtReportResult{Customers: debts, TotalDebt: total}, nil
}

func (s *appService) FinancialReport(ctx context.Context, year int) (*core.FinancialReport, error) {
	return s.svc.Reports.PeriodFinancialReport(ctx, year)
}

func (s *appService) ExpenseBreakdown(ctx context.Context, year, month int) (*core.ExpenseBreakdown, error) {
	return s.svc.Reports.MonthlyExpenseBreakdown(ctx, year, month)
}

func (s *appService) CustomerStatement(ctx context.Context, customerID int) (*StatementResult, error) {
	customer, err := s.svc.Catalog.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	lines, err := s.svc.Reports.CustomerStatement(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if lines == nil {
		lines = []core.StatementLine{}
	}
	res := &StatementResult{Customer: customer, Lines: lines}
	if n := len(lines); n > 0 {
		res.Balance = lines[n-1].RunningBalance
	}
	return res, nil
}

func (s *appService) ReconcileOrderStatuses(ctx context.Context) (*core.ReconcileResult, error) {
	return s.svc.Payments.ReconcileOrderStatuses(ctx)
}
