package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	minReportYear = 1970
	maxReportYear = 9999
)

// ── Report types ──────────────────────────────────────────────────────────────

// StatementLine is one row of a customer statement. Orders are debits,
// payments are credits. RunningBalance is the cumulative debit − credit.
type StatementLine struct {
	Date           string          `json:"date"`
	Kind           string          `json:"kind"` // "order" or "payment"
	Reference      int             `json:"reference"`
	Narration      string          `json:"narration,omitempty"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	RunningBalance decimal.Decimal `json:"running_balance"`
}

// ExpenseBreakdown is the per-type split of one month's expenses.
type ExpenseBreakdown struct {
	Year   int                `json:"year"`
	Month  int                `json:"month"`
	Total  decimal.Decimal    `json:"total"`
	ByType []ExpenseTypeTotal `json:"by_type"`
}

// ── Interface ─────────────────────────────────────────────────────────────────

// ReportingService provides read-only views over orders, payments and expenses.
type ReportingService interface {
	// CustomerDebtReport aggregates every active order with its active payments.
	CustomerDebtReport(ctx context.Context) ([]CustomerDebt, error)

	// PeriodFinancialReport buckets one calendar year of revenue (active
	// payments by payment date) and expenses by month.
	PeriodFinancialReport(ctx context.Context, year int) (*FinancialReport, error)

	// MonthlyExpenseBreakdown splits one month's expenses by type.
	MonthlyExpenseBreakdown(ctx context.Context, year, month int) (*ExpenseBreakdown, error)

	// CustomerStatement lists a customer's active orders and payments in date
	// order with a running balance.
	CustomerStatement(ctx context.Context, customerID int) ([]StatementLine, error)
}

// ── Implementation ────────────────────────────────────────────────────────────

type reportingService struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// NewReportingService constructs a ReportingService backed by the given pool.
func NewReportingService(pool *pgxpool.Pool, log *zap.Logger) ReportingService {
	if log == nil {
		log = zap.NewNop()
	}
	return &reportingService{pool: pool, log: log}
}

// ── CustomerDebtReport ────────────────────────────────────────────────────────

func (s *reportingService) CustomerDebtReport(ctx context.Context) ([]CustomerDebt, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT o.id, o.customer_id, c.name, o.total_price, COALESCE(p.paid, 0)
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		LEFT JOIN (
			SELECT order_id, SUM(amount) AS paid
			FROM payments
			WHERE is_active = true
			GROUP BY order_id
		) p ON p.order_id = o.id
		WHERE o.is_active = true
		ORDER BY o.id
	`)
	if err != nil {
		return nil, classifyPgError(s.log, "customer debt report", err)
	}
	defer rows.Close()

	var balances []OrderBalance
	for rows.Next() {
		var b OrderBalance
		if err := rows.Scan(&b.OrderID, &b.CustomerID, &b.CustomerName, &b.TotalPrice, &b.Paid); err != nil {
			return nil, classifyPgError(s.log, "scan order balance", err)
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPgError(s.log, "customer debt report", err)
	}
	return AggregateCustomerDebt(balances), nil
}

// ── PeriodFinancialReport ─────────────────────────────────────────────────────

func (s *reportingService) PeriodFinancialReport(ctx context.Context, year int) (*FinancialReport, error) {
	if year < minReportYear || year > maxReportYear {
		return nil, NewValidationError("year", fmt.Sprintf("must be between %d and %d, got %d", minReportYear, maxReportYear, year))
	}
	from, to := YearWindow(year)

	var (
		payments []DatedAmount
		expenses []ExpenseAmount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		payments, err = s.paymentAmounts(gctx, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		expenses, err = s.expenseAmounts(gctx, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, classifyPgError(s.log, "financial report", err)
	}

	report := BuildFinancialReport(year, payments, expenses)
	return &report, nil
}

func (s *reportingService) paymentAmounts(ctx context.Context, from, to time.Time) ([]DatedAmount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT payment_date, amount
		FROM payments
		WHERE is_active = true AND payment_date >= $1 AND payment_date < $2
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var out []DatedAmount
	for rows.Next() {
		var a DatedAmount
		if err := rows.Scan(&a.Date, &a.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *reportingService) expenseAmounts(ctx context.Context, from, to time.Time) ([]ExpenseAmount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT e.expense_date, e.amount, t.id, t.name
		FROM expenses e
		JOIN expense_types t ON t.id = e.expense_type_id
		WHERE e.is_active = true AND e.expense_date >= $1 AND e.expense_date < $2
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var out []ExpenseAmount
	for rows.Next() {
		var a ExpenseAmount
		if err := rows.Scan(&a.Date, &a.Amount, &a.TypeID, &a.TypeName); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ── MonthlyExpenseBreakdown ───────────────────────────────────────────────────

func (s *reportingService) MonthlyExpenseBreakdown(ctx context.Context, year, month int) (*ExpenseBreakdown, error) {
	if month == 0 {
		return nil, NewValidationError("month", "must be between 1 and 12, got 0")
	}
	from, to, err := expenseWindow(year, month)
	if err != nil {
		return nil, err
	}
	expenses, err := s.expenseAmounts(ctx, from, to)
	if err != nil {
		return nil, classifyPgError(s.log, "expense breakdown", err)
	}

	report := BuildFinancialReport(year, nil, expenses)
	return &ExpenseBreakdown{
		Year:   year,
		Month:  month,
		Total:  report.TotalExpenses,
		ByType: report.ExpenseBreakdown,
	}, nil
}

// ── CustomerStatement ─────────────────────────────────────────────────────────

func (s *reportingService) CustomerStatement(ctx context.Context, customerID int) ([]StatementLine, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)", customerID,
	).Scan(&exists); err != nil {
		return nil, classifyPgError(s.log, "customer statement", err)
	}
	if !exists {
		return nil, &NotFoundError{Entity: "customer", ID: customerID}
	}

	rows, err := s.pool.Query(ctx, `
		SELECT created_at::date::text AS day, 'order' AS kind, id, description, total_price, 0::numeric
		FROM orders
		WHERE customer_id = $1 AND is_active = true
		UNION ALL
		SELECT payment_date::text, 'payment', id, description, 0::numeric, amount
		FROM payments
		WHERE customer_id = $1 AND is_active = true
		ORDER BY day, kind, id
	`, customerID)
	if err != nil {
		return nil, classifyPgError(s.log, "customer statement", err)
	}
	defer rows.Close()

	var (
		lines   []StatementLine
		balance decimal.Decimal
	)
	for rows.Next() {
		var l StatementLine
		if err := rows.Scan(&l.Date, &l.Kind, &l.Reference, &l.Narration, &l.Debit, &l.Credit); err != nil {
			return nil, classifyPgError(s.log, "scan statement line", err)
		}
		balance = balance.Add(l.Debit).Sub(l.Credit)
		l.RunningBalance = balance
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
