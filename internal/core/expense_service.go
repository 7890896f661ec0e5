package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ExpenseInput is an expense submission. An empty ExpenseDate means today.
type ExpenseInput struct {
	ExpenseTypeID int             `json:"expense_type_id"`
	Amount        decimal.Decimal `json:"amount"`
	ExpenseDate   string          `json:"expense_date"`
	Description   string          `json:"description"`
	ReceiptNumber string          `json:"receipt_number"`
}

// Normalize trims free text and defaults an empty expense date to today.
func (in *ExpenseInput) Normalize() {
	in.ExpenseDate = strings.TrimSpace(in.ExpenseDate)
	in.Description = strings.TrimSpace(in.Description)
	in.ReceiptNumber = strings.TrimSpace(in.ReceiptNumber)
	if in.ExpenseDate == "" {
		in.ExpenseDate = time.Now().Format(dateLayout)
	}
}

// ExpenseService manages expense types and the expenses booked against them.
type ExpenseService interface {
	CreateExpenseType(ctx context.Context, name string) (*ExpenseType, error)
	ListExpenseTypes(ctx context.Context, includeInactive bool) ([]ExpenseType, error)
	RecordExpense(ctx context.Context, in ExpenseInput) (*Expense, error)
	// ListExpenses returns active expenses of a calendar month, or of the whole
	// year when month is 0.
	ListExpenses(ctx context.Context, year, month int) ([]Expense, error)
	CancelExpense(ctx context.Context, expenseID int) error
}

type expenseService struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func NewExpenseService(pool *pgxpool.Pool, log *zap.Logger) ExpenseService {
	if log == nil {
		log = zap.NewNop()
	}
	return &expenseService{pool: pool, log: log}
}

const expenseColumns = `e.id, e.expense_type_id, t.name, e.amount, e.expense_date::text, e.description, e.receipt_number, e.is_active, e.created_at`

func scanExpense(row pgx.Row) (*Expense, error) {
	var e Expense
	if err := row.Scan(&e.ID, &e.ExpenseTypeID, &e.TypeName, &e.Amount, &e.ExpenseDate,
		&e.Description, &e.ReceiptNumber, &e.IsActive, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *expenseService) CreateExpenseType(ctx context.Context, name string) (*ExpenseType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewValidationError("name", "is required")
	}
	t := ExpenseType{Name: name, IsActive: true}
	err := s.pool.QueryRow(ctx,
		"INSERT INTO expense_types (name) VALUES ($1) RETURNING id",
		name,
	).Scan(&t.ID)
	if err != nil {
		return nil, classifyPgError(s.log, "create expense type", err)
	}
	return &t, nil
}

func (s *expenseService) ListExpenseTypes(ctx context.Context, includeInactive bool) ([]ExpenseType, error) {
	query := "SELECT id, name, is_active FROM expense_types"
	if !includeInactive {
		query += " WHERE is_active = true"
	}
	query += " ORDER BY name"

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, classifyPgError(s.log, "list expense types", err)
	}
	defer rows.Close()

	var out []ExpenseType
	for rows.Next() {
		var t ExpenseType
		if err := rows.Scan(&t.ID, &t.Name, &t.IsActive); err != nil {
			return nil, classifyPgError(s.log, "scan expense type", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *expenseService) RecordExpense(ctx context.Context, in ExpenseInput) (*Expense, error) {
	const op = "record expense"

	in.Normalize()
	if err := ValidateExpenseInput(in).Err(); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, classifyPgError(s.log, op, err)
	}
	defer tx.Rollback(ctx)

	var active bool
	err = tx.QueryRow(ctx,
		"SELECT is_active FROM expense_types WHERE id = $1 FOR SHARE",
		in.ExpenseTypeID,
	).Scan(&active)
	if err != nil && !isNoRows(err) {
		return nil, classifyPgError(s.log, op, err)
	}
	if err != nil || !active {
		return nil, &NotFoundError{Entity: "expense type", ID: in.ExpenseTypeID}
	}

	var id int
	err = tx.QueryRow(ctx, `
		INSERT INTO expenses (expense_type_id, amount, expense_date, description, receipt_number)
		VALUES ($1, $2, $3::date, $4, $5)
		RETURNING id
	`, in.ExpenseTypeID, in.Amount, in.ExpenseDate, in.Description, in.ReceiptNumber).Scan(&id)
	if err != nil {
		return nil, classifyPgError(s.log, op, err)
	}

	if err := writeAuditTx(ctx, tx, "expense", id, AuditCreate, map[string]any{
		"expense_type_id": in.ExpenseTypeID,
		"amount":          in.Amount.String(),
		"expense_date":    in.ExpenseDate,
	}); err != nil {
		return nil, classifyPgError(s.log, op, err)
	}

	e, err := scanExpense(tx.QueryRow(ctx, `
		SELECT `+expenseColumns+`
		FROM expenses e
		JOIN expense_types t ON t.id = e.expense_type_id
		WHERE e.id = $1
	`, id))
	if err != nil {
		return nil, classifyPgError(s.log, op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classifyPgError(s.log, op, err)
	}
	s.log.Info("expense recorded", zap.Int("expense_id", id), zap.String("amount", in.Amount.String()))
	return e, nil
}

func (s *expenseService) ListExpenses(ctx context.Context, year, month int) ([]Expense, error) {
	from, to, err := expenseWindow(year, month)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+expenseColumns+`
		FROM expenses e
		JOIN expense_types t ON t.id = e.expense_type_id
		WHERE e.is_active = true AND e.expense_date >= $1 AND e.expense_date < $2
		ORDER BY e.expense_date, e.id
	`, from, to)
	if err != nil {
		return nil, classifyPgError(s.log, "list expenses", err)
	}
	defer rows.Close()

	var out []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, classifyPgError(s.log, "scan expense", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// expenseWindow returns the half-open date window of a month, or of the whole
// year when month is 0.
func expenseWindow(year, month int) (time.Time, time.Time, error) {
	var r ValidationResult
	if year < minReportYear || year > maxReportYear {
		r.add("year", "must be between %d and %d, got %d", minReportYear, maxReportYear, year)
	}
	if month < 0 || month > 12 {
		r.add("month", "must be between 1 and 12, got %d", month)
	}
	if err := r.Err(); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if month == 0 {
		from, to := YearWindow(year)
		return from, to, nil
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0), nil
}

func (s *expenseService) CancelExpense(ctx context.Context, expenseID int) error {
	const op = "cancel expense"

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return classifyPgError(s.log, op, err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		"UPDATE expenses SET is_active = false WHERE id = $1 AND is_active = true",
		expenseID,
	)
	if err != nil {
		return classifyPgError(s.log, op, err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Entity: "expense", ID: expenseID}
	}
	if err := writeAuditTx(ctx, tx, "expense", expenseID, AuditCancel, nil); err != nil {
		return classifyPgError(s.log, op, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return classifyPgError(s.log, op, fmt.Errorf("failed to commit expense cancellation: %w", err))
	}
	return nil
}
