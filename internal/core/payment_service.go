package core

import (
	"context"
	"fmt"
	"sync"

	"order-desk/internal/events"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RecordPaymentInput is a payment submission. An empty PaymentDate means today.
type RecordPaymentInput struct {
	OrderID     int             `json:"order_id"`
	CustomerID  int             `json:"customer_id"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate string          `json:"payment_date"`
	Description string          `json:"description"`
}

// PaymentFilter narrows ListPayments. Zero values mean "any"; dates are YYYY-MM-DD
// and To is exclusive.
type PaymentFilter struct {
	OrderID         int
	CustomerID      int
	From            string
	To              string
	IncludeInactive bool
}

// StatusChange is one order whose status was repaired by reconciliation.
type StatusChange struct {
	OrderID int         `json:"order_id"`
	From    OrderStatus `json:"from"`
	To      OrderStatus `json:"to"`
}

// ReconcileResult summarises a reconciliation run.
type ReconcileResult struct {
	Checked int            `json:"checked"`
	Changed []StatusChange `json:"changed"`
}

// PaymentService records payments and keeps order settlement status in step
// with them.
type PaymentService interface {
	// RecordPayment appends a payment and advances the order status in the
	// same transaction. Payments beyond the remaining balance are accepted.
	RecordPayment(ctx context.Context, in RecordPaymentInput) (*Payment, error)
	// CancelPayment soft-deletes a payment and moves the order status back if needed.
	CancelPayment(ctx context.Context, paymentID int) (*Payment, error)
	GetOrderSettlement(ctx context.Context, orderID int) (*Settlement, error)
	ListPayments(ctx context.Context, filter PaymentFilter) ([]Payment, error)
	// ReconcileOrderStatuses re-derives the status of every open order from its
	// payments. Each order is repaired in its own transaction.
	ReconcileOrderStatuses(ctx context.Context) (*ReconcileResult, error)
}

type paymentService struct {
	pool        *pgxpool.Pool
	events      events.Publisher
	log         *zap.Logger
	concurrency int
}

func NewPaymentService(pool *pgxpool.Pool, publisher events.Publisher, log *zap.Logger, reconcileConcurrency int) PaymentService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if reconcileConcurrency < 1 {
		reconcileConcurrency = 1
	}
	return &paymentService{pool: pool, events: publisher, log: log, concurrency: reconcileConcurrency}
}

const paymentColumns = `p.id, p.order_id, p.customer_id, c.name, p.amount, p.payment_date::text, p.description, p.is_active, p.created_at`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	if err := row.Scan(&p.ID, &p.OrderID, &p.CustomerID, &p.CustomerName, &p.Amount, &p.PaymentDate,
		&p.Description, &p.IsActive, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func getPayment(ctx context.Context, q pgxQuerier, paymentID int) (*Payment, error) {
	p, err := scanPayment(q.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		FROM payments p
		JOIN customers c ON c.id = p.customer_id
		WHERE p.id = $1
	`, paymentID))
	if err != nil {
		if isNoRows(err) {
			return nil, &NotFoundError{Entity: "payment", ID: paymentID}
		}
		return nil, fmt.Errorf("failed to fetch payment %d: %w", paymentID, err)
	}
	return p, nil
}

// lockedOrder is the part of an order row the payment flows need, read FOR UPDATE.
type lockedOrder struct {
	id         int
	customerID int
	status     OrderStatus
	active     bool
	total      decimal.Decimal
}

func lockOrderTx(ctx context.Context, tx pgx.Tx, orderID int) (*lockedOrder, error) {
	o := lockedOrder{id: orderID}
	err := tx.QueryRow(ctx,
		"SELECT customer_id, status, is_active, total_price FROM orders WHERE id = $1 FOR UPDATE",
		orderID,
	).Scan(&o.customerID, &o.status, &o.active, &o.total)
	if err != nil {
		if isNoRows(err) {
			return nil, &NotFoundError{Entity: "order", ID: orderID}
		}
		return nil, fmt.Errorf("failed to lock order %d: %w", orderID, err)
	}
	return &o, nil
}

// settleTx recomputes the paid total of a locked order and writes the derived
// status. allowRevert permits the backward moves of a payment correction.
func settleTx(ctx context.Context, tx pgx.Tx, o *lockedOrder, allowRevert bool) (OrderStatus, error) {
	paid, err := sumActivePaymentsTx(ctx, tx, o.id)
	if err != nil {
		return "", err
	}
	next := SettlementStatus(o.total, paid)
	if next == o.status {
		return next, nil
	}
	if !CanTransition(o.status, next) && !(allowRevert && CanRevertSettlement(o.status, next)) {
		return "", &ConflictError{Reason: fmt.Sprintf("order %d cannot move from %s to %s", o.id, o.status, next)}
	}
	if _, err := tx.Exec(ctx,
		"UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1",
		o.id, next,
	); err != nil {
		return "", fmt.Errorf("failed to update status of order %d: %w", o.id, err)
	}
	return next, nil
}

func (s *paymentService) RecordPayment(ctx context.Context, in RecordPaymentInput) (*Payment, error) {
	const op = "record payment"

	in.Normalize()
	if err := ValidatePaymentInput(in).Err(); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, classifyPgError(s.log, op, err)
	}
	defer tx.Rollback(ctx)

	order, err := lockOrderTx(ctx, tx, in.OrderID)
	if err != nil {
		return nil, classifyPgError(s.log, op, err)
	}
	if !order.active || order.status == StatusCancelled {
		return nil, &NotFoundError{Entity: "order", ID: in.OrderID}
	}
	if err := requireActiveCustomerTx(ctx, tx, in.CustomerID); err != nil {
		return nil, classifyPgError(s.log, op, err)
	}
	if in.CustomerID != order.customerID {
		return nil, NewValidationError("customerId",
			fmt.Sprintf("customer %d is not the customer of order %d", in.CustomerID, in.OrderID))
	}

	var paymentID int
	err = tx.QueryRow(ctx, `
		INSERT INTO payments (order_id, customer_id, amount, payment_date, description)
		VALUES ($1, $2, $3, $4::date, $5)
		RETURNING id
	`, in.OrderID, in.CustomerID, in.Amount, in.PaymentDate, in.Description).Scan(&paymentID)
	if err != nil {
		return nil, classifyPgError(s.log, op, fmt.Errorf("failed to insert payment: %w", err))
	}

	status, err := settleTx(ctx, tx, order, false)
	if err != nil {
		return nil, classifyPgError(s.log, op, err)
	}

	if err := writeAuditTx(ctx, tx, "payment", paymentID, AuditCreate, map[string]any{
		"order_id":        in.OrderID,
		"amount":          in.Amount.String(),
		"payment_date":    in.PaymentDate,
		"previous_status": order.status,
		"status":          status,
	}); err != nil {
		return nil, classifyPgError(s.log, op, err)
	}

	p, err := getPayment(ctx, tx, paymentID)
	if err != nil {
		return nil, classifyPgError(s.log, op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classifyPgError(s.log, op, fmt.Errorf("failed to commit payment: %w", err))
	}

	s.log.Info("payment recorded",
		zap.Int("payment_id", paymentID),
		zap.Int("order_id", in.OrderID),
		zap.String("amount", in.Amount.String()),
		zap.String("status", string(status)),
	)
	s.publish(ctx, events.Event{
		Type: events.PaymentRecorded, OrderID: in.OrderID, PaymentID: paymentID,
		CustomerID: in.CustomerID, Status: string(status), Amount: in.Amount.String(),
	})
	return p, nil
}

func (s *paymentService) CancelPayment(ctx context.Context, paymentID int) (*Payment, error) {
	const op = "cancel payment"

	var orderID int
	err := s.pool.QueryRow(ctx, "SELECT order_id FROM payments WHERE id = $1", paymentID).Scan(&orderID)
	if err != nil {
		if isNoRows(err) {
			return nil, &NotFoundError{Entity: "payment", ID: paymentID}
		}
		return nil, classifyPgError(s.log, op, err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, classifyPgError(s.log, op, err)
	}
	defer tx.Rollback(ctx)

	// Order first, then payment: the same lock order as RecordPayment.
	order, err := lockOrderTx(ctx, tx, orderID)
	if err != nil {
		return nil, classifyPgError(s.log, op, err)
	}

	tag, err := tx.Exec(ctx,
		"UPDATE payments SET is_active = false WHERE id = $1 AND is_active = true",
		paymentID,
	)
	if err != nil {
		return nil, classifyPgError(s.log, op, fmt.Errorf("failed to cancel payment %d: %w", paymentID, err))
	}
	if tag.RowsAffected() == 0 {
		return nil, &NotFoundError{Entity: "payment", ID: paymentID}
	}

	status := order.status
	if order.active && order.status != StatusCancelled {
		status, err = settleTx(ctx, tx, order, true)
		if err != nil {
			return nil, classifyPgError(s.log, op, err)
		}
	}

	if err := writeAuditTx(ctx, tx, "payment", paymentID, AuditCancel, map[string]any{
		"order_id":        orderID,
		"previous_status": order.status,
		"status":          status,
	}); err != nil {
		return nil, classifyPgError(s.log, op, err)
	}

	p, err := getPayment(ctx, tx, paymentID)
	if err != nil {
		return nil, classifyPgError(s.log, op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classifyPgError(s.log, op, fmt.Errorf("failed to commit payment cancellation: %w", err))
	}

	s.log.Info("payment cancelled", zap.Int("payment_id", paymentID), zap.Int("order_id", orderID),
		zap.String("status", string(status)))
	s.publish(ctx, events.Event{
		Type: events.PaymentCancelled, OrderID: orderID, PaymentID: paymentID,
		CustomerID: p.CustomerID, Status: string(status), Amount: p.Amount.String(),
	})
	return p, nil
}

func (s *paymentService) publish(ctx context.Context, e events.Event) {
	e.RequestID = RequestIDFromContext(ctx)
	if err := s.events.Publish(ctx, e); err != nil {
		s.log.Warn("event publish failed", zap.String("type", e.Type), zap.Int("order_id", e.OrderID), zap.Error(err))
	}
}

func (s *paymentService) GetOrderSettlement(ctx context.Context, orderID int) (*Settlement, error) {
	order, err := loadOrder(ctx, s.pool, orderID)
	if err != nil {
		return nil, classifyPgError(s.log, "get settlement", err)
	}
	payments, err := s.ListPayments(ctx, PaymentFilter{OrderID: orderID})
	if err != nil {
		return nil, err
	}
	if payments == nil {
		payments = []Payment{}
	}
	st := NewSettlement(order, payments)
	return &st, nil
}

func (s *paymentService) ListPayments(ctx context.Context, filter PaymentFilter) ([]Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments p
		JOIN customers c ON c.id = p.customer_id
		WHERE 1 = 1
	`
	var args []any
	if !filter.IncludeInactive {
		query += " AND p.is_active = true"
	}
	if filter.OrderID > 0 {
		args = append(args, filter.OrderID)
		query += fmt.Sprintf(" AND p.order_id = $%d", len(args))
	}
	if filter.CustomerID > 0 {
		args = append(args, filter.CustomerID)
		query += fmt.Sprintf(" AND p.customer_id = $%d", len(args))
	}
	var r ValidationResult
	if filter.From != "" {
		r.date("from", filter.From)
		args = append(args, filter.From)
		query += fmt.Sprintf(" AND p.payment_date >= $%d::date", len(args))
	}
	if filter.To != "" {
		r.date("to", filter.To)
		args = append(args, filter.To)
		query += fmt.Sprintf(" AND p.payment_date < $%d::date", len(args))
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	query += " ORDER BY p.payment_date, p.id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, classifyPgError(s.log, "list payments", err)
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, classifyPgError(s.log, "scan payment", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// ── Reconciliation ───────────────────────────────────────────────────────────

func (s *paymentService) ReconcileOrderStatuses(ctx context.Context) (*ReconcileResult, error) {
	const op = "reconcile order statuses"

	rows, err := s.pool.Query(ctx,
		"SELECT id FROM orders WHERE is_active = true AND status <> $1 ORDER BY id",
		StatusCancelled,
	)
	if err != nil {
		return nil, classifyPgError(s.log, op, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, classifyPgError(s.log, op, err)
	}

	result := &ReconcileResult{Checked: len(ids), Changed: []StatusChange{}}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			change, err := s.reconcileOne(gctx, id)
			if err != nil {
				return err
			}
			if change != nil {
				mu.Lock()
				result.Changed = append(result.Changed, *change)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, classifyPgError(s.log, op, err)
	}

	s.log.Info("order statuses reconciled", zap.Int("checked", result.Checked), zap.Int("changed", len(result.Changed)))
	return result, nil
}

func (s *paymentService) reconcileOne(ctx context.Context, orderID int) (*StatusChange, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := lockOrderTx(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.active || order.status == StatusCancelled {
		return nil, nil
	}

	next, err := settleTx(ctx, tx, order, true)
	if err != nil {
		return nil, err
	}
	if next == order.status {
		return nil, nil
	}

	if err := writeAuditTx(ctx, tx, "order", orderID, AuditStatus, map[string]any{
		"from": order.status, "to": next, "reason": "reconcile",
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit reconciliation of order %d: %w", orderID, err)
	}
	return &StatusChange{OrderID: orderID, From: order.status, To: next}, nil
}
