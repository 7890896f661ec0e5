package core

import (
	"context"
	"fmt"
	"strings"

	"order-desk/internal/events"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderService owns the order lifecycle. Every mutation runs validation,
// pricing, persistence, stock and audit as one transaction.
type OrderService interface {
	// PreviewTotals validates a draft and prices it with the resolved tax rate.
	PreviewTotals(ctx context.Context, draft OrderDraft) (OrderTotals, error)

	CreateOrder(ctx context.Context, draft OrderDraft) (*Order, error)
	// UpdateOrder replaces the items and cost fields of a PENDING or
	// PARTIALLY_PAID order and re-derives its settlement status.
	UpdateOrder(ctx context.Context, orderID int, draft OrderDraft) (*Order, error)
	// CancelOrder soft-deletes the order and its items and restores stock.
	CancelOrder(ctx context.Context, orderID int) (*Order, error)

	GetOrder(ctx context.Context, orderID int) (*Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]Order, error)
}

type orderService struct {
	pool   *pgxpool.Pool
	stock  StockLedger
	lookup LookupService
	events events.Publisher
	log    *zap.Logger
}

func NewOrderService(pool *pgxpool.Pool, stock StockLedger, lookup LookupService, publisher events.Publisher, log *zap.Logger) OrderService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &orderService{pool: pool, stock: stock, lookup: lookup, events: publisher, log: log}
}

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared query helpers.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const orderColumns = `
	o.id, o.customer_id, c.name, o.status, o.address, o.description,
	o.labor_cost, o.delivery_fee, o.tax_rate, o.discount_type, o.discount_value,
	o.total_price, o.is_active, o.created_at, o.updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.CustomerID, &o.CustomerName, &o.Status, &o.Address, &o.Description,
		&o.LaborCost, &o.DeliveryFee, &o.TaxRate, &o.DiscountType, &o.DiscountValue,
		&o.TotalPrice, &o.IsActive, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// withTaxRate fills a missing draft tax rate from the lookup table.
func (s *orderService) withTaxRate(ctx context.Context, draft OrderDraft) (OrderDraft, error) {
	if draft.TaxRate != nil {
		return draft, nil
	}
	rate := DefaultTaxRate
	if s.lookup != nil {
		r, err := s.lookup.ResolveTaxRate(ctx)
		if err != nil {
			return draft, err
		}
		rate = r
	}
	draft.TaxRate = &rate
	return draft, nil
}

func normalizeDraft(d OrderDraft) OrderDraft {
	d.Address = strings.TrimSpace(d.Address)
	d.Description = strings.TrimSpace(d.Description)
	items := make([]OrderItemDraft, len(d.Items))
	for i, it := range d.Items {
		it.ManualName = strings.TrimSpace(it.ManualName)
		items[i] = it
	}
	d.Items = items
	return d
}

func (s *orderService) PreviewTotals(ctx context.Context, draft OrderDraft) (OrderTotals, error) {
	if err := ValidateOrderDraft(draft).Err(); err != nil {
		return OrderTotals{}, err
	}
	draft, err := s.withTaxRate(ctx, draft)
	if err != nil {
		return OrderTotals{}, err
	}
	return draft.Totals(), nil
}

// ── Reference checks ─────────────────────────────────────────────────────────

func requireActiveCustomerTx(ctx context.Context, tx pgx.Tx, customerID int) error {
	var active bool
	err := tx.QueryRow(ctx, "SELECT is_active FROM customers WHERE id = $1 FOR SHARE", customerID).Scan(&active)
	if err != nil {
		if isNoRows(err) {
			return &NotFoundError{Entity: "customer", ID: customerID}
		}
		return fmt.Errorf("failed to resolve customer %d: %w", customerID, err)
	}
	if !active {
		return &NotFoundError{Entity: "customer", ID: customerID}
	}
	return nil
}

// requireActiveProductsTx checks that every catalog item references an active
// product and returns the product names keyed by id.
func requireActiveProductsTx(ctx context.Context, tx pgx.Tx, items []OrderItemDraft) (map[int]string, error) {
	plan := PlanStockDecrements(items)
	if len(plan) == 0 {
		return map[int]string{}, nil
	}
	ids := sortedProductIDs(plan)

	rows, err := tx.Query(ctx, "SELECT id, name FROM products WHERE id = ANY($1) AND is_active = true", ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve products: %w", err)
	}
	defer rows.Close()

	names := make(map[int]string, len(ids))
	for rows.Next() {
		var id int
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		names[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to resolve products: %w", err)
	}

	for _, id := range ids {
		if _, ok := names[id]; !ok {
			return nil, &NotFoundError{Entity: "product", ID: id}
		}
	}
	return names, nil
}

func insertOrderItemsTx(ctx context.Context, tx pgx.Tx, orderID int, items []OrderItemDraft) error {
	for i, it := range items {
		var productID *int
		if !it.IsManual {
			productID = it.ProductID
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, unit_price, is_manual, manual_name)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, orderID, productID, it.Quantity, it.UnitPrice, it.IsManual, it.ManualName)
		if err != nil {
			return fmt.Errorf("failed to insert order item %d: %w", i+1, err)
		}
	}
	return nil
}

func sumActivePaymentsTx(ctx context.Context, q pgxQuerier, orderID int) (decimal.Decimal, error) {
	var paid decimal.Decimal
	err := q.QueryRow(ctx,
		"SELECT COALESCE(SUM(amount), 0) FROM payments WHERE order_id = $1 AND is_active = true",
		orderID,
	).Scan(&paid)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum payments for order %d: %w", orderID, err)
	}
	return paid, nil
}

// ── Order Lifecycle ──────────────────────────────────────────────────────────

func (s *orderService) CreateOrder(ctx context.Context, draft OrderDraft) (*Order, error) {
	const op = "create order"

	draft = normalizeDraft(draft)
	if err := ValidateOrderDraft(draft).Err(); err != nil {
		return nil, err
	}
	draft, err := s.withTaxRate(ctx, draft)
	if err != nil {
		return nil, err
	}
	totals := draft.Totals()
	status := SettlementStatus(totals.GrandTotal, decimal.Zero)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, classifyPgError(s.log, op, err)
	}
	defer tx.Rollback(ctx)

	if err := requireActiveCustomerTx(ctx, tx, draft.CustomerID); err != nil {
		return nil, classifyPgError(s.log, op, err)
	}
	if _, err := requireActiveProductsTx(ctx, tx, draft.Items); err != nil {
		return nil, classifyPgError(s.log, op, err)
	}

	var orderID int
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (customer_id, status, address, description, labor_cost, delivery_fee,
		                    tax_rate, discount_type, discount_value, total_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, draft.CustomerID, status, draft.Address, draft.Description, draft.LaborCost, draft.DeliveryFee,
		*draft.TaxRate, draft.DiscountType, draft.DiscountValue, totals.GrandTotal,
	).Scan(&orderID)
	if err != nil {
		return nil, classifyPgError(s.log, op, fmt.Errorf("failed to insert order: %w", err))
	}

	if err := insertOrderItemsTx(ctx, tx, orderID, draft.Items); err != nil {
		return nil, classifyPgError(s.log, op, err)
	}
	if err := s.stock.ApplyOrderTx(ctx, tx, orderID, draft.Items); err != nil {
		return nil, classifyPgError(s.log, op, err)
	}
	if err := writeAuditTx(ctx, tx, "order", orderID, AuditCreate, map[string]any{
		"customer_id": draft.CustomerID,
		"items":       len(draft.Items),
		"tax_rate":    draft.TaxRate.String(),
		"total_price": totals.GrandTotal.String(),
		"status":      status,
	}); err != nil {
		return nil, classifyPgError(s.log, op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classifyPgError(s.log, op, fmt.Errorf("failed to commit order creation: %w", err))
	}

	s.log.Info("order created",
		zap.Int("order_id", orderID),
		zap.Int("customer_id", draft.CustomerID),
		zap.String("total_price", totals.GrandTotal.String()),
	)
	s.publish(ctx, events.Event{
		Type: events.OrderCreated, OrderID: orderID, CustomerID: draft.CustomerID,
		Status: string(status), Amount: totals.GrandTotal.String(),
	})
	return s.GetOrder(ctx, orderID)
}

func (s *orderService) UpdateOrder(ctx context.Context, orderID int, draft OrderDraft) (*Order, error) {
	const op = "update order"

	draft = normalizeDraft(draft)
	if err := ValidateOrderDraft(draft).Err(); err != nil {
		return nil, err
	}
	draft, err := s.withTaxRate(ctx, draft)
	if err != nil {
		return nil, err
	}
	totals := draft.Totals()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, classifyPgError(s.log, op, err)
	}
	defer tx.Rollback(ctx)

	var customerID int
	var status OrderStatus
	var active bool
	var oldTotal decimal.Decimal
	err = tx.QueryRow(ctx,
		"SELECT customer_id, status, is_active, total_price FROM orders WHERE id = $1 FOR UPDATE",
		orderID,
	).Scan(&customerID, &status, &active, &oldTotal)
	if err != nil {
		if isNoRows(err) {
			return nil, &NotFoundError{Entity: "order", ID: orderID}
		}
		return nil, classifyPgError(s.log, op, fmt.Errorf("failed to fetch order %d: %w", orderID, err))
	}
	if !active {
		return nil, &NotFoundError{Entity: "order", ID: orderID}
	}
	if status != StatusPending && status != StatusPartiallyPaid {
		return nil, &ConflictError{Reason: fmt.Sprintf(
			"order %d cannot be edited: status is %s (must be PENDING or PARTIALLY_PAID)", orderID, status)}
	}

	paid, err := sumActivePaymentsTx(ctx, tx, orderID)
	if err != nil {
		return nil, classifyPgError(s.log, op, err)
	}
	if draft.CustomerID != customerID && paid.IsPositive() {
		return nil, NewValidationError("customerId", "cannot change the customer of an order that has payments")
	}

	if err := requireActiveCustomerTx(ctx, tx, draft.CustomerID); err != nil {
		return nil, classifyPgError(s.log, op, err)
	}
	if _, err := requireActiveProductsTx(ctx, tx, draft.Items); err != nil {
		return nil, classifyPgError(s.log, op, err)
	}

	if err := s.stock.ReverseOrderTx(ctx, tx, orderID, MovementOrderEdited); err != nil {
		return nil, classifyPgError(s.log, op, err)
	}
	if _, err := tx.Exec(ctx,
		"UPDATE order_items SET is_active = false, superseded = true WHERE order_id = $1 AND superseded = false",
		orderID,
	); err != nil {
		return nil, classifyPgError(s.log, op, fmt.Errorf("failed to retire items of order %d: %w", orderID, err))
	}
	if err := insertOrderItemsTx(ctx, tx, orderID, draft.Items); err != nil {
		return nil, classifyPgError(s.log, op, err)
	}
	if err := s.stock.ApplyOrderTx(ctx, tx, orderID, draft.Items); err != nil {
		return nil, classifyPgError(s.log, op, err)
	}

	newStatus := SettlementStatus(totals.GrandTotal, paid)
	if !CanTransition(status, newStatus) {
		return nil, &ConflictError{Reason: fmt.Sprintf(
			"order %d cannot move from %s to %s", orderID, status, newStatus)}
	}

	_, err = tx.Exec(ctx, `
		UPDATE orders
		SET customer_id = $2, address = $3, description = $4, labor_cost = $5, delivery_fee = $6,
		    tax_rate = $7, discount_type = $8, discount_value = $9, total_price = $10,
		    status = $11, updated_at = NOW()
		WHERE id = $1
	`, orderID, draft.CustomerID, draft.Address, draft.Description, draft.LaborCost, draft.DeliveryFee,
		*draft.TaxRate, draft.DiscountType, draft.DiscountValue, totals.GrandTotal, newStatus)
	if err != nil {
		return nil, classifyPgError(s.log, op, fmt.Errorf("failed to update order %d: %w", orderID, err))
	}

	if err := writeAuditTx(ctx, tx, "order", orderID, AuditUpdate, map[string]any{
		"old_total":   oldTotal.String(),
		"new_total":   totals.GrandTotal.String(),
		"old_status":  status,
		"new_status":  newStatus,
		"items":       len(draft.Items),
		"customer_id": draft.CustomerID,
	}); err != nil {
		return nil, classifyPgError(s.log, op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classifyPgError(s.log, op, fmt.Errorf("failed to commit order update: %w", err))
	}

	s.log.Info("order updated", zap.Int("order_id", orderID), zap.String("status", string(newStatus)))
	s.publish(ctx, events.Event{
		Type: events.OrderUpdated, OrderID: orderID, CustomerID: draft.CustomerID,
		Status: string(newStatus), Amount: totals.GrandTotal.String(),
	})
	return s.GetOrder(ctx, orderID)
}

func (s *orderService) CancelOrder(ctx context.Context, orderID int) (*Order, error) {
	const op = "cancel order"

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, classifyPgError(s.log, op, err)
	}
	defer tx.Rollback(ctx)

	var customerID int
	var status OrderStatus
	var active bool
	err = tx.QueryRow(ctx,
		"SELECT customer_id, status, is_active FROM orders WHERE id = $1 FOR UPDATE",
		orderID,
	).Scan(&customerID, &status, &active)
	if err != nil {
		if isNoRows(err) {
			return nil, &NotFoundError{Entity: "order", ID: orderID}
		}
		return nil, classifyPgError(s.log, op, fmt.Errorf("failed to fetch order %d: %w", orderID, err))
	}
	if !active || status == StatusCancelled {
		return nil, &NotFoundError{Entity: "order", ID: orderID}
	}
	paid, err := sumActivePaymentsTx(ctx, tx, orderID)
	if err != nil {
		return nil, classifyPgError(s.log, op, err)
	}
	if !CanCancel(status, paid) {
		return nil, &ConflictError{Reason: fmt.Sprintf(
			"order %d cannot be cancelled: status is %s", orderID, status)}
	}

	if _, err := tx.Exec(ctx,
		"UPDATE order_items SET is_active = false WHERE order_id = $1 AND superseded = false",
		orderID,
	); err != nil {
		return nil, classifyPgError(s.log, op, fmt.Errorf("failed to deactivate items of order %d: %w", orderID, err))
	}
	if err := s.stock.ReverseOrderTx(ctx, tx, orderID, MovementOrderCancelled); err != nil {
		return nil, classifyPgError(s.log, op, err)
	}
	if _, err := tx.Exec(ctx,
		"UPDATE orders SET is_active = false, status = $2, updated_at = NOW() WHERE id = $1",
		orderID, StatusCancelled,
	); err != nil {
		return nil, classifyPgError(s.log, op, fmt.Errorf("failed to cancel order %d: %w", orderID, err))
	}
	if err := writeAuditTx(ctx, tx, "order", orderID, AuditCancel, map[string]any{
		"previous_status": status,
	}); err != nil {
		return nil, classifyPgError(s.log, op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classifyPgError(s.log, op, fmt.Errorf("failed to commit cancel order: %w", err))
	}

	s.log.Info("order cancelled", zap.Int("order_id", orderID), zap.String("previous_status", string(status)))
	s.publish(ctx, events.Event{
		Type: events.OrderCancelled, OrderID: orderID, CustomerID: customerID, Status: string(StatusCancelled),
	})
	return s.GetOrder(ctx, orderID)
}

func (s *orderService) publish(ctx context.Context, e events.Event) {
	e.RequestID = RequestIDFromContext(ctx)
	if err := s.events.Publish(ctx, e); err != nil {
		s.log.Warn("event publish failed", zap.String("type", e.Type), zap.Int("order_id", e.OrderID), zap.Error(err))
	}
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *orderService) GetOrder(ctx context.Context, orderID int) (*Order, error) {
	o, err := loadOrder(ctx, s.pool, orderID)
	if err != nil {
		return nil, classifyPgError(s.log, "get order", err)
	}
	return o, nil
}

// loadOrder reads an order with its current (non-superseded) items. Inactive
// orders are returned too; callers decide whether that is an error.
func loadOrder(ctx context.Context, q pgxQuerier, orderID int) (*Order, error) {
	o, err := scanOrder(q.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		WHERE o.id = $1
	`, orderID))
	if err != nil {
		if isNoRows(err) {
			return nil, &NotFoundError{Entity: "order", ID: orderID}
		}
		return nil, fmt.Errorf("failed to fetch order %d: %w", orderID, err)
	}

	rows, err := q.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, COALESCE(p.name, ''), oi.quantity, oi.unit_price,
		       oi.is_manual, oi.manual_name, oi.is_active
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1 AND oi.superseded = false
		ORDER BY oi.id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query items of order %d: %w", orderID, err)
	}
	defer rows.Close()

	o.Items = []OrderItem{}
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice,
			&it.IsManual, &it.ManualName, &it.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read items of order %d: %w", orderID, err)
	}
	return o, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter OrderFilter) ([]Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		WHERE 1 = 1
	`
	var args []any
	if !filter.IncludeInactive {
		query += " AND o.is_active = true"
	}
	if filter.CustomerID > 0 {
		args = append(args, filter.CustomerID)
		query += fmt.Sprintf(" AND o.customer_id = $%d", len(args))
	}
	if filter.Status != "" {
		if !filter.Status.Valid() {
			return nil, NewValidationError("status", fmt.Sprintf("unknown status %q", filter.Status))
		}
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND o.status = $%d", len(args))
	}
	query += " ORDER BY o.id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, classifyPgError(s.log, "list orders", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, classifyPgError(s.log, "scan order", err)
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}
