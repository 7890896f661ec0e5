package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// StockPolicy decides what happens when an order asks for more than is in stock.
type StockPolicy string

const (
	// StockReject refuses the order with a ConflictError.
	StockReject StockPolicy = "reject"
	// StockClamp takes whatever is available and records only that.
	StockClamp StockPolicy = "clamp"
	// StockAllow lets stock go negative.
	StockAllow StockPolicy = "allow"
)

// ParseStockPolicy accepts reject, clamp or allow (case-insensitive). Empty means reject.
func ParseStockPolicy(s string) (StockPolicy, error) {
	switch p := StockPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return StockReject, nil
	case StockReject, StockClamp, StockAllow:
		return p, nil
	default:
		return "", fmt.Errorf("unknown stock policy %q", s)
	}
}

// StockLedger keeps Product.stock consistent with the order lifecycle. Every
// applied change is recorded in stock_movements; reversing an order replays
// its movements backwards, so a create followed by a cancel is net zero.
type StockLedger interface {
	// TX-scoped operations: the caller owns the transaction.

	// ApplyOrderTx decrements stock for the catalog items of an order.
	// Manual items are skipped.
	ApplyOrderTx(ctx context.Context, tx pgx.Tx, orderID int, items []OrderItemDraft) error
	// ReverseOrderTx undoes every net movement recorded for the order.
	ReverseOrderTx(ctx context.Context, tx pgx.Tx, orderID int, reason string) error

	// Standalone operations.

	// AdjustStock changes stock by delta outside any order. Stock never goes below zero.
	AdjustStock(ctx context.Context, productID int, delta int64, note string) (*Product, error)
	GetMovements(ctx context.Context, productID int) ([]StockMovement, error)
	Policy() StockPolicy
}

type stockLedger struct {
	pool   *pgxpool.Pool
	policy StockPolicy
	log    *zap.Logger
}

func NewStockLedger(pool *pgxpool.Pool, policy StockPolicy, log *zap.Logger) StockLedger {
	if policy == "" {
		policy = StockReject
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &stockLedger{pool: pool, policy: policy, log: log}
}

func (s *stockLedger) Policy() StockPolicy { return s.policy }

// PlanStockDecrements merges the catalog items of an order into one quantity
// per product. Manual items have no stock effect.
func PlanStockDecrements(items []OrderItemDraft) map[int]int64 {
	plan := make(map[int]int64)
	for _, it := range items {
		if it.IsManual || it.ProductID == nil {
			continue
		}
		plan[*it.ProductID] += it.Quantity
	}
	return plan
}

// sortedProductIDs returns the keys of plan in ascending order. Rows are always
// locked in this order so that concurrent orders cannot deadlock.
func sortedProductIDs(plan map[int]int64) []int {
	ids := make([]int, 0, len(plan))
	for id := range plan {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// ── TX-scoped operations ─────────────────────────────────────────────────────

func (s *stockLedger) ApplyOrderTx(ctx context.Context, tx pgx.Tx, orderID int, items []OrderItemDraft) error {
	plan := PlanStockDecrements(items)
	for _, productID := range sortedProductIDs(plan) {
		qty := plan[productID]

		applied, err := s.decrementTx(ctx, tx, productID, qty)
		if err != nil {
			return err
		}
		if applied == 0 {
			continue
		}
		if err := insertMovementTx(ctx, tx, productID, &orderID, -applied, MovementOrderCreated, ""); err != nil {
			return err
		}
		if applied < qty {
			s.log.Warn("stock clamped",
				zap.Int("order_id", orderID),
				zap.Int("product_id", productID),
				zap.Int64("requested", qty),
				zap.Int64("applied", applied),
			)
		}
	}
	return nil
}

// decrementTx removes up to qty units from one product according to the policy
// and returns the amount actually removed. Each branch is one atomic UPDATE.
func (s *stockLedger) decrementTx(ctx context.Context, tx pgx.Tx, productID int, qty int64) (int64, error) {
	switch s.policy {
	case StockClamp:
		var applied int64
		err := tx.QueryRow(ctx, `
			WITH cur AS (
				SELECT id, stock FROM products WHERE id = $1 AND is_active = true FOR UPDATE
			)
			UPDATE products p
			SET stock = p.stock - LEAST(GREATEST(cur.stock, 0), $2), updated_at = NOW()
			FROM cur
			WHERE p.id = cur.id
			RETURNING cur.stock - p.stock
		`, productID, qty).Scan(&applied)
		if err != nil {
			if isNoRows(err) {
				return 0, &NotFoundError{Entity: "product", ID: productID}
			}
			return 0, fmt.Errorf("failed to decrement stock for product %d: %w", productID, err)
		}
		return applied, nil

	case StockAllow:
		tag, err := tx.Exec(ctx,
			"UPDATE products SET stock = stock - $2, updated_at = NOW() WHERE id = $1 AND is_active = true",
			productID, qty,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to decrement stock for product %d: %w", productID, err)
		}
		if tag.RowsAffected() == 0 {
			return 0, &NotFoundError{Entity: "product", ID: productID}
		}
		return qty, nil

	default:
		tag, err := tx.Exec(ctx,
			"UPDATE products SET stock = stock - $2, updated_at = NOW() WHERE id = $1 AND is_active = true AND stock >= $2",
			productID, qty,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to decrement stock for product %d: %w", productID, err)
		}
		if tag.RowsAffected() == 1 {
			return qty, nil
		}

		var name string
		var stock int64
		err = tx.QueryRow(ctx,
			"SELECT name, stock FROM products WHERE id = $1 AND is_active = true",
			productID,
		).Scan(&name, &stock)
		if err != nil {
			if isNoRows(err) {
				return 0, &NotFoundError{Entity: "product", ID: productID}
			}
			return 0, fmt.Errorf("failed to read stock for product %d: %w", productID, err)
		}
		return 0, &ConflictError{Reason: fmt.Sprintf(
			"insufficient stock for product %s (id %d): available %d, requested %d", name, productID, stock, qty)}
	}
}

func (s *stockLedger) ReverseOrderTx(ctx context.Context, tx pgx.Tx, orderID int, reason string) error {
	rows, err := tx.Query(ctx, `
		SELECT product_id, SUM(delta)::bigint
		FROM stock_movements
		WHERE order_id = $1
		GROUP BY product_id
		HAVING SUM(delta) <> 0
		ORDER BY product_id
	`, orderID)
	if err != nil {
		return fmt.Errorf("failed to query stock movements for order %d: %w", orderID, err)
	}

	type net struct {
		productID int
		delta     int64
	}
	var nets []net
	for rows.Next() {
		var n net
		if err := rows.Scan(&n.productID, &n.delta); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan stock movement: %w", err)
		}
		nets = append(nets, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read stock movements for order %d: %w", orderID, err)
	}

	// Products deactivated since the order was placed are still restored.
	for _, n := range nets {
		_, err := tx.Exec(ctx,
			"UPDATE products SET stock = stock - $2, updated_at = NOW() WHERE id = $1",
			n.productID, n.delta,
		)
		if err != nil {
			return fmt.Errorf("failed to restore stock for product %d: %w", n.productID, err)
		}
		if err := insertMovementTx(ctx, tx, n.productID, &orderID, -n.delta, reason, ""); err != nil {
			return err
		}
	}
	return nil
}

func insertMovementTx(ctx context.Context, tx pgx.Tx, productID int, orderID *int, delta int64, reason, note string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO stock_movements (product_id, order_id, delta, reason, note)
		VALUES ($1, $2, $3, $4, $5)
	`, productID, orderID, delta, reason, note)
	if err != nil {
		return fmt.Errorf("failed to record stock movement for product %d: %w", productID, err)
	}
	return nil
}

// ── Standalone operations ────────────────────────────────────────────────────

func (s *stockLedger) AdjustStock(ctx context.Context, productID int, delta int64, note string) (*Product, error) {
	const op = "adjust stock"
	if delta == 0 {
		return nil, NewValidationError("delta", "must not be zero")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, classifyPgError(s.log, op, err)
	}
	defer tx.Rollback(ctx)

	p, err := scanProduct(tx.QueryRow(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1 AND is_active = true AND stock + $2 >= 0
		RETURNING `+productColumns,
		productID, delta,
	))
	if err != nil {
		if !isNoRows(err) {
			return nil, classifyPgError(s.log, op, err)
		}
		var stock int64
		err = tx.QueryRow(ctx, "SELECT stock FROM products WHERE id = $1 AND is_active = true", productID).Scan(&stock)
		if err != nil {
			if isNoRows(err) {
				return nil, &NotFoundError{Entity: "product", ID: productID}
			}
			return nil, classifyPgError(s.log, op, err)
		}
		return nil, &ConflictError{Reason: fmt.Sprintf(
			"adjustment of %d would take product %d below zero (stock %d)", delta, productID, stock)}
	}

	if err := insertMovementTx(ctx, tx, productID, nil, delta, MovementAdjustment, note); err != nil {
		return nil, classifyPgError(s.log, op, err)
	}
	if err := writeAuditTx(ctx, tx, "product", productID, AuditAdjust, map[string]any{
		"delta": delta, "stock": p.Stock, "note": note,
	}); err != nil {
		return nil, classifyPgError(s.log, op, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, classifyPgError(s.log, op, err)
	}
	return p, nil
}

func (s *stockLedger) GetMovements(ctx context.Context, productID int) ([]StockMovement, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, product_id, order_id, delta, reason, note, created_at
		FROM stock_movements
		WHERE product_id = $1
		ORDER BY id
	`, productID)
	if err != nil {
		return nil, classifyPgError(s.log, "list stock movements", err)
	}
	defer rows.Close()

	var out []StockMovement
	for rows.Next() {
		var m StockMovement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.OrderID, &m.Delta, &m.Reason, &m.Note, &m.CreatedAt); err != nil {
			return nil, classifyPgError(s.log, "scan stock movement", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
