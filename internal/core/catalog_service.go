package core

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CustomerInput is the submission for a new customer.
type CustomerInput struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	TaxNumber string `json:"tax_number"`
	IsCompany bool   `json:"is_company"`
}

// ProductInput is the submission for a new product. An empty Unit means piece.
type ProductInput struct {
	Name         string          `json:"name"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	Stock        int64           `json:"stock"`
	Unit         ProductUnit     `json:"unit"`
}

// CatalogService manages customer and product master data.
type CatalogService interface {
	CreateCustomer(ctx context.Context, in CustomerInput) (*Customer, error)
	GetCustomer(ctx context.Context, id int) (*Customer, error)
	ListCustomers(ctx context.Context, includeInactive bool) ([]Customer, error)
	DeactivateCustomer(ctx context.Context, id int) error

	CreateProduct(ctx context.Context, in ProductInput) (*Product, error)
	GetProduct(ctx context.Context, id int) (*Product, error)
	ListProducts(ctx context.Context, includeInactive bool) ([]Product, error)
	UpdateProductPrice(ctx context.Context, id int, price decimal.Decimal) (*Product, error)
	DeactivateProduct(ctx context.Context, id int) error
}

type catalogService struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func NewCatalogService(pool *pgxpool.Pool, log *zap.Logger) CatalogService {
	if log == nil {
		log = zap.NewNop()
	}
	return &catalogService{pool: pool, log: log}
}

const customerColumns = `id, name, COALESCE(email, ''), phone, address, tax_number, is_company, is_active, created_at`

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.TaxNumber,
		&c.IsCompany, &c.IsActive, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

const productColumns = `id, name, current_price, stock, unit, is_active, created_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	if err := row.Scan(&p.ID, &p.Name, &p.CurrentPrice, &p.Stock, &p.Unit, &p.IsActive, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// ── Customers ────────────────────────────────────────────────────────────────

func (s *catalogService) CreateCustomer(ctx context.Context, in CustomerInput) (*Customer, error) {
	if err := ValidateCustomerInput(in).Err(); err != nil {
		return nil, err
	}

	c, err := scanCustomer(s.pool.QueryRow(ctx, `
		INSERT INTO customers (name, email, phone, address, tax_number, is_company)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6)
		RETURNING `+customerColumns,
		strings.TrimSpace(in.Name), strings.ToLower(strings.TrimSpace(in.Email)),
		strings.TrimSpace(in.Phone), strings.TrimSpace(in.Address), strings.TrimSpace(in.TaxNumber), in.IsCompany,
	))
	if err != nil {
		return nil, classifyPgError(s.log, "create customer", err)
	}
	return c, nil
}

func (s *catalogService) GetCustomer(ctx context.Context, id int) (*Customer, error) {
	c, err := scanCustomer(s.pool.QueryRow(ctx,
		"SELECT "+customerColumns+" FROM customers WHERE id = $1", id))
	if err != nil {
		if isNoRows(err) {
			return nil, &NotFoundError{Entity: "customer", ID: id}
		}
		return nil, classifyPgError(s.log, "get customer", err)
	}
	return c, nil
}

func (s *catalogService) ListCustomers(ctx context.Context, includeInactive bool) ([]Customer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE is_active = true OR $1
		ORDER BY name, id
	`, includeInactive)
	if err != nil {
		return nil, classifyPgError(s.log, "list customers", err)
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, classifyPgError(s.log, "scan customer", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *catalogService) DeactivateCustomer(ctx context.Context, id int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return classifyPgError(s.log, "deactivate customer", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, "UPDATE customers SET is_active = false WHERE id = $1 AND is_active = true", id)
	if err != nil {
		return classifyPgError(s.log, "deactivate customer", err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Entity: "customer", ID: id}
	}
	if err := writeAuditTx(ctx, tx, "customer", id, AuditDeactivate, nil); err != nil {
		return classifyPgError(s.log, "deactivate customer", err)
	}
	return classifyPgError(s.log, "deactivate customer", tx.Commit(ctx))
}

// ── Products ─────────────────────────────────────────────────────────────────

func (s *catalogService) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	if err := ValidateProductInput(in).Err(); err != nil {
		return nil, err
	}
	if in.Unit == "" {
		in.Unit = UnitPiece
	}

	p, err := scanProduct(s.pool.QueryRow(ctx, `
		INSERT INTO products (name, current_price, stock, unit)
		VALUES ($1, $2, $3, $4)
		RETURNING `+productColumns,
		strings.TrimSpace(in.Name), in.CurrentPrice, in.Stock, in.Unit,
	))
	if err != nil {
		return nil, classifyPgError(s.log, "create product", err)
	}
	return p, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id int) (*Product, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = $1", id))
	if err != nil {
		if isNoRows(err) {
			return nil, &NotFoundError{Entity: "product", ID: id}
		}
		return nil, classifyPgError(s.log, "get product", err)
	}
	return p, nil
}

func (s *catalogService) ListProducts(ctx context.Context, includeInactive bool) ([]Product, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE is_active = true OR $1
		ORDER BY name, id
	`, includeInactive)
	if err != nil {
		return nil, classifyPgError(s.log, "list products", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, classifyPgError(s.log, "scan product", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *catalogService) UpdateProductPrice(ctx context.Context, id int, price decimal.Decimal) (*Product, error) {
	if err := ValidateProductPrice(price).Err(); err != nil {
		return nil, err
	}
	p, err := scanProduct(s.pool.QueryRow(ctx, `
		UPDATE products SET current_price = $2, updated_at = NOW()
		WHERE id = $1 AND is_active = true
		RETURNING `+productColumns,
		id, price,
	))
	if err != nil {
		if isNoRows(err) {
			return nil, &NotFoundError{Entity: "product", ID: id}
		}
		return nil, classifyPgError(s.log, "update product price", err)
	}
	return p, nil
}

func (s *catalogService) DeactivateProduct(ctx context.Context, id int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return classifyPgError(s.log, "deactivate product", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, "UPDATE products SET is_active = false, updated_at = NOW() WHERE id = $1 AND is_active = true", id)
	if err != nil {
		return classifyPgError(s.log, "deactivate product", err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Entity: "product", ID: id}
	}
	if err := writeAuditTx(ctx, tx, "product", id, AuditDeactivate, nil); err != nil {
		return classifyPgError(s.log, "deactivate product", err)
	}
	return classifyPgError(s.log, "deactivate product", tx.Commit(ctx))
}
