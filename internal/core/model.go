package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer is a buyer. Email is unique among customers when present.
type Customer struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	TaxNumber string    `json:"tax_number,omitempty"`
	IsCompany bool      `json:"is_company"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// ProductUnit is the unit of sale of a product.
type ProductUnit string

const (
	UnitPiece  ProductUnit = "piece"
	UnitWeight ProductUnit = "weight"
)

// Product is a catalog entry. Name is unique among active products.
type Product struct {
	ID           int             `json:"id"`
	Name         string          `json:"name"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	Stock        int64           `json:"stock"`
	Unit         ProductUnit     `json:"unit"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Payment is money received against an order.
type Payment struct {
	ID           int             `json:"id"`
	OrderID      int             `json:"order_id"`
	CustomerID   int             `json:"customer_id"`
	CustomerName string          `json:"customer_name,omitempty"` // joined from customers
	Amount       decimal.Decimal `json:"amount"`
	PaymentDate  string          `json:"payment_date"` // YYYY-MM-DD
	Description  string          `json:"description,omitempty"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ExpenseType groups expenses in the financial report.
type ExpenseType struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// Expense is money spent by the business.
type Expense struct {
	ID            int             `json:"id"`
	ExpenseTypeID int             `json:"expense_type_id"`
	TypeName      string          `json:"type_name,omitempty"` // joined from expense_types
	Amount        decimal.Decimal `json:"amount"`
	ExpenseDate   string          `json:"expense_date"` // YYYY-MM-DD
	Description   string          `json:"description,omitempty"`
	ReceiptNumber string          `json:"receipt_number,omitempty"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
}

// StockMovement is one applied change to a product's stock.
// Delta is negative for a decrement.
type StockMovement struct {
	ID        int       `json:"id"`
	ProductID int       `json:"product_id"`
	OrderID   *int      `json:"order_id,omitempty"`
	Delta     int64     `json:"delta"`
	Reason    string    `json:"reason"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Stock movement reasons.
const (
	MovementOrderCreated   = "ORDER_CREATED"
	MovementOrderCancelled = "ORDER_CANCELLED"
	MovementOrderEdited    = "ORDER_EDITED"
	MovementAdjustment     = "ADJUSTMENT"
)

const dateLayout = "2006-01-02"
