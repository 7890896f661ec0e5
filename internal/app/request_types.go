package app

import (
	"order-desk/internal/core"

	"github.com/shopspring/decimal"
)

// AdjustStockRequest is a manual stock change. Delta is positive for a restock.
type AdjustStockRequest struct {
	ProductID int    `json:"-"`
	Delta     int64  `json:"delta"`
	Note      string `json:"note"`
}

// SetLookupRequest inserts or replaces one lookup entry.
type SetLookupRequest struct {
	Category    string              `json:"-"`
	Key         string              `json:"-"`
	Value       string              `json:"value"`
	DataType    core.LookupDataType `json:"data_type"`
	Description string              `json:"description"`
}

// UpdatePriceRequest changes the current price of a product. Existing order
// lines keep the price they were sold at.
type UpdatePriceRequest struct {
	ProductID int             `json:"-"`
	Price     decimal.Decimal `json:"price"`
}
