package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LookupDataType is the declared type of a lookup value.
type LookupDataType string

const (
	LookupString  LookupDataType = "STRING"
	LookupNumber  LookupDataType = "NUMBER"
	LookupBoolean LookupDataType = "BOOLEAN"
	LookupJSON    LookupDataType = "JSON"
)

// Well-known lookup entries.
const (
	CategoryTax      = "tax"
	CategoryCurrency = "currency"
	CategoryCompany  = "company"
	CategoryDelivery = "delivery"
	CategoryProfit   = "profit"

	KeyDefaultRate = "default_rate"
	KeySymbol      = "symbol"
	KeyLocale      = "locale"
	KeyInfo        = "info"
	KeyZones       = "zones"
	KeyMargins     = "margins"
)

// LookupEntry is one typed key/value pair. (Category, Key) is unique.
type LookupEntry struct {
	ID          int            `json:"id"`
	Category    string         `json:"category"`
	Key         string         `json:"key"`
	Value       string         `json:"value"`
	DataType    LookupDataType `json:"data_type"`
	Description string         `json:"description,omitempty"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (e LookupEntry) typeError(want LookupDataType) error {
	return NewValidationError(e.Category+"."+e.Key,
		fmt.Sprintf("value %q is not a valid %s", e.Value, want))
}

// Decimal parses a NUMBER entry.
func (e LookupEntry) Decimal() (decimal.Decimal, error) {
	if e.DataType != LookupNumber {
		return decimal.Zero, e.typeError(LookupNumber)
	}
	v, err := decimal.NewFromString(strings.TrimSpace(e.Value))
	if err != nil {
		return decimal.Zero, e.typeError(LookupNumber)
	}
	return v, nil
}

// Int parses a NUMBER entry that holds an integer.
func (e LookupEntry) Int() (int64, error) {
	if e.DataType != LookupNumber {
		return 0, e.typeError(LookupNumber)
	}
	v, err := strconv.ParseInt(strings.TrimSpace(e.Value), 10, 64)
	if err != nil {
		return 0, e.typeError(LookupNumber)
	}
	return v, nil
}

// Bool parses a BOOLEAN entry.
func (e LookupEntry) Bool() (bool, error) {
	if e.DataType != LookupBoolean {
		return false, e.typeError(LookupBoolean)
	}
	v, err := strconv.ParseBool(strings.TrimSpace(e.Value))
	if err != nil {
		return false, e.typeError(LookupBoolean)
	}
	return v, nil
}

// JSON decodes a JSON entry into v.
func (e LookupEntry) JSON(v any) error {
	if e.DataType != LookupJSON {
		return e.typeError(LookupJSON)
	}
	if err := json.Unmarshal([]byte(e.Value), v); err != nil {
		return e.typeError(LookupJSON)
	}
	return nil
}

// Check verifies that Value parses as DataType.
func (e LookupEntry) Check() error {
	var r ValidationResult
	if strings.TrimSpace(e.Category) == "" {
		r.add("category", "is required")
	}
	if strings.TrimSpace(e.Key) == "" {
		r.add("key", "is required")
	}
	if !r.OK() {
		return r.Err()
	}

	switch e.DataType {
	case LookupString:
		return nil
	case LookupNumber:
		_, err := e.Decimal()
		return err
	case LookupBoolean:
		_, err := e.Bool()
		return err
	case LookupJSON:
		if !json.Valid([]byte(e.Value)) {
			return e.typeError(LookupJSON)
		}
		return nil
	default:
		return NewValidationError("dataType", fmt.Sprintf("unknown data type %q", e.DataType))
	}
}

// CompanyInfo is the company.info entry printed on order documents.
type CompanyInfo struct {
	Name      string `json:"name"`
	Address   string `json:"address"`
	Phone     string `json:"phone"`
	TaxNumber string `json:"taxNumber"`
}

// DefaultLookupEntries is the seed set installed by migrations and cmd/restore-seed.
func DefaultLookupEntries() []LookupEntry {
	return []LookupEntry{
		{Category: CategoryTax, Key: KeyDefaultRate, Value: "18", DataType: LookupNumber, Description: "Default tax rate (%)"},
		{Category: CategoryCurrency, Key: KeySymbol, Value: "₺", DataType: LookupString, Description: "Currency symbol"},
		{Category: CategoryCurrency, Key: KeyLocale, Value: "tr", DataType: LookupString, Description: "Locale used for amount grouping"},
		{Category: CategoryCompany, Key: KeyInfo, DataType: LookupJSON, Description: "Company details printed on documents",
			Value: `{"name":"","address":"","phone":"","taxNumber":""}`},
		{Category: CategoryDelivery, Key: KeyZones, DataType: LookupJSON, Description: "Delivery zones and fees",
			Value: `[{"name":"local","fee":"0"},{"name":"city","fee":"50"},{"name":"regional","fee":"150"}]`},
		{Category: CategoryProfit, Key: KeyMargins, DataType: LookupJSON, Description: "Target profit margins (%)",
			Value: `{"default":"20","manual":"30"}`},
	}
}

// LookupService is the typed key/value configuration store.
type LookupService interface {
	Get(ctx context.Context, category, key string) (*LookupEntry, error)
	List(ctx context.Context, category string) ([]LookupEntry, error)
	// Set inserts or replaces an entry.
	Set(ctx context.Context, e LookupEntry) (*LookupEntry, error)
	// Create inserts an entry; a duplicate (category, key) is a ConflictError.
	Create(ctx context.Context, e LookupEntry) (*LookupEntry, error)
	// SeedDefaults inserts the missing default entries and returns how many were
	// added. tax.default_rate is seeded with the fallback rate.
	SeedDefaults(ctx context.Context) (int, error)

	// ResolveTaxRate returns tax.default_rate, or the configured fallback when
	// the entry is missing or malformed.
	ResolveTaxRate(ctx context.Context) (decimal.Decimal, error)
	Company(ctx context.Context) (CompanyInfo, error)
	Money(ctx context.Context) MoneyFormatter
}

type lookupService struct {
	pool            *pgxpool.Pool
	fallbackTaxRate decimal.Decimal
	log             *zap.Logger
}

// NewLookupService builds a LookupService. fallbackTaxRate is used when the
// table has no usable tax.default_rate entry.
func NewLookupService(pool *pgxpool.Pool, fallbackTaxRate decimal.Decimal, log *zap.Logger) LookupService {
	if log == nil {
		log = zap.NewNop()
	}
	return &lookupService{pool: pool, fallbackTaxRate: fallbackTaxRate, log: log}
}

const lookupColumns = `id, category, key, value, data_type, description, updated_at`

func (s *lookupService) Get(ctx context.Context, category, key string) (*LookupEntry, error) {
	var e LookupEntry
	err := s.pool.QueryRow(ctx,
		"SELECT "+lookupColumns+" FROM lookup_entries WHERE category = $1 AND key = $2",
		category, key,
	).Scan(&e.ID, &e.Category, &e.Key, &e.Value, &e.DataType, &e.Description, &e.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, &NotFoundError{Entity: "lookup entry", ID: category + "." + key}
		}
		return nil, classifyPgError(s.log, "get lookup entry", err)
	}
	return &e, nil
}

func (s *lookupService) List(ctx context.Context, category string) ([]LookupEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+lookupColumns+`
		FROM lookup_entries
		WHERE category = $1 OR $1 = ''
		ORDER BY category, key
	`, category)
	if err != nil {
		return nil, classifyPgError(s.log, "list lookup entries", err)
	}
	defer rows.Close()

	var out []LookupEntry
	for rows.Next() {
		var e LookupEntry
		if err := rows.Scan(&e.ID, &e.Category, &e.Key, &e.Value, &e.DataType, &e.Description, &e.UpdatedAt); err != nil {
			return nil, classifyPgError(s.log, "scan lookup entry", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *lookupService) Set(ctx context.Context, e LookupEntry) (*LookupEntry, error) {
	if err := e.Check(); err != nil {
		return nil, err
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO lookup_entries (category, key, value, data_type, description)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (category, key) DO UPDATE
		SET value = EXCLUDED.value, data_type = EXCLUDED.data_type,
		    description = EXCLUDED.description, updated_at = NOW()
		RETURNING `+lookupColumns,
		e.Category, e.Key, e.Value, e.DataType, e.Description,
	).Scan(&e.ID, &e.Category, &e.Key, &e.Value, &e.DataType, &e.Description, &e.UpdatedAt)
	if err != nil {
		return nil, classifyPgError(s.log, "set lookup entry", err)
	}
	return &e, nil
}

func (s *lookupService) Create(ctx context.Context, e LookupEntry) (*LookupEntry, error) {
	if err := e.Check(); err != nil {
		return nil, err
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO lookup_entries (category, key, value, data_type, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+lookupColumns,
		e.Category, e.Key, e.Value, e.DataType, e.Description,
	).Scan(&e.ID, &e.Category, &e.Key, &e.Value, &e.DataType, &e.Description, &e.UpdatedAt)
	if err != nil {
		return nil, classifyPgError(s.log, "create lookup entry", err)
	}
	return &e, nil
}

func (s *lookupService) SeedDefaults(ctx context.Context) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, classifyPgError(s.log, "seed lookup entries", err)
	}
	defer tx.Rollback(ctx)

	added := 0
	for _, e := range DefaultLookupEntries() {
		if e.Category == CategoryTax && e.Key == KeyDefaultRate {
			e.Value = s.fallbackTaxRate.String()
		}
		tag, err := tx.Exec(ctx, `
			INSERT INTO lookup_entries (category, key, value, data_type, description)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (category, key) DO NOTHING
		`, e.Category, e.Key, e.Value, e.DataType, e.Description)
		if err != nil {
			return 0, classifyPgError(s.log, "seed lookup entries", err)
		}
		added += int(tag.RowsAffected())
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, classifyPgError(s.log, "seed lookup entries", err)
	}
	return added, nil
}

func (s *lookupService) ResolveTaxRate(ctx context.Context) (decimal.Decimal, error) {
	e, err := s.Get(ctx, CategoryTax, KeyDefaultRate)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return s.fallbackTaxRate, nil
		}
		return decimal.Zero, err
	}
	rate, err := e.Decimal()
	if err != nil || rate.IsNegative() || rate.GreaterThan(hundred) {
		s.log.Warn("ignoring malformed tax.default_rate", zap.String("value", e.Value))
		return s.fallbackTaxRate, nil
	}
	return rate, nil
}

func (s *lookupService) Company(ctx context.Context) (CompanyInfo, error) {
	var info CompanyInfo
	e, err := s.Get(ctx, CategoryCompany, KeyInfo)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return info, nil
		}
		return info, err
	}
	if err := e.JSON(&info); err != nil {
		return info, err
	}
	return info, nil
}

// Money builds a formatter from currency.symbol and currency.locale. Missing
// or unreadable entries fall back to the seed values.
func (s *lookupService) Money(ctx context.Context) MoneyFormatter {
	symbol, locale := "₺", "tr"
	if e, err := s.Get(ctx, CategoryCurrency, KeySymbol); err == nil {
		symbol = e.Value
	}
	if e, err := s.Get(ctx, CategoryCurrency, KeyLocale); err == nil {
		locale = e.Value
	}
	return NewMoneyFormatter(symbol, locale)
}
