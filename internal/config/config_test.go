package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CONFIG_FILE", "DATABASE_URL", "SERVER_PORT", "ALLOWED_ORIGINS", "LOG_LEVEL", "LOG_FORMAT",
		"STOCK_POLICY", "DEFAULT_TAX_RATE", "RABBITMQ_URL", "EVENTS_EXCHANGE", "DB_MAX_CONNS",
		"RECONCILE_CONCURRENCY",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "reject", cfg.Orders.StockPolicy)
	assert.Equal(t, 4, cfg.Orders.ReconcileConcurrency)

	rate, err := cfg.TaxRate()
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(18)))
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	err := os.WriteFile(path, []byte(`
database:
  url: postgres://file/db
  max_conns: 7
server:
  port: "9000"
orders:
  stock_policy: clamp
  default_tax_rate: "8"
`), 0o600)
	require.NoError(t, err)

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SERVER_PORT", "9100")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://file/db", cfg.Database.URL)
	assert.Equal(t, int32(7), cfg.Database.MaxConns)
	assert.Equal(t, "9100", cfg.Server.Port, "env must override file")
	assert.Equal(t, "clamp", cfg.Orders.StockPolicy)
	assert.Equal(t, "8", cfg.Orders.DefaultTaxRate)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "unknown policy", mutate: func(c *Config) { c.Orders.StockPolicy = "maybe" }, wantErr: true},
		{name: "tax not a number", mutate: func(c *Config) { c.Orders.DefaultTaxRate = "x" }, wantErr: true},
		{name: "tax over 100", mutate: func(c *Config) { c.Orders.DefaultTaxRate = "101" }, wantErr: true},
		{name: "negative tax", mutate: func(c *Config) { c.Orders.DefaultTaxRate = "-1" }, wantErr: true},
		{name: "zero concurrency", mutate: func(c *Config) { c.Orders.ReconcileConcurrency = 0 }, wantErr: true},
		{name: "bad log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Defaults()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_BadNumericEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_MAX_CONNS", "lots")

	_, err := Load()
	assert.Error(t, err)
}
