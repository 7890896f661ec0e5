package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config is the process configuration shared by every binary.
// Precedence: defaults < YAML file (CONFIG_FILE) < environment.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Orders   OrdersConfig   `yaml:"orders"`
	Events   EventsConfig   `yaml:"events"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type ServerConfig struct {
	Port           string `yaml:"port"`
	AllowedOrigins string `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | console
}

// OrdersConfig tunes order creation.
//
// DefaultTaxRate is a fallback. Once the lookup table holds tax.default_rate
// that row wins: the migration seeds it with 18, and seed-lookup or
// cmd/restore-seed insert it with this value only when the row is missing.
// To change the rate of an existing database, PUT /api/lookup/tax/default_rate.
type OrdersConfig struct {
	StockPolicy          string `yaml:"stock_policy"` // reject | clamp | allow
	DefaultTaxRate       string `yaml:"default_tax_rate"`
	ReconcileConcurrency int    `yaml:"reconcile_concurrency"`
}

type EventsConfig struct {
	RabbitMQURL string `yaml:"rabbitmq_url"` // empty disables publishing
	Exchange    string `yaml:"exchange"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080"},
		Log:    LogConfig{Level: "info", Format: "json"},
		Orders: OrdersConfig{
			StockPolicy:          "reject",
			DefaultTaxRate:       "18",
			ReconcileConcurrency: 4,
		},
		Events: EventsConfig{Exchange: "order_events"},
	}
}

// Load reads .env (if present), then the optional YAML file named by CONFIG_FILE,
// then environment overrides, and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)
	c.Server.Port = getEnv("SERVER_PORT", c.Server.Port)
	c.Server.AllowedOrigins = getEnv("ALLOWED_ORIGINS", c.Server.AllowedOrigins)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
	c.Orders.StockPolicy = getEnv("STOCK_POLICY", c.Orders.StockPolicy)
	c.Orders.DefaultTaxRate = getEnv("DEFAULT_TAX_RATE", c.Orders.DefaultTaxRate)
	c.Events.RabbitMQURL = getEnv("RABBITMQ_URL", c.Events.RabbitMQURL)
	c.Events.Exchange = getEnv("EVENTS_EXCHANGE", c.Events.Exchange)

	if v := os.Getenv("DB_MAX_CONNS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid DB_MAX_CONNS %q: %w", v, err)
		}
		c.Database.MaxConns = int32(n)
	}
	if v := os.Getenv("RECONCILE_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RECONCILE_CONCURRENCY %q: %w", v, err)
		}
		c.Orders.ReconcileConcurrency = n
	}
	return nil
}

// Validate checks values that would otherwise fail deep inside a request.
// DATABASE_URL is checked by db.NewPool so that tooling without a database can load config.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Orders.StockPolicy) {
	case "reject", "clamp", "allow":
	default:
		return fmt.Errorf("invalid stock policy %q (want reject, clamp or allow)", c.Orders.StockPolicy)
	}
	rate, err := c.TaxRate()
	if err != nil {
		return err
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("default tax rate must be between 0 and 100, got %s", rate)
	}
	if c.Orders.ReconcileConcurrency < 1 {
		return fmt.Errorf("reconcile concurrency must be >= 1, got %d", c.Orders.ReconcileConcurrency)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format %q (want json or console)", c.Log.Format)
	}
	return nil
}

// TaxRate parses the configured default tax rate.
func (c *Config) TaxRate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.Orders.DefaultTaxRate))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid default tax rate %q: %w", c.Orders.DefaultTaxRate, err)
	}
	return rate, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
