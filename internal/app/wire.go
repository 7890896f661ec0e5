package app

import (
	"order-desk/internal/config"
	"order-desk/internal/core"
	"order-desk/internal/events"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Wire builds every core service from cfg and returns the application facade.
// publisher may be nil, in which case events are discarded.
func Wire(pool *pgxpool.Pool, cfg *config.Config, publisher events.Publisher, log *zap.Logger) (ApplicationService, error) {
	policy, err := core.ParseStockPolicy(cfg.Orders.StockPolicy)
	if err != nil {
		return nil, err
	}
	taxRate, err := cfg.TaxRate()
	if err != nil {
		return nil, err
	}
	if publisher == nil {
		publisher = events.Nop{}
	}

	stock := core.NewStockLedger(pool, policy, log.Named("stock"))
	lookup := core.NewLookupService(pool, taxRate, log.Named("lookup"))
	svc := Services{
		Catalog:  core.NewCatalogService(pool, log.Named("catalog")),
		Orders:   core.NewOrderService(pool, stock, lookup, publisher, log.Named("orders")),
		Payments: core.NewPaymentService(pool, publisher, log.Named("payments"), cfg.Orders.ReconcileConcurrency),
		Stock:    stock,
		Expenses: core.NewExpenseService(pool, log.Named("expenses")),
		Lookup:   lookup,
		Reports:  core.NewReportingService(pool, log.Named("reports")),
	}
	log.Info("services wired",
		zap.String("stock_policy", string(policy)),
		zap.String("default_tax_rate", taxRate.String()),
		zap.Int("reconcile_concurrency", cfg.Orders.ReconcileConcurrency),
	)
	return NewAppService(pool, svc), nil
}
