package commands

import (
	"fmt"

	"github.com/wonny/stockscope/internal/aggregate"
	"github.com/wonny/stockscope/internal/marketdata"
	"github.com/wonny/stockscope/internal/metric"
	"github.com/wonny/stockscope/internal/metrics"
	"github.com/wonny/stockscope/internal/ranking"
	"github.com/wonny/stockscope/internal/screener"
	"github.com/wonny/stockscope/pkg/config"
	"github.com/wonny/stockscope/pkg/database"
	"github.com/wonny/stockscope/pkg/logger"
	"github.com/wonny/stockscope/pkg/redis"
)

// app holds every wired component shared by the commands
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	db      *database.DB
	redis   *redis.Client
	metrics *metrics.Registry

	stocks       *marketdata.StockRepository
	prices       *marketdata.PriceRepository
	fundamentals *marketdata.FundamentalRepository
	financials   *marketdata.FinancialRepository

	screener *screener.Service
	ranking  *ranking.Service
	summary  *aggregate.Service
}

// newApp connects to Postgres and Redis and wires the engines
func newApp(cfg *config.Config, log *logger.Logger) (*app, error) {
	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	rdb, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	catalog := metric.DefaultCatalog()
	if cfg.MetricCatalogPath != "" {
		n, err := catalog.LoadFile(cfg.MetricCatalogPath)
		if err != nil {
			rdb.Close()
			db.Close()
			return nil, fmt.Errorf("load metric catalog: %w", err)
		}
		log.WithFields(map[string]interface{}{
			"path":    cfg.MetricCatalogPath,
			"metrics": n,
		}).Info("Metric catalog extended")
	}

	var reg *metrics.Registry
	if cfg.MetricsEnabled {
		reg = metrics.NewRegistry()
	}

	a := &app{
		cfg:          cfg,
		log:          log,
		db:           db,
		redis:        rdb,
		metrics:      reg,
		stocks:       marketdata.NewStockRepository(db.Pool),
		prices:       marketdata.NewPriceRepository(db.Pool),
		fundamentals: marketdata.NewFundamentalRepository(db.Pool),
		financials:   marketdata.NewFinancialRepository(db.Pool),
	}

	a.screener = screener.NewService(a.stocks, a.prices, a.fundamentals, cfg.Screener.LookbackDays, log).
		WithMetrics(reg)
	a.ranking = ranking.NewService(catalog, a.stocks, a.prices, a.fundamentals, a.financials, a.screener, log).
		WithMetrics(reg)

	agg := aggregate.NewAggregator(a.financials, cfg.Aggregate, log).WithMetrics(reg)
	a.summary = aggregate.NewService(a.stocks, a.fundamentals, marketdata.NewSummaryRepository(db.Pool), agg, log)
	if rdb.Enabled() {
		a.summary.WithCache(redis.NewCache(rdb, "stockscope"), cfg.Summary.CacheTTL)
	}

	return a, nil
}

// Close releases the connections
func (a *app) Close() {
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close redis")
	}
	a.db.Close()
}
