package aggregate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wonny/stockscope/internal/contracts"
	"github.com/wonny/stockscope/pkg/logger"
	"github.com/wonny/stockscope/pkg/redis"
)

// SummaryCache is the read-through cache in front of summary computation
type SummaryCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Service builds financial summaries per market cap category
// ⭐ SSOT: 재무 요약은 여기서만
type Service struct {
	stocks       contracts.StockRepository
	fundamentals contracts.FundamentalRepository
	summaries    contracts.SummaryRepository
	aggregator   *Aggregator
	cache        SummaryCache
	cacheTTL     time.Duration
	now          func() time.Time
	logger       *logger.Logger
}

// NewService creates a new summary service
func NewService(
	stocks contracts.StockRepository,
	fundamentals contracts.FundamentalRepository,
	summaries contracts.SummaryRepository,
	aggregator *Aggregator,
	log *logger.Logger,
) *Service {
	return &Service{
		stocks:       stocks,
		fundamentals: fundamentals,
		summaries:    summaries,
		aggregator:   aggregator,
		cacheTTL:     redis.TTLSummary,
		now:          time.Now,
		logger:       log.WithComponent("summary"),
	}
}

// WithCache enables cache-through summaries
func (s *Service) WithCache(cache SummaryCache, ttl time.Duration) *Service {
	s.cache = cache
	if ttl > 0 {
		s.cacheTTL = ttl
	}
	return s
}

// WithClock overrides the computation clock
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Summary returns the category's summary, served from cache when fresh
func (s *Service) Summary(ctx context.Context, category contracts.MarketCapCategory) (*contracts.FinancialSummary, error) {
	key := redis.SummaryKey(string(category))

	if s.cache != nil {
		var cached contracts.FinancialSummary
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.WithError(err).WithField("key", key).Warn("Summary cache read failed")
		}
		if found {
			return &cached, nil
		}
	}

	summary, err := s.Compute(ctx, category)
	if err != nil {
		return nil, err
	}

	s.store(ctx, key, summary)
	return summary, nil
}

// Compute aggregates the category from scratch, bypassing the cache
func (s *Service) Compute(ctx context.Context, category contracts.MarketCapCategory) (*contracts.FinancialSummary, error) {
	stocks, err := s.stocks.ListStocks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stocks: %w", err)
	}

	snapshots, err := s.fundamentals.LatestSnapshots(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest fundamentals: %w", err)
	}

	ids := make([]int64, 0, len(stocks))
	members := make(map[int64]contracts.FundamentalSnapshot, len(stocks))
	for _, st := range stocks {
		snap, ok := snapshots[st.ID]
		if !category.Contains(snap.MarketCap) {
			continue
		}
		ids = append(ids, st.ID)
		if ok {
			members[st.ID] = snap
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	totals, err := s.aggregator.Aggregate(ctx, ids, s.aggregator.BatchSize())
	if err != nil {
		return nil, err
	}

	return Summarize(category, totals, members, s.now()), nil
}

// Latest returns the last persisted summary of a category
func (s *Service) Latest(ctx context.Context, category contracts.MarketCapCategory) (*contracts.StoredSummary, error) {
	stored, err := s.summaries.Latest(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest summary: %w", err)
	}
	return stored, nil
}

// Crunch computes and persists every category for date, refreshing the cache
func (s *Service) Crunch(ctx context.Context, date time.Time) ([]*contracts.FinancialSummary, error) {
	out := make([]*contracts.FinancialSummary, 0, len(contracts.Categories()))

	for _, category := range contracts.Categories() {
		summary, err := s.Compute(ctx, category)
		if err != nil {
			return nil, fmt.Errorf("failed to compute %s summary: %w", category, err)
		}

		if err := s.summaries.Save(ctx, date, summary); err != nil {
			return nil, fmt.Errorf("failed to persist %s summary: %w", category, err)
		}

		s.store(ctx, redis.SummaryKey(string(category)), summary)
		out = append(out, summary)

		s.logger.WithFields(map[string]interface{}{
			"category": string(category),
			"stocks":   summary.StockCount,
			"date":     date.Format("2006-01-02"),
		}).Info("Summary crunched")
	}

	return out, nil
}

func (s *Service) store(ctx context.Context, key string, summary *contracts.FinancialSummary) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, summary, s.cacheTTL); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Summary cache write failed")
	}
}
