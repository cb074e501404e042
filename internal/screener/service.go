package screener

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/guregu/null/v6"

	"github.com/wonny/stockscope/internal/contracts"
	"github.com/wonny/stockscope/internal/indicator"
	"github.com/wonny/stockscope/internal/metrics"
	"github.com/wonny/stockscope/pkg/logger"
)

// Row is one stock that passed the screen
type Row struct {
	StockID        int64              `json:"stock_id"`
	Ticker         string             `json:"ticker"`
	Close          float64            `json:"close"`
	AsOf           time.Time          `json:"as_of"`
	MovingAverages map[string]float64 `json:"moving_averages"`
	RSI            *float64           `json:"rsi"`
	Momentum       *float64           `json:"momentum"`
	MarketCap      null.Float         `json:"market_cap"`

	// Fundamentals is the latest snapshot, joined in granular mode only
	Fundamentals *contracts.FundamentalSnapshot `json:"fundamentals,omitempty"`
}

// Result is the outcome of one screen
type Result struct {
	Rows     []Row
	Screened int
}

// Service runs indicator screens over every stock
// ⭐ SSOT: 기술적 스크리닝은 여기서만
type Service struct {
	stocks       contracts.StockRepository
	prices       contracts.PriceRepository
	fundamentals contracts.FundamentalRepository
	lookbackDays int
	now          func() time.Time
	metrics      *metrics.Registry
	logger       *logger.Logger
}

// NewService creates a new screening service
func NewService(
	stocks contracts.StockRepository,
	prices contracts.PriceRepository,
	fundamentals contracts.FundamentalRepository,
	lookbackDays int,
	log *logger.Logger,
) *Service {
	if lookbackDays <= 0 {
		lookbackDays = indicator.LookbackDays
	}
	return &Service{
		stocks:       stocks,
		prices:       prices,
		fundamentals: fundamentals,
		lookbackDays: lookbackDays,
		now:          time.Now,
		logger:       log.WithComponent("screener"),
	}
}

// WithClock overrides the as-of clock
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithMetrics attaches Prometheus instrumentation
func (s *Service) WithMetrics(reg *metrics.Registry) *Service {
	s.metrics = reg
	return s
}

// MaxPeriod is the longest MA period the lookback window can serve
func (s *Service) MaxPeriod() int {
	return s.lookbackDays
}

// Parse validates raw criteria against this service's lookback
func (s *Service) Parse(raw []RawCriterion, mode Mode) ([]Criterion, error) {
	return ParseCriteria(raw, mode, s.lookbackDays)
}

// signals computes indicators for every stock with data in the lookback window
func (s *Service) signals(ctx context.Context, criteria []Criterion) ([]*indicator.Signals, error) {
	stocks, err := s.stocks.ListStocks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stocks: %w", err)
	}

	asOf := s.now()
	from := indicator.WindowStart(asOf, s.lookbackDays)

	series, err := s.prices.GetSeriesSince(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("failed to load price series: %w", err)
	}

	periods := indicator.MergePeriods(Periods(criteria)...)
	out := make([]*indicator.Signals, 0, len(stocks))
	for _, st := range stocks {
		sig, ok := indicator.Compute(st, series[st.ID], asOf, s.lookbackDays, periods)
		if !ok {
			continue
		}
		out = append(out, sig)
	}
	return out, nil
}

func (s *Service) filter(ctx context.Context, criteria []Criterion) ([]*indicator.Signals, int, error) {
	all, err := s.signals(ctx, criteria)
	if err != nil {
		return nil, 0, err
	}

	passed := make([]*indicator.Signals, 0)
	for _, sig := range all {
		if Evaluate(sig, criteria) {
			passed = append(passed, sig)
		}
	}
	return passed, len(all), nil
}

// Screen returns the stocks passing every criterion, ordered by ticker
func (s *Service) Screen(ctx context.Context, criteria []Criterion, mode Mode) (*Result, error) {
	passed, screened, err := s.filter(ctx, criteria)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(passed))
	for i, sig := range passed {
		ids[i] = sig.StockID
	}

	snapshots := map[int64]contracts.FundamentalSnapshot{}
	if len(ids) > 0 {
		snapshots, err = s.fundamentals.LatestSnapshots(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to load fundamentals: %w", err)
		}
	}

	rows := make([]Row, 0, len(passed))
	for _, sig := range passed {
		row := Row{
			StockID:        sig.StockID,
			Ticker:         sig.Ticker,
			Close:          sig.Close,
			AsOf:           sig.AsOf,
			MovingAverages: make(map[string]float64, len(sig.MA)),
			RSI:            sig.RSI,
			Momentum:       sig.Momentum,
		}
		for p, v := range sig.MA {
			row.MovingAverages[fmt.Sprintf("ma%d", p)] = v
		}
		if snap, ok := snapshots[sig.StockID]; ok {
			row.MarketCap = snap.MarketCap
			if mode == ModeGranular {
				snap := snap
				row.Fundamentals = &snap
			}
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Ticker < rows[j].Ticker })

	s.metrics.RecordScreen(mode.String(), len(rows))

	s.logger.WithFields(map[string]interface{}{
		"mode":     mode.String(),
		"criteria": len(criteria),
		"screened": screened,
		"passed":   len(rows),
	}).Info("Screening completed")

	return &Result{Rows: rows, Screened: screened}, nil
}

// FilterIDs returns the ids of stocks passing every criterion
func (s *Service) FilterIDs(ctx context.Context, criteria []Criterion) ([]int64, error) {
	passed, screened, err := s.filter(ctx, criteria)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(passed))
	for i, sig := range passed {
		ids[i] = sig.StockID
	}

	s.logger.WithFields(map[string]interface{}{
		"screened": screened,
		"passed":   len(ids),
	}).Debug("Screen filter completed")

	return ids, nil
}
