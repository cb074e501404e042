// Package memstore is an in-memory implementation of the market data
// repositories, used by engine and handler tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wonny/stockscope/internal/contracts"
)

// Store holds every dimension in memory. The zero value is not usable; call New.
type Store struct {
	mu         sync.RWMutex
	stocks     map[int64]contracts.Stock
	bars       map[int64][]contracts.PriceBar
	snapshots  map[int64][]contracts.FundamentalSnapshot
	statements map[int64][]contracts.FinancialStatement
	summaries  map[contracts.MarketCapCategory][]contracts.StoredSummary

	// Err, when set, is returned by every read
	Err error
	// FailStatementCall fails the nth GetByStocks call (1-based) when > 0
	FailStatementCall int
	// StatementDelay delays every GetByStocks call
	StatementDelay time.Duration

	statementCalls int
}

// New creates an empty store
func New() *Store {
	return &Store{
		stocks:     make(map[int64]contracts.Stock),
		bars:       make(map[int64][]contracts.PriceBar),
		snapshots:  make(map[int64][]contracts.FundamentalSnapshot),
		statements: make(map[int64][]contracts.FinancialStatement),
		summaries:  make(map[contracts.MarketCapCategory][]contracts.StoredSummary),
	}
}

// AddStock registers a stock
func (s *Store) AddStock(id int64, ticker string) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stocks[id] = contracts.Stock{ID: id, Ticker: ticker}
	return s
}

// AddBars appends bars; they are kept date-ascending
func (s *Store) AddBars(bars ...contracts.PriceBar) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range bars {
		s.bars[b.StockID] = append(s.bars[b.StockID], b)
		sort.SliceStable(s.bars[b.StockID], func(i, j int) bool {
			return s.bars[b.StockID][i].Date.Before(s.bars[b.StockID][j].Date)
		})
	}
	return s
}

// AddSnapshots appends fundamentals snapshots
func (s *Store) AddSnapshots(snaps ...contracts.FundamentalSnapshot) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range snaps {
		s.snapshots[f.StockID] = append(s.snapshots[f.StockID], f)
	}
	return s
}

// AddStatements appends financial statements
func (s *Store) AddStatements(stmts ...contracts.FinancialStatement) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range stmts {
		s.statements[st.StockID] = append(s.statements[st.StockID], st)
	}
	return s
}

// StatementCalls reports how many GetByStocks calls were served
func (s *Store) StatementCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statementCalls
}

func (s *Store) wanted(ids []int64) func(int64) bool {
	if ids == nil {
		return func(int64) bool { return true }
	}
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return func(id int64) bool {
		_, ok := set[id]
		return ok
	}
}

// ListStocks returns every stock ordered by ticker
func (s *Store) ListStocks(ctx context.Context) ([]contracts.Stock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}

	out := make([]contracts.Stock, 0, len(s.stocks))
	for _, st := range s.stocks {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out, nil
}

// GetStock returns one stock
func (s *Store) GetStock(ctx context.Context, id int64) (*contracts.Stock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}

	st, ok := s.stocks[id]
	if !ok {
		return nil, fmt.Errorf("stock %d: %w", id, contracts.ErrNotFound)
	}
	return &st, nil
}

// GetSeriesSince returns date-ascending bars on or after from
func (s *Store) GetSeriesSince(ctx context.Context, from time.Time) (map[int64][]contracts.PriceBar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}

	out := make(map[int64][]contracts.PriceBar)
	for id, bars := range s.bars {
		for _, b := range bars {
			if !b.Date.Before(from) {
				out[id] = append(out[id], b)
			}
		}
	}
	return out, nil
}

// GetByStock returns the newest limit bars, newest first
func (s *Store) GetByStock(ctx context.Context, id int64, limit int) ([]contracts.PriceBar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}

	bars := s.bars[id]
	out := make([]contracts.PriceBar, 0, len(bars))
	for i := len(bars) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, bars[i])
	}
	return out, nil
}

// LatestBars returns the last bar per stock
func (s *Store) LatestBars(ctx context.Context, ids []int64) (map[int64]contracts.PriceBar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}

	want := s.wanted(ids)
	out := make(map[int64]contracts.PriceBar)
	for id, bars := range s.bars {
		if want(id) && len(bars) > 0 {
			out[id] = bars[len(bars)-1]
		}
	}
	return out, nil
}

// AdvancesDeclines counts up and down closes per date, newest first
func (s *Store) AdvancesDeclines(ctx context.Context, limit int) ([]contracts.AdvanceDecline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}

	byDate := make(map[time.Time]*contracts.AdvanceDecline)
	for _, bars := range s.bars {
		for _, b := range bars {
			ad, ok := byDate[b.Date]
			if !ok {
				ad = &contracts.AdvanceDecline{Date: b.Date}
				byDate[b.Date] = ad
			}
			switch {
			case b.Close > b.Open:
				ad.Advances++
			case b.Close < b.Open:
				ad.Declines++
			}
		}
	}

	out := make([]contracts.AdvanceDecline, 0, len(byDate))
	for _, ad := range byDate {
		out = append(out, *ad)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Fundamentals exposes the store as a contracts.FundamentalRepository
func (s *Store) Fundamentals() contracts.FundamentalRepository { return fundamentals{s} }

// Financials exposes the store as a contracts.FinancialRepository
func (s *Store) Financials() contracts.FinancialRepository { return financials{s} }

// Summaries exposes the store as a contracts.SummaryRepository
func (s *Store) Summaries() contracts.SummaryRepository { return summaries{s} }

type fundamentals struct{ s *Store }

func (f fundamentals) LatestSnapshot(ctx context.Context, id int64) (*contracts.FundamentalSnapshot, error) {
	latest, err := f.LatestSnapshots(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	snap, ok := latest[id]
	if !ok {
		return nil, fmt.Errorf("fundamentals of stock %d: %w", id, contracts.ErrNotFound)
	}
	return &snap, nil
}

func (f fundamentals) LatestSnapshots(ctx context.Context, ids []int64) (map[int64]contracts.FundamentalSnapshot, error) {
	f.s.mu.RLock()
	defer f.s.mu.RUnlock()
	if f.s.Err != nil {
		return nil, f.s.Err
	}

	want := f.s.wanted(ids)
	out := make(map[int64]contracts.FundamentalSnapshot)
	for id, snaps := range f.s.snapshots {
		if !want(id) {
			continue
		}
		for _, snap := range snaps {
			if cur, ok := out[id]; !ok || snap.Date.After(cur.Date) {
				out[id] = snap
			}
		}
	}
	return out, nil
}

func (f fundamentals) GetByStock(ctx context.Context, id int64) ([]contracts.FundamentalSnapshot, error) {
	f.s.mu.RLock()
	defer f.s.mu.RUnlock()
	if f.s.Err != nil {
		return nil, f.s.Err
	}

	out := append([]contracts.FundamentalSnapshot{}, f.s.snapshots[id]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

type financials struct{ s *Store }

func (f financials) LatestStatement(ctx context.Context, id int64, statementType contracts.StatementType) (*contracts.FinancialStatement, error) {
	latest, err := f.LatestStatements(ctx, []int64{id}, statementType)
	if err != nil {
		return nil, err
	}
	st, ok := latest[id]
	if !ok {
		return nil, fmt.Errorf("%s of stock %d: %w", statementType, id, contracts.ErrNotFound)
	}
	return &st, nil
}

func (f financials) LatestStatements(ctx context.Context, ids []int64, statementType contracts.StatementType) (map[int64]contracts.FinancialStatement, error) {
	f.s.mu.RLock()
	defer f.s.mu.RUnlock()
	if f.s.Err != nil {
		return nil, f.s.Err
	}

	want := f.s.wanted(ids)
	out := make(map[int64]contracts.FinancialStatement)
	for id, stmts := range f.s.statements {
		if !want(id) {
			continue
		}
		for _, st := range stmts {
			if st.Type != statementType {
				continue
			}
			if cur, ok := out[id]; !ok || st.Date.After(cur.Date) {
				out[id] = st
			}
		}
	}
	return out, nil
}

func (f financials) GetByStocks(ctx context.Context, ids []int64) ([]contracts.FinancialStatement, error) {
	f.s.mu.Lock()
	f.s.statementCalls++
	call := f.s.statementCalls
	delay := f.s.StatementDelay
	failAt := f.s.FailStatementCall
	err := f.s.Err
	f.s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if failAt > 0 && call == failAt {
		return nil, fmt.Errorf("statement fetch %d failed", call)
	}

	f.s.mu.RLock()
	defer f.s.mu.RUnlock()

	out := make([]contracts.FinancialStatement, 0)
	for _, id := range ids {
		out = append(out, f.s.statements[id]...)
	}
	return out, nil
}

func (f financials) GetByStock(ctx context.Context, id int64) ([]contracts.FinancialStatement, error) {
	f.s.mu.RLock()
	defer f.s.mu.RUnlock()
	if f.s.Err != nil {
		return nil, f.s.Err
	}

	out := append([]contracts.FinancialStatement{}, f.s.statements[id]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

type summaries struct{ s *Store }

func (r summaries) Save(ctx context.Context, date time.Time, summary *contracts.FinancialSummary) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}

	r.s.summaries[summary.Category] = append(r.s.summaries[summary.Category], contracts.StoredSummary{
		Date:      date,
		Summary:   *summary,
		UpdatedAt: time.Now(),
	})
	return nil
}

func (r summaries) Latest(ctx context.Context, category contracts.MarketCapCategory) (*contracts.StoredSummary, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}

	list := r.s.summaries[category]
	if len(list) == 0 {
		return nil, fmt.Errorf("summary for %s: %w", category, contracts.ErrNotFound)
	}
	latest := list[0]
	for _, st := range list[1:] {
		if !st.Date.Before(latest.Date) {
			latest = st
		}
	}
	return &latest, nil
}
