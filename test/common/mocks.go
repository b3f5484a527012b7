// Package common provides shared test infrastructure
package common

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// MockMarketClient implements MarketDataClient for testing
type MockMarketClient struct {
	mu          sync.Mutex
	EODData     map[string]*models.EODResponse
	Err         error
	GetEODCalls int
	Tickers     []string // tickers requested, in call order
}

// NewMockMarketClient creates a mock market data client
func NewMockMarketClient() *MockMarketClient {
	return &MockMarketClient{
		EODData: make(map[string]*models.EODResponse),
	}
}

func (m *MockMarketClient) GetEOD(ctx context.Context, ticker string, opts ...interfaces.EODOption) (*models.EODResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetEODCalls++
	m.Tickers = append(m.Tickers, ticker)
	if m.Err != nil {
		return nil, m.Err
	}
	if data, ok := m.EODData[ticker]; ok {
		return data, nil
	}
	return &models.EODResponse{Ticker: ticker}, nil
}

// SetBars registers daily close bars for a ticker
func (m *MockMarketClient) SetBars(ticker string, bars ...models.EODBar) {
	m.EODData[ticker] = &models.EODResponse{Ticker: ticker, Data: bars}
}

// Bar builds an EODBar with the given date string (2006-01-02) and close price
func Bar(date string, close float64) models.EODBar {
	d, _ := time.Parse("2006-01-02", date)
	return models.EODBar{Date: d, Close: close, AdjClose: close}
}

// MemoryStorage implements StorageManager with in-memory maps for testing.
// All stores share one mutex; good enough for test concurrency.
type MemoryStorage struct {
	mu        sync.Mutex
	trades    map[string]*models.Trade
	income    map[string]*models.IncomeEvent
	positions map[string][]*models.Position // keyed by portfolio
	imports   map[string]*models.Import
	fxRates   map[string]*models.HistoricalFxRate

	FxLookupCalls int
	FailUpserts   bool
}

// NewMemoryStorage creates an empty in-memory storage manager
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		trades:    make(map[string]*models.Trade),
		income:    make(map[string]*models.IncomeEvent),
		positions: make(map[string][]*models.Position),
		imports:   make(map[string]*models.Import),
		fxRates:   make(map[string]*models.HistoricalFxRate),
	}
}

func (s *MemoryStorage) TradeStore() interfaces.TradeStore       { return (*memoryTradeStore)(s) }
func (s *MemoryStorage) IncomeStore() interfaces.IncomeStore     { return (*memoryIncomeStore)(s) }
func (s *MemoryStorage) PositionStore() interfaces.PositionStore { return (*memoryPositionStore)(s) }
func (s *MemoryStorage) ImportStore() interfaces.ImportStore     { return (*memoryImportStore)(s) }
func (s *MemoryStorage) FxRateStore() interfaces.FxRateStore     { return (*memoryFxRateStore)(s) }
func (s *MemoryStorage) Close() error                            { return nil }

// TradeCount returns the number of stored trades
func (s *MemoryStorage) TradeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trades)
}

// IncomeCount returns the number of stored income events
func (s *MemoryStorage) IncomeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.income)
}

type memoryTradeStore MemoryStorage

func (s *memoryTradeStore) ListTrades(ctx context.Context, portfolio string) ([]*models.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Trade
	for _, t := range s.trades {
		if t.Portfolio == portfolio {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].TradeDate.Equal(out[j].TradeDate) {
			return out[i].TradeDate.Before(out[j].TradeDate)
		}
		return out[i].RowOrder < out[j].RowOrder
	})
	return out, nil
}

func (s *memoryTradeStore) GetTrade(ctx context.Context, id string) (*models.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trades[id]
	if !ok {
		return nil, fmt.Errorf("trade %s not found", id)
	}
	return t, nil
}

func (s *memoryTradeStore) UpsertTrades(ctx context.Context, trades []*models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUpserts {
		return fmt.Errorf("upsert failed")
	}
	for _, t := range trades {
		s.trades[t.ID] = t
	}
	return nil
}

func (s *memoryTradeStore) UpdateTradeFxRate(ctx context.Context, id string, fxRate float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trades[id]
	if !ok {
		return fmt.Errorf("trade %s not found", id)
	}
	t.FxRate = fxRate
	return nil
}

func (s *memoryTradeStore) DeleteTrade(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trades[id]; !ok {
		return fmt.Errorf("trade %s not found", id)
	}
	delete(s.trades, id)
	return nil
}

func (s *memoryTradeStore) DeleteByImport(ctx context.Context, importID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for id, t := range s.trades {
		if t.ImportID == importID {
			delete(s.trades, id)
			count++
		}
	}
	return count, nil
}

type memoryIncomeStore MemoryStorage

func (s *memoryIncomeStore) ListIncome(ctx context.Context, portfolio string) ([]*models.IncomeEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.IncomeEvent
	for _, e := range s.income {
		if e.Portfolio == portfolio {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *memoryIncomeStore) UpsertIncome(ctx context.Context, events []*models.IncomeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		s.income[e.ID] = e
	}
	return nil
}

func (s *memoryIncomeStore) DeleteByImport(ctx context.Context, importID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for id, e := range s.income {
		if e.ImportID == importID {
			delete(s.income, id)
			count++
		}
	}
	return count, nil
}

type memoryPositionStore MemoryStorage

func (s *memoryPositionStore) ListPositions(ctx context.Context, portfolio string) ([]*models.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.Position(nil), s.positions[portfolio]...), nil
}

func (s *memoryPositionStore) DeletePositions(ctx context.Context, portfolio string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.positions, portfolio)
	return nil
}

func (s *memoryPositionStore) InsertPositions(ctx context.Context, positions []*models.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range positions {
		s.positions[p.Portfolio] = append(s.positions[p.Portfolio], p)
	}
	return nil
}

type memoryImportStore MemoryStorage

func (s *memoryImportStore) UpsertImport(ctx context.Context, imp *models.Import) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imports[imp.ID] = imp
	return nil
}

func (s *memoryImportStore) GetImport(ctx context.Context, id string) (*models.Import, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	imp, ok := s.imports[id]
	if !ok {
		return nil, fmt.Errorf("import %s not found", id)
	}
	return imp, nil
}

func (s *memoryImportStore) ListImports(ctx context.Context, portfolio string) ([]*models.Import, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Import
	for _, imp := range s.imports {
		if imp.Portfolio == portfolio {
			out = append(out, imp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memoryImportStore) DeleteImport(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.imports, id)
	return nil
}

type memoryFxRateStore MemoryStorage

func (s *memoryFxRateStore) CacheRate(ctx context.Context, rate *models.HistoricalFxRate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fxRates[rate.Key()] = rate
	return nil
}

func (s *memoryFxRateStore) LookupRate(ctx context.Context, from, to string, date time.Time) (float64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FxLookupCalls++
	rate, ok := s.fxRates[models.FxRateKey(from, to, date)]
	if !ok {
		return 0, false, nil
	}
	return rate.Rate, true, nil
}
