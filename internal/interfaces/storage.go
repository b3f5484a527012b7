// Package interfaces defines service contracts for Folio
package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/folio/internal/models"
)

// StorageManager coordinates all storage backends
type StorageManager interface {
	TradeStore() TradeStore
	IncomeStore() IncomeStore
	PositionStore() PositionStore
	ImportStore() ImportStore
	FxRateStore() FxRateStore

	// Lifecycle
	Close() error
}

// TradeStore persists parsed trades.
type TradeStore interface {
	// ListTrades returns all trades for a portfolio ordered ascending by
	// (trade_date, row_order). Same-date ordering is stable across calls.
	ListTrades(ctx context.Context, portfolio string) ([]*models.Trade, error)

	GetTrade(ctx context.Context, id string) (*models.Trade, error)

	// UpsertTrades inserts trades keyed by their dedup identity.
	UpsertTrades(ctx context.Context, trades []*models.Trade) error

	// UpdateTradeFxRate back-fills the one mutable field on a persisted trade.
	UpdateTradeFxRate(ctx context.Context, id string, fxRate float64) error

	DeleteTrade(ctx context.Context, id string) error

	// DeleteByImport removes all trades belonging to an import (cascade path).
	DeleteByImport(ctx context.Context, importID string) (int, error)
}

// IncomeStore persists dividend/interest events.
type IncomeStore interface {
	ListIncome(ctx context.Context, portfolio string) ([]*models.IncomeEvent, error)
	UpsertIncome(ctx context.Context, events []*models.IncomeEvent) error
	DeleteByImport(ctx context.Context, importID string) (int, error)
}

// PositionStore persists derived positions. The table is a rebuildable cache:
// every recompute deletes and reinserts a portfolio's rows wholesale.
type PositionStore interface {
	ListPositions(ctx context.Context, portfolio string) ([]*models.Position, error)
	DeletePositions(ctx context.Context, portfolio string) error
	InsertPositions(ctx context.Context, positions []*models.Position) error
}

// ImportStore persists statement upload audit rows.
type ImportStore interface {
	UpsertImport(ctx context.Context, imp *models.Import) error
	GetImport(ctx context.Context, id string) (*models.Import, error)
	ListImports(ctx context.Context, portfolio string) ([]*models.Import, error)
	DeleteImport(ctx context.Context, id string) error
}

// FxRateStore caches resolved historical FX rates so overlapping imports skip
// the external fetch. Safe to truncate and rebuild at any time.
type FxRateStore interface {
	CacheRate(ctx context.Context, rate *models.HistoricalFxRate) error

	// LookupRate returns (rate, true, nil) on a cache hit and (0, false, nil)
	// on a miss; errors are reserved for storage failures.
	LookupRate(ctx context.Context, from, to string, date time.Time) (float64, bool, error)
}
