package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
)

// TradeStore persists trades in the trade table.
type TradeStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewTradeStore(db *surrealdb.DB, logger *common.Logger) *TradeStore {
	return &TradeStore{db: db, logger: logger}
}

// ListTrades returns a portfolio's trades ordered ascending by trade date,
// with the statement row order breaking same-date ties. This ordering is what
// makes ledger folds reproducible.
func (s *TradeStore) ListTrades(ctx context.Context, portfolio string) ([]*models.Trade, error) {
	sql := "SELECT * FROM trade WHERE portfolio = $portfolio ORDER BY trade_date ASC, row_order ASC"
	vars := map[string]any{"portfolio": portfolio}

	results, err := surrealdb.Query[[]models.Trade](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}

	var trades []*models.Trade
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			trades = append(trades, &(*results)[0].Result[i])
		}
	}
	return trades, nil
}

func (s *TradeStore) GetTrade(ctx context.Context, id string) (*models.Trade, error) {
	trade, err := surrealdb.Select[models.Trade](ctx, s.db, surrealmodels.NewRecordID("trade", id))
	if err != nil {
		return nil, fmt.Errorf("failed to select trade: %w", err)
	}
	if trade == nil || trade.ID == "" {
		return nil, fmt.Errorf("trade not found")
	}
	return trade, nil
}

func (s *TradeStore) UpsertTrades(ctx context.Context, trades []*models.Trade) error {
	sql := "UPSERT $rid CONTENT $data"
	for _, trade := range trades {
		vars := map[string]any{
			"rid":  surrealmodels.NewRecordID("trade", trade.ID),
			"data": trade,
		}
		if _, err := surrealdb.Query[[]models.Trade](ctx, s.db, sql, vars); err != nil {
			return fmt.Errorf("failed to upsert trade %s: %w", trade.ID, err)
		}
	}
	return nil
}

func (s *TradeStore) UpdateTradeFxRate(ctx context.Context, id string, fxRate float64) error {
	sql := "UPDATE $rid SET fx_rate = $rate"
	vars := map[string]any{
		"rid":  surrealmodels.NewRecordID("trade", id),
		"rate": fxRate,
	}
	if _, err := surrealdb.Query[[]models.Trade](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to update trade fx rate: %w", err)
	}
	return nil
}

func (s *TradeStore) DeleteTrade(ctx context.Context, id string) error {
	sql := "DELETE $rid"
	vars := map[string]any{"rid": surrealmodels.NewRecordID("trade", id)}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to delete trade: %w", err)
	}
	return nil
}

func (s *TradeStore) DeleteByImport(ctx context.Context, importID string) (int, error) {
	sql := "DELETE FROM trade WHERE import_id = $import_id RETURN BEFORE"
	vars := map[string]any{"import_id": importID}

	results, err := surrealdb.Query[[]models.Trade](ctx, s.db, sql, vars)
	if err != nil {
		return 0, fmt.Errorf("failed to delete trades for import: %w", err)
	}

	deleted := 0
	if results != nil && len(*results) > 0 {
		deleted = len((*results)[0].Result)
	}
	return deleted, nil
}
