package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
)

// FxRateStore caches resolved historical FX rates, keyed by the
// (date, from, to) triple so overlapping imports skip the external fetch.
type FxRateStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewFxRateStore(db *surrealdb.DB, logger *common.Logger) *FxRateStore {
	return &FxRateStore{db: db, logger: logger}
}

func (s *FxRateStore) CacheRate(ctx context.Context, rate *models.HistoricalFxRate) error {
	sql := "UPSERT $rid CONTENT $data"
	vars := map[string]any{
		"rid":  surrealmodels.NewRecordID("fx_rate", rate.Key()),
		"data": rate,
	}
	if _, err := surrealdb.Query[[]models.HistoricalFxRate](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to cache fx rate: %w", err)
	}
	return nil
}

func (s *FxRateStore) LookupRate(ctx context.Context, from, to string, date time.Time) (float64, bool, error) {
	rate, err := surrealdb.Select[models.HistoricalFxRate](ctx, s.db, surrealmodels.NewRecordID("fx_rate", models.FxRateKey(from, to, date)))
	if err != nil {
		return 0, false, fmt.Errorf("failed to select fx rate: %w", err)
	}
	if rate == nil || rate.Rate == 0 {
		return 0, false, nil
	}
	return rate.Rate, true, nil
}
