package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
)

// PositionStore persists derived positions. The table is a rebuildable cache
// of the trade history: safe to truncate at any time.
type PositionStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewPositionStore(db *surrealdb.DB, logger *common.Logger) *PositionStore {
	return &PositionStore{db: db, logger: logger}
}

func (s *PositionStore) ListPositions(ctx context.Context, portfolio string) ([]*models.Position, error) {
	sql := "SELECT * FROM position WHERE portfolio = $portfolio ORDER BY symbol ASC"
	vars := map[string]any{"portfolio": portfolio}

	results, err := surrealdb.Query[[]models.Position](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}

	var positions []*models.Position
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			positions = append(positions, &(*results)[0].Result[i])
		}
	}
	return positions, nil
}

func (s *PositionStore) DeletePositions(ctx context.Context, portfolio string) error {
	sql := "DELETE FROM position WHERE portfolio = $portfolio"
	vars := map[string]any{"portfolio": portfolio}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to delete positions: %w", err)
	}
	return nil
}

func (s *PositionStore) InsertPositions(ctx context.Context, positions []*models.Position) error {
	sql := "UPSERT $rid CONTENT $data"
	for _, pos := range positions {
		vars := map[string]any{
			"rid":  surrealmodels.NewRecordID("position", pos.Portfolio+"_"+pos.Symbol),
			"data": pos,
		}
		if _, err := surrealdb.Query[[]models.Position](ctx, s.db, sql, vars); err != nil {
			return fmt.Errorf("failed to insert position %s: %w", pos.Symbol, err)
		}
	}
	return nil
}
