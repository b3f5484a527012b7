package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
)

// IncomeStore persists dividend/interest events in the income_event table.
type IncomeStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewIncomeStore(db *surrealdb.DB, logger *common.Logger) *IncomeStore {
	return &IncomeStore{db: db, logger: logger}
}

func (s *IncomeStore) ListIncome(ctx context.Context, portfolio string) ([]*models.IncomeEvent, error) {
	sql := "SELECT * FROM income_event WHERE portfolio = $portfolio ORDER BY date ASC"
	vars := map[string]any{"portfolio": portfolio}

	results, err := surrealdb.Query[[]models.IncomeEvent](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list income events: %w", err)
	}

	var events []*models.IncomeEvent
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			events = append(events, &(*results)[0].Result[i])
		}
	}
	return events, nil
}

func (s *IncomeStore) UpsertIncome(ctx context.Context, events []*models.IncomeEvent) error {
	sql := "UPSERT $rid CONTENT $data"
	for _, event := range events {
		vars := map[string]any{
			"rid":  surrealmodels.NewRecordID("income_event", event.ID),
			"data": event,
		}
		if _, err := surrealdb.Query[[]models.IncomeEvent](ctx, s.db, sql, vars); err != nil {
			return fmt.Errorf("failed to upsert income event %s: %w", event.ID, err)
		}
	}
	return nil
}

func (s *IncomeStore) DeleteByImport(ctx context.Context, importID string) (int, error) {
	sql := "DELETE FROM income_event WHERE import_id = $import_id RETURN BEFORE"
	vars := map[string]any{"import_id": importID}

	results, err := surrealdb.Query[[]models.IncomeEvent](ctx, s.db, sql, vars)
	if err != nil {
		return 0, fmt.Errorf("failed to delete income events for import: %w", err)
	}

	deleted := 0
	if results != nil && len(*results) > 0 {
		deleted = len((*results)[0].Result)
	}
	return deleted, nil
}
