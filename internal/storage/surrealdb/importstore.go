package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
)

// ImportStore persists statement upload audit rows.
type ImportStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewImportStore(db *surrealdb.DB, logger *common.Logger) *ImportStore {
	return &ImportStore{db: db, logger: logger}
}

func (s *ImportStore) UpsertImport(ctx context.Context, imp *models.Import) error {
	sql := "UPSERT $rid CONTENT $data"
	vars := map[string]any{
		"rid":  surrealmodels.NewRecordID("statement_import", imp.ID),
		"data": imp,
	}
	if _, err := surrealdb.Query[[]models.Import](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to upsert import: %w", err)
	}
	return nil
}

func (s *ImportStore) GetImport(ctx context.Context, id string) (*models.Import, error) {
	imp, err := surrealdb.Select[models.Import](ctx, s.db, surrealmodels.NewRecordID("statement_import", id))
	if err != nil {
		return nil, fmt.Errorf("failed to select import: %w", err)
	}
	if imp == nil || imp.ID == "" {
		return nil, fmt.Errorf("import not found")
	}
	return imp, nil
}

func (s *ImportStore) ListImports(ctx context.Context, portfolio string) ([]*models.Import, error) {
	sql := "SELECT * FROM statement_import WHERE portfolio = $portfolio ORDER BY created_at DESC"
	vars := map[string]any{"portfolio": portfolio}

	results, err := surrealdb.Query[[]models.Import](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list imports: %w", err)
	}

	var imports []*models.Import
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			imports = append(imports, &(*results)[0].Result[i])
		}
	}
	return imports, nil
}

func (s *ImportStore) DeleteImport(ctx context.Context, id string) error {
	sql := "DELETE $rid"
	vars := map[string]any{"rid": surrealmodels.NewRecordID("statement_import", id)}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to delete import: %w", err)
	}
	return nil
}
