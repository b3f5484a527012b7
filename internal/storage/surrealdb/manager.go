// Package surrealdb implements the Folio persistence boundary on SurrealDB.
package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
)

// Manager implements interfaces.StorageManager using SurrealDB.
type Manager struct {
	db     *surrealdb.DB
	logger *common.Logger

	tradeStore    *TradeStore
	incomeStore   *IncomeStore
	positionStore *PositionStore
	importStore   *ImportStore
	fxRateStore   *FxRateStore
}

// NewManager creates a new StorageManager connected to SurrealDB.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	ctx := context.Background()

	db, err := surrealdb.New(config.Storage.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": config.Storage.Username,
		"pass": config.Storage.Password,
	}); err != nil {
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	if err := db.Use(ctx, config.Storage.Namespace, config.Storage.Database); err != nil {
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	// Define tables up front (SurrealDB v3 errors on querying non-existent tables)
	tables := []string{"trade", "income_event", "position", "statement_import", "fx_rate"}
	for _, table := range tables {
		sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", table)
		if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
			return nil, fmt.Errorf("failed to define table %s: %w", table, err)
		}
	}

	m := &Manager{
		db:     db,
		logger: logger,
	}

	m.tradeStore = NewTradeStore(db, logger)
	m.incomeStore = NewIncomeStore(db, logger)
	m.positionStore = NewPositionStore(db, logger)
	m.importStore = NewImportStore(db, logger)
	m.fxRateStore = NewFxRateStore(db, logger)

	logger.Info().
		Str("address", config.Storage.Address).
		Str("namespace", config.Storage.Namespace).
		Str("database", config.Storage.Database).
		Msg("SurrealDB storage manager initialized")

	return m, nil
}

func (m *Manager) TradeStore() interfaces.TradeStore {
	return m.tradeStore
}

func (m *Manager) IncomeStore() interfaces.IncomeStore {
	return m.incomeStore
}

func (m *Manager) PositionStore() interfaces.PositionStore {
	return m.positionStore
}

func (m *Manager) ImportStore() interfaces.ImportStore {
	return m.importStore
}

func (m *Manager) FxRateStore() interfaces.FxRateStore {
	return m.fxRateStore
}

func (m *Manager) Close() error {
	return m.db.Close(context.Background())
}

// Ensure Manager implements StorageManager
var _ interfaces.StorageManager = (*Manager)(nil)
