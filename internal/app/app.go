// Package app wires Folio's services, clients and storage together.
package app

import (
	"fmt"
	"os"
	"time"

	"github.com/bobmcallan/folio/internal/clients/eodhd"
	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/services/fxrate"
	"github.com/bobmcallan/folio/internal/services/ingest"
	"github.com/bobmcallan/folio/internal/services/ledger"
	"github.com/bobmcallan/folio/internal/storage/surrealdb"
)

// App holds all initialized services, clients and storage. It is the shared
// core used by cmd/folio-server and the server tests.
type App struct {
	Config        *common.Config
	Logger        *common.Logger
	Storage       interfaces.StorageManager
	MarketClient  interfaces.MarketDataClient
	FxResolver    interfaces.FxResolver
	LedgerService interfaces.LedgerService
	IngestService interfaces.IngestService
	StartupTime   time.Time
}

// NewApp initializes configuration, storage, clients and services.
// configPath may be empty, in which case FOLIO_CONFIG and the default
// locations are consulted.
func NewApp(configPath string) (*App, error) {
	if configPath == "" {
		configPath = os.Getenv("FOLIO_CONFIG")
	}
	if configPath == "" {
		configPath = "folio.toml"
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLogger(config.Logging.Level)

	storage, err := surrealdb.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	market := eodhd.NewClient(config.Clients.EODHD.APIKey,
		eodhd.WithBaseURL(config.Clients.EODHD.BaseURL),
		eodhd.WithRateLimit(config.Clients.EODHD.RateLimit),
		eodhd.WithTimeout(config.Clients.EODHD.GetTimeout()),
		eodhd.WithLogger(logger),
	)

	return newApp(config, logger, storage, market), nil
}

// NewAppWithDeps builds an App from pre-constructed dependencies. Used by
// tests to swap in in-memory storage and a stub market client.
func NewAppWithDeps(config *common.Config, logger *common.Logger, storage interfaces.StorageManager, market interfaces.MarketDataClient) *App {
	return newApp(config, logger, storage, market)
}

func newApp(config *common.Config, logger *common.Logger, storage interfaces.StorageManager, market interfaces.MarketDataClient) *App {
	resolver := fxrate.NewResolver(config.BaseCurrency, storage.FxRateStore(), market, logger)
	ledgerService := ledger.NewService(storage, config.BaseCurrency, logger)
	ingestService := ingest.NewService(storage, resolver, ledgerService,
		config.BaseCurrency, config.Ingest.AssetClass, logger)

	return &App{
		Config:        config,
		Logger:        logger,
		Storage:       storage,
		MarketClient:  market,
		FxResolver:    resolver,
		LedgerService: ledgerService,
		IngestService: ingestService,
		StartupTime:   time.Now(),
	}
}

// Close releases storage resources.
func (a *App) Close() {
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("Failed to close storage")
		}
	}
}
