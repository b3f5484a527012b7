// Package ingest reconciles parsed activity statements into persisted history.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/statement"
)

// Broker-reported realized P&L is advisory; divergence beyond this fraction
// of the reported figure is logged, never surfaced as an error.
var crossCheckTolerance = decimal.NewFromFloat(0.01)

// Service implements IngestService: parse → normalize → resolve FX → dedup
// and persist → record the import → full position recompute.
type Service struct {
	storage      interfaces.StorageManager
	resolver     interfaces.FxResolver
	ledger       interfaces.LedgerService
	baseCurrency string
	assetClass   string
	logger       *common.Logger
}

// NewService creates a new ingest service
func NewService(
	storage interfaces.StorageManager,
	resolver interfaces.FxResolver,
	ledger interfaces.LedgerService,
	baseCurrency string,
	assetClass string,
	logger *common.Logger,
) *Service {
	return &Service{
		storage:      storage,
		resolver:     resolver,
		ledger:       ledger,
		baseCurrency: baseCurrency,
		assetClass:   assetClass,
		logger:       logger,
	}
}

// Ingest processes one raw statement export for a portfolio.
func (s *Service) Ingest(ctx context.Context, portfolio, filename string, raw []byte) (*models.IngestResult, error) {
	st, err := statement.Extract(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to extract sections: %w", err)
	}
	warnings := append([]string(nil), st.Warnings...)

	norm := statement.NewNormalizer(s.assetClass)
	trades, tradeWarnings := norm.Trades(st)
	income, incomeWarnings := norm.Income(st)
	performance := norm.Performance(st)
	warnings = append(warnings, tradeWarnings...)
	warnings = append(warnings, incomeWarnings...)

	// An all-skipped statement is indistinguishable from a wrong file upload.
	if len(trades) == 0 && len(income) == 0 {
		return nil, fmt.Errorf("no usable trades or income rows in %s (warnings: %v)", filename, warnings)
	}

	warnings = append(warnings, s.resolveRates(ctx, trades, income)...)

	importRow := buildImport(portfolio, filename, trades, income)

	tradesInserted, fxBackfilled, err := s.reconcileTrades(ctx, portfolio, importRow.ID, trades)
	if err != nil {
		return nil, err
	}
	incomeInserted, err := s.reconcileIncome(ctx, portfolio, importRow.ID, income)
	if err != nil {
		return nil, err
	}

	if err := s.storage.ImportStore().UpsertImport(ctx, importRow); err != nil {
		return nil, fmt.Errorf("failed to record import: %w", err)
	}

	// Always a full recompute: a back-filled fxRate on an old trade changes
	// that symbol's average cost retroactively.
	recompute, err := s.ledger.RecomputePositions(ctx, portfolio)
	if err != nil {
		return nil, err
	}

	s.crossCheck(ctx, portfolio, performance)

	s.logger.Info().
		Str("portfolio", portfolio).
		Str("file", filename).
		Int("trades_found", len(trades)).
		Int("trades_inserted", tradesInserted).
		Int("fx_backfilled", fxBackfilled).
		Int("income_inserted", incomeInserted).
		Int("warnings", len(warnings)).
		Msg("Statement ingested")

	return &models.IngestResult{
		ImportID:             importRow.ID,
		TradesFound:          len(trades),
		TradesInserted:       tradesInserted,
		IncomeFound:          len(income),
		IncomeInserted:       incomeInserted,
		PositionsUpdated:     recompute.PositionsUpdated,
		TotalRealizedPnlBase: recompute.TotalRealizedPnlBase,
		BrokerPerformance:    performance,
		Warnings:             warnings,
	}, nil
}

// resolveRates batches FX resolution for all parsed rows and applies the
// results. Unresolved non-base pairs keep the sentinel rate of 1 and are
// flagged in the returned warnings.
func (s *Service) resolveRates(ctx context.Context, trades []*models.Trade, income []*models.IncomeEvent) []string {
	requests := make([]interfaces.FxRequest, 0, len(trades)+len(income))
	for _, t := range trades {
		requests = append(requests, interfaces.FxRequest{Currency: t.Currency, Date: day(t.TradeDate)})
	}
	for _, e := range income {
		requests = append(requests, interfaces.FxRequest{Currency: e.Currency, Date: day(e.Date)})
	}

	rates, err := s.resolver.Resolve(ctx, requests)
	if err != nil {
		s.logger.Warn().Err(err).Msg("FX resolution incomplete")
	}

	var warnings []string
	for _, t := range trades {
		rate, ok := rates[interfaces.FxRequest{Currency: t.Currency, Date: day(t.TradeDate)}]
		if !ok {
			if t.Currency != s.baseCurrency {
				warnings = append(warnings, fmt.Sprintf(
					"no FX rate for %s on %s: %s position left in native terms",
					t.Currency, t.TradeDate.Format("2006-01-02"), t.Symbol))
			}
			continue
		}
		t.FxRate = rate
	}
	for _, e := range income {
		if rate, ok := rates[interfaces.FxRequest{Currency: e.Currency, Date: day(e.Date)}]; ok {
			e.FxRate = rate
		}
	}
	return warnings
}

// reconcileTrades inserts trades not already in history. A duplicate whose
// persisted fxRate is still the unresolved sentinel picks up a genuinely
// resolved rate in place.
func (s *Service) reconcileTrades(ctx context.Context, portfolio, importID string, trades []*models.Trade) (inserted, backfilled int, err error) {
	existing, err := s.storage.TradeStore().ListTrades(ctx, portfolio)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load trade history: %w", err)
	}
	byKey := make(map[string]*models.Trade, len(existing))
	for _, t := range existing {
		byKey[t.DedupKey()] = t
	}

	now := time.Now()
	var fresh []*models.Trade
	for _, t := range trades {
		if prior, ok := byKey[t.DedupKey()]; ok {
			if prior.FxRate == 1 && t.FxRate != 1 {
				if err := s.storage.TradeStore().UpdateTradeFxRate(ctx, prior.ID, t.FxRate); err != nil {
					return 0, 0, fmt.Errorf("failed to back-fill fx rate: %w", err)
				}
				backfilled++
			}
			continue
		}
		t.ID = uuid.NewString()
		t.Portfolio = portfolio
		t.ImportID = importID
		t.CreatedAt = now
		fresh = append(fresh, t)
		byKey[t.DedupKey()] = t
	}

	if len(fresh) > 0 {
		if err := s.storage.TradeStore().UpsertTrades(ctx, fresh); err != nil {
			return 0, 0, fmt.Errorf("failed to persist trades: %w", err)
		}
	}
	return len(fresh), backfilled, nil
}

func (s *Service) reconcileIncome(ctx context.Context, portfolio, importID string, income []*models.IncomeEvent) (int, error) {
	existing, err := s.storage.IncomeStore().ListIncome(ctx, portfolio)
	if err != nil {
		return 0, fmt.Errorf("failed to load income history: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, e := range existing {
		seen[e.DedupKey()] = true
	}

	now := time.Now()
	var fresh []*models.IncomeEvent
	for _, e := range income {
		if seen[e.DedupKey()] {
			continue
		}
		e.ID = uuid.NewString()
		e.Portfolio = portfolio
		e.ImportID = importID
		e.CreatedAt = now
		fresh = append(fresh, e)
		seen[e.DedupKey()] = true
	}

	if len(fresh) > 0 {
		if err := s.storage.IncomeStore().UpsertIncome(ctx, fresh); err != nil {
			return 0, fmt.Errorf("failed to persist income: %w", err)
		}
	}
	return len(fresh), nil
}

// DeleteImport removes an import row, cascades to its trades and income
// events, and recomputes positions from what remains.
func (s *Service) DeleteImport(ctx context.Context, importID string) (*models.RecomputeResult, error) {
	imp, err := s.storage.ImportStore().GetImport(ctx, importID)
	if err != nil {
		return nil, fmt.Errorf("import %s not found: %w", importID, err)
	}

	tradesDeleted, err := s.storage.TradeStore().DeleteByImport(ctx, importID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete trades for import: %w", err)
	}
	incomeDeleted, err := s.storage.IncomeStore().DeleteByImport(ctx, importID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete income for import: %w", err)
	}
	if err := s.storage.ImportStore().DeleteImport(ctx, importID); err != nil {
		return nil, fmt.Errorf("failed to delete import row: %w", err)
	}

	s.logger.Info().
		Str("import_id", importID).
		Str("portfolio", imp.Portfolio).
		Int("trades_deleted", tradesDeleted).
		Int("income_deleted", incomeDeleted).
		Msg("Import deleted")

	return s.ledger.RecomputePositions(ctx, imp.Portfolio)
}

// DeleteTrade removes a single trade row and recomputes positions.
func (s *Service) DeleteTrade(ctx context.Context, tradeID string) (*models.RecomputeResult, error) {
	trade, err := s.storage.TradeStore().GetTrade(ctx, tradeID)
	if err != nil {
		return nil, fmt.Errorf("trade %s not found: %w", tradeID, err)
	}
	if err := s.storage.TradeStore().DeleteTrade(ctx, tradeID); err != nil {
		return nil, fmt.Errorf("failed to delete trade: %w", err)
	}
	return s.ledger.RecomputePositions(ctx, trade.Portfolio)
}

// crossCheck compares broker-precomputed realized totals against the folded
// positions. Advisory only: divergence is logged, never an error.
func (s *Service) crossCheck(ctx context.Context, portfolio string, performance []models.BrokerPerformance) {
	if len(performance) == 0 {
		return
	}
	positions, err := s.storage.PositionStore().ListPositions(ctx, portfolio)
	if err != nil {
		return
	}
	bySymbol := make(map[string]*models.Position, len(positions))
	for _, p := range positions {
		bySymbol[p.Symbol] = p
	}

	for _, perf := range performance {
		pos, ok := bySymbol[perf.Symbol]
		if !ok {
			continue
		}
		diff := pos.RealizedPnlBase.Sub(perf.RealizedTotal).Abs()
		allowed := perf.RealizedTotal.Abs().Mul(crossCheckTolerance)
		if diff.GreaterThan(allowed) && diff.GreaterThan(decimal.NewFromInt(1)) {
			s.logger.Warn().
				Str("symbol", perf.Symbol).
				Str("broker_realized", perf.RealizedTotal.StringFixed(2)).
				Str("ledger_realized", pos.RealizedPnlBase.StringFixed(2)).
				Msg("Broker performance summary diverges from ledger")
		}
	}
}

// buildImport assembles the audit row for one upload, covering the min/max
// date range across all parsed rows.
func buildImport(portfolio, filename string, trades []*models.Trade, income []*models.IncomeEvent) *models.Import {
	imp := &models.Import{
		ID:            uuid.NewString(),
		Portfolio:     portfolio,
		Filename:      filename,
		TradeCount:    len(trades),
		DividendCount: len(income),
		CreatedAt:     time.Now(),
	}

	observe := func(date time.Time) {
		if imp.StatementStart.IsZero() || date.Before(imp.StatementStart) {
			imp.StatementStart = date
		}
		if date.After(imp.StatementEnd) {
			imp.StatementEnd = date
		}
	}
	for _, t := range trades {
		observe(t.TradeDate)
	}
	for _, e := range income {
		observe(e.Date)
	}
	return imp
}

func day(t time.Time) time.Time {
	return t.Truncate(24 * time.Hour)
}

// Ensure Service implements IngestService
var _ interfaces.IngestService = (*Service)(nil)
