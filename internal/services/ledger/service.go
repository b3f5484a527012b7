package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// Service owns the derived Position table. The fold itself is pure; the
// serialization point lives here at the persistence boundary, so two
// concurrent recomputes for one portfolio cannot interleave the destructive
// delete-then-insert of Position rows.
type Service struct {
	storage      interfaces.StorageManager
	baseCurrency string
	logger       *common.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex // keyed by portfolio
}

// NewService creates a new ledger service
func NewService(storage interfaces.StorageManager, baseCurrency string, logger *common.Logger) *Service {
	return &Service{
		storage:      storage,
		baseCurrency: baseCurrency,
		logger:       logger,
		locks:        make(map[string]*sync.Mutex),
	}
}

// RecomputePositions folds the portfolio's entire persisted trade history
// into fresh Position rows. Always a full fold: a back-filled fxRate on an
// old trade can retroactively change average cost and realized P&L, so
// incremental patching is never correct.
func (s *Service) RecomputePositions(ctx context.Context, portfolio string) (*models.RecomputeResult, error) {
	lock := s.portfolioLock(portfolio)
	lock.Lock()
	defer lock.Unlock()

	trades, err := s.storage.TradeStore().ListTrades(ctx, portfolio)
	if err != nil {
		return nil, fmt.Errorf("failed to load trades: %w", err)
	}

	result, err := Fold(trades, s.baseCurrency)
	if err != nil {
		// Invariant violation: leave the existing Position table untouched.
		return nil, fmt.Errorf("fold failed: %w", err)
	}

	positions := result.PositionList()
	for _, pos := range positions {
		pos.Portfolio = portfolio
	}

	if err := s.storage.PositionStore().DeletePositions(ctx, portfolio); err != nil {
		return nil, fmt.Errorf("failed to delete positions: %w", err)
	}
	if err := s.storage.PositionStore().InsertPositions(ctx, positions); err != nil {
		return nil, fmt.Errorf("failed to insert positions: %w", err)
	}

	s.logger.Info().
		Str("portfolio", portfolio).
		Int("trades", len(trades)).
		Int("positions", len(positions)).
		Str("realized_pnl_base", result.TotalRealizedPnlBase.StringFixed(2)).
		Msg("Positions recomputed")

	return &models.RecomputeResult{
		PositionsUpdated:     len(positions),
		TotalRealizedPnl:     result.TotalRealizedPnl,
		TotalRealizedPnlBase: result.TotalRealizedPnlBase,
	}, nil
}

func (s *Service) portfolioLock(portfolio string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[portfolio]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[portfolio] = lock
	}
	return lock
}

// Ensure Service implements LedgerService
var _ interfaces.LedgerService = (*Service)(nil)
