// Package interfaces defines service contracts for Folio
package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/folio/internal/models"
)

// IngestService turns raw statement bytes into reconciled ledger state.
type IngestService interface {
	// Ingest parses, normalizes, FX-resolves, dedups, persists and triggers a
	// full recompute. Row-level parse issues come back as warnings; extracting
	// zero trades and zero income rows is a hard failure.
	Ingest(ctx context.Context, portfolio, filename string, raw []byte) (*models.IngestResult, error)

	// DeleteImport removes an import row, cascades to its trades and income
	// events, and recomputes positions.
	DeleteImport(ctx context.Context, importID string) (*models.RecomputeResult, error)

	// DeleteTrade removes a single trade and recomputes positions.
	DeleteTrade(ctx context.Context, tradeID string) (*models.RecomputeResult, error)
}

// LedgerService owns the derived Position table.
type LedgerService interface {
	// RecomputePositions folds the portfolio's entire persisted trade history
	// into fresh Position rows. Always a full fold, never an incremental patch.
	RecomputePositions(ctx context.Context, portfolio string) (*models.RecomputeResult, error)
}

// FxResolver resolves (currency, date) pairs to rates into the base currency.
type FxResolver interface {
	// Resolve returns a rate for each resolvable request. Unresolvable pairs
	// are omitted from the result, never an error for the batch.
	Resolve(ctx context.Context, requests []FxRequest) (map[FxRequest]float64, error)
}

// FxRequest identifies one (currency, date) lookup. Date is truncated to the
// day in UTC so identical pairs collapse into one request.
type FxRequest struct {
	Currency string
	Date     time.Time
}
