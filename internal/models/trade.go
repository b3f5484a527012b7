// Package models defines data structures for Folio
package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TradeAction indicates the direction of a trade
type TradeAction string

const (
	ActionBuy  TradeAction = "BUY"
	ActionSell TradeAction = "SELL"
)

// Trade represents a single executed fill parsed from an activity statement.
// Rows are immutable once persisted except FxRate, which is back-filled when a
// historical rate becomes resolvable.
type Trade struct {
	ID          string          `json:"id"`
	Portfolio   string          `json:"portfolio"`
	TradeDate   time.Time       `json:"trade_date"`
	SettleDate  *time.Time      `json:"settle_date,omitempty"`
	Symbol      string          `json:"symbol"`
	Description string          `json:"description,omitempty"`
	AssetClass  string          `json:"asset_class"`
	Action      TradeAction     `json:"action"`
	Quantity    decimal.Decimal `json:"quantity"` // always positive; Action carries the sign
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	FxRate      float64         `json:"fx_rate"` // native → base; 1 means unresolved or same-currency
	Proceeds    decimal.Decimal `json:"proceeds,omitempty"`
	CostBasis   decimal.Decimal `json:"cost_basis,omitempty"`
	RealizedPnl decimal.Decimal `json:"realized_pnl,omitempty"` // broker-reported, native currency, SELL rows
	Commission  decimal.Decimal `json:"commission"`             // stored positive
	Fees        decimal.Decimal `json:"fees"`
	RowOrder    int             `json:"row_order"` // statement row index; stabilizes same-date ordering
	ImportID    string          `json:"import_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// DedupKey identifies a trade across imports. Re-uploading a statement that
// contains the same fill yields the same key.
func (t *Trade) DedupKey() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s",
		t.TradeDate.Format("2006-01-02"), t.Symbol, t.Action,
		t.Quantity.String(), t.Price.String())
}

// IncomeEvent represents a dividend or interest payment. Purely informational:
// it never mutates position or P&L state.
type IncomeEvent struct {
	ID          string          `json:"id"`
	Portfolio   string          `json:"portfolio"`
	Date        time.Time       `json:"date"`
	Symbol      string          `json:"symbol,omitempty"`
	Description string          `json:"description"`
	IncomeType  string          `json:"income_type"` // dividend, interest, withholding_tax
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	FxRate      float64         `json:"fx_rate"`
	ImportID    string          `json:"import_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// DedupKey identifies an income event across imports.
func (e *IncomeEvent) DedupKey() string {
	return fmt.Sprintf("%s|%s|%s|%s",
		e.Date.Format("2006-01-02"), e.Symbol, e.IncomeType, e.Amount.String())
}

// Position is the derived weighted-average-cost state for one symbol. Fully
// owned by the ledger: deleted and rebuilt wholesale on every recompute.
type Position struct {
	Portfolio       string          `json:"portfolio"`
	Symbol          string          `json:"symbol"`
	Quantity        decimal.Decimal `json:"quantity"` // signed net open shares; negative for shorts
	AvgCost         decimal.Decimal `json:"avg_cost"` // native currency per share
	Currency        string          `json:"currency"`
	TotalCost       decimal.Decimal `json:"total_cost"`      // native
	TotalCostBase   decimal.Decimal `json:"total_cost_base"` // base currency
	RealizedPnl     decimal.Decimal `json:"realized_pnl"`    // cumulative, native
	RealizedPnlBase decimal.Decimal `json:"realized_pnl_base"`
	AvgFxRate       decimal.Decimal `json:"avg_fx_rate"` // quantity-weighted rate behind the open cost basis
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Import is the audit row written once per statement upload. Deleting an
// import cascades to its trades and income events and forces a recompute.
type Import struct {
	ID             string    `json:"id"`
	Portfolio      string    `json:"portfolio"`
	Filename       string    `json:"filename"`
	StatementStart time.Time `json:"statement_start"`
	StatementEnd   time.Time `json:"statement_end"`
	TradeCount     int       `json:"trade_count"`
	DividendCount  int       `json:"dividend_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// HistoricalFxRate caches one resolved daily rate. Unique per
// (date, from, to) triple; write-once then updatable.
type HistoricalFxRate struct {
	Date         time.Time `json:"date"`
	FromCurrency string    `json:"from_currency"`
	ToCurrency   string    `json:"to_currency"`
	Rate         float64   `json:"rate"`
}

// Key returns the cache identity for the (date, from, to) triple.
func (r *HistoricalFxRate) Key() string {
	return FxRateKey(r.FromCurrency, r.ToCurrency, r.Date)
}

// FxRateKey builds the cache identity used by HistoricalFxRate.Key.
func FxRateKey(from, to string, date time.Time) string {
	return fmt.Sprintf("%s:%s:%s", from, to, date.Format("2006-01-02"))
}

// BrokerPerformance carries the broker-precomputed realized/unrealized totals
// from the performance summary section, already in the base currency.
// Advisory cross-check values only, never an input to the ledger fold.
type BrokerPerformance struct {
	Symbol          string          `json:"symbol"`
	RealizedTotal   decimal.Decimal `json:"realized_total"`
	UnrealizedTotal decimal.Decimal `json:"unrealized_total"`
}

// IngestResult summarizes one statement ingestion.
type IngestResult struct {
	ImportID             string              `json:"import_id"`
	TradesFound          int                 `json:"trades_found"`
	TradesInserted       int                 `json:"trades_inserted"`
	IncomeFound          int                 `json:"income_found"`
	IncomeInserted       int                 `json:"income_inserted"`
	PositionsUpdated     int                 `json:"positions_updated"`
	TotalRealizedPnlBase decimal.Decimal     `json:"total_realized_pnl_base"`
	BrokerPerformance    []BrokerPerformance `json:"broker_performance,omitempty"`
	Warnings             []string            `json:"warnings,omitempty"`
}

// RecomputeResult summarizes a full position recompute.
type RecomputeResult struct {
	PositionsUpdated     int             `json:"positions_updated"`
	TotalRealizedPnl     decimal.Decimal `json:"total_realized_pnl"`
	TotalRealizedPnlBase decimal.Decimal `json:"total_realized_pnl_base"`
}
