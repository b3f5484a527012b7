// Package ledger folds trade history into weighted-average-cost positions.
package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/folio/internal/models"
)

// FoldResult is the outcome of folding one portfolio's full trade history.
type FoldResult struct {
	Positions            map[string]*models.Position
	TotalRealizedPnl     decimal.Decimal // native-currency sum across symbols
	TotalRealizedPnlBase decimal.Decimal
}

// PositionList returns the positions sorted by symbol for deterministic output.
func (r *FoldResult) PositionList() []*models.Position {
	symbols := make([]string, 0, len(r.Positions))
	for symbol := range r.Positions {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	positions := make([]*models.Position, 0, len(symbols))
	for _, symbol := range symbols {
		positions = append(positions, r.Positions[symbol])
	}
	return positions
}

// Fold computes one Position per symbol using weighted-average cost, in both
// native and base currency, plus cumulative realized P&L.
//
// Fold is a pure function of the ordered input: trades must arrive ordered by
// (tradeDate, rowOrder), and two calls over the same slice produce identical
// output. Selling beyond the open quantity opens a short position carried at
// the sell price; buying beyond a short cover opens a fresh long the same way.
func Fold(trades []*models.Trade, baseCurrency string) (*FoldResult, error) {
	result := &FoldResult{Positions: make(map[string]*models.Position)}

	for _, t := range trades {
		pos := result.Positions[t.Symbol]
		if pos == nil {
			pos = &models.Position{
				Symbol:   t.Symbol,
				Currency: t.Currency,
			}
			result.Positions[t.Symbol] = pos
		}

		if err := apply(pos, t); err != nil {
			return nil, fmt.Errorf("symbol %s: %w", t.Symbol, err)
		}
	}

	now := time.Now()
	for _, symbol := range sortedSymbols(result.Positions) {
		pos := result.Positions[symbol]
		pos.UpdatedAt = now
		result.TotalRealizedPnl = result.TotalRealizedPnl.Add(pos.RealizedPnl)
		result.TotalRealizedPnlBase = result.TotalRealizedPnlBase.Add(pos.RealizedPnlBase)
	}

	return result, nil
}

// apply folds a single trade into the symbol's running position state.
func apply(pos *models.Position, t *models.Trade) error {
	fx := decimal.NewFromFloat(t.FxRate)
	signedQty := t.Quantity
	if t.Action == models.ActionSell {
		signedQty = signedQty.Neg()
	}

	// Quantity closed against the existing position: non-zero only when the
	// trade runs against the position's current direction.
	var closedQty decimal.Decimal
	if pos.Quantity.Sign() > 0 && t.Action == models.ActionSell {
		closedQty = decimal.Min(t.Quantity, pos.Quantity)
	} else if pos.Quantity.Sign() < 0 && t.Action == models.ActionBuy {
		closedQty = decimal.Min(t.Quantity, pos.Quantity.Neg())
	}

	if closedQty.Sign() > 0 {
		// Realized P&L crystallizes at the trade's own historical rate, not
		// the position's average.
		var realized decimal.Decimal
		if t.Action == models.ActionSell {
			realized = t.Price.Mul(closedQty).Sub(t.Commission).Sub(pos.AvgCost.Mul(closedQty))
		} else {
			realized = pos.AvgCost.Mul(closedQty).Sub(t.Price.Mul(closedQty)).Sub(t.Commission)
		}
		pos.RealizedPnl = pos.RealizedPnl.Add(realized)
		pos.RealizedPnlBase = pos.RealizedPnlBase.Add(realized.Mul(fx))

		// Reduce the basis by the closed fraction.
		fraction := closedQty.Div(pos.Quantity.Abs())
		pos.TotalCost = pos.TotalCost.Sub(pos.TotalCost.Mul(fraction))
		pos.TotalCostBase = pos.TotalCostBase.Sub(pos.TotalCostBase.Mul(fraction))

		pos.Quantity = pos.Quantity.Add(signedQty)

		if pos.Quantity.IsZero() {
			// Closing a position fully resets the lot basis.
			pos.AvgCost = decimal.Zero
			pos.TotalCost = decimal.Zero
			pos.TotalCostBase = decimal.Zero
			pos.AvgFxRate = decimal.Zero
			pos.Currency = t.Currency
			return nil
		}
		if excess := t.Quantity.Sub(closedQty); excess.Sign() > 0 {
			// The excess beyond the closed quantity flips the position: a
			// fresh basis opens at this trade's price. Commission was
			// consumed by the closing leg, so the new basis carries price
			// only.
			pos.TotalCost = pos.Quantity.Mul(t.Price)
			pos.TotalCostBase = pos.TotalCost.Mul(fx)
		}
	} else {
		// Opening or extending in the position's direction.
		cost := t.Quantity.Mul(t.Price)
		if t.Action == models.ActionBuy {
			cost = cost.Add(t.Commission)
		} else {
			// Short basis: commission reduces the proceeds locked in as basis.
			cost = cost.Sub(t.Commission)
		}
		if t.Action == models.ActionSell {
			cost = cost.Neg()
		}
		pos.TotalCost = pos.TotalCost.Add(cost)
		pos.TotalCostBase = pos.TotalCostBase.Add(cost.Mul(fx))
		pos.Quantity = pos.Quantity.Add(signedQty)
	}

	pos.Currency = t.Currency

	if pos.Quantity.IsZero() {
		pos.AvgCost = decimal.Zero
		pos.TotalCost = decimal.Zero
		pos.TotalCostBase = decimal.Zero
		pos.AvgFxRate = decimal.Zero
		return nil
	}

	pos.AvgCost = pos.TotalCost.Div(pos.Quantity)
	if pos.AvgCost.IsNegative() {
		return fmt.Errorf("ledger invariant violation: negative average cost %s", pos.AvgCost)
	}
	if !pos.TotalCost.IsZero() {
		pos.AvgFxRate = pos.TotalCostBase.Div(pos.TotalCost)
	}

	return nil
}

func sortedSymbols(positions map[string]*models.Position) []string {
	symbols := make([]string, 0, len(positions))
	for symbol := range positions {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}
