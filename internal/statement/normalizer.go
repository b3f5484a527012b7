package statement

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/folio/internal/models"
)

// Normalizer converts extracted sections into typed records. It resolves
// columns by header name where a header row was captured, falling back to the
// fixed offsets of the known legacy export layout.
type Normalizer struct {
	assetClass string
}

// NewNormalizer creates a normalizer filtering trades to one asset class
// (e.g. "Stocks"). An empty assetClass defaults to "Stocks".
func NewNormalizer(assetClass string) *Normalizer {
	if assetClass == "" {
		assetClass = "Stocks"
	}
	return &Normalizer{assetClass: assetClass}
}

// Legacy fixed offsets for the Trades section:
// Trades,Header,DataDiscriminator,Asset Category,Currency,Symbol,Date/Time,
// Quantity,T. Price,C. Price,Proceeds,Comm/Fee,Basis,Realized P/L,MTM P/L,Code
var tradeOffsets = map[string]int{
	"DataDiscriminator": 2,
	"Asset Category":    3,
	"Currency":          4,
	"Symbol":            5,
	"Date/Time":         6,
	"Quantity":          7,
	"T. Price":          8,
	"Proceeds":          10,
	"Comm/Fee":          11,
	"Basis":             12,
	"Realized P/L":      13,
}

// Legacy fixed offsets shared by the Dividends, Interest and Withholding Tax
// sections: <Section>,Header,Currency,Date,Description,Amount
var incomeOffsets = map[string]int{
	"Currency":    2,
	"Date":        3,
	"Description": 4,
	"Amount":      5,
}

// Legacy fixed offsets for the performance summary section. The broker
// expresses these totals in the base currency already.
var performanceOffsets = map[string]int{
	"Asset Category":   2,
	"Symbol":           3,
	"Realized Total":   9,
	"Unrealized Total": 14,
}

// columns resolves field names to indices, preferring the captured header row.
type columns struct {
	byName   map[string]int
	fallback map[string]int
}

func newColumns(header []string, fallback map[string]int) *columns {
	c := &columns{fallback: fallback}
	if len(header) > 0 {
		c.byName = make(map[string]int, len(header))
		for i, name := range header {
			name = strings.TrimSpace(name)
			if name != "" {
				c.byName[name] = i
			}
		}
	}
	return c
}

// get returns the value of the named field in row, or "" when the field is
// absent under both the header schema and the legacy offsets.
func (c *columns) get(row []string, name string) string {
	if idx, ok := c.byName[name]; ok && idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	if idx, ok := c.fallback[name]; ok && idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}

// Trades normalizes the Trades section into typed trades. Rows outside the
// configured asset class are dropped; rows whose quantity or price fails to
// parse are skipped silently, since statements routinely contain metadata and
// summary rows that superficially resemble trade rows.
func (n *Normalizer) Trades(st *models.Statement) ([]*models.Trade, []string) {
	sec := st.Section(models.SectionTrades)
	if sec == nil {
		return nil, nil
	}

	cols := newColumns(sec.Header, tradeOffsets)
	var trades []*models.Trade
	var warnings []string

	for i, row := range sec.Rows {
		// Execution rows are tagged Order; SubTotal-like discriminators slip
		// into Data rows on some layouts.
		if d := cols.get(row, "DataDiscriminator"); d != "" && d != "Order" {
			continue
		}
		if ac := cols.get(row, "Asset Category"); ac != n.assetClass {
			continue
		}

		currency := cols.get(row, "Currency")
		symbol := cols.get(row, "Symbol")
		if currency == "" || symbol == "" {
			continue
		}

		tradeDate, err := parseTradeDate(cols.get(row, "Date/Time"))
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("trades row %d (%s): %v", i+1, symbol, err))
			continue
		}

		qty, err := parseNumber(cols.get(row, "Quantity"))
		if err != nil {
			continue
		}
		price, err := parseNumber(cols.get(row, "T. Price"))
		if err != nil || price.IsNegative() {
			continue
		}

		action := models.ActionBuy
		if qty.IsNegative() {
			action = models.ActionSell
		}

		// Commission is exported as a negative number meaning a cost.
		commission, _ := parseNumber(cols.get(row, "Comm/Fee"))
		proceeds, _ := parseNumber(cols.get(row, "Proceeds"))
		basis, _ := parseNumber(cols.get(row, "Basis"))
		realized, _ := parseNumber(cols.get(row, "Realized P/L"))

		trades = append(trades, &models.Trade{
			TradeDate:   tradeDate,
			Symbol:      symbol,
			AssetClass:  n.assetClass,
			Action:      action,
			Quantity:    qty.Abs(),
			Price:       price,
			Currency:    currency,
			FxRate:      1,
			Proceeds:    proceeds,
			CostBasis:   basis,
			RealizedPnl: realized,
			Commission:  commission.Abs(),
			RowOrder:    i,
		})
	}

	return trades, warnings
}

// Income normalizes the Dividends, Interest and Withholding Tax sections.
func (n *Normalizer) Income(st *models.Statement) ([]*models.IncomeEvent, []string) {
	var events []*models.IncomeEvent
	var warnings []string

	sections := []struct {
		name       string
		incomeType string
	}{
		{models.SectionDividends, "dividend"},
		{models.SectionInterest, "interest"},
		{models.SectionWithholdingTax, "withholding_tax"},
	}

	for _, s := range sections {
		sec := st.Section(s.name)
		if sec == nil {
			continue
		}
		cols := newColumns(sec.Header, incomeOffsets)

		for i, row := range sec.Rows {
			currency := cols.get(row, "Currency")
			// Per-currency subtotals appear as Data rows tagged "Total in ...".
			if currency == "" || strings.HasPrefix(currency, "Total") {
				continue
			}

			date, err := time.Parse("2006-01-02", cols.get(row, "Date"))
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("%s row %d: bad date %q", s.name, i+1, cols.get(row, "Date")))
				continue
			}

			amount, err := parseNumber(cols.get(row, "Amount"))
			if err != nil {
				continue
			}

			description := cols.get(row, "Description")
			events = append(events, &models.IncomeEvent{
				Date:        date,
				Symbol:      symbolFromDescription(description),
				Description: description,
				IncomeType:  s.incomeType,
				Amount:      amount,
				Currency:    currency,
				FxRate:      1,
			})
		}
	}

	return events, warnings
}

// Performance extracts the broker-precomputed realized/unrealized totals.
// Advisory cross-check values only, never an input to the ledger fold.
func (n *Normalizer) Performance(st *models.Statement) []models.BrokerPerformance {
	sec := st.Section(models.SectionPerformanceSummary)
	if sec == nil {
		return nil
	}

	cols := newColumns(sec.Header, performanceOffsets)
	var results []models.BrokerPerformance

	for _, row := range sec.Rows {
		if ac := cols.get(row, "Asset Category"); ac != "" && ac != n.assetClass {
			continue
		}
		symbol := cols.get(row, "Symbol")
		if symbol == "" || strings.HasPrefix(symbol, "Total") {
			continue
		}
		realized, err := parseNumber(cols.get(row, "Realized Total"))
		if err != nil {
			continue
		}
		unrealized, _ := parseNumber(cols.get(row, "Unrealized Total"))
		results = append(results, models.BrokerPerformance{
			Symbol:          symbol,
			RealizedTotal:   realized,
			UnrealizedTotal: unrealized,
		})
	}

	return results
}

// parseTradeDate derives the trade date from the combined date-time string
// ("2024-03-15, 09:30:00") by splitting on the first delimiter.
func parseTradeDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date/time")
	}
	datePart := s
	if idx := strings.IndexAny(s, ",;"); idx >= 0 {
		datePart = s[:idx]
	}
	t, err := time.Parse("2006-01-02", strings.TrimSpace(datePart))
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date/time %q", s)
	}
	return t, nil
}

// parseNumber parses a locale-formatted statement number: thousands
// separators are stripped and parenthesized values are negative.
func parseNumber(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty number")
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("bad number %q", s)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// symbolFromDescription pulls the leading ticker out of an income description
// like "AAPL(US0378331005) Cash Dividend USD 0.24 per Share". Returns "" when
// the description has no recognizable ticker(ISIN) prefix; interest lines like
// "USD Credit Interest" carry no symbol.
func symbolFromDescription(description string) string {
	idx := strings.Index(description, "(")
	if idx <= 0 {
		return ""
	}
	symbol := strings.TrimSpace(description[:idx])
	if symbol == "" {
		return ""
	}
	for _, r := range symbol {
		if !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') && r != '.' {
			return ""
		}
	}
	return symbol
}
