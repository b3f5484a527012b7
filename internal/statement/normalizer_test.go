package statement

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/folio/internal/models"
)

func extract(t *testing.T, raw string) *models.Statement {
	t.Helper()
	st, err := Extract([]byte(raw))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	return st
}

func TestNormalizer_Trades(t *testing.T) {
	st := extract(t, sampleStatement)
	trades, warnings := NewNormalizer("Stocks").Trades(st)

	if len(warnings) != 0 {
		t.Errorf("Unexpected warnings: %v", warnings)
	}
	if len(trades) != 2 {
		t.Fatalf("Trades = %d, want 2", len(trades))
	}

	buy := trades[0]
	if buy.Action != models.ActionBuy {
		t.Errorf("Action = %s, want BUY", buy.Action)
	}
	if !buy.Quantity.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Quantity = %s, want 10", buy.Quantity)
	}
	if !buy.Price.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Price = %s, want 100", buy.Price)
	}
	if !buy.Commission.Equal(decimal.NewFromInt(1)) {
		t.Errorf("Commission = %s, want 1 (stored positive)", buy.Commission)
	}
	if buy.TradeDate.Format("2006-01-02") != "2024-03-15" {
		t.Errorf("TradeDate = %s, want 2024-03-15", buy.TradeDate.Format("2006-01-02"))
	}
	if buy.FxRate != 1 {
		t.Errorf("FxRate = %v, want sentinel 1", buy.FxRate)
	}

	sell := trades[1]
	if sell.Action != models.ActionSell {
		t.Errorf("Action = %s, want SELL", sell.Action)
	}
	// Quantity is always positive; the action carries the sign.
	if !sell.Quantity.Equal(decimal.NewFromInt(5)) {
		t.Errorf("Quantity = %s, want 5", sell.Quantity)
	}
	if !sell.RealizedPnl.Equal(decimal.NewFromFloat(98.5)) {
		t.Errorf("RealizedPnl = %s, want 98.5", sell.RealizedPnl)
	}

	if buy.RowOrder >= sell.RowOrder {
		t.Errorf("RowOrder not increasing: %d vs %d", buy.RowOrder, sell.RowOrder)
	}
}

func TestNormalizer_TradesAssetClassFilter(t *testing.T) {
	raw := `Trades,Header,DataDiscriminator,Asset Category,Currency,Symbol,Date/Time,Quantity,T. Price,C. Price,Proceeds,Comm/Fee,Basis,Realized P/L,MTM P/L,Code
Trades,Data,Order,Stocks,USD,AAPL,"2024-03-15, 09:30:00",10,100,100,-1000,-1,1001,0,0,O
Trades,Data,Order,Forex,USD,EUR.USD,"2024-03-15, 09:31:00",1000,1.08,1.08,-1080,-2,1082,0,0,O
`
	trades, _ := NewNormalizer("Stocks").Trades(extract(t, raw))
	if len(trades) != 1 {
		t.Fatalf("Trades = %d, want 1 (Forex row dropped)", len(trades))
	}
	if trades[0].Symbol != "AAPL" {
		t.Errorf("Symbol = %s, want AAPL", trades[0].Symbol)
	}
}

func TestNormalizer_TradesThousandsSeparators(t *testing.T) {
	raw := `Trades,Header,DataDiscriminator,Asset Category,Currency,Symbol,Date/Time,Quantity,T. Price,C. Price,Proceeds,Comm/Fee,Basis,Realized P/L,MTM P/L,Code
Trades,Data,Order,Stocks,USD,VTI,"2024-01-05, 12:00:00","1,500",243.50,243.50,"-365,250","-3.50","365,253.50",0,0,O
`
	trades, warnings := NewNormalizer("Stocks").Trades(extract(t, raw))
	if len(warnings) != 0 {
		t.Errorf("Unexpected warnings: %v", warnings)
	}
	if len(trades) != 1 {
		t.Fatalf("Trades = %d, want 1", len(trades))
	}
	if !trades[0].Quantity.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("Quantity = %s, want 1500", trades[0].Quantity)
	}
	if !trades[0].CostBasis.Equal(decimal.NewFromFloat(365253.50)) {
		t.Errorf("CostBasis = %s, want 365253.50", trades[0].CostBasis)
	}
}

func TestNormalizer_TradesBadDateWarns(t *testing.T) {
	raw := `Trades,Header,DataDiscriminator,Asset Category,Currency,Symbol,Date/Time,Quantity,T. Price,C. Price,Proceeds,Comm/Fee,Basis,Realized P/L,MTM P/L,Code
Trades,Data,Order,Stocks,USD,AAPL,not-a-date,10,100,100,-1000,-1,1001,0,0,O
Trades,Data,Order,Stocks,USD,MSFT,"2024-03-15, 09:30:00",10,300,300,-3000,-1,3001,0,0,O
`
	trades, warnings := NewNormalizer("Stocks").Trades(extract(t, raw))
	if len(trades) != 1 {
		t.Fatalf("Trades = %d, want 1", len(trades))
	}
	if len(warnings) != 1 {
		t.Fatalf("Warnings = %v, want one for the bad date", warnings)
	}
}

func TestNormalizer_TradesUnparsableNumbersSkippedSilently(t *testing.T) {
	raw := `Trades,Header,DataDiscriminator,Asset Category,Currency,Symbol,Date/Time,Quantity,T. Price,C. Price,Proceeds,Comm/Fee,Basis,Realized P/L,MTM P/L,Code
Trades,Data,Order,Stocks,USD,AAPL,"2024-03-15, 09:30:00",--,100,100,-1000,-1,1001,0,0,O
`
	trades, warnings := NewNormalizer("Stocks").Trades(extract(t, raw))
	if len(trades) != 0 {
		t.Fatalf("Trades = %d, want 0", len(trades))
	}
	if len(warnings) != 0 {
		t.Errorf("Unparsable quantity should skip silently, got %v", warnings)
	}
}

func TestNormalizer_TradesParentheticalNegative(t *testing.T) {
	raw := `Trades,Header,DataDiscriminator,Asset Category,Currency,Symbol,Date/Time,Quantity,T. Price,C. Price,Proceeds,Comm/Fee,Basis,Realized P/L,MTM P/L,Code
Trades,Data,Order,Stocks,USD,AAPL,"2024-04-10, 10:00:00",(5),120,120,600,(1),-500.5,98.5,0,C
`
	trades, _ := NewNormalizer("Stocks").Trades(extract(t, raw))
	if len(trades) != 1 {
		t.Fatalf("Trades = %d, want 1", len(trades))
	}
	if trades[0].Action != models.ActionSell {
		t.Errorf("Action = %s, want SELL from parenthesized quantity", trades[0].Action)
	}
	if !trades[0].Commission.Equal(decimal.NewFromInt(1)) {
		t.Errorf("Commission = %s, want 1", trades[0].Commission)
	}
}

func TestNormalizer_Income(t *testing.T) {
	raw := `Dividends,Header,Currency,Date,Description,Amount
Dividends,Data,USD,2024-05-01,AAPL(US0378331005) Cash Dividend USD 0.24 per Share,2.40
Dividends,Data,Total in USD,,,2.40
Interest,Header,Currency,Date,Description,Amount
Interest,Data,USD,2024-05-31,USD Credit Interest for May-2024,0.52
Withholding Tax,Header,Currency,Date,Description,Amount
Withholding Tax,Data,USD,2024-05-01,AAPL(US0378331005) Cash Dividend - US Tax,(0.36)
`
	events, warnings := NewNormalizer("Stocks").Income(extract(t, raw))
	if len(warnings) != 0 {
		t.Errorf("Unexpected warnings: %v", warnings)
	}
	if len(events) != 3 {
		t.Fatalf("Events = %d, want 3", len(events))
	}

	dividend := events[0]
	if dividend.IncomeType != "dividend" {
		t.Errorf("IncomeType = %s, want dividend", dividend.IncomeType)
	}
	if dividend.Symbol != "AAPL" {
		t.Errorf("Symbol = %s, want AAPL from description", dividend.Symbol)
	}
	if !dividend.Amount.Equal(decimal.NewFromFloat(2.40)) {
		t.Errorf("Amount = %s, want 2.40", dividend.Amount)
	}

	interest := events[1]
	if interest.IncomeType != "interest" {
		t.Errorf("IncomeType = %s, want interest", interest.IncomeType)
	}
	if interest.Symbol != "" {
		t.Errorf("Symbol = %q, want empty for interest", interest.Symbol)
	}

	tax := events[2]
	if tax.IncomeType != "withholding_tax" {
		t.Errorf("IncomeType = %s, want withholding_tax", tax.IncomeType)
	}
	if !tax.Amount.Equal(decimal.NewFromFloat(-0.36)) {
		t.Errorf("Amount = %s, want -0.36", tax.Amount)
	}
}

func TestNormalizer_Performance(t *testing.T) {
	raw := `Realized & Unrealized Performance Summary,Header,Asset Category,Symbol,Cost Adj.,Realized S/T Profit,Realized S/T Loss,Realized L/T Profit,Realized L/T Loss,Realized Total,Unrealized S/T Profit,Unrealized S/T Loss,Unrealized L/T Profit,Unrealized L/T Loss,Unrealized Total,Total,Code
Realized & Unrealized Performance Summary,Data,Stocks,AAPL,0,120,-21.5,0,0,98.5,55,0,0,0,55,153.5,
Realized & Unrealized Performance Summary,Data,Stocks,Total,0,120,-21.5,0,0,98.5,55,0,0,0,55,153.5,
`
	results := NewNormalizer("Stocks").Performance(extract(t, raw))
	if len(results) != 1 {
		t.Fatalf("Results = %d, want 1 (Total row dropped)", len(results))
	}
	if results[0].Symbol != "AAPL" {
		t.Errorf("Symbol = %s, want AAPL", results[0].Symbol)
	}
	if !results[0].RealizedTotal.Equal(decimal.NewFromFloat(98.5)) {
		t.Errorf("RealizedTotal = %s, want 98.5", results[0].RealizedTotal)
	}
	if !results[0].UnrealizedTotal.Equal(decimal.NewFromInt(55)) {
		t.Errorf("UnrealizedTotal = %s, want 55", results[0].UnrealizedTotal)
	}
}

func TestSymbolFromDescription(t *testing.T) {
	cases := []struct {
		description string
		want        string
	}{
		{"AAPL(US0378331005) Cash Dividend USD 0.24 per Share", "AAPL"},
		{"BRK.B(US0846707026) Cash Dividend", "BRK.B"},
		{"USD Credit Interest for May-2024", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := symbolFromDescription(c.description); got != c.want {
			t.Errorf("symbolFromDescription(%q) = %q, want %q", c.description, got, c.want)
		}
	}
}

func TestParseTradeDate(t *testing.T) {
	got, err := parseTradeDate("2024-03-15, 09:30:00")
	if err != nil {
		t.Fatalf("parseTradeDate failed: %v", err)
	}
	if got.Format("2006-01-02") != "2024-03-15" {
		t.Errorf("Date = %s, want 2024-03-15", got.Format("2006-01-02"))
	}

	if _, err := parseTradeDate(""); err == nil {
		t.Error("Expected error for empty date")
	}
	if _, err := parseTradeDate("15/03/2024"); err == nil {
		t.Error("Expected error for unknown date layout")
	}
}
