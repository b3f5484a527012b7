package fxrate

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
	testcommon "github.com/bobmcallan/folio/test/common"
)

func day(s string) time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return d
}

func newTestResolver(storage *testcommon.MemoryStorage, market *testcommon.MockMarketClient) *Resolver {
	return NewResolver("EUR", storage.FxRateStore(), market, common.NewSilentLogger())
}

func TestResolve_BaseCurrencyShortCircuits(t *testing.T) {
	storage := testcommon.NewMemoryStorage()
	market := testcommon.NewMockMarketClient()
	r := newTestResolver(storage, market)

	req := interfaces.FxRequest{Currency: "EUR", Date: day("2024-03-15")}
	results, err := r.Resolve(context.Background(), []interfaces.FxRequest{req})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if results[req] != 1 {
		t.Errorf("Rate = %v, want 1 for base currency", results[req])
	}
	if market.GetEODCalls != 0 {
		t.Errorf("GetEODCalls = %d, want 0", market.GetEODCalls)
	}
	if storage.FxLookupCalls != 0 {
		t.Errorf("FxLookupCalls = %d, want 0 (base currency skips the cache)", storage.FxLookupCalls)
	}
}

func TestResolve_CacheHitSkipsFetch(t *testing.T) {
	storage := testcommon.NewMemoryStorage()
	market := testcommon.NewMockMarketClient()
	r := newTestResolver(storage, market)

	storage.FxRateStore().CacheRate(context.Background(), &models.HistoricalFxRate{
		Date:         day("2024-03-15"),
		FromCurrency: "USD",
		ToCurrency:   "EUR",
		Rate:         0.92,
	})

	req := interfaces.FxRequest{Currency: "USD", Date: day("2024-03-15")}
	results, err := r.Resolve(context.Background(), []interfaces.FxRequest{req})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if results[req] != 0.92 {
		t.Errorf("Rate = %v, want 0.92 from cache", results[req])
	}
	if market.GetEODCalls != 0 {
		t.Errorf("GetEODCalls = %d, want 0 on cache hit", market.GetEODCalls)
	}
}

func TestResolve_ColdFetchPopulatesCache(t *testing.T) {
	storage := testcommon.NewMemoryStorage()
	market := testcommon.NewMockMarketClient()
	market.SetBars("USDEUR.FOREX", testcommon.Bar("2024-03-15", 0.92))
	r := newTestResolver(storage, market)

	req := interfaces.FxRequest{Currency: "USD", Date: day("2024-03-15")}
	results, err := r.Resolve(context.Background(), []interfaces.FxRequest{req})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if results[req] != 0.92 {
		t.Errorf("Rate = %v, want 0.92", results[req])
	}
	if market.GetEODCalls != 1 {
		t.Errorf("GetEODCalls = %d, want 1", market.GetEODCalls)
	}

	// Second resolver over the same store must answer from cache.
	market2 := testcommon.NewMockMarketClient()
	r2 := newTestResolver(storage, market2)
	results, err = r2.Resolve(context.Background(), []interfaces.FxRequest{req})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if results[req] != 0.92 {
		t.Errorf("Rate = %v, want 0.92 from warm cache", results[req])
	}
	if market2.GetEODCalls != 0 {
		t.Errorf("GetEODCalls = %d, want 0 on warm cache", market2.GetEODCalls)
	}
}

func TestResolve_WeekendUsesClosestObservation(t *testing.T) {
	storage := testcommon.NewMemoryStorage()
	market := testcommon.NewMockMarketClient()
	// 2024-03-16 is a Saturday; the Friday close is the nearest quote.
	market.SetBars("USDEUR.FOREX",
		testcommon.Bar("2024-03-15", 0.92),
		testcommon.Bar("2024-03-18", 0.93),
	)
	r := newTestResolver(storage, market)

	req := interfaces.FxRequest{Currency: "USD", Date: day("2024-03-16")}
	results, err := r.Resolve(context.Background(), []interfaces.FxRequest{req})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if results[req] != 0.92 {
		t.Errorf("Rate = %v, want 0.92 from the Friday bar", results[req])
	}
}

func TestResolve_OneFetchPerCurrency(t *testing.T) {
	storage := testcommon.NewMemoryStorage()
	market := testcommon.NewMockMarketClient()
	market.SetBars("USDEUR.FOREX",
		testcommon.Bar("2024-01-05", 0.91),
		testcommon.Bar("2024-02-05", 0.92),
		testcommon.Bar("2024-03-05", 0.93),
	)
	market.SetBars("GBPEUR.FOREX", testcommon.Bar("2024-01-05", 1.16))
	r := newTestResolver(storage, market)

	requests := []interfaces.FxRequest{
		{Currency: "USD", Date: day("2024-01-05")},
		{Currency: "USD", Date: day("2024-02-05")},
		{Currency: "USD", Date: day("2024-03-05")},
		{Currency: "GBP", Date: day("2024-01-05")},
	}
	results, err := r.Resolve(context.Background(), requests)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(results) != 4 {
		t.Errorf("Resolved = %d, want 4", len(results))
	}
	if market.GetEODCalls != 2 {
		t.Errorf("GetEODCalls = %d, want 2 (one series per currency)", market.GetEODCalls)
	}
}

func TestResolve_DuplicateRequestsCollapse(t *testing.T) {
	storage := testcommon.NewMemoryStorage()
	market := testcommon.NewMockMarketClient()
	market.SetBars("USDEUR.FOREX", testcommon.Bar("2024-03-15", 0.92))
	r := newTestResolver(storage, market)

	req := interfaces.FxRequest{Currency: "USD", Date: day("2024-03-15")}
	requests := []interfaces.FxRequest{req, req, {Currency: "usd", Date: day("2024-03-15")}}
	results, err := r.Resolve(context.Background(), requests)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("Resolved = %d, want 1 after dedup", len(results))
	}
	if results[req] != 0.92 {
		t.Errorf("Rate = %v, want 0.92", results[req])
	}
}

func TestResolve_ProviderFailureOmitsPair(t *testing.T) {
	storage := testcommon.NewMemoryStorage()
	market := testcommon.NewMockMarketClient()
	market.Err = fmt.Errorf("upstream unavailable")
	r := newTestResolver(storage, market)

	req := interfaces.FxRequest{Currency: "USD", Date: day("2024-03-15")}
	results, err := r.Resolve(context.Background(), []interfaces.FxRequest{req})
	if err != nil {
		t.Fatalf("Resolve must fail soft, got: %v", err)
	}
	if _, ok := results[req]; ok {
		t.Error("Unresolvable pair must be omitted from the result")
	}
	if market.GetEODCalls != 1 {
		t.Errorf("GetEODCalls = %d, want exactly one attempt", market.GetEODCalls)
	}
}

func TestResolve_EmptySeriesOmitsPair(t *testing.T) {
	storage := testcommon.NewMemoryStorage()
	market := testcommon.NewMockMarketClient()
	// No bars registered: the mock returns an empty series.
	r := newTestResolver(storage, market)

	req := interfaces.FxRequest{Currency: "CHF", Date: day("2024-03-15")}
	results, err := r.Resolve(context.Background(), []interfaces.FxRequest{req})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Resolved = %d, want 0", len(results))
	}
}
