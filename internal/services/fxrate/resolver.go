// Package fxrate resolves historical FX rates for (currency, date) pairs.
package fxrate

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// Fetch a few days either side of the requested range so weekend and holiday
// dates still find a neighboring observation.
const rangePadding = 7 * 24 * time.Hour

// Resolver resolves (currency, date) pairs to rates into the base currency,
// preferring the persisted cache and falling back to the market-data client.
// The cache is constructor-injected so tests can exercise cold and warm paths.
type Resolver struct {
	baseCurrency string
	cache        interfaces.FxRateStore
	market       interfaces.MarketDataClient
	logger       *common.Logger
}

// NewResolver creates a resolver converting into baseCurrency.
func NewResolver(baseCurrency string, cache interfaces.FxRateStore, market interfaces.MarketDataClient, logger *common.Logger) *Resolver {
	return &Resolver{
		baseCurrency: strings.ToUpper(baseCurrency),
		cache:        cache,
		market:       market,
		logger:       logger,
	}
}

// Resolve returns a rate for each resolvable request. Same-currency pairs
// resolve to 1 without any lookup. Requests the provider cannot satisfy are
// omitted from the result; callers fall back to the sentinel rate of 1.
func (r *Resolver) Resolve(ctx context.Context, requests []interfaces.FxRequest) (map[interfaces.FxRequest]float64, error) {
	results := make(map[interfaces.FxRequest]float64, len(requests))

	// Normalize and dedupe, splitting cache misses per currency.
	missesByCurrency := make(map[string][]interfaces.FxRequest)
	seen := make(map[interfaces.FxRequest]bool)

	for _, req := range requests {
		req.Currency = strings.ToUpper(req.Currency)
		req.Date = req.Date.Truncate(24 * time.Hour)
		if seen[req] {
			continue
		}
		seen[req] = true

		if req.Currency == r.baseCurrency {
			results[req] = 1
			continue
		}

		rate, ok, err := r.cache.LookupRate(ctx, req.Currency, r.baseCurrency, req.Date)
		if err != nil {
			r.logger.Warn().Err(err).Str("currency", req.Currency).Msg("FX cache lookup failed")
		}
		if ok {
			results[req] = rate
			continue
		}
		missesByCurrency[req.Currency] = append(missesByCurrency[req.Currency], req)
	}

	if len(missesByCurrency) == 0 {
		return results, nil
	}

	// One time-series fetch per distinct currency, fetched concurrently.
	// Single attempt, fail-soft: an unresolvable currency is simply absent
	// from the result map.
	var wg sync.WaitGroup
	var mu sync.Mutex

	for currency, reqs := range missesByCurrency {
		wg.Add(1)
		go func(currency string, reqs []interfaces.FxRequest) {
			defer wg.Done()

			resolved := r.fetchCurrency(ctx, currency, reqs)

			mu.Lock()
			for req, rate := range resolved {
				results[req] = rate
			}
			mu.Unlock()
		}(currency, reqs)
	}
	wg.Wait()

	return results, ctx.Err()
}

// fetchCurrency fetches one contiguous daily series covering the requested
// dates and matches each date to the closest available observation.
func (r *Resolver) fetchCurrency(ctx context.Context, currency string, reqs []interfaces.FxRequest) map[interfaces.FxRequest]float64 {
	from, to := reqs[0].Date, reqs[0].Date
	for _, req := range reqs[1:] {
		if req.Date.Before(from) {
			from = req.Date
		}
		if req.Date.After(to) {
			to = req.Date
		}
	}

	ticker := models.ForexTicker(currency, r.baseCurrency)
	series, err := r.market.GetEOD(ctx, ticker,
		interfaces.WithDateRange(from.Add(-rangePadding), to.Add(rangePadding)),
		interfaces.WithOrder("a"))
	if err != nil {
		r.logger.Warn().Err(err).Str("ticker", ticker).Msg("FX series fetch failed")
		return nil
	}
	if len(series.Data) == 0 {
		r.logger.Warn().Str("ticker", ticker).Msg("FX series returned no observations")
		return nil
	}

	resolved := make(map[interfaces.FxRequest]float64, len(reqs))
	for _, req := range reqs {
		bar, ok := closestBar(series.Data, req.Date)
		if !ok || bar.Close <= 0 {
			continue
		}
		resolved[req] = bar.Close

		if err := r.cache.CacheRate(ctx, &models.HistoricalFxRate{
			Date:         req.Date,
			FromCurrency: currency,
			ToCurrency:   r.baseCurrency,
			Rate:         bar.Close,
		}); err != nil {
			r.logger.Warn().Err(err).Str("currency", currency).Msg("Failed to cache FX rate")
		}
	}

	r.logger.Debug().
		Str("currency", currency).
		Int("requested", len(reqs)).
		Int("resolved", len(resolved)).
		Msg("FX rates resolved")

	return resolved
}

// closestBar selects the observation with the smallest absolute day distance
// to the target date, tolerating weekends and holidays with no FX quote.
func closestBar(bars []models.EODBar, target time.Time) (models.EODBar, bool) {
	best := -1
	bestDistance := math.MaxFloat64
	for i, bar := range bars {
		distance := math.Abs(bar.Date.Sub(target).Hours() / 24)
		if distance < bestDistance {
			best = i
			bestDistance = distance
		}
	}
	if best < 0 {
		return models.EODBar{}, false
	}
	return bars[best], true
}
