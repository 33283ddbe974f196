package app

import (
	"context"
	"time"

	"github.com/finfolio/finfolio/internal/common"
	"github.com/finfolio/finfolio/internal/interfaces"
)

// startPriceScheduler sweeps all held symbols on a fixed interval,
// repopulating the price cache through the quote adapter. Provider pacing
// comes from the rate limiters inside the clients, so the sweep itself
// just iterates. Runs until ctx is cancelled.
func startPriceScheduler(ctx context.Context, holdings interfaces.HoldingStore, cache interfaces.PriceCache, quotes interfaces.QuoteService, logger *common.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Price scheduler: stopped")
			return
		case <-ticker.C:
			sweepPrices(ctx, holdings, cache, quotes, logger)
		}
	}
}

// sweepPrices runs one refresh pass. A failure to enumerate the held
// symbols aborts the whole sweep (retried at the next tick); a single
// symbol's fetch failure is logged and the sweep continues.
func sweepPrices(ctx context.Context, holdings interfaces.HoldingStore, cache interfaces.PriceCache, quotes interfaces.QuoteService, logger *common.Logger) {
	start := time.Now()

	symbols, err := holdings.DistinctSymbols(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Price sweep: symbol enumeration failed, aborting sweep")
		return
	}
	if len(symbols) == 0 {
		logger.Debug().Msg("Price sweep: no holdings to refresh")
		return
	}

	// Only refresh what is actually missing or stale.
	stale := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		if _, ok := cache.Read(ctx, sym, common.FreshnessQuote); !ok {
			stale = append(stale, sym)
		}
	}
	if len(stale) == 0 {
		logger.Debug().Int("symbols", len(symbols)).Msg("Price sweep: cache fresh, nothing to do")
		return
	}

	var refreshed, failed int
	if len(stale) > 1 {
		// Batch path amortizes provider latency; the adapter already
		// degrades per-symbol for anything the batch endpoint missed.
		prices := quotes.GetQuoteBatch(ctx, stale)
		for _, sym := range stale {
			price, ok := prices[sym]
			if !ok {
				failed++
				logger.Warn().Str("symbol", sym).Msg("Price sweep: no quote for symbol")
				continue
			}
			if err := cache.Store(ctx, sym, price); err != nil {
				failed++
				logger.Warn().Err(err).Str("symbol", sym).Msg("Price sweep: failed to store price")
				continue
			}
			refreshed++
		}
	} else {
		sym := stale[0]
		price, err := quotes.GetQuote(ctx, sym)
		if err != nil {
			failed++
			logger.Warn().Err(err).Str("symbol", sym).Msg("Price sweep: no quote for symbol")
		} else if err := cache.Store(ctx, sym, price); err != nil {
			failed++
			logger.Warn().Err(err).Str("symbol", sym).Msg("Price sweep: failed to store price")
		} else {
			refreshed++
		}
	}

	logger.Info().
		Int("symbols", len(symbols)).
		Int("stale", len(stale)).
		Int("refreshed", refreshed).
		Int("failed", failed).
		Dur("elapsed", time.Since(start)).
		Msg("Price sweep: complete")
}
