package app

import (
	"context"

	"github.com/finfolio/finfolio/internal/common"
	"github.com/finfolio/finfolio/internal/interfaces"
)

// warmCache runs one synchronous sweep at startup so the first portfolio
// views have prices. Resilient to total failure: a dead provider or an
// unreachable store leaves the cache cold and the service serving requests
// with absent prices.
func warmCache(ctx context.Context, holdings interfaces.HoldingStore, cache interfaces.PriceCache, quotes interfaces.QuoteService, logger *common.Logger) {
	logger.Info().Msg("Warming price cache")
	sweepPrices(ctx, holdings, cache, quotes, logger)
}
