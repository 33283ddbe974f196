// Package pricecache provides the staleness-bounded price cache
package pricecache

import (
	"context"
	"time"

	"github.com/finfolio/finfolio/internal/common"
	"github.com/finfolio/finfolio/internal/interfaces"
	"github.com/finfolio/finfolio/internal/models"
)

// Service implements PriceCache over a PriceStore, fetching through the
// quote adapter only when a caller explicitly allows it. Interactive read
// paths pass allowFetch=false so a slow or rate-limited provider can never
// block a user-facing call.
type Service struct {
	store  interfaces.PriceStore
	quotes interfaces.QuoteService
	logger *common.Logger
	now    func() time.Time // injectable clock for testing
}

// NewService creates a new price cache service.
func NewService(store interfaces.PriceStore, quotes interfaces.QuoteService, logger *common.Logger) *Service {
	return &Service{
		store:  store,
		quotes: quotes,
		logger: logger,
		now:    time.Now,
	}
}

// fresh reports whether a price point is younger than maxAge.
func (s *Service) fresh(p *models.PricePoint, maxAge time.Duration) bool {
	if p == nil || p.ObservedAt.IsZero() {
		return false
	}
	return s.now().Sub(p.ObservedAt) < maxAge
}

// Read returns the cached price only when younger than maxAge.
// Never triggers a fetch.
func (s *Service) Read(ctx context.Context, symbol string, maxAge time.Duration) (float64, bool) {
	sym := models.NormalizeSymbol(symbol)
	point, err := s.store.Get(ctx, sym)
	if err != nil || point == nil {
		return 0, false
	}
	if !s.fresh(point, maxAge) {
		return 0, false
	}
	return point.Price, true
}

// GetOrFetch returns a fresh cache hit, or fetches when the entry is stale
// or missing and allowFetch is set. A fetch failure degrades to the last
// known stale value when one exists.
func (s *Service) GetOrFetch(ctx context.Context, symbol string, maxAge time.Duration, allowFetch bool) (float64, bool) {
	sym := models.NormalizeSymbol(symbol)

	point, err := s.store.Get(ctx, sym)
	if err == nil && s.fresh(point, maxAge) {
		return point.Price, true
	}

	if allowFetch {
		price, fetchErr := s.quotes.GetQuote(ctx, sym)
		if fetchErr == nil {
			if storeErr := s.Store(ctx, sym, price); storeErr != nil {
				s.logger.Warn().Err(storeErr).Str("symbol", sym).Msg("Failed to store fetched price")
			}
			return price, true
		}
		s.logger.Debug().Err(fetchErr).Str("symbol", sym).Msg("Price fetch failed, serving stale value if present")
	}

	// Stale fallback: better an old price than none at all.
	if point != nil && point.Price > 0 {
		return point.Price, true
	}
	return 0, false
}

// Store upserts a price with the current timestamp.
func (s *Service) Store(ctx context.Context, symbol string, price float64) error {
	return s.store.Upsert(ctx, models.NormalizeSymbol(symbol), price, s.now())
}

// Ensure Service implements PriceCache
var _ interfaces.PriceCache = (*Service)(nil)
