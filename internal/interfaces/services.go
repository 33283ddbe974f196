package interfaces

import (
	"context"
	"time"

	"github.com/finfolio/finfolio/internal/models"
)

// QuoteService is the price provider adapter: one uniform fetch contract in
// front of the primary and fallback providers. Provider failures never
// escape as errors — they become the NotAvailable result.
type QuoteService interface {
	// GetQuote fetches a live price, trying the primary provider first and
	// falling through to the fallback. Returns quote.ErrNotAvailable when
	// every source is exhausted, quote.ErrBadSymbol on a malformed symbol.
	GetQuote(ctx context.Context, symbol string) (float64, error)

	// GetQuoteBatch prices many symbols in as few provider calls as
	// possible. The result is partial: a missing key means NotAvailable.
	GetQuoteBatch(ctx context.Context, symbols []string) map[string]float64
}

// PriceCache is the staleness-bounded price store between the ledger,
// the valuation calculator, and the providers.
type PriceCache interface {
	// Read returns the cached price only when younger than maxAge.
	// Never triggers a fetch.
	Read(ctx context.Context, symbol string, maxAge time.Duration) (float64, bool)

	// GetOrFetch returns a fresh cache hit; when stale or missing and
	// allowFetch is set it fetches, stores, and returns the live price.
	// On fetch failure the last known stale value is returned if one exists.
	GetOrFetch(ctx context.Context, symbol string, maxAge time.Duration, allowFetch bool) (float64, bool)

	// Store upserts a price with the current timestamp.
	Store(ctx context.Context, symbol string, price float64) error
}

// LedgerService owns holding records and realized-sale accounting.
type LedgerService interface {
	Acquire(ctx context.Context, ownerID, symbol string, quantity, price float64) (*models.Holding, error)
	SetPosition(ctx context.Context, ownerID, symbol string, quantity, avgCost float64) (*models.Holding, error)
	Dispose(ctx context.Context, ownerID, symbol string, quantity float64, explicitPrice *float64) (*models.RealizedSale, error)
	Remove(ctx context.Context, ownerID, symbol string) error
	ListSales(ctx context.Context, ownerID string) ([]*models.RealizedSale, error)
	DeleteSale(ctx context.Context, ownerID, saleID string) error
}

// ValuationService combines ledger state with cache reads.
type ValuationService interface {
	// Valuate builds the portfolio view for one owner. Reads prices from
	// cache only — never blocks on a provider.
	Valuate(ctx context.Context, ownerID string) (*models.PortfolioValuation, error)
}
