// Package interfaces defines service contracts for Finfolio
package interfaces

import "context"

// QuoteClient is a single external quote source. Implementations wrap one
// provider's HTTP API with its own rate limiter and timeout; errors surface
// raw and are converted to the NotAvailable result by the quote service.
type QuoteClient interface {
	// GetQuote returns the latest price for one symbol.
	GetQuote(ctx context.Context, symbol string) (float64, error)

	// Name identifies the provider in logs.
	Name() string
}

// BatchQuoteClient is a quote source that can price several symbols in one
// call. The returned map may be partial; callers degrade missing symbols to
// the single-quote path.
type BatchQuoteClient interface {
	QuoteClient

	GetQuoteBatch(ctx context.Context, symbols []string) (map[string]float64, error)
}

// MailClient sends outbound notification email. Fire-and-forget: failures
// are logged by callers and never affect ledger or account state.
type MailClient interface {
	SendWelcome(ctx context.Context, toEmail, username string) error
}
