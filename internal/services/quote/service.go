// Package quote provides the price provider adapter with automatic fallback
package quote

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/finfolio/finfolio/internal/common"
	"github.com/finfolio/finfolio/internal/interfaces"
	"github.com/finfolio/finfolio/internal/models"
)

// ErrNotAvailable means every provider was tried and none produced a price.
// It is the only failure mode for a well-formed symbol: provider errors are
// absorbed here and never propagate upward.
var ErrNotAvailable = errors.New("no quote available from any provider")

// ErrBadSymbol means the symbol violates the contract (programming error on
// the caller's side, not a provider condition).
var ErrBadSymbol = errors.New("invalid symbol format")

// symbolPattern matches normalized ticker symbols: letters, digits, dots and
// hyphens, e.g. AAPL, BRK.B, BTC-USD.
var symbolPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,11}$`)

// Service implements QuoteService with FMP-primary and Yahoo-fallback.
type Service struct {
	primary  interfaces.QuoteClient      // may be nil when no API key is configured
	fallback interfaces.BatchQuoteClient // always present
	logger   *common.Logger
}

// NewService creates a new quote service. primary may be nil, in which case
// every fetch goes straight to the fallback provider.
func NewService(primary interfaces.QuoteClient, fallback interfaces.BatchQuoteClient, logger *common.Logger) *Service {
	return &Service{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// ValidateSymbol normalizes a symbol and checks it against the contract.
func ValidateSymbol(symbol string) (string, error) {
	sym := models.NormalizeSymbol(symbol)
	if !symbolPattern.MatchString(sym) {
		return "", fmt.Errorf("%w: %q", ErrBadSymbol, symbol)
	}
	return sym, nil
}

// GetQuote fetches a live price, primary first, fallback second.
func (s *Service) GetQuote(ctx context.Context, symbol string) (float64, error) {
	sym, err := ValidateSymbol(symbol)
	if err != nil {
		return 0, err
	}

	if s.primary != nil {
		price, err := s.primary.GetQuote(ctx, sym)
		if err == nil && price > 0 {
			return price, nil
		}
		if err != nil {
			s.logger.Debug().Err(err).Str("symbol", sym).Str("provider", s.primary.Name()).Msg("Primary quote failed, trying fallback")
		}
	}

	price, err := s.fallback.GetQuote(ctx, sym)
	if err == nil && price > 0 {
		return price, nil
	}
	if err != nil {
		s.logger.Debug().Err(err).Str("symbol", sym).Str("provider", s.fallback.Name()).Msg("Fallback quote failed")
	}

	return 0, ErrNotAvailable
}

// GetQuoteBatch prices many symbols, using the fallback provider's batch
// endpoint to amortize per-call latency, then degrading the leftovers to the
// single-quote path. The returned map is partial; invalid symbols are
// dropped silently since the refresher enumerates symbols from stored
// holdings which are normalized on write.
func (s *Service) GetQuoteBatch(ctx context.Context, symbols []string) map[string]float64 {
	valid := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		sym, err := ValidateSymbol(symbol)
		if err != nil {
			s.logger.Warn().Str("symbol", symbol).Msg("Skipping invalid symbol in batch")
			continue
		}
		valid = append(valid, sym)
	}

	prices := make(map[string]float64, len(valid))

	if len(valid) > 1 {
		batch, err := s.fallback.GetQuoteBatch(ctx, valid)
		if err != nil {
			s.logger.Warn().Err(err).Int("symbols", len(valid)).Msg("Batch quote failed, degrading to single fetches")
		}
		for sym, price := range batch {
			if price > 0 {
				prices[sym] = price
			}
		}
	}

	for _, sym := range valid {
		if _, ok := prices[sym]; ok {
			continue
		}
		price, err := s.GetQuote(ctx, sym)
		if err != nil {
			s.logger.Warn().Str("symbol", sym).Msg("No quote from any provider")
			continue
		}
		prices[sym] = price
	}

	return prices
}

// Ensure Service implements QuoteService
var _ interfaces.QuoteService = (*Service)(nil)
