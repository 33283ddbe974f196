// Package ledger owns per-owner holding records and realized-sale accounting
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/finfolio/finfolio/internal/common"
	"github.com/finfolio/finfolio/internal/interfaces"
	"github.com/finfolio/finfolio/internal/models"
)

var (
	// ErrNotFound means the referenced holding or sale does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidQuantity means a non-positive quantity, or a disposal
	// exceeding the held quantity.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrInvalidPrice means a non-positive acquisition price or negative
	// average cost.
	ErrInvalidPrice = errors.New("invalid price")
)

// zeroEpsilon guards the delete-on-zero check against float subtraction dust.
const zeroEpsilon = 1e-9

// Service implements LedgerService. All holding mutations go through the
// store's atomic single-record statements; the ledger itself holds no locks.
type Service struct {
	holdings interfaces.HoldingStore
	sales    interfaces.SaleStore
	cache    interfaces.PriceCache
	logger   *common.Logger
	now      func() time.Time // injectable clock for testing
}

// NewService creates a new ledger service.
func NewService(holdings interfaces.HoldingStore, sales interfaces.SaleStore, cache interfaces.PriceCache, logger *common.Logger) *Service {
	return &Service{
		holdings: holdings,
		sales:    sales,
		cache:    cache,
		logger:   logger,
		now:      time.Now,
	}
}

// Acquire records a buy. An existing position folds the purchase into its
// quantity-weighted average cost; otherwise a new holding is created. The
// price cache is warmed for the symbol afterward, best effort.
func (s *Service) Acquire(ctx context.Context, ownerID, symbol string, quantity, price float64) (*models.Holding, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive, got %v", ErrInvalidQuantity, quantity)
	}
	if price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive, got %v", ErrInvalidPrice, price)
	}
	sym := models.NormalizeSymbol(symbol)

	holding, err := s.holdings.AcquireUpsert(ctx, ownerID, sym, quantity, price)
	if err != nil {
		return nil, fmt.Errorf("failed to record acquisition: %w", err)
	}

	// Warm the cache so the portfolio view has a price right after the buy.
	// A failed warm never fails the acquire.
	if warmed, ok := s.cache.GetOrFetch(ctx, sym, common.FreshnessQuote, true); ok {
		s.logger.Debug().Str("symbol", sym).Float64("price", warmed).Msg("Price cache warmed on acquire")
	} else {
		s.logger.Warn().Str("symbol", sym).Msg("Could not warm price cache on acquire")
	}

	s.logger.Info().
		Str("owner", ownerID).
		Str("symbol", sym).
		Float64("quantity", quantity).
		Float64("price", price).
		Msg("Acquisition recorded")

	return holding, nil
}

// SetPosition overwrites a holding's quantity and average cost directly,
// creating it when absent. This is the correction path: no averaging, no
// realized-gain accounting. Setting quantity to zero deletes the holding,
// honoring the no-zero-quantity invariant.
func (s *Service) SetPosition(ctx context.Context, ownerID, symbol string, quantity, avgCost float64) (*models.Holding, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("%w: quantity must not be negative, got %v", ErrInvalidQuantity, quantity)
	}
	if avgCost < 0 {
		return nil, fmt.Errorf("%w: average cost must not be negative, got %v", ErrInvalidPrice, avgCost)
	}
	sym := models.NormalizeSymbol(symbol)

	if quantity == 0 {
		if err := s.holdings.Delete(ctx, ownerID, sym); err != nil {
			return nil, fmt.Errorf("failed to delete zeroed position: %w", err)
		}
		return nil, nil
	}

	holding := &models.Holding{
		OwnerID:   ownerID,
		Symbol:    sym,
		Quantity:  quantity,
		AvgCost:   avgCost,
		UpdatedAt: s.now(),
	}
	if err := s.holdings.Upsert(ctx, holding); err != nil {
		return nil, fmt.Errorf("failed to set position: %w", err)
	}

	s.logger.Info().
		Str("owner", ownerID).
		Str("symbol", sym).
		Float64("quantity", quantity).
		Msg("Position overwritten")

	return holding, nil
}

// Dispose sells part or all of a holding and appends the realized sale.
// The sale price resolves in order: explicit price, cached quote within the
// tight sale window (fetching if needed), the position's own average cost.
// The last fallback means a disposal never fails for lack of a live price —
// it just realizes zero profit.
func (s *Service) Dispose(ctx context.Context, ownerID, symbol string, quantity float64, explicitPrice *float64) (*models.RealizedSale, error) {
	sym := models.NormalizeSymbol(symbol)

	holding, err := s.holdings.Get(ctx, ownerID, sym)
	if err != nil {
		return nil, fmt.Errorf("failed to load holding: %w", err)
	}
	if holding == nil {
		return nil, fmt.Errorf("%w: no holding %s for owner", ErrNotFound, sym)
	}
	if quantity <= 0 || quantity > holding.Quantity {
		return nil, fmt.Errorf("%w: sell quantity %v against held %v", ErrInvalidQuantity, quantity, holding.Quantity)
	}

	var salePrice float64
	switch {
	case explicitPrice != nil:
		if *explicitPrice <= 0 {
			return nil, fmt.Errorf("%w: sale price must be positive, got %v", ErrInvalidPrice, *explicitPrice)
		}
		salePrice = *explicitPrice
	default:
		if price, ok := s.cache.GetOrFetch(ctx, sym, common.FreshnessSaleQuote, true); ok {
			salePrice = price
		} else {
			// Worst case: settle at cost basis, zero profit.
			salePrice = holding.AvgCost
			s.logger.Warn().Str("symbol", sym).Msg("No market price for disposal, settling at average cost")
		}
	}

	after, err := s.holdings.DecrementQuantity(ctx, ownerID, sym, quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to decrement holding: %w", err)
	}
	if after == nil {
		// The conditional update matched nothing: a concurrent disposal got
		// there first. Distinguish gone from shrunk.
		if current, getErr := s.holdings.Get(ctx, ownerID, sym); getErr == nil && current == nil {
			return nil, fmt.Errorf("%w: no holding %s for owner", ErrNotFound, sym)
		}
		return nil, fmt.Errorf("%w: sell quantity %v no longer available", ErrInvalidQuantity, quantity)
	}

	if math.Abs(after.Quantity) < zeroEpsilon {
		if err := s.holdings.Delete(ctx, ownerID, sym); err != nil {
			s.logger.Warn().Err(err).Str("symbol", sym).Msg("Failed to delete emptied holding")
		}
	}

	sale := &models.RealizedSale{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Symbol:    sym,
		Quantity:  quantity,
		CostBasis: holding.AvgCost,
		SalePrice: salePrice,
		Profit:    (salePrice - holding.AvgCost) * quantity,
		SoldAt:    s.now(),
	}
	if err := s.sales.Append(ctx, sale); err != nil {
		return nil, fmt.Errorf("failed to append realized sale: %w", err)
	}

	s.logger.Info().
		Str("owner", ownerID).
		Str("symbol", sym).
		Float64("quantity", quantity).
		Float64("profit", sale.Profit).
		Msg("Disposal recorded")

	return sale, nil
}

// Remove deletes a holding unconditionally.
func (s *Service) Remove(ctx context.Context, ownerID, symbol string) error {
	sym := models.NormalizeSymbol(symbol)

	holding, err := s.holdings.Get(ctx, ownerID, sym)
	if err != nil {
		return fmt.Errorf("failed to load holding: %w", err)
	}
	if holding == nil {
		return fmt.Errorf("%w: no holding %s for owner", ErrNotFound, sym)
	}

	if err := s.holdings.Delete(ctx, ownerID, sym); err != nil {
		return fmt.Errorf("failed to delete holding: %w", err)
	}

	s.logger.Info().Str("owner", ownerID).Str("symbol", sym).Msg("Holding removed")
	return nil
}

// ListSales returns the owner's realized sales.
func (s *Service) ListSales(ctx context.Context, ownerID string) ([]*models.RealizedSale, error) {
	return s.sales.ListByOwner(ctx, ownerID)
}

// DeleteSale removes one realized sale, the correction mechanism for a
// mis-entered disposal.
func (s *Service) DeleteSale(ctx context.Context, ownerID, saleID string) error {
	deleted, err := s.sales.Delete(ctx, ownerID, saleID)
	if err != nil {
		return fmt.Errorf("failed to delete sale: %w", err)
	}
	if !deleted {
		return fmt.Errorf("%w: no sale %s for owner", ErrNotFound, saleID)
	}
	return nil
}

// Ensure Service implements LedgerService
var _ interfaces.LedgerService = (*Service)(nil)
