// Package valuation combines ledger state with cache reads into the
// portfolio view
package valuation

import (
	"context"
	"fmt"

	"github.com/finfolio/finfolio/internal/common"
	"github.com/finfolio/finfolio/internal/interfaces"
	"github.com/finfolio/finfolio/internal/models"
)

// Service implements ValuationService. Prices come exclusively from the
// cache with allowFetch off — a portfolio view must never wait on a
// provider.
type Service struct {
	holdings interfaces.HoldingStore
	sales    interfaces.SaleStore
	cache    interfaces.PriceCache
	logger   *common.Logger
}

// NewService creates a new valuation service.
func NewService(holdings interfaces.HoldingStore, sales interfaces.SaleStore, cache interfaces.PriceCache, logger *common.Logger) *Service {
	return &Service{
		holdings: holdings,
		sales:    sales,
		cache:    cache,
		logger:   logger,
	}
}

// Valuate builds the portfolio valuation for one owner: every positive
// position valued at its cached price, plus the aggregate realized profit.
// Positions without a usable price keep their row, flagged unavailable.
func (s *Service) Valuate(ctx context.Context, ownerID string) (*models.PortfolioValuation, error) {
	holdings, err := s.holdings.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}

	rows := make([]models.PortfolioRow, 0, len(holdings))
	for _, h := range holdings {
		if h.Quantity <= 0 {
			continue
		}

		row := models.PortfolioRow{
			Symbol:   h.Symbol,
			Quantity: h.Quantity,
			AvgCost:  h.AvgCost,
		}

		if price, ok := s.cache.Read(ctx, h.Symbol, common.FreshnessQuote); ok {
			value := price * h.Quantity
			unrealized := (price - h.AvgCost) * h.Quantity
			row.CurrentPrice = models.Round2Ptr(&price)
			row.Value = models.Round2Ptr(&value)
			row.UnrealizedProfit = models.Round2Ptr(&unrealized)
		} else {
			row.PriceUnavailable = true
		}

		rows = append(rows, row)
	}

	sales, err := s.sales.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list realized sales: %w", err)
	}

	var realized float64
	for _, sale := range sales {
		realized += sale.Profit
	}

	return &models.PortfolioValuation{
		Rows:           rows,
		RealizedProfit: models.Round2(realized),
	}, nil
}

// Ensure Service implements ValuationService
var _ interfaces.ValuationService = (*Service)(nil)
