package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"

	"github.com/finfolio/finfolio/internal/common"
	"github.com/finfolio/finfolio/internal/models"
)

// SaleStore persists realized sales. Append-only: records are created once
// and never updated; the only other write is the owner-scoped delete used
// to correct a mis-entered disposal.
type SaleStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewSaleStore(db *surrealdb.DB, logger *common.Logger) *SaleStore {
	return &SaleStore{
		db:     db,
		logger: logger,
	}
}

func (s *SaleStore) Append(ctx context.Context, sale *models.RealizedSale) error {
	sql := "CREATE type::record('realized_sale', $id) CONTENT $sale"
	vars := map[string]any{"id": sale.ID, "sale": sale}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		_, err := surrealdb.Query[[]models.RealizedSale](ctx, s.db, sql, vars)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("failed to append realized sale after retries: %w", lastErr)
}

func (s *SaleStore) ListByOwner(ctx context.Context, ownerID string) ([]*models.RealizedSale, error) {
	sql := "SELECT * FROM realized_sale WHERE owner_id = $owner ORDER BY sold_at DESC"
	vars := map[string]any{"owner": ownerID}

	results, err := surrealdb.Query[[]models.RealizedSale](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list realized sales: %w", err)
	}

	if results != nil && len(*results) > 0 {
		var mapped []*models.RealizedSale
		for i := range (*results)[0].Result {
			mapped = append(mapped, &(*results)[0].Result[i])
		}
		return mapped, nil
	}
	return nil, nil
}

func (s *SaleStore) Delete(ctx context.Context, ownerID, saleID string) (bool, error) {
	// Owner scoping in the statement itself so one user cannot delete
	// another's sale by guessing IDs.
	sql := "DELETE type::record('realized_sale', $id) WHERE owner_id = $owner RETURN BEFORE"
	vars := map[string]any{"id": saleID, "owner": ownerID}

	results, err := surrealdb.Query[[]models.RealizedSale](ctx, s.db, sql, vars)
	if err != nil {
		return false, fmt.Errorf("failed to delete realized sale: %w", err)
	}
	if results != nil && len(*results) > 0 && len((*results)[0].Result) > 0 {
		return true, nil
	}
	return false, nil
}
