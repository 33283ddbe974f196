package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/finfolio/finfolio/internal/common"
	"github.com/finfolio/finfolio/internal/models"
)

// PriceStore persists the global price cache, one record per symbol under
// price:⟨symbol⟩. Entries are idempotently overwritten — last writer wins.
type PriceStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewPriceStore(db *surrealdb.DB, logger *common.Logger) *PriceStore {
	return &PriceStore{
		db:     db,
		logger: logger,
	}
}

func (s *PriceStore) Get(ctx context.Context, symbol string) (*models.PricePoint, error) {
	rid := surrealmodels.NewRecordID("price", models.NormalizeSymbol(symbol))
	point, err := surrealdb.Select[models.PricePoint](ctx, s.db, rid)
	if err != nil {
		return nil, fmt.Errorf("failed to select price: %w", err)
	}
	return point, nil
}

func (s *PriceStore) GetBatch(ctx context.Context, symbols []string) ([]*models.PricePoint, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	normalized := make([]string, len(symbols))
	for i, sym := range symbols {
		normalized[i] = models.NormalizeSymbol(sym)
	}

	sql := "SELECT * FROM price WHERE symbol IN $symbols"
	vars := map[string]any{"symbols": normalized}

	results, err := surrealdb.Query[[]models.PricePoint](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to get price batch: %w", err)
	}

	if results != nil && len(*results) > 0 {
		var mapped []*models.PricePoint
		for i := range (*results)[0].Result {
			mapped = append(mapped, &(*results)[0].Result[i])
		}
		return mapped, nil
	}
	return nil, nil
}

func (s *PriceStore) Upsert(ctx context.Context, symbol string, price float64, observedAt time.Time) error {
	point := models.PricePoint{
		Symbol:     models.NormalizeSymbol(symbol),
		Price:      price,
		ObservedAt: observedAt,
	}

	sql := "UPSERT type::record('price', $symbol) CONTENT $point"
	vars := map[string]any{"symbol": point.Symbol, "point": point}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		_, err := surrealdb.Query[[]models.PricePoint](ctx, s.db, sql, vars)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("failed to upsert price after retries: %w", lastErr)
}
