package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/finfolio/finfolio/internal/common"
	"github.com/finfolio/finfolio/internal/models"
)

// HoldingStore persists positions under record IDs holding:⟨owner_symbol⟩,
// which enforces the one-holding-per-(owner,symbol) constraint at the
// storage layer. The acquire and decrement paths are single SurrealQL
// statements: SurrealDB executes a statement against one record atomically,
// which is what linearizes concurrent mutations of the same position.
type HoldingStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewHoldingStore(db *surrealdb.DB, logger *common.Logger) *HoldingStore {
	return &HoldingStore{
		db:     db,
		logger: logger,
	}
}

func (s *HoldingStore) Get(ctx context.Context, ownerID, symbol string) (*models.Holding, error) {
	rid := surrealmodels.NewRecordID("holding", models.HoldingID(ownerID, symbol))
	holding, err := surrealdb.Select[models.Holding](ctx, s.db, rid)
	if err != nil {
		return nil, fmt.Errorf("failed to select holding: %w", err)
	}
	return holding, nil
}

func (s *HoldingStore) Upsert(ctx context.Context, h *models.Holding) error {
	sql := "UPSERT type::record('holding', $id) CONTENT $holding"
	vars := map[string]any{"id": models.HoldingID(h.OwnerID, h.Symbol), "holding": h}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		_, err := surrealdb.Query[[]models.Holding](ctx, s.db, sql, vars)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("failed to upsert holding after retries: %w", lastErr)
}

// AcquireUpsert folds a buy into the position in one statement. The average
// cost is assigned before the quantity so the weighted mean sees the
// pre-acquisition quantity; a missing record starts from zero.
func (s *HoldingStore) AcquireUpsert(ctx context.Context, ownerID, symbol string, quantity, price float64) (*models.Holding, error) {
	sql := `UPSERT type::record('holding', $id) SET
		owner_id = $owner,
		symbol = $symbol,
		avg_cost = ((quantity ?? 0) * (avg_cost ?? 0) + $qty * $price) / ((quantity ?? 0) + $qty),
		quantity = (quantity ?? 0) + $qty,
		updated_at = time::now()
	RETURN AFTER`
	vars := map[string]any{
		"id":     models.HoldingID(ownerID, symbol),
		"owner":  ownerID,
		"symbol": models.NormalizeSymbol(symbol),
		"qty":    quantity,
		"price":  price,
	}

	results, err := surrealdb.Query[[]models.Holding](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire-upsert holding: %w", err)
	}
	if results != nil && len(*results) > 0 && len((*results)[0].Result) > 0 {
		return &(*results)[0].Result[0], nil
	}
	return nil, fmt.Errorf("acquire-upsert returned no record")
}

// DecrementQuantity subtracts from an existing holding, conditional on
// enough quantity being held. An absent or too-small holding matches
// nothing and yields (nil, nil).
func (s *HoldingStore) DecrementQuantity(ctx context.Context, ownerID, symbol string, quantity float64) (*models.Holding, error) {
	sql := `UPDATE type::record('holding', $id) SET
		quantity -= $qty,
		updated_at = time::now()
	WHERE quantity >= $qty
	RETURN AFTER`
	vars := map[string]any{
		"id":  models.HoldingID(ownerID, symbol),
		"qty": quantity,
	}

	results, err := surrealdb.Query[[]models.Holding](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to decrement holding: %w", err)
	}
	if results != nil && len(*results) > 0 && len((*results)[0].Result) > 0 {
		return &(*results)[0].Result[0], nil
	}
	return nil, nil
}

func (s *HoldingStore) Delete(ctx context.Context, ownerID, symbol string) error {
	rid := surrealmodels.NewRecordID("holding", models.HoldingID(ownerID, symbol))
	if _, err := surrealdb.Delete[models.Holding](ctx, s.db, rid); err != nil {
		return fmt.Errorf("failed to delete holding: %w", err)
	}
	return nil
}

func (s *HoldingStore) ListByOwner(ctx context.Context, ownerID string) ([]*models.Holding, error) {
	sql := "SELECT * FROM holding WHERE owner_id = $owner ORDER BY symbol"
	vars := map[string]any{"owner": ownerID}

	results, err := surrealdb.Query[[]models.Holding](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}

	if results != nil && len(*results) > 0 {
		var mapped []*models.Holding
		for i := range (*results)[0].Result {
			mapped = append(mapped, &(*results)[0].Result[i])
		}
		return mapped, nil
	}
	return nil, nil
}

// DistinctSymbols enumerates every symbol held by any owner — the input of
// a refresh sweep.
func (s *HoldingStore) DistinctSymbols(ctx context.Context) ([]string, error) {
	sql := "SELECT symbol FROM holding GROUP BY symbol"

	type symbolRow struct {
		Symbol string `json:"symbol"`
	}

	results, err := surrealdb.Query[[]symbolRow](ctx, s.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate held symbols: %w", err)
	}

	var symbols []string
	if results != nil && len(*results) > 0 {
		for _, row := range (*results)[0].Result {
			if row.Symbol != "" {
				symbols = append(symbols, row.Symbol)
			}
		}
	}
	return symbols, nil
}
