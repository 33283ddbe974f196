package interfaces

import (
	"context"
	"time"

	"github.com/finfolio/finfolio/internal/models"
)

// StorageManager coordinates all storage backends
type StorageManager interface {
	HoldingStore() HoldingStore
	PriceStore() PriceStore
	SaleStore() SaleStore
	UserStore() UserStore

	// Lifecycle
	Close() error
}

// HoldingStore persists per-owner positions. Uniqueness on (owner, symbol)
// is enforced by the record key; AcquireUpsert and DecrementQuantity are
// atomic single-record statements, the only place the system needs
// store-side mutual exclusion.
type HoldingStore interface {
	// Get returns the holding, or (nil, nil) when absent.
	Get(ctx context.Context, ownerID, symbol string) (*models.Holding, error)

	// Upsert overwrites quantity and average cost unconditionally (edit mode).
	Upsert(ctx context.Context, h *models.Holding) error

	// AcquireUpsert folds a buy into the position in one atomic statement:
	// creates the holding when absent, otherwise recomputes the
	// quantity-weighted average cost. Returns the post-acquisition state.
	AcquireUpsert(ctx context.Context, ownerID, symbol string, quantity, price float64) (*models.Holding, error)

	// DecrementQuantity atomically subtracts quantity from an existing
	// holding. The statement is conditional on quantity >= the decrement;
	// when the holding is absent or too small it matches nothing and
	// (nil, nil) is returned. Otherwise returns the post-decrement state.
	DecrementQuantity(ctx context.Context, ownerID, symbol string, quantity float64) (*models.Holding, error)

	Delete(ctx context.Context, ownerID, symbol string) error
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Holding, error)

	// DistinctSymbols enumerates every symbol held by any owner, for the
	// refresh sweep.
	DistinctSymbols(ctx context.Context) ([]string, error)
}

// PriceStore persists the global price cache, one record per symbol.
type PriceStore interface {
	Get(ctx context.Context, symbol string) (*models.PricePoint, error)
	GetBatch(ctx context.Context, symbols []string) ([]*models.PricePoint, error)

	// Upsert overwrites the symbol's cached price with the given observation
	// time. Last writer wins.
	Upsert(ctx context.Context, symbol string, price float64, observedAt time.Time) error
}

// SaleStore persists realized sales, append-only.
type SaleStore interface {
	Append(ctx context.Context, sale *models.RealizedSale) error
	ListByOwner(ctx context.Context, ownerID string) ([]*models.RealizedSale, error)

	// Delete removes one sale, scoped to its owner. Returns false when no
	// matching sale existed.
	Delete(ctx context.Context, ownerID, saleID string) (bool, error)
}

// UserStore persists accounts with unique username and email.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	Get(ctx context.Context, userID string) (*models.User, error)

	// GetByIdentifier looks a user up by username or email.
	GetByIdentifier(ctx context.Context, identifier string) (*models.User, error)
}
