// Package surrealdb implements Finfolio storage on SurrealDB
package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"

	"github.com/finfolio/finfolio/internal/common"
	"github.com/finfolio/finfolio/internal/interfaces"
)

// Manager implements interfaces.StorageManager using SurrealDB.
type Manager struct {
	db     *surrealdb.DB
	logger *common.Logger

	holdingStore *HoldingStore
	priceStore   *PriceStore
	saleStore    *SaleStore
	userStore    *UserStore
}

// NewManager creates a new StorageManager connected to SurrealDB.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	ctx := context.Background()

	db, err := surrealdb.New(config.Storage.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": config.Storage.Username,
		"pass": config.Storage.Password,
	}); err != nil {
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	if err := db.Use(ctx, config.Storage.Namespace, config.Storage.Database); err != nil {
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	// Define tables up front (SurrealDB v3 errors on querying non-existent
	// tables). Record IDs already make (owner, symbol) and symbol unique for
	// holdings and prices; users additionally need unique username/email.
	defs := []string{
		"DEFINE TABLE IF NOT EXISTS holding SCHEMALESS",
		"DEFINE TABLE IF NOT EXISTS price SCHEMALESS",
		"DEFINE TABLE IF NOT EXISTS realized_sale SCHEMALESS",
		"DEFINE TABLE IF NOT EXISTS user SCHEMALESS",
		"DEFINE INDEX IF NOT EXISTS user_username ON TABLE user FIELDS username UNIQUE",
		"DEFINE INDEX IF NOT EXISTS user_email ON TABLE user FIELDS email UNIQUE",
	}
	for _, sql := range defs {
		if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
			return nil, fmt.Errorf("failed to apply schema definition: %w", err)
		}
	}

	m := &Manager{
		db:     db,
		logger: logger,
	}

	m.holdingStore = NewHoldingStore(db, logger)
	m.priceStore = NewPriceStore(db, logger)
	m.saleStore = NewSaleStore(db, logger)
	m.userStore = NewUserStore(db, logger)

	logger.Info().
		Str("address", config.Storage.Address).
		Str("namespace", config.Storage.Namespace).
		Str("database", config.Storage.Database).
		Msg("SurrealDB storage manager initialized")

	return m, nil
}

func (m *Manager) HoldingStore() interfaces.HoldingStore {
	return m.holdingStore
}

func (m *Manager) PriceStore() interfaces.PriceStore {
	return m.priceStore
}

func (m *Manager) SaleStore() interfaces.SaleStore {
	return m.saleStore
}

func (m *Manager) UserStore() interfaces.UserStore {
	return m.userStore
}

func (m *Manager) Close() error {
	m.db.Close(context.Background())
	return nil
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
