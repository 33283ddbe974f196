// Package models defines the data structures for Finfolio
package models

import (
	"strings"
	"time"
)

// Holding is a single position owned by one account. There is at most one
// Holding per (owner, symbol); repeated acquisitions fold into the
// quantity-weighted average cost.
type Holding struct {
	OwnerID   string    `json:"owner_id"`
	Symbol    string    `json:"symbol"`
	Quantity  float64   `json:"quantity"`
	AvgCost   float64   `json:"avg_cost"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// NormalizeSymbol uppercases and trims a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// HoldingID builds the record key for a holding, unique per (owner, symbol).
func HoldingID(ownerID, symbol string) string {
	return ownerID + "_" + NormalizeSymbol(symbol)
}

// RealizedSale records profit recognized on a disposal. Append-only:
// sales are never mutated, only individually deletable as a correction.
type RealizedSale struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Symbol    string    `json:"symbol"`
	Quantity  float64   `json:"quantity"`
	CostBasis float64   `json:"cost_basis"`
	SalePrice float64   `json:"sale_price"`
	Profit    float64   `json:"profit"`
	SoldAt    time.Time `json:"sold_at"`
}
