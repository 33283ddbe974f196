package models

import "time"

// PricePoint is one cached market price. Prices are global, not owner-scoped;
// the cache holds exactly one entry per symbol, overwritten on every
// successful fetch (last writer wins).
type PricePoint struct {
	Symbol     string    `json:"symbol"`
	Price      float64   `json:"price"`
	ObservedAt time.Time `json:"observed_at"`
}
