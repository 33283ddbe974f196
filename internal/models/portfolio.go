package models

import "math"

// PortfolioRow is one holding valued at the current cached price.
// Price fields are pointers: nil means no usable cached price existed at
// valuation time, flagged by PriceUnavailable. The row itself is always
// emitted — a missing price never drops a position from the view.
type PortfolioRow struct {
	Symbol           string   `json:"symbol"`
	Quantity         float64  `json:"quantity"`
	AvgCost          float64  `json:"avg_cost"`
	CurrentPrice     *float64 `json:"current_price"`
	Value            *float64 `json:"value"`
	UnrealizedProfit *float64 `json:"unrealized_profit"`
	PriceUnavailable bool     `json:"price_unavailable,omitempty"`
}

// PortfolioValuation is the full valuation response for one owner.
type PortfolioValuation struct {
	Rows           []PortfolioRow `json:"holdings"`
	RealizedProfit float64        `json:"realized_profit"`
}

// Round2 rounds a monetary value to 2 decimal places. Applied only at the
// presentation boundary; internal accumulation stays unrounded.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round2Ptr rounds through a pointer, passing nil through.
func Round2Ptr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := Round2(*v)
	return &r
}
