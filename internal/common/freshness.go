// Package common provides shared utilities for Finfolio
package common

import "time"

// Freshness TTLs for cached prices
const (
	// FreshnessQuote bounds how old a cached price may be when serving
	// portfolio views and general reads.
	FreshnessQuote = 1 * time.Hour

	// FreshnessSaleQuote bounds the price used to settle a disposal.
	// Much tighter than the general window since it determines realized profit.
	FreshnessSaleQuote = 5 * time.Minute
)

// IsFresh returns true if the given timestamp is within the TTL
func IsFresh(observed time.Time, ttl time.Duration) bool {
	if observed.IsZero() {
		return false
	}
	return time.Since(observed) < ttl
}
