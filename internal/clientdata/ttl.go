package clientdata

import "time"

// TTL constants for different data types.
// These are added to time.Now() when storing to calculate expires_at.
const (
	TTLCurrentPrice = 10 * time.Minute // Quote cache for batch valuation
	TTLReport       = 15 * time.Minute // Last generated performance report
)
