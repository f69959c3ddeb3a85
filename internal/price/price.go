// Package price provides the SOL/USD price used to value bonding curves.
package price

import (
	"context"
	"errors"
	"time"
)

// ErrPriceUnavailable is returned when no fresh price can be produced.
var ErrPriceUnavailable = errors.New("sol/usd price unavailable")

// Oracle returns the current SOL/USD price.
type Oracle interface {
	Price(ctx context.Context) (float64, error)
}

// Quote is a price observation.
type Quote struct {
	PriceUSD  float64   `json:"price_usd"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Fresh reports whether q is no older than maxAge at now.
func (q Quote) Fresh(now time.Time, maxAge time.Duration) bool {
	return !q.FetchedAt.IsZero() && now.Sub(q.FetchedAt) <= maxAge
}

// Static is an Oracle returning a fixed price. Used by tools and tests.
type Static float64

// Price implements Oracle.
func (s Static) Price(context.Context) (float64, error) {
	if s <= 0 {
		return 0, ErrPriceUnavailable
	}
	return float64(s), nil
}
