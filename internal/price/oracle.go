package price

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"pump-sniper/internal/observability"
)

// CachedOracle serves a cached quote while it is fresh and refetches from the
// upstream oracle otherwise. Concurrent misses share one upstream call.
type CachedOracle struct {
	upstream Oracle
	cache    Cache
	maxAge   time.Duration
	now      func() time.Time
	group    singleflight.Group
	log      *logrus.Entry
}

// CachedOracleOption configures a CachedOracle.
type CachedOracleOption func(*CachedOracle)

// WithClock overrides the time source.
func WithClock(now func() time.Time) CachedOracleOption {
	return func(o *CachedOracle) { o.now = now }
}

// WithLogger sets the logger.
func WithLogger(log *logrus.Entry) CachedOracleOption {
	return func(o *CachedOracle) { o.log = log }
}

// NewCachedOracle wraps upstream with cache. A quote older than maxAge is stale.
func NewCachedOracle(upstream Oracle, cache Cache, maxAge time.Duration, opts ...CachedOracleOption) *CachedOracle {
	o := &CachedOracle{
		upstream: upstream,
		cache:    cache,
		maxAge:   maxAge,
		now:      time.Now,
		log:      logrus.WithField("component", "price"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Price implements Oracle. It returns an error wrapping ErrPriceUnavailable
// when the cached quote is stale and the upstream fetch fails.
func (o *CachedOracle) Price(ctx context.Context) (float64, error) {
	q, ok, err := o.cache.Get(ctx)
	if err != nil {
		o.log.WithError(err).Warn("price cache read failed")
	}
	if ok && q.Fresh(o.now(), o.maxAge) {
		return q.PriceUSD, nil
	}

	q, err = o.refresh(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}
	return q.PriceUSD, nil
}

// Refresh fetches a new quote and stores it regardless of freshness.
func (o *CachedOracle) Refresh(ctx context.Context) (Quote, error) {
	return o.refresh(ctx)
}

func (o *CachedOracle) refresh(ctx context.Context) (Quote, error) {
	v, err, _ := o.group.Do("price", func() (interface{}, error) {
		p, err := o.upstream.Price(ctx)
		observability.RecordPriceFetch(p, err)
		if err != nil {
			return Quote{}, err
		}
		q := Quote{PriceUSD: p, FetchedAt: o.now()}
		if err := o.cache.Set(ctx, q); err != nil {
			o.log.WithError(err).Warn("price cache write failed")
		}
		return q, nil
	})
	if err != nil {
		return Quote{}, err
	}
	return v.(Quote), nil
}

// Run refreshes the quote every interval until ctx is done.
// Failures are logged; readers fall back to the cached quote while it is fresh.
func (o *CachedOracle) Run(ctx context.Context, interval time.Duration) error {
	if _, err := o.refresh(ctx); err != nil {
		o.log.WithError(err).Warn("initial price fetch failed")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			q, err := o.refresh(ctx)
			if err != nil {
				o.log.WithError(err).Warn("price refresh failed")
				continue
			}
			o.log.WithField("sol_usd", q.PriceUSD).Debug("price refreshed")
		}
	}
}

var _ Oracle = (*CachedOracle)(nil)
