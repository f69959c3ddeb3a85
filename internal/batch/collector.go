// Package batch groups decoded tokens into fixed-duration collection windows.
package batch

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"pump-sniper/internal/domain"
	"pump-sniper/internal/idhash"
	"pump-sniper/internal/observability"
)

// MaxTick bounds the flush ticker period.
const MaxTick = time.Second

// Collector keeps at most one open batch. It is not safe for concurrent use:
// exactly one goroutine owns it, normally the one running Run.
type Collector struct {
	window time.Duration
	open   *domain.Batch
	seq    uint64
	now    func() time.Time
	log    *logrus.Entry
}

// Option configures Collector.
type Option func(*Collector)

// WithClock sets the time source used by Run.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		c.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(log *logrus.Entry) Option {
	return func(c *Collector) {
		c.log = log
	}
}

// NewCollector creates a collector with window duration w.
func NewCollector(w time.Duration, opts ...Option) *Collector {
	c := &Collector{
		window: w,
		now:    time.Now,
		log:    logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithField("component", "collector")
	return c
}

// Window returns the collection window duration.
func (c *Collector) Window() time.Duration {
	return c.window
}

// Pending returns the number of tokens in the open batch.
func (c *Collector) Pending() int {
	if c.open == nil {
		return 0
	}
	return len(c.open.Tokens)
}

// Add assigns token to the open batch. If the open batch's window has
// elapsed at now, it is closed and returned, and token starts a new batch.
func (c *Collector) Add(token domain.TokenInfo, now time.Time) *domain.Batch {
	var closed *domain.Batch
	if c.open != nil && now.Sub(c.open.Start) >= c.window {
		closed = c.close(now)
	}
	if c.open == nil {
		c.seq++
		c.open = &domain.Batch{
			ID:       idhash.ComputeBatchID(now.UnixMilli(), c.seq),
			Seq:      c.seq,
			Start:    now,
			Duration: c.window,
			Status:   domain.BatchOpen,
		}
	}
	c.open.Tokens = append(c.open.Tokens, token)
	return closed
}

// Flush closes and returns the open batch if its window has elapsed at now.
// Returns nil otherwise.
func (c *Collector) Flush(now time.Time) *domain.Batch {
	if c.open == nil || now.Sub(c.open.Start) < c.window {
		return nil
	}
	return c.close(now)
}

// Drain closes and returns the open batch regardless of its age.
func (c *Collector) Drain(now time.Time) *domain.Batch {
	return c.close(now)
}

func (c *Collector) close(now time.Time) *domain.Batch {
	b := c.open
	c.open = nil
	if b == nil || len(b.Tokens) == 0 {
		return nil
	}
	b.Status = domain.BatchClosed
	b.ClosedAt = now
	observability.RecordBatchClosed(len(b.Tokens))
	c.log.WithFields(logrus.Fields{
		"batch_id": b.ID,
		"seq":      b.Seq,
		"tokens":   len(b.Tokens),
	}).Info("batch closed")
	return b
}

// Run collects tokens from in and sends closed batches on out until in is
// closed or ctx is done. The remaining batch is flushed on exit and out is
// closed.
func (c *Collector) Run(ctx context.Context, in <-chan domain.TokenInfo, out chan<- *domain.Batch) error {
	defer close(out)

	tick := c.window
	if tick <= 0 || tick > MaxTick {
		tick = MaxTick
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	send := func(b *domain.Batch) bool {
		if b == nil {
			return true
		}
		select {
		case out <- b:
			return true
		case <-ctx.Done():
			c.log.WithField("batch_id", b.ID).Warn("batch discarded on shutdown")
			return false
		}
	}

	for {
		select {
		case <-ctx.Done():
			if b := c.Drain(c.now()); b != nil {
				select {
				case out <- b:
				default:
					c.log.WithField("batch_id", b.ID).Warn("batch discarded on shutdown")
				}
			}
			return ctx.Err()

		case token, ok := <-in:
			if !ok {
				send(c.Drain(c.now()))
				return nil
			}
			if !send(c.Add(token, c.now())) {
				return ctx.Err()
			}

		case <-ticker.C:
			if !send(c.Flush(c.now())) {
				return ctx.Err()
			}
		}
	}
}
