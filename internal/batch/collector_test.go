package batch

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pump-sniper/internal/domain"
)

func token(i int) domain.TokenInfo {
	return domain.TokenInfo{Mint: fmt.Sprintf("mint-%d", i), BondingCurve: fmt.Sprintf("curve-%d", i)}
}

func TestCollector_AddWithinWindow(t *testing.T) {
	c := NewCollector(30 * time.Second)
	start := time.Unix(1700000000, 0)

	assert.Nil(t, c.Add(token(1), start))
	assert.Nil(t, c.Add(token(2), start.Add(10*time.Second)))
	assert.Nil(t, c.Add(token(3), start.Add(29*time.Second)))
	assert.Equal(t, 3, c.Pending())
}

func TestCollector_AddRollsOverAtWindow(t *testing.T) {
	c := NewCollector(30 * time.Second)
	start := time.Unix(1700000000, 0)

	c.Add(token(1), start)
	c.Add(token(2), start.Add(5*time.Second))

	closed := c.Add(token(3), start.Add(30*time.Second))
	require.NotNil(t, closed)

	assert.Equal(t, domain.BatchClosed, closed.Status)
	assert.Equal(t, []string{"mint-1", "mint-2"}, mints(closed))
	assert.Equal(t, start, closed.Start)
	assert.Equal(t, uint64(1), closed.Seq)
	assert.Len(t, closed.ID, 64)

	// New batch starts at the arrival time of token 3
	assert.Equal(t, 1, c.Pending())
	next := c.Drain(start.Add(31 * time.Second))
	require.NotNil(t, next)
	assert.Equal(t, start.Add(30*time.Second), next.Start)
	assert.Equal(t, uint64(2), next.Seq)
	assert.NotEqual(t, closed.ID, next.ID)
}

func TestCollector_FlushNeverEmitsEmpty(t *testing.T) {
	c := NewCollector(time.Second)
	now := time.Unix(1700000000, 0)

	assert.Nil(t, c.Flush(now))
	assert.Nil(t, c.Flush(now.Add(time.Hour)))
	assert.Nil(t, c.Drain(now))

	c.Add(token(1), now)
	assert.Nil(t, c.Flush(now.Add(999*time.Millisecond)), "window not elapsed")
	b := c.Flush(now.Add(time.Second))
	require.NotNil(t, b)
	assert.Equal(t, 1, b.Len())

	assert.Nil(t, c.Flush(now.Add(10*time.Second)))
}

func TestCollector_PartitionProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 50; run++ {
		w := time.Duration(1+rng.Intn(10)) * time.Second
		c := NewCollector(w)
		now := time.Unix(1700000000, 0)

		var batches []*domain.Batch
		n := rng.Intn(200)
		for i := 0; i < n; i++ {
			now = now.Add(time.Duration(rng.Intn(3000)) * time.Millisecond)
			if rng.Intn(4) == 0 {
				if b := c.Flush(now); b != nil {
					batches = append(batches, b)
				}
			}
			if b := c.Add(token(i), now); b != nil {
				batches = append(batches, b)
			}
		}
		if b := c.Drain(now); b != nil {
			batches = append(batches, b)
		}

		seen := make(map[string]int)
		order := 0
		for bi, b := range batches {
			require.NotZero(t, b.Len(), "run %d: empty batch emitted", run)
			if bi > 0 {
				assert.False(t, b.Start.Before(batches[bi-1].Start), "run %d: batches out of order", run)
			}
			for _, tok := range b.Tokens {
				seen[tok.Mint]++
				// Arrival order is preserved across the concatenation of batches
				assert.Equal(t, fmt.Sprintf("mint-%d", order), tok.Mint)
				order++
			}
		}
		assert.Len(t, seen, n, "run %d: token lost", run)
		for mint, count := range seen {
			assert.Equal(t, 1, count, "run %d: %s in %d batches", run, mint, count)
		}
	}
}

func TestCollector_Run_FlushesOnInputClose(t *testing.T) {
	c := NewCollector(time.Hour)
	in := make(chan domain.TokenInfo)
	out := make(chan *domain.Batch, 4)

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background(), in, out) }()

	in <- token(1)
	in <- token(2)
	close(in)

	require.NoError(t, <-done)

	b, ok := <-out
	require.True(t, ok)
	assert.Equal(t, []string{"mint-1", "mint-2"}, mints(b))

	_, ok = <-out
	assert.False(t, ok, "out must be closed")
}

func TestCollector_Run_TickerClosesWindow(t *testing.T) {
	c := NewCollector(30 * time.Millisecond)
	in := make(chan domain.TokenInfo)
	out := make(chan *domain.Batch, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx, in, out)

	in <- token(1)

	select {
	case b := <-out:
		assert.Equal(t, []string{"mint-1"}, mints(b))
		assert.Equal(t, domain.BatchClosed, b.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("ticker did not close the batch")
	}
}

func TestCollector_Run_ContextCancel(t *testing.T) {
	c := NewCollector(time.Hour)
	in := make(chan domain.TokenInfo)
	out := make(chan *domain.Batch, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, in, out) }()

	in <- token(1)
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)

	b, ok := <-out
	require.True(t, ok)
	assert.Equal(t, 1, b.Len())
}

func mints(b *domain.Batch) []string {
	out := make([]string, len(b.Tokens))
	for i, t := range b.Tokens {
		out[i] = t.Mint
	}
	return out
}
