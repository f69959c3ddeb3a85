package stub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pump-sniper/internal/domain"
)

func TestCurveFeed_RoutesByAccount(t *testing.T) {
	feed := NewCurveFeed(4)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := feed.Subscribe(ctx, []string{"a"})
	require.NoError(t, err)

	assert.Equal(t, 1, feed.Push(domain.CurveUpdate{Account: "a", Slot: 1}))
	assert.Equal(t, 0, feed.Push(domain.CurveUpdate{Account: "b", Slot: 2}))

	u := <-ch
	assert.Equal(t, int64(1), u.Slot)

	cancel()
	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, feed.Active())
	assert.Equal(t, 1, feed.Total())
}
