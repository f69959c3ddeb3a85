package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pump-sniper/internal/domain"
	"pump-sniper/internal/storage"
)

func TestBuyStore_InsertAndQuery(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBuyStore(pool)
	ctx := context.Background()

	built := &domain.BuyAttempt{
		AttemptID:         "a1",
		SessionID:         "s1",
		Mint:              "m1",
		Status:            domain.BuyAttemptBuilt,
		TxSignature:       ptr("sig1"),
		BuyerTokenAccount: "ata1",
		CreatedATA:        true,
		AmountIn:          1_000_000_000,
		ExpectedTokensOut: 34612903225807,
		MinTokensOut:      32882258064516,
		SlippageBps:       500,
		Simulated:         true,
		SimulationOK:      true,
		UnitsConsumed:     42000,
		BuiltAt:           1000,
	}
	failed := &domain.BuyAttempt{
		AttemptID:   "a2",
		SessionID:   "s2",
		Mint:        "m2",
		Status:      domain.BuyAttemptFailed,
		AmountIn:    1_000_000_000,
		SlippageBps: 500,
		Error:       ptr("account lookup: timeout"),
		BuiltAt:     2000,
	}
	require.NoError(t, store.Insert(ctx, built))
	require.NoError(t, store.Insert(ctx, failed))

	got, err := store.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.BuyAttemptBuilt, got.Status)
	require.NotNil(t, got.TxSignature)
	assert.Equal(t, "sig1", *got.TxSignature)
	assert.Equal(t, uint64(32882258064516), got.MinTokensOut)
	assert.True(t, got.CreatedATA)
	assert.Nil(t, got.Error)

	bySession, err := store.GetBySessionID(ctx, "s2")
	require.NoError(t, err)
	assert.Nil(t, bySession.TxSignature)
	require.NotNil(t, bySession.Error)
	assert.Equal(t, "account lookup: timeout", *bySession.Error)

	ranged, err := store.GetByTimeRange(ctx, 0, 1500)
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, "a1", ranged[0].AttemptID)

	// session_id is UNIQUE: one attempt per session
	dup := *built
	dup.AttemptID = "a3"
	assert.ErrorIs(t, store.Insert(ctx, &dup), storage.ErrDuplicateKey)
}
