package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pump-sniper/internal/domain"
	"pump-sniper/internal/storage"
)

func TestTokenStore_InsertAndGetByMint(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)
	ctx := context.Background()

	tok := &domain.TokenInfo{
		Mint:                   "MintAddress123",
		BondingCurve:           "CurveAddress123",
		AssociatedBondingCurve: "AssocCurve123",
		Name:                   "Test Token",
		Symbol:                 "TST",
		URI:                    "https://example.com/meta.json",
		Creator:                "Creator123",
		Signature:              "TxSig123",
		Slot:                   100,
		CreatedAt:              time.UnixMilli(1700000000000),
	}

	require.NoError(t, store.Insert(ctx, tok))

	got, err := store.GetByMint(ctx, tok.Mint)
	require.NoError(t, err)
	assert.Equal(t, tok.BondingCurve, got.BondingCurve)
	assert.Equal(t, tok.AssociatedBondingCurve, got.AssociatedBondingCurve)
	assert.Equal(t, tok.URI, got.URI)
	assert.Equal(t, tok.Slot, got.Slot)
	assert.Equal(t, tok.CreatedAt.UnixMilli(), got.CreatedAt.UnixMilli())

	err = store.Insert(ctx, tok)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	_, err = store.GetByMint(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTokenStore_GetByTimeRange(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)
	ctx := context.Background()

	for i, ms := range []int64{3000, 1000, 2000} {
		require.NoError(t, store.Insert(ctx, &domain.TokenInfo{
			Mint:         string(rune('a' + i)),
			BondingCurve: "curve",
			CreatedAt:    time.UnixMilli(ms),
		}))
	}

	tokens, err := store.GetByTimeRange(ctx, 1000, 2500)
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, int64(1000), tokens[0].CreatedAt.UnixMilli())
	assert.Equal(t, int64(2000), tokens[1].CreatedAt.UnixMilli())
}
