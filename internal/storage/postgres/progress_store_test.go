package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-exit-engine/internal/storage"
)

func TestProgressStore_LastProcessed(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewProgressStore(pool)

	_, err := store.GetLastProcessed(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.SetLastProcessed(ctx, &storage.WatchProgress{Slot: 100, Signature: "Sig100"}))
	require.NoError(t, store.SetLastProcessed(ctx, &storage.WatchProgress{Slot: 200, Signature: "Sig200"}))

	got, err := store.GetLastProcessed(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), got.Slot)
	assert.Equal(t, "Sig200", got.Signature)

	assert.ErrorIs(t, store.SetLastProcessed(ctx, nil), storage.ErrInvalidInput)
}

func TestProgressStore_ExitedMints(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewProgressStore(pool)

	exited, err := store.IsMintExited(ctx, "mintA")
	require.NoError(t, err)
	assert.False(t, exited)

	require.NoError(t, store.MarkMintExited(ctx, "mintB"))
	require.NoError(t, store.MarkMintExited(ctx, "mintA"))
	require.NoError(t, store.MarkMintExited(ctx, "mintA"))

	exited, err = store.IsMintExited(ctx, "mintA")
	require.NoError(t, err)
	assert.True(t, exited)

	mints, err := store.LoadExitedMints(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"mintA", "mintB"}, mints)

	_, err = store.IsMintExited(ctx, "")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
