package memory

import (
	"context"
	"errors"
	"testing"

	"solana-exit-engine/internal/storage"
)

func TestProgressStore(t *testing.T) {
	store := NewProgressStore()
	ctx := context.Background()

	if _, err := store.GetLastProcessed(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	if err := store.SetLastProcessed(ctx, &storage.WatchProgress{Slot: 10, Signature: "a"}); err != nil {
		t.Fatalf("SetLastProcessed failed: %v", err)
	}
	if err := store.SetLastProcessed(ctx, &storage.WatchProgress{Slot: 11, Signature: "b"}); err != nil {
		t.Fatalf("SetLastProcessed failed: %v", err)
	}
	p, err := store.GetLastProcessed(ctx)
	if err != nil || p.Slot != 11 || p.Signature != "b" {
		t.Errorf("GetLastProcessed = %+v, %v", p, err)
	}

	if exited, _ := store.IsMintExited(ctx, "mintA"); exited {
		t.Error("mint should not be exited yet")
	}
	if err := store.MarkMintExited(ctx, "mintA"); err != nil {
		t.Fatalf("MarkMintExited failed: %v", err)
	}
	if exited, _ := store.IsMintExited(ctx, "mintA"); !exited {
		t.Error("mint should be exited")
	}
	mints, _ := store.LoadExitedMints(ctx)
	if len(mints) != 1 || mints[0] != "mintA" {
		t.Errorf("LoadExitedMints = %v", mints)
	}

	if err := store.MarkMintExited(ctx, ""); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
