package memory

import (
	"context"
	"errors"
	"testing"

	"solana-exit-engine/internal/domain"
	"solana-exit-engine/internal/storage"
)

func testSellRecord(id, mint string, startedAt int64) *domain.SellRecord {
	return &domain.SellRecord{
		SellID:         id,
		TradeSignature: "trigger-" + id,
		Mint:           mint,
		Success:        true,
		AttemptCount:   1,
		Venue:          "raydium_launchpad",
		StartedAt:      startedAt,
		DurationMs:     1200,
	}
}

func TestSellRecordStore_InsertAndGet(t *testing.T) {
	store := NewSellRecordStore()
	ctx := context.Background()

	sig := "sig1"
	rec := testSellRecord("sell1", "mintA", 1000)
	rec.Signature = &sig

	if err := store.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "sell1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Signature == nil || *got.Signature != "sig1" {
		t.Errorf("Signature mismatch: got %v", got.Signature)
	}

	// Stored value is a copy
	rec.Venue = "changed"
	got, _ = store.GetByID(ctx, "sell1")
	if got.Venue != "raydium_launchpad" {
		t.Errorf("store aliased caller record: venue = %s", got.Venue)
	}
}

func TestSellRecordStore_Errors(t *testing.T) {
	store := NewSellRecordStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testSellRecord("sell1", "mintA", 1000)); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := store.Insert(ctx, testSellRecord("sell1", "mintA", 1000)); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
	if err := store.Insert(ctx, &domain.SellRecord{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
	if _, err := store.GetByID(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSellRecordStore_Queries(t *testing.T) {
	store := NewSellRecordStore()
	ctx := context.Background()

	for _, r := range []*domain.SellRecord{
		testSellRecord("c", "mintA", 3000),
		testSellRecord("a", "mintA", 1000),
		testSellRecord("b", "mintB", 2000),
	} {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	byMint, err := store.GetByMint(ctx, "mintA")
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}
	if len(byMint) != 2 || byMint[0].SellID != "a" || byMint[1].SellID != "c" {
		t.Errorf("GetByMint order wrong: %+v", byMint)
	}

	inRange, err := store.GetByTimeRange(ctx, 1000, 2000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(inRange) != 2 || inRange[0].SellID != "a" || inRange[1].SellID != "b" {
		t.Errorf("GetByTimeRange wrong: %+v", inRange)
	}
}
