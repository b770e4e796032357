package memory

import (
	"context"
	"errors"
	"testing"

	"solana-signals/internal/domain"
	"solana-signals/internal/storage"
)

func testTrade(id, token string, status domain.TradeStatus, createdAt int64) *domain.Trade {
	return &domain.Trade{
		ID:           id,
		TokenAddress: token,
		Side:         domain.SideBuy,
		Amount:       0.5,
		Status:       status,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
}

func TestTradeStore_InsertAndGet(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testTrade("t1", "mint1", domain.TradeRequested, 1000)); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := store.GetByID(ctx, "t1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.TokenAddress != "mint1" || got.Status != domain.TradeRequested {
		t.Errorf("got %+v", got)
	}

	if err := store.Insert(ctx, testTrade("t1", "mint1", domain.TradeRequested, 1001)); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
	if _, err := store.GetByID(ctx, "absent"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.Insert(ctx, &domain.Trade{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestTradeStore_ReturnsCopies(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testTrade("t1", "mint1", domain.TradeRequested, 1000)); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, _ := store.GetByID(ctx, "t1")
	got.Status = domain.TradeConfirmed

	again, _ := store.GetByID(ctx, "t1")
	if again.Status != domain.TradeRequested {
		t.Error("mutation of a returned trade leaked into the store")
	}
}

func TestTradeStore_GetByTokenOrdering(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	store.Insert(ctx, testTrade("t3", "mintA", domain.TradeRequested, 3000))
	store.Insert(ctx, testTrade("t1", "mintA", domain.TradeConfirmed, 1000))
	store.Insert(ctx, testTrade("t2", "mintB", domain.TradeConfirmed, 2000))

	got, err := store.GetByToken(ctx, "mintA")
	if err != nil {
		t.Fatalf("GetByToken: %v", err)
	}
	if len(got) != 2 || got[0].ID != "t1" || got[1].ID != "t3" {
		t.Errorf("wrong order: %+v", got)
	}
}

func TestTradeStore_GetRecentLimit(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	store.Insert(ctx, testTrade("t1", "mintA", domain.TradeConfirmed, 1000))
	store.Insert(ctx, testTrade("t2", "mintB", domain.TradeConfirmed, 2000))
	store.Insert(ctx, testTrade("t3", "mintC", domain.TradeRequested, 3000))

	got, err := store.GetRecent(ctx, 2)
	if err != nil {
		t.Fatalf("GetRecent: %v", err)
	}
	if len(got) != 2 || got[0].ID != "t3" || got[1].ID != "t2" {
		t.Errorf("wrong recency order: %+v", got)
	}
}

func TestTradeStore_UpdateStatus(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	store.Insert(ctx, testTrade("t1", "mint1", domain.TradeRequested, 1000))

	if err := store.UpdateStatus(ctx, "t1", domain.TradeRequested, domain.TradeSubmitted, "", 1100); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	// Stale transition conflicts.
	err := store.UpdateStatus(ctx, "t1", domain.TradeRequested, domain.TradeSubmitted, "", 1200)
	if !errors.Is(err, storage.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}

	err = store.UpdateStatus(ctx, "absent", domain.TradeRequested, domain.TradeSubmitted, "", 1200)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := store.UpdateStatus(ctx, "t1", domain.TradeSubmitted, domain.TradeConfirmed, "sig123", 1300); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	got, _ := store.GetByID(ctx, "t1")
	if got.TxReference != "sig123" || got.UpdatedAt != 1300 {
		t.Errorf("got %+v", got)
	}
}
