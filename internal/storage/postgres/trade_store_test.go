package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)
	ctx := context.Background()

	trade := testTrade("t1", "mint1", domain.TradeRequested, 1000)
	require.NoError(t, store.Insert(ctx, trade))

	got, err := store.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "mint1", got.TokenAddress)
	assert.Equal(t, domain.SideBuy, got.Side)
	assert.Equal(t, domain.TradeRequested, got.Status)
	assert.Equal(t, 0.5, got.Amount)

	// Same ID again is a duplicate.
	err = store.Insert(ctx, testTrade("t1", "mint1", domain.TradeRequested, 1001))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	_, err = store.GetByID(ctx, "absent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTradeStore_GetByTokenAndRecent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testTrade("t1", "mintA", domain.TradeConfirmed, 1000)))
	require.NoError(t, store.Insert(ctx, testTrade("t2", "mintB", domain.TradeConfirmed, 2000)))
	require.NoError(t, store.Insert(ctx, testTrade("t3", "mintA", domain.TradeRequested, 3000)))

	byToken, err := store.GetByToken(ctx, "mintA")
	require.NoError(t, err)
	require.Len(t, byToken, 2)
	assert.Equal(t, "t1", byToken[0].ID) // created_at ASC
	assert.Equal(t, "t3", byToken[1].ID)

	recent, err := store.GetRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "t3", recent[0].ID) // newest first
	assert.Equal(t, "t2", recent[1].ID)
}

func TestTradeStore_UpdateStatusCompareAndSwap(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testTrade("t1", "mint1", domain.TradeRequested, 1000)))

	err := store.UpdateStatus(ctx, "t1", domain.TradeRequested, domain.TradeSubmitted, "", 1100)
	require.NoError(t, err)

	got, err := store.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.TradeSubmitted, got.Status)
	assert.EqualValues(t, 1100, got.UpdatedAt)

	// Replaying the same transition must conflict, not double-apply.
	err = store.UpdateStatus(ctx, "t1", domain.TradeRequested, domain.TradeSubmitted, "", 1200)
	assert.ErrorIs(t, err, storage.ErrConflict)

	err = store.UpdateStatus(ctx, "absent", domain.TradeRequested, domain.TradeSubmitted, "", 1200)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// tx_reference is set on confirm and survives later empty updates.
	err = store.UpdateStatus(ctx, "t1", domain.TradeSubmitted, domain.TradeConfirmed, "sig123", 1300)
	require.NoError(t, err)

	got, err = store.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.TradeConfirmed, got.Status)
	assert.Equal(t, "sig123", got.TxReference)
}
