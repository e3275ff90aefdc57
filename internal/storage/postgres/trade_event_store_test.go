package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-sandwich-lab/internal/domain"
	"solana-sandwich-lab/internal/storage"
)

func testTradeEvent(sig, signer string, ts int64) *domain.TradeEvent {
	return &domain.TradeEvent{
		Signature:   sig,
		Signer:      signer,
		TimestampMs: ts,
		Slot:        250000000 + ts/400,
		Venue:       "PoolA",
		Validator:   "LeaderA",
		FromToken:   "SOL",
		ToToken:     "USDC",
	}
}

func TestTradeEventStore_InsertAndGetAll(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeEventStore(pool)

	events := []*domain.TradeEvent{
		testTradeEvent("sig-2", "B", 1700000001000),
		testTradeEvent("sig-1", "A", 1700000000000),
	}
	require.NoError(t, store.InsertBulk(ctx, events))

	got, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "sig-1", got[0].Signature)
	assert.Equal(t, "A", got[0].Signer)
	assert.Equal(t, int64(1700000000000), got[0].TimestampMs)
	assert.Equal(t, events[1].Slot, got[0].Slot)
	assert.Equal(t, "PoolA", got[0].Venue)
	assert.Equal(t, "LeaderA", got[0].Validator)
	assert.Equal(t, "SOL", got[0].FromToken)
	assert.Equal(t, "USDC", got[0].ToToken)
	assert.Equal(t, "sig-2", got[1].Signature)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestTradeEventStore_InsertBulkDuplicateRollsBack(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeEventStore(pool)

	require.NoError(t, store.InsertBulk(ctx, []*domain.TradeEvent{testTradeEvent("sig-1", "A", 1000)}))

	err := store.InsertBulk(ctx, []*domain.TradeEvent{
		testTradeEvent("sig-2", "B", 2000),
		testTradeEvent("sig-1", "A", 1000),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "failed batch must not leave partial rows")
}

func TestTradeEventStore_GetByTimeRange(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeEventStore(pool)

	require.NoError(t, store.InsertBulk(ctx, []*domain.TradeEvent{
		testTradeEvent("s1", "A", 1000),
		testTradeEvent("s2", "B", 2000),
		testTradeEvent("s3", "C", 3000),
	}))

	got, err := store.GetByTimeRange(ctx, 1000, 2000)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "s1", got[0].Signature)
	assert.Equal(t, "s2", got[1].Signature)

	empty, err := store.GetByTimeRange(ctx, 5000, 6000)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
