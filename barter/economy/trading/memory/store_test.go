package memory

import (
	"context"
	"testing"
	"time"

	"github.com/biscuitbarter/barterbot/barter/economy/trading"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_AdjustRejectsOverdraw(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	got, err := s.Adjust(ctx, "u", "oreo", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got)

	_, err = s.Adjust(ctx, "u", "oreo", -3)
	var short *trading.InsufficientStockError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, int64(2), short.Have)
	assert.Equal(t, int64(3), short.Need)

	b, _ := s.Balance(ctx, "u", "oreo")
	assert.Equal(t, int64(2), b)
}

func TestStore_UpdateDiscardsFailedMutation(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Insert(ctx, &trading.Trade{ID: "t", Status: trading.StatusOpen}))

	_, err := s.Update(ctx, "t", func(tr *trading.Trade) error {
		tr.Status = trading.StatusCancelled
		return trading.ErrUnauthorized
	})
	require.ErrorIs(t, err, trading.ErrUnauthorized)

	got, err := s.Get(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, trading.StatusOpen, got.Status)
}

func TestBidView_InsertGuardsTradeState(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	bids := s.Bids()
	require.NoError(t, s.Insert(ctx, &trading.Trade{ID: "a", Type: trading.KindAuction, Status: trading.StatusOpen}))
	require.NoError(t, s.Insert(ctx, &trading.Trade{ID: "f", Type: trading.KindFixed, Status: trading.StatusOpen}))

	require.NoError(t, bids.Insert(ctx, &trading.Bid{ID: "b1", TradeID: "a", CreatedAt: time.Unix(1, 0)}))
	assert.ErrorIs(t, bids.Insert(ctx, &trading.Bid{ID: "b2", TradeID: "f"}), trading.ErrInvalidState)
	assert.ErrorIs(t, bids.Insert(ctx, &trading.Bid{ID: "b3", TradeID: "x"}), trading.ErrNotFound)

	claimed, err := bids.Delete(ctx, "b1")
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = bids.Delete(ctx, "b1")
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Unix(100, 0)
	require.NoError(t, s.Insert(ctx, &trading.Trade{ID: "old", CreatorID: "u", Status: trading.StatusCompleted, CreatedAt: base}))
	require.NoError(t, s.Insert(ctx, &trading.Trade{ID: "new", TakerID: "u", Status: trading.StatusCompleted, CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, s.Insert(ctx, &trading.Trade{ID: "other", CreatorID: "v", Status: trading.StatusCompleted, CreatedAt: base}))

	got, err := s.List(ctx, trading.TradeFilter{UserID: "u", Statuses: []trading.Status{trading.StatusCompleted}})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].ID)
	assert.Equal(t, "old", got[1].ID)
}
