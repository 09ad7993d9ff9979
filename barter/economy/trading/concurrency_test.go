package trading_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/biscuitbarter/barterbot/barter/economy/trading"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentAccept_ExactlyOneWins(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.give(t, "alice", "oreo", 1)

	takers := []string{"bob", "carol", "dave"}
	for _, u := range takers {
		h.give(t, u, "timtam", 1)
	}
	tr := h.fixed(t, "alice", single("oreo", 1), trading.Line{ItemID: "timtam", Qty: 1})

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		wins   []string
		losses int
	)
	for _, u := range takers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.m.AcceptTrade(ctx, tr.ID, u)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins = append(wins, u)
				return
			}
			if errors.Is(err, trading.ErrInvalidState) || errors.Is(err, trading.ErrStorageConflict) {
				losses++
			}
		}()
	}
	wg.Wait()

	require.Len(t, wins, 1)
	assert.Equal(t, len(takers)-1, losses)

	for _, u := range takers {
		want := int64(1)
		if u == wins[0] {
			want = 0
		}
		assert.Equal(t, want, h.balance(t, u, "timtam"), u)
	}
}

func TestConcurrentConfirm_CompletesOnce(t *testing.T) {
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		h := newHarness(t)
		h.give(t, "alice", "oreo", 3)
		h.give(t, "bob", "timtam", 2)
		tr := h.fixed(t, "alice", single("oreo", 3), trading.Line{ItemID: "timtam", Qty: 2})
		_, err := h.m.AcceptTrade(ctx, tr.ID, "bob")
		require.NoError(t, err)

		var wg sync.WaitGroup
		outcomes := make(chan trading.ConfirmOutcome, 4)
		for _, u := range []string{"alice", "bob", "alice", "bob"} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				outcome, _, err := h.m.ConfirmTrade(ctx, tr.ID, u)
				if err == nil {
					outcomes <- outcome
				}
			}()
		}
		wg.Wait()
		close(outcomes)

		completed := 0
		for o := range outcomes {
			if o == trading.OutcomeCompleted {
				completed++
			}
		}
		assert.Equal(t, 1, completed, "round %d", i)
		assert.Equal(t, int64(3), h.balance(t, "bob", "oreo"))
		assert.Equal(t, int64(2), h.balance(t, "alice", "timtam"))
	}
}

func TestConcurrentDebits_NeverOverdraw(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.give(t, "alice", "oreo", 10)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.m.AdjustInventory(ctx, "alice", "oreo", -1); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, ok)
	assert.Equal(t, int64(0), h.balance(t, "alice", "oreo"))
}

func TestConcurrentBidsAndCancel_Conserve(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.give(t, "alice", "oreo", 1)

	bidders := make([]string, 0, 8)
	for i := 0; i < 8; i++ {
		u := fmt.Sprintf("bidder-%d", i)
		h.users.Add(u, u)
		h.give(t, u, "timtam", 3)
		bidders = append(bidders, u)
	}
	tr := h.auction(t, "alice", single("oreo", 1), trading.AnyRequest{})

	var wg sync.WaitGroup
	for _, u := range bidders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 3; j++ {
				_, _ = h.m.PlaceBid(ctx, trading.PlaceBidParams{TradeID: tr.ID, BidderID: u, ItemID: "timtam", Qty: 1})
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := h.m.CancelTrade(ctx, tr.ID, "alice")
		assert.NoError(t, err)
	}()
	wg.Wait()

	for _, u := range bidders {
		assert.Equal(t, int64(3), h.balance(t, u, "timtam"), u)
	}
	assert.Equal(t, int64(1), h.balance(t, "alice", "oreo"))

	bids, err := h.m.ListBidsForTrade(ctx, tr.ID)
	require.NoError(t, err)
	assert.Empty(t, bids)
}
