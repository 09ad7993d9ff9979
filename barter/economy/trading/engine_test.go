package trading_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/biscuitbarter/barterbot/barter/economy/trading"
	"github.com/biscuitbarter/barterbot/barter/economy/trading/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	m       *trading.Manager
	store   *memory.Store
	users   *memory.Directory
	catalog *memory.Catalog
}

func newHarness(t testing.TB) *harness {
	t.Helper()
	return buildHarness()
}

func buildHarness() *harness {
	store := memory.NewStore()
	users := memory.NewDirectory()
	for _, name := range []string{"alice", "bob", "carol", "dave"} {
		users.Add(name, name)
	}
	catalog := memory.NewCatalog(
		trading.Item{ID: "oreo", Name: "Oreo"},
		trading.Item{ID: "timtam", Name: "Tim Tam"},
		trading.Item{ID: "digestive", Name: "Digestive"},
		trading.Item{ID: "jaffa", Name: "Jaffa Cake"},
	)

	var seq atomic.Int64
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	m := trading.NewManager(trading.Dependencies{
		Ledger:  store,
		Trades:  store,
		Bids:    store.Bids(),
		Users:   users,
		Catalog: catalog,
	},
		trading.WithCompensation(1, 0),
		trading.WithIDGenerator(func() string { return fmt.Sprintf("id-%03d", seq.Add(1)) }),
		trading.WithClock(func() time.Time { return clock.Add(time.Duration(seq.Load()) * time.Second) }),
	)
	return &harness{m: m, store: store, users: users, catalog: catalog}
}

func (h *harness) give(t testing.TB, user, item string, qty int64) {
	t.Helper()
	_, err := h.m.AdjustInventory(context.Background(), user, item, qty)
	require.NoError(t, err)
}

func (h *harness) balance(t testing.TB, user, item string) int64 {
	t.Helper()
	b, err := h.store.Balance(context.Background(), user, item)
	require.NoError(t, err)
	return b
}

func (h *harness) fixed(t testing.TB, creator string, offer trading.Offer, want trading.Line) *trading.Trade {
	t.Helper()
	tr, err := h.m.CreateTrade(context.Background(), trading.CreateTradeParams{
		CreatorID: creator,
		Type:      trading.KindFixed,
		Offer:     offer,
		Request:   trading.SpecificRequest{Line: want},
	})
	require.NoError(t, err)
	return tr
}

func single(item string, qty int64) trading.Offer {
	return trading.SingleOffer{Line: trading.Line{ItemID: item, Qty: qty}}
}

func TestFixedTradeLifecycle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.give(t, "alice", "oreo", 5)
	h.give(t, "bob", "timtam", 4)

	tr := h.fixed(t, "alice", single("oreo", 3), trading.Line{ItemID: "timtam", Qty: 2})
	assert.Equal(t, trading.StatusOpen, tr.Status)
	assert.Equal(t, "alice", tr.CreatorName)
	assert.Equal(t, int64(2), h.balance(t, "alice", "oreo"))

	accepted, err := h.m.AcceptTrade(ctx, tr.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, trading.StatusPending, accepted.Status)
	assert.Equal(t, "bob", accepted.TakerID)
	assert.Equal(t, "bob", accepted.TakerName)
	assert.Equal(t, int64(2), h.balance(t, "bob", "timtam"))

	outcome, _, err := h.m.ConfirmTrade(ctx, tr.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, trading.OutcomeWaiting, outcome)

	outcome, done, err := h.m.ConfirmTrade(ctx, tr.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, trading.OutcomeCompleted, outcome)
	assert.Equal(t, trading.StatusCompleted, done.Status)

	assert.Equal(t, int64(2), h.balance(t, "alice", "timtam"))
	assert.Equal(t, int64(3), h.balance(t, "bob", "oreo"))
	assert.Equal(t, int64(2), h.balance(t, "alice", "oreo"))
	assert.Equal(t, int64(2), h.balance(t, "bob", "timtam"))

	history, err := h.m.ListTradeHistory(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, tr.ID, history[0].ID)
}

func TestAcceptTrade_InsufficientStockLeavesTradeOpen(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.give(t, "alice", "oreo", 1)

	tr := h.fixed(t, "alice", single("oreo", 1), trading.Line{ItemID: "jaffa", Qty: 1})

	_, err := h.m.AcceptTrade(ctx, tr.ID, "dave")
	require.ErrorIs(t, err, trading.ErrInsufficientStock)

	var short *trading.InsufficientStockError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, int64(1), short.Missing())

	got, err := h.m.GetTrade(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, trading.StatusOpen, got.Status)
	assert.Empty(t, got.TakerID)
	assert.Equal(t, int64(0), h.balance(t, "dave", "jaffa"))
}

func TestAcceptTrade_Rejections(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.give(t, "alice", "oreo", 10)
	h.give(t, "bob", "timtam", 10)

	tr := h.fixed(t, "alice", single("oreo", 1), trading.Line{ItemID: "timtam", Qty: 1})
	auction, err := h.m.CreateTrade(ctx, trading.CreateTradeParams{
		CreatorID: "alice",
		Type:      trading.KindAuction,
		Offer:     single("oreo", 1),
		Request:   trading.AnyRequest{},
	})
	require.NoError(t, err)

	tests := []struct {
		name    string
		tradeID string
		taker   string
		wantErr error
	}{
		{name: "missing trade", tradeID: "nope", taker: "bob", wantErr: trading.ErrNotFound},
		{name: "self trade", tradeID: tr.ID, taker: "alice", wantErr: trading.ErrSelfTrade},
		{name: "auction", tradeID: auction.ID, taker: "bob", wantErr: trading.ErrInvalidState},
		{name: "unknown user", tradeID: tr.ID, taker: "mallory", wantErr: trading.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.m.AcceptTrade(ctx, tt.tradeID, tt.taker)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, int64(10), h.balance(t, "bob", "timtam"))
		})
	}

	h.users.SetFrozen("bob", true)
	_, err = h.m.AcceptTrade(ctx, tr.ID, "bob")
	assert.ErrorIs(t, err, trading.ErrUnauthorized)
}

func TestCreateTrade_BundleIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.give(t, "alice", "oreo", 5)
	h.give(t, "alice", "timtam", 1)

	_, err := h.m.CreateTrade(ctx, trading.CreateTradeParams{
		CreatorID: "alice",
		Type:      trading.KindFixed,
		Offer: trading.BundleOffer{Items: []trading.Line{
			{ItemID: "oreo", Qty: 3},
			{ItemID: "timtam", Qty: 2},
		}},
		Request: trading.SpecificRequest{Line: trading.Line{ItemID: "jaffa", Qty: 1}},
	})
	require.ErrorIs(t, err, trading.ErrInsufficientStock)
	assert.False(t, trading.IsReconciliation(err))

	assert.Equal(t, int64(5), h.balance(t, "alice", "oreo"))
	assert.Equal(t, int64(1), h.balance(t, "alice", "timtam"))

	all, err := h.m.ListAllTrades(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreateTrade_Validation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.give(t, "alice", "oreo", 5)

	tests := []struct {
		name    string
		params  trading.CreateTradeParams
		wantErr error
	}{
		{
			name: "zero quantity",
			params: trading.CreateTradeParams{CreatorID: "alice", Type: trading.KindFixed,
				Offer: single("oreo", 0), Request: trading.SpecificRequest{Line: trading.Line{ItemID: "jaffa", Qty: 1}}},
			wantErr: trading.ErrInvalidInput,
		},
		{
			name: "fixed without price",
			params: trading.CreateTradeParams{CreatorID: "alice", Type: trading.KindFixed,
				Offer: single("oreo", 1), Request: trading.AnyRequest{}},
			wantErr: trading.ErrInvalidInput,
		},
		{
			name: "empty bundle",
			params: trading.CreateTradeParams{CreatorID: "alice", Type: trading.KindAuction,
				Offer: trading.BundleOffer{}, Request: trading.AnyRequest{}},
			wantErr: trading.ErrInvalidInput,
		},
		{
			name: "duplicate bundle line",
			params: trading.CreateTradeParams{CreatorID: "alice", Type: trading.KindAuction,
				Offer:   trading.BundleOffer{Items: []trading.Line{{ItemID: "oreo", Qty: 1}, {ItemID: "oreo", Qty: 1}}},
				Request: trading.AnyRequest{}},
			wantErr: trading.ErrInvalidInput,
		},
		{
			name: "unknown item",
			params: trading.CreateTradeParams{CreatorID: "alice", Type: trading.KindFixed,
				Offer: single("oreo", 1), Request: trading.SpecificRequest{Line: trading.Line{ItemID: "hobnob", Qty: 1}}},
			wantErr: trading.ErrNotFound,
		},
		{
			name: "unknown type",
			params: trading.CreateTradeParams{CreatorID: "alice", Type: "BARTER",
				Offer: single("oreo", 1), Request: trading.AnyRequest{}},
			wantErr: trading.ErrInvalidInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.m.CreateTrade(ctx, tt.params)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, int64(5), h.balance(t, "alice", "oreo"))
		})
	}
}

func TestConfirmTrade_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.give(t, "alice", "oreo", 3)
	h.give(t, "bob", "timtam", 2)

	tr := h.fixed(t, "alice", single("oreo", 3), trading.Line{ItemID: "timtam", Qty: 2})
	_, err := h.m.AcceptTrade(ctx, tr.ID, "bob")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		outcome, _, err := h.m.ConfirmTrade(ctx, tr.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, trading.OutcomeWaiting, outcome)
	}

	outcome, _, err := h.m.ConfirmTrade(ctx, tr.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, trading.OutcomeCompleted, outcome)

	_, _, err = h.m.ConfirmTrade(ctx, tr.ID, "bob")
	assert.ErrorIs(t, err, trading.ErrInvalidState)
	_, _, err = h.m.ConfirmTrade(ctx, tr.ID, "alice")
	assert.ErrorIs(t, err, trading.ErrInvalidState)

	assert.Equal(t, int64(3), h.balance(t, "bob", "oreo"))
	assert.Equal(t, int64(2), h.balance(t, "alice", "timtam"))
}

func TestConfirmTrade_Rejections(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.give(t, "alice", "oreo", 3)
	h.give(t, "bob", "timtam", 2)

	tr := h.fixed(t, "alice", single("oreo", 1), trading.Line{ItemID: "timtam", Qty: 1})

	_, _, err := h.m.ConfirmTrade(ctx, tr.ID, "alice")
	assert.ErrorIs(t, err, trading.ErrInvalidState)

	_, err = h.m.AcceptTrade(ctx, tr.ID, "bob")
	require.NoError(t, err)

	_, _, err = h.m.ConfirmTrade(ctx, tr.ID, "carol")
	assert.ErrorIs(t, err, trading.ErrUnauthorized)

	_, _, err = h.m.ConfirmTrade(ctx, "missing", "alice")
	assert.ErrorIs(t, err, trading.ErrNotFound)
}

func TestBundleCompletionCreditsEveryLine(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.give(t, "alice", "oreo", 2)
	h.give(t, "alice", "timtam", 1)
	h.give(t, "bob", "jaffa", 5)

	tr, err := h.m.CreateTrade(ctx, trading.CreateTradeParams{
		CreatorID: "alice",
		Type:      trading.KindFixed,
		Offer: trading.BundleOffer{Items: []trading.Line{
			{ItemID: "oreo", Qty: 2},
			{ItemID: "timtam", Qty: 1},
		}},
		Request: trading.SpecificRequest{Line: trading.Line{ItemID: "jaffa", Qty: 5}},
	})
	require.NoError(t, err)
	_, err = h.m.AcceptTrade(ctx, tr.ID, "bob")
	require.NoError(t, err)
	_, _, err = h.m.ConfirmTrade(ctx, tr.ID, "bob")
	require.NoError(t, err)
	_, _, err = h.m.ConfirmTrade(ctx, tr.ID, "alice")
	require.NoError(t, err)

	assert.Equal(t, int64(2), h.balance(t, "bob", "oreo"))
	assert.Equal(t, int64(1), h.balance(t, "bob", "timtam"))
	assert.Equal(t, int64(5), h.balance(t, "alice", "jaffa"))
}

func TestCancelTrade(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.give(t, "alice", "oreo", 4)
	h.give(t, "bob", "timtam", 4)

	tr := h.fixed(t, "alice", single("oreo", 4), trading.Line{ItemID: "timtam", Qty: 1})

	_, err := h.m.CancelTrade(ctx, tr.ID, "bob")
	assert.ErrorIs(t, err, trading.ErrUnauthorized)

	cancelled, err := h.m.CancelTrade(ctx, tr.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, trading.StatusCancelled, cancelled.Status)
	assert.Equal(t, int64(4), h.balance(t, "alice", "oreo"))

	_, err = h.m.CancelTrade(ctx, tr.ID, "alice")
	assert.ErrorIs(t, err, trading.ErrInvalidState)
	assert.Equal(t, int64(4), h.balance(t, "alice", "oreo"))

	open, err := h.m.ListOpenTrades(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestCancelTrade_PendingIsNotCancellable(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.give(t, "alice", "oreo", 1)
	h.give(t, "bob", "timtam", 1)

	tr := h.fixed(t, "alice", single("oreo", 1), trading.Line{ItemID: "timtam", Qty: 1})
	_, err := h.m.AcceptTrade(ctx, tr.ID, "bob")
	require.NoError(t, err)

	_, err = h.m.CancelTrade(ctx, tr.ID, "alice")
	assert.ErrorIs(t, err, trading.ErrInvalidState)
	assert.Equal(t, int64(0), h.balance(t, "alice", "oreo"))
	assert.Equal(t, int64(0), h.balance(t, "bob", "timtam"))
}

func TestReadInventory_ReportsEveryCatalogItem(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.give(t, "alice", "timtam", 7)

	holdings, err := h.m.ReadInventory(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, holdings, 4)
	assert.Equal(t, trading.Holding{ItemID: "oreo", ItemName: "Oreo", Qty: 0}, holdings[0])
	assert.Equal(t, trading.Holding{ItemID: "timtam", ItemName: "Tim Tam", Qty: 7}, holdings[1])
}

func TestAdjustInventory(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	got, err := h.m.AdjustInventory(ctx, "alice", "oreo", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got)

	_, err = h.m.AdjustInventory(ctx, "alice", "oreo", -4)
	assert.ErrorIs(t, err, trading.ErrInsufficientStock)
	assert.Equal(t, int64(3), h.balance(t, "alice", "oreo"))

	got, err = h.m.AdjustInventory(ctx, "alice", "oreo", -3)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)

	_, err = h.m.AdjustInventory(ctx, "alice", "hobnob", 1)
	assert.ErrorIs(t, err, trading.ErrNotFound)

	_, err = h.m.AdjustInventory(ctx, "ghost", "oreo", 7)
	assert.ErrorIs(t, err, trading.ErrNotFound)
	assert.Equal(t, int64(0), h.balance(t, "ghost", "oreo"))

	h.users.SetFrozen("alice", true)
	got, err = h.m.AdjustInventory(ctx, "alice", "oreo", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got)
}

func TestFrozenCallerCannotConfirmOrCancel(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.give(t, "alice", "oreo", 2)
	h.give(t, "bob", "timtam", 1)

	open := h.fixed(t, "alice", single("oreo", 1), trading.Line{ItemID: "timtam", Qty: 1})
	pending := h.fixed(t, "alice", single("oreo", 1), trading.Line{ItemID: "timtam", Qty: 1})
	_, err := h.m.AcceptTrade(ctx, pending.ID, "bob")
	require.NoError(t, err)

	h.users.SetFrozen("alice", true)

	_, err = h.m.CancelTrade(ctx, open.ID, "alice")
	assert.ErrorIs(t, err, trading.ErrUnauthorized)
	_, _, err = h.m.ConfirmTrade(ctx, pending.ID, "alice")
	assert.ErrorIs(t, err, trading.ErrUnauthorized)

	got, err := h.m.GetTrade(ctx, open.ID)
	require.NoError(t, err)
	assert.Equal(t, trading.StatusOpen, got.Status)
	got, err = h.m.GetTrade(ctx, pending.ID)
	require.NoError(t, err)
	assert.False(t, got.CreatorConfirmed)
	assert.Equal(t, int64(0), h.balance(t, "alice", "oreo"))
}
