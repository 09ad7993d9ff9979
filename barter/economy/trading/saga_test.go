package trading_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/biscuitbarter/barterbot/barter/economy/trading"
	"github.com/biscuitbarter/barterbot/barter/economy/trading/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var errDown = errors.New("connection reset")

type mocks struct {
	ledger  *mock.MockLedger
	trades  *mock.MockTradeStore
	bids    *mock.MockBidStore
	users   *mock.MockDirectory
	catalog *mock.MockCatalog
	pub     *mock.MockPublisher
}

func managerWithMocks(t *testing.T) (*trading.Manager, *mocks) {
	ctrl := gomock.NewController(t)
	ms := &mocks{
		ledger:  mock.NewMockLedger(ctrl),
		trades:  mock.NewMockTradeStore(ctrl),
		bids:    mock.NewMockBidStore(ctrl),
		users:   mock.NewMockDirectory(ctrl),
		catalog: mock.NewMockCatalog(ctrl),
		pub:     mock.NewMockPublisher(ctrl),
	}
	ms.catalog.EXPECT().ItemExists(gomock.Any(), gomock.Any()).Return(true, nil).AnyTimes()

	m := trading.NewManager(trading.Dependencies{
		Ledger:    ms.ledger,
		Trades:    ms.trades,
		Bids:      ms.bids,
		Users:     ms.users,
		Catalog:   ms.catalog,
		Publisher: ms.pub,
	},
		trading.WithCompensation(2, 0),
		trading.WithIDGenerator(func() string { return "t-1" }),
		trading.WithClock(func() time.Time { return time.Unix(1700000000, 0) }),
	)
	return m, ms
}

func (ms *mocks) identify(id string) {
	ms.users.EXPECT().Identify(gomock.Any(), id).Return(trading.Identity{ID: id, Name: id}, nil)
}

// applyUpdate makes a TradeStore mock behave like a real store for one trade.
func applyUpdate(current *trading.Trade) func(context.Context, string, func(*trading.Trade) error) (*trading.Trade, error) {
	return func(_ context.Context, _ string, fn func(*trading.Trade) error) (*trading.Trade, error) {
		working := current.Clone()
		if err := fn(working); err != nil {
			return nil, err
		}
		return working, nil
	}
}

func bundleParams() trading.CreateTradeParams {
	return trading.CreateTradeParams{
		CreatorID: "alice",
		Type:      trading.KindFixed,
		Offer: trading.BundleOffer{Items: []trading.Line{
			{ItemID: "oreo", Qty: 2},
			{ItemID: "timtam", Qty: 1},
		}},
		Request: trading.SpecificRequest{Line: trading.Line{ItemID: "jaffa", Qty: 1}},
	}
}

func TestCreateTrade_RefundsWhenSaveFails(t *testing.T) {
	m, ms := managerWithMocks(t)
	ctx := context.Background()

	ms.users.EXPECT().Identify(gomock.Any(), "alice").Return(trading.Identity{ID: "alice", Name: "Alice"}, nil)
	gomock.InOrder(
		ms.ledger.EXPECT().Adjust(gomock.Any(), "alice", "oreo", int64(-2)).Return(int64(0), nil),
		ms.ledger.EXPECT().Adjust(gomock.Any(), "alice", "timtam", int64(-1)).Return(int64(0), nil),
		ms.trades.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(errDown),
		ms.ledger.EXPECT().Adjust(gomock.Any(), "alice", "timtam", int64(1)).Return(int64(1), nil),
		ms.ledger.EXPECT().Adjust(gomock.Any(), "alice", "oreo", int64(2)).Return(int64(2), nil),
	)

	_, err := m.CreateTrade(ctx, bundleParams())
	require.ErrorIs(t, err, errDown)
	assert.False(t, trading.IsReconciliation(err))
}

func TestCreateTrade_SurfacesFailedRefund(t *testing.T) {
	m, ms := managerWithMocks(t)
	ctx := context.Background()

	ms.users.EXPECT().Identify(gomock.Any(), "alice").Return(trading.Identity{ID: "alice", Name: "Alice"}, nil)
	ms.ledger.EXPECT().Adjust(gomock.Any(), "alice", "oreo", int64(-2)).Return(int64(0), nil)
	ms.ledger.EXPECT().Adjust(gomock.Any(), "alice", "timtam", int64(-1)).
		Return(int64(0), &trading.InsufficientStockError{UserID: "alice", ItemID: "timtam", Need: 1})
	ms.ledger.EXPECT().Adjust(gomock.Any(), "alice", "oreo", int64(2)).Return(int64(0), errDown).Times(3)

	_, err := m.CreateTrade(ctx, bundleParams())
	require.ErrorIs(t, err, trading.ErrInsufficientStock)

	var rec *trading.ReconciliationError
	require.ErrorAs(t, err, &rec)
	require.Len(t, rec.Failed, 1)
	assert.Equal(t, "oreo", rec.Failed[0].ItemID)
	assert.Equal(t, int64(2), rec.Failed[0].Qty)
	assert.ErrorIs(t, rec.Failed[0].Err, errDown)
}

func TestAcceptTrade_RefundsWhenTransitionLoses(t *testing.T) {
	m, ms := managerWithMocks(t)
	ctx := context.Background()

	open := &trading.Trade{
		ID: "t-1", Type: trading.KindFixed, Status: trading.StatusOpen, CreatorID: "alice",
		Offer:   trading.SingleOffer{Line: trading.Line{ItemID: "oreo", Qty: 1}},
		Request: trading.SpecificRequest{Line: trading.Line{ItemID: "timtam", Qty: 2}},
	}
	taken := open.Clone()
	taken.Status = trading.StatusPending

	ms.trades.EXPECT().Get(gomock.Any(), "t-1").Return(open, nil)
	ms.users.EXPECT().Identify(gomock.Any(), "bob").Return(trading.Identity{ID: "bob", Name: "Bob"}, nil)
	gomock.InOrder(
		ms.ledger.EXPECT().Adjust(gomock.Any(), "bob", "timtam", int64(-2)).Return(int64(0), nil),
		ms.trades.EXPECT().Update(gomock.Any(), "t-1", gomock.Any()).DoAndReturn(applyUpdate(taken)),
		ms.ledger.EXPECT().Adjust(gomock.Any(), "bob", "timtam", int64(2)).Return(int64(2), nil),
	)

	_, err := m.AcceptTrade(ctx, "t-1", "bob")
	require.ErrorIs(t, err, trading.ErrInvalidState)
	assert.False(t, trading.IsReconciliation(err))
}

func TestConfirmTrade_RetriesSwapCredit(t *testing.T) {
	m, ms := managerWithMocks(t)
	ctx := context.Background()

	pending := &trading.Trade{
		ID: "t-1", Type: trading.KindFixed, Status: trading.StatusPending,
		CreatorID: "alice", TakerID: "bob", CreatorConfirmed: true,
		Offer:   trading.SingleOffer{Line: trading.Line{ItemID: "oreo", Qty: 3}},
		Request: trading.SpecificRequest{Line: trading.Line{ItemID: "timtam", Qty: 2}},
	}

	ms.identify("bob")
	ms.trades.EXPECT().Update(gomock.Any(), "t-1", gomock.Any()).DoAndReturn(applyUpdate(pending))
	gomock.InOrder(
		ms.ledger.EXPECT().Adjust(gomock.Any(), "alice", "timtam", int64(2)).Return(int64(0), errDown),
		ms.ledger.EXPECT().Adjust(gomock.Any(), "alice", "timtam", int64(2)).Return(int64(2), nil),
		ms.ledger.EXPECT().Adjust(gomock.Any(), "bob", "oreo", int64(3)).Return(int64(3), nil),
	)
	ms.pub.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e trading.Event) error {
		assert.Equal(t, trading.EventTradeCompleted, e.Kind)
		return errDown
	})

	outcome, tr, err := m.ConfirmTrade(ctx, "t-1", "bob")
	require.NoError(t, err)
	assert.Equal(t, trading.OutcomeCompleted, outcome)
	assert.Equal(t, trading.StatusCompleted, tr.Status)
}

func TestAcceptBid_RefundFailureKeepsAcceptedTrade(t *testing.T) {
	m, ms := managerWithMocks(t)
	ctx := context.Background()

	open := &trading.Trade{
		ID: "t-1", Type: trading.KindAuction, Status: trading.StatusOpen, CreatorID: "alice",
		Offer:   trading.SingleOffer{Line: trading.Line{ItemID: "oreo", Qty: 2}},
		Request: trading.AnyRequest{},
	}
	winner := &trading.Bid{ID: "b-1", TradeID: "t-1", BidderID: "bob", BidderName: "Bob", ItemID: "timtam", Qty: 5}
	loser := &trading.Bid{ID: "b-2", TradeID: "t-1", BidderID: "carol", ItemID: "jaffa", Qty: 1}

	ms.identify("alice")
	ms.bids.EXPECT().Get(gomock.Any(), "b-1").Return(winner, nil)
	ms.trades.EXPECT().Update(gomock.Any(), "t-1", gomock.Any()).DoAndReturn(applyUpdate(open))
	ms.bids.EXPECT().Delete(gomock.Any(), "b-1").Return(true, nil)
	ms.bids.EXPECT().ListForTrade(gomock.Any(), "t-1").Return([]*trading.Bid{winner, loser}, nil)
	ms.bids.EXPECT().Delete(gomock.Any(), "b-2").Return(true, nil)
	ms.ledger.EXPECT().Adjust(gomock.Any(), "carol", "jaffa", int64(1)).Return(int64(0), errDown).Times(3)
	ms.pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	tr, err := m.AcceptBid(ctx, "t-1", "b-1", "alice")
	require.NotNil(t, tr)
	assert.Equal(t, trading.StatusPending, tr.Status)
	assert.Equal(t, "bob", tr.TakerID)

	var rec *trading.ReconciliationError
	require.ErrorAs(t, err, &rec)
	require.Len(t, rec.Failed, 1)
	assert.Equal(t, "carol", rec.Failed[0].UserID)
}

func TestCancelTrade_SkipsBidsClaimedElsewhere(t *testing.T) {
	m, ms := managerWithMocks(t)
	ctx := context.Background()

	open := &trading.Trade{
		ID: "t-1", Type: trading.KindAuction, Status: trading.StatusOpen, CreatorID: "alice",
		Offer:   trading.SingleOffer{Line: trading.Line{ItemID: "oreo", Qty: 2}},
		Request: trading.AnyRequest{},
	}
	bid := &trading.Bid{ID: "b-1", TradeID: "t-1", BidderID: "bob", ItemID: "timtam", Qty: 5}

	ms.identify("alice")
	ms.trades.EXPECT().Update(gomock.Any(), "t-1", gomock.Any()).DoAndReturn(applyUpdate(open))
	ms.ledger.EXPECT().Adjust(gomock.Any(), "alice", "oreo", int64(2)).Return(int64(2), nil)
	ms.bids.EXPECT().ListForTrade(gomock.Any(), "t-1").Return([]*trading.Bid{bid}, nil)
	ms.bids.EXPECT().Delete(gomock.Any(), "b-1").Return(false, nil)
	ms.pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	tr, err := m.CancelTrade(ctx, "t-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, trading.StatusCancelled, tr.Status)
}

func TestAcceptBid_ReportsStaleWinningBid(t *testing.T) {
	m, ms := managerWithMocks(t)
	ctx := context.Background()

	open := &trading.Trade{
		ID: "t-1", Type: trading.KindAuction, Status: trading.StatusOpen, CreatorID: "alice",
		Offer:   trading.SingleOffer{Line: trading.Line{ItemID: "oreo", Qty: 2}},
		Request: trading.AnyRequest{},
	}
	winner := &trading.Bid{ID: "b-1", TradeID: "t-1", BidderID: "bob", ItemID: "timtam", Qty: 5}

	ms.identify("alice")
	ms.bids.EXPECT().Get(gomock.Any(), "b-1").Return(winner, nil)
	ms.trades.EXPECT().Update(gomock.Any(), "t-1", gomock.Any()).DoAndReturn(applyUpdate(open))
	ms.bids.EXPECT().Delete(gomock.Any(), "b-1").Return(false, errDown)
	ms.bids.EXPECT().ListForTrade(gomock.Any(), "t-1").Return([]*trading.Bid{winner}, nil)
	ms.pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	tr, err := m.AcceptBid(ctx, "t-1", "b-1", "alice")
	require.NotNil(t, tr)
	assert.Equal(t, trading.StatusPending, tr.Status)

	var rec *trading.ReconciliationError
	require.ErrorAs(t, err, &rec)
	require.Len(t, rec.Failed, 1)
	assert.Equal(t, "remove winning bid", rec.Failed[0].Step)
	assert.ErrorIs(t, err, errDown)
}

func TestAdjustInventory_AllowsFrozenTarget(t *testing.T) {
	m, ms := managerWithMocks(t)
	ctx := context.Background()

	ms.users.EXPECT().Identify(gomock.Any(), "alice").
		Return(trading.Identity{}, fmt.Errorf("%w: account alice is frozen", trading.ErrUnauthorized))
	ms.ledger.EXPECT().Adjust(gomock.Any(), "alice", "oreo", int64(4)).Return(int64(4), nil)
	ms.pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	got, err := m.AdjustInventory(ctx, "alice", "oreo", 4)
	require.NoError(t, err)
	assert.Equal(t, int64(4), got)
}
