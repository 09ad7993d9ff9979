package trading

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_nextStatus(t *testing.T) {
	all := []Status{StatusOpen, StatusPending, StatusCompleted, StatusCancelled}
	actions := []action{actionAccept, actionCancel, actionConfirm, actionComplete}

	allowed := map[Status]map[action]Status{
		StatusOpen:    {actionAccept: StatusPending, actionCancel: StatusCancelled},
		StatusPending: {actionConfirm: StatusPending, actionComplete: StatusCompleted},
	}

	for _, from := range all {
		for _, a := range actions {
			to, err := nextStatus(from, a)
			want, ok := allowed[from][a]
			if !ok {
				assert.ErrorIs(t, err, ErrInvalidState, "%s -%s->", from, a)
				assert.Equal(t, from, to)
				continue
			}
			require.NoError(t, err, "%s -%s->", from, a)
			assert.Equal(t, want, to)
		}
	}
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, StatusOpen.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}

func TestTrade_confirm(t *testing.T) {
	now := time.Unix(0, 0)
	pending := func() *Trade {
		return &Trade{Status: StatusPending, CreatorID: "a", TakerID: "b"}
	}

	tests := []struct {
		name          string
		trade         *Trade
		calls         []string
		wantCompleted bool
		wantStatus    Status
		wantErr       error
	}{
		{name: "creator only", trade: pending(), calls: []string{"a"}, wantStatus: StatusPending},
		{name: "creator twice", trade: pending(), calls: []string{"a", "a"}, wantStatus: StatusPending},
		{name: "both", trade: pending(), calls: []string{"b", "a"}, wantCompleted: true, wantStatus: StatusCompleted},
		{name: "outsider", trade: pending(), calls: []string{"c"}, wantStatus: StatusPending, wantErr: ErrUnauthorized},
		{name: "open", trade: &Trade{Status: StatusOpen, CreatorID: "a"}, calls: []string{"a"}, wantStatus: StatusOpen, wantErr: ErrInvalidState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				completed bool
				err       error
			)
			for _, u := range tt.calls {
				completed, err = tt.trade.confirm(u, now)
			}
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantCompleted, completed)
			assert.Equal(t, tt.wantStatus, tt.trade.Status)
		})
	}
}

func TestTrade_acceptBidRewritesRequest(t *testing.T) {
	tr := &Trade{
		Type:      KindAuction,
		Status:    StatusOpen,
		CreatorID: "a",
		Request:   AnyRequest{Preferred: &Line{ItemID: "oreo", Qty: 1}},
	}
	bid := &Bid{BidderID: "b", BidderName: "Bee", ItemID: "timtam", Qty: 4}

	require.NoError(t, tr.acceptBid(bid, "a", time.Unix(0, 0)))
	assert.Equal(t, StatusPending, tr.Status)
	assert.Equal(t, SpecificRequest{Line: Line{ItemID: "timtam", Qty: 4}}, tr.Request)
	assert.Equal(t, "Bee", tr.TakerName)
}

func TestTrade_CloneDoesNotShareBundle(t *testing.T) {
	tr := &Trade{Offer: BundleOffer{Items: []Line{{ItemID: "oreo", Qty: 1}}}}
	c := tr.Clone()
	c.Offer.(BundleOffer).Items[0].Qty = 9
	assert.Equal(t, int64(1), tr.Offer.Lines()[0].Qty)
}
