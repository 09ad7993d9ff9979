package notify

import (
	"encoding/json"
	"time"

	"github.com/biscuitbarter/barterbot/barter/economy/trading"
)

// Message is the wire form of a trading event on AMQP and Redis.
type Message struct {
	ID     string     `json:"id"`
	Kind   string     `json:"kind"`
	At     time.Time  `json:"at"`
	UserID string     `json:"user_id,omitempty"`
	ItemID string     `json:"item_id,omitempty"`
	Delta  int64      `json:"delta,omitempty"`
	Trade  *TradeView `json:"trade,omitempty"`
	Bid    *BidView   `json:"bid,omitempty"`
}

type LineView struct {
	ItemID string `json:"item_id"`
	Qty    int64  `json:"qty"`
}

type TradeView struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Status    string     `json:"status"`
	CreatorID string     `json:"creator_id"`
	TakerID   string     `json:"taker_id,omitempty"`
	Offer     []LineView `json:"offer"`
	Request   *LineView  `json:"request,omitempty"`
	AnyItem   bool       `json:"any_item,omitempty"`
}

type BidView struct {
	ID       string `json:"id"`
	TradeID  string `json:"trade_id"`
	BidderID string `json:"bidder_id"`
	ItemID   string `json:"item_id"`
	Qty      int64  `json:"qty"`
}

func NewMessage(e trading.Event) Message {
	m := Message{
		ID:     e.ID,
		Kind:   string(e.Kind),
		At:     e.At,
		UserID: e.UserID,
		ItemID: e.ItemID,
		Delta:  e.Delta,
	}
	if e.Trade != nil {
		m.Trade = tradeView(e.Trade)
	}
	if e.Bid != nil {
		m.Bid = &BidView{
			ID:       e.Bid.ID,
			TradeID:  e.Bid.TradeID,
			BidderID: e.Bid.BidderID,
			ItemID:   e.Bid.ItemID,
			Qty:      e.Bid.Qty,
		}
	}
	return m
}

func tradeView(t *trading.Trade) *TradeView {
	v := &TradeView{
		ID:        t.ID,
		Type:      string(t.Type),
		Status:    string(t.Status),
		CreatorID: t.CreatorID,
		TakerID:   t.TakerID,
	}
	for _, l := range t.Offer.Lines() {
		v.Offer = append(v.Offer, LineView{ItemID: l.ItemID, Qty: l.Qty})
	}
	switch r := t.Request.(type) {
	case trading.SpecificRequest:
		v.Request = &LineView{ItemID: r.ItemID, Qty: r.Qty}
	case trading.AnyRequest:
		v.AnyItem = true
		if r.Preferred != nil {
			v.Request = &LineView{ItemID: r.Preferred.ItemID, Qty: r.Preferred.Qty}
		}
	}
	return v
}

func (m Message) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// RoutingKey is the AMQP topic for an event kind, e.g. "barter.trade.created".
func RoutingKey(kind trading.EventKind) string {
	return "barter." + string(kind)
}
