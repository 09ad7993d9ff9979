package trading

import (
	"context"
	"time"
)

//go:generate mockgen -source=stores.go -destination=mock/stores.go -package=mock

// Ledger holds per-user item balances. Adjust must be atomic per
// (user, item): a debit that would go below zero fails with
// *InsufficientStockError and writes nothing.
type Ledger interface {
	Adjust(ctx context.Context, userID, itemID string, delta int64) (int64, error)
	Balance(ctx context.Context, userID, itemID string) (int64, error)
	Balances(ctx context.Context, userID string) (map[string]int64, error)
	Totals(ctx context.Context) (map[string]int64, error)
}

type TradeFilter struct {
	Statuses []Status
	UserID   string
}

// TradeStore persists trades. Update loads the trade under an exclusive
// lock, hands it to fn and writes it back only when fn returns nil.
type TradeStore interface {
	Insert(ctx context.Context, trade *Trade) error
	Get(ctx context.Context, id string) (*Trade, error)
	Update(ctx context.Context, id string, fn func(*Trade) error) (*Trade, error)
	List(ctx context.Context, filter TradeFilter) ([]*Trade, error)
}

// BidStore persists bids. Insert fails with ErrInvalidState unless the
// trade is an OPEN auction at the moment of insertion. Delete reports
// whether this call removed the bid so that only one caller refunds it.
type BidStore interface {
	Insert(ctx context.Context, bid *Bid) error
	Get(ctx context.Context, id string) (*Bid, error)
	ListForTrade(ctx context.Context, tradeID string) ([]*Bid, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// Directory resolves the acting user. Frozen accounts fail with
// ErrUnauthorized.
type Directory interface {
	Identify(ctx context.Context, userID string) (Identity, error)
}

type Catalog interface {
	ItemExists(ctx context.Context, itemID string) (bool, error)
	Items(ctx context.Context) ([]Item, error)
}

type EventKind string

const (
	EventInventoryAdjusted EventKind = "inventory.adjusted"
	EventTradeCreated      EventKind = "trade.created"
	EventTradeAccepted     EventKind = "trade.accepted"
	EventTradeConfirmed    EventKind = "trade.confirmed"
	EventTradeCompleted    EventKind = "trade.completed"
	EventTradeCancelled    EventKind = "trade.cancelled"
	EventBidPlaced         EventKind = "bid.placed"
	EventBidAccepted       EventKind = "bid.accepted"
	EventBidReleased       EventKind = "bid.released"
)

// Event is a change notification. Trade and Bid are snapshots taken after
// the change.
type Event struct {
	ID     string
	Kind   EventKind
	UserID string
	ItemID string
	Delta  int64
	Trade  *Trade
	Bid    *Bid
	At     time.Time
}

// Publisher receives events after every successful mutation. Delivery is
// best effort and never affects the outcome of the operation.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, Event) error { return nil }
