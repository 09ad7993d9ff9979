package trading

import "time"

type Kind string

const (
	KindFixed   Kind = "FIXED"
	KindAuction Kind = "AUCTION"
)

type Status string

const (
	StatusOpen      Status = "OPEN"
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type ConfirmOutcome string

const (
	OutcomeWaiting   ConfirmOutcome = "WAITING"
	OutcomeCompleted ConfirmOutcome = "COMPLETED"
)

type Trade struct {
	ID          string
	Type        Kind
	Status      Status
	CreatorID   string
	CreatorName string
	TakerID     string
	TakerName   string
	Offer       Offer
	Request     Request

	CreatorConfirmed bool
	TakerConfirmed   bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy so stores never share offer slices with callers.
func (t *Trade) Clone() *Trade {
	if t == nil {
		return nil
	}
	c := *t
	c.Offer = cloneOffer(t.Offer)
	c.Request = cloneRequest(t.Request)
	return &c
}

// IsParty reports whether userID is the creator or the taker.
func (t *Trade) IsParty(userID string) bool {
	return userID != "" && (userID == t.CreatorID || userID == t.TakerID)
}

// Bid is a reservation placed against an OPEN auction.
type Bid struct {
	ID         string
	TradeID    string
	BidderID   string
	BidderName string
	ItemID     string
	Qty        int64
	CreatedAt  time.Time
}

func (b *Bid) Line() Line {
	return Line{ItemID: b.ItemID, Qty: b.Qty}
}

// Holding is one row of a user's inventory view.
type Holding struct {
	ItemID   string
	ItemName string
	Qty      int64
}

type Identity struct {
	ID   string
	Name string
}

type Item struct {
	ID    string
	Name  string
	Brand string
	Icon  string
	Color string
}
