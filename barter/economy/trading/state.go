package trading

import (
	"fmt"
	"time"
)

type action string

const (
	actionAccept   action = "accept"
	actionCancel   action = "cancel"
	actionConfirm  action = "confirm"
	actionComplete action = "complete"
)

// transitions is the complete trade state machine. Terminal states have
// no outgoing edges.
var transitions = map[Status]map[action]Status{
	StatusOpen: {
		actionAccept: StatusPending,
		actionCancel: StatusCancelled,
	},
	StatusPending: {
		actionConfirm:  StatusPending,
		actionComplete: StatusCompleted,
	},
}

func nextStatus(from Status, a action) (Status, error) {
	if to, ok := transitions[from][a]; ok {
		return to, nil
	}
	return from, fmt.Errorf("%w: cannot %s a %s trade", ErrInvalidState, a, from)
}

// The methods below mutate a trade loaded under a store lock. They either
// return an error and leave the trade untouched or apply the full change.

func (t *Trade) accept(taker Identity, now time.Time) error {
	if t.Type != KindFixed {
		return fmt.Errorf("%w: auction trades are settled by accepting a bid", ErrInvalidState)
	}
	if taker.ID == t.CreatorID {
		return ErrSelfTrade
	}
	to, err := nextStatus(t.Status, actionAccept)
	if err != nil {
		return err
	}
	t.Status = to
	t.TakerID = taker.ID
	t.TakerName = taker.Name
	t.UpdatedAt = now
	return nil
}

func (t *Trade) acceptBid(bid *Bid, creatorID string, now time.Time) error {
	if creatorID != t.CreatorID {
		return fmt.Errorf("%w: only the creator can accept a bid", ErrUnauthorized)
	}
	if t.Type != KindAuction {
		return fmt.Errorf("%w: only auctions take bids", ErrInvalidState)
	}
	to, err := nextStatus(t.Status, actionAccept)
	if err != nil {
		return err
	}
	t.Status = to
	t.Request = SpecificRequest{Line: bid.Line()}
	t.TakerID = bid.BidderID
	t.TakerName = bid.BidderName
	t.UpdatedAt = now
	return nil
}

func (t *Trade) cancel(userID string, now time.Time) error {
	if userID != t.CreatorID {
		return fmt.Errorf("%w: only the creator can cancel a trade", ErrUnauthorized)
	}
	to, err := nextStatus(t.Status, actionCancel)
	if err != nil {
		return err
	}
	t.Status = to
	t.UpdatedAt = now
	return nil
}

// confirm records userID's confirmation and reports whether this call moved
// the trade to COMPLETED.
func (t *Trade) confirm(userID string, now time.Time) (bool, error) {
	if _, err := nextStatus(t.Status, actionConfirm); err != nil {
		return false, err
	}
	if !t.IsParty(userID) {
		return false, fmt.Errorf("%w: only the two parties can confirm", ErrUnauthorized)
	}

	switch userID {
	case t.CreatorID:
		if t.CreatorConfirmed {
			return false, nil
		}
		t.CreatorConfirmed = true
	case t.TakerID:
		if t.TakerConfirmed {
			return false, nil
		}
		t.TakerConfirmed = true
	}
	t.UpdatedAt = now

	if !t.CreatorConfirmed || !t.TakerConfirmed {
		return false, nil
	}
	to, err := nextStatus(t.Status, actionComplete)
	if err != nil {
		return false, err
	}
	t.Status = to
	return true, nil
}
