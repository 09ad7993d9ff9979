package trading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

const releaseConcurrency = 4

type PlaceBidParams struct {
	TradeID  string
	BidderID string
	ItemID   string
	Qty      int64
}

// PlaceBid reserves the bid amount from the bidder and records the bid
// against an OPEN auction.
func (m *Manager) PlaceBid(ctx context.Context, p PlaceBidParams) (*Bid, error) {
	if p.ItemID == "" || p.Qty <= 0 {
		return nil, fmt.Errorf("%w: a bid needs an item and a positive quantity", ErrInvalidInput)
	}

	trade, err := m.trades.Get(ctx, p.TradeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trade: %w", err)
	}
	if trade.Type != KindAuction {
		return nil, fmt.Errorf("%w: trade %s is not an auction", ErrInvalidState, trade.ID)
	}
	if trade.Status != StatusOpen {
		return nil, fmt.Errorf("%w: auction %s is %s", ErrInvalidState, trade.ID, trade.Status)
	}
	if p.BidderID == trade.CreatorID {
		return nil, ErrSelfTrade
	}

	bidder, err := m.users.Identify(ctx, p.BidderID)
	if err != nil {
		return nil, fmt.Errorf("failed to identify bidder: %w", err)
	}
	if err := m.requireItems(ctx, p.ItemID); err != nil {
		return nil, err
	}

	bid := &Bid{
		ID:         m.newID(),
		TradeID:    trade.ID,
		BidderID:   bidder.ID,
		BidderName: bidder.Name,
		ItemID:     p.ItemID,
		Qty:        p.Qty,
		CreatedAt:  m.now(),
	}

	s := m.newSaga(trade.ID)
	if err := s.debit(ctx, bidder.ID, bid.Line()); err != nil {
		return nil, fmt.Errorf("failed to reserve bid: %w", err)
	}
	if err := m.bids.Insert(ctx, bid); err != nil {
		return nil, s.compensate(ctx, fmt.Errorf("failed to save bid: %w", err))
	}

	slog.Info("Bid placed",
		slog.String("type", "trade"),
		slog.String("trade_id", trade.ID),
		slog.String("bid_id", bid.ID),
		slog.String("user_id", bidder.ID),
		slog.String("item_id", bid.ItemID),
		slog.Int64("qty", bid.Qty),
	)
	b := *bid
	m.publish(ctx, Event{Kind: EventBidPlaced, UserID: bidder.ID, ItemID: bid.ItemID, Delta: bid.Qty, Trade: trade, Bid: &b})
	return bid, nil
}

// AcceptBid settles an auction on one bid. The trade moves to PENDING with
// the bid as its request; the winning reservation now belongs to the trade
// and every other bid is refunded. Refund failures come back as a
// *ReconciliationError next to the accepted trade.
func (m *Manager) AcceptBid(ctx context.Context, tradeID, bidID, creatorID string) (*Trade, error) {
	if _, err := m.users.Identify(ctx, creatorID); err != nil {
		return nil, fmt.Errorf("failed to identify user: %w", err)
	}

	bid, err := m.bids.Get(ctx, bidID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bid: %w", err)
	}
	if bid.TradeID != tradeID {
		return nil, fmt.Errorf("%w: bid %s is not on trade %s", ErrNotFound, bidID, tradeID)
	}

	updated, err := m.trades.Update(ctx, tradeID, func(t *Trade) error {
		return t.acceptBid(bid, creatorID, m.now())
	})
	if err != nil {
		return nil, fmt.Errorf("failed to accept bid: %w", err)
	}

	// The winner's items stay reserved for the swap, so its record is
	// removed without a refund.
	var stale *ReconciliationError
	if _, err := m.bids.Delete(ctx, bid.ID); err != nil {
		slog.Warn("Failed to remove winning bid record",
			slog.String("type", "trade"),
			slog.String("trade_id", tradeID),
			slog.String("bid_id", bid.ID),
			slog.Any("error", err),
		)
		stale = &ReconciliationError{TradeID: updated.ID, Failed: []FailedCompensation{{
			Step: "remove winning bid", UserID: bid.BidderID, ItemID: bid.ItemID, Qty: bid.Qty, Err: err,
		}}}
	}
	reconcile := mergeReconciliation(updated.ID, stale, m.releaseBids(ctx, updated, bid.ID))

	slog.Info("Bid accepted",
		slog.String("type", "trade"),
		slog.String("trade_id", updated.ID),
		slog.String("bid_id", bid.ID),
		slog.String("user_id", bid.BidderID),
	)
	m.publish(ctx, Event{Kind: EventBidAccepted, UserID: creatorID, ItemID: bid.ItemID, Delta: bid.Qty, Trade: updated, Bid: bid})
	if reconcile != nil {
		return updated, reconcile
	}
	return updated, nil
}

// ListBidsForTrade returns the outstanding bids on a trade, oldest first.
func (m *Manager) ListBidsForTrade(ctx context.Context, tradeID string) ([]*Bid, error) {
	if _, err := m.trades.Get(ctx, tradeID); err != nil {
		return nil, fmt.Errorf("failed to load trade: %w", err)
	}
	return m.bids.ListForTrade(ctx, tradeID)
}

// releaseBids claims and refunds every bid on trade except keepID. Claiming
// through Delete guarantees a bid is refunded at most once.
func (m *Manager) releaseBids(ctx context.Context, trade *Trade, keepID string) *ReconciliationError {
	bids, err := m.bids.ListForTrade(ctx, trade.ID)
	if err != nil {
		slog.Error("Failed to list bids for release",
			slog.String("type", "error"),
			slog.String("trade_id", trade.ID),
			slog.Any("error", err),
		)
		return &ReconciliationError{TradeID: trade.ID, Failed: []FailedCompensation{{Step: "release bids", Err: err}}}
	}

	var (
		mu     sync.Mutex
		failed []FailedCompensation
	)
	var g errgroup.Group
	g.SetLimit(releaseConcurrency)
	for _, b := range bids {
		if b.ID == keepID {
			continue
		}
		g.Go(func() error {
			claimed, err := m.bids.Delete(ctx, b.ID)
			if err != nil {
				mu.Lock()
				failed = append(failed, FailedCompensation{Step: "release bid", UserID: b.BidderID, ItemID: b.ItemID, Qty: b.Qty, Err: err})
				mu.Unlock()
				return nil
			}
			if !claimed {
				return nil
			}
			if f := m.credit(ctx, movement{step: "refund bid", userID: b.BidderID, line: b.Line()}); f != nil {
				mu.Lock()
				failed = append(failed, *f)
				mu.Unlock()
				return nil
			}
			m.publish(ctx, Event{Kind: EventBidReleased, UserID: b.BidderID, ItemID: b.ItemID, Delta: b.Qty, Trade: trade, Bid: b})
			return nil
		})
	}
	_ = g.Wait()

	if len(failed) == 0 {
		return nil
	}
	return &ReconciliationError{TradeID: trade.ID, Failed: failed}
}

// IsReconciliation reports whether err carries ledger drift.
func IsReconciliation(err error) bool {
	var rec *ReconciliationError
	return errors.As(err, &rec)
}
