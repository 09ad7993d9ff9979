// Package memory keeps the ledger, trades and bids in process. It backs
// tests and the dry-run mode of barterctl.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/biscuitbarter/barterbot/barter/economy/trading"
)

type balanceKey struct {
	user string
	item string
}

// Store implements trading.Ledger and trading.TradeStore, and hands out a
// trading.BidStore through Bids. All three share one mutex.
type Store struct {
	mu       sync.Mutex
	balances map[balanceKey]int64
	trades   map[string]*trading.Trade
	bids     map[string]*trading.Bid
}

func NewStore() *Store {
	return &Store{
		balances: make(map[balanceKey]int64),
		trades:   make(map[string]*trading.Trade),
		bids:     make(map[string]*trading.Bid),
	}
}

func (s *Store) Adjust(ctx context.Context, userID, itemID string, delta int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := balanceKey{userID, itemID}
	have := s.balances[key]
	if have+delta < 0 {
		return have, &trading.InsufficientStockError{UserID: userID, ItemID: itemID, Have: have, Need: -delta}
	}
	s.balances[key] = have + delta
	return have + delta, nil
}

func (s *Store) Balance(_ context.Context, userID, itemID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[balanceKey{userID, itemID}], nil
}

func (s *Store) Balances(_ context.Context, userID string) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]int64)
	for k, v := range s.balances {
		if k.user == userID {
			out[k.item] = v
		}
	}
	return out, nil
}

func (s *Store) Totals(_ context.Context) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]int64)
	for k, v := range s.balances {
		out[k.item] += v
	}
	return out, nil
}

func (s *Store) Insert(ctx context.Context, trade *trading.Trade) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.trades[trade.ID]; ok {
		return fmt.Errorf("%w: trade %s already exists", trading.ErrStorageConflict, trade.ID)
	}
	s.trades[trade.ID] = trade.Clone()
	return nil
}

func (s *Store) Get(_ context.Context, id string) (*trading.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trades[id]
	if !ok {
		return nil, fmt.Errorf("%w: trade %s", trading.ErrNotFound, id)
	}
	return t.Clone(), nil
}

func (s *Store) Update(ctx context.Context, id string, fn func(*trading.Trade) error) (*trading.Trade, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trades[id]
	if !ok {
		return nil, fmt.Errorf("%w: trade %s", trading.ErrNotFound, id)
	}
	working := t.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	s.trades[id] = working
	return working.Clone(), nil
}

func (s *Store) List(_ context.Context, filter trading.TradeFilter) ([]*trading.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*trading.Trade, 0)
	for _, t := range s.trades {
		if !matches(t, filter) {
			continue
		}
		out = append(out, t.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func matches(t *trading.Trade, f trading.TradeFilter) bool {
	if f.UserID != "" && t.CreatorID != f.UserID && t.TakerID != f.UserID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, st := range f.Statuses {
		if t.Status == st {
			return true
		}
	}
	return false
}

// Bids returns the bid half of the store. Its method set clashes with the
// trade half, so it is exposed as a separate view.
func (s *Store) Bids() *BidView {
	return &BidView{s: s}
}

type BidView struct {
	s *Store
}

func (v *BidView) Insert(ctx context.Context, bid *trading.Bid) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	t, ok := v.s.trades[bid.TradeID]
	if !ok {
		return fmt.Errorf("%w: trade %s", trading.ErrNotFound, bid.TradeID)
	}
	if t.Type != trading.KindAuction || t.Status != trading.StatusOpen {
		return fmt.Errorf("%w: trade %s no longer takes bids", trading.ErrInvalidState, t.ID)
	}
	if _, dup := v.s.bids[bid.ID]; dup {
		return fmt.Errorf("%w: bid %s already exists", trading.ErrStorageConflict, bid.ID)
	}
	b := *bid
	v.s.bids[bid.ID] = &b
	return nil
}

func (v *BidView) Get(_ context.Context, id string) (*trading.Bid, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	b, ok := v.s.bids[id]
	if !ok {
		return nil, fmt.Errorf("%w: bid %s", trading.ErrNotFound, id)
	}
	out := *b
	return &out, nil
}

func (v *BidView) ListForTrade(_ context.Context, tradeID string) ([]*trading.Bid, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	out := make([]*trading.Bid, 0)
	for _, b := range v.s.bids {
		if b.TradeID == tradeID {
			c := *b
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (v *BidView) Delete(_ context.Context, id string) (bool, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	if _, ok := v.s.bids[id]; !ok {
		return false, nil
	}
	delete(v.s.bids, id)
	return true, nil
}
