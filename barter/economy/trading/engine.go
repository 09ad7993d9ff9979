package trading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	defaultCompensationRetries = 3
	defaultCompensationBackoff = 100 * time.Millisecond
	defaultCreditTimeout       = 30 * time.Second
)

// Dependencies are the collaborators a Manager works against.
type Dependencies struct {
	Ledger    Ledger
	Trades    TradeStore
	Bids      BidStore
	Users     Directory
	Catalog   Catalog
	Publisher Publisher
}

type Option func(*Manager)

// WithCompensation sets how often a refund or swap credit is retried and
// the base delay between attempts.
func WithCompensation(retries int, backoff time.Duration) Option {
	return func(m *Manager) {
		if retries >= 0 {
			m.retries = retries
		}
		if backoff >= 0 {
			m.backoff = backoff
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(m *Manager) { m.newID = newID }
}

// Manager runs the trade and bid lifecycle on top of the ledger.
type Manager struct {
	ledger    Ledger
	trades    TradeStore
	bids      BidStore
	users     Directory
	catalog   Catalog
	publisher Publisher

	retries       int
	backoff       time.Duration
	creditTimeout time.Duration
	now           func() time.Time
	newID         func() string
}

func NewManager(deps Dependencies, opts ...Option) *Manager {
	m := &Manager{
		ledger:        deps.Ledger,
		trades:        deps.Trades,
		bids:          deps.Bids,
		users:         deps.Users,
		catalog:       deps.Catalog,
		publisher:     deps.Publisher,
		retries:       defaultCompensationRetries,
		backoff:       defaultCompensationBackoff,
		creditTimeout: defaultCreditTimeout,
		now:           time.Now,
		newID:         func() string { return uuid.NewString() },
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AdjustInventory applies delta to a user's balance of itemID.
func (m *Manager) AdjustInventory(ctx context.Context, userID, itemID string, delta int64) (int64, error) {
	if userID == "" {
		return 0, fmt.Errorf("%w: missing user", ErrInvalidInput)
	}
	if err := m.requireUser(ctx, userID); err != nil {
		return 0, err
	}
	if err := m.requireItems(ctx, itemID); err != nil {
		return 0, err
	}

	balance, err := m.ledger.Adjust(ctx, userID, itemID, delta)
	if err != nil {
		return 0, fmt.Errorf("failed to adjust inventory: %w", err)
	}

	slog.Info("Inventory adjusted",
		slog.String("type", "trade"),
		slog.String("user_id", userID),
		slog.String("item_id", itemID),
		slog.Int64("delta", delta),
		slog.Int64("balance", balance),
	)
	m.publish(ctx, Event{Kind: EventInventoryAdjusted, UserID: userID, ItemID: itemID, Delta: delta})
	return balance, nil
}

// ReadInventory returns a row for every catalog item, zero when the user
// holds none.
func (m *Manager) ReadInventory(ctx context.Context, userID string) ([]Holding, error) {
	items, err := m.catalog.Items(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	balances, err := m.ledger.Balances(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory: %w", err)
	}

	holdings := make([]Holding, 0, len(items))
	for _, item := range items {
		holdings = append(holdings, Holding{
			ItemID:   item.ID,
			ItemName: item.Name,
			Qty:      balances[item.ID],
		})
	}
	return holdings, nil
}

type CreateTradeParams struct {
	CreatorID string
	Type      Kind
	Offer     Offer
	Request   Request
}

// CreateTrade reserves every offered line from the creator and records an
// OPEN trade. Either all lines are reserved and the trade exists, or
// nothing changed.
func (m *Manager) CreateTrade(ctx context.Context, p CreateTradeParams) (*Trade, error) {
	if p.Type != KindFixed && p.Type != KindAuction {
		return nil, fmt.Errorf("%w: unknown trade type %q", ErrInvalidInput, p.Type)
	}
	if err := validateOffer(p.Offer); err != nil {
		return nil, err
	}
	if err := validateRequest(p.Request, p.Type); err != nil {
		return nil, err
	}

	creator, err := m.users.Identify(ctx, p.CreatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to identify creator: %w", err)
	}

	lines := p.Offer.Lines()
	ids := make([]string, 0, len(lines)+1)
	for _, l := range lines {
		ids = append(ids, l.ItemID)
	}
	if err := m.requireItems(ctx, append(ids, requestItems(p.Request)...)...); err != nil {
		return nil, err
	}

	now := m.now()
	trade := &Trade{
		ID:          m.newID(),
		Type:        p.Type,
		Status:      StatusOpen,
		CreatorID:   creator.ID,
		CreatorName: creator.Name,
		Offer:       cloneOffer(p.Offer),
		Request:     cloneRequest(p.Request),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s := m.newSaga(trade.ID)
	for _, l := range lines {
		if err := s.debit(ctx, creator.ID, l); err != nil {
			return nil, s.compensate(ctx, fmt.Errorf("failed to reserve offer: %w", err))
		}
	}
	if err := m.trades.Insert(ctx, trade); err != nil {
		return nil, s.compensate(ctx, fmt.Errorf("failed to save trade: %w", err))
	}

	slog.Info("Trade created",
		slog.String("type", "trade"),
		slog.String("trade_id", trade.ID),
		slog.String("kind", string(trade.Type)),
		slog.String("user_id", creator.ID),
		slog.Int("lines", len(lines)),
	)
	m.publish(ctx, Event{Kind: EventTradeCreated, UserID: creator.ID, Trade: trade})
	return trade.Clone(), nil
}

// AcceptTrade reserves the requested items from the taker and moves a
// FIXED trade from OPEN to PENDING. Exactly one of several concurrent
// takers wins; the others are refunded and get ErrInvalidState.
func (m *Manager) AcceptTrade(ctx context.Context, tradeID, takerID string) (*Trade, error) {
	trade, err := m.trades.Get(ctx, tradeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trade: %w", err)
	}

	taker, err := m.users.Identify(ctx, takerID)
	if err != nil {
		return nil, fmt.Errorf("failed to identify taker: %w", err)
	}

	// Dry run on a copy so nothing is debited for a trade that cannot be accepted.
	if err := trade.Clone().accept(taker, m.now()); err != nil {
		return nil, err
	}
	req, ok := trade.Request.(SpecificRequest)
	if !ok {
		return nil, fmt.Errorf("%w: trade %s has no fixed price", ErrInvalidState, trade.ID)
	}

	s := m.newSaga(trade.ID)
	if err := s.debit(ctx, taker.ID, req.Line); err != nil {
		return nil, fmt.Errorf("failed to reserve payment: %w", err)
	}

	updated, err := m.trades.Update(ctx, trade.ID, func(t *Trade) error {
		return t.accept(taker, m.now())
	})
	if err != nil {
		return nil, s.compensate(ctx, fmt.Errorf("failed to accept trade: %w", err))
	}

	slog.Info("Trade accepted",
		slog.String("type", "trade"),
		slog.String("trade_id", updated.ID),
		slog.String("user_id", taker.ID),
	)
	m.publish(ctx, Event{Kind: EventTradeAccepted, UserID: taker.ID, Trade: updated})
	return updated, nil
}

// ConfirmTrade records the caller's confirmation of a PENDING trade. The
// call that supplies the second confirmation performs the swap.
func (m *Manager) ConfirmTrade(ctx context.Context, tradeID, userID string) (ConfirmOutcome, *Trade, error) {
	if _, err := m.users.Identify(ctx, userID); err != nil {
		return "", nil, fmt.Errorf("failed to identify user: %w", err)
	}

	var completedNow bool
	updated, err := m.trades.Update(ctx, tradeID, func(t *Trade) error {
		var err error
		completedNow, err = t.confirm(userID, m.now())
		return err
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to confirm trade: %w", err)
	}

	if !completedNow {
		m.publish(ctx, Event{Kind: EventTradeConfirmed, UserID: userID, Trade: updated})
		return OutcomeWaiting, updated, nil
	}

	req, ok := updated.Request.(SpecificRequest)
	if !ok {
		return OutcomeCompleted, updated, fmt.Errorf("%w: completed trade %s has no settled request", ErrInvalidState, updated.ID)
	}
	moves := []movement{{step: "deliver", userID: updated.CreatorID, line: req.Line}}
	for _, l := range updated.Offer.Lines() {
		moves = append(moves, movement{step: "deliver", userID: updated.TakerID, line: l})
	}
	settleErr := m.settle(ctx, updated.ID, moves)

	slog.Info("Trade completed",
		slog.String("type", "trade"),
		slog.String("trade_id", updated.ID),
		slog.String("creator_id", updated.CreatorID),
		slog.String("taker_id", updated.TakerID),
		slog.Bool("reconcile", settleErr != nil),
	)
	m.publish(ctx, Event{Kind: EventTradeCompleted, UserID: userID, Trade: updated})
	return OutcomeCompleted, updated, settleErr
}

// CancelTrade closes an OPEN trade and returns every reservation: the
// creator's offer and, for auctions, every outstanding bid.
func (m *Manager) CancelTrade(ctx context.Context, tradeID, userID string) (*Trade, error) {
	if _, err := m.users.Identify(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to identify user: %w", err)
	}

	updated, err := m.trades.Update(ctx, tradeID, func(t *Trade) error {
		return t.cancel(userID, m.now())
	})
	if err != nil {
		return nil, fmt.Errorf("failed to cancel trade: %w", err)
	}

	moves := make([]movement, 0)
	for _, l := range updated.Offer.Lines() {
		moves = append(moves, movement{step: "refund", userID: updated.CreatorID, line: l})
	}
	reconcile := m.settle(ctx, updated.ID, moves)

	if updated.Type == KindAuction {
		if err := m.releaseBids(ctx, updated, ""); err != nil {
			reconcile = mergeReconciliation(updated.ID, reconcile, err)
		}
	}

	slog.Info("Trade cancelled",
		slog.String("type", "trade"),
		slog.String("trade_id", updated.ID),
		slog.String("user_id", userID),
	)
	m.publish(ctx, Event{Kind: EventTradeCancelled, UserID: userID, Trade: updated})
	return updated, reconcile
}

func (m *Manager) GetTrade(ctx context.Context, tradeID string) (*Trade, error) {
	return m.trades.Get(ctx, tradeID)
}

func (m *Manager) ListOpenTrades(ctx context.Context) ([]*Trade, error) {
	return m.trades.List(ctx, TradeFilter{Statuses: []Status{StatusOpen}})
}

// ListTradeHistory returns the user's COMPLETED trades, newest first.
func (m *Manager) ListTradeHistory(ctx context.Context, userID string) ([]*Trade, error) {
	return m.trades.List(ctx, TradeFilter{Statuses: []Status{StatusCompleted}, UserID: userID})
}

func (m *Manager) ListAllTrades(ctx context.Context) ([]*Trade, error) {
	return m.trades.List(ctx, TradeFilter{})
}

// requireUser checks that userID is registered. Frozen accounts pass, so
// an operator can still correct their balances.
func (m *Manager) requireUser(ctx context.Context, userID string) error {
	_, err := m.users.Identify(ctx, userID)
	if err == nil || errors.Is(err, ErrUnauthorized) {
		return nil
	}
	return fmt.Errorf("failed to resolve user: %w", err)
}

func (m *Manager) requireItems(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		ok, err := m.catalog.ItemExists(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to look up item %s: %w", id, err)
		}
		if !ok {
			return fmt.Errorf("%w: item %s", ErrNotFound, id)
		}
	}
	return nil
}

func (m *Manager) publish(ctx context.Context, e Event) {
	if e.ID == "" {
		e.ID = m.newID()
	}
	if e.At.IsZero() {
		e.At = m.now()
	}
	if e.Trade != nil {
		e.Trade = e.Trade.Clone()
	}
	if err := m.publisher.Publish(ctx, e); err != nil {
		slog.Warn("Failed to publish event",
			slog.String("type", "trade"),
			slog.String("event", string(e.Kind)),
			slog.Any("error", err),
		)
	}
}

func mergeReconciliation(tradeID string, errs ...error) error {
	merged := &ReconciliationError{TradeID: tradeID}
	for _, err := range errs {
		if rec, ok := err.(*ReconciliationError); ok && rec != nil {
			merged.Failed = append(merged.Failed, rec.Failed...)
		}
	}
	if len(merged.Failed) == 0 {
		return nil
	}
	return merged
}
