package trading

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// movement is a credit the engine owes a user, either as the inverse of an
// earlier debit or as one side of a completed swap.
type movement struct {
	step   string
	userID string
	line   Line
}

// saga records the inverse of every debit taken so far. On failure the
// inverses run newest first.
type saga struct {
	m       *Manager
	tradeID string
	undo    []movement
}

func (m *Manager) newSaga(tradeID string) *saga {
	return &saga{m: m, tradeID: tradeID}
}

func (s *saga) debit(ctx context.Context, userID string, line Line) error {
	if _, err := s.m.ledger.Adjust(ctx, userID, line.ItemID, -line.Qty); err != nil {
		return err
	}
	s.undo = append(s.undo, movement{step: "refund", userID: userID, line: line})
	return nil
}

// compensate runs every recorded inverse and returns cause, joined with a
// *ReconciliationError when some inverse could not be applied.
func (s *saga) compensate(ctx context.Context, cause error) error {
	failed := make([]FailedCompensation, 0)
	for i := len(s.undo) - 1; i >= 0; i-- {
		if f := s.m.credit(ctx, s.undo[i]); f != nil {
			failed = append(failed, *f)
		}
	}
	s.undo = nil
	if len(failed) == 0 {
		return cause
	}
	return errors.Join(cause, &ReconciliationError{TradeID: s.tradeID, Failed: failed})
}

// settle applies credits that must happen regardless of the caller.
// It returns nil or a *ReconciliationError.
func (m *Manager) settle(ctx context.Context, tradeID string, moves []movement) error {
	var failed []FailedCompensation
	for _, mv := range moves {
		if f := m.credit(ctx, mv); f != nil {
			failed = append(failed, *f)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return &ReconciliationError{TradeID: tradeID, Failed: failed}
}

// credit applies a positive adjustment with bounded retries. The caller's
// cancellation does not stop it; only the per-credit timeout does.
func (m *Manager) credit(ctx context.Context, mv movement) *FailedCompensation {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.creditTimeout)
	defer cancel()

	var err error
retry:
	for attempt := 1; ; attempt++ {
		if _, err = m.ledger.Adjust(ctx, mv.userID, mv.line.ItemID, mv.line.Qty); err == nil {
			return nil
		}
		slog.Warn("Credit attempt failed",
			slog.String("type", "trade"),
			slog.String("step", mv.step),
			slog.String("user_id", mv.userID),
			slog.String("item_id", mv.line.ItemID),
			slog.Int64("qty", mv.line.Qty),
			slog.Int("attempt", attempt),
			slog.Any("error", err),
		)
		if attempt > m.retries {
			break
		}
		select {
		case <-time.After(m.backoff * time.Duration(attempt)):
		case <-ctx.Done():
			err = errors.Join(err, ctx.Err())
			break retry
		}
	}

	slog.Error("Credit abandoned, ledger needs reconciliation",
		slog.String("type", "error"),
		slog.String("step", mv.step),
		slog.String("user_id", mv.userID),
		slog.String("item_id", mv.line.ItemID),
		slog.Int64("qty", mv.line.Qty),
		slog.Any("error", err),
	)
	return &FailedCompensation{
		Step:   mv.step,
		UserID: mv.userID,
		ItemID: mv.line.ItemID,
		Qty:    mv.line.Qty,
		Err:    err,
	}
}
