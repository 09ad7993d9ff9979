package trading

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidState      = errors.New("invalid trade state")
	ErrUnauthorized      = errors.New("not allowed")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrSelfTrade         = errors.New("cannot trade with yourself")
	ErrStorageConflict   = errors.New("storage conflict")
	ErrInvalidInput      = errors.New("invalid input")
)

// InsufficientStockError carries the shortfall of a rejected debit.
type InsufficientStockError struct {
	UserID string
	ItemID string
	Have   int64
	Need   int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock of %s for %s: have %d, need %d", e.ItemID, e.UserID, e.Have, e.Need)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Missing is how many more units the user would need.
func (e *InsufficientStockError) Missing() int64 {
	if e.Need <= e.Have {
		return 0
	}
	return e.Need - e.Have
}

// FailedCompensation is a ledger movement that could not be applied
// after all retries.
type FailedCompensation struct {
	Step   string
	UserID string
	ItemID string
	Qty    int64
	Err    error
}

// ReconciliationError reports ledger drift that needs an operator.
// The trade record it refers to is already durable.
type ReconciliationError struct {
	TradeID string
	Failed  []FailedCompensation
}

func (e *ReconciliationError) Error() string {
	parts := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		parts = append(parts, fmt.Sprintf("%s %d %s to %s: %v", f.Step, f.Qty, f.ItemID, f.UserID, f.Err))
	}
	return fmt.Sprintf("trade %s needs reconciliation: %s", e.TradeID, strings.Join(parts, "; "))
}

func (e *ReconciliationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, f := range e.Failed {
		errs = append(errs, f.Err)
	}
	return errs
}
