package notify

import (
	"context"
	"errors"

	"github.com/biscuitbarter/barterbot/barter/economy/trading"
	"golang.org/x/sync/errgroup"
)

// Multi delivers every event to all sinks concurrently. A failing sink does
// not stop the others; their errors are joined.
type Multi []trading.Publisher

func (m Multi) Publish(ctx context.Context, e trading.Event) error {
	errs := make([]error, len(m))

	var g errgroup.Group
	for i, p := range m {
		g.Go(func() error {
			errs[i] = p.Publish(ctx, e)
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}
