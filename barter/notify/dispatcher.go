package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/biscuitbarter/barterbot/barter/economy/trading"
)

var (
	ErrQueueFull = errors.New("notification queue full")
	ErrClosed    = errors.New("dispatcher closed")
)

// Dispatcher decouples trading operations from slow sinks. Publish only
// enqueues; workers deliver to the sink with their own timeout. When the
// queue is full the event is dropped and logged.
type Dispatcher struct {
	sink    trading.Publisher
	queue   chan trading.Event
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(sink trading.Publisher, queueSize, workers int, timeout time.Duration) *Dispatcher {
	if queueSize < 1 {
		queueSize = 1
	}
	if workers < 1 {
		workers = 1
	}
	d := &Dispatcher{
		sink:    sink,
		queue:   make(chan trading.Event, queueSize),
		timeout: timeout,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	return d
}

func (d *Dispatcher) Publish(_ context.Context, e trading.Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}

	select {
	case d.queue <- e:
		return nil
	default:
		slog.Warn("Dropping notification",
			slog.String("type", "notify"),
			slog.String("kind", string(e.Kind)),
			slog.String("event_id", e.ID))
		return ErrQueueFull
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for e := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.sink.Publish(ctx, e); err != nil {
			slog.Warn("Notification delivery failed",
				slog.String("type", "notify"),
				slog.String("kind", string(e.Kind)),
				slog.String("event_id", e.ID),
				slog.Any("error", err))
		}
		cancel()
	}
}

// Close stops accepting events and waits until queued ones are delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}
