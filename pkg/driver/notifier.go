package driver

import (
	"context"
	"sync/atomic"

	can "github.com/bioreactor/modulebus/pkg/can"
)

// Notifier is a small event group : interrupt context sets bits
// and wakes at most one waiting task, without blocking or allocating.
type Notifier struct {
	pending atomic.Uint32
	wake    chan struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{wake: make(chan struct{}, 1)}
}

// Notify sets event bits, safe from interrupt context
func (n *Notifier) Notify(event can.Event) {
	for {
		old := n.pending.Load()
		if n.pending.CompareAndSwap(old, old|uint32(event)) {
			break
		}
	}
	select {
	case n.wake <- struct{}{}:
	default:
	}
}

// Wait blocks until at least one event is pending, then returns and clears all pending events
func (n *Notifier) Wait(ctx context.Context) (can.Event, error) {
	for {
		if events := n.pending.Swap(0); events != 0 {
			return can.Event(events), nil
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-n.wake:
		}
	}
}

// Pending events without clearing them
func (n *Notifier) Pending() can.Event {
	return can.Event(n.pending.Load())
}
