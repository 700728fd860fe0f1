package driver

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/bioreactor/modulebus/internal/fifo"
	can "github.com/bioreactor/modulebus/pkg/can"
)

const DefaultRxQueueSize = 64

type Options struct {
	// Size of the inbound queue filled from interrupt context
	RxQueueSize int
	// Drop standard frames before they reach the inbound queue
	ExtendedOnly bool
	Logger       *slog.Logger
}

// Counters of the interrupt side of the driver
type Stats struct {
	Received    uint64 // Frames put in inbound queue
	RxDropped   uint64 // Frames lost because inbound queue was full
	StdFiltered uint64 // Standard frames dropped with ExtendedOnly
	Transmitted uint64 // Transmission complete events
	Errors      uint64 // Controller error events
	TxRejected  uint64 // Transmit calls refused by controller
}

// Driver owns a hardware CAN controller.
// The controller's events are handled in interrupt context : received frames
// are copied into a bounded inbound queue and a task is woken through the notifier.
// Only one task may call [Driver.Receive].
type Driver struct {
	controller   can.Controller
	logger       *slog.Logger
	rx           *fifo.Fifo[can.Frame]
	notifier     *Notifier
	extendedOnly bool
	started      atomic.Bool

	received    atomic.Uint64
	rxDropped   atomic.Uint64
	stdFiltered atomic.Uint64
	transmitted atomic.Uint64
	errors      atomic.Uint64
	txRejected  atomic.Uint64
}

func New(controller can.Controller, options Options) *Driver {
	if options.RxQueueSize <= 0 {
		options.RxQueueSize = DefaultRxQueueSize
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &Driver{
		controller:   controller,
		logger:       options.Logger,
		rx:           fifo.NewFifo[can.Frame](options.RxQueueSize),
		notifier:     NewNotifier(),
		extendedOnly: options.ExtendedOnly,
	}
}

// Start the underlying controller, events are delivered to the driver
func (d *Driver) Start() error {
	if err := d.controller.Start(d); err != nil {
		return err
	}
	d.started.Store(true)
	d.logger.Info("CAN driver started", "rx queue", d.rx.Cap(), "extended only", d.extendedOnly)
	return nil
}

func (d *Driver) Stop() error {
	d.started.Store(false)
	return d.controller.Stop()
}

// Handle implements [can.EventListener], it runs in interrupt context.
// Received frames must be signaled by one goroutine at a time.
func (d *Driver) Handle(event can.Event, frame can.Frame) {
	switch event {
	case can.EventReceived:
		if d.extendedOnly && !frame.Extended() {
			d.stdFiltered.Add(1)
			return
		}
		if !d.rx.Write(frame) {
			d.rxDropped.Add(1)
		} else {
			d.received.Add(1)
		}
	case can.EventTransmitted:
		d.transmitted.Add(1)
	case can.EventError:
		d.errors.Add(1)
	default:
		return
	}
	d.notifier.Notify(event)
}

// Transmit puts frame in the hardware buffer, returns false if refused.
// A refused frame is not retried, callers should check [Driver.TransmitAvailable] first.
func (d *Driver) Transmit(frame can.Frame) bool {
	if !d.started.Load() || !d.controller.Transmit(frame) {
		d.txRejected.Add(1)
		return false
	}
	return true
}

func (d *Driver) TransmitAvailable() bool {
	return d.started.Load() && d.controller.TransmitAvailable()
}

// Receive dequeues one received frame without blocking
func (d *Driver) Receive() (can.Frame, bool) {
	return d.rx.Read()
}

func (d *Driver) ReceivedQueueSize() int {
	return d.rx.GetOccupied()
}

// Wait blocks until the controller signaled at least one event
func (d *Driver) Wait(ctx context.Context) (can.Event, error) {
	return d.notifier.Wait(ctx)
}

func (d *Driver) Stats() Stats {
	return Stats{
		Received:    d.received.Load(),
		RxDropped:   d.rxDropped.Load(),
		StdFiltered: d.stdFiltered.Load(),
		Transmitted: d.transmitted.Load(),
		Errors:      d.errors.Load(),
		TxRejected:  d.txRejected.Load(),
	}
}
