// Package transport bridges the CAN driver's interrupt context with task context.
//
// A single task, [Transport.Run], waits for driver events. On reception it
// drains the driver into a bounded inbound queue and hands frames one at a time,
// in arrival order, to a [Dispatcher]. On transmission complete it refills the
// hardware buffer from a bounded outbound queue.
//
// [Transport.Send] never blocks : the frame is either transmitted directly,
// queued, or dropped with [ErrQueueFull].
//
// Outbound ordering : a Send that finds the queue empty and the hardware free
// transmits directly, bypassing the queue to keep latency low. Queued frames
// leave in FIFO order, a queued frame is only removed once the hardware accepted
// it. Frames from concurrent senders are ordered by the time they reach Send,
// callers needing a stricter order must serialize their own traffic.
package transport

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/bioreactor/modulebus/internal/fifo"
	can "github.com/bioreactor/modulebus/pkg/can"
	"github.com/bioreactor/modulebus/pkg/protocol"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultTxQueueSize = 64
	DefaultRxQueueSize = 64
)

var ErrQueueFull = errors.New("outbound queue full, frame dropped")

// Driver is the interrupt side of the bus, see [driver.Driver]
type Driver interface {
	Transmit(frame can.Frame) bool
	TransmitAvailable() bool
	Receive() (can.Frame, bool)
	Wait(ctx context.Context) (can.Event, error)
}

// Dispatcher consumes inbound frames, returns whether the frame was routed
type Dispatcher interface {
	Route(frame can.Frame) bool
}

type Options struct {
	TxQueueSize int
	RxQueueSize int
}

// Stats snapshot of the transport counters
type Stats struct {
	SentDirect    uint64 // Frames transmitted without queuing
	Queued        uint64 // Frames put in outbound queue
	Retransmitted uint64 // Queued frames handed to hardware
	TxDropped     uint64 // Frames dropped on full outbound queue
	RxDropped     uint64 // Frames dropped on full inbound queue
	Routed        uint64 // Frames accepted by a component
	Unrouted      uint64 // Frames not for us or not accepted
	Errors        uint64 // Bus error events
	TxPending     int    // Frames currently in outbound queue
}

type Transport struct {
	driver     Driver
	dispatcher Dispatcher

	// Outbound queue is shared by senders and the task
	txMu sync.Mutex
	tx   *fifo.Fifo[can.Frame]
	// Inbound queue is only touched by the task
	rx *fifo.Fifo[can.Frame]

	sentDirect    atomic.Uint64
	queued        atomic.Uint64
	retransmitted atomic.Uint64
	txDropped     atomic.Uint64
	rxDropped     atomic.Uint64
	routed        atomic.Uint64
	unrouted      atomic.Uint64
	errors        atomic.Uint64
}

func New(driver Driver, dispatcher Dispatcher, options Options) *Transport {
	if options.TxQueueSize <= 0 {
		options.TxQueueSize = DefaultTxQueueSize
	}
	if options.RxQueueSize <= 0 {
		options.RxQueueSize = DefaultRxQueueSize
	}
	return &Transport{
		driver:     driver,
		dispatcher: dispatcher,
		tx:         fifo.NewFifo[can.Frame](options.TxQueueSize),
		rx:         fifo.NewFifo[can.Frame](options.RxQueueSize),
	}
}

// Send a frame without blocking.
// Returns the number of frames waiting in the outbound queue after the call,
// 0 if the frame was handed directly to the hardware.
func (t *Transport) Send(frame can.Frame) (int, error) {
	t.txMu.Lock()
	defer t.txMu.Unlock()
	if t.tx.GetOccupied() == 0 && t.driver.TransmitAvailable() && t.driver.Transmit(frame) {
		t.sentDirect.Add(1)
		return 0, nil
	}
	if !t.tx.Write(frame) {
		t.txDropped.Add(1)
		log.Warnf("[CAN][TX] outbound queue full (%v), dropping %v", t.tx.Cap(), frame)
		return t.tx.GetOccupied(), ErrQueueFull
	}
	t.queued.Add(1)
	return t.tx.GetOccupied(), nil
}

// SendMessage encodes and sends an application message
func (t *Transport) SendMessage(message protocol.Message) (int, error) {
	frame, err := message.Frame()
	if err != nil {
		return 0, err
	}
	return t.Send(frame)
}

// Run the transport task until ctx is done
func (t *Transport) Run(ctx context.Context) error {
	log.Infof("[CAN] transport task started (tx queue %v, rx queue %v)", t.tx.Cap(), t.rx.Cap())
	for {
		events, err := t.driver.Wait(ctx)
		if err != nil {
			log.Infof("[CAN] transport task exited : %v", err)
			return err
		}
		t.Process(events)
	}
}

// Process handles one batch of driver events.
// It is called by [Transport.Run], and may be called directly by a caller owning the task.
func (t *Transport) Process(events can.Event) {
	if events.Has(can.EventError) {
		t.errors.Add(1)
		log.Warnf("[CAN] bus error event")
	}
	if events.Has(can.EventTransmitted) {
		t.drainOutbound()
	}
	if events.Has(can.EventReceived) {
		t.drainInbound()
		t.dispatch()
	}
	// A failed direct transmit may leave frames queued with free hardware
	if t.pendingWithSpace() {
		t.drainOutbound()
	}
}

// Move queued frames to the hardware until it is full or queue is empty.
// A frame leaves the queue only once the hardware accepted it.
func (t *Transport) drainOutbound() {
	t.txMu.Lock()
	defer t.txMu.Unlock()
	for t.driver.TransmitAvailable() {
		frame, ok := t.tx.Peek()
		if !ok || !t.driver.Transmit(frame) {
			return
		}
		t.tx.Read()
		t.retransmitted.Add(1)
	}
}

func (t *Transport) pendingWithSpace() bool {
	t.txMu.Lock()
	defer t.txMu.Unlock()
	return t.tx.GetOccupied() > 0 && t.driver.TransmitAvailable()
}

// Move frames from the driver into the inbound queue
func (t *Transport) drainInbound() {
	for {
		frame, ok := t.driver.Receive()
		if !ok {
			return
		}
		if !t.rx.Write(frame) {
			t.rxDropped.Add(1)
			log.Warnf("[CAN][RX] inbound queue full (%v), dropping %v", t.rx.Cap(), frame)
		}
	}
}

// Hand inbound frames to the dispatcher in arrival order
func (t *Transport) dispatch() {
	for {
		frame, ok := t.rx.Read()
		if !ok {
			return
		}
		if t.dispatcher.Route(frame) {
			t.routed.Add(1)
		} else {
			t.unrouted.Add(1)
		}
	}
}

func (t *Transport) Stats() Stats {
	t.txMu.Lock()
	pending := t.tx.GetOccupied()
	t.txMu.Unlock()
	return Stats{
		SentDirect:    t.sentDirect.Load(),
		Queued:        t.queued.Load(),
		Retransmitted: t.retransmitted.Load(),
		TxDropped:     t.txDropped.Load(),
		RxDropped:     t.rxDropped.Load(),
		Routed:        t.routed.Load(),
		Unrouted:      t.unrouted.Load(),
		Errors:        t.errors.Load(),
		TxPending:     pending,
	}
}
