package virtual

import (
	"log/slog"
	"sync"

	can "github.com/bioreactor/modulebus/pkg/can"
)

// Software emulated CAN engine, primarily used for testing and simulation.
// Controllers attached to the same [Hub] see each other's frames.
// Each controller has a small transmit mailbox like the real hardware,
// frames are moved from the mailbox to the hub by a dedicated goroutine.

const MailboxSize = 8

var defaultHub = NewHub()

func init() {
	// All controllers created through the registry share one hub, channel is ignored
	can.RegisterInterface("virtual", func(config can.Config) (can.Controller, error) {
		return defaultHub.NewController(), nil
	})
}

// Hub connects virtual controllers
type Hub struct {
	mu          sync.Mutex
	controllers map[*Controller]struct{}
}

func NewHub() *Hub {
	return &Hub{controllers: make(map[*Controller]struct{})}
}

// Create a new controller attached to the hub
func (h *Hub) NewController() *Controller {
	return &Controller{hub: h, logger: slog.Default()}
}

func (h *Hub) attach(c *Controller) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.controllers[c] = struct{}{}
}

func (h *Hub) detach(c *Controller) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.controllers, c)
}

// Deliver frame to every controller except sender, unless it receives its own.
// Only one frame is on the bus at a time.
func (h *Hub) broadcast(sender *Controller, frame can.Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.controllers {
		if c == sender && !c.receiveOwn {
			continue
		}
		c.signal(can.EventReceived, frame)
	}
}

type Controller struct {
	hub        *Hub
	logger     *slog.Logger
	mu         sync.Mutex
	listener   can.EventListener
	mailbox    chan can.Frame
	stop       chan struct{}
	wg         sync.WaitGroup
	receiveOwn bool
	running    bool
}

// "Start" implementation of Controller interface
func (c *Controller) Start(listener can.EventListener) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listener = listener
	if c.running {
		return nil
	}
	c.mailbox = make(chan can.Frame, MailboxSize)
	c.stop = make(chan struct{})
	c.running = true
	c.hub.attach(c)
	c.wg.Add(1)
	go c.process(c.mailbox, c.stop)
	return nil
}

// "Stop" implementation of Controller interface
func (c *Controller) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	close(c.stop)
	c.mu.Unlock()
	c.hub.detach(c)
	c.wg.Wait()
	return nil
}

// "Transmit" implementation of Controller interface
func (c *Controller) Transmit(frame can.Frame) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return false
	}
	select {
	case c.mailbox <- frame:
		return true
	default:
		return false
	}
}

// "TransmitAvailable" implementation of Controller interface
func (c *Controller) TransmitAvailable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running && len(c.mailbox) < cap(c.mailbox)
}

// Raise a controller error event, e.g. to simulate bus errors
func (c *Controller) InjectError() {
	c.signal(can.EventError, can.Frame{})
}

// Receive own transmitted frames
func (c *Controller) SetReceiveOwn(receiveOwn bool) {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	c.receiveOwn = receiveOwn
}

func (c *Controller) signal(event can.Event, frame can.Frame) {
	c.mu.Lock()
	listener := c.listener
	running := c.running
	c.mu.Unlock()
	if running && listener != nil {
		listener.Handle(event, frame)
	}
}

// Move frames from mailbox onto the hub in order
func (c *Controller) process(mailbox chan can.Frame, stop chan struct{}) {
	defer c.wg.Done()
	for {
		select {
		case <-stop:
			c.logger.Debug("virtual controller stopped", "pending", len(mailbox))
			return
		case frame := <-mailbox:
			c.hub.broadcast(c, frame)
			c.signal(can.EventTransmitted, can.Frame{})
		}
	}
}
