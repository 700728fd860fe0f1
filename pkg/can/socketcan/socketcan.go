package socketcan

import (
	"log/slog"
	"sync"

	can "github.com/bioreactor/modulebus/pkg/can"
	sockcan "github.com/brutella/can"
)

// Controller wrapper around socketcan, it uses the implementation
// that can be found here : https://github.com/brutella/can
// Frames are queued in a small mailbox and written by a single goroutine,
// which emulates the hardware transmit buffer.

const (
	canEffFlag  uint32 = 0x80000000
	canRtrFlag  uint32 = 0x40000000
	canErrFlag  uint32 = 0x20000000
	MailboxSize        = 8
)

func init() {
	can.RegisterInterface("socketcan", NewSocketCanController)
}

type SocketcanController struct {
	bus      *sockcan.Bus
	logger   *slog.Logger
	mu       sync.Mutex
	listener can.EventListener
	mailbox  chan can.Frame
	stop     chan struct{}
	wg       sync.WaitGroup
	running  bool
}

func NewSocketCanController(config can.Config) (can.Controller, error) {
	bus, err := sockcan.NewBusForInterfaceWithName(config.Channel)
	if err != nil {
		return nil, err
	}
	return &SocketcanController{bus: bus, logger: slog.Default().With("channel", config.Channel)}, nil
}

// "Start" implementation of Controller interface
func (s *SocketcanController) Start(listener can.EventListener) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = listener
	if s.running {
		return nil
	}
	s.mailbox = make(chan can.Frame, MailboxSize)
	s.stop = make(chan struct{})
	s.running = true
	// brutella/can defines a "Handle" interface for handling received CAN frames
	s.bus.Subscribe(s)
	go func() {
		err := s.bus.ConnectAndPublish()
		if err != nil {
			s.logger.Error("socketcan reception stopped", "err", err)
			s.signal(can.EventError, can.Frame{})
		}
	}()
	s.wg.Add(1)
	go s.processOutgoing(s.mailbox, s.stop)
	return nil
}

// "Stop" implementation of Controller interface
func (s *SocketcanController) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stop)
	s.mu.Unlock()
	s.wg.Wait()
	return s.bus.Disconnect()
}

// "Transmit" implementation of Controller interface
func (s *SocketcanController) Transmit(frame can.Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return false
	}
	select {
	case s.mailbox <- frame:
		return true
	default:
		return false
	}
}

// "TransmitAvailable" implementation of Controller interface
func (s *SocketcanController) TransmitAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running && len(s.mailbox) < cap(s.mailbox)
}

// brutella/can specific "Handle" implementation
func (s *SocketcanController) Handle(frame sockcan.Frame) {
	if frame.ID&canErrFlag != 0 {
		s.signal(can.EventError, can.Frame{})
		return
	}
	s.signal(can.EventReceived, fromSocketcan(frame))
}

func (s *SocketcanController) signal(event can.Event, frame can.Frame) {
	s.mu.Lock()
	listener := s.listener
	running := s.running
	s.mu.Unlock()
	if running && listener != nil {
		listener.Handle(event, frame)
	}
}

func (s *SocketcanController) processOutgoing(mailbox chan can.Frame, stop chan struct{}) {
	defer s.wg.Done()
	for {
		select {
		case <-stop:
			return
		case frame := <-mailbox:
			err := s.bus.Publish(toSocketcan(frame))
			if err != nil {
				s.logger.Warn("failed to publish frame", "frame", frame.String(), "err", err)
				s.signal(can.EventError, can.Frame{})
				continue
			}
			s.signal(can.EventTransmitted, can.Frame{})
		}
	}
}

// Convert to brutella frame, flags are carried in the identifier
func toSocketcan(frame can.Frame) sockcan.Frame {
	id := frame.ID
	if frame.Extended() {
		id = (id & can.CanEffMask) | canEffFlag
	} else {
		id &= can.CanSffMask
	}
	if frame.Remote() {
		id |= canRtrFlag
	}
	return sockcan.Frame{ID: id, Length: frame.DLC, Data: frame.Data}
}

// Convert brutella frame to neutral frame
func fromSocketcan(frame sockcan.Frame) can.Frame {
	converted := can.Frame{DLC: frame.Length, Data: frame.Data}
	if frame.ID&canEffFlag != 0 {
		converted.ID = frame.ID & can.CanEffMask
		converted.Flags |= can.FlagExtended
	} else {
		converted.ID = frame.ID & can.CanSffMask
	}
	if frame.ID&canRtrFlag != 0 {
		converted.Flags |= can.FlagRemote
	}
	return converted
}
