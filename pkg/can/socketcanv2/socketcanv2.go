//go:build linux

package socketcanv2

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	can "github.com/bioreactor/modulebus/pkg/can"
	"golang.org/x/sys/unix"
)

// Controller over a raw AF_CAN socket, without intermediate library.
// Reception uses a read timeout so that the reading goroutine can exit.

const (
	SocketCANFrameSize = 16
	DefaultRcvTimeout  = 100 * time.Millisecond
	MailboxSize        = 8

	canEffFlag uint32 = unix.CAN_EFF_FLAG
	canRtrFlag uint32 = unix.CAN_RTR_FLAG
	canErrFlag uint32 = unix.CAN_ERR_FLAG
)

func init() {
	can.RegisterInterface("socketcanv2", NewSocketCanController)
}

type SocketcanController struct {
	fd       int
	logger   *slog.Logger
	mu       sync.Mutex
	listener can.EventListener
	mailbox  chan can.Frame
	cancel   context.CancelFunc
	closed   bool
	wg       sync.WaitGroup
}

var ErrClosed = errors.New("socket already closed")

// Create a new SocketCAN controller. This expects the CAN channel to be up.
// e.g. running "ip a" should show can0 or something similar.
func NewSocketCanController(config can.Config) (can.Controller, error) {
	iface, err := net.InterfaceByName(config.Channel)
	if err != nil {
		return nil, err
	}
	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("failed to create CAN socket : %v", err)
	}
	tv := unix.NsecToTimeval(DefaultRcvTimeout.Nanoseconds())
	err = unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to set read timeout %v", err)
	}
	// Error frames are reported as controller error events
	err = unix.SetsockoptInt(fd, unix.SOL_CAN_RAW, unix.CAN_RAW_ERR_FILTER, int(unix.CAN_ERR_MASK))
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to set error filter %v", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrCAN{Ifindex: iface.Index}); err != nil {
		unix.Close(fd)
		return nil, err
	}
	logger := slog.Default().With("channel", config.Channel, "unit", config.Unit)
	return &SocketcanController{fd: fd, logger: logger}, nil
}

// "Start" implementation of Controller interface
func (s *SocketcanController) Start(listener can.EventListener) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.listener = listener
	if s.cancel != nil {
		return nil
	}
	var ctx context.Context
	ctx, s.cancel = context.WithCancel(context.Background())
	s.mailbox = make(chan can.Frame, MailboxSize)
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.processIncoming(ctx)
	}()
	go func() {
		defer s.wg.Done()
		s.processOutgoing(ctx, s.mailbox)
	}()
	return nil
}

// "Stop" implementation of Controller interface
// The socket is closed even if the controller was never started, it cannot be restarted.
func (s *SocketcanController) Stop() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		s.wg.Wait()
	}
	return unix.Close(s.fd)
}

// "Transmit" implementation of Controller interface
func (s *SocketcanController) Transmit(frame can.Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
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
	return s.cancel != nil && len(s.mailbox) < cap(s.mailbox)
}

// Enable own reception on the bus. CAN be useful when testing for example
func (s *SocketcanController) SetReceiveOwn(enabled bool) error {
	enabledInt := 0
	if enabled {
		enabledInt = 1
	}
	s.logger.Info("setting option 'CAN_RAW_RECV_OWN_MSGS'", "fd", s.fd, "enabled", enabled)
	return unix.SetsockoptInt(s.fd, unix.SOL_CAN_RAW, unix.CAN_RAW_RECV_OWN_MSGS, enabledInt)
}

// Add some filtering to CAN bus
func (s *SocketcanController) SetFilters(filters []unix.CanFilter) error {
	s.logger.Info("setting option 'CAN_RAW_FILTER'", "fd", s.fd, "filters", filters)
	return unix.SetsockoptCanRawFilter(s.fd, unix.SOL_CAN_RAW, unix.CAN_RAW_FILTER, filters)
}

func (s *SocketcanController) signal(event can.Event, frame can.Frame) {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener != nil {
		listener.Handle(event, frame)
	}
}

// process incoming frames. This is meant to be run inside of a goroutine
func (s *SocketcanController) processIncoming(ctx context.Context) {
	rxFrame := make([]byte, SocketCANFrameSize)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("exiting CAN bus reception, closed")
			return
		default:
			n, err := unix.Read(s.fd, rxFrame)
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			if n != SocketCANFrameSize || err != nil {
				s.logger.Info("exiting CAN bus reception", "err", err)
				return
			}
			frame, isError := decodeFrame(rxFrame)
			if isError {
				s.signal(can.EventError, can.Frame{})
				continue
			}
			s.signal(can.EventReceived, frame)
		}
	}
}

func (s *SocketcanController) processOutgoing(ctx context.Context, mailbox chan can.Frame) {
	txFrame := make([]byte, SocketCANFrameSize)
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-mailbox:
			encodeFrame(frame, txFrame)
			n, err := unix.Write(s.fd, txFrame)
			if n != SocketCANFrameSize || err != nil {
				s.logger.Warn("failed to write frame", "frame", frame.String(), "err", err)
				s.signal(can.EventError, can.Frame{})
				continue
			}
			s.signal(can.EventTransmitted, can.Frame{})
		}
	}
}

// Encode into kernel "struct can_frame" layout (host byte order is little endian on supported targets)
func encodeFrame(frame can.Frame, raw []byte) {
	id := frame.ID
	if frame.Extended() {
		id = (id & can.CanEffMask) | canEffFlag
	} else {
		id &= can.CanSffMask
	}
	if frame.Remote() {
		id |= canRtrFlag
	}
	binary.LittleEndian.PutUint32(raw[0:4], id)
	raw[4] = frame.DLC
	raw[5], raw[6], raw[7] = 0, 0, 0
	copy(raw[8:16], frame.Data[:])
}

func decodeFrame(raw []byte) (frame can.Frame, isError bool) {
	id := binary.LittleEndian.Uint32(raw[0:4])
	if id&canErrFlag != 0 {
		return frame, true
	}
	if id&canEffFlag != 0 {
		frame.ID = id & can.CanEffMask
		frame.Flags |= can.FlagExtended
	} else {
		frame.ID = id & can.CanSffMask
	}
	if id&canRtrFlag != 0 {
		frame.Flags |= can.FlagRemote
	}
	frame.DLC = raw[4]
	if frame.DLC > can.MaxDLC {
		frame.DLC = can.MaxDLC
	}
	copy(frame.Data[:], raw[8:16])
	return frame, false
}
