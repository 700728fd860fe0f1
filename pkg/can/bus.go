package can

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Identifier limits
const (
	CanSffMask uint32 = 0x000007FF // Standard frame 11 bit identifier
	CanEffMask uint32 = 0x1FFFFFFF // Extended frame 29 bit identifier
	MaxDLC            = 8
)

// Frame flags
const (
	FlagExtended uint8 = 0x01
	FlagRemote   uint8 = 0x02
)

var (
	ErrInvalidID            = errors.New("identifier does not fit in frame format")
	ErrInvalidLength        = errors.New("frame payload exceeds 8 bytes")
	ErrUnsupportedInterface = errors.New("unsupported interface")
)

// A CAN frame
type Frame struct {
	ID    uint32
	Flags uint8
	DLC   uint8
	Data  [8]byte
}

func NewFrame(id uint32, flags uint8, dlc uint8) Frame {
	return Frame{ID: id, Flags: flags, DLC: dlc}
}

// Create a data frame from a payload slice, the payload is copied.
func NewDataFrame(id uint32, extended bool, data []byte) (Frame, error) {
	frame := Frame{ID: id}
	if extended {
		frame.Flags |= FlagExtended
	}
	if len(data) > MaxDLC {
		return frame, ErrInvalidLength
	}
	frame.DLC = uint8(copy(frame.Data[:], data))
	return frame, frame.Validate()
}

func (f Frame) Extended() bool {
	return f.Flags&FlagExtended != 0
}

func (f Frame) Remote() bool {
	return f.Flags&FlagRemote != 0
}

// Payload returns the significant data bytes (DLC long)
func (f Frame) Payload() []byte {
	dlc := f.DLC
	if dlc > MaxDLC {
		dlc = MaxDLC
	}
	return f.Data[:dlc]
}

// Validate checks identifier width against frame format and payload length
func (f Frame) Validate() error {
	if f.DLC > MaxDLC {
		return ErrInvalidLength
	}
	if f.Extended() {
		if f.ID&^CanEffMask != 0 {
			return ErrInvalidID
		}
	} else if f.ID&^CanSffMask != 0 {
		return ErrInvalidID
	}
	return nil
}

// Events signaled by a controller to its listener
type Event uint8

const (
	EventReceived    Event = 1 << iota // A frame was received
	EventTransmitted                   // A frame left the hardware buffer
	EventError                         // Controller error, no payload
)

func (e Event) Has(other Event) bool {
	return e&other != 0
}

func (e Event) String() string {
	switch e {
	case EventReceived:
		return "received"
	case EventTransmitted:
		return "transmitted"
	case EventError:
		return "error"
	}
	return fmt.Sprintf("events(0x%x)", uint8(e))
}

// Interface for handling controller events.
// Handle is called from the controller's interrupt context : it must not block.
// The frame is only meaningful for [EventReceived].
type EventListener interface {
	Handle(event Event, frame Frame)
}

// A Controller is the hardware CAN engine.
// It exposes a small transmit buffer and reports activity through an [EventListener].
type Controller interface {
	Start(listener EventListener) error // Start the engine and deliver events to listener
	Stop() error                        // Stop the engine
	Transmit(frame Frame) bool          // Put frame in hardware buffer, false if rejected
	TransmitAvailable() bool            // Whether hardware buffer has room
}

// Boundary configuration of a controller, supplied once at construction
type Config struct {
	Channel string
	Bitrate int
	Unit    uint8
	RxPin   uint8
	TxPin   uint8
}

type NewControllerFunc func(config Config) (Controller, error)

var registryMu sync.RWMutex
var interfaceRegistry = make(map[string]NewControllerFunc)

// Register a new CAN controller type
// This should be called inside an init() function of plugin
func RegisterInterface(interfaceType string, newController NewControllerFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	interfaceRegistry[interfaceType] = newController
}

// List registered controller types
func Interfaces() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(interfaceRegistry))
	for name := range interfaceRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create a new controller of the given type
// Available types depend on imported plugins e.g. virtual, socketcan, socketcanv2
func NewController(canInterface string, config Config) (Controller, error) {
	registryMu.RLock()
	createController, ok := interfaceRegistry[canInterface]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w : %v", ErrUnsupportedInterface, canInterface)
	}
	return createController(config)
}
