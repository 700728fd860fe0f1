package protocol

import (
	"fmt"

	can "github.com/bioreactor/modulebus/pkg/can"
)

// Application message, always sent as an extended data frame
type Message struct {
	Type     MessageType
	Module   ModuleType
	Instance Instance
	Data     []byte
}

func NewMessage(messageType MessageType, module ModuleType, instance Instance, data ...byte) Message {
	return Message{Type: messageType, Module: module, Instance: instance, Data: data}
}

// Identifier of the message
func (m Message) ID() uint32 {
	return Encode(m.Type, m.Module, m.Instance)
}

// Frame builds the wire frame of the message
func (m Message) Frame() (can.Frame, error) {
	return can.NewDataFrame(m.ID(), true, m.Data)
}

func (m Message) String() string {
	return fmt.Sprintf("%v -> %v/%v % x", m.Type, m.Module, m.Instance, m.Data)
}

// FromFrame decodes an application message.
// ok is false for standard and remote frames, which are not application messages.
func FromFrame(frame can.Frame) (msg Message, ok bool) {
	if !frame.Extended() || frame.Remote() {
		return msg, false
	}
	msg.Type, msg.Module, msg.Instance = Decode(frame.ID)
	msg.Data = append([]byte(nil), frame.Payload()...)
	return msg, true
}

// AdminFrame builds a standard frame carrying an admin command
func AdminFrame(command AdminCommand, data ...byte) (can.Frame, error) {
	return can.NewDataFrame(uint32(command), false, data)
}

// AdminCommandOf returns the admin command of a standard frame
func AdminCommandOf(frame can.Frame) AdminCommand {
	return AdminCommand(frame.ID & can.CanSffMask)
}
