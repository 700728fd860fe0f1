package module

import (
	"encoding/binary"

	can "github.com/bioreactor/modulebus/pkg/can"
	"github.com/bioreactor/modulebus/pkg/protocol"
	log "github.com/sirupsen/logrus"
)

// Sender is the outbound side of the transport
type Sender interface {
	Send(frame can.Frame) (int, error)
	SendMessage(message protocol.Message) (int, error)
}

// CommonCore answers the requests every module must handle :
// ping, module probing and serial number queries.
type CommonCore struct {
	sender   Sender
	module   protocol.ModuleType
	instance protocol.Instance
	serial   uint64
}

func NewCommonCore(sender Sender, module protocol.ModuleType, instance protocol.Instance, serial uint64) *CommonCore {
	return &CommonCore{sender: sender, module: module, instance: instance, serial: serial}
}

// ReceiveMessage implements [routing.Receiver]
func (c *CommonCore) ReceiveMessage(message protocol.Message) bool {
	switch message.Type {
	case protocol.PingRequest:
		log.Debugf("[CORE] ping % x", message.Data)
		return c.reply(protocol.PingResponse, message.Data...)
	case protocol.ProbeModulesRequest:
		return c.reply(protocol.ProbeModulesResponse)
	default:
		log.Debugf("[CORE] unhandled message %v", message.Type)
		return false
	}
}

// ReceiveFrame implements [routing.Receiver], only admin commands are expected
func (c *CommonCore) ReceiveFrame(frame can.Frame) bool {
	command := protocol.AdminCommandOf(frame)
	switch command {
	case protocol.AdminProbeModulesRequest:
		return c.replyAdmin(protocol.AdminProbeModulesResponse, byte(c.module), byte(c.instance))
	case protocol.AdminSerialIDRequest:
		serial := binary.BigEndian.AppendUint64(nil, c.serial)
		return c.replyAdmin(protocol.AdminSerialIDResponse, serial...)
	default:
		log.Debugf("[CORE] unhandled admin command %v", command)
		return false
	}
}

func (c *CommonCore) reply(messageType protocol.MessageType, data ...byte) bool {
	_, err := c.sender.SendMessage(protocol.NewMessage(messageType, c.module, c.instance, data...))
	if err != nil {
		log.Warnf("[CORE] failed to send %v : %v", messageType, err)
	}
	// Request was handled even if the answer was dropped
	return true
}

func (c *CommonCore) replyAdmin(command protocol.AdminCommand, data ...byte) bool {
	frame, err := protocol.AdminFrame(command, data...)
	if err == nil {
		_, err = c.sender.Send(frame)
	}
	if err != nil {
		log.Warnf("[CORE] failed to send %v : %v", command, err)
	}
	return true
}
