package protocol

import (
	"testing"

	can "github.com/bioreactor/modulebus/pkg/can"
	"github.com/stretchr/testify/assert"
)

func TestEncodeLayout(t *testing.T) {
	id := Encode(PingRequest, ModuleAny, InstanceAll)
	assert.EqualValues(t, 0x00020021, id)
	id = Encode(MessageReserved, ModuleReserved, Instance11)
	assert.EqualValues(t, 0x0FFF0FFF, id)
	// Always fits in 29 bits with unused bits cleared
	assert.Zero(t, id&^uint32(0x0FFF0FFF))
}

func TestEncodeTruncates(t *testing.T) {
	id := Encode(MessageType(0x1ABC), ModuleSensor, Instance(0x13))
	messageType, module, instance := Decode(id)
	assert.Equal(t, MessageType(0xABC), messageType)
	assert.Equal(t, ModuleSensor, module)
	assert.Equal(t, Instance(0x3), instance)
}

func TestRoundTrip(t *testing.T) {
	// Exhaustive on module and instance, sampled on message type
	for messageType := MessageType(0); messageType <= 0xFFF; messageType += 0x35 {
		for module := 0; module <= 0xFF; module++ {
			for instance := Instance(0); instance <= 0xF; instance++ {
				id := Encode(messageType, ModuleType(module), instance)
				decodedType, decodedModule, decodedInstance := Decode(id)
				if decodedType != messageType || decodedModule != ModuleType(module) || decodedInstance != instance {
					t.Fatalf("round trip failed for %v %v %v", messageType, module, instance)
				}
				if Encode(decodedType, decodedModule, decodedInstance) != id {
					t.Fatalf("identifier round trip failed for 0x%x", id)
				}
			}
		}
	}
}

func TestUnknownCodes(t *testing.T) {
	messageType, module, instance := Decode(Encode(MessageType(0xABC), ModuleType(0x77), Instance1))
	assert.False(t, messageType.Known())
	assert.False(t, module.Known())
	assert.True(t, instance.Known())
	assert.Equal(t, "Unknown(0xabc)", messageType.String())
	assert.Equal(t, "Unknown(0x77)", module.String())
	assert.Equal(t, "Instance_1", instance.String())
}

func TestMessageFrame(t *testing.T) {
	msg := NewMessage(PingRequest, ModuleAny, InstanceAll, 0x05)
	frame, err := msg.Frame()
	assert.Nil(t, err)
	assert.True(t, frame.Extended())
	assert.False(t, frame.Remote())
	assert.Equal(t, []byte{0x05}, frame.Payload())

	decoded, ok := FromFrame(frame)
	assert.True(t, ok)
	assert.Equal(t, msg, decoded)

	_, err = NewMessage(PingRequest, ModuleAny, InstanceAll, make([]byte, 9)...).Frame()
	assert.Equal(t, can.ErrInvalidLength, err)
}

func TestAdminVsApplication(t *testing.T) {
	standard := can.NewFrame(uint32(AdminProbeModulesRequest), 0, 0)
	_, ok := FromFrame(standard)
	assert.False(t, ok)
	assert.Equal(t, AdminProbeModulesRequest, AdminCommandOf(standard))

	remote := can.NewFrame(0x20021, can.FlagExtended|can.FlagRemote, 0)
	_, ok = FromFrame(remote)
	assert.False(t, ok)

	frame, err := AdminFrame(AdminSerialIDResponse, 1, 2)
	assert.Nil(t, err)
	assert.False(t, frame.Extended())
	assert.EqualValues(t, AdminSerialIDResponse, frame.ID)
}

func TestParse(t *testing.T) {
	module, err := ParseModuleType("sensor")
	assert.Nil(t, err)
	assert.Equal(t, ModuleSensor, module)
	module, err = ParseModuleType("0x06")
	assert.Nil(t, err)
	assert.Equal(t, ModulePump, module)
	_, err = ParseModuleType("bogus")
	assert.NotNil(t, err)

	instance, err := ParseInstance("Exclusive")
	assert.Nil(t, err)
	assert.Equal(t, InstanceExclusive, instance)
	instance, err = ParseInstance("instance_3")
	assert.Nil(t, err)
	assert.Equal(t, Instance3, instance)
	_, err = ParseInstance("0x10")
	assert.NotNil(t, err)
}

func TestConcrete(t *testing.T) {
	assert.True(t, ModuleSensor.Concrete())
	assert.False(t, ModuleAll.Concrete())
	assert.False(t, ModuleType(0x42).Concrete())
	assert.True(t, InstanceExclusive.Concrete())
	assert.False(t, InstanceAny.Concrete())
}
