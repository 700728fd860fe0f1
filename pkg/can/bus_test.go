package can

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type nopController struct{}

func (nopController) Start(EventListener) error { return nil }
func (nopController) Stop() error               { return nil }
func (nopController) Transmit(Frame) bool       { return true }
func (nopController) TransmitAvailable() bool   { return true }

func TestFrameValidate(t *testing.T) {
	t.Run("standard identifier limit", func(t *testing.T) {
		assert.Nil(t, NewFrame(0x7FF, 0, 0).Validate())
		assert.Equal(t, ErrInvalidID, NewFrame(0x800, 0, 0).Validate())
	})
	t.Run("extended identifier limit", func(t *testing.T) {
		assert.Nil(t, NewFrame(0x1FFFFFFF, FlagExtended, 0).Validate())
		assert.Equal(t, ErrInvalidID, NewFrame(0x20000000, FlagExtended, 0).Validate())
	})
	t.Run("payload length", func(t *testing.T) {
		assert.Equal(t, ErrInvalidLength, NewFrame(0x10, 0, 9).Validate())
		_, err := NewDataFrame(0x10, false, make([]byte, 9))
		assert.Equal(t, ErrInvalidLength, err)
	})
}

func TestNewDataFrame(t *testing.T) {
	data := []byte{1, 2, 3}
	frame, err := NewDataFrame(0x10203, true, data)
	assert.Nil(t, err)
	assert.True(t, frame.Extended())
	assert.False(t, frame.Remote())
	assert.EqualValues(t, 3, frame.DLC)
	assert.Equal(t, data, frame.Payload())
	// Payload is copied
	data[0] = 0xFF
	assert.EqualValues(t, 1, frame.Data[0])
}

func TestFrameText(t *testing.T) {
	t.Run("standard", func(t *testing.T) {
		frame, err := ParseFrame("123#DEADBEEF")
		assert.Nil(t, err)
		assert.False(t, frame.Extended())
		assert.EqualValues(t, 0x123, frame.ID)
		assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, frame.Payload())
		assert.Equal(t, "123#DEADBEEF", frame.String())
	})
	t.Run("extended", func(t *testing.T) {
		frame, err := ParseFrame("00010054#05")
		assert.Nil(t, err)
		assert.True(t, frame.Extended())
		assert.EqualValues(t, 0x10054, frame.ID)
		assert.Equal(t, []byte{0x05}, frame.Payload())
	})
	t.Run("invalid", func(t *testing.T) {
		_, err := ParseFrame("not a frame")
		assert.NotNil(t, err)
	})
}

func TestRegistry(t *testing.T) {
	RegisterInterface("nop-test", func(config Config) (Controller, error) {
		return nopController{}, nil
	})
	assert.Contains(t, Interfaces(), "nop-test")
	controller, err := NewController("nop-test", Config{})
	assert.Nil(t, err)
	assert.NotNil(t, controller)
	_, err = NewController("does-not-exist", Config{})
	assert.ErrorIs(t, err, ErrUnsupportedInterface)
}

func TestEvent(t *testing.T) {
	events := EventReceived | EventError
	assert.True(t, events.Has(EventReceived))
	assert.False(t, events.Has(EventTransmitted))
	assert.Equal(t, "received", EventReceived.String())
}
