package driver

import (
	"context"
	"testing"
	"time"

	can "github.com/bioreactor/modulebus/pkg/can"
	"github.com/stretchr/testify/assert"
)

// Controller whose events are raised manually by the test
type fakeController struct {
	listener  can.EventListener
	space     int
	sent      []can.Frame
	startErr  error
	stopCount int
}

func (c *fakeController) Start(listener can.EventListener) error {
	c.listener = listener
	return c.startErr
}

func (c *fakeController) Stop() error {
	c.stopCount++
	return nil
}

func (c *fakeController) Transmit(frame can.Frame) bool {
	if c.space == 0 {
		return false
	}
	c.space--
	c.sent = append(c.sent, frame)
	return true
}

func (c *fakeController) TransmitAvailable() bool {
	return c.space > 0
}

func extFrame(id uint32, b byte) can.Frame {
	frame, _ := can.NewDataFrame(id, true, []byte{b})
	return frame
}

func TestReceive(t *testing.T) {
	controller := &fakeController{}
	driver := New(controller, Options{})
	assert.Nil(t, driver.Start())

	_, ok := driver.Receive()
	assert.False(t, ok)

	controller.listener.Handle(can.EventReceived, extFrame(0x100, 1))
	controller.listener.Handle(can.EventReceived, extFrame(0x100, 2))
	controller.listener.Handle(can.EventReceived, extFrame(0x100, 3))
	assert.Equal(t, 3, driver.ReceivedQueueSize())
	for i := byte(1); i <= 3; i++ {
		frame, ok := driver.Receive()
		assert.True(t, ok)
		assert.Equal(t, i, frame.Data[0])
	}
	assert.EqualValues(t, 3, driver.Stats().Received)
}

func TestReceiveOverflow(t *testing.T) {
	controller := &fakeController{}
	driver := New(controller, Options{})
	assert.Nil(t, driver.Start())
	for i := 0; i < DefaultRxQueueSize+10; i++ {
		controller.listener.Handle(can.EventReceived, extFrame(uint32(i), byte(i)))
	}
	assert.Equal(t, DefaultRxQueueSize, driver.ReceivedQueueSize())
	assert.EqualValues(t, 10, driver.Stats().RxDropped)
	// Oldest frames are kept, in order
	for i := 0; i < DefaultRxQueueSize; i++ {
		frame, ok := driver.Receive()
		assert.True(t, ok)
		assert.EqualValues(t, i, frame.ID)
	}
}

func TestExtendedOnly(t *testing.T) {
	controller := &fakeController{}
	driver := New(controller, Options{ExtendedOnly: true})
	assert.Nil(t, driver.Start())
	controller.listener.Handle(can.EventReceived, can.NewFrame(0x10, 0, 0))
	controller.listener.Handle(can.EventReceived, extFrame(0x10, 0))
	assert.Equal(t, 1, driver.ReceivedQueueSize())
	assert.EqualValues(t, 1, driver.Stats().StdFiltered)

	// Standard frames are delivered by default
	controller = &fakeController{}
	driver = New(controller, Options{})
	assert.Nil(t, driver.Start())
	controller.listener.Handle(can.EventReceived, can.NewFrame(0x10, 0, 0))
	assert.Equal(t, 1, driver.ReceivedQueueSize())
}

func TestTransmit(t *testing.T) {
	controller := &fakeController{space: 1}
	driver := New(controller, Options{})
	// Not started
	assert.False(t, driver.TransmitAvailable())
	assert.False(t, driver.Transmit(extFrame(0x1, 0)))

	assert.Nil(t, driver.Start())
	assert.True(t, driver.TransmitAvailable())
	assert.True(t, driver.Transmit(extFrame(0x1, 0)))
	assert.False(t, driver.TransmitAvailable())
	assert.False(t, driver.Transmit(extFrame(0x2, 0)))
	assert.Len(t, controller.sent, 1)
	assert.EqualValues(t, 2, driver.Stats().TxRejected)

	assert.Nil(t, driver.Stop())
	assert.Equal(t, 1, controller.stopCount)
	assert.False(t, driver.TransmitAvailable())
}

func TestWaitEvents(t *testing.T) {
	controller := &fakeController{}
	driver := New(controller, Options{})
	assert.Nil(t, driver.Start())

	controller.listener.Handle(can.EventTransmitted, can.Frame{})
	controller.listener.Handle(can.EventError, can.Frame{})
	events, err := driver.Wait(context.Background())
	assert.Nil(t, err)
	assert.True(t, events.Has(can.EventTransmitted))
	assert.True(t, events.Has(can.EventError))
	assert.False(t, events.Has(can.EventReceived))

	// Cleared after wait
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = driver.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNotifierPending(t *testing.T) {
	notifier := NewNotifier()
	assert.Equal(t, can.Event(0), notifier.Pending())
	notifier.Notify(can.EventReceived)
	notifier.Notify(can.EventReceived)
	notifier.Notify(can.EventError)
	assert.Equal(t, can.EventReceived|can.EventError, notifier.Pending())
	// Pending does not consume events
	assert.Equal(t, can.EventReceived|can.EventError, notifier.Pending())

	events, err := notifier.Wait(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, can.EventReceived|can.EventError, events)
	assert.Equal(t, can.Event(0), notifier.Pending())
}

func TestWaitWakesBlockedTask(t *testing.T) {
	controller := &fakeController{}
	driver := New(controller, Options{})
	assert.Nil(t, driver.Start())
	result := make(chan can.Event)
	go func() {
		events, _ := driver.Wait(context.Background())
		result <- events
	}()
	time.Sleep(10 * time.Millisecond)
	controller.listener.Handle(can.EventReceived, extFrame(0x5, 5))
	select {
	case events := <-result:
		assert.True(t, events.Has(can.EventReceived))
	case <-time.After(time.Second):
		t.Fatal("task was not woken")
	}
}

func TestUnits(t *testing.T) {
	units := NewUnits()
	d0 := New(&fakeController{}, Options{})
	d1 := New(&fakeController{}, Options{})

	assert.Nil(t, units.Attach(0, d0))
	assert.Nil(t, units.Attach(0, d0))
	assert.ErrorIs(t, units.Attach(0, d1), ErrUnitInUse)
	assert.Nil(t, units.Attach(1, d1))
	assert.ErrorIs(t, units.Attach(2, d1), ErrInvalidUnit)

	assert.Same(t, d0, units.Driver(0))
	assert.Same(t, d1, units.Driver(1))
	assert.Nil(t, units.Driver(5))

	units.Detach(0)
	assert.Nil(t, units.Driver(0))
	assert.Nil(t, units.Attach(0, d1))
}
