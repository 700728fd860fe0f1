package virtual

import (
	"sync"
	"testing"
	"time"

	can "github.com/bioreactor/modulebus/pkg/can"
	"github.com/stretchr/testify/assert"
)

type FrameReceiver struct {
	mu          sync.Mutex
	frames      []can.Frame
	transmitted int
	errors      int
}

func (r *FrameReceiver) Handle(event can.Event, frame can.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch event {
	case can.EventReceived:
		r.frames = append(r.frames, frame)
	case can.EventTransmitted:
		r.transmitted++
	case can.EventError:
		r.errors++
	}
}

func (r *FrameReceiver) count() (int, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames), r.transmitted, r.errors
}

func TestSendAndReceive(t *testing.T) {
	hub := NewHub()
	c1 := hub.NewController()
	c2 := hub.NewController()
	r1 := &FrameReceiver{}
	r2 := &FrameReceiver{}
	assert.Nil(t, c1.Start(r1))
	assert.Nil(t, c2.Start(r2))
	defer c1.Stop()
	defer c2.Stop()

	// Send frames from c1 and check order and value on c2
	frame := can.Frame{ID: 0x111, DLC: 8, Data: [8]byte{0, 1, 2, 3, 4, 5, 6, 7}}
	sent := 0
	for sent < 100 {
		frame.Data[0] = uint8(sent)
		if c1.Transmit(frame) {
			sent++
		}
	}
	assert.Eventually(t, func() bool {
		received, transmitted, _ := r2.count()
		_, ownTransmitted, _ := r1.count()
		return received == 100 && transmitted == 0 && ownTransmitted == 100
	}, time.Second, 5*time.Millisecond)
	r2.mu.Lock()
	defer r2.mu.Unlock()
	for i, frame := range r2.frames {
		assert.EqualValues(t, 0x111, frame.ID)
		assert.EqualValues(t, uint8(i), frame.Data[0])
	}
	received, _, _ := r1.count()
	assert.Equal(t, 0, received)
}

func TestReceiveOwn(t *testing.T) {
	hub := NewHub()
	c1 := hub.NewController()
	r1 := &FrameReceiver{}
	assert.Nil(t, c1.Start(r1))
	defer c1.Stop()
	c1.SetReceiveOwn(true)
	assert.True(t, c1.Transmit(can.NewFrame(0x22, 0, 0)))
	assert.Eventually(t, func() bool {
		received, _, _ := r1.count()
		return received == 1
	}, time.Second, 5*time.Millisecond)
}

func TestMailboxFull(t *testing.T) {
	hub := NewHub()
	c1 := hub.NewController()
	// Not started : nothing accepted
	assert.False(t, c1.TransmitAvailable())
	assert.False(t, c1.Transmit(can.NewFrame(0x1, 0, 0)))

	// Fill the mailbox without a running engine
	c1.mailbox = make(chan can.Frame, MailboxSize)
	c1.running = true
	for i := 0; i < MailboxSize; i++ {
		assert.True(t, c1.Transmit(can.NewFrame(0x1, 0, 0)))
	}
	assert.False(t, c1.TransmitAvailable())
	assert.False(t, c1.Transmit(can.NewFrame(0x1, 0, 0)))
}

func TestInjectError(t *testing.T) {
	hub := NewHub()
	c1 := hub.NewController()
	r1 := &FrameReceiver{}
	assert.Nil(t, c1.Start(r1))
	defer c1.Stop()
	c1.InjectError()
	_, _, errors := r1.count()
	assert.Equal(t, 1, errors)
}

func TestRegistered(t *testing.T) {
	controller, err := can.NewController("virtual", can.Config{})
	assert.Nil(t, err)
	assert.IsType(t, &Controller{}, controller)
}
