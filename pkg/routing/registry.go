package routing

import (
	"sync"

	can "github.com/bioreactor/modulebus/pkg/can"
	"github.com/bioreactor/modulebus/pkg/protocol"
	log "github.com/sirupsen/logrus"
)

// Receiver is implemented by components that accept routed frames.
// Both methods return whether the frame was accepted.
type Receiver interface {
	ReceiveFrame(frame can.Frame) bool             // Admin / generic frames
	ReceiveMessage(message protocol.Message) bool // Decoded application messages
}

// Registry binds each component to its live receiver.
// Components register once when constructed and unregister when destroyed.
type Registry struct {
	mu        sync.RWMutex
	receivers map[protocol.Component]Receiver
}

func NewRegistry() *Registry {
	return &Registry{receivers: make(map[protocol.Component]Receiver)}
}

// Register receiver for component. An existing binding is replaced.
func (r *Registry) Register(component protocol.Component, receiver Receiver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if previous, ok := r.receivers[component]; ok && previous != receiver {
		log.Warnf("[REGISTRY] receiver for %v replaced (%T -> %T)", component, previous, receiver)
	}
	r.receivers[component] = receiver
}

// Unregister removes the binding only if it still points to receiver
func (r *Registry) Unregister(component protocol.Component, receiver Receiver) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.receivers[component]; ok && current == receiver {
		delete(r.receivers, component)
		return true
	}
	return false
}

func (r *Registry) Lookup(component protocol.Component) (Receiver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	receiver, ok := r.receivers[component]
	return receiver, ok
}
