package routing

import (
	can "github.com/bioreactor/modulebus/pkg/can"
	"github.com/bioreactor/modulebus/pkg/protocol"
	log "github.com/sirupsen/logrus"
)

// Router dispatches inbound frames to the component owning them.
// CAN is a broadcast medium, frames that are not for this module
// are a routine outcome and are never reported as errors.
type Router struct {
	table    *Table
	registry *Registry
	module   protocol.ModuleType
	instance protocol.Instance
}

func NewRouter(table *Table, registry *Registry, module protocol.ModuleType, instance protocol.Instance) *Router {
	return &Router{table: table, registry: registry, module: module, instance: instance}
}

// Address of this module
func (r *Router) Address() (protocol.ModuleType, protocol.Instance) {
	return r.module, r.instance
}

// Accepts reports whether an application message is addressed to this module
func (r *Router) Accepts(module protocol.ModuleType, instance protocol.Instance) bool {
	switch module {
	case protocol.ModuleAll, protocol.ModuleAny, r.module:
	case protocol.ModuleUndefined:
		log.Warnf("[ROUTER] message with undefined module type, accepted as wildcard")
	default:
		return false
	}
	switch instance {
	case protocol.InstanceAll, protocol.InstanceAny, r.instance:
	case protocol.InstanceUndefined:
		log.Warnf("[ROUTER] message with undefined instance, accepted as wildcard")
	default:
		return false
	}
	return true
}

// Resolve returns the component a frame is routed to, without dispatching it
func (r *Router) Resolve(frame can.Frame) (protocol.Component, bool) {
	if !frame.Extended() {
		return r.table.LookupAdmin(protocol.AdminCommandOf(frame))
	}
	if frame.Remote() {
		return protocol.ComponentUndefined, false
	}
	messageType, module, instance := protocol.Decode(frame.ID)
	if !r.Accepts(module, instance) {
		return protocol.ComponentUndefined, false
	}
	return r.table.Lookup(messageType)
}

// Route dispatches a frame to its receiver.
// Returns true if the frame was routed and accepted.
func (r *Router) Route(frame can.Frame) bool {
	if !frame.Extended() {
		return r.routeAdmin(frame)
	}
	message, ok := protocol.FromFrame(frame)
	if !ok {
		log.Debugf("[ROUTER] ignoring remote frame %v", frame)
		return false
	}
	if !r.Accepts(message.Module, message.Instance) {
		log.Debugf("[ROUTER] %v not for this module (%v/%v)", message, r.module, r.instance)
		return false
	}
	component, ok := r.table.Lookup(message.Type)
	if !ok {
		log.Debugf("[ROUTER] no route for message type %v", message.Type)
		return false
	}
	receiver, ok := r.registry.Lookup(component)
	if !ok {
		log.Infof("[ROUTER] no receiver registered for %v, dropping %v", component, message.Type)
		return false
	}
	return receiver.ReceiveMessage(message)
}

func (r *Router) routeAdmin(frame can.Frame) bool {
	command := protocol.AdminCommandOf(frame)
	component, ok := r.table.LookupAdmin(command)
	if !ok {
		log.Debugf("[ROUTER] no route for admin command %v", command)
		return false
	}
	receiver, ok := r.registry.Lookup(component)
	if !ok {
		log.Infof("[ROUTER] no receiver registered for %v, dropping admin %v", component, command)
		return false
	}
	return receiver.ReceiveFrame(frame)
}
