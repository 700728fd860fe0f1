// Package module assembles the CAN stack of a bioreactor module.
//
// A [Module] owns one controller unit : the driver handling its events, the
// transport task and the router dispatching inbound frames to the registered
// components. The common core component is registered by default.
package module

import (
	"context"
	"log/slog"
	"sync"

	can "github.com/bioreactor/modulebus/pkg/can"
	"github.com/bioreactor/modulebus/pkg/config"
	"github.com/bioreactor/modulebus/pkg/driver"
	"github.com/bioreactor/modulebus/pkg/protocol"
	"github.com/bioreactor/modulebus/pkg/routing"
	"github.com/bioreactor/modulebus/pkg/transport"
	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
)

type Module struct {
	config    config.Config
	units     *driver.Units
	driver    *driver.Driver
	registry  *routing.Registry
	router    *routing.Router
	transport *transport.Transport
	core      *CommonCore
	closeOnce sync.Once
}

// New creates the module stack on top of controller.
// If controller is nil, it is created from the configured interface and
// released again if New fails.
// The controller is started and the configured unit is reserved in units
// until [Module.Close]. units is shared by all modules of the process.
func New(cfg config.Config, controller can.Controller, units *driver.Units) (m *Module, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if controller == nil {
		controller, err = can.NewController(cfg.Interface, cfg.Bus)
		if err != nil {
			return nil, errors.Wrapf(err, "create %v controller", cfg.Interface)
		}
		defer func() {
			if err != nil {
				controller.Stop()
			}
		}()
	}
	drv := driver.New(controller, driver.Options{
		RxQueueSize:  cfg.RxQueueSize,
		ExtendedOnly: cfg.ExtendedOnly,
		Logger:       slog.Default().With("unit", cfg.Bus.Unit),
	})
	if err := units.Attach(cfg.Bus.Unit, drv); err != nil {
		return nil, err
	}
	table, err := routing.NewTable(routing.DefaultRoutes, routing.DefaultAdminRoutes)
	if err != nil {
		units.Detach(cfg.Bus.Unit)
		return nil, err
	}
	m = &Module{
		config:   cfg,
		units:    units,
		driver:   drv,
		registry: routing.NewRegistry(),
	}
	m.router = routing.NewRouter(table, m.registry, cfg.Module, cfg.Instance)
	m.transport = transport.New(drv, m.router, transport.Options{
		TxQueueSize: cfg.TxQueueSize,
		RxQueueSize: cfg.RxQueueSize,
	})
	m.core = NewCommonCore(m.transport, cfg.Module, cfg.Instance, cfg.SerialID)
	m.registry.Register(protocol.ComponentCommonCore, m.core)

	if err := drv.Start(); err != nil {
		units.Detach(cfg.Bus.Unit)
		return nil, errors.Wrapf(err, "start unit %v", cfg.Bus.Unit)
	}
	log.Infof("[MODULE] %v/%v started on %v %v (unit %v)", cfg.Module, cfg.Instance, cfg.Interface, cfg.Bus.Channel, cfg.Bus.Unit)
	return m, nil
}

// Register a component receiver, replacing any previous one
func (m *Module) Register(component protocol.Component, receiver routing.Receiver) {
	m.registry.Register(component, receiver)
}

// Unregister a component receiver, e.g. when the component is destroyed
func (m *Module) Unregister(component protocol.Component, receiver routing.Receiver) bool {
	return m.registry.Unregister(component, receiver)
}

// Run the transport task until ctx is done
func (m *Module) Run(ctx context.Context) error {
	return m.transport.Run(ctx)
}

// Send a raw frame, see [transport.Transport.Send]
func (m *Module) Send(frame can.Frame) (int, error) {
	return m.transport.Send(frame)
}

// Send an application message originating from this module
func (m *Module) SendMessage(messageType protocol.MessageType, data ...byte) (int, error) {
	return m.transport.SendMessage(protocol.NewMessage(messageType, m.config.Module, m.config.Instance, data...))
}

func (m *Module) Address() (protocol.ModuleType, protocol.Instance) {
	return m.router.Address()
}

func (m *Module) Router() *routing.Router {
	return m.router
}

func (m *Module) TransportStats() transport.Stats {
	return m.transport.Stats()
}

func (m *Module) DriverStats() driver.Stats {
	return m.driver.Stats()
}

// Close stops the controller and releases the unit.
// The task started with [Module.Run] should be cancelled by its caller.
func (m *Module) Close() error {
	var err error
	m.closeOnce.Do(func() {
		m.registry.Unregister(protocol.ComponentCommonCore, m.core)
		err = m.driver.Stop()
		m.units.Detach(m.config.Bus.Unit)
		log.Infof("[MODULE] %v/%v closed (unit %v)", m.config.Module, m.config.Instance, m.config.Bus.Unit)
	})
	return err
}
