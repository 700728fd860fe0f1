// Package config loads the configuration of a module : its address on the bus,
// the CAN controller to use and transport queue sizes.
//
// Values come from an INI file, then environment variables override them.
package config

import (
	"strconv"
	"strings"

	"github.com/bioreactor/modulebus/pkg/can"
	"github.com/bioreactor/modulebus/pkg/protocol"
	"github.com/caarlos0/env"
	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"
)

const (
	DefaultInterface = "virtual"
	DefaultChannel   = "can0"
	DefaultBitrate   = 500000
	DefaultQueueSize = 64
	MaxQueueSize     = 1024
	maxUnits         = 2
)

var ErrInvalidValue = errors.New("invalid configuration value")

type Config struct {
	Module       protocol.ModuleType
	Instance     protocol.Instance
	SerialID     uint64
	Interface    string // Controller type, see [can.RegisterInterface]
	Bus          can.Config
	ExtendedOnly bool // Drop standard frames in the driver
	TxQueueSize  int
	RxQueueSize  int
	LogLevel     log.Level
}

// Environment overrides, empty values are ignored
type environment struct {
	ModuleType string `env:"MODULEBUS_MODULE_TYPE"`
	Instance   string `env:"MODULEBUS_INSTANCE"`
	Interface  string `env:"MODULEBUS_INTERFACE"`
	Channel    string `env:"MODULEBUS_CHANNEL"`
	Bitrate    string `env:"MODULEBUS_BITRATE"`
	Unit       string `env:"MODULEBUS_UNIT"`
	LogLevel   string `env:"MODULEBUS_LOG_LEVEL"`
}

func Default() Config {
	return Config{
		Module:      protocol.ModuleUndefined,
		Instance:    protocol.InstanceExclusive,
		Interface:   DefaultInterface,
		Bus:         can.Config{Channel: DefaultChannel, Bitrate: DefaultBitrate},
		TxQueueSize: DefaultQueueSize,
		RxQueueSize: DefaultQueueSize,
		LogLevel:    log.InfoLevel,
	}
}

// Load configuration from an INI source (file path or raw []byte),
// apply environment overrides and validate the result.
func Load(source any) (Config, error) {
	config := Default()
	file, err := ini.Load(source)
	if err != nil {
		return config, errors.Wrap(err, "load configuration")
	}
	if err := config.parse(file); err != nil {
		return config, err
	}
	if err := config.ApplyEnv(); err != nil {
		return config, err
	}
	return config, config.Validate()
}

func (c *Config) parse(file *ini.File) error {
	module := file.Section("module")
	if key := module.Key("type"); key.String() != "" {
		if err := c.setModule(key.String()); err != nil {
			return err
		}
	}
	if key := module.Key("instance"); key.String() != "" {
		if err := c.setInstance(key.String()); err != nil {
			return err
		}
	}
	if key := module.Key("serial"); key.String() != "" {
		serial, err := strconv.ParseUint(key.String(), 0, 64)
		if err != nil {
			return errors.Wrapf(ErrInvalidValue, "module serial %q", key.String())
		}
		c.SerialID = serial
	}

	bus := file.Section("bus")
	c.Interface = bus.Key("interface").MustString(c.Interface)
	c.Bus.Channel = bus.Key("channel").MustString(c.Bus.Channel)
	c.Bus.Bitrate = bus.Key("bitrate").MustInt(c.Bus.Bitrate)
	unit := bus.Key("unit").MustInt(int(c.Bus.Unit))
	if unit < 0 || unit >= maxUnits {
		return errors.Wrapf(ErrInvalidValue, "bus unit %v", unit)
	}
	c.Bus.Unit = uint8(unit)
	c.Bus.RxPin = uint8(bus.Key("rx_pin").MustUint(uint(c.Bus.RxPin)))
	c.Bus.TxPin = uint8(bus.Key("tx_pin").MustUint(uint(c.Bus.TxPin)))
	c.ExtendedOnly = bus.Key("extended_only").MustBool(c.ExtendedOnly)

	transport := file.Section("transport")
	c.TxQueueSize = transport.Key("tx_queue").MustInt(c.TxQueueSize)
	c.RxQueueSize = transport.Key("rx_queue").MustInt(c.RxQueueSize)

	if key := file.Section("log").Key("level"); key.String() != "" {
		return c.setLogLevel(key.String())
	}
	return nil
}

// ApplyEnv overrides values from MODULEBUS_* environment variables
func (c *Config) ApplyEnv() error {
	var overrides environment
	if err := env.Parse(&overrides); err != nil {
		return errors.Wrap(err, "parse environment")
	}
	if overrides.ModuleType != "" {
		if err := c.setModule(overrides.ModuleType); err != nil {
			return err
		}
	}
	if overrides.Instance != "" {
		if err := c.setInstance(overrides.Instance); err != nil {
			return err
		}
	}
	if overrides.Interface != "" {
		c.Interface = overrides.Interface
	}
	if overrides.Channel != "" {
		c.Bus.Channel = overrides.Channel
	}
	if overrides.Bitrate != "" {
		bitrate, err := strconv.Atoi(overrides.Bitrate)
		if err != nil {
			return errors.Wrapf(ErrInvalidValue, "bitrate %q", overrides.Bitrate)
		}
		c.Bus.Bitrate = bitrate
	}
	if overrides.Unit != "" {
		unit, err := strconv.ParseUint(overrides.Unit, 10, 8)
		if err != nil || unit >= maxUnits {
			return errors.Wrapf(ErrInvalidValue, "bus unit %q", overrides.Unit)
		}
		c.Bus.Unit = uint8(unit)
	}
	if overrides.LogLevel != "" {
		return c.setLogLevel(overrides.LogLevel)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Bus.Bitrate <= 0 {
		return errors.Wrapf(ErrInvalidValue, "bitrate %v", c.Bus.Bitrate)
	}
	if int(c.Bus.Unit) >= maxUnits {
		return errors.Wrapf(ErrInvalidValue, "bus unit %v", c.Bus.Unit)
	}
	if c.TxQueueSize < 1 || c.TxQueueSize > MaxQueueSize {
		return errors.Wrapf(ErrInvalidValue, "tx queue size %v", c.TxQueueSize)
	}
	if c.RxQueueSize < 1 || c.RxQueueSize > MaxQueueSize {
		return errors.Wrapf(ErrInvalidValue, "rx queue size %v", c.RxQueueSize)
	}
	if c.Interface == "" {
		return errors.Wrap(ErrInvalidValue, "empty bus interface")
	}
	if !c.Module.Concrete() {
		log.Warnf("[CONFIG] module type %v is not a concrete module, only wildcard traffic will be routed", c.Module)
	}
	return nil
}

func (c *Config) setModule(value string) error {
	module, err := protocol.ParseModuleType(value)
	if err != nil || !module.Known() {
		return errors.Wrapf(ErrInvalidValue, "module type %q", value)
	}
	c.Module = module
	return nil
}

func (c *Config) setInstance(value string) error {
	instance, err := protocol.ParseInstance(value)
	if err != nil {
		return errors.Wrapf(ErrInvalidValue, "instance %q", value)
	}
	c.Instance = instance
	return nil
}

func (c *Config) setLogLevel(value string) error {
	level, err := log.ParseLevel(strings.TrimSpace(value))
	if err != nil {
		return errors.Wrapf(ErrInvalidValue, "log level %q", value)
	}
	c.LogLevel = level
	return nil
}
