package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bioreactor/modulebus/pkg/protocol"
	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sensorConfig = `
[module]
type = sensor
instance = exclusive
serial = 0x1234

[bus]
interface = socketcan
channel = can1
bitrate = 250000
unit = 1
rx_pin = 4
tx_pin = 5
extended_only = true

[transport]
tx_queue = 32
rx_queue = 16

[log]
level = debug
`

func TestLoad(t *testing.T) {
	config, err := Load([]byte(sensorConfig))
	require.Nil(t, err)
	assert.Equal(t, protocol.ModuleSensor, config.Module)
	assert.Equal(t, protocol.InstanceExclusive, config.Instance)
	assert.EqualValues(t, 0x1234, config.SerialID)
	assert.Equal(t, "socketcan", config.Interface)
	assert.Equal(t, "can1", config.Bus.Channel)
	assert.Equal(t, 250000, config.Bus.Bitrate)
	assert.EqualValues(t, 1, config.Bus.Unit)
	assert.EqualValues(t, 4, config.Bus.RxPin)
	assert.EqualValues(t, 5, config.Bus.TxPin)
	assert.True(t, config.ExtendedOnly)
	assert.Equal(t, 32, config.TxQueueSize)
	assert.Equal(t, 16, config.RxQueueSize)
	assert.Equal(t, log.DebugLevel, config.LogLevel)
}

func TestLoadDefaults(t *testing.T) {
	config, err := Load([]byte("[module]\ntype = pump\n"))
	require.Nil(t, err)
	assert.Equal(t, protocol.ModulePump, config.Module)
	assert.Equal(t, protocol.InstanceExclusive, config.Instance)
	assert.Equal(t, DefaultInterface, config.Interface)
	assert.Equal(t, DefaultBitrate, config.Bus.Bitrate)
	assert.Equal(t, DefaultQueueSize, config.TxQueueSize)
	assert.Equal(t, DefaultQueueSize, config.RxQueueSize)
	assert.False(t, config.ExtendedOnly)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "module.ini")
	require.Nil(t, os.WriteFile(path, []byte(sensorConfig), 0o644))
	config, err := Load(path)
	require.Nil(t, err)
	assert.Equal(t, protocol.ModuleSensor, config.Module)

	_, err = Load(filepath.Join(t.TempDir(), "missing.ini"))
	assert.NotNil(t, err)
}

func TestInvalid(t *testing.T) {
	cases := map[string]string{
		"module type": "[module]\ntype = toaster\n",
		"instance":    "[module]\ninstance = 0x42\n",
		"unit":        "[bus]\nunit = 2\n",
		"bitrate":     "[bus]\nbitrate = 0\n",
		"tx queue":    "[transport]\ntx_queue = 5000\n",
		"rx queue":    "[transport]\nrx_queue = 0\n",
		"log level":   "[log]\nlevel = loud\n",
		"serial":      "[module]\nserial = abc\n",
	}
	for name, source := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load([]byte(source))
			assert.True(t, errors.Is(err, ErrInvalidValue), "got %v", err)
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MODULEBUS_MODULE_TYPE", "control")
	t.Setenv("MODULEBUS_INSTANCE", "instance_2")
	t.Setenv("MODULEBUS_CHANNEL", "vcan0")
	t.Setenv("MODULEBUS_BITRATE", "125000")
	t.Setenv("MODULEBUS_UNIT", "0")
	t.Setenv("MODULEBUS_LOG_LEVEL", "warn")
	config, err := Load([]byte(sensorConfig))
	require.Nil(t, err)
	assert.Equal(t, protocol.ModuleControl, config.Module)
	assert.Equal(t, protocol.Instance2, config.Instance)
	assert.Equal(t, "vcan0", config.Bus.Channel)
	assert.Equal(t, 125000, config.Bus.Bitrate)
	assert.EqualValues(t, 0, config.Bus.Unit)
	assert.Equal(t, log.WarnLevel, config.LogLevel)
	// Untouched values come from file
	assert.Equal(t, "socketcan", config.Interface)

	t.Setenv("MODULEBUS_UNIT", "3")
	_, err = Load([]byte(sensorConfig))
	assert.True(t, errors.Is(err, ErrInvalidValue))
}
