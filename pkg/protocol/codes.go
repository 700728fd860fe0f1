package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Wire opcode of an application message, 12 bits
type MessageType uint16

const (
	MessageUndefined MessageType = 0x000
	MessageEmpty     MessageType = 0x001

	PingRequest           MessageType = 0x002
	PingResponse          MessageType = 0x003
	ProbeModulesRequest   MessageType = 0x004
	ProbeModulesResponse  MessageType = 0x005
	CoreTemperatureReq    MessageType = 0x010
	CoreTemperatureResp   MessageType = 0x011
	CoreSupplyVoltageReq  MessageType = 0x012
	CoreSupplyVoltageResp MessageType = 0x013
	BoardTemperatureReq   MessageType = 0x020
	BoardTemperatureResp  MessageType = 0x021

	// Control module
	HeaterSetIntensity        MessageType = 0x100
	HeaterGetIntensityReq     MessageType = 0x101
	HeaterGetIntensityResp    MessageType = 0x102
	HeaterSetTargetTemp       MessageType = 0x103
	HeaterGetPlateTempReq     MessageType = 0x104
	HeaterGetPlateTempResp    MessageType = 0x105
	HeaterTurnOff             MessageType = 0x106
	CuvettePumpSetSpeed       MessageType = 0x110
	CuvettePumpGetSpeedReq    MessageType = 0x111
	CuvettePumpGetSpeedResp   MessageType = 0x112
	CuvettePumpStart          MessageType = 0x113
	CuvettePumpStop           MessageType = 0x114
	AeratorSetSpeed           MessageType = 0x120
	AeratorGetSpeedReq        MessageType = 0x121
	AeratorGetSpeedResp       MessageType = 0x122
	AeratorStop               MessageType = 0x123
	MixerSetSpeed             MessageType = 0x130
	MixerGetSpeedReq          MessageType = 0x131
	MixerGetSpeedResp         MessageType = 0x132
	MixerStop                 MessageType = 0x133
	LEDPanelSetIntensity      MessageType = 0x140
	LEDPanelGetTemperatureReq MessageType = 0x141
	LEDPanelGetTemperatureRsp MessageType = 0x142

	// Sensor module
	BottleTemperatureReq        MessageType = 0x200
	BottleTemperatureResp       MessageType = 0x201
	FluorometerCaptureReq       MessageType = 0x210
	FluorometerCaptureStatusReq MessageType = 0x211
	FluorometerCaptureStatusRsp MessageType = 0x212
	FluorometerDataReq          MessageType = 0x213
	FluorometerDataResp         MessageType = 0x214
	SpectrophotometerMeasureReq MessageType = 0x220
	SpectrophotometerMeasureRsp MessageType = 0x221

	// Pump module
	PumpSetFlowrate     MessageType = 0x300
	PumpGetFlowrateReq  MessageType = 0x301
	PumpGetFlowrateResp MessageType = 0x302
	PumpMove            MessageType = 0x303
	PumpStop            MessageType = 0x304

	MessageReserved MessageType = 0xFFF
)

var messageTypeNames = map[MessageType]string{
	MessageUndefined:            "Undefined",
	MessageEmpty:                "Empty",
	PingRequest:                 "Ping_request",
	PingResponse:                "Ping_response",
	ProbeModulesRequest:         "Probe_modules_request",
	ProbeModulesResponse:        "Probe_modules_response",
	CoreTemperatureReq:          "Core_temperature_request",
	CoreTemperatureResp:         "Core_temperature_response",
	CoreSupplyVoltageReq:        "Core_supply_voltage_request",
	CoreSupplyVoltageResp:       "Core_supply_voltage_response",
	BoardTemperatureReq:         "Board_temperature_request",
	BoardTemperatureResp:        "Board_temperature_response",
	HeaterSetIntensity:          "Heater_set_intensity",
	HeaterGetIntensityReq:       "Heater_get_intensity_request",
	HeaterGetIntensityResp:      "Heater_get_intensity_response",
	HeaterSetTargetTemp:         "Heater_set_target_temperature",
	HeaterGetPlateTempReq:       "Heater_get_plate_temperature_request",
	HeaterGetPlateTempResp:      "Heater_get_plate_temperature_response",
	HeaterTurnOff:               "Heater_turn_off",
	CuvettePumpSetSpeed:         "Cuvette_pump_set_speed",
	CuvettePumpGetSpeedReq:      "Cuvette_pump_get_speed_request",
	CuvettePumpGetSpeedResp:     "Cuvette_pump_get_speed_response",
	CuvettePumpStart:            "Cuvette_pump_start",
	CuvettePumpStop:             "Cuvette_pump_stop",
	AeratorSetSpeed:             "Aerator_set_speed",
	AeratorGetSpeedReq:          "Aerator_get_speed_request",
	AeratorGetSpeedResp:         "Aerator_get_speed_response",
	AeratorStop:                 "Aerator_stop",
	MixerSetSpeed:               "Mixer_set_speed",
	MixerGetSpeedReq:            "Mixer_get_speed_request",
	MixerGetSpeedResp:           "Mixer_get_speed_response",
	MixerStop:                   "Mixer_stop",
	LEDPanelSetIntensity:        "LED_panel_set_intensity",
	LEDPanelGetTemperatureReq:   "LED_panel_get_temperature_request",
	LEDPanelGetTemperatureRsp:   "LED_panel_get_temperature_response",
	BottleTemperatureReq:        "Bottle_temperature_request",
	BottleTemperatureResp:       "Bottle_temperature_response",
	FluorometerCaptureReq:       "Fluorometer_OJIP_capture_request",
	FluorometerCaptureStatusReq: "Fluorometer_OJIP_completion_status_request",
	FluorometerCaptureStatusRsp: "Fluorometer_OJIP_completion_status_response",
	FluorometerDataReq:          "Fluorometer_data_request",
	FluorometerDataResp:         "Fluorometer_data_response",
	SpectrophotometerMeasureReq: "Spectrophotometer_measurement_request",
	SpectrophotometerMeasureRsp: "Spectrophotometer_measurement_response",
	PumpSetFlowrate:             "Pump_set_flowrate",
	PumpGetFlowrateReq:          "Pump_get_flowrate_request",
	PumpGetFlowrateResp:         "Pump_get_flowrate_response",
	PumpMove:                    "Pump_move",
	PumpStop:                    "Pump_stop",
	MessageReserved:             "Reserved",
}

func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(0x%03x)", uint16(t))
}

// Whether the message type is part of the catalog
func (t MessageType) Known() bool {
	_, ok := messageTypeNames[t]
	return ok
}

// Class of physical module, 8 bits
type ModuleType uint8

const (
	ModuleUndefined ModuleType = 0x00
	ModuleAll       ModuleType = 0x01
	ModuleAny       ModuleType = 0x02
	ModuleTest      ModuleType = 0x03
	ModuleControl   ModuleType = 0x04
	ModuleSensor    ModuleType = 0x05
	ModulePump      ModuleType = 0x06
	ModuleReserved  ModuleType = 0xFF
)

var moduleTypeNames = map[ModuleType]string{
	ModuleUndefined: "Undefined",
	ModuleAll:       "All",
	ModuleAny:       "Any",
	ModuleTest:      "Test",
	ModuleControl:   "Control",
	ModuleSensor:    "Sensor",
	ModulePump:      "Pump",
	ModuleReserved:  "Reserved",
}

func (m ModuleType) String() string {
	if name, ok := moduleTypeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(0x%02x)", uint8(m))
}

func (m ModuleType) Known() bool {
	_, ok := moduleTypeNames[m]
	return ok
}

// Whether the value designates a concrete module class rather than a wildcard or sentinel
func (m ModuleType) Concrete() bool {
	return m.Known() && m != ModuleUndefined && m != ModuleAll && m != ModuleAny && m != ModuleReserved
}

// Instance of a module class on the bus, 4 bits
type Instance uint8

const (
	InstanceUndefined Instance = 0x0
	InstanceAll       Instance = 0x1
	InstanceAny       Instance = 0x2
	InstanceReserved  Instance = 0x3
	InstanceExclusive Instance = 0x4
	Instance1         Instance = 0x5
	Instance2         Instance = 0x6
	Instance3         Instance = 0x7
	Instance4         Instance = 0x8
	Instance5         Instance = 0x9
	Instance6         Instance = 0xA
	Instance7         Instance = 0xB
	Instance8         Instance = 0xC
	Instance9         Instance = 0xD
	Instance10        Instance = 0xE
	Instance11        Instance = 0xF
)

func (i Instance) String() string {
	switch i {
	case InstanceUndefined:
		return "Undefined"
	case InstanceAll:
		return "All"
	case InstanceAny:
		return "Any"
	case InstanceReserved:
		return "Reserved"
	case InstanceExclusive:
		return "Exclusive"
	}
	if i >= Instance1 && i <= Instance11 {
		return "Instance_" + strconv.Itoa(int(i-Instance1)+1)
	}
	return fmt.Sprintf("Unknown(0x%x)", uint8(i))
}

// Every 4 bit value is a defined instance, wider values are not
func (i Instance) Known() bool {
	return i <= Instance11
}

// Whether the value designates a concrete instance rather than a wildcard or sentinel
func (i Instance) Concrete() bool {
	return i == InstanceExclusive || (i >= Instance1 && i <= Instance11)
}

// System command carried directly in a standard 11 bit identifier
type AdminCommand uint16

const (
	AdminUndefined            AdminCommand = 0x000
	AdminProbeModulesRequest  AdminCommand = 0x010
	AdminProbeModulesResponse AdminCommand = 0x011
	AdminSerialIDRequest      AdminCommand = 0x020
	AdminSerialIDResponse     AdminCommand = 0x021
	AdminReserved             AdminCommand = 0x7FF
)

var adminCommandNames = map[AdminCommand]string{
	AdminUndefined:            "Undefined",
	AdminProbeModulesRequest:  "Probe_modules_request",
	AdminProbeModulesResponse: "Probe_modules_response",
	AdminSerialIDRequest:      "Serial_ID_request",
	AdminSerialIDResponse:     "Serial_ID_response",
	AdminReserved:             "Reserved",
}

func (c AdminCommand) String() string {
	if name, ok := adminCommandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(0x%03x)", uint16(c))
}

func (c AdminCommand) Known() bool {
	_, ok := adminCommandNames[c]
	return ok
}

// In-process functional unit owning messages
type Component uint8

const (
	ComponentUndefined Component = iota
	ComponentCommonCore
	ComponentBoardSensors
	ComponentHeater
	ComponentCuvettePump
	ComponentAerator
	ComponentMixer
	ComponentLEDPanel
	ComponentBottleThermometer
	ComponentFluorometer
	ComponentSpectrophotometer
	ComponentPump
)

var componentNames = map[Component]string{
	ComponentUndefined:         "Undefined",
	ComponentCommonCore:        "Common_core",
	ComponentBoardSensors:      "Board_sensors",
	ComponentHeater:            "Heater",
	ComponentCuvettePump:       "Cuvette_pump",
	ComponentAerator:           "Aerator",
	ComponentMixer:             "Mixer",
	ComponentLEDPanel:          "LED_panel",
	ComponentBottleThermometer: "Bottle_thermometer",
	ComponentFluorometer:       "Fluorometer",
	ComponentSpectrophotometer: "Spectrophotometer",
	ComponentPump:              "Pump",
}

func (c Component) String() string {
	if name, ok := componentNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", uint8(c))
}

// Parse a module type from its name (case insensitive) or numeric code e.g. "sensor", "0x05"
func ParseModuleType(s string) (ModuleType, error) {
	s = strings.TrimSpace(s)
	for module, name := range moduleTypeNames {
		if strings.EqualFold(name, s) {
			return module, nil
		}
	}
	value, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return ModuleUndefined, fmt.Errorf("invalid module type %q", s)
	}
	return ModuleType(value), nil
}

// Parse an instance from its name (case insensitive) or numeric code e.g. "exclusive", "instance_2", "0x6"
func ParseInstance(s string) (Instance, error) {
	s = strings.TrimSpace(s)
	for i := InstanceUndefined; i <= Instance11; i++ {
		if strings.EqualFold(i.String(), s) {
			return i, nil
		}
	}
	value, err := strconv.ParseUint(s, 0, 4)
	if err != nil {
		return InstanceUndefined, fmt.Errorf("invalid instance %q", s)
	}
	return Instance(value), nil
}
