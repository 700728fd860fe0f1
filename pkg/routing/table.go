package routing

import (
	"github.com/bioreactor/modulebus/pkg/protocol"
	"github.com/cockroachdb/errors"
)

var ErrDuplicateRoute = errors.New("message routed to more than one component")

type Route struct {
	Message   protocol.MessageType
	Component protocol.Component
}

type AdminRoute struct {
	Command   protocol.AdminCommand
	Component protocol.Component
}

// Table maps message types and admin commands to their owning component.
// It is immutable once built.
type Table struct {
	application map[protocol.MessageType]protocol.Component
	admin       map[protocol.AdminCommand]protocol.Component
}

// NewTable builds a routing table. Each message type and admin command
// must be owned by exactly one component, duplicates are rejected.
func NewTable(routes []Route, adminRoutes []AdminRoute) (*Table, error) {
	table := &Table{
		application: make(map[protocol.MessageType]protocol.Component, len(routes)),
		admin:       make(map[protocol.AdminCommand]protocol.Component, len(adminRoutes)),
	}
	for _, route := range routes {
		if owner, ok := table.application[route.Message]; ok {
			return nil, errors.Wrapf(ErrDuplicateRoute, "%v owned by %v and %v", route.Message, owner, route.Component)
		}
		table.application[route.Message] = route.Component
	}
	for _, route := range adminRoutes {
		if owner, ok := table.admin[route.Command]; ok {
			return nil, errors.Wrapf(ErrDuplicateRoute, "admin %v owned by %v and %v", route.Command, owner, route.Component)
		}
		table.admin[route.Command] = route.Component
	}
	return table, nil
}

// Component owning an application message type
func (t *Table) Lookup(messageType protocol.MessageType) (protocol.Component, bool) {
	component, ok := t.application[messageType]
	return component, ok
}

// Component owning an admin command
func (t *Table) LookupAdmin(command protocol.AdminCommand) (protocol.Component, bool) {
	component, ok := t.admin[command]
	return component, ok
}

func (t *Table) Len() int {
	return len(t.application) + len(t.admin)
}

// Routes for the built-in message catalog.
// Responses are consumed by the module that issued the request.
var DefaultRoutes = []Route{
	{protocol.PingRequest, protocol.ComponentCommonCore},
	{protocol.PingResponse, protocol.ComponentCommonCore},
	{protocol.ProbeModulesRequest, protocol.ComponentCommonCore},
	{protocol.ProbeModulesResponse, protocol.ComponentCommonCore},
	{protocol.CoreTemperatureReq, protocol.ComponentCommonCore},
	{protocol.CoreTemperatureResp, protocol.ComponentCommonCore},
	{protocol.CoreSupplyVoltageReq, protocol.ComponentCommonCore},
	{protocol.CoreSupplyVoltageResp, protocol.ComponentCommonCore},
	{protocol.BoardTemperatureReq, protocol.ComponentBoardSensors},
	{protocol.BoardTemperatureResp, protocol.ComponentBoardSensors},

	{protocol.HeaterSetIntensity, protocol.ComponentHeater},
	{protocol.HeaterGetIntensityReq, protocol.ComponentHeater},
	{protocol.HeaterGetIntensityResp, protocol.ComponentHeater},
	{protocol.HeaterSetTargetTemp, protocol.ComponentHeater},
	{protocol.HeaterGetPlateTempReq, protocol.ComponentHeater},
	{protocol.HeaterGetPlateTempResp, protocol.ComponentHeater},
	{protocol.HeaterTurnOff, protocol.ComponentHeater},
	{protocol.CuvettePumpSetSpeed, protocol.ComponentCuvettePump},
	{protocol.CuvettePumpGetSpeedReq, protocol.ComponentCuvettePump},
	{protocol.CuvettePumpGetSpeedResp, protocol.ComponentCuvettePump},
	{protocol.CuvettePumpStart, protocol.ComponentCuvettePump},
	{protocol.CuvettePumpStop, protocol.ComponentCuvettePump},
	{protocol.AeratorSetSpeed, protocol.ComponentAerator},
	{protocol.AeratorGetSpeedReq, protocol.ComponentAerator},
	{protocol.AeratorGetSpeedResp, protocol.ComponentAerator},
	{protocol.AeratorStop, protocol.ComponentAerator},
	{protocol.MixerSetSpeed, protocol.ComponentMixer},
	{protocol.MixerGetSpeedReq, protocol.ComponentMixer},
	{protocol.MixerGetSpeedResp, protocol.ComponentMixer},
	{protocol.MixerStop, protocol.ComponentMixer},
	{protocol.LEDPanelSetIntensity, protocol.ComponentLEDPanel},
	{protocol.LEDPanelGetTemperatureReq, protocol.ComponentLEDPanel},
	{protocol.LEDPanelGetTemperatureRsp, protocol.ComponentLEDPanel},

	{protocol.BottleTemperatureReq, protocol.ComponentBottleThermometer},
	{protocol.BottleTemperatureResp, protocol.ComponentBottleThermometer},
	{protocol.FluorometerCaptureReq, protocol.ComponentFluorometer},
	{protocol.FluorometerCaptureStatusReq, protocol.ComponentFluorometer},
	{protocol.FluorometerCaptureStatusRsp, protocol.ComponentFluorometer},
	{protocol.FluorometerDataReq, protocol.ComponentFluorometer},
	{protocol.FluorometerDataResp, protocol.ComponentFluorometer},
	{protocol.SpectrophotometerMeasureReq, protocol.ComponentSpectrophotometer},
	{protocol.SpectrophotometerMeasureRsp, protocol.ComponentSpectrophotometer},

	{protocol.PumpSetFlowrate, protocol.ComponentPump},
	{protocol.PumpGetFlowrateReq, protocol.ComponentPump},
	{protocol.PumpGetFlowrateResp, protocol.ComponentPump},
	{protocol.PumpMove, protocol.ComponentPump},
	{protocol.PumpStop, protocol.ComponentPump},
}

var DefaultAdminRoutes = []AdminRoute{
	{protocol.AdminProbeModulesRequest, protocol.ComponentCommonCore},
	{protocol.AdminProbeModulesResponse, protocol.ComponentCommonCore},
	{protocol.AdminSerialIDRequest, protocol.ComponentCommonCore},
	{protocol.AdminSerialIDResponse, protocol.ComponentCommonCore},
}

// Table built from [DefaultRoutes] and [DefaultAdminRoutes]
func DefaultTable() *Table {
	table, err := NewTable(DefaultRoutes, DefaultAdminRoutes)
	if err != nil {
		panic(err)
	}
	return table
}
