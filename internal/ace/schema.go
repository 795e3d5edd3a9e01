// Package ace implements the IAS ACE (Ancillary Control Equipment) cluster
// adapter for a battery-powered keypad: command schema, frame codec with
// the response control-bit correction, arm/disarm panel state, and the
// command dispatcher.
package ace

import (
	"fmt"

	"keypad-gateway/internal/zcl"
)

// ClusterID is the IAS ACE cluster (0x0501).
const ClusterID uint16 = 0x0501

// Server-bound command IDs.
const (
	CmdArm            uint8 = 0x00
	CmdEmergency      uint8 = 0x02
	CmdFire           uint8 = 0x03
	CmdPanic          uint8 = 0x04
	CmdGetPanelStatus uint8 = 0x07
)

// Client-bound response command IDs.
const (
	CmdArmResponse            uint8 = 0x00
	CmdGetPanelStatusResponse uint8 = 0x05
)

// ArmMode is the requested mode in an Arm command.
type ArmMode uint8

const (
	ArmModeDisarm        ArmMode = 0
	ArmModeArmDayZones   ArmMode = 1
	ArmModeArmNightZones ArmMode = 2
	ArmModeArmAllZones   ArmMode = 3
)

// ArmNotification is the enum returned in an Arm response.
type ArmNotification uint8

const (
	NotifyAllZonesDisarmed    ArmNotification = 0
	NotifyOnlyDayZonesArmed   ArmNotification = 1
	NotifyOnlyNightZonesArmed ArmNotification = 2
	NotifyAllZonesArmed       ArmNotification = 3
	NotifyInvalidCode         ArmNotification = 4
	NotifyNotReadyToArm       ArmNotification = 5
	NotifyAlreadyDisarmed     ArmNotification = 6
)

// PanelStatus is the enum returned in a GetPanelStatus response.
type PanelStatus uint8

const (
	PanelDisarmed     PanelStatus = 0
	PanelArmedStay    PanelStatus = 1
	PanelArmedNight   PanelStatus = 2
	PanelArmedAway    PanelStatus = 3
	PanelExitDelay    PanelStatus = 4
	PanelEntryDelay   PanelStatus = 5
	PanelNotReady     PanelStatus = 6
	PanelInAlarm      PanelStatus = 7
	PanelArmingStay   PanelStatus = 8
	PanelArmingNight  PanelStatus = 9
	PanelArmingAway   PanelStatus = 10
)

// AudibleNotification is the sound field in a GetPanelStatus response.
type AudibleNotification uint8

const (
	AudibleMute         AudibleNotification = 0
	AudibleDefaultSound AudibleNotification = 1
)

// AlarmStatus is the alarm field in a GetPanelStatus response.
type AlarmStatus uint8

const (
	AlarmNone           AlarmStatus = 0
	AlarmBurglar        AlarmStatus = 1
	AlarmFire           AlarmStatus = 2
	AlarmEmergency      AlarmStatus = 3
	AlarmPolicePanic    AlarmStatus = 4
	AlarmFirePanic      AlarmStatus = 5
	AlarmEmergencyPanic AlarmStatus = 6
)

// ArgDef is one field in a command or response layout.
type ArgDef struct {
	Name string
	Type uint8 // zcl type id
}

// ResponseSpec describes a response layout.
type ResponseSpec struct {
	ID   uint8
	Name string
	Args []ArgDef
}

// CommandSpec describes a server-bound command: its argument layout and,
// when the command is answered, its response layout.
type CommandSpec struct {
	ID       uint8
	Name     string
	Args     []ArgDef
	Response *ResponseSpec
}

// Schema is the immutable command table for the ACE cluster. Generic ZCL
// cluster tables carry only the command ids for 0x0501, not the payload
// layouts, so this table is the adapter's own source of truth.
type Schema struct {
	commands map[uint8]CommandSpec
}

// NewSchema builds the fixed ACE command table.
func NewSchema() Schema {
	cmds := []CommandSpec{
		{
			ID:   CmdArm,
			Name: "arm",
			Args: []ArgDef{
				{Name: "armMode", Type: zcl.TypeEnum8},
				{Name: "armDisarmCode", Type: zcl.TypeCharStr},
				{Name: "zoneId", Type: zcl.TypeUint8},
			},
			Response: &ResponseSpec{
				ID:   CmdArmResponse,
				Name: "arm.response",
				Args: []ArgDef{
					{Name: "armNotification", Type: zcl.TypeEnum8},
				},
			},
		},
		{ID: CmdEmergency, Name: "emergency"},
		{ID: CmdFire, Name: "fire"},
		{ID: CmdPanic, Name: "panic"},
		{
			ID:   CmdGetPanelStatus,
			Name: "getPanelStatus",
			Response: &ResponseSpec{
				ID:   CmdGetPanelStatusResponse,
				Name: "getPanelStatus.response",
				Args: []ArgDef{
					{Name: "panelStatus", Type: zcl.TypeEnum8},
					{Name: "secondsRemaining", Type: zcl.TypeUint8},
					{Name: "audibleNotification", Type: zcl.TypeEnum8},
					{Name: "alarmStatus", Type: zcl.TypeEnum8},
				},
			},
		},
	}

	m := make(map[uint8]CommandSpec, len(cmds))
	for _, c := range cmds {
		m[c.ID] = c
	}
	return Schema{commands: m}
}

// Command looks up a server-bound command by id.
func (s Schema) Command(id uint8) (CommandSpec, bool) {
	c, ok := s.commands[id]
	return c, ok
}

// decodeArgs parses a payload according to a layout, by field order.
func decodeArgs(args []ArgDef, payload []byte) (map[string]interface{}, error) {
	values := make(map[string]interface{}, len(args))
	for _, a := range args {
		v, n, err := zcl.DecodeValue(a.Type, payload)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", a.Name, err)
		}
		values[a.Name] = v
		payload = payload[n:]
	}
	return values, nil
}

// encodeArgs serializes values according to a layout, by field order.
func encodeArgs(args []ArgDef, values map[string]interface{}) ([]byte, error) {
	var out []byte
	for _, a := range args {
		b, err := zcl.EncodeValue(a.Type, values[a.Name])
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", a.Name, err)
		}
		out = append(out, b...)
	}
	return out, nil
}
