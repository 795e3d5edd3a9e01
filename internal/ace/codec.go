package ace

import (
	"errors"
	"fmt"

	"keypad-gateway/internal/zcl"
)

// Drop reasons. Frames rejected with these errors get no response and no
// event; the keypad's own retransmission handles loss.
var (
	ErrNotClusterSpecific = errors.New("ace: frame not cluster-specific")
	ErrUnknownCommand     = errors.New("ace: unknown command id")
)

// Command is a decoded ACE command. The set is closed: anything outside it
// is rejected at the decode boundary.
type Command interface {
	aceCommand()
}

// ArmCommand carries the requested mode, the submitted PIN, and a zone id.
type ArmCommand struct {
	Mode   ArmMode
	Code   string
	ZoneID uint8
}

// EmergencyCommand is the keypad's emergency key.
type EmergencyCommand struct{}

// FireCommand is the keypad's fire key.
type FireCommand struct{}

// PanicCommand is the keypad's panic key.
type PanicCommand struct{}

// GetPanelStatusCommand asks for the panel's current mode.
type GetPanelStatusCommand struct{}

func (ArmCommand) aceCommand()            {}
func (EmergencyCommand) aceCommand()      {}
func (FireCommand) aceCommand()           {}
func (PanicCommand) aceCommand()          {}
func (GetPanelStatusCommand) aceCommand() {}

// Codec translates between raw ZCL frames and typed ACE commands and
// responses, using an immutable schema fixed at construction.
type Codec struct {
	schema Schema
}

// NewCodec creates a codec over the given schema.
func NewCodec(schema Schema) Codec {
	return Codec{schema: schema}
}

// Decode parses a raw inbound frame into a typed command. The original
// frame is returned alongside so responses can echo its sequence number
// and invert its direction bit.
func (c Codec) Decode(raw []byte) (Command, zcl.Frame, error) {
	frame, err := zcl.ParseFrame(raw)
	if err != nil {
		return nil, zcl.Frame{}, err
	}
	if !frame.Control.ClusterSpecific {
		return nil, frame, ErrNotClusterSpecific
	}

	spec, ok := c.schema.Command(frame.Command)
	if !ok {
		return nil, frame, fmt.Errorf("%w: 0x%02X", ErrUnknownCommand, frame.Command)
	}
	values, err := decodeArgs(spec.Args, frame.Payload)
	if err != nil {
		return nil, frame, fmt.Errorf("parse %s payload: %w", spec.Name, err)
	}

	switch spec.ID {
	case CmdArm:
		mode, _ := values["armMode"].(uint8)
		code, _ := values["armDisarmCode"].(string)
		zone, _ := values["zoneId"].(uint8)
		return ArmCommand{Mode: ArmMode(mode), Code: code, ZoneID: zone}, frame, nil
	case CmdEmergency:
		return EmergencyCommand{}, frame, nil
	case CmdFire:
		return FireCommand{}, frame, nil
	case CmdPanic:
		return PanicCommand{}, frame, nil
	case CmdGetPanelStatus:
		return GetPanelStatusCommand{}, frame, nil
	}
	return nil, frame, fmt.Errorf("%w: 0x%02X", ErrUnknownCommand, frame.Command)
}

// EncodeArmResponse builds the Arm response frame for an inbound command.
func (c Codec) EncodeArmResponse(orig zcl.Frame, n ArmNotification) ([]byte, error) {
	spec, _ := c.schema.Command(CmdArm)
	payload, err := encodeArgs(spec.Response.Args, map[string]interface{}{
		"armNotification": uint8(n),
	})
	if err != nil {
		return nil, err
	}
	return c.responseFrame(orig, spec.Response.ID, payload), nil
}

// PanelStatusResponse is the typed GetPanelStatus answer.
type PanelStatusResponse struct {
	Status           PanelStatus
	SecondsRemaining uint8
	Audible          AudibleNotification
	Alarm            AlarmStatus
}

// EncodePanelStatusResponse builds the GetPanelStatus response frame.
func (c Codec) EncodePanelStatusResponse(orig zcl.Frame, r PanelStatusResponse) ([]byte, error) {
	spec, _ := c.schema.Command(CmdGetPanelStatus)
	payload, err := encodeArgs(spec.Response.Args, map[string]interface{}{
		"panelStatus":         uint8(r.Status),
		"secondsRemaining":    r.SecondsRemaining,
		"audibleNotification": uint8(r.Audible),
		"alarmStatus":         uint8(r.Alarm),
	})
	if err != nil {
		return nil, err
	}
	return c.responseFrame(orig, spec.Response.ID, payload), nil
}

// responseFrame builds the corrected response header. The transport
// binding's automatic reply leaves the direction bit unflipped and the
// cluster-specific bit cleared, which the keypad silently ignores; this
// manually built frame is sent instead and the automatic path suppressed.
// Byte 0: cluster-specific | inverted direction | disable default response.
// Byte 1: the original transaction sequence number, echoed.
func (c Codec) responseFrame(orig zcl.Frame, cmdID uint8, payload []byte) []byte {
	resp := zcl.Frame{
		Control: zcl.FrameControl{
			ClusterSpecific:        true,
			DirectionToClient:      !orig.Control.DirectionToClient,
			DisableDefaultResponse: true,
		},
		Seq:     orig.Seq,
		Command: cmdID,
		Payload: payload,
	}
	return resp.Bytes()
}
