package ace

import (
	"context"
	"log/slog"

	"keypad-gateway/internal/access"
	"keypad-gateway/internal/events"
	"keypad-gateway/internal/zcl"
)

// Sender is the outbound transport boundary: an opaque best-effort send
// with no delivery confirmation surfaced back.
type Sender interface {
	SendFrame(ctx context.Context, clusterID uint16, data []byte) error
}

// Validator classifies a submitted PIN.
type Validator interface {
	Validate(code string) access.Result
}

// Dispatcher routes decoded ACE commands: it updates the panel, answers
// the keypad, and emits domain events. Frames from one device are handled
// one at a time; the caller must not invoke HandleFrame concurrently for
// the same device.
type Dispatcher struct {
	codec     Codec
	panel     *Panel
	validator Validator
	bus       *events.Bus
	sender    Sender
	logger    *slog.Logger
}

// NewDispatcher wires a dispatcher for one keypad.
func NewDispatcher(codec Codec, panel *Panel, validator Validator, bus *events.Bus, sender Sender, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		codec:     codec,
		panel:     panel,
		validator: validator,
		bus:       bus,
		sender:    sender,
		logger:    logger.With("component", "ace"),
	}
}

// HandleFrame processes one inbound ACE frame. Malformed or unsupported
// frames are dropped silently: no response, no event.
func (d *Dispatcher) HandleFrame(ctx context.Context, raw []byte) {
	cmd, frame, err := d.codec.Decode(raw)
	if err != nil {
		d.logger.Debug("frame dropped", "err", err)
		return
	}

	switch c := cmd.(type) {
	case ArmCommand:
		d.handleArm(ctx, c, frame)
	case EmergencyCommand:
		d.logger.Info("emergency key pressed")
		d.bus.Emit(events.Event{Type: events.EventEmergency})
	case FireCommand:
		d.logger.Info("fire key pressed")
		d.bus.Emit(events.Event{Type: events.EventFire})
	case PanicCommand:
		d.logger.Info("panic key pressed")
		d.bus.Emit(events.Event{Type: events.EventPanic})
	case GetPanelStatusCommand:
		d.handleGetPanelStatus(ctx, frame)
	}
}

// handleArm always applies the requested mode and acknowledges it, then
// validates the PIN and emits the arm event. The keypad listens for the
// response only during a short post-transmission window before its radio
// sleeps, so the send must not wait on the store read or event delivery;
// PIN validity is surfaced only through the event.
func (d *Dispatcher) handleArm(ctx context.Context, cmd ArmCommand, frame zcl.Frame) {
	action := ActionForMode(cmd.Mode)
	d.panel.SetAction(action)

	resp, err := d.codec.EncodeArmResponse(frame, action.ArmNotification())
	if err != nil {
		// Equivalent to a dropped frame; the keypad retries on its own timer.
		d.logger.Error("encode arm response", "err", err)
		return
	}
	if err := d.sender.SendFrame(ctx, ClusterID, resp); err != nil {
		d.logger.Warn("send arm response", "err", err)
	}

	result := d.validator.Validate(cmd.Code)
	d.logger.Info("arm command",
		"action", action,
		"zone", cmd.ZoneID,
		"code_valid", result.Valid,
		"code_status", result.Status)

	d.bus.Emit(events.Event{Type: events.EventArm, Data: map[string]any{
		"code":        cmd.Code,
		"action":      string(action),
		"zone_id":     cmd.ZoneID,
		"code_valid":  result.Valid,
		"code_name":   result.Name,
		"code_status": string(result.Status),
	}})
}

func (d *Dispatcher) handleGetPanelStatus(ctx context.Context, frame zcl.Frame) {
	// No exit/entry delay timer is modeled: seconds remaining is always 0
	// and the alarm status always reads no-alarm.
	resp, err := d.codec.EncodePanelStatusResponse(frame, PanelStatusResponse{
		Status:           d.panel.Action().PanelStatus(),
		SecondsRemaining: 0,
		Audible:          AudibleMute,
		Alarm:            AlarmNone,
	})
	if err != nil {
		d.logger.Error("encode panel status response", "err", err)
		return
	}
	if err := d.sender.SendFrame(ctx, ClusterID, resp); err != nil {
		d.logger.Warn("send panel status response", "err", err)
	}
}
