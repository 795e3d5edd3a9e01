package ace

import (
	"fmt"
	"log/slog"
	"sync"
)

// Action is the panel's current high-level mode.
type Action string

const (
	ActionDisarm        Action = "disarm"
	ActionArmDayZones   Action = "arm_day_zones"
	ActionArmNightZones Action = "arm_night_zones"
	ActionArmAllZones   Action = "arm_all_zones"
)

// ActionForMode maps a wire arm mode to a panel action. Unrecognized mode
// bytes are preserved for event consumers rather than coerced.
func ActionForMode(m ArmMode) Action {
	switch m {
	case ArmModeDisarm:
		return ActionDisarm
	case ArmModeArmDayZones:
		return ActionArmDayZones
	case ArmModeArmNightZones:
		return ActionArmNightZones
	case ArmModeArmAllZones:
		return ActionArmAllZones
	}
	return Action(fmt.Sprintf("unknown_%d", uint8(m)))
}

// ParseAction validates an externally supplied action string.
func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case ActionDisarm, ActionArmDayZones, ActionArmNightZones, ActionArmAllZones:
		return Action(s), true
	}
	return "", false
}

// ArmNotification maps the action to the Arm response enum. Total, with
// disarm as the fallback for any unrecognized value.
func (a Action) ArmNotification() ArmNotification {
	switch a {
	case ActionArmDayZones:
		return NotifyOnlyDayZonesArmed
	case ActionArmNightZones:
		return NotifyOnlyNightZonesArmed
	case ActionArmAllZones:
		return NotifyAllZonesArmed
	}
	return NotifyAllZonesDisarmed
}

// PanelStatus maps the action to the GetPanelStatus enum. Total, with
// disarm as the fallback for any unrecognized value.
func (a Action) PanelStatus() PanelStatus {
	switch a {
	case ActionArmDayZones:
		return PanelArmedStay
	case ActionArmNightZones:
		return PanelArmedNight
	case ActionArmAllZones:
		return PanelArmedAway
	}
	return PanelDisarmed
}

// PanelStore persists the panel action across restarts.
type PanelStore interface {
	GetPanelAction(deviceID string) (string, error)
	SavePanelAction(deviceID, action string) error
}

// Panel is the arm/disarm state machine for one keypad. Every transition
// is accepted: the keypad expects immediate LED feedback for the mode it
// requested, whether or not the submitted PIN was valid.
type Panel struct {
	mu       sync.Mutex
	deviceID string
	action   Action
	store    PanelStore
	logger   *slog.Logger
}

// NewPanel restores the persisted action for the device, defaulting to
// disarm when none is stored.
func NewPanel(deviceID string, st PanelStore, logger *slog.Logger) *Panel {
	p := &Panel{deviceID: deviceID, action: ActionDisarm, store: st, logger: logger}
	if saved, err := st.GetPanelAction(deviceID); err == nil && saved != "" {
		p.action = Action(saved)
	}
	return p
}

// Action returns the current panel action.
func (p *Panel) Action() Action {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.action
}

// SetAction transitions to the given action and persists it. A persistence
// failure is logged and does not reject the transition.
func (p *Panel) SetAction(a Action) {
	p.mu.Lock()
	p.action = a
	p.mu.Unlock()
	if err := p.store.SavePanelAction(p.deviceID, string(a)); err != nil {
		p.logger.Warn("persist panel action", "action", a, "err", err)
	}
}
