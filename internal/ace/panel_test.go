package ace

import (
	"errors"
	"log/slog"
	"os"
	"testing"
)

type fakePanelStore struct {
	actions map[string]string
	saveErr error
}

func newFakePanelStore() *fakePanelStore {
	return &fakePanelStore{actions: make(map[string]string)}
}

func (f *fakePanelStore) GetPanelAction(deviceID string) (string, error) {
	a, ok := f.actions[deviceID]
	if !ok {
		return "", errors.New("not found")
	}
	return a, nil
}

func (f *fakePanelStore) SavePanelAction(deviceID, action string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.actions[deviceID] = action
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func TestPanelDefaultsToDisarm(t *testing.T) {
	p := NewPanel("keypad-1", newFakePanelStore(), testLogger())
	if p.Action() != ActionDisarm {
		t.Errorf("action = %q, want disarm", p.Action())
	}
}

func TestPanelRestoresPersistedAction(t *testing.T) {
	st := newFakePanelStore()
	st.actions["keypad-1"] = string(ActionArmNightZones)
	p := NewPanel("keypad-1", st, testLogger())
	if p.Action() != ActionArmNightZones {
		t.Errorf("action = %q, want arm_night_zones", p.Action())
	}
}

func TestPanelSetActionPersists(t *testing.T) {
	st := newFakePanelStore()
	p := NewPanel("keypad-1", st, testLogger())
	p.SetAction(ActionArmAllZones)
	if st.actions["keypad-1"] != string(ActionArmAllZones) {
		t.Errorf("persisted = %q, want arm_all_zones", st.actions["keypad-1"])
	}
}

func TestPanelSetActionSurvivesStoreFailure(t *testing.T) {
	st := newFakePanelStore()
	st.saveErr = errors.New("disk full")
	p := NewPanel("keypad-1", st, testLogger())
	p.SetAction(ActionArmDayZones)
	if p.Action() != ActionArmDayZones {
		t.Error("transition rejected on store failure")
	}
}

func TestActionForMode(t *testing.T) {
	cases := map[ArmMode]Action{
		ArmModeDisarm:        ActionDisarm,
		ArmModeArmDayZones:   ActionArmDayZones,
		ArmModeArmNightZones: ActionArmNightZones,
		ArmModeArmAllZones:   ActionArmAllZones,
	}
	for mode, want := range cases {
		if got := ActionForMode(mode); got != want {
			t.Errorf("ActionForMode(%d) = %q, want %q", mode, got, want)
		}
	}
	if got := ActionForMode(ArmMode(9)); got != "unknown_9" {
		t.Errorf("ActionForMode(9) = %q, want unknown_9", got)
	}
}

func TestActionMappingsAreTotal(t *testing.T) {
	cases := []struct {
		action Action
		notify ArmNotification
		status PanelStatus
	}{
		{ActionDisarm, NotifyAllZonesDisarmed, PanelDisarmed},
		{ActionArmDayZones, NotifyOnlyDayZonesArmed, PanelArmedStay},
		{ActionArmNightZones, NotifyOnlyNightZonesArmed, PanelArmedNight},
		{ActionArmAllZones, NotifyAllZonesArmed, PanelArmedAway},
		{Action("unknown_7"), NotifyAllZonesDisarmed, PanelDisarmed},
	}
	for _, tc := range cases {
		if got := tc.action.ArmNotification(); got != tc.notify {
			t.Errorf("%q notification = %d, want %d", tc.action, got, tc.notify)
		}
		if got := tc.action.PanelStatus(); got != tc.status {
			t.Errorf("%q panel status = %d, want %d", tc.action, got, tc.status)
		}
	}
}

func TestParseAction(t *testing.T) {
	if _, ok := ParseAction("arm_all_zones"); !ok {
		t.Error("arm_all_zones rejected")
	}
	if _, ok := ParseAction("open_sesame"); ok {
		t.Error("invalid action accepted")
	}
}
