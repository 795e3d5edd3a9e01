//go:build !no_mqtt

package mqtt

import (
	"encoding/json"
	"testing"
)

func TestDiscoveryEntities(t *testing.T) {
	msgs := buildDiscovery("keypad-1", "keypad-gw")
	if len(msgs) != 3 {
		t.Fatalf("got %d discovery messages, want 3", len(msgs))
	}

	topics := make(map[string]bool)
	for _, m := range msgs {
		topics[m.Topic] = true
	}
	for _, want := range []string{
		"homeassistant/sensor/keypad_keypad-1/panel/config",
		"homeassistant/sensor/keypad_keypad-1/battery/config",
		"homeassistant/binary_sensor/keypad_keypad-1/tamper/config",
	} {
		if !topics[want] {
			t.Errorf("missing discovery topic %s", want)
		}
	}
}

func TestDiscoveryPanelConfig(t *testing.T) {
	msgs := buildDiscovery("keypad-1", "keypad-gw")

	var panel *discoveryMsg
	for i := range msgs {
		if msgs[i].Topic == "homeassistant/sensor/keypad_keypad-1/panel/config" {
			panel = &msgs[i]
			break
		}
	}
	if panel == nil {
		t.Fatal("panel discovery not found")
	}

	var payload haDiscovery
	if err := json.Unmarshal(panel.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.StateTopic != "keypad-gw/keypad" {
		t.Errorf("state_topic = %q", payload.StateTopic)
	}
	if payload.AvailabilityTopic != "keypad-gw/bridge/state" {
		t.Errorf("availability_topic = %q", payload.AvailabilityTopic)
	}
	if payload.UniqueID != "keypad_keypad-1_panel" {
		t.Errorf("unique_id = %q", payload.UniqueID)
	}
}

func TestDiscoveryBatteryConfig(t *testing.T) {
	msgs := buildDiscovery("keypad-1", "keypad-gw")
	for _, m := range msgs {
		if m.Topic != "homeassistant/sensor/keypad_keypad-1/battery/config" {
			continue
		}
		var payload haDiscovery
		if err := json.Unmarshal(m.Payload, &payload); err != nil {
			t.Fatal(err)
		}
		if payload.DeviceClass != "battery" || payload.UnitOfMeasurement != "%" {
			t.Errorf("battery config = %+v", payload)
		}
		if payload.StateTopic != "keypad-gw/event/keypad_battery" {
			t.Errorf("state_topic = %q", payload.StateTopic)
		}
		return
	}
	t.Fatal("battery discovery not found")
}

func TestCommandParse(t *testing.T) {
	tests := []struct {
		payload string
		action  string
	}{
		{`{"action":"disarm"}`, "disarm"},
		{`{"action":"arm_all_zones"}`, "arm_all_zones"},
	}
	for _, tt := range tests {
		var cmd struct {
			Action string `json:"action"`
		}
		if err := json.Unmarshal([]byte(tt.payload), &cmd); err != nil {
			t.Fatalf("unmarshal %q: %v", tt.payload, err)
		}
		if cmd.Action != tt.action {
			t.Errorf("action = %q, want %q", cmd.Action, tt.action)
		}
	}
}

func TestMustJSON(t *testing.T) {
	result := mustJSON(map[string]string{"hello": "world"})
	var parsed map[string]string
	if err := json.Unmarshal(result, &parsed); err != nil {
		t.Fatalf("mustJSON output not valid JSON: %v", err)
	}
	if parsed["hello"] != "world" {
		t.Errorf("parsed value = %q", parsed["hello"])
	}
}
