//go:build !no_mqtt

package mqtt

type discoveryMsg struct {
	Topic   string
	Payload []byte
}

type haDevice struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
}

type haDiscovery struct {
	Name              string   `json:"name"`
	UniqueID          string   `json:"unique_id"`
	StateTopic        string   `json:"state_topic,omitempty"`
	CommandTopic      string   `json:"command_topic,omitempty"`
	AvailabilityTopic string   `json:"availability_topic,omitempty"`
	ValueTemplate     string   `json:"value_template,omitempty"`
	DeviceClass       string   `json:"device_class,omitempty"`
	UnitOfMeasurement string   `json:"unit_of_measurement,omitempty"`
	PayloadOn         any      `json:"payload_on,omitempty"`
	PayloadOff        any      `json:"payload_off,omitempty"`
	Device            haDevice `json:"device"`
}

// buildDiscovery returns Home Assistant autodiscovery configs for the
// keypad: an alarm panel state sensor, a battery sensor, and a tamper
// binary sensor.
func buildDiscovery(deviceID, prefix string) []discoveryMsg {
	node := "keypad_" + deviceID
	dev := haDevice{
		Identifiers: []string{node},
		Name:        "Keypad " + deviceID,
		Model:       "IAS ACE keypad",
	}
	stateTopic := prefix + "/keypad"
	availTopic := prefix + "/bridge/state"

	entities := []struct {
		component string
		object    string
		cfg       haDiscovery
	}{
		{
			component: "sensor",
			object:    "panel",
			cfg: haDiscovery{
				Name:          "Keypad " + deviceID + " Panel",
				StateTopic:    stateTopic,
				ValueTemplate: "{{ value_json.action }}",
			},
		},
		{
			component: "sensor",
			object:    "battery",
			cfg: haDiscovery{
				Name:              "Keypad " + deviceID + " Battery",
				StateTopic:        prefix + "/event/keypad_battery",
				ValueTemplate:     "{{ value_json.percent }}",
				DeviceClass:       "battery",
				UnitOfMeasurement: "%",
			},
		},
		{
			component: "binary_sensor",
			object:    "tamper",
			cfg: haDiscovery{
				Name:          "Keypad " + deviceID + " Tamper",
				StateTopic:    prefix + "/event/keypad_tamper",
				ValueTemplate: "{{ value_json.tamper }}",
				DeviceClass:   "tamper",
				PayloadOn:     true,
				PayloadOff:    false,
			},
		},
	}

	msgs := make([]discoveryMsg, 0, len(entities))
	for _, e := range entities {
		cfg := e.cfg
		cfg.UniqueID = node + "_" + e.object
		cfg.AvailabilityTopic = availTopic
		cfg.Device = dev
		msgs = append(msgs, discoveryMsg{
			Topic:   "homeassistant/" + e.component + "/" + node + "/" + e.object + "/config",
			Payload: mustJSON(cfg),
		})
	}
	return msgs
}
