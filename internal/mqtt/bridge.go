//go:build !no_mqtt

package mqtt

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"keypad-gateway/internal/ace"
	"keypad-gateway/internal/events"
)

// Config holds MQTT bridge configuration.
type Config struct {
	Broker      string
	Username    string
	Password    string
	TopicPrefix string
	DeviceID    string
}

// Bridge mirrors keypad events to MQTT and accepts panel commands back.
//
// Topics under the prefix:
//
//	bridge/state   online/offline (retained, LWT)
//	keypad         retained panel state JSON
//	keypad/set     inbound {"action": "..."} commands
//	event/<type>   individual keypad events, not retained
type Bridge struct {
	client   pahomqtt.Client
	panel    *ace.Panel
	bus      *events.Bus
	prefix   string
	deviceID string
	logger   *slog.Logger
	unsub    func()
}

// NewBridge creates and connects an MQTT bridge.
func NewBridge(panel *ace.Panel, bus *events.Bus, cfg Config, logger *slog.Logger) (*Bridge, error) {
	b := &Bridge{
		panel:    panel,
		bus:      bus,
		prefix:   cfg.TopicPrefix,
		deviceID: cfg.DeviceID,
		logger:   logger.With("component", "mqtt"),
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID("keypad-gateway").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(cfg.TopicPrefix+"/bridge/state", "offline", 1, true).
		SetOnConnectHandler(func(_ pahomqtt.Client) {
			b.logger.Info("MQTT connected")
			b.publishBridgeState("online")
			b.publishDiscovery()
			b.publishPanelState()
			b.subscribeCommands()
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			b.logger.Warn("MQTT connection lost", "err", err)
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	b.client = client
	return b, nil
}

// Start subscribes to keypad events and begins MQTT publishing.
func (b *Bridge) Start() {
	b.unsub = b.bus.OnAll(b.handleEvent)
	b.logger.Info("MQTT bridge started", "prefix", b.prefix)
}

// Stop publishes offline state, unsubscribes, and disconnects.
func (b *Bridge) Stop() {
	if b.unsub != nil {
		b.unsub()
	}
	b.publishBridgeState("offline")
	b.client.Disconnect(1000)
	b.logger.Info("MQTT bridge stopped")
}

func (b *Bridge) handleEvent(event events.Event) {
	payload := make(map[string]any, len(event.Data)+1)
	for k, v := range event.Data {
		payload[k] = v
	}
	payload["time"] = time.Now().Format(time.RFC3339)
	b.publish(b.prefix+"/event/"+event.Type, mustJSON(payload), false)

	switch event.Type {
	case events.EventArm, events.EventPanelStatus:
		b.publishPanelState()
	}
}

func (b *Bridge) publishBridgeState(state string) {
	b.publish(b.prefix+"/bridge/state", []byte(state), true)
}

func (b *Bridge) publishDiscovery() {
	for _, msg := range buildDiscovery(b.deviceID, b.prefix) {
		b.publish(msg.Topic, msg.Payload, true)
	}
	b.logger.Info("published HA discovery", "device", b.deviceID)
}

func (b *Bridge) publishPanelState() {
	state := map[string]any{
		"action":       string(b.panel.Action()),
		"panel_status": uint8(b.panel.Action().PanelStatus()),
	}
	b.publish(b.prefix+"/keypad", mustJSON(state), true)
}

func (b *Bridge) subscribeCommands() {
	topic := b.prefix + "/keypad/set"
	b.client.Subscribe(topic, 1, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		b.handleCommand(msg.Payload())
	})
}

func (b *Bridge) handleCommand(payload []byte) {
	var cmd struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.logger.Warn("invalid command JSON", "err", err)
		return
	}
	action, ok := ace.ParseAction(cmd.Action)
	if !ok {
		b.logger.Warn("unknown panel action", "action", cmd.Action)
		return
	}
	b.panel.SetAction(action)
	b.bus.Emit(events.Event{
		Type: events.EventPanelStatus,
		Data: map[string]any{"action": string(action), "source": "mqtt"},
	})
}

func (b *Bridge) publish(topic string, payload []byte, retained bool) {
	token := b.client.Publish(topic, 1, retained, payload)
	go func() {
		if !token.WaitTimeout(5 * time.Second) {
			b.logger.Warn("MQTT publish timeout", "topic", topic)
		} else if err := token.Error(); err != nil {
			b.logger.Warn("MQTT publish error", "topic", topic, "err", err)
		}
	}()
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
