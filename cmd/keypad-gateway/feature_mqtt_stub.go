//go:build no_mqtt

package main

import (
	"log/slog"

	"keypad-gateway/internal/ace"
	"keypad-gateway/internal/events"
)

type mqttStopper struct{}

func (m *mqttStopper) Stop() {}

func initMQTT(_ *ace.Panel, _ *events.Bus, _ *Config, _ *slog.Logger) *mqttStopper {
	return &mqttStopper{}
}
