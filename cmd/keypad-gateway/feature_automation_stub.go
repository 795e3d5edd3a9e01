//go:build no_automation

package main

import (
	"log/slog"

	"keypad-gateway/internal/ace"
	"keypad-gateway/internal/events"
)

type autoStopper struct{}

func (a *autoStopper) Stop() {}

func initAutomation(_ *ace.Panel, _ *events.Bus, _ *Config, _ *slog.Logger) *autoStopper {
	return &autoStopper{}
}
