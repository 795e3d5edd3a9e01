//go:build !no_automation

package main

import (
	"log/slog"

	"keypad-gateway/internal/ace"
	"keypad-gateway/internal/automation"
	"keypad-gateway/internal/events"
)

type autoStopper struct {
	engine *automation.Engine
}

func (a *autoStopper) Stop() {
	if a.engine != nil {
		a.engine.Stop()
	}
}

func initAutomation(panel *ace.Panel, bus *events.Bus, cfg *Config, logger *slog.Logger) *autoStopper {
	engine := automation.NewEngine(panel, bus, cfg.ScriptsDir, logger)
	engine.Start()
	return &autoStopper{engine: engine}
}
