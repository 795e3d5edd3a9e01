package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"keypad-gateway/internal/ace"
	"keypad-gateway/internal/access"
	"keypad-gateway/internal/events"
	"keypad-gateway/internal/store"
	"keypad-gateway/internal/transport"
	"keypad-gateway/internal/web"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

type Config struct {
	Serial struct {
		Port string `yaml:"port"`
		Baud int    `yaml:"baud"`
	} `yaml:"serial"`
	Device struct {
		ID       string `yaml:"id"`
		Endpoint uint8  `yaml:"endpoint"`
		ZoneID   uint8  `yaml:"zone_id"`
	} `yaml:"device"`
	Timezone string `yaml:"timezone"`
	Store    struct {
		Path string `yaml:"path"`
	} `yaml:"store"`
	Web struct {
		Listen         string   `yaml:"listen"`
		APIKey         string   `yaml:"api_key"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"web"`
	MQTT struct {
		Enabled     bool   `yaml:"enabled"`
		Broker      string `yaml:"broker"`
		Username    string `yaml:"username"`
		Password    string `yaml:"password"`
		TopicPrefix string `yaml:"topic_prefix"`
	} `yaml:"mqtt"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	ScriptsDir string `yaml:"scripts_dir"`
}

func (c *Config) validate() error {
	if c.Serial.Port == "" {
		return fmt.Errorf("serial.port is required")
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	return nil
}

func main() {
	// Temporary logger for config loading errors.
	bootLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfgPath := "config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		bootLogger.Error("load config", "err", err)
		os.Exit(1)
	}

	if err := cfg.validate(); err != nil {
		bootLogger.Error("invalid config", "err", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("keypad-gateway starting", "version", version)

	db, err := store.NewBoltStore(cfg.Store.Path)
	if err != nil {
		logger.Error("open store", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	clock, err := access.NewLocalClock(cfg.Timezone)
	if err != nil {
		logger.Error("load timezone", "err", err, "tz", cfg.Timezone)
		os.Exit(1)
	}

	validator := access.NewValidator(db, clock, logger)
	bus := events.NewBus(logger)
	panel := ace.NewPanel(cfg.Device.ID, db, logger)

	link, err := transport.OpenSerial(cfg.Serial.Port, cfg.Serial.Baud, cfg.Device.Endpoint, logger)
	if err != nil {
		logger.Error("open serial transport", "err", err)
		os.Exit(1)
	}
	defer link.Close()

	dispatcher := ace.NewDispatcher(ace.NewCodec(ace.NewSchema()), panel, validator, bus, link, logger)
	zone := ace.NewZoneHandler(link, bus, cfg.Device.ZoneID, logger)

	link.OnFrame(func(f transport.InboundFrame) {
		ctx := context.Background()
		switch f.ClusterID {
		case ace.ClusterID:
			dispatcher.HandleFrame(ctx, f.Data)
		case ace.ZoneClusterID:
			zone.HandleZoneFrame(ctx, f.Data)
		case ace.PowerClusterID:
			zone.HandlePowerFrame(ctx, f.Data)
		default:
			logger.Debug("frame for unhandled cluster", "cluster", fmt.Sprintf("0x%04X", f.ClusterID))
		}
	})

	// Answer any pending enroll request from a keypad that joined while
	// the gateway was down.
	enrollCtx, enrollCancel := context.WithTimeout(context.Background(), 5*time.Second)
	zone.Enroll(enrollCtx)
	enrollCancel()

	// Start automation engine (no-op when built with no_automation tag).
	auto := initAutomation(panel, bus, cfg, logger)

	var webOpts []web.ServerOption
	if cfg.Web.APIKey != "" {
		webOpts = append(webOpts, web.WithAPIKey(cfg.Web.APIKey))
	}
	if len(cfg.Web.AllowedOrigins) > 0 {
		webOpts = append(webOpts, web.WithAllowedOrigins(cfg.Web.AllowedOrigins))
	}
	webOpts = append(webOpts, web.WithVersion(version))

	webServer := web.NewServer(db, panel, bus, logger, webOpts...)

	httpServer := &http.Server{
		Addr:         cfg.Web.Listen,
		Handler:      webServer,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("web server starting", "addr", cfg.Web.Listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", "err", err)
		}
	}()

	// Start MQTT bridge (no-op when built with no_mqtt tag).
	mqtt := initMQTT(panel, bus, cfg, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	signal.Stop(sigCh)
	logger.Info("shutting down", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	auto.Stop()
	mqtt.Stop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", "err", err)
	}
	webServer.Stop()

	logger.Info("goodbye")
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Serial.Baud == 0 {
		cfg.Serial.Baud = 115200
	}
	if cfg.Device.ID == "" {
		cfg.Device.ID = "keypad"
	}
	if cfg.Device.Endpoint == 0 {
		cfg.Device.Endpoint = 1
	}
	if cfg.Device.ZoneID == 0 {
		cfg.Device.ZoneID = 23
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "keypad-gateway.db"
	}
	if cfg.Web.Listen == "" {
		cfg.Web.Listen = "127.0.0.1:8080"
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "keypad-gateway"
	}
	if cfg.ScriptsDir == "" {
		cfg.ScriptsDir = "scripts"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	return &cfg, nil
}

func newLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(cfg.Log.Format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
