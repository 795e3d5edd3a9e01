package ace

import (
	"context"
	"encoding/binary"
	"log/slog"
	"sync"

	"keypad-gateway/internal/events"
	"keypad-gateway/internal/zcl"
)

// Companion clusters the keypad exposes alongside ACE.
const (
	ZoneClusterID  uint16 = 0x0500 // IAS Zone: enrollment + tamper
	PowerClusterID uint16 = 0x0001 // Power Configuration: battery
)

// IAS Zone commands.
const (
	cmdZoneStatusChange  uint8 = 0x00 // server -> client notification
	cmdZoneEnrollRequest uint8 = 0x01 // server -> client
	cmdZoneEnrollResp    uint8 = 0x00 // client -> server
)

// Attribute ids.
const (
	attrZoneStatus     uint16 = 0x0002 // IAS Zone, map16
	attrBatteryPercent uint16 = 0x0021 // Power Configuration, uint8, in half-percent
)

const zoneStatusTamperBit = 1 << 2

const lowBatteryThreshold = 10 // percent

// ZoneHandler mirrors the keypad's IAS Zone and battery state onto the
// event bus and answers the zone-enrollment handshake.
type ZoneHandler struct {
	sender Sender
	bus    *events.Bus
	zoneID uint8
	logger *slog.Logger

	mu  sync.Mutex
	seq uint8
}

// NewZoneHandler creates a handler enrolling the keypad as zoneID.
func NewZoneHandler(sender Sender, bus *events.Bus, zoneID uint8, logger *slog.Logger) *ZoneHandler {
	return &ZoneHandler{
		sender: sender,
		bus:    bus,
		zoneID: zoneID,
		logger: logger.With("component", "iaszone"),
	}
}

// Enroll sends a Zone Enroll Response (success, fixed zone id). The keypad
// is usually asleep when the gateway starts, so a send timeout here is
// expected and swallowed.
func (z *ZoneHandler) Enroll(ctx context.Context) {
	frame := zcl.Frame{
		Control: zcl.FrameControl{
			ClusterSpecific:        true,
			DisableDefaultResponse: true,
		},
		Seq:     z.nextSeq(),
		Command: cmdZoneEnrollResp,
		Payload: []byte{0x00, z.zoneID}, // enroll code success + zone id
	}
	if err := z.sender.SendFrame(ctx, ZoneClusterID, frame.Bytes()); err != nil {
		z.logger.Debug("zone enroll response not delivered (keypad asleep?)", "err", err)
		return
	}
	z.logger.Info("zone enroll response sent", "zone", z.zoneID)
}

// HandleZoneFrame processes an inbound IAS Zone frame: enrollment
// requests, status change notifications, and zoneStatus attribute reports.
func (z *ZoneHandler) HandleZoneFrame(ctx context.Context, raw []byte) {
	frame, err := zcl.ParseFrame(raw)
	if err != nil {
		z.logger.Debug("zone frame dropped", "err", err)
		return
	}

	if frame.Control.ClusterSpecific {
		switch frame.Command {
		case cmdZoneEnrollRequest:
			z.Enroll(ctx)
		case cmdZoneStatusChange:
			if len(frame.Payload) < 2 {
				z.logger.Debug("zone status notification too short")
				return
			}
			z.emitTamper(binary.LittleEndian.Uint16(frame.Payload[:2]))
		}
		return
	}

	if frame.Command == zcl.FoundationReportAttributes {
		for _, rep := range zcl.ParseReportAttributes(frame.Payload) {
			if rep.AttrID != attrZoneStatus {
				continue
			}
			if status, ok := rep.Value.(uint16); ok {
				z.emitTamper(status)
			}
		}
	}
}

// HandlePowerFrame processes battery attribute reports from the power
// configuration cluster. The raw value is in half-percent units.
func (z *ZoneHandler) HandlePowerFrame(_ context.Context, raw []byte) {
	frame, err := zcl.ParseFrame(raw)
	if err != nil || frame.Control.ClusterSpecific || frame.Command != zcl.FoundationReportAttributes {
		return
	}
	for _, rep := range zcl.ParseReportAttributes(frame.Payload) {
		if rep.AttrID != attrBatteryPercent {
			continue
		}
		rawPct, ok := rep.Value.(uint8)
		if !ok || rawPct == 0xFF { // 0xFF means "invalid or unknown"
			continue
		}
		pct := (int(rawPct) + 1) / 2
		z.logger.Info("battery report", "percent", pct)
		z.bus.Emit(events.Event{Type: events.EventBattery, Data: map[string]any{
			"percent": pct,
			"low":     pct < lowBatteryThreshold,
		}})
	}
}

func (z *ZoneHandler) emitTamper(status uint16) {
	tamper := status&zoneStatusTamperBit != 0
	z.logger.Info("zone status", "status", status, "tamper", tamper)
	z.bus.Emit(events.Event{Type: events.EventTamper, Data: map[string]any{
		"tamper": tamper,
	}})
}

func (z *ZoneHandler) nextSeq() uint8 {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.seq++
	return z.seq
}
