package ace

import (
	"context"
	"errors"
	"testing"

	"keypad-gateway/internal/events"
	"keypad-gateway/internal/zcl"
)

func newZoneRig(t *testing.T) (*ZoneHandler, *fakeSender, *[]events.Event) {
	t.Helper()
	logger := testLogger()
	sender := &fakeSender{}
	bus := events.NewBus(logger)
	var got []events.Event
	bus.OnAll(func(e events.Event) { got = append(got, e) })
	return NewZoneHandler(sender, bus, 23, logger), sender, &got
}

func TestEnrollSendsZoneEnrollResponse(t *testing.T) {
	z, sender, _ := newZoneRig(t)
	z.Enroll(context.Background())

	if len(sender.frames) != 1 {
		t.Fatalf("sent %d frames, want 1", len(sender.frames))
	}
	f := sender.frames[0]
	if f.clusterID != ZoneClusterID {
		t.Errorf("cluster = 0x%04X, want 0x0500", f.clusterID)
	}
	if f.data[0]&0x01 == 0 || f.data[0]&0x10 == 0 {
		t.Errorf("frame control = 0x%02X, want cluster-specific with default response disabled", f.data[0])
	}
	if f.data[2] != cmdZoneEnrollResp {
		t.Errorf("command = 0x%02X, want enroll response", f.data[2])
	}
	if f.data[3] != 0x00 || f.data[4] != 23 {
		t.Errorf("payload = % X, want success + zone 23", f.data[3:])
	}
}

func TestEnrollSwallowsSendTimeout(t *testing.T) {
	z, sender, _ := newZoneRig(t)
	sender.err = errors.New("request timed out")
	z.Enroll(context.Background()) // must not panic or propagate
}

func TestZoneStatusChangeEmitsTamper(t *testing.T) {
	z, _, got := newZoneRig(t)
	// Status change notification: zoneStatus 0x0004 (tamper bit set)
	z.HandleZoneFrame(context.Background(), []byte{0x01, 0x05, cmdZoneStatusChange, 0x04, 0x00, 0x00, 0x17, 0x00, 0x00})

	if len(*got) != 1 || (*got)[0].Type != events.EventTamper {
		t.Fatalf("events = %+v, want one tamper event", *got)
	}
	if (*got)[0].Data["tamper"] != true {
		t.Error("tamper bit not detected")
	}
}

func TestZoneStatusReportEmitsTamperCleared(t *testing.T) {
	z, _, got := newZoneRig(t)
	payload := []byte{0x02, 0x00, zcl.TypeBitmap16, 0x00, 0x00}
	frame := append([]byte{0x00, 0x06, zcl.FoundationReportAttributes}, payload...)
	z.HandleZoneFrame(context.Background(), frame)

	if len(*got) != 1 || (*got)[0].Data["tamper"] != false {
		t.Fatalf("events = %+v, want tamper=false", *got)
	}
}

func TestZoneEnrollRequestTriggersResponse(t *testing.T) {
	z, sender, _ := newZoneRig(t)
	z.HandleZoneFrame(context.Background(), []byte{0x01, 0x09, cmdZoneEnrollRequest, 0x0D, 0x00, 0x00, 0x00})

	if len(sender.frames) != 1 {
		t.Fatalf("sent %d frames, want enroll response", len(sender.frames))
	}
}

func TestBatteryReport(t *testing.T) {
	z, _, got := newZoneRig(t)
	// batteryPercentageRemaining = 0xC8 (200 half-percent = 100%)
	payload := []byte{0x21, 0x00, zcl.TypeUint8, 0xC8}
	frame := append([]byte{0x00, 0x07, zcl.FoundationReportAttributes}, payload...)
	z.HandlePowerFrame(context.Background(), frame)

	if len(*got) != 1 || (*got)[0].Type != events.EventBattery {
		t.Fatalf("events = %+v, want one battery event", *got)
	}
	data := (*got)[0].Data
	if data["percent"] != 100 || data["low"] != false {
		t.Errorf("battery data = %+v, want 100%%/not low", data)
	}
}

func TestBatteryReportInvalidMarkerIgnored(t *testing.T) {
	z, _, got := newZoneRig(t)
	// 0xFF is the "invalid or unknown" marker, not a reading. Naive
	// half-percent math would wrap it to a 0%/low event.
	payload := []byte{0x21, 0x00, zcl.TypeUint8, 0xFF}
	frame := append([]byte{0x00, 0x09, zcl.FoundationReportAttributes}, payload...)
	z.HandlePowerFrame(context.Background(), frame)

	if len(*got) != 0 {
		t.Errorf("events = %+v, want none for invalid battery marker", *got)
	}
}

func TestBatteryReportLow(t *testing.T) {
	z, _, got := newZoneRig(t)
	payload := []byte{0x21, 0x00, zcl.TypeUint8, 0x0A} // 10 half-percent = 5%
	frame := append([]byte{0x00, 0x08, zcl.FoundationReportAttributes}, payload...)
	z.HandlePowerFrame(context.Background(), frame)

	if len(*got) != 1 {
		t.Fatalf("events = %+v, want one", *got)
	}
	data := (*got)[0].Data
	if data["percent"] != 5 || data["low"] != true {
		t.Errorf("battery data = %+v, want 5%%/low", data)
	}
}
