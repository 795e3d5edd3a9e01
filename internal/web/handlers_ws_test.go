package web

import (
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"keypad-gateway/internal/events"
)

func newTestHub(snapshot func() events.Event) *WSHub {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewWSHub(logger, snapshot)
}

func TestWSHubAttachDetach(t *testing.T) {
	hub := newTestHub(nil)
	go hub.Run()
	defer hub.Stop()

	client := &wsClient{send: make(chan []byte, 16)}
	if !hub.attach(client) {
		t.Fatal("attach failed on running hub")
	}

	hub.mu.RLock()
	count := len(hub.clients)
	hub.mu.RUnlock()
	if count != 1 {
		t.Errorf("after attach: count = %d, want 1", count)
	}

	hub.detach(client)

	hub.mu.RLock()
	count = len(hub.clients)
	hub.mu.RUnlock()
	if count != 0 {
		t.Errorf("after detach: count = %d, want 0", count)
	}

	// detach closed the send channel
	if _, ok := <-client.send; ok {
		t.Error("send channel should be closed after detach")
	}
}

func TestWSHubSnapshotOnConnect(t *testing.T) {
	hub := newTestHub(func() events.Event {
		return events.Event{Type: events.EventPanelStatus, Data: map[string]any{"action": "armed"}}
	})
	go hub.Run()
	defer hub.Stop()

	client := &wsClient{send: make(chan []byte, 16)}
	hub.attach(client)

	select {
	case msg := <-client.send:
		var ev events.Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			t.Fatalf("snapshot unmarshal: %v", err)
		}
		if ev.Type != events.EventPanelStatus || ev.Data["action"] != "armed" {
			t.Errorf("snapshot = %+v, want panel_status/armed", ev)
		}
	default:
		t.Fatal("no snapshot queued on attach")
	}
}

func TestWSHubBroadcastReachesAllClients(t *testing.T) {
	hub := newTestHub(nil)
	go hub.Run()
	defer hub.Stop()

	c1 := &wsClient{send: make(chan []byte, 16)}
	c2 := &wsClient{send: make(chan []byte, 16)}
	hub.attach(c1)
	hub.attach(c2)

	hub.Broadcast(events.Event{Type: events.EventFire})
	time.Sleep(10 * time.Millisecond)

	for i, c := range []*wsClient{c1, c2} {
		select {
		case msg := <-c.send:
			var ev events.Event
			if err := json.Unmarshal(msg, &ev); err != nil {
				t.Fatalf("client %d: unmarshal: %v", i, err)
			}
			if ev.Type != events.EventFire {
				t.Errorf("client %d: type = %q, want %q", i, ev.Type, events.EventFire)
			}
		default:
			t.Errorf("client %d did not receive broadcast", i)
		}
	}
}

func TestWSHubSlowClientEviction(t *testing.T) {
	hub := newTestHub(nil)
	go hub.Run()
	defer hub.Stop()

	slow := &wsClient{send: make(chan []byte, 1)}
	fast := &wsClient{send: make(chan []byte, 64)}
	hub.attach(slow)
	hub.attach(fast)

	// First broadcast fills the slow client's buffer, second evicts it.
	hub.Broadcast(events.Event{Type: events.EventArm})
	hub.Broadcast(events.Event{Type: events.EventArm})
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	_, slowPresent := hub.clients[slow]
	_, fastPresent := hub.clients[fast]
	hub.mu.RUnlock()

	if slowPresent {
		t.Error("slow client should have been evicted")
	}
	if !fastPresent {
		t.Error("fast client should still be present")
	}
}

func TestWSHubBroadcastNeverBlocks(t *testing.T) {
	hub := newTestHub(nil) // Run not started, queue fills up

	for i := 0; i < 256; i++ {
		hub.Broadcast(events.Event{Type: events.EventBattery})
	}

	done := make(chan struct{})
	go func() {
		hub.Broadcast(events.Event{Type: events.EventBattery})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Error("Broadcast blocked on a full queue")
	}
}

func TestWSHubStopClosesClients(t *testing.T) {
	hub := newTestHub(nil)
	go hub.Run()

	client := &wsClient{send: make(chan []byte, 16)}
	hub.attach(client)

	hub.Stop()
	time.Sleep(10 * time.Millisecond)

	if _, ok := <-client.send; ok {
		t.Error("client.send should be closed after hub stop")
	}
}

func TestWSHubStopIdempotent(t *testing.T) {
	hub := newTestHub(nil)
	go hub.Run()

	hub.Stop()

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("second Stop() panicked: %v", r)
		}
	}()
	hub.Stop()
}

func TestWSHubAttachAfterStop(t *testing.T) {
	hub := newTestHub(nil)
	go hub.Run()
	hub.Stop()
	time.Sleep(10 * time.Millisecond)

	client := &wsClient{send: make(chan []byte, 16)}
	if hub.attach(client) {
		t.Error("attach should fail after Stop")
	}
}

func TestWSHubDetachUnknownClient(t *testing.T) {
	hub := newTestHub(nil)
	go hub.Run()
	defer hub.Stop()

	unknown := &wsClient{send: make(chan []byte, 16)}
	hub.detach(unknown) // must not panic or close the channel

	select {
	case unknown.send <- []byte("x"):
	default:
		t.Error("channel should still be open for a client that was never attached")
	}
}

func TestServerBroadcastsBusEvents(t *testing.T) {
	st := &fakeStore{}
	s := newTestServer(t, st)

	client := &wsClient{send: make(chan []byte, 16)}
	s.wsHub.attach(client)
	<-client.send // drain the panel snapshot

	s.bus.Emit(events.Event{Type: events.EventTamper, Data: map[string]any{"tamper": true}})
	time.Sleep(10 * time.Millisecond)

	select {
	case msg := <-client.send:
		var ev events.Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if ev.Type != events.EventTamper {
			t.Errorf("type = %q, want %q", ev.Type, events.EventTamper)
		}
	case <-time.After(1 * time.Second):
		t.Error("bus event never reached the websocket hub")
	}
}
