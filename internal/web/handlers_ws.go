package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"keypad-gateway/internal/events"
)

// WSHub fans keypad events out to connected WebSocket clients. Every
// client sees the same stream the MQTT bridge and automation scripts
// see, plus a panel-state snapshot right after connecting.
type WSHub struct {
	logger   *slog.Logger
	snapshot func() events.Event

	mu      sync.RWMutex
	clients map[*wsClient]struct{}

	broadcast chan []byte
	done      chan struct{}
	stopOnce  sync.Once
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewWSHub creates a hub. snapshot supplies the event queued for each
// client on connect, so late joiners learn the current panel state
// without waiting for the next keypad press. May be nil.
func NewWSHub(logger *slog.Logger, snapshot func() events.Event) *WSHub {
	return &WSHub{
		logger:    logger,
		snapshot:  snapshot,
		clients:   make(map[*wsClient]struct{}),
		broadcast: make(chan []byte, 256),
		done:      make(chan struct{}),
	}
}

// Run delivers queued broadcasts until Stop is called, then closes all
// remaining clients.
func (h *WSHub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case data := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					// Send buffer full: the client is not keeping up.
					delete(h.clients, client)
					close(client.send)
					h.logger.Warn("ws client evicted (too slow)")
				}
			}
			h.mu.Unlock()
		}
	}
}

// Stop signals the hub to shut down. Safe to call multiple times.
func (h *WSHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
}

// Broadcast queues an event for all connected clients. Never blocks;
// when the queue is full the event is dropped.
func (h *WSHub) Broadcast(event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("ws marshal", "err", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("ws broadcast queue full, dropping event")
	}
}

// attach adds a client and queues its snapshot. Returns false once the
// hub has shut down.
func (h *WSHub) attach(client *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	select {
	case <-h.done:
		return false
	default:
	}
	h.clients[client] = struct{}{}
	if h.snapshot != nil {
		if data, err := json.Marshal(h.snapshot()); err == nil {
			select {
			case client.send <- data:
			default:
			}
		}
	}
	h.logger.Debug("ws client connected", "total", len(h.clients))
	return true
}

// detach removes a client if it is still attached. A client the hub
// already evicted or closed is left alone.
func (h *WSHub) detach(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	h.logger.Debug("ws client disconnected", "total", len(h.clients))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	opts := &websocket.AcceptOptions{}
	if len(s.allowedOrigins) > 0 {
		opts.OriginPatterns = s.allowedOrigins
	}
	// With no configured origins nhooyr defaults to a same-origin check.

	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		s.logger.Error("ws accept", "err", err)
		return
	}

	conn.SetReadLimit(4096)

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, 64),
	}
	if !s.wsHub.attach(client) {
		conn.Close(websocket.StatusGoingAway, "server shutdown")
		return
	}

	go s.wsWritePump(client)
	s.wsReadPump(client)
}

func (s *Server) wsWritePump(client *wsClient) {
	for msg := range client.send {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := client.conn.Write(ctx, websocket.MessageText, msg)
		cancel()
		if err != nil {
			return
		}
	}
	// Channel closed by hub; close connection.
	client.conn.Close(websocket.StatusNormalClosure, "")
}

func (s *Server) wsReadPump(client *wsClient) {
	defer s.wsHub.detach(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case <-s.wsHub.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		// Clients only listen; inbound messages are drained and ignored.
		if _, _, err := client.conn.Read(ctx); err != nil {
			return
		}
	}
}
