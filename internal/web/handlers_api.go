package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"keypad-gateway/internal/access"
	"keypad-gateway/internal/ace"
	"keypad-gateway/internal/events"
	"keypad-gateway/internal/store"
)

// codeView hides the PIN itself from list responses.
type codeView struct {
	Index       int    `json:"index"`
	Name        string `json:"name"`
	From        string `json:"from"`
	Till        string `json:"till"`
	ReferenceID string `json:"reference_id,omitempty"`
}

func (s *Server) handleAPIListCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := s.store.ListCodes()
	if err != nil {
		s.logger.Error("list codes", "err", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	views := make([]codeView, 0, len(codes))
	for i, c := range codes {
		views = append(views, codeView{
			Index:       i,
			Name:        c.Name,
			From:        c.From,
			Till:        c.Till,
			ReferenceID: c.ReferenceID,
		})
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleAPICreateCode(w http.ResponseWriter, r *http.Request) {
	var req store.AccessCode
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	existing, err := s.store.ListCodes()
	if err != nil {
		s.logger.Error("list codes for create", "err", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	code, err := access.NewCode(existing, req)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := s.store.AppendCode(code); err != nil {
		s.logger.Error("append code", "err", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{"status": "ok", "index": len(existing)})
}

func (s *Server) handleAPIDeleteCode(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid index"})
		return
	}

	if err := s.store.RemoveCode(index); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "code not found"})
			return
		}
		s.logger.Error("remove code", "err", err, "index", index)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAPIGetPanel(w http.ResponseWriter, r *http.Request) {
	action := s.panel.Action()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"action":       string(action),
		"panel_status": uint8(action.PanelStatus()),
	})
}

type setPanelRequest struct {
	Action string `json:"action"`
}

func (s *Server) handleAPISetPanel(w http.ResponseWriter, r *http.Request) {
	var req setPanelRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	action, ok := ace.ParseAction(req.Action)
	if !ok {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown action"})
		return
	}

	s.panel.SetAction(action)
	s.bus.Emit(events.Event{
		Type: events.EventPanelStatus,
		Data: map[string]any{"action": string(action), "source": "api"},
	})
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "action": string(action)})
}

func (s *Server) handleAPIStatus(w http.ResponseWriter, r *http.Request) {
	codes, err := s.store.ListCodes()
	if err != nil {
		s.logger.Error("list codes for status", "err", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"version":    s.version,
		"action":     string(s.panel.Action()),
		"code_count": len(codes),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("writeJSON encode failed", "err", err)
	}
}
