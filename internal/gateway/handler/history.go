package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"verbtutor/internal/presenter"
	"verbtutor/internal/tutor"
)

const maxHistoryBytes = 1 << 20

// HistoryHandler exports and restores session transcripts over plain HTTP.
type HistoryHandler struct {
	reg *tutor.Registry
}

func NewHistoryHandler(reg *tutor.Registry) *HistoryHandler {
	return &HistoryHandler{reg: reg}
}

// HandleExport writes the transcript as records, or as pairs with ?shape=pairs.
func (h *HistoryHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var body any
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("shape"))) {
	case "", "records":
		body = presenter.Records(s.Turns())
	case "pairs":
		body = presenter.Pairs(s.Turns())
	default:
		http.Error(w, "shape must be records or pairs", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

// HandleRestore replaces the transcript with a history in either shape.
func (h *HistoryHandler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxHistoryBytes))
	if err != nil {
		http.Error(w, "read body failed", http.StatusBadRequest)
		return
	}
	v, err := presenter.New(s, nil).Restore(h.reg.SystemPrompt(), raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleClose ends a session and drops its transcript.
func (h *HistoryHandler) HandleClose(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.reg.Close(s.ID())
	w.WriteHeader(http.StatusNoContent)
}

func (h *HistoryHandler) session(w http.ResponseWriter, r *http.Request) (*tutor.Session, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		http.Error(w, "session id is required", http.StatusBadRequest)
		return nil, false
	}
	s, err := h.reg.Get(id)
	if errors.Is(err, tutor.ErrSessionNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return s, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
