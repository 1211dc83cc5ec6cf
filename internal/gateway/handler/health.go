package handler

import (
	"net/http"

	"verbtutor/internal/tutor"
)

type HealthHandler struct {
	reg      *tutor.Registry
	provider string
}

func NewHealthHandler(reg *tutor.Registry, provider string) *HealthHandler {
	return &HealthHandler{reg: reg, provider: provider}
}

func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"provider": h.provider,
		"sessions": h.reg.Len(),
	})
}
