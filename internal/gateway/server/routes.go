package server

import (
	"net/http"

	"verbtutor/internal/gateway/handler"
	"verbtutor/internal/gateway/middleware"
)

func NewMux(
	chatHandler *handler.ChatHandler,
	historyHandler *handler.HistoryHandler,
	healthHandler *handler.HealthHandler,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws/chat", chatHandler.HandleChatWS)
	mux.HandleFunc("GET /sessions/{id}/history", historyHandler.HandleExport)
	mux.HandleFunc("PUT /sessions/{id}/history", historyHandler.HandleRestore)
	mux.HandleFunc("DELETE /sessions/{id}", historyHandler.HandleClose)
	mux.HandleFunc("/healthz", healthHandler.HandleHealth)

	return middleware.CORS(mux)
}
