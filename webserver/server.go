package webserver

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/walletchat/walletchat/chat"
	"github.com/walletchat/walletchat/store"
)

// Server serves the chat assistant HTTP API.
type Server struct {
	store  *store.Store
	chat   *chat.Service
	logger *slog.Logger
}

// New instantiates a server around its injected dependencies. Both
// handles are constructed once per process and reused across requests.
func New(s *store.Store, chatService *chat.Service, logger *slog.Logger) *Server {
	return &Server{
		store:  s,
		chat:   chatService,
		logger: logger,
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/ask", s.handleAsk)
	mux.HandleFunc("GET /api/chats", s.handleListChats)
	mux.HandleFunc("GET /api/chats/{id}/messages", s.handleChatMessages)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// Start blocks serving HTTP on the given port.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.logger.Info("server starting", "addr", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// errorResponse is the stable client-facing error envelope. Full error
// detail stays in the server logs.
type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response", "error", err)
	}
}

// writeStoreError maps persistence failures to the client contract: a
// foreign-key violation means the caller referenced a user or chat that
// does not exist, which this API treats as an authentication failure.
func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	s.logger.Error("store operation failed", "error", err)
	if store.IsForeignKeyViolation(err) {
		s.writeJSON(w, http.StatusUnauthorized, errorResponse{
			Error:   "User authentication required",
			Details: "Please ensure you are logged in.",
		})
		return
	}
	s.writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error:   "Unable to process request",
		Details: err.Error(),
	})
}
