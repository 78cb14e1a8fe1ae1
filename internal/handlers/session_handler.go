package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
)

// SessionHandler lists saved portal sessions
type SessionHandler struct {
	sessions SessionLister
	logger   arbor.ILogger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions SessionLister, logger arbor.ILogger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// ListSessionsHandler handles GET /api/cookies
func (h *SessionHandler) ListSessionsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	sessions, err := h.sessions.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list sessions")
		WriteError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	WriteJSON(w, http.StatusOK, sessions)
}
