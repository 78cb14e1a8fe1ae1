package handlers

import (
	"net/http"
	"net/url"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/dupremover/internal/storage/files"
)

// LoginHandler opens manual-login browsers
type LoginHandler struct {
	login  LoginStarter
	logger arbor.ILogger
}

// NewLoginHandler creates a new login handler
func NewLoginHandler(login LoginStarter, logger arbor.ILogger) *LoginHandler {
	return &LoginHandler{
		login:  login,
		logger: logger,
	}
}

// StartLoginHandler handles GET /api/login?cookie_name=&start_row=&end_row=
func (h *LoginHandler) StartLoginHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	query := r.URL.Query()
	name := query.Get("cookie_name")
	if err := files.ValidateSessionName(name); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	handle, err := h.login.StartLogin(r.Context(), name)
	if err != nil {
		h.logger.Error().Err(err).Str("session", name).Msg("Failed to open login browser")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	cont := url.Values{}
	cont.Set("cookie_name", name)
	cont.Set("start_row", query.Get("start_row"))
	cont.Set("end_row", query.Get("end_row"))
	cont.Set("handle_id", handle.ID)

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":       "browser_opened",
		"message":      "Browser opened for manual authentication. Please login and then continue.",
		"handle_id":    handle.ID,
		"cookie_name":  name,
		"continue_url": "/api/save_cookies?" + cont.Encode(),
	})
}
