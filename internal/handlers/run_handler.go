package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/dupremover/internal/interfaces"
	"github.com/ternarybob/dupremover/internal/models"
	"github.com/ternarybob/dupremover/internal/services/portal"
	"github.com/ternarybob/dupremover/internal/services/runs"
)

// RunHandler handles run start and status requests
type RunHandler struct {
	runService RunService
	logger     arbor.ILogger
}

// NewRunHandler creates a new run handler
func NewRunHandler(runService RunService, logger arbor.ILogger) *RunHandler {
	return &RunHandler{
		runService: runService,
		logger:     logger,
	}
}

// LoginURL builds the manual-login link returned with login_required
func LoginURL(req models.RunRequest) string {
	q := url.Values{}
	q.Set("cookie_name", req.SessionName)
	q.Set("start_row", fmt.Sprint(req.StartRow))
	q.Set("end_row", fmt.Sprint(req.EndRow))
	return "/api/login?" + q.Encode()
}

// StartRunHandler handles POST /api/run
func (h *RunHandler) StartRunHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req models.RunRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	handle, err := h.runService.StartRun(r.Context(), req)
	switch {
	case err == nil:
		WriteStarted(w, handle.RunID, "Automation started successfully")
	case errors.Is(err, runs.ErrLoginRequired):
		WriteJSON(w, http.StatusOK, map[string]string{
			"status":    "login_required",
			"message":   "Session not found. Manual authentication required.",
			"login_url": LoginURL(req),
		})
	case errors.Is(err, runs.ErrInvalidRequest):
		WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error().Err(err).Str("session", req.SessionName).Msg("Failed to start run")
		WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

// SaveCookiesHandler handles POST /api/save_cookies
func (h *RunHandler) SaveCookiesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req models.SaveSessionRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	handle, err := h.runService.SaveSessionAndRun(r.Context(), req)
	switch {
	case err == nil:
		WriteStarted(w, handle.RunID, "Session saved and automation started")
	case errors.Is(err, portal.ErrNoLoginSession):
		WriteJSON(w, http.StatusConflict, map[string]string{
			"status":  "no_login_session",
			"message": "No manual login session found. Open the login browser first.",
		})
	case errors.Is(err, runs.ErrInvalidRequest):
		WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error().Err(err).Str("session", req.SessionName).Msg("Failed to save session")
		WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

// TaskStatusHandler handles GET /api/task_status/{id}
func (h *RunHandler) TaskStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	runID := PathParam(r.URL.Path, "/api/task_status/")
	if runID == "" {
		WriteJSON(w, http.StatusNotFound, map[string]string{"status": "not_found"})
		return
	}

	run, err := h.runService.Get(r.Context(), runID)
	if err != nil {
		if errors.Is(err, interfaces.ErrRunNotFound) {
			WriteJSON(w, http.StatusNotFound, map[string]string{"status": "not_found"})
			return
		}
		h.logger.Error().Err(err).Str("run_id", runID).Msg("Failed to get run")
		WriteError(w, http.StatusInternalServerError, "Failed to get run status")
		return
	}

	WriteJSON(w, http.StatusOK, run)
}

// ListRunsHandler handles GET /api/runs, optionally filtered by ?status=
func (h *RunHandler) ListRunsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	status := models.RunStatus(r.URL.Query().Get("status"))
	list, err := h.runService.List(r.Context(), status)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list runs")
		WriteError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	WriteJSON(w, http.StatusOK, list)
}
