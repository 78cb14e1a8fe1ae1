package server

import (
	"net/http"

	"github.com/ternarybob/dupremover/internal/handlers"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Run lifecycle
	mux.HandleFunc("/api/run", s.app.RunHandler.StartRunHandler)             // POST - start a run for a saved session
	mux.HandleFunc("/api/login", s.app.LoginHandler.StartLoginHandler)       // GET - open a manual-login browser
	mux.HandleFunc("/api/save_cookies", s.app.RunHandler.SaveCookiesHandler) // POST - save login cookies, then run
	mux.HandleFunc("/api/task_status/", s.app.RunHandler.TaskStatusHandler)  // GET /{id}
	mux.HandleFunc("/api/runs", s.app.RunHandler.ListRunsHandler)            // GET ?status=

	// Audit logs and sessions
	mux.HandleFunc("/api/logs", s.app.LogHandler.ListLogsHandler)
	mux.HandleFunc("/api/logs/", s.app.LogHandler.DownloadLogHandler) // GET /{filename}
	mux.HandleFunc("/api/cookies", s.app.SessionHandler.ListSessionsHandler)

	// Run status stream
	mux.HandleFunc("/ws/task_status/", s.app.WSHandler.HandleRunStatus)

	// System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/api/shutdown", s.ShutdownHandler) // Graceful shutdown endpoint (dev mode)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// ShutdownHandler handles POST /api/shutdown. Only available outside production.
func (s *Server) ShutdownHandler(w http.ResponseWriter, r *http.Request) {
	if !handlers.RequireMethod(w, r, "POST") {
		return
	}
	if s.app.Config.IsProduction() || s.shutdownChan == nil {
		handlers.WriteError(w, http.StatusNotFound, "Not found")
		return
	}

	s.app.Logger.Info().Str("remote", r.RemoteAddr).Msg("Shutdown requested")
	handlers.WriteJSON(w, http.StatusOK, map[string]string{"status": "shutting_down"})

	s.shutdownOnce.Do(func() { close(s.shutdownChan) })
}
