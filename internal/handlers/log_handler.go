package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/dupremover/internal/interfaces"
)

// LogHandler lists and serves the audit CSVs
type LogHandler struct {
	audit  AuditReader
	logger arbor.ILogger
}

// NewLogHandler creates a new audit log handler
func NewLogHandler(audit AuditReader, logger arbor.ILogger) *LogHandler {
	return &LogHandler{
		audit:  audit,
		logger: logger,
	}
}

// ListLogsHandler handles GET /api/logs
func (h *LogHandler) ListLogsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	logs, err := h.audit.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list audit logs")
		WriteError(w, http.StatusInternalServerError, "Failed to list logs")
		return
	}

	WriteJSON(w, http.StatusOK, logs)
}

// DownloadLogHandler handles GET /api/logs/{filename}
func (h *LogHandler) DownloadLogHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/api/logs/")
	file, info, err := h.audit.Open(name)
	if err != nil {
		if errors.Is(err, interfaces.ErrLogNotFound) {
			WriteError(w, http.StatusNotFound, "File not found")
			return
		}
		h.logger.Error().Err(err).Str("filename", name).Msg("Failed to open audit log")
		WriteError(w, http.StatusInternalServerError, "Failed to open log")
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", info.Filename))
	http.ServeContent(w, r, info.Filename, info.Modified, file)
}
