package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/dupremover/internal/models"
	"github.com/ternarybob/dupremover/internal/storage/files"
)

func newTestAudit(t *testing.T) *files.AuditStorage {
	t.Helper()
	audit, err := files.NewAuditStorage(filepath.Join(t.TempDir(), "logs"), arbor.NewLogger())
	require.NoError(t, err)

	_, err = audit.WriteRun(context.Background(), 0, 10, []models.OutcomeLogEntry{
		{FamilyID: "F1", MemberID: "M1", Status: models.OutcomeRemoved, Timestamp: time.Now(), OriginalMember: "M2"},
	}, nil)
	require.NoError(t, err)
	return audit
}

func TestListLogsHandler(t *testing.T) {
	handler := NewLogHandler(newTestAudit(t), arbor.NewLogger())

	rec := httptest.NewRecorder()
	handler.ListLogsHandler(rec, httptest.NewRequest("GET", "/api/logs", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var logs []models.LogFileInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &logs))
	assert.Len(t, logs, 3)
}

func TestDownloadLogHandler(t *testing.T) {
	handler := NewLogHandler(newTestAudit(t), arbor.NewLogger())

	rec := httptest.NewRecorder()
	handler.DownloadLogHandler(rec, httptest.NewRequest("GET", "/api/logs/success_removed_2_10.csv", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `attachment; filename="success_removed_2_10.csv"`)
	assert.Contains(t, rec.Body.String(), "familyid,memberid,status,timestamp,original_member,error")
	assert.Contains(t, rec.Body.String(), "F1,M1,Removed")
}

func TestDownloadLogHandler_NotFound(t *testing.T) {
	handler := NewLogHandler(newTestAudit(t), arbor.NewLogger())

	for _, path := range []string{"/api/logs/missing.csv", "/api/logs/..%2F..%2Fetc%2Fpasswd", "/api/logs/notes.txt"} {
		rec := httptest.NewRecorder()
		handler.DownloadLogHandler(rec, httptest.NewRequest("GET", path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestListSessionsHandler(t *testing.T) {
	sessions, err := files.NewSessionStorage(filepath.Join(t.TempDir(), "cookies"), arbor.NewLogger())
	require.NoError(t, err)
	require.NoError(t, sessions.Save(context.Background(), &models.Session{Name: "op"}))

	handler := NewSessionHandler(sessions, arbor.NewLogger())
	rec := httptest.NewRecorder()
	handler.ListSessionsHandler(rec, httptest.NewRequest("GET", "/api/cookies", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var list []models.SessionInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "op", list[0].Name)
	assert.Equal(t, "op.json", list[0].Filename)
}
