package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/dupremover/internal/app"
	"github.com/ternarybob/dupremover/internal/common"
	"github.com/ternarybob/dupremover/internal/models"
)

func newTestServer(t *testing.T, csv string) (*Server, *app.App) {
	t.Helper()
	dir := t.TempDir()

	cfg := common.NewDefaultConfig()
	cfg.Storage.SessionsDir = filepath.Join(dir, "cookies")
	cfg.Storage.LogsDir = filepath.Join(dir, "logs")
	cfg.Data.SourceFile = filepath.Join(dir, "members.csv")
	require.NoError(t, os.WriteFile(cfg.Data.SourceFile, []byte(csv), 0644))

	application, err := app.New(cfg, arbor.NewLogger())
	require.NoError(t, err)
	t.Cleanup(func() { application.Close() })

	return New(application), application
}

func do(t *testing.T, srv *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") && strings.HasPrefix(rec.Body.String(), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestRoutes_System(t *testing.T) {
	srv, _ := newTestServer(t, "memberid,familyid\n")

	rec, body := do(t, srv, "GET", "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Greater(t, body["goroutines"], 0.0)
	assert.Contains(t, body, "safego_spawned")

	rec, body = do(t, srv, "GET", "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "/api/nope", body["path"])

	rec, _ = do(t, srv, "OPTIONS", "/api/run", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec, _ = do(t, srv, "GET", "/api/run", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	// the login entry point is a browser redirect target, so only GET is served
	rec, _ = do(t, srv, "POST", "/api/login?cookie_name=op", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRoutes_RunWithoutSessionRequiresLogin(t *testing.T) {
	srv, _ := newTestServer(t, "memberid,familyid\n")

	rec, body := do(t, srv, "POST", "/api/run", `{"cookie_name":"op","start_row":0,"end_row":10}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "login_required", body["status"])
	assert.Equal(t, "/api/login?cookie_name=op&end_row=10&start_row=0", body["login_url"])
}

func TestRoutes_RunWithNoDuplicatesCompletes(t *testing.T) {
	srv, application := newTestServer(t, "memberid,familyid\nM1,F1\nM2,F2\n")
	require.NoError(t, application.SessionStorage.Save(context.Background(), &models.Session{
		Name:    "op",
		Cookies: []models.SessionCookie{{Name: "ASP.NET_SessionId", Value: "x", Domain: "spr.samagra.gov.in", Path: "/"}},
	}))

	rec, body := do(t, srv, "POST", "/api/run", `{"cookie_name":"op","start_row":0,"end_row":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "started", body["status"])
	runID := body["task_id"].(string)

	run, err := application.RunService.Wait(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, run.Status)

	rec, body = do(t, srv, "GET", "/api/task_status/"+runID, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "completed", body["status"])
	assert.EqualValues(t, 100, body["progress"])

	rec, _ = do(t, srv, "GET", "/api/logs", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "success_removed_latest.csv")

	rec, _ = do(t, srv, "GET", "/api/cookies", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"op"`)

	rec, body = do(t, srv, "GET", "/api/task_status/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", body["status"])
}

func TestShutdownHandler(t *testing.T) {
	srv, _ := newTestServer(t, "memberid,familyid\n")
	ch := make(chan struct{})
	srv.SetShutdownChannel(ch)

	rec, body := do(t, srv, "POST", "/api/shutdown", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "shutting_down", body["status"])

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("shutdown channel not closed")
	}

	// a second request must not panic on the closed channel
	rec, _ = do(t, srv, "POST", "/api/shutdown", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
