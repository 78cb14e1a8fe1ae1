package handlers

import (
	"context"
	"io"

	"github.com/ternarybob/dupremover/internal/models"
	"github.com/ternarybob/dupremover/internal/services/runs"
)

// RunService is the part of the run service the HTTP layer uses
type RunService interface {
	StartRun(ctx context.Context, req models.RunRequest) (*runs.Handle, error)
	SaveSessionAndRun(ctx context.Context, req models.SaveSessionRequest) (*runs.Handle, error)
	Get(ctx context.Context, runID string) (*models.Run, error)
	List(ctx context.Context, status models.RunStatus) ([]*models.Run, error)
}

// LoginStarter opens manual-login browsers
type LoginStarter interface {
	StartLogin(ctx context.Context, sessionName string) (models.LoginHandle, error)
}

// SessionLister lists saved sessions
type SessionLister interface {
	List(ctx context.Context) ([]models.SessionInfo, error)
}

// AuditReader lists and serves audit CSVs
type AuditReader interface {
	List(ctx context.Context) ([]models.LogFileInfo, error)
	Open(name string) (io.ReadSeekCloser, models.LogFileInfo, error)
}
