package interfaces

import (
	"context"
	"errors"
	"io"

	"github.com/ternarybob/dupremover/internal/models"
)

var (
	// ErrRunNotFound is returned when no run exists for an id
	ErrRunNotFound = errors.New("run not found")
	// ErrSessionNotFound is returned when no credential blob exists for a session name
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidSessionName is returned for names that cannot be stored as a single file
	ErrInvalidSessionName = errors.New("invalid session name")
	// ErrLogNotFound is returned when an audit file does not exist or is not downloadable
	ErrLogNotFound = errors.New("log file not found")
)

// RunStorage is the process-lifetime registry of runs. Implementations must be
// safe for one writer per run and any number of concurrent readers.
type RunStorage interface {
	// Create inserts a new run; returns an error if the id already exists
	Create(ctx context.Context, run *models.Run) error
	// Update applies a partial update atomically and returns the resulting snapshot
	Update(ctx context.Context, id string, update models.RunUpdate) (*models.Run, error)
	// Get returns a snapshot copy or ErrRunNotFound
	Get(ctx context.Context, id string) (*models.Run, error)
	// Exists reports whether a run id is taken
	Exists(ctx context.Context, id string) (bool, error)
	// List returns all runs newest first, optionally filtered by status
	List(ctx context.Context, status models.RunStatus) ([]*models.Run, error)
}

// SessionStorage persists portal cookie sets keyed by session name
type SessionStorage interface {
	Load(ctx context.Context, name string) (*models.Session, error)
	Save(ctx context.Context, session *models.Session) error
	Exists(name string) bool
	List(ctx context.Context) ([]models.SessionInfo, error)
}

// AuditStorage writes and serves the success/failure outcome CSVs
type AuditStorage interface {
	WriteRun(ctx context.Context, startRow, endRow int, removed, failed []models.OutcomeLogEntry) (models.AuditFiles, error)
	List(ctx context.Context) ([]models.LogFileInfo, error)
	Open(name string) (io.ReadSeekCloser, models.LogFileInfo, error)
}
