package badger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/dupremover/internal/interfaces"
	"github.com/ternarybob/dupremover/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// RunStorage implements interfaces.RunStorage on badgerhold.
// Updates are read-modify-write, so a mutex makes each one atomic.
type RunStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	mu     sync.RWMutex
}

// NewRunStorage creates a new RunStorage instance
func NewRunStorage(db *BadgerDB, logger arbor.ILogger) *RunStorage {
	return &RunStorage{
		db:     db,
		logger: logger,
	}
}

func (s *RunStorage) Create(ctx context.Context, run *models.Run) error {
	if run.ID == "" {
		return fmt.Errorf("run ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Store().Insert(run.ID, run.Clone()); err != nil {
		if err == badgerhold.ErrKeyExists {
			return fmt.Errorf("run already exists: %s", run.ID)
		}
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// Update applies update to the stored run. Progress is clamped to [0,100]
// and never moves backwards; messages are appended to the event log.
func (s *RunStorage) Update(ctx context.Context, id string, update models.RunUpdate) (*models.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, err := s.get(id)
	if err != nil {
		return nil, err
	}

	if update.Status != nil {
		run.Status = *update.Status
	}
	if update.Progress != nil {
		p := clampProgress(*update.Progress)
		if p > run.Progress {
			run.Progress = p
		}
	}
	if update.CurrentMember != nil {
		run.CurrentMember = *update.CurrentMember
	}
	if update.CurrentFamily != nil {
		run.CurrentFamily = *update.CurrentFamily
	}
	if update.Message != "" {
		run.ConsoleLogs = append(run.ConsoleLogs, update.Message)
	}
	if update.Result != nil {
		res := *update.Result
		run.Result = &res
	}
	if update.Error != nil {
		run.Error = *update.Error
	}
	if update.EndTime != nil {
		t := *update.EndTime
		run.EndTime = &t
	}

	if err := s.db.Store().Update(id, run); err != nil {
		return nil, fmt.Errorf("failed to update run: %w", err)
	}
	return run.Clone(), nil
}

func (s *RunStorage) Get(ctx context.Context, id string) (*models.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(id)
}

func (s *RunStorage) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.Get(ctx, id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, interfaces.ErrRunNotFound) {
		return false, nil
	}
	return false, err
}

// List returns runs newest first; an empty status returns every run
func (s *RunStorage) List(ctx context.Context, status models.RunStatus) ([]*models.Run, error) {
	query := badgerhold.Where("ID").Ne("")
	if status != "" {
		query = query.And("Status").Eq(status)
	}
	query = query.SortBy("StartTime").Reverse()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var runs []models.Run
	if err := s.db.Store().Find(&runs, query); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	result := make([]*models.Run, len(runs))
	for i := range runs {
		result[i] = &runs[i]
	}
	return result, nil
}

func (s *RunStorage) get(id string) (*models.Run, error) {
	var run models.Run
	if err := s.db.Store().Get(id, &run); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("%w: %s", interfaces.ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

func clampProgress(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

var _ interfaces.RunStorage = (*RunStorage)(nil)
