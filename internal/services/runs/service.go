package runs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/dupremover/internal/common"
	"github.com/ternarybob/dupremover/internal/interfaces"
	"github.com/ternarybob/dupremover/internal/models"
	"github.com/ternarybob/dupremover/internal/services/portal"
	"github.com/ternarybob/dupremover/internal/services/records"
	"github.com/ternarybob/dupremover/internal/storage/files"
)

var (
	// ErrLoginRequired is returned when no credential blob exists for the requested session
	ErrLoginRequired = errors.New("login required")
	// ErrInvalidRequest wraps request validation failures
	ErrInvalidRequest = errors.New("invalid run request")
)

// Progress milestones of the pipeline. Task processing spans
// [progressAutomation, progressSaving).
const (
	progressLoadCSV     = 5
	progressLoaded      = 10
	progressRange       = 15
	progressGrouped     = 20
	progressTasks       = 25
	progressBrowserInit = 30
	progressSession     = 35
	progressSessionOK   = 40
	progressAutomation  = 45
	progressSaving      = 95
	progressSuccessFile = 97
	progressFailFile    = 98
)

// Handle tracks one background run. Done is closed when the worker exits.
type Handle struct {
	RunID string
	Done  <-chan struct{}
}

// Dependencies groups the collaborators of the run service
type Dependencies struct {
	Runs      interfaces.RunStorage
	Sessions  interfaces.SessionStorage
	Audit     interfaces.AuditStorage
	Source    interfaces.RecordSource
	Launcher  interfaces.BrowserLauncher
	Login     interfaces.LoginManager
	Automator *portal.Automator
}

// Service starts runs and executes the removal pipeline in the background.
// Runs sharing a session name execute one at a time.
type Service struct {
	deps    Dependencies
	logger  arbor.ILogger
	baseCtx context.Context
	now     func() time.Time

	mu       sync.Mutex
	locks    map[string]chan struct{}
	handles  map[string]*Handle
	inflight sync.WaitGroup
}

// NewService creates the run service. Workers run under baseCtx, not the
// context of the request that started them.
func NewService(baseCtx context.Context, deps Dependencies, logger arbor.ILogger) *Service {
	return &Service{
		deps:    deps,
		logger:  logger,
		baseCtx: baseCtx,
		now:     time.Now,
		locks:   make(map[string]chan struct{}),
		handles: make(map[string]*Handle),
	}
}

func validateRequest(req models.RunRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err := files.ValidateSessionName(req.SessionName); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// StartRun starts a run for a saved session. ErrLoginRequired means the
// caller has to go through the manual login flow first.
func (s *Service) StartRun(ctx context.Context, req models.RunRequest) (*Handle, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if !s.deps.Sessions.Exists(req.SessionName) {
		return nil, ErrLoginRequired
	}

	run, err := s.createRun(ctx, req, models.RunStatusInitializing,
		"System initialized",
		"Loading session cookies...",
	)
	if err != nil {
		return nil, err
	}

	return s.launch(run.ID, func(ctx context.Context, rep *Reporter) (models.RunResult, error) {
		rep.Status(ctx, models.RunStatusRunning, "Automation sequence started")
		return s.withSessionLock(ctx, rep, req.SessionName, func() (models.RunResult, error) {
			return s.execute(ctx, rep, req)
		})
	}), nil
}

// SaveSessionAndRun claims the open login synchronously so a missing login is
// reported to the caller before any run or blob is created. Cookie capture,
// saving and the run itself happen in the background, under the session lock.
func (s *Service) SaveSessionAndRun(ctx context.Context, req models.SaveSessionRequest) (*Handle, error) {
	if err := validateRequest(req.RunRequest); err != nil {
		return nil, err
	}

	handle, err := s.deps.Login.Claim(req.HandleID, req.SessionName)
	if err != nil {
		return nil, err
	}

	run, err := s.createRun(ctx, req.RunRequest, models.RunStatusSavingCookies, "Saving authentication session...")
	if err != nil {
		s.deps.Login.Close(handle)
		return nil, err
	}

	return s.launch(run.ID, func(ctx context.Context, rep *Reporter) (models.RunResult, error) {
		// The blob is only replaced once no other run on this session is active
		saving := false
		result, err := s.withSessionLock(ctx, rep, req.SessionName, func() (models.RunResult, error) {
			saving = true
			if err := s.saveSession(ctx, rep, handle, req.SessionName); err != nil {
				return models.RunResult{}, err
			}
			rep.Status(ctx, models.RunStatusRunning, "Automation sequence started")
			return s.execute(ctx, rep, req.RunRequest)
		})
		if !saving {
			s.deps.Login.Close(handle)
		}
		return result, err
	}), nil
}

func (s *Service) saveSession(ctx context.Context, rep *Reporter, handle models.LoginHandle, name string) error {
	defer func() {
		s.deps.Login.Close(handle)
		rep.Progress(ctx, progressTasks, "Manual login browser closed")
	}()

	rep.Progress(ctx, progressLoaded, "Saving authentication cookies...")
	cookies, err := s.deps.Login.CaptureCookies(ctx, handle)
	if err != nil {
		return fmt.Errorf("failed to capture cookies: %w", err)
	}
	if len(cookies) == 0 {
		return fmt.Errorf("login browser returned no cookies")
	}

	session := &models.Session{Name: name, SavedAt: s.now(), Cookies: cookies}
	if err := s.deps.Sessions.Save(ctx, session); err != nil {
		return err
	}
	rep.Progress(ctx, progressGrouped, fmt.Sprintf("Session cookies saved as %s (%d cookies)", name, len(cookies)))
	return nil
}

// Get returns a snapshot of a run
func (s *Service) Get(ctx context.Context, runID string) (*models.Run, error) {
	return s.deps.Runs.Get(ctx, runID)
}

// List returns all runs, newest first
func (s *Service) List(ctx context.Context, status models.RunStatus) ([]*models.Run, error) {
	return s.deps.Runs.List(ctx, status)
}

// Wait blocks until the run's worker has exited, then returns the final snapshot
func (s *Service) Wait(ctx context.Context, runID string) (*models.Run, error) {
	s.mu.Lock()
	h, ok := s.handles[runID]
	s.mu.Unlock()

	if ok {
		select {
		case <-h.Done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.deps.Runs.Get(ctx, runID)
}

// Shutdown waits for in-flight runs to finish or ctx to expire
func (s *Service) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) createRun(ctx context.Context, req models.RunRequest, status models.RunStatus, messages ...string) (*models.Run, error) {
	now := s.now()
	base := common.NewRunID(req.SessionName, req.StartRow, req.EndRow, now)
	id := base
	for n := 2; ; n++ {
		exists, err := s.deps.Runs.Exists(ctx, id)
		if err != nil {
			return nil, err
		}
		if !exists {
			break
		}
		id = fmt.Sprintf("%s_%d", base, n)
	}

	run := &models.Run{
		ID:          id,
		SessionName: req.SessionName,
		StartRow:    req.StartRow,
		EndRow:      req.EndRow,
		Status:      status,
		ConsoleLogs: messages,
		StartTime:   now,
	}
	if err := s.deps.Runs.Create(ctx, run); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("run_id", id).
		Str("session", req.SessionName).
		Int("start_row", req.StartRow).
		Int("end_row", req.EndRow).
		Str("status", string(status)).
		Msg("Run created")
	return run, nil
}

type workFunc func(ctx context.Context, rep *Reporter) (models.RunResult, error)

// launch runs work on a panic-protected goroutine and records its outcome
func (s *Service) launch(runID string, work workFunc) *Handle {
	rep := NewReporter(s.deps.Runs, runID, s.logger)
	ctx := s.baseCtx

	s.inflight.Add(1)
	done := common.SafeGo(s.logger, "run:"+runID, func() {
		result, err := work(ctx, rep)
		if err != nil {
			rep.Fail(ctx, err)
			return
		}
		// Summary goes in before the terminal status so streams see it
		rep.Log(ctx, fmt.Sprintf("Total processed: %d", result.TotalProcessed))
		rep.Log(ctx, fmt.Sprintf("Successful: %d", result.SuccessCount))
		rep.Log(ctx, fmt.Sprintf("Failed: %d", result.FailCount))
		rep.Complete(ctx, result)
	}, func(recovered interface{}) {
		rep.Fail(ctx, fmt.Errorf("run panicked: %v", recovered))
	})
	go func() {
		<-done
		s.inflight.Done()
	}()

	h := &Handle{RunID: runID, Done: done}
	s.mu.Lock()
	s.handles[runID] = h
	s.mu.Unlock()
	return h
}

// sessionLock returns the single-slot semaphore for a session name
func (s *Service) sessionLock(name string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[name]
	if !ok {
		lock = make(chan struct{}, 1)
		s.locks[name] = lock
	}
	return lock
}

// withSessionLock runs work while holding the session's semaphore. work is
// not called when ctx ends before the semaphore is free.
func (s *Service) withSessionLock(ctx context.Context, rep *Reporter, sessionName string, work func() (models.RunResult, error)) (models.RunResult, error) {
	lock := s.sessionLock(sessionName)

	select {
	case lock <- struct{}{}:
	default:
		rep.Log(ctx, fmt.Sprintf("Waiting for another run using session %s to finish...", sessionName))
		select {
		case lock <- struct{}{}:
		case <-ctx.Done():
			return models.RunResult{}, fmt.Errorf("run cancelled while waiting for session: %w", ctx.Err())
		}
	}
	defer func() { <-lock }()

	return work()
}

// execute is the removal pipeline: load, group, derive, automate, write audit
func (s *Service) execute(ctx context.Context, rep *Reporter, req models.RunRequest) (models.RunResult, error) {
	rep.Progress(ctx, progressLoadCSV, "Loading CSV data file...")
	set, err := s.deps.Source.Load(ctx, req.StartRow, req.EndRow)
	if err != nil {
		return models.RunResult{}, err
	}
	rep.Progress(ctx, progressLoaded, fmt.Sprintf("CSV loaded successfully. Total rows: %d", set.TotalRows))
	rep.Progress(ctx, progressRange, fmt.Sprintf("Processing rows %d to %d (%d records)", req.StartRow, req.EndRow, set.InRange))
	if set.Skipped > 0 {
		rep.Log(ctx, fmt.Sprintf("Skipped %d rows with a blank familyid or memberid", set.Skipped))
	}

	groups, tasks := records.Plan(set)
	rep.Progress(ctx, progressGrouped, fmt.Sprintf("Found %d families with members", len(groups)))
	rep.Progress(ctx, progressTasks, fmt.Sprintf("Generated %d automation tasks", len(tasks)))

	var removed, failed []models.OutcomeLogEntry
	if len(tasks) > 0 {
		removed, failed, err = s.automate(ctx, rep, req.SessionName, tasks)
		if err != nil {
			return models.RunResult{}, err
		}
	} else {
		rep.Log(ctx, "No duplicate members in range, browser not started")
	}

	result := models.RunResult{
		SuccessCount:   len(removed),
		FailCount:      len(failed),
		TotalProcessed: len(tasks),
	}

	rep.Progress(ctx, progressSaving, "Saving automation logs...")
	auditFiles, err := s.deps.Audit.WriteRun(ctx, req.StartRow, req.EndRow, removed, failed)
	if err != nil {
		rep.Log(ctx, fmt.Sprintf("Failed to save audit logs: %v", err))
	}
	if auditFiles.SuccessFile != "" {
		result.SuccessFile = auditFiles.SuccessFile
		rep.Progress(ctx, progressSuccessFile, fmt.Sprintf("Success log saved: %s", auditFiles.SuccessFile))
	}
	if auditFiles.FailFile != "" {
		result.FailFile = auditFiles.FailFile
		rep.Progress(ctx, progressFailFile, fmt.Sprintf("Failure log saved: %s", auditFiles.FailFile))
	}

	return result, nil
}

// automate launches the browser and processes tasks strictly in order.
// Only setup problems return an error; task failures become outcome entries.
func (s *Service) automate(ctx context.Context, rep *Reporter, sessionName string, tasks []models.Task) (removed, failed []models.OutcomeLogEntry, err error) {
	rep.Progress(ctx, progressBrowserInit, "Initializing Chrome browser...")
	session, err := s.deps.Sessions.Load(ctx, sessionName)
	if err != nil {
		if errors.Is(err, interfaces.ErrSessionNotFound) {
			return nil, nil, fmt.Errorf("%w: %s", ErrLoginRequired, sessionName)
		}
		return nil, nil, err
	}

	driver, closeBrowser, err := s.deps.Launcher.Launch(ctx, session)
	if err != nil {
		return nil, nil, fmt.Errorf("browser launch failed: %w", err)
	}
	defer func() {
		closeBrowser()
		rep.Log(ctx, "Browser session closed safely")
	}()

	rep.Progress(ctx, progressSession, "Loading authentication session...")
	rep.Progress(ctx, progressSessionOK, fmt.Sprintf("Authentication session loaded successfully (%d cookies)", len(session.Cookies)))
	rep.Progress(ctx, progressAutomation, "Starting member removal automation...")

	n := len(tasks)
	span := float64(progressSaving-progressAutomation) / float64(n)

	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			return removed, failed, fmt.Errorf("run cancelled after %d of %d tasks: %w", i, n, err)
		}

		base := progressAutomation + float64(i)*span
		rep.Task(ctx, base, task.DuplicateID, task.FamilyID,
			fmt.Sprintf("[%d/%d] Starting task for Family %s", i+1, n, task.FamilyID))

		entry := s.deps.Automator.Process(ctx, driver, task, func(step portal.Step, fraction float64, message string) {
			rep.Progress(ctx, base+fraction*span, message)
		})

		if entry.Status == models.OutcomeRemoved {
			removed = append(removed, entry)
		} else {
			failed = append(failed, entry)
			rep.Log(ctx, fmt.Sprintf("Failed to remove member %s from Family %s: %s", task.DuplicateID, task.FamilyID, entry.Error))
		}

		done := progressAutomation + float64(i+1)*span
		rep.Progress(ctx, done, fmt.Sprintf("Progress: %.1f%% (%d/%d tasks completed)", done, i+1, n))

		if i < n-1 {
			_ = s.deps.Automator.PauseBetweenTasks(ctx)
		}
	}

	return removed, failed, nil
}
