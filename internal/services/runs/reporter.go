package runs

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/dupremover/internal/interfaces"
	"github.com/ternarybob/dupremover/internal/models"
)

// Reporter is the single writer for one run. Every event is appended to the
// run's console log and mirrored to the application log under the run id.
type Reporter struct {
	store  interfaces.RunStorage
	runID  string
	logger arbor.ILogger
}

// NewReporter creates a reporter bound to runID
func NewReporter(store interfaces.RunStorage, runID string, logger arbor.ILogger) *Reporter {
	return &Reporter{
		store:  store,
		runID:  runID,
		logger: logger.WithCorrelationId(runID),
	}
}

// RunID returns the id of the run being reported on
func (r *Reporter) RunID() string {
	return r.runID
}

func (r *Reporter) apply(ctx context.Context, update models.RunUpdate) {
	// Status writes must land even when the run's context was cancelled
	ctx = context.WithoutCancel(ctx)

	if update.Message != "" {
		r.logger.Info().Msg(update.Message)
	}
	if _, err := r.store.Update(ctx, r.runID, update); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to update run status")
	}
}

// Log appends a message without moving progress
func (r *Reporter) Log(ctx context.Context, message string) {
	r.apply(ctx, models.RunUpdate{Message: message})
}

// Progress moves progress and appends a message
func (r *Reporter) Progress(ctx context.Context, progress float64, message string) {
	r.apply(ctx, models.ProgressUpdate(progress, message))
}

// Task records the member and family currently being processed
func (r *Reporter) Task(ctx context.Context, progress float64, member, family, message string) {
	update := models.ProgressUpdate(progress, message)
	update.CurrentMember = &member
	update.CurrentFamily = &family
	r.apply(ctx, update)
}

// Status changes the lifecycle state
func (r *Reporter) Status(ctx context.Context, status models.RunStatus, message string) {
	r.apply(ctx, models.RunUpdate{Status: &status, Message: message})
}

// Complete marks the run completed with its result
func (r *Reporter) Complete(ctx context.Context, result models.RunResult) {
	status := models.RunStatusCompleted
	progress := 100.0
	end := time.Now()
	r.apply(ctx, models.RunUpdate{
		Status:   &status,
		Progress: &progress,
		Result:   &result,
		EndTime:  &end,
		Message:  "Automation completed successfully!",
	})
}

// Fail marks the run failed. Progress is left where it stopped.
func (r *Reporter) Fail(ctx context.Context, err error) {
	status := models.RunStatusFailed
	message := err.Error()
	end := time.Now()

	r.logger.Error().Err(err).Msg("Run failed")
	r.apply(ctx, models.RunUpdate{
		Status:  &status,
		Error:   &message,
		Message: "Automation failed: " + message,
		EndTime: &end,
	})
}
