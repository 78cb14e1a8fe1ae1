package runs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/dupremover/internal/models"
	"github.com/ternarybob/dupremover/internal/storage/badger"
)

func newTestReporter(t *testing.T) (*Reporter, *badger.RunStorage) {
	t.Helper()
	logger := arbor.NewLogger()
	db, err := badger.NewBadgerDB(logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := badger.NewRunStorage(db, logger)
	require.NoError(t, store.Create(context.Background(), &models.Run{
		ID:        "op_0_10_1",
		Status:    models.RunStatusRunning,
		StartTime: time.Now(),
	}))
	return NewReporter(store, "op_0_10_1", logger), store
}

func TestReporter_FailKeepsProgress(t *testing.T) {
	rep, store := newTestReporter(t)
	ctx := context.Background()

	rep.Progress(ctx, 45, "Starting member removal automation...")
	rep.Fail(ctx, errors.New("browser launch failed"))

	run, err := store.Get(ctx, "op_0_10_1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Equal(t, 45.0, run.Progress)
	assert.Equal(t, "browser launch failed", run.Error)
	assert.Equal(t, "Automation failed: browser launch failed", run.ConsoleLogs[len(run.ConsoleLogs)-1])
	assert.NotNil(t, run.EndTime)
}

func TestReporter_WritesAfterCancel(t *testing.T) {
	rep, store := newTestReporter(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep.Task(ctx, 50, "M1", "F1", "[1/2] Starting task for Family F1")
	rep.Complete(ctx, models.RunResult{SuccessCount: 1, TotalProcessed: 1})

	run, err := store.Get(context.Background(), "op_0_10_1")
	require.NoError(t, err)
	assert.Equal(t, "M1", run.CurrentMember)
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, 100.0, run.Progress)
	assert.Equal(t, 1, run.Result.SuccessCount)
	assert.Equal(t, "Automation completed successfully!", run.ConsoleLogs[len(run.ConsoleLogs)-1])
}
