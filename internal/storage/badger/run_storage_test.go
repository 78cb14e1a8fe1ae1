package badger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/dupremover/internal/interfaces"
	"github.com/ternarybob/dupremover/internal/models"
)

func newTestRunStorage(t *testing.T) *RunStorage {
	t.Helper()
	logger := arbor.NewLogger()
	db, err := NewBadgerDB(logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRunStorage(db, logger)
}

func newRun(id string, start time.Time) *models.Run {
	return &models.Run{
		ID:          id,
		SessionName: "operator1",
		StartRow:    0,
		EndRow:      10,
		Status:      models.RunStatusInitializing,
		ConsoleLogs: []string{"System initialized"},
		StartTime:   start,
	}
}

func TestRunStorage_CreateAndGet(t *testing.T) {
	storage := newTestRunStorage(t)
	ctx := context.Background()

	require.NoError(t, storage.Create(ctx, newRun("operator1_0_10_1700000000", time.Now())))

	run, err := storage.Get(ctx, "operator1_0_10_1700000000")
	require.NoError(t, err)
	assert.Equal(t, "operator1", run.SessionName)
	assert.Equal(t, models.RunStatusInitializing, run.Status)
	assert.Equal(t, []string{"System initialized"}, run.ConsoleLogs)

	exists, err := storage.Exists(ctx, "operator1_0_10_1700000000")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRunStorage_CreateDuplicate(t *testing.T) {
	storage := newTestRunStorage(t)
	ctx := context.Background()

	require.NoError(t, storage.Create(ctx, newRun("r1", time.Now())))
	assert.Error(t, storage.Create(ctx, newRun("r1", time.Now())))
}

func TestRunStorage_GetUnknown(t *testing.T) {
	storage := newTestRunStorage(t)

	_, err := storage.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, interfaces.ErrRunNotFound)

	exists, err := storage.Exists(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = storage.Update(context.Background(), "missing", models.ProgressUpdate(10, "x"))
	assert.ErrorIs(t, err, interfaces.ErrRunNotFound)
}

func TestRunStorage_UpdateAppendsAndOverwrites(t *testing.T) {
	storage := newTestRunStorage(t)
	ctx := context.Background()
	require.NoError(t, storage.Create(ctx, newRun("r1", time.Now())))

	status := models.RunStatusRunning
	member, family := "M1", "F1"
	run, err := storage.Update(ctx, "r1", models.RunUpdate{
		Status:        &status,
		CurrentMember: &member,
		CurrentFamily: &family,
		Message:       "Loading CSV data...",
	})
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusRunning, run.Status)
	assert.Equal(t, "M1", run.CurrentMember)
	assert.Equal(t, "F1", run.CurrentFamily)
	assert.Equal(t, []string{"System initialized", "Loading CSV data..."}, run.ConsoleLogs)

	// empty message leaves the log untouched
	run, err = storage.Update(ctx, "r1", models.RunUpdate{})
	require.NoError(t, err)
	assert.Len(t, run.ConsoleLogs, 2)
}

func TestRunStorage_ProgressIsMonotonicAndClamped(t *testing.T) {
	storage := newTestRunStorage(t)
	ctx := context.Background()
	require.NoError(t, storage.Create(ctx, newRun("r1", time.Now())))

	run, err := storage.Update(ctx, "r1", models.ProgressUpdate(45, "a"))
	require.NoError(t, err)
	assert.Equal(t, 45.0, run.Progress)

	run, err = storage.Update(ctx, "r1", models.ProgressUpdate(30, "b"))
	require.NoError(t, err)
	assert.Equal(t, 45.0, run.Progress, "progress must not decrease")
	assert.Equal(t, "b", run.ConsoleLogs[len(run.ConsoleLogs)-1])

	run, err = storage.Update(ctx, "r1", models.ProgressUpdate(250, "c"))
	require.NoError(t, err)
	assert.Equal(t, 100.0, run.Progress)
}

func TestRunStorage_ResultAndEndTime(t *testing.T) {
	storage := newTestRunStorage(t)
	ctx := context.Background()
	require.NoError(t, storage.Create(ctx, newRun("r1", time.Now())))

	status := models.RunStatusCompleted
	end := time.Now()
	errText := ""
	run, err := storage.Update(ctx, "r1", models.RunUpdate{
		Status:  &status,
		Result:  &models.RunResult{SuccessCount: 2, FailCount: 1, TotalProcessed: 3},
		Error:   &errText,
		EndTime: &end,
	})
	require.NoError(t, err)
	require.NotNil(t, run.Result)
	assert.Equal(t, 3, run.Result.TotalProcessed)
	require.NotNil(t, run.EndTime)
	assert.True(t, run.Status.IsTerminal())
}

func TestRunStorage_SnapshotsAreIndependent(t *testing.T) {
	storage := newTestRunStorage(t)
	ctx := context.Background()
	require.NoError(t, storage.Create(ctx, newRun("r1", time.Now())))

	snapshot, err := storage.Get(ctx, "r1")
	require.NoError(t, err)
	snapshot.ConsoleLogs[0] = "tampered"

	again, err := storage.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "System initialized", again.ConsoleLogs[0])
}

func TestRunStorage_ListNewestFirst(t *testing.T) {
	storage := newTestRunStorage(t)
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, storage.Create(ctx, newRun("old", base.Add(-2*time.Minute))))
	require.NoError(t, storage.Create(ctx, newRun("mid", base.Add(-time.Minute))))
	require.NoError(t, storage.Create(ctx, newRun("new", base)))

	status := models.RunStatusCompleted
	_, err := storage.Update(ctx, "mid", models.RunUpdate{Status: &status})
	require.NoError(t, err)

	runs, err := storage.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "new", runs[0].ID)
	assert.Equal(t, "old", runs[2].ID)

	completed, err := storage.List(ctx, models.RunStatusCompleted)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "mid", completed[0].ID)
}

func TestRunStorage_ConcurrentUpdates(t *testing.T) {
	storage := newTestRunStorage(t)
	ctx := context.Background()
	require.NoError(t, storage.Create(ctx, newRun("r1", time.Now())))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := storage.Update(ctx, "r1", models.ProgressUpdate(float64(i), fmt.Sprintf("step %d", i)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	run, err := storage.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, run.ConsoleLogs, 21)
	assert.Equal(t, 19.0, run.Progress)
}
