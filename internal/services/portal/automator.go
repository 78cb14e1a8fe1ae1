package portal

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/dupremover/internal/common"
	"github.com/ternarybob/dupremover/internal/interfaces"
	"github.com/ternarybob/dupremover/internal/models"
)

// Step names one stage of the removal form
type Step string

const (
	StepNavigate          Step = "navigate"
	StepFillDuplicate     Step = "fill_duplicate"
	StepFillConfirm       Step = "fill_confirm"
	StepFillOriginal      Step = "fill_original"
	StepSubmitSearch      Step = "submit_search"
	StepConfirmOriginal   Step = "confirm_original"
	StepFillRemark        Step = "fill_remark"
	StepCheckConfirmation Step = "check_confirmation"
	StepSubmitDelete      Step = "submit_delete"
	StepDone              Step = "done"
)

// Pause after each task, before the next one navigates
const taskPause = time.Second

// StepObserver is called before each step with the fraction of the task
// already completed (0 for the first step, 1 for done).
type StepObserver func(step Step, fraction float64, message string)

type formStep struct {
	step    Step
	pause   time.Duration
	message func(task models.Task) string
	run     func(ctx context.Context, d interfaces.Driver, task models.Task) error
}

// Automator fills the Remove Member form for one task at a time
type Automator struct {
	portal  common.PortalConfig
	browser common.BrowserConfig
	logger  arbor.ILogger
	steps   []formStep
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewAutomator builds the fixed step sequence for the configured portal
func NewAutomator(portal common.PortalConfig, browser common.BrowserConfig, logger arbor.ILogger) *Automator {
	a := &Automator{
		portal:  portal,
		browser: browser,
		logger:  logger,
		sleep:   sleepContext,
	}
	a.steps = a.buildSteps()
	return a
}

func (a *Automator) buildSteps() []formStep {
	return []formStep{
		{
			step:    StepNavigate,
			pause:   time.Second,
			message: func(models.Task) string { return "Navigating to member removal page..." },
			run: func(ctx context.Context, d interfaces.Driver, _ models.Task) error {
				return d.Navigate(ctx, a.portal.RemoveMemberURL)
			},
		},
		{
			step:    StepFillDuplicate,
			pause:   time.Second,
			message: func(t models.Task) string { return fmt.Sprintf("Filling duplicate member ID: %s", t.DuplicateID) },
			run: func(ctx context.Context, d interfaces.Driver, t models.Task) error {
				return d.Fill(ctx, ElementDuplicateID, t.DuplicateID, true)
			},
		},
		{
			step:    StepFillConfirm,
			pause:   time.Second,
			message: func(t models.Task) string { return fmt.Sprintf("Filling confirm member ID: %s", t.ConfirmID) },
			run: func(ctx context.Context, d interfaces.Driver, t models.Task) error {
				return d.Fill(ctx, ElementConfirmID, t.ConfirmID, true)
			},
		},
		{
			step:    StepFillOriginal,
			pause:   time.Second,
			message: func(t models.Task) string { return fmt.Sprintf("Filling original member ID: %s", t.OriginalID) },
			run: func(ctx context.Context, d interfaces.Driver, t models.Task) error {
				return d.Fill(ctx, ElementOriginalID, t.OriginalID, true)
			},
		},
		{
			step:    StepSubmitSearch,
			pause:   2 * time.Second,
			message: func(models.Task) string { return "Clicking show button to search for member..." },
			run: func(ctx context.Context, d interfaces.Driver, _ models.Task) error {
				return d.Click(ctx, ElementShowButton, false)
			},
		},
		{
			step:    StepConfirmOriginal,
			pause:   time.Second,
			message: func(t models.Task) string { return fmt.Sprintf("Confirming original member ID: %s", t.OriginalID) },
			run: func(ctx context.Context, d interfaces.Driver, t models.Task) error {
				return d.Fill(ctx, ElementConfirmOriginalID, t.OriginalID, false)
			},
		},
		{
			step:    StepFillRemark,
			pause:   time.Second,
			message: func(models.Task) string { return "Adding removal remark..." },
			run: func(ctx context.Context, d interfaces.Driver, _ models.Task) error {
				return d.Fill(ctx, ElementRemark, a.portal.RemovalRemark, false)
			},
		},
		{
			step:    StepCheckConfirmation,
			message: func(models.Task) string { return "Checking confirmation checkbox..." },
			run: func(ctx context.Context, d interfaces.Driver, _ models.Task) error {
				return d.Click(ctx, ElementConfirmCheckbox, false)
			},
		},
		{
			step:    StepSubmitDelete,
			pause:   2 * time.Second,
			message: func(models.Task) string { return "Clicking delete button to remove member..." },
			run: func(ctx context.Context, d interfaces.Driver, _ models.Task) error {
				return d.Click(ctx, ElementDeleteButton, true)
			},
		},
	}
}

// Steps returns the step names in execution order
func (a *Automator) Steps() []Step {
	names := make([]Step, len(a.steps))
	for i, s := range a.steps {
		names[i] = s.step
	}
	return names
}

// Process runs every step for task. The first failing step ends the task with
// a Failed outcome naming the step; nothing is retried or rolled back.
func (a *Automator) Process(ctx context.Context, driver interfaces.Driver, task models.Task, observer StepObserver) models.OutcomeLogEntry {
	entry := models.OutcomeLogEntry{
		FamilyID:       task.FamilyID,
		MemberID:       task.DuplicateID,
		OriginalMember: task.OriginalID,
	}

	total := float64(len(a.steps))
	for i, s := range a.steps {
		if observer != nil {
			observer(s.step, float64(i)/total, s.message(task))
		}

		err := s.run(ctx, driver, task)
		if err == nil && s.pause > 0 {
			err = a.sleep(ctx, a.browser.ScaledDelay(s.pause))
		}
		if err != nil {
			a.logger.Warn().
				Err(err).
				Str("step", string(s.step)).
				Str("member", task.DuplicateID).
				Str("family", task.FamilyID).
				Msg("Removal step failed")

			entry.Status = models.OutcomeFailed
			entry.Error = fmt.Sprintf("%s: %v", s.step, err)
			entry.Timestamp = time.Now()
			return entry
		}
	}

	if observer != nil {
		observer(StepDone, 1, fmt.Sprintf("Member %s removed successfully from Family %s", task.DuplicateID, task.FamilyID))
	}

	entry.Status = models.OutcomeRemoved
	entry.Timestamp = time.Now()
	return entry
}

// PauseBetweenTasks waits the fixed inter-task gap, scaled by the configured step delay
func (a *Automator) PauseBetweenTasks(ctx context.Context) error {
	return a.sleep(ctx, a.browser.ScaledDelay(taskPause))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
