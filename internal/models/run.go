package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// RunStatus is the lifecycle state of a run
type RunStatus string

const (
	RunStatusInitializing  RunStatus = "initializing"
	RunStatusSavingCookies RunStatus = "saving_cookies"
	RunStatusRunning       RunStatus = "running"
	RunStatusCompleted     RunStatus = "completed"
	RunStatusFailed        RunStatus = "failed"
)

// IsTerminal reports whether no further updates are expected
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// Run tracks one execution of the task list derived from a row range.
// JSON names match what the operator UI polls.
type Run struct {
	ID            string     `json:"task_id" badgerhold:"key"`
	SessionName   string     `json:"cookie_name" badgerhold:"index"`
	StartRow      int        `json:"start_row"`
	EndRow        int        `json:"end_row"`
	Status        RunStatus  `json:"status" badgerhold:"index"`
	Progress      float64    `json:"progress"`
	CurrentMember string     `json:"current_member,omitempty"`
	CurrentFamily string     `json:"current_family,omitempty"`
	ConsoleLogs   []string   `json:"console_logs"`
	Result        *RunResult `json:"result,omitempty"`
	Error         string     `json:"error,omitempty"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       *time.Time `json:"end_time,omitempty"`
}

// Clone returns a deep copy safe to hand to readers
func (r *Run) Clone() *Run {
	if r == nil {
		return nil
	}
	c := *r
	c.ConsoleLogs = append([]string(nil), r.ConsoleLogs...)
	if r.Result != nil {
		res := *r.Result
		c.Result = &res
	}
	if r.EndTime != nil {
		t := *r.EndTime
		c.EndTime = &t
	}
	return &c
}

// RunResult summarises a completed run
type RunResult struct {
	SuccessCount   int    `json:"success_count"`
	FailCount      int    `json:"fail_count"`
	TotalProcessed int    `json:"total_processed"`
	SuccessFile    string `json:"success_file,omitempty"`
	FailFile       string `json:"fail_file,omitempty"`
}

// RunUpdate carries a partial update; nil fields are left unchanged.
type RunUpdate struct {
	Status        *RunStatus
	Progress      *float64
	CurrentMember *string
	CurrentFamily *string
	Message       string
	Result        *RunResult
	Error         *string
	EndTime       *time.Time
}

// ProgressUpdate builds an update that moves progress and appends one event
func ProgressUpdate(progress float64, message string) RunUpdate {
	return RunUpdate{Progress: &progress, Message: message}
}

// RunRequest asks for a run over data rows [StartRow, EndRow) using a saved session
type RunRequest struct {
	SessionName string `json:"cookie_name" validate:"required,max=64"`
	StartRow    int    `json:"start_row" validate:"min=0"`
	EndRow      int    `json:"end_row" validate:"min=0"`
}

// Validate checks the request fields with go-playground/validator
func (r *RunRequest) Validate() error {
	return validator.New().Struct(r)
}

// SaveSessionRequest claims an open manual login, saves its cookies under
// SessionName and chains into a run. An empty HandleID claims the most
// recent login opened for SessionName.
type SaveSessionRequest struct {
	RunRequest
	HandleID string `json:"handle_id,omitempty"`
}
