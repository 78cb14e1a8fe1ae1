package models

import "time"

// OutcomeStatus is the terminal state of one task
type OutcomeStatus string

const (
	OutcomeRemoved OutcomeStatus = "Removed"
	OutcomeFailed  OutcomeStatus = "Failed"
)

// OutcomeLogEntry is one audit row per processed task
type OutcomeLogEntry struct {
	FamilyID       string        `json:"familyid"`
	MemberID       string        `json:"memberid"`
	Status         OutcomeStatus `json:"status"`
	Timestamp      time.Time     `json:"timestamp"`
	OriginalMember string        `json:"original_member"`
	Error          string        `json:"error,omitempty"`
}

// AuditFiles lists the per-run files written for a run; empty when not written
type AuditFiles struct {
	SuccessFile string
	FailFile    string
}

// LogFileInfo describes an audit file available for download
type LogFileInfo struct {
	Filename string    `json:"filename"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}
