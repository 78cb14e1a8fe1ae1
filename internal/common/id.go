package common

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewRunID builds the run identifier {session}_{start}_{end}_{unix seconds}
func NewRunID(sessionName string, startRow, endRow int, at time.Time) string {
	return fmt.Sprintf("%s_%d_%d_%d", sessionName, startRow, endRow, at.Unix())
}

// NewLoginHandleID generates a manual-login handle id with the "login_" prefix
func NewLoginHandleID() string {
	return "login_" + uuid.New().String()
}
