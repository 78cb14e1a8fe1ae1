package interfaces

import (
	"context"

	"github.com/ternarybob/dupremover/internal/models"
)

// Driver is the set of browser primitives the form automator needs.
// Every element interaction waits for the element with a bounded timeout.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Fill(ctx context.Context, elementID, value string, clear bool) error
	Click(ctx context.Context, elementID string, waitClickable bool) error
}

// BrowserLauncher starts an authenticated browser for one run
type BrowserLauncher interface {
	// Launch starts a fresh browser, restores the session cookies and returns
	// a driver plus a close function that tears the browser down.
	Launch(ctx context.Context, session *models.Session) (Driver, func(), error)
}

// LoginManager owns the interactive login browsers
type LoginManager interface {
	StartLogin(ctx context.Context, sessionName string) (models.LoginHandle, error)
	// Claim removes an open handle from the registry so exactly one caller owns it
	Claim(handleID, sessionName string) (models.LoginHandle, error)
	CaptureCookies(ctx context.Context, handle models.LoginHandle) ([]models.SessionCookie, error)
	Close(handle models.LoginHandle)
}

// RecordSource yields the normalised beneficiary records for a row range
type RecordSource interface {
	Load(ctx context.Context, startRow, endRow int) (*models.RecordSet, error)
}
