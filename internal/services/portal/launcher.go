package portal

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/dupremover/internal/common"
	"github.com/ternarybob/dupremover/internal/interfaces"
	"github.com/ternarybob/dupremover/internal/models"
)

// ChromeLauncher starts one authenticated Chrome per run
type ChromeLauncher struct {
	browser common.BrowserConfig
	portal  common.PortalConfig
	logger  arbor.ILogger
}

// NewChromeLauncher creates a launcher for the configured portal
func NewChromeLauncher(browser common.BrowserConfig, portal common.PortalConfig, logger arbor.ILogger) *ChromeLauncher {
	return &ChromeLauncher{
		browser: browser,
		portal:  portal,
		logger:  logger,
	}
}

// Launch opens the portal login page so cookies land on the right origin,
// restores the session cookies and hands back a driver. The returned close
// function must be called once the run is done with the browser.
func (l *ChromeLauncher) Launch(ctx context.Context, session *models.Session) (interfaces.Driver, func(), error) {
	b, err := startBrowser(ctx, l.browser, l.browser.Headless, l.logger)
	if err != nil {
		return nil, nil, err
	}

	driver := NewChromeDriver(b.ctx, l.browser.ElementTimeout.Duration(), l.browser.LaunchTimeout.Duration(), l.logger)

	if err := driver.Navigate(ctx, l.portal.LoginURL); err != nil {
		b.Close()
		return nil, nil, err
	}

	fallbackDomain := ""
	if u, err := url.Parse(l.portal.LoginURL); err == nil {
		fallbackDomain = u.Hostname()
	}

	injected, err := injectCookies(b.ctx, session.Cookies, fallbackDomain, l.logger)
	if err != nil {
		b.Close()
		return nil, nil, err
	}
	if injected == 0 && len(session.Cookies) > 0 {
		b.Close()
		return nil, nil, fmt.Errorf("none of the %d session cookies could be restored", len(session.Cookies))
	}

	l.logger.Info().
		Str("session", session.Name).
		Int("cookies_injected", injected).
		Msg("Browser launched with session cookies")

	return driver, b.Close, nil
}

var _ interfaces.BrowserLauncher = (*ChromeLauncher)(nil)
