package portal

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/dupremover/internal/common"
	"github.com/ternarybob/dupremover/internal/models"
)

// browserInstance is one Chrome process with its own throwaway profile
type browserInstance struct {
	ctx        context.Context
	cancel     context.CancelFunc
	allocClose context.CancelFunc
	profileDir string
}

// Close stops Chrome and removes the profile directory
func (b *browserInstance) Close() {
	b.cancel()
	b.allocClose()
	if b.profileDir != "" {
		os.RemoveAll(b.profileDir)
	}
}

// startBrowser launches Chrome under parent and verifies it responds.
// Each instance gets a fresh user-data-dir so runs never share state.
func startBrowser(parent context.Context, config common.BrowserConfig, headless bool, logger arbor.ILogger) (*browserInstance, error) {
	startTime := time.Now()

	profileDir, err := os.MkdirTemp("", "dupremover-chrome-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create browser profile: %w", err)
	}

	allocatorOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", config.DisableGPU),
		chromedp.Flag("no-sandbox", config.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("start-maximized", !headless),
		chromedp.UserDataDir(profileDir),
	)
	if config.UserAgent != "" {
		allocatorOpts = append(allocatorOpts, chromedp.UserAgent(config.UserAgent))
	}
	if config.ExecPath != "" {
		allocatorOpts = append(allocatorOpts, chromedp.ExecPath(config.ExecPath))
	}

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(parent, allocatorOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

	b := &browserInstance{
		ctx:        browserCtx,
		cancel:     browserCancel,
		allocClose: allocatorCancel,
		profileDir: profileDir,
	}

	testTimeout := 30 * time.Second
	if config.LaunchTimeout.Duration() > 0 {
		testTimeout = config.LaunchTimeout.Duration()
	}
	testCtx, testCancel := context.WithTimeout(browserCtx, testTimeout)
	defer testCancel()

	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank"), network.Enable()); err != nil {
		b.Close()
		return nil, fmt.Errorf("browser failed startup test: %w", err)
	}

	logger.Debug().
		Bool("headless", headless).
		Str("profile_dir", profileDir).
		Dur("startup_time", time.Since(startTime)).
		Msg("Browser instance started")

	return b, nil
}

// injectCookies sets every session cookie on the browser. Individual cookie
// failures are logged and skipped; the count of injected cookies is returned.
func injectCookies(browserCtx context.Context, cookies []models.SessionCookie, fallbackDomain string, logger arbor.ILogger) (int, error) {
	injected := 0

	err := chromedp.Run(browserCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			for _, c := range cookies {
				domain := c.Domain
				if domain == "" {
					domain = fallbackDomain
				}
				// Remove leading dot if present (ChromeDP doesn't like it)
				domain = strings.TrimPrefix(domain, ".")

				path := c.Path
				if path == "" {
					path = "/"
				}

				params := network.SetCookie(c.Name, c.Value).
					WithDomain(domain).
					WithPath(path).
					WithSecure(c.Secure).
					WithHTTPOnly(c.HTTPOnly)

				if sameSite := toSameSite(c.SameSite); sameSite != "" {
					params = params.WithSameSite(sameSite)
				}
				if c.Expires > 0 {
					expiresTime := time.Unix(int64(c.Expires), 0)
					if expiresTime.After(time.Now()) {
						timestamp := cdp.TimeSinceEpoch(expiresTime)
						params = params.WithExpires(&timestamp)
					}
				}

				if err := params.Do(ctx); err != nil {
					logger.Warn().
						Err(err).
						Str("cookie_name", c.Name).
						Str("domain", domain).
						Msg("Failed to inject cookie")
					continue
				}
				injected++
			}
			return nil
		}),
	)
	if err != nil {
		return injected, fmt.Errorf("failed to inject cookies: %w", err)
	}
	return injected, nil
}

// readCookies returns the browser's cookies for urls in session form
func readCookies(browserCtx context.Context, urls []string) ([]models.SessionCookie, error) {
	var cookies []*network.Cookie
	err := chromedp.Run(browserCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = network.GetCookies().WithURLs(urls).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies: %w", err)
	}

	result := make([]models.SessionCookie, 0, len(cookies))
	for _, c := range cookies {
		expires := c.Expires
		if c.Session || expires < 0 {
			expires = 0
		}
		result = append(result, models.SessionCookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  expires,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: c.SameSite.String(),
		})
	}
	return result, nil
}

func toSameSite(s string) network.CookieSameSite {
	switch strings.ToLower(s) {
	case "strict":
		return network.CookieSameSiteStrict
	case "lax":
		return network.CookieSameSiteLax
	case "none":
		return network.CookieSameSiteNone
	}
	return ""
}
