package portal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/dupremover/internal/common"
	"github.com/ternarybob/dupremover/internal/interfaces"
	"github.com/ternarybob/dupremover/internal/models"
)

// ErrNoLoginSession is returned when no open login browser matches a claim
var ErrNoLoginSession = errors.New("no manual login session found")

// loginBrowser is a visible browser an operator logs in with
type loginBrowser interface {
	Cookies(ctx context.Context, urls []string) ([]models.SessionCookie, error)
	Close()
}

type openLoginFunc func(ctx context.Context) (loginBrowser, error)

type loginEntry struct {
	handle  models.LoginHandle
	browser loginBrowser
}

// LoginService keeps the interactive login browsers, one per handle.
// Handles are claimed exactly once; unclaimed ones are swept after MaxAge.
type LoginService struct {
	portal  common.PortalConfig
	config  common.LoginConfig
	logger  arbor.ILogger
	baseCtx context.Context
	open    openLoginFunc
	now     func() time.Time

	mu      sync.Mutex
	pending map[string]*loginEntry
	claimed map[string]*loginEntry

	cron *cron.Cron
}

// NewLoginService creates a login manager. Browsers are parented to baseCtx so
// they outlive the HTTP request that opened them.
func NewLoginService(baseCtx context.Context, browser common.BrowserConfig, portal common.PortalConfig, config common.LoginConfig, logger arbor.ILogger) *LoginService {
	s := &LoginService{
		portal:  portal,
		config:  config,
		logger:  logger,
		baseCtx: baseCtx,
		now:     time.Now,
		pending: make(map[string]*loginEntry),
		claimed: make(map[string]*loginEntry),
		cron:    cron.New(),
	}
	s.open = func(ctx context.Context) (loginBrowser, error) {
		return openChromeLogin(ctx, browser, portal.LoginURL, logger)
	}
	return s
}

// Start schedules the sweep of abandoned login browsers
func (s *LoginService) Start() error {
	schedule := s.config.SweepSchedule
	if schedule == "" {
		schedule = "@every 1m"
	}

	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return fmt.Errorf("invalid login sweep schedule %q: %w", schedule, err)
	}
	s.cron.Start()

	s.logger.Info().
		Str("schedule", schedule).
		Dur("max_age", s.config.MaxAge.Duration()).
		Msg("Login browser sweep started")
	return nil
}

// Stop halts the sweep and closes every browser still open
func (s *LoginService) Stop() {
	<-s.cron.Stop().Done()

	s.mu.Lock()
	entries := make([]*loginEntry, 0, len(s.pending)+len(s.claimed))
	for id, e := range s.pending {
		entries = append(entries, e)
		delete(s.pending, id)
	}
	for id, e := range s.claimed {
		entries = append(entries, e)
		delete(s.claimed, id)
	}
	s.mu.Unlock()

	for _, e := range entries {
		e.browser.Close()
	}
	s.logger.Info().Int("closed", len(entries)).Msg("Login service stopped")
}

func (s *LoginService) StartLogin(ctx context.Context, sessionName string) (models.LoginHandle, error) {
	browser, err := s.open(s.baseCtx)
	if err != nil {
		return models.LoginHandle{}, fmt.Errorf("failed to open login browser: %w", err)
	}

	handle := models.LoginHandle{
		ID:          common.NewLoginHandleID(),
		SessionName: sessionName,
		OpenedAt:    s.now(),
	}

	s.mu.Lock()
	s.pending[handle.ID] = &loginEntry{handle: handle, browser: browser}
	s.mu.Unlock()

	s.logger.Info().
		Str("handle_id", handle.ID).
		Str("session", sessionName).
		Msg("Browser opened for manual login")

	return handle, nil
}

// Claim takes ownership of an open login. With an empty handleID the most
// recently opened login for sessionName is used.
func (s *LoginService) Claim(handleID, sessionName string) (models.LoginHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entry *loginEntry
	if handleID != "" {
		e, ok := s.pending[handleID]
		if ok && (sessionName == "" || e.handle.SessionName == sessionName) {
			entry = e
		}
	} else {
		for _, e := range s.pending {
			if e.handle.SessionName != sessionName {
				continue
			}
			if entry == nil || e.handle.OpenedAt.After(entry.handle.OpenedAt) {
				entry = e
			}
		}
	}

	if entry == nil {
		return models.LoginHandle{}, ErrNoLoginSession
	}

	delete(s.pending, entry.handle.ID)
	s.claimed[entry.handle.ID] = entry
	return entry.handle, nil
}

func (s *LoginService) CaptureCookies(ctx context.Context, handle models.LoginHandle) ([]models.SessionCookie, error) {
	s.mu.Lock()
	entry, ok := s.claimed[handle.ID]
	s.mu.Unlock()
	if !ok {
		return nil, ErrNoLoginSession
	}

	urls := []string{s.portal.LoginURL, s.portal.RemoveMemberURL}
	cookies, err := entry.browser.Cookies(ctx, urls)
	if err != nil {
		return nil, err
	}
	return cookies, nil
}

// Close tears down the browser behind handle, claimed or not
func (s *LoginService) Close(handle models.LoginHandle) {
	s.mu.Lock()
	entry, ok := s.claimed[handle.ID]
	if ok {
		delete(s.claimed, handle.ID)
	} else if entry, ok = s.pending[handle.ID]; ok {
		delete(s.pending, handle.ID)
	}
	s.mu.Unlock()

	if ok {
		entry.browser.Close()
		s.logger.Debug().Str("handle_id", handle.ID).Msg("Login browser closed")
	}
}

// Pending lists unclaimed logins, newest first
func (s *LoginService) Pending() []models.LoginHandle {
	s.mu.Lock()
	handles := make([]models.LoginHandle, 0, len(s.pending))
	for _, e := range s.pending {
		handles = append(handles, e.handle)
	}
	s.mu.Unlock()

	sort.Slice(handles, func(i, j int) bool {
		return handles[i].OpenedAt.After(handles[j].OpenedAt)
	})
	return handles
}

func (s *LoginService) sweep() {
	if s.config.MaxAge.Duration() <= 0 {
		return
	}
	cutoff := s.now().Add(-s.config.MaxAge.Duration())

	s.mu.Lock()
	var expired []*loginEntry
	for id, e := range s.pending {
		if e.handle.OpenedAt.Before(cutoff) {
			expired = append(expired, e)
			delete(s.pending, id)
		}
	}
	s.mu.Unlock()

	for _, e := range expired {
		e.browser.Close()
		s.logger.Info().
			Str("handle_id", e.handle.ID).
			Str("session", e.handle.SessionName).
			Msg("Closed abandoned login browser")
	}
}

// chromeLogin is a headful Chrome parked on the portal login page
type chromeLogin struct {
	b *browserInstance
}

func openChromeLogin(ctx context.Context, config common.BrowserConfig, loginURL string, logger arbor.ILogger) (loginBrowser, error) {
	b, err := startBrowser(ctx, config, false, logger)
	if err != nil {
		return nil, err
	}

	driver := NewChromeDriver(b.ctx, config.ElementTimeout.Duration(), config.LaunchTimeout.Duration(), logger)
	if err := driver.Navigate(ctx, loginURL); err != nil {
		b.Close()
		return nil, err
	}
	return &chromeLogin{b: b}, nil
}

func (c *chromeLogin) Cookies(ctx context.Context, urls []string) ([]models.SessionCookie, error) {
	readCtx, cancel := context.WithTimeout(c.b.ctx, 30*time.Second)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return readCookies(readCtx, urls)
}

func (c *chromeLogin) Close() {
	c.b.Close()
}

var _ interfaces.LoginManager = (*LoginService)(nil)
