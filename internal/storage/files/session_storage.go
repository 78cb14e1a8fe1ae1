package files

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/dupremover/internal/interfaces"
	"github.com/ternarybob/dupremover/internal/models"
)

const sessionExt = ".json"

var sessionNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

// ValidateSessionName rejects names that could not be stored as a single file
// inside the sessions directory.
func ValidateSessionName(name string) error {
	if !sessionNamePattern.MatchString(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q", interfaces.ErrInvalidSessionName, name)
	}
	return nil
}

// SessionStorage keeps one JSON cookie blob per session name
type SessionStorage struct {
	dir    string
	logger arbor.ILogger
}

// NewSessionStorage creates a session store rooted at dir
func NewSessionStorage(dir string, logger arbor.ILogger) (*SessionStorage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}
	return &SessionStorage{dir: dir, logger: logger}, nil
}

func (s *SessionStorage) path(name string) string {
	return filepath.Join(s.dir, name+sessionExt)
}

func (s *SessionStorage) Load(ctx context.Context, name string) (*models.Session, error) {
	if err := ValidateSessionName(name); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", interfaces.ErrSessionNotFound, name)
		}
		return nil, fmt.Errorf("failed to read session %s: %w", name, err)
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to parse session %s: %w", name, err)
	}
	if session.Name == "" {
		session.Name = name
	}
	return &session, nil
}

// Save writes the blob to a temp file and renames it into place, replacing
// any previous blob for the same name.
func (s *SessionStorage) Save(ctx context.Context, session *models.Session) error {
	if err := ValidateSessionName(session.Name); err != nil {
		return err
	}
	if session.SavedAt.IsZero() {
		session.SavedAt = time.Now()
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := writeFileAtomic(s.dir, s.path(session.Name), data); err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.Name, err)
	}

	s.logger.Info().
		Str("session", session.Name).
		Int("cookies", len(session.Cookies)).
		Msg("Session saved")
	return nil
}

func (s *SessionStorage) Exists(name string) bool {
	if ValidateSessionName(name) != nil {
		return false
	}
	info, err := os.Stat(s.path(name))
	return err == nil && info.Mode().IsRegular()
}

// List returns the saved sessions, most recently saved first
func (s *SessionStorage) List(ctx context.Context) ([]models.SessionInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	sessions := []models.SessionInfo{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != sessionExt {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), sessionExt)
		if ValidateSessionName(name) != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		sessions = append(sessions, models.SessionInfo{
			Name:     name,
			Filename: entry.Name(),
			Modified: info.ModTime(),
		})
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Modified.After(sessions[j].Modified)
	})
	return sessions, nil
}

func writeFileAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

var _ interfaces.SessionStorage = (*SessionStorage)(nil)
