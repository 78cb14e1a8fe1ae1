package files

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/dupremover/internal/interfaces"
	"github.com/ternarybob/dupremover/internal/models"
)

const (
	SuccessLatestFile = "success_removed_latest.csv"
	FailedLatestFile  = "failed_removal_latest.csv"
)

// AuditColumns is the header of every outcome CSV
var AuditColumns = []string{"familyid", "memberid", "status", "timestamp", "original_member", "error"}

// SuccessFileName names the per-run success file. startRow is 0-based; the
// file uses spreadsheet line numbers (header on line 1).
func SuccessFileName(startRow, endRow int) string {
	return fmt.Sprintf("success_removed_%d_%d.csv", startRow+2, endRow)
}

// FailedFileName names the per-run failure file
func FailedFileName(startRow, endRow int) string {
	return fmt.Sprintf("failed_removal_%d_%d.csv", startRow+2, endRow)
}

// AuditStorage writes outcome CSVs and serves them back for download
type AuditStorage struct {
	dir    string
	logger arbor.ILogger
}

// NewAuditStorage creates an audit store rooted at dir
func NewAuditStorage(dir string, logger arbor.ILogger) (*AuditStorage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}
	return &AuditStorage{dir: dir, logger: logger}, nil
}

// WriteRun writes the per-run files (only those with rows) and always
// replaces both latest files. Every file is attempted; the returned error
// joins all write failures.
func (s *AuditStorage) WriteRun(ctx context.Context, startRow, endRow int, removed, failed []models.OutcomeLogEntry) (models.AuditFiles, error) {
	var files models.AuditFiles
	var errs []error

	if len(removed) > 0 {
		path := filepath.Join(s.dir, SuccessFileName(startRow, endRow))
		if err := s.writeCSV(path, removed); err != nil {
			errs = append(errs, err)
		} else {
			files.SuccessFile = path
		}
	}
	if len(failed) > 0 {
		path := filepath.Join(s.dir, FailedFileName(startRow, endRow))
		if err := s.writeCSV(path, failed); err != nil {
			errs = append(errs, err)
		} else {
			files.FailFile = path
		}
	}

	if err := s.writeCSV(filepath.Join(s.dir, SuccessLatestFile), removed); err != nil {
		errs = append(errs, err)
	}
	if err := s.writeCSV(filepath.Join(s.dir, FailedLatestFile), failed); err != nil {
		errs = append(errs, err)
	}

	s.logger.Debug().
		Int("removed", len(removed)).
		Int("failed", len(failed)).
		Str("success_file", files.SuccessFile).
		Str("fail_file", files.FailFile).
		Msg("Audit files written")

	return files, errors.Join(errs...)
}

func (s *AuditStorage) writeCSV(path string, entries []models.OutcomeLogEntry) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(AuditColumns); err != nil {
		return err
	}
	for _, e := range entries {
		record := []string{
			e.FamilyID,
			e.MemberID,
			string(e.Status),
			e.Timestamp.Format(time.RFC3339),
			e.OriginalMember,
			e.Error,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}

	if err := writeFileAtomic(s.dir, path, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// List returns the CSV files in the logs directory, newest first
func (s *AuditStorage) List(ctx context.Context) ([]models.LogFileInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read logs directory: %w", err)
	}

	logs := []models.LogFileInfo{}
	for _, entry := range entries {
		if entry.IsDir() || !isDownloadable(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		logs = append(logs, models.LogFileInfo{
			Filename: entry.Name(),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}

	sort.Slice(logs, func(i, j int) bool {
		return logs[i].Modified.After(logs[j].Modified)
	})
	return logs, nil
}

// Open returns a reader for one audit file. Only plain .csv base names inside
// the logs directory are served.
func (s *AuditStorage) Open(name string) (io.ReadSeekCloser, models.LogFileInfo, error) {
	if name != filepath.Base(name) || !isDownloadable(name) {
		return nil, models.LogFileInfo{}, fmt.Errorf("%w: %s", interfaces.ErrLogNotFound, name)
	}

	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, models.LogFileInfo{}, fmt.Errorf("%w: %s", interfaces.ErrLogNotFound, name)
		}
		return nil, models.LogFileInfo{}, fmt.Errorf("failed to open %s: %w", name, err)
	}

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		f.Close()
		return nil, models.LogFileInfo{}, fmt.Errorf("%w: %s", interfaces.ErrLogNotFound, name)
	}

	return f, models.LogFileInfo{Filename: name, Size: info.Size(), Modified: info.ModTime()}, nil
}

func isDownloadable(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv") &&
		!strings.HasPrefix(name, ".") &&
		!strings.ContainsAny(name, `/\`)
}

var _ interfaces.AuditStorage = (*AuditStorage)(nil)
