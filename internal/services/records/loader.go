package records

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/dupremover/internal/models"
)

const (
	ColumnMemberID = "memberid"
	ColumnFamilyID = "familyid"
)

var (
	// ErrMissingColumns is returned when the source lacks memberid or familyid after normalisation
	ErrMissingColumns = errors.New("missing 'memberid' or 'familyid' column")
	// ErrEmptySource is returned when the source has no header row
	ErrEmptySource = errors.New("source file is empty")
)

// NormalizeHeader lower-cases and trims a column name
func NormalizeHeader(header string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header, "\ufeff")))
}

// CSVLoader reads beneficiary records from a CSV export
type CSVLoader struct {
	path   string
	logger arbor.ILogger
}

// NewCSVLoader creates a loader for the CSV file at path
func NewCSVLoader(path string, logger arbor.ILogger) *CSVLoader {
	return &CSVLoader{path: path, logger: logger}
}

// Load opens the configured file and returns the records for data rows [startRow, endRow)
func (l *CSVLoader) Load(ctx context.Context, startRow, endRow int) (*models.RecordSet, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source file %s: %w", l.path, err)
	}
	defer f.Close()

	set, err := ReadRecords(ctx, f, startRow, endRow)
	if err != nil {
		return nil, err
	}

	l.logger.Debug().
		Str("path", l.path).
		Int("total_rows", set.TotalRows).
		Int("in_range", set.InRange).
		Int("skipped", set.Skipped).
		Msg("Source records loaded")

	return set, nil
}

// ReadRecords parses CSV from r. Header names are normalised; both required
// columns must exist before any row is read. The range follows slice
// semantics: endRow is clamped to the row count and an empty range is not an
// error. Rows with a blank family or member id are counted as skipped.
func ReadRecords(ctx context.Context, r io.Reader, startRow, endRow int) (*models.RecordSet, error) {
	if startRow < 0 {
		return nil, fmt.Errorf("start row must not be negative, got %d", startRow)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, ErrEmptySource
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	memberCol, familyCol := -1, -1
	for i, h := range header {
		switch NormalizeHeader(h) {
		case ColumnMemberID:
			if memberCol < 0 {
				memberCol = i
			}
		case ColumnFamilyID:
			if familyCol < 0 {
				familyCol = i
			}
		}
	}
	if memberCol < 0 || familyCol < 0 {
		var missing []string
		if memberCol < 0 {
			missing = append(missing, ColumnMemberID)
		}
		if familyCol < 0 {
			missing = append(missing, ColumnFamilyID)
		}
		return nil, fmt.Errorf("%w: not found: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	set := &models.RecordSet{}
	for row := 0; ; row++ {
		if row%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", row, err)
		}
		set.TotalRows++

		if row < startRow || row >= endRow {
			continue
		}
		set.InRange++

		familyID := cell(fields, familyCol)
		memberID := cell(fields, memberCol)
		if familyID == "" || memberID == "" {
			set.Skipped++
			continue
		}

		set.Records = append(set.Records, models.Record{
			FamilyID: familyID,
			MemberID: memberID,
			Row:      row,
		})
	}

	return set, nil
}

func cell(fields []string, idx int) string {
	if idx >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[idx])
}
