package records

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

const sampleCSV = `Name, MemberID ,FamilyID,District
Asha,M1,F1,Bhopal
Ravi,M2,F1,Bhopal
Mina,M3,F1,Bhopal
Kiran,M4,F2,Indore
Dev,M5,F3,Indore
Ira,M6,F3,Indore
`

func TestReadRecords_NormalizesHeaders(t *testing.T) {
	set, err := ReadRecords(context.Background(), strings.NewReader(sampleCSV), 0, 100)
	require.NoError(t, err)

	assert.Equal(t, 6, set.TotalRows)
	assert.Equal(t, 6, set.InRange)
	require.Len(t, set.Records, 6)
	assert.Equal(t, "M1", set.Records[0].MemberID)
	assert.Equal(t, "F1", set.Records[0].FamilyID)
	assert.Equal(t, 5, set.Records[5].Row)
}

func TestReadRecords_Range(t *testing.T) {
	tests := []struct {
		name      string
		start     int
		end       int
		wantIDs   []string
		wantRange int
	}{
		{"first two", 0, 2, []string{"M1", "M2"}, 2},
		{"middle", 2, 5, []string{"M3", "M4", "M5"}, 3},
		{"end past row count is clamped", 4, 1000, []string{"M5", "M6"}, 2},
		{"empty range", 3, 3, nil, 0},
		{"inverted range", 5, 2, nil, 0},
		{"start past row count", 50, 60, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := ReadRecords(context.Background(), strings.NewReader(sampleCSV), tt.start, tt.end)
			require.NoError(t, err)

			var ids []string
			for _, r := range set.Records {
				ids = append(ids, r.MemberID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, tt.wantRange, set.InRange)
			assert.Equal(t, 6, set.TotalRows)
		})
	}
}

func TestReadRecords_MissingColumns(t *testing.T) {
	_, err := ReadRecords(context.Background(), strings.NewReader("name,memberid\nA,M1\n"), 0, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingColumns)
	assert.Contains(t, err.Error(), "familyid")

	_, err = ReadRecords(context.Background(), strings.NewReader("name\nA\n"), 0, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingColumns)
	assert.Contains(t, err.Error(), "memberid, familyid")
}

func TestReadRecords_EmptySource(t *testing.T) {
	_, err := ReadRecords(context.Background(), strings.NewReader(""), 0, 10)
	assert.ErrorIs(t, err, ErrEmptySource)
}

func TestReadRecords_NegativeStart(t *testing.T) {
	_, err := ReadRecords(context.Background(), strings.NewReader(sampleCSV), -1, 10)
	assert.Error(t, err)
}

func TestReadRecords_SkipsBlankIDs(t *testing.T) {
	data := "memberid,familyid\nM1,F1\n,F1\nM3,  \nM4,F2\n"

	set, err := ReadRecords(context.Background(), strings.NewReader(data), 0, 10)
	require.NoError(t, err)

	assert.Equal(t, 4, set.InRange)
	assert.Equal(t, 2, set.Skipped)
	require.Len(t, set.Records, 2)
	assert.Equal(t, "M1", set.Records[0].MemberID)
	assert.Equal(t, "M4", set.Records[1].MemberID)
}

func TestReadRecords_ShortRowsAndBOM(t *testing.T) {
	data := "\ufeffFamilyID,MemberID,Extra\nF1,M1\nF1\n"

	set, err := ReadRecords(context.Background(), strings.NewReader(data), 0, 10)
	require.NoError(t, err)

	require.Len(t, set.Records, 1)
	assert.Equal(t, "F1", set.Records[0].FamilyID)
	assert.Equal(t, 1, set.Skipped)
}

func TestReadRecords_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReadRecords(ctx, strings.NewReader(sampleCSV), 0, 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCSVLoader_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Pending E-kyc.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0644))

	loader := NewCSVLoader(path, arbor.NewLogger())
	set, err := loader.Load(context.Background(), 0, 3)
	require.NoError(t, err)
	assert.Len(t, set.Records, 3)
}

func TestCSVLoader_MissingFile(t *testing.T) {
	loader := NewCSVLoader(filepath.Join(t.TempDir(), "absent.csv"), arbor.NewLogger())
	_, err := loader.Load(context.Background(), 0, 3)
	assert.Error(t, err)
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "memberid", NormalizeHeader("  MemberID "))
	assert.Equal(t, "familyid", NormalizeHeader("\ufeffFAMILYID"))
}
