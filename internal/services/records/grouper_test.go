package records

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/dupremover/internal/models"
)

func recs(pairs ...string) []models.Record {
	var out []models.Record
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, models.Record{FamilyID: pairs[i], MemberID: pairs[i+1], Row: i / 2})
	}
	return out
}

func TestGroupFamilies_EncounterOrder(t *testing.T) {
	groups := GroupFamilies(recs("F9", "A", "F1", "B", "F9", "C", "F2", "D"))

	require.Len(t, groups, 3)
	assert.Equal(t, "F9", groups[0].FamilyID)
	assert.Equal(t, []string{"A", "C"}, groups[0].Members)
	assert.Equal(t, "F1", groups[1].FamilyID)
	assert.Equal(t, "F2", groups[2].FamilyID)
}

func TestDeriveTasks_ThreeMembers(t *testing.T) {
	tasks := DeriveTasks([]models.FamilyGroup{{FamilyID: "F1", Members: []string{"M1", "M2", "M3"}}})

	expected := []models.Task{
		{DuplicateID: "M1", ConfirmID: "M1", OriginalID: "M2", FamilyID: "F1"},
		{DuplicateID: "M2", ConfirmID: "M2", OriginalID: "M3", FamilyID: "F1"},
		{DuplicateID: "M3", ConfirmID: "M3", OriginalID: "M2", FamilyID: "F1"},
	}
	assert.Equal(t, expected, tasks)
}

func TestDeriveTasks_TwoMembers(t *testing.T) {
	tasks := DeriveTasks([]models.FamilyGroup{{FamilyID: "F1", Members: []string{"M1", "M2"}}})

	require.Len(t, tasks, 2)
	assert.Equal(t, "M2", tasks[0].OriginalID)
	assert.Equal(t, "M1", tasks[1].OriginalID)
}

func TestDeriveTasks_SingleMemberFamilyYieldsNothing(t *testing.T) {
	tasks := DeriveTasks([]models.FamilyGroup{{FamilyID: "F2", Members: []string{"M4"}}})
	assert.Empty(t, tasks)
}

func TestDeriveTasks_Properties(t *testing.T) {
	groups := GroupFamilies(recs(
		"F1", "M1", "F2", "M4", "F1", "M2", "F3", "M5", "F1", "M3", "F3", "M6",
	))
	tasks := DeriveTasks(groups)

	// one task per member of each multi-member family
	assert.Len(t, tasks, 5)

	seen := map[string]bool{}
	for _, task := range tasks {
		assert.Equal(t, task.DuplicateID, task.ConfirmID)
		assert.NotEqual(t, task.DuplicateID, task.OriginalID)
		assert.False(t, seen[task.DuplicateID], "member %s marked twice", task.DuplicateID)
		seen[task.DuplicateID] = true
	}

	// families stay contiguous and keep encounter order
	assert.Equal(t, "F1", tasks[0].FamilyID)
	assert.Equal(t, "F1", tasks[2].FamilyID)
	assert.Equal(t, "F3", tasks[3].FamilyID)
}

func TestPlan(t *testing.T) {
	set := &models.RecordSet{Records: recs("F1", "M1", "F1", "M2", "F2", "M3")}

	groups, tasks := Plan(set)
	assert.Len(t, groups, 2)
	assert.Len(t, tasks, 2)
}
