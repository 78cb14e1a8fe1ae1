package records

import "github.com/ternarybob/dupremover/internal/models"

// GroupFamilies groups records by family id. Families appear in the order
// they are first encountered; members keep source row order.
func GroupFamilies(records []models.Record) []models.FamilyGroup {
	index := make(map[string]int)
	var groups []models.FamilyGroup

	for _, rec := range records {
		i, ok := index[rec.FamilyID]
		if !ok {
			i = len(groups)
			index[rec.FamilyID] = i
			groups = append(groups, models.FamilyGroup{FamilyID: rec.FamilyID})
		}
		groups[i].Members = append(groups[i].Members, rec.MemberID)
	}

	return groups
}

// DeriveTasks turns each family's member list into removal tasks.
//
// Every member is marked as the duplicate once. Its "original" is the next
// member in the family, except for the last member, which points back at its
// predecessor. Single-member families produce nothing. The pairing depends on
// row order only; it does not decide which record is the real duplicate.
func DeriveTasks(groups []models.FamilyGroup) []models.Task {
	var tasks []models.Task

	for _, g := range groups {
		n := len(g.Members)
		if n < 2 {
			continue
		}
		for i, member := range g.Members {
			var original string
			if i < n-1 {
				original = g.Members[i+1]
			} else {
				original = g.Members[i-1]
			}
			tasks = append(tasks, models.Task{
				DuplicateID: member,
				ConfirmID:   member,
				OriginalID:  original,
				FamilyID:    g.FamilyID,
			})
		}
	}

	return tasks
}

// Plan groups a loaded record set and derives its task list
func Plan(set *models.RecordSet) ([]models.FamilyGroup, []models.Task) {
	groups := GroupFamilies(set.Records)
	return groups, DeriveTasks(groups)
}
