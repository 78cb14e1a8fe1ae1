package models

// Record is one beneficiary row from the source export
type Record struct {
	FamilyID string `json:"familyid"`
	MemberID string `json:"memberid"`
	Row      int    `json:"row"` // 0-based data row, header excluded
}

// FamilyGroup holds the in-range members of one family in source row order
type FamilyGroup struct {
	FamilyID string   `json:"familyid"`
	Members  []string `json:"members"`
}

// Task is one duplicate-member removal attempt against the portal.
// DuplicateID and ConfirmID are always equal; the portal asks for the id twice.
type Task struct {
	DuplicateID string `json:"duplicate_id"`
	ConfirmID   string `json:"confirm_id"`
	OriginalID  string `json:"original_id"`
	FamilyID    string `json:"family_id"`
}

// RecordSet is the result of loading a row range from the source
type RecordSet struct {
	TotalRows int      // data rows in the whole source
	InRange   int      // data rows inside the requested range
	Skipped   int      // in-range rows with a blank family or member id
	Records   []Record // usable in-range rows, source order
}
