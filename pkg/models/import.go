package models

// ImportKind is the entity a bulk import creates.
type ImportKind string

const (
	ImportSchools       ImportKind = "schools"
	ImportNetworkGroups ImportKind = "networkGroups"
	ImportPolicies      ImportKind = "policies"
)

// IsValid reports whether k is a known import kind.
func (k ImportKind) IsValid() bool {
	switch k {
	case ImportSchools, ImportNetworkGroups, ImportPolicies:
		return true
	}
	return false
}

// ImportRowError explains why one source row was not imported.
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportResult summarises a bulk import. Rows are independent: a failed row
// does not undo the rows created before it.
type ImportResult struct {
	Kind    ImportKind       `json:"kind"`
	Success int              `json:"success"`
	Failed  int              `json:"failed"`
	Errors  []ImportRowError `json:"errors"`
}
