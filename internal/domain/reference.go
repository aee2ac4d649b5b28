package domain

// Read-only reference data backing the coordinator's create screen.
// Owned by an external system; this service only looks it up.

// Project external project record.
type Project struct {
	ProjectCode string `json:"project_code" db:"project_code"`
	ProjectRef  string `json:"project_ref" db:"project_ref"`
	Name        string `json:"name" db:"name"`
}

// Sample one monster code within a project.
type Sample struct {
	SampleRef   string `json:"sample_ref" db:"sample_ref"`
	ProjectCode string `json:"project_code" db:"project_code"`
	Label       string `json:"label" db:"label"`
}

// Panelist a person eligible for enrollment.
type Panelist struct {
	PanelistID string `json:"panelist_id" db:"panelist_id"`
	Name       string `json:"name" db:"name"`
	Email      string `json:"email" db:"email"`
}
