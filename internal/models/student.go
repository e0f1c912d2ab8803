package models

import "time"

// Student represents a learner registered in the institution. Enrollment is
// kept as a simple interval on the row; classroom history beyond that is the
// roster system's concern, not the ledger's.
type Student struct {
	ID           string     `db:"id" json:"id"`
	Code         string     `db:"code" json:"code"`
	FullName     string     `db:"full_name" json:"full_name"`
	ClassroomID  *string    `db:"classroom_id" json:"classroom_id,omitempty"`
	Phone        string     `db:"phone" json:"phone"`
	EnrolledFrom time.Time  `db:"enrolled_from" json:"enrolled_from"`
	EnrolledTo   *time.Time `db:"enrolled_to" json:"enrolled_to,omitempty"`
	Active       bool       `db:"active" json:"active"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search      string
	ClassroomID string
	Active      *bool
	Page        int
	PageSize    int
}
