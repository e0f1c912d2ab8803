package models

import "time"

// RateScope distinguishes teacher-specific rates from subject defaults.
type RateScope string

const (
	RateScopeTeacher RateScope = "TEACHER"
	RateScopeSubject RateScope = "SUBJECT"
)

// PayRate is an hourly pay rate effective over [EffectiveFrom, EffectiveTo).
// TeacherID is set only for TEACHER scope. Rows are append-only; expiry is
// soft via EffectiveTo.
type PayRate struct {
	ID            string     `db:"id" json:"id"`
	Scope         RateScope  `db:"scope" json:"scope"`
	TeacherID     *string    `db:"teacher_id" json:"teacher_id,omitempty"`
	SubjectID     string     `db:"subject_id" json:"subject_id"`
	RatePerHour   int64      `db:"rate_per_hour" json:"rate_per_hour"`
	EffectiveFrom time.Time  `db:"effective_from" json:"effective_from"`
	EffectiveTo   *time.Time `db:"effective_to" json:"effective_to,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// ContainsDate reports whether the rate is effective on the given date.
func (r *PayRate) ContainsDate(d time.Time) bool {
	if d.Before(r.EffectiveFrom) {
		return false
	}
	if r.EffectiveTo != nil && !d.Before(*r.EffectiveTo) {
		return false
	}
	return true
}
