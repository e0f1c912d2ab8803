package models

import "time"

// LessonStatus enumerates the billable outcome of a scheduled lesson.
type LessonStatus string

const (
	LessonDone     LessonStatus = "DONE"
	LessonCanceled LessonStatus = "CANCELED"
	LessonReplaced LessonStatus = "REPLACED"
)

// Lesson is the record of a real (taught, canceled or replaced) lesson.
// It is the billable unit payroll is computed from: DONE pays TeacherID,
// REPLACED pays ReplacedByTeacher, CANCELED pays nobody.
type Lesson struct {
	ID                string       `db:"id" json:"id"`
	TeacherID         string       `db:"teacher_id" json:"teacher_id"`
	SubjectID         string       `db:"subject_id" json:"subject_id"`
	ClassroomID       string       `db:"classroom_id" json:"classroom_id"`
	StartAt           time.Time    `db:"start_at" json:"start_at"`
	EndAt             time.Time    `db:"end_at" json:"end_at"`
	Status            LessonStatus `db:"status" json:"status"`
	ReplacedByTeacher *string      `db:"replaced_by_teacher" json:"replaced_by_teacher,omitempty"`
	CreatedAt         time.Time    `db:"created_at" json:"created_at"`
}

// PayeeTeacherID returns the teacher the lesson pays, or "" when it pays
// nobody.
func (l *Lesson) PayeeTeacherID() string {
	switch l.Status {
	case LessonDone:
		return l.TeacherID
	case LessonReplaced:
		if l.ReplacedByTeacher != nil {
			return *l.ReplacedByTeacher
		}
	}
	return ""
}

// Duration returns the lesson length.
func (l *Lesson) Duration() time.Duration {
	return l.EndAt.Sub(l.StartAt)
}

// LessonFilter restricts lesson listings.
type LessonFilter struct {
	TeacherID string
	Period    MonthKey
	Status    LessonStatus
	Page      int
	PageSize  int
}
