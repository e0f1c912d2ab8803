package models

import "time"

// PayrollRunStatus is the lifecycle state of a payroll run.
type PayrollRunStatus string

const (
	RunDraft    PayrollRunStatus = "DRAFT"
	RunApproved PayrollRunStatus = "APPROVED"
	RunPaid     PayrollRunStatus = "PAID"
	RunReversed PayrollRunStatus = "REVERSED"
)

// CanTransitionTo reports whether the lifecycle permits moving to the target
// state. DRAFT→APPROVED→PAID is the normal flow; any non-reversed state may
// move to REVERSED.
func (s PayrollRunStatus) CanTransitionTo(to PayrollRunStatus) bool {
	switch to {
	case RunApproved:
		return s == RunDraft
	case RunPaid:
		return s == RunApproved
	case RunReversed:
		return s != RunReversed
	default:
		return false
	}
}

// Mutable reports whether run lines may still be added.
func (s PayrollRunStatus) Mutable() bool {
	return s == RunDraft
}

// PayrollLineType enumerates run line kinds.
type PayrollLineType string

const (
	LineLesson  PayrollLineType = "LESSON"
	LineBonus   PayrollLineType = "BONUS"
	LinePenalty PayrollLineType = "PENALTY"
	LineManual  PayrollLineType = "MANUAL"
)

// PayrollRun is the aggregated payable statement for one period month.
// Exactly one run may exist per period.
type PayrollRun struct {
	ID            string           `db:"id" json:"id"`
	PeriodMonth   MonthKey         `db:"period_month" json:"period_month"`
	Status        PayrollRunStatus `db:"status" json:"status"`
	PaymentMethod *string          `db:"payment_method" json:"payment_method,omitempty"`
	PaidAt        *time.Time       `db:"paid_at" json:"paid_at,omitempty"`
	ReversedAt    *time.Time       `db:"reversed_at" json:"reversed_at,omitempty"`
	ReverseReason *string          `db:"reverse_reason" json:"reverse_reason,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
}

// PayrollLine is one payable line within a run. LESSON lines carry the
// lesson they price; adjustment lines carry a description instead.
type PayrollLine struct {
	ID             string          `db:"id" json:"id"`
	RunID          string          `db:"run_id" json:"run_id"`
	PayeeTeacherID string          `db:"payee_teacher_id" json:"payee_teacher_id"`
	Type           PayrollLineType `db:"type" json:"type"`
	Amount         int64           `db:"amount" json:"amount"`
	Description    string          `db:"description" json:"description"`
	SourceLessonID *string         `db:"source_lesson_id" json:"source_lesson_id,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// PayrollRunDetail bundles a run with its lines and total.
type PayrollRunDetail struct {
	PayrollRun
	Lines []PayrollLine `json:"lines"`
	Total int64         `json:"total"`
}
