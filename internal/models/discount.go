package models

import "time"

// DiscountType enumerates supported obligation adjustments.
type DiscountType string

const (
	DiscountPercent    DiscountType = "PERCENT"
	DiscountFixed      DiscountType = "FIXED"
	DiscountFullWaiver DiscountType = "FULL_WAIVER"
)

// Discount is a time-scoped reduction of a student's monthly obligation.
// Rows are never deleted; deactivation keeps the audit trail intact.
type Discount struct {
	ID               string       `db:"id" json:"id"`
	StudentID        string       `db:"student_id" json:"student_id"`
	Type             DiscountType `db:"type" json:"type"`
	Value            *int64       `db:"value" json:"value,omitempty"`
	StartMonth       MonthKey     `db:"start_month" json:"start_month"`
	MonthCount       int          `db:"month_count" json:"month_count"`
	Reason           string       `db:"reason" json:"reason"`
	Active           bool         `db:"active" json:"active"`
	DeactivateReason *string      `db:"deactivate_reason" json:"deactivate_reason,omitempty"`
	CreatedAt        time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time    `db:"updated_at" json:"updated_at"`
}

// EndMonth returns the last month the discount covers.
func (d *Discount) EndMonth() MonthKey {
	months := d.StartMonth.Range(d.MonthCount)
	return months[len(months)-1]
}

// Covers reports whether the discount applies to the given month.
func (d *Discount) Covers(month MonthKey) bool {
	return !month.Before(d.StartMonth) && !d.EndMonth().Before(month)
}
