package models

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/lib/pq"
)

var academicYearPattern = regexp.MustCompile(`^\d{4}-\d{4}$`)

// TariffVersion is one time-scoped revision of the tuition price list.
// Versions are append-only: a settings update archives the current row and
// inserts a new one effective from the following month.
type TariffVersion struct {
	ID               string        `db:"id" json:"id"`
	MonthlyAmount    int64         `db:"monthly_amount" json:"monthly_amount"`
	ChargeableMonths pq.Int64Array `db:"chargeable_months" json:"chargeable_months"`
	AcademicYear     string        `db:"academic_year" json:"academic_year"`
	EffectiveFrom    MonthKey      `db:"effective_from" json:"effective_from"`
	Current          bool          `db:"current" json:"current"`
	Note             *string       `db:"note" json:"note,omitempty"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	ArchivedAt       *time.Time    `db:"archived_at" json:"archived_at,omitempty"`
}

// Calendar returns the billing calendar view of this version.
func (v *TariffVersion) Calendar() BillingCalendar {
	months := make(map[int]struct{}, len(v.ChargeableMonths))
	for _, m := range v.ChargeableMonths {
		months[int(m)] = struct{}{}
	}
	return BillingCalendar{months: months}
}

// AnnualAmount is the total owed across all chargeable months.
func (v *TariffVersion) AnnualAmount() int64 {
	return v.MonthlyAmount * int64(len(v.ChargeableMonths))
}

// ValidateAcademicYear checks the "YYYY-YYYY" consecutive-years format.
func ValidateAcademicYear(s string) error {
	if !academicYearPattern.MatchString(s) {
		return fmt.Errorf("academic year %q must be formatted YYYY-YYYY", s)
	}
	first, _ := strconv.Atoi(s[:4])
	second, _ := strconv.Atoi(s[5:])
	if second != first+1 {
		return fmt.Errorf("academic year %q must span consecutive years", s)
	}
	return nil
}

// BillingCalendar answers which calendar months of the academic year are
// chargeable. Months outside the set (vacation) carry a zero obligation.
type BillingCalendar struct {
	months map[int]struct{}
}

// NewBillingCalendar builds a calendar from month numbers (1..12).
func NewBillingCalendar(months []int) (BillingCalendar, error) {
	set := make(map[int]struct{}, len(months))
	for _, m := range months {
		if m < 1 || m > 12 {
			return BillingCalendar{}, fmt.Errorf("chargeable month %d out of range 1..12", m)
		}
		if _, dup := set[m]; dup {
			return BillingCalendar{}, fmt.Errorf("chargeable month %d listed twice", m)
		}
		set[m] = struct{}{}
	}
	return BillingCalendar{months: set}, nil
}

// IsChargeable reports whether tuition is owed for the given month.
func (c BillingCalendar) IsChargeable(month MonthKey) bool {
	_, ok := c.months[month.Month()]
	return ok
}

// Count returns the number of chargeable months.
func (c BillingCalendar) Count() int {
	return len(c.months)
}
