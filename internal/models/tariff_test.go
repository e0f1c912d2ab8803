package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBillingCalendar(t *testing.T) {
	cal, err := NewBillingCalendar([]int{9, 10, 11, 12, 1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	assert.Equal(t, 10, cal.Count())
	assert.True(t, cal.IsChargeable("2025-09"))
	assert.False(t, cal.IsChargeable("2025-07"))

	_, err = NewBillingCalendar([]int{0})
	assert.Error(t, err)
	_, err = NewBillingCalendar([]int{13})
	assert.Error(t, err)
	_, err = NewBillingCalendar([]int{9, 9})
	assert.Error(t, err)
}

func TestValidateAcademicYear(t *testing.T) {
	assert.NoError(t, ValidateAcademicYear("2025-2026"))
	assert.Error(t, ValidateAcademicYear("2025-2027"))
	assert.Error(t, ValidateAcademicYear("2025"))
	assert.Error(t, ValidateAcademicYear("abcd-efgh"))
}

func TestDiscountCovers(t *testing.T) {
	d := Discount{StartMonth: "2025-09", MonthCount: 3}
	assert.Equal(t, MonthKey("2025-11"), d.EndMonth())
	assert.True(t, d.Covers("2025-09"))
	assert.True(t, d.Covers("2025-11"))
	assert.False(t, d.Covers("2025-08"))
	assert.False(t, d.Covers("2025-12"))
}

func TestLedgerSnapshotVersionFor(t *testing.T) {
	snap := LedgerSnapshot{Versions: []TariffVersion{
		{ID: "v1", MonthlyAmount: 300000, EffectiveFrom: "2025-09"},
		{ID: "v2", MonthlyAmount: 350000, EffectiveFrom: "2026-01"},
	}}
	assert.Nil(t, snap.VersionFor("2025-08"))
	assert.Equal(t, "v1", snap.VersionFor("2025-12").ID)
	assert.Equal(t, "v2", snap.VersionFor("2026-01").ID)
	assert.Equal(t, "v2", snap.VersionFor("2026-05").ID)
}

func TestLedgerSnapshotMonthClosed(t *testing.T) {
	snap := LedgerSnapshot{Payments: []Payment{
		{Status: PaymentActive, ClosedMonths: []string{"2025-09", "2025-10"}},
		{Status: PaymentReverted, ClosedMonths: []string{"2025-11"}},
	}}
	assert.True(t, snap.MonthClosed("2025-09"))
	assert.True(t, snap.MonthClosed("2025-10"))
	assert.False(t, snap.MonthClosed("2025-11"))
}
