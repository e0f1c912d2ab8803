package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/maktab-fin-api/internal/models"
)

type ledgerStub struct {
	snap models.LedgerSnapshot
	err  error
}

func (s *ledgerStub) Snapshot(ctx context.Context, studentID string) (models.LedgerSnapshot, error) {
	if s.err != nil {
		return models.LedgerSnapshot{}, s.err
	}
	return s.snap, nil
}

func schoolYearSnapshot() models.LedgerSnapshot {
	return models.LedgerSnapshot{
		StudentID: "s1",
		Versions: []models.TariffVersion{{
			ID:               "v1",
			MonthlyAmount:    300000,
			ChargeableMonths: []int64{9, 10, 11, 12, 1, 2, 3, 4, 5, 6},
			AcademicYear:     "2025-2026",
			EffectiveFrom:    "2025-09",
			Current:          true,
		}},
	}
}

func TestObligationsThreeUnpaidMonths(t *testing.T) {
	svc := NewDebtService(&ledgerStub{snap: schoolYearSnapshot()}, nil)

	rows, err := svc.Obligations(context.Background(), "s1", "2025-09", 3, time.Now())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	var total int64
	for _, row := range rows {
		assert.Equal(t, int64(300000), row.Base)
		assert.Equal(t, int64(300000), row.Owed)
		total += row.Owed
	}
	assert.Equal(t, int64(900000), total)
}

func TestObligationsSkipVacationMonths(t *testing.T) {
	svc := NewDebtService(&ledgerStub{snap: schoolYearSnapshot()}, nil)

	rows, err := svc.Obligations(context.Background(), "s1", "2026-06", 3, time.Now())
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, int64(300000), rows[0].Owed) // June is chargeable
	assert.Equal(t, int64(0), rows[1].Owed)      // July
	assert.Equal(t, int64(0), rows[2].Owed)      // August
	assert.Equal(t, int64(0), rows[1].Base)
}

func TestObligationsPercentDiscount(t *testing.T) {
	half := int64(50)
	snap := schoolYearSnapshot()
	snap.Discounts = []models.Discount{{
		ID: "d1", StudentID: "s1", Type: models.DiscountPercent, Value: &half,
		StartMonth: "2026-02", MonthCount: 1, Active: true,
		CreatedAt: time.Now().Add(-time.Hour),
	}}
	svc := NewDebtService(&ledgerStub{snap: snap}, nil)

	rows, err := svc.Obligations(context.Background(), "s1", "2026-01", 3, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(300000), rows[0].Owed)
	assert.Equal(t, int64(150000), rows[1].DiscountAmount)
	assert.Equal(t, int64(150000), rows[1].Owed)
	assert.Equal(t, int64(300000), rows[2].Owed)
	assert.Equal(t, int64(750000), OutstandingTotal(rows))
}

func TestObligationsFullWaiver(t *testing.T) {
	snap := schoolYearSnapshot()
	snap.Discounts = []models.Discount{{
		ID: "d1", StudentID: "s1", Type: models.DiscountFullWaiver,
		StartMonth: "2025-09", MonthCount: 10, Active: true,
		CreatedAt: time.Now().Add(-time.Hour),
	}}
	svc := NewDebtService(&ledgerStub{snap: snap}, nil)

	rows, err := svc.Obligations(context.Background(), "s1", "2025-09", 10, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(0), OutstandingTotal(rows))
	for _, row := range rows {
		assert.Equal(t, row.Base, row.DiscountAmount)
	}
}

func TestObligationsFixedDiscountCappedAtBase(t *testing.T) {
	huge := int64(900000)
	snap := schoolYearSnapshot()
	snap.Discounts = []models.Discount{{
		ID: "d1", Type: models.DiscountFixed, Value: &huge,
		StartMonth: "2025-09", MonthCount: 1, Active: true,
		CreatedAt: time.Now().Add(-time.Hour),
	}}
	svc := NewDebtService(&ledgerStub{snap: snap}, nil)

	rows, err := svc.Obligations(context.Background(), "s1", "2025-09", 1, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(300000), rows[0].DiscountAmount)
	assert.Equal(t, int64(0), rows[0].Owed)
}

func TestObligationsIgnoreDiscountsCreatedAfterAsOf(t *testing.T) {
	asOf := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	half := int64(50)
	snap := schoolYearSnapshot()
	snap.Discounts = []models.Discount{{
		ID: "d1", Type: models.DiscountPercent, Value: &half,
		StartMonth: "2025-09", MonthCount: 10, Active: true,
		CreatedAt: asOf.Add(24 * time.Hour),
	}}
	svc := NewDebtService(&ledgerStub{snap: snap}, nil)

	rows, err := svc.Obligations(context.Background(), "s1", "2025-09", 1, asOf)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows[0].DiscountAmount)
	assert.Equal(t, int64(300000), rows[0].Owed)
}

func TestObligationsClosedMonthShowsPaid(t *testing.T) {
	snap := schoolYearSnapshot()
	snap.Payments = []models.Payment{{
		Status: models.PaymentActive, ClosedMonths: []string{"2025-09"},
	}}
	svc := NewDebtService(&ledgerStub{snap: snap}, nil)

	rows, err := svc.Obligations(context.Background(), "s1", "2025-09", 2, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(300000), rows[0].Paid)
	assert.Equal(t, int64(0), rows[0].Owed)
	assert.Equal(t, int64(300000), rows[1].Owed)
}

func TestObligationsInvalidRange(t *testing.T) {
	svc := NewDebtService(&ledgerStub{snap: schoolYearSnapshot()}, nil)
	_, err := svc.Obligations(context.Background(), "s1", "2025-9", 3, time.Now())
	assert.Error(t, err)
	_, err = svc.Obligations(context.Background(), "s1", "2025-09", 0, time.Now())
	assert.Error(t, err)
}
