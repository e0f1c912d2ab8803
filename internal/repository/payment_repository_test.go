package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/maktab-fin-api/internal/models"
)

func newPaymentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func tariffVersionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "monthly_amount", "chargeable_months", "academic_year", "effective_from", "current", "note", "created_at", "archived_at"}).
		AddRow("v1", int64(300000), "{9,10,11,12,1,2,3,4,5,6}", "2025-2026", "2025-09", true, nil, time.Now(), nil)
}

func paymentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "student_id", "type", "start_month", "month_count", "amount", "idempotency_key", "status", "closed_months", "created_at", "reverted_at"})
}

func discountRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "student_id", "type", "value", "start_month", "month_count", "reason", "active", "deactivate_reason", "created_at", "updated_at"})
}

func TestPaymentRepositorySnapshot(t *testing.T) {
	db, mock, cleanup := newPaymentMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectQuery("SELECT id, monthly_amount, chargeable_months").
		WillReturnRows(tariffVersionRows())
	mock.ExpectQuery("SELECT id, student_id, type, value").
		WithArgs("s1").
		WillReturnRows(discountRows())
	mock.ExpectQuery("SELECT id, student_id, type, start_month").
		WithArgs("s1", models.PaymentActive).
		WillReturnRows(paymentRows().
			AddRow("p1", "s1", "MONTHLY", "2025-09", 1, int64(300000), nil, "ACTIVE", "{2025-09}", time.Now(), nil))

	snap, err := repo.Snapshot(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, snap.Versions, 1)
	require.Len(t, snap.Payments, 1)
	assert.Equal(t, []models.MonthKey{"2025-09"}, snap.Payments[0].ClosedMonthKeys())
}

func TestPaymentRepositoryApplyInserts(t *testing.T) {
	db, mock, cleanup := newPaymentMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	key := "pay-once"
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, student_id, type, start_month").
		WithArgs("s1", key).
		WillReturnRows(paymentRows())
	mock.ExpectQuery("SELECT id, monthly_amount, chargeable_months").
		WillReturnRows(tariffVersionRows())
	mock.ExpectQuery("SELECT id, student_id, type, value").
		WithArgs("s1").
		WillReturnRows(discountRows())
	mock.ExpectQuery("SELECT id, student_id, type, start_month").
		WithArgs("s1", models.PaymentActive).
		WillReturnRows(paymentRows())
	mock.ExpectExec("INSERT INTO payments").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	payment, replayed, err := repo.Apply(context.Background(), "s1", &key, func(snap models.LedgerSnapshot) (*models.Payment, error) {
		return &models.Payment{
			Type:         models.PaymentMonthly,
			StartMonth:   "2025-09",
			MonthCount:   1,
			Amount:       300000,
			ClosedMonths: []string{"2025-09"},
		}, nil
	})
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.NotEmpty(t, payment.ID)
	assert.Equal(t, models.PaymentActive, payment.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryApplyReplaysExistingKey(t *testing.T) {
	db, mock, cleanup := newPaymentMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	key := "pay-once"
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, student_id, type, start_month").
		WithArgs("s1", key).
		WillReturnRows(paymentRows().
			AddRow("p1", "s1", "MONTHLY", "2025-09", 1, int64(300000), key, "ACTIVE", "{2025-09}", time.Now(), nil))
	mock.ExpectCommit()

	payment, replayed, err := repo.Apply(context.Background(), "s1", &key, func(snap models.LedgerSnapshot) (*models.Payment, error) {
		t.Fatal("build must not run on replay")
		return nil, nil
	})
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, "p1", payment.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryRevertAlreadyReverted(t *testing.T) {
	db, mock, cleanup := newPaymentMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	reverted := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, student_id, type, start_month").
		WithArgs("p1").
		WillReturnRows(paymentRows().
			AddRow("p1", "s1", "MONTHLY", "2025-09", 1, int64(300000), nil, "REVERTED", "{2025-09}", time.Now(), reverted))
	mock.ExpectCommit()

	payment, changed, err := repo.Revert(context.Background(), "p1")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, models.PaymentReverted, payment.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryRevertActivePayment(t *testing.T) {
	db, mock, cleanup := newPaymentMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, student_id, type, start_month").
		WithArgs("p1").
		WillReturnRows(paymentRows().
			AddRow("p1", "s1", "MONTHLY", "2025-09", 1, int64(300000), nil, "ACTIVE", "{2025-09}", time.Now(), nil))
	mock.ExpectExec("UPDATE payments SET status").
		WithArgs(models.PaymentReverted, sqlmock.AnyArg(), "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	payment, changed, err := repo.Revert(context.Background(), "p1")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.PaymentReverted, payment.Status)
	assert.NotNil(t, payment.RevertedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
