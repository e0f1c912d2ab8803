package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/maktab-fin-api/internal/models"
	appErrors "github.com/noah-isme/maktab-fin-api/pkg/errors"
)

type paymentRepoStub struct {
	snap   models.LedgerSnapshot
	stored *models.Payment
}

func (s *paymentRepoStub) Snapshot(ctx context.Context, studentID string) (models.LedgerSnapshot, error) {
	return s.snap, nil
}

func (s *paymentRepoStub) Apply(ctx context.Context, studentID string, idempotencyKey *string, build func(models.LedgerSnapshot) (*models.Payment, error)) (*models.Payment, bool, error) {
	if idempotencyKey != nil && s.stored != nil && s.stored.IdempotencyKey != nil && *s.stored.IdempotencyKey == *idempotencyKey {
		return s.stored, true, nil
	}
	payment, err := build(s.snap)
	if err != nil {
		return nil, false, err
	}
	payment.ID = uuid.NewString()
	payment.StudentID = studentID
	payment.IdempotencyKey = idempotencyKey
	payment.Status = models.PaymentActive
	payment.CreatedAt = time.Now().UTC()
	s.stored = payment
	s.snap.Payments = append(s.snap.Payments, *payment)
	return payment, false, nil
}

func (s *paymentRepoStub) Revert(ctx context.Context, paymentID string) (*models.Payment, bool, error) {
	if s.stored == nil || s.stored.ID != paymentID {
		return nil, false, sql.ErrNoRows
	}
	if s.stored.Status == models.PaymentReverted {
		return s.stored, false, nil
	}
	now := time.Now().UTC()
	s.stored.Status = models.PaymentReverted
	s.stored.RevertedAt = &now
	s.snap.Payments = nil
	return s.stored, true, nil
}

func (s *paymentRepoStub) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	if s.stored == nil || s.stored.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.stored, nil
}

func (s *paymentRepoStub) ListByStudent(ctx context.Context, studentID string) ([]models.Payment, error) {
	if s.stored == nil {
		return nil, nil
	}
	return []models.Payment{*s.stored}, nil
}

func (s *paymentRepoStub) ListDiscountsByStudent(ctx context.Context, studentID string) ([]models.Discount, error) {
	return s.snap.Discounts, nil
}

type studentStub struct {
	student *models.Student
}

func (s *studentStub) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s.student == nil {
		return nil, sql.ErrNoRows
	}
	return s.student, nil
}

func activeStudent() *models.Student {
	return &models.Student{ID: "s1", Code: "ST-001", FullName: "Aziza Karimova", Active: true}
}

func newPaymentService(repo *paymentRepoStub, students *studentStub) *PaymentService {
	return NewPaymentService(repo, students, nil, nil, nil, nil)
}

func TestPaymentPreviewExpectedAmount(t *testing.T) {
	repo := &paymentRepoStub{snap: schoolYearSnapshot()}
	svc := newPaymentService(repo, &studentStub{student: activeStudent()})

	count := 3
	preview, err := svc.Preview(context.Background(), "s1", PaymentRequest{
		Type: models.PaymentMonthly, StartMonth: "2025-09", MonthCount: &count,
	}, time.Now())
	require.NoError(t, err)
	assert.True(t, preview.Valid)
	assert.Equal(t, int64(900000), preview.ExpectedAmount)
	assert.Equal(t, []models.MonthKey{"2025-09", "2025-10", "2025-11"}, preview.ClosingSet)
}

func TestPaymentPreviewNoUnpaidMonths(t *testing.T) {
	snap := schoolYearSnapshot()
	snap.Payments = []models.Payment{{
		Status: models.PaymentActive, ClosedMonths: []string{"2025-09", "2025-10", "2025-11"},
	}}
	svc := newPaymentService(&paymentRepoStub{snap: snap}, &studentStub{student: activeStudent()})

	count := 3
	preview, err := svc.Preview(context.Background(), "s1", PaymentRequest{
		Type: models.PaymentMonthly, StartMonth: "2025-09", MonthCount: &count,
	}, time.Now())
	require.NoError(t, err)
	assert.False(t, preview.Valid)
	assert.NotEmpty(t, preview.Reason)
}

func TestPaymentCreateClosesOldestFirst(t *testing.T) {
	repo := &paymentRepoStub{snap: schoolYearSnapshot()}
	svc := newPaymentService(repo, &studentStub{student: activeStudent()})

	count := 2
	result, err := svc.Create(context.Background(), "s1", PaymentRequest{
		Type: models.PaymentMonthly, StartMonth: "2025-09", MonthCount: &count,
	}, time.Now())
	require.NoError(t, err)
	assert.False(t, result.Replayed)
	assert.Equal(t, int64(600000), result.Payment.Amount)
	assert.Equal(t, []string{"2025-09", "2025-10"}, []string(result.Payment.ClosedMonths))
}

func TestPaymentCreateAmountMismatch(t *testing.T) {
	svc := newPaymentService(&paymentRepoStub{snap: schoolYearSnapshot()}, &studentStub{student: activeStudent()})

	count := 3
	wrong := int64(800000)
	_, err := svc.Create(context.Background(), "s1", PaymentRequest{
		Type: models.PaymentMonthly, StartMonth: "2025-09", MonthCount: &count, Amount: &wrong,
	}, time.Now())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestPaymentCreateIdempotentReplay(t *testing.T) {
	repo := &paymentRepoStub{snap: schoolYearSnapshot()}
	svc := newPaymentService(repo, &studentStub{student: activeStudent()})

	count := 2
	key := "pay-2025-09-once"
	req := PaymentRequest{
		Type: models.PaymentMonthly, StartMonth: "2025-09", MonthCount: &count,
		IdempotencyKey: &key,
	}

	first, err := svc.Create(context.Background(), "s1", req, time.Now())
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	second, err := svc.Create(context.Background(), "s1", req, time.Now())
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Payment.ID, second.Payment.ID)
	assert.Equal(t, first.Payment.Amount, second.Payment.Amount)
}

func TestPaymentCreateArbitraryRequiresDebt(t *testing.T) {
	snap := schoolYearSnapshot()
	snap.Payments = []models.Payment{{
		Status: models.PaymentActive, ClosedMonths: []string{"2025-09"},
	}}
	svc := newPaymentService(&paymentRepoStub{snap: snap}, &studentStub{student: activeStudent()})

	count := 1
	amount := int64(100000)
	_, err := svc.Create(context.Background(), "s1", PaymentRequest{
		Type: models.PaymentArbitrary, StartMonth: "2025-09", MonthCount: &count, Amount: &amount,
	}, time.Now())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestPaymentCreateInactiveStudent(t *testing.T) {
	student := activeStudent()
	student.Active = false
	svc := newPaymentService(&paymentRepoStub{snap: schoolYearSnapshot()}, &studentStub{student: student})

	count := 1
	_, err := svc.Create(context.Background(), "s1", PaymentRequest{
		Type: models.PaymentMonthly, StartMonth: "2025-09", MonthCount: &count,
	}, time.Now())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestPaymentAnnualMonthCountMismatch(t *testing.T) {
	svc := newPaymentService(&paymentRepoStub{snap: schoolYearSnapshot()}, &studentStub{student: activeStudent()})

	count := 10
	_, err := svc.Create(context.Background(), "s1", PaymentRequest{
		Type: models.PaymentAnnual, StartMonth: "2025-09", MonthCount: &count,
	}, time.Now())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPaymentRevertTwiceIsNoOp(t *testing.T) {
	repo := &paymentRepoStub{snap: schoolYearSnapshot()}
	svc := newPaymentService(repo, &studentStub{student: activeStudent()})

	count := 1
	result, err := svc.Create(context.Background(), "s1", PaymentRequest{
		Type: models.PaymentMonthly, StartMonth: "2025-09", MonthCount: &count,
	}, time.Now())
	require.NoError(t, err)

	first, err := svc.Revert(context.Background(), result.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentReverted, first.Status)

	second, err := svc.Revert(context.Background(), result.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentReverted, second.Status)
}

func TestPaymentRevertReopensMonths(t *testing.T) {
	repo := &paymentRepoStub{snap: schoolYearSnapshot()}
	svc := newPaymentService(repo, &studentStub{student: activeStudent()})
	debt := NewDebtService(repo, nil)

	count := 1
	result, err := svc.Create(context.Background(), "s1", PaymentRequest{
		Type: models.PaymentMonthly, StartMonth: "2025-09", MonthCount: &count,
	}, time.Now())
	require.NoError(t, err)

	rows, err := debt.Obligations(context.Background(), "s1", "2025-09", 1, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows[0].Owed)

	_, err = svc.Revert(context.Background(), result.Payment.ID)
	require.NoError(t, err)

	rows, err = debt.Obligations(context.Background(), "s1", "2025-09", 1, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(300000), rows[0].Owed)
}

func TestPaymentRevertUnknownPayment(t *testing.T) {
	svc := newPaymentService(&paymentRepoStub{snap: schoolYearSnapshot()}, &studentStub{student: activeStudent()})
	_, err := svc.Revert(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
