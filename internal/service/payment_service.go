package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/maktab-fin-api/internal/models"
	appErrors "github.com/noah-isme/maktab-fin-api/pkg/errors"
)

type paymentRepository interface {
	Snapshot(ctx context.Context, studentID string) (models.LedgerSnapshot, error)
	Apply(ctx context.Context, studentID string, idempotencyKey *string, build func(models.LedgerSnapshot) (*models.Payment, error)) (*models.Payment, bool, error)
	Revert(ctx context.Context, paymentID string) (*models.Payment, bool, error)
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Payment, error)
	ListDiscountsByStudent(ctx context.Context, studentID string) ([]models.Discount, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// PaymentRequest describes a payment intent (both preview and create).
type PaymentRequest struct {
	Type           models.PaymentType `json:"type" validate:"required,oneof=MONTHLY ANNUAL ARBITRARY"`
	StartMonth     string             `json:"start_month" validate:"required"`
	MonthCount     *int               `json:"month_count,omitempty" validate:"omitempty,min=1,max=24"`
	Amount         *int64             `json:"amount,omitempty" validate:"omitempty,gt=0"`
	IdempotencyKey *string            `json:"idempotency_key,omitempty"`
}

// PaymentResult is the outcome of a successful (or replayed) creation.
type PaymentResult struct {
	Payment  *models.Payment          `json:"payment"`
	Replayed bool                     `json:"replayed"`
	Debt     []models.MonthObligation `json:"debt"`
}

// PaymentService applies and reverts tuition payments. Every mutation runs as
// one serializable unit together with its idempotency check, so concurrent
// duplicate submissions cannot close the same month twice.
type PaymentService struct {
	payments  paymentRepository
	students  studentReader
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPaymentService constructs PaymentService.
func NewPaymentService(payments paymentRepository, students studentReader, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{payments: payments, students: students, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// Preview evaluates a payment request without mutating anything.
func (s *PaymentService) Preview(ctx context.Context, studentID string, req PaymentRequest, asOf time.Time) (*models.PaymentPreview, error) {
	start, count, err := s.resolveRange(req)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadStudent(ctx, studentID); err != nil {
		return nil, err
	}
	snap, err := s.payments.Snapshot(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ledger snapshot")
	}
	closing, expected := closingSet(snap, start, count, asOf)
	preview := &models.PaymentPreview{ClosingSet: closing, ExpectedAmount: expected}
	if reason := validateAmount(req, closing, expected); reason != "" {
		preview.Reason = reason
		return preview, nil
	}
	preview.Valid = true
	return preview, nil
}

// Create applies a payment. With an idempotency key the operation is
// at-most-once: a second submission returns the stored payment unchanged.
func (s *PaymentService) Create(ctx context.Context, studentID string, req PaymentRequest, asOf time.Time) (*PaymentResult, error) {
	start, count, err := s.resolveRange(req)
	if err != nil {
		return nil, err
	}
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student is not active")
	}

	payment, replayed, err := s.payments.Apply(ctx, studentID, req.IdempotencyKey, func(snap models.LedgerSnapshot) (*models.Payment, error) {
		closing, expected := closingSet(snap, start, count, asOf)
		if reason := validateAmount(req, closing, expected); reason != "" {
			return nil, appErrors.Clone(appErrors.ErrConflict, reason)
		}
		amount := expected
		if req.Type == models.PaymentArbitrary {
			amount = *req.Amount
		}
		closed := make([]string, len(closing))
		for i, m := range closing {
			closed[i] = m.String()
		}
		return &models.Payment{
			Type:         req.Type,
			StartMonth:   start,
			MonthCount:   count,
			Amount:       amount,
			ClosedMonths: closed,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	if !replayed {
		s.metrics.RecordPaymentCreated(payment.Amount)
		s.cache.InvalidateStudentFinance(ctx, studentID)
	}

	debt, err := s.debtAfter(ctx, studentID, start, count, asOf)
	if err != nil {
		s.logger.Warn("failed to recompute debt after payment", zap.Error(err))
	}
	return &PaymentResult{Payment: payment, Replayed: replayed, Debt: debt}, nil
}

// Revert flips a payment to REVERTED and reopens its closed months. The
// reopened obligations are recomputed from the tariff and discounts as of
// the next read, not frozen at original payment time. Reverting twice is a
// no-op.
func (s *PaymentService) Revert(ctx context.Context, paymentID string) (*models.Payment, error) {
	payment, changed, err := s.payments.Revert(ctx, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revert payment")
	}
	if changed {
		s.metrics.RecordPaymentReverted()
		s.cache.InvalidateStudentFinance(ctx, payment.StudentID)
	}
	return payment, nil
}

// FinanceDetail assembles the student's finance view: obligations for the
// current academic year, discounts and payments, in one pass.
func (s *PaymentService) FinanceDetail(ctx context.Context, studentID string, asOf time.Time) (*models.StudentFinanceDetail, error) {
	if _, err := s.loadStudent(ctx, studentID); err != nil {
		return nil, err
	}

	var cached models.StudentFinanceDetail
	if hit, _ := s.cache.Get(ctx, FinanceCacheKey(studentID), &cached); hit {
		return &cached, nil
	}

	snap, err := s.payments.Snapshot(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ledger snapshot")
	}
	detail := &models.StudentFinanceDetail{StudentID: studentID}
	if version := snap.VersionFor(models.MonthKeyOf(asOf)); version != nil {
		rows := ComputeObligations(snap, version.EffectiveFrom.Range(12), asOf)
		detail.Obligations = rows
		detail.TotalOwed = OutstandingTotal(rows)
	}
	if detail.Discounts, err = s.payments.ListDiscountsByStudent(ctx, studentID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list discounts")
	}
	if detail.Payments, err = s.payments.ListByStudent(ctx, studentID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}

	if err := s.cache.Set(ctx, FinanceCacheKey(studentID), detail, 0); err != nil {
		s.logger.Debug("finance view cache not updated", zap.Error(err))
	}
	return detail, nil
}

func (s *PaymentService) loadStudent(ctx context.Context, studentID string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

func (s *PaymentService) resolveRange(req PaymentRequest) (models.MonthKey, int, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	start, err := models.ParseMonthKey(req.StartMonth)
	if err != nil {
		return "", 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start month")
	}
	switch req.Type {
	case models.PaymentAnnual:
		if req.MonthCount != nil && *req.MonthCount != 12 {
			return "", 0, appErrors.Clone(appErrors.ErrValidation, "annual payments span exactly 12 months")
		}
		return start, 12, nil
	case models.PaymentArbitrary:
		if req.Amount == nil {
			return "", 0, appErrors.Clone(appErrors.ErrValidation, "arbitrary payments require an amount")
		}
		fallthrough
	default:
		if req.MonthCount == nil {
			return "", 0, appErrors.Clone(appErrors.ErrValidation, "month count is required")
		}
		return start, *req.MonthCount, nil
	}
}

// closingSet selects the months of the range that still carry debt, oldest
// first, and the total obligation they represent.
func closingSet(snap models.LedgerSnapshot, start models.MonthKey, count int, asOf time.Time) ([]models.MonthKey, int64) {
	rows := ComputeObligations(snap, start.Range(count), asOf)
	var (
		closing  []models.MonthKey
		expected int64
	)
	for _, row := range rows {
		if row.Owed > 0 {
			closing = append(closing, row.Month)
			expected += row.Owed
		}
	}
	return closing, expected
}

// validateAmount returns a rejection reason, or "" when the request may
// proceed.
func validateAmount(req PaymentRequest, closing []models.MonthKey, expected int64) string {
	if len(closing) == 0 {
		return "no unpaid months in the requested range"
	}
	if req.Type == models.PaymentArbitrary {
		return ""
	}
	if req.Amount != nil && *req.Amount != expected {
		return "amount does not match the outstanding obligation"
	}
	return ""
}

func (s *PaymentService) debtAfter(ctx context.Context, studentID string, start models.MonthKey, count int, asOf time.Time) ([]models.MonthObligation, error) {
	snap, err := s.payments.Snapshot(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return ComputeObligations(snap, start.Range(count), asOf), nil
}
