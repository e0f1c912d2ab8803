package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/maktab-fin-api/internal/models"
	"github.com/noah-isme/maktab-fin-api/internal/repository"
	appErrors "github.com/noah-isme/maktab-fin-api/pkg/errors"
)

type discountRepository interface {
	CreateExclusive(ctx context.Context, discount *models.Discount) (bool, error)
	Deactivate(ctx context.Context, id, reason string) error
	FindByID(ctx context.Context, id string) (*models.Discount, error)
}

// CreateDiscountRequest describes a discount creation payload.
type CreateDiscountRequest struct {
	Type       models.DiscountType `json:"type" validate:"required,oneof=PERCENT FIXED FULL_WAIVER"`
	Value      *int64              `json:"value,omitempty"`
	StartMonth string              `json:"start_month" validate:"required"`
	MonthCount int                 `json:"month_count" validate:"required,min=1,max=24"`
	Reason     string              `json:"reason" validate:"required"`
}

// DeactivateDiscountRequest carries the deactivation reason.
type DeactivateDiscountRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// DiscountService manages tuition discounts. Discounts never rewrite months
// already closed by payments; they shape obligations from the next ledger
// read onward.
type DiscountService struct {
	discounts discountRepository
	students  studentReader
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDiscountService constructs DiscountService.
func NewDiscountService(discounts discountRepository, students studentReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *DiscountService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiscountService{discounts: discounts, students: students, cache: cache, validator: validate, logger: logger}
}

// Create validates the type-specific constraints and inserts the discount.
// A month range overlapping another ACTIVE discount of the student is
// rejected: the ledger requires at most one active discount per month.
func (s *DiscountService) Create(ctx context.Context, studentID string, req CreateDiscountRequest) (*models.Discount, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid discount payload")
	}
	start, err := models.ParseMonthKey(req.StartMonth)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start month")
	}
	if msg := validateDiscountValue(req.Type, req.Value); msg != "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, msg)
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	discount := &models.Discount{
		StudentID:  student.ID,
		Type:       req.Type,
		Value:      req.Value,
		StartMonth: start,
		MonthCount: req.MonthCount,
		Reason:     req.Reason,
	}
	created, err := s.discounts.CreateExclusive(ctx, discount)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create discount")
	}
	if !created {
		return nil, appErrors.Clone(appErrors.ErrConflict, "an active discount already covers part of this range")
	}

	s.cache.InvalidateStudentFinance(ctx, studentID)
	return discount, nil
}

// Deactivate retires a discount with a reason. The row is kept for the audit
// trail.
func (s *DiscountService) Deactivate(ctx context.Context, discountID string, req DeactivateDiscountRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid deactivation payload")
	}
	discount, err := s.discounts.FindByID(ctx, discountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "discount not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load discount")
	}
	if err := s.discounts.Deactivate(ctx, discountID, req.Reason); err != nil {
		if errors.Is(err, repository.ErrNoActiveRow) {
			return appErrors.Clone(appErrors.ErrConflict, "discount is already inactive")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate discount")
	}

	s.cache.InvalidateStudentFinance(ctx, discount.StudentID)
	return nil
}

func validateDiscountValue(t models.DiscountType, value *int64) string {
	switch t {
	case models.DiscountPercent:
		if value == nil || *value < 1 || *value > 99 {
			return "percent discounts require a value between 1 and 99"
		}
	case models.DiscountFixed:
		if value == nil || *value <= 0 {
			return "fixed discounts require a positive value"
		}
	case models.DiscountFullWaiver:
		if value != nil {
			return "full waivers do not take a value"
		}
	}
	return ""
}
