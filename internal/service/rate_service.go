package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/maktab-fin-api/internal/models"
	appErrors "github.com/noah-isme/maktab-fin-api/pkg/errors"
)

type rateRepository interface {
	CreateExclusive(ctx context.Context, rate *models.PayRate) (bool, error)
	FindTeacherRate(ctx context.Context, teacherID, subjectID string, onDate time.Time) (*models.PayRate, error)
	FindSubjectDefaultRate(ctx context.Context, subjectID string, onDate time.Time) (*models.PayRate, error)
}

// CreateRateRequest describes a rate row for either scope.
type CreateRateRequest struct {
	TeacherID     *string    `json:"teacher_id,omitempty"`
	SubjectID     string     `json:"subject_id" validate:"required"`
	RatePerHour   int64      `json:"rate_per_hour" validate:"required,gt=0"`
	EffectiveFrom time.Time  `json:"effective_from" validate:"required"`
	EffectiveTo   *time.Time `json:"effective_to,omitempty"`
}

// RateService versions hourly pay rates and resolves the rate a lesson is
// priced at: teacher+subject first, subject default as fallback.
type RateService struct {
	repo      rateRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRateService constructs RateService.
func NewRateService(repo rateRepository, validate *validator.Validate, logger *zap.Logger) *RateService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateService{repo: repo, validator: validate, logger: logger}
}

// CreateTeacherRate inserts a teacher-scoped rate row.
func (s *RateService) CreateTeacherRate(ctx context.Context, req CreateRateRequest) (*models.PayRate, error) {
	if req.TeacherID == nil || *req.TeacherID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher rates require a teacher id")
	}
	return s.create(ctx, models.RateScopeTeacher, req)
}

// CreateSubjectDefaultRate inserts a subject-scoped fallback rate row.
func (s *RateService) CreateSubjectDefaultRate(ctx context.Context, req CreateRateRequest) (*models.PayRate, error) {
	req.TeacherID = nil
	return s.create(ctx, models.RateScopeSubject, req)
}

func (s *RateService) create(ctx context.Context, scope models.RateScope, req CreateRateRequest) (*models.PayRate, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rate payload")
	}
	if req.EffectiveTo != nil && !req.EffectiveTo.After(req.EffectiveFrom) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "effective_to must be after effective_from")
	}

	rate := &models.PayRate{
		Scope:         scope,
		TeacherID:     req.TeacherID,
		SubjectID:     req.SubjectID,
		RatePerHour:   req.RatePerHour,
		EffectiveFrom: req.EffectiveFrom.UTC(),
	}
	if req.EffectiveTo != nil {
		to := req.EffectiveTo.UTC()
		rate.EffectiveTo = &to
	}
	created, err := s.repo.CreateExclusive(ctx, rate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create rate")
	}
	if !created {
		return nil, appErrors.Clone(appErrors.ErrConflict, "rate interval overlaps an existing rate for this scope")
	}
	return rate, nil
}

// Resolve returns the rate applicable for a teacher/subject on a date. When
// neither a teacher rate nor a subject default covers the date the lesson
// cannot be priced.
func (s *RateService) Resolve(ctx context.Context, teacherID, subjectID string, onDate time.Time) (*models.PayRate, error) {
	if teacherID == "" || subjectID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher and subject are required")
	}
	rate, err := s.repo.FindTeacherRate(ctx, teacherID, subjectID, onDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve teacher rate")
	}
	if rate != nil {
		return rate, nil
	}
	rate, err = s.repo.FindSubjectDefaultRate(ctx, subjectID, onDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve subject default rate")
	}
	if rate != nil {
		return rate, nil
	}
	return nil, appErrors.Clone(appErrors.ErrRateUnresolved, "no pay rate covers the lesson date")
}
