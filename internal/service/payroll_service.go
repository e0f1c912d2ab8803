package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/maktab-fin-api/internal/models"
	"github.com/noah-isme/maktab-fin-api/internal/repository"
	appErrors "github.com/noah-isme/maktab-fin-api/pkg/errors"
)

type payrollRepository interface {
	CreateRunWithLines(ctx context.Context, run *models.PayrollRun, lines []models.PayrollLine) error
	FindRunByID(ctx context.Context, id string) (*models.PayrollRun, error)
	FindRunByPeriod(ctx context.Context, period models.MonthKey) (*models.PayrollRun, error)
	ListLines(ctx context.Context, runID string) ([]models.PayrollLine, error)
	AddLineIfDraft(ctx context.Context, runID string, line *models.PayrollLine) (bool, error)
	TransitionRun(ctx context.Context, runID string, from, to models.PayrollRunStatus, paymentMethod, reverseReason *string) (*models.PayrollRun, error)
	RunTotal(ctx context.Context, runID string) (int64, error)
}

type payableLessonLister interface {
	ListPayable(ctx context.Context, period models.MonthKey) ([]models.Lesson, error)
}

type rateResolver interface {
	Resolve(ctx context.Context, teacherID, subjectID string, onDate time.Time) (*models.PayRate, error)
}

// AdjustmentRequest describes a manual line added to a DRAFT run.
type AdjustmentRequest struct {
	PayeeTeacherID string                 `json:"payee_teacher_id" validate:"required"`
	Type           models.PayrollLineType `json:"type" validate:"required,oneof=BONUS PENALTY MANUAL"`
	Amount         int64                  `json:"amount" validate:"required,gt=0"`
	Description    string                 `json:"description" validate:"required"`
}

// TransitionRequest moves a run through its lifecycle.
type TransitionRequest struct {
	To            models.PayrollRunStatus `json:"to" validate:"required,oneof=APPROVED PAID REVERSED"`
	PaymentMethod *string                 `json:"payment_method,omitempty"`
	ReverseReason *string                 `json:"reverse_reason,omitempty"`
}

// PayrollService generates and shepherds payroll runs. A run snapshots the
// period's payable lessons as lines at generation time; once APPROVED the
// lines are frozen and later rate or lesson changes do not touch them.
type PayrollService struct {
	runs      payrollRepository
	lessons   payableLessonLister
	rates     rateResolver
	metrics   *MetricsService
	rounding  int64
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPayrollService constructs PayrollService. roundingUnit is the smallest
// soum step lesson amounts are rounded to; 1 keeps exact soums.
func NewPayrollService(runs payrollRepository, lessons payableLessonLister, rates rateResolver, metrics *MetricsService, roundingUnit int64, validate *validator.Validate, logger *zap.Logger) *PayrollService {
	if roundingUnit <= 0 {
		roundingUnit = 1
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PayrollService{
		runs:      runs,
		lessons:   lessons,
		rates:     rates,
		metrics:   metrics,
		rounding:  roundingUnit,
		validator: validate,
		logger:    logger,
	}
}

// GenerateRun builds a DRAFT run for a period month from its payable lessons.
// At most one run may exist per period; regeneration requires reversing the
// existing run first.
func (s *PayrollService) GenerateRun(ctx context.Context, period models.MonthKey) (*models.PayrollRunDetail, error) {
	if !period.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid period month")
	}
	if existing, err := s.runs.FindRunByPeriod(ctx, period); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing run")
	} else if existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a payroll run already exists for this period")
	}

	lessons, err := s.lessons.ListPayable(ctx, period)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payable lessons")
	}

	lines := make([]models.PayrollLine, 0, len(lessons))
	for i := range lessons {
		line, err := s.priceLesson(ctx, &lessons[i])
		if err != nil {
			return nil, err
		}
		lines = append(lines, *line)
	}

	run := &models.PayrollRun{PeriodMonth: period}
	if err := s.runs.CreateRunWithLines(ctx, run, lines); err != nil {
		if repository.IsUniqueViolation(err) || repository.IsSerializationFailure(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a payroll run already exists for this period")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create payroll run")
	}

	s.metrics.RecordPayrollRunGenerated()
	s.logger.Info("payroll run generated",
		zap.String("run_id", run.ID),
		zap.String("period", period.String()),
		zap.Int("lines", len(lines)))
	return s.detail(ctx, run)
}

// priceLesson turns one payable lesson into a line: duration in hours times
// the rate resolved for the payee on the lesson date, rounded to the
// configured unit.
func (s *PayrollService) priceLesson(ctx context.Context, lesson *models.Lesson) (*models.PayrollLine, error) {
	payee := lesson.PayeeTeacherID()
	if payee == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "lesson has no payable teacher")
	}
	rate, err := s.rates.Resolve(ctx, payee, lesson.SubjectID, lesson.StartAt)
	if err != nil {
		return nil, err
	}

	hours := decimal.NewFromFloat(lesson.Duration().Hours())
	amount := hours.Mul(decimal.NewFromInt(rate.RatePerHour))
	if s.rounding > 1 {
		unit := decimal.NewFromInt(s.rounding)
		amount = amount.Div(unit).Round(0).Mul(unit)
	}
	lessonID := lesson.ID
	return &models.PayrollLine{
		PayeeTeacherID: payee,
		Type:           models.LineLesson,
		Amount:         amount.Round(0).IntPart(),
		Description:    fmt.Sprintf("lesson %s on %s", lesson.SubjectID, lesson.StartAt.Format("2006-01-02")),
		SourceLessonID: &lessonID,
	}, nil
}

// AddAdjustment appends a manual line to a DRAFT run. PENALTY amounts are
// stored negative so the run total nets them out.
func (s *PayrollService) AddAdjustment(ctx context.Context, runID string, req AdjustmentRequest) (*models.PayrollLine, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid adjustment payload")
	}

	amount := req.Amount
	if req.Type == models.LinePenalty {
		amount = -amount
	}
	line := &models.PayrollLine{
		PayeeTeacherID: req.PayeeTeacherID,
		Type:           req.Type,
		Amount:         amount,
		Description:    req.Description,
	}
	added, err := s.runs.AddLineIfDraft(ctx, runID, line)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payroll run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add adjustment")
	}
	if !added {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "adjustments are only allowed while the run is DRAFT")
	}
	return line, nil
}

// Transition moves a run through DRAFT -> APPROVED -> PAID, or to REVERSED
// from any non-terminal state. PAID requires a payment method; REVERSED
// requires a reason.
func (s *PayrollService) Transition(ctx context.Context, runID string, req TransitionRequest) (*models.PayrollRun, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transition payload")
	}
	switch req.To {
	case models.RunPaid:
		if req.PaymentMethod == nil || *req.PaymentMethod == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "paying a run requires a payment method")
		}
	case models.RunReversed:
		if req.ReverseReason == nil || *req.ReverseReason == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "reversing a run requires a reason")
		}
	}

	run, err := s.runs.FindRunByID(ctx, runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payroll run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payroll run")
	}
	if !run.Status.CanTransitionTo(req.To) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot move run from %s to %s", run.Status, req.To))
	}

	updated, err := s.runs.TransitionRun(ctx, runID, run.Status, req.To, req.PaymentMethod, req.ReverseReason)
	if err != nil {
		if errors.Is(err, repository.ErrNoActiveRow) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "run state changed concurrently, retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to transition payroll run")
	}

	s.metrics.RecordPayrollTransition(string(req.To))
	s.logger.Info("payroll run transitioned",
		zap.String("run_id", runID),
		zap.String("from", string(run.Status)),
		zap.String("to", string(req.To)))
	return updated, nil
}

// GetRun returns the run with its lines and total.
func (s *PayrollService) GetRun(ctx context.Context, runID string) (*models.PayrollRunDetail, error) {
	run, err := s.runs.FindRunByID(ctx, runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payroll run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payroll run")
	}
	return s.detail(ctx, run)
}

func (s *PayrollService) detail(ctx context.Context, run *models.PayrollRun) (*models.PayrollRunDetail, error) {
	lines, err := s.runs.ListLines(ctx, run.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list run lines")
	}
	total, err := s.runs.RunTotal(ctx, run.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to total run")
	}
	return &models.PayrollRunDetail{PayrollRun: *run, Lines: lines, Total: total}, nil
}
