package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/maktab-fin-api/internal/models"
	appErrors "github.com/noah-isme/maktab-fin-api/pkg/errors"
)

type lessonRepository interface {
	Create(ctx context.Context, lesson *models.Lesson) error
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
	List(ctx context.Context, filter models.LessonFilter) ([]models.Lesson, int, error)
	ListPayable(ctx context.Context, period models.MonthKey) ([]models.Lesson, error)
}

// RecordLessonRequest describes a real lesson record payload.
type RecordLessonRequest struct {
	TeacherID         string              `json:"teacher_id" validate:"required"`
	SubjectID         string              `json:"subject_id" validate:"required"`
	ClassroomID       string              `json:"classroom_id" validate:"required"`
	StartAt           time.Time           `json:"start_at" validate:"required"`
	EndAt             time.Time           `json:"end_at" validate:"required"`
	Status            models.LessonStatus `json:"status" validate:"required,oneof=DONE CANCELED REPLACED"`
	ReplacedByTeacher *string             `json:"replaced_by_teacher,omitempty"`
}

// LessonService records the lessons that actually happened, which payroll
// later prices. Records are append-only; corrections go through new records.
type LessonService struct {
	lessons   lessonRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLessonService constructs LessonService.
func NewLessonService(lessons lessonRepository, validate *validator.Validate, logger *zap.Logger) *LessonService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LessonService{lessons: lessons, validator: validate, logger: logger}
}

// Record validates and stores one lesson record.
func (s *LessonService) Record(ctx context.Context, req RecordLessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}
	startAt := req.StartAt.UTC()
	endAt := req.EndAt.UTC()
	if !endAt.After(startAt) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "lesson must end after it starts")
	}
	switch req.Status {
	case models.LessonReplaced:
		if req.ReplacedByTeacher == nil || *req.ReplacedByTeacher == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "replaced lessons require the substitute teacher")
		}
		if *req.ReplacedByTeacher == req.TeacherID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "substitute teacher must differ from the scheduled teacher")
		}
	default:
		if req.ReplacedByTeacher != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "only replaced lessons carry a substitute teacher")
		}
	}

	lesson := &models.Lesson{
		TeacherID:         req.TeacherID,
		SubjectID:         req.SubjectID,
		ClassroomID:       req.ClassroomID,
		StartAt:           startAt,
		EndAt:             endAt,
		Status:            req.Status,
		ReplacedByTeacher: req.ReplacedByTeacher,
	}
	if err := s.lessons.Create(ctx, lesson); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record lesson")
	}
	s.logger.Info("lesson recorded",
		zap.String("lesson_id", lesson.ID),
		zap.String("teacher_id", lesson.TeacherID),
		zap.String("status", string(lesson.Status)))
	return lesson, nil
}

// List returns lessons matching the filter with pagination.
func (s *LessonService) List(ctx context.Context, filter models.LessonFilter) ([]models.Lesson, int, error) {
	lessons, total, err := s.lessons.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lessons")
	}
	return lessons, total, nil
}
