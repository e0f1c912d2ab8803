package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/maktab-fin-api/internal/models"
	"github.com/noah-isme/maktab-fin-api/internal/repository"
	appErrors "github.com/noah-isme/maktab-fin-api/pkg/errors"
)

type studentRepository interface {
	Create(ctx context.Context, student *models.Student) error
	FindByID(ctx context.Context, id string) (*models.Student, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
}

// CreateStudentRequest describes a roster entry.
type CreateStudentRequest struct {
	Code         string     `json:"code" validate:"required"`
	FullName     string     `json:"full_name" validate:"required"`
	ClassroomID  *string    `json:"classroom_id,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	EnrolledFrom time.Time  `json:"enrolled_from" validate:"required"`
	EnrolledTo   *time.Time `json:"enrolled_to,omitempty"`
}

// StudentService manages the minimal student roster the tuition ledger bills
// against.
type StudentService struct {
	students  studentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(students studentRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{students: students, validator: validate, logger: logger}
}

// Create registers a student. Codes are unique across the roster.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if req.EnrolledTo != nil && !req.EnrolledTo.After(req.EnrolledFrom) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "enrollment must end after it starts")
	}

	student := &models.Student{
		Code:         req.Code,
		FullName:     req.FullName,
		ClassroomID:  req.ClassroomID,
		Phone:        req.Phone,
		EnrolledFrom: req.EnrolledFrom.UTC(),
		EnrolledTo:   req.EnrolledTo,
		Active:       true,
	}
	if err := s.students.Create(ctx, student); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student code already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return student, nil
}

// Get returns one student.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// List returns students matching the filter with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}
