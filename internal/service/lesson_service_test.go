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

type lessonRepoStub struct {
	lessons []models.Lesson
}

func (s *lessonRepoStub) Create(ctx context.Context, lesson *models.Lesson) error {
	lesson.ID = uuid.NewString()
	lesson.CreatedAt = time.Now().UTC()
	s.lessons = append(s.lessons, *lesson)
	return nil
}

func (s *lessonRepoStub) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	for i := range s.lessons {
		if s.lessons[i].ID == id {
			return &s.lessons[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *lessonRepoStub) List(ctx context.Context, filter models.LessonFilter) ([]models.Lesson, int, error) {
	return s.lessons, len(s.lessons), nil
}

func (s *lessonRepoStub) ListPayable(ctx context.Context, period models.MonthKey) ([]models.Lesson, error) {
	return s.lessons, nil
}

func lessonRequest(status models.LessonStatus) RecordLessonRequest {
	start := time.Date(2025, 9, 3, 9, 0, 0, 0, time.UTC)
	return RecordLessonRequest{
		TeacherID:   "t1",
		SubjectID:   "math",
		ClassroomID: "5A",
		StartAt:     start,
		EndAt:       start.Add(45 * time.Minute),
		Status:      status,
	}
}

func TestRecordLessonDone(t *testing.T) {
	repo := &lessonRepoStub{}
	svc := NewLessonService(repo, nil, nil)

	lesson, err := svc.Record(context.Background(), lessonRequest(models.LessonDone))
	require.NoError(t, err)
	assert.NotEmpty(t, lesson.ID)
	assert.Equal(t, 45*time.Minute, lesson.Duration())
}

func TestRecordLessonEndBeforeStart(t *testing.T) {
	svc := NewLessonService(&lessonRepoStub{}, nil, nil)

	req := lessonRequest(models.LessonDone)
	req.EndAt = req.StartAt.Add(-time.Minute)
	_, err := svc.Record(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRecordReplacedRequiresSubstitute(t *testing.T) {
	svc := NewLessonService(&lessonRepoStub{}, nil, nil)

	_, err := svc.Record(context.Background(), lessonRequest(models.LessonReplaced))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRecordReplacedSubstituteMustDiffer(t *testing.T) {
	svc := NewLessonService(&lessonRepoStub{}, nil, nil)

	req := lessonRequest(models.LessonReplaced)
	same := req.TeacherID
	req.ReplacedByTeacher = &same
	_, err := svc.Record(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRecordDoneForbidsSubstitute(t *testing.T) {
	svc := NewLessonService(&lessonRepoStub{}, nil, nil)

	substitute := "t2"
	req := lessonRequest(models.LessonDone)
	req.ReplacedByTeacher = &substitute
	_, err := svc.Record(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRecordReplacedWithSubstitute(t *testing.T) {
	repo := &lessonRepoStub{}
	svc := NewLessonService(repo, nil, nil)

	substitute := "t2"
	req := lessonRequest(models.LessonReplaced)
	req.ReplacedByTeacher = &substitute
	lesson, err := svc.Record(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "t2", lesson.PayeeTeacherID())
}
