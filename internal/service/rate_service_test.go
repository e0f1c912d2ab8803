package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/maktab-fin-api/internal/models"
	appErrors "github.com/noah-isme/maktab-fin-api/pkg/errors"
)

type rateRepoStub struct {
	overlap     bool
	teacherRate *models.PayRate
	subjectRate *models.PayRate
	created     []*models.PayRate
}

func (s *rateRepoStub) CreateExclusive(ctx context.Context, rate *models.PayRate) (bool, error) {
	if s.overlap {
		return false, nil
	}
	s.created = append(s.created, rate)
	return true, nil
}

func (s *rateRepoStub) FindTeacherRate(ctx context.Context, teacherID, subjectID string, onDate time.Time) (*models.PayRate, error) {
	return s.teacherRate, nil
}

func (s *rateRepoStub) FindSubjectDefaultRate(ctx context.Context, subjectID string, onDate time.Time) (*models.PayRate, error) {
	return s.subjectRate, nil
}

func TestCreateTeacherRateRequiresTeacher(t *testing.T) {
	svc := NewRateService(&rateRepoStub{}, nil, nil)
	_, err := svc.CreateTeacherRate(context.Background(), CreateRateRequest{
		SubjectID: "math", RatePerHour: 50000, EffectiveFrom: time.Now(),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateRateOverlapRejected(t *testing.T) {
	teacherID := "t1"
	svc := NewRateService(&rateRepoStub{overlap: true}, nil, nil)
	_, err := svc.CreateTeacherRate(context.Background(), CreateRateRequest{
		TeacherID: &teacherID, SubjectID: "math", RatePerHour: 50000, EffectiveFrom: time.Now(),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestCreateRateInvalidInterval(t *testing.T) {
	teacherID := "t1"
	from := time.Now()
	to := from.Add(-time.Hour)
	svc := NewRateService(&rateRepoStub{}, nil, nil)
	_, err := svc.CreateTeacherRate(context.Background(), CreateRateRequest{
		TeacherID: &teacherID, SubjectID: "math", RatePerHour: 50000,
		EffectiveFrom: from, EffectiveTo: &to,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateSubjectDefaultRateClearsTeacher(t *testing.T) {
	teacherID := "t1"
	repo := &rateRepoStub{}
	svc := NewRateService(repo, nil, nil)
	rate, err := svc.CreateSubjectDefaultRate(context.Background(), CreateRateRequest{
		TeacherID: &teacherID, SubjectID: "math", RatePerHour: 45000, EffectiveFrom: time.Now(),
	})
	require.NoError(t, err)
	assert.Nil(t, rate.TeacherID)
	assert.Equal(t, models.RateScopeSubject, rate.Scope)
}

func TestResolvePrefersTeacherRate(t *testing.T) {
	repo := &rateRepoStub{
		teacherRate: &models.PayRate{RatePerHour: 60000, Scope: models.RateScopeTeacher},
		subjectRate: &models.PayRate{RatePerHour: 40000, Scope: models.RateScopeSubject},
	}
	svc := NewRateService(repo, nil, nil)
	rate, err := svc.Resolve(context.Background(), "t1", "math", time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(60000), rate.RatePerHour)
}

func TestResolveFallsBackToSubjectDefault(t *testing.T) {
	repo := &rateRepoStub{subjectRate: &models.PayRate{RatePerHour: 40000, Scope: models.RateScopeSubject}}
	svc := NewRateService(repo, nil, nil)
	rate, err := svc.Resolve(context.Background(), "t1", "math", time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(40000), rate.RatePerHour)
}

func TestResolveUnresolved(t *testing.T) {
	svc := NewRateService(&rateRepoStub{}, nil, nil)
	_, err := svc.Resolve(context.Background(), "t1", "math", time.Now())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrRateUnresolved.Code, appErrors.FromError(err).Code)
}
