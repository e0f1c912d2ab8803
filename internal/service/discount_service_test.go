package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/maktab-fin-api/internal/models"
	"github.com/noah-isme/maktab-fin-api/internal/repository"
	appErrors "github.com/noah-isme/maktab-fin-api/pkg/errors"
)

type discountRepoStub struct {
	overlap  bool
	existing *models.Discount
}

func (s *discountRepoStub) CreateExclusive(ctx context.Context, discount *models.Discount) (bool, error) {
	if s.overlap {
		return false, nil
	}
	discount.ID = "d1"
	discount.Active = true
	s.existing = discount
	return true, nil
}

func (s *discountRepoStub) Deactivate(ctx context.Context, id, reason string) error {
	if s.existing == nil || s.existing.ID != id {
		return sql.ErrNoRows
	}
	if !s.existing.Active {
		return repository.ErrNoActiveRow
	}
	s.existing.Active = false
	s.existing.DeactivateReason = &reason
	return nil
}

func (s *discountRepoStub) FindByID(ctx context.Context, id string) (*models.Discount, error) {
	if s.existing == nil || s.existing.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.existing, nil
}

func newDiscountService(repo *discountRepoStub) *DiscountService {
	return NewDiscountService(repo, &studentStub{student: activeStudent()}, nil, nil, nil)
}

func TestCreateDiscountPercentBounds(t *testing.T) {
	svc := newDiscountService(&discountRepoStub{})
	for _, bad := range []int64{0, 100, 150, -5} {
		value := bad
		_, err := svc.Create(context.Background(), "s1", CreateDiscountRequest{
			Type: models.DiscountPercent, Value: &value,
			StartMonth: "2025-09", MonthCount: 3, Reason: "imtiyoz",
		})
		require.Error(t, err, "value %d", bad)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
}

func TestCreateDiscountFullWaiverForbidsValue(t *testing.T) {
	svc := newDiscountService(&discountRepoStub{})
	value := int64(50)
	_, err := svc.Create(context.Background(), "s1", CreateDiscountRequest{
		Type: models.DiscountFullWaiver, Value: &value,
		StartMonth: "2025-09", MonthCount: 3, Reason: "orphan support",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateDiscountOverlapRejected(t *testing.T) {
	svc := newDiscountService(&discountRepoStub{overlap: true})
	value := int64(30)
	_, err := svc.Create(context.Background(), "s1", CreateDiscountRequest{
		Type: models.DiscountPercent, Value: &value,
		StartMonth: "2025-09", MonthCount: 3, Reason: "imtiyoz",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestCreateDiscountSuccess(t *testing.T) {
	repo := &discountRepoStub{}
	svc := newDiscountService(repo)
	value := int64(50)
	discount, err := svc.Create(context.Background(), "s1", CreateDiscountRequest{
		Type: models.DiscountPercent, Value: &value,
		StartMonth: "2025-09", MonthCount: 10, Reason: "imtiyoz",
	})
	require.NoError(t, err)
	assert.True(t, discount.Active)
	assert.Equal(t, models.MonthKey("2026-06"), discount.EndMonth())
}

func TestDeactivateDiscountTwice(t *testing.T) {
	repo := &discountRepoStub{}
	svc := newDiscountService(repo)
	value := int64(50)
	discount, err := svc.Create(context.Background(), "s1", CreateDiscountRequest{
		Type: models.DiscountPercent, Value: &value,
		StartMonth: "2025-09", MonthCount: 3, Reason: "imtiyoz",
	})
	require.NoError(t, err)

	err = svc.Deactivate(context.Background(), discount.ID, DeactivateDiscountRequest{Reason: "left school"})
	require.NoError(t, err)
	assert.False(t, repo.existing.Active)

	err = svc.Deactivate(context.Background(), discount.ID, DeactivateDiscountRequest{Reason: "left school"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestDeactivateUnknownDiscount(t *testing.T) {
	svc := newDiscountService(&discountRepoStub{})
	err := svc.Deactivate(context.Background(), "missing", DeactivateDiscountRequest{Reason: "x"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
