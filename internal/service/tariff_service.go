package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/maktab-fin-api/internal/models"
	appErrors "github.com/noah-isme/maktab-fin-api/pkg/errors"
)

type tariffRepository interface {
	Current(ctx context.Context) (*models.TariffVersion, error)
	FindByID(ctx context.Context, id string) (*models.TariffVersion, error)
	ListVersions(ctx context.Context) ([]models.TariffVersion, error)
	CreateVersion(ctx context.Context, version *models.TariffVersion) error
}

// UpdateTariffRequest describes a tariff settings change.
type UpdateTariffRequest struct {
	MonthlyAmount    int64   `json:"monthly_amount" validate:"required,gt=0"`
	ChargeableMonths []int   `json:"chargeable_months" validate:"required,min=1,max=12"`
	AcademicYear     string  `json:"academic_year" validate:"required"`
	Note             *string `json:"note,omitempty"`
}

// TariffConfig bounds tariff updates against misconfiguration.
type TariffConfig struct {
	MaxMonthlyAmount     int64
	ChargeableMonthCount int
}

// TariffService manages the append-only tariff version history. Updates take
// effect from the following month, never retroactively; rollback re-activates
// an archived version as a fresh row rather than rewriting history.
type TariffService struct {
	repo      tariffRepository
	config    TariffConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTariffService constructs TariffService.
func NewTariffService(repo tariffRepository, config TariffConfig, validate *validator.Validate, logger *zap.Logger) *TariffService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TariffService{repo: repo, config: config, validator: validate, logger: logger}
}

// List returns the version history, newest effective first.
func (s *TariffService) List(ctx context.Context) ([]models.TariffVersion, error) {
	versions, err := s.repo.ListVersions(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tariff versions")
	}
	return versions, nil
}

// UpdateSettings creates a new current version effective next month.
func (s *TariffService) UpdateSettings(ctx context.Context, req UpdateTariffRequest, asOf time.Time) (*models.TariffVersion, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid tariff payload")
	}
	calendar, err := models.NewBillingCalendar(req.ChargeableMonths)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid billing calendar")
	}
	if err := models.ValidateAcademicYear(req.AcademicYear); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid academic year")
	}
	if s.config.ChargeableMonthCount > 0 && calendar.Count() != s.config.ChargeableMonthCount {
		return nil, appErrors.Clone(appErrors.ErrValidation, "chargeable month count does not match billing configuration")
	}
	if s.config.MaxMonthlyAmount > 0 && req.MonthlyAmount > s.config.MaxMonthlyAmount {
		return nil, appErrors.Clone(appErrors.ErrValidation, "monthly amount exceeds the configured bound")
	}

	months := make(pq.Int64Array, len(req.ChargeableMonths))
	for i, m := range req.ChargeableMonths {
		months[i] = int64(m)
	}
	version := &models.TariffVersion{
		MonthlyAmount:    req.MonthlyAmount,
		ChargeableMonths: months,
		AcademicYear:     req.AcademicYear,
		EffectiveFrom:    models.MonthKeyOf(asOf).Next(),
		Note:             req.Note,
	}
	if err := s.repo.CreateVersion(ctx, version); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create tariff version")
	}
	s.logger.Info("tariff updated",
		zap.String("version_id", version.ID),
		zap.Int64("monthly_amount", version.MonthlyAmount),
		zap.String("effective_from", version.EffectiveFrom.String()))
	return version, nil
}

// Rollback re-activates an archived version. The rollback is itself a new
// version effective next month, so the history stays intact.
func (s *TariffService) Rollback(ctx context.Context, versionID string, asOf time.Time) (*models.TariffVersion, error) {
	prior, err := s.repo.FindByID(ctx, versionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tariff version not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tariff version")
	}
	if prior.Current {
		return nil, appErrors.Clone(appErrors.ErrConflict, "version is already current")
	}

	version := &models.TariffVersion{
		MonthlyAmount:    prior.MonthlyAmount,
		ChargeableMonths: prior.ChargeableMonths,
		AcademicYear:     prior.AcademicYear,
		EffectiveFrom:    models.MonthKeyOf(asOf).Next(),
		Note:             prior.Note,
	}
	if err := s.repo.CreateVersion(ctx, version); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to roll back tariff")
	}
	s.logger.Info("tariff rolled back",
		zap.String("restored_from", versionID),
		zap.String("version_id", version.ID))
	return version, nil
}
