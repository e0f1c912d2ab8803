package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/maktab-fin-api/internal/models"
	"github.com/noah-isme/maktab-fin-api/pkg/database"
)

const tariffColumns = `id, monthly_amount, chargeable_months, academic_year, effective_from, current, note, created_at, archived_at`

// TariffRepository persists the append-only tariff version history.
type TariffRepository struct {
	db *sqlx.DB
}

// NewTariffRepository creates a new tariff repository.
func NewTariffRepository(db *sqlx.DB) *TariffRepository {
	return &TariffRepository{db: db}
}

// Current returns the version marked current.
func (r *TariffRepository) Current(ctx context.Context) (*models.TariffVersion, error) {
	query := fmt.Sprintf(`SELECT %s FROM tariff_versions WHERE current = TRUE`, tariffColumns)
	var version models.TariffVersion
	if err := r.db.GetContext(ctx, &version, query); err != nil {
		return nil, err
	}
	return &version, nil
}

// FindByID returns a single version row.
func (r *TariffRepository) FindByID(ctx context.Context, id string) (*models.TariffVersion, error) {
	query := fmt.Sprintf(`SELECT %s FROM tariff_versions WHERE id = $1`, tariffColumns)
	var version models.TariffVersion
	if err := r.db.GetContext(ctx, &version, query, id); err != nil {
		return nil, err
	}
	return &version, nil
}

// ListVersions returns the full history, newest effective first.
func (r *TariffRepository) ListVersions(ctx context.Context) ([]models.TariffVersion, error) {
	query := fmt.Sprintf(`SELECT %s FROM tariff_versions ORDER BY effective_from DESC, created_at DESC`, tariffColumns)
	var versions []models.TariffVersion
	if err := r.db.SelectContext(ctx, &versions, query); err != nil {
		return nil, fmt.Errorf("list tariff versions: %w", err)
	}
	return versions, nil
}

// CreateVersion archives the current version and inserts the new one as a
// single atomic unit; the partial unique index on current keeps two writers
// from both ending up current.
func (r *TariffRepository) CreateVersion(ctx context.Context, version *models.TariffVersion) error {
	return database.RunSerializable(ctx, r.db, func(tx *sqlx.Tx) error {
		now := time.Now().UTC()
		const archive = `UPDATE tariff_versions SET current = FALSE, archived_at = $1 WHERE current = TRUE`
		if _, err := tx.ExecContext(ctx, archive, now); err != nil {
			return fmt.Errorf("archive current tariff: %w", err)
		}

		version.ID = uuid.NewString()
		version.Current = true
		version.CreatedAt = now
		version.ArchivedAt = nil

		const insert = `INSERT INTO tariff_versions (id, monthly_amount, chargeable_months, academic_year, effective_from, current, note, created_at)
            VALUES (:id, :monthly_amount, :chargeable_months, :academic_year, :effective_from, :current, :note, :created_at)`
		if _, err := tx.NamedExecContext(ctx, insert, version); err != nil {
			return fmt.Errorf("insert tariff version: %w", err)
		}
		return nil
	})
}
