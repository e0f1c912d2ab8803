package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/maktab-fin-api/internal/models"
	"github.com/noah-isme/maktab-fin-api/pkg/database"
)

const rateColumns = `id, scope, teacher_id, subject_id, rate_per_hour, effective_from, effective_to, created_at`

// RateRepository persists hourly pay rates, append-only per scope.
type RateRepository struct {
	db *sqlx.DB
}

// NewRateRepository creates a new rate repository.
func NewRateRepository(db *sqlx.DB) *RateRepository {
	return &RateRepository{db: db}
}

// CreateExclusive inserts the rate after checking, in the same serializable
// unit, that its [effective_from, effective_to) interval does not overlap an
// existing row of the same scope. Returns false without inserting on overlap.
func (r *RateRepository) CreateExclusive(ctx context.Context, rate *models.PayRate) (bool, error) {
	created := false
	err := database.RunSerializable(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `SELECT COUNT(*) FROM pay_rates
            WHERE scope = $1 AND subject_id = $2 AND teacher_id IS NOT DISTINCT FROM $3
            AND effective_from < COALESCE($5, 'infinity'::timestamptz)
            AND COALESCE(effective_to, 'infinity'::timestamptz) > $4`
		var overlapping int
		if err := tx.GetContext(ctx, &overlapping, query, rate.Scope, rate.SubjectID, rate.TeacherID, rate.EffectiveFrom, rate.EffectiveTo); err != nil {
			return fmt.Errorf("check rate overlap: %w", err)
		}
		if overlapping > 0 {
			return nil
		}

		rate.ID = uuid.NewString()
		rate.CreatedAt = time.Now().UTC()
		const insert = `INSERT INTO pay_rates (id, scope, teacher_id, subject_id, rate_per_hour, effective_from, effective_to, created_at)
            VALUES (:id, :scope, :teacher_id, :subject_id, :rate_per_hour, :effective_from, :effective_to, :created_at)`
		if _, err := tx.NamedExecContext(ctx, insert, rate); err != nil {
			return fmt.Errorf("insert rate: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// FindTeacherRate returns the teacher+subject rate effective on the date, or
// nil when none covers it.
func (r *RateRepository) FindTeacherRate(ctx context.Context, teacherID, subjectID string, onDate time.Time) (*models.PayRate, error) {
	query := fmt.Sprintf(`SELECT %s FROM pay_rates
        WHERE scope = $1 AND teacher_id = $2 AND subject_id = $3
        AND effective_from <= $4 AND COALESCE(effective_to, 'infinity'::timestamptz) > $4`, rateColumns)
	var rate models.PayRate
	err := r.db.GetContext(ctx, &rate, query, models.RateScopeTeacher, teacherID, subjectID, onDate)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find teacher rate: %w", err)
	}
	return &rate, nil
}

// FindSubjectDefaultRate returns the subject default rate effective on the
// date, or nil when none covers it.
func (r *RateRepository) FindSubjectDefaultRate(ctx context.Context, subjectID string, onDate time.Time) (*models.PayRate, error) {
	query := fmt.Sprintf(`SELECT %s FROM pay_rates
        WHERE scope = $1 AND subject_id = $2
        AND effective_from <= $3 AND COALESCE(effective_to, 'infinity'::timestamptz) > $3`, rateColumns)
	var rate models.PayRate
	err := r.db.GetContext(ctx, &rate, query, models.RateScopeSubject, subjectID, onDate)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find subject default rate: %w", err)
	}
	return &rate, nil
}
