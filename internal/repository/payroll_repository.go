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

const runColumns = `id, period_month, status, payment_method, paid_at, reversed_at, reverse_reason, created_at, updated_at`
const lineColumns = `id, run_id, payee_teacher_id, type, amount, description, source_lesson_id, created_at`

// PayrollRepository persists payroll runs and their lines.
type PayrollRepository struct {
	db *sqlx.DB
}

// NewPayrollRepository creates a new payroll repository.
func NewPayrollRepository(db *sqlx.DB) *PayrollRepository {
	return &PayrollRepository{db: db}
}

// CreateRunWithLines inserts a DRAFT run and its lesson lines atomically.
// The unique index on period_month enforces one run per period; a losing
// concurrent generation surfaces as a unique violation.
func (r *PayrollRepository) CreateRunWithLines(ctx context.Context, run *models.PayrollRun, lines []models.PayrollLine) error {
	return database.RunSerializable(ctx, r.db, func(tx *sqlx.Tx) error {
		now := time.Now().UTC()
		run.ID = uuid.NewString()
		run.Status = models.RunDraft
		run.CreatedAt = now
		run.UpdatedAt = now

		const insertRun = `INSERT INTO payroll_runs (id, period_month, status, created_at, updated_at)
            VALUES (:id, :period_month, :status, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, insertRun, run); err != nil {
			return fmt.Errorf("insert payroll run: %w", err)
		}

		for i := range lines {
			lines[i].ID = uuid.NewString()
			lines[i].RunID = run.ID
			lines[i].CreatedAt = now
			const insertLine = `INSERT INTO payroll_lines (id, run_id, payee_teacher_id, type, amount, description, source_lesson_id, created_at)
                VALUES (:id, :run_id, :payee_teacher_id, :type, :amount, :description, :source_lesson_id, :created_at)`
			if _, err := tx.NamedExecContext(ctx, insertLine, lines[i]); err != nil {
				return fmt.Errorf("insert payroll line: %w", err)
			}
		}
		return nil
	})
}

// FindRunByID returns a run row.
func (r *PayrollRepository) FindRunByID(ctx context.Context, id string) (*models.PayrollRun, error) {
	query := fmt.Sprintf(`SELECT %s FROM payroll_runs WHERE id = $1`, runColumns)
	var run models.PayrollRun
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		return nil, err
	}
	return &run, nil
}

// FindRunByPeriod returns the run for a period month, if any.
func (r *PayrollRepository) FindRunByPeriod(ctx context.Context, period models.MonthKey) (*models.PayrollRun, error) {
	query := fmt.Sprintf(`SELECT %s FROM payroll_runs WHERE period_month = $1`, runColumns)
	var run models.PayrollRun
	err := r.db.GetContext(ctx, &run, query, period)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find run by period: %w", err)
	}
	return &run, nil
}

// ListLines returns the run's lines, oldest first.
func (r *PayrollRepository) ListLines(ctx context.Context, runID string) ([]models.PayrollLine, error) {
	query := fmt.Sprintf(`SELECT %s FROM payroll_lines WHERE run_id = $1 ORDER BY created_at ASC, id ASC`, lineColumns)
	var lines []models.PayrollLine
	if err := r.db.SelectContext(ctx, &lines, query, runID); err != nil {
		return nil, fmt.Errorf("list payroll lines: %w", err)
	}
	return lines, nil
}

// AddLineIfDraft appends an adjustment line only while the run is DRAFT, as
// one atomic unit. Returns false when the run exists but is frozen.
func (r *PayrollRepository) AddLineIfDraft(ctx context.Context, runID string, line *models.PayrollLine) (bool, error) {
	added := false
	err := database.RunSerializable(ctx, r.db, func(tx *sqlx.Tx) error {
		var status models.PayrollRunStatus
		if err := tx.GetContext(ctx, &status, `SELECT status FROM payroll_runs WHERE id = $1 FOR UPDATE`, runID); err != nil {
			return err
		}
		if !status.Mutable() {
			return nil
		}

		line.ID = uuid.NewString()
		line.RunID = runID
		line.CreatedAt = time.Now().UTC()
		const insert = `INSERT INTO payroll_lines (id, run_id, payee_teacher_id, type, amount, description, source_lesson_id, created_at)
            VALUES (:id, :run_id, :payee_teacher_id, :type, :amount, :description, :source_lesson_id, :created_at)`
		if _, err := tx.NamedExecContext(ctx, insert, line); err != nil {
			return fmt.Errorf("insert adjustment line: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE payroll_runs SET updated_at = $1 WHERE id = $2`, line.CreatedAt, runID); err != nil {
			return fmt.Errorf("touch payroll run: %w", err)
		}
		added = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return added, nil
}

// TransitionRun moves the run from one lifecycle state to another, guarded by
// the expected source state so concurrent transitions cannot both win.
func (r *PayrollRepository) TransitionRun(ctx context.Context, runID string, from, to models.PayrollRunStatus, paymentMethod, reverseReason *string) (*models.PayrollRun, error) {
	var result *models.PayrollRun
	err := database.RunSerializable(ctx, r.db, func(tx *sqlx.Tx) error {
		now := time.Now().UTC()
		query := `UPDATE payroll_runs SET status = $1, updated_at = $2`
		args := []interface{}{to, now}
		switch to {
		case models.RunPaid:
			query += fmt.Sprintf(", payment_method = $%d, paid_at = $%d", len(args)+1, len(args)+2)
			args = append(args, paymentMethod, now)
		case models.RunReversed:
			query += fmt.Sprintf(", reversed_at = $%d, reverse_reason = $%d", len(args)+1, len(args)+2)
			args = append(args, now, reverseReason)
		}
		query += fmt.Sprintf(" WHERE id = $%d AND status = $%d", len(args)+1, len(args)+2)
		args = append(args, runID, from)

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("transition payroll run: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("transition payroll run: %w", err)
		}
		if affected == 0 {
			return ErrNoActiveRow
		}

		selectQuery := fmt.Sprintf(`SELECT %s FROM payroll_runs WHERE id = $1`, runColumns)
		var run models.PayrollRun
		if err := tx.GetContext(ctx, &run, selectQuery, runID); err != nil {
			return err
		}
		result = &run
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RunTotal sums the run's line amounts.
func (r *PayrollRepository) RunTotal(ctx context.Context, runID string) (int64, error) {
	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COALESCE(SUM(amount), 0) FROM payroll_lines WHERE run_id = $1`, runID); err != nil {
		return 0, fmt.Errorf("sum payroll lines: %w", err)
	}
	return total, nil
}
