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

const paymentColumns = `id, student_id, type, start_month, month_count, amount, idempotency_key, status, closed_months, created_at, reverted_at`

// PaymentRepository persists tuition payments and assembles the ledger
// snapshot they are validated against.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository creates a new payment repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Snapshot loads the student's tariff history, active discounts and active
// payments in one pass, outside any transaction. Used for previews and the
// finance view.
func (r *PaymentRepository) Snapshot(ctx context.Context, studentID string) (models.LedgerSnapshot, error) {
	return loadSnapshot(ctx, r.db, studentID)
}

func loadSnapshot(ctx context.Context, q queryer, studentID string) (models.LedgerSnapshot, error) {
	snap := models.LedgerSnapshot{StudentID: studentID}

	const versionQuery = `SELECT id, monthly_amount, chargeable_months, academic_year, effective_from, current, note, created_at, archived_at
        FROM tariff_versions ORDER BY effective_from ASC, created_at ASC`
	if err := q.SelectContext(ctx, &snap.Versions, versionQuery); err != nil {
		return snap, fmt.Errorf("load tariff versions: %w", err)
	}

	const discountQuery = `SELECT id, student_id, type, value, start_month, month_count, reason, active, deactivate_reason, created_at, updated_at
        FROM discounts WHERE student_id = $1 AND active = TRUE ORDER BY created_at ASC`
	if err := q.SelectContext(ctx, &snap.Discounts, discountQuery, studentID); err != nil {
		return snap, fmt.Errorf("load discounts: %w", err)
	}

	paymentQuery := fmt.Sprintf(`SELECT %s FROM payments WHERE student_id = $1 AND status = $2 ORDER BY created_at ASC`, paymentColumns)
	if err := q.SelectContext(ctx, &snap.Payments, paymentQuery, studentID, models.PaymentActive); err != nil {
		return snap, fmt.Errorf("load payments: %w", err)
	}

	return snap, nil
}

// Apply runs the payment mutation as one serializable unit: the idempotency
// replay check, the snapshot the build callback validates against, and the
// insert all commit atomically. The bool result reports an idempotent replay.
func (r *PaymentRepository) Apply(ctx context.Context, studentID string, idempotencyKey *string, build func(models.LedgerSnapshot) (*models.Payment, error)) (*models.Payment, bool, error) {
	var (
		result   *models.Payment
		replayed bool
	)
	err := database.RunSerializable(ctx, r.db, func(tx *sqlx.Tx) error {
		if idempotencyKey != nil {
			existing, err := findByKey(ctx, tx, studentID, *idempotencyKey)
			if err != nil && err != sql.ErrNoRows {
				return fmt.Errorf("check idempotency key: %w", err)
			}
			if existing != nil {
				result, replayed = existing, true
				return nil
			}
		}

		snap, err := loadSnapshot(ctx, tx, studentID)
		if err != nil {
			return err
		}

		payment, err := build(snap)
		if err != nil {
			return err
		}

		payment.ID = uuid.NewString()
		payment.StudentID = studentID
		payment.IdempotencyKey = idempotencyKey
		payment.Status = models.PaymentActive
		payment.CreatedAt = time.Now().UTC()

		const query = `INSERT INTO payments (id, student_id, type, start_month, month_count, amount, idempotency_key, status, closed_months, created_at)
            VALUES (:id, :student_id, :type, :start_month, :month_count, :amount, :idempotency_key, :status, :closed_months, :created_at)`
		if _, err := tx.NamedExecContext(ctx, query, payment); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		result = payment
		return nil
	})
	if err != nil {
		// A concurrent duplicate submission loses the race on the unique
		// (student_id, idempotency_key) index; hand back the winner's row.
		if idempotencyKey != nil && (IsUniqueViolation(err) || IsSerializationFailure(err)) {
			existing, findErr := findByKey(ctx, r.db, studentID, *idempotencyKey)
			if findErr == nil && existing != nil {
				return existing, true, nil
			}
		}
		return nil, false, err
	}
	return result, replayed, nil
}

func findByKey(ctx context.Context, q queryer, studentID, key string) (*models.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE student_id = $1 AND idempotency_key = $2`, paymentColumns)
	var payment models.Payment
	if err := q.GetContext(ctx, &payment, query, studentID, key); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return &payment, nil
}

// Revert flips the payment to REVERTED. Reverting an already reverted payment
// is a no-op; the bool result reports whether anything changed.
func (r *PaymentRepository) Revert(ctx context.Context, paymentID string) (*models.Payment, bool, error) {
	var (
		result  *models.Payment
		changed bool
	)
	err := database.RunSerializable(ctx, r.db, func(tx *sqlx.Tx) error {
		query := fmt.Sprintf(`SELECT %s FROM payments WHERE id = $1 FOR UPDATE`, paymentColumns)
		var payment models.Payment
		if err := tx.GetContext(ctx, &payment, query, paymentID); err != nil {
			return err
		}
		if payment.Status == models.PaymentReverted {
			result = &payment
			return nil
		}
		now := time.Now().UTC()
		const update = `UPDATE payments SET status = $1, reverted_at = $2 WHERE id = $3`
		if _, err := tx.ExecContext(ctx, update, models.PaymentReverted, now, paymentID); err != nil {
			return fmt.Errorf("revert payment: %w", err)
		}
		payment.Status = models.PaymentReverted
		payment.RevertedAt = &now
		result = &payment
		changed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return result, changed, nil
}

// FindByID returns a payment row.
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE id = $1`, paymentColumns)
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, id); err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListByStudent returns every payment of a student, newest first.
func (r *PaymentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE student_id = $1 ORDER BY created_at DESC`, paymentColumns)
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, studentID); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

// ListDiscountsByStudent returns the student's discounts regardless of
// status, for the finance view audit trail.
func (r *PaymentRepository) ListDiscountsByStudent(ctx context.Context, studentID string) ([]models.Discount, error) {
	const query = `SELECT id, student_id, type, value, start_month, month_count, reason, active, deactivate_reason, created_at, updated_at
        FROM discounts WHERE student_id = $1 ORDER BY created_at DESC`
	var discounts []models.Discount
	if err := r.db.SelectContext(ctx, &discounts, query, studentID); err != nil {
		return nil, fmt.Errorf("list discounts: %w", err)
	}
	return discounts, nil
}
