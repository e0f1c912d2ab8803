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

const discountColumns = `id, student_id, type, value, start_month, month_count, reason, active, deactivate_reason, created_at, updated_at`

// DiscountRepository persists tuition discounts.
type DiscountRepository struct {
	db *sqlx.DB
}

// NewDiscountRepository creates a new discount repository.
func NewDiscountRepository(db *sqlx.DB) *DiscountRepository {
	return &DiscountRepository{db: db}
}

// CreateExclusive inserts the discount after verifying, in the same
// serializable unit, that no ACTIVE discount of the student overlaps its
// month range. Overlap is a conflict; the ledger relies on at most one
// active discount per month.
func (r *DiscountRepository) CreateExclusive(ctx context.Context, discount *models.Discount) (bool, error) {
	overlapped := false
	err := database.RunSerializable(ctx, r.db, func(tx *sqlx.Tx) error {
		query := fmt.Sprintf(`SELECT %s FROM discounts WHERE student_id = $1 AND active = TRUE`, discountColumns)
		var existing []models.Discount
		if err := tx.SelectContext(ctx, &existing, query, discount.StudentID); err != nil {
			return fmt.Errorf("load active discounts: %w", err)
		}
		for i := range existing {
			if rangesOverlap(discount, &existing[i]) {
				overlapped = true
				return nil
			}
		}

		now := time.Now().UTC()
		discount.ID = uuid.NewString()
		discount.Active = true
		discount.CreatedAt = now
		discount.UpdatedAt = now

		const insert = `INSERT INTO discounts (id, student_id, type, value, start_month, month_count, reason, active, created_at, updated_at)
            VALUES (:id, :student_id, :type, :value, :start_month, :month_count, :reason, :active, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, insert, discount); err != nil {
			return fmt.Errorf("insert discount: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return !overlapped, nil
}

func rangesOverlap(a, b *models.Discount) bool {
	return !a.EndMonth().Before(b.StartMonth) && !b.EndMonth().Before(a.StartMonth)
}

// Deactivate marks the discount inactive with a reason. The row stays for the
// audit trail.
func (r *DiscountRepository) Deactivate(ctx context.Context, id, reason string) error {
	const query = `UPDATE discounts SET active = FALSE, deactivate_reason = $1, updated_at = $2 WHERE id = $3 AND active = TRUE`
	res, err := r.db.ExecContext(ctx, query, reason, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("deactivate discount: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate discount: %w", err)
	}
	if affected == 0 {
		return ErrNoActiveRow
	}
	return nil
}

// FindByID returns a discount row.
func (r *DiscountRepository) FindByID(ctx context.Context, id string) (*models.Discount, error) {
	query := fmt.Sprintf(`SELECT %s FROM discounts WHERE id = $1`, discountColumns)
	var discount models.Discount
	if err := r.db.GetContext(ctx, &discount, query, id); err != nil {
		return nil, err
	}
	return &discount, nil
}
