package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/maktab-fin-api/internal/models"
)

const lessonColumns = `id, teacher_id, subject_id, classroom_id, start_at, end_at, status, replaced_by_teacher, created_at`

// LessonRepository persists real lesson records.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository creates a new lesson repository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// Create inserts a lesson record.
func (r *LessonRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	lesson.ID = uuid.NewString()
	lesson.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO lessons (id, teacher_id, subject_id, classroom_id, start_at, end_at, status, replaced_by_teacher, created_at)
        VALUES (:id, :teacher_id, :subject_id, :classroom_id, :start_at, :end_at, :status, :replaced_by_teacher, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lesson); err != nil {
		return fmt.Errorf("insert lesson: %w", err)
	}
	return nil
}

// FindByID returns a lesson record.
func (r *LessonRepository) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	query := fmt.Sprintf(`SELECT %s FROM lessons WHERE id = $1`, lessonColumns)
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, id); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// List returns lessons matching the filter, oldest first.
func (r *LessonRepository) List(ctx context.Context, filter models.LessonFilter) ([]models.Lesson, int, error) {
	base := `FROM lessons WHERE 1=1`
	var args []interface{}
	if filter.TeacherID != "" {
		base += fmt.Sprintf(" AND teacher_id = $%d", len(args)+1)
		args = append(args, filter.TeacherID)
	}
	if filter.Period != "" {
		base += fmt.Sprintf(" AND start_at >= $%d AND start_at < $%d", len(args)+1, len(args)+2)
		args = append(args, filter.Period.FirstDay(), filter.Period.Next().FirstDay())
	}
	if filter.Status != "" {
		base += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, filter.Status)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count lessons: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	query := fmt.Sprintf("SELECT %s %s ORDER BY start_at ASC LIMIT %d OFFSET %d", lessonColumns, base, size, (page-1)*size)
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list lessons: %w", err)
	}
	return lessons, total, nil
}

// ListPayable returns the period's DONE and REPLACED lessons, oldest first.
// CANCELED lessons never reach payroll.
func (r *LessonRepository) ListPayable(ctx context.Context, period models.MonthKey) ([]models.Lesson, error) {
	query := fmt.Sprintf(`SELECT %s FROM lessons
        WHERE start_at >= $1 AND start_at < $2 AND status IN ($3, $4)
        ORDER BY start_at ASC`, lessonColumns)
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, period.FirstDay(), period.Next().FirstDay(), models.LessonDone, models.LessonReplaced); err != nil {
		return nil, fmt.Errorf("list payable lessons: %w", err)
	}
	return lessons, nil
}
