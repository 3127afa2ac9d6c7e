package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/klil-music/conservatory-api/internal/models"
)

// TheoryRepository manages persistence for dated theory lessons.
type TheoryRepository struct {
	db *sqlx.DB
}

// NewTheoryRepository constructs a TheoryRepository.
func NewTheoryRepository(db *sqlx.DB) *TheoryRepository {
	return &TheoryRepository{db: db}
}

const theoryColumns = `id, category, teacher_id, lesson_date, start_time, end_time, room, student_ids, created_at, updated_at`

// List returns theory lessons matching the provided filters.
func (r *TheoryRepository) List(ctx context.Context, filter models.TheoryLessonFilter) ([]models.TheoryLesson, int, error) {
	base := "FROM theory_lessons"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Room != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(room) = LOWER($%d)", len(args)+1))
		args = append(args, filter.Room)
	}
	if filter.FromDate != nil {
		conditions = append(conditions, fmt.Sprintf("lesson_date >= $%d", len(args)+1))
		args = append(args, *filter.FromDate)
	}
	if filter.ToDate != nil {
		conditions = append(conditions, fmt.Sprintf("lesson_date <= $%d", len(args)+1))
		args = append(args, *filter.ToDate)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY lesson_date, start_time, id LIMIT %d OFFSET %d", theoryColumns, base, size, offset)

	var lessons []models.TheoryLesson
	if err := r.db.SelectContext(ctx, &lessons, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list theory lessons: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count theory lessons: %w", err)
	}
	return lessons, total, nil
}

// FindByID fetches a theory lesson by ID.
func (r *TheoryRepository) FindByID(ctx context.Context, id string) (*models.TheoryLesson, error) {
	query := fmt.Sprintf("SELECT %s FROM theory_lessons WHERE id = $1", theoryColumns)
	var lesson models.TheoryLesson
	if err := r.db.GetContext(ctx, &lesson, query, id); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// FindByDateRange returns every lesson between two dates inclusive, for room
// conflict scans.
func (r *TheoryRepository) FindByDateRange(ctx context.Context, from, to time.Time) ([]models.TheoryLesson, error) {
	query := fmt.Sprintf("SELECT %s FROM theory_lessons WHERE lesson_date >= $1 AND lesson_date <= $2 ORDER BY lesson_date, start_time, id", theoryColumns)
	var lessons []models.TheoryLesson
	if err := r.db.SelectContext(ctx, &lessons, query, from, to); err != nil {
		return nil, fmt.Errorf("find theory lessons by date: %w", err)
	}
	return lessons, nil
}

// Create inserts a single theory lesson.
func (r *TheoryRepository) Create(ctx context.Context, lesson *models.TheoryLesson) error {
	prepareTheoryLesson(lesson)
	const query = `INSERT INTO theory_lessons (id, category, teacher_id, lesson_date, start_time, end_time, room, student_ids, created_at, updated_at)
        VALUES (:id, :category, :teacher_id, :lesson_date, :start_time, :end_time, :room, :student_ids, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lesson); err != nil {
		return fmt.Errorf("create theory lesson: %w", err)
	}
	return nil
}

// CreateBatch inserts a set of expanded recurring lessons atomically.
func (r *TheoryRepository) CreateBatch(ctx context.Context, lessons []models.TheoryLesson) error {
	if len(lessons) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `INSERT INTO theory_lessons (id, category, teacher_id, lesson_date, start_time, end_time, room, student_ids, created_at, updated_at)
        VALUES (:id, :category, :teacher_id, :lesson_date, :start_time, :end_time, :room, :student_ids, :created_at, :updated_at)`
	for i := range lessons {
		prepareTheoryLesson(&lessons[i])
		if _, err := tx.NamedExecContext(ctx, query, &lessons[i]); err != nil {
			return fmt.Errorf("insert theory lesson %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Update modifies an existing theory lesson.
func (r *TheoryRepository) Update(ctx context.Context, lesson *models.TheoryLesson) error {
	lesson.UpdatedAt = time.Now().UTC()
	const query = `UPDATE theory_lessons SET category = :category, teacher_id = :teacher_id, lesson_date = :lesson_date, start_time = :start_time,
        end_time = :end_time, room = :room, student_ids = :student_ids, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, lesson); err != nil {
		return fmt.Errorf("update theory lesson: %w", err)
	}
	return nil
}

// Delete removes a theory lesson.
func (r *TheoryRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM theory_lessons WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete theory lesson: %w", err)
	}
	return nil
}

func prepareTheoryLesson(lesson *models.TheoryLesson) {
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = now
	}
	lesson.UpdatedAt = now
}
