package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/klil-music/conservatory-api/internal/models"
	"github.com/klil-music/conservatory-api/pkg/timeutil"
)

// TimeBlockRepository manages persistence for availability blocks and the
// lesson assignments placed inside them.
type TimeBlockRepository struct {
	db *sqlx.DB
}

// NewTimeBlockRepository constructs a TimeBlockRepository.
func NewTimeBlockRepository(db *sqlx.DB) *TimeBlockRepository {
	return &TimeBlockRepository{db: db}
}

const blockColumns = `id, teacher_id, day, start_time, end_time, location, recurring, created_at, updated_at`
const assignmentColumns = `id, time_block_id, student_id, student_name, start_time, end_time, duration, created_at`

// FindByID fetches a block with its assignments loaded.
func (r *TimeBlockRepository) FindByID(ctx context.Context, id string) (*models.TimeBlock, error) {
	query := fmt.Sprintf("SELECT %s FROM time_blocks WHERE id = $1", blockColumns)
	var block models.TimeBlock
	if err := r.db.GetContext(ctx, &block, query, id); err != nil {
		return nil, err
	}
	assignments, err := r.findAssignments(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	block.Assignments = assignments[id]
	if block.Assignments == nil {
		block.Assignments = []models.LessonAssignment{}
	}
	return &block, nil
}

// FindByTeacher returns a teacher's blocks with assignments, optionally
// narrowed to one weekday.
func (r *TimeBlockRepository) FindByTeacher(ctx context.Context, teacherID string, day *timeutil.Day) ([]models.TimeBlock, error) {
	query := fmt.Sprintf("SELECT %s FROM time_blocks WHERE teacher_id = $1", blockColumns)
	args := []interface{}{teacherID}
	if day != nil {
		query += " AND day = $2"
		args = append(args, int(*day))
	}
	query += " ORDER BY day, start_time, id"

	var blocks []models.TimeBlock
	if err := r.db.SelectContext(ctx, &blocks, query, args...); err != nil {
		return nil, fmt.Errorf("find blocks by teacher: %w", err)
	}
	if len(blocks) == 0 {
		return blocks, nil
	}

	ids := make([]string, len(blocks))
	for i, b := range blocks {
		ids[i] = b.ID
	}
	assignments, err := r.findAssignments(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range blocks {
		blocks[i].Assignments = assignments[blocks[i].ID]
		if blocks[i].Assignments == nil {
			blocks[i].Assignments = []models.LessonAssignment{}
		}
	}
	return blocks, nil
}

func (r *TimeBlockRepository) findAssignments(ctx context.Context, blockIDs []string) (map[string][]models.LessonAssignment, error) {
	query, args, err := sqlx.In(fmt.Sprintf("SELECT %s FROM lesson_assignments WHERE time_block_id IN (?) ORDER BY start_time, id", assignmentColumns), blockIDs)
	if err != nil {
		return nil, fmt.Errorf("expand block ids: %w", err)
	}
	query = r.db.Rebind(query)

	var rows []models.LessonAssignment
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("find assignments: %w", err)
	}

	grouped := make(map[string][]models.LessonAssignment, len(blockIDs))
	for _, a := range rows {
		grouped[a.TimeBlockID] = append(grouped[a.TimeBlockID], a)
	}
	return grouped, nil
}

// Create inserts a new availability block.
func (r *TimeBlockRepository) Create(ctx context.Context, block *models.TimeBlock) error {
	if block.ID == "" {
		block.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if block.CreatedAt.IsZero() {
		block.CreatedAt = now
	}
	block.UpdatedAt = now
	const query = `INSERT INTO time_blocks (id, teacher_id, day, start_time, end_time, location, recurring, created_at, updated_at)
        VALUES (:id, :teacher_id, :day, :start_time, :end_time, :location, :recurring, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, block); err != nil {
		return fmt.Errorf("create time block: %w", err)
	}
	return nil
}

// Update rewrites an existing block's window fields.
func (r *TimeBlockRepository) Update(ctx context.Context, block *models.TimeBlock) error {
	block.UpdatedAt = time.Now().UTC()
	const query = `UPDATE time_blocks SET day = :day, start_time = :start_time, end_time = :end_time, location = :location, recurring = :recurring, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, block); err != nil {
		return fmt.Errorf("update time block: %w", err)
	}
	return nil
}

// Delete removes a block and its assignments.
func (r *TimeBlockRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete block: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM lesson_assignments WHERE time_block_id = $1`, id); err != nil {
		return fmt.Errorf("delete block assignments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM time_blocks WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete time block: %w", err)
	}
	return tx.Commit()
}

// CreateAssignment persists a lesson assignment inside a block.
func (r *TimeBlockRepository) CreateAssignment(ctx context.Context, assignment *models.LessonAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO lesson_assignments (id, time_block_id, student_id, student_name, start_time, end_time, duration, created_at)
        VALUES (:id, :time_block_id, :student_id, :student_name, :start_time, :end_time, :duration, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// DeleteAssignment removes one assignment from a block. A zero row count is
// not an error; removal is idempotent.
func (r *TimeBlockRepository) DeleteAssignment(ctx context.Context, blockID, assignmentID string) error {
	const query = `DELETE FROM lesson_assignments WHERE time_block_id = $1 AND (id = $2 OR student_id = $2)`
	if _, err := r.db.ExecContext(ctx, query, blockID, assignmentID); err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return nil
}
