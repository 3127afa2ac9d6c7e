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

// SlotRepository manages persistence for weekly lesson slots.
type SlotRepository struct {
	db *sqlx.DB
}

// NewSlotRepository constructs a SlotRepository.
func NewSlotRepository(db *sqlx.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

const slotColumns = `id, teacher_id, student_id, day_of_week, start_time, end_time, duration, location, notes, recurring, active, created_at, updated_at`

// List returns slots matching the provided filters.
func (r *SlotRepository) List(ctx context.Context, filter models.SlotFilter) ([]models.Slot, int, error) {
	base := "FROM slots"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.DayOfWeek != nil {
		conditions = append(conditions, fmt.Sprintf("day_of_week = $%d", len(args)+1))
		args = append(args, int(*filter.DayOfWeek))
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY day_of_week, start_time, id LIMIT %d OFFSET %d", slotColumns, base, size, offset)

	var slots []models.Slot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list slots: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count slots: %w", err)
	}
	return slots, total, nil
}

// FindByID fetches a slot by ID.
func (r *SlotRepository) FindByID(ctx context.Context, id string) (*models.Slot, error) {
	query := fmt.Sprintf("SELECT %s FROM slots WHERE id = $1", slotColumns)
	var slot models.Slot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// FindByTeacher returns every slot on a teacher's weekly schedule, ordered
// deterministically for conflict scans.
func (r *SlotRepository) FindByTeacher(ctx context.Context, teacherID string) ([]models.Slot, error) {
	query := fmt.Sprintf("SELECT %s FROM slots WHERE teacher_id = $1 ORDER BY day_of_week, start_time, id", slotColumns)
	var slots []models.Slot
	if err := r.db.SelectContext(ctx, &slots, query, teacherID); err != nil {
		return nil, fmt.Errorf("find slots by teacher: %w", err)
	}
	return slots, nil
}

// FindByStudent returns every active slot booked by a student across teachers.
func (r *SlotRepository) FindByStudent(ctx context.Context, studentID string) ([]models.Slot, error) {
	query := fmt.Sprintf("SELECT %s FROM slots WHERE student_id = $1 AND active = true ORDER BY teacher_id, day_of_week, start_time, id", slotColumns)
	var slots []models.Slot
	if err := r.db.SelectContext(ctx, &slots, query, studentID); err != nil {
		return nil, fmt.Errorf("find slots by student: %w", err)
	}
	return slots, nil
}

// Create inserts a new slot.
func (r *SlotRepository) Create(ctx context.Context, slot *models.Slot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = now
	}
	slot.UpdatedAt = now
	const query = `INSERT INTO slots (id, teacher_id, student_id, day_of_week, start_time, end_time, duration, location, notes, recurring, active, created_at, updated_at)
        VALUES (:id, :teacher_id, :student_id, :day_of_week, :start_time, :end_time, :duration, :location, :notes, :recurring, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("create slot: %w", err)
	}
	return nil
}

// Update rewrites an existing slot. Last write wins; concurrent edits are
// resolved by whichever update lands later.
func (r *SlotRepository) Update(ctx context.Context, slot *models.Slot) error {
	slot.UpdatedAt = time.Now().UTC()
	const query = `UPDATE slots SET teacher_id = :teacher_id, student_id = :student_id, day_of_week = :day_of_week, start_time = :start_time, end_time = :end_time,
        duration = :duration, location = :location, notes = :notes, recurring = :recurring, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("update slot: %w", err)
	}
	return nil
}

// SetStudent books or clears the student on a slot.
func (r *SlotRepository) SetStudent(ctx context.Context, slotID string, studentID *string) error {
	const query = `UPDATE slots SET student_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, slotID, studentID, time.Now().UTC()); err != nil {
		return fmt.Errorf("set slot student: %w", err)
	}
	return nil
}

// Deactivate soft-deletes a slot.
func (r *SlotRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE slots SET active = false, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate slot: %w", err)
	}
	return nil
}

// Delete removes a slot permanently.
func (r *SlotRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM slots WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	return nil
}
