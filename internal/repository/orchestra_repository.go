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

// OrchestraRepository manages persistence for ensembles.
type OrchestraRepository struct {
	db *sqlx.DB
}

// NewOrchestraRepository constructs an OrchestraRepository.
func NewOrchestraRepository(db *sqlx.DB) *OrchestraRepository {
	return &OrchestraRepository{db: db}
}

const orchestraColumns = `id, name, conductor_id, rehearsal_day, start_time, end_time, location, member_ids, active, created_at, updated_at`

// List returns orchestras matching the provided filters.
func (r *OrchestraRepository) List(ctx context.Context, filter models.OrchestraFilter) ([]models.Orchestra, int, error) {
	base := "FROM orchestras"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.ConductorID != "" {
		conditions = append(conditions, fmt.Sprintf("conductor_id = $%d", len(args)+1))
		args = append(args, filter.ConductorID)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY name LIMIT %d OFFSET %d", orchestraColumns, base, size, offset)

	var orchestras []models.Orchestra
	if err := r.db.SelectContext(ctx, &orchestras, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list orchestras: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count orchestras: %w", err)
	}
	return orchestras, total, nil
}

// FindByID fetches an orchestra by ID.
func (r *OrchestraRepository) FindByID(ctx context.Context, id string) (*models.Orchestra, error) {
	query := fmt.Sprintf("SELECT %s FROM orchestras WHERE id = $1", orchestraColumns)
	var orchestra models.Orchestra
	if err := r.db.GetContext(ctx, &orchestra, query, id); err != nil {
		return nil, err
	}
	return &orchestra, nil
}

// FindByMember returns active orchestras a student belongs to.
func (r *OrchestraRepository) FindByMember(ctx context.Context, studentID string) ([]models.Orchestra, error) {
	query := fmt.Sprintf("SELECT %s FROM orchestras WHERE $1 = ANY(member_ids) AND active = true ORDER BY name", orchestraColumns)
	var orchestras []models.Orchestra
	if err := r.db.SelectContext(ctx, &orchestras, query, studentID); err != nil {
		return nil, fmt.Errorf("find orchestras by member: %w", err)
	}
	return orchestras, nil
}

// Create inserts a new orchestra.
func (r *OrchestraRepository) Create(ctx context.Context, orchestra *models.Orchestra) error {
	if orchestra.ID == "" {
		orchestra.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if orchestra.CreatedAt.IsZero() {
		orchestra.CreatedAt = now
	}
	orchestra.UpdatedAt = now
	const query = `INSERT INTO orchestras (id, name, conductor_id, rehearsal_day, start_time, end_time, location, member_ids, active, created_at, updated_at)
        VALUES (:id, :name, :conductor_id, :rehearsal_day, :start_time, :end_time, :location, :member_ids, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, orchestra); err != nil {
		return fmt.Errorf("create orchestra: %w", err)
	}
	return nil
}

// Update modifies an existing orchestra.
func (r *OrchestraRepository) Update(ctx context.Context, orchestra *models.Orchestra) error {
	orchestra.UpdatedAt = time.Now().UTC()
	const query = `UPDATE orchestras SET name = :name, conductor_id = :conductor_id, rehearsal_day = :rehearsal_day, start_time = :start_time, end_time = :end_time,
        location = :location, member_ids = :member_ids, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, orchestra); err != nil {
		return fmt.Errorf("update orchestra: %w", err)
	}
	return nil
}

// Deactivate marks an orchestra as inactive.
func (r *OrchestraRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE orchestras SET active = false, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate orchestra: %w", err)
	}
	return nil
}
