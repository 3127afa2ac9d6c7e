package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/klil-music/conservatory-api/internal/models"
	appErrors "github.com/klil-music/conservatory-api/pkg/errors"
	"github.com/klil-music/conservatory-api/pkg/timeutil"
)

type orchestraRepository interface {
	List(ctx context.Context, filter models.OrchestraFilter) ([]models.Orchestra, int, error)
	FindByID(ctx context.Context, id string) (*models.Orchestra, error)
	FindByMember(ctx context.Context, studentID string) ([]models.Orchestra, error)
	Create(ctx context.Context, orchestra *models.Orchestra) error
	Update(ctx context.Context, orchestra *models.Orchestra) error
	Deactivate(ctx context.Context, id string) error
}

type orchestraStudentLookup interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Student, error)
}

// CreateOrchestraRequest holds payload for creating orchestras.
type CreateOrchestraRequest struct {
	Name         string  `json:"name" validate:"required"`
	ConductorID  string  `json:"conductor_id" validate:"required"`
	RehearsalDay string  `json:"rehearsal_day" validate:"required"`
	StartTime    string  `json:"start_time" validate:"required"`
	EndTime      string  `json:"end_time" validate:"required"`
	Location     *string `json:"location"`
}

// OrchestraService handles ensemble use-cases.
type OrchestraService struct {
	repo      orchestraRepository
	students  orchestraStudentLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewOrchestraService constructs the orchestra service.
func NewOrchestraService(repo orchestraRepository, students orchestraStudentLookup, validate *validator.Validate, logger *zap.Logger) *OrchestraService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrchestraService{repo: repo, students: students, validator: validate, logger: logger}
}

// List returns orchestras and pagination metadata.
func (s *OrchestraService) List(ctx context.Context, filter models.OrchestraFilter) ([]models.Orchestra, *models.Pagination, error) {
	orchestras, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list orchestras")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return orchestras, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns an orchestra by ID.
func (s *OrchestraService) Get(ctx context.Context, id string) (*models.Orchestra, error) {
	orchestra, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "orchestra not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load orchestra")
	}
	return orchestra, nil
}

// Create registers a new orchestra with a weekly rehearsal window.
func (s *OrchestraService) Create(ctx context.Context, req CreateOrchestraRequest) (*models.Orchestra, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid orchestra payload")
	}
	day, err := timeutil.ParseDay(req.RehearsalDay)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rehearsal day")
	}
	if err := validateTimeRange(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	orchestra := &models.Orchestra{
		Name:         req.Name,
		ConductorID:  req.ConductorID,
		RehearsalDay: day,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Location:     req.Location,
		MemberIDs:    []string{},
		Active:       true,
	}
	if err := s.repo.Create(ctx, orchestra); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create orchestra")
	}
	return orchestra, nil
}

// UpdateOrchestraRequest holds the mutable orchestra fields. Nil fields
// are left untouched.
type UpdateOrchestraRequest struct {
	Name         *string `json:"name"`
	ConductorID  *string `json:"conductor_id"`
	RehearsalDay *string `json:"rehearsal_day"`
	StartTime    *string `json:"start_time"`
	EndTime      *string `json:"end_time"`
	Location     *string `json:"location"`
	Active       *bool   `json:"active"`
}

// Update applies partial changes to an orchestra.
func (s *OrchestraService) Update(ctx context.Context, id string, req UpdateOrchestraRequest) (*models.Orchestra, error) {
	orchestra, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		orchestra.Name = *req.Name
	}
	if req.ConductorID != nil {
		orchestra.ConductorID = *req.ConductorID
	}
	if req.RehearsalDay != nil {
		day, err := timeutil.ParseDay(*req.RehearsalDay)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rehearsal day")
		}
		orchestra.RehearsalDay = day
	}
	if req.StartTime != nil {
		orchestra.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		orchestra.EndTime = *req.EndTime
	}
	if req.StartTime != nil || req.EndTime != nil {
		if err := validateTimeRange(orchestra.StartTime, orchestra.EndTime); err != nil {
			return nil, err
		}
	}
	if req.Location != nil {
		orchestra.Location = req.Location
	}
	if req.Active != nil {
		orchestra.Active = *req.Active
	}
	if err := s.repo.Update(ctx, orchestra); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update orchestra")
	}
	return orchestra, nil
}

// AddMember enrolls a student into the ensemble. Adding an existing member is
// a no-op.
func (s *OrchestraService) AddMember(ctx context.Context, orchestraID, studentID string) (*models.Orchestra, error) {
	orchestra, err := s.Get(ctx, orchestraID)
	if err != nil {
		return nil, err
	}
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "student is inactive")
	}
	for _, id := range orchestra.MemberIDs {
		if id == studentID {
			return orchestra, nil
		}
	}
	orchestra.MemberIDs = append(orchestra.MemberIDs, studentID)
	if err := s.repo.Update(ctx, orchestra); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add member")
	}
	return orchestra, nil
}

// RemoveMember drops a student from the ensemble. Unknown members are a no-op.
func (s *OrchestraService) RemoveMember(ctx context.Context, orchestraID, studentID string) (*models.Orchestra, error) {
	orchestra, err := s.Get(ctx, orchestraID)
	if err != nil {
		return nil, err
	}
	kept := orchestra.MemberIDs[:0]
	for _, id := range orchestra.MemberIDs {
		if id != studentID {
			kept = append(kept, id)
		}
	}
	orchestra.MemberIDs = kept
	if err := s.repo.Update(ctx, orchestra); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove member")
	}
	return orchestra, nil
}

// Members resolves member IDs into student records.
func (s *OrchestraService) Members(ctx context.Context, orchestraID string) ([]models.Student, error) {
	orchestra, err := s.Get(ctx, orchestraID)
	if err != nil {
		return nil, err
	}
	if len(orchestra.MemberIDs) == 0 {
		return []models.Student{}, nil
	}
	students, err := s.students.FindByIDs(ctx, orchestra.MemberIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load members")
	}
	return students, nil
}

// ForStudent lists the active orchestras a student plays in.
func (s *OrchestraService) ForStudent(ctx context.Context, studentID string) ([]models.Orchestra, error) {
	orchestras, err := s.repo.FindByMember(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load orchestras")
	}
	if orchestras == nil {
		orchestras = []models.Orchestra{}
	}
	return orchestras, nil
}

// Deactivate marks an orchestra inactive.
func (s *OrchestraService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate orchestra")
	}
	return nil
}
