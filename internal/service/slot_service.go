package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/klil-music/conservatory-api/internal/models"
	"github.com/klil-music/conservatory-api/internal/repository"
	"github.com/klil-music/conservatory-api/internal/scheduling"
	appErrors "github.com/klil-music/conservatory-api/pkg/errors"
	"github.com/klil-music/conservatory-api/pkg/timeutil"
)

type slotRepository interface {
	List(ctx context.Context, filter models.SlotFilter) ([]models.Slot, int, error)
	FindByID(ctx context.Context, id string) (*models.Slot, error)
	FindByTeacher(ctx context.Context, teacherID string) ([]models.Slot, error)
	FindByStudent(ctx context.Context, studentID string) ([]models.Slot, error)
	Create(ctx context.Context, slot *models.Slot) error
	Update(ctx context.Context, slot *models.Slot) error
	SetStudent(ctx context.Context, slotID string, studentID *string) error
	Deactivate(ctx context.Context, id string) error
}

type slotStudentLookup interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// CreateSlotRequest holds payload for creating a weekly slot.
type CreateSlotRequest struct {
	TeacherID string  `json:"teacher_id" validate:"required"`
	DayOfWeek string  `json:"day_of_week" validate:"required"`
	StartTime string  `json:"start_time" validate:"required"`
	EndTime   string  `json:"end_time" validate:"required"`
	Location  *string `json:"location"`
	Notes     *string `json:"notes"`
	Recurring bool    `json:"recurring"`
}

// UpdateSlotRequest holds payload for rescheduling a slot.
type UpdateSlotRequest struct {
	DayOfWeek string  `json:"day_of_week" validate:"required"`
	StartTime string  `json:"start_time" validate:"required"`
	EndTime   string  `json:"end_time" validate:"required"`
	Location  *string `json:"location"`
	Notes     *string `json:"notes"`
	Recurring bool    `json:"recurring"`
}

// SlotService handles slot lifecycle and booking use-cases.
type SlotService struct {
	repo      slotRepository
	students  slotStudentLookup
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSlotService constructs the slot service.
func NewSlotService(repo slotRepository, students slotStudentLookup, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *SlotService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotService{repo: repo, students: students, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// List returns slots and pagination metadata.
func (s *SlotService) List(ctx context.Context, filter models.SlotFilter) ([]models.Slot, *models.Pagination, error) {
	slots, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list slots")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	return slots, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a single slot.
func (s *SlotService) Get(ctx context.Context, id string) (*models.Slot, error) {
	slot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slot")
	}
	return slot, nil
}

// Create adds a slot to a teacher's weekly schedule. The new slot is rejected
// when it would collide with the teacher's existing active slots.
func (s *SlotService) Create(ctx context.Context, req CreateSlotRequest) (*models.Slot, []models.ScheduleConflict, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}
	day, err := timeutil.ParseDay(req.DayOfWeek)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid day of week")
	}

	slot := models.Slot{
		TeacherID: req.TeacherID,
		DayOfWeek: day,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Location:  req.Location,
		Notes:     req.Notes,
		Recurring: req.Recurring,
		Active:    true,
	}
	if err := scheduling.NormalizeSlot(&slot); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot times")
	}

	conflicts, err := s.checkTeacherConflicts(ctx, slot, "")
	if err != nil {
		return nil, nil, err
	}
	if hasErrors(conflicts) {
		return nil, conflicts, appErrors.Clone(appErrors.ErrConflict, "slot conflicts with existing schedule")
	}

	if err := s.repo.Create(ctx, &slot); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create slot")
	}
	s.invalidateTeacher(ctx, slot.TeacherID)
	return &slot, conflicts, nil
}

// Update reschedules an existing slot, revalidating against the rest of the
// teacher's week. The slot's own previous position is excluded from the scan.
func (s *SlotService) Update(ctx context.Context, id string, req UpdateSlotRequest) (*models.Slot, []models.ScheduleConflict, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}
	slot, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	day, err := timeutil.ParseDay(req.DayOfWeek)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid day of week")
	}

	updated := *slot
	updated.DayOfWeek = day
	updated.StartTime = req.StartTime
	updated.EndTime = req.EndTime
	updated.Location = req.Location
	updated.Notes = req.Notes
	updated.Recurring = req.Recurring
	if err := scheduling.NormalizeSlot(&updated); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot times")
	}

	conflicts, err := s.checkTeacherConflicts(ctx, updated, id)
	if err != nil {
		return nil, nil, err
	}
	if hasErrors(conflicts) {
		return nil, conflicts, appErrors.Clone(appErrors.ErrConflict, "slot conflicts with existing schedule")
	}

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update slot")
	}
	s.invalidateTeacher(ctx, updated.TeacherID)
	return &updated, conflicts, nil
}

// Assign books a student into an open slot after checking both the slot
// occupancy and the student's own weekly bookings.
func (s *SlotService) Assign(ctx context.Context, slotID, studentID string) (*models.Slot, error) {
	slot, err := s.Get(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if !slot.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "slot is inactive")
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

	bookings, err := s.repo.FindByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student bookings")
	}

	check := scheduling.CanAssign(*slot, studentID, bookings)
	if !check.CanAssign {
		return nil, appErrors.Clone(appErrors.ErrConflict, check.Reason)
	}

	if err := s.repo.SetStudent(ctx, slotID, &studentID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign slot")
	}
	slot.StudentID = &studentID
	s.invalidateTeacher(ctx, slot.TeacherID)
	s.invalidateStudent(ctx, studentID)
	s.logger.Info("slot assigned",
		zap.String("slot_id", slotID),
		zap.String("student_id", studentID),
		zap.String("teacher_id", slot.TeacherID))
	return slot, nil
}

// Unassign frees a booked slot. Releasing an already-open slot is a no-op.
func (s *SlotService) Unassign(ctx context.Context, slotID string) (*models.Slot, error) {
	slot, err := s.Get(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if !slot.Booked() {
		return slot, nil
	}
	released := *slot.StudentID
	if err := s.repo.SetStudent(ctx, slotID, nil); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release slot")
	}
	slot.StudentID = nil
	s.invalidateTeacher(ctx, slot.TeacherID)
	s.invalidateStudent(ctx, released)
	return slot, nil
}

// Deactivate soft-deletes a slot.
func (s *SlotService) Deactivate(ctx context.Context, id string) error {
	slot, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate slot")
	}
	s.invalidateTeacher(ctx, slot.TeacherID)
	if slot.Booked() {
		s.invalidateStudent(ctx, *slot.StudentID)
	}
	return nil
}

// Conflicts runs a full conflict scan over a teacher's schedule.
func (s *SlotService) Conflicts(ctx context.Context, teacherID string) ([]models.ScheduleConflict, error) {
	slots, err := s.repo.FindByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher slots")
	}
	conflicts := scheduling.FindConflicts(slots)
	if s.metrics != nil {
		s.metrics.RecordConflictScan(len(conflicts))
	}
	return conflicts, nil
}

// checkTeacherConflicts scans the candidate slot against the teacher's
// remaining active slots, excluding the slot being edited.
func (s *SlotService) checkTeacherConflicts(ctx context.Context, candidate models.Slot, excludeID string) ([]models.ScheduleConflict, error) {
	existing, err := s.repo.FindByTeacher(ctx, candidate.TeacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher slots")
	}
	scan := make([]models.Slot, 0, len(existing)+1)
	for _, slot := range existing {
		if excludeID != "" && slot.ID == excludeID {
			continue
		}
		scan = append(scan, slot)
	}
	if candidate.ID == "" {
		candidate.ID = "candidate"
	}
	scan = append(scan, candidate)

	all := scheduling.FindConflicts(scan)
	if s.metrics != nil {
		s.metrics.RecordConflictScan(len(all))
	}

	// keep only conflicts touching the candidate
	var relevant []models.ScheduleConflict
	for _, c := range all {
		if c.SlotA.ID == candidate.ID || (c.SlotB != nil && c.SlotB.ID == candidate.ID) {
			relevant = append(relevant, c)
		}
	}
	return relevant, nil
}

func (s *SlotService) invalidateTeacher(ctx context.Context, teacherID string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx, repository.TeacherScheduleKey(teacherID))
}

func (s *SlotService) invalidateStudent(ctx context.Context, studentID string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx, repository.StudentScheduleKey(studentID))
}

func hasErrors(conflicts []models.ScheduleConflict) bool {
	for _, c := range conflicts {
		if c.Severity == models.SeverityError {
			return true
		}
	}
	return false
}
