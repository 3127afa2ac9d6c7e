package service

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/klil-music/conservatory-api/internal/models"
	"github.com/klil-music/conservatory-api/internal/repository"
	"github.com/klil-music/conservatory-api/internal/scheduling"
	appErrors "github.com/klil-music/conservatory-api/pkg/errors"
)

type availabilityTeacherLookup interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// AvailabilityService builds the weekly schedule views and open-slot listings
// consumed by the scheduling screens. Computed views are cached in Redis and
// invalidated by the slot and time block services on every write.
type AvailabilityService struct {
	slots    slotRepository
	teachers availabilityTeacherLookup
	students slotStudentLookup
	cache    *CacheService
	logger   *zap.Logger
}

// NewAvailabilityService constructs the availability service.
func NewAvailabilityService(slots slotRepository, teachers availabilityTeacherLookup, students slotStudentLookup, cache *CacheService, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{slots: slots, teachers: teachers, students: students, cache: cache, logger: logger}
}

// TeacherWeek returns the full weekly view for a teacher, cache-first. The
// boolean reports whether the view was served from cache.
func (s *AvailabilityService) TeacherWeek(ctx context.Context, teacherID string) (*models.TeacherWeeklySchedule, bool, error) {
	key := repository.TeacherScheduleKey(teacherID)
	if s.cache != nil {
		var cached models.TeacherWeeklySchedule
		if hit, _ := s.cache.Get(ctx, key, &cached); hit {
			return &cached, true, nil
		}
	}

	if _, err := s.teachers.FindByID(ctx, teacherID); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	slots, err := s.slots.FindByTeacher(ctx, teacherID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher slots")
	}

	week := scheduling.BuildTeacherWeek(teacherID, slots)
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, week, 0)
	}
	return &week, false, nil
}

// OpenSlots lists a teacher's bookable slots, filtered by day, time window,
// duration, and the requesting student's own bookings.
func (s *AvailabilityService) OpenSlots(ctx context.Context, teacherID string, filter models.AvailabilityFilter) ([]models.Slot, error) {
	slots, err := s.slots.FindByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher slots")
	}

	var studentBookings []models.Slot
	if filter.ExcludeStudentID != "" {
		studentBookings, err = s.slots.FindByStudent(ctx, filter.ExcludeStudentID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student bookings")
		}
	}

	open := scheduling.FilterAvailable(slots, filter, studentBookings)
	if open == nil {
		open = []models.Slot{}
	}
	return open, nil
}

// CheckAssignment dry-runs a booking without persisting anything.
func (s *AvailabilityService) CheckAssignment(ctx context.Context, slotID, studentID string) (*scheduling.AssignCheck, error) {
	slot, err := s.slots.FindByID(ctx, slotID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slot")
	}

	bookings, err := s.slots.FindByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student bookings")
	}

	check := scheduling.CanAssign(*slot, studentID, bookings)
	return &check, nil
}

// StudentWeek aggregates a student's bookings across every teacher,
// cache-first. The boolean reports whether the view was served from cache.
func (s *AvailabilityService) StudentWeek(ctx context.Context, studentID string) (*models.StudentSchedule, bool, error) {
	key := repository.StudentScheduleKey(studentID)
	if s.cache != nil {
		var cached models.StudentSchedule
		if hit, _ := s.cache.Get(ctx, key, &cached); hit {
			return &cached, true, nil
		}
	}

	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	bookings, err := s.slots.FindByStudent(ctx, studentID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student bookings")
	}

	names := make(map[string]string)
	for _, slot := range bookings {
		if _, ok := names[slot.TeacherID]; ok {
			continue
		}
		teacher, err := s.teachers.FindByID(ctx, slot.TeacherID)
		if err != nil {
			if err == sql.ErrNoRows {
				continue
			}
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
		}
		names[slot.TeacherID] = teacher.FullName
	}

	schedule := scheduling.BuildStudentSchedule(studentID, bookings, names)
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, schedule, 0)
	}
	return &schedule, false, nil
}
