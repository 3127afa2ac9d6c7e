package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/klil-music/conservatory-api/internal/dto"
	"github.com/klil-music/conservatory-api/internal/models"
	"github.com/klil-music/conservatory-api/internal/repository"
	"github.com/klil-music/conservatory-api/internal/scheduling"
	appErrors "github.com/klil-music/conservatory-api/pkg/errors"
	"github.com/klil-music/conservatory-api/pkg/timeutil"
)

type timeBlockRepository interface {
	FindByID(ctx context.Context, id string) (*models.TimeBlock, error)
	FindByTeacher(ctx context.Context, teacherID string, day *timeutil.Day) ([]models.TimeBlock, error)
	Create(ctx context.Context, block *models.TimeBlock) error
	Update(ctx context.Context, block *models.TimeBlock) error
	Delete(ctx context.Context, id string) error
	CreateAssignment(ctx context.Context, assignment *models.LessonAssignment) error
	DeleteAssignment(ctx context.Context, blockID, assignmentID string) error
}

type studentBookingLookup interface {
	FindByStudent(ctx context.Context, studentID string) ([]models.Slot, error)
}

// CreateTimeBlockRequest declares a teacher availability window.
type CreateTimeBlockRequest struct {
	TeacherID string  `json:"teacher_id" validate:"required"`
	Day       string  `json:"day" validate:"required"`
	StartTime string  `json:"start_time" validate:"required"`
	EndTime   string  `json:"end_time" validate:"required"`
	Location  *string `json:"location"`
	Recurring bool    `json:"recurring"`
}

// TimeBlockService manages availability blocks, lesson assignments and the
// available-slot search built on top of them.
type TimeBlockService struct {
	repo      timeBlockRepository
	students  slotStudentLookup
	bookings  studentBookingLookup
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimeBlockService constructs the time block service.
func NewTimeBlockService(repo timeBlockRepository, students slotStudentLookup, bookings studentBookingLookup, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *TimeBlockService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimeBlockService{repo: repo, students: students, bookings: bookings, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// Get returns a block with its assignments.
func (s *TimeBlockService) Get(ctx context.Context, id string) (*models.TimeBlock, error) {
	block, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "time block not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time block")
	}
	return block, nil
}

// ListByTeacher returns a teacher's blocks, optionally narrowed to one day.
func (s *TimeBlockService) ListByTeacher(ctx context.Context, teacherID string, day *timeutil.Day) ([]models.TimeBlock, error) {
	blocks, err := s.repo.FindByTeacher(ctx, teacherID, day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time blocks")
	}
	return blocks, nil
}

// Create declares a new availability block.
func (s *TimeBlockService) Create(ctx context.Context, req CreateTimeBlockRequest) (*models.TimeBlock, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time block payload")
	}
	block, err := scheduling.NewTimeBlock(req.TeacherID, req.Day, req.StartTime, req.EndTime, req.Location, req.Recurring)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if err := s.repo.Create(ctx, block); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create time block")
	}
	s.invalidateTeacher(ctx, block.TeacherID)
	return block, nil
}

// UpdateTimeBlockRequest holds the mutable block fields. Nil fields are
// left untouched; ClearLocation drops the location outright, since a nil
// Location cannot distinguish "unset" from "unchanged".
type UpdateTimeBlockRequest struct {
	Day           *string `json:"day"`
	StartTime     *string `json:"start_time"`
	EndTime       *string `json:"end_time"`
	Location      *string `json:"location"`
	ClearLocation bool    `json:"clear_location"`
	Recurring     *bool   `json:"recurring"`
}

// Update edits a block's window. The new window must still contain every
// existing lesson assignment.
func (s *TimeBlockService) Update(ctx context.Context, id string, req UpdateTimeBlockRequest) (*models.TimeBlock, error) {
	block, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	dayName := block.Day.String()
	if req.Day != nil {
		dayName = *req.Day
	}
	start := block.StartTime
	if req.StartTime != nil {
		start = *req.StartTime
	}
	end := block.EndTime
	if req.EndTime != nil {
		end = *req.EndTime
	}
	location := block.Location
	switch {
	case req.ClearLocation:
		location = nil
	case req.Location != nil:
		location = req.Location
	}
	recurring := block.Recurring
	if req.Recurring != nil {
		recurring = *req.Recurring
	}

	updated, err := scheduling.NewTimeBlock(block.TeacherID, dayName, start, end, location, recurring)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	updated.ID = block.ID
	updated.Assignments = block.Assignments
	updated.CreatedAt = block.CreatedAt

	if err := scheduling.AssignmentsFit(updated); err != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, err.Error())
	}

	if err := s.repo.Update(ctx, updated); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update time block")
	}
	s.invalidateTeacher(ctx, updated.TeacherID)
	return updated, nil
}

// Delete removes a block along with its assignments.
func (s *TimeBlockService) Delete(ctx context.Context, id string) error {
	block, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete time block")
	}
	s.invalidateTeacher(ctx, block.TeacherID)
	return nil
}

// AssignLesson places a student lesson inside a block. Capacity and overlap
// rules are enforced in memory before the assignment is persisted.
func (s *TimeBlockService) AssignLesson(ctx context.Context, blockID string, req dto.AssignLessonRequest) (*models.LessonAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	block, err := s.Get(ctx, blockID)
	if err != nil {
		return nil, err
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	assignment, err := scheduling.AddAssignment(block, student.ID, student.FullName, req.StartTime, req.Duration)
	if err != nil {
		var assignErr *scheduling.AssignmentError
		if errors.As(err, &assignErr) {
			if assignErr.Type == models.ConflictCapacityExceeded {
				return nil, appErrors.Clone(appErrors.ErrCapacityExceeded, assignErr.Message)
			}
			return nil, appErrors.Clone(appErrors.ErrConflict, assignErr.Message)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to place assignment")
	}

	if err := s.repo.CreateAssignment(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save assignment")
	}
	s.invalidateTeacher(ctx, block.TeacherID)
	s.logger.Info("lesson assigned",
		zap.String("time_block_id", blockID),
		zap.String("student_id", student.ID),
		zap.String("start_time", assignment.StartTime))
	return assignment, nil
}

// RemoveLesson detaches an assignment from a block. Unknown IDs are a no-op.
func (s *TimeBlockService) RemoveLesson(ctx context.Context, blockID, assignmentID string) error {
	block, err := s.Get(ctx, blockID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteAssignment(ctx, blockID, assignmentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove assignment")
	}
	s.invalidateTeacher(ctx, block.TeacherID)
	return nil
}

// Utilization reports how much of each of a teacher's blocks is occupied.
func (s *TimeBlockService) Utilization(ctx context.Context, teacherID string) ([]dto.BlockUtilization, error) {
	blocks, err := s.ListByTeacher(ctx, teacherID, nil)
	if err != nil {
		return nil, err
	}
	result := make([]dto.BlockUtilization, 0, len(blocks))
	for _, block := range blocks {
		result = append(result, dto.BlockUtilization{
			TimeBlockID: block.ID,
			Utilization: scheduling.Utilization(block),
			Assigned:    len(block.Assignments),
		})
	}
	return result, nil
}

// SearchAvailableSlots ranks candidate lesson placements across all of a
// teacher's blocks, honoring day and time-range preferences.
func (s *TimeBlockService) SearchAvailableSlots(ctx context.Context, req dto.SlotSearchRequest) (*dto.SlotSearchResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid search payload")
	}

	preferredDays := make(map[timeutil.Day]bool, len(req.PreferredDays))
	for _, name := range req.PreferredDays {
		day, err := timeutil.ParseDay(name)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid preferred day")
		}
		preferredDays[day] = true
	}

	blocks, err := s.ListByTeacher(ctx, req.TeacherID, nil)
	if err != nil {
		return nil, err
	}

	var excludedBookings []models.Slot
	if req.ExcludeStudentID != "" && s.bookings != nil {
		excludedBookings, err = s.bookings.FindByStudent(ctx, req.ExcludeStudentID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student bookings")
		}
	}

	sortBy := scheduling.SortOptimal
	if req.SortBy == string(scheduling.SortChronological) {
		sortBy = scheduling.SortChronological
	}

	start := time.Now()
	var candidates []models.AvailableSlot
	for _, block := range blocks {
		if len(preferredDays) > 0 && !preferredDays[block.Day] {
			continue
		}
		found := scheduling.FindAvailableSlots(block, req.Duration, scheduling.SearchOptions{SortBy: sortBy})
		for _, c := range found {
			if !withinTimeRange(c, req.Duration, req.MinStartTime, req.MaxEndTime) {
				continue
			}
			if scheduling.CollidesWithBookings(c, excludedBookings) {
				continue
			}
			candidates = append(candidates, c)
		}
	}

	// merge per-block orderings into a single global ranking
	if sortBy == scheduling.SortOptimal {
		sort.SliceStable(candidates, func(i, j int) bool {
			if candidates[i].OptimalScore != candidates[j].OptimalScore {
				return candidates[i].OptimalScore > candidates[j].OptimalScore
			}
			if candidates[i].Day != candidates[j].Day {
				return candidates[i].Day < candidates[j].Day
			}
			return candidates[i].PossibleStartTime < candidates[j].PossibleStartTime
		})
	} else {
		sort.SliceStable(candidates, func(i, j int) bool {
			if candidates[i].Day != candidates[j].Day {
				return candidates[i].Day < candidates[j].Day
			}
			return candidates[i].PossibleStartTime < candidates[j].PossibleStartTime
		})
	}

	if req.MaxResults > 0 && len(candidates) > req.MaxResults {
		candidates = candidates[:req.MaxResults]
	}
	if candidates == nil {
		candidates = []models.AvailableSlot{}
	}

	if s.metrics != nil {
		s.metrics.ObserveSlotSearch(string(sortBy), time.Since(start))
	}

	return &dto.SlotSearchResponse{
		TeacherID:  req.TeacherID,
		Duration:   req.Duration,
		Candidates: candidates,
	}, nil
}

func withinTimeRange(c models.AvailableSlot, duration int, minStart, maxEnd string) bool {
	if minStart != "" && c.PossibleStartTime < minStart {
		return false
	}
	if maxEnd != "" {
		startMin, err := timeutil.ToMinutes(c.PossibleStartTime)
		if err != nil {
			return false
		}
		end := timeutil.FromMinutes(startMin + duration)
		if end > maxEnd {
			return false
		}
	}
	return true
}

func (s *TimeBlockService) invalidateTeacher(ctx context.Context, teacherID string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx, repository.TeacherScheduleKey(teacherID))
}
