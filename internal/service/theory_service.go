package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/klil-music/conservatory-api/internal/models"
	"github.com/klil-music/conservatory-api/internal/scheduling"
	appErrors "github.com/klil-music/conservatory-api/pkg/errors"
	"github.com/klil-music/conservatory-api/pkg/timeutil"
)

type theoryRepository interface {
	List(ctx context.Context, filter models.TheoryLessonFilter) ([]models.TheoryLesson, int, error)
	FindByID(ctx context.Context, id string) (*models.TheoryLesson, error)
	FindByDateRange(ctx context.Context, from, to time.Time) ([]models.TheoryLesson, error)
	Create(ctx context.Context, lesson *models.TheoryLesson) error
	CreateBatch(ctx context.Context, lessons []models.TheoryLesson) error
	Update(ctx context.Context, lesson *models.TheoryLesson) error
	Delete(ctx context.Context, id string) error
}

// CreateTheoryLessonRequest holds payload for a single dated lesson.
type CreateTheoryLessonRequest struct {
	Category   string    `json:"category" validate:"required"`
	TeacherID  string    `json:"teacher_id" validate:"required"`
	Date       time.Time `json:"date" validate:"required"`
	StartTime  string    `json:"start_time" validate:"required"`
	EndTime    string    `json:"end_time" validate:"required"`
	Room       string    `json:"room" validate:"required"`
	StudentIDs []string  `json:"student_ids"`
}

// CreateRecurringTheoryRequest expands a weekly lesson into dated rows.
type CreateRecurringTheoryRequest struct {
	Category      string      `json:"category" validate:"required"`
	TeacherID     string      `json:"teacher_id" validate:"required"`
	DayOfWeek     string      `json:"day_of_week" validate:"required"`
	StartTime     string      `json:"start_time" validate:"required"`
	EndTime       string      `json:"end_time" validate:"required"`
	Room          string      `json:"room" validate:"required"`
	StudentIDs    []string    `json:"student_ids"`
	FromDate      time.Time   `json:"from_date" validate:"required"`
	ToDate        time.Time   `json:"to_date" validate:"required"`
	ExcludedDates []time.Time `json:"excluded_dates"`
}

// TheoryService manages dated theory lessons and room conflict checks.
type TheoryService struct {
	repo      theoryRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTheoryService constructs the theory service.
func NewTheoryService(repo theoryRepository, validate *validator.Validate, logger *zap.Logger) *TheoryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TheoryService{repo: repo, validator: validate, logger: logger}
}

// List returns lessons and pagination metadata.
func (s *TheoryService) List(ctx context.Context, filter models.TheoryLessonFilter) ([]models.TheoryLesson, *models.Pagination, error) {
	lessons, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list theory lessons")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	return lessons, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a single lesson.
func (s *TheoryService) Get(ctx context.Context, id string) (*models.TheoryLesson, error) {
	lesson, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "theory lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load theory lesson")
	}
	return lesson, nil
}

// Create schedules one dated lesson, rejecting room collisions on that date.
func (s *TheoryService) Create(ctx context.Context, req CreateTheoryLessonRequest) (*models.TheoryLesson, []models.RoomConflict, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid theory lesson payload")
	}
	if err := validateTimeRange(req.StartTime, req.EndTime); err != nil {
		return nil, nil, err
	}

	lesson := models.TheoryLesson{
		Category:   req.Category,
		TeacherID:  req.TeacherID,
		Date:       req.Date,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Room:       req.Room,
		StudentIDs: req.StudentIDs,
	}

	conflicts, err := s.checkRoomConflicts(ctx, []models.TheoryLesson{lesson}, "")
	if err != nil {
		return nil, nil, err
	}
	if len(conflicts) > 0 {
		return nil, conflicts, appErrors.Clone(appErrors.ErrConflict, "room is already booked at that time")
	}

	if err := s.repo.Create(ctx, &lesson); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create theory lesson")
	}
	return &lesson, nil, nil
}

// CreateRecurring expands a weekly pattern between two dates into individual
// lessons, skipping excluded dates, and inserts the whole series atomically.
func (s *TheoryService) CreateRecurring(ctx context.Context, req CreateRecurringTheoryRequest) ([]models.TheoryLesson, []models.RoomConflict, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid recurring lesson payload")
	}
	if err := validateTimeRange(req.StartTime, req.EndTime); err != nil {
		return nil, nil, err
	}
	day, err := timeutil.ParseDay(req.DayOfWeek)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid day of week")
	}
	if req.ToDate.Before(req.FromDate) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "to_date must not precede from_date")
	}

	dates := scheduling.ExpandWeeklyDates(req.FromDate, req.ToDate, day, req.ExcludedDates)
	if len(dates) == 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "no lesson dates in the requested range")
	}

	lessons := make([]models.TheoryLesson, 0, len(dates))
	for _, date := range dates {
		lessons = append(lessons, models.TheoryLesson{
			Category:   req.Category,
			TeacherID:  req.TeacherID,
			Date:       date,
			StartTime:  req.StartTime,
			EndTime:    req.EndTime,
			Room:       req.Room,
			StudentIDs: req.StudentIDs,
		})
	}

	conflicts, err := s.checkRoomConflicts(ctx, lessons, "")
	if err != nil {
		return nil, nil, err
	}
	if len(conflicts) > 0 {
		return nil, conflicts, appErrors.Clone(appErrors.ErrConflict, "series collides with existing room bookings")
	}

	if err := s.repo.CreateBatch(ctx, lessons); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lesson series")
	}
	s.logger.Info("recurring theory series created",
		zap.String("category", req.Category),
		zap.String("room", req.Room),
		zap.Int("lessons", len(lessons)))
	return lessons, nil, nil
}

// Update rewrites a lesson, revalidating the room on its date.
func (s *TheoryService) Update(ctx context.Context, id string, req CreateTheoryLessonRequest) (*models.TheoryLesson, []models.RoomConflict, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid theory lesson payload")
	}
	if err := validateTimeRange(req.StartTime, req.EndTime); err != nil {
		return nil, nil, err
	}
	lesson, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	updated := *lesson
	updated.Category = req.Category
	updated.TeacherID = req.TeacherID
	updated.Date = req.Date
	updated.StartTime = req.StartTime
	updated.EndTime = req.EndTime
	updated.Room = req.Room
	updated.StudentIDs = req.StudentIDs

	conflicts, err := s.checkRoomConflicts(ctx, []models.TheoryLesson{updated}, id)
	if err != nil {
		return nil, nil, err
	}
	if len(conflicts) > 0 {
		return nil, conflicts, appErrors.Clone(appErrors.ErrConflict, "room is already booked at that time")
	}

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update theory lesson")
	}
	return &updated, nil, nil
}

// Delete removes a lesson.
func (s *TheoryService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete theory lesson")
	}
	return nil
}

// RoomConflicts scans every lesson between two dates for double-booked rooms.
func (s *TheoryService) RoomConflicts(ctx context.Context, from, to time.Time) ([]models.RoomConflict, error) {
	lessons, err := s.repo.FindByDateRange(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lessons")
	}
	conflicts := scheduling.FindRoomConflicts(lessons)
	if conflicts == nil {
		conflicts = []models.RoomConflict{}
	}
	return conflicts, nil
}

// checkRoomConflicts merges the candidates with the stored lessons on the
// affected dates and reports collisions involving a candidate. excludeID
// drops the stored copy of a lesson that is being rewritten.
func (s *TheoryService) checkRoomConflicts(ctx context.Context, candidates []models.TheoryLesson, excludeID string) ([]models.RoomConflict, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	from, to := candidates[0].Date, candidates[0].Date
	for _, c := range candidates[1:] {
		if c.Date.Before(from) {
			from = c.Date
		}
		if c.Date.After(to) {
			to = c.Date
		}
	}

	existing, err := s.repo.FindByDateRange(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lessons")
	}

	scan := make([]models.TheoryLesson, 0, len(existing)+len(candidates))
	for _, lesson := range existing {
		if excludeID != "" && lesson.ID == excludeID {
			continue
		}
		scan = append(scan, lesson)
	}
	scan = append(scan, candidates...)
	all := scheduling.FindRoomConflicts(scan)

	candidateIDs := make(map[string]bool, len(candidates))
	for i := range candidates {
		candidateIDs[candidates[i].ID] = true
	}

	var relevant []models.RoomConflict
	for _, c := range all {
		if candidateIDs[c.LessonA.ID] || (c.LessonB != nil && candidateIDs[c.LessonB.ID]) {
			relevant = append(relevant, c)
		}
	}
	return relevant, nil
}

func validateTimeRange(start, end string) error {
	startMin, err := timeutil.ToMinutes(start)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start time")
	}
	endMin, err := timeutil.ToMinutes(end)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end time")
	}
	if endMin <= startMin {
		return appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}
	return nil
}
