package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klil-music/conservatory-api/internal/models"
	appErrors "github.com/klil-music/conservatory-api/pkg/errors"
)

type mockTheoryRepo struct {
	lessons map[string]models.TheoryLesson
	nextID  int
}

func newMockTheoryRepo(lessons ...models.TheoryLesson) *mockTheoryRepo {
	m := &mockTheoryRepo{lessons: make(map[string]models.TheoryLesson)}
	for _, l := range lessons {
		m.lessons[l.ID] = l
	}
	return m
}

func (m *mockTheoryRepo) List(ctx context.Context, filter models.TheoryLessonFilter) ([]models.TheoryLesson, int, error) {
	var out []models.TheoryLesson
	for _, l := range m.lessons {
		if filter.Category != "" && l.Category != filter.Category {
			continue
		}
		out = append(out, l)
	}
	return out, len(out), nil
}

func (m *mockTheoryRepo) FindByID(ctx context.Context, id string) (*models.TheoryLesson, error) {
	l, ok := m.lessons[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &l, nil
}

func (m *mockTheoryRepo) FindByDateRange(ctx context.Context, from, to time.Time) ([]models.TheoryLesson, error) {
	var out []models.TheoryLesson
	for _, l := range m.lessons {
		if l.Date.Before(from) || l.Date.After(to) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (m *mockTheoryRepo) Create(ctx context.Context, lesson *models.TheoryLesson) error {
	if lesson.ID == "" {
		m.nextID++
		lesson.ID = fmt.Sprintf("tl%d", m.nextID)
	}
	m.lessons[lesson.ID] = *lesson
	return nil
}

func (m *mockTheoryRepo) CreateBatch(ctx context.Context, lessons []models.TheoryLesson) error {
	for i := range lessons {
		if err := m.Create(ctx, &lessons[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockTheoryRepo) Update(ctx context.Context, lesson *models.TheoryLesson) error {
	m.lessons[lesson.ID] = *lesson
	return nil
}

func (m *mockTheoryRepo) Delete(ctx context.Context, id string) error {
	delete(m.lessons, id)
	return nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func theoryLesson(id, category, room string, day time.Time, start, end string) models.TheoryLesson {
	return models.TheoryLesson{
		ID:        id,
		Category:  category,
		TeacherID: "t1",
		Date:      day,
		StartTime: start,
		EndTime:   end,
		Room:      room,
	}
}

func TestTheoryServiceCreate(t *testing.T) {
	repo := newMockTheoryRepo()
	svc := NewTheoryService(repo, nil, nil)

	lesson, conflicts, err := svc.Create(context.Background(), CreateTheoryLessonRequest{
		Category:  "harmony",
		TeacherID: "t1",
		Date:      date(2026, time.September, 7),
		StartTime: "16:00",
		EndTime:   "17:00",
		Room:      "Room A",
	})
	require.NoError(t, err)
	assert.Empty(t, conflicts)
	assert.NotEmpty(t, lesson.ID)
}

func TestTheoryServiceCreateRejectsRoomCollision(t *testing.T) {
	repo := newMockTheoryRepo(
		theoryLesson("tl1", "solfege", "Room A", date(2026, time.September, 7), "16:00", "17:00"))
	svc := NewTheoryService(repo, nil, nil)

	_, conflicts, err := svc.Create(context.Background(), CreateTheoryLessonRequest{
		Category:  "harmony",
		TeacherID: "t2",
		Date:      date(2026, time.September, 7),
		StartTime: "16:30",
		EndTime:   "17:30",
		Room:      "Room A",
	})
	require.Error(t, err)
	require.NotEmpty(t, conflicts)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestTheoryServiceCreateAllowsSameTimeDifferentRoom(t *testing.T) {
	repo := newMockTheoryRepo(
		theoryLesson("tl1", "solfege", "Room A", date(2026, time.September, 7), "16:00", "17:00"))
	svc := NewTheoryService(repo, nil, nil)

	_, conflicts, err := svc.Create(context.Background(), CreateTheoryLessonRequest{
		Category:  "harmony",
		TeacherID: "t2",
		Date:      date(2026, time.September, 7),
		StartTime: "16:00",
		EndTime:   "17:00",
		Room:      "Room B",
	})
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestTheoryServiceCreateRecurringExpandsWeeks(t *testing.T) {
	repo := newMockTheoryRepo()
	svc := NewTheoryService(repo, nil, nil)

	// Sep 2026: Mondays fall on 7, 14, 21, 28
	lessons, conflicts, err := svc.CreateRecurring(context.Background(), CreateRecurringTheoryRequest{
		Category:      "harmony",
		TeacherID:     "t1",
		DayOfWeek:     "Monday",
		StartTime:     "16:00",
		EndTime:       "17:00",
		Room:          "Room A",
		FromDate:      date(2026, time.September, 1),
		ToDate:        date(2026, time.September, 30),
		ExcludedDates: []time.Time{date(2026, time.September, 21)},
	})
	require.NoError(t, err)
	assert.Empty(t, conflicts)
	require.Len(t, lessons, 3)
	assert.Equal(t, date(2026, time.September, 7), lessons[0].Date)
	assert.Equal(t, date(2026, time.September, 14), lessons[1].Date)
	assert.Equal(t, date(2026, time.September, 28), lessons[2].Date)
	assert.Len(t, repo.lessons, 3)
}

func TestTheoryServiceCreateRecurringRejectsEmptyRange(t *testing.T) {
	svc := NewTheoryService(newMockTheoryRepo(), nil, nil)

	// no Sundays between a Monday and the following Saturday
	_, _, err := svc.CreateRecurring(context.Background(), CreateRecurringTheoryRequest{
		Category:  "harmony",
		TeacherID: "t1",
		DayOfWeek: "Sunday",
		StartTime: "16:00",
		EndTime:   "17:00",
		Room:      "Room A",
		FromDate:  date(2026, time.September, 7),
		ToDate:    date(2026, time.September, 12),
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestTheoryServiceCreateRecurringRejectsSeriesCollision(t *testing.T) {
	repo := newMockTheoryRepo(
		theoryLesson("tl1", "solfege", "Room A", date(2026, time.September, 14), "16:30", "17:30"))
	svc := NewTheoryService(repo, nil, nil)

	_, conflicts, err := svc.CreateRecurring(context.Background(), CreateRecurringTheoryRequest{
		Category:  "harmony",
		TeacherID: "t1",
		DayOfWeek: "Monday",
		StartTime: "16:00",
		EndTime:   "17:00",
		Room:      "Room A",
		FromDate:  date(2026, time.September, 1),
		ToDate:    date(2026, time.September, 30),
	})
	require.Error(t, err)
	require.NotEmpty(t, conflicts)
	assert.Len(t, repo.lessons, 1, "nothing inserted when the series collides")
}

func TestTheoryServiceUpdateDoesNotConflictWithItself(t *testing.T) {
	repo := newMockTheoryRepo(
		theoryLesson("tl1", "harmony", "Room A", date(2026, time.September, 7), "16:00", "17:00"))
	svc := NewTheoryService(repo, nil, nil)

	updated, conflicts, err := svc.Update(context.Background(), "tl1", CreateTheoryLessonRequest{
		Category:  "harmony",
		TeacherID: "t1",
		Date:      date(2026, time.September, 7),
		StartTime: "16:30",
		EndTime:   "17:30",
		Room:      "Room A",
	})
	require.NoError(t, err)
	assert.Empty(t, conflicts)
	assert.Equal(t, "16:30", updated.StartTime)
}

func TestTheoryServiceUpdateStillCatchesOtherLessons(t *testing.T) {
	repo := newMockTheoryRepo(
		theoryLesson("tl1", "harmony", "Room A", date(2026, time.September, 7), "16:00", "17:00"),
		theoryLesson("tl2", "solfege", "Room B", date(2026, time.September, 7), "16:00", "17:00"))
	svc := NewTheoryService(repo, nil, nil)

	// moving tl1 into Room B collides with tl2
	_, conflicts, err := svc.Update(context.Background(), "tl1", CreateTheoryLessonRequest{
		Category:  "harmony",
		TeacherID: "t1",
		Date:      date(2026, time.September, 7),
		StartTime: "16:00",
		EndTime:   "17:00",
		Room:      "Room B",
	})
	require.Error(t, err)
	require.NotEmpty(t, conflicts)
}

func TestTheoryServiceRoomConflictsScansRange(t *testing.T) {
	repo := newMockTheoryRepo(
		theoryLesson("tl1", "harmony", "Room A", date(2026, time.September, 7), "16:00", "17:00"),
		theoryLesson("tl2", "solfege", "Room A", date(2026, time.September, 7), "16:30", "17:30"),
		theoryLesson("tl3", "rhythm", "Room A", date(2026, time.September, 8), "16:00", "17:00"))
	svc := NewTheoryService(repo, nil, nil)

	conflicts, err := svc.RoomConflicts(context.Background(),
		date(2026, time.September, 1), date(2026, time.September, 30))
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "Room A", conflicts[0].Room)
}

func TestTheoryServiceCreateRejectsInvertedTimes(t *testing.T) {
	svc := NewTheoryService(newMockTheoryRepo(), nil, nil)

	_, _, err := svc.Create(context.Background(), CreateTheoryLessonRequest{
		Category:  "harmony",
		TeacherID: "t1",
		Date:      date(2026, time.September, 7),
		StartTime: "17:00",
		EndTime:   "16:00",
		Room:      "Room A",
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
