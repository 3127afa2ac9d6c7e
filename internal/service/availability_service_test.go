package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klil-music/conservatory-api/internal/models"
	"github.com/klil-music/conservatory-api/internal/repository"
	appErrors "github.com/klil-music/conservatory-api/pkg/errors"
	"github.com/klil-music/conservatory-api/pkg/timeutil"
)

type mockCacheRepo struct {
	entries map[string][]byte
	gets    int
	sets    int
}

func newMockCacheRepo() *mockCacheRepo {
	return &mockCacheRepo{entries: make(map[string][]byte)}
}

func (m *mockCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	m.gets++
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *mockCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.sets++
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *mockCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	delete(m.entries, pattern)
	return nil
}

type mockTeacherLookup struct {
	teachers map[string]models.Teacher
}

func (m *mockTeacherLookup) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if t, ok := m.teachers[id]; ok {
		return &t, nil
	}
	return nil, sql.ErrNoRows
}

func newAvailabilityService(slots *mockSlotRepo, cache *CacheService) *AvailabilityService {
	teachers := &mockTeacherLookup{teachers: map[string]models.Teacher{
		"t1": {ID: "t1", FullName: "Teacher One", Active: true},
	}}
	students := &mockStudentLookup{students: map[string]models.Student{
		"st1": {ID: "st1", FullName: "Student One", Active: true},
	}}
	return NewAvailabilityService(slots, teachers, students, cache, nil)
}

func TestAvailabilityServiceTeacherWeek(t *testing.T) {
	repo := newMockSlotRepo(
		activeSlot("s1", "t1", timeutil.Monday, "09:00", "09:45", strPtr("st1")),
		activeSlot("s2", "t1", timeutil.Monday, "10:00", "10:45", nil),
		activeSlot("s3", "t1", timeutil.Wednesday, "14:00", "14:45", nil),
	)
	svc := newAvailabilityService(repo, nil)

	week, fromCache, err := svc.TeacherWeek(context.Background(), "t1")
	require.False(t, fromCache)
	require.NoError(t, err)
	assert.Equal(t, 3, week.TotalSlots)
	assert.Equal(t, 1, week.OccupiedSlots)
	assert.Equal(t, 2, week.AvailableSlots)
	assert.Len(t, week.Days[timeutil.Monday], 2)
	assert.Len(t, week.Days[timeutil.Wednesday], 1)
}

func TestAvailabilityServiceTeacherWeekUnknownTeacher(t *testing.T) {
	svc := newAvailabilityService(newMockSlotRepo(), nil)

	_, _, err := svc.TeacherWeek(context.Background(), "missing")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestAvailabilityServiceTeacherWeekServesFromCache(t *testing.T) {
	repo := newMockSlotRepo(activeSlot("s1", "t1", timeutil.Monday, "09:00", "09:45", nil))
	cacheRepo := newMockCacheRepo()
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	svc := newAvailabilityService(repo, cache)

	first, fromCache, err := svc.TeacherWeek(context.Background(), "t1")
	require.False(t, fromCache)
	require.NoError(t, err)
	require.Equal(t, 1, cacheRepo.sets)

	// second read must come from cache, unaffected by later slot writes
	delete(repo.slots, "s1")
	second, fromCache, err := svc.TeacherWeek(context.Background(), "t1")
	require.NoError(t, err)
	require.True(t, fromCache)
	assert.Equal(t, first.TotalSlots, second.TotalSlots)
	assert.Equal(t, 1, cacheRepo.sets, "no second cache write on a hit")
}

func TestAvailabilityServiceTeacherWeekCacheInvalidation(t *testing.T) {
	repo := newMockSlotRepo(activeSlot("s1", "t1", timeutil.Monday, "09:00", "09:45", nil))
	cacheRepo := newMockCacheRepo()
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	svc := newAvailabilityService(repo, cache)

	_, _, err := svc.TeacherWeek(context.Background(), "t1")
	require.NoError(t, err)

	require.NoError(t, cache.Invalidate(context.Background(), repository.TeacherScheduleKey("t1")))

	delete(repo.slots, "s1")
	week, fromCache, err := svc.TeacherWeek(context.Background(), "t1")
	require.NoError(t, err)
	require.False(t, fromCache)
	assert.Equal(t, 0, week.TotalSlots, "rebuilt after invalidation")
}

func TestAvailabilityServiceOpenSlots(t *testing.T) {
	repo := newMockSlotRepo(
		activeSlot("s1", "t1", timeutil.Monday, "09:00", "09:45", strPtr("st2")),
		activeSlot("s2", "t1", timeutil.Monday, "10:00", "10:45", nil),
		activeSlot("s3", "t1", timeutil.Tuesday, "10:00", "10:45", nil),
	)
	svc := newAvailabilityService(repo, nil)

	day := timeutil.Monday
	open, err := svc.OpenSlots(context.Background(), "t1", models.AvailabilityFilter{DayOfWeek: &day})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "s2", open[0].ID)
}

func TestAvailabilityServiceOpenSlotsExcludesStudentCollisions(t *testing.T) {
	repo := newMockSlotRepo(
		// the student already studies elsewhere Monday 10:00-10:45
		activeSlot("other", "t9", timeutil.Monday, "10:00", "10:45", strPtr("st1")),
		activeSlot("s1", "t1", timeutil.Monday, "10:30", "11:15", nil),
		activeSlot("s2", "t1", timeutil.Monday, "11:15", "12:00", nil),
	)
	svc := newAvailabilityService(repo, nil)

	open, err := svc.OpenSlots(context.Background(), "t1", models.AvailabilityFilter{ExcludeStudentID: "st1"})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "s2", open[0].ID)
}

func TestAvailabilityServiceCheckAssignment(t *testing.T) {
	repo := newMockSlotRepo(
		activeSlot("s1", "t1", timeutil.Monday, "09:00", "09:45", nil),
		activeSlot("s2", "t1", timeutil.Monday, "09:30", "10:15", strPtr("st1")),
	)
	svc := newAvailabilityService(repo, nil)

	check, err := svc.CheckAssignment(context.Background(), "s1", "st1")
	require.NoError(t, err)
	assert.False(t, check.CanAssign)
	assert.Contains(t, check.Reason, "Monday")

	// nothing was persisted by the dry run
	assert.Nil(t, repo.slots["s1"].StudentID)
}

func TestAvailabilityServiceStudentWeek(t *testing.T) {
	repo := newMockSlotRepo(
		activeSlot("s1", "t1", timeutil.Monday, "09:00", "10:00", strPtr("st1")),
		activeSlot("s2", "t1", timeutil.Wednesday, "09:00", "09:30", strPtr("st1")),
		activeSlot("s3", "t2", timeutil.Friday, "11:00", "12:00", strPtr("st1")),
	)
	svc := newAvailabilityService(repo, nil)

	schedule, _, err := svc.StudentWeek(context.Background(), "st1")
	require.NoError(t, err)
	require.Len(t, schedule.Teachers, 2)
	assert.Equal(t, "t1", schedule.Teachers[0].TeacherID)
	assert.Equal(t, "Teacher One", schedule.Teachers[0].TeacherName)
	assert.Equal(t, "t2", schedule.Teachers[1].TeacherID)
	assert.InDelta(t, 2.5, schedule.TotalHours, 0.001)
}

func TestAvailabilityServiceStudentWeekUnknownStudent(t *testing.T) {
	svc := newAvailabilityService(newMockSlotRepo(), nil)

	_, _, err := svc.StudentWeek(context.Background(), "missing")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
