package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/klil-music/conservatory-api/internal/models"
	appErrors "github.com/klil-music/conservatory-api/pkg/errors"
	"github.com/klil-music/conservatory-api/pkg/timeutil"
)

type mockSlotRepo struct {
	slots map[string]models.Slot
}

func newMockSlotRepo(slots ...models.Slot) *mockSlotRepo {
	m := &mockSlotRepo{slots: make(map[string]models.Slot)}
	for _, s := range slots {
		m.slots[s.ID] = s
	}
	return m
}

func (m *mockSlotRepo) List(ctx context.Context, filter models.SlotFilter) ([]models.Slot, int, error) {
	var out []models.Slot
	for _, s := range m.slots {
		out = append(out, s)
	}
	return out, len(out), nil
}

func (m *mockSlotRepo) FindByID(ctx context.Context, id string) (*models.Slot, error) {
	if s, ok := m.slots[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSlotRepo) FindByTeacher(ctx context.Context, teacherID string) ([]models.Slot, error) {
	var out []models.Slot
	for _, s := range m.slots {
		if s.TeacherID == teacherID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockSlotRepo) FindByStudent(ctx context.Context, studentID string) ([]models.Slot, error) {
	var out []models.Slot
	for _, s := range m.slots {
		if s.Active && s.StudentID != nil && *s.StudentID == studentID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockSlotRepo) Create(ctx context.Context, slot *models.Slot) error {
	if slot.ID == "" {
		slot.ID = "generated"
	}
	m.slots[slot.ID] = *slot
	return nil
}

func (m *mockSlotRepo) Update(ctx context.Context, slot *models.Slot) error {
	m.slots[slot.ID] = *slot
	return nil
}

func (m *mockSlotRepo) SetStudent(ctx context.Context, slotID string, studentID *string) error {
	s := m.slots[slotID]
	s.StudentID = studentID
	m.slots[slotID] = s
	return nil
}

func (m *mockSlotRepo) Deactivate(ctx context.Context, id string) error {
	s := m.slots[id]
	s.Active = false
	m.slots[id] = s
	return nil
}

type mockStudentLookup struct {
	students map[string]models.Student
}

func (m *mockStudentLookup) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentLookup) FindByIDs(ctx context.Context, ids []string) ([]models.Student, error) {
	var out []models.Student
	for _, id := range ids {
		if s, ok := m.students[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func strPtr(s string) *string { return &s }

func activeSlot(id, teacherID string, day timeutil.Day, start, end string, studentID *string) models.Slot {
	startMin, _ := timeutil.ToMinutes(start)
	endMin, _ := timeutil.ToMinutes(end)
	return models.Slot{
		ID:        id,
		TeacherID: teacherID,
		StudentID: studentID,
		DayOfWeek: day,
		StartTime: start,
		EndTime:   end,
		Duration:  endMin - startMin,
		Active:    true,
	}
}

func TestSlotServiceCreate(t *testing.T) {
	repo := newMockSlotRepo()
	svc := NewSlotService(repo, &mockStudentLookup{}, nil, nil, validator.New(), zap.NewNop())

	slot, conflicts, err := svc.Create(context.Background(), CreateSlotRequest{
		TeacherID: "t1",
		DayOfWeek: "Monday",
		StartTime: "09:00",
		EndTime:   "09:45",
	})
	require.NoError(t, err)
	assert.Empty(t, conflicts)
	assert.NotEmpty(t, slot.ID)
	assert.Equal(t, 45, slot.Duration)
	assert.True(t, slot.Active)
}

func TestSlotServiceCreateRejectsOverlap(t *testing.T) {
	repo := newMockSlotRepo(activeSlot("s1", "t1", timeutil.Monday, "09:00", "10:00", nil))
	svc := NewSlotService(repo, &mockStudentLookup{}, nil, nil, validator.New(), zap.NewNop())

	_, conflicts, err := svc.Create(context.Background(), CreateSlotRequest{
		TeacherID: "t1",
		DayOfWeek: "Monday",
		StartTime: "09:30",
		EndTime:   "10:15",
	})
	require.Error(t, err)
	require.NotEmpty(t, conflicts)
	assert.Equal(t, models.ConflictOverlap, conflicts[0].Type)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestSlotServiceCreateAllowsTouchingSlots(t *testing.T) {
	repo := newMockSlotRepo(activeSlot("s1", "t1", timeutil.Monday, "09:00", "10:00", nil))
	svc := NewSlotService(repo, &mockStudentLookup{}, nil, nil, validator.New(), zap.NewNop())

	slot, conflicts, err := svc.Create(context.Background(), CreateSlotRequest{
		TeacherID: "t1",
		DayOfWeek: "Monday",
		StartTime: "10:00",
		EndTime:   "10:45",
	})
	require.NoError(t, err)
	assert.Empty(t, conflicts)
	assert.Equal(t, "10:00", slot.StartTime)
}

func TestSlotServiceUpdateExcludesOwnPreviousPosition(t *testing.T) {
	repo := newMockSlotRepo(activeSlot("s1", "t1", timeutil.Monday, "09:00", "10:00", nil))
	svc := NewSlotService(repo, &mockStudentLookup{}, nil, nil, validator.New(), zap.NewNop())

	// shifting the slot within its own old window must not self-conflict
	updated, conflicts, err := svc.Update(context.Background(), "s1", UpdateSlotRequest{
		DayOfWeek: "Monday",
		StartTime: "09:15",
		EndTime:   "10:15",
	})
	require.NoError(t, err)
	assert.Empty(t, conflicts)
	assert.Equal(t, "09:15", updated.StartTime)
	assert.Equal(t, 60, updated.Duration)
}

func TestSlotServiceAssign(t *testing.T) {
	repo := newMockSlotRepo(activeSlot("s1", "t1", timeutil.Monday, "09:00", "09:45", nil))
	students := &mockStudentLookup{students: map[string]models.Student{
		"st1": {ID: "st1", FullName: "Student One", Active: true},
	}}
	svc := NewSlotService(repo, students, nil, nil, validator.New(), zap.NewNop())

	slot, err := svc.Assign(context.Background(), "s1", "st1")
	require.NoError(t, err)
	require.NotNil(t, slot.StudentID)
	assert.Equal(t, "st1", *slot.StudentID)
}

func TestSlotServiceAssignRejectsOccupied(t *testing.T) {
	repo := newMockSlotRepo(activeSlot("s1", "t1", timeutil.Monday, "09:00", "09:45", strPtr("other")))
	students := &mockStudentLookup{students: map[string]models.Student{
		"st1": {ID: "st1", FullName: "Student One", Active: true},
	}}
	svc := NewSlotService(repo, students, nil, nil, validator.New(), zap.NewNop())

	_, err := svc.Assign(context.Background(), "s1", "st1")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestSlotServiceAssignRejectsStudentDoubleBooking(t *testing.T) {
	repo := newMockSlotRepo(
		activeSlot("s1", "t1", timeutil.Monday, "09:00", "09:45", nil),
		activeSlot("s2", "t2", timeutil.Monday, "09:30", "10:15", strPtr("st1")),
	)
	students := &mockStudentLookup{students: map[string]models.Student{
		"st1": {ID: "st1", FullName: "Student One", Active: true},
	}}
	svc := NewSlotService(repo, students, nil, nil, validator.New(), zap.NewNop())

	_, err := svc.Assign(context.Background(), "s1", "st1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Monday")
}

func TestSlotServiceUnassignIsIdempotent(t *testing.T) {
	repo := newMockSlotRepo(activeSlot("s1", "t1", timeutil.Monday, "09:00", "09:45", nil))
	svc := NewSlotService(repo, &mockStudentLookup{}, nil, nil, validator.New(), zap.NewNop())

	slot, err := svc.Unassign(context.Background(), "s1")
	require.NoError(t, err)
	assert.Nil(t, slot.StudentID)
}

func TestSlotServiceConflictsScansWholeWeek(t *testing.T) {
	repo := newMockSlotRepo(
		activeSlot("s1", "t1", timeutil.Monday, "09:00", "10:00", nil),
		activeSlot("s2", "t1", timeutil.Monday, "09:30", "10:30", nil),
		activeSlot("s3", "t1", timeutil.Tuesday, "09:00", "10:00", nil),
	)
	svc := NewSlotService(repo, &mockStudentLookup{}, nil, nil, validator.New(), zap.NewNop())

	conflicts, err := svc.Conflicts(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictOverlap, conflicts[0].Type)
}
