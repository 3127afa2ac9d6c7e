package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klil-music/conservatory-api/internal/models"
	"github.com/klil-music/conservatory-api/pkg/timeutil"
)

func TestGroupByDaySortsWithinDay(t *testing.T) {
	slots := []models.Slot{
		makeSlot("b", "t1", nil, timeutil.Monday, "11:00", "12:00"),
		makeSlot("a", "t1", nil, timeutil.Monday, "09:00", "10:00"),
		makeSlot("c", "t1", nil, timeutil.Wednesday, "08:00", "09:00"),
	}
	week := GroupByDay(slots)
	require.Len(t, week[timeutil.Monday], 2)
	assert.Equal(t, "a", week[timeutil.Monday][0].ID)
	assert.Equal(t, "b", week[timeutil.Monday][1].ID)
	require.Len(t, week[timeutil.Wednesday], 1)
}

func TestGroupByDaySkipsInvalidDays(t *testing.T) {
	bad := makeSlot("x", "t1", nil, timeutil.Day(9), "09:00", "10:00")
	week := GroupByDay([]models.Slot{bad})
	assert.Empty(t, week)
}

func TestFlattenRoundTrip(t *testing.T) {
	slots := []models.Slot{
		makeSlot("a", "t1", nil, timeutil.Sunday, "09:00", "10:00"),
		makeSlot("b", "t1", nil, timeutil.Monday, "09:00", "10:00"),
		makeSlot("c", "t1", nil, timeutil.Saturday, "09:00", "10:00"),
	}
	flat := Flatten(GroupByDay(slots))
	require.Len(t, flat, 3)
	assert.Equal(t, "a", flat[0].ID)
	assert.Equal(t, "b", flat[1].ID)
	assert.Equal(t, "c", flat[2].ID)
}

func TestBuildTeacherWeekCounts(t *testing.T) {
	inactive := makeSlot("d", "t1", nil, timeutil.Friday, "09:00", "10:00")
	inactive.Active = false
	slots := []models.Slot{
		makeSlot("a", "t1", strPtr("s1"), timeutil.Monday, "09:00", "10:00"),
		makeSlot("b", "t1", nil, timeutil.Monday, "10:00", "11:00"),
		makeSlot("c", "t2", nil, timeutil.Monday, "10:00", "11:00"),
		inactive,
	}
	week := BuildTeacherWeek("t1", slots)
	assert.Equal(t, 2, week.TotalSlots)
	assert.Equal(t, 1, week.OccupiedSlots)
	assert.Equal(t, 1, week.AvailableSlots)
	assert.Len(t, week.Days[timeutil.Monday], 2)
}

func TestFilterAvailable(t *testing.T) {
	slots := []models.Slot{
		makeSlot("a", "t1", nil, timeutil.Monday, "09:00", "10:00"),
		makeSlot("b", "t1", strPtr("s2"), timeutil.Monday, "10:00", "11:00"),
		makeSlot("c", "t1", nil, timeutil.Tuesday, "09:00", "10:00"),
	}
	day := timeutil.Monday
	open := FilterAvailable(slots, models.AvailabilityFilter{DayOfWeek: &day}, nil)
	require.Len(t, open, 1)
	assert.Equal(t, "a", open[0].ID)
}

func TestFilterAvailableTimeRangeAndDuration(t *testing.T) {
	slots := []models.Slot{
		makeSlot("a", "t1", nil, timeutil.Monday, "08:00", "09:00"),
		makeSlot("b", "t1", nil, timeutil.Monday, "10:00", "10:45"),
		makeSlot("c", "t1", nil, timeutil.Monday, "16:00", "17:00"),
	}
	open := FilterAvailable(slots, models.AvailabilityFilter{MinStartTime: "09:00", MaxEndTime: "18:00", Duration: 45}, nil)
	require.Len(t, open, 1)
	assert.Equal(t, "b", open[0].ID)
}

func TestFilterAvailableExcludesStudentConflicts(t *testing.T) {
	slots := []models.Slot{
		makeSlot("a", "t1", nil, timeutil.Monday, "09:00", "10:00"),
		makeSlot("b", "t1", nil, timeutil.Monday, "11:00", "12:00"),
	}
	studentBookings := []models.Slot{
		makeSlot("x", "t2", strPtr("s1"), timeutil.Monday, "09:30", "10:30"),
	}
	open := FilterAvailable(slots, models.AvailabilityFilter{ExcludeStudentID: "s1"}, studentBookings)
	require.Len(t, open, 1)
	assert.Equal(t, "b", open[0].ID)
}

func TestCanAssignOpenSlot(t *testing.T) {
	slot := makeSlot("a", "t1", nil, timeutil.Monday, "09:00", "10:00")
	check := CanAssign(slot, "s1", nil)
	assert.True(t, check.CanAssign)
	assert.Empty(t, check.Reason)
}

func TestCanAssignOccupiedSlot(t *testing.T) {
	slot := makeSlot("a", "t1", strPtr("s2"), timeutil.Monday, "09:00", "10:00")
	check := CanAssign(slot, "s1", nil)
	assert.False(t, check.CanAssign)
	assert.Contains(t, check.Reason, "occupied")
}

func TestCanAssignStudentScheduleConflict(t *testing.T) {
	slot := makeSlot("a", "t1", nil, timeutil.Monday, "09:00", "10:00")
	existing := []models.Slot{
		makeSlot("x", "t2", strPtr("s1"), timeutil.Monday, "09:30", "10:00"),
	}
	check := CanAssign(slot, "s1", existing)
	assert.False(t, check.CanAssign)
	assert.Contains(t, check.Reason, "Monday")
	assert.Contains(t, check.Reason, "09:30")
}

func TestCanAssignIgnoresTouchingBooking(t *testing.T) {
	slot := makeSlot("a", "t1", nil, timeutil.Monday, "09:00", "10:00")
	existing := []models.Slot{
		makeSlot("x", "t2", strPtr("s1"), timeutil.Monday, "10:00", "11:00"),
	}
	check := CanAssign(slot, "s1", existing)
	assert.True(t, check.CanAssign)
}

func TestBuildStudentSchedule(t *testing.T) {
	slots := []models.Slot{
		makeSlot("a", "t1", strPtr("s1"), timeutil.Monday, "09:00", "10:00"),
		makeSlot("b", "t2", strPtr("s1"), timeutil.Wednesday, "14:00", "14:45"),
		makeSlot("c", "t1", strPtr("s2"), timeutil.Monday, "11:00", "12:00"),
	}
	names := map[string]string{"t1": "Rivka Stern", "t2": "Yoel Baron"}
	schedule := BuildStudentSchedule("s1", slots, names)

	require.Len(t, schedule.Teachers, 2)
	assert.Equal(t, "t1", schedule.Teachers[0].TeacherID)
	assert.Equal(t, "Rivka Stern", schedule.Teachers[0].TeacherName)
	assert.Equal(t, "t2", schedule.Teachers[1].TeacherID)
	// 60 + 45 minutes = 1.75 hours.
	assert.Equal(t, 1.75, schedule.TotalHours)
}

func TestBuildStudentScheduleRounding(t *testing.T) {
	slots := []models.Slot{
		makeSlot("a", "t1", strPtr("s1"), timeutil.Monday, "09:00", "09:50"),
	}
	schedule := BuildStudentSchedule("s1", slots, nil)
	assert.Equal(t, 0.83, schedule.TotalHours)
}

func TestBuildStudentScheduleEmpty(t *testing.T) {
	schedule := BuildStudentSchedule("missing", nil, nil)
	assert.Empty(t, schedule.Teachers)
	assert.Zero(t, schedule.TotalHours)
}
