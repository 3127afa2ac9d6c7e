package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klil-music/conservatory-api/internal/models"
	"github.com/klil-music/conservatory-api/pkg/timeutil"
)

func TestNewTimeBlock(t *testing.T) {
	block, err := NewTimeBlock("t1", "Monday", "14:00", "18:00", strPtr("Room 3"), true)
	require.NoError(t, err)
	assert.Equal(t, timeutil.Monday, block.Day)
	assert.Equal(t, "14:00", block.StartTime)
	assert.Equal(t, "18:00", block.EndTime)
	assert.True(t, block.Recurring)
	assert.Equal(t, 240, BlockDuration(*block))
}

func TestNewTimeBlockRejectsUnknownDay(t *testing.T) {
	_, err := NewTimeBlock("t1", "Someday", "14:00", "18:00", nil, false)
	assert.Error(t, err)
}

func TestNewTimeBlockRejectsInvertedRange(t *testing.T) {
	_, err := NewTimeBlock("t1", "Monday", "18:00", "14:00", nil, false)
	assert.Error(t, err)
}

func TestNewTimeBlockRejectsTooShortSpan(t *testing.T) {
	_, err := NewTimeBlock("t1", "Monday", "14:00", "14:20", nil, false)
	assert.Error(t, err)
}

func TestAddAssignment(t *testing.T) {
	block, err := NewTimeBlock("t1", "Tuesday", "16:00", "17:00", nil, true)
	require.NoError(t, err)

	assignment, err := AddAssignment(block, "s1", "Noa Cohen", "16:00", 45)
	require.NoError(t, err)
	assert.Equal(t, "16:00", assignment.StartTime)
	assert.Equal(t, "16:45", assignment.EndTime)
	assert.Equal(t, 45, assignment.Duration)
	require.Len(t, block.Assignments, 1)
	assert.InDelta(t, 75.0, Utilization(*block), 0.001)
}

func TestAddAssignmentOutsideBlockIsCapacityError(t *testing.T) {
	block, err := NewTimeBlock("t1", "Monday", "14:00", "16:00", nil, true)
	require.NoError(t, err)

	_, err = AddAssignment(block, "s1", "Noa Cohen", "15:30", 60)
	require.Error(t, err)
	var assignErr *AssignmentError
	require.ErrorAs(t, err, &assignErr)
	assert.Equal(t, models.ConflictCapacityExceeded, assignErr.Type)
	assert.Empty(t, block.Assignments)
}

func TestAddAssignmentBeforeBlockStartIsCapacityError(t *testing.T) {
	block, err := NewTimeBlock("t1", "Monday", "14:00", "16:00", nil, true)
	require.NoError(t, err)

	_, err = AddAssignment(block, "s1", "Noa Cohen", "13:00", 30)
	var assignErr *AssignmentError
	require.ErrorAs(t, err, &assignErr)
	assert.Equal(t, models.ConflictCapacityExceeded, assignErr.Type)
}

func TestAddAssignmentOverlapIsInvalidAssignment(t *testing.T) {
	block, err := NewTimeBlock("t1", "Monday", "14:00", "18:00", nil, true)
	require.NoError(t, err)
	_, err = AddAssignment(block, "s1", "Noa Cohen", "15:00", 60)
	require.NoError(t, err)

	_, err = AddAssignment(block, "s2", "Avi Levi", "15:30", 60)
	var assignErr *AssignmentError
	require.ErrorAs(t, err, &assignErr)
	assert.Equal(t, models.ConflictInvalidAssignment, assignErr.Type)
	assert.Len(t, block.Assignments, 1)
}

func TestAddAssignmentTouchingLessonsAllowed(t *testing.T) {
	block, err := NewTimeBlock("t1", "Monday", "14:00", "18:00", nil, true)
	require.NoError(t, err)
	_, err = AddAssignment(block, "s1", "Noa Cohen", "15:00", 60)
	require.NoError(t, err)

	_, err = AddAssignment(block, "s2", "Avi Levi", "16:00", 60)
	require.NoError(t, err)
	_, err = AddAssignment(block, "s3", "Dana Mor", "14:00", 60)
	require.NoError(t, err)
	require.Len(t, block.Assignments, 3)
}

func TestAddAssignmentKeepsAssignmentsSorted(t *testing.T) {
	block, err := NewTimeBlock("t1", "Monday", "14:00", "18:00", nil, true)
	require.NoError(t, err)
	_, err = AddAssignment(block, "s2", "Avi Levi", "16:00", 30)
	require.NoError(t, err)
	_, err = AddAssignment(block, "s1", "Noa Cohen", "14:00", 30)
	require.NoError(t, err)
	_, err = AddAssignment(block, "s3", "Dana Mor", "15:00", 30)
	require.NoError(t, err)

	starts := []string{block.Assignments[0].StartTime, block.Assignments[1].StartTime, block.Assignments[2].StartTime}
	assert.Equal(t, []string{"14:00", "15:00", "16:00"}, starts)
}

func TestAddAssignmentRejectsNonPositiveDuration(t *testing.T) {
	block, err := NewTimeBlock("t1", "Monday", "14:00", "18:00", nil, true)
	require.NoError(t, err)

	_, err = AddAssignment(block, "s1", "Noa Cohen", "14:00", 0)
	var assignErr *AssignmentError
	require.ErrorAs(t, err, &assignErr)
	assert.Equal(t, models.ConflictInvalidAssignment, assignErr.Type)
}

func TestRemoveAssignmentIsIdempotent(t *testing.T) {
	block, err := NewTimeBlock("t1", "Monday", "14:00", "18:00", nil, true)
	require.NoError(t, err)
	_, err = AddAssignment(block, "s1", "Noa Cohen", "15:00", 60)
	require.NoError(t, err)

	RemoveAssignment(block, "s1")
	assert.Empty(t, block.Assignments)

	RemoveAssignment(block, "s1")
	assert.Empty(t, block.Assignments)

	RemoveAssignment(block, "missing")
	assert.Empty(t, block.Assignments)
}

func TestUtilizationEmptyBlock(t *testing.T) {
	block, err := NewTimeBlock("t1", "Monday", "14:00", "18:00", nil, true)
	require.NoError(t, err)
	assert.Zero(t, Utilization(*block))
}

func TestUtilizationNeverExceedsHundred(t *testing.T) {
	block, err := NewTimeBlock("t1", "Monday", "14:00", "15:00", nil, true)
	require.NoError(t, err)
	// Corrupted durations must still clamp.
	block.Assignments = []models.LessonAssignment{
		{StartTime: "14:00", EndTime: "15:00", Duration: 90},
	}
	assert.Equal(t, 100.0, Utilization(*block))
}

func TestUtilizationFullBlock(t *testing.T) {
	block, err := NewTimeBlock("t1", "Monday", "14:00", "15:00", nil, true)
	require.NoError(t, err)
	_, err = AddAssignment(block, "s1", "Noa Cohen", "14:00", 60)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, Utilization(*block), 0.001)
}
