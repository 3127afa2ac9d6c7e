package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klil-music/conservatory-api/internal/models"
	"github.com/klil-music/conservatory-api/pkg/timeutil"
)

func emptyBlock(t *testing.T, day, start, end string) *models.TimeBlock {
	t.Helper()
	block, err := NewTimeBlock("t1", day, start, end, nil, true)
	require.NoError(t, err)
	block.ID = "block-1"
	return block
}

func TestFindAvailableSlotsEmptyBlock(t *testing.T) {
	block := emptyBlock(t, "Monday", "14:00", "18:00")

	candidates := FindAvailableSlots(*block, 60, SearchOptions{})
	require.NotEmpty(t, candidates)
	first := candidates[0]
	assert.Equal(t, "14:00", first.PossibleStartTime)
	assert.Equal(t, 60, first.Duration)
	assert.Zero(t, first.GapMinutesBefore)
	assert.Equal(t, timeutil.Monday, first.Day)
	assert.Equal(t, "block-1", first.TimeBlockID)
}

func TestFindAvailableSlotsAvoidsAssignments(t *testing.T) {
	block := emptyBlock(t, "Monday", "14:00", "18:00")
	_, err := AddAssignment(block, "s1", "Noa Cohen", "15:00", 60)
	require.NoError(t, err)

	candidates := FindAvailableSlots(*block, 60, SearchOptions{})
	require.NotEmpty(t, candidates)
	for _, c := range candidates {
		start, err := timeutil.ToMinutes(c.PossibleStartTime)
		require.NoError(t, err)
		end := start + c.Duration
		// The occupied range is 15:00-16:00.
		occupiedStart, occupiedEnd := 15*60, 16*60
		assert.False(t, start < occupiedEnd && end > occupiedStart,
			"candidate %s-%s overlaps the assigned lesson", c.PossibleStartTime, timeutil.FromMinutes(end))
	}

	starts := make(map[string]bool)
	for _, c := range candidates {
		starts[c.PossibleStartTime] = true
	}
	assert.True(t, starts["14:00"])
	assert.True(t, starts["16:00"])
	assert.False(t, starts["14:30"], "14:30 start would run into the 15:00 lesson")
}

func TestFindAvailableSlotsExactFitScoresHighest(t *testing.T) {
	block := emptyBlock(t, "Monday", "14:00", "18:00")
	_, err := AddAssignment(block, "s1", "Noa Cohen", "15:00", 60)
	require.NoError(t, err)

	// The 14:00-15:00 gap fits a 60 minute lesson exactly.
	candidates := FindAvailableSlots(*block, 60, SearchOptions{SortBy: SortOptimal})
	require.NotEmpty(t, candidates)
	best := candidates[0]
	assert.Equal(t, "14:00", best.PossibleStartTime)
	assert.Equal(t, 100, best.OptimalScore)
	assert.Zero(t, best.GapMinutesBefore)
	assert.Zero(t, best.GapMinutesAfter)
}

func TestFindAvailableSlotsExactGapYieldsSingleCandidate(t *testing.T) {
	block := emptyBlock(t, "Monday", "14:00", "16:00")
	_, err := AddAssignment(block, "s1", "Noa Cohen", "15:00", 60)
	require.NoError(t, err)

	candidates := FindAvailableSlots(*block, 60, SearchOptions{})
	require.Len(t, candidates, 1)
	assert.Equal(t, "14:00", candidates[0].PossibleStartTime)
	assert.Equal(t, 100, candidates[0].OptimalScore)
}

func TestFindAvailableSlotsDurationLongerThanLargestGap(t *testing.T) {
	block := emptyBlock(t, "Monday", "14:00", "16:00")
	_, err := AddAssignment(block, "s1", "Noa Cohen", "15:00", 60)
	require.NoError(t, err)

	candidates := FindAvailableSlots(*block, 61, SearchOptions{})
	assert.Empty(t, candidates)
}

func TestFindAvailableSlotsTighterFitNeverScoresLower(t *testing.T) {
	block := emptyBlock(t, "Monday", "09:00", "13:00")
	_, err := AddAssignment(block, "s1", "Noa Cohen", "10:00", 30)
	require.NoError(t, err)

	candidates := FindAvailableSlots(*block, 30, SearchOptions{})
	require.NotEmpty(t, candidates)

	scoreByStart := make(map[string]int)
	for _, c := range candidates {
		scoreByStart[c.PossibleStartTime] = c.OptimalScore
	}
	// 09:30 is adjacent to the 10:00 lesson; 09:15 leaves a 15 minute hole.
	require.Contains(t, scoreByStart, "09:30")
	require.Contains(t, scoreByStart, "09:15")
	assert.GreaterOrEqual(t, scoreByStart["09:30"], scoreByStart["09:15"])
	// 10:30 starts right after the lesson and beats a start deeper in the gap.
	require.Contains(t, scoreByStart, "10:30")
	require.Contains(t, scoreByStart, "11:30")
	assert.GreaterOrEqual(t, scoreByStart["10:30"], scoreByStart["11:30"])
}

func TestFindAvailableSlotsGapMetrics(t *testing.T) {
	block := emptyBlock(t, "Monday", "14:00", "18:00")
	_, err := AddAssignment(block, "s1", "Noa Cohen", "15:00", 60)
	require.NoError(t, err)

	candidates := FindAvailableSlots(*block, 30, SearchOptions{})
	byStart := make(map[string]models.AvailableSlot)
	for _, c := range candidates {
		byStart[c.PossibleStartTime] = c
	}

	first, ok := byStart["14:00"]
	require.True(t, ok)
	assert.Zero(t, first.GapMinutesBefore)
	assert.Equal(t, 30, first.GapMinutesAfter)

	afterLesson, ok := byStart["16:00"]
	require.True(t, ok)
	assert.Zero(t, afterLesson.GapMinutesBefore)
	assert.Equal(t, 90, afterLesson.GapMinutesAfter)
}

func TestFindAvailableSlotsNonPositiveDuration(t *testing.T) {
	block := emptyBlock(t, "Monday", "14:00", "18:00")
	assert.Empty(t, FindAvailableSlots(*block, 0, SearchOptions{}))
	assert.Empty(t, FindAvailableSlots(*block, -30, SearchOptions{}))
}

func TestFindAvailableSlotsDurationBeyondBlockSpan(t *testing.T) {
	block := emptyBlock(t, "Monday", "14:00", "15:00")
	assert.Empty(t, FindAvailableSlots(*block, 90, SearchOptions{}))
}

func TestFindAvailableSlotsChronologicalOrderByDefault(t *testing.T) {
	block := emptyBlock(t, "Monday", "14:00", "18:00")
	_, err := AddAssignment(block, "s1", "Noa Cohen", "15:00", 60)
	require.NoError(t, err)

	candidates := FindAvailableSlots(*block, 45, SearchOptions{})
	for i := 1; i < len(candidates); i++ {
		assert.LessOrEqual(t, candidates[i-1].PossibleStartTime, candidates[i].PossibleStartTime)
	}
}

func TestFindAvailableSlotsOptimalOrder(t *testing.T) {
	block := emptyBlock(t, "Monday", "14:00", "18:00")
	_, err := AddAssignment(block, "s1", "Noa Cohen", "15:00", 60)
	require.NoError(t, err)

	candidates := FindAvailableSlots(*block, 45, SearchOptions{SortBy: SortOptimal})
	for i := 1; i < len(candidates); i++ {
		assert.GreaterOrEqual(t, candidates[i-1].OptimalScore, candidates[i].OptimalScore)
	}
}

func TestFindAvailableSlotsUnalignedBlockStart(t *testing.T) {
	block := emptyBlock(t, "Monday", "14:10", "15:40")

	candidates := FindAvailableSlots(*block, 30, SearchOptions{})
	require.NotEmpty(t, candidates)
	assert.Equal(t, "14:10", candidates[0].PossibleStartTime, "earliest fit comes first even off the quarter-hour grid")

	starts := make(map[string]bool)
	for _, c := range candidates {
		starts[c.PossibleStartTime] = true
	}
	assert.True(t, starts["14:15"])
	assert.True(t, starts["15:00"])
	assert.False(t, starts["15:15"], "15:15 + 30m exceeds the block end")
}
