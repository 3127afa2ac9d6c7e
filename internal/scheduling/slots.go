package scheduling

import (
	"sort"

	"github.com/klil-music/conservatory-api/internal/models"
	"github.com/klil-music/conservatory-api/pkg/timeutil"
)

// CandidateStepMinutes aligns extra candidate start times inside a free gap
// to quarter-hour boundaries.
const CandidateStepMinutes = 15

// SortOrder selects how available-slot results are ordered.
type SortOrder string

const (
	SortChronological SortOrder = "chronological"
	SortOptimal       SortOrder = "optimal"
)

// SearchOptions tunes FindAvailableSlots.
type SearchOptions struct {
	SortBy SortOrder
}

// freeGap is a maximal unassigned sub-interval of a block, in minutes since
// midnight.
type freeGap struct {
	start int
	end   int
}

// FindAvailableSlots enumerates every placement of a lesson of the desired
// duration inside the block's free time. Each free gap contributes its
// earliest-fit candidate plus any quarter-hour aligned starts deeper in the
// gap. Candidates never overlap existing assignments.
//
// A non-positive duration, a duration longer than the block span, or a
// malformed block yields an empty result, not an error.
func FindAvailableSlots(block models.TimeBlock, duration int, opts SearchOptions) []models.AvailableSlot {
	if duration <= 0 || duration > BlockDuration(block) {
		return nil
	}

	gaps := freeGaps(block)
	candidates := make([]models.AvailableSlot, 0)
	for _, gap := range gaps {
		if gap.end-gap.start < duration {
			continue
		}
		starts := candidateStarts(gap, duration)
		for _, start := range starts {
			candidates = append(candidates, models.AvailableSlot{
				TimeBlockID:       block.ID,
				Day:               block.Day,
				PossibleStartTime: timeutil.FromMinutes(start),
				Duration:          duration,
				OptimalScore:      scoreCandidate(start, duration, gap),
				GapMinutesBefore:  start - gap.start,
				GapMinutesAfter:   gap.end - (start + duration),
			})
		}
	}

	if opts.SortBy == SortOptimal {
		sort.SliceStable(candidates, func(i, j int) bool {
			if candidates[i].OptimalScore != candidates[j].OptimalScore {
				return candidates[i].OptimalScore > candidates[j].OptimalScore
			}
			return candidates[i].PossibleStartTime < candidates[j].PossibleStartTime
		})
	} else {
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].PossibleStartTime < candidates[j].PossibleStartTime
		})
	}
	return candidates
}

// CollidesWithBookings reports whether a candidate placement overlaps any
// of the given slot bookings on the candidate's day. Inactive bookings are
// ignored.
func CollidesWithBookings(candidate models.AvailableSlot, bookings []models.Slot) bool {
	startMin, err := timeutil.ToMinutes(candidate.PossibleStartTime)
	if err != nil {
		return false
	}
	end := timeutil.FromMinutes(startMin + candidate.Duration)
	for _, b := range bookings {
		if !b.Active || b.DayOfWeek != candidate.Day {
			continue
		}
		if rangesOverlap(candidate.PossibleStartTime, end, b.StartTime, b.EndTime) {
			return true
		}
	}
	return false
}

// freeGaps subtracts the block's assignments from its span, producing the
// disjoint free intervals in chronological order.
func freeGaps(block models.TimeBlock) []freeGap {
	blockStart, err := timeutil.ToMinutes(block.StartTime)
	if err != nil {
		return nil
	}
	blockEnd, err := timeutil.ToMinutes(block.EndTime)
	if err != nil || blockEnd <= blockStart {
		return nil
	}

	assignments := make([]models.LessonAssignment, len(block.Assignments))
	copy(assignments, block.Assignments)
	sortAssignments(assignments)

	gaps := make([]freeGap, 0, len(assignments)+1)
	cursor := blockStart
	for _, a := range assignments {
		aStart, err := timeutil.ToMinutes(a.StartTime)
		if err != nil {
			continue
		}
		aEnd, err := timeutil.ToMinutes(a.EndTime)
		if err != nil {
			continue
		}
		if aStart > cursor {
			gaps = append(gaps, freeGap{start: cursor, end: minInt(aStart, blockEnd)})
		}
		if aEnd > cursor {
			cursor = aEnd
		}
	}
	if cursor < blockEnd {
		gaps = append(gaps, freeGap{start: cursor, end: blockEnd})
	}
	return gaps
}

// candidateStarts yields the earliest fit plus aligned quarter-hour starts
// still leaving room for the full duration.
func candidateStarts(gap freeGap, duration int) []int {
	starts := []int{gap.start}
	aligned := gap.start - gap.start%CandidateStepMinutes
	if aligned < gap.start {
		aligned += CandidateStepMinutes
	}
	for ; aligned+duration <= gap.end; aligned += CandidateStepMinutes {
		if aligned != gap.start {
			starts = append(starts, aligned)
		}
	}
	return starts
}

// scoreCandidate grades a placement 0-100. Idle minutes left on either side
// of the lesson cost points, so a perfect fit scores 100 and tighter
// placements always score at least as high as looser ones.
func scoreCandidate(start, duration int, gap freeGap) int {
	before := start - gap.start
	after := gap.end - (start + duration)
	score := 100 - wastePenalty(before) - wastePenalty(after)
	if score < 0 {
		return 0
	}
	return score
}

// wastePenalty grows monotonically with the idle gap, capped at 50 so two
// maximal gaps bottom out at a zero score rather than going negative. The
// base penalty for any nonzero gap keeps a candidate flush against an
// existing lesson ahead of one that splits the same idle time in two.
func wastePenalty(gapMinutes int) int {
	if gapMinutes <= 0 {
		return 0
	}
	penalty := 10 + gapMinutes/2
	if penalty > 50 {
		return 50
	}
	return penalty
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
