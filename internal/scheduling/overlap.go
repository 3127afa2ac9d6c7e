// Package scheduling implements the pure computational core of the lesson
// scheduler: overlap and conflict detection, the time block model, available
// slot search, and weekly aggregation. Every function here is a deterministic
// computation over an in-memory snapshot; persistence and transport live in
// the service and repository layers.
package scheduling

import (
	"fmt"
	"sort"

	"github.com/klil-music/conservatory-api/internal/models"
	"github.com/klil-music/conservatory-api/pkg/timeutil"
)

const (
	// MinLessonMinutes and MaxLessonMinutes bound a single lesson's length.
	MinLessonMinutes = 15
	MaxLessonMinutes = 240

	// LessonGranularityMinutes is the step lesson durations are expected to
	// align to; misaligned durations are reported as warnings, not errors.
	LessonGranularityMinutes = 5
)

// Overlaps reports whether two slots collide in time. Slots on different
// days never overlap; on the same day the test is half-open, so a slot
// ending at 10:00 does not overlap one starting at 10:00.
func Overlaps(a, b models.Slot) bool {
	if a.DayOfWeek != b.DayOfWeek {
		return false
	}
	return rangesOverlap(a.StartTime, a.EndTime, b.StartTime, b.EndTime)
}

// rangesOverlap applies the half-open interval test to two HH:MM ranges.
// Zero-padded HH:MM strings order lexicographically, which timeutil
// validation guarantees for every stored slot.
func rangesOverlap(startA, endA, startB, endB string) bool {
	return startA < endB && endA > startB
}

// ValidateSlotTimes checks a slot's own time range and returns the
// invalid_time conflicts it produces: an error conflict for an inverted or
// out-of-bounds range, a warning for off-granularity durations.
func ValidateSlotTimes(slot models.Slot) []models.ScheduleConflict {
	var conflicts []models.ScheduleConflict
	duration, err := timeutil.DurationBetween(slot.StartTime, slot.EndTime)
	if err != nil {
		conflicts = append(conflicts, models.ScheduleConflict{
			Type:     models.ConflictInvalidTime,
			SlotA:    slot,
			Message:  fmt.Sprintf("slot has a malformed time: %v", err),
			Severity: models.SeverityError,
		})
		return conflicts
	}
	if duration <= 0 {
		conflicts = append(conflicts, models.ScheduleConflict{
			Type:     models.ConflictInvalidTime,
			SlotA:    slot,
			Message:  fmt.Sprintf("slot %s must end after it starts", timeutil.FormatRange(slot.DayOfWeek, slot.StartTime, slot.EndTime)),
			Severity: models.SeverityError,
		})
		return conflicts
	}
	if duration < MinLessonMinutes || duration > MaxLessonMinutes {
		conflicts = append(conflicts, models.ScheduleConflict{
			Type:     models.ConflictInvalidTime,
			SlotA:    slot,
			Message:  fmt.Sprintf("slot %s duration %d minutes is outside the allowed %d-%d range", timeutil.FormatRange(slot.DayOfWeek, slot.StartTime, slot.EndTime), duration, MinLessonMinutes, MaxLessonMinutes),
			Severity: models.SeverityError,
		})
		return conflicts
	}
	if duration%LessonGranularityMinutes != 0 {
		conflicts = append(conflicts, models.ScheduleConflict{
			Type:     models.ConflictInvalidTime,
			SlotA:    slot,
			Message:  fmt.Sprintf("slot %s duration %d minutes is not a multiple of %d", timeutil.FormatRange(slot.DayOfWeek, slot.StartTime, slot.EndTime), duration, LessonGranularityMinutes),
			Severity: models.SeverityWarning,
		})
	}
	return conflicts
}

// NormalizeSlot recomputes Duration from the start/end pair so a stored
// duration can never disagree with the range it describes.
func NormalizeSlot(slot *models.Slot) error {
	if !slot.DayOfWeek.Valid() {
		return fmt.Errorf("day of week %d out of range", slot.DayOfWeek)
	}
	duration, err := timeutil.DurationBetween(slot.StartTime, slot.EndTime)
	if err != nil {
		return err
	}
	if duration <= 0 {
		return fmt.Errorf("slot %s must end after it starts", timeutil.FormatRange(slot.DayOfWeek, slot.StartTime, slot.EndTime))
	}
	slot.Duration = duration
	return nil
}

// FindConflicts scans the active slots pairwise and reports every detected
// violation: per-slot invalid_time conflicts first, then teacher overlaps
// and student double bookings per unordered pair. The input order does not
// affect the result; output is sorted by day, start time, then slot id.
//
// The scan is intentionally O(n^2): a teacher-week holds at most a few
// hundred slots.
func FindConflicts(slots []models.Slot) []models.ScheduleConflict {
	ordered := make([]models.Slot, 0, len(slots))
	for _, slot := range slots {
		if slot.Active {
			ordered = append(ordered, slot)
		}
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].DayOfWeek != ordered[j].DayOfWeek {
			return ordered[i].DayOfWeek < ordered[j].DayOfWeek
		}
		if ordered[i].StartTime != ordered[j].StartTime {
			return ordered[i].StartTime < ordered[j].StartTime
		}
		return ordered[i].ID < ordered[j].ID
	})

	conflicts := make([]models.ScheduleConflict, 0)
	valid := make([]models.Slot, 0, len(ordered))
	for _, slot := range ordered {
		own := ValidateSlotTimes(slot)
		conflicts = append(conflicts, own...)
		structural := false
		for _, c := range own {
			if c.Severity == models.SeverityError {
				structural = true
			}
		}
		if !structural {
			valid = append(valid, slot)
		}
	}

	for i := 0; i < len(valid); i++ {
		for j := i + 1; j < len(valid); j++ {
			a, b := valid[i], valid[j]
			if !Overlaps(a, b) {
				continue
			}
			pair := b
			if a.TeacherID == b.TeacherID {
				conflicts = append(conflicts, models.ScheduleConflict{
					Type:     models.ConflictOverlap,
					SlotA:    a,
					SlotB:    &pair,
					Message:  fmt.Sprintf("teacher %s is double-booked on %s and %s", a.TeacherID, timeutil.FormatRange(a.DayOfWeek, a.StartTime, a.EndTime), timeutil.FormatRange(b.DayOfWeek, b.StartTime, b.EndTime)),
					Severity: models.SeverityError,
				})
			}
			if sharedStudent(a, b) {
				conflicts = append(conflicts, models.ScheduleConflict{
					Type:     models.ConflictDoubleBooking,
					SlotA:    a,
					SlotB:    &pair,
					Message:  fmt.Sprintf("student %s has overlapping lessons on %s and %s", *a.StudentID, timeutil.FormatRange(a.DayOfWeek, a.StartTime, a.EndTime), timeutil.FormatRange(b.DayOfWeek, b.StartTime, b.EndTime)),
					Severity: models.SeverityError,
				})
			}
		}
	}
	return conflicts
}

// ClassifyPair derives the combined conflict category of two slots for the
// single-pair detail view: teacher, student, both, or none.
func ClassifyPair(a, b models.Slot) models.PairConflictKind {
	if !a.Active || !b.Active || !Overlaps(a, b) {
		return models.PairConflictNone
	}
	teacher := a.TeacherID == b.TeacherID
	student := sharedStudent(a, b)
	switch {
	case teacher && student:
		return models.PairConflictBoth
	case teacher:
		return models.PairConflictTeacher
	case student:
		return models.PairConflictStudent
	default:
		return models.PairConflictNone
	}
}

func sharedStudent(a, b models.Slot) bool {
	return a.Booked() && b.Booked() && *a.StudentID == *b.StudentID
}
