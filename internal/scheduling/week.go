package scheduling

import (
	"fmt"
	"math"
	"sort"

	"github.com/klil-music/conservatory-api/internal/models"
	"github.com/klil-music/conservatory-api/pkg/timeutil"
)

// GroupByDay partitions slots into a weekly schedule, each day sorted by
// start time ascending with the slot id as tie-break.
func GroupByDay(slots []models.Slot) models.WeeklySchedule {
	week := make(models.WeeklySchedule)
	for _, slot := range slots {
		if !slot.DayOfWeek.Valid() {
			continue
		}
		week[slot.DayOfWeek] = append(week[slot.DayOfWeek], slot)
	}
	for day := range week {
		sortSlots(week[day])
	}
	return week
}

// Flatten is the inverse of GroupByDay, walking days in order.
func Flatten(week models.WeeklySchedule) []models.Slot {
	flat := make([]models.Slot, 0)
	for day := timeutil.Sunday; day <= timeutil.Saturday; day++ {
		flat = append(flat, week[day]...)
	}
	return flat
}

// BuildTeacherWeek assembles the weekly view plus summary counts for one
// teacher. Inactive slots are dropped.
func BuildTeacherWeek(teacherID string, slots []models.Slot) models.TeacherWeeklySchedule {
	active := make([]models.Slot, 0, len(slots))
	occupied := 0
	for _, slot := range slots {
		if !slot.Active || slot.TeacherID != teacherID {
			continue
		}
		active = append(active, slot)
		if slot.Booked() {
			occupied++
		}
	}
	return models.TeacherWeeklySchedule{
		TeacherID:      teacherID,
		Days:           GroupByDay(active),
		TotalSlots:     len(active),
		OccupiedSlots:  occupied,
		AvailableSlots: len(active) - occupied,
	}
}

// FilterAvailable returns the teacher's active, unbooked slots matching the
// filter. When ExcludeStudentID is set, slots that would collide with that
// student's existing bookings are removed as well.
func FilterAvailable(slots []models.Slot, filter models.AvailabilityFilter, studentBookings []models.Slot) []models.Slot {
	open := make([]models.Slot, 0)
	for _, slot := range slots {
		if !slot.Active || slot.Booked() {
			continue
		}
		if filter.DayOfWeek != nil && slot.DayOfWeek != *filter.DayOfWeek {
			continue
		}
		if filter.MinStartTime != "" && slot.StartTime < filter.MinStartTime {
			continue
		}
		if filter.MaxEndTime != "" && slot.EndTime > filter.MaxEndTime {
			continue
		}
		if filter.Duration > 0 && slot.Duration != filter.Duration {
			continue
		}
		if filter.ExcludeStudentID != "" && overlapsAny(slot, studentBookings) {
			continue
		}
		open = append(open, slot)
	}
	sortSlots(open)
	sort.SliceStable(open, func(i, j int) bool {
		return open[i].DayOfWeek < open[j].DayOfWeek
	})
	return open
}

// AssignCheck is the outcome of CanAssign.
type AssignCheck struct {
	CanAssign bool   `json:"can_assign"`
	Reason    string `json:"reason,omitempty"`
}

// CanAssign decides whether a student can take the slot: it must not be
// occupied by another student and must not overlap any lesson already on
// the student's own schedule.
func CanAssign(slot models.Slot, studentID string, studentBookings []models.Slot) AssignCheck {
	if slot.Booked() && *slot.StudentID != studentID {
		return AssignCheck{Reason: "slot is already occupied by another student"}
	}
	for _, existing := range studentBookings {
		if !existing.Active || existing.ID == slot.ID {
			continue
		}
		if Overlaps(slot, existing) {
			return AssignCheck{Reason: fmt.Sprintf("student already has a lesson on %s", timeutil.FormatRange(existing.DayOfWeek, existing.StartTime, existing.EndTime))}
		}
	}
	return AssignCheck{CanAssign: true}
}

// BuildStudentSchedule groups a student's active bookings by teacher, then
// by day, and totals the booked hours rounded to two decimals. Teacher
// groups are ordered by teacher id for deterministic output.
func BuildStudentSchedule(studentID string, slots []models.Slot, teacherNames map[string]string) models.StudentSchedule {
	byTeacher := make(map[string][]models.Slot)
	totalMinutes := 0
	for _, slot := range slots {
		if !slot.Active || !slot.Booked() || *slot.StudentID != studentID {
			continue
		}
		byTeacher[slot.TeacherID] = append(byTeacher[slot.TeacherID], slot)
		totalMinutes += slot.Duration
	}

	teacherIDs := make([]string, 0, len(byTeacher))
	for id := range byTeacher {
		teacherIDs = append(teacherIDs, id)
	}
	sort.Strings(teacherIDs)

	teachers := make([]models.TeacherDaySchedule, 0, len(teacherIDs))
	for _, id := range teacherIDs {
		teachers = append(teachers, models.TeacherDaySchedule{
			TeacherID:   id,
			TeacherName: teacherNames[id],
			Days:        GroupByDay(byTeacher[id]),
		})
	}

	return models.StudentSchedule{
		StudentID:  studentID,
		Teachers:   teachers,
		TotalHours: math.Round(float64(totalMinutes)/60*100) / 100,
	}
}

func overlapsAny(slot models.Slot, others []models.Slot) bool {
	for _, other := range others {
		if !other.Active || other.ID == slot.ID {
			continue
		}
		if Overlaps(slot, other) {
			return true
		}
	}
	return false
}

func sortSlots(slots []models.Slot) {
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].StartTime != slots[j].StartTime {
			return slots[i].StartTime < slots[j].StartTime
		}
		return slots[i].ID < slots[j].ID
	})
}
