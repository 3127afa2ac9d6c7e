package models

import (
	"time"

	"github.com/klil-music/conservatory-api/pkg/timeutil"
)

// Slot represents a single unit of bookable lesson time on a teacher's
// weekly schedule. An empty StudentID means the slot is open; Active is a
// soft-delete flag and inactive slots are excluded from conflict and
// availability computations.
type Slot struct {
	ID        string       `db:"id" json:"id"`
	TeacherID string       `db:"teacher_id" json:"teacher_id"`
	StudentID *string      `db:"student_id" json:"student_id,omitempty"`
	DayOfWeek timeutil.Day `db:"day_of_week" json:"day_of_week"`
	StartTime string       `db:"start_time" json:"start_time"`
	EndTime   string       `db:"end_time" json:"end_time"`
	Duration  int          `db:"duration" json:"duration"`
	Location  *string      `db:"location" json:"location,omitempty"`
	Notes     *string      `db:"notes" json:"notes,omitempty"`
	Recurring bool         `db:"recurring" json:"recurring"`
	Active    bool         `db:"active" json:"active"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

// Booked reports whether a student currently occupies the slot.
func (s Slot) Booked() bool {
	return s.StudentID != nil && *s.StudentID != ""
}

// SlotFilter captures filtering options for listing slots.
type SlotFilter struct {
	TeacherID string
	StudentID string
	DayOfWeek *timeutil.Day
	Active    *bool
	Page      int
	PageSize  int
}

// AvailabilityFilter narrows the open-slot listing for a teacher.
type AvailabilityFilter struct {
	DayOfWeek        *timeutil.Day
	MinStartTime     string
	MaxEndTime       string
	Duration         int
	ExcludeStudentID string
}

// WeeklySchedule maps day ordinals to the slots scheduled on that day,
// sorted by start time ascending.
type WeeklySchedule map[timeutil.Day][]Slot

// TeacherWeeklySchedule is the weekly view returned for a single teacher.
type TeacherWeeklySchedule struct {
	TeacherID      string         `json:"teacher_id"`
	Days           WeeklySchedule `json:"days"`
	TotalSlots     int            `json:"total_slots"`
	OccupiedSlots  int            `json:"occupied_slots"`
	AvailableSlots int            `json:"available_slots"`
}

// TeacherDaySchedule groups a student's slots with one teacher by day.
type TeacherDaySchedule struct {
	TeacherID   string         `json:"teacher_id"`
	TeacherName string         `json:"teacher_name,omitempty"`
	Days        WeeklySchedule `json:"days"`
}

// StudentSchedule aggregates a student's bookings across all teachers.
type StudentSchedule struct {
	StudentID  string               `json:"student_id"`
	Teachers   []TeacherDaySchedule `json:"teachers"`
	TotalHours float64              `json:"total_hours"`
}

// ConflictType classifies a detected scheduling violation.
type ConflictType string

const (
	ConflictOverlap           ConflictType = "overlap"
	ConflictDoubleBooking     ConflictType = "double_booking"
	ConflictInvalidTime       ConflictType = "invalid_time"
	ConflictBlockOverlap      ConflictType = "block_overlap"
	ConflictLesson            ConflictType = "lesson_conflict"
	ConflictCapacityExceeded  ConflictType = "capacity_exceeded"
	ConflictInvalidAssignment ConflictType = "invalid_assignment"
)

// ConflictSeverity grades how serious a conflict is.
type ConflictSeverity string

const (
	SeverityError   ConflictSeverity = "error"
	SeverityWarning ConflictSeverity = "warning"
	SeverityInfo    ConflictSeverity = "info"
)

// ScheduleConflict is a derived violation, recomputed on demand from the
// current slot set and never persisted.
type ScheduleConflict struct {
	Type     ConflictType     `json:"type"`
	SlotA    Slot             `json:"slot_a"`
	SlotB    *Slot            `json:"slot_b,omitempty"`
	Message  string           `json:"message"`
	Severity ConflictSeverity `json:"severity"`
}

// PairConflictKind is the combined classification of a single slot pair.
type PairConflictKind string

const (
	PairConflictNone    PairConflictKind = "none"
	PairConflictTeacher PairConflictKind = "teacher"
	PairConflictStudent PairConflictKind = "student"
	PairConflictBoth    PairConflictKind = "both"
)

// AvailableSlot is a ranked candidate lesson placement inside a time block.
// Purely computed; never stored.
type AvailableSlot struct {
	TimeBlockID       string       `json:"time_block_id"`
	Day               timeutil.Day `json:"day"`
	PossibleStartTime string       `json:"possible_start_time"`
	Duration          int          `json:"duration"`
	OptimalScore      int          `json:"optimal_score"`
	GapMinutesBefore  int          `json:"gap_minutes_before"`
	GapMinutesAfter   int          `json:"gap_minutes_after"`
}
