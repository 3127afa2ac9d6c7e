package models

import (
	"time"

	"github.com/klil-music/conservatory-api/pkg/timeutil"
)

// TimeBlock is a teacher-declared contiguous availability window on one
// weekday. Assignments always lie inside the block's span and never overlap
// one another; both invariants are enforced at assignment time.
type TimeBlock struct {
	ID          string             `db:"id" json:"id"`
	TeacherID   string             `db:"teacher_id" json:"teacher_id"`
	Day         timeutil.Day       `db:"day" json:"day"`
	StartTime   string             `db:"start_time" json:"start_time"`
	EndTime     string             `db:"end_time" json:"end_time"`
	Location    *string            `db:"location" json:"location,omitempty"`
	Recurring   bool               `db:"recurring" json:"recurring"`
	Assignments []LessonAssignment `db:"-" json:"assignments"`
	CreatedAt   time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `db:"updated_at" json:"updated_at"`
}

// LessonAssignment occupies a sub-range of its owning time block.
type LessonAssignment struct {
	ID          string    `db:"id" json:"id"`
	TimeBlockID string    `db:"time_block_id" json:"time_block_id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	StudentName string    `db:"student_name" json:"student_name"`
	StartTime   string    `db:"start_time" json:"start_time"`
	EndTime     string    `db:"end_time" json:"end_time"`
	Duration    int       `db:"duration" json:"duration"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
