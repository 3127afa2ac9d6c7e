package models

import (
	"time"

	"github.com/lib/pq"
)

// TheoryLesson is a dated group lesson held in a shared room. Unlike slots,
// theory lessons are bound to concrete calendar dates; weekly recurrence is
// expanded into individual rows at creation time.
type TheoryLesson struct {
	ID         string         `db:"id" json:"id"`
	Category   string         `db:"category" json:"category"`
	TeacherID  string         `db:"teacher_id" json:"teacher_id"`
	Date       time.Time      `db:"lesson_date" json:"date"`
	StartTime  string         `db:"start_time" json:"start_time"`
	EndTime    string         `db:"end_time" json:"end_time"`
	Room       string         `db:"room" json:"room"`
	StudentIDs pq.StringArray `db:"student_ids" json:"student_ids"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updated_at"`
}

// TheoryLessonFilter narrows theory lesson listings.
type TheoryLessonFilter struct {
	Category  string
	TeacherID string
	Room      string
	FromDate  *time.Time
	ToDate    *time.Time
	Page      int
	PageSize  int
}

// RoomConflict reports two dated lessons claiming the same room at
// overlapping times.
type RoomConflict struct {
	Room    string        `json:"room"`
	Date    time.Time     `json:"date"`
	LessonA TheoryLesson  `json:"lesson_a"`
	LessonB *TheoryLesson `json:"lesson_b,omitempty"`
	Message string        `json:"message"`
}
