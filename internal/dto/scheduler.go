package dto

import "github.com/klil-music/conservatory-api/internal/models"

// SlotSearchRequest captures query parameters for available-slot searches
// across a teacher's availability blocks.
type SlotSearchRequest struct {
	TeacherID        string   `json:"teacher_id" validate:"required"`
	Duration         int      `json:"duration" validate:"required,min=15,max=240"`
	PreferredDays    []string `json:"preferred_days"`
	MinStartTime     string   `json:"min_start_time"`
	MaxEndTime       string   `json:"max_end_time"`
	ExcludeStudentID string   `json:"exclude_student_id"`
	SortBy           string   `json:"sort_by"`
	MaxResults       int      `json:"max_results"`
}

// SlotSearchResponse returns the ranked candidates for a search.
type SlotSearchResponse struct {
	TeacherID  string                 `json:"teacher_id"`
	Duration   int                    `json:"duration"`
	Candidates []models.AvailableSlot `json:"candidates"`
}

// AssignLessonRequest books a student into an availability block.
type AssignLessonRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	Duration  int    `json:"duration" validate:"required,min=15,max=240"`
}

// AssignSlotRequest books a student into a weekly slot.
type AssignSlotRequest struct {
	StudentID string `json:"student_id" validate:"required"`
}

// ConflictReport is the response of a teacher schedule conflict scan.
type ConflictReport struct {
	TeacherID string                    `json:"teacher_id"`
	Conflicts []models.ScheduleConflict `json:"conflicts"`
	HasErrors bool                      `json:"has_errors"`
}

// BlockUtilization summarises how occupied an availability block is.
type BlockUtilization struct {
	TimeBlockID string  `json:"time_block_id"`
	Utilization float64 `json:"utilization"`
	Assigned    int     `json:"assigned"`
}
