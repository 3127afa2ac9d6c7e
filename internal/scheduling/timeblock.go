package scheduling

import (
	"fmt"
	"sort"

	"github.com/klil-music/conservatory-api/internal/models"
	"github.com/klil-music/conservatory-api/pkg/timeutil"
)

// MinBlockMinutes is the shortest availability window a teacher may declare.
const MinBlockMinutes = 30

// AssignmentError reports why a lesson could not be placed in a time block.
type AssignmentError struct {
	Type    models.ConflictType
	Message string
}

func (e *AssignmentError) Error() string {
	return e.Message
}

// NewTimeBlock validates and builds a teacher availability window.
func NewTimeBlock(teacherID string, dayName, start, end string, location *string, recurring bool) (*models.TimeBlock, error) {
	day, err := timeutil.ParseDay(dayName)
	if err != nil {
		return nil, err
	}
	span, err := timeutil.DurationBetween(start, end)
	if err != nil {
		return nil, err
	}
	if span <= 0 {
		return nil, fmt.Errorf("time block %s must end after it starts", timeutil.FormatRange(day, start, end))
	}
	if span < MinBlockMinutes {
		return nil, fmt.Errorf("time block %s is shorter than the %d minute minimum", timeutil.FormatRange(day, start, end), MinBlockMinutes)
	}
	return &models.TimeBlock{
		TeacherID: teacherID,
		Day:       day,
		StartTime: start,
		EndTime:   end,
		Location:  location,
		Recurring: recurring,
	}, nil
}

// AddAssignment places a lesson inside the block. It fails with
// capacity_exceeded when the lesson falls outside the block's bounds and
// with invalid_assignment when it overlaps an existing lesson. On success
// the assignment is appended and the list re-sorted by start time.
func AddAssignment(block *models.TimeBlock, studentID, studentName, lessonStart string, duration int) (*models.LessonAssignment, error) {
	if duration <= 0 {
		return nil, &AssignmentError{
			Type:    models.ConflictInvalidAssignment,
			Message: fmt.Sprintf("lesson duration must be positive, got %d", duration),
		}
	}
	startMin, err := timeutil.ToMinutes(lessonStart)
	if err != nil {
		return nil, &AssignmentError{Type: models.ConflictInvalidAssignment, Message: err.Error()}
	}
	blockStart, err := timeutil.ToMinutes(block.StartTime)
	if err != nil {
		return nil, &AssignmentError{Type: models.ConflictInvalidAssignment, Message: err.Error()}
	}
	blockEnd, err := timeutil.ToMinutes(block.EndTime)
	if err != nil {
		return nil, &AssignmentError{Type: models.ConflictInvalidAssignment, Message: err.Error()}
	}

	endMin := startMin + duration
	lessonEnd := timeutil.FromMinutes(endMin)
	if startMin < blockStart || endMin > blockEnd {
		return nil, &AssignmentError{
			Type: models.ConflictCapacityExceeded,
			Message: fmt.Sprintf("lesson %s-%s does not fit inside block %s",
				lessonStart, lessonEnd, timeutil.FormatRange(block.Day, block.StartTime, block.EndTime)),
		}
	}

	for _, existing := range block.Assignments {
		if rangesOverlap(lessonStart, lessonEnd, existing.StartTime, existing.EndTime) {
			return nil, &AssignmentError{
				Type: models.ConflictInvalidAssignment,
				Message: fmt.Sprintf("lesson %s-%s overlaps the lesson of %s at %s-%s",
					lessonStart, lessonEnd, existing.StudentName, existing.StartTime, existing.EndTime),
			}
		}
	}

	assignment := models.LessonAssignment{
		TimeBlockID: block.ID,
		StudentID:   studentID,
		StudentName: studentName,
		StartTime:   lessonStart,
		EndTime:     lessonEnd,
		Duration:    duration,
	}
	block.Assignments = append(block.Assignments, assignment)
	sortAssignments(block.Assignments)
	return &assignment, nil
}

// AssignmentsFit checks that every assignment still lies inside the
// block's window. Used when a block is resized.
func AssignmentsFit(block *models.TimeBlock) error {
	for _, a := range block.Assignments {
		if a.StartTime < block.StartTime || a.EndTime > block.EndTime {
			return fmt.Errorf("lesson of %s at %s-%s falls outside block %s",
				a.StudentName, a.StartTime, a.EndTime, timeutil.FormatRange(block.Day, block.StartTime, block.EndTime))
		}
	}
	return nil
}

// RemoveAssignment drops the assignment with the given id or student id.
// Removal is idempotent: a missing assignment is a no-op, not an error.
func RemoveAssignment(block *models.TimeBlock, idOrStudentID string) {
	kept := block.Assignments[:0]
	for _, a := range block.Assignments {
		if a.ID == idOrStudentID || a.StudentID == idOrStudentID {
			continue
		}
		kept = append(kept, a)
	}
	block.Assignments = kept
}

// BlockDuration returns the block's span in minutes, 0 for malformed times.
func BlockDuration(block models.TimeBlock) int {
	span, err := timeutil.DurationBetween(block.StartTime, block.EndTime)
	if err != nil || span < 0 {
		return 0
	}
	return span
}

// Utilization computes assigned minutes over block minutes as a percentage.
// The overlap invariant keeps it under 100; the clamp guards corrupted data.
func Utilization(block models.TimeBlock) float64 {
	total := BlockDuration(block)
	if total == 0 {
		return 0
	}
	assigned := 0
	for _, a := range block.Assignments {
		assigned += a.Duration
	}
	pct := float64(assigned) / float64(total) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

func sortAssignments(assignments []models.LessonAssignment) {
	sort.Slice(assignments, func(i, j int) bool {
		if assignments[i].StartTime != assignments[j].StartTime {
			return assignments[i].StartTime < assignments[j].StartTime
		}
		return assignments[i].ID < assignments[j].ID
	})
}
