package scheduling

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/klil-music/conservatory-api/internal/models"
	"github.com/klil-music/conservatory-api/pkg/timeutil"
)

// ExpandWeeklyDates lists every date between from and to (inclusive) that
// falls on the given weekday, skipping excluded dates. Time-of-day
// components are ignored; comparison is by calendar day.
func ExpandWeeklyDates(from, to time.Time, day timeutil.Day, excluded []time.Time) []time.Time {
	if to.Before(from) || !day.Valid() {
		return nil
	}
	skip := make(map[string]bool, len(excluded))
	for _, d := range excluded {
		skip[dateKey(d)] = true
	}

	cursor := truncateToDay(from)
	last := truncateToDay(to)
	for timeutil.Day(cursor.Weekday()) != day {
		cursor = cursor.AddDate(0, 0, 1)
	}

	var dates []time.Time
	for !cursor.After(last) {
		if !skip[dateKey(cursor)] {
			dates = append(dates, cursor)
		}
		cursor = cursor.AddDate(0, 0, 7)
	}
	return dates
}

// FindRoomConflicts scans dated lessons pairwise and reports every pair
// sharing a room on the same date with overlapping times. Room comparison
// is case-insensitive. Output is deterministic: sorted by date, room, then
// start time.
func FindRoomConflicts(lessons []models.TheoryLesson) []models.RoomConflict {
	ordered := make([]models.TheoryLesson, len(lessons))
	copy(ordered, lessons)
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].Date.Equal(ordered[j].Date) {
			return ordered[i].Date.Before(ordered[j].Date)
		}
		if ordered[i].Room != ordered[j].Room {
			return ordered[i].Room < ordered[j].Room
		}
		if ordered[i].StartTime != ordered[j].StartTime {
			return ordered[i].StartTime < ordered[j].StartTime
		}
		return ordered[i].ID < ordered[j].ID
	})

	var conflicts []models.RoomConflict
	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			a, b := ordered[i], ordered[j]
			if dateKey(a.Date) != dateKey(b.Date) {
				continue
			}
			if !strings.EqualFold(a.Room, b.Room) {
				continue
			}
			if !rangesOverlap(a.StartTime, a.EndTime, b.StartTime, b.EndTime) {
				continue
			}
			pair := b
			conflicts = append(conflicts, models.RoomConflict{
				Room:    a.Room,
				Date:    a.Date,
				LessonA: a,
				LessonB: &pair,
				Message: fmt.Sprintf("room %s is double-booked on %s between %s-%s and %s-%s",
					a.Room, a.Date.Format("2006-01-02"), a.StartTime, a.EndTime, b.StartTime, b.EndTime),
			})
		}
	}
	return conflicts
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
