package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klil-music/conservatory-api/internal/models"
	"github.com/klil-music/conservatory-api/pkg/timeutil"
)

func newSlotRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func slotRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "teacher_id", "student_id", "day_of_week", "start_time", "end_time", "duration", "location", "notes", "recurring", "active", "created_at", "updated_at"}).
		AddRow("s1", "t1", nil, 1, "09:00", "09:45", 45, nil, nil, true, true, now, now)
}

func TestSlotRepositoryList(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, teacher_id, student_id, day_of_week, start_time, end_time, duration, location, notes, recurring, active, created_at, updated_at FROM slots WHERE 1=1 ORDER BY day_of_week, start_time, id LIMIT 50 OFFSET 0")).
		WillReturnRows(slotRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM slots WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.SlotFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, timeutil.Monday, list[0].DayOfWeek)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryListFiltersByTeacherAndDay(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	day := timeutil.Monday
	mock.ExpectQuery("SELECT .+ FROM slots WHERE 1=1 AND teacher_id = .+ AND day_of_week = .+").
		WithArgs("t1", 1).
		WillReturnRows(slotRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM slots")).
		WithArgs("t1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.SlotFilter{TeacherID: "t1", DayOfWeek: &day})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryFindByTeacher(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectQuery("SELECT .+ FROM slots WHERE teacher_id = .+ ORDER BY day_of_week, start_time, id").
		WithArgs("t1").
		WillReturnRows(slotRows())

	slots, err := repo.FindByTeacher(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "09:00", slots[0].StartTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryCreateAndSetStudent(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectExec("INSERT INTO slots").
		WillReturnResult(sqlmock.NewResult(1, 1))

	slot := &models.Slot{TeacherID: "t1", DayOfWeek: timeutil.Monday, StartTime: "09:00", EndTime: "09:45", Duration: 45, Active: true}
	require.NoError(t, repo.Create(context.Background(), slot))
	assert.NotEmpty(t, slot.ID)
	assert.False(t, slot.CreatedAt.IsZero())

	studentID := "st1"
	mock.ExpectExec("UPDATE slots SET student_id").
		WithArgs(slot.ID, &studentID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.SetStudent(context.Background(), slot.ID, &studentID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryDeactivate(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectExec("UPDATE slots SET active = false").
		WithArgs("s1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Deactivate(context.Background(), "s1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
