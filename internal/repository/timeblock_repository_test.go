package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klil-music/conservatory-api/internal/models"
	"github.com/klil-music/conservatory-api/pkg/timeutil"
)

func newBlockRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestTimeBlockRepositoryFindByTeacherLoadsAssignments(t *testing.T) {
	db, mock, cleanup := newBlockRepoMock(t)
	defer cleanup()
	repo := NewTimeBlockRepository(db)

	now := time.Now()
	blockRows := sqlmock.NewRows([]string{"id", "teacher_id", "day", "start_time", "end_time", "location", "recurring", "created_at", "updated_at"}).
		AddRow("b1", "t1", 1, "14:00", "18:00", nil, true, now, now).
		AddRow("b2", "t1", 3, "09:00", "12:00", nil, true, now, now)
	mock.ExpectQuery("SELECT .+ FROM time_blocks WHERE teacher_id = .+ ORDER BY day, start_time, id").
		WithArgs("t1").
		WillReturnRows(blockRows)

	assignmentRows := sqlmock.NewRows([]string{"id", "time_block_id", "student_id", "student_name", "start_time", "end_time", "duration", "created_at"}).
		AddRow("a1", "b1", "st1", "Student One", "14:00", "14:45", 45, now)
	mock.ExpectQuery("SELECT .+ FROM lesson_assignments WHERE time_block_id IN").
		WillReturnRows(assignmentRows)

	blocks, err := repo.FindByTeacher(context.Background(), "t1", nil)
	require.NoError(t, err)
	require.Len(t, blocks, 2)

	assert.Equal(t, timeutil.Monday, blocks[0].Day)
	require.Len(t, blocks[0].Assignments, 1)
	assert.Equal(t, "st1", blocks[0].Assignments[0].StudentID)

	// blocks with no assignments come back with an empty, non-nil list
	assert.NotNil(t, blocks[1].Assignments)
	assert.Empty(t, blocks[1].Assignments)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeBlockRepositoryCreateAssignment(t *testing.T) {
	db, mock, cleanup := newBlockRepoMock(t)
	defer cleanup()
	repo := NewTimeBlockRepository(db)

	mock.ExpectExec("INSERT INTO lesson_assignments").
		WillReturnResult(sqlmock.NewResult(1, 1))

	assignment := &models.LessonAssignment{TimeBlockID: "b1", StudentID: "st1", StudentName: "Student One", StartTime: "14:00", EndTime: "14:45", Duration: 45}
	require.NoError(t, repo.CreateAssignment(context.Background(), assignment))
	assert.NotEmpty(t, assignment.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeBlockRepositoryDeleteRemovesAssignmentsFirst(t *testing.T) {
	db, mock, cleanup := newBlockRepoMock(t)
	defer cleanup()
	repo := NewTimeBlockRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM lesson_assignments WHERE time_block_id").
		WithArgs("b1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM time_blocks WHERE id").
		WithArgs("b1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "b1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeBlockRepositoryDeleteAssignmentIsIdempotent(t *testing.T) {
	db, mock, cleanup := newBlockRepoMock(t)
	defer cleanup()
	repo := NewTimeBlockRepository(db)

	mock.ExpectExec("DELETE FROM lesson_assignments WHERE time_block_id = .+ AND").
		WithArgs("b1", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.DeleteAssignment(context.Background(), "b1", "missing"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
