package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/annelaughry/FFYM/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestClassroomRepositoryCreateWithOwner(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewClassroomRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO classrooms")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO memberships")).
		WithArgs(sqlmock.AnyArg(), "teacher-1", sqlmock.AnyArg(), string(models.MembershipTeacher), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	classroom := &models.Classroom{Name: "Biology 7", Code: "AB12CD", OwnerID: "teacher-1"}
	require.NoError(t, repo.CreateWithOwner(context.Background(), classroom))
	require.NotEmpty(t, classroom.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassroomRepositoryCreateWithOwnerRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewClassroomRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO classrooms")).
		WillReturnError(errDuplicateCode(t))
	mock.ExpectRollback()

	classroom := &models.Classroom{Name: "Biology 7", Code: "AB12CD", OwnerID: "teacher-1"}
	require.Error(t, repo.CreateWithOwner(context.Background(), classroom))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassroomRepositoryGetOrCreateMembershipKeepsExistingRole(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewClassroomRepository(db)

	// The conflict clause means the insert touches zero rows when the user
	// already belongs; the follow-up select returns the original teacher row.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO memberships")).
		WithArgs(sqlmock.AnyArg(), "user-1", "class-1", string(models.MembershipStudent), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	rows := sqlmock.NewRows([]string{"id", "user_id", "classroom_id", "role", "created_at"}).
		AddRow("m-1", "user-1", "class-1", "teacher", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, classroom_id, role, created_at FROM memberships")).
		WithArgs("user-1", "class-1").
		WillReturnRows(rows)

	membership, err := repo.GetOrCreateMembership(context.Background(), "user-1", "class-1", models.MembershipStudent)
	require.NoError(t, err)
	require.Equal(t, models.MembershipTeacher, membership.Role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassroomRepositoryCodeExists(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewClassroomRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM classrooms WHERE code = $1")).
		WithArgs("TAKEN1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	exists, err := repo.CodeExists(context.Background(), "TAKEN1")
	require.NoError(t, err)
	require.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM classrooms WHERE code = $1")).
		WithArgs("FREE99").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
	exists, err = repo.CodeExists(context.Background(), "FREE99")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassroomRepositoryListByMember(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewClassroomRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "code", "owner_id", "created_at", "updated_at", "role"}).
		AddRow("c-1", "Biology 7", "AB12CD", "t-1", now, now, "student").
		AddRow("c-2", "Chemistry 8", "EF34GH", "t-2", now, now, "teacher")
	mock.ExpectQuery("SELECT c.id, c.name, c.code").
		WithArgs("user-1").
		WillReturnRows(rows)

	classrooms, roles, err := repo.ListByMember(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, classrooms, 2)
	require.Equal(t, []models.MembershipRole{models.MembershipStudent, models.MembershipTeacher}, roles)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassroomRepositoryAssignmentSummaries(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewClassroomRepository(db)

	due := time.Now().Add(48 * time.Hour)
	rows := sqlmock.NewRows([]string{"id", "title", "due_at", "published", "submitters"}).
		AddRow("a-1", "Cells Reading", due, true, 12).
		AddRow("a-2", "Draft Quiz", nil, false, 0)
	mock.ExpectQuery("SELECT a.id, a.title, a.due_at, a.published").
		WithArgs("class-1").
		WillReturnRows(rows)

	summaries, err := repo.AssignmentSummaries(context.Background(), "class-1")
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	require.Equal(t, 12, summaries[0].Submitters)
	require.Nil(t, summaries[1].DueAt)
	require.NoError(t, mock.ExpectationsWereMet())
}
