package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func studentColumnsList() []string {
	return []string{"id", "student_code", "barcode", "full_name", "active", "created_at", "updated_at"}
}

func TestStudentRepositoryFindByBarcode(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows(studentColumnsList()).
		AddRow("stu-1", "S001", "BC-123", "Ada Lovelace", true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE barcode = $1")).
		WithArgs("BC-123").
		WillReturnRows(rows)

	student, err := repo.FindByBarcode(context.Background(), "BC-123")
	require.NoError(t, err)
	require.Equal(t, "stu-1", student.ID)
	require.Equal(t, "Ada Lovelace", student.FullName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows(studentColumnsList()).
		AddRow("stu-1", "S001", nil, "Ada Lovelace", true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE id = $1")).
		WithArgs("stu-1").
		WillReturnRows(rows)

	student, err := repo.FindByID(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Equal(t, "S001", student.StudentCode)
	require.Nil(t, student.Barcode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByCodeNoRows(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE student_code = $1")).
		WithArgs("UNKNOWN").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByCode(context.Background(), "UNKNOWN")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
