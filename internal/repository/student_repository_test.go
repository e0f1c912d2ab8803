package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/maktab-fin-api/internal/models"
)

func newStudentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestStudentRepositoryList(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM students`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	rows := sqlmock.NewRows([]string{"id", "code", "full_name", "classroom_id", "phone", "enrolled_from", "enrolled_to", "active", "created_at", "updated_at"}).
		AddRow("s1", "ST-001", "Aziza Karimova", "5A", "998901234567", time.Now(), nil, true, time.Now(), time.Now())
	mock.ExpectQuery("SELECT id, code, full_name, classroom_id").
		WillReturnRows(rows)

	students, total, err := repo.List(context.Background(), models.StudentFilter{})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListActiveFilter(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	active := true
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM students`).
		WithArgs(active).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("SELECT id, code, full_name, classroom_id").
		WithArgs(active).
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "full_name", "classroom_id", "phone", "enrolled_from", "enrolled_to", "active", "created_at", "updated_at"}))

	students, total, err := repo.List(context.Background(), models.StudentFilter{Active: &active})
	require.NoError(t, err)
	assert.Empty(t, students)
	assert.Equal(t, 0, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").
		WillReturnResult(sqlmock.NewResult(1, 1))

	student := &models.Student{Code: "ST-001", FullName: "Aziza Karimova", EnrolledFrom: time.Now(), Active: true}
	err := repo.Create(context.Background(), student)
	require.NoError(t, err)
	assert.NotEmpty(t, student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
