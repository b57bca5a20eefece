package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/models"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

var reportRowColumns = []string{
	"id", "assignment_id", "mode", "threshold", "status", "submission_count",
	"total_pairs", "compared_pairs", "failed_pairs", "similarity_count", "max_score",
	"error_message", "created_at", "started_at", "completed_at", "updated_at",
}

func TestReportRepository_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReportRepository(db, zerolog.Nop())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .* FROM reports WHERE id = \$1`).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows(reportRowColumns).AddRow(
			"r1", "a1", "full", 60.0, "completed", 3,
			3, 3, 0, 3, 87.5,
			nil, now, now, now, now,
		))

	report, err := repo.GetByID(context.Background(), "r1")
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, "a1", report.AssignmentID)
	assert.Equal(t, 87.5, report.MaxScore)
	assert.Nil(t, report.ErrorMessage)
	require.NotNil(t, report.CompletedAt)
	assert.Equal(t, now, *report.CompletedAt)
}

func TestReportRepository_GetByIDMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReportRepository(db, zerolog.Nop())

	mock.ExpectQuery(`SELECT .* FROM reports WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	report, err := repo.GetByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, report)
}

func TestReportRepository_GetByAssignmentID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReportRepository(db, zerolog.Nop())
	now := time.Now()
	msg := "no submissions"

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM reports WHERE assignment_id = \$1`).
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery(`FROM reports\s+WHERE assignment_id = \$1\s+ORDER BY created_at DESC`).
		WithArgs("a1", 2, 4).
		WillReturnRows(sqlmock.NewRows(reportRowColumns).
			AddRow("r2", "a1", "fast", 60.0, "failed", 0, 0, 0, 0, 0, 0.0, msg, now, now, now, now).
			AddRow("r1", "a1", "full", 60.0, "completed", 2, 1, 1, 0, 1, 40.0, nil, now, nil, nil, now))

	reports, total, err := repo.GetByAssignmentID(context.Background(), "a1", 2, 4)
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	require.Len(t, reports, 2)
	require.NotNil(t, reports[0].ErrorMessage)
	assert.Equal(t, msg, *reports[0].ErrorMessage)
	assert.Nil(t, reports[1].StartedAt)
}

func TestReportRepository_UpdateNoRows(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReportRepository(db, zerolog.Nop())

	mock.ExpectExec(`UPDATE reports`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Report{ID: "gone"})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestReportRepository_UpdateStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReportRepository(db, zerolog.Nop())

	mock.ExpectExec(`UPDATE reports\s+SET status = \$1, updated_at = \$2\s+WHERE id = \$3`).
		WithArgs("processing", sqlmock.AnyArg(), "r1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "r1", "processing"))
}
