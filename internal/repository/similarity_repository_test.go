package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/models"
)

var similarityRowColumns = []string{
	"id", "report_id", "submission1_id", "submission2_id", "similarity_score",
	"jaccard_score", "lcs_score", "highlight_data", "ai_analysis", "created_at",
}

func testSimilarity(id, s1, s2 string, score float64) models.Similarity {
	return models.Similarity{
		ID:              id,
		ReportID:        "r1",
		Submission1ID:   s1,
		Submission2ID:   s2,
		SimilarityScore: score,
		JaccardScore:    score,
		LCSScore:        score,
		HighlightData:   `{"regions":[]}`,
		CreatedAt:       time.Now(),
	}
}

func TestSimilarityRepository_SaveBatch(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSimilarityRepository(db, zerolog.Nop())

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT INTO similarities`)
	prep.ExpectExec().
		WithArgs("x1", "r1", "s1", "s2", 90.0, 90.0, 90.0, `{"regions":[]}`, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// already stored for this report
	prep.ExpectExec().
		WithArgs("x2", "r1", "s1", "s3", 20.0, 20.0, 20.0, `{"regions":[]}`, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	inserted, err := repo.SaveBatch(context.Background(), []models.Similarity{
		testSimilarity("x1", "s1", "s2", 90),
		testSimilarity("x2", "s1", "s3", 20),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
}

func TestSimilarityRepository_SaveBatchRollsBackUnassigned(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSimilarityRepository(db, zerolog.Nop())

	unassigned := testSimilarity("x1", "s1", "s2", 50)
	unassigned.ReportID = models.UnassignedReportID

	mock.ExpectBegin()
	mock.ExpectPrepare(`INSERT INTO similarities`)
	mock.ExpectRollback()

	inserted, err := repo.SaveBatch(context.Background(), []models.Similarity{unassigned})
	require.Error(t, err)
	assert.Zero(t, inserted)
}

func TestSimilarityRepository_SaveBatchEmpty(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewSimilarityRepository(db, zerolog.Nop())

	inserted, err := repo.SaveBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, inserted)
}

func TestSimilarityRepository_ListByReport(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSimilarityRepository(db, zerolog.Nop())
	now := time.Now()
	note := "likely shared helper"

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM similarities WHERE report_id = \$1 AND similarity_score >= \$2`).
		WithArgs("r1", 50.0).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`ORDER BY similarity_score DESC`).
		WithArgs("r1", 50.0, 10, 0).
		WillReturnRows(sqlmock.NewRows(similarityRowColumns).
			AddRow("x1", "r1", "s1", "s2", 91.0, 88.0, 93.0, `{"regions":[]}`, note, now).
			AddRow("x2", "r1", "s1", "s3", 55.0, 50.0, 58.33, `{"regions":[]}`, nil, now))

	sims, total, err := repo.ListByReport(context.Background(), "r1", 50, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, sims, 2)
	require.NotNil(t, sims[0].AIAnalysis)
	assert.Equal(t, note, *sims[0].AIAnalysis)
	assert.Nil(t, sims[1].AIAnalysis)
}

func TestSimilarityRepository_AttachAIAnalysis(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSimilarityRepository(db, zerolog.Nop())

	mock.ExpectExec(`UPDATE similarities SET ai_analysis = \$1 WHERE id = \$2`).
		WithArgs("text", "x1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE similarities SET ai_analysis = \$1 WHERE id = \$2`).
		WithArgs("text", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.AttachAIAnalysis(context.Background(), "x1", "text"))
	err := repo.AttachAIAnalysis(context.Background(), "missing", "text")
	assert.True(t, errors.Is(err, ErrNotFound))
}
