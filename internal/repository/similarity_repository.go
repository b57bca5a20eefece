package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/models"
)

type SimilarityRepository interface {
	// SaveBatch stores similarities in one transaction. Pairs already stored
	// for the same report are left untouched; the number inserted is returned.
	SaveBatch(ctx context.Context, similarities []models.Similarity) (int, error)
	GetByID(ctx context.Context, id string) (*models.Similarity, error)
	ListByReport(ctx context.Context, reportID string, minScore float64, limit, offset int) ([]models.Similarity, int, error)
	// AttachAIAnalysis sets the annotation; no other column is writable.
	AttachAIAnalysis(ctx context.Context, id, analysis string) error
}

type similarityRepository struct {
	*PostgresRepository
}

func NewSimilarityRepository(db *sql.DB, logger zerolog.Logger) SimilarityRepository {
	return &similarityRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const similarityColumns = `
	id, report_id, submission1_id, submission2_id, similarity_score,
	jaccard_score, lcs_score, highlight_data, ai_analysis, created_at`

func (r *similarityRepository) SaveBatch(ctx context.Context, similarities []models.Similarity) (int, error) {
	if len(similarities) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO similarities (` + similarityColumns + `
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (report_id, submission1_id, submission2_id) DO NOTHING
	`

	inserted := 0
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, s := range similarities {
			if s.ReportID == models.UnassignedReportID {
				return fmt.Errorf("similarity %s has no report id", s.ID)
			}

			res, err := stmt.ExecContext(ctx,
				s.ID,
				s.ReportID,
				s.Submission1ID,
				s.Submission2ID,
				s.SimilarityScore,
				s.JaccardScore,
				s.LCSScore,
				s.HighlightData,
				s.AIAnalysis,
				s.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert similarity %s: %w", s.ID, err)
			}

			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.logger.Debug().
		Int("requested", len(similarities)).
		Int("inserted", inserted).
		Msg("Saved similarity batch")

	return inserted, nil
}

func (r *similarityRepository) GetByID(ctx context.Context, id string) (*models.Similarity, error) {
	query := `SELECT ` + similarityColumns + ` FROM similarities WHERE id = $1`

	s, err := scanSimilarity(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *similarityRepository) ListByReport(ctx context.Context, reportID string, minScore float64, limit, offset int) ([]models.Similarity, int, error) {
	countQuery := `SELECT COUNT(*) FROM similarities WHERE report_id = $1 AND similarity_score >= $2`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, reportID, minScore).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + similarityColumns + `
		FROM similarities
		WHERE report_id = $1 AND similarity_score >= $2
		ORDER BY similarity_score DESC, created_at ASC, id ASC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.QueryContext(ctx, query, reportID, minScore, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	similarities := make([]models.Similarity, 0)
	for rows.Next() {
		s, err := scanSimilarity(rows)
		if err != nil {
			return nil, 0, err
		}
		similarities = append(similarities, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return similarities, total, nil
}

func (r *similarityRepository) AttachAIAnalysis(ctx context.Context, id, analysis string) error {
	query := `UPDATE similarities SET ai_analysis = $1 WHERE id = $2`

	res, err := r.db.ExecContext(ctx, query, analysis, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func scanSimilarity(row rowScanner) (*models.Similarity, error) {
	s := &models.Similarity{}
	var aiAnalysis sql.NullString

	err := row.Scan(
		&s.ID,
		&s.ReportID,
		&s.Submission1ID,
		&s.Submission2ID,
		&s.SimilarityScore,
		&s.JaccardScore,
		&s.LCSScore,
		&s.HighlightData,
		&aiAnalysis,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if aiAnalysis.Valid {
		s.AIAnalysis = &aiAnalysis.String
	}
	return s, nil
}
