package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/models"
)

type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id string) (*models.Submission, error)
	// GetByAssignment returns up to limit submissions in submission order.
	GetByAssignment(ctx context.Context, assignmentID string, limit int) ([]models.Submission, error)
	CountByAssignment(ctx context.Context, assignmentID string) (int, error)
	MarkAnalyzed(ctx context.Context, ids []string) error
}

type submissionRepository struct {
	*PostgresRepository
}

func NewSubmissionRepository(db *sql.DB, logger zerolog.Logger) SubmissionRepository {
	return &submissionRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *submissionRepository) Create(ctx context.Context, s *models.Submission) error {
	query := `
		INSERT INTO submissions (
			id, student_id, assignment_id, filename, code_content, code_hash,
			file_id, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.StudentID,
		s.AssignmentID,
		s.Filename,
		s.CodeContent,
		s.CodeHash,
		s.FileID,
		s.Status,
		s.CreatedAt,
	)
	return err
}

func (r *submissionRepository) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	query := `
		SELECT id, student_id, assignment_id, filename, code_content, code_hash,
			file_id, status, created_at
		FROM submissions
		WHERE id = $1
	`

	s, err := scanSubmission(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *submissionRepository) GetByAssignment(ctx context.Context, assignmentID string, limit int) ([]models.Submission, error) {
	query := `
		SELECT id, student_id, assignment_id, filename, code_content, code_hash,
			file_id, status, created_at
		FROM submissions
		WHERE assignment_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, assignmentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	submissions := make([]models.Submission, 0)
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		submissions = append(submissions, *s)
	}

	return submissions, rows.Err()
}

func (r *submissionRepository) CountByAssignment(ctx context.Context, assignmentID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions WHERE assignment_id = $1`, assignmentID).Scan(&count)
	return count, err
}

func (r *submissionRepository) MarkAnalyzed(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query := `UPDATE submissions SET status = $1 WHERE id = ANY($2)`
	_, err := r.db.ExecContext(ctx, query, models.SubmissionStatusAnalyzed.String(), pq.Array(ids))
	return err
}

func scanSubmission(row rowScanner) (*models.Submission, error) {
	s := &models.Submission{}
	var fileID sql.NullString

	err := row.Scan(
		&s.ID,
		&s.StudentID,
		&s.AssignmentID,
		&s.Filename,
		&s.CodeContent,
		&s.CodeHash,
		&fileID,
		&s.Status,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if fileID.Valid {
		s.FileID = &fileID.String
	}
	return s, nil
}
