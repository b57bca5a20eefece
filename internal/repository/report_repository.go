package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/models"
)

type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id string) (*models.Report, error)
	GetByAssignmentID(ctx context.Context, assignmentID string, limit, offset int) ([]models.Report, int, error)
	GetReportsByStatus(ctx context.Context, status string, limit int) ([]models.Report, error)
	Update(ctx context.Context, report *models.Report) error
	UpdateStatus(ctx context.Context, id, status string) error
	Ping(ctx context.Context) error
}

type reportRepository struct {
	*PostgresRepository
}

func NewReportRepository(db *sql.DB, logger zerolog.Logger) ReportRepository {
	return &reportRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const reportColumns = `
	id, assignment_id, mode, threshold, status, submission_count,
	total_pairs, compared_pairs, failed_pairs, similarity_count, max_score,
	error_message, created_at, started_at, completed_at, updated_at`

func (r *reportRepository) Create(ctx context.Context, report *models.Report) error {
	query := `
		INSERT INTO reports (` + reportColumns + `
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		report.ID,
		report.AssignmentID,
		report.Mode,
		report.Threshold,
		report.Status,
		report.SubmissionCount,
		report.TotalPairs,
		report.ComparedPairs,
		report.FailedPairs,
		report.SimilarityCount,
		report.MaxScore,
		report.ErrorMessage,
		report.CreatedAt,
		report.StartedAt,
		report.CompletedAt,
		report.UpdatedAt,
	)

	return err
}

func (r *reportRepository) GetByID(ctx context.Context, id string) (*models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1`

	report, err := scanReport(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return report, nil
}

func (r *reportRepository) GetByAssignmentID(ctx context.Context, assignmentID string, limit, offset int) ([]models.Report, int, error) {
	countQuery := `SELECT COUNT(*) FROM reports WHERE assignment_id = $1`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, assignmentID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + reportColumns + `
		FROM reports
		WHERE assignment_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, assignmentID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	reports, err := collectReports(rows)
	if err != nil {
		return nil, 0, err
	}

	return reports, total, nil
}

func (r *reportRepository) GetReportsByStatus(ctx context.Context, status string, limit int) ([]models.Report, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM reports
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectReports(rows)
}

func (r *reportRepository) Update(ctx context.Context, report *models.Report) error {
	query := `
		UPDATE reports
		SET
			status = $1,
			submission_count = $2,
			total_pairs = $3,
			compared_pairs = $4,
			failed_pairs = $5,
			similarity_count = $6,
			max_score = $7,
			error_message = $8,
			started_at = $9,
			completed_at = $10,
			updated_at = $11
		WHERE id = $12
	`

	res, err := r.db.ExecContext(ctx, query,
		report.Status,
		report.SubmissionCount,
		report.TotalPairs,
		report.ComparedPairs,
		report.FailedPairs,
		report.SimilarityCount,
		report.MaxScore,
		report.ErrorMessage,
		report.StartedAt,
		report.CompletedAt,
		report.UpdatedAt,
		report.ID,
	)
	if err != nil {
		return err
	}

	return expectAffected(res)
}

func (r *reportRepository) UpdateStatus(ctx context.Context, id, status string) error {
	query := `
		UPDATE reports
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	res, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return err
	}

	return expectAffected(res)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row rowScanner) (*models.Report, error) {
	report := &models.Report{}
	var errorMessage sql.NullString
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&report.ID,
		&report.AssignmentID,
		&report.Mode,
		&report.Threshold,
		&report.Status,
		&report.SubmissionCount,
		&report.TotalPairs,
		&report.ComparedPairs,
		&report.FailedPairs,
		&report.SimilarityCount,
		&report.MaxScore,
		&errorMessage,
		&report.CreatedAt,
		&startedAt,
		&completedAt,
		&report.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if errorMessage.Valid {
		report.ErrorMessage = &errorMessage.String
	}
	if startedAt.Valid {
		report.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		report.CompletedAt = &completedAt.Time
	}

	return report, nil
}

func collectReports(rows *sql.Rows) ([]models.Report, error) {
	reports := make([]models.Report, 0)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}
	return reports, rows.Err()
}
