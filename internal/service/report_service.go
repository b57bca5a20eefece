package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/models"
	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/repository"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500
)

type ReportService interface {
	GetReport(ctx context.Context, reportID string) (*models.Report, error)
	ListReportsByAssignment(ctx context.Context, assignmentID string, limit, offset int) ([]models.Report, int, error)
	// ListSimilarities pages through a report's similarities, highest score first.
	ListSimilarities(ctx context.Context, reportID string, minScore float64, limit, offset int) (*models.SimilaritiesResponse, error)
	GetSimilarity(ctx context.Context, similarityID string) (*models.Similarity, error)
	// AttachAIAnalysis stores an externally produced annotation on a similarity.
	AttachAIAnalysis(ctx context.Context, similarityID, analysis string) (*models.Similarity, error)
	GetProgress(ctx context.Context, reportID string) (*models.ScanProgressResponse, error)
	Ping(ctx context.Context) error
}

type reportService struct {
	reportRepo     repository.ReportRepository
	similarityRepo repository.SimilarityRepository
	tracker        *ProgressTracker
	logger         zerolog.Logger
}

func NewReportService(
	reportRepo repository.ReportRepository,
	similarityRepo repository.SimilarityRepository,
	tracker *ProgressTracker,
	logger zerolog.Logger,
) ReportService {
	return &reportService{
		reportRepo:     reportRepo,
		similarityRepo: similarityRepo,
		tracker:        tracker,
		logger:         logger,
	}
}

func (s *reportService) GetReport(ctx context.Context, reportID string) (*models.Report, error) {
	report, err := s.reportRepo.GetByID(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	if report == nil {
		return nil, ErrReportNotFound
	}
	return report, nil
}

func (s *reportService) ListReportsByAssignment(ctx context.Context, assignmentID string, limit, offset int) ([]models.Report, int, error) {
	limit, offset = normalizePage(limit, offset)

	reports, total, err := s.reportRepo.GetByAssignmentID(ctx, assignmentID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, total, nil
}

func (s *reportService) ListSimilarities(ctx context.Context, reportID string, minScore float64, limit, offset int) (*models.SimilaritiesResponse, error) {
	if _, err := s.GetReport(ctx, reportID); err != nil {
		return nil, err
	}

	limit, offset = normalizePage(limit, offset)
	minScore = math.Max(0, math.Min(100, minScore))

	similarities, total, err := s.similarityRepo.ListByReport(ctx, reportID, minScore, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list similarities: %w", err)
	}

	return &models.SimilaritiesResponse{
		Similarities: similarities,
		Total:        total,
		Limit:        limit,
		Offset:       offset,
	}, nil
}

func (s *reportService) GetSimilarity(ctx context.Context, similarityID string) (*models.Similarity, error) {
	similarity, err := s.similarityRepo.GetByID(ctx, similarityID)
	if err != nil {
		return nil, fmt.Errorf("failed to get similarity: %w", err)
	}
	if similarity == nil {
		return nil, ErrSimilarityNotFound
	}
	return similarity, nil
}

func (s *reportService) AttachAIAnalysis(ctx context.Context, similarityID, analysis string) (*models.Similarity, error) {
	if strings.TrimSpace(analysis) == "" {
		return nil, ErrEmptyAnnotation
	}

	if err := s.similarityRepo.AttachAIAnalysis(ctx, similarityID, analysis); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSimilarityNotFound
		}
		return nil, fmt.Errorf("failed to attach analysis: %w", err)
	}

	s.logger.Info().
		Str("similarity_id", similarityID).
		Int("length", len(analysis)).
		Msg("AI analysis attached")

	return s.GetSimilarity(ctx, similarityID)
}

func (s *reportService) GetProgress(ctx context.Context, reportID string) (*models.ScanProgressResponse, error) {
	report, err := s.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}

	progress, running := s.tracker.Get(reportID)
	if !running {
		switch report.Status {
		case models.ReportStatusCompleted.String():
			progress = models.PlagiarismProgress{Current: report.TotalPairs, Total: report.TotalPairs}
		case models.ReportStatusFailed.String():
			progress = models.PlagiarismProgress{Current: report.ComparedPairs + report.FailedPairs, Total: report.TotalPairs}
		}
	}

	percent := 0.0
	switch {
	case progress.Total > 0:
		percent = math.Round(10000*float64(progress.Current)/float64(progress.Total)) / 100
	case report.Status == models.ReportStatusCompleted.String():
		percent = 100
	}

	return &models.ScanProgressResponse{
		ReportID: reportID,
		Status:   report.Status,
		Progress: progress,
		Percent:  percent,
	}, nil
}

func (s *reportService) Ping(ctx context.Context) error {
	return s.reportRepo.Ping(ctx)
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
