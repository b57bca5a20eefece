package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/models"
	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/repository"
	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/service/analyzer"
	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/service/integration"
	"github.com/RubachokBoss/plagiarism-checker/similarity-service/pkg/utils"
)

// EventPublisher sends domain events to the broker.
type EventPublisher interface {
	PublishEvent(ctx context.Context, exchange, routingKey string, event interface{}) error
}

type ScanService interface {
	// CreateScan stores a pending report for the assignment.
	CreateScan(ctx context.Context, assignmentID, mode string, threshold *float64) (*models.Report, error)
	// RunScan executes a stored report and persists its similarities.
	RunScan(ctx context.Context, reportID string) (*models.Report, error)
	// ScanAsync stores a pending report and queues it for a scan worker.
	ScanAsync(ctx context.Context, assignmentID, mode string, threshold *float64) (*models.Report, error)
	RetryFailedScans(ctx context.Context, limit int) (int, error)
	Compare(ctx context.Context, req models.CompareRequest) (*models.CompareResponse, error)
	EngineInfo() analyzer.EngineInfo
}

type ScanConfig struct {
	Exchange            string
	RequestedRoutingKey string
	CompletedRoutingKey string
	DefaultThreshold    float64
	MaxSubmissions      int
	// ScanTimeout bounds one RunScan; 0 disables it.
	ScanTimeout time.Duration
}

type scanService struct {
	reportRepo     repository.ReportRepository
	submissionRepo repository.SubmissionRepository
	similarityRepo repository.SimilarityRepository
	loader         integration.ContentLoader
	engine         analyzer.PlagiarismEngine
	publisher      EventPublisher
	tracker        *ProgressTracker
	logger         zerolog.Logger
	config         ScanConfig
}

func NewScanService(
	reportRepo repository.ReportRepository,
	submissionRepo repository.SubmissionRepository,
	similarityRepo repository.SimilarityRepository,
	loader integration.ContentLoader,
	engine analyzer.PlagiarismEngine,
	publisher EventPublisher,
	tracker *ProgressTracker,
	logger zerolog.Logger,
	config ScanConfig,
) ScanService {
	return &scanService{
		reportRepo:     reportRepo,
		submissionRepo: submissionRepo,
		similarityRepo: similarityRepo,
		loader:         loader,
		engine:         engine,
		publisher:      publisher,
		tracker:        tracker,
		logger:         logger,
		config:         config,
	}
}

func (s *scanService) CreateScan(ctx context.Context, assignmentID, mode string, threshold *float64) (*models.Report, error) {
	if !utils.ValidateUUID(assignmentID) {
		return nil, ErrInvalidAssignmentID
	}
	if mode == "" {
		mode = models.ScanModeFull.String()
	}
	if !models.IsValidScanMode(mode) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidScanMode, mode)
	}

	t := s.config.DefaultThreshold
	if threshold != nil {
		t = *threshold
	}
	if t < 0 || t > 100 {
		return nil, ErrInvalidThreshold
	}

	now := time.Now()
	report := &models.Report{
		ID:           utils.GenerateUUID(),
		AssignmentID: assignmentID,
		Mode:         mode,
		Threshold:    t,
		Status:       models.ReportStatusPending.String(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.reportRepo.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}

	s.logger.Info().
		Str("report_id", report.ID).
		Str("assignment_id", assignmentID).
		Str("mode", mode).
		Msg("Scan created")

	return report, nil
}

func (s *scanService) ScanAsync(ctx context.Context, assignmentID, mode string, threshold *float64) (*models.Report, error) {
	report, err := s.CreateScan(ctx, assignmentID, mode, threshold)
	if err != nil {
		return nil, err
	}

	if err := s.requestScan(ctx, report); err != nil {
		s.failReport(ctx, report, fmt.Errorf("failed to queue scan: %w", err))
		return nil, fmt.Errorf("failed to publish scan request: %w", err)
	}

	s.logger.Info().
		Str("report_id", report.ID).
		Msg("Async scan requested")

	return report, nil
}

func (s *scanService) requestScan(ctx context.Context, report *models.Report) error {
	event := models.ScanRequestedEvent{
		ReportID:     report.ID,
		AssignmentID: report.AssignmentID,
		Mode:         report.Mode,
		Timestamp:    time.Now().Unix(),
	}
	return s.publisher.PublishEvent(ctx, s.config.Exchange, s.config.RequestedRoutingKey, event)
}

func (s *scanService) RunScan(ctx context.Context, reportID string) (*models.Report, error) {
	report, err := s.reportRepo.GetByID(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	if report == nil {
		return nil, ErrReportNotFound
	}
	if report.Status == models.ReportStatusCompleted.String() {
		s.logger.Info().Str("report_id", reportID).Msg("Scan already completed, returning stored report")
		return report, nil
	}

	if !s.tracker.Start(reportID) {
		return nil, ErrScanInProgress
	}
	defer s.tracker.Finish(reportID)

	startTime := time.Now()
	report.Status = models.ReportStatusProcessing.String()
	report.StartedAt = &startTime
	report.CompletedAt = nil
	report.ErrorMessage = nil
	report.UpdatedAt = startTime
	if err := s.reportRepo.Update(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to mark report processing: %w", err)
	}

	scanCtx := ctx
	if s.config.ScanTimeout > 0 {
		var cancel context.CancelFunc
		scanCtx, cancel = context.WithTimeout(ctx, s.config.ScanTimeout)
		defer cancel()
	}

	result, submissions, err := s.execute(scanCtx, report)
	if err != nil {
		s.failReport(ctx, report, err)
		return report, fmt.Errorf("scan failed: %w", err)
	}

	for i := range result.Similarities {
		result.Similarities[i].ID = utils.GenerateUUID()
		result.Similarities[i].ReportID = report.ID
	}

	inserted, err := s.similarityRepo.SaveBatch(ctx, result.Similarities)
	if err != nil {
		err = fmt.Errorf("failed to save similarities: %w", err)
		s.failReport(ctx, report, err)
		return report, err
	}

	ids := make([]string, 0, len(submissions))
	for _, sub := range submissions {
		if sub.Status != models.SubmissionStatusAnalyzed.String() {
			ids = append(ids, sub.ID)
		}
	}
	if err := s.submissionRepo.MarkAnalyzed(ctx, ids); err != nil {
		s.logger.Error().Err(err).Str("report_id", report.ID).Msg("Failed to mark submissions analyzed")
	}

	completedAt := time.Now()
	report.Status = models.ReportStatusCompleted.String()
	report.SubmissionCount = len(submissions)
	report.TotalPairs = result.TotalPairs
	report.ComparedPairs = result.ComparedPairs
	report.FailedPairs = len(result.Failures)
	report.SimilarityCount = len(result.Similarities)
	report.MaxScore = result.MaxScore()
	report.CompletedAt = &completedAt
	report.UpdatedAt = completedAt

	if err := s.reportRepo.Update(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to update report with results: %w", err)
	}

	processingTime := int(completedAt.Sub(startTime).Milliseconds())
	s.publishCompleted(ctx, report, processingTime)

	s.logger.Info().
		Str("report_id", report.ID).
		Str("mode", report.Mode).
		Int("submissions", report.SubmissionCount).
		Int("pairs", report.TotalPairs).
		Int("similarities", report.SimilarityCount).
		Int("inserted", inserted).
		Int("failed_pairs", report.FailedPairs).
		Float64("max_score", report.MaxScore).
		Int("processing_time_ms", processingTime).
		Msg("Scan completed successfully")

	return report, nil
}

// execute loads the assignment's submissions and runs the engine in the
// report's mode. It returns the submissions that took part in the scan.
func (s *scanService) execute(ctx context.Context, report *models.Report) (*analyzer.ScanResult, []models.Submission, error) {
	limit := s.config.MaxSubmissions
	if limit <= 0 {
		limit = 2000
	}

	submissions, err := s.submissionRepo.GetByAssignment(ctx, report.AssignmentID, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load submissions: %w", err)
	}
	if len(submissions) == limit {
		s.warnSubmissionLimit(ctx, report, limit)
	}

	submissions = s.hydrate(ctx, report.ID, submissions)
	progress := s.tracker.Listener(report.ID)

	var result *analyzer.ScanResult
	switch models.ScanMode(report.Mode) {
	case models.ScanModeFast:
		result, err = s.engine.DetectPlagiarismFast(ctx, submissions, progress)
	case models.ScanModeHigh:
		result, err = s.engine.FindHighSimilarityPairs(ctx, submissions, report.Threshold, progress)
	case models.ScanModeFull:
		result, err = s.engine.DetectPlagiarism(ctx, submissions, progress)
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidScanMode, report.Mode)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("plagiarism scan interrupted: %w", err)
	}

	for _, f := range result.Failures {
		s.logger.Warn().
			Str("report_id", report.ID).
			Str("submission1_id", f.Submission1ID).
			Str("submission2_id", f.Submission2ID).
			Str("reason", f.Reason).
			Msg("Pair comparison failed")
	}

	return result, submissions, nil
}

func (s *scanService) warnSubmissionLimit(ctx context.Context, report *models.Report, limit int) {
	total, err := s.submissionRepo.CountByAssignment(ctx, report.AssignmentID)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("report_id", report.ID).
			Int("limit", limit).
			Msg("Submission limit reached, failed to count the rest")
		return
	}
	if total <= limit {
		return
	}

	s.logger.Warn().
		Str("report_id", report.ID).
		Int("limit", limit).
		Int("total", total).
		Int("not_scanned", total-limit).
		Msg("Submission limit reached, later submissions are not scanned")
}

// hydrate fills in code bodies that are not stored inline. A submission with
// no file reference keeps its empty body and still takes part in the scan;
// one whose referenced content cannot be loaded is left out.
func (s *scanService) hydrate(ctx context.Context, reportID string, submissions []models.Submission) []models.Submission {
	ready := make([]models.Submission, 0, len(submissions))
	for _, sub := range submissions {
		if sub.HasContent() {
			ready = append(ready, sub)
			continue
		}

		code, err := s.loader.LoadContent(ctx, sub)
		if errors.Is(err, integration.ErrNoFileReference) {
			ready = append(ready, sub)
			continue
		}
		if err != nil {
			s.logger.Warn().
				Err(fmt.Errorf("%w: %w", ErrContentUnavailable, err)).
				Str("report_id", reportID).
				Str("submission_id", sub.ID).
				Msg("Skipping submission without content")
			continue
		}

		sub.CodeContent = code
		ready = append(ready, sub)
	}
	return ready
}

func (s *scanService) failReport(ctx context.Context, report *models.Report, cause error) {
	// the scan context may already be done; the failure must still be recorded
	ctx = context.WithoutCancel(ctx)

	now := time.Now()
	msg := cause.Error()
	report.Status = models.ReportStatusFailed.String()
	report.ErrorMessage = &msg
	report.CompletedAt = &now
	report.UpdatedAt = now

	if err := s.reportRepo.Update(ctx, report); err != nil {
		s.logger.Error().Err(err).Str("report_id", report.ID).Msg("Failed to update failed report")
	}

	processingTime := 0
	if report.StartedAt != nil {
		processingTime = int(now.Sub(*report.StartedAt).Milliseconds())
	}
	s.publishCompleted(ctx, report, processingTime)

	s.logger.Error().
		Err(cause).
		Str("report_id", report.ID).
		Msg("Scan failed")
}

func (s *scanService) publishCompleted(ctx context.Context, report *models.Report, processingTime int) {
	completedAt := report.UpdatedAt
	if report.CompletedAt != nil {
		completedAt = *report.CompletedAt
	}

	event := models.ScanCompletedEvent{
		ReportID:        report.ID,
		AssignmentID:    report.AssignmentID,
		Status:          report.Status,
		SimilarityCount: report.SimilarityCount,
		FailedPairs:     report.FailedPairs,
		MaxScore:        report.MaxScore,
		ProcessingTime:  processingTime,
		CompletedAt:     completedAt,
	}

	if err := s.publisher.PublishEvent(ctx, s.config.Exchange, s.config.CompletedRoutingKey, event); err != nil {
		s.logger.Error().Err(err).Str("report_id", report.ID).Msg("Failed to publish scan completed event")
	}
}

// RetryFailedScans resets failed reports to pending and queues a scan request
// for each. It returns how many requests were published.
func (s *scanService) RetryFailedScans(ctx context.Context, limit int) (int, error) {
	failed, err := s.reportRepo.GetReportsByStatus(ctx, models.ReportStatusFailed.String(), limit)
	if err != nil {
		return 0, fmt.Errorf("failed to get failed reports: %w", err)
	}

	queued := 0
	for _, report := range failed {
		if err := s.reportRepo.UpdateStatus(ctx, report.ID, models.ReportStatusPending.String()); err != nil {
			s.logger.Error().Err(err).Str("report_id", report.ID).Msg("Failed to reset report to pending")
			continue
		}

		if err := s.requestScan(ctx, &report); err != nil {
			s.logger.Error().Err(err).Str("report_id", report.ID).Msg("Failed to queue scan retry")
			if err := s.reportRepo.UpdateStatus(context.WithoutCancel(ctx), report.ID, models.ReportStatusFailed.String()); err != nil {
				s.logger.Error().Err(err).Str("report_id", report.ID).Msg("Failed to restore failed status")
			}
			continue
		}

		s.logger.Info().
			Str("report_id", report.ID).
			Str("assignment_id", report.AssignmentID).
			Msg("Scan retry queued")
		queued++
	}

	s.logger.Info().
		Int("total_failed", len(failed)).
		Int("queued", queued).
		Msg("Failed scans requeued")

	return queued, nil
}

func (s *scanService) Compare(ctx context.Context, req models.CompareRequest) (*models.CompareResponse, error) {
	a := models.Submission{ID: "a", Filename: req.FilenameA, CodeContent: req.CodeA}
	b := models.Submission{ID: "b", Filename: req.FilenameB, CodeContent: req.CodeB}

	result, highlight, err := s.engine.ComparePair(ctx, a, b)
	if err != nil {
		return nil, fmt.Errorf("comparison failed: %w", err)
	}

	return &models.CompareResponse{
		Result:    result,
		Highlight: highlight,
	}, nil
}

func (s *scanService) EngineInfo() analyzer.EngineInfo {
	return s.engine.GetEngineInfo()
}
