package service

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/models"
	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/repository"
	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/service/analyzer"
	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/service/integration"
)

const testAssignmentID = "6f1c2a9e-3b7d-4c1e-9a55-0d2f8e4b7c10"

type fakeReportRepo struct {
	mu      sync.Mutex
	reports map[string]models.Report
	updates []models.Report
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{reports: make(map[string]models.Report)}
}

func (r *fakeReportRepo) Create(_ context.Context, report *models.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports[report.ID] = *report
	return nil
}

func (r *fakeReportRepo) GetByID(_ context.Context, id string) (*models.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	report, ok := r.reports[id]
	if !ok {
		return nil, nil
	}
	return &report, nil
}

func (r *fakeReportRepo) GetByAssignmentID(_ context.Context, assignmentID string, limit, offset int) ([]models.Report, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Report
	for _, report := range r.reports {
		if report.AssignmentID == assignmentID {
			out = append(out, report)
		}
	}
	return out, len(out), nil
}

func (r *fakeReportRepo) GetReportsByStatus(_ context.Context, status string, limit int) ([]models.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Report
	for _, report := range r.reports {
		if report.Status == status {
			out = append(out, report)
		}
	}
	return out, nil
}

func (r *fakeReportRepo) Update(_ context.Context, report *models.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reports[report.ID]; !ok {
		return repository.ErrNotFound
	}
	r.reports[report.ID] = *report
	r.updates = append(r.updates, *report)
	return nil
}

func (r *fakeReportRepo) UpdateStatus(_ context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	report, ok := r.reports[id]
	if !ok {
		return repository.ErrNotFound
	}
	report.Status = status
	r.reports[id] = report
	return nil
}

func (r *fakeReportRepo) Ping(context.Context) error { return nil }

type fakeSubmissionRepo struct {
	submissions []models.Submission
	analyzed    []string
}

func (r *fakeSubmissionRepo) Create(_ context.Context, s *models.Submission) error {
	r.submissions = append(r.submissions, *s)
	return nil
}

func (r *fakeSubmissionRepo) GetByID(_ context.Context, id string) (*models.Submission, error) {
	for _, s := range r.submissions {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, nil
}

func (r *fakeSubmissionRepo) GetByAssignment(_ context.Context, assignmentID string, limit int) ([]models.Submission, error) {
	var out []models.Submission
	for _, s := range r.submissions {
		if s.AssignmentID == assignmentID && len(out) < limit {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSubmissionRepo) CountByAssignment(ctx context.Context, assignmentID string) (int, error) {
	subs, _ := r.GetByAssignment(ctx, assignmentID, len(r.submissions))
	return len(subs), nil
}

func (r *fakeSubmissionRepo) MarkAnalyzed(_ context.Context, ids []string) error {
	r.analyzed = append(r.analyzed, ids...)
	return nil
}

type fakeSimilarityRepo struct {
	mu           sync.Mutex
	similarities map[string]models.Similarity
	saveErr      error
}

func newFakeSimilarityRepo() *fakeSimilarityRepo {
	return &fakeSimilarityRepo{similarities: make(map[string]models.Similarity)}
}

func (r *fakeSimilarityRepo) SaveBatch(_ context.Context, similarities []models.Similarity) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return 0, r.saveErr
	}
	for _, s := range similarities {
		if s.ReportID == models.UnassignedReportID {
			return 0, errors.New("unassigned report id")
		}
		r.similarities[s.ID] = s
	}
	return len(similarities), nil
}

func (r *fakeSimilarityRepo) GetByID(_ context.Context, id string) (*models.Similarity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.similarities[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *fakeSimilarityRepo) ListByReport(_ context.Context, reportID string, minScore float64, limit, offset int) ([]models.Similarity, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Similarity
	for _, s := range r.similarities {
		if s.ReportID == reportID && s.SimilarityScore >= minScore {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SimilarityScore > out[j].SimilarityScore })
	total := len(out)
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (r *fakeSimilarityRepo) AttachAIAnalysis(_ context.Context, id, analysis string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.similarities[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.AIAnalysis = &analysis
	r.similarities[id] = s
	return nil
}

type publishedEvent struct {
	routingKey string
	event      interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *fakePublisher) PublishEvent(_ context.Context, _, routingKey string, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{routingKey: routingKey, event: event})
	return nil
}

type mapLoader map[string]string

func (l mapLoader) LoadContent(_ context.Context, s models.Submission) (string, error) {
	code, ok := l[s.ID]
	if !ok {
		return "", integration.ErrContentNotFound
	}
	return code, nil
}

type scanFixture struct {
	reports      *fakeReportRepo
	submissions  *fakeSubmissionRepo
	similarities *fakeSimilarityRepo
	publisher    *fakePublisher
	tracker      *ProgressTracker
	logs         *syncBuffer
	scans        ScanService
	reads        ReportService
}

// syncBuffer collects JSON log lines written from several goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newScanFixture(t *testing.T, loader integration.ContentLoader, subs ...models.Submission) *scanFixture {
	t.Helper()
	return newScanFixtureWithConfig(t, loader, nil, subs...)
}

func newScanFixtureWithConfig(t *testing.T, loader integration.ContentLoader, mutate func(*ScanConfig), subs ...models.Submission) *scanFixture {
	t.Helper()

	if loader == nil {
		loader = integration.NewInlineLoader()
	}

	tk := analyzer.NewTokenizer()
	engineCfg := analyzer.DefaultEngineConfig()
	engineCfg.MaxWorkers = 2
	engine := analyzer.NewPlagiarismEngine(
		tk,
		analyzer.NewSimilarityCalculator(tk, analyzer.DefaultCalculatorConfig()),
		analyzer.NewHighlightGenerator(tk, analyzer.DefaultHighlightConfig()),
		zerolog.Nop(),
		engineCfg,
	)

	cfg := ScanConfig{
		Exchange:            "plagiarism_exchange",
		RequestedRoutingKey: "scan.requested",
		CompletedRoutingKey: "scan.completed",
		DefaultThreshold:    60,
		MaxSubmissions:      100,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	f := &scanFixture{
		reports:      newFakeReportRepo(),
		submissions:  &fakeSubmissionRepo{submissions: subs},
		similarities: newFakeSimilarityRepo(),
		publisher:    &fakePublisher{},
		tracker:      NewProgressTracker(),
		logs:         &syncBuffer{},
	}
	logger := zerolog.New(f.logs)
	f.scans = NewScanService(f.reports, f.submissions, f.similarities, loader, engine, f.publisher, f.tracker, logger, cfg)
	f.reads = NewReportService(f.reports, f.similarities, f.tracker, logger)
	return f
}

func sub(id, code string) models.Submission {
	return models.Submission{
		ID:           id,
		StudentID:    "student-" + id,
		AssignmentID: testAssignmentID,
		Filename:     "main.py",
		CodeContent:  code,
		Status:       models.SubmissionStatusSubmitted.String(),
	}
}
