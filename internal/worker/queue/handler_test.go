package queue

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/models"
	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/service"
	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/service/analyzer"
)

type fakeScanService struct {
	mu   sync.Mutex
	runs []string
	err  error
}

func (f *fakeScanService) CreateScan(context.Context, string, string, *float64) (*models.Report, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeScanService) RunScan(_ context.Context, reportID string) (*models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, reportID)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Report{ID: reportID, Status: models.ReportStatusCompleted.String()}, nil
}

func (f *fakeScanService) ScanAsync(context.Context, string, string, *float64) (*models.Report, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeScanService) RetryFailedScans(context.Context, int) (int, error) { return 0, nil }

func (f *fakeScanService) Compare(context.Context, models.CompareRequest) (*models.CompareResponse, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeScanService) EngineInfo() analyzer.EngineInfo { return analyzer.EngineInfo{} }

func (f *fakeScanService) runCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.runs)
}

func TestProcessMessage(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		redelivered   bool
		scanErr       error
		wantErr       bool
		wantPermanent bool
		wantRuns      int
	}{
		{name: "valid request", body: `{"report_id":"r1","mode":"full"}`, wantRuns: 1},
		{name: "malformed json", body: `{`, wantErr: true, wantPermanent: true},
		{name: "missing report id", body: `{"mode":"full"}`, wantErr: true, wantPermanent: true},
		{name: "unknown report", body: `{"report_id":"r1"}`, scanErr: service.ErrReportNotFound, wantErr: true, wantPermanent: true, wantRuns: 1},
		{name: "scan already running", body: `{"report_id":"r1"}`, scanErr: service.ErrScanInProgress, wantErr: true, wantPermanent: true, wantRuns: 1},
		{name: "transient failure", body: `{"report_id":"r1"}`, scanErr: errors.New("db down"), wantErr: true, wantRuns: 1},
		{name: "transient failure on redelivery", body: `{"report_id":"r1"}`, redelivered: true, scanErr: errors.New("db down"), wantErr: true, wantPermanent: true, wantRuns: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeScanService{err: tt.scanErr}
			h := NewMessageHandler(svc, zerolog.Nop())

			err := h.ProcessMessage(context.Background(), RabbitMQMessage{Body: []byte(tt.body), Redelivered: tt.redelivered})
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, tt.wantPermanent, isPermanentError(err))
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantRuns, svc.runCount())
		})
	}
}

func TestPermanentErrorUnwraps(t *testing.T) {
	err := permanent(service.ErrReportNotFound)
	assert.True(t, errors.Is(err, service.ErrReportNotFound))
	assert.True(t, isPermanentError(err))
	assert.False(t, isPermanentError(service.ErrReportNotFound))
}
