package service

import (
	"sync"

	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/models"
)

// ProgressTracker keeps live progress of running scans in memory. Entries
// exist only while a scan runs in this process.
type ProgressTracker struct {
	mu      sync.RWMutex
	running map[string]models.PlagiarismProgress
}

func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{
		running: make(map[string]models.PlagiarismProgress),
	}
}

// Start registers a scan. It returns false if the report is already tracked.
func (t *ProgressTracker) Start(reportID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.running[reportID]; ok {
		return false
	}
	t.running[reportID] = models.PlagiarismProgress{}
	return true
}

// Listener returns a ProgressFunc that records updates for reportID.
func (t *ProgressTracker) Listener(reportID string) models.ProgressFunc {
	return func(p models.PlagiarismProgress) {
		t.mu.Lock()
		defer t.mu.Unlock()

		if _, ok := t.running[reportID]; ok {
			t.running[reportID] = p
		}
	}
}

func (t *ProgressTracker) Get(reportID string) (models.PlagiarismProgress, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, ok := t.running[reportID]
	return p, ok
}

func (t *ProgressTracker) Finish(reportID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.running, reportID)
}
