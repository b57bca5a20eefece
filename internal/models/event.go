package models

import (
	"time"
)

type ScanRequestedEvent struct {
	ReportID     string `json:"report_id"`
	AssignmentID string `json:"assignment_id"`
	Mode         string `json:"mode"`
	Timestamp    int64  `json:"timestamp"`
}

type ScanCompletedEvent struct {
	ReportID        string    `json:"report_id"`
	AssignmentID    string    `json:"assignment_id"`
	Status          string    `json:"status"`
	SimilarityCount int       `json:"similarity_count"`
	FailedPairs     int       `json:"failed_pairs"`
	MaxScore        float64   `json:"max_score"`
	ProcessingTime  int       `json:"processing_time_ms"`
	CompletedAt     time.Time `json:"completed_at"`
}
