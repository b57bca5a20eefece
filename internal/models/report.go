package models

import (
	"time"
)

// Report is one batch plagiarism scan over an assignment's submissions.
type Report struct {
	ID              string     `json:"id" db:"id"`
	AssignmentID    string     `json:"assignment_id" db:"assignment_id"`
	Mode            string     `json:"mode" db:"mode"`
	Threshold       float64    `json:"threshold" db:"threshold"`
	Status          string     `json:"status" db:"status"`
	SubmissionCount int        `json:"submission_count" db:"submission_count"`
	TotalPairs      int        `json:"total_pairs" db:"total_pairs"`
	ComparedPairs   int        `json:"compared_pairs" db:"compared_pairs"`
	FailedPairs     int        `json:"failed_pairs" db:"failed_pairs"`
	SimilarityCount int        `json:"similarity_count" db:"similarity_count"`
	MaxScore        float64    `json:"max_score" db:"max_score"`
	ErrorMessage    *string    `json:"error_message,omitempty" db:"error_message"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

type ReportStatus string

const (
	ReportStatusPending    ReportStatus = "pending"
	ReportStatusProcessing ReportStatus = "processing"
	ReportStatusCompleted  ReportStatus = "completed"
	ReportStatusFailed     ReportStatus = "failed"
)

func (rs ReportStatus) String() string {
	return string(rs)
}

type ScanMode string

const (
	// ScanModeFull compares every pair and keeps every result.
	ScanModeFull ScanMode = "full"
	// ScanModeFast compares only within hash-prefix groups and drops low scores.
	ScanModeFast ScanMode = "fast"
	// ScanModeHigh runs a full scan and keeps pairs at or above the threshold.
	ScanModeHigh ScanMode = "high"
)

func (m ScanMode) String() string {
	return string(m)
}

func IsValidScanMode(mode string) bool {
	switch ScanMode(mode) {
	case ScanModeFull, ScanModeFast, ScanModeHigh:
		return true
	default:
		return false
	}
}
