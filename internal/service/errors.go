package service

import "errors"

// Sentinel errors mapped to HTTP status codes in the delivery layer.
var (
	// Validation.
	ErrInvalidAssignmentID = errors.New("invalid assignment_id")
	ErrInvalidScanMode     = errors.New("invalid scan mode")
	ErrInvalidThreshold    = errors.New("threshold must be between 0 and 100")
	ErrEmptyAnnotation     = errors.New("analysis text is empty")

	// Lookups.
	ErrReportNotFound     = errors.New("report not found")
	ErrSimilarityNotFound = errors.New("similarity not found")

	// State.
	ErrScanInProgress = errors.New("scan is already running")

	// External dependencies.
	ErrContentUnavailable = errors.New("submission content unavailable")
)
