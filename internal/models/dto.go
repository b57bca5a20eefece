package models

import "time"

// Data Transfer Objects

type CompareRequest struct {
	CodeA     string `json:"code_a"`
	CodeB     string `json:"code_b"`
	FilenameA string `json:"filename_a,omitempty"`
	FilenameB string `json:"filename_b,omitempty"`
}

type CompareResponse struct {
	Result    SimilarityResult `json:"result"`
	Highlight HighlightData    `json:"highlight"`
}

type CreateScanRequest struct {
	AssignmentID string   `json:"assignment_id" validate:"required,uuid"`
	Mode         string   `json:"mode" validate:"oneof=full fast high"`
	Threshold    *float64 `json:"threshold,omitempty" validate:"omitempty,min=0,max=100"`
}

type CreateScanResponse struct {
	ReportID  string    `json:"report_id"`
	Status    string    `json:"status"`
	StatusURL string    `json:"status_url"`
	CreatedAt time.Time `json:"created_at"`
}

type AttachAnalysisRequest struct {
	Analysis string `json:"analysis" validate:"required"`
}

type ScanProgressResponse struct {
	ReportID string             `json:"report_id"`
	Status   string             `json:"status"`
	Progress PlagiarismProgress `json:"progress"`
	Percent  float64            `json:"percent"`
}

type SimilaritiesResponse struct {
	Similarities []Similarity `json:"similarities"`
	Total        int          `json:"total"`
	Limit        int          `json:"limit"`
	Offset       int          `json:"offset"`
}
