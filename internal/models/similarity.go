package models

import (
	"encoding/json"
	"time"
)

// UnassignedReportID marks a Similarity that has not been attached to a report yet.
const UnassignedReportID = ""

// SimilarityResult holds the scores for one pair of code bodies, each in [0,100].
type SimilarityResult struct {
	JaccardScore  float64 `json:"jaccard_score"`
	LCSScore      float64 `json:"lcs_score"`
	CombinedScore float64 `json:"combined_score"`
}

// MatchType classifies a highlighted region. Only exact line matches are
// produced.
type MatchType string

const (
	MatchTypeExact MatchType = "exact"
)

// MatchRegion claims that lines [StartLineA,EndLineA] of the first submission
// correspond to lines [StartLineB,EndLineB] of the second. Lines are 0-based.
type MatchRegion struct {
	StartLineA int       `json:"start_line_a"`
	EndLineA   int       `json:"end_line_a"`
	StartLineB int       `json:"start_line_b"`
	EndLineB   int       `json:"end_line_b"`
	MatchType  MatchType `json:"match_type"`
}

type HighlightData struct {
	Regions []MatchRegion `json:"regions"`
}

func (h HighlightData) Encode() (string, error) {
	if h.Regions == nil {
		h.Regions = []MatchRegion{}
	}
	data, err := json.Marshal(h)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func DecodeHighlightData(raw string) (HighlightData, error) {
	var h HighlightData
	if raw == "" {
		return HighlightData{Regions: []MatchRegion{}}, nil
	}
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		return HighlightData{}, err
	}
	if h.Regions == nil {
		h.Regions = []MatchRegion{}
	}
	return h, nil
}

// Similarity is the persisted comparison record for one unordered pair.
// Only AIAnalysis may change after the record is stored.
type Similarity struct {
	ID              string    `json:"id" db:"id"`
	ReportID        string    `json:"report_id" db:"report_id"`
	Submission1ID   string    `json:"submission1_id" db:"submission1_id"`
	Submission2ID   string    `json:"submission2_id" db:"submission2_id"`
	SimilarityScore float64   `json:"similarity_score" db:"similarity_score"`
	JaccardScore    float64   `json:"jaccard_score" db:"jaccard_score"`
	LCSScore        float64   `json:"lcs_score" db:"lcs_score"`
	HighlightData   string    `json:"highlight_data" db:"highlight_data"`
	AIAnalysis      *string   `json:"ai_analysis,omitempty" db:"ai_analysis"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

type PlagiarismProgress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// ProgressFunc receives scan progress. A nil ProgressFunc disables notifications.
type ProgressFunc func(PlagiarismProgress)

// PairFailure records a pair whose comparison did not complete.
type PairFailure struct {
	Submission1ID string `json:"submission1_id"`
	Submission2ID string `json:"submission2_id"`
	Reason        string `json:"reason"`
}
