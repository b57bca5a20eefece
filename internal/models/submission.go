package models

import (
	"time"
)

type Submission struct {
	ID           string    `json:"id" db:"id"`
	StudentID    string    `json:"student_id" db:"student_id"`
	AssignmentID string    `json:"assignment_id" db:"assignment_id"`
	Filename     string    `json:"filename" db:"filename"`
	CodeContent  string    `json:"code_content,omitempty" db:"code_content"`
	CodeHash     string    `json:"code_hash" db:"code_hash"`
	FileID       *string   `json:"file_id,omitempty" db:"file_id"`
	Status       string    `json:"status" db:"status"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type SubmissionStatus string

const (
	SubmissionStatusSubmitted SubmissionStatus = "submitted"
	SubmissionStatusAnalyzed  SubmissionStatus = "analyzed"
)

func (s SubmissionStatus) String() string {
	return string(s)
}

// HasContent reports whether the code body is available inline.
func (s *Submission) HasContent() bool {
	return s.CodeContent != ""
}
