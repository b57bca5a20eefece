package integration

import (
	"context"
	"errors"
	"io"

	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/models"
)

// MaxContentBytes bounds a code body fetched from external storage.
const MaxContentBytes = 4 << 20

var (
	ErrNoFileReference = errors.New("submission has no file reference")
	ErrContentNotFound = errors.New("content not found")
	ErrContentTooLarge = errors.New("content exceeds size limit")
)

// ContentLoader fetches the code body of a submission whose CodeContent is
// not stored inline.
type ContentLoader interface {
	LoadContent(ctx context.Context, submission models.Submission) (string, error)
}

type inlineLoader struct{}

// NewInlineLoader returns a loader for deployments that keep every code body
// in the submissions table, so the stored body is the whole body, even when
// it is empty.
func NewInlineLoader() ContentLoader {
	return inlineLoader{}
}

func (inlineLoader) LoadContent(_ context.Context, submission models.Submission) (string, error) {
	return submission.CodeContent, nil
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxContentBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxContentBytes {
		return nil, ErrContentTooLarge
	}
	return data, nil
}
