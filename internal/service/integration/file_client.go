package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/models"
)

// FileClient talks to the file service, which stores uploaded submissions.
type FileClient interface {
	ContentLoader
	GetFileContent(ctx context.Context, fileID string) ([]byte, error)
	GetFileInfo(ctx context.Context, fileID string) (*FileInfoResponse, error)
}

type fileClient struct {
	baseURL    string
	retryCount int
	retryDelay time.Duration
	client     *http.Client
	logger     zerolog.Logger
}

type FileInfoResponse struct {
	FileID   string `json:"file_id"`
	Hash     string `json:"hash"`
	Size     int64  `json:"size"`
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
}

func NewFileClient(baseURL, filesEndpoint string, timeout time.Duration, retryCount int, retryDelay time.Duration, logger zerolog.Logger) FileClient {
	return &fileClient{
		baseURL:    strings.TrimRight(baseURL, "/") + "/" + strings.Trim(filesEndpoint, "/"),
		retryCount: retryCount,
		retryDelay: retryDelay,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With().Str("component", "file_client").Logger(),
	}
}

func (c *fileClient) LoadContent(ctx context.Context, submission models.Submission) (string, error) {
	if submission.FileID == nil || *submission.FileID == "" {
		return "", fmt.Errorf("submission %s: %w", submission.ID, ErrNoFileReference)
	}

	content, err := c.GetFileContent(ctx, *submission.FileID)
	if err != nil {
		return "", fmt.Errorf("submission %s: %w", submission.ID, err)
	}
	return string(content), nil
}

func (c *fileClient) GetFileContent(ctx context.Context, fileID string) ([]byte, error) {
	var content []byte

	err := c.get(ctx, fmt.Sprintf("%s/%s", c.baseURL, fileID), func(body io.Reader) error {
		data, err := readLimited(body)
		if err != nil {
			return err
		}
		content = data
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("file_id", fileID).
		Int("content_size", len(content)).
		Msg("Got file content")

	return content, nil
}

func (c *fileClient) GetFileInfo(ctx context.Context, fileID string) (*FileInfoResponse, error) {
	var info FileInfoResponse

	err := c.get(ctx, fmt.Sprintf("%s/%s/info", c.baseURL, fileID), func(body io.Reader) error {
		return json.NewDecoder(body).Decode(&info)
	})
	if err != nil {
		return nil, err
	}

	return &info, nil
}

// get performs a GET with linear backoff between attempts. A 404 is final
// and reported as ErrContentNotFound.
func (c *fileClient) get(ctx context.Context, url string, decode func(io.Reader) error) error {
	var lastErr error

	for i := 0; i <= c.retryCount; i++ {
		if i > 0 {
			c.logger.Warn().Int("attempt", i).Str("url", url).Msg("Retrying file service request")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay * time.Duration(i)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("file service request failed: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			err := decode(resp.Body)
			resp.Body.Close()
			if errors.Is(err, ErrContentTooLarge) {
				return err
			}
			if err != nil {
				lastErr = fmt.Errorf("failed to read response: %w", err)
				continue
			}
			return nil

		case resp.StatusCode == http.StatusNotFound:
			resp.Body.Close()
			return ErrContentNotFound

		default:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			resp.Body.Close()
			lastErr = fmt.Errorf("file service returned status %d: %s", resp.StatusCode, string(body))
		}
	}

	return fmt.Errorf("file service unavailable after %d attempts: %w", c.retryCount+1, lastErr)
}
