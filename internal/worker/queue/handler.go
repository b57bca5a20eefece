package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/models"
	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/service"
)

// MessageHandler turns broker deliveries into scan runs.
type MessageHandler interface {
	HandleScanRequested(ctx context.Context, event models.ScanRequestedEvent) error
	// ProcessMessage returns a permanent error when redelivery cannot help.
	ProcessMessage(ctx context.Context, msg RabbitMQMessage) error
}

type messageHandler struct {
	scanService service.ScanService
	logger      zerolog.Logger
}

func NewMessageHandler(scanService service.ScanService, logger zerolog.Logger) MessageHandler {
	return &messageHandler{
		scanService: scanService,
		logger:      logger,
	}
}

func (h *messageHandler) HandleScanRequested(ctx context.Context, event models.ScanRequestedEvent) error {
	h.logger.Info().
		Str("report_id", event.ReportID).
		Str("assignment_id", event.AssignmentID).
		Str("mode", event.Mode).
		Msg("Handling scan request")

	_, err := h.scanService.RunScan(ctx, event.ReportID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, service.ErrReportNotFound),
		errors.Is(err, service.ErrInvalidScanMode),
		errors.Is(err, service.ErrScanInProgress):
		return permanent(err)
	default:
		return err
	}
}

func (h *messageHandler) ProcessMessage(ctx context.Context, msg RabbitMQMessage) error {
	var event models.ScanRequestedEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		return permanent(fmt.Errorf("failed to unmarshal scan request: %w", err))
	}

	if strings.TrimSpace(event.ReportID) == "" {
		return permanent(errors.New("empty report_id"))
	}

	err := h.HandleScanRequested(ctx, event)
	if err != nil && msg.Redelivered && !isPermanentError(err) {
		// the report stays failed and can be retried through the API
		return permanent(fmt.Errorf("scan failed on redelivery: %w", err))
	}
	return err
}

type permanentError struct {
	err error
}

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	return permanentError{err: err}
}

func isPermanentError(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}
