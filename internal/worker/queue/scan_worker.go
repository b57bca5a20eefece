package queue

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/worker"
)

// ScanWorker consumes scan requests and runs them on a bounded pool.
type ScanWorker interface {
	Start(ctx context.Context) error
	Stop() error
	GetStats() WorkerStats
}

type WorkerStats struct {
	ActiveWorkers  int `json:"active_workers"`
	TotalProcessed int `json:"total_processed"`
	FailedJobs     int `json:"failed_jobs"`
	QueueLength    int `json:"queue_length"`
}

type scanWorker struct {
	workerPool    *worker.WorkerPool
	queueConsumer RabbitMQConsumer
	handler       MessageHandler
	logger        zerolog.Logger
	processed     atomic.Int64
	failed        atomic.Int64
	startTime     time.Time
	done          chan struct{}
}

func NewScanWorker(
	workerPool *worker.WorkerPool,
	queueConsumer RabbitMQConsumer,
	handler MessageHandler,
	logger zerolog.Logger,
) ScanWorker {
	return &scanWorker{
		workerPool:    workerPool,
		queueConsumer: queueConsumer,
		handler:       handler,
		logger:        logger,
		startTime:     time.Now(),
		done:          make(chan struct{}),
	}
}

func (w *scanWorker) Start(ctx context.Context) error {
	w.logger.Info().Int("workers", w.workerPool.Size()).Msg("Starting scan worker...")

	if err := w.workerPool.Start(ctx); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}

	msgs, err := w.queueConsumer.Consume(ctx)
	if err != nil {
		return fmt.Errorf("failed to start consuming messages: %w", err)
	}

	go w.processMessages(ctx, msgs)

	w.logger.Info().Msg("Scan worker started successfully")
	return nil
}

// Stop waits for the dispatch loop to exit, then drains running scans.
func (w *scanWorker) Stop() error {
	w.logger.Info().Msg("Stopping scan worker...")

	if err := w.queueConsumer.Close(); err != nil {
		w.logger.Error().Err(err).Msg("Failed to close queue consumer")
	}

	select {
	case <-w.done:
	case <-time.After(5 * time.Second):
		w.logger.Warn().Msg("Message loop did not exit in time")
	}

	if err := w.workerPool.Stop(); err != nil {
		w.logger.Error().Err(err).Msg("Failed to stop worker pool")
	}

	w.logger.Info().
		Int64("total_processed", w.processed.Load()).
		Int64("failed_jobs", w.failed.Load()).
		Dur("uptime", time.Since(w.startTime)).
		Msg("Scan worker stopped")

	return nil
}

func (w *scanWorker) processMessages(ctx context.Context, msgs <-chan RabbitMQMessage) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Stopping message processing")
			return
		case msg, ok := <-msgs:
			if !ok {
				w.logger.Warn().Msg("Message channel closed")
				return
			}

			err := w.workerPool.Submit(ctx, func() {
				w.handle(ctx, msg)
			})
			if err != nil {
				if nackErr := msg.Nack(false, true); nackErr != nil {
					w.logger.Error().Err(nackErr).Msg("Failed to nack message")
				}
				return
			}
		}
	}
}

func (w *scanWorker) handle(ctx context.Context, msg RabbitMQMessage) {
	if err := w.handler.ProcessMessage(ctx, msg); err != nil {
		w.failed.Add(1)

		if isPermanentError(err) {
			w.logger.Error().Err(err).Msg("Dropping scan request")
			if ackErr := msg.Ack(false); ackErr != nil {
				w.logger.Error().Err(ackErr).Msg("Failed to ack message")
			}
			return
		}

		w.logger.Error().Err(err).Msg("Failed to process scan request, requeueing")
		if nackErr := msg.Nack(false, true); nackErr != nil {
			w.logger.Error().Err(nackErr).Msg("Failed to nack message")
		}
		return
	}

	if err := msg.Ack(false); err != nil {
		w.logger.Error().Err(err).Msg("Failed to ack message")
	}
	w.processed.Add(1)
}

func (w *scanWorker) GetStats() WorkerStats {
	return WorkerStats{
		ActiveWorkers:  w.workerPool.GetActiveWorkers(),
		TotalProcessed: int(w.processed.Load()),
		FailedJobs:     int(w.failed.Load()),
		QueueLength:    w.workerPool.GetQueueLength(),
	}
}
