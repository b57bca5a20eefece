package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var ErrPoolStopped = errors.New("worker pool is stopped")

type Task func()

type WorkerPool struct {
	tasks         chan Task
	wg            sync.WaitGroup
	activeWorkers atomic.Int64
	maxWorkers    int
	logger        zerolog.Logger
	// mu guards the queue lifecycle; Submit holds it shared while sending.
	mu       sync.RWMutex
	started bool
	stopped bool
}

// NewWorkerPool creates a pool with maxWorkers goroutines. A non-positive
// maxWorkers sizes the pool from the CPU count.
func NewWorkerPool(maxWorkers int, logger zerolog.Logger) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = DefaultWorkerCount()
	}
	return &WorkerPool{
		tasks:      make(chan Task, maxWorkers*2),
		maxWorkers: maxWorkers,
		logger:     logger,
	}
}

// DefaultWorkerCount leaves a quarter of the CPUs to the rest of the process.
func DefaultWorkerCount() int {
	totalCPU := runtime.NumCPU()
	reserve := totalCPU / 4
	if reserve < 1 {
		reserve = 1
	}
	size := totalCPU - reserve
	if size < 1 {
		size = 1
	}
	return size
}

func (wp *WorkerPool) Start(ctx context.Context) error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.stopped {
		return ErrPoolStopped
	}
	if wp.started {
		return nil
	}
	wp.started = true

	wp.logger.Debug().Int("max_workers", wp.maxWorkers).Msg("Starting worker pool")

	for i := 0; i < wp.maxWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}

	return nil
}

// Stop closes the task queue and waits for queued tasks to drain.
func (wp *WorkerPool) Stop() error {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return nil
	}
	wp.stopped = true
	close(wp.tasks)
	wp.mu.Unlock()

	wp.wg.Wait()

	wp.logger.Debug().Msg("Worker pool stopped")
	return nil
}

// Submit blocks until the task is queued or ctx is done.
func (wp *WorkerPool) Submit(ctx context.Context, task Task) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.stopped {
		return ErrPoolStopped
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case wp.tasks <- task:
		return nil
	}
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for task := range wp.tasks {
		wp.activeWorkers.Add(1)

		func() {
			defer func() {
				if r := recover(); r != nil {
					wp.logger.Error().
						Int("worker_id", id).
						Interface("panic", r).
						Msg("Worker recovered from panic")
				}

				wp.activeWorkers.Add(-1)
			}()

			task()
		}()
	}
}

func (wp *WorkerPool) GetActiveWorkers() int {
	return int(wp.activeWorkers.Load())
}

func (wp *WorkerPool) GetQueueLength() int {
	return len(wp.tasks)
}

func (wp *WorkerPool) Size() int {
	return wp.maxWorkers
}
