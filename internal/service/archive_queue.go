package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MechDevelopment/mrbeam-backend/internal/config"
)

var (
	ErrArchiveQueueFull   = errors.New("archive queue is full")
	ErrArchiveQueueClosed = errors.New("archive queue is closed")
)

type ArchiveTask struct {
	PredictionID uuid.UUID
	Key          string
	ContentType  string
	Data         []byte
}

type BlobArchiver interface {
	Archive(ctx context.Context, data []byte, key, contentType string) (Stored, error)
}

// ArchiveQueue runs archive tasks on a fixed set of workers, detached from the
// request that scheduled them. A failed task is logged and dropped: the
// prediction record stays without its blob.
type ArchiveQueue struct {
	archiver BlobArchiver
	tasks    chan ArchiveTask
	timeout  time.Duration
	log      *zap.Logger

	baseCtx context.Context
	cancel  context.CancelFunc

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewArchiveQueue(archiver BlobArchiver, cfg config.ArchiveConfig, log *zap.Logger) *ArchiveQueue {
	ctx, cancel := context.WithCancel(context.Background())

	q := &ArchiveQueue{
		archiver: archiver,
		tasks:    make(chan ArchiveTask, cfg.QueueSize),
		timeout:  cfg.Timeout,
		log:      log.Named("archive_queue"),
		baseCtx:  ctx,
		cancel:   cancel,
	}

	for i := 0; i < cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}

	q.log.Info("Archive queue started",
		zap.Int("workers", cfg.Workers),
		zap.Int("queue_size", cfg.QueueSize))

	return q
}

// Submit enqueues the task without blocking.
func (q *ArchiveQueue) Submit(task ArchiveTask) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrArchiveQueueClosed
	}

	select {
	case q.tasks <- task:
		return nil
	default:
		return ErrArchiveQueueFull
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish. When ctx
// ends first, running uploads are cancelled and ctx.Err() is returned.
func (q *ArchiveQueue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		q.log.Info("Archive queue drained")
		return nil
	case <-ctx.Done():
		q.cancel()
		q.log.Warn("Archive queue shutdown timed out",
			zap.Int("pending", len(q.tasks)))
		return ctx.Err()
	}
}

func (q *ArchiveQueue) worker(id int) {
	defer q.wg.Done()

	for task := range q.tasks {
		q.run(id, task)
	}
}

func (q *ArchiveQueue) run(worker int, task ArchiveTask) {
	ctx, cancel := context.WithTimeout(q.baseCtx, q.timeout)
	defer cancel()

	stored, err := q.archiver.Archive(ctx, task.Data, task.Key, task.ContentType)
	if err != nil {
		q.log.Error("Archive failed",
			zap.Int("worker", worker),
			zap.String("prediction_id", task.PredictionID.String()),
			zap.String("key", task.Key),
			zap.Error(err))
		return
	}

	if !stored.Written {
		q.log.Info("Image already archived",
			zap.String("prediction_id", task.PredictionID.String()),
			zap.String("key", task.Key))
		return
	}

	q.log.Info("Image archived",
		zap.String("prediction_id", task.PredictionID.String()),
		zap.String("key", task.Key),
		zap.Int("size", len(task.Data)))
}
