package ingest

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/kotae-ai/kotae/internal/models"
)

// Workers runs document ingestion in the background so uploads return
// immediately. Each document is processed by exactly one worker.
type Workers struct {
	pipeline *Pipeline
	logger   *zap.Logger

	queue chan *models.Document
	wg    sync.WaitGroup

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
}

// NewWorkers creates a worker pool over the pipeline. queueSize bounds how
// many documents may wait; Enqueue reports false when the queue is full.
func NewWorkers(pipeline *Pipeline, queueSize int, logger *zap.Logger) *Workers {
	if queueSize <= 0 {
		queueSize = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workers{
		pipeline: pipeline,
		logger:   logger,
		queue:    make(chan *models.Document, queueSize),
	}
}

// Start launches n workers. Calling Start twice is a no-op.
func (w *Workers) Start(ctx context.Context, n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return
	}
	w.started = true
	if n <= 0 {
		n = 2
	}
	ctx, w.cancel = context.WithCancel(ctx)
	for i := 0; i < n; i++ {
		w.wg.Add(1)
		go w.work(ctx)
	}
	w.logger.Info("ingestion workers started", zap.Int("workers", n))
}

func (w *Workers) work(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case doc, ok := <-w.queue:
			if !ok {
				return
			}
			// Errors are already recorded in the registry; nothing more to do
			// here than move on to the next document.
			_ = w.pipeline.Process(ctx, doc)
		}
	}
}

// Enqueue schedules a document for background processing. It returns false
// when the queue is full or the pool was stopped.
func (w *Workers) Enqueue(doc *models.Document) bool {
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()
	if !started {
		return false
	}
	select {
	case w.queue <- doc:
		return true
	default:
		w.logger.Warn("ingestion queue full",
			zap.String("document", doc.ID),
			zap.String("filename", doc.Filename))
		return false
	}
}

// Stop cancels in-flight work and waits for the workers to exit.
func (w *Workers) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.started = false
	cancel := w.cancel
	w.mu.Unlock()

	cancel()
	w.wg.Wait()
}
