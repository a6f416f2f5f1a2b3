package pipeline

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/jimaku/internal/models"
)

// ErrQueueFull is returned by Submit when the backlog is at capacity.
var ErrQueueFull = errors.New("subtitle queue full")

// ErrQueueStopped is returned by Submit after Stop.
var ErrQueueStopped = errors.New("subtitle queue stopped")

// Processor runs one subtitle job.
type Processor interface {
	Process(ctx context.Context, job models.SubtitleJob) (*Result, error)
}

// Queue runs subtitle jobs in the background on a fixed number of workers.
// Failed jobs are logged and dropped; callers resubmit to retry.
type Queue struct {
	proc    Processor
	logger  *zap.Logger
	jobs    chan models.SubtitleJob
	workers int

	mu      sync.Mutex
	running bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	onDone func(models.SubtitleJob, *Result, error)
}

// NewQueue creates a queue with the given backlog and worker count.
func NewQueue(proc Processor, backlog, workers int, logger *zap.Logger) *Queue {
	if backlog < 1 {
		backlog = 1
	}
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		proc:    proc,
		logger:  logger,
		jobs:    make(chan models.SubtitleJob, backlog),
		workers: workers,
	}
}

// OnDone registers a callback invoked after every job. Must be set before Start.
func (q *Queue) OnDone(fn func(models.SubtitleJob, *Result, error)) {
	q.onDone = fn
}

// Start launches the workers. They stop when ctx is cancelled or Stop is called.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running || q.stopped {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	q.cancel = cancel
	q.running = true
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work(runCtx)
	}
}

func (q *Queue) work(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-q.jobs:
			if !ok {
				return
			}
			res, err := q.proc.Process(ctx, job)
			if err != nil {
				q.logger.Warn("Subtitle job failed",
					zap.String("video_id", job.VideoID),
					zap.String("lang", job.OutputLanguage()),
					zap.Error(err))
			}
			if q.onDone != nil {
				q.onDone(job, res, err)
			}
		}
	}
}

// Submit enqueues job without blocking.
func (q *Queue) Submit(job models.SubtitleJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return ErrQueueStopped
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop drains queued jobs and waits for the workers to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	close(q.jobs)
	running := q.running
	q.mu.Unlock()

	if running {
		q.wg.Wait()
		q.cancel()
	}
}
