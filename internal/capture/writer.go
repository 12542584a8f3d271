package capture

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultQueueCapacity = 256
	maxWriteAttempts     = 3
)

type writeCmd struct {
	name string
	fn   func(context.Context) error
}

// WriterQueue serializes database writes off the transport path.
//
// Once the context given to Start is done, writes that have not run yet are
// dropped and later Enqueue calls are ignored, so Flush never waits on them.
type WriterQueue struct {
	logger  *slog.Logger
	queue   chan writeCmd
	pending sync.WaitGroup
	backoff time.Duration

	mu      sync.Mutex
	stopped bool
	done    chan struct{}
}

func NewWriterQueue(logger *slog.Logger, capacity int) *WriterQueue {
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &WriterQueue{
		logger:  logger,
		queue:   make(chan writeCmd, capacity),
		backoff: 300 * time.Millisecond,
		done:    make(chan struct{}),
	}
}

func (w *WriterQueue) Enqueue(name string, fn func(context.Context) error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		w.logger.Warn("capture queue stopped, dropping write", "cmd", name)
		return
	}

	w.pending.Add(1)
	cmd := writeCmd{name: name, fn: fn}
	select {
	case w.queue <- cmd:
	default:
		w.logger.Warn("capture queue full, deferring write", "cmd", name)
		go func() {
			select {
			case w.queue <- cmd:
			case <-w.done:
				w.pending.Done()
			}
		}()
	}
}

func (w *WriterQueue) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				w.stop()
				return
			case cmd := <-w.queue:
				w.runWithRetry(ctx, cmd)
				w.pending.Done()
			}
		}
	}()
}

// stop rejects new writes and discards the queued ones until nothing is
// pending. Deferred sends either land in the queue and get discarded here
// or observe done and release themselves.
func (w *WriterQueue) stop() {
	w.mu.Lock()
	w.stopped = true
	close(w.done)
	w.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		w.pending.Wait()
		close(drained)
	}()

	dropped := 0
	for {
		select {
		case <-w.queue:
			dropped++
			w.pending.Done()
		case <-drained:
			if dropped > 0 {
				w.logger.Warn("capture queue stopped with unwritten commands", "dropped", dropped)
			}
			return
		}
	}
}

// Flush blocks until every enqueued write has run or ctx is done.
func (w *WriterQueue) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		w.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *WriterQueue) runWithRetry(ctx context.Context, cmd writeCmd) {
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		if err := cmd.fn(ctx); err != nil {
			w.logger.Error("capture write failed", "cmd", cmd.name, "attempt", attempt, "error", err)
			if attempt == maxWriteAttempts {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(attempt) * w.backoff):
			}

			continue
		}
		return
	}
}
