package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"research-job-service/internal/logging"
	"research-job-service/internal/service"
)

// JobProcessor runs one job by id (*Processor).
type JobProcessor interface {
	Process(ctx context.Context, jobID string) error
}

var ErrDispatcherClosed = errors.New("dispatcher is shutting down")

// GoroutineDispatcher runs every job in its own goroutine inside this process.
// Jobs get a context of their own, so they outlive the request that submitted them.
type GoroutineDispatcher struct {
	proc   JobProcessor
	log    *zerolog.Logger
	base   context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewGoroutineDispatcher(proc JobProcessor, log *zerolog.Logger) *GoroutineDispatcher {
	base, cancel := context.WithCancel(context.Background())
	return &GoroutineDispatcher{proc: proc, log: logging.OrNop(log), base: base, cancel: cancel}
}

func (d *GoroutineDispatcher) Dispatch(_ context.Context, jobID uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDispatcherClosed
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.proc.Process(d.base, jobID.String()); err != nil {
			d.log.Debug().Err(err).Str("job_id", jobID.String()).Msg("job execution returned error")
		}
	}()
	return nil
}

// Shutdown stops accepting jobs and waits for running ones. When ctx expires first the
// running jobs are cancelled, which still lets them write their terminal status.
func (d *GoroutineDispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.log.Warn().Msg("shutdown grace period over, cancelling running jobs")
		d.cancel()
		<-done
		return ctx.Err()
	}
}

// QueueDispatcher hands job ids to the Redis queue consumed by `researchd worker`.
type QueueDispatcher struct {
	queue service.Queue
}

func NewQueueDispatcher(q service.Queue) *QueueDispatcher {
	return &QueueDispatcher{queue: q}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, jobID uuid.UUID) error {
	return d.queue.Enqueue(ctx, jobID.String())
}
