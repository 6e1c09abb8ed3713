package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"research-job-service/internal/logging"
	"research-job-service/internal/service"
)

type PoolOptions struct {
	Workers int
	// ClaimDelay is how long one blocking claim waits before re-checking ctx.
	ClaimDelay time.Duration
	// VisibilityTimeout is how long a claimed job may go unacked before the reaper requeues it.
	VisibilityTimeout time.Duration
	ReapInterval      time.Duration
	// ShutdownGrace is how long running jobs may keep going after ctx is done before
	// they are cancelled. Cancelled jobs still record a terminal status.
	ShutdownGrace time.Duration
}

type Pool struct {
	queue     service.Queue
	processor JobProcessor
	opts      PoolOptions
	log       *zerolog.Logger
}

func NewPool(queue service.Queue, processor JobProcessor, opts PoolOptions, log *zerolog.Logger) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.ClaimDelay <= 0 {
		opts.ClaimDelay = 5 * time.Second
	}
	if opts.VisibilityTimeout <= 0 {
		opts.VisibilityTimeout = 15 * time.Minute
	}
	if opts.ReapInterval <= 0 {
		opts.ReapInterval = 30 * time.Second
	}
	if opts.ShutdownGrace <= 0 {
		opts.ShutdownGrace = 30 * time.Second
	}
	return &Pool{queue: queue, processor: processor, opts: opts, log: logging.OrNop(log)}
}

// Run claims jobs until ctx is done, then waits for in-flight jobs to finish.
// Jobs still running ShutdownGrace after ctx is done are cancelled.
func (p *Pool) Run(ctx context.Context) {
	p.log.Info().Int("workers", p.opts.Workers).Msg("worker pool started")

	// jobs outlive ctx until the grace period is over
	jobCtx, cancelJobs := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelJobs()

	jobCh := make(chan string)
	var wg sync.WaitGroup

	for i := 0; i < p.opts.Workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for jobID := range jobCh {
				p.handle(jobCtx, n, jobID)
			}
		}(i + 1)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		p.reap(ctx)
	}()

	defer func() {
		close(jobCh)
		p.drain(&wg, cancelJobs)
		p.log.Info().Msg("worker pool stopped")
	}()

	// listener: atomically claim from queue -> processing
	for {
		if ctx.Err() != nil {
			return
		}
		jobID, err := p.queue.ClaimBlocking(ctx, p.opts.ClaimDelay)
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				p.log.Error().Err(err).Msg("claim job")
				sleepCtx(ctx, time.Second)
			}
			continue
		}
		select {
		case jobCh <- jobID:
		case <-ctx.Done():
			// left in processing; the reaper of the next run requeues it
			return
		}
	}
}

// drain waits for the workers, cancelling their jobs once the grace period runs out.
func (p *Pool) drain(wg *sync.WaitGroup, cancelJobs context.CancelFunc) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	t := time.NewTimer(p.opts.ShutdownGrace)
	defer t.Stop()
	select {
	case <-done:
		return
	case <-t.C:
	}

	p.log.Warn().Dur("grace", p.opts.ShutdownGrace).Msg("shutdown grace period over, cancelling running jobs")
	cancelJobs()
	<-done
}

// handle runs one claimed job. ctx is cancelled only when the shutdown grace period runs out.
func (p *Pool) handle(ctx context.Context, n int, jobID string) {
	err := p.processor.Process(ctx, jobID)
	if errors.Is(err, ErrRetryLater) {
		// no ack: the reaper puts it back after the visibility timeout
		p.log.Warn().Int("worker", n).Str("job_id", jobID).Err(err).Msg("job deferred")
		return
	}
	if err != nil {
		p.log.Debug().Int("worker", n).Str("job_id", jobID).Err(err).Msg("job processed with error")
	}

	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if ackErr := p.queue.Ack(actx, jobID); ackErr != nil {
		p.log.Error().Int("worker", n).Str("job_id", jobID).Err(ackErr).Msg("ack job")
	}
}

func (p *Pool) reap(ctx context.Context) {
	ticker := time.NewTicker(p.opts.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.queue.RequeueStale(ctx, p.opts.VisibilityTimeout, 100)
			if err != nil {
				if ctx.Err() == nil {
					p.log.Error().Err(err).Msg("requeue stale jobs")
				}
				continue
			}
			if n > 0 {
				p.log.Warn().Int64("count", n).Msg("requeued stale jobs from processing")
			}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
