package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"research-job-service/internal/entity"
	"research-job-service/internal/logging"
	"research-job-service/internal/metrics"
	"research-job-service/internal/orchestrator"
)

type JobRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Job, error)
	Update(ctx context.Context, id uuid.UUID, from entity.JobStatus, u entity.JobUpdate) (*entity.Job, error)
}

// Runner researches a job's topics (orchestrator.Orchestrator).
type Runner interface {
	Run(ctx context.Context, topics []string) (*entity.Result, error)
}

var (
	// ErrDuplicateTrigger means the job already left pending; the trigger is dropped.
	ErrDuplicateTrigger = errors.New("job is not pending")
	// ErrRetryLater means the job was not touched and the trigger may be delivered again.
	ErrRetryLater = errors.New("job could not be started, retry later")
)

const (
	internalErrorMessage = "internal error during research job execution"
	abortedMessage       = "internal error: research job aborted unexpectedly"
)

type ProcessorOptions struct {
	LockTTL time.Duration
	// WriteTimeout bounds each terminal status write.
	WriteTimeout time.Duration
	// WriteAttempts is how many times a terminal write is tried before giving up.
	WriteAttempts int
}

// Processor is the detached execution unit of one job. It is the only writer of a job's status
// after submission.
type Processor struct {
	repo   JobRepo
	runner Runner
	locker Locker
	opts   ProcessorOptions
	log    *zerolog.Logger
}

func NewProcessor(repo JobRepo, runner Runner, locker Locker, opts ProcessorOptions, log *zerolog.Logger) *Processor {
	if locker == nil {
		locker = NewLocalLocker()
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Minute
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.WriteAttempts <= 0 {
		opts.WriteAttempts = 3
	}
	return &Processor{repo: repo, runner: runner, locker: locker, opts: opts, log: logging.OrNop(log)}
}

// Process runs one job from pending to a terminal status. Once the job is claimed a terminal
// write is always attempted, including when the runner panics.
func (p *Processor) Process(ctx context.Context, jobID string) (err error) {
	id, err := uuid.Parse(jobID)
	if err != nil {
		p.log.Error().Str("job_id", jobID).Err(err).Msg("invalid job id")
		return fmt.Errorf("%w: %v", ErrDuplicateTrigger, err)
	}
	log := p.log.With().Str("job_id", id.String()).Logger()

	key := lockKey(id)
	token, ok, err := p.locker.TryLock(ctx, key, p.opts.LockTTL)
	if err != nil {
		log.Error().Err(err).Msg("acquire execution lock")
		return fmt.Errorf("%w: lock: %v", ErrRetryLater, err)
	}
	if !ok {
		metrics.IncDuplicateTrigger()
		log.Warn().Msg("job is already executing elsewhere")
		return fmt.Errorf("%w: execution lock held", ErrRetryLater)
	}
	defer func() {
		uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.WriteTimeout)
		defer cancel()
		if uerr := p.locker.Unlock(uctx, key, token); uerr != nil {
			log.Warn().Err(uerr).Msg("release execution lock")
		}
	}()

	job, err := p.claim(ctx, id, &log)
	if err != nil {
		return err
	}

	start := time.Now()
	log.Info().Int("topics", len(job.Topics)).Str("status", string(entity.StatusProcessing)).Msg("job started")

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("job execution panicked")
			p.finishFailed(ctx, id, abortedMessage, start, &log)
			err = fmt.Errorf("job %s panicked: %v", id, r)
		}
	}()

	result, runErr := p.runner.Run(ctx, job.Topics)
	if runErr != nil {
		msg := failureMessage(runErr)
		log.Error().Err(runErr).Msg("job research failed")
		p.finishFailed(ctx, id, msg, start, &log)
		return runErr
	}

	if werr := p.write(ctx, id, entity.JobUpdate{Status: entity.StatusCompleted, Result: result}); werr != nil {
		log.Error().Err(werr).Msg("store result")
		if errors.Is(werr, entity.ErrInvalidTransition) {
			return werr
		}
		p.finishFailed(ctx, id, internalErrorMessage, start, &log)
		return werr
	}

	d := time.Since(start)
	metrics.ObserveJobFinished(string(entity.StatusCompleted), d)
	log.Info().Str("status", string(entity.StatusCompleted)).Int64("duration_ms", d.Milliseconds()).Msg("job finished")
	return nil
}

// claim moves the job from pending to processing. Anything but pending is a duplicate trigger.
func (p *Processor) claim(ctx context.Context, id uuid.UUID, log *zerolog.Logger) (*entity.Job, error) {
	job, err := p.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			metrics.IncDuplicateTrigger()
			log.Error().Msg("triggered job does not exist")
			return nil, fmt.Errorf("%w: %v", ErrDuplicateTrigger, err)
		}
		log.Error().Err(err).Msg("load job")
		return nil, fmt.Errorf("%w: load: %v", ErrRetryLater, err)
	}
	if job.Status != entity.StatusPending {
		metrics.IncDuplicateTrigger()
		log.Error().Str("status", string(job.Status)).Msg("refusing to run job that is not pending")
		return nil, fmt.Errorf("%w: status is %s", ErrDuplicateTrigger, job.Status)
	}

	claimed, err := p.repo.Update(ctx, id, entity.StatusPending, entity.JobUpdate{Status: entity.StatusProcessing})
	if err != nil {
		if errors.Is(err, entity.ErrInvalidTransition) || errors.Is(err, entity.ErrNotFound) {
			metrics.IncDuplicateTrigger()
			log.Error().Err(err).Msg("lost the race to start job")
			return nil, fmt.Errorf("%w: %v", ErrDuplicateTrigger, err)
		}
		log.Error().Err(err).Msg("mark job processing")
		return nil, fmt.Errorf("%w: claim: %v", ErrRetryLater, err)
	}
	return claimed, nil
}

func (p *Processor) finishFailed(ctx context.Context, id uuid.UUID, msg string, start time.Time, log *zerolog.Logger) {
	if err := p.write(ctx, id, entity.JobUpdate{Status: entity.StatusFailed, Error: &msg}); err != nil {
		// nothing left to try; the job stays in processing
		log.Error().Err(err).Msg("could not mark job failed")
		return
	}
	d := time.Since(start)
	metrics.ObserveJobFinished(string(entity.StatusFailed), d)
	log.Info().Str("status", string(entity.StatusFailed)).Str("error", msg).
		Int64("duration_ms", d.Milliseconds()).Msg("job finished")
}

// write performs a terminal transition detached from ctx cancellation, retrying transient store errors.
func (p *Processor) write(ctx context.Context, id uuid.UUID, u entity.JobUpdate) error {
	base := context.WithoutCancel(ctx)
	var err error
	for attempt := 1; attempt <= p.opts.WriteAttempts; attempt++ {
		wctx, cancel := context.WithTimeout(base, p.opts.WriteTimeout)
		_, err = p.repo.Update(wctx, id, entity.StatusProcessing, u)
		cancel()
		if err == nil || errors.Is(err, entity.ErrInvalidTransition) ||
			errors.Is(err, entity.ErrInvalidUpdate) || errors.Is(err, entity.ErrNotFound) {
			return err
		}
		if attempt < p.opts.WriteAttempts {
			time.Sleep(time.Duration(attempt) * 200 * time.Millisecond)
		}
	}
	return err
}

func failureMessage(err error) string {
	var oerr *orchestrator.Error
	if errors.As(err, &oerr) {
		return oerr.Error()
	}
	return internalErrorMessage
}

func lockKey(id uuid.UUID) string {
	return "job:" + id.String()
}
