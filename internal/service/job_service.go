package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"research-job-service/internal/entity"
	"research-job-service/internal/logging"
	"research-job-service/internal/metrics"
)

// JobRepository is the Job Store port (postgresql.JobRepository, memory.JobRepository).
type JobRepository interface {
	Create(ctx context.Context, job *entity.Job) error
	Get(ctx context.Context, id uuid.UUID, owner string) (*entity.Job, error)
	List(ctx context.Context, owner string) ([]*entity.Job, error)
	Update(ctx context.Context, id uuid.UUID, from entity.JobStatus, u entity.JobUpdate) (*entity.Job, error)
}

// Dispatcher schedules detached execution of a persisted job. It must not wait for the job to run.
type Dispatcher interface {
	Dispatch(ctx context.Context, jobID uuid.UUID) error
}

// ErrDispatch means the job was recorded but could not be scheduled; the job is already marked failed.
var ErrDispatch = errors.New("could not schedule job execution")

const DefaultMaxTopics = 20

// ValidationError is returned for submissions that are rejected before anything is stored.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

type SubmitRequest struct {
	Owner  string   `validate:"required,max=256"`
	Topics []string `validate:"required,min=1,dive,required,max=500"`
}

type Options struct {
	MaxTopics int
}

type JobService struct {
	repo      JobRepository
	dispatch  Dispatcher
	validate  *validator.Validate
	maxTopics int
	log       *zerolog.Logger
	now       func() time.Time
}

func NewJobService(repo JobRepository, dispatch Dispatcher, opts Options, log *zerolog.Logger) *JobService {
	if opts.MaxTopics <= 0 {
		opts.MaxTopics = DefaultMaxTopics
	}
	return &JobService{
		repo:      repo,
		dispatch:  dispatch,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		maxTopics: opts.MaxTopics,
		log:       logging.OrNop(log),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Submit stores a pending job and schedules it, returning without waiting for research to run.
func (s *JobService) Submit(ctx context.Context, req SubmitRequest) (*entity.Job, error) {
	req.Owner = strings.TrimSpace(req.Owner)
	topics := make([]string, len(req.Topics))
	for i, t := range req.Topics {
		topics[i] = strings.TrimSpace(t)
	}
	req.Topics = topics

	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	now := s.now()
	job := &entity.Job{
		ID:        uuid.New(),
		Owner:     req.Owner,
		Topics:    req.Topics,
		Status:    entity.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	metrics.IncSubmitted()

	log := s.log.With().Str("job_id", job.ID.String()).Logger()
	if err := s.dispatch.Dispatch(ctx, job.ID); err != nil {
		log.Error().Err(err).Msg("dispatch failed, marking job failed")
		s.abandon(job.ID, &log)
		return nil, fmt.Errorf("%w: %v", ErrDispatch, err)
	}

	log.Info().Int("topics", len(job.Topics)).Msg("job submitted")
	return job, nil
}

// abandon walks a job that will never run to failed so it does not sit in pending forever.
func (s *JobService) abandon(id uuid.UUID, log *zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := s.repo.Update(ctx, id, entity.StatusPending, entity.JobUpdate{Status: entity.StatusProcessing}); err != nil {
		log.Error().Err(err).Msg("could not claim undispatched job")
		return
	}
	msg := ErrDispatch.Error()
	if _, err := s.repo.Update(ctx, id, entity.StatusProcessing, entity.JobUpdate{Status: entity.StatusFailed, Error: &msg}); err != nil {
		log.Error().Err(err).Msg("could not fail undispatched job")
		return
	}
	metrics.ObserveJobFinished(string(entity.StatusFailed), 0)
}

func (s *JobService) validateRequest(req SubmitRequest) error {
	if len(req.Topics) > s.maxTopics {
		return &ValidationError{Field: "topics", Message: fmt.Sprintf("at most %d topics are allowed", s.maxTopics)}
	}

	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}

	fe := verrs[0]
	switch {
	case fe.StructField() == "Owner" && fe.Tag() == "max":
		return &ValidationError{Field: "owner", Message: fmt.Sprintf("owner is too long (max %s characters)", fe.Param())}
	case fe.StructField() == "Owner":
		return &ValidationError{Field: "owner", Message: "owner is required"}
	case fe.StructField() == "Topics":
		return &ValidationError{Field: "topics", Message: "at least one topic is required"}
	case fe.Tag() == "max":
		return &ValidationError{Field: "topics", Message: fmt.Sprintf("topic %s is too long", bracketIndex(fe.Field()))}
	default:
		return &ValidationError{Field: "topics", Message: "topics must not be blank"}
	}
}

// bracketIndex turns "Topics[2]" into "#3" for user-facing messages.
func bracketIndex(field string) string {
	i := strings.IndexByte(field, '[')
	j := strings.IndexByte(field, ']')
	if i < 0 || j <= i+1 {
		return field
	}
	var n int
	if _, err := fmt.Sscanf(field[i+1:j], "%d", &n); err != nil {
		return field
	}
	return fmt.Sprintf("#%d", n+1)
}

// GetJob returns entity.ErrNotFound for unknown ids and for jobs owned by someone else.
func (s *JobService) GetJob(ctx context.Context, id uuid.UUID, owner string) (*entity.Job, error) {
	return s.repo.Get(ctx, id, owner)
}

func (s *JobService) ListJobs(ctx context.Context, owner string) ([]*entity.Job, error) {
	return s.repo.List(ctx, owner)
}
