// Package orchestrator fans a job's topics out to the research client and
// aggregates the findings into a single result.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"research-job-service/internal/entity"
	"research-job-service/internal/logging"
	"research-job-service/internal/metrics"
	"research-job-service/internal/research"
)

var ErrNoTopics = errors.New("no topics to research")

// Aggregator merges aligned outcomes into an artifact.
type Aggregator interface {
	Aggregate(ctx context.Context, topics []string, outcomes []entity.TopicOutcome) (entity.Artifact, error)
}

// Error is returned when every topic failed, so the job as a whole fails.
type Error struct {
	Outcomes []entity.TopicOutcome
}

func (e *Error) Error() string {
	reasons := make([]string, 0, len(e.Outcomes))
	for _, o := range e.Outcomes {
		kind, msg := entity.FailureUnreachable, ""
		if o.Failure != nil {
			kind, msg = o.Failure.Kind, o.Failure.Message
		}
		r := fmt.Sprintf("%s: %s", o.Topic, kind)
		if msg != "" {
			r += " (" + msg + ")"
		}
		reasons = append(reasons, r)
	}
	return fmt.Sprintf("research failed for all %d topics: %s", len(e.Outcomes), strings.Join(reasons, "; "))
}

type Options struct {
	// MaxInFlight bounds concurrent research calls; 1 runs topics sequentially.
	MaxInFlight int
	// Deadline bounds the whole fan-out; zero means none.
	Deadline time.Duration
}

type Orchestrator struct {
	client      research.Client
	agg         Aggregator
	maxInFlight int
	deadline    time.Duration
	log         *zerolog.Logger
}

func New(client research.Client, agg Aggregator, opts Options, log *zerolog.Logger) *Orchestrator {
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = 1
	}
	if opts.Deadline < 0 {
		opts.Deadline = 0
	}
	return &Orchestrator{
		client:      client,
		agg:         agg,
		maxInFlight: opts.MaxInFlight,
		deadline:    opts.Deadline,
		log:         logging.OrNop(log),
	}
}

// Run researches every topic, tolerating per-topic failures, and returns the
// artifact together with the raw outcomes aligned with topics.
func (o *Orchestrator) Run(ctx context.Context, topics []string) (*entity.Result, error) {
	if len(topics) == 0 {
		return nil, ErrNoTopics
	}

	outcomes := o.fanOut(ctx, topics)

	failed := 0
	for _, oc := range outcomes {
		if !oc.OK() {
			failed++
		}
	}
	if failed == len(outcomes) {
		return nil, &Error{Outcomes: outcomes}
	}

	artifact, err := o.agg.Aggregate(ctx, topics, outcomes)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	return &entity.Result{Artifact: artifact, RawFindings: outcomes}, nil
}

func (o *Orchestrator) fanOut(ctx context.Context, topics []string) []entity.TopicOutcome {
	jobCtx := ctx
	if o.deadline > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, o.deadline)
		defer cancel()
	}

	// each goroutine owns one slot; Wait is the only synchronization point
	outcomes := make([]entity.TopicOutcome, len(topics))
	var g errgroup.Group
	g.SetLimit(o.maxInFlight)
	for i, topic := range topics {
		g.Go(func() error {
			outcomes[i] = o.fetchOne(jobCtx, topic)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (o *Orchestrator) fetchOne(ctx context.Context, topic string) (out entity.TopicOutcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o.log.Error().Str("topic", topic).Interface("panic", r).Msg("research call panicked")
			out = entity.Failed(topic, entity.FailureUnreachable, "research call aborted unexpectedly")
		}
		label := "ok"
		if out.Failure != nil {
			label = string(out.Failure.Kind)
		}
		metrics.ObserveResearchCall(label, time.Since(start))
		o.log.Debug().Str("topic", topic).Str("outcome", label).
			Int64("duration_ms", time.Since(start).Milliseconds()).Msg("research call finished")
	}()

	if err := ctx.Err(); err != nil {
		return entity.Failed(topic, entity.FailureUnreachable, "job deadline exceeded before research started")
	}
	f, err := o.client.Fetch(ctx, topic)
	return research.Outcome(topic, f, err)
}
