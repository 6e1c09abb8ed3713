package research

import (
	"errors"
	"fmt"

	"research-job-service/internal/entity"
)

var ErrEmptyTopic = errors.New("empty topic")

// CapabilityError is the typed failure of a single Fetch.
type CapabilityError struct {
	Kind  entity.FailureKind
	Topic string
	Err   error
}

func (e *CapabilityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("research %q: %s: %v", e.Topic, e.Kind, e.Err)
	}
	return fmt.Sprintf("research %q: %s", e.Topic, e.Kind)
}

func (e *CapabilityError) Unwrap() error { return e.Err }

func Unreachable(topic string, err error) error {
	return &CapabilityError{Kind: entity.FailureUnreachable, Topic: topic, Err: err}
}

func NoResults(topic string) error {
	return &CapabilityError{Kind: entity.FailureNoResults, Topic: topic}
}

// KindOf classifies err; anything that is not a CapabilityError counts as unreachable.
func KindOf(err error) entity.FailureKind {
	var ce *CapabilityError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return entity.FailureUnreachable
}

// Outcome tags a Fetch result for the aggregator. It is the only place raw
// delegate errors are turned into TopicOutcome values.
func Outcome(topic string, f entity.Finding, err error) entity.TopicOutcome {
	if err != nil {
		return entity.Failed(topic, KindOf(err), failureMessage(err))
	}
	if f.Topic == "" {
		f.Topic = topic
	}
	if f.NewsArticles == nil {
		f.NewsArticles = []entity.Source{}
	}
	if f.ResearchDevelopments == nil {
		f.ResearchDevelopments = []entity.Source{}
	}
	return entity.Succeeded(topic, f)
}

func failureMessage(err error) string {
	var ce *CapabilityError
	if errors.As(err, &ce) {
		switch ce.Kind {
		case entity.FailureNoResults:
			return "no results found"
		default:
			if ce.Err != nil {
				return "research service unreachable: " + ce.Err.Error()
			}
			return "research service unreachable"
		}
	}
	return "research service unreachable: " + err.Error()
}
