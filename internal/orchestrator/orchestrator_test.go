package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-job-service/internal/entity"
	"research-job-service/internal/report"
	"research-job-service/internal/research"
)

type fakeClient struct {
	delays   map[string]time.Duration
	fail     map[string]error
	panics   map[string]bool
	inFlight atomic.Int32
	peak     atomic.Int32
	mu       sync.Mutex
	calls    []string
}

func (c *fakeClient) Fetch(ctx context.Context, topic string) (entity.Finding, error) {
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	c.mu.Lock()
	c.calls = append(c.calls, topic)
	c.mu.Unlock()

	if c.panics[topic] {
		panic("boom")
	}
	if d := c.delays[topic]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return entity.Finding{}, research.Unreachable(topic, ctx.Err())
		}
	}
	if err := c.fail[topic]; err != nil {
		return entity.Finding{}, err
	}
	return entity.Finding{Topic: topic, Description: "about " + topic}, nil
}

func TestRun_PartialFailureCompletesInOrder(t *testing.T) {
	client := &fakeClient{fail: map[string]error{"B": research.Unreachable("B", errors.New("down"))}}
	o := New(client, report.NewAggregator(nil, nil), Options{MaxInFlight: 1}, nil)

	res, err := o.Run(context.Background(), []string{"A", "B", "C"})
	require.NoError(t, err)

	require.Len(t, res.RawFindings, 3)
	assert.True(t, res.RawFindings[0].OK())
	assert.False(t, res.RawFindings[1].OK())
	assert.Equal(t, entity.FailureUnreachable, res.RawFindings[1].Failure.Kind)
	assert.True(t, res.RawFindings[2].OK())

	require.Len(t, res.Artifact.Sections, 3)
	assert.Equal(t, "A", res.Artifact.Sections[0].Topic)
	assert.Equal(t, "B", res.Artifact.Sections[1].Topic)
	assert.False(t, res.Artifact.Sections[1].Available)
	assert.Equal(t, "C", res.Artifact.Sections[2].Topic)

	assert.Equal(t, []string{"A", "B", "C"}, client.calls)
}

func TestRun_AllFailedReturnsError(t *testing.T) {
	client := &fakeClient{fail: map[string]error{
		"X": research.Unreachable("X", errors.New("down")),
		"Y": research.NoResults("Y"),
	}}
	o := New(client, report.NewAggregator(nil, nil), Options{MaxInFlight: 2}, nil)

	res, err := o.Run(context.Background(), []string{"X", "Y"})
	require.Nil(t, res)

	var oerr *Error
	require.ErrorAs(t, err, &oerr)
	assert.Len(t, oerr.Outcomes, 2)
	assert.Contains(t, err.Error(), "research failed for all 2 topics")
	assert.Contains(t, err.Error(), "X: unreachable")
	assert.Contains(t, err.Error(), "Y: no_results")
}

func TestRun_ConcurrentFanOutKeepsSubmissionOrder(t *testing.T) {
	client := &fakeClient{delays: map[string]time.Duration{
		"first":  60 * time.Millisecond,
		"second": 30 * time.Millisecond,
		"third":  1 * time.Millisecond,
		"fourth": 10 * time.Millisecond,
	}}
	o := New(client, report.NewAggregator(nil, nil), Options{MaxInFlight: 2}, nil)

	topics := []string{"first", "second", "third", "fourth"}
	res, err := o.Run(context.Background(), topics)
	require.NoError(t, err)

	for i, topic := range topics {
		assert.Equal(t, topic, res.RawFindings[i].Topic)
		assert.Equal(t, topic, res.Artifact.Sections[i].Topic)
	}
	assert.LessOrEqual(t, client.peak.Load(), int32(2))
	assert.GreaterOrEqual(t, client.peak.Load(), int32(1))
}

func TestRun_DeadlineAbandonsSlowTopics(t *testing.T) {
	client := &fakeClient{delays: map[string]time.Duration{"slow": 5 * time.Second}}
	o := New(client, report.NewAggregator(nil, nil), Options{MaxInFlight: 2, Deadline: 50 * time.Millisecond}, nil)

	start := time.Now()
	res, err := o.Run(context.Background(), []string{"fast", "slow"})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.True(t, res.RawFindings[0].OK())
	require.NotNil(t, res.RawFindings[1].Failure)
	assert.Equal(t, entity.FailureUnreachable, res.RawFindings[1].Failure.Kind)
}

func TestRun_PanickingTopicIsIsolated(t *testing.T) {
	client := &fakeClient{panics: map[string]bool{"bad": true}}
	o := New(client, report.NewAggregator(nil, nil), Options{MaxInFlight: 2}, nil)

	res, err := o.Run(context.Background(), []string{"good", "bad"})
	require.NoError(t, err)
	assert.True(t, res.RawFindings[0].OK())
	assert.Equal(t, entity.FailureUnreachable, res.RawFindings[1].Failure.Kind)
}

type failingAggregator struct{}

func (failingAggregator) Aggregate(context.Context, []string, []entity.TopicOutcome) (entity.Artifact, error) {
	return entity.Artifact{}, errors.New("render failed")
}

func TestRun_AggregationErrorPropagates(t *testing.T) {
	o := New(&fakeClient{}, failingAggregator{}, Options{}, nil)
	_, err := o.Run(context.Background(), []string{"A"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "aggregate: render failed")
}

func TestRun_NoTopics(t *testing.T) {
	o := New(&fakeClient{}, report.NewAggregator(nil, nil), Options{}, nil)
	_, err := o.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoTopics)
}
