package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-job-service/internal/entity"
	"research-job-service/internal/repository/memory"
	"research-job-service/internal/service"
)

type fakeDispatcher struct {
	dispatched []uuid.UUID
	err        error
	// statusSeen records the stored status at dispatch time
	repo       service.JobRepository
	statusSeen []entity.JobStatus
	owner      string
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, id uuid.UUID) error {
	d.dispatched = append(d.dispatched, id)
	if d.repo != nil {
		if j, err := d.repo.Get(ctx, id, d.owner); err == nil {
			d.statusSeen = append(d.statusSeen, j.Status)
		}
	}
	return d.err
}

type countingRepo struct {
	*memory.JobRepository
	creates int
}

func (r *countingRepo) Create(ctx context.Context, job *entity.Job) error {
	r.creates++
	return r.JobRepository.Create(ctx, job)
}

func TestJobService_Submit_StoresPendingThenDispatches(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewJobRepository()
	disp := &fakeDispatcher{repo: repo, owner: "alice"}
	svc := service.NewJobService(repo, disp, service.Options{}, nil)

	job, err := svc.Submit(ctx, service.SubmitRequest{Owner: "alice", Topics: []string{" AI chips ", "fusion"}})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, job.ID)
	assert.Equal(t, entity.StatusPending, job.Status)
	assert.Equal(t, []string{"AI chips", "fusion"}, job.Topics)
	assert.False(t, job.CreatedAt.IsZero())

	require.Equal(t, []uuid.UUID{job.ID}, disp.dispatched)
	assert.Equal(t, []entity.JobStatus{entity.StatusPending}, disp.statusSeen)

	stored, err := svc.GetJob(ctx, job.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPending, stored.Status)
}

func TestJobService_Submit_ValidationCreatesNothing(t *testing.T) {
	cases := []struct {
		name   string
		req    service.SubmitRequest
		field  string
		substr string
	}{
		{"no topics", service.SubmitRequest{Owner: "alice"}, "topics", "at least one topic"},
		{"empty topics", service.SubmitRequest{Owner: "alice", Topics: []string{}}, "topics", "at least one topic"},
		{"blank topic", service.SubmitRequest{Owner: "alice", Topics: []string{"ok", "   "}}, "topics", "blank"},
		{"long topic", service.SubmitRequest{Owner: "alice", Topics: []string{strings.Repeat("x", 501)}}, "topics", "#1 is too long"},
		{"too many", service.SubmitRequest{Owner: "alice", Topics: []string{"a", "b", "c"}}, "topics", "at most 2"},
		{"no owner", service.SubmitRequest{Owner: " ", Topics: []string{"a"}}, "owner", "owner is required"},
		{"long owner", service.SubmitRequest{Owner: strings.Repeat("o", 257), Topics: []string{"a"}}, "owner", "owner is too long (max 256 characters)"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &countingRepo{JobRepository: memory.NewJobRepository()}
			disp := &fakeDispatcher{}
			svc := service.NewJobService(repo, disp, service.Options{MaxTopics: 2}, nil)

			_, err := svc.Submit(context.Background(), tc.req)

			var verr *service.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
			assert.Contains(t, verr.Error(), tc.substr)
			assert.Zero(t, repo.creates)
			assert.Empty(t, disp.dispatched)
		})
	}
}

func TestJobService_Submit_DispatchFailureFailsJob(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewJobRepository()
	disp := &fakeDispatcher{err: errors.New("redis down")}
	svc := service.NewJobService(repo, disp, service.Options{}, nil)

	_, err := svc.Submit(ctx, service.SubmitRequest{Owner: "alice", Topics: []string{"a"}})
	require.ErrorIs(t, err, service.ErrDispatch)

	jobs, err := svc.ListJobs(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, entity.StatusFailed, jobs[0].Status)
	require.NotNil(t, jobs[0].Error)
	assert.Equal(t, "could not schedule job execution", *jobs[0].Error)
	assert.Nil(t, jobs[0].Result)
}

func TestJobService_Submit_ReturnsWithoutWaiting(t *testing.T) {
	repo := memory.NewJobRepository()
	block := make(chan struct{})
	defer close(block)
	svc := service.NewJobService(repo, detached{block: block}, service.Options{}, nil)

	start := time.Now()
	_, err := svc.Submit(context.Background(), service.SubmitRequest{Owner: "alice", Topics: []string{"a"}})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

// detached starts work that never finishes during the test.
type detached struct{ block chan struct{} }

func (d detached) Dispatch(context.Context, uuid.UUID) error {
	go func() { <-d.block }()
	return nil
}

func TestJobService_GetAndList_OwnerScoped(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewJobRepository()
	svc := service.NewJobService(repo, &fakeDispatcher{}, service.Options{}, nil)

	first, err := svc.Submit(ctx, service.SubmitRequest{Owner: "alice", Topics: []string{"a"}})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := svc.Submit(ctx, service.SubmitRequest{Owner: "alice", Topics: []string{"b"}})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, service.SubmitRequest{Owner: "bob", Topics: []string{"c"}})
	require.NoError(t, err)

	_, err = svc.GetJob(ctx, first.ID, "bob")
	assert.ErrorIs(t, err, entity.ErrNotFound)
	_, err = svc.GetJob(ctx, uuid.New(), "alice")
	assert.ErrorIs(t, err, entity.ErrNotFound)

	jobs, err := svc.ListJobs(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, second.ID, jobs[0].ID)
	assert.Equal(t, first.ID, jobs[1].ID)

	// reads never mutate
	again, err := svc.ListJobs(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, jobs, again)
}
