// Package memory is a process-local Job Store used when no Postgres DSN is configured
// and in tests. It has the same transition semantics as the Postgres repository.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"research-job-service/internal/entity"
)

type JobRepository struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*entity.Job
	now  func() time.Time
}

func NewJobRepository() *JobRepository {
	return &JobRepository{
		jobs: make(map[uuid.UUID]*entity.Job),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (r *JobRepository) Create(_ context.Context, job *entity.Job) error {
	if job.Status != entity.StatusPending || job.Result != nil || job.Error != nil {
		return entity.ErrInvalidUpdate
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; ok {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	r.jobs[job.ID] = job.Clone()
	return nil
}

func (r *JobRepository) Get(_ context.Context, id uuid.UUID, owner string) (*entity.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok || j.Owner != owner {
		return nil, entity.ErrNotFound
	}
	return j.Clone(), nil
}

func (r *JobRepository) GetByID(_ context.Context, id uuid.UUID) (*entity.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return j.Clone(), nil
}

func (r *JobRepository) List(_ context.Context, owner string) ([]*entity.Job, error) {
	r.mu.RLock()
	out := []*entity.Job{}
	for _, j := range r.jobs {
		if j.Owner == owner {
			out = append(out, j.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(a, b int) bool {
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.After(out[b].CreatedAt)
		}
		return out[a].ID.String() > out[b].ID.String()
	})
	return out, nil
}

func (r *JobRepository) Update(_ context.Context, id uuid.UUID, from entity.JobStatus, u entity.JobUpdate) (*entity.Job, error) {
	if err := u.Validate(from); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	if j.Status != from {
		return nil, fmt.Errorf("%w: job is %s, expected %s", entity.ErrInvalidTransition, j.Status, from)
	}

	// apply on a copy and swap, so readers holding the old pointer never see a half-written job
	next := j.Clone()
	next.Apply(u, r.now())
	r.jobs[id] = next
	return next.Clone(), nil
}
