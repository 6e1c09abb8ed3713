package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transition is allowed from s.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s JobStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// CanTransitionTo allows only pending->processing and processing->{completed,failed}.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// Job is one asynchronous multi-topic research request.
type Job struct {
	ID        uuid.UUID `json:"id"`
	Owner     string    `json:"owner"`
	Topics    []string  `json:"topics"`
	Status    JobStatus `json:"status"`
	Result    *Result   `json:"result,omitempty"`
	Error     *string   `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy so callers never share slices with a store.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	out := *j
	out.Topics = append([]string(nil), j.Topics...)
	if j.Result != nil {
		r := j.Result.clone()
		out.Result = &r
	}
	if j.Error != nil {
		msg := *j.Error
		out.Error = &msg
	}
	return &out
}

// JobUpdate lists the fields written by a single state transition.
// Fields left nil are preserved by the store.
type JobUpdate struct {
	Status JobStatus
	Result *Result
	Error  *string
}

// Validate checks that applying u to a job in status from keeps the job invariants:
// result only with completed, error only with failed, and no backward or skipped transition.
func (u JobUpdate) Validate(from JobStatus) error {
	if !from.CanTransitionTo(u.Status) {
		return ErrInvalidTransition
	}
	switch u.Status {
	case StatusCompleted:
		if u.Result == nil || u.Error != nil {
			return ErrInvalidUpdate
		}
	case StatusFailed:
		if u.Error == nil || *u.Error == "" || u.Result != nil {
			return ErrInvalidUpdate
		}
	default:
		if u.Result != nil || u.Error != nil {
			return ErrInvalidUpdate
		}
	}
	return nil
}

// Apply writes u onto j. Callers validate first.
func (j *Job) Apply(u JobUpdate, at time.Time) {
	j.Status = u.Status
	if u.Result != nil {
		r := u.Result.clone()
		j.Result = &r
	}
	if u.Error != nil {
		msg := *u.Error
		j.Error = &msg
	}
	j.UpdatedAt = at
}
