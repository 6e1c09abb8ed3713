package postgresql

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"research-job-service/internal/entity"
)

//go:embed schema.sql
var schema string

func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// Migrate creates the research_jobs table and its owner index if missing.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

func (r *JobRepository) Create(ctx context.Context, job *entity.Job) error {
	if job.Status != entity.StatusPending || job.Result != nil || job.Error != nil {
		return entity.ErrInvalidUpdate
	}

	const q = `
INSERT INTO research_jobs (id, owner, topics, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6);
`
	_, err := r.pool.Exec(ctx, q,
		job.ID, job.Owner, job.Topics, string(job.Status), job.CreatedAt, job.UpdatedAt,
	)
	return err
}

const selectColumns = `SELECT id, owner, topics, status, result, error, created_at, updated_at FROM research_jobs`

// Get returns the job only when it belongs to owner; a foreign job is reported as not found.
func (r *JobRepository) Get(ctx context.Context, id uuid.UUID, owner string) (*entity.Job, error) {
	return r.getOne(ctx, selectColumns+` WHERE id = $1 AND owner = $2;`, id, owner)
}

// GetByID is used by the execution side, which has no caller identity.
func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	return r.getOne(ctx, selectColumns+` WHERE id = $1;`, id)
}

func (r *JobRepository) getOne(ctx context.Context, q string, args ...any) (*entity.Job, error) {
	job, err := scanJob(r.pool.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

func (r *JobRepository) List(ctx context.Context, owner string) ([]*entity.Job, error) {
	rows, err := r.pool.Query(ctx, selectColumns+` WHERE owner = $1 ORDER BY created_at DESC, id DESC;`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := []*entity.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Update applies u only while the stored status still equals from, so each
// transition is one atomic conditional write. Fields not set in u are preserved.
func (r *JobRepository) Update(ctx context.Context, id uuid.UUID, from entity.JobStatus, u entity.JobUpdate) (*entity.Job, error) {
	if err := u.Validate(from); err != nil {
		return nil, err
	}

	var resultBytes []byte
	if u.Result != nil {
		b, err := json.Marshal(u.Result)
		if err != nil {
			return nil, fmt.Errorf("encode result: %w", err)
		}
		resultBytes = b
	}

	const q = `
UPDATE research_jobs
SET status = $3,
    result = COALESCE($4::jsonb, result),
    error = COALESCE($5::text, error),
    updated_at = now()
WHERE id = $1 AND status = $2
RETURNING id, owner, topics, status, result, error, created_at, updated_at;
`
	job, err := scanJob(r.pool.QueryRow(ctx, q, id, string(from), string(u.Status), resultBytes, u.Error))
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// nothing matched: tell a missing job from one that already moved on
	var current string
	if err := r.pool.QueryRow(ctx, `SELECT status FROM research_jobs WHERE id = $1;`, id).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrNotFound
		}
		return nil, err
	}
	return nil, fmt.Errorf("%w: job is %s, expected %s", entity.ErrInvalidTransition, current, from)
}

func scanJob(row pgx.Row) (*entity.Job, error) {
	var (
		job         entity.Job
		statusText  string
		resultBytes []byte
		errText     *string
	)
	if err := row.Scan(
		&job.ID,
		&job.Owner,
		&job.Topics,
		&statusText,
		&resultBytes, // NULL => nil
		&errText,     // NULL => nil
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}

	job.Status = entity.JobStatus(statusText)
	if resultBytes != nil {
		var res entity.Result
		if err := json.Unmarshal(resultBytes, &res); err != nil {
			return nil, fmt.Errorf("decode result of job %s: %w", job.ID, err)
		}
		job.Result = &res
	}
	job.Error = errText
	return &job, nil
}
