package main

import (
	"context"
	"fmt"
	"net/http"
	"regexp"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"research-job-service/internal/config"
	"research-job-service/internal/entity"
	"research-job-service/internal/llm"
	"research-job-service/internal/logging"
	"research-job-service/internal/metrics"
	"research-job-service/internal/orchestrator"
	"research-job-service/internal/report"
	"research-job-service/internal/repository/memory"
	"research-job-service/internal/repository/postgresql"
	"research-job-service/internal/research"
	"research-job-service/internal/service"
	"research-job-service/internal/worker"
)

// jobStore is what both the API side and the execution side need from the Job Store.
type jobStore interface {
	service.JobRepository
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Job, error)
}

var (
	_ jobStore = (*postgresql.JobRepository)(nil)
	_ jobStore = (*memory.JobRepository)(nil)
)

// app holds the process-wide dependencies shared by the subcommands.
type app struct {
	cfg     *config.Config
	log     *zerolog.Logger
	pg      *pgxpool.Pool
	rdb     *redis.Client
	store   jobStore
	closers []func()
}

func loadApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)
	metrics.MustRegister()

	a := &app{cfg: cfg, log: log}

	if cfg.PostgresDSN != "" {
		pool, err := postgresql.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("pg: %w", err)
		}
		a.pg = pool
		a.closers = append(a.closers, pool.Close)
		a.store = postgresql.NewJobRepository(pool)
	} else {
		log.Warn().Msg("POSTGRES_DSN not set, jobs are kept in memory")
		a.store = memory.NewJobRepository()
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			a.close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.rdb = rdb
		a.closers = append(a.closers, func() { _ = rdb.Close() })
	}

	log.Info().
		Str("dispatch", cfg.Dispatch.Mode).
		Str("search_provider", cfg.Research.Provider).
		Str("summarizer", cfg.LLM.Provider).
		Str("postgres_dsn", redactDSN(cfg.PostgresDSN)).
		Str("redis_addr", cfg.RedisAddr).
		Msg("config loaded")
	for _, w := range cfg.Warnings() {
		log.Warn().Msg(w)
	}
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) queue() *service.RedisQueue {
	return service.NewRedisQueue(a.rdb, service.QueueKeys{
		QueueKey:      a.cfg.Dispatch.QueueKey,
		ProcessingKey: a.cfg.Dispatch.ProcessingKey,
	})
}

// processor wires research client -> aggregator -> orchestrator -> execution unit.
func (a *app) processor(ctx context.Context) (*worker.Processor, error) {
	client, err := a.researchClient(ctx)
	if err != nil {
		return nil, err
	}

	var summarizer llm.Summarizer
	if a.cfg.LLM.Provider == "gemini" {
		g, err := llm.NewGeminiSummarizer(ctx, a.cfg.LLM.APIKey, a.cfg.LLM.Model, a.cfg.LLM.Timeout)
		if err != nil {
			return nil, fmt.Errorf("summarizer: %w", err)
		}
		a.closers = append(a.closers, func() { _ = g.Close() })
		summarizer = g
	}

	orch := orchestrator.New(client, report.NewAggregator(summarizer, a.log), orchestrator.Options{
		MaxInFlight: a.cfg.Research.MaxInFlight,
		Deadline:    a.cfg.Research.JobDeadline,
	}, a.log)

	var locker worker.Locker = worker.NewLocalLocker()
	if a.rdb != nil {
		locker = worker.NewRedisLocker(a.rdb, a.cfg.Dispatch.LockPrefix)
	}

	return worker.NewProcessor(a.store, orch, locker, worker.ProcessorOptions{
		LockTTL: a.cfg.Dispatch.LockTTL,
	}, a.log), nil
}

func (a *app) researchClient(ctx context.Context) (research.Client, error) {
	opts := research.Options{
		Timeout:     a.cfg.Research.CallTimeout,
		MaxArticles: a.cfg.Research.MaxArticles,
		MaxPapers:   a.cfg.Research.MaxPapers,
	}

	switch a.cfg.Research.Provider {
	case "serper":
		s, err := research.NewSerperSearcher(a.cfg.Research.SerperAPIKey, a.cfg.Research.SerperBaseURL, &http.Client{})
		if err != nil {
			return nil, fmt.Errorf("serper: %w", err)
		}
		return research.NewSearchClient(s, opts), nil
	case "customsearch":
		s, err := research.NewCustomSearchSearcher(ctx, a.cfg.Research.GoogleAPIKey, a.cfg.Research.GoogleCX)
		if err != nil {
			return nil, fmt.Errorf("customsearch: %w", err)
		}
		return research.NewSearchClient(s, opts), nil
	default:
		a.log.Warn().Msg("no search provider configured, every topic will be unreachable")
		return research.Disabled{}, nil
	}
}

var dsnPassword = regexp.MustCompile(`://([^:/?#]+):([^@/]+)@`)

// redactDSN masks the password: user:pass@ -> user:****@
func redactDSN(dsn string) string {
	return dsnPassword.ReplaceAllString(dsn, `://$1:****@`)
}
