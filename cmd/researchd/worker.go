package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"research-job-service/internal/worker"
)

var (
	workerCount         int
	workerShutdownGrace time.Duration
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume queued jobs from Redis",
	Long: `Claim job ids from the Redis queue and run them. Claims that are not acked within
QUEUE_VISIBILITY are put back on the queue. On a stop signal running jobs get --shutdown-timeout
to finish before they are cancelled and recorded as failed.`,
	RunE: runWorker,
}

func init() {
	workerCmd.Flags().IntVar(&workerCount, "workers", 0, "number of concurrent jobs (overrides WORKERS)")
	workerCmd.Flags().DurationVar(&workerShutdownGrace, "shutdown-timeout", 30*time.Second, "how long running jobs may continue after a stop signal before they are cancelled")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if a.rdb == nil || a.pg == nil {
		return fmt.Errorf("worker needs REDIS_ADDR and POSTGRES_DSN")
	}

	proc, err := a.processor(ctx)
	if err != nil {
		return err
	}

	n := a.cfg.Dispatch.Workers
	if workerCount > 0 {
		n = workerCount
	}
	pool := worker.NewPool(a.queue(), proc, worker.PoolOptions{
		Workers:           n,
		VisibilityTimeout: a.cfg.Dispatch.VisibilityTimeout,
		ReapInterval:      a.cfg.Dispatch.ReapInterval,
		ShutdownGrace:     workerShutdownGrace,
	}, a.log)

	a.log.Info().
		Int("workers", n).
		Str("queue_key", a.cfg.Dispatch.QueueKey).
		Str("processing_key", a.cfg.Dispatch.ProcessingKey).
		Msg("worker started")
	pool.Run(ctx)
	a.log.Info().Msg("worker stopped")
	return nil
}
