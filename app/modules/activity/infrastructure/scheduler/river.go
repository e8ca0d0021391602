package activityscheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/activity-bot/internal/observability/attr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
)

const (
	decayQueue  = "decay"
	stopTimeout = 30 * time.Second
)

// DecayArgs is the periodic decay job.
type DecayArgs struct{}

// Kind returns the job type identifier for River
func (DecayArgs) Kind() string { return "activity_decay" }

// InsertOpts keeps decay jobs on their own queue, one per interval.
func (DecayArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{Queue: decayQueue, MaxAttempts: 1}
}

// DecayWorker runs a decay pass for each job.
type DecayWorker struct {
	river.WorkerDefaults[DecayArgs]
	runner DecayRunner
	logger *slog.Logger
}

// Work runs one pass. Per-user failures are inside the report, so only
// store failures fail the job.
func (w *DecayWorker) Work(ctx context.Context, job *river.Job[DecayArgs]) error {
	report, err := w.runner.RunDecay(ctx)
	if err != nil {
		return fmt.Errorf("decay job %d: %w", job.ID, err)
	}
	w.logger.InfoContext(ctx, "Decay job completed",
		attr.Int64("job_id", job.ID),
		attr.Int("decayed", report.Decayed),
		attr.Int("failed", report.Failed),
	)
	return nil
}

// Timeout bounds one pass.
func (w *DecayWorker) Timeout(*river.Job[DecayArgs]) time.Duration { return 10 * time.Minute }

// RiverScheduler enqueues decay as a River periodic job. Unlike the ticker
// scheduler it is safe to run several bot replicas: River elects one leader
// to insert periodic jobs.
type RiverScheduler struct {
	client *river.Client[pgx.Tx]
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRiverScheduler connects a pgx pool, applies River's own migrations and
// builds the client.
func NewRiverScheduler(ctx context.Context, dsn string, runner DecayRunner, interval time.Duration, logger *slog.Logger) (*RiverScheduler, error) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger = logger.With(attr.String("component", "river_decay"))

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	driver := riverpgxv5.New(pool)
	migrator, err := rivermigrate.New(driver, nil)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{}); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate river schema: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &DecayWorker{runner: runner, logger: logger})

	client, err := river.NewClient(driver, &river.Config{
		Queues: map[string]river.QueueConfig{
			decayQueue: {MaxWorkers: 1},
		},
		Workers: workers,
		PeriodicJobs: []*river.PeriodicJob{
			river.NewPeriodicJob(
				river.PeriodicInterval(interval),
				func() (river.JobArgs, *river.InsertOpts) {
					return DecayArgs{}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
		},
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	logger.Info("River decay scheduler initialized", attr.Duration("interval", interval))
	return &RiverScheduler{client: client, pool: pool, logger: logger}, nil
}

// Run starts the River client and stops it once ctx is done, letting a
// running pass finish.
func (s *RiverScheduler) Run(ctx context.Context) error {
	// Cancelling the start context would hard-stop running jobs.
	if err := s.client.Start(context.WithoutCancel(ctx)); err != nil {
		s.pool.Close()
		return fmt.Errorf("failed to start River client: %w", err)
	}
	s.logger.InfoContext(ctx, "Decay scheduler started", attr.String("driver", "river"))

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer cancel()
	err := s.client.Stop(stopCtx)
	s.pool.Close()
	if err != nil {
		return fmt.Errorf("failed to stop River client: %w", err)
	}
	s.logger.InfoContext(ctx, "Decay scheduler stopped")
	return nil
}
