package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/activity-bot/app/eventbus"
	activityevents "github.com/Black-And-White-Club/activity-bot/app/events/activity"
	"github.com/Black-And-White-Club/activity-bot/app/httpapi"
	activityservice "github.com/Black-And-White-Club/activity-bot/app/modules/activity/application"
	activityhandlers "github.com/Black-And-White-Club/activity-bot/app/modules/activity/infrastructure/handlers"
	activitydb "github.com/Black-And-White-Club/activity-bot/app/modules/activity/infrastructure/repositories"
	activitymigrations "github.com/Black-And-White-Club/activity-bot/app/modules/activity/infrastructure/repositories/migrations"
	activityrouter "github.com/Black-And-White-Club/activity-bot/app/modules/activity/infrastructure/router"
	scheduler "github.com/Black-And-White-Club/activity-bot/app/modules/activity/infrastructure/scheduler"
	applicationservice "github.com/Black-And-White-Club/activity-bot/app/modules/applications/application"
	commandhandlers "github.com/Black-And-White-Club/activity-bot/app/modules/commands"
	commandrouter "github.com/Black-And-White-Club/activity-bot/app/modules/commands/router"
	roleservice "github.com/Black-And-White-Club/activity-bot/app/modules/roles/application"
	"github.com/Black-And-White-Club/activity-bot/app/shared/platform/natsgateway"
	"github.com/Black-And-White-Club/activity-bot/config"
	"github.com/Black-And-White-Club/activity-bot/internal/observability/attr"
	"github.com/Black-And-White-Club/activity-bot/internal/observability/metrics"
	"github.com/ThreeDotsLabs/watermill"
	wmmetrics "github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

const (
	serviceName     = "activity-bot"
	shutdownTimeout = 30 * time.Second
)

// App wires the bot's modules together.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	DB       *bun.DB
	EventBus *eventbus.Bus
	Router   *message.Router
	Registry *prometheus.Registry

	Roles        *roleservice.RoleService
	Activity     *activityservice.ActivityService
	Applications *applicationservice.ApplicationService
	Scheduler    scheduler.Scheduler
	HTTP         *httpapi.Server
}

// New connects to Postgres and NATS and builds every module. The caller
// must Close the returned App.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	ladder, err := LadderFromConfig(cfg.Ranks)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger, Registry: prometheus.NewRegistry()}
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	promMetrics, err := metrics.NewPrometheus(a.Registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	tracer := otel.Tracer(serviceName)

	a.DB, err = openDatabase(ctx, cfg.Postgres.DSN, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Postgres.AutoMigrate {
		if err := migrateDatabase(ctx, a.DB, logger); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.EventBus, err = eventbus.NewEventBus(ctx, eventbus.Config{
		URL:              cfg.NATS.URL,
		ConsumerGroup:    cfg.NATS.ConsumerGroup,
		SubscribersCount: cfg.NATS.SubscribersCount,
		AckWait:          cfg.NATS.AckWait,
		Auth: eventbus.Auth{
			CredsFile:    cfg.NATS.CredsFile,
			NKeySeedFile: cfg.NATS.NKeySeedFile,
			Token:        cfg.NATS.Token,
		},
	}, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}
	if err := a.EventBus.EnsureStream(ctx, activityevents.StreamName, activityevents.StreamSubjects); err != nil {
		a.Close()
		return nil, err
	}

	client := natsgateway.NewClient(a.EventBus.Conn(), cfg.Platform.SubjectPrefix, cfg.Platform.Timeout)

	a.Roles = roleservice.NewRoleService(ladder, client, client, logger.With(attr.String("module", "roles")), promMetrics, tracer, roleservice.Config{
		CallTimeout: cfg.Platform.Timeout,
		RateLimit:   cfg.Platform.RateLimit,
		Burst:       cfg.Platform.Burst,
	})
	a.Activity = activityservice.NewActivityService(
		activitydb.NewRepository(a.DB),
		ladder,
		a.Roles,
		logger.With(attr.String("module", "activity")),
		promMetrics,
		tracer,
		a.DB,
		ActivityConfig(cfg),
	)
	a.Applications = applicationservice.NewApplicationService(
		client,
		ApplicationConfig(cfg.Applications),
		logger.With(attr.String("module", "applications")),
		promMetrics,
		tracer,
	)

	if err := a.configureRouter(promMetrics, client); err != nil {
		a.Close()
		return nil, err
	}

	a.Scheduler, err = a.newScheduler(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.HTTP = httpapi.NewServer(httpapi.Config{
		Address:        cfg.HTTP.Address,
		JWTSecret:      cfg.HTTP.JWTSecret,
		RateLimit:      cfg.HTTP.RateLimit,
		RateBurst:      cfg.HTTP.RateBurst,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		InactiveAfter:  cfg.Activity.InactiveAfter,
	}, a.Activity, a.Registry, logger.With(attr.String("module", "http")))

	return a, nil
}

func (a *App) configureRouter(promMetrics *metrics.Prometheus, client *natsgateway.Client) error {
	wmLogger := watermill.NewSlogLogger(a.Logger)
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: shutdownTimeout}, wmLogger)
	if err != nil {
		return fmt.Errorf("failed to create router: %w", err)
	}
	metricsBuilder := wmmetrics.NewPrometheusMetricsBuilder(a.Registry, "activitybot", "watermill")
	metricsBuilder.AddPrometheusRouterMetrics(router)
	router.AddMiddleware(
		middleware.CorrelationID,
		middleware.Recoverer,
		middleware.Retry{MaxRetries: 3, InitialInterval: 100 * time.Millisecond, Logger: wmLogger}.Middleware,
	)
	a.Router = router

	tracer := otel.Tracer(serviceName)
	handlerLogger := a.Logger.With(attr.String("layer", "handlers"))

	activityRouter := activityrouter.NewActivityRouter(handlerLogger, router, a.EventBus, a.EventBus, promMetrics, tracer)
	if err := activityRouter.Configure(context.Background(), activityhandlers.NewActivityHandlers(a.Activity, handlerLogger, tracer)); err != nil {
		return fmt.Errorf("failed to configure activity router: %w", err)
	}

	commands := commandhandlers.NewCommandHandlers(a.Activity, a.Applications, client, commandhandlers.Config{
		Env:           a.Config.Env,
		InactiveAfter: a.Config.Activity.InactiveAfter,
	}, handlerLogger, tracer)
	cmdRouter := commandrouter.NewCommandRouter(handlerLogger, router, a.EventBus, a.EventBus, promMetrics, tracer)
	if err := cmdRouter.Configure(context.Background(), commands); err != nil {
		return fmt.Errorf("failed to configure command router: %w", err)
	}
	return nil
}

func (a *App) newScheduler(ctx context.Context) (scheduler.Scheduler, error) {
	logger := a.Logger.With(attr.String("module", "decay"))
	switch a.Config.Decay.Driver {
	case config.DecayDriverRiver:
		return scheduler.NewRiverScheduler(ctx, a.Config.Postgres.DSN, a.Activity, a.Config.Decay.Interval, logger)
	default:
		return scheduler.NewTickerScheduler(a.Activity, a.Config.Decay.Interval, nil, logger), nil
	}
}

// Run blocks until ctx is done or a component fails, then drains
// in-flight reconciliations.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Router.Run(gctx) })
	g.Go(func() error {
		select {
		case <-a.Router.Running():
		case <-gctx.Done():
			return nil
		}
		return a.Scheduler.Run(gctx)
	})
	g.Go(func() error { return a.HTTP.Run(gctx) })

	runErr := g.Wait()

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := a.Roles.Wait(drainCtx); err != nil {
		a.Logger.Warn("In-flight reconciliations did not finish", attr.Error(err))
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

// Close releases the bus and database connections.
func (a *App) Close() error {
	var errs []error
	if a.Router != nil {
		errs = append(errs, a.Router.Close())
	}
	if a.EventBus != nil {
		errs = append(errs, a.EventBus.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

func openDatabase(ctx context.Context, dsn string, logger *slog.Logger) (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 8), ctx)
	err := backoff.RetryNotify(func() error {
		return db.PingContext(ctx)
	}, policy, func(err error, next time.Duration) {
		logger.Warn("Database not ready, retrying", attr.Error(err), attr.Duration("next", next))
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func migrateDatabase(ctx context.Context, db *bun.DB, logger *slog.Logger) error {
	group, err := activitymigrations.Up(ctx, activitymigrations.NewMigrator(db))
	if err != nil {
		return err
	}
	if group.IsZero() {
		logger.Info("No new migrations to run")
	} else {
		logger.Info("Migrated database", attr.String("group", group.String()))
	}
	return nil
}
