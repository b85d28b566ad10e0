package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opsdesk/filetrack/internal/application/intake"
	"github.com/opsdesk/filetrack/internal/application/reporting"
	"github.com/opsdesk/filetrack/internal/application/sla"
	"github.com/opsdesk/filetrack/internal/config"
	"github.com/opsdesk/filetrack/internal/infrastructure/classifier"
	"github.com/opsdesk/filetrack/internal/infrastructure/database/postgres"
	"github.com/opsdesk/filetrack/internal/infrastructure/database/postgres/repositories"
	"github.com/opsdesk/filetrack/internal/infrastructure/database/redis"
	"github.com/opsdesk/filetrack/internal/infrastructure/extraction"
	kafkamsg "github.com/opsdesk/filetrack/internal/infrastructure/messaging/kafka"
	"github.com/opsdesk/filetrack/internal/infrastructure/monitoring/logging"
	promm "github.com/opsdesk/filetrack/internal/infrastructure/monitoring/prometheus"
	"github.com/opsdesk/filetrack/internal/infrastructure/storage/minio"
	"github.com/opsdesk/filetrack/internal/interfaces/http/handlers"
)

// app bundles the wired infrastructure and services a command needs.  Each
// subcommand builds one, uses the pieces it cares about, and closes it on the
// way out.
type app struct {
	cfg    *config.Config
	logger logging.Logger

	db       *postgres.Connection
	cache    *redis.Client
	store    *minio.Client
	producer *kafkamsg.Producer

	metrics        *promm.Metrics
	metricsHandler http.Handler

	intake    *intake.Service
	sweep     *sla.SweepService
	reporting *reporting.Service
	ledger    *repositories.LedgerRepository
	sections  *repositories.SectionRepository
}

// appOptions selects which optional infrastructure a command wires.  The
// sweep worker has no use for object storage; the migrate command needs
// neither redis nor kafka.
type appOptions struct {
	withStorage bool
	withRedis   bool
	withKafka   bool
}

func newApp(ctx context.Context, cfg *config.Config, logger logging.Logger, opts appOptions) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	db, err := postgres.NewConnection(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	a.db = db

	fileRepo := repositories.NewFileRepository(db.DB())
	a.ledger = repositories.NewLedgerRepository(db.DB())
	a.sections = repositories.NewSectionRepository(db.DB())

	if opts.withRedis {
		cache, err := redis.NewClient(cfg.Redis, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.cache = cache
	}

	if opts.withKafka && cfg.Kafka.Enabled {
		a.producer = kafkamsg.NewProducer(cfg.Kafka, logger)
	}

	if opts.withStorage {
		store, err := minio.NewClient(ctx, cfg.MinIO, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.store = store
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	a.metrics = promm.New(reg)
	a.metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	// Intake pipeline.  A typed-nil classifier client must not become a
	// non-nil interface, so the assignment is guarded.
	var cls intake.Classifier
	if c := classifier.NewClient(cfg.Classifier, logger); c != nil {
		cls = c
	}
	resolver := intake.NewResolver(cls, logger)
	extractors := extraction.NewRegistry()

	var intakeOpts []intake.Option
	intakeOpts = append(intakeOpts, intake.WithMetrics(a.metrics))
	if a.producer != nil {
		intakeOpts = append(intakeOpts, intake.WithPublisher(a.producer))
	}
	var docStore intake.DocumentStore
	if a.store != nil {
		docStore = a.store
	}
	a.intake = intake.NewService(fileRepo, a.sections, docStore, extractors, resolver, logger, intakeOpts...)

	// Sweep engine.
	sweepOpts := []sla.SweepOption{
		sla.WithMetrics(a.metrics),
		sla.WithLockTTL(cfg.Sweep.LockTTL),
		sla.WithBatchSize(cfg.Sweep.BatchSize),
	}
	if a.cache != nil {
		sweepOpts = append(sweepOpts, sla.WithLocker(redis.NewLocker(a.cache, logger)))
	}
	if a.producer != nil {
		sweepOpts = append(sweepOpts, sla.WithPublisher(a.producer))
	}
	a.sweep = sla.NewSweepService(fileRepo, a.ledger, logger, sweepOpts...)

	// Reporting.
	var reportOpts []reporting.Option
	if a.cache != nil {
		reportOpts = append(reportOpts, reporting.WithCache(redis.NewViewCache(a.cache), cfg.Redis.DefaultTTL))
	}
	a.reporting = reporting.NewService(fileRepo, a.ledger, a.sections, logger, reportOpts...)

	return a, nil
}

// healthCheckers returns probes for every wired component.
func (a *app) healthCheckers() []handlers.HealthChecker {
	checks := []handlers.HealthChecker{
		handlers.CheckFunc{Component: "postgres", Probe: a.db.HealthCheck},
	}
	if a.cache != nil {
		checks = append(checks, handlers.CheckFunc{Component: "redis", Probe: a.cache.Ping})
	}
	if a.store != nil {
		checks = append(checks, handlers.CheckFunc{Component: "minio", Probe: a.store.HealthCheck})
	}
	return checks
}

// Close releases infrastructure in reverse dependency order.
func (a *app) Close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("closing kafka producer", logging.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("closing redis client", logging.Err(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("closing database", logging.Err(err))
		}
	}
}

func newLogger(cfg config.LogConfig) (logging.Logger, error) {
	return logging.NewLogger(logging.Config{
		Level:       cfg.Level,
		Format:      cfg.Format,
		OutputPaths: cfg.OutputPaths,
	})
}

// shutdownTimeout bounds graceful teardown across commands.
func shutdownTimeout(cfg *config.Config) time.Duration {
	if cfg.Server.ShutdownTimeout > 0 {
		return cfg.Server.ShutdownTimeout
	}
	return 30 * time.Second
}
