// Command filetrack runs the file SLA tracking service: the REST API, the
// deadline sweep worker, and the operational helpers around them.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/opsdesk/filetrack/internal/config"
	"github.com/opsdesk/filetrack/internal/infrastructure/database/postgres"
	"github.com/opsdesk/filetrack/internal/infrastructure/monitoring/logging"
	httpiface "github.com/opsdesk/filetrack/internal/interfaces/http"
	"github.com/opsdesk/filetrack/internal/interfaces/http/handlers"
	"github.com/opsdesk/filetrack/internal/scheduler"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "filetrack",
		Short:        "Track files against section SLA deadlines",
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "path to the configuration file")

	root.AddCommand(
		newServeCmd(&configPath),
		newWorkerCmd(&configPath),
		newSweepCmd(&configPath),
		newMigrateCmd(&configPath),
	)
	return root
}

// loadConfig prefers the file and falls back to environment variables when
// the file is absent, which is how the containers run.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err == nil {
		return config.Load(path)
	}
	return config.LoadFromEnv()
}

// ─────────────────────────────────────────────────────────────────────────────
// serve
// ─────────────────────────────────────────────────────────────────────────────

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Log)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, logger, appOptions{withStorage: true, withRedis: true, withKafka: true})
			if err != nil {
				return err
			}
			defer a.Close()

			router := httpiface.NewRouter(httpiface.RouterConfig{
				FileHandler:      handlers.NewFileHandler(a.intake, a.ledger, a.store, cfg.Server.MaxUploadSize),
				AlertHandler:     handlers.NewAlertHandler(a.ledger),
				DashboardHandler: handlers.NewDashboardHandler(a.reporting),
				ReportHandler:    handlers.NewReportHandler(a.reporting),
				SectionHandler:   handlers.NewSectionHandler(a.sections),
				SweepHandler:     handlers.NewSweepHandler(a.sweep),
				HealthHandler:    handlers.NewHealthHandler(version, a.healthCheckers()...),
				Auth:             cfg.Auth,
				Logger:           logger,
				Metrics:          a.metrics,
				MetricsHandler:   a.metricsHandler,
			})
			srv := httpiface.NewServer(cfg.Server, router, logger)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-waitForSignal(ctx):
			}

			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
			defer cancel()
			return srv.Stop(stopCtx)
		},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// worker
// ─────────────────────────────────────────────────────────────────────────────

func newWorkerCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the periodic SLA sweep worker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Log)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a, err := newApp(ctx, cfg, logger, appOptions{withRedis: true, withKafka: true})
			if err != nil {
				return err
			}
			defer a.Close()

			sched, err := scheduler.New(cfg.Sweep.Interval, func(ctx context.Context, now time.Time) error {
				_, err := a.sweep.Run(ctx, now)
				return err
			}, logger)
			if err != nil {
				return err
			}

			// Probe endpoint so orchestrators can watch the worker.
			if cfg.Sweep.HealthPort > 0 {
				go serveWorkerHealth(cfg.Sweep.HealthPort, logger)
			}

			go func() {
				<-waitForSignal(ctx)
				cancel()
			}()

			logger.Info("sweep worker starting",
				logging.Duration("interval", cfg.Sweep.Interval),
				logging.Int("batch_size", cfg.Sweep.BatchSize))
			if err := sched.Run(ctx); err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}
}

func serveWorkerHealth(port int, logger logging.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"alive"}`))
	})
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Warn("worker health endpoint failed", logging.Err(err))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// sweep (one-shot)
// ─────────────────────────────────────────────────────────────────────────────

func newSweepCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run a single SLA sweep pass and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Log)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, logger, appOptions{withRedis: true, withKafka: true})
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.sweep.Run(ctx, time.Now().UTC())
			if err != nil {
				return err
			}
			fmt.Printf("scanned=%d overdue=%d reminded=%d skipped=%d malformed=%d elapsed=%s\n",
				res.Scanned, res.Overdue, res.Reminded, res.Skipped, res.Malformed, res.Elapsed)
			return nil
		},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// migrate
// ─────────────────────────────────────────────────────────────────────────────

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Log)
			if err != nil {
				return err
			}

			conn, err := postgres.NewConnection(cfg.Database, logger)
			if err != nil {
				return err
			}
			defer conn.Close()

			return postgres.Migrate(conn.DB(), logger)
		},
	}
}

// waitForSignal returns a channel that closes on SIGINT/SIGTERM or when ctx
// is done.
func waitForSignal(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-quit:
		case <-ctx.Done():
		}
		close(done)
	}()
	return done
}
