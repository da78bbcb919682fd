/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the budget engine server. Handles configuration,
  dependency injection, and graceful shutdown.

COMMANDS:
  serve           Run the HTTP API (default)
  cycles          Print the cycles around a date
  report          Print one user's cycle report
  config print    Print the effective configuration as TOML

STARTUP SEQUENCE (serve):
  1. Load configuration (defaults < TOML file < environment < flags)
  2. Initialize SQLite store and seed the default category catalog
  3. Create the transaction feed, API handler and report dispatcher
  4. Configure HTTP router
  5. Start server with graceful shutdown

GLOBAL FLAGS:
  --config   TOML config file (default: budget.toml, optional)
  --db       SQLite database path, overrides database.path
             Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the report schedule and the feed's pending timers
  4. Close database connection

EXAMPLES:
  ./server serve --db=":memory:" --load-scenario=household-month
  ./server cycles --date=2025-03-26 --before=2 --after=2
  ./server report --user=demo --locale=en-US

SEE ALSO:
  - commands.go: cycles, report and config subcommands
  - api/server.go: Router configuration
  - config/config.go: Configuration sections
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/warp/budget-engine/api"
	"github.com/warp/budget-engine/config"
	"github.com/warp/budget-engine/factory"
	"github.com/warp/budget-engine/feed"
	"github.com/warp/budget-engine/report"
	"github.com/warp/budget-engine/store/sqlite"
)

const shutdownTimeout = 30 * time.Second

var (
	flagConfig string
	flagDB     string
)

var rootCmd = &cobra.Command{
	Use:           "budget-engine",
	Short:         "Personal budget engine organized by financial cycles",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "budget.toml", "TOML config file (missing file means defaults)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path (overrides database.path)")

	serveCmd.Flags().Int("port", 0, "HTTP server port (overrides server.port)")
	serveCmd.Flags().String("load-scenario", "", "Reset the database and load a demo scenario at startup")
	rootCmd.AddCommand(serveCmd)

	// serve is also what a bare invocation does
	rootCmd.RunE = serveCmd.RunE
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())
}

// loadConfig applies the global flags over the file and environment.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, err
	}
	if flagDB != "" {
		cfg.Database.Path = flagDB
	}
	return cfg, nil
}

// openStore opens the database and seeds the category catalog.
func openStore(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*sqlite.Store, error) {
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	seeded, err := factory.SeedDefaultCategories(ctx, store)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to seed categories: %w", err)
	}
	if seeded > 0 {
		log.WithField("categories", seeded).Info("default category catalog seeded")
	}
	return store, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Server.Port = port
	}
	if scenario, _ := cmd.Flags().GetString("load-scenario"); scenario != "" {
		cfg.Server.LoadScenario = scenario
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := cfg.NewLogger()
	ctx := context.Background()

	// Initialize store
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	// Initialize feed and handler
	fd := feed.NewTransactionFeed(store, store, feed.SystemClock{}, cfg.FeedConfig(), logger)
	defer fd.Close()

	opts := report.Options{Locale: cfg.CycleConfig().Locale, Currency: cfg.Report.Currency}
	handler := api.NewHandler(store, fd, cfg.CycleConfig(), opts, logger)

	// Report delivery
	var notifier report.Notifier = report.NewLogNotifier(logger)
	if cfg.SMTPEnabled() {
		notifier = report.NewEmailNotifier(cfg.SMTPSettings(), logger)
	}
	dispatcher := report.NewDispatcher(handler.Reports, store, store, notifier, logger)
	dispatcher.Schedule = cfg.Report.Schedule
	handler.Dispatcher = dispatcher
	if cfg.Report.Enabled {
		if err := dispatcher.Start(); err != nil {
			return err
		}
		defer dispatcher.Stop()
	}

	if cfg.Server.LoadScenario != "" {
		if err := handler.LoadScenarioByID(ctx, cfg.Server.LoadScenario); err != nil {
			return fmt.Errorf("failed to load scenario %s: %w", cfg.Server.LoadScenario, err)
		}
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(handler, cfg.Server.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"port":         cfg.Server.Port,
			"db":           cfg.Database.Path,
			"boundary_day": cfg.Cycle.BoundaryDay,
		}).Info("budget engine listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case sig := <-quit:
		logger.WithField("signal", sig.String()).Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
