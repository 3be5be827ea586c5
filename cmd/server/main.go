/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the billing ledger server. Handles configuration,
  dependency injection, and graceful shutdown.

COMMANDS:
  serve    Run the HTTP API (default when no command is given)
  migrate  Create or upgrade the database schema and exit
  seed     Load a demo portfolio for one owner and exit

STARTUP SEQUENCE (serve):
  1. Load configuration (.env, environment, flags)
  2. Open and migrate the database
  3. Select the messenger (log, kafka, redis)
  4. Wire dispatcher and billing service
  5. Configure HTTP router
  6. Start server with graceful shutdown

FLAGS:
  --port   HTTP server port (overrides PORT)
  --db     Database DSN (overrides DATABASE_URL)
           Use ":memory:" for an in-memory SQLite database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the messenger and database
  4. Exit

EXAMPLES:
  # Run with file database
  ./server serve --db="./data/ledger.db"

  # Run against PostgreSQL with Kafka notifications
  DATABASE_DRIVER=postgres DATABASE_URL=postgres://... MESSENGER=kafka ./server

  # Load demo data
  ./server seed --scenario portfolio-year --owner user-1

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqldb/sqldb.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/warp/rent-ledger/api"
	"github.com/warp/rent-ledger/billing"
	"github.com/warp/rent-ledger/config"
	"github.com/warp/rent-ledger/dispatch"
	"github.com/warp/rent-ledger/ledger"
	"github.com/warp/rent-ledger/messaging/kafka"
	"github.com/warp/rent-ledger/messaging/redisstream"
	"github.com/warp/rent-ledger/store/sqldb"
	"go.uber.org/zap"
)

func main() {
	var (
		port int
		dsn  string
	)

	load := func() (config.Config, error) {
		cfg, err := config.Load()
		if err != nil {
			return cfg, err
		}
		if port != 0 {
			cfg.Port = port
		}
		if dsn != "" {
			cfg.DatabaseURL = dsn
		}
		return cfg, cfg.Validate()
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}

	var scenario, owner string
	seed := &cobra.Command{
		Use:   "seed",
		Short: "Load a demo portfolio for one owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			loader := api.NewScenarios(store, store, ledger.SystemClock{})
			if err := loader.Load(cmd.Context(), ledger.UserID(owner), scenario); err != nil {
				return fmt.Errorf("failed to load scenario %q: %w", scenario, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %s for %s\n", scenario, owner)
			return nil
		},
	}
	seed.Flags().StringVar(&scenario, "scenario", "single-flat", "scenario to load")
	seed.Flags().StringVar(&owner, "owner", "", "user id that will own the data")
	_ = seed.MarkFlagRequired("owner")

	root := &cobra.Command{
		Use:          "server",
		Short:        "Property billing ledger",
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	root.PersistentFlags().IntVar(&port, "port", 0, "HTTP server port (overrides PORT)")
	root.PersistentFlags().StringVar(&dsn, "db", "", "database DSN (overrides DATABASE_URL)")
	root.AddCommand(serve, migrate, seed)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServer(cfg config.Config) error {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := context.Background()

	// Initialize store
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	// Initialize messenger
	messenger, closeMessenger, err := newMessenger(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeMessenger.Close()

	clock := ledger.SystemClock{}
	dispatcher := dispatch.NewDispatcher(messenger, dispatch.NewHTMLRenderer(), store, logger, cfg.DispatchTimeout)
	svc := billing.New(billing.Deps{
		Store:      store,
		Directory:  store,
		Registry:   store,
		Dispatcher: dispatcher,
		Clock:      clock,
		Logger:     logger,
	}, billing.WithStatsTimeout(cfg.StatsTimeout))

	handler := api.NewHandler(svc, logger, clock)
	handler.Scenarios = api.NewScenarios(store, store, clock)

	router := api.NewRouter(handler, api.RouterOptions{
		CORSOrigins: cfg.CORSOrigins,
		JWTSecret:   []byte(cfg.JWTSecret),
		Logger:      logger,
	})
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET is empty, trusting the X-User-ID header")
	}

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.Port),
			zap.String("database", cfg.DatabaseDriver),
			zap.String("messenger", cfg.Messenger),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// openStore opens the database; Open creates or upgrades the schema.
func openStore(cfg config.Config) (*sqldb.Store, error) {
	store, err := sqldb.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func newMessenger(ctx context.Context, cfg config.Config, logger *zap.Logger) (dispatch.Messenger, io.Closer, error) {
	switch cfg.Messenger {
	case config.MessengerKafka:
		p := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		return p, p, nil
	case config.MessengerRedis:
		s, err := redisstream.New(ctx, cfg.RedisAddr, cfg.RedisStream)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return s, s, nil
	default:
		return dispatch.NewLogMessenger(logger), nopCloser{}, nil
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}
