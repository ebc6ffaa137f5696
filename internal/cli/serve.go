package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"smartmove/internal/app"
	"smartmove/internal/config"
	"smartmove/internal/events"
	"smartmove/internal/handler"
	"smartmove/internal/logging"
	"smartmove/internal/metrics"
	internalRedis "smartmove/internal/redis"
	"smartmove/internal/repository/postgres"
	"smartmove/internal/scheduling"
	"smartmove/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduling API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, rules, loc, err := loadSettings()
	if err != nil {
		return err
	}
	log := logging.New("server", cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize New Relic")
		} else {
			log.Info().Str("app", cfg.NewRelic.AppName).Msg("New Relic enabled")
		}
	}

	db, err := app.NewDatabase(startCtx, cfg.Database, nrApp, log)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	log.Info().Msg("connected to PostgreSQL")

	redisClient, err := app.NewRedisClient(startCtx, cfg.Redis, nrApp)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	log.Info().Msg("connected to Redis")

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("publishing lifecycle events")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("close event publisher")
		}
	}()

	server, err := wireServer(startCtx, db, redisClient, nrApp, publisher, cfg, rules, loc)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}
	log.Info().Msg("server exited")
	return nil
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(
	ctx context.Context,
	db *sql.DB,
	redisClient *redis.Client,
	nrApp *newrelic.Application,
	publisher events.Publisher,
	cfg *config.Config,
	rules *config.Rules,
	loc *time.Location,
) (*http.Server, error) {
	registry := prometheus.NewRegistry()
	m, err := metrics.NewScheduler(registry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	cache := internalRedis.NewCacheStore(redisClient)
	if err := cache.InvalidateFleet(ctx); err != nil {
		return nil, fmt.Errorf("invalidate fleet cache: %w", err)
	}

	store := postgres.NewStore(db)
	deps := service.Deps{
		Tx:        store,
		Repos:     store.Repositories(),
		Locks:     internalRedis.NewLockStore(redisClient),
		Cache:     cache,
		Publisher: publisher,
		Metrics:   m,
		Logger:    logging.New("scheduler", cfg.Logging),
		LockTTL:   rules.Commit.LockTTL(),
		Location:  loc,
	}

	resolver := scheduling.NewResolver(rules.Scheduling)
	schedulingService := service.NewSchedulingService(deps, resolver, rules.Commit.CommitAttempts)
	lifecycleService := service.NewLifecycleService(deps)
	requestService := service.NewRequestService(deps)

	router := app.NewRouter(app.RouterDeps{
		RequestHandler:  handler.NewRequestHandler(requestService, schedulingService, lifecycleService),
		ScheduleHandler: handler.NewScheduleHandler(schedulingService),
		Idempotency:     internalRedis.NewIdempotencyStore(redisClient),
		NewRelicApp:     nrApp,
		Gatherer:        registry,
		Logger:          logging.New("http", cfg.Logging),
	})

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, nil
}
