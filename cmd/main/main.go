package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/voice-agent-console/internal/api"
	"gitlab.com/timkado/api/voice-agent-console/internal/cache"
	"gitlab.com/timkado/api/voice-agent-console/internal/config"
	"gitlab.com/timkado/api/voice-agent-console/internal/healthcheck"
	"gitlab.com/timkado/api/voice-agent-console/internal/jetstream"
	"gitlab.com/timkado/api/voice-agent-console/internal/observer"
	"gitlab.com/timkado/api/voice-agent-console/internal/storage"
	"gitlab.com/timkado/api/voice-agent-console/internal/usecase"
	"gitlab.com/timkado/api/voice-agent-console/pkg/logger"
	"gitlab.com/timkado/api/voice-agent-console/pkg/utils"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Set timezone to UTC
	time.Local = time.UTC

	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	metricsEnabled := cfg.Metrics.Enabled
	observer.InitMetrics(metricsEnabled)

	logger.Log.Info("Starting voice agent conversation watcher",
		zap.String("environment", cfg.Environment),
		zap.String("api_base_url", cfg.API.BaseURL),
		zap.Bool("nats_enabled", cfg.NATS.Enabled),
		zap.Bool("archive_enabled", cfg.Database.Enabled),
	)
	if cfg.API.APIKey == "" {
		logger.Log.Fatal("CONSOLE_API_KEY is required")
	}

	apiClient := api.NewClientFromConfig(cfg.API, logger.Log)
	service := usecase.NewConsoleServiceFromClient(apiClient, cache.New(logger.Log))

	healthServer := healthcheck.NewServer(strconv.Itoa(cfg.Server.Port), logger.Log)
	healthServer.RegisterReadinessCheck("backend", apiClient.Ping)

	// Optional status event publisher
	var (
		jsClient  *jetstream.Client
		publisher usecase.StatusPublisher
	)
	if cfg.NATS.Enabled {
		jsClient, err = initJetStreamClient(cfg.NATS)
		if err != nil {
			logger.Log.Fatal("Failed to initialize JetStream client", zap.Error(err))
		}
		publisher = usecase.NewNATSStatusPublisher(jsClient, cfg.NATS.SubjectPrefix)
		healthServer.RegisterReadinessCheck("nats", jsClient.Ping)
	}

	// Optional outcome archive
	var (
		postgresRepo  *storage.PostgresRepo
		archiveWorker *usecase.ArchiveWorker
		archiver      usecase.IArchiveWorker
	)
	if cfg.Database.Enabled {
		postgresRepo, err = initPostgresRepo(cfg.Database.PostgresDSN, cfg.Database.PostgresAutoMigrate)
		if err != nil {
			logger.Log.Fatal("Failed to initialize Postgres repository", zap.Error(err))
		}
		outcomeRepo := storage.NewOutcomeRepoAdapter(postgresRepo)
		logArchiveSummary(outcomeRepo)
		archiveWorker, err = usecase.NewArchiveWorker(
			cfg.WorkerPools.Archive,
			service,
			outcomeRepo,
			logger.Log,
		)
		if err != nil {
			logger.Log.Fatal("Failed to initialize archive worker pool", zap.Error(err))
		}
		archiver = archiveWorker
		healthServer.RegisterReadinessCheck("postgres", postgresRepo.Ping)
	}

	watcher := usecase.NewWatcher(service, publisher, archiver, cfg.Watcher, cfg.Polling.Interval, logger.Log)

	if metricsEnabled {
		healthServer.RegisterMetricsHandler(promhttp.Handler())
		logger.Log.Info("Metrics endpoint enabled", zap.String("path", "/metrics"), zap.Int("port", cfg.Server.Port))
	} else {
		logger.Log.Info("Metrics endpoint disabled for environment", zap.String("environment", cfg.Environment))
	}

	healthServer.Start()
	logger.Log.Info("Health check endpoints available",
		zap.String("health", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port)),
		zap.String("readiness", fmt.Sprintf("http://localhost:%d/ready", cfg.Server.Port)),
	)

	mainCtx, mainCancel := context.WithCancel(context.Background())
	defer mainCancel()
	watcherDone := watcher.Start(mainCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigChan:
		logger.Log.Info("Received termination signal", zap.String("signal", sig.String()))
	case <-watcherDone:
		logger.Log.Error("Watcher exited unexpectedly, initiating shutdown")
	}

	mainCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	logger.Log.Info("Starting graceful shutdown", zap.Duration("timeout", shutdownTimeout))

	// Pollers must stop before the archive pool is released so no task is submitted late.
	logger.Log.Info("[shutdown] Waiting for conversation watcher")
	select {
	case <-watcherDone:
		logger.Log.Info("[shutdown] Conversation watcher stopped")
	case <-shutdownCtx.Done():
		logger.Log.Warn("[shutdown] Conversation watcher did not stop in time")
	}

	var group shutdownGroup
	group.stop("health check server", func() {
		if err := healthServer.Stop(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Error stopping health check server", zap.Error(err))
		}
	})
	if archiveWorker != nil {
		group.stop("archive worker pool", func() {
			archiveWorker.Stop()
			if err := postgresRepo.Close(shutdownCtx); err != nil {
				logger.Log.Error("[shutdown] Failed to close PostgreSQL connection", zap.Error(err))
			}
		})
	}
	if jsClient != nil {
		group.stop("JetStream connection", jsClient.Close)
	}
	group.stop("query cache", service.Cache().Close)

	if group.wait(shutdownCtx) {
		logger.Log.Info("[shutdown] All components stopped gracefully")
	} else {
		logger.Log.Warn("[shutdown] Graceful shutdown timed out, forcing exit")
	}

	logger.Log.Info("Conversation watcher shutdown complete")
}

// shutdownGroup stops components concurrently. A panicking stop function is logged
// and still counts as stopped.
type shutdownGroup struct {
	wg sync.WaitGroup
}

func (g *shutdownGroup) stop(name string, fn func()) {
	g.wg.Add(1)
	utils.SafeGo(func() {
		defer g.wg.Done()
		logger.Log.Info("[shutdown] Stopping " + name)
		start := time.Now()
		fn()
		logger.Log.Info("[shutdown] Stopped "+name, zap.Duration("duration", time.Since(start)))
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while stopping "+name,
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
	})
}

// wait reports whether every component stopped before ctx expired.
func (g *shutdownGroup) wait(ctx context.Context) bool {
	waitCh := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		return true
	case <-ctx.Done():
		return false
	}
}

// initPostgresRepo opens the outcome archive.
func initPostgresRepo(dsn string, autoMigrate bool) (*storage.PostgresRepo, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required when the archive is enabled")
	}

	repo, err := storage.NewPostgresRepo(dsn, autoMigrate)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres repository: %w", err)
	}

	logger.Log.Info("Initialized PostgreSQL repository")
	return repo, nil
}

// logArchiveSummary reports what the archive already holds.
func logArchiveSummary(repo storage.OutcomeRepo) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	counts, err := repo.CountByStatus(ctx)
	if err != nil {
		logger.Log.Warn("Failed to summarize call outcome archive", zap.Error(err))
		return
	}
	fields := make([]zap.Field, 0, len(counts))
	for _, c := range counts {
		fields = append(fields, zap.Int64(string(c.Status), c.Count))
	}
	logger.Log.Info("Call outcome archive opened", fields...)
}

// initJetStreamClient connects and makes sure the status stream exists.
func initJetStreamClient(cfg config.NATSConfig) (*jetstream.Client, error) {
	client, err := jetstream.NewClient(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.SetupStream(ctx, jetstream.StatusStreamConfig(cfg.Stream, cfg.SubjectPrefix, cfg.MaxAge)); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set up status stream: %w", err)
	}

	logger.Log.Info("Initialized JetStream client", zap.String("stream", cfg.Stream))
	return client, nil
}
