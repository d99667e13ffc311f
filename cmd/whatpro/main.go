package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/odanieltavares/whatpro-manager/internal/config"
	"github.com/odanieltavares/whatpro-manager/internal/constants"
	"github.com/odanieltavares/whatpro-manager/internal/database"
	"github.com/odanieltavares/whatpro-manager/internal/models"
	"github.com/odanieltavares/whatpro-manager/internal/queue"
	"github.com/odanieltavares/whatpro-manager/internal/relay"
	"github.com/odanieltavares/whatpro-manager/internal/retry"
	"github.com/odanieltavares/whatpro-manager/internal/tracing"
	"github.com/odanieltavares/whatpro-manager/pkg/chatwoot"
	"github.com/odanieltavares/whatpro-manager/pkg/uazapi"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	configPath = flag.String("config", "config.json", "Path to configuration file")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("WhatPro Manager %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting WhatPro Manager")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	configureLogLevel(logger, cfg.LogLevel)

	tracingManager := tracing.NewManager(cfg.Tracing, logger)
	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	backoff := retry.NewBackoff(retry.FromConfig(cfg.Retry))

	redisClient := redis.NewClient(&redis.Options{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: constants.DefaultRedisDialTimeoutSec * time.Second,
	})
	defer redisClient.Close()

	err = backoff.Retry(ctx, func() error {
		if pingErr := redisClient.Ping(ctx).Err(); pingErr != nil {
			logger.Warnf("Failed to reach Redis at %s: %v", cfg.Redis.Addr, pingErr)
			return pingErr
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis after retries: %w", err)
	}

	var db *database.Database
	err = backoff.Retry(ctx, func() error {
		var initErr error
		db, initErr = database.New(cfg.Database.Path)
		if initErr != nil {
			logger.Warnf("Failed to initialize database: %v", initErr)
		}
		return initErr
	})
	if err != nil {
		return fmt.Errorf("failed to initialize database after retries: %w", err)
	}
	defer db.Close()

	queues := queue.NewManager(queue.NewRedisStore(redisClient), logger)
	executions := database.NewExecutionLog(db, logger)
	resolver := relay.NewCachingResolver(db, queues, logger)

	platformFactory := relay.PlatformFactory(func(binding models.ChatwootBinding) relay.ChatPlatform {
		return chatwoot.NewClient(binding.BaseURL, binding.UserToken)
	})
	providerFactory := relay.ProviderFactory(func(baseURL, apiToken string) relay.ProviderClient {
		return uazapi.NewClient(baseURL, apiToken)
	})

	notifier := relay.NewPlatformNotifier(resolver, platformFactory, logger)
	retryManager := relay.NewRetryManager(queues, executions, notifier, logger, cfg.Relay.MaxAttempts)

	outboundDeliverer := relay.NewOutboundDeliverer(resolver, providerFactory, db, logger)
	inboundDeliverer := relay.NewInboundDeliverer(resolver, platformFactory, db, logger)

	outboundWorker := relay.NewWorker(models.DirectionOutbound, queues, outboundDeliverer, retryManager, executions, logger)
	inboundWorker := relay.NewWorker(models.DirectionInbound, queues, inboundDeliverer, retryManager, executions, logger)

	watchExistingQueues(ctx, queues, outboundWorker, models.DirectionOutbound, logger)
	watchExistingQueues(ctx, queues, inboundWorker, models.DirectionInbound, logger)

	outboundWorker.Start(ctx)
	inboundWorker.Start(ctx)
	defer outboundWorker.Stop()
	defer inboundWorker.Stop()

	autoReply := relay.NewAutoReplyScheduler(providerFactory, logger)
	defer autoReply.Stop()

	cleanup := relay.NewScheduler(db, cfg.RetentionDays, constants.DefaultCleanupIntervalHours, logger)
	go cleanup.Start(ctx)
	defer cleanup.Stop()

	ingestor := relay.NewIngestor(relay.IngestorOptions{
		Queues:    queues,
		Retry:     retryManager,
		Resolver:  resolver,
		Mappings:  db,
		Platform:  platformFactory,
		Provider:  providerFactory,
		AutoReply: autoReply,
		Outbound:  outboundWorker,
		Inbound:   inboundWorker,
		Sink:      executions,
		Logger:    logger,
	})

	server := NewServer(cfg, ingestor, retryManager, queues, executions, db, resolver, providerFactory, logger)
	serverErrCh := make(chan error, constants.ServerErrorChannelSize)
	go func() {
		if err := server.Start(); err != nil {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serverErrCh:
		logger.Error(err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultGracefulShutdownSec*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}

	logger.Info("Server shutdown completed")
	return nil
}

func configureLogLevel(logger *logrus.Logger, configured string) {
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
		logger.Info("Verbose logging enabled")
		return
	}
	if configured == "" {
		logger.SetLevel(logrus.InfoLevel)
		return
	}
	level, err := logrus.ParseLevel(configured)
	if err != nil {
		logger.Warnf("Invalid log level %q, defaulting to info", configured)
		logger.SetLevel(logrus.InfoLevel)
		return
	}
	logger.SetLevel(level)
}

// watchExistingQueues registers every queue key that survived a restart so
// the workers resume draining conversations that still hold jobs.
func watchExistingQueues(ctx context.Context, queues *queue.Manager, worker *relay.Worker, direction models.Direction, logger *logrus.Logger) {
	keys, err := queues.DiscoverQueues(ctx, direction)
	if err != nil {
		logger.WithError(err).WithField("direction", direction).Warn("Failed to discover existing queues")
		return
	}
	for _, key := range keys {
		worker.Watch(key)
	}
	if len(keys) > 0 {
		logger.WithFields(logrus.Fields{
			"direction": direction,
			"queues":    len(keys),
		}).Info("Resumed watching existing queues")
	}
}
