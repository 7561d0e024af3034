package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gartstein/jobboard/internal/jobboard/auth"
	"github.com/gartstein/jobboard/internal/jobboard/blob"
	"github.com/gartstein/jobboard/internal/jobboard/config"
	"github.com/gartstein/jobboard/internal/jobboard/controller"
	"github.com/gartstein/jobboard/internal/jobboard/db"
	"github.com/gartstein/jobboard/internal/jobboard/events"
	"github.com/gartstein/jobboard/internal/jobboard/handlers"
	"github.com/gartstein/jobboard/internal/jobboard/tracing"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "jobboard",
		Short:        "Job marketplace backend",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "path to the YAML config file")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the gRPC health service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath, serve)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath, func(_ context.Context, _ *config.Config, _ *db.Repository, logger *zap.Logger) error {
				logger.Info("Schema migrated")
				return nil
			})
		},
	})
	root.AddCommand(newEventsCmd(&configPath))
	return root
}

// newEventsCmd tails the Kafka event topic. It does not touch the database.
func newEventsCmd(configPath *string) *cobra.Command {
	var groupID string
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Log every marketplace event published to Kafka",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if len(cfg.KafkaBrokers) == 0 {
				return fmt.Errorf("KAFKA_BROKERS is required to tail events")
			}
			logger := initLogger(cfg.LogLevel)
			defer func(logger *zap.Logger) {
				_ = logger.Sync()
			}(logger)

			consumer := events.NewConsumer(cfg.KafkaBrokers, cfg.Topic, groupID, logger, events.LogHandler(logger))
			defer consumer.Close()
			return consumer.Run(ctx)
		},
	}
	tail.Flags().StringVar(&groupID, "group", "jobboard-tail", "Kafka consumer group")

	eventsCmd := &cobra.Command{Use: "events", Short: "Inspect published events"}
	eventsCmd.AddCommand(tail)
	return eventsCmd
}

type command func(ctx context.Context, cfg *config.Config, repo *db.Repository, logger *zap.Logger) error

// run loads config, connects and migrates the database, then hands over to cmd.
func run(ctx context.Context, configPath string, cmd command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := initLogger(cfg.LogLevel)
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	repo, err := connectDatabase(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize database", zap.Error(err))
		return err
	}
	defer repo.Close()

	if err := repo.Migrate(ctx); err != nil {
		logger.Error("failed to migrate database", zap.Error(err))
		return err
	}

	if err := cmd(ctx, cfg, repo, logger); err != nil {
		logger.Error("command failed", zap.Error(err))
		return err
	}
	return nil
}

func serve(ctx context.Context, cfg *config.Config, repo *db.Repository, logger *zap.Logger) error {
	shutdownTracing, err := tracing.Init(ctx, logger, cfg.OTLPEndpoint, cfg.ServiceName, cfg.Environment)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("failed to flush traces", zap.Error(err))
		}
	}()

	producer, err := initProducer(cfg, logger)
	if err != nil {
		return err
	}
	defer producer.Close()

	blobs, err := initBlobStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if closer, ok := blobs.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	svc := controller.NewMarketplaceService(repo, blobs, producer, controller.Config{
		CollaboratorTimeout: cfg.CollaboratorTimeout,
		MaxResumeBytes:      cfg.MaxResumeBytes,
	}, logger)

	resolver := auth.NewResolver(auth.NewTokenVerifier(cfg.JWTSecret), repo, cfg.IdentityTimeout, logger)

	server := handlers.NewServer(cfg.GRPCPort, cfg.HTTPPort, logger)
	httpHandler, err := handlers.NewHTTPHandler(svc, resolver, server.Health(), cfg.MaxResumeBytes, logger)
	if err != nil {
		return fmt.Errorf("failed to register HTTP routes: %w", err)
	}
	server.SetHTTPHandler(httpHandler)

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("failed to start servers: %w", err)
	}
	logger.Info("Servers stopped properly")
	return nil
}

// initLogger initializes a Zap production logger, or a development one for LOG_LEVEL=debug.
func initLogger(level string) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// connectDatabase retries until the database answers or DB_CONNECT_TIMEOUT elapses.
func connectDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*db.Repository, error) {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = cfg.DBConnectTimeout

	var repo *db.Repository
	operation := func() error {
		r, err := db.NewRepository(cfg.Database())
		if err != nil {
			return err
		}
		if err := r.Ping(ctx); err != nil {
			_ = r.Close()
			return err
		}
		repo = r
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("database not ready, retrying", zap.Error(err), zap.Duration("backoff", wait))
	}
	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify); err != nil {
		return nil, err
	}
	return repo, nil
}

type eventProducer interface {
	controller.EventProducer
	Close()
}

func initProducer(cfg *config.Config, logger *zap.Logger) (eventProducer, error) {
	opts := events.Options{QueueSize: cfg.EventQueueSize}
	switch cfg.EventsBackend {
	case config.EventsKafka:
		producer, err := events.NewKafkaProducer(cfg.KafkaBrokers, cfg.Topic, logger, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Kafka producer: %w", err)
		}
		return producer, nil
	case config.EventsAMQP:
		writer, err := events.NewAMQPWriter(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize AMQP producer: %w", err)
		}
		return events.NewProducer(writer, logger, opts), nil
	default:
		logger.Info("event publishing disabled")
		return events.NopProducer{}, nil
	}
}

func initBlobStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (blob.Store, error) {
	if cfg.BlobBackend == config.BlobRedis {
		store, err := blob.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	logger.Warn("using in-memory blob store; uploads are lost on restart")
	return blob.NewMemoryStore(), nil
}
