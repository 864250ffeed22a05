package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ClipToZip/hackaton-soat11-videoprc/internal/consumer"
	"github.com/ClipToZip/hackaton-soat11-videoprc/internal/dispatcher"
	"github.com/ClipToZip/hackaton-soat11-videoprc/internal/domain/port"
	"github.com/ClipToZip/hackaton-soat11-videoprc/internal/infra/config"
	"github.com/ClipToZip/hackaton-soat11-videoprc/internal/infra/ffmpeg"
	kafkatransport "github.com/ClipToZip/hackaton-soat11-videoprc/internal/infra/kafka"
	"github.com/ClipToZip/hackaton-soat11-videoprc/internal/infra/metrics"
	miniostorage "github.com/ClipToZip/hackaton-soat11-videoprc/internal/infra/minio"
	"github.com/ClipToZip/hackaton-soat11-videoprc/internal/infra/postgres"
	sqstransport "github.com/ClipToZip/hackaton-soat11-videoprc/internal/infra/sqs"
	"github.com/ClipToZip/hackaton-soat11-videoprc/internal/infra/tracing"
	"github.com/ClipToZip/hackaton-soat11-videoprc/internal/usecase"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

const consumerJoinTimeout = 5 * time.Second

// App is the single owner of process-wide state: every collaborator handle
// lives here and is threaded explicitly, never through package globals.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	tracer     *sdktrace.TracerProvider
	pool       *pgxpool.Pool
	storage    *miniostorage.Storage
	source     port.InboundSource
	publisher  port.NotificationPublisher
	dispatcher *dispatcher.Dispatcher
	consumer   *consumer.Consumer
	metricsSrv *http.Server
}

// New constructs and wires every collaborator, failing fast before any
// traffic is served. Only tracing and migrations are allowed to degrade.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	a := &App{cfg: cfg, logger: logger}

	tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint, cfg.AppName)
	if err != nil {
		logger.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		a.tracer = tp
	}

	a.pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := postgres.RunMigrations(cfg.DatabaseURL, "migrations"); err != nil {
		logger.Warn("migration warning", zap.Error(err))
	}

	a.storage, err = miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:  cfg.MinIOEndpoint,
		AccessKey: cfg.MinIOAccessKey,
		SecretKey: cfg.MinIOSecretKey,
		UseSSL:    cfg.MinIOUseSSL,
		Bucket:    cfg.Bucket,
	})
	if err != nil {
		return nil, fmt.Errorf("create storage: %w", err)
	}
	if err := a.storage.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}

	if err := a.buildTransport(ctx); err != nil {
		return nil, err
	}

	repo := postgres.NewVideoRepository(a.pool)
	sampler := ffmpeg.NewSampler("jpg", logger)
	zipper := ffmpeg.NewZipCreator()

	uc := usecase.NewProcessVideoUseCase(
		repo, a.storage, sampler, zipper, a.publisher, logger,
		usecase.ProcessVideoConfig{
			TempDir:    cfg.TempDir,
			FrameCount: cfg.FrameCount,
		},
	)

	a.dispatcher = dispatcher.New(cfg.WorkerCount, uc.Execute, logger)

	ackMode := port.AckOnSuccess
	if cfg.AckMode == "receipt" {
		ackMode = port.AckOnReceipt
	}
	a.consumer = consumer.New(a.source, a.dispatcher, consumer.Config{AckMode: ackMode}, logger)

	return a, nil
}

func (a *App) buildTransport(ctx context.Context) error {
	switch a.cfg.Transport {
	case config.TransportKafka:
		brokers := strings.Split(a.cfg.KafkaBootstrapServers, ",")
		a.source = kafkatransport.NewTopicSource(kafkatransport.SourceConfig{
			Brokers:     brokers,
			Topic:       a.cfg.KafkaTopic,
			GroupID:     a.cfg.KafkaGroupID,
			StartOffset: a.cfg.KafkaAutoOffsetReset,
		}, a.logger)
		a.publisher = kafkatransport.NewPublisher(brokers, a.cfg.KafkaOutputTopic, a.logger)

	case config.TransportSQS:
		opts := []func(*awsconfig.LoadOptions) error{
			awsconfig.WithRegion(a.cfg.AWSRegion),
		}
		if a.cfg.AWSAccessKeyID != "" {
			opts = append(opts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(a.cfg.AWSAccessKeyID, a.cfg.AWSSecretAccessKey, ""),
			))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return fmt.Errorf("load aws config: %w", err)
		}
		client := awssqs.NewFromConfig(awsCfg)
		a.source = sqstransport.NewQueueSource(client, a.cfg.EventsQueueURL, a.logger)
		a.publisher = sqstransport.NewPublisher(client, a.cfg.NotificationsURL, a.logger)

	default:
		return fmt.Errorf("unknown transport %q", a.cfg.Transport)
	}
	return nil
}

// Run serves until ctx is cancelled or the consumer fails fatally, then
// shuts everything down in reverse order of startup.
func (a *App) Run(ctx context.Context) error {
	a.metricsSrv = metrics.StartServer(ctx, a.cfg.MetricsPort, a.cfg.AppName, a.logger)
	a.dispatcher.Start(ctx)

	consumerDone := make(chan error, 1)
	go func() {
		consumerDone <- a.consumer.Run(ctx)
	}()

	var runErr error
	select {
	case runErr = <-consumerDone:
	case <-ctx.Done():
	}

	a.shutdown(consumerDone)
	return runErr
}

// shutdown: stop intake, drain in-flight work, flush outbound, release
// collaborators, and join the consumer with a bounded wait.
func (a *App) shutdown(consumerDone <-chan error) {
	a.logger.Info("shutting down")

	a.dispatcher.Stop()

	if err := a.publisher.Close(); err != nil {
		a.logger.Error("close publisher", zap.Error(err))
	}
	if err := a.source.Close(); err != nil {
		a.logger.Error("close source", zap.Error(err))
	}

	select {
	case <-consumerDone:
	case <-time.After(consumerJoinTimeout):
		a.logger.Warn("consumer did not stop in time, proceeding")
	}

	a.pool.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.metricsSrv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("metrics server shutdown", zap.Error(err))
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("tracer shutdown", zap.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
}
