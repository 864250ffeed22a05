package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ClipToZip/hackaton-soat11-videoprc/internal/domain/entity"
	"github.com/ClipToZip/hackaton-soat11-videoprc/internal/domain/port"
	"github.com/ClipToZip/hackaton-soat11-videoprc/internal/infra/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ArchivePrefix is the namespace under which result archives are stored.
const ArchivePrefix = "archive/"

var (
	// ErrNotPending: the record already left Pending; a duplicate or racing
	// delivery. The item is aborted with no writes and no notification.
	ErrNotPending = errors.New("video is not pending")

	// ErrClaimLost: the Pending -> Processing swap was rejected by the
	// store; another delivery won the race.
	ErrClaimLost = errors.New("video already claimed")

	// ErrExtractionFailed: the sampler returned no frames or failed.
	ErrExtractionFailed = errors.New("frame extraction failed")

	// ErrUploadFailed: the archive could not be stored.
	ErrUploadFailed = errors.New("archive upload failed")
)

type ProcessVideoUseCase struct {
	repo      port.VideoRepository
	storage   port.ObjectStorage
	sampler   port.FrameSampler
	zipper    port.Zipper
	publisher port.NotificationPublisher
	logger    *zap.Logger

	tempDir    string
	frameCount int
}

type ProcessVideoConfig struct {
	TempDir    string
	FrameCount int
}

func NewProcessVideoUseCase(
	repo port.VideoRepository,
	storage port.ObjectStorage,
	sampler port.FrameSampler,
	zipper port.Zipper,
	publisher port.NotificationPublisher,
	logger *zap.Logger,
	cfg ProcessVideoConfig,
) *ProcessVideoUseCase {
	if cfg.FrameCount < 1 {
		cfg.FrameCount = 4
	}
	return &ProcessVideoUseCase{
		repo:       repo,
		storage:    storage,
		sampler:    sampler,
		zipper:     zipper,
		publisher:  publisher,
		logger:     logger,
		tempDir:    cfg.TempDir,
		frameCount: cfg.FrameCount,
	}
}

// ArchiveKeyFor derives the deterministic destination key for a source
// key: basename, extension stripped, under ArchivePrefix.
func ArchiveKeyFor(sourceKey string) string {
	base := filepath.Base(sourceKey)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return ArchivePrefix + base + ".zip"
}

// Execute drives one video through Pending -> Processing -> {Done, Error}.
// Errors are terminal for this delivery and never escalate to the caller's
// poll loop; duplicates are rejected by the status guard before any side
// effect happens.
func (uc *ProcessVideoUseCase) Execute(ctx context.Context, item entity.VideoProcessingMessage) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ProcessVideoUseCase.Execute")
	defer span.End()

	span.SetAttributes(
		attribute.String("video.id", item.VideoID),
		attribute.String("video.source_key", item.VideoKey),
	)

	log := uc.logger.With(zap.String("video_id", item.VideoID), zap.String("source_key", item.VideoKey))
	totalTimer := time.Now()

	video, user, err := uc.repo.GetVideoWithUser(ctx, item.VideoID)
	if err != nil {
		log.Error("failed to load video record", zap.Error(err))
		metrics.VideosProcessedTotal.WithLabelValues("not_found").Inc()
		return err
	}

	if video.Status != entity.StatusPending {
		log.Warn("video is not pending, dropping delivery",
			zap.String("status", video.Status.String()),
		)
		metrics.VideosProcessedTotal.WithLabelValues("rejected").Inc()
		return fmt.Errorf("%w: status is %s", ErrNotPending, video.Status)
	}

	claimed, err := uc.repo.UpdateStatus(ctx, video.ID, entity.StatusPending, entity.StatusProcessing, "")
	if err != nil {
		log.Error("failed to claim video", zap.Error(err))
		return fmt.Errorf("claim video: %w", err)
	}
	if !claimed {
		log.Warn("lost claim race, dropping delivery")
		metrics.VideosProcessedTotal.WithLabelValues("rejected").Inc()
		return ErrClaimLost
	}

	if err := uc.runPipeline(ctx, video, user, item, log); err != nil {
		uc.compensate(ctx, video, user, err, log)
		metrics.VideosProcessedTotal.WithLabelValues("error").Inc()
		return err
	}

	metrics.VideosProcessedTotal.WithLabelValues("done").Inc()
	metrics.ProcessingDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())
	return nil
}

// runPipeline covers the claimed part of the workflow: materialize, sample,
// package, upload, finalize, notify. All scratch files live in a dedicated
// directory removed on every exit path.
func (uc *ProcessVideoUseCase) runPipeline(
	ctx context.Context,
	video *entity.Video,
	user *entity.User,
	item entity.VideoProcessingMessage,
	log *zap.Logger,
) error {
	tracer := otel.Tracer("usecase")

	workDir := filepath.Join(uc.tempDir, video.ID+"-"+uuid.NewString())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("create workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	// Fetch and materialize the source bytes.
	dlStart := time.Now()
	dlCtx, dlSpan := tracer.Start(ctx, "download_source")
	data, err := uc.storage.GetBytes(dlCtx, item.VideoKey)
	dlSpan.End()
	if err != nil {
		return fmt.Errorf("download source: %w", err)
	}
	metrics.ProcessingDuration.WithLabelValues("download").Observe(time.Since(dlStart).Seconds())

	videoPath := filepath.Join(workDir, "source"+filepath.Ext(item.VideoKey))
	if err := os.WriteFile(videoPath, data, 0o644); err != nil {
		return fmt.Errorf("write source file: %w", err)
	}

	// Sample frames.
	exStart := time.Now()
	framesDir := filepath.Join(workDir, "frames")
	if err := os.MkdirAll(framesDir, 0o755); err != nil {
		return fmt.Errorf("create frames dir: %w", err)
	}
	exCtx, exSpan := tracer.Start(ctx, "sample_frames")
	frames, err := uc.sampler.SampleFrames(exCtx, videoPath, framesDir, uc.frameCount)
	exSpan.End()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	if len(frames) == 0 {
		return fmt.Errorf("%w: sampler returned no frames", ErrExtractionFailed)
	}
	metrics.ProcessingDuration.WithLabelValues("sample").Observe(time.Since(exStart).Seconds())
	metrics.FramesSampledTotal.Add(float64(len(frames)))

	// Package.
	zipStart := time.Now()
	zipPath := filepath.Join(workDir, "frames.zip")
	zipCtx, zipSpan := tracer.Start(ctx, "create_zip")
	err = uc.zipper.CreateZip(zipCtx, frames, zipPath)
	zipSpan.End()
	if err != nil {
		return fmt.Errorf("create zip: %w", err)
	}
	metrics.ProcessingDuration.WithLabelValues("zip").Observe(time.Since(zipStart).Seconds())

	// Upload.
	upStart := time.Now()
	zipKey := ArchiveKeyFor(item.VideoKey)
	upCtx, upSpan := tracer.Start(ctx, "upload_archive")
	err = uc.storage.PutFile(upCtx, zipPath, zipKey)
	upSpan.End()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	metrics.ProcessingDuration.WithLabelValues("upload").Observe(time.Since(upStart).Seconds())

	// Finalize: the zip key is written only together with the Done swap.
	done, err := uc.repo.UpdateStatus(ctx, video.ID, entity.StatusProcessing, entity.StatusDone, zipKey)
	if err != nil {
		return fmt.Errorf("finalize status: %w", err)
	}
	if !done {
		return fmt.Errorf("finalize status: %w", ErrClaimLost)
	}

	uc.notify(ctx, video, user, entity.NotificationDone, "Pronto para download: "+zipKey, log)

	log.Info("video processed",
		zap.Int("frame_count", len(frames)),
		zap.String("zip_key", zipKey),
	)
	return nil
}

// compensate is the failure path after a successful claim: best-effort swap
// to Error plus a best-effort Error notification. Neither escalates.
func (uc *ProcessVideoUseCase) compensate(ctx context.Context, video *entity.Video, user *entity.User, cause error, log *zap.Logger) {
	log.Error("processing failed, marking video as error", zap.Error(cause))

	swapped, err := uc.repo.UpdateStatus(ctx, video.ID, entity.StatusProcessing, entity.StatusError, "")
	if err != nil {
		log.Error("failed to mark video as error", zap.Error(err))
	} else if !swapped {
		log.Warn("error swap rejected, record no longer processing")
	}

	uc.notify(ctx, video, user, entity.NotificationError, "Falha no processamento do vídeo: "+cause.Error(), log)
}

func (uc *ProcessVideoUseCase) notify(ctx context.Context, video *entity.Video, user *entity.User, status, message string, log *zap.Logger) {
	title := video.Title
	if title == "" {
		title = video.VideoName
	}
	n := entity.StatusNotification{
		Title:     title,
		Status:    status,
		Message:   message,
		UserEmail: user.Email,
		UserName:  user.Name,
	}
	if err := uc.publisher.Publish(ctx, n); err != nil {
		// The terminal status is already committed; the send is not retried.
		metrics.NotificationFailuresTotal.Inc()
		log.Error("failed to publish notification",
			zap.String("status", status),
			zap.Error(err),
		)
	}
}
