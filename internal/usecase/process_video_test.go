package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ClipToZip/hackaton-soat11-videoprc/internal/domain/entity"
	"github.com/ClipToZip/hackaton-soat11-videoprc/internal/domain/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// statusSwap records one UpdateStatus call.
type statusSwap struct {
	from, to entity.VideoStatus
	zipName  string
}

type fakeRepo struct {
	mu     sync.Mutex
	video  *entity.Video
	user   *entity.User
	getErr error

	swapErr error
	swaps   []statusSwap
}

func (f *fakeRepo) GetVideoWithUser(ctx context.Context, videoID string) (*entity.Video, *entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, nil, f.getErr
	}
	v := *f.video
	u := *f.user
	return &v, &u, nil
}

func (f *fakeRepo) UpdateStatus(ctx context.Context, videoID string, from, to entity.VideoStatus, zipName string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.swapErr != nil {
		return false, f.swapErr
	}
	if f.video.Status != from {
		return false, nil
	}
	f.video.Status = to
	if zipName != "" {
		f.video.ZipName = zipName
	}
	f.swaps = append(f.swaps, statusSwap{from: from, to: to, zipName: zipName})
	return true, nil
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	getErr  error
	putErr  error
	puts    []string
}

func (f *fakeStorage) GetBytes(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("object not found: " + key)
	}
	return data, nil
}

func (f *fakeStorage) PutFile(ctx context.Context, localPath, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.puts = append(f.puts, key)
	return nil
}

func (f *fakeStorage) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok, nil
}

type fakeSampler struct {
	frames    int
	sampleErr error
}

func (f *fakeSampler) SampleFrames(ctx context.Context, videoPath, outputDir string, count int) ([]string, error) {
	if f.sampleErr != nil {
		return nil, f.sampleErr
	}
	paths := make([]string, 0, f.frames)
	for i := 0; i < f.frames; i++ {
		paths = append(paths, filepath.Join(outputDir, "frame_"+string(rune('a'+i))+".jpg"))
	}
	return paths, nil
}

type fakeZipper struct{ zipErr error }

func (f *fakeZipper) CreateZip(ctx context.Context, filePaths []string, outputPath string) error {
	if f.zipErr != nil {
		return f.zipErr
	}
	return os.WriteFile(outputPath, []byte("zip"), 0o644)
}

type fakePublisher struct {
	mu         sync.Mutex
	published  []entity.StatusNotification
	publishErr error
}

func (f *fakePublisher) Publish(ctx context.Context, n entity.StatusNotification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, n)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fixture struct {
	repo      *fakeRepo
	storage   *fakeStorage
	sampler   *fakeSampler
	zipper    *fakeZipper
	publisher *fakePublisher
	tempDir   string
	uc        *ProcessVideoUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo: &fakeRepo{
			video: &entity.Video{
				ID:        "vid-1",
				UserID:    "user-1",
				Status:    entity.StatusPending,
				VideoName: "ferias.mp4",
			},
			user: &entity.User{ID: "user-1", Name: "Ana", Email: "ana@example.com"},
		},
		storage: &fakeStorage{
			objects: map[string][]byte{"uploads/ferias.mp4": []byte("video bytes")},
		},
		sampler:   &fakeSampler{frames: 4},
		zipper:    &fakeZipper{},
		publisher: &fakePublisher{},
		tempDir:   t.TempDir(),
	}
	f.uc = NewProcessVideoUseCase(
		f.repo, f.storage, f.sampler, f.zipper, f.publisher,
		zap.NewNop(),
		ProcessVideoConfig{TempDir: f.tempDir, FrameCount: 4},
	)
	return f
}

func workItem() entity.VideoProcessingMessage {
	return entity.VideoProcessingMessage{VideoID: "vid-1", VideoKey: "uploads/ferias.mp4"}
}

func TestExecuteHappyPath(t *testing.T) {
	f := newFixture(t)

	err := f.uc.Execute(context.Background(), workItem())
	require.NoError(t, err)

	// Pending -> Processing -> Done, zip key written with the final swap.
	require.Len(t, f.repo.swaps, 2)
	assert.Equal(t, statusSwap{entity.StatusPending, entity.StatusProcessing, ""}, f.repo.swaps[0])
	assert.Equal(t, statusSwap{entity.StatusProcessing, entity.StatusDone, "archive/ferias.zip"}, f.repo.swaps[1])
	assert.Equal(t, entity.StatusDone, f.repo.video.Status)

	// One upload under the derived archive key.
	assert.Equal(t, []string{"archive/ferias.zip"}, f.storage.puts)

	// Exactly one Done notification addressed to the owner.
	require.Len(t, f.publisher.published, 1)
	n := f.publisher.published[0]
	assert.Equal(t, entity.NotificationDone, n.Status)
	assert.Equal(t, "ferias.mp4", n.Title)
	assert.Equal(t, "ana@example.com", n.UserEmail)
	assert.Equal(t, "Ana", n.UserName)
	assert.Contains(t, n.Message, "archive/ferias.zip")
}

func TestExecuteCleansScratchDir(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.uc.Execute(context.Background(), workItem()))

	entries, err := os.ReadDir(f.tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch directory must be removed on success")
}

func TestExecuteVideoNotFound(t *testing.T) {
	f := newFixture(t)
	f.repo.getErr = port.ErrVideoNotFound

	err := f.uc.Execute(context.Background(), workItem())
	assert.ErrorIs(t, err, port.ErrVideoNotFound)

	// No writes, no notifications.
	assert.Empty(t, f.repo.swaps)
	assert.Empty(t, f.publisher.published)
}

func TestExecuteRejectsNonPendingVideo(t *testing.T) {
	for _, status := range []entity.VideoStatus{entity.StatusProcessing, entity.StatusDone, entity.StatusError} {
		t.Run(status.String(), func(t *testing.T) {
			f := newFixture(t)
			f.repo.video.Status = status

			err := f.uc.Execute(context.Background(), workItem())
			assert.ErrorIs(t, err, ErrNotPending)

			// A duplicate delivery must leave no trace.
			assert.Empty(t, f.repo.swaps)
			assert.Empty(t, f.storage.puts)
			assert.Empty(t, f.publisher.published)
			assert.Equal(t, status, f.repo.video.Status)
		})
	}
}

func TestExecuteConcurrentDuplicates(t *testing.T) {
	f := newFixture(t)

	const deliveries = 8
	errs := make([]error, deliveries)
	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.uc.Execute(context.Background(), workItem())
		}(i)
	}
	wg.Wait()

	// Exactly one delivery wins the claim; the rest abort without writes.
	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.True(t, errors.Is(err, ErrNotPending) || errors.Is(err, ErrClaimLost),
				"loser must fail on the status guard, got: %v", err)
		}
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, entity.StatusDone, f.repo.video.Status)
	assert.Len(t, f.storage.puts, 1)
	assert.Len(t, f.publisher.published, 1)
}

func TestExecuteDownloadFailureMarksError(t *testing.T) {
	f := newFixture(t)
	f.storage.getErr = errors.New("connection reset")

	err := f.uc.Execute(context.Background(), workItem())
	require.Error(t, err)

	// Claimed, then compensated: Processing -> Error, no zip name.
	require.Len(t, f.repo.swaps, 2)
	assert.Equal(t, statusSwap{entity.StatusProcessing, entity.StatusError, ""}, f.repo.swaps[1])
	assert.Equal(t, entity.StatusError, f.repo.video.Status)
	assert.Empty(t, f.repo.video.ZipName)

	require.Len(t, f.publisher.published, 1)
	assert.Equal(t, entity.NotificationError, f.publisher.published[0].Status)
}

func TestExecuteNoFramesMarksError(t *testing.T) {
	f := newFixture(t)
	f.sampler.frames = 0

	err := f.uc.Execute(context.Background(), workItem())
	assert.ErrorIs(t, err, ErrExtractionFailed)

	assert.Equal(t, entity.StatusError, f.repo.video.Status)
	assert.Empty(t, f.storage.puts, "nothing may be uploaded without frames")

	require.Len(t, f.publisher.published, 1)
	assert.Equal(t, entity.NotificationError, f.publisher.published[0].Status)

	entries, rdErr := os.ReadDir(f.tempDir)
	require.NoError(t, rdErr)
	assert.Empty(t, entries, "scratch directory must be removed on failure")
}

func TestExecuteUploadFailureMarksError(t *testing.T) {
	f := newFixture(t)
	f.storage.putErr = errors.New("bucket gone")

	err := f.uc.Execute(context.Background(), workItem())
	assert.ErrorIs(t, err, ErrUploadFailed)

	assert.Equal(t, entity.StatusError, f.repo.video.Status)
	assert.Empty(t, f.repo.video.ZipName)
}

func TestExecutePublishFailureDoesNotFailTheItem(t *testing.T) {
	f := newFixture(t)
	f.publisher.publishErr = errors.New("broker down")

	// The Done status is already committed; a lost notification must not
	// push the delivery back into retry.
	err := f.uc.Execute(context.Background(), workItem())
	assert.NoError(t, err)
	assert.Equal(t, entity.StatusDone, f.repo.video.Status)
}

func TestExecuteNotificationPrefersVideoTitle(t *testing.T) {
	f := newFixture(t)
	f.repo.video.Title = "Minhas férias"

	require.NoError(t, f.uc.Execute(context.Background(), workItem()))
	require.Len(t, f.publisher.published, 1)
	assert.Equal(t, "Minhas férias", f.publisher.published[0].Title)
}

func TestArchiveKeyFor(t *testing.T) {
	tests := []struct {
		sourceKey string
		want      string
	}{
		{"uploads/ferias.mp4", "archive/ferias.zip"},
		{"v1.mp4", "archive/v1.zip"},
		{"a/b/c/video.mov", "archive/video.zip"},
		{"noextension", "archive/noextension.zip"},
		{"uploads/dotted.name.mkv", "archive/dotted.name.zip"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ArchiveKeyFor(tt.sourceKey), tt.sourceKey)
	}
}
