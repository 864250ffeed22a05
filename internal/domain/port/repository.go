package port

import (
	"context"
	"errors"

	"github.com/ClipToZip/hackaton-soat11-videoprc/internal/domain/entity"
)

// ErrVideoNotFound is returned when no video row exists for the given id.
var ErrVideoNotFound = errors.New("video not found")

type VideoRepository interface {
	// GetVideoWithUser loads a video and its owning user in one read.
	GetVideoWithUser(ctx context.Context, videoID string) (*entity.Video, *entity.User, error)

	// UpdateStatus performs the optimistic status swap: the row is updated
	// only if its current status equals from. zipName is written alongside
	// the status when non-empty. Returns false when the guard rejected the
	// update (the row was not in the expected state).
	UpdateStatus(ctx context.Context, videoID string, from, to entity.VideoStatus, zipName string) (bool, error)
}
