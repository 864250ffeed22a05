package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ClipToZip/hackaton-soat11-videoprc/internal/domain/entity"
	"github.com/ClipToZip/hackaton-soat11-videoprc/internal/domain/port"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type VideoRepository struct {
	pool *pgxpool.Pool
}

func NewVideoRepository(pool *pgxpool.Pool) *VideoRepository {
	return &VideoRepository{pool: pool}
}

func (r *VideoRepository) GetVideoWithUser(ctx context.Context, videoID string) (*entity.Video, *entity.User, error) {
	query := `
		SELECT
			v.video_id, v.user_id, v.data_video_up, v.status,
			v.video_name, COALESCE(v.zip_name, ''), COALESCE(v.descricao, ''),
			COALESCE(v.titulo, ''), v.metadados,
			u.user_id, COALESCE(u.name, ''), u.email, u.created_at
		FROM cliptozip.videos v
		INNER JOIN cliptozip."user" u ON v.user_id = u.user_id
		WHERE v.video_id = $1`

	video := &entity.Video{}
	user := &entity.User{}
	var status int
	err := r.pool.QueryRow(ctx, query, videoID).Scan(
		&video.ID, &video.UserID, &video.UploadedAt, &status,
		&video.VideoName, &video.ZipName, &video.Description,
		&video.Title, &video.Metadata,
		&user.ID, &user.Name, &user.Email, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, fmt.Errorf("%w: %s", port.ErrVideoNotFound, videoID)
		}
		return nil, nil, fmt.Errorf("get video with user: %w", err)
	}
	video.Status = entity.VideoStatus(status)
	return video, user, nil
}

// UpdateStatus is the single-row compare-and-swap: the WHERE clause pins
// the expected pre-state so concurrent duplicate deliveries cannot both
// claim the same video.
func (r *VideoRepository) UpdateStatus(ctx context.Context, videoID string, from, to entity.VideoStatus, zipName string) (bool, error) {
	if zipName != "" {
		res, err := r.pool.Exec(ctx, `
			UPDATE cliptozip.videos
			SET status = $1, zip_name = $2
			WHERE video_id = $3 AND status = $4`,
			int(to), zipName, videoID, int(from))
		if err != nil {
			return false, fmt.Errorf("update status with zip_name: %w", err)
		}
		return res.RowsAffected() == 1, nil
	}

	res, err := r.pool.Exec(ctx, `
		UPDATE cliptozip.videos
		SET status = $1
		WHERE video_id = $2 AND status = $3`,
		int(to), videoID, int(from))
	if err != nil {
		return false, fmt.Errorf("update status: %w", err)
	}
	return res.RowsAffected() == 1, nil
}
