package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/postflow/internal/models"
)

type PostMediaRepository interface {
	ListByPostID(ctx context.Context, postID int64) ([]*models.MediaAsset, error)
}

type postMediaRepository struct {
	db *sql.DB
}

func NewPostMediaRepository(db *sql.DB) PostMediaRepository {
	return &postMediaRepository{db: db}
}

func (r *postMediaRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.MediaAsset, error) {
	query := `
		SELECT id, post_id, file_url, file_key, mime_type, file_size, width, height, position, created_at
		FROM post_media
		WHERE post_id = $1
		ORDER BY position, id
	`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var assets []*models.MediaAsset
	for rows.Next() {
		var (
			ma      models.MediaAsset
			fileURL sql.NullString
			fileKey sql.NullString
		)
		if err := rows.Scan(&ma.ID, &ma.PostID, &fileURL, &fileKey, &ma.MimeType, &ma.FileSize,
			&ma.Width, &ma.Height, &ma.Position, &ma.CreatedAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		ma.FileURL = fileURL.String
		ma.FileKey = fileKey.String
		assets = append(assets, &ma)
	}

	if err = rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return assets, nil
}
