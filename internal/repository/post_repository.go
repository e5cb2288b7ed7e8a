package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
)

// ErrPostNotPending is returned when a write guarded by the pending status
// matched no row: the post moved on (published, failed, cancelled) or vanished.
var ErrPostNotPending = errors.New("post is not pending")

// PostStatusUpdate carries the publish-related fields written with a status
// change. Empty remote fields and a nil PublishedAt keep the stored values.
type PostStatusUpdate struct {
	Status        string
	RetryCount    int
	ErrorMessage  string
	RemotePostID  string
	RemotePostURL string
	PublishedAt   *time.Time
}

type PostRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	UpdatePostStatus(ctx context.Context, postID int64, update PostStatusUpdate) error
	UpdateScheduledTime(ctx context.Context, postID int64, scheduledTime time.Time) error
	Cancel(ctx context.Context, postID int64) error
	ResetFailed(ctx context.Context, postID int64) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, user_id, account_id, platform, post_type, caption, scheduled_time, status,
	remote_post_id, remote_post_url, retry_count, error_message, published_at, created_at, updated_at`

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	var (
		post          models.Post
		remotePostID  sql.NullString
		remotePostURL sql.NullString
		errorMessage  sql.NullString
		publishedAt   sql.NullTime
	)
	err := row.Scan(&post.ID, &post.UserID, &post.AccountID, &post.Platform, &post.PostType, &post.Caption,
		&post.ScheduledTime, &post.Status, &remotePostID, &remotePostURL, &post.RetryCount, &errorMessage,
		&publishedAt, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	post.RemotePostID = remotePostID.String
	post.RemotePostURL = remotePostURL.String
	post.ErrorMessage = errorMessage.String
	if publishedAt.Valid {
		post.PublishedAt = &publishedAt.Time
	}

	return &post, nil
}

// UpdatePostStatus only touches a post that is still pending, which keeps
// terminal posts immutable even when a stale attempt finishes late.
func (r *postRepository) UpdatePostStatus(ctx context.Context, postID int64, update PostStatusUpdate) error {
	query := `
		UPDATE posts
		SET status = $1,
			retry_count = $2,
			error_message = $3,
			remote_post_id = COALESCE(NULLIF($4, ''), remote_post_id),
			remote_post_url = COALESCE(NULLIF($5, ''), remote_post_url),
			published_at = COALESCE($6, published_at),
			updated_at = $7
		WHERE id = $8 AND status = $9
	`

	var publishedAt sql.NullTime
	if update.PublishedAt != nil {
		publishedAt = sql.NullTime{Time: *update.PublishedAt, Valid: true}
	}

	result, err := r.db.ExecContext(ctx, query, update.Status, update.RetryCount, update.ErrorMessage,
		update.RemotePostID, update.RemotePostURL, publishedAt, time.Now(), postID, models.PostStatusPending)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	return expectOneRow(result)
}

func (r *postRepository) UpdateScheduledTime(ctx context.Context, postID int64, scheduledTime time.Time) error {
	query := `
		UPDATE posts
		SET scheduled_time = $1,
			updated_at = $2
		WHERE id = $3 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query, scheduledTime, time.Now(), postID, models.PostStatusPending)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return expectOneRow(result)
}

func (r *postRepository) Cancel(ctx context.Context, postID int64) error {
	query := `
		UPDATE posts
		SET status = $1,
			updated_at = $2
		WHERE id = $3 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query, models.PostStatusCancelled, time.Now(), postID, models.PostStatusPending)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return expectOneRow(result)
}

// ResetFailed moves a permanently failed post back to pending with a zeroed
// retry counter so it can be scheduled again.
func (r *postRepository) ResetFailed(ctx context.Context, postID int64) error {
	query := `
		UPDATE posts
		SET status = $1,
			retry_count = 0,
			error_message = '',
			updated_at = $2
		WHERE id = $3 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query, models.PostStatusPending, time.Now(), postID, models.PostStatusFailed)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected != 1 {
		return errors.New("post is not in failed state")
	}
	return nil
}

func expectOneRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected != 1 {
		return ErrPostNotPending
	}
	return nil
}
