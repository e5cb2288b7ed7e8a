package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/repository"
)

var (
	ErrPostNotFound     = errors.New("post not found")
	ErrPostNotPending   = errors.New("post is not pending")
	ErrPostNotFailed    = errors.New("post is not in failed state")
	ErrPostNotPublished = errors.New("post has not been published")
	ErrInvalidMedia     = errors.New("media does not satisfy platform rules")
)

// PublishScheduler places and removes delayed publish tasks.
type PublishScheduler interface {
	Schedule(ctx context.Context, postID int64, at time.Time) error
	Reschedule(ctx context.Context, postID int64, oldAt, newAt time.Time) error
	Cancel(ctx context.Context, postID int64) error
}

// PostService is the post-management side of the pipeline. It keeps the
// stored post and the broker in step; the Worker owns everything after the
// task fires.
type PostService interface {
	Schedule(ctx context.Context, userID, postID int64, at time.Time) (*MediaValidation, error)
	Reschedule(ctx context.Context, userID, postID int64, at time.Time) error
	Cancel(ctx context.Context, userID, postID int64) error
	Retry(ctx context.Context, userID, postID int64) error
	History(ctx context.Context, userID, postID int64) ([]*models.ExecutionRecord, error)
	RemoteStatus(ctx context.Context, userID, postID int64) (*RemotePostStatus, error)
}

type postService struct {
	pr          repository.PostRepository
	pm          repository.PostMediaRepository
	er          repository.ExecutionRecordRepository
	sa          repository.SocialAccountRepository
	registry    *AdapterRegistry
	credentials CredentialService
	scheduler   PublishScheduler
	now         func() time.Time
}

func NewPostService(
	pr repository.PostRepository,
	pm repository.PostMediaRepository,
	er repository.ExecutionRecordRepository,
	sa repository.SocialAccountRepository,
	registry *AdapterRegistry,
	credentials CredentialService,
	scheduler PublishScheduler) PostService {
	return &postService{
		pr:          pr,
		pm:          pm,
		er:          er,
		sa:          sa,
		registry:    registry,
		credentials: credentials,
		scheduler:   scheduler,
		now:         time.Now,
	}
}

func (s *postService) ownedPost(ctx context.Context, userID, postID int64) (*models.Post, error) {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil || post.UserID != userID {
		return nil, ErrPostNotFound
	}
	return post, nil
}

// Schedule validates the post's media against its platform and enqueues the
// publish task. The validation result is returned in both cases so callers
// can show errors and warnings.
func (s *postService) Schedule(ctx context.Context, userID, postID int64, at time.Time) (*MediaValidation, error) {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if post.IsTerminal() {
		return nil, ErrPostNotPending
	}

	adapter, err := s.registry.Resolve(post.Platform)
	if err != nil {
		return nil, err
	}

	media, err := s.pm.ListByPostID(ctx, post.ID)
	if err != nil {
		return nil, err
	}

	validation := adapter.ValidateMedia(media, post.PostType)
	if !validation.Valid {
		return &validation, ErrInvalidMedia
	}

	if err := s.pr.UpdateScheduledTime(ctx, post.ID, at); err != nil {
		return nil, s.mapNotPending(err)
	}
	if err := s.scheduler.Schedule(ctx, post.ID, at); err != nil {
		return nil, fmt.Errorf("schedule post %d: %w", post.ID, err)
	}

	slog.Info("post scheduled", "post_id", post.ID, "platform", post.Platform, "at", at)
	return &validation, nil
}

func (s *postService) Reschedule(ctx context.Context, userID, postID int64, at time.Time) error {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return err
	}
	if post.IsTerminal() {
		return ErrPostNotPending
	}
	if err := s.pr.UpdateScheduledTime(ctx, post.ID, at); err != nil {
		return s.mapNotPending(err)
	}
	if err := s.scheduler.Reschedule(ctx, post.ID, post.ScheduledTime, at); err != nil {
		return fmt.Errorf("reschedule post %d: %w", post.ID, err)
	}
	return nil
}

// Cancel marks the post cancelled before removing its tasks. A task that is
// already running sees the new status and skips.
func (s *postService) Cancel(ctx context.Context, userID, postID int64) error {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return err
	}

	if err := s.pr.Cancel(ctx, post.ID); err != nil {
		return s.mapNotPending(err)
	}
	if err := s.scheduler.Cancel(ctx, post.ID); err != nil {
		slog.Warn("removing publish tasks failed", "post_id", post.ID, "error", err)
	}
	return nil
}

// Retry puts a failed post back to pending and publishes it right away.
func (s *postService) Retry(ctx context.Context, userID, postID int64) error {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return err
	}
	if post.Status != models.PostStatusFailed {
		return ErrPostNotFailed
	}

	if err := s.pr.ResetFailed(ctx, post.ID); err != nil {
		return ErrPostNotFailed
	}

	now := s.now()
	if err := s.pr.UpdateScheduledTime(ctx, post.ID, now); err != nil {
		return s.mapNotPending(err)
	}
	return s.scheduler.Schedule(ctx, post.ID, now)
}

func (s *postService) History(ctx context.Context, userID, postID int64) ([]*models.ExecutionRecord, error) {
	if _, err := s.ownedPost(ctx, userID, postID); err != nil {
		return nil, err
	}
	return s.er.ListByPostID(ctx, postID)
}

func (s *postService) RemoteStatus(ctx context.Context, userID, postID int64) (*RemotePostStatus, error) {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if post.Status != models.PostStatusPublished || post.RemotePostID == "" {
		return nil, ErrPostNotPublished
	}

	acc, err := s.sa.GetByID(ctx, post.AccountID)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, ErrAccountNotFound
	}

	adapter, err := s.registry.Resolve(post.Platform)
	if err != nil {
		return nil, err
	}
	cred, err := s.credentials.EnsureFresh(ctx, acc, adapter)
	if err != nil {
		return nil, err
	}

	return adapter.GetPostStatus(ctx, cred, post.RemotePostID)
}

func (s *postService) mapNotPending(err error) error {
	if errors.Is(err, repository.ErrPostNotPending) {
		return ErrPostNotPending
	}
	return err
}
