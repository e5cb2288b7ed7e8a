package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hibiken/asynq"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/internal/service"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Worker runs one publish attempt per dequeued task. It is the only writer of
// a post's publish status.
type Worker struct {
	posts       repository.PostRepository
	media       repository.PostMediaRepository
	records     repository.ExecutionRecordRepository
	accounts    repository.SocialAccountRepository
	registry    *service.AdapterRegistry
	credentials service.CredentialService
	maxAttempts int
	retry       RetryPolicy
	now         func() time.Time

	// storeBackOff bounds the retries of a single database call inside one
	// attempt.
	storeBackOff func() backoff.BackOff
}

func NewWorker(
	posts repository.PostRepository,
	media repository.PostMediaRepository,
	records repository.ExecutionRecordRepository,
	accounts repository.SocialAccountRepository,
	registry *service.AdapterRegistry,
	credentials service.CredentialService,
	maxAttempts int,
	retry RetryPolicy) *Worker {
	return &Worker{
		posts:       posts,
		media:       media,
		records:     records,
		accounts:    accounts,
		registry:    registry,
		credentials: credentials,
		maxAttempts: maxAttempts,
		retry:       retry,
		now:         time.Now,
		storeBackOff: func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewConstantBackOff(500*time.Millisecond), 2)
		},
	}
}

// Report describes a finished attempt.
type Report struct {
	AttemptID  string
	Outcome    Outcome
	Transition Transition
	Message    string
}

type attempt struct {
	outcome   Outcome
	message   string
	errorCode string
	result    *service.PublishResult
}

func retryable(err error, code string) attempt {
	return attempt{outcome: OutcomeRetryable, message: err.Error(), errorCode: code}
}

func terminal(err error, code string) attempt {
	return attempt{outcome: OutcomeTerminal, message: err.Error(), errorCode: code}
}

// HandlePublishPostTask is the asynq handler. It returns an error only when
// the attempt asks for another try, so asynq's retry and the post's retry
// count move together.
func (w *Worker) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	payload, err := parsePayload(task.Payload())
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	report, err := w.Execute(ctx, payload.PostID)
	if err != nil {
		return err
	}
	if report.Transition.WillRetry {
		return fmt.Errorf("post %d attempt %s: %s", payload.PostID, report.AttemptID, report.Message)
	}
	return nil
}

// Execute runs one attempt for postID and records it. asynq's own retry
// count for the task is read from ctx.
func (w *Worker) Execute(ctx context.Context, postID int64) (*Report, error) {
	brokerRetries, _ := asynq.GetRetryCount(ctx)
	return w.run(ctx, postID, brokerRetries)
}

// run takes the larger of the post's and the broker's retry counts, so a
// delivery that never reached the database still uses up an attempt.
func (w *Worker) run(ctx context.Context, postID int64, brokerRetries int) (*Report, error) {
	start := w.now()

	attemptID, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("generate attempt id: %w", err)
	}

	var (
		a       attempt
		retries = brokerRetries
	)

	post, err := w.loadPost(ctx, postID)
	switch {
	case err != nil:
		a = retryable(fmt.Errorf("load post: %w", err), "storage_error")
	case post == nil:
		// Nothing to record against: the row is gone.
		slog.Info("publish attempt skipped", "post_id", postID, "attempt_id", attemptID, "reason", "post no longer exists")
		return &Report{AttemptID: attemptID, Outcome: OutcomeSkip, Transition: Decide(OutcomeSkip, retries, w.maxAttempts), Message: "post no longer exists"}, nil
	case post.Status != models.PostStatusPending:
		a = attempt{outcome: OutcomeSkip, message: fmt.Sprintf("post is %s", post.Status)}
		retries = post.RetryCount
	default:
		retries = max(post.RetryCount, brokerRetries)
		a = w.publishOnce(ctx, post)
	}

	tr := Decide(a.outcome, retries, w.maxAttempts)
	if post == nil {
		tr.Persist = false
	}

	if tr.Persist {
		if err := w.persist(ctx, post, a, tr); err != nil {
			tr = w.persistFailed(postID, attemptID, &a, tr, brokerRetries, err)
		}
	}

	duration := w.now().Sub(start)
	w.record(ctx, postID, attemptID, a, tr, duration)

	logAttrs := []any{
		"post_id", postID,
		"attempt_id", attemptID,
		"outcome", a.outcome.String(),
		"status", tr.PostStatus,
		"retry_count", tr.RetryCount,
		"duration_ms", duration.Milliseconds(),
	}
	switch {
	case tr.WillRetry:
		slog.Warn("publish attempt failed, retrying", append(logAttrs, "next_in", w.retry.Delay(tr.RetryCount-1), "error", a.message)...)
	case a.outcome == OutcomeSuccess:
		slog.Info("post published", logAttrs...)
	case a.outcome == OutcomeSkip:
		slog.Info("publish attempt skipped", append(logAttrs, "reason", a.message)...)
	default:
		slog.Error("post failed", append(logAttrs, "error", a.message)...)
	}

	return &Report{
		AttemptID:  attemptID,
		Outcome:    a.outcome,
		Transition: tr,
		Message:    a.message,
	}, nil
}

// persistFailed settles an attempt whose status write did not go through.
// After a remote publish the task is never retried: another delivery would
// publish again. Otherwise the broker retries while it has budget left and
// the next delivery writes the status.
func (w *Worker) persistFailed(postID int64, attemptID string, a *attempt, tr Transition, brokerRetries int, err error) Transition {
	if errors.Is(err, repository.ErrPostNotPending) {
		// Cancelled or edited while the attempt ran. Leave it alone.
		slog.Warn("post left pending state during attempt", "post_id", postID, "attempt_id", attemptID)
		tr.WillRetry = false
		return tr
	}

	slog.Error("failed to write post status", "post_id", postID, "attempt_id", attemptID, "status", tr.PostStatus, "error", err)
	a.message = fmt.Sprintf("%s; status write failed: %v", a.message, err)
	if a.errorCode == "" {
		a.errorCode = "storage_error"
	}

	if a.outcome == OutcomeSuccess {
		tr.WillRetry = false
		return tr
	}

	tr.WillRetry = brokerRetries+1 < w.maxAttempts
	if tr.WillRetry {
		tr.RecordStatus = models.ExecutionStatusRetrying
	} else {
		tr.RecordStatus = models.ExecutionStatusFailed
	}
	return tr
}

func (w *Worker) loadPost(ctx context.Context, postID int64) (*models.Post, error) {
	var post *models.Post
	err := backoff.Retry(func() error {
		var err error
		post, err = w.posts.GetByID(ctx, postID)
		return err
	}, backoff.WithContext(w.storeBackOff(), ctx))
	return post, err
}

// publishOnce restores the status from an earlier published attempt whose
// status write was lost, instead of publishing a second time.
func (w *Worker) publishOnce(ctx context.Context, post *models.Post) attempt {
	records, err := w.records.ListByPostID(ctx, post.ID)
	if err != nil {
		return retryable(fmt.Errorf("load execution records: %w", err), "storage_error")
	}
	for _, rec := range records {
		if rec.Status != models.ExecutionStatusPublished {
			continue
		}
		var d publishedDetails
		if err := json.Unmarshal(rec.ErrorDetails, &d); err != nil || d.RemotePostID == "" {
			continue
		}
		return attempt{
			outcome: OutcomeSuccess,
			message: "already published in attempt " + rec.AttemptID,
			result: &service.PublishResult{
				Success:       true,
				RemotePostID:  d.RemotePostID,
				RemotePostURL: d.RemotePostURL,
				PublishedAt:   d.PublishedAt,
			},
		}
	}
	return w.attempt(ctx, post)
}

type publishedDetails struct {
	RemotePostID  string    `json:"remote_post_id"`
	RemotePostURL string    `json:"remote_post_url,omitempty"`
	PublishedAt   time.Time `json:"published_at"`
}

func (w *Worker) attempt(ctx context.Context, post *models.Post) attempt {
	adapter, err := w.registry.Resolve(post.Platform)
	if err != nil {
		return terminal(err, "unsupported_platform")
	}

	media, err := w.media.ListByPostID(ctx, post.ID)
	if err != nil {
		return retryable(fmt.Errorf("load media: %w", err), "")
	}

	validation := adapter.ValidateMedia(media, post.PostType)
	if !validation.Valid {
		return terminal(errors.New(strings.Join(validation.Errors, "; ")), "invalid_media")
	}

	acc, err := w.accounts.GetByID(ctx, post.AccountID)
	if err != nil {
		return retryable(fmt.Errorf("load account: %w", err), "")
	}
	if acc == nil || !acc.IsActive {
		return terminal(fmt.Errorf("account %d is not connected", post.AccountID), "account_inactive")
	}

	cred, err := w.credentials.EnsureFresh(ctx, acc, adapter)
	if err != nil {
		if service.IsConfigurationError(err) {
			return terminal(err, "missing_credential")
		}
		return retryable(err, "credential_refresh")
	}

	req := service.PublishRequest{
		Post:        post,
		Media:       models.SortByPosition(media),
		AccountID:   acc.AccountID,
		AccessToken: cred.AccessToken,
	}

	var res *service.PublishResult
	if post.PostType == models.PostTypeReel {
		res, err = adapter.PublishReel(ctx, req)
	} else {
		res, err = adapter.PublishPost(ctx, req)
	}
	if err != nil {
		if service.IsConfigurationError(err) {
			return terminal(err, "configuration_error")
		}
		return retryable(err, "")
	}
	if !res.Success {
		return attempt{outcome: OutcomeRetryable, message: res.Error, errorCode: res.ErrorCode, result: res}
	}

	return attempt{
		outcome: OutcomeSuccess,
		message: "published " + res.RemotePostURL,
		result:  res,
	}
}

func (w *Worker) persist(ctx context.Context, post *models.Post, a attempt, tr Transition) error {
	update := repository.PostStatusUpdate{
		Status:     tr.PostStatus,
		RetryCount: tr.RetryCount,
	}
	if a.outcome == OutcomeSuccess {
		publishedAt := a.result.PublishedAt
		if publishedAt.IsZero() {
			publishedAt = w.now()
		}
		update.RemotePostID = a.result.RemotePostID
		update.RemotePostURL = a.result.RemotePostURL
		update.PublishedAt = &publishedAt
	} else {
		update.ErrorMessage = a.message
	}
	return backoff.Retry(func() error {
		err := w.posts.UpdatePostStatus(ctx, post.ID, update)
		if errors.Is(err, repository.ErrPostNotPending) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(w.storeBackOff(), ctx))
}

// record appends the attempt's execution record. A failed write is logged;
// the post status is already the source of truth.
func (w *Worker) record(ctx context.Context, postID int64, attemptID string, a attempt, tr Transition, duration time.Duration) {
	rec := &models.ExecutionRecord{
		AttemptID:  attemptID,
		PostID:     postID,
		Status:     tr.RecordStatus,
		Message:    a.message,
		WillRetry:  tr.WillRetry,
		DurationMs: duration.Milliseconds(),
	}

	var details any
	switch {
	case a.outcome == OutcomeRetryable || a.outcome == OutcomeTerminal:
		details = map[string]any{
			"error_code":   a.errorCode,
			"outcome":      a.outcome.String(),
			"retry_count":  tr.RetryCount,
			"max_attempts": w.maxAttempts,
		}
	case a.outcome == OutcomeSuccess && a.result != nil:
		// Kept so a later delivery can restore the status without publishing.
		details = publishedDetails{
			RemotePostID:  a.result.RemotePostID,
			RemotePostURL: a.result.RemotePostURL,
			PublishedAt:   a.result.PublishedAt,
		}
	}
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			rec.ErrorDetails = raw
		}
	}

	if _, err := w.records.Create(ctx, rec); err != nil {
		slog.Error("failed to append execution record", "post_id", postID, "attempt_id", attemptID, "error", err)
	}
}
