package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
)

const (
	PlatformInstagram = "instagram"
	PlatformYoutube   = "youtube"
)

// Configuration faults. A post that hits one of these cannot succeed by
// retrying, so the worker fails it on first occurrence.
var (
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrUnsupportedPostKind = errors.New("unsupported post kind")
	ErrMalformedMedia      = errors.New("malformed media reference")
	ErrMissingCredential   = errors.New("missing account credential")
)

// IsConfigurationError reports whether err is a fault that retrying cannot fix.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrUnsupportedPlatform) ||
		errors.Is(err, ErrUnsupportedPostKind) ||
		errors.Is(err, ErrMalformedMedia) ||
		errors.Is(err, ErrMissingCredential)
}

// Credential is a decrypted account credential.
type Credential struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

type ConnectedAccount struct {
	AccountID      string
	Name           string
	Username       string
	ProfilePicture string
	Credential     Credential
}

type PublishRequest struct {
	Post        *models.Post
	Media       []*models.MediaAsset
	AccountID   string
	AccessToken string
}

// PublishResult is the normalized outcome of a publish call. Ordinary remote
// failures land here with Success=false instead of being returned as errors.
type PublishResult struct {
	Success       bool
	RemotePostID  string
	RemotePostURL string
	PublishedAt   time.Time
	Error         string
	ErrorCode     string
}

type MediaValidation struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

type RemotePostStatus struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Permalink string    `json:"permalink,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

type PlatformAdapter interface {
	Platform() string
	ConnectAccount(ctx context.Context, code string) (*ConnectedAccount, error)
	ValidateAccount(ctx context.Context, cred Credential) (bool, error)
	RefreshToken(ctx context.Context, refreshToken string) (*Credential, error)
	Disconnect(ctx context.Context, cred Credential) error
	ValidateMedia(assets []*models.MediaAsset, postType string) MediaValidation
	PublishPost(ctx context.Context, req PublishRequest) (*PublishResult, error)
	PublishReel(ctx context.Context, req PublishRequest) (*PublishResult, error)
	GetPostStatus(ctx context.Context, cred Credential, remotePostID string) (*RemotePostStatus, error)
}

type AuthExchangeError struct {
	Platform string
	Reason   string
	Err      error
}

func (e *AuthExchangeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s auth exchange failed: %s: %v", e.Platform, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s auth exchange failed: %s", e.Platform, e.Reason)
}

func (e *AuthExchangeError) Unwrap() error { return e.Err }

type RefreshError struct {
	Platform string
	Err      error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("%s token refresh failed: %v", e.Platform, e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }

func failedResult(err error, code string) *PublishResult {
	return &PublishResult{
		Success:   false,
		Error:     err.Error(),
		ErrorCode: code,
	}
}

// AuthURLProvider is implemented by adapters that connect accounts through
// an OAuth redirect.
type AuthURLProvider interface {
	AuthURL(state string) string
}
