package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/models"
)

const (
	instagramTimestampLayout = "2006-01-02T15:04:05-0700"
	instagramAuthorizeURL    = "https://www.instagram.com/oauth/authorize"
	instagramScopes          = "instagram_business_basic,instagram_business_content_publish"
)

// Graph error code for an invalid or expired OAuth token.
const graphCodeInvalidToken = 190

var eligibleInstagramAccountTypes = map[string]bool{
	"BUSINESS":      true,
	"MEDIA_CREATOR": true,
}

type instagramAdapter struct {
	cfg          config.Instagram
	client       *GraphClient
	media        MediaURLResolver
	configured   bool
	imageTimeout time.Duration
	videoTimeout time.Duration
	now          func() time.Time
}

func NewInstagramAdapter(cfg config.Config, client *GraphClient, media MediaURLResolver) PlatformAdapter {
	return &instagramAdapter{
		cfg:          cfg.Instagram,
		client:       client,
		media:        media,
		configured:   cfg.Instagram.ClientID != "" && cfg.Instagram.ClientSecret != "",
		imageTimeout: cfg.Publish.ImageTimeout,
		videoTimeout: cfg.Publish.VideoTimeout,
		now:          time.Now,
	}
}

func (ig *instagramAdapter) Platform() string {
	return PlatformInstagram
}

func (ig *instagramAdapter) AuthURL(state string) string {
	q := url.Values{}
	q.Set("client_id", ig.cfg.ClientID)
	q.Set("redirect_uri", ig.cfg.RedirectURI)
	q.Set("response_type", "code")
	q.Set("scope", instagramScopes)
	if state != "" {
		q.Set("state", state)
	}
	return instagramAuthorizeURL + "?" + q.Encode()
}

func (ig *instagramAdapter) ConnectAccount(ctx context.Context, code string) (*ConnectedAccount, error) {
	if code == "" {
		return nil, &AuthExchangeError{Platform: PlatformInstagram, Reason: "authorization code is empty"}
	}
	if !ig.configured {
		return nil, &AuthExchangeError{Platform: PlatformInstagram, Reason: "client credentials are not configured"}
	}

	short, err := ig.client.ExchangeCode(ctx, code)
	if err != nil {
		return nil, &AuthExchangeError{Platform: PlatformInstagram, Reason: "code exchange", Err: err}
	}

	long, err := ig.client.LongLivedToken(ctx, short.AccessToken)
	if err != nil {
		return nil, &AuthExchangeError{Platform: PlatformInstagram, Reason: "long-lived token exchange", Err: err}
	}

	me, err := ig.client.Me(ctx, long.AccessToken)
	if err != nil {
		return nil, &AuthExchangeError{Platform: PlatformInstagram, Reason: "account lookup", Err: err}
	}
	if !eligibleInstagramAccountTypes[me.AccountType] {
		return nil, &AuthExchangeError{
			Platform: PlatformInstagram,
			Reason:   fmt.Sprintf("no eligible business or creator account (account type %q)", me.AccountType),
		}
	}

	accountID := me.UserID
	if accountID == "" {
		accountID = me.ID
	}

	return &ConnectedAccount{
		AccountID:      accountID,
		Name:           me.Name,
		Username:       me.Username,
		ProfilePicture: me.ProfilePicture,
		// Instagram refreshes a long-lived token with the token itself.
		Credential: Credential{
			AccessToken:  long.AccessToken,
			RefreshToken: long.AccessToken,
			ExpiresAt:    expiresAt(ig.now(), long.ExpiresIn),
		},
	}, nil
}

func (ig *instagramAdapter) ValidateAccount(ctx context.Context, cred Credential) (bool, error) {
	if cred.AccessToken == "" {
		return false, nil
	}

	_, err := ig.client.Me(ctx, cred.AccessToken)
	if err != nil {
		var ge *GraphError
		if errors.As(err, &ge) && (ge.Code == graphCodeInvalidToken || ge.StatusCode == http.StatusUnauthorized || ge.StatusCode == http.StatusBadRequest) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (ig *instagramAdapter) RefreshToken(ctx context.Context, refreshToken string) (*Credential, error) {
	if refreshToken == "" {
		return nil, &RefreshError{Platform: PlatformInstagram, Err: ErrMissingCredential}
	}

	tok, err := ig.client.RefreshLongLivedToken(ctx, refreshToken)
	if err != nil {
		return nil, &RefreshError{Platform: PlatformInstagram, Err: err}
	}
	if tok.AccessToken == "" {
		return nil, &RefreshError{Platform: PlatformInstagram, Err: errors.New("empty access token in refresh response")}
	}

	return &Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.AccessToken,
		ExpiresAt:    expiresAt(ig.now(), tok.ExpiresIn),
	}, nil
}

// Disconnect is local only: Instagram Login exposes no token revocation
// endpoint, the user removes the app from their Instagram settings.
func (ig *instagramAdapter) Disconnect(ctx context.Context, cred Credential) error {
	slog.Info("instagram account disconnected locally")
	return nil
}

func (ig *instagramAdapter) ValidateMedia(assets []*models.MediaAsset, postType string) MediaValidation {
	return ValidateInstagramMedia(assets, postType)
}

func (ig *instagramAdapter) PublishPost(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	if err := checkPublishRequest(req); err != nil {
		return nil, err
	}

	var (
		containerID string
		err         error
	)
	switch req.Post.PostType {
	case models.PostTypeImage:
		if len(req.Media) != 1 {
			return nil, fmt.Errorf("%w: single image post %d has %d assets", ErrMalformedMedia, req.Post.ID, len(req.Media))
		}
		imageURL, rerr := ig.media.ResolveURL(ctx, req.Media[0])
		if rerr != nil {
			return nil, rerr
		}
		containerID, err = ig.client.CreateImageContainer(ctx, req.AccessToken, req.AccountID, imageURL, req.Post.Caption)
		if err != nil {
			return instagramFailure(fmt.Errorf("create image container: %w", err)), nil
		}

	case models.PostTypeCarousel:
		items := models.SortByPosition(req.Media)
		urls := make([]string, 0, len(items))
		for _, item := range items {
			u, rerr := ig.media.ResolveURL(ctx, item)
			if rerr != nil {
				return nil, rerr
			}
			urls = append(urls, u)
		}

		children := make([]string, 0, len(urls))
		for i, u := range urls {
			childID, cerr := ig.client.CreateCarouselItem(ctx, req.AccessToken, req.AccountID, u)
			if cerr != nil {
				return instagramFailure(fmt.Errorf("create carousel item %d: %w", i+1, cerr)), nil
			}
			children = append(children, childID)
		}

		containerID, err = ig.client.CreateCarouselContainer(ctx, req.AccessToken, req.AccountID, children, req.Post.Caption)
		if err != nil {
			return instagramFailure(fmt.Errorf("create carousel container: %w", err)), nil
		}

	default:
		return nil, fmt.Errorf("%w: instagram feed post cannot publish %q", ErrUnsupportedPostKind, req.Post.PostType)
	}

	return ig.finishContainer(ctx, req, containerID, ig.imageTimeout), nil
}

func (ig *instagramAdapter) PublishReel(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	if err := checkPublishRequest(req); err != nil {
		return nil, err
	}
	if req.Post.PostType != models.PostTypeReel {
		return nil, fmt.Errorf("%w: instagram reel cannot publish %q", ErrUnsupportedPostKind, req.Post.PostType)
	}
	if len(req.Media) != 1 {
		return nil, fmt.Errorf("%w: reel %d has %d assets", ErrMalformedMedia, req.Post.ID, len(req.Media))
	}

	videoURL, err := ig.media.ResolveURL(ctx, req.Media[0])
	if err != nil {
		return nil, err
	}

	containerID, err := ig.client.CreateReelContainer(ctx, req.AccessToken, req.AccountID, videoURL, req.Post.Caption)
	if err != nil {
		return instagramFailure(fmt.Errorf("create reel container: %w", err)), nil
	}

	return ig.finishContainer(ctx, req, containerID, ig.videoTimeout), nil
}

// finishContainer waits for the container, publishes it and resolves the
// permalink. A failed lookup after publishing still counts as success so the
// post is not published twice.
func (ig *instagramAdapter) finishContainer(ctx context.Context, req PublishRequest, containerID string, timeout time.Duration) *PublishResult {
	if err := ig.client.WaitForContainer(ctx, req.AccessToken, containerID, timeout); err != nil {
		return instagramFailure(err)
	}

	mediaID, err := ig.client.PublishContainer(ctx, req.AccessToken, req.AccountID, containerID)
	if err != nil {
		return instagramFailure(fmt.Errorf("publish container %s: %w", containerID, err))
	}

	result := &PublishResult{
		Success:      true,
		RemotePostID: mediaID,
		PublishedAt:  ig.now(),
	}

	media, err := ig.client.GetMedia(ctx, req.AccessToken, mediaID)
	if err != nil {
		slog.Warn("published media lookup failed", "post_id", req.Post.ID, "media_id", mediaID, "error", err)
		return result
	}
	result.RemotePostURL = media.Permalink
	if ts, err := time.Parse(instagramTimestampLayout, media.Timestamp); err == nil {
		result.PublishedAt = ts
	}
	return result
}

func (ig *instagramAdapter) GetPostStatus(ctx context.Context, cred Credential, remotePostID string) (*RemotePostStatus, error) {
	media, err := ig.client.GetMedia(ctx, cred.AccessToken, remotePostID)
	if err != nil {
		return nil, err
	}

	status := &RemotePostStatus{
		ID:        media.ID,
		Status:    models.PostStatusPublished,
		Permalink: media.Permalink,
	}
	if ts, err := time.Parse(instagramTimestampLayout, media.Timestamp); err == nil {
		status.Timestamp = ts
	}
	return status, nil
}

func instagramFailure(err error) *PublishResult {
	var ge *GraphError
	switch {
	case errors.As(err, &ge):
		return failedResult(err, ge.ErrorCode())
	case errors.Is(err, ErrContainerTimeout):
		return failedResult(err, "container_timeout")
	case errors.Is(err, ErrContainerErrored):
		return failedResult(err, "container_error")
	default:
		return failedResult(err, "")
	}
}
