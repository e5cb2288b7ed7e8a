package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	googleRevokeURL     = "https://oauth2.googleapis.com/revoke"
	youtubeShortsURL    = "https://youtube.com/shorts/"
	youtubeTitleLimit   = 100
	youtubeCategoryBlog = "22"
)

var youtubeScopes = []string{
	"https://www.googleapis.com/auth/userinfo.profile",
	youtube.YoutubeUploadScope,
	youtube.YoutubeReadonlyScope,
}

type youtubeAdapter struct {
	oauth      *oauth2.Config
	httpClient *http.Client
	rest       *resty.Client
	media      MediaURLResolver
	revokeURL  string
	opts       []option.ClientOption
}

// NewYoutubeAdapter publishes short videos through the YouTube Data API.
// Extra client options are passed to every YouTube service it builds.
func NewYoutubeAdapter(cfg config.Google, httpClient *http.Client, media MediaURLResolver, opts ...option.ClientOption) PlatformAdapter {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Minute}
	}
	return &youtubeAdapter{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       youtubeScopes,
			Endpoint:     google.Endpoint,
		},
		httpClient: httpClient,
		rest:       resty.NewWithClient(httpClient),
		media:      media,
		revokeURL:  googleRevokeURL,
		opts:       opts,
	}
}

func (y *youtubeAdapter) Platform() string {
	return PlatformYoutube
}

func (y *youtubeAdapter) AuthURL(state string) string {
	return y.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// oauthContext makes the oauth2 package use the adapter's HTTP client.
func (y *youtubeAdapter) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, y.httpClient)
}

func (y *youtubeAdapter) service(ctx context.Context, cred Credential) (*youtube.Service, error) {
	tok := &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		Expiry:       cred.ExpiresAt,
	}
	client := oauth2.NewClient(y.oauthContext(ctx), oauth2.StaticTokenSource(tok))
	opts := append([]option.ClientOption{option.WithHTTPClient(client)}, y.opts...)
	return youtube.NewService(ctx, opts...)
}

func (y *youtubeAdapter) ConnectAccount(ctx context.Context, code string) (*ConnectedAccount, error) {
	if code == "" {
		return nil, &AuthExchangeError{Platform: PlatformYoutube, Reason: "authorization code is empty"}
	}
	if y.oauth.ClientID == "" || y.oauth.ClientSecret == "" || y.oauth.RedirectURL == "" {
		return nil, &AuthExchangeError{Platform: PlatformYoutube, Reason: "oauth2 configuration is incomplete"}
	}

	token, err := y.oauth.Exchange(y.oauthContext(ctx), code)
	if err != nil {
		return nil, &AuthExchangeError{Platform: PlatformYoutube, Reason: "code exchange", Err: err}
	}
	if token.RefreshToken == "" {
		return nil, &AuthExchangeError{Platform: PlatformYoutube, Reason: "refresh token is empty"}
	}

	cred := Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}

	svc, err := y.service(ctx, cred)
	if err != nil {
		return nil, &AuthExchangeError{Platform: PlatformYoutube, Reason: "youtube client", Err: err}
	}
	resp, err := svc.Channels.List([]string{"id", "snippet"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return nil, &AuthExchangeError{Platform: PlatformYoutube, Reason: "channel lookup", Err: err}
	}
	if len(resp.Items) == 0 {
		return nil, &AuthExchangeError{Platform: PlatformYoutube, Reason: "no youtube channel on this account"}
	}

	ch := resp.Items[0]
	acc := &ConnectedAccount{AccountID: ch.Id, Credential: cred}
	if ch.Snippet != nil {
		acc.Name = ch.Snippet.Title
		acc.Username = ch.Snippet.CustomUrl
		if ch.Snippet.Thumbnails != nil && ch.Snippet.Thumbnails.Default != nil {
			acc.ProfilePicture = ch.Snippet.Thumbnails.Default.Url
		}
	}
	return acc, nil
}

func (y *youtubeAdapter) ValidateAccount(ctx context.Context, cred Credential) (bool, error) {
	if cred.AccessToken == "" {
		return false, nil
	}

	svc, err := y.service(ctx, cred)
	if err != nil {
		return false, err
	}
	_, err = svc.Channels.List([]string{"id"}).Mine(true).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && (gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden) {
			return false, nil
		}
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (y *youtubeAdapter) RefreshToken(ctx context.Context, refreshToken string) (*Credential, error) {
	if refreshToken == "" {
		return nil, &RefreshError{Platform: PlatformYoutube, Err: ErrMissingCredential}
	}

	token, err := y.oauth.TokenSource(y.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, &RefreshError{Platform: PlatformYoutube, Err: err}
	}

	cred := &Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}
	// Google only rotates the refresh token occasionally.
	if cred.RefreshToken == "" {
		cred.RefreshToken = refreshToken
	}
	return cred, nil
}

func (y *youtubeAdapter) Disconnect(ctx context.Context, cred Credential) error {
	token := cred.RefreshToken
	if token == "" {
		token = cred.AccessToken
	}
	if token == "" {
		return nil
	}

	resp, err := y.rest.R().
		SetContext(ctx).
		SetFormData(map[string]string{"token": token}).
		Post(y.revokeURL)
	if err != nil {
		return fmt.Errorf("revoke google access: %w", err)
	}
	// Revoking an already revoked token answers 400, which is fine here.
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusBadRequest {
		return fmt.Errorf("failed to revoke token, status code: %d", resp.StatusCode())
	}
	return nil
}

func (y *youtubeAdapter) ValidateMedia(assets []*models.MediaAsset, postType string) MediaValidation {
	return ValidateYoutubeMedia(assets, postType)
}

func (y *youtubeAdapter) PublishPost(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	kind := ""
	if req.Post != nil {
		kind = req.Post.PostType
	}
	return nil, fmt.Errorf("%w: youtube cannot publish %q posts", ErrUnsupportedPostKind, kind)
}

func (y *youtubeAdapter) PublishReel(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	if err := checkPublishRequest(req); err != nil {
		return nil, err
	}
	if req.Post.PostType != models.PostTypeReel {
		return nil, fmt.Errorf("%w: youtube cannot publish %q posts", ErrUnsupportedPostKind, req.Post.PostType)
	}
	if len(req.Media) != 1 {
		return nil, fmt.Errorf("%w: short %d has %d assets", ErrMalformedMedia, req.Post.ID, len(req.Media))
	}

	videoURL, err := y.media.ResolveURL(ctx, req.Media[0])
	if err != nil {
		return nil, err
	}

	svc, err := y.service(ctx, Credential{AccessToken: req.AccessToken})
	if err != nil {
		return nil, err
	}

	download, err := y.rest.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(videoURL)
	if err != nil {
		return failedResult(fmt.Errorf("download video: %w", err), "download_failed"), nil
	}
	body := download.RawBody()
	defer body.Close()
	if download.StatusCode() != http.StatusOK {
		return failedResult(fmt.Errorf("download video: unexpected status %d", download.StatusCode()), "download_failed"), nil
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       youtubeTitle(req.Post.Caption),
			Description: req.Post.Caption,
			CategoryId:  youtubeCategoryBlog,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: "public",
		},
	}

	uploaded, err := svc.Videos.Insert([]string{"snippet", "status"}, video).Media(body).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			return failedResult(err, fmt.Sprint(gerr.Code)), nil
		}
		return failedResult(err, ""), nil
	}

	slog.Info("video uploaded", "post_id", req.Post.ID, "video_id", uploaded.Id)
	return &PublishResult{
		Success:       true,
		RemotePostID:  uploaded.Id,
		RemotePostURL: youtubeShortsURL + uploaded.Id,
		PublishedAt:   time.Now(),
	}, nil
}

func (y *youtubeAdapter) GetPostStatus(ctx context.Context, cred Credential, remotePostID string) (*RemotePostStatus, error) {
	svc, err := y.service(ctx, cred)
	if err != nil {
		return nil, err
	}

	resp, err := svc.Videos.List([]string{"status", "snippet"}).Id(remotePostID).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("youtube video %s not found", remotePostID)
	}

	v := resp.Items[0]
	status := &RemotePostStatus{ID: v.Id, Permalink: youtubeShortsURL + v.Id}
	if v.Status != nil {
		status.Status = v.Status.UploadStatus
	}
	if v.Snippet != nil {
		if ts, err := time.Parse(time.RFC3339, v.Snippet.PublishedAt); err == nil {
			status.Timestamp = ts
		}
	}
	return status, nil
}

// youtubeTitle derives a title from the first caption line.
func youtubeTitle(caption string) string {
	title := strings.TrimSpace(strings.SplitN(caption, "\n", 2)[0])
	if title == "" {
		return "Short"
	}
	if r := []rune(title); len(r) > youtubeTitleLimit {
		title = string(r[:youtubeTitleLimit])
	}
	return title
}
