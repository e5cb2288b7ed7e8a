package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/transfer"
	"golang.org/x/time/rate"
)

var (
	ErrContainerTimeout = errors.New("media container did not finish processing in time")
	ErrContainerErrored = errors.New("media container processing failed")

	errContainerInProgress = errors.New("media container still processing")
)

// Container status codes reported by the Graph API.
const (
	containerFinished   = "FINISHED"
	containerPublished  = "PUBLISHED"
	containerInProgress = "IN_PROGRESS"
	containerError      = "ERROR"
	containerExpired    = "EXPIRED"
)

// GraphError is a structured error answered by the Instagram Graph API.
type GraphError struct {
	StatusCode int
	Code       int
	Subcode    int
	Type       string
	Message    string
	Transient  bool
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("instagram graph error (http %d, code %d): %s", e.StatusCode, e.Code, e.Message)
}

// ErrorCode is the platform error code as a string, empty when none was sent.
func (e *GraphError) ErrorCode() string {
	if e.Code == 0 {
		return ""
	}
	return strconv.Itoa(e.Code)
}

func newGraphError(statusCode int, body *transfer.InstagramErrorResponse) *GraphError {
	ge := &GraphError{StatusCode: statusCode}
	switch {
	case body.Error.Message != "":
		ge.Code = body.Error.Code
		ge.Subcode = body.Error.ErrorSubcode
		ge.Type = body.Error.Type
		ge.Message = body.Error.Message
		ge.Transient = body.Error.IsTransient
	case body.ErrorMessage != "":
		ge.Code = body.Code
		ge.Type = body.ErrorType
		ge.Message = body.ErrorMessage
	default:
		ge.Message = http.StatusText(statusCode)
	}
	return ge
}

// GraphClient speaks the Instagram Graph publishing protocol: create a media
// container, wait for it to finish processing, publish it, then resolve the
// resulting media.
type GraphClient struct {
	http         *resty.Client
	graphURL     string
	tokenURL     string
	authURL      string
	clientID     string
	clientSecret string
	redirectURI  string
	limiter      *rate.Limiter
	pollInterval time.Duration
}

func NewGraphClient(cfg config.Instagram, pollInterval time.Duration, httpClient *http.Client) *GraphClient {
	client := resty.New()
	if httpClient != nil {
		client = resty.NewWithClient(httpClient)
	}
	client.SetTimeout(30 * time.Second)

	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		burst = int(math.Max(1, math.Ceil(cfg.RequestsPerSecond)))
	}

	base := strings.TrimRight(cfg.GraphBaseURL, "/")
	return &GraphClient{
		http:         client,
		graphURL:     base + "/" + cfg.APIVersion,
		tokenURL:     base,
		authURL:      strings.TrimRight(cfg.AuthBaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURI:  cfg.RedirectURI,
		limiter:      rate.NewLimiter(limit, burst),
		pollInterval: pollInterval,
	}
}

func (c *GraphClient) call(ctx context.Context, method, url string, query, form map[string]string, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var errResp transfer.InstagramErrorResponse
	req := c.http.R().SetContext(ctx).SetResult(result).SetError(&errResp)
	if query != nil {
		req.SetQueryParams(query)
	}
	if form != nil {
		req.SetFormData(form)
	}

	resp, err := req.Execute(method, url)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}
	if resp.IsError() {
		return newGraphError(resp.StatusCode(), &errResp)
	}
	return nil
}

func (c *GraphClient) createContainer(ctx context.Context, accessToken, igUserID string, form map[string]string) (string, error) {
	form["access_token"] = accessToken

	var out transfer.InstagramObjectID
	if err := c.call(ctx, http.MethodPost, fmt.Sprintf("%s/%s/media", c.graphURL, igUserID), nil, form, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.New("no container ID returned from Instagram")
	}
	return out.ID, nil
}

func (c *GraphClient) CreateImageContainer(ctx context.Context, accessToken, igUserID, imageURL, caption string) (string, error) {
	return c.createContainer(ctx, accessToken, igUserID, map[string]string{
		"image_url": imageURL,
		"caption":   caption,
	})
}

func (c *GraphClient) CreateCarouselItem(ctx context.Context, accessToken, igUserID, imageURL string) (string, error) {
	return c.createContainer(ctx, accessToken, igUserID, map[string]string{
		"image_url":        imageURL,
		"is_carousel_item": "true",
	})
}

// CreateCarouselContainer creates the parent container. Children must already
// be in display order.
func (c *GraphClient) CreateCarouselContainer(ctx context.Context, accessToken, igUserID string, children []string, caption string) (string, error) {
	return c.createContainer(ctx, accessToken, igUserID, map[string]string{
		"media_type": "CAROUSEL",
		"children":   strings.Join(children, ","),
		"caption":    caption,
	})
}

func (c *GraphClient) CreateReelContainer(ctx context.Context, accessToken, igUserID, videoURL, caption string) (string, error) {
	return c.createContainer(ctx, accessToken, igUserID, map[string]string{
		"media_type":    "REELS",
		"video_url":     videoURL,
		"caption":       caption,
		"share_to_feed": "true",
	})
}

func (c *GraphClient) GetContainerStatus(ctx context.Context, accessToken, containerID string) (*transfer.InstagramContainerStatus, error) {
	var out transfer.InstagramContainerStatus
	err := c.call(ctx, http.MethodGet, fmt.Sprintf("%s/%s", c.graphURL, containerID), map[string]string{
		"fields":       "id,status_code,status",
		"access_token": accessToken,
	}, nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// WaitForContainer polls the container every poll interval until it is
// finished, errored, the timeout elapses or ctx is cancelled.
func (c *GraphClient) WaitForContainer(ctx context.Context, accessToken, containerID string, timeout time.Duration) error {
	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	poll := func() error {
		st, err := c.GetContainerStatus(pollCtx, accessToken, containerID)
		if err != nil {
			if pollCtx.Err() != nil {
				return err
			}
			return backoff.Permanent(err)
		}

		switch st.StatusCode {
		case containerFinished, containerPublished:
			return nil
		case containerError, containerExpired:
			return backoff.Permanent(fmt.Errorf("%w: container %s is %s: %s", ErrContainerErrored, containerID, st.StatusCode, st.Status))
		default:
			return errContainerInProgress
		}
	}

	err := backoff.Retry(poll, backoff.WithContext(backoff.NewConstantBackOff(c.pollInterval), pollCtx))
	if err == nil {
		return nil
	}
	if ctx.Err() == nil && pollCtx.Err() != nil {
		return fmt.Errorf("%w: container %s after %s", ErrContainerTimeout, containerID, timeout)
	}
	return err
}

func (c *GraphClient) PublishContainer(ctx context.Context, accessToken, igUserID, containerID string) (string, error) {
	var out transfer.InstagramObjectID
	err := c.call(ctx, http.MethodPost, fmt.Sprintf("%s/%s/media_publish", c.graphURL, igUserID), nil, map[string]string{
		"creation_id":  containerID,
		"access_token": accessToken,
	}, &out)
	if err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.New("no media ID returned from Instagram")
	}
	return out.ID, nil
}

func (c *GraphClient) GetMedia(ctx context.Context, accessToken, mediaID string) (*transfer.InstagramMedia, error) {
	var out transfer.InstagramMedia
	err := c.call(ctx, http.MethodGet, fmt.Sprintf("%s/%s", c.graphURL, mediaID), map[string]string{
		"fields":       "id,permalink,timestamp,media_type",
		"access_token": accessToken,
	}, nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *GraphClient) ExchangeCode(ctx context.Context, code string) (*transfer.InstagramShortLivedToken, error) {
	var out transfer.InstagramShortLivedToken
	err := c.call(ctx, http.MethodPost, c.authURL+"/oauth/access_token", nil, map[string]string{
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
		"grant_type":    "authorization_code",
		"redirect_uri":  c.redirectURI,
		"code":          code,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *GraphClient) LongLivedToken(ctx context.Context, shortLivedToken string) (*transfer.InstagramToken, error) {
	var out transfer.InstagramToken
	err := c.call(ctx, http.MethodGet, c.tokenURL+"/access_token", map[string]string{
		"grant_type":    "ig_exchange_token",
		"client_secret": c.clientSecret,
		"access_token":  shortLivedToken,
	}, nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *GraphClient) RefreshLongLivedToken(ctx context.Context, accessToken string) (*transfer.InstagramToken, error) {
	var out transfer.InstagramToken
	err := c.call(ctx, http.MethodGet, c.tokenURL+"/refresh_access_token", map[string]string{
		"grant_type":   "ig_refresh_token",
		"access_token": accessToken,
	}, nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *GraphClient) Me(ctx context.Context, accessToken string) (*transfer.InstagramUserInfo, error) {
	var out transfer.InstagramUserInfo
	err := c.call(ctx, http.MethodGet, c.graphURL+"/me", map[string]string{
		"fields":       "id,user_id,username,name,account_type,profile_picture_url",
		"access_token": accessToken,
	}, nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
