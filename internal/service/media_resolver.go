package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	cfg "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/models"
)

// MediaURLResolver turns a stored media reference into a URL the remote
// platform can fetch.
type MediaURLResolver interface {
	ResolveURL(ctx context.Context, asset *models.MediaAsset) (string, error)
}

// R2Service resolves object keys in the R2 media bucket, either through a
// public bucket domain or with presigned GET URLs.
type R2Service struct {
	bucket        string
	publicBaseURL string
	expiry        time.Duration
	presigner     *s3.PresignClient
}

func NewR2Service(ctx context.Context, c cfg.R2) (*R2Service, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("load r2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.AccountID))
		o.UsePathStyle = true
	})

	expiry := c.PresignExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}

	return &R2Service{
		bucket:        c.BucketName,
		publicBaseURL: strings.TrimRight(c.PublicBaseURL, "/"),
		expiry:        expiry,
		presigner:     s3.NewPresignClient(client),
	}, nil
}

func (r *R2Service) ResolveURL(ctx context.Context, asset *models.MediaAsset) (string, error) {
	if asset == nil {
		return "", fmt.Errorf("%w: nil asset", ErrMalformedMedia)
	}

	if asset.FileURL != "" {
		u, err := url.Parse(asset.FileURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return "", fmt.Errorf("%w: asset %d has invalid url %q", ErrMalformedMedia, asset.ID, asset.FileURL)
		}
		return asset.FileURL, nil
	}

	key := strings.TrimLeft(asset.FileKey, "/")
	if key == "" {
		return "", fmt.Errorf("%w: asset %d has neither url nor key", ErrMalformedMedia, asset.ID)
	}

	if r.publicBaseURL != "" {
		return r.publicBaseURL + "/" + key, nil
	}

	req, err := r.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(r.expiry))
	if err != nil {
		return "", fmt.Errorf("presign asset %d: %w", asset.ID, err)
	}
	return req.URL, nil
}
