package service

import (
	"testing"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jpeg(position int) *models.MediaAsset {
	return &models.MediaAsset{MimeType: "image/jpeg", FileSize: 1 << 20, Width: 1080, Height: 1080, Position: position}
}

func TestValidateInstagramMedia(t *testing.T) {
	tests := []struct {
		name       string
		postType   string
		assets     []*models.MediaAsset
		valid      bool
		errors     int
		warnings   int
		firstError string
	}{
		{
			name:     "single image",
			postType: models.PostTypeImage,
			assets:   []*models.MediaAsset{jpeg(0)},
			valid:    true,
		},
		{
			name:       "image post with two assets",
			postType:   models.PostTypeImage,
			assets:     []*models.MediaAsset{jpeg(0), jpeg(1)},
			errors:     1,
			firstError: "single image post requires exactly 1 image, got 2",
		},
		{
			name:     "image post with no assets",
			postType: models.PostTypeImage,
			errors:   1,
		},
		{
			name:     "oversized image",
			postType: models.PostTypeImage,
			assets:   []*models.MediaAsset{{MimeType: "image/png", FileSize: 9 << 20}},
			errors:   1,
		},
		{
			name:     "video in image post",
			postType: models.PostTypeImage,
			assets:   []*models.MediaAsset{{MimeType: "video/mp4", FileSize: 1 << 20}},
			errors:   1,
		},
		{
			name:     "small image warns",
			postType: models.PostTypeImage,
			assets:   []*models.MediaAsset{{MimeType: "image/jpeg", FileSize: 1024, Width: 200, Height: 200}},
			valid:    true,
			warnings: 1,
		},
		{
			name:     "carousel of three",
			postType: models.PostTypeCarousel,
			assets:   []*models.MediaAsset{jpeg(2), jpeg(0), jpeg(1)},
			valid:    true,
		},
		{
			name:     "carousel of one",
			postType: models.PostTypeCarousel,
			assets:   []*models.MediaAsset{jpeg(0)},
			errors:   1,
		},
		{
			name:     "carousel of eleven",
			postType: models.PostTypeCarousel,
			assets:   []*models.MediaAsset{jpeg(0), jpeg(1), jpeg(2), jpeg(3), jpeg(4), jpeg(5), jpeg(6), jpeg(7), jpeg(8), jpeg(9), jpeg(10)},
			errors:   1,
		},
		{
			name:     "reel",
			postType: models.PostTypeReel,
			assets:   []*models.MediaAsset{{MimeType: "video/mp4", FileSize: 50 << 20, Width: 1080, Height: 1920}},
			valid:    true,
		},
		{
			name:     "reel off aspect warns",
			postType: models.PostTypeReel,
			assets:   []*models.MediaAsset{{MimeType: "video/quicktime", FileSize: 50 << 20, Width: 1920, Height: 1080}},
			valid:    true,
			warnings: 1,
		},
		{
			name:     "reel too large",
			postType: models.PostTypeReel,
			assets:   []*models.MediaAsset{{MimeType: "video/mp4", FileSize: 101 << 20}},
			errors:   1,
		},
		{
			name:     "unknown post type",
			postType: "story",
			assets:   []*models.MediaAsset{jpeg(0)},
			errors:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ValidateInstagramMedia(tt.assets, tt.postType)

			assert.Equal(t, tt.valid, v.Valid)
			assert.Len(t, v.Errors, tt.errors)
			assert.Len(t, v.Warnings, tt.warnings)
			assert.NotNil(t, v.Errors)
			assert.NotNil(t, v.Warnings)
			if tt.firstError != "" {
				assert.Equal(t, tt.firstError, v.Errors[0])
			}
		})
	}
}

func TestValidateInstagramMediaDoesNotReorderInput(t *testing.T) {
	assets := []*models.MediaAsset{jpeg(2), jpeg(0), jpeg(1)}

	first := ValidateInstagramMedia(assets, models.PostTypeCarousel)
	second := ValidateInstagramMedia(assets, models.PostTypeCarousel)

	assert.Equal(t, first, second)
	assert.Equal(t, []int{2, 0, 1}, []int{assets[0].Position, assets[1].Position, assets[2].Position})
}

func TestValidateYoutubeMedia(t *testing.T) {
	short := &models.MediaAsset{MimeType: "video/mp4", FileSize: 90 << 20, Width: 1080, Height: 1920}
	assert.True(t, ValidateYoutubeMedia([]*models.MediaAsset{short}, models.PostTypeReel).Valid)

	// Shorts share the 100 MiB video limit with reels.
	large := &models.MediaAsset{MimeType: "video/mp4", FileSize: 300 << 20, Width: 1080, Height: 1920}
	v := ValidateYoutubeMedia([]*models.MediaAsset{large}, models.PostTypeReel)
	assert.False(t, v.Valid)
	require.Len(t, v.Errors, 1)
	assert.Contains(t, v.Errors[0], "limit is 100 MiB")
	assert.Equal(t, v, ValidateInstagramMedia([]*models.MediaAsset{large}, models.PostTypeReel))

	v = ValidateYoutubeMedia([]*models.MediaAsset{jpeg(0)}, models.PostTypeImage)
	assert.False(t, v.Valid)
	assert.Len(t, v.Errors, 1)

	v = ValidateYoutubeMedia(nil, models.PostTypeReel)
	assert.False(t, v.Valid)
}
