package service

import (
	"fmt"

	"github.com/h2non/filetype/matchers"
	"github.com/maheshrc27/postflow/internal/models"
)

const (
	maxImageBytes     = 8 << 20
	maxVideoBytes     = 100 << 20
	minImageDimension = 320
	maxImageDimension = 1440
	reelWidth         = 1080
	reelHeight        = 1920
	minCarouselItems  = 2
	maxCarouselItems  = 10
)

var (
	imageMIMEs = mimeSet(matchers.Image)
	videoMIMEs = mimeSet(matchers.Video)
)

func mimeSet(m matchers.Map) map[string]struct{} {
	set := make(map[string]struct{}, len(m))
	for t := range m {
		set[t.MIME.Value] = struct{}{}
	}
	return set
}

func isImageMIME(mime string) bool {
	_, ok := imageMIMEs[mime]
	return ok
}

func isVideoMIME(mime string) bool {
	_, ok := videoMIMEs[mime]
	return ok
}

type mediaReport struct {
	errors   []string
	warnings []string
}

func (r *mediaReport) errorf(format string, args ...any) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func (r *mediaReport) warnf(format string, args ...any) {
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
}

func (r *mediaReport) result() MediaValidation {
	v := MediaValidation{
		Valid:    len(r.errors) == 0,
		Errors:   r.errors,
		Warnings: r.warnings,
	}
	if v.Errors == nil {
		v.Errors = []string{}
	}
	if v.Warnings == nil {
		v.Warnings = []string{}
	}
	return v
}

// ValidateInstagramMedia applies the Instagram content rules for a post kind.
// It does no I/O; errors block scheduling, warnings do not.
func ValidateInstagramMedia(assets []*models.MediaAsset, postType string) MediaValidation {
	var r mediaReport

	switch postType {
	case models.PostTypeImage:
		if len(assets) != 1 {
			r.errorf("single image post requires exactly 1 image, got %d", len(assets))
			return r.result()
		}
		checkImage(&r, 1, assets[0])
		if a := assets[0]; a.Width > 0 && a.Height > 0 && !imageDimensionsInRange(a) {
			r.warnf("image is %dx%d px, recommended dimensions are %d-%d px", a.Width, a.Height, minImageDimension, maxImageDimension)
		}

	case models.PostTypeCarousel:
		if len(assets) < minCarouselItems || len(assets) > maxCarouselItems {
			r.errorf("carousel requires %d-%d images, got %d", minCarouselItems, maxCarouselItems, len(assets))
			return r.result()
		}
		for i, a := range models.SortByPosition(assets) {
			checkImage(&r, i+1, a)
		}

	case models.PostTypeReel:
		if len(assets) != 1 {
			r.errorf("reel requires exactly 1 video, got %d", len(assets))
			return r.result()
		}
		checkVideo(&r, assets[0], maxVideoBytes)

	default:
		r.errorf("unsupported post type %q", postType)
	}

	return r.result()
}

// ValidateYoutubeMedia accepts a single short video. YouTube has no image
// post kind.
func ValidateYoutubeMedia(assets []*models.MediaAsset, postType string) MediaValidation {
	var r mediaReport

	if postType != models.PostTypeReel {
		r.errorf("youtube only publishes short videos, got post type %q", postType)
		return r.result()
	}
	if len(assets) != 1 {
		r.errorf("short requires exactly 1 video, got %d", len(assets))
		return r.result()
	}
	checkVideo(&r, assets[0], maxVideoBytes)

	return r.result()
}

func checkImage(r *mediaReport, n int, a *models.MediaAsset) {
	if !isImageMIME(a.MimeType) {
		r.errorf("item %d: %q is not an image", n, a.MimeType)
	}
	if a.FileSize > maxImageBytes {
		r.errorf("item %d: image is %d bytes, limit is 8 MiB", n, a.FileSize)
	}
}

func checkVideo(r *mediaReport, a *models.MediaAsset, limit int64) {
	if !isVideoMIME(a.MimeType) {
		r.errorf("%q is not a video", a.MimeType)
	}
	if a.FileSize > limit {
		r.errorf("video is %d bytes, limit is %d MiB", a.FileSize, limit>>20)
	}
	if a.Width > 0 && a.Height > 0 && (a.Width != reelWidth || a.Height != reelHeight) {
		r.warnf("video is %dx%d px, recommended is %dx%d", a.Width, a.Height, reelWidth, reelHeight)
	}
}

func imageDimensionsInRange(a *models.MediaAsset) bool {
	in := func(v int) bool { return v >= minImageDimension && v <= maxImageDimension }
	return in(a.Width) && in(a.Height)
}
