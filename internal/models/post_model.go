package models

import (
	"sort"
	"time"
)

type Post struct {
	ID            int64      `db:"id" json:"id"`
	UserID        int64      `db:"user_id" json:"user_id"`
	AccountID     int64      `db:"account_id" json:"account_id"`
	Platform      string     `db:"platform" json:"platform"`
	PostType      string     `db:"post_type" json:"post_type"`
	Caption       string     `db:"caption" json:"caption"`
	ScheduledTime time.Time  `db:"scheduled_time" json:"scheduled_time"`
	Status        string     `db:"status" json:"status"` // pending, published, failed, cancelled
	RemotePostID  string     `db:"remote_post_id" json:"remote_post_id,omitempty"`
	RemotePostURL string     `db:"remote_post_url" json:"remote_post_url,omitempty"`
	RetryCount    int        `db:"retry_count" json:"retry_count"`
	ErrorMessage  string     `db:"error_message" json:"error_message,omitempty"`
	PublishedAt   *time.Time `db:"published_at" json:"published_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// IsTerminal reports whether the post can no longer be published.
func (p *Post) IsTerminal() bool {
	switch p.Status {
	case PostStatusPublished, PostStatusFailed, PostStatusCancelled:
		return true
	}
	return false
}

type MediaAsset struct {
	ID        int64     `db:"id" json:"id"`
	PostID    int64     `db:"post_id" json:"post_id"`
	FileURL   string    `db:"file_url" json:"file_url"`
	FileKey   string    `db:"file_key" json:"file_key"`
	MimeType  string    `db:"mime_type" json:"mime_type"`
	FileSize  int64     `db:"file_size" json:"file_size"`
	Width     int       `db:"width" json:"width"`
	Height    int       `db:"height" json:"height"`
	Position  int       `db:"position" json:"position"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SortByPosition returns a copy of assets ordered by Position. Equal positions
// keep their input order.
func SortByPosition(assets []*MediaAsset) []*MediaAsset {
	sorted := make([]*MediaAsset, len(assets))
	copy(sorted, assets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Position < sorted[j].Position
	})
	return sorted
}

const (
	PostStatusPending   = "pending"
	PostStatusPublished = "published"
	PostStatusFailed    = "failed"
	PostStatusCancelled = "cancelled"
)

const (
	PostTypeImage    = "image"
	PostTypeCarousel = "carousel"
	PostTypeReel     = "reel"
)
