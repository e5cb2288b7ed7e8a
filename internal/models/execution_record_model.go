package models

import (
	"encoding/json"
	"time"
)

// ExecutionRecord is written once per publish attempt and never updated.
type ExecutionRecord struct {
	ID           int64           `db:"id" json:"id"`
	AttemptID    string          `db:"attempt_id" json:"attempt_id"`
	PostID       int64           `db:"post_id" json:"post_id"`
	Status       string          `db:"status" json:"status"`
	Message      string          `db:"message" json:"message"`
	ErrorDetails json.RawMessage `db:"error_details" json:"error_details,omitempty"`
	WillRetry    bool            `db:"will_retry" json:"will_retry"`
	DurationMs   int64           `db:"duration_ms" json:"duration_ms"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

const (
	ExecutionStatusPublished = "published"
	ExecutionStatusRetrying  = "retrying"
	ExecutionStatusFailed    = "failed"
	ExecutionStatusSkipped   = "skipped"
)
