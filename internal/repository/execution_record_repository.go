package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/postflow/internal/models"
)

type ExecutionRecordRepository interface {
	Create(ctx context.Context, rec *models.ExecutionRecord) (int64, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.ExecutionRecord, error)
}

type executionRecordRepository struct {
	db *sql.DB
}

func NewExecutionRecordRepository(db *sql.DB) ExecutionRecordRepository {
	return &executionRecordRepository{db: db}
}

func (r *executionRecordRepository) Create(ctx context.Context, rec *models.ExecutionRecord) (int64, error) {
	query := `
		INSERT INTO execution_records (attempt_id, post_id, status, message, error_details, will_retry, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var details interface{}
	if len(rec.ErrorDetails) > 0 {
		details = []byte(rec.ErrorDetails)
	}

	var id int64
	err := r.db.QueryRowContext(ctx, query, rec.AttemptID, rec.PostID, rec.Status, rec.Message,
		details, rec.WillRetry, rec.DurationMs).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *executionRecordRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.ExecutionRecord, error) {
	query := `
		SELECT id, attempt_id, post_id, status, message, error_details, will_retry, duration_ms, created_at
		FROM execution_records
		WHERE post_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var records []*models.ExecutionRecord
	for rows.Next() {
		var (
			rec     models.ExecutionRecord
			details []byte
		)
		err := rows.Scan(&rec.ID, &rec.AttemptID, &rec.PostID, &rec.Status, &rec.Message, &details,
			&rec.WillRetry, &rec.DurationMs, &rec.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		if len(details) > 0 {
			rec.ErrorDetails = details
		}
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return records, nil
}
