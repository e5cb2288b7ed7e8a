package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostMediaRepository_ListByPostIDOrdersByPosition(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM post_media WHERE post_id = \\$1 ORDER BY position").
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "post_id", "file_url", "file_key", "mime_type", "file_size", "width", "height", "position", "created_at"}).
			AddRow(1, 4, "https://cdn.example.com/a.jpg", nil, "image/jpeg", 1024, 1080, 1080, 0, now).
			AddRow(2, 4, nil, "uploads/b.jpg", "image/jpeg", 2048, 1080, 1350, 1, now))

	assets, err := NewPostMediaRepository(db).ListByPostID(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, assets, 2)

	assert.Equal(t, "https://cdn.example.com/a.jpg", assets[0].FileURL)
	assert.Empty(t, assets[0].FileKey)
	assert.Equal(t, "uploads/b.jpg", assets[1].FileKey)
	assert.Equal(t, 1, assets[1].Position)
	assert.NoError(t, mock.ExpectationsWereMet())
}
