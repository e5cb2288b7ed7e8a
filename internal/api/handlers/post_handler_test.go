package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newPostApp(ps service.PostService) *fiber.App {
	h := NewPostHandler(ps)
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", "9")
		return c.Next()
	})
	app.Post("/posts/:id/schedule", h.SchedulePost)
	app.Post("/posts/:id/reschedule", h.ReschedulePost)
	app.Post("/posts/:id/cancel", h.CancelPost)
	app.Post("/posts/:id/retry", h.RetryPost)
	app.Get("/posts/:id/executions", h.ListExecutions)
	app.Get("/posts/:id/remote-status", h.RemoteStatus)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, target, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	out := map[string]any{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp.StatusCode, out
}

func TestSchedulePost(t *testing.T) {
	ps := new(mockPostService)
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	ps.On("Schedule", mock.Anything, int64(9), int64(5), mock.MatchedBy(func(got time.Time) bool {
		return got.Equal(at)
	})).Return(&service.MediaValidation{Valid: true}, nil)

	status, body := doJSON(t, newPostApp(ps), "POST", "/posts/5/schedule", `{"scheduled_at":"2025-03-01T10:00:00Z"}`)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Post scheduled successfully", body["message"])
	ps.AssertExpectations(t)
}

func TestSchedulePostInvalidMedia(t *testing.T) {
	ps := new(mockPostService)
	validation := &service.MediaValidation{Valid: false, Errors: []string{"carousel needs 2 to 10 items"}}
	ps.On("Schedule", mock.Anything, int64(9), int64(5), mock.Anything).Return(validation, service.ErrInvalidMedia)

	status, body := doJSON(t, newPostApp(ps), "POST", "/posts/5/schedule", `{"scheduled_at":"2025-03-01T10:00:00Z"}`)

	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	require.Contains(t, body, "validation")
	assert.Equal(t, false, body["validation"].(map[string]any)["valid"])
}

func TestSchedulePostBadInput(t *testing.T) {
	ps := new(mockPostService)
	app := newPostApp(ps)

	status, _ := doJSON(t, app, "POST", "/posts/abc/schedule", `{"scheduled_at":"2025-03-01T10:00:00Z"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = doJSON(t, app, "POST", "/posts/5/schedule", `{"scheduled_at":`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	ps.AssertNotCalled(t, "Schedule", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReschedulePostNotPending(t *testing.T) {
	ps := new(mockPostService)
	ps.On("Reschedule", mock.Anything, int64(9), int64(5), mock.Anything).Return(service.ErrPostNotPending)

	status, body := doJSON(t, newPostApp(ps), "POST", "/posts/5/reschedule", `{"scheduled_at":"2025-03-01T10:00:00Z"}`)

	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, service.ErrPostNotPending.Error(), body["error"])
}

func TestCancelPost(t *testing.T) {
	ps := new(mockPostService)
	ps.On("Cancel", mock.Anything, int64(9), int64(5)).Return(nil)
	ps.On("Cancel", mock.Anything, int64(9), int64(6)).Return(service.ErrPostNotFound)
	app := newPostApp(ps)

	status, _ := doJSON(t, app, "POST", "/posts/5/cancel", "")
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = doJSON(t, app, "POST", "/posts/6/cancel", "")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestRetryPost(t *testing.T) {
	ps := new(mockPostService)
	ps.On("Retry", mock.Anything, int64(9), int64(5)).Return(service.ErrPostNotFailed)

	status, _ := doJSON(t, newPostApp(ps), "POST", "/posts/5/retry", "")
	assert.Equal(t, fiber.StatusConflict, status)
}

func TestListExecutions(t *testing.T) {
	ps := new(mockPostService)
	ps.On("History", mock.Anything, int64(9), int64(5)).Return([]*models.ExecutionRecord{
		{ID: 1, AttemptID: "a1", PostID: 5, Status: models.ExecutionStatusRetrying, WillRetry: true},
		{ID: 2, AttemptID: "a2", PostID: 5, Status: models.ExecutionStatusPublished},
	}, nil)

	req := httptest.NewRequest("GET", "/posts/5/executions", nil)
	resp, err := newPostApp(ps).Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var records []models.ExecutionRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&records))
	require.Len(t, records, 2)
	assert.Equal(t, "a1", records[0].AttemptID)
	assert.True(t, records[0].WillRetry)
}

func TestRemoteStatusHidesInternalErrors(t *testing.T) {
	ps := new(mockPostService)
	ps.On("RemoteStatus", mock.Anything, int64(9), int64(5)).Return(nil, errors.New("pq: connection refused"))

	status, body := doJSON(t, newPostApp(ps), "GET", "/posts/5/remote-status", "")

	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "something went wrong", body["error"])
}
