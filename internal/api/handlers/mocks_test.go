package handlers

import (
	"context"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/service"
	"github.com/stretchr/testify/mock"
)

type mockPostService struct {
	mock.Mock
}

func (m *mockPostService) Schedule(ctx context.Context, userID, postID int64, at time.Time) (*service.MediaValidation, error) {
	args := m.Called(ctx, userID, postID, at)
	v, _ := args.Get(0).(*service.MediaValidation)
	return v, args.Error(1)
}

func (m *mockPostService) Reschedule(ctx context.Context, userID, postID int64, at time.Time) error {
	return m.Called(ctx, userID, postID, at).Error(0)
}

func (m *mockPostService) Cancel(ctx context.Context, userID, postID int64) error {
	return m.Called(ctx, userID, postID).Error(0)
}

func (m *mockPostService) Retry(ctx context.Context, userID, postID int64) error {
	return m.Called(ctx, userID, postID).Error(0)
}

func (m *mockPostService) History(ctx context.Context, userID, postID int64) ([]*models.ExecutionRecord, error) {
	args := m.Called(ctx, userID, postID)
	records, _ := args.Get(0).([]*models.ExecutionRecord)
	return records, args.Error(1)
}

func (m *mockPostService) RemoteStatus(ctx context.Context, userID, postID int64) (*service.RemotePostStatus, error) {
	args := m.Called(ctx, userID, postID)
	st, _ := args.Get(0).(*service.RemotePostStatus)
	return st, args.Error(1)
}

type mockPlatformService struct {
	mock.Mock
}

func (m *mockPlatformService) GetAuthURL(ctx context.Context, platform, state string) (string, error) {
	args := m.Called(ctx, platform, state)
	return args.String(0), args.Error(1)
}

func (m *mockPlatformService) Connect(ctx context.Context, userID int64, platform, code string) (int64, error) {
	args := m.Called(ctx, userID, platform, code)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockPlatformService) Validate(ctx context.Context, userID, accountID int64) (bool, error) {
	args := m.Called(ctx, userID, accountID)
	return args.Bool(0), args.Error(1)
}

func (m *mockPlatformService) Delete(ctx context.Context, userID, accountID int64) error {
	return m.Called(ctx, userID, accountID).Error(0)
}
