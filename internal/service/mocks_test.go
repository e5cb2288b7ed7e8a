package service

import (
	"context"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/stretchr/testify/mock"
)

type mockAdapter struct {
	mock.Mock
	name string
}

func (m *mockAdapter) Platform() string { return m.name }

func (m *mockAdapter) ConnectAccount(ctx context.Context, code string) (*ConnectedAccount, error) {
	args := m.Called(ctx, code)
	acc, _ := args.Get(0).(*ConnectedAccount)
	return acc, args.Error(1)
}

func (m *mockAdapter) ValidateAccount(ctx context.Context, cred Credential) (bool, error) {
	args := m.Called(ctx, cred)
	return args.Bool(0), args.Error(1)
}

func (m *mockAdapter) RefreshToken(ctx context.Context, refreshToken string) (*Credential, error) {
	args := m.Called(ctx, refreshToken)
	cred, _ := args.Get(0).(*Credential)
	return cred, args.Error(1)
}

func (m *mockAdapter) Disconnect(ctx context.Context, cred Credential) error {
	return m.Called(ctx, cred).Error(0)
}

func (m *mockAdapter) ValidateMedia(assets []*models.MediaAsset, postType string) MediaValidation {
	return m.Called(assets, postType).Get(0).(MediaValidation)
}

func (m *mockAdapter) PublishPost(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*PublishResult)
	return res, args.Error(1)
}

func (m *mockAdapter) PublishReel(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*PublishResult)
	return res, args.Error(1)
}

func (m *mockAdapter) GetPostStatus(ctx context.Context, cred Credential, remotePostID string) (*RemotePostStatus, error) {
	args := m.Called(ctx, cred, remotePostID)
	st, _ := args.Get(0).(*RemotePostStatus)
	return st, args.Error(1)
}

type mockSocialAccountRepository struct {
	mock.Mock
}

func (m *mockSocialAccountRepository) Create(ctx context.Context, sa *models.SocialAccount) (int64, error) {
	args := m.Called(ctx, sa)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockSocialAccountRepository) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	args := m.Called(ctx, id)
	acc, _ := args.Get(0).(*models.SocialAccount)
	return acc, args.Error(1)
}

func (m *mockSocialAccountRepository) ListExpiring(ctx context.Context, before time.Time) ([]*models.SocialAccount, error) {
	args := m.Called(ctx, before)
	accs, _ := args.Get(0).([]*models.SocialAccount)
	return accs, args.Error(1)
}

func (m *mockSocialAccountRepository) UpdateCredential(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt time.Time) error {
	return m.Called(ctx, id, accessToken, refreshToken, expiresAt).Error(0)
}

func (m *mockSocialAccountRepository) Remove(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type mockPostRepository struct {
	mock.Mock
}

func (m *mockPostRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	args := m.Called(ctx, id)
	post, _ := args.Get(0).(*models.Post)
	return post, args.Error(1)
}

func (m *mockPostRepository) UpdatePostStatus(ctx context.Context, postID int64, update repository.PostStatusUpdate) error {
	return m.Called(ctx, postID, update).Error(0)
}

func (m *mockPostRepository) UpdateScheduledTime(ctx context.Context, postID int64, scheduledTime time.Time) error {
	return m.Called(ctx, postID, scheduledTime).Error(0)
}

func (m *mockPostRepository) Cancel(ctx context.Context, postID int64) error {
	return m.Called(ctx, postID).Error(0)
}

func (m *mockPostRepository) ResetFailed(ctx context.Context, postID int64) error {
	return m.Called(ctx, postID).Error(0)
}

type mockPostMediaRepository struct {
	mock.Mock
}

func (m *mockPostMediaRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.MediaAsset, error) {
	args := m.Called(ctx, postID)
	assets, _ := args.Get(0).([]*models.MediaAsset)
	return assets, args.Error(1)
}

type mockExecutionRecordRepository struct {
	mock.Mock
}

func (m *mockExecutionRecordRepository) Create(ctx context.Context, rec *models.ExecutionRecord) (int64, error) {
	args := m.Called(ctx, rec)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockExecutionRecordRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.ExecutionRecord, error) {
	args := m.Called(ctx, postID)
	recs, _ := args.Get(0).([]*models.ExecutionRecord)
	return recs, args.Error(1)
}

type mockScheduler struct {
	mock.Mock
}

func (m *mockScheduler) Schedule(ctx context.Context, postID int64, at time.Time) error {
	return m.Called(ctx, postID, at).Error(0)
}

func (m *mockScheduler) Reschedule(ctx context.Context, postID int64, oldAt, newAt time.Time) error {
	return m.Called(ctx, postID, oldAt, newAt).Error(0)
}

func (m *mockScheduler) Cancel(ctx context.Context, postID int64) error {
	return m.Called(ctx, postID).Error(0)
}

type mockCredentialService struct {
	mock.Mock
}

func (m *mockCredentialService) EnsureFresh(ctx context.Context, acc *models.SocialAccount, adapter PlatformAdapter) (Credential, error) {
	args := m.Called(ctx, acc, adapter)
	return args.Get(0).(Credential), args.Error(1)
}

func (m *mockCredentialService) Refresh(ctx context.Context, acc *models.SocialAccount, adapter PlatformAdapter) (Credential, error) {
	args := m.Called(ctx, acc, adapter)
	return args.Get(0).(Credential), args.Error(1)
}

func (m *mockCredentialService) Open(acc *models.SocialAccount) (Credential, error) {
	args := m.Called(acc)
	return args.Get(0).(Credential), args.Error(1)
}

func (m *mockCredentialService) Store(ctx context.Context, userID int64, platform string, connected *ConnectedAccount) (int64, error) {
	args := m.Called(ctx, userID, platform, connected)
	return args.Get(0).(int64), args.Error(1)
}

// urlResolver hands back the stored URL unchanged.
type urlResolver struct{}

func (urlResolver) ResolveURL(ctx context.Context, asset *models.MediaAsset) (string, error) {
	if asset.FileURL == "" {
		return "", ErrMalformedMedia
	}
	return asset.FileURL, nil
}
