package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/pkg/utils"
)

// CredentialService owns the encrypted account credentials. Every caller
// gets plaintext tokens through it and every refreshed token is written back
// through it.
type CredentialService interface {
	EnsureFresh(ctx context.Context, acc *models.SocialAccount, adapter PlatformAdapter) (Credential, error)
	Refresh(ctx context.Context, acc *models.SocialAccount, adapter PlatformAdapter) (Credential, error)
	Open(acc *models.SocialAccount) (Credential, error)
	Store(ctx context.Context, userID int64, platform string, connected *ConnectedAccount) (int64, error)
}

type credentialService struct {
	sa     repository.SocialAccountRepository
	sealer *utils.TokenSealer
	now    func() time.Time
}

func NewCredentialService(sa repository.SocialAccountRepository, sealer *utils.TokenSealer) CredentialService {
	return &credentialService{
		sa:     sa,
		sealer: sealer,
		now:    time.Now,
	}
}

func (s *credentialService) Open(acc *models.SocialAccount) (Credential, error) {
	access, err := s.sealer.Open(acc.AccessToken)
	if err != nil {
		return Credential{}, fmt.Errorf("decrypt access token of account %d: %w", acc.ID, err)
	}
	refresh, err := s.sealer.Open(acc.RefreshToken)
	if err != nil {
		return Credential{}, fmt.Errorf("decrypt refresh token of account %d: %w", acc.ID, err)
	}
	return Credential{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    acc.TokenExpiresAt,
	}, nil
}

// EnsureFresh returns a usable credential, refreshing it first when it has
// expired. Concurrent refreshes of one account are allowed; the last write
// wins.
func (s *credentialService) EnsureFresh(ctx context.Context, acc *models.SocialAccount, adapter PlatformAdapter) (Credential, error) {
	cred, err := s.Open(acc)
	if err != nil {
		return Credential{}, err
	}
	if cred.AccessToken == "" {
		return Credential{}, fmt.Errorf("account %d: %w", acc.ID, ErrMissingCredential)
	}
	if !acc.TokenExpired(s.now()) {
		return cred, nil
	}

	slog.Info("credential expired, refreshing", "account_id", acc.ID, "platform", acc.Platform, "expired_at", acc.TokenExpiresAt)
	return s.refresh(ctx, acc, adapter, cred)
}

func (s *credentialService) Refresh(ctx context.Context, acc *models.SocialAccount, adapter PlatformAdapter) (Credential, error) {
	cred, err := s.Open(acc)
	if err != nil {
		return Credential{}, err
	}
	return s.refresh(ctx, acc, adapter, cred)
}

func (s *credentialService) refresh(ctx context.Context, acc *models.SocialAccount, adapter PlatformAdapter, cred Credential) (Credential, error) {
	refreshToken := cred.RefreshToken
	if refreshToken == "" {
		refreshToken = cred.AccessToken
	}

	fresh, err := adapter.RefreshToken(ctx, refreshToken)
	if err != nil {
		return Credential{}, err
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = refreshToken
	}

	access, err := s.sealer.Seal(fresh.AccessToken)
	if err != nil {
		return Credential{}, err
	}
	refresh, err := s.sealer.Seal(fresh.RefreshToken)
	if err != nil {
		return Credential{}, err
	}

	if err := s.sa.UpdateCredential(ctx, acc.ID, access, refresh, fresh.ExpiresAt); err != nil {
		return Credential{}, fmt.Errorf("persist refreshed credential of account %d: %w", acc.ID, err)
	}

	acc.AccessToken = access
	acc.RefreshToken = refresh
	acc.TokenExpiresAt = fresh.ExpiresAt

	return *fresh, nil
}

func (s *credentialService) Store(ctx context.Context, userID int64, platform string, connected *ConnectedAccount) (int64, error) {
	access, err := s.sealer.Seal(connected.Credential.AccessToken)
	if err != nil {
		return 0, err
	}
	refresh, err := s.sealer.Seal(connected.Credential.RefreshToken)
	if err != nil {
		return 0, err
	}

	return s.sa.Create(ctx, &models.SocialAccount{
		UserID:          userID,
		Platform:        platform,
		AccountID:       connected.AccountID,
		AccountName:     connected.Name,
		AccountUsername: connected.Username,
		ProfilePicture:  connected.ProfilePicture,
		AccessToken:     access,
		RefreshToken:    refresh,
		TokenExpiresAt:  connected.Credential.ExpiresAt,
		IsActive:        true,
	})
}
