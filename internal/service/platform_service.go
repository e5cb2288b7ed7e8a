package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maheshrc27/postflow/internal/repository"
)

var ErrAccountNotFound = errors.New("account not found")

// PlatformService connects, checks and removes social accounts.
type PlatformService interface {
	GetAuthURL(ctx context.Context, platform, state string) (string, error)
	Connect(ctx context.Context, userID int64, platform, code string) (int64, error)
	Validate(ctx context.Context, userID, accountID int64) (bool, error)
	Delete(ctx context.Context, userID, accountID int64) error
}

type platformService struct {
	registry    *AdapterRegistry
	sa          repository.SocialAccountRepository
	credentials CredentialService
}

func NewPlatformService(registry *AdapterRegistry, sa repository.SocialAccountRepository, credentials CredentialService) PlatformService {
	return &platformService{
		registry:    registry,
		sa:          sa,
		credentials: credentials,
	}
}

func (s *platformService) GetAuthURL(ctx context.Context, platform, state string) (string, error) {
	adapter, err := s.registry.Resolve(platform)
	if err != nil {
		return "", err
	}
	p, ok := adapter.(AuthURLProvider)
	if !ok {
		return "", fmt.Errorf("%w: %s has no oauth redirect", ErrUnsupportedPlatform, platform)
	}
	return p.AuthURL(state), nil
}

func (s *platformService) Connect(ctx context.Context, userID int64, platform, code string) (int64, error) {
	if userID == 0 {
		err := errors.New("UserID is not valid")
		slog.Info(err.Error())
		return 0, err
	}

	adapter, err := s.registry.Resolve(platform)
	if err != nil {
		return 0, err
	}

	connected, err := adapter.ConnectAccount(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	id, err := s.credentials.Store(ctx, userID, adapter.Platform(), connected)
	if err != nil {
		return 0, fmt.Errorf("store %s account: %w", platform, err)
	}

	slog.Info("account connected", "user_id", userID, "platform", platform, "account_id", id)
	return id, nil
}

// Validate asks the platform whether the stored credential is still accepted.
func (s *platformService) Validate(ctx context.Context, userID, accountID int64) (bool, error) {
	acc, err := s.sa.GetByID(ctx, accountID)
	if err != nil {
		return false, err
	}
	if acc == nil || acc.UserID != userID {
		return false, ErrAccountNotFound
	}

	adapter, err := s.registry.Resolve(acc.Platform)
	if err != nil {
		return false, err
	}

	cred, err := s.credentials.EnsureFresh(ctx, acc, adapter)
	if err != nil {
		var rerr *RefreshError
		if errors.As(err, &rerr) || errors.Is(err, ErrMissingCredential) {
			return false, nil
		}
		return false, err
	}

	return adapter.ValidateAccount(ctx, cred)
}

func (s *platformService) Delete(ctx context.Context, userID, accountID int64) error {
	acc, err := s.sa.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if acc == nil || acc.UserID != userID {
		return ErrAccountNotFound
	}

	adapter, err := s.registry.Resolve(acc.Platform)
	if err != nil {
		return err
	}

	cred, err := s.credentials.Open(acc)
	if err != nil {
		return err
	}
	// The remote revoke is best effort, the local removal is what matters.
	if err := adapter.Disconnect(ctx, cred); err != nil {
		slog.Warn("remote disconnect failed", "account_id", accountID, "platform", acc.Platform, "error", err)
	}

	return s.sa.Remove(ctx, accountID)
}
