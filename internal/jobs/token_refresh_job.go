package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/internal/service"
	"golang.org/x/sync/errgroup"
)

const (
	refreshWindow    = 30 * time.Minute
	concurrencyLimit = 10
)

// TokenRefreshJob refreshes credentials shortly before they expire so the
// publish path rarely has to.
type TokenRefreshJob struct {
	sr          repository.SocialAccountRepository
	registry    *service.AdapterRegistry
	credentials service.CredentialService
	now         func() time.Time
}

func NewTokenRefreshJob(
	sr repository.SocialAccountRepository,
	registry *service.AdapterRegistry,
	credentials service.CredentialService) *TokenRefreshJob {
	return &TokenRefreshJob{
		sr:          sr,
		registry:    registry,
		credentials: credentials,
		now:         time.Now,
	}
}

// RefreshTokens is the cron entry point.
func (c *TokenRefreshJob) RefreshTokens() {
	refreshed, failed := c.Run(context.Background())
	slog.Info("token refresh sweep done", "refreshed", refreshed, "failed", failed)
}

// Run refreshes every active account expiring within the window and reports
// how many succeeded and failed. One failure never stops the sweep.
func (c *TokenRefreshJob) Run(ctx context.Context) (refreshed, failed int) {
	accounts, err := c.sr.ListExpiring(ctx, c.now().Add(refreshWindow))
	if err != nil {
		slog.Info(err.Error())
		return 0, 0
	}

	results := make([]bool, len(accounts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrencyLimit)

	for i, acc := range accounts {
		g.Go(func() error {
			results[i] = c.refresh(gctx, acc)
			return nil
		})
	}
	_ = g.Wait()

	for _, ok := range results {
		if ok {
			refreshed++
		} else {
			failed++
		}
	}
	return refreshed, failed
}

func (c *TokenRefreshJob) refresh(ctx context.Context, acc *models.SocialAccount) bool {
	adapter, err := c.registry.Resolve(acc.Platform)
	if err != nil {
		slog.Warn("skipping token refresh", "account_id", acc.ID, "error", err)
		return false
	}

	if _, err := c.credentials.Refresh(ctx, acc, adapter); err != nil {
		slog.Warn("unable to refresh tokens", "account_id", acc.ID, "platform", acc.Platform, "error", err)
		return false
	}
	return true
}
