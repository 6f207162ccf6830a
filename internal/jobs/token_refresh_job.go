package job

import (
	"context"
	"sync"
	"time"

	"github.com/maheshrc27/postflow/internal/logger"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/internal/service"
	log "github.com/sirupsen/logrus"
)

// RefreshWindow is how far ahead the proactive job looks for expiring tokens.
const RefreshWindow = 30 * time.Minute

type TokenRefreshJob struct {
	sr      repository.SocialAccountRepository
	tokens  service.TokenService
	timeout time.Duration
	now     func() time.Time
}

func NewTokenRefreshJob(sr repository.SocialAccountRepository, tokens service.TokenService, timeout time.Duration, now func() time.Time) *TokenRefreshJob {
	if now == nil {
		now = time.Now
	}
	return &TokenRefreshJob{
		sr:      sr,
		tokens:  tokens,
		timeout: timeout,
		now:     now,
	}
}

// RefreshTokens refreshes every connected account whose token expires within
// RefreshWindow and returns how many were refreshed.
func (c *TokenRefreshJob) RefreshTokens(ctx context.Context) int {
	accounts, err := c.sr.ListExpiring(ctx, c.now().Add(RefreshWindow))
	if err != nil {
		logger.L().Warnf("failed to list expiring accounts: %v", err)
		return 0
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		refreshed int
	)

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, acc := range accounts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.SocialAccount) {
			defer wg.Done()
			defer func() { <-semaphore }()

			callCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			if _, err := c.tokens.Refresh(callCtx, acc); err != nil {
				logger.L().WithFields(log.Fields{
					"account_id": acc.ID,
					"platform":   acc.Platform,
				}).Warnf("unable to refresh token: %v", err)
				return
			}
			mu.Lock()
			refreshed++
			mu.Unlock()
		}(acc)
	}

	wg.Wait()
	return refreshed
}
