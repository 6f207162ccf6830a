package oauth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/maheshrc27/postflow/internal/models"
	"golang.org/x/oauth2"
)

// SimulatedTokenLifetime is the expiry given to locally minted tokens.
const SimulatedTokenLifetime = time.Hour

type simulatedRefresher struct {
	platform models.Platform
	now      func() time.Time
}

// NewSimulatedRefreshers mints tokens locally for every known platform so a
// simulated run never reaches a live token endpoint.
func NewSimulatedRefreshers(now func() time.Time) map[models.Platform]Refresher {
	if now == nil {
		now = time.Now
	}
	refreshers := make(map[models.Platform]Refresher, len(models.KnownPlatforms))
	for _, p := range models.KnownPlatforms {
		refreshers[p] = &simulatedRefresher{platform: p, now: now}
	}
	return refreshers
}

func (r *simulatedRefresher) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken:  "sim_" + string(r.platform) + "_" + uuid.NewString()[:8],
		RefreshToken: refreshToken,
		Expiry:       r.now().Add(SimulatedTokenLifetime),
	}, nil
}
