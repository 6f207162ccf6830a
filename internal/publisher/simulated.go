package publisher

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"

	"github.com/google/uuid"
	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/models"
)

var simulatedPrefixes = map[models.Platform]string{
	models.PlatformTwitter:   "tw",
	models.PlatformFacebook:  "fb",
	models.PlatformInstagram: "ig",
	models.PlatformLinkedIn:  "li",
	models.PlatformTiktok:    "tt",
	models.PlatformYoutube:   "yt",
}

// simulatedPublisher fakes a platform for local runs: no network, random
// failures at failRate. Preconditions are those of the wrapped live publisher.
type simulatedPublisher struct {
	live     Publisher
	failRate float64
	roll     func() float64
}

func NewSimulatedPublisher(live Publisher, failRate float64) Publisher {
	return &simulatedPublisher{live: live, failRate: failRate, roll: rand.Float64}
}

// NewSimulatedRegistry covers the same platforms as the live registry.
func NewSimulatedRegistry(failRate float64) *Registry {
	live := NewLiveRegistry(config.Platforms{}, http.DefaultClient)
	pubs := make([]Publisher, 0, len(live.publishers))
	for _, p := range live.Platforms() {
		pub, _ := live.Get(p)
		pubs = append(pubs, NewSimulatedPublisher(pub, failRate))
	}
	return NewRegistry(pubs...)
}

func (s *simulatedPublisher) Platform() models.Platform { return s.live.Platform() }

func (s *simulatedPublisher) Validate(req *Request) error { return s.live.Validate(req) }

func (s *simulatedPublisher) Publish(ctx context.Context, _ models.Credentials, _ *Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	platform := s.Platform()
	if s.roll() < s.failRate {
		return "", &APIError{
			Platform:   platform,
			StatusCode: http.StatusServiceUnavailable,
			Message:    fmt.Sprintf("Simulated %s outage", platform),
		}
	}
	prefix, ok := simulatedPrefixes[platform]
	if !ok {
		prefix = string(platform)
	}
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString()[:8]), nil
}
