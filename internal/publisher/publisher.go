package publisher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/models"
)

// Request is what a publisher needs to know about a post.
type Request struct {
	PostID   int64
	Text     string
	MediaURL string
}

// Publisher posts content to a single platform. Validate checks local
// preconditions without touching the network; Publish makes one attempt
// and returns the platform-assigned post id.
type Publisher interface {
	Platform() models.Platform
	Validate(req *Request) error
	Publish(ctx context.Context, creds models.Credentials, req *Request) (string, error)
}

// SlowPublisher is implemented by publishers whose single call needs longer
// than the sweep's default per-call timeout.
type SlowPublisher interface {
	CallTimeout() time.Duration
}

var ErrPrecondition = errors.New("publish precondition not met")

// PreconditionError is a platform requirement the post does not satisfy.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string { return e.Reason }

func (e *PreconditionError) Is(target error) bool { return target == ErrPrecondition }

func precondition(format string, args ...any) error {
	return &PreconditionError{Reason: fmt.Sprintf(format, args...)}
}

// APIError is a non-success response from a platform API. Message holds the
// platform's own error text.
type APIError struct {
	Platform   models.Platform
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s API returned status %d", e.Platform, e.StatusCode)
	}
	return e.Message
}

// Registry resolves publishers by platform name.
type Registry struct {
	publishers map[models.Platform]Publisher
}

func NewRegistry(pubs ...Publisher) *Registry {
	r := &Registry{publishers: make(map[models.Platform]Publisher, len(pubs))}
	for _, p := range pubs {
		r.publishers[p.Platform()] = p
	}
	return r
}

func (r *Registry) Get(platform models.Platform) (Publisher, bool) {
	p, ok := r.publishers[platform]
	return p, ok
}

func (r *Registry) Platforms() []models.Platform {
	out := make([]models.Platform, 0, len(r.publishers))
	for _, p := range models.KnownPlatforms {
		if _, ok := r.publishers[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// NewLiveRegistry wires the real platform publishers against the configured
// API endpoints. YouTube gets its own client bounded by the upload timeout
// rather than the shared one.
func NewLiveRegistry(cfg config.Platforms, client *http.Client) *Registry {
	return NewRegistry(
		NewTwitterPublisher(cfg.TwitterAPIURL, client),
		NewFacebookPublisher(cfg.GraphAPIURL, cfg.GraphVersion, client),
		NewInstagramPublisher(cfg.InstagramAPIURL, cfg.GraphVersion, client),
		NewLinkedInPublisher(cfg.LinkedInAPIURL, client),
		NewTiktokPublisher(cfg.TiktokAPIURL, client),
		NewYoutubePublisher(cfg.YoutubeAPIURL, &http.Client{Transport: client.Transport, Timeout: cfg.YoutubeUploadTimeout}, cfg.YoutubeUploadTimeout),
	)
}

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".webm": true,
	".m4v":  true,
	".avi":  true,
}

func isVideo(mediaURL string) bool {
	u := mediaURL
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return videoExtensions[strings.ToLower(path.Ext(u))]
}
