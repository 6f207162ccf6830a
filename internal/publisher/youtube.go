package publisher

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const youtubeTitleMax = 100

type youtubePublisher struct {
	endpoint string
	client   *http.Client
	timeout  time.Duration
}

// NewYoutubePublisher uploads videos through the YouTube Data API. An empty
// endpoint uses the library default. A positive timeout replaces the sweep's
// per-call limit for the whole download and upload.
func NewYoutubePublisher(endpoint string, client *http.Client, timeout time.Duration) Publisher {
	return &youtubePublisher{endpoint: endpoint, client: client, timeout: timeout}
}

func (y *youtubePublisher) CallTimeout() time.Duration { return y.timeout }

func (y *youtubePublisher) Platform() models.Platform { return models.PlatformYoutube }

func (y *youtubePublisher) Validate(req *Request) error {
	if req.MediaURL == "" || !isVideo(req.MediaURL) {
		return precondition("YouTube requires a video")
	}
	return nil
}

func (y *youtubePublisher) Publish(ctx context.Context, creds models.Credentials, req *Request) (string, error) {
	if err := y.Validate(req); err != nil {
		return "", err
	}

	authCtx := context.WithValue(ctx, oauth2.HTTPClient, y.client)
	opts := []option.ClientOption{
		option.WithHTTPClient(oauth2.NewClient(authCtx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: creds.AccessToken}))),
	}
	if y.endpoint != "" {
		opts = append(opts, option.WithEndpoint(y.endpoint))
	}
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("error creating YouTube service: %w", err)
	}

	mediaReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.MediaURL, nil)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	media, err := y.client.Do(mediaReq)
	if err != nil {
		return "", fmt.Errorf("error downloading video: %w", err)
	}
	defer media.Body.Close()
	if media.StatusCode != http.StatusOK {
		return "", fmt.Errorf("error downloading video: unexpected status %d", media.StatusCode)
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       youtubeTitle(req.Text),
			Description: req.Text,
			CategoryId:  "22",
		},
		Status: &youtube.VideoStatus{PrivacyStatus: "public"},
	}

	uploaded, err := service.Videos.Insert([]string{"snippet", "status"}, video).Media(media.Body).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("error uploading video: %w", err)
	}
	return uploaded.Id, nil
}

func youtubeTitle(text string) string {
	title := strings.TrimSpace(strings.SplitN(text, "\n", 2)[0])
	if title == "" {
		return "Untitled"
	}
	return truncateRunes(title, youtubeTitleMax)
}
