package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/transfer"
)

const (
	tweetMaxLength = 280
	// links are counted as a fixed-length t.co URL
	tweetLinkLength = 23
)

type twitterPublisher struct {
	baseURL string
	api     *apiClient
}

func NewTwitterPublisher(baseURL string, client *http.Client) Publisher {
	return &twitterPublisher{
		baseURL: strings.TrimRight(baseURL, "/"),
		api: &apiClient{
			platform:     models.PlatformTwitter,
			http:         client,
			errorMessage: twitterErrorMessage,
		},
	}
}

func (t *twitterPublisher) Platform() models.Platform { return models.PlatformTwitter }

func (t *twitterPublisher) Validate(req *Request) error {
	if strings.TrimSpace(req.Text) == "" && req.MediaURL == "" {
		return precondition("Tweet text is empty")
	}
	length := utf8.RuneCountInString(req.Text)
	if req.MediaURL != "" {
		length += 1 + tweetLinkLength
	}
	if length > tweetMaxLength {
		return precondition("Tweet exceeds %d characters", tweetMaxLength)
	}
	return nil
}

func (t *twitterPublisher) Publish(ctx context.Context, creds models.Credentials, req *Request) (string, error) {
	text := req.Text
	if req.MediaURL != "" {
		text = strings.TrimSpace(text + "\n" + req.MediaURL)
	}

	httpReq, err := newJSONRequest(ctx, http.MethodPost, t.baseURL+"/2/tweets", transfer.TweetRequest{Text: text})
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+creds.AccessToken)

	var result transfer.TweetResponse
	if _, err := t.api.do(httpReq, &result); err != nil {
		return "", err
	}
	if result.Data.ID == "" {
		return "", errors.New("no tweet ID returned from Twitter")
	}
	return result.Data.ID, nil
}

func twitterErrorMessage(body []byte) string {
	var e transfer.TwitterErrorResponse
	if json.Unmarshal(body, &e) != nil {
		return ""
	}
	switch {
	case e.Detail != "":
		return e.Detail
	case len(e.Errors) > 0:
		return e.Errors[0].Message
	default:
		return e.Title
	}
}
