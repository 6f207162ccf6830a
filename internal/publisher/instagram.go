package publisher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/transfer"
)

type instagramPublisher struct {
	baseURL string
	version string
	api     *apiClient
}

func NewInstagramPublisher(baseURL, version string, client *http.Client) Publisher {
	return &instagramPublisher{
		baseURL: strings.TrimRight(baseURL, "/"),
		version: version,
		api: &apiClient{
			platform:     models.PlatformInstagram,
			http:         client,
			errorMessage: graphErrorMessage,
		},
	}
}

func (ig *instagramPublisher) Platform() models.Platform { return models.PlatformInstagram }

func (ig *instagramPublisher) Validate(req *Request) error {
	if req.MediaURL == "" {
		return precondition("Instagram requires at least one image")
	}
	return nil
}

// Publish creates a media container and then publishes it.
func (ig *instagramPublisher) Publish(ctx context.Context, creds models.Credentials, req *Request) (string, error) {
	if err := ig.Validate(req); err != nil {
		return "", err
	}

	container := transfer.InstagramContainerRequest{
		Caption:     req.Text,
		AccessToken: creds.AccessToken,
	}
	if isVideo(req.MediaURL) {
		container.VideoURL = req.MediaURL
		container.MediaType = "REELS"
	} else {
		container.ImageURL = req.MediaURL
	}

	httpReq, err := newJSONRequest(ctx, http.MethodPost,
		fmt.Sprintf("%s/%s/%s/media", ig.baseURL, ig.version, creds.AccountID), container)
	if err != nil {
		return "", err
	}
	var created transfer.GraphIDResponse
	if _, err := ig.api.do(httpReq, &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", errors.New("no media ID returned from Instagram")
	}

	httpReq, err = newJSONRequest(ctx, http.MethodPost,
		fmt.Sprintf("%s/%s/%s/media_publish", ig.baseURL, ig.version, creds.AccountID),
		transfer.InstagramPublishRequest{CreationID: created.ID, AccessToken: creds.AccessToken})
	if err != nil {
		return "", err
	}
	var published transfer.GraphIDResponse
	if _, err := ig.api.do(httpReq, &published); err != nil {
		return "", err
	}
	if published.ID == "" {
		return "", errors.New("no post ID returned from Instagram")
	}
	return published.ID, nil
}
