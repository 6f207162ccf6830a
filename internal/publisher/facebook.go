package publisher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/transfer"
)

type facebookPublisher struct {
	baseURL string
	version string
	api     *apiClient
}

func NewFacebookPublisher(baseURL, version string, client *http.Client) Publisher {
	return &facebookPublisher{
		baseURL: strings.TrimRight(baseURL, "/"),
		version: version,
		api: &apiClient{
			platform:     models.PlatformFacebook,
			http:         client,
			errorMessage: graphErrorMessage,
		},
	}
}

func (f *facebookPublisher) Platform() models.Platform { return models.PlatformFacebook }

func (f *facebookPublisher) Validate(req *Request) error {
	if strings.TrimSpace(req.Text) == "" && req.MediaURL == "" {
		return precondition("Facebook post has no message or media")
	}
	return nil
}

func (f *facebookPublisher) Publish(ctx context.Context, creds models.Credentials, req *Request) (string, error) {
	pageID, pageToken, err := f.pageToken(ctx, creds)
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("access_token", pageToken)

	endpoint := fmt.Sprintf("%s/%s/%s/feed", f.baseURL, f.version, pageID)
	if req.MediaURL != "" {
		endpoint = fmt.Sprintf("%s/%s/%s/photos", f.baseURL, f.version, pageID)
		form.Set("url", req.MediaURL)
		form.Set("caption", req.Text)
	} else {
		form.Set("message", req.Text)
	}

	httpReq, err := newFormRequest(ctx, endpoint, form)
	if err != nil {
		return "", err
	}

	var result transfer.GraphIDResponse
	if _, err := f.api.do(httpReq, &result); err != nil {
		return "", err
	}
	if result.PostID != "" {
		return result.PostID, nil
	}
	if result.ID == "" {
		return "", errors.New("no post ID returned from Facebook")
	}
	return result.ID, nil
}

// pageToken picks the page matching the connected account id, falling back
// to the first page the user manages.
func (f *facebookPublisher) pageToken(ctx context.Context, creds models.Credentials) (string, string, error) {
	params := url.Values{}
	params.Set("fields", "id,name,access_token")
	params.Set("access_token", creds.AccessToken)
	endpoint := fmt.Sprintf("%s/%s/me/accounts?%s", f.baseURL, f.version, params.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", "", fmt.Errorf("error creating request: %w", err)
	}

	var pages transfer.FacebookPageList
	if _, err := f.api.do(httpReq, &pages); err != nil {
		return "", "", err
	}
	if len(pages.Data) == 0 {
		return "", "", errors.New("no Facebook page available for this account")
	}
	for _, p := range pages.Data {
		if p.ID == creds.AccountID {
			return p.ID, p.AccessToken, nil
		}
	}
	return pages.Data[0].ID, pages.Data[0].AccessToken, nil
}
