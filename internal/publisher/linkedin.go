package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/transfer"
)

type linkedInPublisher struct {
	baseURL string
	api     *apiClient
}

func NewLinkedInPublisher(baseURL string, client *http.Client) Publisher {
	return &linkedInPublisher{
		baseURL: strings.TrimRight(baseURL, "/"),
		api: &apiClient{
			platform:     models.PlatformLinkedIn,
			http:         client,
			errorMessage: linkedInErrorMessage,
		},
	}
}

func (l *linkedInPublisher) Platform() models.Platform { return models.PlatformLinkedIn }

func (l *linkedInPublisher) Validate(req *Request) error {
	if strings.TrimSpace(req.Text) == "" {
		return precondition("LinkedIn post text is empty")
	}
	return nil
}

func (l *linkedInPublisher) Publish(ctx context.Context, creds models.Credentials, req *Request) (string, error) {
	content := transfer.LinkedInShareContent{
		ShareCommentary:    transfer.LinkedInText{Text: req.Text},
		ShareMediaCategory: "NONE",
	}
	if req.MediaURL != "" {
		content.ShareMediaCategory = "ARTICLE"
		content.Media = []transfer.LinkedInMedia{{Status: "READY", OriginalURL: req.MediaURL}}
	}

	share := transfer.LinkedInShareRequest{
		Author:          "urn:li:person:" + creds.AccountID,
		LifecycleState:  "PUBLISHED",
		SpecificContent: transfer.LinkedInSpecificContent{ShareContent: content},
		Visibility:      map[string]string{"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC"},
	}

	httpReq, err := newJSONRequest(ctx, http.MethodPost, l.baseURL+"/v2/ugcPosts", share)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	httpReq.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	var result transfer.LinkedInShareResponse
	header, err := l.api.do(httpReq, &result)
	if err != nil {
		return "", err
	}
	if id := header.Get("X-RestLi-Id"); id != "" {
		return id, nil
	}
	if result.ID == "" {
		return "", errors.New("no share ID returned from LinkedIn")
	}
	return result.ID, nil
}

func linkedInErrorMessage(body []byte) string {
	var e transfer.LinkedInErrorResponse
	if json.Unmarshal(body, &e) != nil {
		return ""
	}
	return e.Message
}
