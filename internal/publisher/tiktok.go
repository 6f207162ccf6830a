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

const tiktokTitleMax = 90

type tiktokPublisher struct {
	baseURL string
	api     *apiClient
}

func NewTiktokPublisher(baseURL string, client *http.Client) Publisher {
	return &tiktokPublisher{
		baseURL: strings.TrimRight(baseURL, "/"),
		api: &apiClient{
			platform:     models.PlatformTiktok,
			http:         client,
			errorMessage: tiktokErrorMessage,
		},
	}
}

func (t *tiktokPublisher) Platform() models.Platform { return models.PlatformTiktok }

func (t *tiktokPublisher) Validate(req *Request) error {
	if req.MediaURL == "" {
		return precondition("TikTok requires a photo or video")
	}
	return nil
}

// Publish starts a direct post that TikTok pulls from the media URL. The
// returned id is the publish_id; processing continues on TikTok's side.
func (t *tiktokPublisher) Publish(ctx context.Context, creds models.Credentials, req *Request) (string, error) {
	if err := t.Validate(req); err != nil {
		return "", err
	}

	var (
		endpoint string
		payload  any
	)
	if isVideo(req.MediaURL) {
		endpoint = t.baseURL + "/v2/post/publish/video/init/"
		payload = transfer.VideoUploadRequest{
			PostInfo: transfer.VideoPostInfo{
				Title:                 truncateRunes(req.Text, tiktokTitleMax),
				PrivacyLevel:          "PUBLIC_TO_EVERYONE",
				VideoCoverTimestampMs: 1000,
			},
			SourceInfo: transfer.VideoSourceInfo{
				Source:   "PULL_FROM_URL",
				VideoURL: req.MediaURL,
			},
		}
	} else {
		endpoint = t.baseURL + "/v2/post/publish/content/init/"
		payload = transfer.PhotoUploadRequest{
			PostInfo: transfer.PhotoPostInfo{
				Title:        truncateRunes(req.Text, tiktokTitleMax),
				Description:  req.Text,
				PrivacyLevel: "PUBLIC_TO_EVERYONE",
				AutoAddMusic: true,
			},
			SourceInfo: transfer.PhotoSourceInfo{
				Source:      "PULL_FROM_URL",
				PhotoImages: []string{req.MediaURL},
			},
			PostMode:  "DIRECT_POST",
			MediaType: "PHOTO",
		}
	}

	httpReq, err := newJSONRequest(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	httpReq.Header.Set("Content-Type", "application/json; charset=UTF-8")

	var result transfer.TikTokUploadResponse
	if _, err := t.api.do(httpReq, &result); err != nil {
		return "", err
	}
	if result.Error.Code != "" && result.Error.Code != "ok" {
		return "", &APIError{Platform: models.PlatformTiktok, StatusCode: http.StatusOK, Message: result.Error.Message}
	}
	if result.Data.PublishID == "" {
		return "", errors.New("no publish ID returned from TikTok")
	}
	return result.Data.PublishID, nil
}

func tiktokErrorMessage(body []byte) string {
	var e transfer.TikTokUploadResponse
	if json.Unmarshal(body, &e) != nil {
		return ""
	}
	return e.Error.Message
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
