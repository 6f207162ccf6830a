package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Refresher exchanges a refresh token for a new access token. The returned
// token may carry an empty RefreshToken when the platform keeps the old one.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// NewRefreshers builds a refresher for every platform that supports token
// refresh.
func NewRefreshers(cfg config.Platforms, client *http.Client) map[models.Platform]Refresher {
	twitter := oauth2.Endpoint{
		TokenURL:  cfg.TwitterTokenURL,
		AuthStyle: oauth2.AuthStyleInHeader,
	}
	linkedIn := oauth2.Endpoint{
		TokenURL:  strings.TrimRight(cfg.LinkedInAuthURL, "/") + "/oauth/v2/accessToken",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	youtube := google.Endpoint
	if cfg.GoogleTokenURL != "" {
		youtube.TokenURL = cfg.GoogleTokenURL
	}

	return map[models.Platform]Refresher{
		models.PlatformTwitter:   newOAuth2Refresher(cfg.Twitter, twitter, client),
		models.PlatformLinkedIn:  newOAuth2Refresher(cfg.LinkedIn, linkedIn, client),
		models.PlatformYoutube:   newOAuth2Refresher(cfg.Google, youtube, client),
		models.PlatformTiktok:    &tiktokRefresher{baseURL: strings.TrimRight(cfg.TiktokAPIURL, "/"), app: cfg.Tiktok, client: client},
		models.PlatformInstagram: &instagramRefresher{baseURL: strings.TrimRight(cfg.InstagramAPIURL, "/"), client: client},
		models.PlatformFacebook: &facebookRefresher{
			baseURL: strings.TrimRight(cfg.GraphAPIURL, "/"),
			version: cfg.GraphVersion,
			app:     cfg.Facebook,
			client:  client,
		},
	}
}

type oauth2Refresher struct {
	conf   *oauth2.Config
	client *http.Client
}

func newOAuth2Refresher(app config.OAuthClient, endpoint oauth2.Endpoint, client *http.Client) Refresher {
	return &oauth2Refresher{
		conf: &oauth2.Config{
			ClientID:     app.ClientID,
			ClientSecret: app.ClientSecret,
			Endpoint:     endpoint,
		},
		client: client,
	}
}

func (r *oauth2Refresher) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.client)
	token, err := r.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, err
	}
	return token, nil
}

func expiry(expiresIn int64) time.Time {
	if expiresIn <= 0 {
		return time.Time{}
	}
	return time.Now().Add(time.Duration(expiresIn) * time.Second)
}

func decodeTokenResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode token response: %w", err)
	}
	return nil
}
