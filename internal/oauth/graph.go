package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/transfer"
	"golang.org/x/oauth2"
)

// instagramRefresher extends a long-lived Instagram token. The long-lived
// token is its own refresh token.
type instagramRefresher struct {
	baseURL string
	client  *http.Client
}

func (r *instagramRefresher) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	params := url.Values{}
	params.Set("grant_type", "ig_refresh_token")
	params.Set("access_token", refreshToken)

	return getGraphToken(ctx, r.client, r.baseURL+"/refresh_access_token?"+params.Encode())
}

// facebookRefresher exchanges a user token for a fresh long-lived one.
type facebookRefresher struct {
	baseURL string
	version string
	app     config.OAuthClient
	client  *http.Client
}

func (r *facebookRefresher) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	params := url.Values{}
	params.Set("grant_type", "fb_exchange_token")
	params.Set("client_id", r.app.ClientID)
	params.Set("client_secret", r.app.ClientSecret)
	params.Set("fb_exchange_token", refreshToken)

	return getGraphToken(ctx, r.client, fmt.Sprintf("%s/%s/oauth/access_token?%s", r.baseURL, r.version, params.Encode()))
}

func getGraphToken(ctx context.Context, client *http.Client, endpoint string) (*oauth2.Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	var result transfer.GraphTokenResponse
	if err := decodeTokenResponse(resp, &result); err != nil {
		return nil, err
	}
	if result.AccessToken == "" {
		return nil, errors.New("empty access token in refresh response")
	}

	return &oauth2.Token{
		AccessToken:  result.AccessToken,
		RefreshToken: result.AccessToken,
		TokenType:    result.TokenType,
		Expiry:       expiry(result.ExpiresIn),
	}, nil
}
