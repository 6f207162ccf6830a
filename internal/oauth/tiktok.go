package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/transfer"
	"golang.org/x/oauth2"
)

type tiktokRefresher struct {
	baseURL string
	app     config.OAuthClient
	client  *http.Client
}

func (r *tiktokRefresher) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	data := url.Values{}
	data.Set("client_key", r.app.ClientID)
	data.Set("client_secret", r.app.ClientSecret)
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v2/oauth/token/", strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh TikTok token: %w", err)
	}

	var result transfer.TiktokTokenResponse
	if err := decodeTokenResponse(resp, &result); err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, fmt.Errorf("%s: %s", result.Error, result.ErrorDescription)
	}
	if result.AccessToken == "" {
		return nil, errors.New("TikTok returned an empty access token")
	}

	return &oauth2.Token{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		TokenType:    result.TokenType,
		Expiry:       expiry(int64(result.ExpiresIn)),
	}, nil
}
