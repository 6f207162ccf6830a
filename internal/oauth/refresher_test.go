package oauth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) config.Platforms {
	return config.Platforms{
		Twitter:         config.OAuthClient{ClientID: "tw-id", ClientSecret: "tw-secret"},
		Facebook:        config.OAuthClient{ClientID: "fb-id", ClientSecret: "fb-secret"},
		LinkedIn:        config.OAuthClient{ClientID: "li-id", ClientSecret: "li-secret"},
		Tiktok:          config.OAuthClient{ClientID: "tt-key", ClientSecret: "tt-secret"},
		Google:          config.OAuthClient{ClientID: "g-id", ClientSecret: "g-secret"},
		TwitterTokenURL: baseURL + "/2/oauth2/token",
		GraphAPIURL:     baseURL,
		GraphVersion:    "v21.0",
		InstagramAPIURL: baseURL,
		LinkedInAuthURL: baseURL,
		TiktokAPIURL:    baseURL,
		GoogleTokenURL:  baseURL + "/token",
	}
}

func TestNewRefreshersCoversRefreshablePlatforms(t *testing.T) {
	refreshers := NewRefreshers(testConfig("http://unused"), http.DefaultClient)

	for _, p := range []models.Platform{
		models.PlatformTwitter,
		models.PlatformFacebook,
		models.PlatformInstagram,
		models.PlatformLinkedIn,
		models.PlatformTiktok,
		models.PlatformYoutube,
	} {
		assert.Contains(t, refreshers, p)
	}
	assert.NotContains(t, refreshers, models.PlatformSnapchat)
}

func TestOAuth2Refreshers(t *testing.T) {
	tests := []struct {
		platform models.Platform
		path     string
		clientID string
	}{
		{platform: models.PlatformTwitter, path: "/2/oauth2/token", clientID: "tw-id"},
		{platform: models.PlatformLinkedIn, path: "/oauth/v2/accessToken", clientID: "li-id"},
		{platform: models.PlatformYoutube, path: "/token", clientID: "g-id"},
	}

	for _, tt := range tests {
		t.Run(string(tt.platform), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.path, r.URL.Path)
				require.NoError(t, r.ParseForm())
				assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
				assert.Equal(t, "old-refresh", r.PostForm.Get("refresh_token"))

				id, _, ok := r.BasicAuth()
				if !ok {
					id = r.PostForm.Get("client_id")
				}
				assert.Equal(t, tt.clientID, id)

				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, `{"access_token":"new-access","refresh_token":"new-refresh","token_type":"bearer","expires_in":7200}`)
			}))
			defer srv.Close()

			refreshers := NewRefreshers(testConfig(srv.URL), srv.Client())
			token, err := refreshers[tt.platform].Refresh(context.Background(), "old-refresh")
			require.NoError(t, err)
			assert.Equal(t, "new-access", token.AccessToken)
			assert.Equal(t, "new-refresh", token.RefreshToken)
			assert.WithinDuration(t, time.Now().Add(2*time.Hour), token.Expiry, time.Minute)
		})
	}
}

func TestOAuth2RefresherError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"invalid_grant","error_description":"Token has been revoked"}`)
	}))
	defer srv.Close()

	refreshers := NewRefreshers(testConfig(srv.URL), srv.Client())
	_, err := refreshers[models.PlatformTwitter].Refresh(context.Background(), "revoked")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_grant")
}

func TestTiktokRefresher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/oauth/token/", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "tt-key", r.PostForm.Get("client_key"))
		assert.Equal(t, "tt-secret", r.PostForm.Get("client_secret"))
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "old-refresh", r.PostForm.Get("refresh_token"))
		_, _ = io.WriteString(w, `{"access_token":"act.new","expires_in":86400,"refresh_token":"rft.new","token_type":"Bearer"}`)
	}))
	defer srv.Close()

	token, err := NewRefreshers(testConfig(srv.URL), srv.Client())[models.PlatformTiktok].Refresh(context.Background(), "old-refresh")
	require.NoError(t, err)
	assert.Equal(t, "act.new", token.AccessToken)
	assert.Equal(t, "rft.new", token.RefreshToken)
}

func TestTiktokRefresherErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"error":"invalid_grant","error_description":"Refresh token is invalid or expired."}`)
	}))
	defer srv.Close()

	_, err := NewRefreshers(testConfig(srv.URL), srv.Client())[models.PlatformTiktok].Refresh(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, "invalid_grant: Refresh token is invalid or expired.", err.Error())
}

func TestInstagramRefresher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/refresh_access_token", r.URL.Path)
		assert.Equal(t, "ig_refresh_token", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "long-lived", r.URL.Query().Get("access_token"))
		_, _ = io.WriteString(w, `{"access_token":"long-lived-2","token_type":"bearer","expires_in":5183944}`)
	}))
	defer srv.Close()

	token, err := NewRefreshers(testConfig(srv.URL), srv.Client())[models.PlatformInstagram].Refresh(context.Background(), "long-lived")
	require.NoError(t, err)
	assert.Equal(t, "long-lived-2", token.AccessToken)
	assert.Equal(t, "long-lived-2", token.RefreshToken)
}

func TestFacebookRefresher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v21.0/oauth/access_token", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "fb_exchange_token", q.Get("grant_type"))
		assert.Equal(t, "fb-id", q.Get("client_id"))
		assert.Equal(t, "user-token", q.Get("fb_exchange_token"))
		_, _ = io.WriteString(w, `{"access_token":"fb-long","token_type":"bearer","expires_in":5184000}`)
	}))
	defer srv.Close()

	token, err := NewRefreshers(testConfig(srv.URL), srv.Client())[models.PlatformFacebook].Refresh(context.Background(), "user-token")
	require.NoError(t, err)
	assert.Equal(t, "fb-long", token.AccessToken)
}

func TestGraphRefresherNonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"Session has expired"}}`)
	}))
	defer srv.Close()

	_, err := NewRefreshers(testConfig(srv.URL), srv.Client())[models.PlatformInstagram].Refresh(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Session has expired")
}

func TestSimulatedRefreshersMintLocalTokens(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	refreshers := NewSimulatedRefreshers(func() time.Time { return now })

	for _, p := range models.KnownPlatforms {
		t.Run(string(p), func(t *testing.T) {
			require.Contains(t, refreshers, p)

			token, err := refreshers[p].Refresh(context.Background(), "refresh-1")
			require.NoError(t, err)
			assert.Contains(t, token.AccessToken, "sim_"+string(p)+"_")
			assert.Equal(t, "refresh-1", token.RefreshToken)
			assert.Equal(t, now.Add(SimulatedTokenLifetime), token.Expiry)
		})
	}
}

func TestSimulatedRefresherCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSimulatedRefreshers(nil)[models.PlatformTwitter].Refresh(ctx, "refresh-1")
	assert.ErrorIs(t, err, context.Canceled)
}
