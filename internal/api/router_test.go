package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postflow/internal/api/handlers"
	"github.com/maheshrc27/postflow/internal/api/middleware"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/service"
	"github.com/maheshrc27/postflow/internal/transfer"
	"github.com/maheshrc27/postflow/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret      = "session-secret"
	testCookie      = "postflow_session"
	testServiceRole = "service-role-key"
)

type fakeSweeper struct {
	summary *models.SweepSummary
	err     error
}

func (f *fakeSweeper) Sweep(ctx context.Context) (*models.SweepSummary, error) {
	return f.summary, f.err
}

type fakePostService struct {
	created  *transfer.PostCreation
	hadFile  bool
	userID   int64
	createFn func() (*models.Post, error)
	posts    map[int64]*models.Post
	removeFn func(id int64) error
}

func (f *fakePostService) CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation, file *multipart.FileHeader) (*models.Post, error) {
	f.userID = userID
	f.created = pc
	f.hadFile = file != nil
	return f.createFn()
}

func (f *fakePostService) List(ctx context.Context, userID int64) ([]*models.Post, error) {
	var out []*models.Post
	for _, p := range f.posts {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePostService) PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error) {
	p, ok := f.posts[postID]
	if !ok || p.UserID != userID {
		return nil, service.ErrPostNotFound
	}
	return p, nil
}

func (f *fakePostService) Remove(ctx context.Context, userID, postID int64) error {
	return f.removeFn(postID)
}

type fakePlatformService struct {
	accounts []*models.SocialAccount
	deleted  int64
}

func (f *fakePlatformService) List(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	return f.accounts, nil
}

func (f *fakePlatformService) Delete(ctx context.Context, userID, accountID int64) error {
	if accountID != 7 {
		return service.ErrAccountNotFound
	}
	f.deleted = accountID
	return nil
}

func newTestApp(sweeper *fakeSweeper, posts *fakePostService, platforms *fakePlatformService) *fiber.App {
	if posts == nil {
		posts = &fakePostService{}
	}
	if platforms == nil {
		platforms = &fakePlatformService{}
	}
	if sweeper == nil {
		sweeper = &fakeSweeper{}
	}
	return NewApp(Router{
		Post:           handlers.NewPostHandler(posts),
		Platform:       handlers.NewPlatformHandler(platforms),
		Sweep:          handlers.NewSweepHandler(sweeper),
		Auth:           middleware.NewAuthMiddleware(testSecret, testCookie),
		ServiceRoleKey: testServiceRole,
		FrontendURL:    "http://localhost:5173",
	})
}

func sessionRequest(t *testing.T, method, target string, body io.Reader) *http.Request {
	t.Helper()
	token, err := utils.GenerateToken(testSecret, "42", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(method, target, body)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: token})
	return req
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestHealth(t *testing.T) {
	resp, err := newTestApp(nil, nil, nil).Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSweepEndpoint(t *testing.T) {
	summary := &models.SweepSummary{
		Processed: 1,
		Results: []models.PostResult{{
			PostID: 9,
			Status: models.PostStatusPartiallyPublished,
			Platforms: []models.PublishOutcome{
				models.Succeeded(models.PlatformTwitter, "123"),
				models.Failed(models.PlatformInstagram, "Instagram requires at least one image"),
			},
		}},
	}

	tests := []struct {
		name       string
		auth       string
		sweeper    *fakeSweeper
		wantStatus int
	}{
		{name: "missing credential", auth: "", sweeper: &fakeSweeper{summary: summary}, wantStatus: http.StatusUnauthorized},
		{name: "wrong credential", auth: "Bearer nope", sweeper: &fakeSweeper{summary: summary}, wantStatus: http.StatusUnauthorized},
		{name: "ok", auth: "Bearer " + testServiceRole, sweeper: &fakeSweeper{summary: summary}, wantStatus: http.StatusOK},
		{name: "due query fails", auth: "Bearer " + testServiceRole, sweeper: &fakeSweeper{err: errors.New("db down")}, wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/internal/sweep", nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			resp, err := newTestApp(tt.sweeper, nil, nil).Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}

	t.Run("summary body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/internal/sweep", nil)
		req.Header.Set("Authorization", "Bearer "+testServiceRole)
		resp, err := newTestApp(&fakeSweeper{summary: summary}, nil, nil).Test(req)
		require.NoError(t, err)

		var body struct {
			Processed int `json:"processed"`
			Results   []struct {
				PostID    int64  `json:"postId"`
				Status    string `json:"status"`
				Platforms []struct {
					Platform       string `json:"platform"`
					Success        bool   `json:"success"`
					PlatformPostID string `json:"platformPostId"`
					Error          string `json:"error"`
				} `json:"platforms"`
			} `json:"results"`
		}
		decode(t, resp, &body)

		assert.Equal(t, 1, body.Processed)
		require.Len(t, body.Results, 1)
		assert.Equal(t, "partially_published", body.Results[0].Status)
		require.Len(t, body.Results[0].Platforms, 2)
		assert.Equal(t, "123", body.Results[0].Platforms[0].PlatformPostID)
		assert.Equal(t, "Instagram requires at least one image", body.Results[0].Platforms[1].Error)
	})
}

func TestAPIRequiresSession(t *testing.T) {
	app := newTestApp(nil, nil, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/posts", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: "garbage"})
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func multipartBody(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestCreatePost(t *testing.T) {
	scheduled := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("created", func(t *testing.T) {
		posts := &fakePostService{createFn: func() (*models.Post, error) {
			return &models.Post{ID: 1, UserID: 42, Status: models.PostStatusScheduled, ScheduledAt: &scheduled}, nil
		}}
		body, contentType := multipartBody(t, map[string]string{
			"content":      "hello",
			"platforms":    "twitter, linkedin",
			"scheduled_at": scheduled.Format(time.RFC3339),
		})
		req := sessionRequest(t, http.MethodPost, "/api/posts", body)
		req.Header.Set("Content-Type", contentType)

		resp, err := newTestApp(nil, posts, nil).Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		assert.Equal(t, int64(42), posts.userID)
		assert.Equal(t, "hello", posts.created.Content)
		assert.Equal(t, []string{"twitter", "linkedin"}, posts.created.Platforms)
		assert.False(t, posts.hadFile)
	})

	t.Run("invalid input", func(t *testing.T) {
		posts := &fakePostService{createFn: func() (*models.Post, error) {
			return nil, fmt.Errorf("%w: content is required", service.ErrInvalidPost)
		}}
		body, contentType := multipartBody(t, map[string]string{"platforms": "twitter"})
		req := sessionRequest(t, http.MethodPost, "/api/posts", body)
		req.Header.Set("Content-Type", contentType)

		resp, err := newTestApp(nil, posts, nil).Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("storage failure", func(t *testing.T) {
		posts := &fakePostService{createFn: func() (*models.Post, error) {
			return nil, errors.New("error uploading file: bucket gone")
		}}
		body, contentType := multipartBody(t, map[string]string{"content": "hi", "platforms": "twitter"})
		req := sessionRequest(t, http.MethodPost, "/api/posts", body)
		req.Header.Set("Content-Type", contentType)

		resp, err := newTestApp(nil, posts, nil).Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
}

func TestGetAndRemovePost(t *testing.T) {
	posts := &fakePostService{
		posts: map[int64]*models.Post{
			1: {ID: 1, UserID: 42, Status: models.PostStatusDraft},
			2: {ID: 2, UserID: 7, Status: models.PostStatusDraft},
		},
		removeFn: func(id int64) error {
			switch id {
			case 1:
				return nil
			case 3:
				return service.ErrPostPublishing
			default:
				return service.ErrPostNotFound
			}
		},
	}
	app := newTestApp(nil, posts, nil)

	tests := []struct {
		name       string
		method     string
		target     string
		wantStatus int
	}{
		{name: "own post", method: http.MethodGet, target: "/api/posts/1", wantStatus: http.StatusOK},
		{name: "someone else's post", method: http.MethodGet, target: "/api/posts/2", wantStatus: http.StatusNotFound},
		{name: "bad id", method: http.MethodGet, target: "/api/posts/abc", wantStatus: http.StatusBadRequest},
		{name: "remove", method: http.MethodDelete, target: "/api/posts/1", wantStatus: http.StatusNoContent},
		{name: "remove while publishing", method: http.MethodDelete, target: "/api/posts/3", wantStatus: http.StatusConflict},
		{name: "remove missing", method: http.MethodDelete, target: "/api/posts/4", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(sessionRequest(t, tt.method, tt.target, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}

	t.Run("list", func(t *testing.T) {
		resp, err := app.Test(sessionRequest(t, http.MethodGet, "/api/posts", nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var got []models.Post
		decode(t, resp, &got)
		require.Len(t, got, 1)
		assert.Equal(t, int64(1), got[0].ID)
	})
}

func TestAccounts(t *testing.T) {
	platforms := &fakePlatformService{accounts: []*models.SocialAccount{
		{ID: 7, UserID: 42, Platform: models.PlatformTwitter, AccountName: "acme"},
	}}
	app := newTestApp(nil, nil, platforms)

	resp, err := app.Test(sessionRequest(t, http.MethodGet, "/api/accounts", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(sessionRequest(t, http.MethodDelete, "/api/accounts/7", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, int64(7), platforms.deleted)

	resp, err = app.Test(sessionRequest(t, http.MethodDelete, "/api/accounts/8", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
