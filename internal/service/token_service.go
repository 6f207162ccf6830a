package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/maheshrc27/postflow/internal/logger"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/oauth"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/pkg/utils"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// ExpiryBuffer treats tokens that expire this soon as already expired.
const ExpiryBuffer = 5 * time.Minute

var (
	ErrNoRefreshToken = errors.New("no refresh token")
	ErrNoRefresher    = errors.New("token refresh is not supported for this platform")
)

type TokenService interface {
	// Ensure returns usable credentials, refreshing and persisting new
	// tokens first when the stored access token is expired.
	Ensure(ctx context.Context, sa *models.SocialAccount) (models.Credentials, error)
	// Refresh refreshes unconditionally. Concurrent calls for the same
	// account share one refresh.
	Refresh(ctx context.Context, sa *models.SocialAccount) (models.Credentials, error)
	Expired(sa *models.SocialAccount) bool
}

type tokenService struct {
	secretKey  []byte
	sa         repository.SocialAccountRepository
	refreshers map[models.Platform]oauth.Refresher
	now        func() time.Time
	inflight   singleflight.Group
}

// NewTokenService stores tokens AES-GCM sealed with secretKey; an empty key
// keeps them in plaintext.
func NewTokenService(secretKey string, sa repository.SocialAccountRepository, refreshers map[models.Platform]oauth.Refresher, now func() time.Time) TokenService {
	if now == nil {
		now = time.Now
	}
	return &tokenService{
		secretKey:  []byte(secretKey),
		sa:         sa,
		refreshers: refreshers,
		now:        now,
	}
}

func (s *tokenService) Expired(sa *models.SocialAccount) bool {
	return sa.TokenExpiresAt != nil && !sa.TokenExpiresAt.After(s.now().Add(ExpiryBuffer))
}

func (s *tokenService) Ensure(ctx context.Context, sa *models.SocialAccount) (models.Credentials, error) {
	if !s.Expired(sa) {
		return s.credentials(sa)
	}
	return s.Refresh(ctx, sa)
}

func (s *tokenService) Refresh(ctx context.Context, sa *models.SocialAccount) (models.Credentials, error) {
	v, err, _ := s.inflight.Do(strconv.FormatInt(sa.ID, 10), func() (interface{}, error) {
		return s.refresh(ctx, sa)
	})
	if err != nil {
		return models.Credentials{}, err
	}
	return v.(models.Credentials), nil
}

func (s *tokenService) refresh(ctx context.Context, sa *models.SocialAccount) (models.Credentials, error) {
	if sa.RefreshToken == "" {
		return models.Credentials{}, ErrNoRefreshToken
	}
	refresher, ok := s.refreshers[sa.Platform]
	if !ok {
		return models.Credentials{}, ErrNoRefresher
	}

	refreshToken, err := s.open(sa.RefreshToken)
	if err != nil {
		return models.Credentials{}, fmt.Errorf("failed to decrypt refresh token: %w", err)
	}

	token, err := refresher.Refresh(ctx, refreshToken)
	if err != nil {
		return models.Credentials{}, err
	}
	if token.AccessToken == "" {
		return models.Credentials{}, errors.New("refresh returned an empty access token")
	}

	updated := &models.SocialAccount{}
	if updated.AccessToken, err = s.seal(token.AccessToken); err != nil {
		return models.Credentials{}, fmt.Errorf("failed to encrypt access token: %w", err)
	}
	if token.RefreshToken != "" {
		if updated.RefreshToken, err = s.seal(token.RefreshToken); err != nil {
			return models.Credentials{}, fmt.Errorf("failed to encrypt refresh token: %w", err)
		}
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		updated.TokenExpiresAt = &expiry
	}

	err = s.sa.SetToken(ctx, sa.ID, sa.AccessToken, updated)
	if errors.Is(err, repository.ErrTokenChanged) {
		return s.reload(ctx, sa)
	}
	if err != nil {
		return models.Credentials{}, fmt.Errorf("failed to store refreshed token: %w", err)
	}

	logger.L().WithFields(log.Fields{
		"account_id": sa.ID,
		"platform":   sa.Platform,
	}).Info("refreshed access token")

	return models.Credentials{AccessToken: token.AccessToken, AccountID: sa.AccountID}, nil
}

// reload picks up a token another refresher stored first.
func (s *tokenService) reload(ctx context.Context, sa *models.SocialAccount) (models.Credentials, error) {
	current, err := s.sa.GetByID(ctx, sa.ID)
	if err != nil {
		return models.Credentials{}, err
	}
	if current == nil || s.Expired(current) {
		return models.Credentials{}, repository.ErrTokenChanged
	}
	return s.credentials(current)
}

func (s *tokenService) credentials(sa *models.SocialAccount) (models.Credentials, error) {
	accessToken, err := s.open(sa.AccessToken)
	if err != nil {
		return models.Credentials{}, fmt.Errorf("failed to decrypt access token: %w", err)
	}
	return models.Credentials{AccessToken: accessToken, AccountID: sa.AccountID}, nil
}

func (s *tokenService) seal(plain string) (string, error) {
	if len(s.secretKey) == 0 {
		return plain, nil
	}
	return utils.Encrypt([]byte(plain), s.secretKey)
}

func (s *tokenService) open(stored string) (string, error) {
	if len(s.secretKey) == 0 {
		return stored, nil
	}
	return utils.Decrypt(stored, s.secretKey)
}
