package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/maheshrc27/postflow/internal/logger"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

// OAuthClient holds the app credentials used when refreshing user tokens.
type OAuthClient struct {
	ClientID     string
	ClientSecret string
}

type Platforms struct {
	Twitter   OAuthClient
	Facebook  OAuthClient
	Instagram OAuthClient
	LinkedIn  OAuthClient
	Tiktok    OAuthClient
	Google    OAuthClient

	TwitterAPIURL   string
	TwitterTokenURL string
	GraphAPIURL     string
	GraphVersion    string
	InstagramAPIURL string
	LinkedInAPIURL  string
	LinkedInAuthURL string
	TiktokAPIURL    string
	YoutubeAPIURL   string
	GoogleTokenURL  string

	// YoutubeUploadTimeout bounds one video download plus upload.
	YoutubeUploadTimeout time.Duration
}

type Sweep struct {
	Schedule            string
	TokenRefreshEvery   string
	BatchSize           int
	PostConcurrency     int
	PlatformCallTimeout time.Duration
	ClaimTTL            time.Duration
	PublisherMode       string
	SimulatedFailRate   float64
}

type Config struct {
	PostgresURI    string
	RedisURI       string
	Port           string
	FrontendURL    string
	SecretKey      string
	CookieName     string
	ServiceRoleKey string
	R2             R2
	Platforms      Platforms
	Sweep          Sweep
}

func LoadConfig() *Config {
	return &Config{
		PostgresURI:    getEnv("POSTGRES_URI", ""),
		RedisURI:       getEnv("REDIS_URI", ""),
		Port:           getEnv("PORT", "3000"),
		FrontendURL:    getEnv("FRONTEND_URL", "http://localhost:5173"),
		SecretKey:      getEnv("SECRET_KEY", ""),
		CookieName:     getEnv("COOKIE_NAME", "postflow_session"),
		ServiceRoleKey: getEnv("SERVICE_ROLE_KEY", ""),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		Platforms: Platforms{
			Twitter:   OAuthClient{getEnv("TWITTER_CLIENT_ID", ""), getEnv("TWITTER_CLIENT_SECRET", "")},
			Facebook:  OAuthClient{getEnv("FACEBOOK_APP_ID", ""), getEnv("FACEBOOK_APP_SECRET", "")},
			Instagram: OAuthClient{getEnv("INSTAGRAM_CLIENT_ID", ""), getEnv("INSTAGRAM_CLIENT_SECRET", "")},
			LinkedIn:  OAuthClient{getEnv("LINKEDIN_CLIENT_ID", ""), getEnv("LINKEDIN_CLIENT_SECRET", "")},
			Tiktok:    OAuthClient{getEnv("TIKTOK_CLIENT_KEY", ""), getEnv("TIKTOK_CLIENT_SECRET", "")},
			Google:    OAuthClient{getEnv("GOOGLE_CLIENT_ID", ""), getEnv("GOOGLE_CLIENT_SECRET", "")},

			TwitterAPIURL:   getEnv("TWITTER_API_URL", "https://api.twitter.com"),
			TwitterTokenURL: getEnv("TWITTER_TOKEN_URL", "https://api.twitter.com/2/oauth2/token"),
			GraphAPIURL:     getEnv("FACEBOOK_GRAPH_URL", "https://graph.facebook.com"),
			GraphVersion:    getEnv("FACEBOOK_GRAPH_VERSION", "v21.0"),
			InstagramAPIURL: getEnv("INSTAGRAM_GRAPH_URL", "https://graph.instagram.com"),
			LinkedInAPIURL:  getEnv("LINKEDIN_API_URL", "https://api.linkedin.com"),
			LinkedInAuthURL: getEnv("LINKEDIN_AUTH_URL", "https://www.linkedin.com"),
			TiktokAPIURL:    getEnv("TIKTOK_API_URL", "https://open.tiktokapis.com"),
			YoutubeAPIURL:   getEnv("YOUTUBE_API_URL", ""),
			GoogleTokenURL:  getEnv("GOOGLE_TOKEN_URL", "https://oauth2.googleapis.com/token"),

			YoutubeUploadTimeout: getEnvDuration("YOUTUBE_UPLOAD_TIMEOUT", 15*time.Minute),
		},
		Sweep: Sweep{
			Schedule:            getEnv("SWEEP_SCHEDULE", "@every 1m"),
			TokenRefreshEvery:   getEnv("TOKEN_REFRESH_SCHEDULE", "@every 10m"),
			BatchSize:           getEnvInt("SWEEP_BATCH_SIZE", 100),
			PostConcurrency:     getEnvInt("SWEEP_POST_CONCURRENCY", 10),
			PlatformCallTimeout: getEnvDuration("PLATFORM_CALL_TIMEOUT", 30*time.Second),
			ClaimTTL:            getEnvDuration("CLAIM_TTL", 15*time.Minute),
			PublisherMode:       strings.ToLower(getEnv("PUBLISHER_MODE", "live")),
			SimulatedFailRate:   getEnvFloat("SIMULATED_FAIL_RATE", 0.1),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		logger.L().Warnf("invalid %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f < 0 || f > 1 {
		logger.L().Warnf("invalid %s=%q, using %v", key, value, defaultValue)
		return defaultValue
	}
	return f
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		logger.L().Warnf("invalid %s=%q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}
