package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

type R2 struct {
	AccountID     string
	AccessKey     string
	SecretKey     string
	BucketName    string
	PublicBaseURL string
	PresignExpiry time.Duration
}

type Instagram struct {
	ClientID          string
	ClientSecret      string
	RedirectURI       string
	GraphBaseURL      string
	AuthBaseURL       string
	APIVersion        string
	RequestsPerSecond float64
}

type Google struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// Publish holds the knobs of the scheduled-publish pipeline.
type Publish struct {
	QueueName     string
	Concurrency   int
	MaxAttempts   int
	BackoffBase   time.Duration
	BackoffFactor float64
	PollInterval  time.Duration
	ImageTimeout  time.Duration
	VideoTimeout  time.Duration
}

type Config struct {
	Instagram            Instagram
	Google               Google
	PostgresURI          string
	RedisURI             string
	FrontendURL          string
	ListenAddr           string
	R2                   R2
	SecretKey            string
	CookieName           string
	Publish              Publish
	TokenRefreshSchedule string
}

func LoadConfig() *Config {
	return &Config{
		Instagram: Instagram{
			ClientID:          getEnv("INSTAGRAM_CLIENT_ID", ""),
			ClientSecret:      getEnv("INSTAGRAM_CLIENT_SECRET", ""),
			RedirectURI:       getEnv("INSTAGRAM_REDIRECT_URI", ""),
			GraphBaseURL:      getEnv("INSTAGRAM_GRAPH_URL", "https://graph.instagram.com"),
			AuthBaseURL:       getEnv("INSTAGRAM_AUTH_URL", "https://api.instagram.com"),
			APIVersion:        getEnv("INSTAGRAM_API_VERSION", "v21.0"),
			RequestsPerSecond: getEnvFloat("INSTAGRAM_REQUESTS_PER_SECOND", 5),
		},
		Google: Google{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("GOOGLE_REDIRECT_URI", ""),
		},
		PostgresURI: getEnv("POSTGRES_URI", ""),
		RedisURI:    getEnv("REDIS_URI", "localhost:6379"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		ListenAddr:  getEnv("LISTEN_ADDR", ":3000"),
		R2: R2{
			AccountID:     getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:     getEnv("R2_ACCESS_KEY", ""),
			SecretKey:     getEnv("R2_SECRET_KEY", ""),
			BucketName:    getEnv("R2_BUCKET_NAME", ""),
			PublicBaseURL: getEnv("R2_PUBLIC_BASE_URL", ""),
			PresignExpiry: getEnvDuration("R2_PRESIGN_EXPIRY", time.Hour),
		},
		SecretKey:  getEnv("SECRET_KEY", ""),
		CookieName: getEnv("COOKIE_NAME", "postflow_token"),
		Publish: Publish{
			QueueName:     getEnv("PUBLISH_QUEUE", "publish"),
			Concurrency:   getEnvInt("PUBLISH_CONCURRENCY", 10),
			MaxAttempts:   getEnvInt("PUBLISH_MAX_ATTEMPTS", 3),
			BackoffBase:   getEnvDuration("PUBLISH_BACKOFF_BASE", 5*time.Second),
			BackoffFactor: getEnvFloat("PUBLISH_BACKOFF_FACTOR", 2),
			PollInterval:  getEnvDuration("PUBLISH_POLL_INTERVAL", 2*time.Second),
			ImageTimeout:  getEnvDuration("PUBLISH_IMAGE_TIMEOUT", 10*time.Second),
			VideoTimeout:  getEnvDuration("PUBLISH_VIDEO_TIMEOUT", 30*time.Second),
		},
		TokenRefreshSchedule: getEnv("TOKEN_REFRESH_SCHEDULE", "@every 00h10m00s"),
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
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", value)
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
	if err != nil {
		slog.Warn("invalid number in environment, using default", "key", key, "value", value)
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
	if err != nil {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return d
}
