package config

import (
	"os"
	"strconv"
	"time"
)

type Platform struct {
	APIBase     string
	AccessToken string
}

type Config struct {
	Port              string
	PostgresURI       string
	RedisURI          string
	FrontendURL       string
	TriggerSecret     string
	MaxStoredPosts    int
	DispatchBatchSize int
	InterPostDelay    time.Duration
	RetryBaseDelay    time.Duration
	SessionTTL        time.Duration
	X                 Platform
	Note              Platform
	Wordpress         Platform
}

func LoadConfig() *Config {
	return &Config{
		Port:              getEnv("PORT", "3000"),
		PostgresURI:       getEnv("POSTGRES_URI", ""),
		RedisURI:          getEnv("REDIS_URI", "localhost:6379"),
		FrontendURL:       getEnv("FRONTEND_URL", "http://localhost:5173"),
		TriggerSecret:     getEnv("TRIGGER_SECRET", ""),
		MaxStoredPosts:    getEnvInt("MAX_STORED_POSTS", 500),
		DispatchBatchSize: getEnvInt("DISPATCH_BATCH_SIZE", 10),
		InterPostDelay:    getEnvDuration("INTER_POST_DELAY", 2*time.Second),
		RetryBaseDelay:    getEnvDuration("RETRY_BASE_DELAY", 2*time.Second),
		SessionTTL:        getEnvDuration("SESSION_TTL", 30*time.Minute),
		X: Platform{
			APIBase:     getEnv("X_API_BASE", "https://api.x.com/2"),
			AccessToken: getEnv("X_ACCESS_TOKEN", ""),
		},
		Note: Platform{
			APIBase:     getEnv("NOTE_API_BASE", "https://note.com/api/v1"),
			AccessToken: getEnv("NOTE_ACCESS_TOKEN", ""),
		},
		Wordpress: Platform{
			APIBase:     getEnv("WORDPRESS_API_BASE", ""),
			AccessToken: getEnv("WORDPRESS_ACCESS_TOKEN", ""),
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
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
