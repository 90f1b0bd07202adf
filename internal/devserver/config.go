package devserver

import (
	"os"
	"time"
)

// Config holds the dev server's environment configuration.
type Config struct {
	AppPort string

	DatabaseDSN string

	RedisAddr     string
	RedisPassword string

	JWTSecret string
	AnonKey   string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// Load reads configuration from the environment, with local-dev
// defaults for everything but the database DSN.
func Load() Config {
	cfg := Config{
		AppPort: getenv("APP_PORT", "8000"),

		DatabaseDSN: os.Getenv("DATABASE_DSN"),

		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		JWTSecret: getenv("JWT_SECRET", "dev-secret-do-not-use-in-production"),
		AnonKey:   getenv("ANON_KEY", "dev-anon-key"),

		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 30 * 24 * time.Hour,
	}

	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
