package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr        string
	DatabaseDSN     string
	JWTSecret       string
	GoogleClientID  string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	MaxRequestBytes int64
}

func Load() Config {
	// .env is a dev convenience; absence is not an error
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:        getEnv("ERAIIZ_HTTP_ADDR", ":8080"),
		DatabaseDSN:     getEnv("ERAIIZ_DB_DSN", "file:eraiiz.db?cache=shared&mode=rwc"),
		JWTSecret:       getEnv("ERAIIZ_JWT_SECRET", "dev-secret-change"),
		GoogleClientID:  getEnv("ERAIIZ_GOOGLE_CLIENT_ID", ""),
		AccessTokenTTL:  getDuration("ERAIIZ_ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getDuration("ERAIIZ_REFRESH_TOKEN_TTL", 30*24*time.Hour),
		MaxRequestBytes: getInt64("ERAIIZ_MAX_REQUEST_BYTES", 1<<20),
	}
	if cfg.JWTSecret == "dev-secret-change" {
		log.Println("WARNING: using development JWT secret; set ERAIIZ_JWT_SECRET")
	}
	return cfg
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getInt64(key string, def int64) int64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}
