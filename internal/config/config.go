package config

import (
	"fmt"
	"log"
	"os"
	"time"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env              string
	HTTPPort         string
	LogLevel         string
	DataDir          string
	UploadDir        string
	PostsBackend     string
	PostsFile        string
	AdminKey         string
	JWTIssuer        string
	JWTSigningKey    string
	AdminTokenTTL    time.Duration
	RateLimitPerMin  int
	RateLimitBackend string
	RedisAddr        string
	StrictMembership bool
	GCInterval       time.Duration
}

// Load returns application config populated from environment variables with sensible defaults.
func Load() App {
	return App{
		Env:              getEnv("APP_ENV", "dev"),
		HTTPPort:         getEnv("HTTP_PORT", "3000"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		DataDir:          getEnv("DATA_DIR", "data/db"),
		UploadDir:        getEnv("UPLOAD_DIR", "uploads"),
		PostsBackend:     getEnv("POSTS_BACKEND", "badger"),
		PostsFile:        getEnv("POSTS_FILE", "data/posts.json"),
		AdminKey:         getEnv("ADMIN_KEY", ""),
		JWTIssuer:        getEnv("JWT_ISSUER", "npo-api"),
		JWTSigningKey:    getEnv("JWT_SIGNING_KEY", "dev-signing-secret-change"),
		AdminTokenTTL:    durationEnv("ADMIN_TOKEN_TTL", 12*time.Hour),
		RateLimitPerMin:  intEnv("RATE_LIMIT_PER_MIN", 120),
		RateLimitBackend: getEnv("RATE_LIMIT_BACKEND", "memory"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		StrictMembership: boolEnv("STRICT_MEMBERSHIP_TRANSITIONS", false),
		GCInterval:       durationEnv("GC_INTERVAL", 5*time.Minute),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using fallback %s", key, err, fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func boolEnv(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if val == "1" || val == "true" || val == "TRUE" {
			return true
		}
		if val == "0" || val == "false" || val == "FALSE" {
			return false
		}
		log.Printf("invalid bool for %s, using fallback %v", key, fallback)
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		log.Printf("invalid int for %s, using fallback %d", key, fallback)
	}
	return fallback
}
