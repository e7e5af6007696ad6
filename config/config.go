package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything main needs to wire the server.
type Config struct {
	Port     string
	AppEnv   string
	LogLevel string

	Store    string
	MongoURI string
	MongoDB  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	TokenSecret []byte
	TokenTTL    time.Duration

	CORSOrigins []string

	RateLimitRPS   float64
	RateLimitBurst int

	PublicBaseURL string
}

const devSecret = "dev-access-token-secret"

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:           port(getenv("PORT", ":8080")),
		AppEnv:         getenv("APP_ENV", "development"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		Store:          strings.ToLower(getenv("STORE", "mongo")),
		MongoURI:       getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:        getenv("MONGO_DB", "jobconnect"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        getint("REDIS_DB", 0),
		TokenTTL:       getduration("TOKEN_TTL", 24*time.Hour),
		CORSOrigins:    splitList(getenv("CORS_ORIGINS", "*")),
		RateLimitRPS:   getfloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getint("RATE_LIMIT_BURST", 10),
		PublicBaseURL:  strings.TrimRight(getenv("PUBLIC_BASE_URL", "http://localhost:5173"), "/"),
	}

	secret := os.Getenv("ACCESS_TOKEN_SECRET")
	if secret == "" {
		if !cfg.IsDevelopment() {
			return nil, errors.New("ACCESS_TOKEN_SECRET must be set outside development")
		}
		secret = devSecret
	}
	cfg.TokenSecret = []byte(secret)

	if cfg.Store != "mongo" && cfg.Store != "memory" {
		return nil, errors.New("STORE must be mongo or memory")
	}
	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development" || c.AppEnv == "dev"
}

func port(p string) string {
	if p != "" && p[0] != ':' {
		return ":" + p
	}
	return p
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func getfloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil && v > 0 {
		return v
	}
	return def
}

func getduration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
