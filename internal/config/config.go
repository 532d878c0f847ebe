package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              string
	Environment       string
	LogLevel          string
	AllowedOrigin     string
	DatabaseURL       string
	DBFilePath        string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	InsightAPIURL     string
	InsightAPIKey     string
	InsightTTLSeconds int
}

// Load reads configuration from the environment, with a best-effort .env
// file on top for local development.
func Load() Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	insightTTL, err := strconv.Atoi(getEnv("INSIGHT_TTL_SECONDS", "300"))
	if err != nil || insightTTL < 1 {
		insightTTL = 300
	}

	return Config{
		Port:              getEnv("PORT", "8080"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		AllowedOrigin:     getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		DBFilePath:        os.Getenv("DB_FILE"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           redisDB,
		InsightAPIURL:     strings.TrimSpace(os.Getenv("INSIGHT_API_URL")),
		InsightAPIKey:     strings.TrimSpace(os.Getenv("INSIGHT_API_KEY")),
		InsightTTLSeconds: insightTTL,
	}
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
