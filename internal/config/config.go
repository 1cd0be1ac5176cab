package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	Env           string
	ServerPort    string
	DatabaseDSN   string
	RedisAddr     string
	RedisDB       int
	RedisPass     string
	AccessSecret  string
	RefreshSecret string
	ClientURL     string
	LogLevel      string
	SwaggerHost   string
}

// IsProduction reports whether the app runs with production settings
// (secure cookies, required secrets).
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load builds Config from the environment. A .env file in the working
// directory is read first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:           getEnv("APP_ENV", "development"),
		ServerPort:    getEnv("SERVER_PORT", "8080"),
		DatabaseDSN:   getEnv("DATABASE_DSN", "host=localhost user=taskhub password=taskhub dbname=taskhub port=5432 sslmode=disable"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisPass:     os.Getenv("REDIS_PASSWORD"),
		AccessSecret:  getEnv("JWT_ACCESS_SECRET", "dev-access-secret"),
		RefreshSecret: getEnv("JWT_REFRESH_SECRET", "dev-refresh-secret"),
		ClientURL:     getEnv("CLIENT_URL", "http://localhost:3000"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		SwaggerHost:   os.Getenv("SWAGGER_HOST"),
	}

	if cfg.IsProduction() {
		if os.Getenv("JWT_ACCESS_SECRET") == "" || os.Getenv("JWT_REFRESH_SECRET") == "" {
			return nil, fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET are required in production")
		}
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}
