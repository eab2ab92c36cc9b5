package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Addr      string
	Env       string
	DBDriver  string // sqlite3 or postgres
	DBURL     string
	JWTSecret string
	UploadDir string
}

// Load reads configuration from environment variables.
// In development, it loads from a .env file if present.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:      getEnv("ADDR", ":8080"),
		Env:       getEnv("ENV", "development"),
		DBDriver:  getEnv("DATABASE_DRIVER", "sqlite3"),
		DBURL:     getEnv("DATABASE_URL", "duet.db"),
		JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-me"),
		UploadDir: getEnv("UPLOAD_DIR", "uploads"),
	}

	if cfg.Env == "production" {
		if os.Getenv("JWT_SECRET") == "" {
			panic("JWT_SECRET is required in production")
		}
		if cfg.DBDriver == "postgres" && os.Getenv("DATABASE_URL") == "" {
			panic("DATABASE_URL is required in production")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
