package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string

	DBDriver string
	DBDSN    string

	JWTSecret string
	TokenTTL  time.Duration // 0 = tokens never expire

	CORSOrigins []string

	BlobBasePath      string
	PublicAssetPrefix string // URL prefix stored in colleges.image_urls for uploaded images

	LogLevel string
	LogDev   bool

	SeedFile      string // optional YAML list of colleges; empty = embedded default
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

// Load reads an optional .env file and then the environment.
// Variables already set in the environment win over the file.
func Load(envFiles ...string) Config {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
	return FromEnv()
}

func FromEnv() Config {
	return Config{
		HTTPAddr:          envOr("HTTP_ADDR", ":5000"),
		DBDriver:          envOr("DB_DRIVER", "sqlite"),
		DBDSN:             envOr("DB_DSN", ""),
		JWTSecret:         envOr("JWT_SECRET", "your-secret-key"),
		TokenTTL:          envDuration("TOKEN_TTL", 0),
		CORSOrigins:       csvOr("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000"),
		BlobBasePath:      envOr("BLOB_BASE_PATH", "./data"),
		PublicAssetPrefix: strings.TrimSuffix(envOr("PUBLIC_ASSET_PREFIX", "/api/assets"), "/"),
		LogLevel:          envOr("LOG_LEVEL", "info"),
		LogDev:            envBool("LOG_DEV", false),
		SeedFile:          os.Getenv("SEED_FILE"),
		AdminEmail:        os.Getenv("ADMIN_EMAIL"),
		AdminPassword:     os.Getenv("ADMIN_PASSWORD"),
		AdminName:         envOr("ADMIN_NAME", "Administrator"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
