package infra

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	FalAPIKey          string
	FalBaseURL         string
	FalModel           string
	FalRequestTimeout  time.Duration
	DefaultImageSize   string
	DefaultStyle       string
	DefaultColors      string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	CORSAllowedOrigins []string
	JWTSecret          string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		Port:              getEnv("PORT", "8080"),
		DatabaseURL:       strings.TrimSpace(os.Getenv("DATABASE_URL")),
		FalAPIKey:         strings.TrimSpace(os.Getenv("FAL_KEY")),
		FalBaseURL:        getEnv("FAL_QUEUE_BASE_URL", "https://queue.fal.run"),
		FalModel:          getEnv("FAL_MODEL", "fal-ai/recraft-v3"),
		FalRequestTimeout: time.Second * time.Duration(getEnvInt("FAL_REQUEST_TIMEOUT_SECONDS", 30)),
		DefaultImageSize:  getEnv("RECRAFT_IMAGE_SIZE", "square_hd"),
		DefaultStyle:      getEnv("RECRAFT_STYLE", "realistic_image"),
		DefaultColors:     os.Getenv("RECRAFT_COLORS"),
		HTTPReadTimeout:   time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		// A full poll budget is 60 checks 5s apart, so responses can take minutes.
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 330)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),
		JWTSecret:          strings.TrimSpace(os.Getenv("JWT_SECRET")),
	}

	parsed, err := url.Parse(cfg.FalBaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("FAL_QUEUE_BASE_URL must be an absolute url, got %q", cfg.FalBaseURL)
	}

	return cfg, nil
}

// HasDatabase reports whether a settings database is configured.
func (c *Config) HasDatabase() bool {
	return c != nil && c.DatabaseURL != ""
}

// ShutdownTimeout is how long a graceful shutdown waits for in-flight
// requests. Generations answer synchronously, so it follows the write timeout.
func (c *Config) ShutdownTimeout() time.Duration {
	if c.HTTPWriteTimeout > c.HTTPIdleTimeout {
		return c.HTTPWriteTimeout
	}
	return c.HTTPIdleTimeout
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
