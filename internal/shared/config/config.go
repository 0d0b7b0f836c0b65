package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port              string
	Env               string
	DatabaseURL       string
	CORSAllowOrigin   []string
	JWTSecret         string
	JWTTTL            time.Duration
	BcryptCost        int
	ProcessingURL     string
	ProcessingTimeout time.Duration
	LogLevel          string
	RateLimit         RateLimitConfig
}

// RateLimitConfig holds token bucket settings per route group.
type RateLimitConfig struct {
	Enabled      bool
	DefaultRate  float64
	DefaultBurst int
	UploadRate   float64
	UploadBurst  int
	AskRate      float64
	AskBurst     int
}

const (
	defaultBcryptCost        = 10
	defaultProcessingTimeout = 10 * time.Minute
)

// Load reads configuration from an optional TOML file, then environment
// variables, with sensible defaults. Environment wins over the file.
func Load() (Config, error) {
	return LoadFile(os.Getenv("CONFIG_FILE"))
}

// LoadFile is Load with an explicit config file path. An empty path skips the file.
func LoadFile(path string) (Config, error) {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	fc, err := readFile(path)
	if err != nil {
		return Config{}, err
	}

	env := normalizeEnv(getEnv("ENV", fc.Env, "dev"))
	cfg := Config{
		Port:              getEnv("PORT", fc.Port, "8080"),
		Env:               env,
		DatabaseURL:       getEnv("DATABASE_URL", fc.DatabaseURL, ""),
		CORSAllowOrigin:   splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", strings.Join(fc.CORSAllowOrigins, ","), "http://localhost:3000")),
		JWTSecret:         getEnv("JWT_SECRET", fc.JWTSecret, ""),
		JWTTTL:            getDuration("JWT_TTL", fc.JWTTTL, 0),
		BcryptCost:        getInt("BCRYPT_COST", fc.BcryptCost, defaultBcryptCost),
		ProcessingURL:     strings.TrimRight(getEnv("PROCESSING_URL", fc.Processing.URL, ""), "/"),
		ProcessingTimeout: getDuration("PROCESSING_TIMEOUT", fc.Processing.Timeout, defaultProcessingTimeout),
		LogLevel:          getEnv("LOG_LEVEL", fc.LogLevel, "info"),
		RateLimit: RateLimitConfig{
			Enabled:      getBool("RATE_LIMIT_ENABLED", fc.RateLimit.Enabled, true),
			DefaultRate:  getFloat("RATE_LIMIT_DEFAULT_RATE", fc.RateLimit.DefaultRate, 5),
			DefaultBurst: getInt("RATE_LIMIT_DEFAULT_BURST", fc.RateLimit.DefaultBurst, 20),
			UploadRate:   getFloat("RATE_LIMIT_UPLOAD_RATE", fc.RateLimit.UploadRate, 0.1),
			UploadBurst:  getInt("RATE_LIMIT_UPLOAD_BURST", fc.RateLimit.UploadBurst, 3),
			AskRate:      getFloat("RATE_LIMIT_ASK_RATE", fc.RateLimit.AskRate, 0.5),
			AskBurst:     getInt("RATE_LIMIT_ASK_BURST", fc.RateLimit.AskBurst, 5),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces settings that production cannot run without.
func (c Config) Validate() error {
	if c.Env != "production" {
		return nil
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required in production")
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	return nil
}

// IsDevLike reports whether in-memory fallbacks are acceptable.
func (c Config) IsDevLike() bool {
	switch c.Env {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func getEnv(key, fileVal, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if fileVal != "" {
		return fileVal
	}
	return def
}

func getInt(key string, fileVal, def int) int {
	if raw := strings.TrimSpace(os.Getenv(key)); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	if fileVal != 0 {
		return fileVal
	}
	return def
}

func getFloat(key string, fileVal, def float64) float64 {
	if raw := strings.TrimSpace(os.Getenv(key)); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
	}
	if fileVal != 0 {
		return fileVal
	}
	return def
}

func getBool(key string, fileVal *bool, def bool) bool {
	if raw := strings.TrimSpace(os.Getenv(key)); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			return v
		}
	}
	if fileVal != nil {
		return *fileVal
	}
	return def
}

func getDuration(key, fileVal string, def time.Duration) time.Duration {
	for _, raw := range []string{strings.TrimSpace(os.Getenv(key)), strings.TrimSpace(fileVal)} {
		if raw == "" {
			continue
		}
		if v, err := time.ParseDuration(raw); err == nil {
			return v
		}
	}
	return def
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}
