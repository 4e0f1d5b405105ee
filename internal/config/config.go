// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const insecureJWTSecret = "dev-secret-change-me"

// ModelConfig holds the generative collaborator's endpoint settings. All
// fields empty means the deterministic local client is used.
type ModelConfig struct {
	BaseURL string // OpenAI-compatible endpoint base URL
	APIKey  string
	Name    string // model name sent with each request

	ClassifyTimeout   time.Duration // per-classification budget (default 10s)
	SynthesizeTimeout time.Duration // per-synthesis budget (default 30s)
}

// Remote returns true when an external model endpoint is configured.
func (m *ModelConfig) Remote() bool { return m.BaseURL != "" }

// Config holds the configuration for the query gateway.
type Config struct {
	MetaDBPath   string // SQLite metastore path (principals, grants, audit)
	TargetDBPath string // SQLite target database queries run against
	DatabaseName string // logical database name used in grants (default "main")
	ListenAddr   string // HTTP listen address (default ":8080")
	JWTSecret    string // HS256 signing secret for issued tokens
	TokenTTL     time.Duration
	LogLevel     string // debug, info, warn, error (default "info")
	Env          string // "development" (default) or "production"

	// Pipeline tuning.
	MaxAttempts  int // synthesis attempts per question (default 2)
	MaxRows      int // LIMIT injected into uncapped queries (default 1000)
	ExpandTopK   int // ranked index elements per question (default 12)
	ExpandHops   int // foreign-key hops (default 2)
	ExpandTables int // expanded-surface table cap (default 8)

	// Schema refresh cron expression; empty disables scheduling.
	RefreshSchedule string

	// Rate limiting.
	RateLimitRPS   float64 // sustained requests per second (default 100)
	RateLimitBurst int     // burst capacity (default 200)

	// CORS.
	CORSAllowedOrigins []string // default ["*"]

	Model ModelConfig

	// Warnings collects non-fatal findings from loading; the caller logs
	// them once the logger exists.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LoadFromEnv loads configuration from environment variables, applying
// defaults and rejecting insecure settings in production.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		MetaDBPath:      os.Getenv("META_DB_PATH"),
		TargetDBPath:    os.Getenv("TARGET_DB_PATH"),
		DatabaseName:    os.Getenv("DATABASE_NAME"),
		ListenAddr:      os.Getenv("LISTEN_ADDR"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		LogLevel:        os.Getenv("LOG_LEVEL"),
		Env:             os.Getenv("ENV"),
		RefreshSchedule: os.Getenv("REFRESH_SCHEDULE"),
		MaxAttempts:     parseIntEnv("MAX_ATTEMPTS"),
		MaxRows:         parseIntEnv("MAX_ROWS"),
		ExpandTopK:      parseIntEnv("EXPAND_TOP_K"),
		ExpandHops:      parseIntEnv("EXPAND_HOPS"),
		ExpandTables:    parseIntEnv("EXPAND_MAX_TABLES"),
	}

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.TokenTTL = d
		}
	}

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = origins
	}

	cfg.Model = ModelConfig{
		BaseURL: os.Getenv("MODEL_BASE_URL"),
		APIKey:  os.Getenv("MODEL_API_KEY"),
		Name:    os.Getenv("MODEL_NAME"),
	}
	if v := os.Getenv("MODEL_CLASSIFY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Model.ClassifyTimeout = d
		}
	}
	if v := os.Getenv("MODEL_SYNTHESIZE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Model.SynthesizeTimeout = d
		}
	}

	// Defaults.
	if cfg.MetaDBPath == "" {
		cfg.MetaDBPath = "genbi_meta.sqlite"
	}
	if cfg.TargetDBPath == "" {
		cfg.TargetDBPath = "genbi_data.sqlite"
	}
	if cfg.DatabaseName == "" {
		cfg.DatabaseName = "main"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 100
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 200
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}
	if cfg.Model.ClassifyTimeout == 0 {
		cfg.Model.ClassifyTimeout = 10 * time.Second
	}
	if cfg.Model.SynthesizeTimeout == 0 {
		cfg.Model.SynthesizeTimeout = 30 * time.Second
	}
	if cfg.Model.Name == "" {
		cfg.Model.Name = "gpt-4o-mini"
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = insecureJWTSecret
		cfg.Warnings = append(cfg.Warnings, "JWT_SECRET not set — using insecure default. Set JWT_SECRET in production!")
	}
	if !cfg.Model.Remote() {
		cfg.Warnings = append(cfg.Warnings, "MODEL_BASE_URL not set — using the deterministic local synthesizer")
	}

	// Production mode: insecure defaults are fatal errors.
	if cfg.IsProduction() {
		if cfg.JWTSecret == insecureJWTSecret {
			return nil, fmt.Errorf("JWT_SECRET must be set in production (ENV=production)")
		}
		if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
			return nil, fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
	}

	return cfg, nil
}

func parseIntEnv(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// LoadDotEnv reads a .env file and sets any variables not already in the
// environment. Lines must be KEY=VALUE; comments (#) and blanks are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Real environment variables take precedence over the file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
