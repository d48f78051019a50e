package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Env      string
	HTTPAddr string

	// BaseDomain is the apex domain customer workspaces hang off of,
	// e.g. "tryequipped.com" for acme.tryequipped.com.
	BaseDomain string

	// PreviewSuffix is an optional multi-label base used by preview
	// deployments, e.g. "preview.tryequipped.dev".
	PreviewSuffix string

	DBDSN         string
	SessionSecret string
	WebhookSecret string

	LogLevel string

	RateLimitRPM   int
	InviteTTLHours int

	CORSOrigins []string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Env = strings.TrimSpace(os.Getenv("EQ_ENV"))
	if cfg.Env == "" {
		return nil, fmt.Errorf("EQ_ENV is required")
	}
	if cfg.Env != "dev" && cfg.Env != "prod" {
		return nil, fmt.Errorf("EQ_ENV must be one of: dev, prod (got: %s)", cfg.Env)
	}

	cfg.HTTPAddr = getEnvOrDefault("EQ_HTTP_ADDR", ":8080")

	cfg.BaseDomain = normalizeDomain(os.Getenv("EQ_BASE_DOMAIN"))
	if cfg.BaseDomain == "" {
		return nil, fmt.Errorf("EQ_BASE_DOMAIN is required")
	}
	if strings.Contains(cfg.BaseDomain, "/") || strings.Contains(cfg.BaseDomain, ":") {
		return nil, fmt.Errorf("EQ_BASE_DOMAIN must be a bare domain, no scheme or port (got: %s)", cfg.BaseDomain)
	}

	cfg.PreviewSuffix = normalizeDomain(os.Getenv("EQ_PREVIEW_SUFFIX"))

	cfg.DBDSN = strings.TrimSpace(os.Getenv("EQ_DB_DSN"))
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("EQ_DB_DSN is required")
	}

	cfg.SessionSecret = os.Getenv("EQ_SESSION_SECRET")
	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("EQ_SESSION_SECRET is required")
	}
	if cfg.Env == "prod" && len(cfg.SessionSecret) < 32 {
		return nil, fmt.Errorf("EQ_SESSION_SECRET must be at least 32 characters (currently %d)", len(cfg.SessionSecret))
	}

	cfg.WebhookSecret = os.Getenv("EQ_WEBHOOK_SECRET")
	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("EQ_WEBHOOK_SECRET is required")
	}
	if cfg.Env == "prod" && len(cfg.WebhookSecret) < 32 {
		return nil, fmt.Errorf("EQ_WEBHOOK_SECRET must be at least 32 characters (currently %d)", len(cfg.WebhookSecret))
	}

	cfg.LogLevel = getEnvOrDefault("EQ_LOG_LEVEL", "info")
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("EQ_LOG_LEVEL must be one of: debug, info, warn, error (got: %s)", cfg.LogLevel)
	}

	var err error
	cfg.RateLimitRPM, err = getEnvIntOrDefault("EQ_RATE_LIMIT_RPM", 120)
	if err != nil {
		return nil, err
	}

	cfg.InviteTTLHours, err = getEnvIntOrDefault("EQ_INVITE_TTL_HOURS", 168)
	if err != nil {
		return nil, err
	}
	if cfg.InviteTTLHours <= 0 {
		return nil, fmt.Errorf("EQ_INVITE_TTL_HOURS must be positive (got: %d)", cfg.InviteTTLHours)
	}

	if origins := strings.TrimSpace(os.Getenv("EQ_CORS_ORIGINS")); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
			}
		}
	}

	return cfg, nil
}

// IsDev returns true if running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

// InviteTTL returns the invitation lifetime as a duration.
func (c *Config) InviteTTL() time.Duration {
	return time.Duration(c.InviteTTLHours) * time.Hour
}

// RedactedValues returns a map of config values with secrets redacted.
func (c *Config) RedactedValues() map[string]string {
	return map[string]string{
		"EQ_ENV":              c.Env,
		"EQ_HTTP_ADDR":        c.HTTPAddr,
		"EQ_BASE_DOMAIN":      c.BaseDomain,
		"EQ_PREVIEW_SUFFIX":   c.PreviewSuffix,
		"EQ_DB_DSN":           redactDSN(c.DBDSN),
		"EQ_SESSION_SECRET":   "[REDACTED]",
		"EQ_WEBHOOK_SECRET":   "[REDACTED]",
		"EQ_LOG_LEVEL":        c.LogLevel,
		"EQ_RATE_LIMIT_RPM":   fmt.Sprintf("%d", c.RateLimitRPM),
		"EQ_INVITE_TTL_HOURS": fmt.Sprintf("%d", c.InviteTTLHours),
		"EQ_CORS_ORIGINS":     strings.Join(c.CORSOrigins, ","),
	}
}

func normalizeDomain(v string) string {
	return strings.Trim(strings.ToLower(strings.TrimSpace(v)), ".")
}

func redactDSN(dsn string) string {
	if start := strings.Index(dsn, "://"); start != -1 {
		if end := strings.Index(dsn[start+3:], "@"); end != -1 {
			return dsn[:start+3] + "[REDACTED]" + dsn[start+3+end:]
		}
	}
	return dsn
}

func getEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer (got: %q)", key, value)
	}
	return parsed, nil
}
