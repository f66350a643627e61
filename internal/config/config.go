package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName       = "GoldWar"
	defaultAppEnv        = "development"
	defaultPort          = "8080"
	defaultLogLevel      = "info"
	defaultShutdownDelay = 10 * time.Second
	defaultCaptchaTTL    = 5 * time.Minute
	defaultClaimGuardTTL = 10 * time.Second
	defaultOpenTime      = "07:00"
	defaultWarQuota      = 5000
	defaultMonthlyLimit  = 2
	defaultPreOpenOffset = 10 * time.Minute
	defaultMinPreOpenGr  = 5.0
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultOllamaModel   = "llama3"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration

	// CaptchaTTL is the challenge lifetime.
	CaptchaTTL time.Duration

	// GateOpenTime is the local wall-clock opening time ("15:04").
	GateOpenTime string
	// WarQuota seeds the global war-pool counter at startup.
	WarQuota int64
	// MonthlyClaimLimit caps successful claims per identity per trailing 30 days.
	MonthlyClaimLimit int
	// ClaimRequireCaptcha rejects claim requests that carry no challenge pair.
	// Off by default: the web client completes its pair at login and claims
	// ride the authenticated session.
	ClaimRequireCaptcha bool
	// ClaimGuardTTL bounds how long a single in-flight claim blocks a second one.
	ClaimGuardTTL time.Duration
	// PreOpenOffset is how long before GateOpenTime the pre-open window starts.
	PreOpenOffset time.Duration
	// MinPreOpenGram is the minimum bar size eligible during pre-open.
	MinPreOpenGram float64

	// ChatDocPath is the support document indexed for the chat assistant.
	// Empty disables the assistant.
	ChatDocPath string
	// OllamaBaseURL and OllamaModel select the chat model endpoint.
	OllamaBaseURL string
	OllamaModel   string
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:           getEnv("APP_NAME", defaultAppName),
		AppEnv:            getEnv("APP_ENV", defaultAppEnv),
		Port:              getEnv("PORT", defaultPort),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		ShutdownPeriod:    defaultShutdownDelay,
		CaptchaTTL:        defaultCaptchaTTL,
		GateOpenTime:      getEnv("GATE_OPEN_TIME", defaultOpenTime),
		WarQuota:          defaultWarQuota,
		MonthlyClaimLimit: defaultMonthlyLimit,
		ClaimGuardTTL:     defaultClaimGuardTTL,
		PreOpenOffset:     defaultPreOpenOffset,
		MinPreOpenGram:    defaultMinPreOpenGr,
		ChatDocPath:       os.Getenv("RAG_DOC_PATH"),
		OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", defaultOllamaBaseURL),
		OllamaModel:       getEnv("OLLAMA_MODEL", defaultOllamaModel),
	}

	if v := os.Getenv("SHUTDOWN_TIMEOUT_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SHUTDOWN_TIMEOUT_SECONDS: %w", err)
		}
		cfg.ShutdownPeriod = time.Duration(seconds) * time.Second
	}

	if v := os.Getenv("CAPTCHA_TTL_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil || seconds <= 0 {
			return Config{}, fmt.Errorf("invalid CAPTCHA_TTL_SECONDS: %q", v)
		}
		cfg.CaptchaTTL = time.Duration(seconds) * time.Second
	}

	if _, err := time.Parse("15:04", cfg.GateOpenTime); err != nil {
		return Config{}, fmt.Errorf("invalid GATE_OPEN_TIME: %w", err)
	}

	if v := os.Getenv("WAR_QUOTA"); v != "" {
		quota, err := strconv.ParseInt(v, 10, 64)
		if err != nil || quota < 0 {
			return Config{}, fmt.Errorf("invalid WAR_QUOTA: %q", v)
		}
		cfg.WarQuota = quota
	}

	if v := os.Getenv("CLAIM_REQUIRE_CAPTCHA"); v != "" {
		flag, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CLAIM_REQUIRE_CAPTCHA: %q", v)
		}
		cfg.ClaimRequireCaptcha = flag
	}

	if v := os.Getenv("MONTHLY_CLAIM_LIMIT"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return Config{}, fmt.Errorf("invalid MONTHLY_CLAIM_LIMIT: %q", v)
		}
		cfg.MonthlyClaimLimit = limit
	}

	if v := os.Getenv("PREOPEN_OFFSET_MINUTES"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil || minutes <= 0 {
			return Config{}, fmt.Errorf("invalid PREOPEN_OFFSET_MINUTES: %q", v)
		}
		cfg.PreOpenOffset = time.Duration(minutes) * time.Minute
	}

	if v := os.Getenv("MIN_PREOPEN_SIZE_GRAM"); v != "" {
		grams, err := strconv.ParseFloat(v, 64)
		if err != nil || grams <= 0 {
			return Config{}, fmt.Errorf("invalid MIN_PREOPEN_SIZE_GRAM: %q", v)
		}
		cfg.MinPreOpenGram = grams
	}

	// Postgres and Redis are required outside development; in development the
	// service can fall back to in-memory stores and run standalone.
	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
	}

	return cfg, nil
}

// OpenTimeToday resolves GateOpenTime against the date of now.
func (c Config) OpenTimeToday(now time.Time) time.Time {
	parsed, err := time.ParseInLocation("15:04", c.GateOpenTime, now.Location())
	if err != nil {
		return now
	}
	return time.Date(now.Year(), now.Month(), now.Day(), parsed.Hour(), parsed.Minute(), 0, 0, now.Location())
}

// IsDev reports whether the app runs in a development-like environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
