// Package config loads the audit reporter configuration from the
// environment and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileEnv names the environment variable pointing at a YAML config file
const FileEnv = "AUDIT_CONFIG_FILE"

// Config holds the service and CLI configuration
type Config struct {
	Port            string        `yaml:"port" json:"port"`
	BodyLimitMB     int           `yaml:"body_limit_mb" json:"body_limit_mb"` // largest accepted upload
	WorkDir         string        `yaml:"work_dir" json:"work_dir"`           // parent of per-request scratch dirs
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`

	MaxArchiveFiles int `yaml:"max_archive_files" json:"max_archive_files"`
	MaxImageMB      int `yaml:"max_image_mb" json:"max_image_mb"`

	ArtifactRetention time.Duration `yaml:"artifact_retention" json:"artifact_retention"`
	ArtifactMaxMB     int           `yaml:"artifact_max_mb" json:"artifact_max_mb"`

	JWTSecret string `yaml:"jwt_secret" json:"-"`
	JWTIssuer string `yaml:"jwt_issuer" json:"jwt_issuer"`

	RedisAddr          string `yaml:"redis_addr" json:"redis_addr"`
	RedisPassword      string `yaml:"redis_password" json:"-"`
	RedisDB            int    `yaml:"redis_db" json:"redis_db"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute" json:"rate_limit_per_minute"` // 0 disables rate limiting

	DatabaseURL string `yaml:"database_url" json:"-"`
	NATSURL     string `yaml:"nats_url" json:"nats_url"`
	NATSSubject string `yaml:"nats_subject" json:"nats_subject"`

	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogFormat string `yaml:"log_format" json:"log_format"` // json or console
}

func defaults() Config {
	return Config{
		Port:               "8080",
		BodyLimitMB:        1024,
		WorkDir:            "",
		ShutdownTimeout:    15 * time.Second,
		MaxArchiveFiles:    5000,
		MaxImageMB:         50,
		ArtifactRetention:  30 * time.Minute,
		ArtifactMaxMB:      512,
		RateLimitPerMinute: 30,
		NATSSubject:        "audit.reports.generated",
		LogLevel:           "info",
		LogFormat:          "json",
	}
}

// DefaultConfig returns the defaults overridden by environment variables
func DefaultConfig() Config {
	cfg := defaults()
	applyEnv(&cfg)
	return cfg
}

// Load builds the configuration: defaults, then the YAML file named by
// AUDIT_CONFIG_FILE (if any), then environment variables.
func Load() (Config, error) {
	cfg := defaults()
	if path := os.Getenv(FileEnv); path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto cfg
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Port = getEnv("AUDIT_PORT", cfg.Port)
	cfg.BodyLimitMB = getEnvInt("AUDIT_BODY_LIMIT_MB", cfg.BodyLimitMB)
	cfg.WorkDir = getEnv("AUDIT_WORK_DIR", cfg.WorkDir)
	cfg.ShutdownTimeout = time.Duration(getEnvInt("AUDIT_SHUTDOWN_TIMEOUT_SECONDS", int(cfg.ShutdownTimeout/time.Second))) * time.Second
	cfg.MaxArchiveFiles = getEnvInt("AUDIT_MAX_ARCHIVE_FILES", cfg.MaxArchiveFiles)
	cfg.MaxImageMB = getEnvInt("AUDIT_MAX_IMAGE_MB", cfg.MaxImageMB)
	cfg.ArtifactRetention = time.Duration(getEnvInt("AUDIT_ARTIFACT_RETENTION_MINUTES", int(cfg.ArtifactRetention/time.Minute))) * time.Minute
	cfg.ArtifactMaxMB = getEnvInt("AUDIT_ARTIFACT_MAX_MB", cfg.ArtifactMaxMB)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTIssuer = getEnv("JWT_ISSUER", cfg.JWTIssuer)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvInt("REDIS_DB", cfg.RedisDB)
	cfg.RateLimitPerMinute = getEnvInt("AUDIT_RATE_LIMIT_PER_MINUTE", cfg.RateLimitPerMinute)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.NATSURL = getEnv("NATS_URL", cfg.NATSURL)
	cfg.NATSSubject = getEnv("NATS_SUBJECT", cfg.NATSSubject)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
}

// Validate checks the configuration for values the service cannot run with
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Port) == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.BodyLimitMB <= 0 {
		errs = append(errs, fmt.Errorf("body_limit_mb must be positive, got %d", c.BodyLimitMB))
	}
	if c.RateLimitPerMinute < 0 {
		errs = append(errs, fmt.Errorf("rate_limit_per_minute must not be negative, got %d", c.RateLimitPerMinute))
	}
	if c.MaxArchiveFiles < 0 || c.MaxImageMB < 0 || c.ArtifactMaxMB < 0 {
		errs = append(errs, errors.New("archive and artifact limits must not be negative"))
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log_format must be json or console, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// BodyLimit returns the upload limit in bytes
func (c Config) BodyLimit() int {
	return c.BodyLimitMB * 1024 * 1024
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
