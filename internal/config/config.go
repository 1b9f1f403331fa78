package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	ServerPort string `yaml:"port"`

	DatabaseType   string `yaml:"database_type"`
	DatabasePath   string `yaml:"db_path"`
	DatabaseURL    string `yaml:"database_url"`
	MigrationsPath string `yaml:"migrations_path"`

	// MasterKeyHex is the 32-byte hex key protecting the storage slots
	MasterKeyHex  string `yaml:"master_key_hex"`
	MasterKeyPath string `yaml:"master_key_path"`

	OIDCBaseURL     string `yaml:"oidc_base_url"`
	OIDCRealm       string `yaml:"oidc_realm"`
	OIDCClientID    string `yaml:"oidc_client_id"`
	OIDCRedirectURL string `yaml:"oidc_redirect_url"`

	PushAPIURL    string `yaml:"push_api_url"`
	PushProjectID string `yaml:"push_project_id"`
	PushDeviceID  string `yaml:"push_device_id"`

	ReminderCron string        `yaml:"reminder_cron"`
	ReminderLead time.Duration `yaml:"reminder_lead"`
	DigestCron   string        `yaml:"digest_cron"`
	DigestEmail  string        `yaml:"digest_email"`

	AWSRegion    string `yaml:"aws_region"`
	SESFromEmail string `yaml:"ses_from_email"`
	SESFromName  string `yaml:"ses_from_name"`

	Timezone string `yaml:"timezone"`
	LogLevel string `yaml:"log_level"`

	HTTPTimeout    time.Duration `yaml:"http_timeout"`
	HTTPMaxRetries int           `yaml:"http_max_retries"`
	HTTPRetryDelay time.Duration `yaml:"http_retry_delay"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		ServerPort:      "8080",
		DatabaseType:    "sqlite",
		DatabasePath:    "./eduportal.db",
		MigrationsPath:  "./migrations",
		MasterKeyPath:   "./eduportal.key",
		OIDCBaseURL:     "http://localhost:8181",
		OIDCRealm:       "master",
		OIDCClientID:    "edu-portal-client",
		OIDCRedirectURL: "http://localhost:8080/auth/callback",
		PushAPIURL:      "https://exp.host/--/api/v2",
		ReminderCron:    "*/5 * * * *",
		ReminderLead:    15 * time.Minute,
		DigestCron:      "0 7 * * *",
		AWSRegion:       "us-east-1",
		SESFromName:     "Edu Portal",
		Timezone:        "Local",
		LogLevel:        "info",
		HTTPTimeout:     30 * time.Second,
		HTTPMaxRetries:  3,
		HTTPRetryDelay:  time.Second,
	}
}

// Load reads configuration from an optional YAML file (CONFIG_FILE) and then
// from environment variables, which take precedence over the file
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.ServerPort = getEnv("PORT", cfg.ServerPort)
	cfg.DatabaseType = getEnv("DATABASE_TYPE", cfg.DatabaseType)
	cfg.DatabasePath = getEnv("DB_PATH", cfg.DatabasePath)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.MigrationsPath = getEnv("MIGRATIONS_PATH", cfg.MigrationsPath)
	cfg.MasterKeyHex = getEnv("MASTER_KEY_HEX", cfg.MasterKeyHex)
	cfg.MasterKeyPath = getEnv("MASTER_KEY_PATH", cfg.MasterKeyPath)
	cfg.OIDCBaseURL = getEnv("OIDC_BASE_URL", cfg.OIDCBaseURL)
	cfg.OIDCRealm = getEnv("OIDC_REALM", cfg.OIDCRealm)
	cfg.OIDCClientID = getEnv("OIDC_CLIENT_ID", cfg.OIDCClientID)
	cfg.OIDCRedirectURL = getEnv("OIDC_REDIRECT_URL", cfg.OIDCRedirectURL)
	cfg.PushAPIURL = getEnv("PUSH_API_URL", cfg.PushAPIURL)
	cfg.PushProjectID = getEnv("PUSH_PROJECT_ID", cfg.PushProjectID)
	cfg.PushDeviceID = getEnv("PUSH_DEVICE_ID", cfg.PushDeviceID)
	cfg.ReminderCron = getEnv("REMINDER_CRON", cfg.ReminderCron)
	cfg.DigestCron = getEnv("DIGEST_CRON", cfg.DigestCron)
	cfg.DigestEmail = getEnv("DIGEST_EMAIL", cfg.DigestEmail)
	cfg.AWSRegion = getEnv("AWS_REGION", cfg.AWSRegion)
	cfg.SESFromEmail = getEnv("SES_FROM_EMAIL", cfg.SESFromEmail)
	cfg.SESFromName = getEnv("SES_FROM_NAME", cfg.SESFromName)
	cfg.Timezone = getEnv("TIMEZONE", cfg.Timezone)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	var err error
	if cfg.ReminderLead, err = getEnvDuration("REMINDER_LEAD", cfg.ReminderLead); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getEnvDuration("HTTP_TIMEOUT", cfg.HTTPTimeout); err != nil {
		return nil, err
	}
	if cfg.HTTPRetryDelay, err = getEnvDuration("HTTP_RETRY_DELAY", cfg.HTTPRetryDelay); err != nil {
		return nil, err
	}
	if cfg.HTTPMaxRetries, err = getEnvInt("HTTP_MAX_RETRIES", cfg.HTTPMaxRetries); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Location resolves the configured timezone
func (c *Config) Location() (*time.Location, error) {
	switch c.Timezone {
	case "", "Local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// mergeFile overlays values from a YAML file onto c. A missing file is not an error.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
