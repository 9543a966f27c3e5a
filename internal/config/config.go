package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"billing/internal/logger"
)

type Config struct {
	// Local storage
	LedgerDBPath string

	// Invoicing
	InvoicePrefix     string
	LowStockThreshold int

	// Cloud sync
	CloudSyncEnabled bool
	SyncDebounce     time.Duration
	RemoteFileName   string
	SharedDriveID    string

	// Google Drive credentials: a bearer token, or a service account key
	DriveAccessToken             string
	GoogleApplicationCredentials string
	GoogleCredentials            string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

func Load() (*Config, error) {
	var errs []string
	parseInt := func(key, def string) int {
		v, err := strconv.Atoi(getEnv(key, def))
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s must be an integer", key))
		}
		return v
	}
	parseBool := func(key, def string) bool {
		v, err := strconv.ParseBool(getEnv(key, def))
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s must be a boolean", key))
		}
		return v
	}
	parseDuration := func(key, def string) time.Duration {
		v, err := time.ParseDuration(getEnv(key, def))
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s must be a duration", key))
		}
		return v
	}

	config := &Config{
		LedgerDBPath:                 getEnv("LEDGER_DB_PATH", "billing.db"),
		InvoicePrefix:                getEnv("INVOICE_PREFIX", "TE"),
		LowStockThreshold:            parseInt("LOW_STOCK_THRESHOLD", "500"),
		CloudSyncEnabled:             parseBool("CLOUD_SYNC_ENABLED", "false"),
		SyncDebounce:                 parseDuration("SYNC_DEBOUNCE", "2s"),
		RemoteFileName:               getEnv("REMOTE_FILE_NAME", "tevolta_cloud_db.json"),
		SharedDriveID:                getEnv("GDRIVE_SHARED_DRIVE_ID", ""),
		DriveAccessToken:             getEnv("GDRIVE_ACCESS_TOKEN", ""),
		GoogleApplicationCredentials: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		GoogleCredentials:            getEnv("GOOGLE_CREDENTIALS", ""),
		LogLevel:                     getEnv("LOG_LEVEL", "info"),
		LogFormat:                    getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:                getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:                    getEnv("LOG_OUTPUT", "stderr"),
		LogMaxSizeMB:                 parseInt("LOG_MAX_SIZE_MB", "64"),
		LogMaxBackups:                parseInt("LOG_MAX_BACKUPS", "7"),
		LogMaxAgeDays:                parseInt("LOG_MAX_AGE_DAYS", "7"),
		LogCompress:                  parseBool("LOG_COMPRESS", "false"),
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("config validation failed: %s", strings.Join(errs, "; "))
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.LedgerDBPath == "" {
		return fmt.Errorf("LEDGER_DB_PATH is required")
	}
	if strings.ContainsAny(c.InvoicePrefix, "/ ") {
		return fmt.Errorf("INVOICE_PREFIX must not contain '/' or spaces")
	}
	if c.LowStockThreshold < 0 {
		return fmt.Errorf("LOW_STOCK_THRESHOLD must not be negative")
	}
	if c.SyncDebounce <= 0 {
		return fmt.Errorf("SYNC_DEBOUNCE must be positive")
	}
	if c.RemoteFileName == "" {
		return fmt.Errorf("REMOTE_FILE_NAME is required")
	}
	return nil
}

// HasDriveCredentials reports whether any Google Drive credential is configured.
func (c *Config) HasDriveCredentials() bool {
	return c.DriveAccessToken != "" || c.GoogleApplicationCredentials != "" || c.GoogleCredentials != ""
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
		MaxSizeMB:  c.LogMaxSizeMB,
		MaxBackups: c.LogMaxBackups,
		MaxAgeDays: c.LogMaxAgeDays,
		Compress:   c.LogCompress,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
