// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (defaults to "./data", always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	AuditRetentionDays   int    // match_requests rows older than this are deleted
	AuditCleanupSchedule string // cron spec with seconds field
	MaturedPruneSchedule string

	WALCheckSchedule          string
	DailyMaintenanceSchedule  string
	WeeklyMaintenanceSchedule string

	R2 R2Config
}

// R2Config holds Cloudflare R2 credentials for universe snapshot downloads and database backups.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UniverseKey     string // object key of the universe snapshot (.json or .msgpack); empty disables refresh
	RefreshSchedule string

	BackupSchedule      string // empty disables backups
	BackupRetentionDays int    // 0 keeps every backup
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	absDataDir, err := filepath.Abs(getEnv("ORCA_DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:              absDataDir,
		Port:                 getEnvAsInt("GO_PORT", 8001),
		DevMode:              getEnvAsBool("DEV_MODE", false),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		AuditRetentionDays:   getEnvAsInt("MATCH_AUDIT_RETENTION_DAYS", 90),
		AuditCleanupSchedule: getEnv("AUDIT_CLEANUP_SCHEDULE", "0 0 3 * * *"),
		MaturedPruneSchedule: getEnv("MATURED_PRUNE_SCHEDULE", "0 30 3 * * *"),

		WALCheckSchedule:          getEnv("WAL_CHECK_SCHEDULE", "0 */15 * * * *"),
		DailyMaintenanceSchedule:  getEnv("DAILY_MAINTENANCE_SCHEDULE", "0 0 2 * * *"),
		WeeklyMaintenanceSchedule: getEnv("WEEKLY_MAINTENANCE_SCHEDULE", "0 0 3 * * 0"),
		R2: R2Config{
			AccountID:       getEnv("R2_ACCOUNT_ID", ""),
			AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
			BucketName:      getEnv("R2_BUCKET_NAME", ""),
			UniverseKey:     getEnv("R2_UNIVERSE_KEY", "universe/bonds.json"),
			RefreshSchedule: getEnv("SNAPSHOT_REFRESH_SCHEDULE", "0 0 */6 * * *"),

			BackupSchedule:      getEnv("R2_BACKUP_SCHEDULE", "0 0 1 * * *"),
			BackupRetentionDays: getEnvAsInt("R2_BACKUP_RETENTION_DAYS", 30),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid GO_PORT %d", c.Port)
	}
	if c.AuditRetentionDays <= 0 {
		return fmt.Errorf("MATCH_AUDIT_RETENTION_DAYS must be positive, got %d", c.AuditRetentionDays)
	}

	if c.R2.BackupRetentionDays < 0 {
		return fmt.Errorf("R2_BACKUP_RETENTION_DAYS cannot be negative, got %d", c.R2.BackupRetentionDays)
	}

	// R2 is optional, but half a set of credentials is a mistake
	set := 0
	for _, v := range []string{c.R2.AccountID, c.R2.AccessKeyID, c.R2.SecretAccessKey, c.R2.BucketName} {
		if v != "" {
			set++
		}
	}
	if set != 0 && set != 4 {
		return fmt.Errorf("R2 configuration incomplete: R2_ACCOUNT_ID, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY and R2_BUCKET_NAME must all be set")
	}

	return nil
}

// R2Enabled reports whether an R2 bucket is configured.
func (c *Config) R2Enabled() bool {
	return c.R2.AccountID != "" && c.R2.AccessKeyID != "" &&
		c.R2.SecretAccessKey != "" && c.R2.BucketName != ""
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
