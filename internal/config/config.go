package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Primary admin identity (required)
	AdminChatID   int64
	AdminUsername string

	// Transport listen address
	HTTPAddr string

	// Database
	SQLiteDBPath string

	// Display timezone for "today" and timestamps
	Timezone string

	// AMQP ledger event bus (optional; empty URL disables publishing)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Backup worker defaults (the live values are settings rows; these
	// seed them and locate the snapshot directory)
	BackupDir      string
	BackupInterval time.Duration

	// Google Sheets export (optional; empty spreadsheet ID disables it)
	GoogleSpreadsheetID string
	GoogleSheetName     string
	ExportBatchSize     int
}

func Load() *Config {
	return &Config{
		AdminChatID:   getEnvInt64("ADMIN_CHAT_ID", 0),
		AdminUsername: strings.TrimPrefix(strings.TrimSpace(getEnv("ADMIN_USERNAME", "")), "@"),

		HTTPAddr:     getEnv("HTTP_ADDR", ":8081"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/kasbook.db"),
		Timezone:     getEnv("TIMEZONE", "Asia/Tehran"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "kasbook"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		BackupDir:      getEnv("BACKUP_DIR", "./backups"),
		BackupInterval: getEnvDuration("BACKUP_INTERVAL", 24*time.Hour),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Ledger"),
		ExportBatchSize:     getEnvInt("EXPORT_BATCH_SIZE", 50),
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	var errs []string

	if c.AdminChatID == 0 {
		errs = append(errs, "ADMIN_CHAT_ID must be set to the primary admin's numeric id")
	}
	if c.AdminUsername == "" {
		errs = append(errs, "ADMIN_USERNAME must be set")
	}
	if c.SQLiteDBPath == "" {
		errs = append(errs, "SQLite database path cannot be empty")
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("invalid timezone %q: %v", c.Timezone, err))
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL %q: %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme %q: must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.BackupInterval < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid backup interval %v: must be at least 1 minute", c.BackupInterval))
	}
	if c.ExportBatchSize < 1 || c.ExportBatchSize > 1000 {
		errs = append(errs, fmt.Sprintf("invalid export batch size %d: must be between 1 and 1000", c.ExportBatchSize))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// Location resolves the configured timezone. Validate must have passed.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
