package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/text/language"

	"wealthtrack/internal/finance"
)

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Backend selection
	DataBackend   string
	DataDirectory string
	SQLiteDBPath  string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Reporting
	BaseCurrency string
	Locale       string
	RiskFreeRate float64
	TaxBrackets  string

	// Report cache and write rate limit
	ReportCacheSize    int
	ReportCacheTTL     time.Duration
	RateLimitPerMinute int

	// Worker
	SnapshotSchedule string

	// Google Sheets export
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
}

func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataBackend:   getEnv("DATA_BACKEND", "memory"),
		DataDirectory: getEnv("DATA_DIR", "data"),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/wealthtrack.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "wealthtrack"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_changes"),

		BaseCurrency: getEnv("BASE_CURRENCY", "ILS"),
		Locale:       getEnv("LOCALE", "he-IL"),
		RiskFreeRate: getEnvFloat("RISK_FREE_RATE", finance.DefaultRiskFreeRate),
		TaxBrackets:  getEnv("TAX_BRACKETS", ""),

		ReportCacheSize:    getEnvInt("REPORT_CACHE_SIZE", 128),
		ReportCacheTTL:     getEnvDuration("REPORT_CACHE_TTL", 5*time.Minute),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		SnapshotSchedule: getEnv("SNAPSHOT_SCHEDULE", "@daily"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Report"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}

	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if _, err := finance.ParseCurrency(c.BaseCurrency); err != nil {
		errors = append(errors, fmt.Sprintf("invalid base currency: %v", err))
	}
	if _, err := language.Parse(c.Locale); err != nil {
		errors = append(errors, fmt.Sprintf("invalid locale '%s': %v", c.Locale, err))
	}
	if c.RiskFreeRate < 0 || c.RiskFreeRate > 100 {
		errors = append(errors, fmt.Sprintf("invalid risk free rate %v: must be between 0 and 100", c.RiskFreeRate))
	}
	if c.TaxBrackets != "" {
		if _, err := finance.ParseTaxTable(c.TaxBrackets); err != nil {
			errors = append(errors, fmt.Sprintf("invalid tax brackets: %v", err))
		}
	}

	if c.ReportCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid report cache size %d: must be at least 1", c.ReportCacheSize))
	}
	if c.ReportCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid report cache TTL %v: must be at least 1 second", c.ReportCacheTTL))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 per minute", c.RateLimitPerMinute))
	}

	if _, err := cron.ParseStandard(c.SnapshotSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("invalid snapshot schedule '%s': %v", c.SnapshotSchedule, err))
	}

	if c.GoogleSpreadsheetID != "" {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when a spreadsheet ID is set")
		}
		hasFile := c.GoogleServiceAccountFile != ""
		if !hasFile && c.GoogleServiceAccountJSON == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for sheets export")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// TaxTable returns the configured brackets, or the default table.
func (c *Config) TaxTable() finance.TaxTable {
	if c.TaxBrackets == "" {
		return finance.DefaultTaxTable
	}
	t, err := finance.ParseTaxTable(c.TaxBrackets)
	if err != nil {
		return finance.DefaultTaxTable
	}
	return t
}

// Currency returns the configured base currency, ILS when invalid.
func (c *Config) Currency() finance.Currency {
	cur, err := finance.ParseCurrency(c.BaseCurrency)
	if err != nil {
		return finance.ILS
	}
	return cur
}

// SheetsEnabled reports whether Google Sheets export is configured.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// ParseLogLevel maps debug, info, warn and error to slog levels.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level '%s': must be debug, info, warn or error", s)
	}
	return level, nil
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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
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
