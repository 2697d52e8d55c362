package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"golang.org/x/text/language"
)

var validBackends = []string{"memory", "sqlite", "mongo"}

type Config struct {
	// HTTP webhook
	Port               string
	RateLimitPerMinute int
	ShutdownTimeout    time.Duration

	// Storage
	DataBackend   string
	SQLiteDBPath  string
	MongoURI      string
	MongoDatabase string

	// AMQP
	AMQPURL          string
	AMQPExchange     string
	AMQPInboundQueue string
	AMQPOutboundKey  string
	AMQPEventsQueue  string

	// Bot
	CommandPrefix string
	Timezone      string
	Locale        string
	CurrencyLabel string
	BotSelfID     string

	// Google Sheets mirror
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleOAuthClientFile    string
	GoogleOAuthTokenFile     string
	GoogleOAuthClientJSON    string
	GoogleOAuthTokenJSON     string

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DataBackend:   getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/warung.db"),
		MongoURI:      getEnv("MONGO_URI", ""),
		MongoDatabase: getEnv("MONGO_DATABASE", "warung"),

		AMQPURL:          getEnv("AMQP_URL", ""),
		AMQPExchange:     getEnv("AMQP_EXCHANGE", "warung"),
		AMQPInboundQueue: getEnv("AMQP_INBOUND_QUEUE", "warung.inbound"),
		AMQPOutboundKey:  getEnv("AMQP_OUTBOUND_KEY", "warung.outbound"),
		AMQPEventsQueue:  getEnv("AMQP_EVENTS_QUEUE", "warung.events"),

		CommandPrefix: getEnv("COMMAND_PREFIX", "/"),
		Timezone:      getEnv("TIMEZONE", "Asia/Jakarta"),
		Locale:        getEnv("LOCALE", "id-ID"),
		CurrencyLabel: getEnv("CURRENCY_LABEL", "Rp"),
		BotSelfID:     getEnv("BOT_SELF_ID", ""),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Transaksi"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleOAuthClientFile:    getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthTokenFile:     getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),
		GoogleOAuthClientJSON:    getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthTokenJSON:     getEnv("GOOGLE_OAUTH_TOKEN_JSON", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Location loads the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// Language parses the configured BCP 47 locale.
func (c *Config) Language() (language.Tag, error) {
	return language.Parse(c.Locale)
}

// AMQPEnabled reports whether a broker is configured.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// Validate checks the settings every process needs and returns every problem at once
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimitPerMinute))
	}

	errors = append(errors, c.validateBackend()...)
	errors = append(errors, c.validateAMQP()...)

	if c.CommandPrefix == "" || strings.ContainsAny(c.CommandPrefix, " \t\n") {
		errors = append(errors, fmt.Sprintf("invalid command prefix '%s': must be non-empty without whitespace", c.CommandPrefix))
	}
	if _, err := c.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}
	if _, err := c.Language(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid locale '%s': %v", c.Locale, err))
	}
	if c.CurrencyLabel == "" {
		errors = append(errors, "currency label cannot be empty")
	}

	return combine(errors)
}

// ValidateSheets checks the settings of the Sheets sync worker.
func (c *Config) ValidateSheets() error {
	var errors []string

	if !c.AMQPEnabled() {
		errors = append(errors, "AMQP URL is required for the sheets sync worker")
	}
	errors = append(errors, c.validateAMQP()...)

	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required for the sheets sync worker")
	}
	if c.GoogleSheetName == "" {
		errors = append(errors, "Google Sheet name is required for the sheets sync worker")
	}

	hasServiceAccount := c.GoogleServiceAccountJSON != "" || c.GoogleServiceAccountFile != ""
	hasClient := c.GoogleOAuthClientJSON != "" || c.GoogleOAuthClientFile != ""
	hasToken := c.GoogleOAuthTokenJSON != "" || c.GoogleOAuthTokenFile != ""
	switch {
	case hasServiceAccount:
		errors = append(errors, fileExists("Google service account file", c.GoogleServiceAccountFile)...)
	case hasClient && hasToken:
		errors = append(errors, fileExists("Google OAuth client file", c.GoogleOAuthClientFile)...)
		errors = append(errors, fileExists("Google OAuth token file", c.GoogleOAuthTokenFile)...)
	default:
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON/FILE or both GOOGLE_OAUTH_CLIENT_JSON/FILE and GOOGLE_OAUTH_TOKEN_JSON/FILE must be provided")
	}

	return combine(errors)
}

func (c *Config) validateBackend() []string {
	var errors []string

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

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
			break
		}
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case "mongo":
		if c.MongoURI == "" {
			errors = append(errors, "Mongo URI is required when using mongo backend")
		} else if u, err := url.Parse(c.MongoURI); err != nil {
			errors = append(errors, fmt.Sprintf("invalid Mongo URI: %v", err))
		} else if u.Scheme != "mongodb" && u.Scheme != "mongodb+srv" {
			errors = append(errors, fmt.Sprintf("invalid Mongo URI scheme '%s': must be 'mongodb' or 'mongodb+srv'", u.Scheme))
		}
		if c.MongoDatabase == "" {
			errors = append(errors, "Mongo database name cannot be empty when using mongo backend")
		}
	}
	return errors
}

func (c *Config) validateAMQP() []string {
	if c.AMQPURL == "" {
		return nil
	}
	var errors []string
	if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
	} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
	}
	if c.AMQPExchange == "" {
		errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
	}
	if c.AMQPInboundQueue == "" {
		errors = append(errors, "AMQP inbound queue name cannot be empty when AMQP URL is provided")
	}
	if c.AMQPOutboundKey == "" {
		errors = append(errors, "AMQP outbound routing key cannot be empty when AMQP URL is provided")
	}
	if c.AMQPEventsQueue == "" {
		errors = append(errors, "AMQP events queue name cannot be empty when AMQP URL is provided")
	}
	return errors
}

func fileExists(label, path string) []string {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return []string{fmt.Sprintf("%s does not exist: %s", label, path)}
	}
	return nil
}

func combine(errors []string) error {
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
