package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"prayer_time_extractor/internal/domain/calendar"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/pflag"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	BaseURL           string
	ZonesFile         string
	StartDate         time.Time
	EndDate           time.Time
	DatesPinned       bool // false when the range defaulted to the current year
	Output            string
	MaxRetries        int
	RequestTimeout    time.Duration
	RetryDelay        time.Duration
	Concurrency       int
	RequestsPerSecond float64
	LogLevel          string
	Environment       string
	LogFile           string
	DatabaseDriver    string
	DatabaseURL       string
	DatabaseTable     string
	CronSpec          string
	TelegramToken     string
	AdminTelegramID   int64
	MetricsAddr       string
}

// DateRange returns the configured extraction range.
func (c *AppConfig) DateRange() calendar.DateRange {
	return calendar.NewDateRange(c.StartDate, c.EndDate)
}

// Load reads configuration from environment variables and .env file (if present),
// then applies command-line flags from args on top.
func Load(args []string) (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.BaseURL = envString("ESOLAT_BASE_URL", "https://www.e-solat.gov.my/index.php")
	cfg.ZonesFile = envString("ZONES_FILE", "zones.json")
	cfg.Output = os.Getenv("OUTPUT") // empty: derived from the run timestamp

	if cfg.MaxRetries, err = envInt("MAX_RETRIES", 5); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = envInt("CONCURRENCY", 8); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = envDuration("REQUEST_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.RetryDelay, err = envDuration("RETRY_DELAY", 0); err != nil {
		return nil, err
	}
	rpsStr := envString("REQUESTS_PER_SECOND", "0")
	if cfg.RequestsPerSecond, err = strconv.ParseFloat(rpsStr, 64); err != nil {
		return nil, fmt.Errorf("invalid REQUESTS_PER_SECOND: %w", err)
	}

	cfg.LogLevel = strings.ToLower(envString("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(envString("ENVIRONMENT", "development"))
	cfg.LogFile = envString("LOG_FILE", "data_extraction.log")

	cfg.DatabaseDriver = envString("DATABASE_DRIVER", "postgres")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL") // empty: no database output
	cfg.DatabaseTable = envString("DATABASE_TABLE", "prayer_times")

	cfg.CronSpec = os.Getenv("CRON_SPEC") // empty: run once and exit
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID"); adminIDStr != "" {
		cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}

	startStr := os.Getenv("START_DATE")
	endStr := os.Getenv("END_DATE")

	fs := pflag.NewFlagSet("extractor", pflag.ContinueOnError)
	fs.StringVar(&startStr, "start-date", startStr, "First date to extract, YYYY-MM-DD (default: Jan 1 of the current year)")
	fs.StringVar(&endStr, "end-date", endStr, "Last date to extract, inclusive, YYYY-MM-DD (default: Dec 31 of the start year)")
	fs.StringVar(&cfg.ZonesFile, "zones-file", cfg.ZonesFile, "Zone catalog, JSON or YAML {state: {zone: name}}")
	fs.StringVar(&cfg.Output, "output", cfg.Output, "CSV output path (default: hijri_date_<timestamp>.csv)")
	fs.IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "Attempts per lookup when the API times out")
	fs.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "Zones extracted in parallel (0 = all at once)")
	fs.DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "Timeout for a single API request")
	fs.DurationVar(&cfg.RetryDelay, "retry-delay", cfg.RetryDelay, "Pause between timed-out attempts")
	fs.Float64Var(&cfg.RequestsPerSecond, "rps", cfg.RequestsPerSecond, "Maximum API requests per second across all zones (0 = unlimited)")
	fs.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "e-Solat API endpoint")
	fs.StringVar(&cfg.CronSpec, "schedule", cfg.CronSpec, "Cron spec for recurring runs; empty runs once")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Address to serve Prometheus metrics on, e.g. :9100")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.resolveDates(startStr, endStr, time.Now()); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) resolveDates(startStr, endStr string, now time.Time) error {
	var err error
	c.DatesPinned = startStr != "" || endStr != ""

	switch {
	case startStr != "":
		if c.StartDate, err = calendar.ParseDate(startStr); err != nil {
			return fmt.Errorf("invalid start date: %w", err)
		}
	case endStr != "":
		// Only the end was given: start at Jan 1 of that year, parsed below.
	default:
		c.StartDate = calendar.Year(now.Year()).Start
	}

	if endStr != "" {
		if c.EndDate, err = calendar.ParseDate(endStr); err != nil {
			return fmt.Errorf("invalid end date: %w", err)
		}
	} else {
		c.EndDate = calendar.Year(c.StartDate.Year()).End
	}
	if startStr == "" && endStr != "" {
		c.StartDate = calendar.Year(c.EndDate.Year()).Start
	}

	if c.StartDate.After(c.EndDate) {
		return fmt.Errorf("start date %s is after end date %s", c.StartDate.Format(calendar.DateLayout), c.EndDate.Format(calendar.DateLayout))
	}
	return nil
}

func (c *AppConfig) validate() error {
	if c.ZonesFile == "" {
		return fmt.Errorf("ZONES_FILE is not set")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max retries must be at least 1, got %d", c.MaxRetries)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay must not be negative, got %s", c.RetryDelay)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second must not be negative, got %g", c.RequestsPerSecond)
	}
	if c.CronSpec != "" {
		if _, err := cron.ParseStandard(c.CronSpec); err != nil {
			return fmt.Errorf("invalid CRON_SPEC %q: %w", c.CronSpec, err)
		}
	}
	if c.TelegramToken != "" && c.AdminTelegramID == 0 {
		return fmt.Errorf("ADMIN_TELEGRAM_ID is not set (required with TELEGRAM_TOKEN)")
	}
	return nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
