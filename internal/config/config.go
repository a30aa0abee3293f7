package config

import (
	"errors"
	"fmt"
	"net/mail"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // SCHEDULE_TIMEZONE must resolve on minimal images

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/storm-alert-delays/internal/domain"
)

// Order source kinds accepted by ORDERS_SOURCE.
const (
	OrdersSourceCSV    = "csv"
	OrdersSourceSQLite = "sqlite"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	AlertFeedURL       string
	AlertFeedTimeout   time.Duration
	AlertFeedUserAgent string

	// Filter configuration; Rules is the validated form of the two lists.
	MonitoredStates []string
	ExclusionTerms  []string
	Rules           domain.Rules

	OrdersSource     string
	OrdersCSVPath    string
	OrdersSQLitePath string
	ReportDir        string

	ScheduleHour     int
	ScheduleMinute   int
	ScheduleLocation *time.Location
	RunOnStart       bool

	// SMTP delivery. Enabled when a sender address and recipients are set.
	EmailEnabled    bool
	SMTPHost        string
	SMTPPort        int
	EmailAddress    string
	EmailPassword   string
	EmailRecipients []string

	// Kafka notifications. Enabled when brokers are set.
	KafkaEnabled     bool
	KafkaBrokers     []string
	KafkaNotifyTopic string

	HTTPAddr        string
	APIKey          string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	feedTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("ALERT_FEED_TIMEOUT", "15s"))
	if err != nil || feedTimeout <= 0 {
		return nil, errors.New("invalid ALERT_FEED_TIMEOUT")
	}

	states := splitList(sharedcfg.EnvOrDefault("MONITORED_STATES", strings.Join(domain.DefaultMonitoredStates, ",")))
	terms := splitList(sharedcfg.EnvOrDefault("ALERT_EXCLUSION_TERMS", strings.Join(domain.DefaultExclusionTerms, ",")))
	rules, err := domain.NewRules(states, terms)
	if err != nil {
		return nil, fmt.Errorf("invalid MONITORED_STATES: %w", err)
	}

	hour, minute, err := parseClock(sharedcfg.EnvOrDefault("SCHEDULE_TIME", "06:30"))
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(sharedcfg.EnvOrDefault("SCHEDULE_TIMEZONE", "America/Chicago"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULE_TIMEZONE: %w", err)
	}

	smtpPort, err := strconv.Atoi(sharedcfg.EnvOrDefault("SMTP_PORT", "587"))
	if err != nil || smtpPort <= 0 || smtpPort > 65535 {
		return nil, errors.New("invalid SMTP_PORT")
	}

	cfg := &Config{
		AlertFeedURL:       sharedcfg.EnvOrDefault("ALERT_FEED_URL", "https://api.weather.gov/alerts/active.atom"),
		AlertFeedTimeout:   feedTimeout,
		AlertFeedUserAgent: sharedcfg.EnvOrDefault("ALERT_FEED_USER_AGENT", "storm-alert-delays"),
		MonitoredStates:    states,
		ExclusionTerms:     terms,
		Rules:              rules,

		OrdersSource:     strings.ToLower(sharedcfg.EnvOrDefault("ORDERS_SOURCE", OrdersSourceCSV)),
		OrdersCSVPath:    sharedcfg.EnvOrDefault("ORDERS_CSV_PATH", "orders.csv"),
		OrdersSQLitePath: sharedcfg.EnvOrDefault("ORDERS_SQLITE_PATH", "orders.db"),
		ReportDir:        sharedcfg.EnvOrDefault("REPORT_DIR", "reports"),

		ScheduleHour:     hour,
		ScheduleMinute:   minute,
		ScheduleLocation: loc,
		RunOnStart:       sharedcfg.EnvOrDefault("RUN_ON_START", "true") == "true",

		SMTPHost:        sharedcfg.EnvOrDefault("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:        smtpPort,
		EmailAddress:    os.Getenv("EMAIL_ADDRESS"),
		EmailPassword:   os.Getenv("EMAIL_PASSWORD"),
		EmailRecipients: splitList(os.Getenv("EMAIL_RECIPIENTS")),

		KafkaNotifyTopic: sharedcfg.EnvOrDefault("KAFKA_NOTIFY_TOPIC", "weather-delayed-orders"),

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		APIKey:          os.Getenv("API_KEY"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(brokers)
		cfg.KafkaEnabled = len(cfg.KafkaBrokers) > 0
	}
	cfg.EmailEnabled = cfg.EmailAddress != "" && len(cfg.EmailRecipients) > 0

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.OrdersSource {
	case OrdersSourceCSV:
		if c.OrdersCSVPath == "" {
			return errors.New("ORDERS_CSV_PATH is required")
		}
	case OrdersSourceSQLite:
		if c.OrdersSQLitePath == "" {
			return errors.New("ORDERS_SQLITE_PATH is required")
		}
	default:
		return fmt.Errorf("invalid ORDERS_SOURCE %q: want csv or sqlite", c.OrdersSource)
	}
	if c.ReportDir == "" {
		return errors.New("REPORT_DIR is required")
	}
	if c.EmailAddress != "" {
		if _, err := mail.ParseAddress(c.EmailAddress); err != nil {
			return fmt.Errorf("invalid EMAIL_ADDRESS: %w", err)
		}
	}
	for _, r := range c.EmailRecipients {
		if _, err := mail.ParseAddress(r); err != nil {
			return fmt.Errorf("invalid EMAIL_RECIPIENTS entry %q: %w", r, err)
		}
	}
	if c.KafkaEnabled && c.KafkaNotifyTopic == "" {
		return errors.New("KAFKA_NOTIFY_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

// parseClock parses an "HH:MM" wall-clock time.
func parseClock(s string) (int, int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid SCHEDULE_TIME %q: want HH:MM", s)
	}
	return t.Hour(), t.Minute(), nil
}

// splitList splits a comma-separated value, dropping blank items.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
