package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const minSessionSecretLength = 32

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Session  SessionConfig  `yaml:"session"`
	Security SecurityConfig `yaml:"security"`
	Log      LogConfig      `yaml:"log"`
	Audit    AuditConfig    `yaml:"audit"`
	Email    EmailConfig    `yaml:"email"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	BaseURL         string        `yaml:"base_url"`
}

type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type SessionConfig struct {
	Secret       string        `yaml:"secret"`
	Duration     time.Duration `yaml:"duration"`
	CookieSecure bool          `yaml:"cookie_secure"`
}

type SecurityConfig struct {
	BcryptCost int `yaml:"bcrypt_cost"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type AuditConfig struct {
	RetentionDays   int    `yaml:"retention_days"`
	QueueSize       int    `yaml:"queue_size"`
	CleanupSchedule string `yaml:"cleanup_schedule"`
	AMQPURL         string `yaml:"amqp_url"`
	AMQPExchange    string `yaml:"amqp_exchange"`
}

type EmailConfig struct {
	SMTPHost string `yaml:"smtp_host"`
	SMTPPort string `yaml:"smtp_port"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
}

func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			BaseURL:         "http://localhost:8080",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    50,
			MaxIdleConns:    25,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Session: SessionConfig{
			Duration: 30 * 24 * time.Hour,
		},
		Security: SecurityConfig{
			BcryptCost: 12,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Audit: AuditConfig{
			RetentionDays:   90,
			QueueSize:       256,
			CleanupSchedule: "@daily",
			AMQPExchange:    "expense-tracker.audit",
		},
		Email: EmailConfig{
			SMTPPort: "587",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in that order. A .env file in the working directory is loaded
// first when present.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, continuing with system environment variables")
	}

	cfg := Defaults()

	if configPath == "" {
		configPath = os.Getenv("CONFIG_FILE")
	}
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var errs []error

	setString(&c.Server.Host, "HOST")
	setInt(&c.Server.Port, "PORT", &errs)
	setDuration(&c.Server.ShutdownTimeout, "SHUTDOWN_TIMEOUT", &errs)
	setString(&c.Server.BaseURL, "APP_BASE_URL")

	setString(&c.Database.URL, "DB_CONNECTION_STRING")
	setInt(&c.Database.MaxOpenConns, "DB_MAX_OPEN_CONNS", &errs)
	setInt(&c.Database.MaxIdleConns, "DB_MAX_IDLE_CONNS", &errs)
	setDuration(&c.Database.ConnMaxLifetime, "DB_CONN_MAX_LIFETIME", &errs)

	setString(&c.Session.Secret, "SESSION_SECRET")
	setDuration(&c.Session.Duration, "SESSION_DURATION", &errs)
	setBool(&c.Session.CookieSecure, "COOKIE_SECURE", &errs)

	setInt(&c.Security.BcryptCost, "BCRYPT_COST", &errs)

	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")

	setInt(&c.Audit.RetentionDays, "AUDIT_RETENTION_DAYS", &errs)
	setInt(&c.Audit.QueueSize, "AUDIT_QUEUE_SIZE", &errs)
	setString(&c.Audit.CleanupSchedule, "AUDIT_CLEANUP_SCHEDULE")
	setString(&c.Audit.AMQPURL, "AMQP_URL")
	setString(&c.Audit.AMQPExchange, "AMQP_EXCHANGE")

	setString(&c.Email.SMTPHost, "SMTP_HOST")
	setString(&c.Email.SMTPPort, "SMTP_PORT")
	setString(&c.Email.Address, "EMAIL_ADDRESS")
	setString(&c.Email.Password, "EMAIL_PASSWORD")

	return errors.Join(errs...)
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", c.Server.Port))
	}
	if c.Database.URL == "" {
		problems = append(problems, "missing DB_CONNECTION_STRING")
	}
	if len(c.Session.Secret) < minSessionSecretLength {
		problems = append(problems, fmt.Sprintf("SESSION_SECRET must be at least %d bytes", minSessionSecretLength))
	}
	if c.Session.Duration <= 0 {
		problems = append(problems, "session duration must be positive")
	}
	if c.Security.BcryptCost < 4 || c.Security.BcryptCost > 31 {
		problems = append(problems, fmt.Sprintf("invalid bcrypt cost %d: must be between 4 and 31", c.Security.BcryptCost))
	}
	if c.Audit.RetentionDays < 1 {
		problems = append(problems, "audit retention must be at least one day")
	}
	if c.Audit.QueueSize < 1 {
		problems = append(problems, "audit queue size must be at least 1")
	}
	if c.Audit.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.Audit.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL: %v", err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.Audit.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (e EmailConfig) SMTPConfigured() bool {
	return e.SMTPHost != "" && e.Address != "" && e.Password != ""
}

func setString(dst *string, key string) {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		*dst = value
	}
}

func setInt(dst *int, key string, errs *[]error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s %q: %w", key, value, err))
		return
	}
	*dst = parsed
}

func setBool(dst *bool, key string, errs *[]error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s %q: %w", key, value, err))
		return
	}
	*dst = parsed
}

func setDuration(dst *time.Duration, key string, errs *[]error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s %q: %w", key, value, err))
		return
	}
	*dst = parsed
}
