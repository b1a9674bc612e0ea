// Package config provides environment-variable-first configuration loading
// with optional YAML or TOML file fallback and .env file support.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Provider names accepted in the provider setting.
const (
	ProviderSMTP   = "smtp"
	ProviderSES    = "ses"
	ProviderStdout = "stdout"
)

// Config holds the complete application configuration.
type Config struct {
	Provider string        `yaml:"provider" toml:"provider"`
	POP3     POP3Config    `yaml:"pop3" toml:"pop3"`
	SMTP     SMTPConfig    `yaml:"smtp" toml:"smtp"`
	Fetch    FetchConfig   `yaml:"fetch" toml:"fetch"`
	SES      SESConfig     `yaml:"ses" toml:"ses"`
	Metrics  MetricsConfig `yaml:"metrics" toml:"metrics"`
	Logging  LoggingConfig `yaml:"logging" toml:"logging"`
}

// POP3Config holds POP3 server configuration.
type POP3Config struct {
	Listen  string `yaml:"listen" toml:"listen"`
	MailDir string `yaml:"mail_dir" toml:"mail_dir"`
}

// SMTPConfig holds the outbound SMTP client configuration.
type SMTPConfig struct {
	Host     string `yaml:"host" toml:"host"`
	HELO     string `yaml:"helo" toml:"helo"`
	Username string `yaml:"username" toml:"username"`
	Password string `yaml:"password" toml:"password"`
}

// FetchConfig holds the POP3 client configuration used by recv.
type FetchConfig struct {
	Host     string `yaml:"host" toml:"host"`
	Username string `yaml:"username" toml:"username"`
	Password string `yaml:"password" toml:"password"`
}

// SESConfig holds AWS SES configuration.
type SESConfig struct {
	Region          string `yaml:"region" toml:"region"`
	AccessKeyID     string `yaml:"access_key_id" toml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" toml:"secret_access_key"`
	Sender          string `yaml:"sender" toml:"sender"`
}

// MetricsConfig holds the status API configuration. An empty Listen
// disables it.
type MetricsConfig struct {
	Listen string `yaml:"listen" toml:"listen"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Load loads configuration from environment variables with sensible defaults.
// Environment variables always take precedence.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnvVars()
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file, or a TOML file when the
// path ends in ".toml", as the base layer, then overrides with environment
// variables. Returns an error if the specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables always override file values
	cfg.applyEnvVars()

	return cfg, nil
}

// LoadDotEnv copies the variables of a .env file into the process
// environment. Variables already set are left untouched and a missing
// file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// SESConfigured returns true if the SES region and sender are set.
func (c *Config) SESConfigured() bool {
	return c.SES.Region != "" && c.SES.Sender != ""
}

// SMTPAuthEnabled returns true if both SMTP username and password are set.
func (c *Config) SMTPAuthEnabled() bool {
	return c.SMTP.Username != "" && c.SMTP.Password != ""
}

// MetricsEnabled returns true if the status API should be started.
func (c *Config) MetricsEnabled() bool {
	return c.Metrics.Listen != ""
}

// Validate checks the settings the command binary cannot run without.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderSMTP, ProviderStdout:
	case ProviderSES:
		if !c.SESConfigured() {
			return errors.New("ses provider requires ses.region and ses.sender")
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}
	return nil
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.Provider = ProviderSMTP
	c.POP3.Listen = ":110"
	c.POP3.MailDir = "/var/mail"
	c.SMTP.Host = "localhost:25"
	c.SMTP.HELO = "localhost"
	c.Fetch.Host = "localhost:110"
	c.Logging.Level = "info"
	c.Logging.Format = "text"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() {
	if v := os.Getenv("PROVIDER"); v != "" {
		c.Provider = strings.ToLower(v)
	}

	setFromEnv(&c.POP3.Listen, "POP3_LISTEN")
	setFromEnv(&c.POP3.MailDir, "POP3_MAIL_DIR")

	setFromEnv(&c.SMTP.Host, "SMTP_HOST")
	setFromEnv(&c.SMTP.HELO, "SMTP_HELO")
	setFromEnv(&c.SMTP.Username, "SMTP_USERNAME")
	setFromEnv(&c.SMTP.Password, "SMTP_PASSWORD")

	setFromEnv(&c.Fetch.Host, "FETCH_HOST")
	setFromEnv(&c.Fetch.Username, "FETCH_USERNAME")
	setFromEnv(&c.Fetch.Password, "FETCH_PASSWORD")

	setFromEnv(&c.SES.Region, "SES_REGION")
	setFromEnv(&c.SES.AccessKeyID, "SES_ACCESS_KEY_ID")
	setFromEnv(&c.SES.SecretAccessKey, "SES_SECRET_ACCESS_KEY")
	setFromEnv(&c.SES.Sender, "SES_SENDER")

	setFromEnv(&c.Metrics.Listen, "METRICS_LISTEN")

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = strings.ToLower(v)
	}
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
