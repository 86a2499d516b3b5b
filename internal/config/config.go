package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the state directory.
const FileName = "spendwise.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SPENDWISE_"

// Config represents the top-level spendwise.yaml configuration.
type Config struct {
	API      APIConfig    `yaml:"api"`
	StateDir string       `yaml:"state_dir,omitempty"`
	Log      LogConfig    `yaml:"log"`
	Mirror   MirrorConfig `yaml:"mirror"`
	Events   EventsConfig `yaml:"events"`
	SMTP     SMTPConfig   `yaml:"smtp"`
	Watch    WatchConfig  `yaml:"watch"`
}

// APIConfig locates the backend.
type APIConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
	PageSize int           `yaml:"page_size"`
}

// LogConfig controls logrus output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// MirrorConfig controls the local SQLite snapshot store.
type MirrorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"` // defaults to <state_dir>/mirror.db
}

// EventsConfig publishes confirmed changes to an AMQP exchange. Empty URL
// disables publishing.
type EventsConfig struct {
	AMQPURL  string `yaml:"amqp_url,omitempty"`
	Exchange string `yaml:"exchange"`
}

// SMTPConfig is used for budget alert mail. Empty Host disables mail.
type SMTPConfig struct {
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	From     string `yaml:"from,omitempty"`
	To       string `yaml:"to,omitempty"`
}

// WatchConfig drives the periodic refresh.
type WatchConfig struct {
	Schedule string `yaml:"schedule"` // standard 5-field cron expression
}

// Load reads a spendwise.yaml file from disk. Missing fields keep their
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config pointing at a local backend.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:  "http://localhost:8080/api",
			Timeout:  15 * time.Second,
			PageSize: 100,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Mirror: MirrorConfig{
			Enabled: true,
		},
		Events: EventsConfig{
			Exchange: "spendwise",
		},
		SMTP: SMTPConfig{
			Port: 587,
		},
		Watch: WatchConfig{
			Schedule: "*/15 * * * *",
		},
	}
}

// DefaultStateDir returns $SPENDWISE_HOME, or spendwise/ under the user
// config directory.
func DefaultStateDir() string {
	if dir := os.Getenv(EnvPrefix + "HOME"); dir != "" {
		return dir
	}
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "spendwise")
}

// Resolve builds the effective configuration: .env, then the YAML file at
// path (or the default location when path is empty), then SPENDWISE_*
// environment overrides. The result is validated.
func Resolve(path string) (*Config, error) {
	_ = godotenv.Load()

	explicit := path != ""
	if !explicit {
		path = filepath.Join(DefaultStateDir(), FileName)
	}

	cfg, err := Load(path)
	switch {
	case err == nil:
	case !explicit && errors.Is(err, os.ErrNotExist):
		cfg = Default()
	default:
		return nil, err
	}
	if cfg.StateDir == "" {
		cfg.StateDir = filepath.Dir(path)
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays SPENDWISE_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var problems []string
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s%s=%q: not a number", EnvPrefix, key, v))
				return
			}
			*dst = n
		}
	}

	str("HOME", &c.StateDir)
	str("API_URL", &c.API.BaseURL)
	integer("PAGE_SIZE", &c.API.PageSize)
	if v, ok := lookup(EnvPrefix + "API_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%sAPI_TIMEOUT=%q: %v", EnvPrefix, v, err))
		} else {
			c.API.Timeout = d
		}
	}
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	if v, ok := lookup(EnvPrefix + "MIRROR"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%sMIRROR=%q: not a boolean", EnvPrefix, v))
		} else {
			c.Mirror.Enabled = b
		}
	}
	str("MIRROR_PATH", &c.Mirror.Path)
	str("AMQP_URL", &c.Events.AMQPURL)
	str("AMQP_EXCHANGE", &c.Events.Exchange)
	str("SMTP_HOST", &c.SMTP.Host)
	integer("SMTP_PORT", &c.SMTP.Port)
	str("SMTP_USERNAME", &c.SMTP.Username)
	str("SMTP_PASSWORD", &c.SMTP.Password)
	str("SMTP_FROM", &c.SMTP.From)
	str("ALERT_EMAIL", &c.SMTP.To)
	str("WATCH_SCHEDULE", &c.Watch.Schedule)

	if len(problems) > 0 {
		return fmt.Errorf("environment overrides:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var problems []string

	if u, err := url.Parse(c.API.BaseURL); err != nil || c.API.BaseURL == "" {
		problems = append(problems, fmt.Sprintf("invalid api base_url %q", c.API.BaseURL))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		problems = append(problems, fmt.Sprintf("invalid api base_url scheme %q: must be http or https", u.Scheme))
	}
	if c.API.Timeout <= 0 {
		problems = append(problems, fmt.Sprintf("invalid api timeout %v: must be positive", c.API.Timeout))
	}
	if c.API.PageSize < 1 || c.API.PageSize > 1000 {
		problems = append(problems, fmt.Sprintf("invalid api page_size %d: must be between 1 and 1000", c.API.PageSize))
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, fmt.Sprintf("invalid log level %q", c.Log.Level))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		problems = append(problems, fmt.Sprintf("invalid log format %q: must be text or json", c.Log.Format))
	}

	if c.Events.AMQPURL != "" {
		if u, err := url.Parse(c.Events.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL: %v", err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme %q: must be amqp or amqps", u.Scheme))
		}
		if c.Events.Exchange == "" {
			problems = append(problems, "events exchange cannot be empty when an AMQP URL is set")
		}
	}

	if c.SMTP.Host != "" {
		if c.SMTP.Port < 1 || c.SMTP.Port > 65535 {
			problems = append(problems, fmt.Sprintf("invalid smtp port %d", c.SMTP.Port))
		}
		if c.SMTP.From == "" || c.SMTP.To == "" {
			problems = append(problems, "smtp from and to are required when smtp host is set")
		}
	}

	if _, err := cron.ParseStandard(c.Watch.Schedule); err != nil {
		problems = append(problems, fmt.Sprintf("invalid watch schedule %q: %v", c.Watch.Schedule, err))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// MirrorPath returns where the snapshot database lives.
func (c *Config) MirrorPath() string {
	if c.Mirror.Path != "" {
		return c.Mirror.Path
	}
	return filepath.Join(c.StateDir, "mirror.db")
}

// SessionPath returns where the login session is stored.
func (c *Config) SessionPath() string { return filepath.Join(c.StateDir, "session.yaml") }

// SettingsPath returns where user preferences are stored.
func (c *Config) SettingsPath() string { return filepath.Join(c.StateDir, "settings.yaml") }

// SMTPAddr returns host:port for net/smtp.
func (c *Config) SMTPAddr() string {
	return c.SMTP.Host + ":" + strconv.Itoa(c.SMTP.Port)
}
