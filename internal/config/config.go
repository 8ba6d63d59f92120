package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // scheduler timezones must resolve in minimal containers

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	MCP       MCPConfig       `yaml:"mcp"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type TelegramConfig struct {
	APIBaseURL string        `yaml:"api_base_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

type SchedulerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Timezone    string        `yaml:"timezone"`
	Concurrency int           `yaml:"concurrency"`
	SendTimeout time.Duration `yaml:"send_timeout"`
	JournalDir  string        `yaml:"journal_dir"`
	// JournalRetention bounds how long delivery ledger entries are kept.
	JournalRetention time.Duration `yaml:"journal_retention"`
}

type MCPConfig struct {
	Enabled bool `yaml:"enabled"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Location resolves the scheduler timezone. "Local" or empty means the host zone.
func (s SchedulerConfig) Location() (*time.Location, error) {
	if s.Timezone == "" || s.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(s.Timezone)
}

func defaults() *Config {
	return &Config{
		Server:    ServerConfig{Host: "0.0.0.0", Port: 8080},
		Tailscale: TailscaleConfig{Hostname: "fitcoach", StateDir: "tsnet-state"},
		Telegram:  TelegramConfig{APIBaseURL: "https://api.telegram.org", Timeout: 15 * time.Second},
		Scheduler: SchedulerConfig{
			Enabled:          true,
			Timezone:         "Local",
			Concurrency:      4,
			SendTimeout:      15 * time.Second,
			JournalDir:       "./data",
			JournalRetention: 30 * 24 * time.Hour,
		},
		MCP:     MCPConfig{Enabled: true},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads config from a YAML file on top of defaults, then applies
// environment variable overrides. Env vars use the prefix FITCOACH_ and
// underscore-separated paths:
//
//	FITCOACH_SERVER_HOST, FITCOACH_SERVER_PORT,
//	FITCOACH_DB_HOST, FITCOACH_DB_PORT, FITCOACH_DB_NAME,
//	FITCOACH_DB_USER, FITCOACH_DB_PASSWORD, FITCOACH_DB_SSLMODE,
//	FITCOACH_AUTH_API_KEY,
//	FITCOACH_TAILSCALE_ENABLED, FITCOACH_TAILSCALE_HOSTNAME,
//	FITCOACH_TELEGRAM_API_BASE_URL,
//	FITCOACH_SCHEDULER_ENABLED, FITCOACH_SCHEDULER_TIMEZONE,
//	FITCOACH_SCHEDULER_CONCURRENCY, FITCOACH_SCHEDULER_JOURNAL_DIR,
//	FITCOACH_MCP_ENABLED, FITCOACH_LOG_LEVEL, FITCOACH_LOG_FORMAT
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func applyEnvOverrides(cfg *Config) {
	envString("FITCOACH_SERVER_HOST", &cfg.Server.Host)
	envInt("FITCOACH_SERVER_PORT", &cfg.Server.Port)

	envString("FITCOACH_DB_HOST", &cfg.Database.Host)
	envInt("FITCOACH_DB_PORT", &cfg.Database.Port)
	envString("FITCOACH_DB_NAME", &cfg.Database.Name)
	envString("FITCOACH_DB_USER", &cfg.Database.User)
	envString("FITCOACH_DB_PASSWORD", &cfg.Database.Password)
	envString("FITCOACH_DB_SSLMODE", &cfg.Database.SSLMode)

	envString("FITCOACH_AUTH_API_KEY", &cfg.Auth.APIKey)

	envBool("FITCOACH_TAILSCALE_ENABLED", &cfg.Tailscale.Enabled)
	envString("FITCOACH_TAILSCALE_HOSTNAME", &cfg.Tailscale.Hostname)

	envString("FITCOACH_TELEGRAM_API_BASE_URL", &cfg.Telegram.APIBaseURL)

	envBool("FITCOACH_SCHEDULER_ENABLED", &cfg.Scheduler.Enabled)
	envString("FITCOACH_SCHEDULER_TIMEZONE", &cfg.Scheduler.Timezone)
	envInt("FITCOACH_SCHEDULER_CONCURRENCY", &cfg.Scheduler.Concurrency)
	envString("FITCOACH_SCHEDULER_JOURNAL_DIR", &cfg.Scheduler.JournalDir)

	envBool("FITCOACH_MCP_ENABLED", &cfg.MCP.Enabled)
	envString("FITCOACH_LOG_LEVEL", &cfg.Logging.Level)
	envString("FITCOACH_LOG_FORMAT", &cfg.Logging.Format)
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	if _, err := c.Scheduler.Location(); err != nil {
		return fmt.Errorf("scheduler.timezone: %w", err)
	}
	if c.Scheduler.Concurrency < 1 {
		return fmt.Errorf("scheduler.concurrency must be at least 1")
	}
	if c.Scheduler.SendTimeout <= 0 {
		return fmt.Errorf("scheduler.send_timeout must be positive")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json")
	}
	return nil
}
