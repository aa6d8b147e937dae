package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

// Bounds accepted for the inter-contact delay, in milliseconds.
const (
	MinDelayFloorMs = 1000
	MaxDelayCapMs   = 30000
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Outreach  OutreachConfig  `yaml:"outreach" mapstructure:"outreach"`
	Browser   BrowserConfig   `yaml:"browser" mapstructure:"browser"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	AI        AIConfig        `yaml:"ai" mapstructure:"ai"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig selects where contacts and tracking state live.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Dir         string `yaml:"dir" mapstructure:"dir"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// OutreachConfig tunes bulk runs.
type OutreachConfig struct {
	MinDelayMs     int    `yaml:"min_delay_ms" mapstructure:"min_delay_ms"`
	MaxDelayMs     int    `yaml:"max_delay_ms" mapstructure:"max_delay_ms"`
	MaxPerHour     int    `yaml:"max_per_hour" mapstructure:"max_per_hour"`
	DefaultCountry string `yaml:"default_country" mapstructure:"default_country"`
	TemplatesFile  string `yaml:"templates_file" mapstructure:"templates_file"`
}

// MinDelay returns the lower delay bound.
func (o OutreachConfig) MinDelay() time.Duration {
	return time.Duration(o.MinDelayMs) * time.Millisecond
}

// MaxDelay returns the upper delay bound.
func (o OutreachConfig) MaxDelay() time.Duration {
	return time.Duration(o.MaxDelayMs) * time.Millisecond
}

// BrowserConfig configures the WhatsApp Web session.
type BrowserConfig struct {
	UserDataDir      string `yaml:"user_data_dir" mapstructure:"user_data_dir"`
	ChromePath       string `yaml:"chrome_path" mapstructure:"chrome_path"`
	Headless         bool   `yaml:"headless" mapstructure:"headless"`
	LoginTimeoutSecs int    `yaml:"login_timeout_secs" mapstructure:"login_timeout_secs"`
	SendTimeoutSecs  int    `yaml:"send_timeout_secs" mapstructure:"send_timeout_secs"`
}

// AnthropicConfig configures the Anthropic client used in AI mode.
type AnthropicConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// AIConfig names the sender persona used in generated openers.
type AIConfig struct {
	AgentName   string `yaml:"agent_name" mapstructure:"agent_name"`
	CompanyName string `yaml:"company_name" mapstructure:"company_name"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	// .env is optional; real environment variables take precedence.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("OUTREACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "json")
	v.SetDefault("store.dir", "state")
	v.SetDefault("store.database_url", "")
	v.SetDefault("outreach.min_delay_ms", 2000)
	v.SetDefault("outreach.max_delay_ms", 5000)
	v.SetDefault("outreach.max_per_hour", 0)
	v.SetDefault("outreach.default_country", "PT")
	v.SetDefault("outreach.templates_file", "templates.yaml")
	v.SetDefault("browser.user_data_dir", "whatsapp-session")
	v.SetDefault("browser.chrome_path", "")
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.login_timeout_secs", 60)
	v.SetDefault("browser.send_timeout_secs", 45)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 150)
	v.SetDefault("anthropic.temperature", 0.7)
	v.SetDefault("ai.agent_name", "Joao")
	v.SetDefault("ai.company_name", "Homodeus")
	v.SetDefault("server.port", 4000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command depends on. mode is one of
// "parse", "send", "contacts" or "serve"; "ai" additionally requires an
// Anthropic key.
func (c *Config) Validate(mode string) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch c.Store.Driver {
	case "json", "sqlite":
	default:
		add("store.driver %q is not supported (json, sqlite)", c.Store.Driver)
	}

	switch mode {
	case "parse", "contacts":
	case "send", "serve", "ai":
		o := c.Outreach
		if o.MinDelayMs < MinDelayFloorMs || o.MinDelayMs > MaxDelayCapMs {
			add("outreach.min_delay_ms must be between %d and %d", MinDelayFloorMs, MaxDelayCapMs)
		}
		if o.MaxDelayMs < MinDelayFloorMs || o.MaxDelayMs > MaxDelayCapMs {
			add("outreach.max_delay_ms must be between %d and %d", MinDelayFloorMs, MaxDelayCapMs)
		}
		if o.MinDelayMs > o.MaxDelayMs {
			add("outreach.min_delay_ms must be <= outreach.max_delay_ms")
		}
		if o.MaxPerHour < 0 {
			add("outreach.max_per_hour must be >= 0")
		}
		if c.Browser.LoginTimeoutSecs <= 0 || c.Browser.SendTimeoutSecs <= 0 {
			add("browser timeouts must be > 0")
		}
		if c.Anthropic.Temperature < 0 || c.Anthropic.Temperature > 1 {
			add("anthropic.temperature must be between 0 and 1")
		}
		if mode == "serve" && c.Server.Port <= 0 {
			add("server.port must be > 0")
		}
		if mode == "ai" && c.Anthropic.Key == "" {
			add("anthropic.key is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}
