package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/quotawatch/quotawatch/pkg/catalogue"
	"github.com/quotawatch/quotawatch/pkg/monitor"
)

// Config holds all Quota Watch configuration.
type Config struct {
	Storage    StorageConfig        `mapstructure:"storage"`
	Thresholds ThresholdsConfig     `mapstructure:"thresholds"`
	Monitor    MonitorConfig        `mapstructure:"monitor"`
	AWS        AWSConfig            `mapstructure:"aws"`
	Sampler    SamplerConfig        `mapstructure:"sampler"`
	Alerts     AlertsConfig         `mapstructure:"alerts"`
	Server     ServerConfig         `mapstructure:"server"`
	Logging    LoggingConfig        `mapstructure:"logging"`
	Quotas     []catalogue.Override `mapstructure:"quotas" validate:"dive"`
}

// StorageConfig defines database settings.
type StorageConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// ThresholdsConfig defines the risk band boundaries in percent of quota.
type ThresholdsConfig struct {
	Warning  float64 `mapstructure:"warning"`
	Critical float64 `mapstructure:"critical"`
}

// MonitorConfig defines evaluation pass settings.
type MonitorConfig struct {
	CheckInterval     string  `mapstructure:"check_interval"`
	RenotifyInterval  string  `mapstructure:"renotify_interval"`
	SampleTimeout     string  `mapstructure:"sample_timeout"`
	MaxMonthlyCostUSD float64 `mapstructure:"max_monthly_cost_usd" validate:"gte=0"`
	NotifyOnClose     bool    `mapstructure:"notify_on_close"`
	HistoryLimit      int     `mapstructure:"history_limit" validate:"gt=0"`
	CatalogueFile     string  `mapstructure:"catalogue_file"`
}

// AWSConfig defines AWS Cost Explorer access settings.
type AWSConfig struct {
	Region  string `mapstructure:"region"`
	Profile string `mapstructure:"profile"`
}

// SamplerConfig selects the usage sample source.
type SamplerConfig struct {
	Source string `mapstructure:"source" validate:"oneof=aws file"`
	Path   string `mapstructure:"path"`
}

// AlertsConfig defines alerting integrations.
type AlertsConfig struct {
	Slack   SlackConfig   `mapstructure:"slack"`
	Webhook WebhookConfig `mapstructure:"webhook"`
	Log     LogConfig     `mapstructure:"log"`
}

// SlackConfig defines Slack webhook settings.
type SlackConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
}

// WebhookConfig defines generic webhook settings.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Secret  string `mapstructure:"secret"`
}

// LogConfig defines the log-based notifier.
type LogConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// ServerConfig defines the HTTP API settings.
type ServerConfig struct {
	Listen       string `mapstructure:"listen" validate:"required"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var validate = validator.New()

// Load reads configuration from file and environment variables and validates
// it. An invalid threshold ordering is fatal: the process must not run with
// misordered bands.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".quotawatch"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Defaults
	home, _ := os.UserHomeDir()
	v.SetDefault("storage.path", filepath.Join(home, ".quotawatch", "quotawatch.db"))
	v.SetDefault("thresholds.warning", 75.0)
	v.SetDefault("thresholds.critical", 90.0)
	v.SetDefault("monitor.check_interval", "6h")
	v.SetDefault("monitor.renotify_interval", "")
	v.SetDefault("monitor.sample_timeout", "60s")
	v.SetDefault("monitor.max_monthly_cost_usd", 1.0)
	v.SetDefault("monitor.notify_on_close", false)
	v.SetDefault("monitor.history_limit", 30)
	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("sampler.source", "aws")
	v.SetDefault("alerts.log.enabled", true)
	v.SetDefault("alerts.slack.channel", "#cloud-costs")
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Environment variables
	v.SetEnvPrefix("QW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration. Threshold ordering is checked first so
// that the dedicated sentinel error surfaces for band misconfiguration.
func (c *Config) Validate() error {
	if err := c.MonitorThresholds().Validate(); err != nil {
		return err
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Sampler.Source == "file" && c.Sampler.Path == "" {
		return fmt.Errorf("invalid configuration: sampler.path is required when sampler.source is file")
	}
	durations := []struct {
		key   string
		value string
	}{
		{"monitor.check_interval", c.Monitor.CheckInterval},
		{"monitor.renotify_interval", c.Monitor.RenotifyInterval},
		{"monitor.sample_timeout", c.Monitor.SampleTimeout},
		{"server.read_timeout", c.Server.ReadTimeout},
		{"server.write_timeout", c.Server.WriteTimeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("invalid configuration: %s: %w", d.key, err)
		}
	}
	return nil
}

// MonitorThresholds returns the configured risk thresholds.
func (c *Config) MonitorThresholds() monitor.Thresholds {
	return monitor.Thresholds{Warning: c.Thresholds.Warning, Critical: c.Thresholds.Critical}
}

// CheckInterval returns the parsed evaluation interval.
func (c *Config) CheckInterval() time.Duration {
	return parseDuration(c.Monitor.CheckInterval, 6*time.Hour)
}

// RenotifyInterval returns the parsed renotification interval; zero means
// renotification is disabled.
func (c *Config) RenotifyInterval() time.Duration {
	return parseDuration(c.Monitor.RenotifyInterval, 0)
}

// SampleTimeout returns the parsed retrieval timeout.
func (c *Config) SampleTimeout() time.Duration {
	return parseDuration(c.Monitor.SampleTimeout, time.Minute)
}

// parseDuration assumes the string was already checked by Validate; an empty
// string selects the fallback default.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
