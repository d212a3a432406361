package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"flowmetric/internal/analytics"
)

const FileName = "flowmetric.yml"

// Config models flowmetric.yml.
type Config struct {
	Server struct {
		Addr                 string `yaml:"addr"`
		BasePath             string `yaml:"base_path"`
		PublicBaseURL        string `yaml:"public_base_url"`
		JWTSecret            string `yaml:"jwt_secret"`
		AllowFarcasterHeader bool   `yaml:"allow_farcaster_header"`
	} `yaml:"server"`
	Analytics struct {
		Thresholds          analytics.Thresholds `yaml:",inline"`
		RecentActivityLimit int                  `yaml:"recent_activity_limit"`
	} `yaml:"analytics"`
	Frames struct {
		ActionsPerMinute float64 `yaml:"actions_per_minute"`
		Burst            int     `yaml:"burst"`
	} `yaml:"frames"`
	Metrics struct {
		Refresh string `yaml:"refresh"`
	} `yaml:"metrics"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Types          []string `yaml:"types"`
	Secret         string   `yaml:"secret"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	Enabled        *bool    `yaml:"enabled"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with fm config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	if c.Server.PublicBaseURL != "" {
		u, err := url.Parse(c.Server.PublicBaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config.server.public_base_url must be an absolute url")
		}
	}
	th := c.Analytics.Thresholds
	if th.LowUtilization < 0 || th.HighUtilization > 100 {
		return fmt.Errorf("config.analytics utilization thresholds must be within 0..100")
	}
	if th.LowUtilization != 0 && th.HighUtilization != 0 && th.LowUtilization >= th.HighUtilization {
		return fmt.Errorf("config.analytics.low_utilization must be below high_utilization")
	}
	if th.OverrunTolerance < 0 {
		return fmt.Errorf("config.analytics.overrun_tolerance must not be negative")
	}
	if c.Analytics.RecentActivityLimit < 0 {
		return fmt.Errorf("config.analytics.recent_activity_limit must not be negative")
	}
	if c.Frames.ActionsPerMinute < 0 || c.Frames.Burst < 0 {
		return fmt.Errorf("config.frames limits must not be negative")
	}
	if c.Metrics.Refresh != "" {
		if _, err := cron.ParseStandard(c.Metrics.Refresh); err != nil {
			return fmt.Errorf("config.metrics.refresh: %w", err)
		}
	}
	for i, hook := range c.Webhooks {
		if strings.TrimSpace(hook.URL) == "" {
			return fmt.Errorf("config.webhooks[%d].url is required", i)
		}
		if hook.TimeoutSeconds < 0 {
			return fmt.Errorf("config.webhooks[%d].timeout_seconds must not be negative", i)
		}
	}
	return nil
}

// Thresholds returns the alert thresholds with defaults filled in.
func (c *Config) Thresholds() analytics.Thresholds {
	th := c.Analytics.Thresholds
	def := analytics.DefaultThresholds()
	if th.LowUtilization == 0 {
		th.LowUtilization = def.LowUtilization
	}
	if th.HighUtilization == 0 {
		th.HighUtilization = def.HighUtilization
	}
	if th.OverrunTolerance == 0 {
		th.OverrunTolerance = def.OverrunTolerance
	}
	return th
}

// RecentActivityLimit returns the dashboard activity count, 10 when unset.
func (c *Config) RecentActivityLimit() int {
	if c.Analytics.RecentActivityLimit > 0 {
		return c.Analytics.RecentActivityLimit
	}
	return analytics.DefaultRecentActivity
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// LoadOptional returns the default config if the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Sections missing
// from data keep their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `server:
  addr: 127.0.0.1:8080
  base_path: /api
  # Absolute URL used in frame image and button targets. Derived from the
  # request host when empty.
  public_base_url: ""
  jwt_secret: ""
  allow_farcaster_header: true

analytics:
  low_utilization: 30
  high_utilization: 90
  overrun_tolerance: 1.2
  recent_activity_limit: 10

frames:
  actions_per_minute: 30
  burst: 5

metrics:
  refresh: "@every 1m"

webhooks: []
`
