// Package config provides YAML-based configuration loading for Loopboard.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Loopboard configuration, loaded from loopboard.yaml.
type Config struct {
	Owner     string          `yaml:"owner"`
	DB        DBConfig        `yaml:"db"`
	Scanner   ScannerConfig   `yaml:"scanner"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Notify    NotifyConfig    `yaml:"notify"`
	Agents    []AgentConfig   `yaml:"agents"`
}

// DBConfig holds connection settings for the MySQL server.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
}

// ScannerConfig controls the breach scanner cadence. Schedule, when set,
// is a 5-field cron expression and takes precedence over Interval.
type ScannerConfig struct {
	Interval string `yaml:"interval"`
	Schedule string `yaml:"schedule"`

	interval time.Duration
}

// IntervalDuration returns the parsed sweep interval.
func (s ScannerConfig) IntervalDuration() time.Duration {
	return s.interval
}

// DashboardConfig holds settings for the dashboard HTTP server.
type DashboardConfig struct {
	Port int `yaml:"port"`
}

// NotifyConfig holds chat platform credentials for alert notifications.
// Platforms without a token are simply not used.
type NotifyConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
}

// SlackConfig holds Slack notifier settings.
type SlackConfig struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}

// DiscordConfig holds Discord notifier settings.
type DiscordConfig struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}

// AgentConfig seeds one fleet member into the agent registry.
type AgentConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Role string `yaml:"role"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.DB.Host == "" {
		c.DB.Host = "127.0.0.1"
	}
	if c.DB.Port == 0 {
		c.DB.Port = 3306
	}
	if c.DB.Database == "" && c.Owner != "" {
		c.DB.Database = "loopboard_" + c.Owner
	}
	if c.Scanner.Interval == "" {
		c.Scanner.Interval = "60s"
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 8080
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Owner == "" {
		errs = append(errs, "owner is required")
	}
	d, err := time.ParseDuration(c.Scanner.Interval)
	if err != nil {
		errs = append(errs, fmt.Sprintf("scanner.interval %q is not a duration", c.Scanner.Interval))
	} else if d <= 0 {
		errs = append(errs, "scanner.interval must be positive")
	} else {
		c.Scanner.interval = d
	}
	for i, a := range c.Agents {
		if a.ID == "" {
			errs = append(errs, fmt.Sprintf("agents[%d].id is required", i))
		}
		if a.Name == "" {
			errs = append(errs, fmt.Sprintf("agents[%d].name is required", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
