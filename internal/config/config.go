package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration shape (YAML).
type Config struct {
	Elexon ElexonConfig `yaml:"elexon"`
	Report ReportConfig `yaml:"report"`
}

// ElexonConfig holds Elexon (BMRS Insights) API client settings.
type ElexonConfig struct {
	// APIKey is usually supplied via ELEXON_API_KEY rather than the file.
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`

	TimeoutSeconds int `yaml:"timeout_seconds"`
	MaxRetries     int `yaml:"max_retries"`
	RetryBackoffMS int `yaml:"retry_backoff_ms"`

	// MaxRequestsPerSecond is the client-side rate ceiling. The Insights API
	// allows 10 requests per rolling second.
	MaxRequestsPerSecond int `yaml:"max_requests_per_second"`
}

// ReportConfig holds report rendering settings.
type ReportConfig struct {
	Currency     string `yaml:"currency"`
	MaxRangeDays int    `yaml:"max_range_days"`
}

// Load reads the YAML file at path (if path is non-empty), applies
// environment overrides and defaults, and validates the result.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
	}
	c.applyEnv()
	c.setDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// applyEnv overlays environment variables onto the loaded config.
// Environment wins over the file so keys can rotate without editing YAML.
func (c *Config) applyEnv() {
	if v := os.Getenv("ELEXON_API_KEY"); v != "" {
		c.Elexon.APIKey = v
	}
	if v := os.Getenv("ELEXON_BASE_URL"); v != "" {
		c.Elexon.BaseURL = v
	}
}

func (c *Config) setDefaults() {
	if c.Elexon.BaseURL == "" {
		c.Elexon.BaseURL = "https://data.elexon.co.uk/bmrs/api/v1"
	}
	if c.Elexon.TimeoutSeconds == 0 {
		c.Elexon.TimeoutSeconds = 30
	}
	if c.Elexon.MaxRetries == 0 {
		c.Elexon.MaxRetries = 3
	}
	if c.Elexon.RetryBackoffMS == 0 {
		c.Elexon.RetryBackoffMS = 1000
	}
	if c.Elexon.MaxRequestsPerSecond == 0 {
		c.Elexon.MaxRequestsPerSecond = 10
	}
	if c.Report.Currency == "" {
		c.Report.Currency = "£"
	}
	if c.Report.MaxRangeDays == 0 {
		c.Report.MaxRangeDays = 31
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Elexon.TimeoutSeconds < 0 {
		return errors.New("elexon.timeout_seconds must not be negative")
	}
	if c.Elexon.MaxRetries < 0 {
		return errors.New("elexon.max_retries must not be negative")
	}
	if c.Elexon.MaxRequestsPerSecond < 1 {
		return fmt.Errorf("elexon.max_requests_per_second must be at least 1, got %d", c.Elexon.MaxRequestsPerSecond)
	}
	if c.Report.MaxRangeDays < 1 {
		return fmt.Errorf("report.max_range_days must be at least 1, got %d", c.Report.MaxRangeDays)
	}
	return nil
}

// Timeout returns the HTTP client timeout as a duration.
func (e ElexonConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// RetryBackoff returns the initial retry backoff as a duration.
func (e ElexonConfig) RetryBackoff() time.Duration {
	return time.Duration(e.RetryBackoffMS) * time.Millisecond
}
