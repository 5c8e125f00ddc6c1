// Package config carries the gateway's runtime configuration. Precedence
// is flags > environment > config file > defaults; the core components read
// the merged result and never mutate it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the merged gateway configuration.
type Config struct {
	// URLs are the database connection URLs; the scheme selects the
	// backend (postgres://, mysql://, sqlite:).
	URLs []string `yaml:"urls"`

	// AllowWrite switches the safety engine to unrestricted mode.
	AllowWrite bool `yaml:"allow_write"`

	// RowLimit caps rows returned per query.
	RowLimit int `yaml:"row_limit"`

	// QueryTimeout bounds each execution, in time.ParseDuration form.
	QueryTimeout string `yaml:"query_timeout"`

	// LogLevel is a logrus level name.
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration: restricted mode, 100-row
// cap, 30-second query timeout.
func Default() *Config {
	return &Config{
		RowLimit:     100,
		QueryTimeout: "30s",
		LogLevel:     "info",
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return c, nil
}

// ApplyEnv overlays SQLGATE_* environment variables onto the config.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("SQLGATE_URLS"); v != "" {
		c.URLs = c.URLs[:0]
		for _, u := range strings.Split(v, ",") {
			if u = strings.TrimSpace(u); u != "" {
				c.URLs = append(c.URLs, u)
			}
		}
	}
	if v := os.Getenv("SQLGATE_ALLOW_WRITE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.AllowWrite = b
		}
	}
	if v := os.Getenv("SQLGATE_ROW_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RowLimit = n
		}
	}
	if v := os.Getenv("SQLGATE_QUERY_TIMEOUT"); v != "" {
		c.QueryTimeout = v
	}
	if v := os.Getenv("SQLGATE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Timeout parses the query timeout.
func (c *Config) Timeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.QueryTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid query_timeout %q: %w", c.QueryTimeout, err)
	}
	return d, nil
}

// Validate checks the merged configuration.
func (c *Config) Validate() error {
	if len(c.URLs) == 0 {
		return fmt.Errorf("no database URLs configured")
	}
	if c.RowLimit < 1 {
		return fmt.Errorf("row_limit must be at least 1, got %d", c.RowLimit)
	}
	d, err := c.Timeout()
	if err != nil {
		return err
	}
	if d <= 0 {
		return fmt.Errorf("query_timeout must be positive, got %s", d)
	}
	return nil
}
