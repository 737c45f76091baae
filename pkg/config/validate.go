package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for required fields and valid values.
// All problems are reported together, each with its field path.
func (c *Config) Validate() error {
	var errs []error

	switch c.Sandbox.Scheme {
	case "http", "https":
	default:
		errs = append(errs, fmt.Errorf("sandbox.scheme must be \"http\" or \"https\", got %q", c.Sandbox.Scheme))
	}
	if c.Sandbox.Host == "" {
		errs = append(errs, fmt.Errorf("sandbox.host is required"))
	}
	if c.Sandbox.Port < 1 || c.Sandbox.Port > 65535 {
		errs = append(errs, fmt.Errorf("sandbox.port must be between 1 and 65535, got %d", c.Sandbox.Port))
	}
	if c.Sandbox.Timeout < 0 {
		errs = append(errs, fmt.Errorf("sandbox.timeout must not be negative, got %v", c.Sandbox.Timeout))
	}

	switch c.Journal.Type {
	case "memory":
		if c.Journal.MaxSize < 0 {
			errs = append(errs, fmt.Errorf("journal.max_size must not be negative, got %d", c.Journal.MaxSize))
		}
	case "postgres":
		if c.Journal.Postgres.DSN == "" && c.Journal.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("journal.postgres.dsn or journal.postgres.dsn_file is required when journal.type is \"postgres\""))
		}
	case "none":
	default:
		errs = append(errs, fmt.Errorf("journal.type must be \"memory\", \"postgres\" or \"none\", got %q", c.Journal.Type))
	}

	if c.MCP.Port <= 0 {
		errs = append(errs, fmt.Errorf("mcp.port must be > 0, got %d", c.MCP.Port))
	}
	if c.MCP.DownloadDir == "" {
		errs = append(errs, fmt.Errorf("mcp.download_dir is required"))
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be \"text\" or \"json\", got %q", c.Log.Format))
	}

	if c.Observability.Metrics.Enabled && !strings.HasPrefix(c.Observability.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("observability.metrics.path must start with \"/\", got %q", c.Observability.Metrics.Path))
	}

	return errors.Join(errs...)
}
