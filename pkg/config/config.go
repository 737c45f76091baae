// Package config provides unified configuration for the cuckoo commands.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (CUCKOO_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import (
	"time"

	"github.com/rhuss/cuckoo/pkg/client"
)

// Config holds all configuration for the cuckoo CLI and MCP server.
type Config struct {
	Sandbox       SandboxConfig       `yaml:"sandbox"`
	Journal       JournalConfig       `yaml:"journal"`
	MCP           MCPConfig           `yaml:"mcp"`
	Log           LogConfig           `yaml:"log"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// SandboxConfig describes the Cuckoo REST API to talk to.
type SandboxConfig struct {
	Scheme    string        `yaml:"scheme"`     // "http" or "https", default: "http"
	Host      string        `yaml:"host"`       // default: "127.0.0.1"
	Port      int           `yaml:"port"`       // default: 8000
	Timeout   time.Duration `yaml:"timeout"`    // default: 0 (none)
	UserAgent string        `yaml:"user_agent"` // optional
}

// ClientConfig converts the sandbox section into a client configuration.
func (s SandboxConfig) ClientConfig() client.Config {
	return client.Config{
		Scheme:  s.Scheme,
		Host:    s.Host,
		Port:    s.Port,
		Timeout: s.Timeout,
	}
}

// JournalConfig holds the submission journal settings.
type JournalConfig struct {
	Type     string         `yaml:"type"`     // "memory", "postgres" or "none", default: "memory"
	MaxSize  int            `yaml:"max_size"` // for the memory journal, default: 1000
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 10
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
}

// MCPConfig holds the settings of the cuckoo-mcp server.
type MCPConfig struct {
	Port         int           `yaml:"port"`          // default: 8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 300s
	DownloadDir  string        `yaml:"download_dir"`  // default: "downloads"
}

// LogConfig holds logging settings. CUCKOO_DEBUG and CUCKOO_LOG_LEVEL
// take precedence over these values.
type LogConfig struct {
	Debug  string `yaml:"debug"`  // comma-separated debug categories
	Level  string `yaml:"level"`  // default: "INFO"
	Format string `yaml:"format"` // "text" or "json", default: "text"
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	cc := client.DefaultConfig()
	return Config{
		Sandbox: SandboxConfig{
			Scheme: cc.Scheme,
			Host:   cc.Host,
			Port:   cc.Port,
		},
		Journal: JournalConfig{
			Type:    "memory",
			MaxSize: 1000,
			Postgres: PostgresConfig{
				MaxConns: 10,
			},
		},
		MCP: MCPConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 300 * time.Second,
			DownloadDir:  "downloads",
		},
		Log: LogConfig{
			Level:  "INFO",
			Format: "text",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
