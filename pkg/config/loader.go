package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rhuss/cuckoo/pkg/debug"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, CUCKOO_CONFIG env, ./cuckoo.yaml, /etc/cuckoo/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
		debug.Log(debug.Config, "loaded config file", "path", filePath)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. CUCKOO_CONFIG environment variable
// 3. ./cuckoo.yaml in the current directory
// 4. /etc/cuckoo/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if envPath := os.Getenv("CUCKOO_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"cuckoo.yaml",
		"/etc/cuckoo/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps CUCKOO_* environment variables to config fields.
// Unparsable numbers and durations are reported instead of ignored.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("CUCKOO_SCHEME"); v != "" {
		cfg.Sandbox.Scheme = v
	}
	if v := os.Getenv("CUCKOO_HOST"); v != "" {
		cfg.Sandbox.Host = v
	}
	if v := os.Getenv("CUCKOO_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CUCKOO_PORT: %w", err)
		}
		cfg.Sandbox.Port = port
	}
	if v := os.Getenv("CUCKOO_TIMEOUT"); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("CUCKOO_TIMEOUT: %w", err)
		}
		cfg.Sandbox.Timeout = d
	}
	if v := os.Getenv("CUCKOO_USER_AGENT"); v != "" {
		cfg.Sandbox.UserAgent = v
	}

	if v := os.Getenv("CUCKOO_JOURNAL"); v != "" {
		cfg.Journal.Type = v
	}
	if v := os.Getenv("CUCKOO_JOURNAL_SIZE"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CUCKOO_JOURNAL_SIZE: %w", err)
		}
		cfg.Journal.MaxSize = size
	}
	if v := os.Getenv("CUCKOO_JOURNAL_DSN"); v != "" {
		cfg.Journal.Postgres.DSN = v
	}

	if v := os.Getenv("CUCKOO_MCP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CUCKOO_MCP_PORT: %w", err)
		}
		cfg.MCP.Port = port
	}
	if v := os.Getenv("CUCKOO_DOWNLOAD_DIR"); v != "" {
		cfg.MCP.DownloadDir = v
	}
	if v := os.Getenv("CUCKOO_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	return nil
}

// parseDuration accepts Go durations ("90s") and plain seconds ("90").
func parseDuration(s string) (time.Duration, error) {
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(s)
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// The file is only read when the value field is empty.
func resolveFileReferences(cfg *Config) error {
	// journal.postgres.dsn_file -> journal.postgres.dsn
	if cfg.Journal.Postgres.DSNFile != "" && cfg.Journal.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Journal.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("journal.postgres.dsn_file: %w", err)
		}
		cfg.Journal.Postgres.DSN = val
	}
	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
