package client

import (
	"net/http"
	"time"
)

// Config holds the connection parameters of a sandbox server.
type Config struct {
	// Scheme is "http" or "https". Defaults to "http".
	Scheme string `yaml:"scheme"`

	// Host is the server hostname or IP address. Defaults to "127.0.0.1".
	Host string `yaml:"host"`

	// Port is the API port. Defaults to 8000.
	Port int `yaml:"port"`

	// Timeout is passed through to the HTTP client. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the configuration of a local api.py server.
func DefaultConfig() Config {
	return Config{
		Scheme: "http",
		Host:   "127.0.0.1",
		Port:   8000,
	}
}

func (c *Config) defaults() {
	d := DefaultConfig()
	if c.Scheme == "" {
		c.Scheme = d.Scheme
	}
	if c.Host == "" {
		c.Host = d.Host
	}
	if c.Port == 0 {
		c.Port = d.Port
	}
}

// ProgressFunc is called after every chunk written by a download. total is
// the Content-Length announced by the server, or -1 when unknown.
type ProgressFunc func(endpoint string, written, total int64)

// Option customizes a SandboxClient.
type Option func(*SandboxClient)

// WithHTTPClient replaces the HTTP client. The Timeout from Config is not
// applied to a caller supplied client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *SandboxClient) {
		c.httpClient = hc
	}
}

// WithProgress registers a download progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(c *SandboxClient) {
		c.progress = fn
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *SandboxClient) {
		c.userAgent = ua
	}
}
