// Command cuckoo-mcp serves the Cuckoo sandbox API as Model Context Protocol
// tools over streamable HTTP.
//
// Configuration is read from the file given with --config, $CUCKOO_CONFIG,
// ./cuckoo.yaml or /etc/cuckoo/config.yaml, then overridden by environment
// variables:
//
//	CUCKOO_HOST          - Sandbox API host (default: 127.0.0.1)
//	CUCKOO_PORT          - Sandbox API port (default: 8000)
//	CUCKOO_MCP_PORT      - Listen port (default: 8080)
//	CUCKOO_DOWNLOAD_DIR  - Directory for downloads and submittable files
//	CUCKOO_JOURNAL       - Journal type: "memory", "postgres" or "none"
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/pflag"

	"github.com/rhuss/cuckoo/pkg/client"
	"github.com/rhuss/cuckoo/pkg/config"
	"github.com/rhuss/cuckoo/pkg/debug"
	"github.com/rhuss/cuckoo/pkg/journal"
	"github.com/rhuss/cuckoo/pkg/journal/backends"
	"github.com/rhuss/cuckoo/pkg/mcpserver"
	"github.com/rhuss/cuckoo/pkg/observability"
)

var version = "dev"

func main() {
	configPath := pflag.StringP("config", "c", "", "path to config file")
	pflag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	debug.Init(cfg.Log.Debug, cfg.Log.Level, cfg.Log.Format)

	sandbox, err := client.New(cfg.Sandbox.ClientConfig(), client.WithUserAgent(userAgent(cfg)))
	if err != nil {
		return fmt.Errorf("creating sandbox client: %w", err)
	}

	// Graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	j, err := backends.Open(ctx, cfg.Journal)
	if err != nil {
		return err
	}
	if j != nil {
		defer j.Close()
		slog.Info("journal enabled", "type", cfg.Journal.Type)
	} else {
		slog.Info("journal disabled")
	}

	server := mcpserver.New(sandbox, j, mcpserver.Options{
		DownloadDir:    cfg.MCP.DownloadDir,
		JournalBackend: cfg.Journal.Type,
		Version:        version,
	})

	mux := newMux(server, j, cfg.Observability.Metrics)

	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.MCP.Port),
		Handler:      mux,
		ReadTimeout:  cfg.MCP.ReadTimeout,
		WriteTimeout: cfg.MCP.WriteTimeout,
	}

	// Start server in background.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting",
			"port", cfg.MCP.Port,
			"sandbox_host", cfg.Sandbox.Host,
			"sandbox_port", cfg.Sandbox.Port,
			"download_dir", cfg.MCP.DownloadDir,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or error.
	select {
	case <-ctx.Done():
		slog.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func userAgent(cfg *config.Config) string {
	if cfg.Sandbox.UserAgent != "" {
		return cfg.Sandbox.UserAgent
	}
	return "cuckoo-mcp/" + version
}

// newMux routes MCP, metrics and health requests. j may be nil.
func newMux(server *mcp.Server, j journal.Journal, metrics config.MetricsConfig) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil))
	if metrics.Enabled {
		mux.Handle("GET "+metrics.Path, observability.Handler())
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if hc, ok := j.(journal.HealthChecker); ok {
			if err := hc.HealthCheck(r.Context()); err != nil {
				slog.Warn("health check failed", "error", err)
				http.Error(w, "journal unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	return mux
}
