// Command mock-cuckoo runs a deterministic, in-memory Cuckoo api.py server
// for local development and demos. Submitted tasks are reported at once.
//
// Configuration:
//
//	MOCK_PORT - Listen port (default: 8090)
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rhuss/cuckoo/pkg/mockcuckoo"
)

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "8090"
	}

	srv := &http.Server{Addr: ":" + port, Handler: mockcuckoo.New().Handler()}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock cuckoo starting", "port", port, "version", mockcuckoo.Version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock cuckoo failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock cuckoo shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}
