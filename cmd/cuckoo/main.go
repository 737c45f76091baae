// Command cuckoo is a command line client for the Cuckoo sandbox REST API.
//
// Usage:
//
//	cuckoo [global flags] <command> [flags] [args]
//
// Results are printed as indented JSON on stdout. Downloads show a progress
// bar on stderr. Connection settings come from the config file, CUCKOO_*
// environment variables and the global flags, in increasing precedence.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/rhuss/cuckoo/pkg/client"
	"github.com/rhuss/cuckoo/pkg/config"
	"github.com/rhuss/cuckoo/pkg/debug"
	"github.com/rhuss/cuckoo/pkg/journal"
	"github.com/rhuss/cuckoo/pkg/journal/backends"
)

var version = "dev"

// errUsage marks command line mistakes; main exits with status 2 for them.
var errUsage = errors.New("usage error")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// globalFlags override the loaded configuration when set.
type globalFlags struct {
	configPath string
	scheme     string
	host       string
	port       int
	timeout    time.Duration
	userAgent  string
	journal    string
	noProgress bool
}

// app carries what the commands need.
type app struct {
	cfg      *config.Config
	client   *client.SandboxClient
	journal  journal.Journal
	recorder *journal.Recorder
	progress *progressBar
	stdout   io.Writer
	stderr   io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var gf globalFlags
	fs := pflag.NewFlagSet("cuckoo", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SetInterspersed(false)
	fs.StringVarP(&gf.configPath, "config", "c", "", "config file (default: $CUCKOO_CONFIG, ./cuckoo.yaml, /etc/cuckoo/config.yaml)")
	fs.StringVar(&gf.scheme, "scheme", "", "API scheme, http or https")
	fs.StringVar(&gf.host, "host", "", "API host")
	fs.IntVar(&gf.port, "port", 0, "API port")
	fs.DurationVar(&gf.timeout, "timeout", 0, "request timeout, 0 for none")
	fs.StringVar(&gf.userAgent, "user-agent", "", "User-Agent header")
	fs.StringVar(&gf.journal, "journal", "", "submission journal: memory, postgres or none")
	fs.BoolVar(&gf.noProgress, "no-progress", false, "hide download progress bars")
	fs.Usage = func() { printUsage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() == 0 {
		printUsage(stderr, fs)
		return fmt.Errorf("%w: no command given", errUsage)
	}

	name := fs.Arg(0)
	if name == "version" {
		fmt.Fprintln(stdout, version)
		return nil
	}
	cmd, ok := commandByName(name)
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}

	cfg, err := config.Load(gf.configPath)
	if err != nil {
		return err
	}
	applyFlags(fs, &gf, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	debug.Init(cfg.Log.Debug, cfg.Log.Level, cfg.Log.Format)

	a := &app{cfg: cfg, stdout: stdout, stderr: stderr}

	opts := []client.Option{client.WithUserAgent("cuckoo-cli/" + version)}
	if cfg.Sandbox.UserAgent != "" {
		opts = append(opts, client.WithUserAgent(cfg.Sandbox.UserAgent))
	}
	if !gf.noProgress {
		a.progress = newProgressBar(stderr)
		opts = append(opts, client.WithProgress(a.progress.update))
	}
	a.client, err = client.New(cfg.Sandbox.ClientConfig(), opts...)
	if err != nil {
		return err
	}

	if cmd.journal {
		a.journal, err = backends.Open(ctx, cfg.Journal)
		if err != nil {
			return err
		}
		if a.journal != nil {
			defer a.journal.Close()
		}
		a.recorder = journal.NewRecorder(a.client, a.journal, cfg.Journal.Type)
	}

	return cmd.run(ctx, a, fs.Args()[1:])
}

// applyFlags copies explicitly set global flags into cfg.
func applyFlags(fs *pflag.FlagSet, gf *globalFlags, cfg *config.Config) {
	if fs.Changed("scheme") {
		cfg.Sandbox.Scheme = gf.scheme
	}
	if fs.Changed("host") {
		cfg.Sandbox.Host = gf.host
	}
	if fs.Changed("port") {
		cfg.Sandbox.Port = gf.port
	}
	if fs.Changed("timeout") {
		cfg.Sandbox.Timeout = gf.timeout
	}
	if fs.Changed("user-agent") {
		cfg.Sandbox.UserAgent = gf.userAgent
	}
	if fs.Changed("journal") {
		cfg.Journal.Type = gf.journal
	}
}

func printUsage(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintln(w, "Usage: cuckoo [global flags] <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-40s %s\n", c.usage, c.help)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global flags:")
	fs.PrintDefaults()
}

// printJSON writes v as indented JSON.
func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
