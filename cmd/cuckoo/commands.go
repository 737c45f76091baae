package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/rhuss/cuckoo/pkg/api"
	"github.com/rhuss/cuckoo/pkg/client"
)

type command struct {
	name    string
	usage   string
	help    string
	journal bool // needs the submission journal
	run     func(ctx context.Context, a *app, args []string) error
}

var commands []command

func init() {
	commands = []command{
		{name: "status", usage: "status", help: "show the sandbox status", run: runStatus},
		{name: "machines", usage: "machines", help: "list analysis machines", run: runMachines},
		{name: "machine", usage: "machine NAME", help: "show an analysis machine", run: runMachine},
		{name: "tasks", usage: "tasks [--limit N] [--offset N]", help: "list tasks", run: runTasks},
		{name: "task", usage: "task ID", help: "show a task", run: runTask},
		{name: "report", usage: "report ID [--format F]", help: "show the report of a task", run: runReport},
		{name: "delete", usage: "delete ID", help: "delete a task", run: runDelete},
		{name: "screenshots", usage: "screenshots ID DEST [--index N]", help: "download screenshots to DEST.zip", run: runScreenshots},
		{name: "submit-file", usage: "submit-file PATH [--field k=v]...", help: "submit a file", journal: true, run: runSubmitFile},
		{name: "submit-url", usage: "submit-url URL [--field k=v]...", help: "submit a URL", journal: true, run: runSubmitURL},
		{name: "file", usage: "file HASH [--kind id|md5|sha256]", help: "show a sample", run: runFile},
		{name: "sample", usage: "sample HASH DEST", help: "download a sample", run: runSample},
		{name: "pcap", usage: "pcap ID DEST", help: "download the network capture of a task", run: runPcap},
		{name: "history", usage: "history [--limit N]", help: "list journaled submissions", journal: true, run: runHistory},
	}
}

func commandByName(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

// parseArgs parses command flags and checks the number of positional arguments.
func parseArgs(fs *pflag.FlagSet, args []string, positional ...string) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errUsage, fs.Name(), err)
	}
	if fs.NArg() != len(positional) {
		return nil, fmt.Errorf("%w: %s expects %d argument(s): %s",
			errUsage, fs.Name(), len(positional), strings.Join(positional, " "))
	}
	return fs.Args(), nil
}

func newFlagSet(name string) *pflag.FlagSet {
	return pflag.NewFlagSet(name, pflag.ContinueOnError)
}

func parseTaskID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: task id %q is not a number", errUsage, s)
	}
	return id, nil
}

// parseFields turns repeated k=v flags into form fields. Values may contain
// '=' and ','.
func parseFields(kvs []string) (map[string]string, error) {
	if len(kvs) == 0 {
		return nil, nil
	}
	fields := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: field %q is not of the form key=value", errUsage, kv)
		}
		fields[k] = v
	}
	return fields, nil
}

func runStatus(ctx context.Context, a *app, args []string) error {
	if _, err := parseArgs(newFlagSet("status"), args); err != nil {
		return err
	}
	return a.printResult(a.client.Status(ctx))
}

func runMachines(ctx context.Context, a *app, args []string) error {
	if _, err := parseArgs(newFlagSet("machines"), args); err != nil {
		return err
	}
	return a.printResult(a.client.ListMachines(ctx))
}

func runMachine(ctx context.Context, a *app, args []string) error {
	pos, err := parseArgs(newFlagSet("machine"), args, "NAME")
	if err != nil {
		return err
	}
	return a.printResult(a.client.ViewMachine(ctx, pos[0]))
}

func runTasks(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("tasks")
	var opts client.TaskListOptions
	fs.IntVar(&opts.Limit, "limit", 0, "maximum number of tasks, 0 for all")
	fs.IntVar(&opts.Offset, "offset", 0, "tasks to skip, requires --limit")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	return a.printResult(a.client.ListTasks(ctx, opts))
}

func runTask(ctx context.Context, a *app, args []string) error {
	pos, err := parseArgs(newFlagSet("task"), args, "ID")
	if err != nil {
		return err
	}
	id, err := parseTaskID(pos[0])
	if err != nil {
		return err
	}
	return a.printResult(a.client.ViewTask(ctx, id))
}

func runReport(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("report")
	format := fs.String("format", string(api.ReportFormatJSON), "report format")
	pos, err := parseArgs(fs, args, "ID")
	if err != nil {
		return err
	}
	id, err := parseTaskID(pos[0])
	if err != nil {
		return err
	}
	return a.printResult(a.client.TaskReport(ctx, id, api.ReportFormat(*format)))
}

func runDelete(ctx context.Context, a *app, args []string) error {
	pos, err := parseArgs(newFlagSet("delete"), args, "ID")
	if err != nil {
		return err
	}
	id, err := parseTaskID(pos[0])
	if err != nil {
		return err
	}
	return a.printResult(a.client.DeleteTask(ctx, id))
}

func runScreenshots(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("screenshots")
	index := fs.Int("index", -1, "download a single screenshot")
	pos, err := parseArgs(fs, args, "ID", "DEST")
	if err != nil {
		return err
	}
	id, err := parseTaskID(pos[0])
	if err != nil {
		return err
	}

	var n int64
	if fs.Changed("index") {
		n, err = a.client.DownloadScreenshot(ctx, id, *index, pos[1])
	} else {
		n, err = a.client.DownloadScreenshots(ctx, id, pos[1])
	}
	return a.printDownload(pos[1]+".zip", n, err)
}

func runSubmitFile(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("submit-file")
	kvs := fs.StringArray("field", nil, "extra form field key=value (repeatable)")
	pos, err := parseArgs(fs, args, "PATH")
	if err != nil {
		return err
	}
	fields, err := parseFields(*kvs)
	if err != nil {
		return err
	}
	return a.printResult(a.recorder.SubmitFile(ctx, pos[0], fields))
}

func runSubmitURL(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("submit-url")
	kvs := fs.StringArray("field", nil, "extra form field key=value (repeatable)")
	pos, err := parseArgs(fs, args, "URL")
	if err != nil {
		return err
	}
	fields, err := parseFields(*kvs)
	if err != nil {
		return err
	}
	return a.printResult(a.recorder.SubmitURL(ctx, pos[0], fields))
}

func runFile(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("file")
	kind := fs.String("kind", string(api.HashKindSHA256), "hash kind: id, md5 or sha256")
	pos, err := parseArgs(fs, args, "HASH")
	if err != nil {
		return err
	}
	return a.printResult(a.client.ViewFile(ctx, api.HashRef{Value: pos[0], Kind: api.HashKind(*kind)}))
}

func runSample(ctx context.Context, a *app, args []string) error {
	pos, err := parseArgs(newFlagSet("sample"), args, "HASH", "DEST")
	if err != nil {
		return err
	}
	n, err := a.client.DownloadSample(ctx, pos[0], pos[1])
	return a.printDownload(pos[1], n, err)
}

func runPcap(ctx context.Context, a *app, args []string) error {
	pos, err := parseArgs(newFlagSet("pcap"), args, "ID", "DEST")
	if err != nil {
		return err
	}
	id, err := parseTaskID(pos[0])
	if err != nil {
		return err
	}
	n, err := a.client.DownloadPcap(ctx, id, pos[1])
	return a.printDownload(pos[1], n, err)
}

func runHistory(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("history")
	limit := fs.Int("limit", 20, "maximum number of submissions, 0 for all")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	if a.journal == nil {
		return fmt.Errorf("submission journal is disabled")
	}
	if a.cfg.Journal.Type == "memory" {
		fmt.Fprintln(a.stderr, "note: the memory journal does not persist between invocations")
	}
	subs, err := a.journal.List(ctx, *limit)
	if err != nil {
		return err
	}
	return a.printJSON(subs)
}

func (a *app) printResult(v any, err error) error {
	if err != nil {
		return err
	}
	return a.printJSON(v)
}

func (a *app) printDownload(path string, n int64, err error) error {
	a.progress.finish()
	if err != nil {
		return err
	}
	return a.printJSON(map[string]any{"path": path, "bytes": n})
}
