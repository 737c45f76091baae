// Package mcpserver exposes the sandbox client as Model Context Protocol
// tools, so agents can query the sandbox, submit samples and fetch results.
//
// Every tool answers with the indented JSON of the client result. Client
// failures are reported as tool errors carrying the error text. Files are
// only read from and written to a single configured directory.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rhuss/cuckoo/pkg/api"
	"github.com/rhuss/cuckoo/pkg/client"
	"github.com/rhuss/cuckoo/pkg/debug"
	"github.com/rhuss/cuckoo/pkg/journal"
	"github.com/rhuss/cuckoo/pkg/observability"
)

// Sandbox is the client surface used by the tools. *client.SandboxClient
// implements it.
type Sandbox interface {
	journal.Submitter

	Status(ctx context.Context) (any, error)
	ListMachines(ctx context.Context) (any, error)
	ViewMachine(ctx context.Context, name string) (any, error)
	ListTasks(ctx context.Context, opts client.TaskListOptions) (any, error)
	ViewTask(ctx context.Context, id int) (any, error)
	TaskReport(ctx context.Context, id int, format api.ReportFormat) (any, error)
	DeleteTask(ctx context.Context, id int) (any, error)
	DownloadScreenshots(ctx context.Context, id int, dst string) (int64, error)
	DownloadScreenshot(ctx context.Context, id, index int, dst string) (int64, error)
	ViewFile(ctx context.Context, ref api.HashRef) (any, error)
	DownloadSample(ctx context.Context, hash, dst string) (int64, error)
	DownloadPcap(ctx context.Context, id int, dst string) (int64, error)
}

var _ Sandbox = (*client.SandboxClient)(nil)

// Options configures the MCP server.
type Options struct {
	// DownloadDir holds downloaded artifacts and the files that may be
	// submitted. Tools accept plain file names inside it.
	DownloadDir string

	// JournalBackend labels journal metrics, e.g. "memory" or "postgres".
	JournalBackend string

	// Version is reported in the MCP implementation info.
	Version string
}

type handler struct {
	sandbox   Sandbox
	submitter journal.Submitter
	journal   journal.Journal
	files     fileArea
}

// New creates an MCP server with one tool per sandbox operation. j may be
// nil, in which case submissions are not journaled and list_submissions
// reports an error.
func New(sandbox Sandbox, j journal.Journal, opts Options) *mcp.Server {
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}

	h := &handler{
		sandbox:   sandbox,
		submitter: sandbox,
		journal:   j,
		files:     fileArea{dir: opts.DownloadDir},
	}
	if j != nil {
		h.submitter = journal.NewRecorder(sandbox, j, opts.JournalBackend)
	}

	server := mcp.NewServer(
		&mcp.Implementation{Name: "cuckoo", Version: opts.Version},
		nil,
	)
	h.register(server)
	return server
}

// addTool registers a tool whose result is rendered as indented JSON.
func addTool[In any](s *mcp.Server, name, description string, fn func(context.Context, In) (any, error)) {
	mcp.AddTool(s, &mcp.Tool{
		Name:        name,
		Description: description,
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in In) (*mcp.CallToolResult, any, error) {
		start := time.Now()
		result, err := fn(ctx, in)
		observability.ToolCallsTotal.WithLabelValues(name, observability.Outcome(err)).Inc()

		if err != nil {
			debug.Log(debug.MCP, "tool failed", "tool", name, "error", err, "elapsed", time.Since(start))
			return errorResult(err), nil, nil
		}
		debug.Log(debug.MCP, "tool completed", "tool", name, "elapsed", time.Since(start))

		text, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return errorResult(fmt.Errorf("encoding result: %w", err)), nil, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(text)}},
		}, nil, nil
	})
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
		IsError: true,
	}
}
