package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rhuss/cuckoo/pkg/api"
	"github.com/rhuss/cuckoo/pkg/client"
)

type noInput struct{}

type machineInput struct {
	Name string `json:"name" jsonschema:"name of the analysis machine"`
}

type listTasksInput struct {
	Limit  int `json:"limit,omitempty" jsonschema:"maximum number of tasks, 0 lists all"`
	Offset int `json:"offset,omitempty" jsonschema:"number of tasks to skip, only used with limit"`
}

type taskInput struct {
	TaskID int `json:"task_id" jsonschema:"task identifier, starting at 1"`
}

type reportInput struct {
	TaskID int    `json:"task_id" jsonschema:"task identifier, starting at 1"`
	Format string `json:"format,omitempty" jsonschema:"report format, only json is supported"`
}

type submitURLInput struct {
	URL    string            `json:"url" jsonschema:"URL to analyze"`
	Fields map[string]string `json:"fields,omitempty" jsonschema:"extra task options such as package, timeout, priority or machine"`
}

type submitFileInput struct {
	Filename string            `json:"filename" jsonschema:"name of a file inside the download directory"`
	Fields   map[string]string `json:"fields,omitempty" jsonschema:"extra task options such as package, timeout, priority or machine"`
}

type viewFileInput struct {
	Hash string `json:"hash" jsonschema:"sample hash or numeric id"`
	Kind string `json:"kind,omitempty" jsonschema:"hash kind: id, md5 or sha256 (default sha256)"`
}

type sampleInput struct {
	Hash     string `json:"hash" jsonschema:"SHA256 hash of the sample"`
	Filename string `json:"filename" jsonschema:"file name to create inside the download directory"`
}

type pcapInput struct {
	TaskID   int    `json:"task_id" jsonschema:"task identifier, starting at 1"`
	Filename string `json:"filename" jsonschema:"file name to create inside the download directory"`
}

type screenshotsInput struct {
	TaskID   int    `json:"task_id" jsonschema:"task identifier, starting at 1"`
	Filename string `json:"filename" jsonschema:"file name inside the download directory, .zip is appended"`
	Index    *int   `json:"index,omitempty" jsonschema:"single screenshot to fetch, all when omitted"`
}

type submissionsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of submissions, newest first"`
}

func (h *handler) register(s *mcp.Server) {
	addTool(s, "cuckoo_status", "Returns the status of the Cuckoo sandbox", h.status)
	addTool(s, "list_machines", "Lists the analysis machines", h.listMachines)
	addTool(s, "view_machine", "Returns the details of an analysis machine", h.viewMachine)
	addTool(s, "list_tasks", "Lists analysis tasks", h.listTasks)
	addTool(s, "view_task", "Returns the details of a task", h.viewTask)
	addTool(s, "task_report", "Returns the JSON report of a task", h.taskReport)
	addTool(s, "delete_task", "Deletes a task and its results", h.deleteTask)
	addTool(s, "submit_url", "Submits a URL for analysis", h.submitURL)
	addTool(s, "submit_file", "Submits a file from the download directory for analysis", h.submitFile)
	addTool(s, "view_file", "Returns the details of a sample", h.viewFile)
	addTool(s, "download_sample", "Downloads a sample into the download directory", h.downloadSample)
	addTool(s, "download_pcap", "Downloads the network capture of a task", h.downloadPcap)
	addTool(s, "download_screenshots", "Downloads the screenshots of a task as a zip archive", h.downloadScreenshots)
	addTool(s, "list_submissions", "Lists journaled submissions and their task ids", h.listSubmissions)
}

func (h *handler) status(ctx context.Context, _ noInput) (any, error) {
	return h.sandbox.Status(ctx)
}

func (h *handler) listMachines(ctx context.Context, _ noInput) (any, error) {
	return h.sandbox.ListMachines(ctx)
}

func (h *handler) viewMachine(ctx context.Context, in machineInput) (any, error) {
	return h.sandbox.ViewMachine(ctx, in.Name)
}

func (h *handler) listTasks(ctx context.Context, in listTasksInput) (any, error) {
	return h.sandbox.ListTasks(ctx, client.TaskListOptions{Limit: in.Limit, Offset: in.Offset})
}

func (h *handler) viewTask(ctx context.Context, in taskInput) (any, error) {
	return h.sandbox.ViewTask(ctx, in.TaskID)
}

func (h *handler) taskReport(ctx context.Context, in reportInput) (any, error) {
	return h.sandbox.TaskReport(ctx, in.TaskID, api.ReportFormat(in.Format))
}

func (h *handler) deleteTask(ctx context.Context, in taskInput) (any, error) {
	return h.sandbox.DeleteTask(ctx, in.TaskID)
}

func (h *handler) submitURL(ctx context.Context, in submitURLInput) (any, error) {
	if in.URL == "" {
		return nil, api.NewInvalidArgumentError("url", "url is required")
	}
	return h.submitter.SubmitURL(ctx, in.URL, in.Fields)
}

func (h *handler) submitFile(ctx context.Context, in submitFileInput) (any, error) {
	path, err := h.files.path(in.Filename)
	if err != nil {
		return nil, err
	}
	return h.submitter.SubmitFile(ctx, path, in.Fields)
}

func (h *handler) viewFile(ctx context.Context, in viewFileInput) (any, error) {
	kind := api.HashKind(in.Kind)
	if kind == "" {
		kind = api.HashKindSHA256
	}
	return h.sandbox.ViewFile(ctx, api.HashRef{Value: in.Hash, Kind: kind})
}

func (h *handler) downloadSample(ctx context.Context, in sampleInput) (any, error) {
	dst, err := h.files.destination(in.Filename)
	if err != nil {
		return nil, err
	}
	n, err := h.sandbox.DownloadSample(ctx, in.Hash, dst)
	if err != nil {
		return nil, err
	}
	return download{Path: dst, Bytes: n}, nil
}

func (h *handler) downloadPcap(ctx context.Context, in pcapInput) (any, error) {
	dst, err := h.files.destination(in.Filename)
	if err != nil {
		return nil, err
	}
	n, err := h.sandbox.DownloadPcap(ctx, in.TaskID, dst)
	if err != nil {
		return nil, err
	}
	return download{Path: dst, Bytes: n}, nil
}

func (h *handler) downloadScreenshots(ctx context.Context, in screenshotsInput) (any, error) {
	dst, err := h.files.destination(in.Filename)
	if err != nil {
		return nil, err
	}

	var n int64
	if in.Index != nil {
		n, err = h.sandbox.DownloadScreenshot(ctx, in.TaskID, *in.Index, dst)
	} else {
		n, err = h.sandbox.DownloadScreenshots(ctx, in.TaskID, dst)
	}
	if err != nil {
		return nil, err
	}
	return download{Path: dst + ".zip", Bytes: n}, nil
}

func (h *handler) listSubmissions(ctx context.Context, in submissionsInput) (any, error) {
	if h.journal == nil {
		return nil, fmt.Errorf("submission journal is disabled")
	}
	return h.journal.List(ctx, in.Limit)
}
