package client

import (
	"context"
	"strconv"

	"github.com/rhuss/cuckoo/pkg/api"
)

// TaskListOptions limits a task listing. A zero Limit lists all tasks and
// Offset is only sent together with a Limit.
type TaskListOptions struct {
	Limit  int
	Offset int
}

// ListTasks lists the tasks known to the sandbox.
func (c *SandboxClient) ListTasks(ctx context.Context, opts TaskListOptions) (any, error) {
	if opts.Limit < 0 {
		return nil, api.NewInvalidArgumentError("limit", "limit must not be negative")
	}
	if opts.Offset < 0 {
		return nil, api.NewInvalidArgumentError("offset", "offset must not be negative")
	}

	action := "/tasks/list"
	if opts.Limit > 0 {
		action += "/" + strconv.Itoa(opts.Limit)
		if opts.Offset > 0 {
			action += "/" + strconv.Itoa(opts.Offset)
		}
	}
	return c.getJSON(ctx, EndpointListTasks, c.url(action))
}

// ViewTask returns the details of a task.
func (c *SandboxClient) ViewTask(ctx context.Context, id int) (any, error) {
	if err := api.ValidateTaskID(id); err != nil {
		return nil, err
	}
	return c.getJSON(ctx, EndpointViewTask, c.url("/tasks/view/"+strconv.Itoa(id)))
}

// TaskReport returns the report of a task. An empty format means json,
// which is the only format this client implements; every other format
// fails with an unsupported_format error before any request is sent.
func (c *SandboxClient) TaskReport(ctx context.Context, id int, format api.ReportFormat) (any, error) {
	if err := api.ValidateTaskID(id); err != nil {
		return nil, err
	}
	if format == "" {
		format = api.ReportFormatJSON
	}

	apiURL := c.url("/tasks/report/" + strconv.Itoa(id) + "/" + string(format))
	if err := api.ValidateReportFormat(format, apiURL); err != nil {
		return nil, err
	}
	return c.getJSON(ctx, EndpointTaskReport, apiURL)
}

// DeleteTask removes a task and its results from the sandbox.
func (c *SandboxClient) DeleteTask(ctx context.Context, id int) (any, error) {
	if err := api.ValidateTaskID(id); err != nil {
		return nil, err
	}
	return c.getJSON(ctx, EndpointDeleteTask, c.url("/tasks/delete/"+strconv.Itoa(id)))
}

// DownloadScreenshots downloads all screenshots of a task as an archive.
// dst must not exist; the archive is written to dst + ".zip".
func (c *SandboxClient) DownloadScreenshots(ctx context.Context, id int, dst string) (int64, error) {
	if err := api.ValidateTaskID(id); err != nil {
		return 0, err
	}
	if err := checkDestination(dst); err != nil {
		return 0, err
	}
	return c.download(ctx, EndpointScreenshots, c.url("/tasks/screenshots/"+strconv.Itoa(id)), dst+".zip")
}

// DownloadScreenshot downloads a single screenshot of a task. dst must not
// exist; the payload is written to dst + ".zip".
func (c *SandboxClient) DownloadScreenshot(ctx context.Context, id, index int, dst string) (int64, error) {
	if err := api.ValidateTaskID(id); err != nil {
		return 0, err
	}
	if index < 0 {
		return 0, api.NewInvalidArgumentError("screenshot", "screenshot index must not be negative")
	}
	if err := checkDestination(dst); err != nil {
		return 0, err
	}
	action := "/tasks/screenshots/" + strconv.Itoa(id) + "/" + strconv.Itoa(index)
	return c.download(ctx, EndpointScreenshots, c.url(action), dst+".zip")
}

// DownloadPcap downloads the network capture of a task to dst, which must
// not exist.
func (c *SandboxClient) DownloadPcap(ctx context.Context, id int, dst string) (int64, error) {
	if err := api.ValidateTaskID(id); err != nil {
		return 0, err
	}
	if err := checkDestination(dst); err != nil {
		return 0, err
	}
	return c.download(ctx, EndpointDownloadPcap, c.url("/pcap/get/"+strconv.Itoa(id)), dst)
}
