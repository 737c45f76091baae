package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rhuss/cuckoo/pkg/api"
	"github.com/rhuss/cuckoo/pkg/debug"
	"github.com/rhuss/cuckoo/pkg/observability"
)

// DefaultUserAgent is sent unless WithUserAgent overrides it.
const DefaultUserAgent = "cuckoo-go/1.0"

// Endpoint names used in metrics and debug output.
const (
	EndpointStatus         = "status"
	EndpointListMachines   = "list_machines"
	EndpointViewMachine    = "view_machine"
	EndpointListTasks      = "list_tasks"
	EndpointViewTask       = "view_task"
	EndpointTaskReport     = "task_report"
	EndpointDeleteTask     = "delete_task"
	EndpointScreenshots    = "screenshots"
	EndpointSubmitFile     = "submit_file"
	EndpointSubmitURL      = "submit_url"
	EndpointViewFile       = "view_file"
	EndpointDownloadSample = "download_sample"
	EndpointDownloadPcap   = "download_pcap"
)

// SandboxClient calls the REST API of a Cuckoo sandbox server.
type SandboxClient struct {
	cfg        Config
	httpClient *http.Client
	progress   ProgressFunc
	userAgent  string
}

// New creates a client for the server described by cfg. Empty fields take
// the DefaultConfig values. The scheme must be http or https.
func New(cfg Config, opts ...Option) (*SandboxClient, error) {
	cfg.defaults()

	if cfg.Scheme != "http" && cfg.Scheme != "https" {
		return nil, api.NewInvalidArgumentError("scheme",
			fmt.Sprintf("scheme must be \"http\" or \"https\", got %q", cfg.Scheme))
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, api.NewInvalidArgumentError("port",
			fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port))
	}

	c := &SandboxClient{
		cfg:       cfg,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: observability.InstrumentTransport(nil),
		}
	}
	return c, nil
}

// Config returns a copy of the client configuration.
func (c *SandboxClient) Config() Config {
	return c.cfg
}

// Status returns the status of the sandbox instance.
func (c *SandboxClient) Status(ctx context.Context) (any, error) {
	return c.getJSON(ctx, EndpointStatus, c.url("/cuckoo/status"))
}

// ListMachines lists the analysis machines.
func (c *SandboxClient) ListMachines(ctx context.Context) (any, error) {
	return c.getJSON(ctx, EndpointListMachines, c.url("/machines/list"))
}

// ViewMachine returns the details of the named analysis machine.
func (c *SandboxClient) ViewMachine(ctx context.Context, name string) (any, error) {
	if err := api.ValidateMachineName(name); err != nil {
		return nil, err
	}
	return c.getJSON(ctx, EndpointViewMachine, c.url("/machines/view/"+name))
}

func (c *SandboxClient) newRequest(ctx context.Context, method, apiURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, apiURL, body)
	if err != nil {
		return nil, api.NewTransportError("create request", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, nil
}

func (c *SandboxClient) getJSON(ctx context.Context, endpoint, apiURL string) (any, error) {
	req, err := c.newRequest(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, err
	}
	return c.doJSON(endpoint, req)
}

// doJSON sends req, reads the whole body and decodes it as JSON.
func (c *SandboxClient) doJSON(endpoint string, req *http.Request) (any, error) {
	start := time.Now()
	status := 0
	defer func() {
		observability.ObserveRequest(endpoint, req.Method, status, time.Since(start))
	}()

	debug.Log(debug.HTTP, "request", "endpoint", endpoint, "method", req.Method, "url", req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, api.NewTransportError(endpoint+" request failed", err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, api.NewTransportError("read response", err)
	}

	debug.Log(debug.HTTP, "response", "endpoint", endpoint, "status", resp.StatusCode, "bytes", len(body))
	if debug.TraceIsEnabled(debug.HTTP) {
		debug.Trace(debug.HTTP, "response body", "endpoint", endpoint, "body", debug.Truncate(string(body), 4096))
	}

	// api.py reports failures such as unknown tasks as JSON bodies with a
	// non-2xx status. Those bodies are results, not errors.
	v, err := decodeJSON(body)
	if err != nil && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
		return nil, api.NewStatusError(resp.StatusCode, debug.Truncate(string(bytes.TrimSpace(body)), 256))
	}
	return v, err
}

// decodeJSON decodes body into generic values without any schema.
func decodeJSON(body []byte) (any, error) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, api.NewTransportError("decode response", err)
	}
	return v, nil
}

// extractErrorMessage returns the server supplied message of an error body.
// api.py answers {"message": "..."}, the Django web API
// {"error": true, "error_value": "..."}.
func extractErrorMessage(body []byte) string {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return ""
	}
	for _, key := range []string{"message", "error_value", "error"} {
		if s, ok := m[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
