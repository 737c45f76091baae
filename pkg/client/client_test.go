package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rhuss/cuckoo/pkg/api"
)

// fakeSandbox is an httptest server that records the paths it was asked for
// and answers with a canned handler.
type fakeSandbox struct {
	*httptest.Server

	mu    sync.Mutex
	paths []string
}

func newFakeSandbox(t *testing.T, handler http.HandlerFunc) *fakeSandbox {
	t.Helper()
	fs := &fakeSandbox{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		fs.paths = append(fs.paths, r.URL.Path)
		fs.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeSandbox) requests() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]string(nil), fs.paths...)
}

// client returns a SandboxClient pointed at the fake server.
func (fs *fakeSandbox) client(t *testing.T, opts ...Option) *SandboxClient {
	t.Helper()
	u, err := url.Parse(fs.URL)
	if err != nil {
		t.Fatalf("parse server URL: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parse server port: %v", err)
	}
	c, err := New(Config{Scheme: "http", Host: u.Hostname(), Port: port}, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func jsonHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

func mustJSON(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("bad fixture %q: %v", s, err)
	}
	return v
}

func TestBuildAPIURL(t *testing.T) {
	tests := []struct {
		scheme, host string
		port         int
		action       string
		want         string
		wantOK       bool
	}{
		{"http", "127.0.0.1", 8000, "/cuckoo/status", "http://127.0.0.1:8000/cuckoo/status", true},
		{"https", "sandbox.example.org", 443, "/tasks/view/1", "https://sandbox.example.org:443/tasks/view/1", true},
		{"http", "h", 1, "x", "http://h:1x", true},
		{"http", "127.0.0.1", 8000, "", "", false},
	}
	for _, tt := range tests {
		got, ok := BuildAPIURL(tt.scheme, tt.host, tt.port, tt.action)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("BuildAPIURL(%q, %q, %d, %q) = %q, %v; want %q, %v",
				tt.scheme, tt.host, tt.port, tt.action, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantErr   bool
		wantParam string
		want      Config
	}{
		{
			name: "zero config takes defaults",
			cfg:  Config{},
			want: Config{Scheme: "http", Host: "127.0.0.1", Port: 8000},
		},
		{
			name: "explicit values kept",
			cfg:  Config{Scheme: "https", Host: "cuckoo.local", Port: 8090, Timeout: time.Second},
			want: Config{Scheme: "https", Host: "cuckoo.local", Port: 8090, Timeout: time.Second},
		},
		{
			name:      "unknown scheme",
			cfg:       Config{Scheme: "ftp"},
			wantErr:   true,
			wantParam: "scheme",
		},
		{
			name:      "port out of range",
			cfg:       Config{Port: 70000},
			wantErr:   true,
			wantParam: "port",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.cfg)
			if tt.wantErr {
				if !api.IsInvalidArgument(err) {
					t.Fatalf("error = %v, want invalid_argument", err)
				}
				if apiErr := err.(*api.APIError); apiErr.Param != tt.wantParam {
					t.Errorf("Param = %q, want %q", apiErr.Param, tt.wantParam)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := c.Config(); got != tt.want {
				t.Errorf("Config() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestJSONEndpoints(t *testing.T) {
	const body = `{"task":{"id":5,"status":"reported"},"list":[1,"two",null,true]}`

	tests := []struct {
		name     string
		call     func(ctx context.Context, c *SandboxClient) (any, error)
		wantPath string
	}{
		{"status", func(ctx context.Context, c *SandboxClient) (any, error) { return c.Status(ctx) }, "/cuckoo/status"},
		{"list machines", func(ctx context.Context, c *SandboxClient) (any, error) { return c.ListMachines(ctx) }, "/machines/list"},
		{"view machine", func(ctx context.Context, c *SandboxClient) (any, error) { return c.ViewMachine(ctx, "win7x64") }, "/machines/view/win7x64"},
		{"list tasks", func(ctx context.Context, c *SandboxClient) (any, error) {
			return c.ListTasks(ctx, TaskListOptions{})
		}, "/tasks/list"},
		{"view task", func(ctx context.Context, c *SandboxClient) (any, error) { return c.ViewTask(ctx, 5) }, "/tasks/view/5"},
		{"task report", func(ctx context.Context, c *SandboxClient) (any, error) {
			return c.TaskReport(ctx, 5, api.ReportFormatJSON)
		}, "/tasks/report/5/json"},
		{"task report default format", func(ctx context.Context, c *SandboxClient) (any, error) {
			return c.TaskReport(ctx, 5, "")
		}, "/tasks/report/5/json"},
		{"delete task", func(ctx context.Context, c *SandboxClient) (any, error) { return c.DeleteTask(ctx, 5) }, "/tasks/delete/5"},
		{"view file by md5", func(ctx context.Context, c *SandboxClient) (any, error) {
			return c.ViewFile(ctx, api.MD5("d41d8cd98f00b204e9800998ecf8427e"))
		}, "/files/view/md5/d41d8cd98f00b204e9800998ecf8427e"},
		{"view file by task id", func(ctx context.Context, c *SandboxClient) (any, error) {
			return c.ViewFile(ctx, api.TaskHash(12))
		}, "/files/view/id/12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newFakeSandbox(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("method = %s, want GET", r.Method)
				}
				jsonHandler(body)(w, r)
			})

			got, err := tt.call(context.Background(), srv.client(t))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if reqs := srv.requests(); len(reqs) != 1 || reqs[0] != tt.wantPath {
				t.Errorf("requests = %v, want [%s]", reqs, tt.wantPath)
			}
			if want := mustJSON(t, body); !reflect.DeepEqual(got, want) {
				t.Errorf("result = %#v, want %#v", got, want)
			}
		})
	}
}

func TestViewTask(t *testing.T) {
	srv := newFakeSandbox(t, jsonHandler(`{"task":{"id":5}}`))
	c := srv.client(t)

	for _, id := range []int{0, -3} {
		if _, err := c.ViewTask(context.Background(), id); !api.IsInvalidArgument(err) {
			t.Errorf("ViewTask(%d) error = %v, want invalid_argument", id, err)
		}
	}
	if n := len(srv.requests()); n != 0 {
		t.Fatalf("invalid ids issued %d requests", n)
	}

	got, err := c.ViewTask(context.Background(), 5)
	if err != nil {
		t.Fatalf("ViewTask(5): %v", err)
	}
	want := map[string]any{"task": map[string]any{"id": float64(5)}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ViewTask(5) = %#v, want %#v", got, want)
	}
}

func TestTaskIDValidation(t *testing.T) {
	srv := newFakeSandbox(t, jsonHandler(`{}`))
	c := srv.client(t)
	ctx := context.Background()
	dst := t.TempDir() + "/out"

	calls := map[string]func() error{
		"report": func() error {
			_, err := c.TaskReport(ctx, 0, api.ReportFormatJSON)
			return err
		},
		"delete": func() error {
			_, err := c.DeleteTask(ctx, 0)
			return err
		},
		"screenshots": func() error {
			_, err := c.DownloadScreenshots(ctx, 0, dst)
			return err
		},
		"pcap": func() error {
			_, err := c.DownloadPcap(ctx, -1, dst)
			return err
		},
	}
	for name, call := range calls {
		if err := call(); !api.IsInvalidArgument(err) {
			t.Errorf("%s: error = %v, want invalid_argument", name, err)
		}
	}
	if n := len(srv.requests()); n != 0 {
		t.Errorf("invalid task ids issued %d requests", n)
	}
}

func TestViewMachine_EmptyName(t *testing.T) {
	srv := newFakeSandbox(t, jsonHandler(`{}`))
	_, err := srv.client(t).ViewMachine(context.Background(), "")
	if !api.IsInvalidArgument(err) {
		t.Fatalf("error = %v, want invalid_argument", err)
	}
	if n := len(srv.requests()); n != 0 {
		t.Errorf("issued %d requests", n)
	}
}

func TestListTasks_Paths(t *testing.T) {
	tests := []struct {
		name     string
		opts     TaskListOptions
		wantPath string
	}{
		{"no limit", TaskListOptions{}, "/tasks/list"},
		{"limit", TaskListOptions{Limit: 10}, "/tasks/list/10"},
		{"limit and offset", TaskListOptions{Limit: 10, Offset: 20}, "/tasks/list/10/20"},
		{"offset without limit is ignored", TaskListOptions{Offset: 20}, "/tasks/list"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newFakeSandbox(t, jsonHandler(`{"tasks":[]}`))
			if _, err := srv.client(t).ListTasks(context.Background(), tt.opts); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if reqs := srv.requests(); len(reqs) != 1 || reqs[0] != tt.wantPath {
				t.Errorf("requests = %v, want [%s]", reqs, tt.wantPath)
			}
		})
	}
}

func TestListTasks_Negative(t *testing.T) {
	srv := newFakeSandbox(t, jsonHandler(`{}`))
	c := srv.client(t)
	if _, err := c.ListTasks(context.Background(), TaskListOptions{Limit: -1}); !api.IsInvalidArgument(err) {
		t.Errorf("negative limit: error = %v", err)
	}
	if _, err := c.ListTasks(context.Background(), TaskListOptions{Limit: 1, Offset: -1}); !api.IsInvalidArgument(err) {
		t.Errorf("negative offset: error = %v", err)
	}
}

func TestTaskReport_UnsupportedFormat(t *testing.T) {
	srv := newFakeSandbox(t, jsonHandler(`{}`))
	c := srv.client(t)

	for _, f := range []api.ReportFormat{api.ReportFormatHTML, api.ReportFormatAll, api.ReportFormatDropped, api.ReportFormatPackageFiles} {
		_, err := c.TaskReport(context.Background(), 5, f)
		if !api.IsUnsupportedFormat(err) {
			t.Errorf("format %s: error = %v, want unsupported_format", f, err)
		}
	}
	if n := len(srv.requests()); n != 0 {
		t.Errorf("unsupported formats issued %d requests", n)
	}
}

func TestViewFile_UnsupportedKind(t *testing.T) {
	srv := newFakeSandbox(t, jsonHandler(`{}`))
	c := srv.client(t)

	_, err := c.ViewFile(context.Background(), api.HashRef{Value: "deadbeef", Kind: "sha1"})
	if !api.IsUnsupportedEndpoint(err) {
		t.Fatalf("error = %v, want unsupported_endpoint", err)
	}
	wantURL := srv.URL + "/files/view/sha1/deadbeef"
	if msg := err.Error(); !strings.Contains(msg, wantURL) {
		t.Errorf("error %q does not carry the built URL %q", msg, wantURL)
	}
	if n := len(srv.requests()); n != 0 {
		t.Errorf("issued %d requests", n)
	}
}

func TestViewFile_MissingHash(t *testing.T) {
	srv := newFakeSandbox(t, jsonHandler(`{}`))
	_, err := srv.client(t).ViewFile(context.Background(), api.HashRef{Kind: "sha1"})
	if !api.IsInvalidArgument(err) {
		t.Fatalf("error = %v, want invalid_argument ahead of the kind check", err)
	}
}

func TestJSONErrorBodiesAreReturned(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantKey string
		wantVal any
	}{
		{
			name:    "not found with api.py message",
			status:  http.StatusNotFound,
			body:    `{"message": "Task not found"}`,
			wantKey: "message",
			wantVal: "Task not found",
		},
		{
			name:    "server error with django body",
			status:  http.StatusInternalServerError,
			body:    `{"error": true, "error_value": "database locked"}`,
			wantKey: "error_value",
			wantVal: "database locked",
		},
		{
			name:    "bad request",
			status:  http.StatusBadRequest,
			body:    `{"message": "Invalid report format"}`,
			wantKey: "message",
			wantVal: "Invalid report format",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newFakeSandbox(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			got, err := srv.client(t).ViewTask(context.Background(), 99)
			if err != nil {
				t.Fatalf("ViewTask: %v", err)
			}
			m, ok := got.(map[string]any)
			if !ok {
				t.Fatalf("result = %#v, want the decoded body", got)
			}
			if m[tt.wantKey] != tt.wantVal {
				t.Errorf("%s = %v, want %v", tt.wantKey, m[tt.wantKey], tt.wantVal)
			}
		})
	}
}

func TestJSONErrors(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
		wantMsg    string
	}{
		{
			name:    "invalid JSON",
			handler: jsonHandler(`{invalid json`),
		},
		{
			name: "server error with html body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("<html>Internal Server Error</html>"))
			},
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Internal Server Error",
		},
		{
			name: "bad gateway without body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			wantStatus: http.StatusBadGateway,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newFakeSandbox(t, tt.handler)
			_, err := srv.client(t).ViewTask(context.Background(), 1)
			if !api.IsTransportError(err) {
				t.Fatalf("error = %v, want transport_error", err)
			}
			apiErr := err.(*api.APIError)
			if apiErr.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.wantStatus)
			}
			if tt.wantMsg != "" && !strings.Contains(apiErr.Message, tt.wantMsg) {
				t.Errorf("Message = %q, want it to contain %q", apiErr.Message, tt.wantMsg)
			}
		})
	}
}

func TestClient_ContextTimeout(t *testing.T) {
	srv := newFakeSandbox(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(5 * time.Second):
		case <-r.Context().Done():
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := srv.client(t).Status(ctx)
	if !api.IsTransportError(err) {
		t.Errorf("error = %v, want transport_error for context timeout", err)
	}
}

func TestClient_Unreachable(t *testing.T) {
	c, err := New(Config{Host: "127.0.0.1", Port: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Status(context.Background()); !api.IsTransportError(err) {
		t.Errorf("error = %v, want transport_error", err)
	}
}

func TestClient_UserAgent(t *testing.T) {
	var got string
	srv := newFakeSandbox(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
		jsonHandler(`{}`)(w, r)
	})

	if _, err := srv.client(t).Status(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got != DefaultUserAgent {
		t.Errorf("User-Agent = %q, want %q", got, DefaultUserAgent)
	}

	if _, err := srv.client(t, WithUserAgent("triage/2")).Status(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got != "triage/2" {
		t.Errorf("User-Agent = %q, want triage/2", got)
	}
}

func TestClient_WithHTTPClient(t *testing.T) {
	srv := newFakeSandbox(t, jsonHandler(`{"ok":true}`))

	var used bool
	hc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		used = true
		return http.DefaultTransport.RoundTrip(r)
	})}

	if _, err := srv.client(t, WithHTTPClient(hc)).Status(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !used {
		t.Error("custom http client was not used")
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

