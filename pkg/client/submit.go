package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"github.com/rhuss/cuckoo/pkg/api"
	"github.com/rhuss/cuckoo/pkg/debug"
	"github.com/rhuss/cuckoo/pkg/observability"
)

// SubmitFile uploads a local file for analysis. fields carries additional
// options of the create form (package, timeout, priority, options, machine,
// ...). The file is sent as form part "file" named by its base name.
func (c *SandboxClient) SubmitFile(ctx context.Context, path string, fields map[string]string) (any, error) {
	info, err := os.Stat(path)
	if path == "" || err != nil || !info.Mode().IsRegular() {
		return nil, api.NewInvalidArgumentError("filepath", fmt.Sprintf("invalid file %q", path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, api.NewInvalidArgumentError("filepath", fmt.Sprintf("invalid file %q: %v", path, err))
	}
	defer f.Close()

	result, err := c.submit(ctx, EndpointSubmitFile, "/tasks/create/file", fields, "file", filepath.Base(path), f)
	observability.SubmissionsTotal.WithLabelValues("file", observability.Outcome(err)).Inc()
	return result, err
}

// SubmitURL submits a URL for analysis. The URL is sent as form part "url"
// with an empty filename.
func (c *SandboxClient) SubmitURL(ctx context.Context, target string, fields map[string]string) (any, error) {
	result, err := c.submit(ctx, EndpointSubmitURL, "/tasks/create/url", fields, "url", "", bytes.NewReader([]byte(target)))
	observability.SubmissionsTotal.WithLabelValues("url", observability.Outcome(err)).Inc()
	return result, err
}

// submit posts a multipart form with the extra fields first, in key order,
// followed by one file part.
func (c *SandboxClient) submit(ctx context.Context, endpoint, action string, fields map[string]string,
	partName, fileName string, content io.Reader) (any, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := mw.WriteField(k, fields[k]); err != nil {
			return nil, api.NewTransportError("encode form field "+k, err)
		}
	}

	part, err := mw.CreateFormFile(partName, fileName)
	if err != nil {
		return nil, api.NewTransportError("encode form part "+partName, err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, api.NewTransportError("read submission content", err)
	}
	if err := mw.Close(); err != nil {
		return nil, api.NewTransportError("encode form", err)
	}

	debug.Log(debug.Submit, "submission", "endpoint", endpoint, "part", partName, "filename", fileName,
		"fields", len(fields), "bytes", body.Len())

	req, err := c.newRequest(ctx, http.MethodPost, c.url(action), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.doJSON(endpoint, req)
}
