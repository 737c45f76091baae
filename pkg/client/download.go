package client

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/rhuss/cuckoo/pkg/api"
	"github.com/rhuss/cuckoo/pkg/debug"
	"github.com/rhuss/cuckoo/pkg/observability"
)

// ChunkSize is the number of bytes read from the response and written to
// the destination file per step.
const ChunkSize = 1024

// checkDestination refuses an empty path or one that already exists.
func checkDestination(path string) error {
	if path == "" {
		return api.NewPathConflictError(path)
	}
	_, err := os.Lstat(path)
	if err == nil {
		return api.NewPathConflictError(path)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		conflict := api.NewPathConflictError(path)
		conflict.Err = err
		return conflict
	}
	return nil
}

// download streams the body of a GET on apiURL into dst. The destination is
// created exclusively once the server answered with a 2xx status. A file
// left behind by a failure in the middle of the stream is not removed.
func (c *SandboxClient) download(ctx context.Context, endpoint, apiURL, dst string) (written int64, err error) {
	req, err := c.newRequest(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	status := 0
	defer func() {
		observability.ObserveRequest(endpoint, req.Method, status, time.Since(start))
		observability.DownloadBytesTotal.WithLabelValues(endpoint).Add(float64(written))
	}()

	debug.Log(debug.Download, "download", "endpoint", endpoint, "url", apiURL, "dst", dst)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, api.NewTransportError(endpoint+" request failed", err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, api.NewStatusError(resp.StatusCode, extractErrorMessage(body))
	}

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return 0, api.NewPathConflictError(dst)
		}
		return 0, api.NewTransportError("create destination", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = api.NewTransportError("close destination", cerr)
		}
	}()

	written, err = c.copyChunks(f, resp.Body, endpoint, resp.ContentLength)
	debug.Log(debug.Download, "download finished", "endpoint", endpoint, "dst", dst, "bytes", written)
	return written, err
}

// copyChunks writes src to dst ChunkSize bytes at a time, reporting
// progress after every chunk.
func (c *SandboxClient) copyChunks(dst io.Writer, src io.Reader, endpoint string, total int64) (int64, error) {
	buf := make([]byte, ChunkSize)
	var written int64
	for {
		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			written += int64(nw)
			if werr != nil {
				return written, api.NewTransportError("write destination", werr)
			}
			if nw != nr {
				return written, api.NewTransportError("write destination", io.ErrShortWrite)
			}
			if c.progress != nil {
				c.progress(endpoint, written, total)
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, api.NewTransportError("read response", rerr)
		}
	}
}
