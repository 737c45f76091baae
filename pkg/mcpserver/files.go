package mcpserver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// fileArea confines tool file access to one directory.
type fileArea struct {
	dir string
}

// path resolves a plain file name inside the area. Names with directory
// components are rejected.
func (a fileArea) path(name string) (string, error) {
	if a.dir == "" {
		return "", fmt.Errorf("no download directory configured")
	}
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return "", fmt.Errorf("invalid file name %q: only plain file names inside the download directory are allowed", name)
	}
	return filepath.Join(a.dir, name), nil
}

// destination resolves name for writing and makes sure the directory exists.
func (a fileArea) destination(name string) (string, error) {
	p, err := a.path(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating download directory: %w", err)
	}
	return p, nil
}

// download is the result of a download tool.
type download struct {
	Path  string `json:"path"`
	Bytes int64  `json:"bytes"`
}
