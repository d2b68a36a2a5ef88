package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// maxFileSize bounds a single dataset file read over HTTP.
const maxFileSize = 64 << 20

// Backend reads dataset files by name. Missing files are reported as
// ErrNotFound.
type Backend interface {
	Read(ctx context.Context, name string) ([]byte, error)
	String() string
}

// DirBackend reads a dataset from a local directory.
type DirBackend struct {
	dir string
}

// NewDirBackend creates a backend over dir.
func NewDirBackend(dir string) *DirBackend {
	return &DirBackend{dir: dir}
}

// Read returns the content of a file in the directory.
func (b *DirBackend) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("read %s: %w", name, ErrInvalidCode)
	}
	data, err := os.ReadFile(filepath.Join(b.dir, filepath.FromSlash(name)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

func (b *DirBackend) String() string { return b.dir }

// HTTPBackend reads a dataset published on a raw file host.
type HTTPBackend struct {
	base   *url.URL
	client *http.Client
}

// NewHTTPBackend creates a backend for the dataset under baseURL. A nil
// client gets a default with a 30 second timeout.
func NewHTTPBackend(baseURL string, client *http.Client) (*HTTPBackend, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("parse base url %q: scheme must be http or https", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPBackend{base: u, client: client}, nil
}

// Read fetches a file relative to the base URL.
func (b *HTTPBackend) Read(ctx context.Context, name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("read %s: %w", name, ErrInvalidCode)
	}
	u := *b.base
	u.Path = path.Join(b.base.Path, name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("fetch %s: %w", name, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch %s: unexpected status %s", name, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFileSize))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return data, nil
}

func (b *HTTPBackend) String() string { return b.base.String() }
