// Package source loads converted workbook JSON from disk or over HTTP.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/collapse-story-etl/internal/domain"
)

// ErrUnexpectedStatus is returned when an HTTP source answers with a non-200 status.
var ErrUnexpectedStatus = errors.New("unexpected status")

// maxWorkbookBytes bounds a single workbook download.
const maxWorkbookBytes = 64 << 20

// FileLoader reads a workbook JSON file.
type FileLoader struct {
	path string
}

// NewFileLoader creates a loader for a local workbook file.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{path: path}
}

// Load reads and decodes the workbook. The context is only checked before reading.
func (l *FileLoader) Load(ctx context.Context) (domain.Workbook, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}
	return Decode(data)
}

// String identifies the source in logs.
func (l *FileLoader) String() string { return l.path }

// HTTPLoader fetches a workbook JSON document.
type HTTPLoader struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPLoader creates a loader for a workbook served at url.
func NewHTTPLoader(url string, timeout time.Duration, logger *slog.Logger) *HTTPLoader {
	return &HTTPLoader{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Load fetches and decodes the workbook.
func (l *HTTPLoader) Load(ctx context.Context) (domain.Workbook, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch workbook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch workbook: %w %d: %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxWorkbookBytes))
	if err != nil {
		return nil, fmt.Errorf("read workbook body: %w", err)
	}
	l.logger.Debug("workbook fetched", "url", l.url, "bytes", len(data), "duration", time.Since(start))
	return Decode(data)
}

// String identifies the source in logs.
func (l *HTTPLoader) String() string { return l.url }

// Loader is satisfied by FileLoader and HTTPLoader.
type Loader interface {
	Load(ctx context.Context) (domain.Workbook, error)
}

// New picks an HTTP loader for http(s) URLs and a file loader otherwise.
func New(location string, timeout time.Duration, logger *slog.Logger) Loader {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return NewHTTPLoader(location, timeout, logger)
	}
	return NewFileLoader(location)
}

// Decode parses workbook JSON.
func Decode(data []byte) (domain.Workbook, error) {
	var wb domain.Workbook
	if err := json.Unmarshal(data, &wb); err != nil {
		return nil, fmt.Errorf("decode workbook: %w", err)
	}
	if wb == nil {
		return nil, errors.New("decode workbook: document is null")
	}
	return wb, nil
}
