// Package client is the browsing agent: a thin HTTP caller that points at a
// host's base URL, lists its catalog, and streams downloads with progress
// reporting. It keeps no state beyond the host address.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync/atomic"
	"time"
)

var (
	// ErrNotFound is returned when the host does not know the requested id.
	ErrNotFound = errors.New("file not found on host")
	// ErrTruncated is returned when a download delivered fewer bytes than the
	// host announced.
	ErrTruncated = errors.New("download truncated")
	// ErrStalled is returned when a download connection stays open but stops
	// delivering data for longer than the client timeout.
	ErrStalled = errors.New("download stalled")
)

// downloadChunk is the copy buffer size; progress is reported per chunk.
const downloadChunk = 64 << 10

// FileInfo is one catalog entry as reported by the host.
type FileInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

// NetworkInfo is the host's advertised address information.
type NetworkInfo struct {
	LocalIP   string `json:"local_ip"`
	ServerURL string `json:"server_url"`
	Status    string `json:"status"`
}

// ProgressFunc receives the running byte count and the total announced by
// the host. total is -1 when the host did not report a length.
type ProgressFunc func(received, total int64)

// Client talks to one registry server.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
}

// New creates a Client for the host at baseURL. timeout bounds control
// requests, the wait for download response headers, and the gap between
// download chunks. A healthy transfer of any size completes because the
// download deadline resets on every chunk; only a silent stall trips it.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http: &http.Client{
			Transport: &http.Transport{ResponseHeaderTimeout: timeout},
		},
	}
}

// NetworkInfo fetches the host's advertised address.
func (c *Client) NetworkInfo(ctx context.Context) (*NetworkInfo, error) {
	var info NetworkInfo
	if err := c.getJSON(ctx, "/api/network-info", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListFiles fetches the host's current catalog. An empty catalog is an empty
// slice, not an error.
func (c *Client) ListFiles(ctx context.Context) ([]FileInfo, error) {
	var body struct {
		Files []FileInfo `json:"files"`
	}
	if err := c.getJSON(ctx, "/api/files", &body); err != nil {
		return nil, err
	}
	if body.Files == nil {
		body.Files = []FileInfo{}
	}
	return body.Files, nil
}

// Download streams the file with the given id into w, invoking progress as
// bytes arrive. Returns the number of bytes written. The context bounds the
// whole transfer; independently, a host that drops mid-stream or goes silent
// for longer than the client timeout surfaces an error rather than a hang.
func (c *Client) Download(ctx context.Context, id string, w io.Writer, progress ProgressFunc) (int64, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/download/"+id, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, fmt.Errorf("download %s: %w", id, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("download %s: unexpected status %d", id, resp.StatusCode)
	}

	// Idle deadline: cancel the request if no chunk arrives within the client
	// timeout. Reset on every read so long healthy transfers are unaffected.
	var stalled atomic.Bool
	idle := time.AfterFunc(c.timeout, func() {
		stalled.Store(true)
		cancel()
	})
	defer idle.Stop()

	total := resp.ContentLength
	var received int64
	buf := make([]byte, downloadChunk)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			idle.Reset(c.timeout)
			if _, werr := w.Write(buf[:n]); werr != nil {
				return received, fmt.Errorf("write output: %w", werr)
			}
			received += int64(n)
			if progress != nil {
				progress(received, total)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			if stalled.Load() {
				return received, fmt.Errorf("%w: no data for %s after %d bytes", ErrStalled, c.timeout, received)
			}
			return received, fmt.Errorf("read body: %w", err)
		}
	}

	if total >= 0 && received != total {
		return received, fmt.Errorf("%w: got %d of %d bytes", ErrTruncated, received, total)
	}
	return received, nil
}

// Upload sends a file to the host and returns its catalog entry.
func (c *Client) Upload(ctx context.Context, name, mimeType string, content io.Reader) (*FileInfo, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	// CreateFormFile would hardcode octet-stream; the part's content type is
	// what the server records, so build the part header explicitly.
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, name))
	if mimeType != "" {
		h.Set("Content-Type", mimeType)
	}
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("build form: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("copy content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", &buf)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upload %s: unexpected status %d", name, resp.StatusCode)
	}
	var body struct {
		File FileInfo `json:"file"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &body.File, nil
}

// Remove deletes the file with the given id from the host's catalog.
func (c *Client) Remove(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/remove-file/"+id, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remove %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("remove %s: %w", id, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("remove %s: unexpected status %d", id, resp.StatusCode)
	}
	return nil
}

// getJSON performs a GET bounded by the client timeout and decodes the
// response into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
