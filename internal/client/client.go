// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package client talks to a running relay: metadata lookups, job
// submission, progress polling and artifact download.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"

	"github.com/ManuGH/ytrelay/internal/jobs"
	"github.com/ManuGH/ytrelay/internal/ytdlp"
)

// DefaultRequestTimeout bounds each JSON call. It exceeds the relay's
// default info_timeout so a slow metadata lookup is answered by the server.
const DefaultRequestTimeout = 3 * time.Minute

// Client is an HTTP client for the relay API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	// RequestTimeout bounds JSON calls. File downloads are bounded by ctx
	// only. Zero disables the bound.
	RequestTimeout time.Duration
}

// New returns a client for base, e.g. "http://localhost:3001". The
// http.Client carries no overall Timeout since that would also cap the
// body of artifact downloads.
func New(base string) *Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.ResponseHeaderTimeout = DefaultRequestTimeout
	return &Client{
		BaseURL:        strings.TrimRight(base, "/"),
		HTTPClient:     &http.Client{Transport: tr},
		RequestTimeout: DefaultRequestTimeout,
	}
}

// TestResponse is the body of GET /api/test.
type TestResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// DownloadRequest is the body of POST /api/download.
type DownloadRequest struct {
	URL        string `json:"url"`
	Format     string `json:"format"`
	Quality    string `json:"quality,omitempty"`
	Cookies    string `json:"cookies,omitempty"`
	VideoTitle string `json:"videoTitle,omitempty"`
	Channel    string `json:"channel,omitempty"`
	UploadDate string `json:"uploadDate,omitempty"`
}

// Test checks that the relay is up.
func (c *Client) Test(ctx context.Context) (TestResponse, error) {
	var out TestResponse
	err := c.do(ctx, "test", http.MethodGet, "/api/test", nil, &out)
	return out, err
}

// VideoInfo fetches metadata and the quality picker for url.
func (c *Client) VideoInfo(ctx context.Context, videoURL, cookies string) (ytdlp.VideoInfo, error) {
	body := map[string]string{"url": videoURL}
	if cookies != "" {
		body["cookies"] = cookies
	}
	var out ytdlp.VideoInfo
	err := c.do(ctx, "video-info", http.MethodPost, "/api/video-info", body, &out)
	return out, err
}

// StartDownload submits a job and returns its id.
func (c *Client) StartDownload(ctx context.Context, req DownloadRequest) (string, error) {
	var out struct {
		DownloadID string `json:"downloadId"`
	}
	if err := c.do(ctx, "download", http.MethodPost, "/api/download", req, &out); err != nil {
		return "", err
	}
	if out.DownloadID == "" {
		return "", &APIError{Sentinel: ErrServer, Operation: "download", Status: http.StatusOK, Message: "empty download id"}
	}
	return out.DownloadID, nil
}

// Progress returns the job record.
func (c *Client) Progress(ctx context.Context, id string) (jobs.Job, error) {
	var out jobs.Job
	err := c.do(ctx, "progress", http.MethodGet, "/api/download/"+url.PathEscape(id)+"/progress", nil, &out)
	return out, err
}

// Cancel asks the relay to stop a queued or running job.
func (c *Client) Cancel(ctx context.Context, id string) error {
	return c.do(ctx, "cancel", http.MethodDelete, "/api/download/"+url.PathEscape(id), nil, nil)
}

// DownloadFile saves the job's artifact into dir and returns the written
// path. An empty name uses the server's Content-Disposition filename. The
// file only appears once it is complete. The transfer is not bounded by
// RequestTimeout.
func (c *Client) DownloadFile(ctx context.Context, id, dir, name string) (string, error) {
	res, err := c.send(ctx, http.MethodGet, "/api/download/"+url.PathEscape(id)+"/file", nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = res.Body.Close() }()
	if err := checkStatus("file", res); err != nil {
		return "", err
	}

	if name == "" {
		name = dispositionName(res.Header.Get("Content-Disposition"))
	}
	name = filepath.Base(name)
	if name == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		name = id
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(dir, name)
	t, err := renameio.TempFile(dir, path)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = t.Cleanup() }()

	if _, err := io.Copy(t, res.Body); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		return "", fmt.Errorf("commit %s: %w", name, err)
	}
	return path, nil
}

func dispositionName(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	// mime decodes filename* into filename.
	return params["filename"]
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.BaseURL, "/")+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return c.httpClient().Do(req)
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	if c.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.RequestTimeout)
		defer cancel()
	}
	res, err := c.send(ctx, method, path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = res.Body.Close() }()

	if err := checkStatus(op, res); err != nil {
		return err
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return &APIError{Sentinel: ErrServer, Operation: op, Status: res.StatusCode, Message: "malformed response: " + err.Error()}
	}
	return nil
}

func checkStatus(op string, res *http.Response) error {
	if res.StatusCode < 400 {
		return nil
	}
	var body struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(data))
	}
	return &APIError{
		Sentinel:  sentinelFor(res.StatusCode),
		Operation: op,
		Status:    res.StatusCode,
		Message:   body.Error,
	}
}

// Message returns the server message of an APIError or JobError, else the
// error text.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	var jobErr *JobError
	if errors.As(err, &jobErr) {
		return jobErr.Message
	}
	return err.Error()
}
