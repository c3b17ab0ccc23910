// Package client provides an HTTP client for the Heirloom server API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Client talks to the Heirloom server's REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates an API client. If baseURL is empty, uses the
// HEIRLOOM_SERVER_URL env var or defaults to localhost:8487.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("HEIRLOOM_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8487"
	}

	timeout := 2 * time.Minute
	if t := os.Getenv("HEIRLOOM_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// UploadInit is the server's reply to an upload initiation.
type UploadInit struct {
	UploadURL string `json:"upload_url"`
	ObjectKey string `json:"object_key"`
	ExpiresIn int64  `json:"expires_in"`
	MaxBytes  int64  `json:"max_bytes"`
}

// UploadConfirm is the server's reply to an upload confirmation.
type UploadConfirm struct {
	MediaAssetID string `json:"media_asset_id"`
	JobID        string `json:"job_id"`
	Bytes        int64  `json:"bytes"`
}

// Job mirrors the server's job representation.
type Job struct {
	ID           string     `json:"id"`
	JobType      string     `json:"job_type"`
	Status       string     `json:"status"`
	MediaAssetID string     `json:"media_asset_id"`
	Attempt      int        `json:"attempt"`
	ErrorDetail  *string    `json:"error_detail,omitempty"`
	Created      time.Time  `json:"created"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// Memory mirrors the server's memory unit representation.
type Memory struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	Description *string  `json:"description,omitempty"`
	EventType   string   `json:"event_type"`
	Places      []string `json:"places"`
	Dates       []string `json:"dates"`
	Keywords    []string `json:"keywords"`
	StartTimeMs *int64   `json:"start_time_ms,omitempty"`
	EndTimeMs   *int64   `json:"end_time_ms,omitempty"`
}

// AskResult is a grounded answer with its source URLs.
type AskResult struct {
	AnswerText string   `json:"answer_text"`
	SourceURLs []string `json:"source_urls"`
}

type apiError struct {
	Error string `json:"error"`
}

// InitUpload requests a presigned upload slot.
func (c *Client) InitUpload(ctx context.Context, profileID, fileName, mimeType string, size int64) (*UploadInit, error) {
	var out UploadInit
	err := c.do(ctx, http.MethodPost, "/api/v1/uploads/init", map[string]any{
		"profile_id": profileID,
		"file_name":  fileName,
		"mime_type":  mimeType,
		"bytes":      size,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// PutObject uploads the content to a presigned URL.
func (c *Client) PutObject(ctx context.Context, url, contentType string, content io.Reader, size int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, content)
	if err != nil {
		return fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = size

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload object: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("upload object: unexpected status %s", resp.Status)
	}
	return nil
}

// ConfirmUpload records the uploaded object and enqueues extraction.
func (c *Client) ConfirmUpload(ctx context.Context, profileID, objectKey, fileName, mimeType string, durationSeconds *float64) (*UploadConfirm, error) {
	body := map[string]any{
		"profile_id": profileID,
		"object_key": objectKey,
		"file_name":  fileName,
		"mime_type":  mimeType,
	}
	if durationSeconds != nil {
		body["duration_seconds"] = *durationSeconds
	}
	var out UploadConfirm
	if err := c.do(ctx, http.MethodPost, "/api/v1/uploads/confirm", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetJob fetches a job by id.
func (c *Client) GetJob(ctx context.Context, id string) (*Job, error) {
	var out Job
	if err := c.do(ctx, http.MethodGet, "/api/v1/jobs/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RequeueJob moves a failed job back to the queue.
func (c *Client) RequeueJob(ctx context.Context, id string) (*Job, error) {
	var out Job
	if err := c.do(ctx, http.MethodPost, "/api/v1/jobs/"+id+"/requeue", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ask asks a question about a profile's memories.
func (c *Client) Ask(ctx context.Context, profileID, question string) (*AskResult, error) {
	var out AskResult
	err := c.do(ctx, http.MethodPost, "/api/v1/profiles/"+profileID+"/ask", map[string]any{
		"question": question,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListMemories lists a profile's memory units.
func (c *Client) ListMemories(ctx context.Context, profileID string) ([]Memory, error) {
	var out struct {
		Memories []Memory `json:"memories"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/profiles/"+profileID+"/memories", nil, &out); err != nil {
		return nil, err
	}
	return out.Memories, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
