// Package openai talks to the OpenAI Batch API: batch input files, batch
// lifecycle and result downloads.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tendant/simple-alt-pipeline/internal/metrics"
)

const (
	// DefaultBaseURL is the public API host.
	DefaultBaseURL = "https://api.openai.com"

	// ChatCompletionsEndpoint is the endpoint every batch line targets.
	ChatCompletionsEndpoint = "/v1/chat/completions"

	// CompletionWindow is the only window the Batch API accepts.
	CompletionWindow = "24h"
)

// Batch status values
const (
	StatusValidating = "validating"
	StatusInProgress = "in_progress"
	StatusFinalizing = "finalizing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusExpired    = "expired"
	StatusCancelling = "cancelling"
	StatusCancelled  = "cancelled"
)

var (
	// ErrMissingAPIKey is returned when no API key is configured
	ErrMissingAPIKey = errors.New("openai api key is required")
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Op         string
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openai %s failed with status %d: %s", e.Op, e.StatusCode, e.Message)
}

// Fatal reports a rejected API key or missing permission.
func (e *APIError) Fatal() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// RequestCounts tracks progress of a batch.
type RequestCounts struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// Batch is a Batch API job.
type Batch struct {
	ID               string        `json:"id"`
	Status           string        `json:"status"`
	Endpoint         string        `json:"endpoint"`
	InputFileID      string        `json:"input_file_id"`
	OutputFileID     string        `json:"output_file_id"`
	ErrorFileID      string        `json:"error_file_id"`
	CompletionWindow string        `json:"completion_window"`
	CreatedAt        int64         `json:"created_at"`
	RequestCounts    RequestCounts `json:"request_counts"`
}

// Terminal reports whether the batch will not change any more.
func (b *Batch) Terminal() bool {
	switch b.Status {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// Config holds API credentials
type Config struct {
	APIKey  string
	BaseURL string        // defaults to DefaultBaseURL
	Timeout time.Duration // defaults to 60s
}

// Client is a Batch API client
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a client with its own HTTP client
func New(cfg Config) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return NewWithHTTPClient(cfg, &http.Client{Timeout: timeout})
}

// NewWithHTTPClient creates a client with a custom HTTP client
func NewWithHTTPClient(cfg Config, httpClient *http.Client) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{baseURL: baseURL, apiKey: cfg.APIKey, httpClient: httpClient}, nil
}

// UploadBatchFile uploads JSONL content with purpose "batch" and returns the file id
func (c *Client) UploadBatchFile(ctx context.Context, filename string, content []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("purpose", "batch"); err != nil {
		return "", fmt.Errorf("failed to write purpose field: %w", err)
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return "", fmt.Errorf("failed to write file part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart body: %w", err)
	}

	var file struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, "upload_file", http.MethodPost, "/v1/files", mw.FormDataContentType(), &body, &file); err != nil {
		return "", err
	}
	return file.ID, nil
}

// CreateBatch starts a chat completions batch over an uploaded file
func (c *Client) CreateBatch(ctx context.Context, inputFileID string) (*Batch, error) {
	payload, err := json.Marshal(map[string]string{
		"input_file_id":     inputFileID,
		"endpoint":          ChatCompletionsEndpoint,
		"completion_window": CompletionWindow,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var batch Batch
	if err := c.do(ctx, "create_batch", http.MethodPost, "/v1/batches", "application/json", bytes.NewReader(payload), &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

// RetrieveBatch returns the current state of a batch
func (c *Client) RetrieveBatch(ctx context.Context, batchID string) (*Batch, error) {
	var batch Batch
	if err := c.do(ctx, "retrieve_batch", http.MethodGet, "/v1/batches/"+url.PathEscape(batchID), "", nil, &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

// CancelBatch asks the API to stop a batch
func (c *Client) CancelBatch(ctx context.Context, batchID string) (*Batch, error) {
	var batch Batch
	if err := c.do(ctx, "cancel_batch", http.MethodPost, "/v1/batches/"+url.PathEscape(batchID)+"/cancel", "", nil, &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

// DownloadFile returns the raw content of a file, such as a batch output file
func (c *Client) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.do(ctx, "download_file", http.MethodGet, "/v1/files/"+url.PathEscape(fileID)+"/content", "", nil, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// do sends a request. out may be a *bytes.Buffer for raw bodies or any JSON target.
func (c *Client) do(ctx context.Context, op, method, path, contentType string, body io.Reader, out interface{}) (err error) {
	defer func() {
		metrics.LLMRequests.WithLabelValues(op, metrics.Outcome(err)).Inc()
	}()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("openai %s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(op, resp)
	}

	switch dst := out.(type) {
	case nil:
		return nil
	case *bytes.Buffer:
		if _, err := io.Copy(dst, resp.Body); err != nil {
			return fmt.Errorf("failed to read %s response: %w", op, err)
		}
		return nil
	default:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", op, err)
		}
		return nil
	}
}

func decodeAPIError(op string, resp *http.Response) error {
	apiErr := &APIError{Op: op, StatusCode: resp.StatusCode}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil {
		apiErr.Type = body.Error.Type
		apiErr.Message = body.Error.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
