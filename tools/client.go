// Item service HTTP client.
//
// Information Hiding:
// - URL construction and X-API-Key header handling
// - JSON and multipart request encoding
// - Non-2xx responses mapped to *StatusError
// - Retry of idempotent (GET) requests

package tools

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
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// APIKeyHeader carries the optional service credential.
const APIKeyHeader = "X-API-Key"

// maxResponseSize caps how much of a response body is read.
const maxResponseSize = 1024 * 1024

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("%d %s: %s", e.Code, http.StatusText(e.Code), body)
}

// IsStatus reports whether err is a *StatusError with the given code.
func IsStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == code
}

// APIClient calls the remote item service.
type APIClient struct {
	baseURL  string
	apiKey   string
	client   *http.Client
	executor *Executor
	logger   zerolog.Logger
}

// ClientOption configures an APIClient.
type ClientOption func(*APIClient)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *APIClient) { c.client = client }
}

// WithRetries sets how many times failed GET requests are retried.
func WithRetries(retries int) ClientOption {
	return func(c *APIClient) { c.executor = NewExecutor(retries) }
}

// WithClientLogger sets the request logger.
func WithClientLogger(logger zerolog.Logger) ClientOption {
	return func(c *APIClient) { c.logger = logger }
}

// NewAPIClient creates a client for the service rooted at baseURL.
// An empty apiKey means no credential is sent.
func NewAPIClient(baseURL, apiKey string, opts ...ClientOption) *APIClient {
	c := &APIClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 30 * time.Second},
		executor: NewExecutor(DefaultRetries),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service root.
func (c *APIClient) BaseURL() string {
	return c.baseURL
}

// HasAPIKey reports whether a credential is configured.
func (c *APIClient) HasAPIKey() bool {
	return c.apiKey != ""
}

// Get performs a GET request and decodes the JSON response into out.
func (c *APIClient) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.executor.Do(ctx, func(ctx context.Context) error {
		return c.do(ctx, http.MethodGet, path, query, nil, "", out)
	})
}

// Post sends body as JSON and decodes the response into out.
func (c *APIClient) Post(ctx context.Context, path string, body, out any) error {
	return c.sendJSON(ctx, http.MethodPost, path, body, out)
}

// Put sends body as JSON and decodes the response into out.
func (c *APIClient) Put(ctx context.Context, path string, body, out any) error {
	return c.sendJSON(ctx, http.MethodPut, path, body, out)
}

// Delete performs a DELETE request. It returns the response status code.
func (c *APIClient) Delete(ctx context.Context, path string, out any) (int, error) {
	var status int
	err := c.doStatus(ctx, http.MethodDelete, path, nil, nil, "", out, &status)
	return status, err
}

// Upload sends the local file as multipart form field "file".
func (c *APIClient) Upload(ctx context.Context, path, filePath string, out any) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("failed to read %s: %w", filePath, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish multipart body: %w", err)
	}

	return c.do(ctx, http.MethodPost, path, nil, &buf, writer.FormDataContentType(), out)
}

func (c *APIClient) sendJSON(ctx context.Context, method, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}
	return c.do(ctx, method, path, nil, bytes.NewReader(payload), "application/json", out)
}

func (c *APIClient) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, out any) error {
	return c.doStatus(ctx, method, path, query, body, contentType, out, nil)
}

func (c *APIClient) doStatus(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, out any, status *int) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("item service request")

	if status != nil {
		*status = resp.StatusCode
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Body: string(data)}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
