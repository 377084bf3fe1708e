// JSON-over-HTTP client shared by the provider implementations
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// APIClient performs JSON requests against a base URL with a fixed set of headers.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
	headers    http.Header
}

// NewAPIClient creates a client for baseURL. A nil client means [http.DefaultClient].
func NewAPIClient(baseURL string, client *http.Client) *APIClient {
	if client == nil {
		client = http.DefaultClient
	}

	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		headers:    http.Header{},
	}
}

// WithHeader sets a header sent on every request. Empty values are ignored.
func (a *APIClient) WithHeader(key, value string) *APIClient {
	if value != "" {
		a.headers.Set(key, value)
	}
	return a
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Text returns the body as a string.
func (r *APIResponse) Text() string {
	return string(r.Body)
}

// Decode unmarshals the body into v. An empty body leaves v untouched.
func (r *APIResponse) Decode(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIClient) Get(ctx context.Context, path string) (*APIResponse, error) {
	return a.Do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with payload encoded as JSON and returns the raw response.
func (a *APIClient) Post(ctx context.Context, path string, payload any) (*APIResponse, error) {
	return a.Do(ctx, http.MethodPost, path, payload)
}

// Do performs a request. Non-2xx statuses are not errors; callers inspect [APIResponse.StatusCode].
func (a *APIClient) Do(ctx context.Context, method, path string, payload any) (*APIResponse, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range a.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &APIResponse{StatusCode: resp.StatusCode, Headers: resp.Header, Body: data}, nil
}
