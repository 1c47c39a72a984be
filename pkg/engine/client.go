// Package engine provides the public Go client for the answer engine API.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to a running answer engine over HTTP.
type Client struct {
	baseURL    string
	adminToken string
	httpClient *http.Client
}

// ClientConfig holds client configuration.
type ClientConfig struct {
	BaseURL    string
	AdminToken string        // required only for the mutating calls
	Timeout    time.Duration // defaults to 30s
}

// NewClient creates a new answer engine client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:3000"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		adminToken: cfg.AdminToken,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// ChatReply is the answer to one chat message.
type ChatReply struct {
	Reply  string `json:"reply"`
	Source string `json:"source"`
}

// Entry is one question/answer record.
type Entry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// HealthStatus is the service health payload.
type HealthStatus struct {
	Status     string `json:"status"`
	EntryCount int    `json:"entryCount"`
	Timestamp  string `json:"timestamp"`
	LLM        bool   `json:"llm"`
}

// Chat sends a message and returns the resolved reply.
func (c *Client) Chat(ctx context.Context, message string) (*ChatReply, error) {
	var reply ChatReply
	err := c.do(ctx, http.MethodPost, "/api/chat",
		map[string]string{"message": message}, false, &reply)
	if err != nil {
		return nil, err
	}
	return &reply, nil
}

// ListFAQ returns all entries. When etag matches the server's current entry
// set version, the cached entries are still valid and (nil, etag, nil) is
// returned. The returned tag can be passed to the next call.
func (c *Client) ListFAQ(ctx context.Context, etag string) ([]Entry, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/faq", nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	newTag := resp.Header.Get("ETag")

	switch resp.StatusCode {
	case http.StatusNotModified:
		return nil, etag, nil
	case http.StatusOK:
		var entries []Entry
		if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
			return nil, "", fmt.Errorf("decode response: %w", err)
		}
		return entries, newTag, nil
	default:
		return nil, "", c.statusError(resp)
	}
}

// ReplaceFAQ replaces the full entry set. Requires the admin token.
func (c *Client) ReplaceFAQ(ctx context.Context, entries []Entry) error {
	return c.do(ctx, http.MethodPost, "/api/faq", entries, true, nil)
}

// AppendFAQ adds one entry. Requires the admin token.
func (c *Client) AppendFAQ(ctx context.Context, entry Entry) error {
	return c.do(ctx, http.MethodPost, "/api/faq/single", entry, true, nil)
}

// ClearCache drops the server's cache tier copy. Requires the admin token.
func (c *Client) ClearCache(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/cache", nil, true, nil)
}

// Health checks the service health.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var status HealthStatus
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, false, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, admin bool, out any) error {
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		buf = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.Header.Set("X-Admin-Token", c.adminToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, payload.Error)
	}
	return fmt.Errorf("server returned %d", resp.StatusCode)
}
