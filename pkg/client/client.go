// Package client is the HTTP client the raggadon CLI uses to reach a running
// server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/papercomputeco/raggadon/pkg/service"
	"github.com/papercomputeco/raggadon/pkg/utils"
)

// ErrUnreachable is returned when the server cannot be contacted.
var ErrUnreachable = errors.New("raggadon server unreachable")

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed (HTTP %d): %s", e.StatusCode, e.Message)
}

// Client talks to the raggadon HTTP API.
type Client struct {
	base *url.URL
	http *http.Client
}

// New returns a Client for the server at target, e.g. "http://localhost:8000".
func New(target string, timeout time.Duration) (*Client, error) {
	base, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid API target URL %q: scheme and host are required", target)
	}

	return &Client{
		base: base,
		http: &http.Client{Timeout: timeout},
	}, nil
}

// Health checks GET /health.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

// Save stores one piece of content.
func (c *Client) Save(ctx context.Context, req service.SaveRequest) (*service.SaveResult, error) {
	out := &service.SaveResult{}
	if err := c.do(ctx, http.MethodPost, "/save", nil, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Search runs a similarity search. A zero limit leaves the server default.
func (c *Client) Search(ctx context.Context, req service.SearchRequest) (*service.SearchResult, error) {
	q := url.Values{}
	q.Set("project", req.Project)
	q.Set("query", req.Query)
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}

	out := &service.SearchResult{}
	if err := c.do(ctx, http.MethodGet, "/search", q, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats fetches the combined statistics of project.
func (c *Client) Stats(ctx context.Context, project string) (*service.StatsResult, error) {
	out := &service.StatsResult{}
	if err := c.do(ctx, http.MethodGet, "/project/"+url.PathEscape(project)+"/stats", nil, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := *c.base
	unescaped, err := url.PathUnescape(path)
	if err != nil {
		return fmt.Errorf("invalid request path %q: %w", path, err)
	}
	u.Path = unescaped
	u.RawPath = path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", utils.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w at %s: %v", ErrUnreachable, c.base, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(data)}
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			apiErr.Message = e.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
