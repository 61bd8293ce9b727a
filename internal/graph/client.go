package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL  = "https://graph.microsoft.com/v1.0"
	maxResponseSize = 64 << 20
	maxErrorBody    = 512
)

// TokenSource supplies bearer tokens for API calls
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Config for the API client
type Config struct {
	BaseURL    string        // e.g., https://graph.microsoft.com/v1.0
	Timeout    time.Duration // per-request timeout, used when HTTPClient is nil
	HTTPClient *http.Client
}

// Client is a client for the remote mail API
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new API client
func NewClient(cfg Config, tokens TokenSource, logger *slog.Logger) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    baseURL,
		tokens:     tokens,
		httpClient: httpClient,
		logger:     logger.With("component", "graph_client"),
	}
}

// do sends one request. ref is either a path relative to the base URL or an
// absolute URL (used for paging links). A nil out discards the response body.
func (c *Client) do(ctx context.Context, method, ref string, query url.Values, in, out any) error {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}

	target := ref
	if !strings.HasPrefix(ref, "https://") && !strings.HasPrefix(ref, "http://") {
		target = c.baseURL + "/" + strings.TrimLeft(ref, "/")
	}
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("sending request", "method", method, "path", ref)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransientError{Method: method, Path: ref, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &TransientError{Method: method, Path: ref, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody := string(respBody)
		if len(errBody) > maxErrorBody {
			errBody = errBody[:maxErrorBody]
		}
		return &UpstreamError{Method: method, Path: ref, StatusCode: resp.StatusCode, Body: errBody}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// listAll follows paging links until the collection is exhausted
func listAll[T any](ctx context.Context, c *Client, ref string, query url.Values) ([]T, error) {
	var items []T
	for ref != "" {
		var page listResponse[T]
		if err := c.do(ctx, http.MethodGet, ref, query, nil, &page); err != nil {
			return nil, err
		}
		items = append(items, page.Value...)

		// The next link already carries the query
		ref, query = page.NextLink, nil
	}
	return items, nil
}
