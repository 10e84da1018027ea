// Package httpclient is the HTTP plumbing under the schedule API client:
// URL resolution against a base, request logging and Basic authentication.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// HttpClientWrapper wraps http.Client with base URL resolution and logging
type HttpClientWrapper interface {
	// Do sends a request to urlStr, resolved against the base URL, and reads
	// the whole response. Non-2xx statuses are not errors.
	Do(ctx context.Context, method, urlStr string, body io.Reader, header http.Header) (*Response, error)
}

type httpClientWrapper struct {
	client  *http.Client
	baseURL url.URL
	logger  *slog.Logger
}

// resolveURL resolves a URL string against the base URL
func (c *httpClientWrapper) resolveURL(urlStr string) (*url.URL, error) {
	ref, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL %q: %w", urlStr, err)
	}
	return c.baseURL.ResolveReference(ref), nil
}

// NewHttpClientWrapper creates a new client wrapper with logging. A nil client
// means http.DefaultClient.
func NewHttpClientWrapper(client *http.Client, baseURL url.URL, logger *slog.Logger) (HttpClientWrapper, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &httpClientWrapper{client: client, baseURL: baseURL, logger: logger}, nil
}

func (c *httpClientWrapper) Do(ctx context.Context, method, urlStr string, body io.Reader, header http.Header) (*Response, error) {
	resolvedURL, err := c.resolveURL(urlStr)
	if err != nil {
		c.logger.Debug("failed to resolve URL", "url", urlStr, "error", err)
		return nil, err
	}

	c.logger.Debug("starting request",
		"method", method,
		"url", resolvedURL.String())

	req, err := http.NewRequestWithContext(ctx, method, resolvedURL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "error", err)
		return nil, fmt.Errorf("failed to send %s request: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug("received response",
		"method", method,
		"url", resolvedURL.String(),
		"status", resp.Status,
		"length", len(data))

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}
