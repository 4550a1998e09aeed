package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrNotFound reports that the remote document does not exist. Callers treat
// this as "empty state", not as a failure.
var ErrNotFound = errors.New("remote document not found")

// ErrConflict reports that a conditional write was rejected because the
// supplied version token no longer matches the store's current token.
var ErrConflict = errors.New("remote document modified concurrently")

// Document is the content of a remote file together with its opaque version
// token as reported by the store.
type Document struct {
	Content []byte
	Version string
}

// Client reads and conditionally writes versioned documents in a remote
// plain-file store.
type Client interface {
	// Get fetches a document and its current version token.
	Get(ctx context.Context, name string) (Document, error)
	// Put writes content guarded by version: a non-empty version must match
	// the store's current token, an empty version requires the document to
	// not exist yet. Returns the new version token on success.
	Put(ctx context.Context, name string, content []byte, version string) (string, error)
}

// HTTPClient talks to an HTTP file store that versions documents with ETags.
// Conditional writes use If-Match / If-None-Match, the way WebDAV-style
// stores and most object-storage HTTP gateways implement update-if-match.
type HTTPClient struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// NewHTTPClient builds a client for the store at baseURL, authenticating
// with the given bearer token. httpClient may be nil to use the default.
func NewHTTPClient(baseURL, token string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    httpClient,
	}
}

func (c *HTTPClient) url(name string) string {
	return c.BaseURL + "/" + strings.TrimLeft(name, "/")
}

func (c *HTTPClient) authorize(req *http.Request) {
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
}

// Get implements Client.
func (c *HTTPClient) Get(ctx context.Context, name string) (Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(name), nil)
	if err != nil {
		return Document{}, fmt.Errorf("building request for %s: %w", name, err)
	}
	c.authorize(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("fetching %s: %w", name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Document{}, fmt.Errorf("%s: %w", name, ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return Document{}, fmt.Errorf("fetching %s: unexpected status %s", name, resp.Status)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return Document{}, fmt.Errorf("reading %s: %w", name, err)
	}
	return Document{Content: content, Version: resp.Header.Get("ETag")}, nil
}

// Put implements Client.
func (c *HTTPClient) Put(ctx context.Context, name string, content []byte, version string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.url(name), bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("building request for %s: %w", name, err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")
	if version != "" {
		req.Header.Set("If-Match", version)
	} else {
		// Create-only: fail if someone else created the document first.
		req.Header.Set("If-None-Match", "*")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusPreconditionFailed || resp.StatusCode == http.StatusConflict:
		return "", fmt.Errorf("%s: %w", name, ErrConflict)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", fmt.Errorf("writing %s: unexpected status %s", name, resp.Status)
	}
	return resp.Header.Get("ETag"), nil
}
