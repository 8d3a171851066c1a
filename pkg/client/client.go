// Package client talks to the codesnippets HTTP API.
//
// Requests carry a bounded timeout and are never retried; callers decide
// what to do with a failure.
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
	"strings"
	"time"

	"github.com/rubiojr/codesnippets/pkg/core"
	"github.com/rubiojr/codesnippets/pkg/log"
	"github.com/rubiojr/codesnippets/pkg/query"
	"github.com/rubiojr/codesnippets/pkg/version"
	"github.com/rubiojr/codesnippets/pkg/wire"
	"golang.org/x/oauth2"
)

const DefaultTimeout = 15 * time.Second

var logger = log.ForService("client")

// APIError is returned for non-success responses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: %s", http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

// Options configure a Client.
type Options struct {
	BaseURL string
	// Token is sent as a bearer token. Only the export calls need one.
	Token   string
	Timeout time.Duration
}

type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the API at opts.BaseURL.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", opts.BaseURL)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var transport http.RoundTripper = userAgentTransport{base: http.DefaultTransport}
	if opts.Token != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token, TokenType: "Bearer"}),
			Base:   transport,
		}
	}

	return &Client{
		baseURL: base.String(),
		http:    &http.Client{Timeout: timeout, Transport: transport},
	}, nil
}

type userAgentTransport struct {
	base http.RoundTripper
}

func (t userAgentTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("User-Agent", version.UserAgent())
	return t.base.RoundTrip(r)
}

// Entry is one list item of a search page. Snapshot entries leave Language
// and Tags empty.
type Entry struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Language      string    `json:"language"`
	Tags          []string  `json:"tags"`
	PublisherID   string    `json:"publisherId"`
	PublisherName string    `json:"publisherName"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Page is one decoded search page.
type Page struct {
	Kind       core.Kind
	Entries    []Entry
	Pagination wire.Pagination
}

type envelope struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message"`
	Snippets   []Entry           `json:"snippets"`
	Snapshots  []Entry           `json:"snapshots"`
	Pagination wire.Pagination `json:"pagination"`
}

// Search fetches one page. cursor is the nextCursor of the previous page,
// empty for the first one; limit 0 uses the server default.
func (c *Client) Search(ctx context.Context, kind core.Kind, q query.Query, cursor string, limit int) (*Page, error) {
	values := q.Values(cursor)
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}

	var env envelope
	if err := c.do(ctx, http.MethodGet, "/api/"+kind.String()+"/getAll?"+values.Encode(), nil, &env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, &APIError{StatusCode: http.StatusOK, Message: env.Message}
	}

	entries := env.Snippets
	if kind == core.KindSnapshots {
		entries = env.Snapshots
	}
	return &Page{Kind: kind, Entries: entries, Pagination: env.Pagination}, nil
}

// GetSnippet fetches a full snippet.
func (c *Client) GetSnippet(ctx context.Context, id string) (*core.Snippet, error) {
	var resp wire.SnippetResponse
	if err := c.do(ctx, http.MethodGet, "/api/snippets/import/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	if !resp.OK || resp.Snippet == nil {
		return nil, &APIError{StatusCode: http.StatusOK, Message: resp.Message}
	}
	return resp.Snippet, nil
}

// GetSnapshot fetches a full snapshot.
func (c *Client) GetSnapshot(ctx context.Context, id string) (*core.Snapshot, error) {
	var resp wire.SnapshotResponse
	if err := c.do(ctx, http.MethodGet, "/api/snapshots/import/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	if !resp.OK || resp.Snapshot == nil {
		return nil, &APIError{StatusCode: http.StatusOK, Message: resp.Message}
	}
	return resp.Snapshot, nil
}

// ExportSnippet uploads a snippet.
func (c *Client) ExportSnippet(ctx context.Context, req wire.ExportSnippetRequest) (*wire.ExportResponse, error) {
	var resp wire.ExportResponse
	if err := c.do(ctx, http.MethodPost, "/api/snippets/export", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ExportSnapshot uploads a snapshot.
func (c *Client) ExportSnapshot(ctx context.Context, req wire.ExportSnapshotRequest) (*wire.ExportResponse, error) {
	var resp wire.ExportResponse
	if err := c.do(ctx, http.MethodPost, "/api/snapshots/export", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logger.Debugf("%s %s", method, path)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warnf("closing response body: %v", err)
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// errorMessage extracts the message of a failure body, if any.
func errorMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	return body.Message
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}
