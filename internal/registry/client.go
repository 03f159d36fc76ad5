// Package registry talks to the global persistent-identifier registry. It
// fetches and writes full metadata documents and repairs legacy-schema
// documents when the registry's validator rejects a write.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"grobi/internal/platform/metrics"
	"grobi/pkg/platform/sentinel"
)

const mediaType = "application/vnd.api+json"

// Client is the remote metadata store. One instance is shared by a whole
// batch run; calls carry a fixed timeout through the underlying HTTP client.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures a Client instance.
type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// New constructs a registry client. Credentials are sent as HTTP basic auth
// on every request.
func New(baseURL, username, password string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("registry base URL is required")
	}
	c := &Client{
		baseURL:  baseURL,
		username: username,
		password: password,
		http:     &http.Client{Timeout: 30 * time.Second},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// ValidationError is a registry rejection of a write (HTTP 422). Title holds
// the validator's first error message, which the schema repair path matches
// against known signatures.
type ValidationError struct {
	DOI   string
	Title string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s", e.DOI, e.Title)
}

// Ping confirms the registry is reachable before a batch touches any
// identifier.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/heartbeat", nil)
	if err != nil {
		return fmt.Errorf("build heartbeat request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return c.transportError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("registry heartbeat returned HTTP %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}
	return nil
}

// Fetch retrieves the full document for one identifier. A missing identifier
// yields sentinel.ErrNotFound; rejected credentials yield
// sentinel.ErrUnauthorized so the orchestrator can abort the whole batch.
func (c *Client) Fetch(ctx context.Context, doi string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.doiURL(doi), nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", mediaType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportError(err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var envelope struct {
			Data struct {
				ID         string         `json:"id"`
				Attributes map[string]any `json:"attributes"`
			} `json:"data"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			return nil, fmt.Errorf("decode document for %s: %w", doi, err)
		}
		id := envelope.Data.ID
		if id == "" {
			id = doi
		}
		if envelope.Data.Attributes == nil {
			envelope.Data.Attributes = map[string]any{}
		}
		return &Document{DOI: id, Attributes: envelope.Data.Attributes}, nil
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("authentication failed fetching %s: %w", doi, sentinel.ErrUnauthorized)
	case http.StatusNotFound:
		return nil, fmt.Errorf("identifier %s: %w", doi, sentinel.ErrNotFound)
	default:
		return nil, fmt.Errorf("registry fetch for %s returned HTTP %d: %s", doi, resp.StatusCode, readBody(resp.Body))
	}
}

// Write replaces the full document for one identifier. When the registry
// rejects the write with a recognized legacy-schema signature the client
// repairs the document and re-issues the write exactly once; a second
// failure surfaces as ErrSchemaUpgrade.
func (c *Client) Write(ctx context.Context, doi string, doc *Document) error {
	err := c.put(ctx, doi, doc)
	if err == nil {
		return nil
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		switch {
		case isDeprecatedSchema(ve.Title):
			c.logger.Warn("deprecated schema on write, attempting automatic upgrade", "doi", doi)
			return c.repairAndRetry(ctx, doi, doc, true)
		case isMissingSchemaDeclaration(ve.Title):
			c.logger.Warn("missing schema declaration on write, attempting automatic upgrade", "doi", doi)
			return c.repairAndRetry(ctx, doi, doc, false)
		}
	}
	return err
}

func (c *Client) put(ctx context.Context, doi string, doc *Document) error {
	payload := map[string]any{
		"data": map[string]any{
			"type":       "dois",
			"attributes": doc.Attributes,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode document for %s: %w", doi, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.doiURL(doi), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build write request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", mediaType)
	req.Header.Set("Accept", mediaType)

	resp, err := c.http.Do(req)
	if err != nil {
		// A write timeout is a retryable per-identifier failure, not a
		// batch-fatal network loss.
		if isTimeout(err) {
			return fmt.Errorf("write for %s: %w", doi, sentinel.ErrTimeout)
		}
		return c.transportError(err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized:
		return fmt.Errorf("authentication failed writing %s: %w", doi, sentinel.ErrUnauthorized)
	case http.StatusForbidden:
		return fmt.Errorf("no permission to write %s (identifier may belong to another client)", doi)
	case http.StatusNotFound:
		return fmt.Errorf("identifier %s: %w", doi, sentinel.ErrNotFound)
	case http.StatusUnprocessableEntity:
		return &ValidationError{DOI: doi, Title: validationTitle(resp.Body)}
	case http.StatusTooManyRequests:
		return fmt.Errorf("registry rate limit reached writing %s", doi)
	default:
		return fmt.Errorf("registry write for %s returned HTTP %d: %s", doi, resp.StatusCode, readBody(resp.Body))
	}
}

func (c *Client) doiURL(doi string) string {
	return c.baseURL + "/dois/" + url.PathEscape(doi)
}

// transportError maps Go transport failures onto the batch error taxonomy:
// deadline overruns become ErrTimeout, everything else ErrNetwork.
func (c *Client) transportError(err error) error {
	if isTimeout(err) {
		return fmt.Errorf("registry call timed out: %w", sentinel.ErrTimeout)
	}
	return fmt.Errorf("registry unreachable: %v: %w", err, sentinel.ErrNetwork)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

// validationTitle extracts the first error title from a JSON:API error body.
func validationTitle(body io.Reader) string {
	var envelope struct {
		Errors []struct {
			Title string `json:"title"`
		} `json:"errors"`
	}
	raw, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil {
		return ""
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || len(envelope.Errors) == 0 {
		return string(raw)
	}
	return envelope.Errors[0].Title
}

func readBody(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4<<10))
	if err != nil {
		return ""
	}
	return string(raw)
}
