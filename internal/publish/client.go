// Package publish sends a release's block forest to the backend that owns it
// and handles the local JSON export/import of the same document.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"pagebuilder/internal/domain"
)

// ErrNoEndpoint is returned when the client has no backend configured.
var ErrNoEndpoint = errors.New("publish endpoint not configured")

// SaveError is a non-2xx response from the backend.
type SaveError struct {
	Status int
	Body   string
}

func (e *SaveError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("save release: backend returned %d", e.Status)
	}
	return fmt.Sprintf("save release: backend returned %d: %s", e.Status, body)
}

// Client talks to the release REST endpoint.
type Client struct {
	endpoint string
	http     *http.Client
	headers  http.Header
	log      *zap.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default client (30s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithHeader adds a header to every request, e.g. Authorization.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers.Set(key, value) }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient builds a client for endpoint, e.g. https://api.example.com/v1.
func NewClient(endpoint string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     &http.Client{Timeout: timeout},
		headers:  http.Header{},
		log:      zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Configured reports whether an endpoint is set.
func (c *Client) Configured() bool {
	return c != nil && c.endpoint != ""
}

func (c *Client) releaseURL(id string) string {
	return c.endpoint + "/releases/" + url.PathEscape(id)
}

type savePayload struct {
	Release struct {
		ThemeSchema []domain.Block `json:"theme_schema"`
	} `json:"release"`
}

// SaveRelease PUTs the forest as release.theme_schema.
func (c *Client) SaveRelease(ctx context.Context, releaseID string, blocks []domain.Block) error {
	if !c.Configured() {
		return ErrNoEndpoint
	}
	var p savePayload
	p.Release.ThemeSchema = blocks
	if p.Release.ThemeSchema == nil {
		p.Release.ThemeSchema = []domain.Block{}
	}
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode release: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.releaseURL(releaseID), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	c.applyHeaders(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("save release: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	c.log.Debug("save release",
		zap.String("release", releaseID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &SaveError{Status: resp.StatusCode, Body: string(data)}
	}
	return nil
}

// LoadRelease fetches a release and returns its theme_schema. The backend
// may return theme_schema either as an array or as a JSON-encoded string;
// both are accepted. A missing or null schema yields an empty forest.
func (c *Client) LoadRelease(ctx context.Context, releaseID string) ([]domain.Block, error) {
	if !c.Configured() {
		return nil, ErrNoEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.releaseURL(releaseID), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	c.applyHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("load release: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("load release %s: %w", releaseID, domain.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &SaveError{Status: resp.StatusCode, Body: string(data)}
	}

	var envelope struct {
		Release *struct {
			ThemeSchema json.RawMessage `json:"theme_schema"`
		} `json:"release"`
		ThemeSchema json.RawMessage `json:"theme_schema"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode release: %w", err)
	}
	raw := envelope.ThemeSchema
	if envelope.Release != nil {
		raw = envelope.Release.ThemeSchema
	}
	return DecodeSchema(raw)
}

func (c *Client) applyHeaders(req *http.Request) {
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
}

// DecodeSchema parses a theme_schema value that is either a JSON array of
// blocks or a string holding that array.
func DecodeSchema(raw json.RawMessage) ([]domain.Block, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []domain.Block{}, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode theme_schema string: %w", err)
		}
		if strings.TrimSpace(s) == "" {
			return []domain.Block{}, nil
		}
		raw = json.RawMessage(s)
	}
	var blocks []domain.Block
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return nil, fmt.Errorf("decode theme_schema: %w", err)
	}
	if blocks == nil {
		blocks = []domain.Block{}
	}
	return blocks, nil
}
