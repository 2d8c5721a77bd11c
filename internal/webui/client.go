// Package webui is a small client for the chat-history backend. It
// covers only the review endpoints the terminal UI needs: faceted
// search, chat lookup, AI summaries, study annotations, and the
// mistake book.
package webui

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

	"github.com/csheth/studyscout/internal/facet"
)

// defaultHTTPTimeout caps a single request when no custom client is
// supplied. Summaries run through an LLM on the server, so the cap is
// generous; callers bound individual requests with their context.
const defaultHTTPTimeout = 2 * time.Minute

// Config describes how to reach the backend.
type Config struct {
	// BaseURL is the server root, e.g. "http://localhost:8080".
	BaseURL string
	// Token is sent as a bearer token when non-empty.
	Token string
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
	// Logger receives request-level debug output. Nil means silent.
	Logger *zap.Logger
}

// Client talks to the backend's chat review API.
type Client struct {
	base  string
	token string
	http  *http.Client
	log   *zap.Logger
}

// New validates the config and returns a ready client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("webui: base URL is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		base:  strings.TrimRight(cfg.BaseURL, "/") + "/api/v1/chats",
		token: cfg.Token,
		http:  httpClient,
		log:   logger,
	}, nil
}

// Statistics fetches the known facet values and the total chat count.
func (c *Client) Statistics(ctx context.Context) (Statistics, error) {
	var stats Statistics
	err := c.getJSON(ctx, "/statistics", &stats)
	return stats, err
}

// SearchChats runs a faceted search. An empty criteria returns every
// chat. Results arrive sorted by update time, newest first.
func (c *Client) SearchChats(ctx context.Context, criteria facet.Criteria) ([]Chat, error) {
	body := make(map[string]any, len(criteria))
	for name, value := range criteria {
		if value.Many != nil {
			body[name] = value.Many
		} else {
			body[name] = value.One
		}
	}
	var chats []Chat
	if err := c.postJSON(ctx, "/search", body, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

// GetChat fetches one chat with its full transcript.
func (c *Client) GetChat(ctx context.Context, id string) (Chat, error) {
	var chat Chat
	err := c.getJSON(ctx, "/"+url.PathEscape(id), &chat)
	return chat, err
}

// Summarize asks the backend to generate a subject, knowledge points,
// and a prose summary for the chat. This can take a while; bound it
// with the context.
func (c *Client) Summarize(ctx context.Context, id string) (Summary, error) {
	var summary Summary
	err := c.postJSON(ctx, "/"+url.PathEscape(id)+"/summarize", nil, &summary)
	return summary, err
}

// UpdateSummary stores edited study annotations and returns the
// updated chat. Tags are normalized the way the backend stores them
// so the caller sees the canonical form immediately.
func (c *Client) UpdateSummary(ctx context.Context, id string, form SummaryForm) (Chat, error) {
	if form.Tags != nil {
		normalized := normalizeTags(*form.Tags)
		form.Tags = &normalized
	}
	var chat Chat
	err := c.postJSON(ctx, "/"+url.PathEscape(id)+"/summary", form, &chat)
	return chat, err
}

// ToggleMistake flips the chat's mistake flag and returns the updated
// chat. The backend also bumps the chat's update time.
func (c *Client) ToggleMistake(ctx context.Context, id string) (Chat, error) {
	var chat Chat
	err := c.postJSON(ctx, "/"+url.PathEscape(id)+"/mistake", nil, &chat)
	return chat, err
}

// MistakeChats lists every chat flagged as a mistake, newest first.
func (c *Client) MistakeChats(ctx context.Context) ([]Chat, error) {
	var chats []Chat
	if err := c.getJSON(ctx, "/mistakes", &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

// SubjectStatistics aggregates chats per subject for the progress
// table. Chats without a subject land in the backend's catch-all
// bucket; the key is passed through untranslated.
func (c *Client) SubjectStatistics(ctx context.Context) (map[string]SubjectStats, error) {
	stats := make(map[string]SubjectStats)
	if err := c.getJSON(ctx, "/statistics/subjects", &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// NormalizeTag converts a tag to the backend's canonical form:
// lower-cased with spaces replaced by underscores.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(tag), " ", "_"))
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		normalized := NormalizeTag(tag)
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		out = append(out, normalized)
	}
	return out
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.log.Debug("webui request",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn("webui request failed",
			zap.String("url", req.URL.String()),
			zap.String("status", resp.Status),
		)
		return fmt.Errorf("webui API error: %s (%s)", resp.Status, string(body))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding webui response: %w", err)
	}
	return nil
}
