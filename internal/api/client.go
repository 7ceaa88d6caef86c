// Package api implements the REST client for the remote draft backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/draftforge/draftforge/internal"
	"github.com/draftforge/draftforge/internal/util"
	"github.com/shopmonkeyus/go-common/logger"
)

// envelope is the standard response wrapper the backend uses for every
// endpoint.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client talks to the remote backend over HTTP. Reads are retried on
// transient failures; writes are sent exactly once.
type Client struct {
	logger     logger.Logger
	apiURL     string
	session    *Session
	httpClient *http.Client
}

var _ internal.Client = (*Client)(nil)

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the http client, mainly for tests.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a backend client bound to a session.
func NewClient(logger logger.Logger, apiURL string, session *Session, opts ...ClientOption) *Client {
	c := &Client{
		logger:     logger.WithPrefix("[api]"),
		apiURL:     apiURL,
		session:    session,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListSetups returns all setups visible to the session.
func (c *Client) ListSetups(ctx context.Context) ([]internal.Setup, error) {
	var setups []internal.Setup
	if err := c.get(ctx, "/api/setups", &setups); err != nil {
		return nil, fmt.Errorf("error listing setups: %w", err)
	}
	return setups, nil
}

// ListSchemas returns all schemas owned by a setup.
func (c *Client) ListSchemas(ctx context.Context, setupID string) ([]internal.Schema, error) {
	var schemas []internal.Schema
	if err := c.get(ctx, "/api/setups/"+setupID+"/schemas", &schemas); err != nil {
		return nil, fmt.Errorf("error listing schemas for setup %s: %w", setupID, err)
	}
	return schemas, nil
}

// ListDrafts returns all drafts owned by a setup.
func (c *Client) ListDrafts(ctx context.Context, setupID string) ([]internal.Draft, error) {
	var drafts []internal.Draft
	if err := c.get(ctx, "/api/setups/"+setupID+"/drafts", &drafts); err != nil {
		return nil, fmt.Errorf("error listing drafts for setup %s: %w", setupID, err)
	}
	return drafts, nil
}

// CreateDraft creates a new draft in a setup.
func (c *Client) CreateDraft(ctx context.Context, setupID string, input internal.DraftInput) (*internal.Draft, error) {
	var draft internal.Draft
	if err := c.send(ctx, "POST", "/api/setups/"+setupID+"/drafts", input, &draft); err != nil {
		return nil, fmt.Errorf("error creating draft in setup %s: %w", setupID, err)
	}
	return &draft, nil
}

// UpdateDraft replaces the content of an existing draft.
func (c *Client) UpdateDraft(ctx context.Context, draftID string, content string) (*internal.Draft, error) {
	var draft internal.Draft
	body := map[string]string{"content": content}
	if err := c.send(ctx, "PUT", "/api/drafts/"+draftID, body, &draft); err != nil {
		return nil, fmt.Errorf("error updating draft %s: %w", draftID, err)
	}
	return &draft, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.apiURL+path, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	c.authorize(req)
	retry := util.NewHTTPRetry(req, util.WithLogger(c.logger), util.WithHTTPClient(c.httpClient))
	resp, err := retry.Do()
	if err != nil {
		return fmt.Errorf("error sending request: %w", err)
	}
	return c.decode(resp, out)
}

func (c *Client) send(ctx context.Context, method string, path string, body any, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, bytes.NewBufferString(util.JSONStringify(body)))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request: %w", err)
	}
	return c.decode(resp, out)
}

func (c *Client) authorize(req *http.Request) {
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (c *Client) decode(resp *http.Response, out any) error {
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		// drop the token so the caller can re-authenticate instead of
		// hammering the backend with a dead session
		c.session.Clear()
		return internal.ErrUnauthorized
	}
	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(buf, &env); err != nil {
		return fmt.Errorf("error decoding response: status code was: %d, %s", resp.StatusCode, string(buf))
	}
	if resp.StatusCode != http.StatusOK || !env.Success {
		if env.Message != "" {
			return fmt.Errorf("request failed: %s", env.Message)
		}
		return fmt.Errorf("request failed: status code was: %d", resp.StatusCode)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("error decoding response data: %w", err)
		}
	}
	return nil
}
