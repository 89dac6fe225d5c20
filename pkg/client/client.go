package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"convosync/pkg/models"
)

// Client is the bearer-authenticated HTTP transport for the conversation
// API. All calls are context-bound; no retries happen here, every retry is
// a new call from whatever triggered the first one.
type Client struct {
	baseURL string
	token   string
	hc      *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// New returns a Client for the given API base URL and bearer token.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		hc:      &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// GetMessages fetches one history page, newest-first. An empty cursor asks
// for the most recent page.
func (c *Client) GetMessages(ctx context.Context, conversationID string, limit int, cursor string) (models.MessagePage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	path := "/v1/conversations/" + url.PathEscape(conversationID) + "/messages"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var page models.MessagePage
	if err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, &page); err != nil {
		return models.MessagePage{}, err
	}
	return page, nil
}

// SendMessage appends a message and returns the server-persisted copy with
// its server id and timestamp.
func (c *Client) SendMessage(ctx context.Context, conversationID, content string) (models.Message, error) {
	body := struct {
		Content string `json:"content"`
	}{Content: content}
	path := "/v1/conversations/" + url.PathEscape(conversationID) + "/messages"
	var m models.Message
	if err := c.do(ctx, http.MethodPost, path, body, http.StatusCreated, &m); err != nil {
		return models.Message{}, err
	}
	return m, nil
}

// MarkRead marks every message in the conversation as read as of now. The
// endpoint is idempotent.
func (c *Client) MarkRead(ctx context.Context, conversationID string) error {
	path := "/v1/conversations/" + url.PathEscape(conversationID) + "/read"
	return c.do(ctx, http.MethodPost, path, nil, http.StatusOK, nil)
}

// CreateConversation creates a conversation with the given participants;
// the authenticated caller is always included.
func (c *Client) CreateConversation(ctx context.Context, participants []string) (models.Conversation, error) {
	body := struct {
		Participants []string `json:"participants"`
	}{Participants: participants}
	var conv models.Conversation
	if err := c.do(ctx, http.MethodPost, "/v1/conversations", body, http.StatusCreated, &conv); err != nil {
		return models.Conversation{}, err
	}
	return conv, nil
}

// ListConversations returns the caller's conversations, freshest first.
func (c *Client) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	var out struct {
		Data []models.Conversation `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/conversations", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, wantStatus int, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer res.Body.Close()

	if res.StatusCode != wantStatus {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(res.Body, 4096)).Decode(&apiErr)
		return statusError(res.StatusCode, apiErr.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: invalid response body: %v", ErrTransient, err)
	}
	return nil
}
