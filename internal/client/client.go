// ABOUTME: HTTP client for the chatbot API
// ABOUTME: Wraps conversation management endpoints with typed requests and responses

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Paulo-Henriquee/gpt-multimodal-chatbot/internal/store"
)

// ErrNotFound indicates the requested conversation does not exist on the server.
var ErrNotFound = errors.New("not found")

// Client talks to a chatbot server over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client for the given base URL, e.g. "http://localhost:8080".
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewWithHTTPClient creates a Client with a caller-provided http.Client.
// Use this to disable the default timeout for long-lived streams.
func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// ListConversations fetches all conversation summaries, most recent first.
func (c *Client) ListConversations(ctx context.Context) ([]*store.ConversationSummary, error) {
	var summaries []*store.ConversationSummary
	if err := c.doJSON(ctx, http.MethodGet, "/api/conversations", nil, &summaries); err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	return summaries, nil
}

// GetConversation fetches a conversation with its full message history.
func (c *Client) GetConversation(ctx context.Context, id string) (*store.Conversation, error) {
	var conv store.Conversation
	if err := c.doJSON(ctx, http.MethodGet, "/api/conversations/"+id, nil, &conv); err != nil {
		return nil, fmt.Errorf("fetching conversation: %w", err)
	}
	return &conv, nil
}

// CreateConversation creates a new conversation. An empty title gets the
// server default.
func (c *Client) CreateConversation(ctx context.Context, title string) (*store.Conversation, error) {
	body := map[string]string{}
	if title != "" {
		body["title"] = title
	}

	var conv store.Conversation
	if err := c.doJSON(ctx, http.MethodPost, "/api/conversations", body, &conv); err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}
	return &conv, nil
}

// UpdateConversationTitle renames a conversation and returns the updated record.
func (c *Client) UpdateConversationTitle(ctx context.Context, id, title string) (*store.Conversation, error) {
	var conv store.Conversation
	if err := c.doJSON(ctx, http.MethodPatch, "/api/conversations/"+id, map[string]string{"title": title}, &conv); err != nil {
		return nil, fmt.Errorf("updating conversation: %w", err)
	}
	return &conv, nil
}

// DeleteConversation removes a conversation and all of its messages.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/api/conversations/"+id, nil, nil); err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}
	return nil
}

// doJSON performs a JSON request and decodes the response into out (when
// non-nil). Non-2xx responses become errors carrying the server's message.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.responseError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// responseError turns a non-2xx response into an error, preserving the
// server's error message when the body is parseable.
func (c *Client) responseError(resp *http.Response) error {
	var apiErr struct {
		Error string `json:"error"`
	}
	message := resp.Status
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
		message = apiErr.Error
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", message, ErrNotFound)
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, message)
}
