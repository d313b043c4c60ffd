// ABOUTME: Streaming chat support for the API client
// ABOUTME: Sends a chat turn and decodes the SSE frame stream into callbacks

package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// ChatRequest is one turn submitted to the chat endpoint.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId,omitempty"`
	Type           string `json:"type,omitempty"`
	ImageData      string `json:"imageData,omitempty"`
}

// StreamHandler receives decoded frames from a chat stream. Any nil callback
// is skipped.
type StreamHandler struct {
	OnChunk func(content string)
	OnDone  func(conversationID, messageID string)
	OnError func(message string)
}

// frame mirrors the server's SSE payload.
type frame struct {
	Type           string `json:"type"`
	Content        string `json:"content"`
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	Error          string `json:"error"`
}

// SendMessage submits a chat turn and returns the raw SSE stream. The caller
// must close the returned body, typically after draining it with ProcessStream.
func (c *Client) SendMessage(ctx context.Context, chatReq *ChatRequest) (io.ReadCloser, error) {
	data, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("encoding chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("building chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, c.responseError(resp)
	}

	return resp.Body, nil
}

// ProcessStream reads an SSE stream until it ends, dispatching each frame to
// the handler. Lines that are not valid frames are skipped silently, matching
// the tolerant behavior expected of SSE consumers.
func ProcessStream(r io.Reader, handler StreamHandler) error {
	scanner := bufio.NewScanner(r)
	// Chunks carrying image analysis can get long
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		payload, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}

		var f frame
		if err := json.Unmarshal([]byte(payload), &f); err != nil {
			continue
		}

		switch f.Type {
		case "chunk":
			if handler.OnChunk != nil {
				handler.OnChunk(f.Content)
			}
		case "done":
			if handler.OnDone != nil {
				handler.OnDone(f.ConversationID, f.MessageID)
			}
		case "error":
			if handler.OnError != nil {
				handler.OnError(f.Error)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading stream: %w", err)
	}
	return nil
}

// ImageToDataURL reads an image file and encodes it as a base64 data URL
// suitable for the imageData field of a chat request.
func ImageToDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading image: %w", err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data)), nil
}
