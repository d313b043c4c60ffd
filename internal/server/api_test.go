// ABOUTME: Tests for the streaming chat endpoint
// ABOUTME: Covers validation, SSE frame delivery, and error responses

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Paulo-Henriquee/gpt-multimodal-chatbot/internal/config"
	"github.com/Paulo-Henriquee/gpt-multimodal-chatbot/internal/provider"
	"github.com/Paulo-Henriquee/gpt-multimodal-chatbot/internal/relay"
	"github.com/Paulo-Henriquee/gpt-multimodal-chatbot/internal/store"
)

func newTestServer(t *testing.T, chunks []string) (*Server, *store.MockStore, *provider.FakeClient) {
	t.Helper()

	mockStore := store.NewMockStore()
	fakeClient := &provider.FakeClient{Chunks: chunks}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	relaySvc := relay.New(mockStore, fakeClient, logger)

	return New(config.Default(), mockStore, relaySvc, logger), mockStore, fakeClient
}

func postChat(t *testing.T, srv *Server, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))

	req := httptest.NewRequest(http.MethodPost, "/api/chat", &buf)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

// decodeSSEFrames parses an SSE body into relay frames.
func decodeSSEFrames(t *testing.T, body string) []relay.Frame {
	t.Helper()

	var frames []relay.Frame
	for _, line := range strings.Split(body, "\n") {
		payload, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		var frame relay.Frame
		require.NoError(t, json.Unmarshal([]byte(payload), &frame))
		frames = append(frames, frame)
	}
	return frames
}

func TestHandleChat_StreamsResponse(t *testing.T) {
	srv, mockStore, _ := newTestServer(t, []string{"Olá", ", ", "mundo!"})

	rec := postChat(t, srv, map[string]string{"message": "Oi"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	frames := decodeSSEFrames(t, rec.Body.String())
	require.Len(t, frames, 4)

	var reply string
	for _, frame := range frames[:3] {
		assert.Equal(t, relay.FrameChunk, frame.Type)
		reply += frame.Content
	}
	assert.Equal(t, "Olá, mundo!", reply)

	done := frames[3]
	assert.Equal(t, relay.FrameDone, done.Type)
	assert.NotEmpty(t, done.ConversationID)
	assert.NotEmpty(t, done.MessageID)

	// The assistant reply is persisted before the done frame is emitted.
	msgs, err := mockStore.GetMessages(context.Background(), done.ConversationID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, store.RoleUser, msgs[0].Role)
	assert.Equal(t, done.MessageID, msgs[0].ID)
	assert.Equal(t, store.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Olá, mundo!", msgs[1].Content)
}

func TestHandleChat_ContinuesConversation(t *testing.T) {
	srv, mockStore, fakeClient := newTestServer(t, []string{"resposta"})

	conv := seedConversation(t, mockStore, "Histórico")
	rec := postChat(t, srv, map[string]string{
		"message":        "E agora?",
		"conversationId": conv.ID,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	frames := decodeSSEFrames(t, rec.Body.String())
	require.NotEmpty(t, frames)
	assert.Equal(t, conv.ID, frames[len(frames)-1].ConversationID)

	req := fakeClient.LastRequest()
	require.NotNil(t, req)
	// system prompt plus the new turn at minimum
	assert.GreaterOrEqual(t, len(req.Messages), 2)
}

func TestHandleChat_ValidationErrors(t *testing.T) {
	tests := []struct {
		name        string
		body        map[string]string
		detailField string
	}{
		{
			name:        "empty message",
			body:        map[string]string{"message": ""},
			detailField: "message",
		},
		{
			name:        "unknown type",
			body:        map[string]string{"message": "hi", "type": "video"},
			detailField: "type",
		},
		{
			name:        "image without data",
			body:        map[string]string{"message": "look", "type": "image"},
			detailField: "imageData",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, mockStore, _ := newTestServer(t, nil)

			rec := postChat(t, srv, tt.body)

			require.Equal(t, http.StatusBadRequest, rec.Code)

			var resp struct {
				Error   string            `json:"error"`
				Details map[string]string `json:"details"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "invalid request data", resp.Error)
			assert.Contains(t, resp.Details, tt.detailField)

			// Nothing is persisted on validation failure.
			summaries, err := mockStore.ListConversations(context.Background())
			require.NoError(t, err)
			assert.Empty(t, summaries)
		})
	}
}

func TestHandleChat_InvalidJSON(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleChat_UnknownConversation(t *testing.T) {
	srv, _, fakeClient := newTestServer(t, []string{"never"})

	rec := postChat(t, srv, map[string]string{
		"message":        "hi",
		"conversationId": "no-such-conversation",
	})

	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "conversation not found", resp["error"])
	assert.Empty(t, fakeClient.Requests())
}

func TestHandleChat_MethodNotAllowed(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleChat_ProviderErrorInBand(t *testing.T) {
	srv, _, fakeClient := newTestServer(t, nil)
	fakeClient.StreamErr = errors.New("upstream down")

	rec := postChat(t, srv, map[string]string{"message": "hi"})

	// Headers are already sent; the failure arrives as an error frame.
	require.Equal(t, http.StatusOK, rec.Code)

	frames := decodeSSEFrames(t, rec.Body.String())
	require.Len(t, frames, 1)
	assert.Equal(t, relay.FrameError, frames[0].Type)
	assert.Equal(t, "Failed to generate response", frames[0].Error)
}

func TestHandleChat_ImageTurn(t *testing.T) {
	srv, mockStore, fakeClient := newTestServer(t, []string{"Uma foto de um gato."})

	rec := postChat(t, srv, map[string]string{
		"message":   "O que é isso?",
		"type":      "image",
		"imageData": "data:image/png;base64,aGVsbG8=",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	frames := decodeSSEFrames(t, rec.Body.String())
	require.NotEmpty(t, frames)
	done := frames[len(frames)-1]
	require.Equal(t, relay.FrameDone, done.Type)

	msgs, err := mockStore.GetMessages(context.Background(), done.ConversationID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, store.MessageTypeImage, msgs[0].Type)
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", msgs[0].Content)

	req := fakeClient.LastRequest()
	require.NotNil(t, req)
	assert.Equal(t, provider.MaxTokensImage, req.MaxTokens)
}

func seedConversation(t *testing.T, s *store.MockStore, title string) *store.Conversation {
	t.Helper()

	ctx := context.Background()
	now := time.Now()
	conv := &store.Conversation{
		ID:        "conv-" + title,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.CreateConversation(ctx, conv))
	return conv
}
