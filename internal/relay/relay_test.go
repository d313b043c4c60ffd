// ABOUTME: Tests for the relay pipeline: conversation resolution, persistence,
// ABOUTME: prompt assembly, and frame streaming in success and failure paths.

package relay

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Paulo-Henriquee/gpt-multimodal-chatbot/internal/provider"
	"github.com/Paulo-Henriquee/gpt-multimodal-chatbot/internal/store"
)

func newTestService(t *testing.T, fake *provider.FakeClient) (*Service, *store.MockStore) {
	t.Helper()
	mock := store.NewMockStore()
	svc := New(mock, fake, slog.Default())
	return svc, mock
}

// collectFrames drains the turn's frame channel.
func collectFrames(t *testing.T, turn *Turn) []Frame {
	t.Helper()
	var frames []Frame
	timeout := time.After(5 * time.Second)
	for {
		select {
		case frame, ok := <-turn.Frames:
			if !ok {
				return frames
			}
			frames = append(frames, frame)
		case <-timeout:
			t.Fatal("timed out waiting for frames")
		}
	}
}

func TestSend_NewConversation(t *testing.T) {
	fake := &provider.FakeClient{Chunks: []string{"Hi", " there"}}
	svc, mock := newTestService(t, fake)

	turn, err := svc.Send(context.Background(), &TurnRequest{
		Text: "Hello",
		Type: store.MessageTypeText,
	})
	require.NoError(t, err)
	require.NotEmpty(t, turn.ConversationID)
	require.NotEmpty(t, turn.UserMessageID)

	frames := collectFrames(t, turn)
	require.Len(t, frames, 3)

	assert.Equal(t, FrameChunk, frames[0].Type)
	assert.Equal(t, "Hi", frames[0].Content)
	assert.Equal(t, turn.ConversationID, frames[0].ConversationID)
	assert.Equal(t, FrameChunk, frames[1].Type)
	assert.Equal(t, " there", frames[1].Content)

	done := frames[2]
	assert.Equal(t, FrameDone, done.Type)
	assert.Equal(t, turn.ConversationID, done.ConversationID)
	assert.Equal(t, turn.UserMessageID, done.MessageID)

	conv, err := mock.GetConversation(context.Background(), turn.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, "Hello", conv.Title)

	require.Len(t, conv.Messages, 2)
	assert.Equal(t, store.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, "Hello", conv.Messages[0].Content)
	assert.Equal(t, store.RoleAssistant, conv.Messages[1].Role)
	assert.Equal(t, "Hi there", conv.Messages[1].Content, "assistant message should equal chunk concatenation")
	assert.Equal(t, store.MessageTypeText, conv.Messages[1].Type)
}

func TestSend_ExistingConversation(t *testing.T) {
	fake := &provider.FakeClient{Chunks: []string{"reply"}}
	svc, mock := newTestService(t, fake)

	ctx := context.Background()
	now := time.Now()
	require.NoError(t, mock.CreateConversation(ctx, &store.Conversation{
		ID: "conv-1", Title: "Existing", CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, mock.SaveMessage(ctx, &store.Message{
		ID: "old-1", ConversationID: "conv-1", Role: store.RoleUser,
		Content: "earlier question", Type: store.MessageTypeText, CreatedAt: now,
	}))
	require.NoError(t, mock.SaveMessage(ctx, &store.Message{
		ID: "old-2", ConversationID: "conv-1", Role: store.RoleAssistant,
		Content: "earlier answer", Type: store.MessageTypeText, CreatedAt: now,
	}))

	turn, err := svc.Send(ctx, &TurnRequest{
		Text:           "follow-up",
		ConversationID: "conv-1",
		Type:           store.MessageTypeText,
	})
	require.NoError(t, err)
	assert.Equal(t, "conv-1", turn.ConversationID)
	collectFrames(t, turn)

	// Prompt: system + two history entries + current turn
	req := fake.LastRequest()
	require.NotNil(t, req)
	require.Len(t, req.Messages, 4)
	assert.Equal(t, store.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, provider.TextContent{Text: "earlier question"}, req.Messages[1].Content)
	assert.Equal(t, provider.TextContent{Text: "earlier answer"}, req.Messages[2].Content)
	assert.Equal(t, provider.TextContent{Text: "follow-up"}, req.Messages[3].Content)
}

func TestSend_UnknownConversation(t *testing.T) {
	fake := &provider.FakeClient{Chunks: []string{"reply"}}
	svc, mock := newTestService(t, fake)

	_, err := svc.Send(context.Background(), &TurnRequest{
		Text:           "Hello",
		ConversationID: "nonexistent",
		Type:           store.MessageTypeText,
	})
	assert.ErrorIs(t, err, store.ErrNotFound)

	// No messages persisted, no provider call made
	messages, err := mock.GetMessages(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Empty(t, messages)
	assert.Empty(t, fake.Requests())
}

func TestSend_ImageTurn(t *testing.T) {
	fake := &provider.FakeClient{Chunks: []string{"A cat."}}
	svc, mock := newTestService(t, fake)

	turn, err := svc.Send(context.Background(), &TurnRequest{
		Text:      "What's in this picture?",
		Type:      store.MessageTypeImage,
		ImageData: "data:image/png;base64,iVBORw0KGgo=",
	})
	require.NoError(t, err)
	collectFrames(t, turn)

	conv, err := mock.GetConversation(context.Background(), turn.ConversationID)
	require.NoError(t, err)
	require.Len(t, conv.Messages, 2)

	userMsg := conv.Messages[0]
	assert.Equal(t, store.MessageTypeImage, userMsg.Type)
	assert.Equal(t, "data:image/png;base64,iVBORw0KGgo=", userMsg.Content)
	require.NotNil(t, userMsg.Metadata)
	assert.Equal(t, "What's in this picture?", userMsg.Metadata.OriginalText)

	req := fake.LastRequest()
	require.NotNil(t, req)
	assert.Equal(t, provider.ModelVision, req.Model)
	assert.Equal(t, provider.MaxTokensImage, req.MaxTokens)

	current := req.Messages[len(req.Messages)-1]
	assert.Equal(t, provider.ImageContent{
		Text:     "What's in this picture?",
		ImageURL: "data:image/png;base64,iVBORw0KGgo=",
	}, current.Content)
}

func TestSend_TextTurnParams(t *testing.T) {
	fake := &provider.FakeClient{Chunks: []string{"ok"}}
	svc, _ := newTestService(t, fake)

	turn, err := svc.Send(context.Background(), &TurnRequest{Text: "Hello", Type: store.MessageTypeText})
	require.NoError(t, err)
	collectFrames(t, turn)

	req := fake.LastRequest()
	require.NotNil(t, req)
	assert.Equal(t, provider.ModelChat, req.Model)
	assert.Equal(t, provider.MaxTokensText, req.MaxTokens)
	assert.InDelta(t, provider.Temperature, req.Temperature, 0.001)
}

func TestSend_ProviderErrorMidStream(t *testing.T) {
	fake := &provider.FakeClient{
		Chunks: []string{"partial"},
		Err:    errors.New("rate limited"),
	}
	svc, mock := newTestService(t, fake)

	turn, err := svc.Send(context.Background(), &TurnRequest{Text: "Hello", Type: store.MessageTypeText})
	require.NoError(t, err)

	frames := collectFrames(t, turn)
	require.Len(t, frames, 2)
	assert.Equal(t, FrameChunk, frames[0].Type)
	assert.Equal(t, FrameError, frames[1].Type)
	assert.Equal(t, "Failed to generate response", frames[1].Error)

	// User message persisted, partial assistant reply discarded
	messages, err := mock.GetMessages(context.Background(), turn.ConversationID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, store.RoleUser, messages[0].Role)
}

func TestSend_ProviderStartupError(t *testing.T) {
	fake := &provider.FakeClient{StreamErr: errors.New("bad credentials")}
	svc, mock := newTestService(t, fake)

	turn, err := svc.Send(context.Background(), &TurnRequest{Text: "Hello", Type: store.MessageTypeText})
	require.NoError(t, err)

	frames := collectFrames(t, turn)
	require.Len(t, frames, 1)
	assert.Equal(t, FrameError, frames[0].Type)

	messages, err := mock.GetMessages(context.Background(), turn.ConversationID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
}

func TestSend_AssistantPersistFailure(t *testing.T) {
	fake := &provider.FakeClient{Chunks: []string{"Hi", " there"}}
	svc, mock := newTestService(t, fake)
	// Let the user message through; fail the assistant write.
	mock.FailSaveMessage = errors.New("disk full")
	mock.FailSaveMessageAfter = 1

	turn, err := svc.Send(context.Background(), &TurnRequest{Text: "Hello", Type: store.MessageTypeText})
	require.NoError(t, err)

	frames := collectFrames(t, turn)
	require.Len(t, frames, 3)
	assert.Equal(t, FrameChunk, frames[0].Type)
	assert.Equal(t, FrameChunk, frames[1].Type)
	assert.Equal(t, FrameError, frames[2].Type, "a turn whose reply was not persisted must not report done")
	assert.Equal(t, "Failed to generate response", frames[2].Error)

	// Only the user message survives
	messages, err := mock.GetMessages(context.Background(), turn.ConversationID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, store.RoleUser, messages[0].Role)
}

// stalledClient emits its chunks, then blocks Recv until the turn context is
// cancelled, mimicking a provider stream interrupted by client disconnect.
type stalledClient struct {
	chunks []string
}

func (c *stalledClient) Stream(ctx context.Context, req provider.Request) (provider.Stream, error) {
	return &stalledStream{ctx: ctx, chunks: c.chunks}, nil
}

type stalledStream struct {
	ctx    context.Context
	chunks []string
	pos    int
}

func (s *stalledStream) Recv() (string, error) {
	if s.pos < len(s.chunks) {
		chunk := s.chunks[s.pos]
		s.pos++
		return chunk, nil
	}
	<-s.ctx.Done()
	return "", s.ctx.Err()
}

func (s *stalledStream) Close() error { return nil }

func TestSend_ClientDisconnectMidStream(t *testing.T) {
	mock := store.NewMockStore()
	svc := New(mock, &stalledClient{chunks: []string{"partial"}}, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	turn, err := svc.Send(ctx, &TurnRequest{Text: "Hello", Type: store.MessageTypeText})
	require.NoError(t, err)

	// Consume the chunk that arrives before the disconnect
	select {
	case frame := <-turn.Frames:
		assert.Equal(t, FrameChunk, frame.Type)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for first chunk")
	}

	cancel()

	// The channel closes without a done or error frame
	frames := collectFrames(t, turn)
	assert.Empty(t, frames)

	// Nothing beyond the user message is persisted
	messages, err := mock.GetMessages(context.Background(), turn.ConversationID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, store.RoleUser, messages[0].Role)
}

func TestSend_UserMessagePersistFailure(t *testing.T) {
	fake := &provider.FakeClient{Chunks: []string{"reply"}}
	svc, mock := newTestService(t, fake)
	mock.FailSaveMessage = errors.New("disk full")

	_, err := svc.Send(context.Background(), &TurnRequest{Text: "Hello", Type: store.MessageTypeText})
	require.Error(t, err)
	assert.Empty(t, fake.Requests(), "provider should not be contacted when persistence fails")
}

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"short", "Hello", "Hello"},
		{"exactly 50", strings.Repeat("a", 50), strings.Repeat("a", 50)},
		{"truncated", strings.Repeat("a", 60), strings.Repeat("a", 50) + "..."},
		{"multibyte", strings.Repeat("ã", 60), strings.Repeat("ã", 50) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveTitle(tt.text))
		})
	}
}

func TestBuildPrompt_SystemFirst(t *testing.T) {
	prompt := buildPrompt(nil, &TurnRequest{Text: "Hello", Type: store.MessageTypeText})
	require.Len(t, prompt, 2)

	assert.Equal(t, store.RoleSystem, prompt[0].Role)
	text, ok := prompt[0].Content.(provider.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "português brasileiro")
}

func TestBuildPrompt_ImageHistoryDefaultsCaption(t *testing.T) {
	history := []*store.Message{
		{Role: store.RoleUser, Content: "data:image/png;base64,AAAA", Type: store.MessageTypeImage},
	}
	prompt := buildPrompt(history, &TurnRequest{Text: "and now?", Type: store.MessageTypeText})
	require.Len(t, prompt, 3)

	img, ok := prompt[1].Content.(provider.ImageContent)
	require.True(t, ok)
	assert.Equal(t, "Analyze this image", img.Text)
	assert.Equal(t, "data:image/png;base64,AAAA", img.ImageURL)
}

func TestBuildPrompt_ImageHistoryUsesStoredCaption(t *testing.T) {
	history := []*store.Message{
		{
			Role:     store.RoleUser,
			Content:  "data:image/png;base64,AAAA",
			Type:     store.MessageTypeImage,
			Metadata: &store.Metadata{OriginalText: "describe the chart"},
		},
	}
	prompt := buildPrompt(history, &TurnRequest{Text: "thanks", Type: store.MessageTypeText})

	img, ok := prompt[1].Content.(provider.ImageContent)
	require.True(t, ok)
	assert.Equal(t, "describe the chart", img.Text)
}

func TestBuildPrompt_DoesNotMutateHistory(t *testing.T) {
	history := []*store.Message{
		{Role: store.RoleUser, Content: "question", Type: store.MessageTypeText},
	}
	before := *history[0]

	_ = buildPrompt(history, &TurnRequest{Text: "next", Type: store.MessageTypeText})

	assert.Equal(t, before, *history[0])
}
