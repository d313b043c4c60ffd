// ABOUTME: Message relay bridging a single chat turn to the completion provider
// ABOUTME: Persists the user message, streams tokens back, then persists the reply

package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Paulo-Henriquee/gpt-multimodal-chatbot/internal/provider"
	"github.com/Paulo-Henriquee/gpt-multimodal-chatbot/internal/store"
)

// systemPrompt is prepended to every provider request. The original frontend
// targets Brazilian Portuguese users, so replies are instructed accordingly.
const systemPrompt = `Você é um assistente de IA inteligente e prestativo. Características:
- Responda sempre em português brasileiro
- Seja amigável, educado e profissional
- Forneça respostas claras e bem estruturadas
- Se não souber algo, admita honestamente
- Para análise de imagens, seja detalhado e preciso
- Mantenha o contexto da conversa`

// defaultImageInstruction is used when a stored image message has no caption.
const defaultImageInstruction = "Analyze this image"

// titleLimit is the maximum conversation title length derived from a first message.
const titleLimit = 50

// Frame type tags for the relay event stream.
const (
	FrameChunk = "chunk"
	FrameDone  = "done"
	FrameError = "error"
)

// Frame is one event in a turn's output stream.
type Frame struct {
	Type           string `json:"type"`
	Content        string `json:"content,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
	MessageID      string `json:"messageId,omitempty"`
	Error          string `json:"error,omitempty"`
}

// TurnRequest is a single user submission: text, or an image with a caption.
type TurnRequest struct {
	Text           string
	ConversationID string // empty to start a new conversation
	Type           string // store.MessageTypeText or store.MessageTypeImage
	ImageData      string // base64 data URL, required for image turns
}

// Turn is the in-flight result of a submission. Frames streams chunk frames
// in provider emission order, then exactly one done or error frame.
type Turn struct {
	ConversationID string
	UserMessageID  string
	Frames         <-chan Frame
}

// Service relays chat turns to the completion provider. The store and
// provider client are injected; the service holds no per-turn state.
type Service struct {
	store    store.Store
	provider provider.Client
	logger   *slog.Logger
}

// New creates a relay Service.
func New(s store.Store, p provider.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    s,
		provider: p,
		logger:   logger.With("component", "relay"),
	}
}

// Send runs one turn: resolve or create the conversation, persist the user
// message, then stream the provider's reply through the returned Turn.
//
// Key principle: record first, then act. The user message is saved BEFORE the
// provider is contacted, so a record exists even when the provider fails.
// Errors before streaming starts (unknown conversation, persistence failure)
// are returned directly; provider failures after that arrive as error frames.
func (s *Service) Send(ctx context.Context, req *TurnRequest) (*Turn, error) {
	conv, history, err := s.ensureConversation(ctx, req)
	if err != nil {
		return nil, err
	}

	userMsg := userMessage(conv.ID, req)
	if err := s.store.SaveMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("saving user message: %w", err)
	}

	s.logger.Debug("user message recorded",
		"conversation_id", conv.ID,
		"message_id", userMsg.ID,
		"type", userMsg.Type)

	frames := make(chan Frame, 16)
	go s.streamReply(ctx, conv.ID, userMsg.ID, buildPrompt(history, req), completionParams(req), frames)

	return &Turn{
		ConversationID: conv.ID,
		UserMessageID:  userMsg.ID,
		Frames:         frames,
	}, nil
}

// ensureConversation resolves an existing conversation or creates a new one
// titled after the first message. The returned history is the message
// sequence materialized before this turn's user message is appended.
func (s *Service) ensureConversation(ctx context.Context, req *TurnRequest) (*store.Conversation, []*store.Message, error) {
	if req.ConversationID != "" {
		conv, err := s.store.GetConversation(ctx, req.ConversationID)
		if err != nil {
			return nil, nil, err
		}
		return conv, conv.Messages, nil
	}

	now := time.Now()
	conv := &store.Conversation{
		ID:        uuid.New().String(),
		Title:     DeriveTitle(req.Text),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateConversation(ctx, conv); err != nil {
		return nil, nil, fmt.Errorf("creating conversation: %w", err)
	}
	s.logger.Debug("conversation created", "conversation_id", conv.ID, "title", conv.Title)
	return conv, nil, nil
}

// DeriveTitle builds a conversation title from the first message:
// the first 50 characters, ellipsized if truncated.
func DeriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= titleLimit {
		return text
	}
	return string(runes[:titleLimit]) + "..."
}

// userMessage builds the persisted form of the incoming turn. Image turns
// store the payload as content and keep the caption in metadata.
func userMessage(conversationID string, req *TurnRequest) *store.Message {
	msg := &store.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Role:           store.RoleUser,
		Content:        req.Text,
		Type:           req.Type,
		CreatedAt:      time.Now(),
	}
	if req.Type == store.MessageTypeImage {
		msg.Content = req.ImageData
		msg.Metadata = &store.Metadata{OriginalText: req.Text}
	}
	return msg
}

// buildPrompt maps the stored history plus the current turn to the provider
// message list. Pure transformation: fixed system instruction, then prior
// messages in chronological order, then the current turn.
func buildPrompt(history []*store.Message, req *TurnRequest) []provider.Message {
	prompt := make([]provider.Message, 0, len(history)+2)
	prompt = append(prompt, provider.Message{
		Role:    store.RoleSystem,
		Content: provider.TextContent{Text: systemPrompt},
	})

	for _, msg := range history {
		prompt = append(prompt, historyEntry(msg))
	}

	if req.Type == store.MessageTypeImage {
		prompt = append(prompt, provider.Message{
			Role:    store.RoleUser,
			Content: provider.ImageContent{Text: req.Text, ImageURL: req.ImageData},
		})
	} else {
		prompt = append(prompt, provider.Message{
			Role:    store.RoleUser,
			Content: provider.TextContent{Text: req.Text},
		})
	}

	return prompt
}

// historyEntry reconstructs one stored message into provider shape. User image
// messages become a caption + image pair, using the stored caption metadata.
func historyEntry(msg *store.Message) provider.Message {
	if msg.Type == store.MessageTypeImage && msg.Role == store.RoleUser {
		text := defaultImageInstruction
		if msg.Metadata != nil && msg.Metadata.OriginalText != "" {
			text = msg.Metadata.OriginalText
		}
		return provider.Message{
			Role:    msg.Role,
			Content: provider.ImageContent{Text: text, ImageURL: msg.Content},
		}
	}
	return provider.Message{
		Role:    msg.Role,
		Content: provider.TextContent{Text: msg.Content},
	}
}

// completionParams selects model and token budget for the turn type.
func completionParams(req *TurnRequest) provider.Request {
	if req.Type == store.MessageTypeImage {
		return provider.Request{
			Model:       provider.ModelVision,
			MaxTokens:   provider.MaxTokensImage,
			Temperature: provider.Temperature,
		}
	}
	return provider.Request{
		Model:       provider.ModelChat,
		MaxTokens:   provider.MaxTokensText,
		Temperature: provider.Temperature,
	}
}

// streamReply drives the provider stream, forwarding each chunk as a frame
// while accumulating the full reply. On clean completion the assistant
// message is persisted and a done frame is emitted; on failure an error frame
// is emitted and nothing is persisted.
func (s *Service) streamReply(ctx context.Context, conversationID, userMessageID string, prompt []provider.Message, params provider.Request, frames chan<- Frame) {
	defer close(frames)

	params.Messages = prompt
	stream, err := s.provider.Stream(ctx, params)
	if err != nil {
		s.logger.Error("provider stream failed to start", "error", err, "conversation_id", conversationID)
		s.emit(ctx, frames, Frame{Type: FrameError, Error: "Failed to generate response"})
		return
	}
	defer stream.Close()

	var fullResponse string
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Client cancellation abandons the provider call without
			// persisting a partial assistant message.
			if ctx.Err() != nil {
				s.logger.Debug("turn cancelled", "conversation_id", conversationID)
				return
			}
			s.logger.Error("provider stream failed", "error", err, "conversation_id", conversationID)
			s.emit(ctx, frames, Frame{Type: FrameError, Error: "Failed to generate response"})
			return
		}

		fullResponse += chunk
		if !s.emit(ctx, frames, Frame{Type: FrameChunk, Content: chunk, ConversationID: conversationID}) {
			return
		}
	}

	// The reply must be durable before the turn is reported complete.
	if err := s.saveAssistantMessage(conversationID, fullResponse); err != nil {
		s.emit(ctx, frames, Frame{Type: FrameError, Error: "Failed to generate response"})
		return
	}
	s.emit(ctx, frames, Frame{
		Type:           FrameDone,
		ConversationID: conversationID,
		MessageID:      userMessageID,
	})
}

// emit forwards a frame unless the turn is cancelled. Returns false when the
// caller should stop streaming.
func (s *Service) emit(ctx context.Context, frames chan<- Frame, frame Frame) bool {
	select {
	case frames <- frame:
		return true
	case <-ctx.Done():
		return false
	}
}

// saveAssistantMessage persists the accumulated reply with a separate timeout
// context, so the write survives request cancellation racing stream completion.
func (s *Service) saveAssistantMessage(conversationID, content string) error {
	saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msg := &store.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Role:           store.RoleAssistant,
		Content:        content,
		Type:           store.MessageTypeText,
		CreatedAt:      time.Now(),
	}
	if err := s.store.SaveMessage(saveCtx, msg); err != nil {
		s.logger.Error("failed to save assistant message",
			"error", err,
			"conversation_id", conversationID,
			"message_id", msg.ID)
		return fmt.Errorf("saving assistant message: %w", err)
	}
	s.logger.Debug("assistant message saved",
		"conversation_id", conversationID,
		"message_id", msg.ID,
		"length", len(content))
	return nil
}
