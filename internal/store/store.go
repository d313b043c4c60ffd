// ABOUTME: Store interface and data types for chatbot persistence
// ABOUTME: Defines Conversation, Message structs and the Store interface for database operations

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// Role constants for message authorship
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// MessageType constants for message content types
const (
	MessageTypeText  = "text"  // Plain text message
	MessageTypeImage = "image" // Base64 image payload with caption metadata
	MessageTypeAudio = "audio" // Audio payload (reserved)
)

// DefaultTitle is used when a conversation is created without one.
const DefaultTitle = "New Conversation"

// Conversation represents a chat conversation with its ordered message history.
// Messages is populated only by GetConversation; list operations return summaries.
type Conversation struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Messages  []*Message `json:"messages"`
}

// Metadata carries optional attributes of a message.
// For user image messages, OriginalText holds the caption that accompanied the upload.
type Metadata struct {
	OriginalText string `json:"originalText,omitempty"`
	FileName     string `json:"fileName,omitempty"`
	FileSize     int64  `json:"fileSize,omitempty"`
	MimeType     string `json:"mimeType,omitempty"`
}

// Message represents a single message within a conversation.
// For image messages the content is the base64 image payload and the
// caption lives in Metadata.OriginalText.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Role           string    `json:"role"` // "user", "assistant", "system"
	Content        string    `json:"content"`
	Type           string    `json:"type"` // "text", "image", "audio"
	Metadata       *Metadata `json:"metadata,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ConversationSummary is a conversation annotated with its most recent
// message and total message count, as returned by ListConversations.
type ConversationSummary struct {
	Conversation
	LastMessage  *Message `json:"lastMessage,omitempty"`
	MessageCount int      `json:"messageCount"`
}

// Store defines the interface for conversation and message persistence
type Store interface {
	// Conversations
	CreateConversation(ctx context.Context, conv *Conversation) error
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	ListConversations(ctx context.Context) ([]*ConversationSummary, error)
	UpdateConversationTitle(ctx context.Context, id, title string) error
	DeleteConversation(ctx context.Context, id string) error

	// Messages
	SaveMessage(ctx context.Context, msg *Message) error
	GetMessages(ctx context.Context, conversationID string) ([]*Message, error)

	// Close releases any resources held by the store
	Close() error
}
