// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation // keyed by conversation ID
	messages      map[string][]*Message    // keyed by conversation ID

	// FailSaveMessage makes SaveMessage return this error when set.
	// FailSaveMessageAfter lets that many calls succeed before failing,
	// so tests can target the assistant write specifically.
	FailSaveMessage      error
	FailSaveMessageAfter int

	saveMessageCalls int
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		conversations: make(map[string]*Conversation),
		messages:      make(map[string][]*Message),
	}
}

// CreateConversation stores a new conversation.
func (m *MockStore) CreateConversation(ctx context.Context, conv *Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Make a copy to avoid external modification
	c := *conv
	c.Messages = nil
	m.conversations[c.ID] = &c

	return nil
}

// GetConversation retrieves a conversation by ID with its messages.
func (m *MockStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}

	// Return a copy
	result := *c
	result.Messages = m.copyMessages(id)
	return &result, nil
}

// ListConversations returns all conversations ordered by updated_at descending.
func (m *MockStore) ListConversations(ctx context.Context) ([]*ConversationSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summaries := make([]*ConversationSummary, 0, len(m.conversations))
	for id, c := range m.conversations {
		summary := &ConversationSummary{Conversation: *c}
		summary.Messages = []*Message{}
		msgs := m.messages[id]
		summary.MessageCount = len(msgs)
		if len(msgs) > 0 {
			last := *msgs[len(msgs)-1]
			summary.LastMessage = &last
		}
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})

	return summaries, nil
}

// UpdateConversationTitle updates a conversation's title and bumps updated_at,
// matching the SQLite implementation.
func (m *MockStore) UpdateConversationTitle(ctx context.Context, id, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.conversations[id]
	if !ok {
		return ErrNotFound
	}
	c.Title = title
	c.UpdatedAt = time.Now()
	return nil
}

// DeleteConversation removes a conversation and its messages.
func (m *MockStore) DeleteConversation(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conversations[id]; !ok {
		return ErrNotFound
	}
	delete(m.conversations, id)
	delete(m.messages, id)
	return nil
}

// SaveMessage appends a message to a conversation and bumps updated_at.
func (m *MockStore) SaveMessage(ctx context.Context, msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSaveMessage != nil && m.saveMessageCalls >= m.FailSaveMessageAfter {
		return m.FailSaveMessage
	}
	m.saveMessageCalls++

	msgCopy := *msg
	m.messages[msg.ConversationID] = append(m.messages[msg.ConversationID], &msgCopy)

	if c, ok := m.conversations[msg.ConversationID]; ok {
		c.UpdatedAt = msg.CreatedAt
	}
	return nil
}

// GetMessages returns all messages for a conversation in insertion order.
func (m *MockStore) GetMessages(ctx context.Context, conversationID string) ([]*Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.copyMessages(conversationID), nil
}

// copyMessages returns copies of a conversation's messages. Caller must hold the lock.
func (m *MockStore) copyMessages(conversationID string) []*Message {
	msgs := m.messages[conversationID]
	result := make([]*Message, 0, len(msgs))
	for _, msg := range msgs {
		msgCopy := *msg
		result = append(result, &msgCopy)
	}
	return result
}

// Close is a no-op for the mock store.
func (m *MockStore) Close() error {
	return nil
}
