// ABOUTME: Tests keeping MockStore behavior aligned with the SQLite implementation
// ABOUTME: Covers updated_at bumping and the resulting list ordering

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockStore_UpdateTitleBumpsUpdatedAt(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	require.NoError(t, m.CreateConversation(ctx, &Conversation{
		ID: "conv-1", Title: "old", CreatedAt: past, UpdatedAt: past,
	}))

	require.NoError(t, m.UpdateConversationTitle(ctx, "conv-1", "new"))

	conv, err := m.GetConversation(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "new", conv.Title)
	assert.True(t, conv.UpdatedAt.After(past), "rename should bump updated_at")
}

func TestMockStore_RenameMovesConversationToFront(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	require.NoError(t, m.CreateConversation(ctx, &Conversation{
		ID: "conv-old", Title: "old", CreatedAt: base, UpdatedAt: base,
	}))
	require.NoError(t, m.CreateConversation(ctx, &Conversation{
		ID: "conv-recent", Title: "recent", CreatedAt: base.Add(time.Minute), UpdatedAt: base.Add(time.Minute),
	}))

	require.NoError(t, m.UpdateConversationTitle(ctx, "conv-old", "renamed"))

	summaries, err := m.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "conv-old", summaries[0].ID, "renamed conversation should list first")
}
