// Package store provides persistent storage for conversations and messages
// using SQLite.
//
// # Architecture
//
// The package is interface-driven: the Store interface defines conversation
// and message operations, and SQLiteStore implements it on a single database
// file. Handlers and the relay depend on the interface, never on the concrete
// store.
//
// # Data Models
//
//   - Conversation: a chat thread with title and timestamps
//   - Message: a single user/assistant/system message (text, image, or audio)
//   - Metadata: optional message attributes (image caption, file info),
//     stored as a JSON column
//   - ConversationSummary: a conversation annotated with last message and
//     message count, used by list endpoints
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// Deleting a conversation cascades to its messages via ON DELETE CASCADE.
//
// # Error Handling
//
// ErrNotFound is returned when a requested entity does not exist. All methods
// accept context.Context for cancellation support.
//
// # Testing
//
// Use NewMockStore() for unit tests and NewSQLiteStore(":memory:") or a
// t.TempDir() path for integration tests with real SQLite.
package store
