// ABOUTME: HTTP handlers for conversation management endpoints
// ABOUTME: List, create, fetch, rename, and delete conversations

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Paulo-Henriquee/gpt-multimodal-chatbot/internal/store"
)

// CreateConversationRequest is the JSON request body for POST /api/conversations.
type CreateConversationRequest struct {
	Title string `json:"title,omitempty"`
}

// UpdateConversationRequest is the JSON request body for PATCH /api/conversations/{id}.
type UpdateConversationRequest struct {
	Title string `json:"title"`
}

// handleConversations routes /api/conversations by HTTP method.
func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListConversations(w, r)
	case http.MethodPost:
		s.handleCreateConversation(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleListConversations handles GET /api/conversations.
// Returns all conversations ordered by most-recently-updated first, each with
// its most recent message and total message count.
func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.store.ListConversations(r.Context())
	if err != nil {
		s.logger.Error("failed to list conversations", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.writeJSON(w, http.StatusOK, summaries)
}

// handleCreateConversation handles POST /api/conversations.
func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	title := req.Title
	if title == "" {
		title = store.DefaultTitle
	}

	now := time.Now()
	conv := &store.Conversation{
		ID:        uuid.New().String(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []*store.Message{},
	}

	if err := s.store.CreateConversation(r.Context(), conv); err != nil {
		s.logger.Error("failed to create conversation", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.writeJSON(w, http.StatusCreated, conv)
}

// handleConversationByID routes /api/conversations/{id} by HTTP method.
func (s *Server) handleConversationByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/conversations/")
	if id == "" || strings.Contains(id, "/") {
		s.sendJSONError(w, http.StatusBadRequest, "invalid path")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetConversation(w, r, id)
	case http.MethodPatch:
		s.handleUpdateConversation(w, r, id)
	case http.MethodDelete:
		s.handleDeleteConversation(w, r, id)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleGetConversation handles GET /api/conversations/{id}.
// Returns the conversation with its full message sequence in chronological order.
func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request, id string) {
	conv, err := s.store.GetConversation(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.sendJSONError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to get conversation", "error", err, "conversation_id", id)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.writeJSON(w, http.StatusOK, conv)
}

// handleUpdateConversation handles PATCH /api/conversations/{id}.
// Updates the title and returns the conversation with its messages.
func (s *Server) handleUpdateConversation(w http.ResponseWriter, r *http.Request, id string) {
	var req UpdateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Title == "" {
		s.sendJSONError(w, http.StatusBadRequest, "title is required")
		return
	}

	err := s.store.UpdateConversationTitle(r.Context(), id, req.Title)
	if errors.Is(err, store.ErrNotFound) {
		s.sendJSONError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to update conversation", "error", err, "conversation_id", id)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	conv, err := s.store.GetConversation(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to reload conversation", "error", err, "conversation_id", id)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.writeJSON(w, http.StatusOK, conv)
}

// handleDeleteConversation handles DELETE /api/conversations/{id}.
// Removes the conversation and, transitively, all of its messages.
func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request, id string) {
	err := s.store.DeleteConversation(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.sendJSONError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to delete conversation", "error", err, "conversation_id", id)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}
