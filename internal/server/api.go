// ABOUTME: HTTP handler for the streaming chat relay endpoint
// ABOUTME: Validates requests and forwards relay frames as Server-Sent Events

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Paulo-Henriquee/gpt-multimodal-chatbot/internal/relay"
	"github.com/Paulo-Henriquee/gpt-multimodal-chatbot/internal/store"
)

// ChatRequest is the JSON request body for POST /api/chat.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId,omitempty"`
	Type           string `json:"type,omitempty"` // "text" (default) or "image"
	ImageData      string `json:"imageData,omitempty"`
}

// validationError carries per-field detail for a 400 response.
type validationError struct {
	details map[string]string
}

func (e *validationError) Error() string {
	return "invalid request data"
}

// parseChatRequest parses and validates a ChatRequest from the given reader.
// Returns a validationError with per-field detail when fields are missing or
// malformed.
func parseChatRequest(r io.Reader) (*ChatRequest, error) {
	var req ChatRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, &validationError{details: map[string]string{"body": "invalid JSON body"}}
	}

	details := make(map[string]string)

	if req.Message == "" {
		details["message"] = "message cannot be empty"
	}

	switch req.Type {
	case "":
		req.Type = store.MessageTypeText
	case store.MessageTypeText, store.MessageTypeImage:
	default:
		details["type"] = fmt.Sprintf("type must be %q or %q", store.MessageTypeText, store.MessageTypeImage)
	}

	if req.Type == store.MessageTypeImage && req.ImageData == "" {
		details["imageData"] = "imageData is required for image messages"
	}

	if len(details) > 0 {
		return nil, &validationError{details: details}
	}

	return &req, nil
}

// handleChat handles POST /api/chat requests.
// It accepts a JSON body with the message content and streams the assistant
// reply via SSE. Validation and unknown-conversation failures are detected
// before streaming begins and returned as ordinary error responses; provider
// failures after the headers are sent arrive in-band as error frames.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	req, err := parseChatRequest(r.Body)
	if err != nil {
		var vErr *validationError
		if errors.As(err, &vErr) {
			s.sendValidationError(w, vErr)
			return
		}
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Check streaming support before sending (fail fast)
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.logger.Error("streaming not supported")
		s.sendJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	turn, err := s.relay.Send(r.Context(), &relay.TurnRequest{
		Text:           req.Message,
		ConversationID: req.ConversationID,
		Type:           req.Type,
		ImageData:      req.ImageData,
	})
	if errors.Is(err, store.ErrNotFound) {
		s.sendJSONError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to start turn", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	s.streamFrames(r.Context(), w, flusher, turn.Frames)
}

// streamFrames reads from the relay frame channel and writes SSE events in
// arrival order. The channel closes after the final done or error frame.
func (s *Server) streamFrames(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, frames <-chan relay.Frame) {
	for {
		select {
		case <-ctx.Done():
			// Client disconnected; the relay abandons the provider call.
			return

		case frame, ok := <-frames:
			if !ok {
				return
			}
			s.writeSSEFrame(w, frame)
			flusher.Flush()
		}
	}
}

// writeSSEFrame writes a single frame in the wire format data: <json>\n\n.
func (s *Server) writeSSEFrame(w http.ResponseWriter, frame relay.Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		s.logger.Error("failed to marshal SSE frame", "error", err)
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// sendJSONError writes a JSON error response.
func (s *Server) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// sendValidationError writes a 400 response with per-field detail.
func (s *Server) sendValidationError(w http.ResponseWriter, vErr *validationError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   vErr.Error(),
		"details": vErr.details,
	})
}
