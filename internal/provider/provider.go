// ABOUTME: Provider-neutral types for streaming chat completions
// ABOUTME: Defines the Client/Stream interfaces and the message content union

package provider

import "context"

// Model constants for completion requests.
const (
	ModelChat   = "gpt-4o"
	ModelVision = "gpt-4o"
)

// Token budgets and sampling temperature for relay turns.
const (
	MaxTokensText  = 2000
	MaxTokensImage = 1000
	Temperature    = 0.7
)

// Content is the tagged union over message content. A message carries either
// plain text or text combined with an image payload.
type Content interface {
	isContent()
}

// TextContent is plain text message content.
type TextContent struct {
	Text string
}

func (TextContent) isContent() {}

// ImageContent is a text instruction combined with an image payload.
// ImageURL is a data URL or remote URL understood by the provider.
type ImageContent struct {
	Text     string
	ImageURL string
}

func (ImageContent) isContent() {}

// Message is a single role-tagged entry in a completion request.
type Message struct {
	Role    string // "system", "user", "assistant"
	Content Content
}

// Request describes one streaming completion invocation.
type Request struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float32
}

// Stream yields incremental text deltas in provider emission order.
// Recv returns io.EOF when the stream is complete.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Client submits role-tagged message lists to a completion service and
// streams back incremental text.
type Client interface {
	Stream(ctx context.Context, req Request) (Stream, error)
}
