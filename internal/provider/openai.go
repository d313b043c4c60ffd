// ABOUTME: OpenAI implementation of the provider Client interface
// ABOUTME: Wraps go-openai streaming chat completions including vision content

package provider

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient implements Client using the OpenAI chat completions API.
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient creates a client for the OpenAI API.
// An optional baseURL overrides the default endpoint (useful for proxies).
func NewOpenAIClient(apiKey, baseURL string) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(config),
	}
}

// Stream starts a streaming chat completion for the given request.
func (c *OpenAIClient) Stream(ctx context.Context, req Request) (Stream, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    toOpenAIMessages(req.Messages),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating completion stream: %w", err)
	}
	return &openAIStream{stream: stream}, nil
}

// toOpenAIMessages converts provider messages to the go-openai wire shape.
// Text content becomes a plain role/content message; image content becomes a
// multi-part message with a text part and an image_url part.
func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		switch content := m.Content.(type) {
		case TextContent:
			result = append(result, openai.ChatCompletionMessage{
				Role:    m.Role,
				Content: content.Text,
			})
		case ImageContent:
			result = append(result, openai.ChatCompletionMessage{
				Role: m.Role,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: content.Text,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: content.ImageURL,
						},
					},
				},
			})
		}
	}
	return result
}

// openAIStream adapts the go-openai stream to the Stream interface.
type openAIStream struct {
	stream *openai.ChatCompletionStream
}

// Recv returns the next non-empty text delta, or io.EOF when done.
// Empty deltas (role-only or finish chunks) are skipped.
func (s *openAIStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if content := resp.Choices[0].Delta.Content; content != "" {
			return content, nil
		}
	}
}

// Close releases the underlying HTTP response.
func (s *openAIStream) Close() error {
	s.stream.Close()
	return nil
}

var _ Client = (*OpenAIClient)(nil)
