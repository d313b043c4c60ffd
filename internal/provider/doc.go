// Package provider wraps the remote streaming completion service.
//
// The Client interface accepts a role-tagged message list and yields a
// Stream of incremental text deltas in emission order. Message content is a
// tagged union: TextContent for plain text, ImageContent for a caption
// combined with an image payload (sent to the provider as a text part plus
// an image_url part).
//
// OpenAIClient is the production implementation over the go-openai SDK.
// FakeClient replays scripted chunks for tests. Both are injected into the
// relay; nothing in this package holds process-wide state.
package provider
