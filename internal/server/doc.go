// Package server exposes the chatbot over HTTP.
//
// Endpoints:
//
//	POST   /api/chat                  submit a turn, reply streamed via SSE
//	GET    /api/conversations         list conversation summaries
//	POST   /api/conversations         create an empty conversation
//	GET    /api/conversations/{id}    fetch a conversation with messages
//	PATCH  /api/conversations/{id}    rename a conversation
//	DELETE /api/conversations/{id}    delete a conversation and its messages
//	GET    /health                    liveness probe
//	GET    /health/ready              readiness probe (checks the store)
//
// The chat endpoint writes Server-Sent Events, one "data:" line per relay
// frame. Failures detected before streaming begins (validation, unknown
// conversation) are returned as ordinary JSON error responses; failures after
// the stream starts arrive in-band as error frames.
package server
