// Package relay bridges one chat turn to the completion provider.
//
// A turn is one user submission and its resulting assistant reply. Send runs
// a strict sequential pipeline:
//
//  1. Resolve or create the conversation (new ones are titled after the
//     first message).
//  2. Persist the user message before contacting the provider.
//  3. Build the provider message list from stored history (pure
//     transformation, system instruction first).
//  4. Stream the completion, forwarding each chunk as a Frame in emission
//     order while accumulating the full text.
//  5. Persist the assistant message and emit a done frame, or emit an error
//     frame and persist nothing if the provider fails mid-stream.
//
// The frame channel closes after the final done or error frame. If the
// caller's context is cancelled mid-stream, the provider call is abandoned
// and no assistant message is persisted; the user message is never rolled
// back.
package relay
