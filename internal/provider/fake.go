// ABOUTME: Scripted fake provider Client for testing
// ABOUTME: Replays configured chunks and errors without calling the OpenAI API

package provider

import (
	"context"
	"io"
	"sync"
)

// FakeClient is a scripted Client implementation for testing. Each Stream
// call replays Chunks in order, then Err (or io.EOF when Err is nil).
type FakeClient struct {
	Chunks []string
	Err    error

	// StreamErr makes Stream itself fail before any chunk is produced.
	StreamErr error

	mu       sync.Mutex
	requests []Request
}

// Stream records the request and returns a replaying stream.
func (f *FakeClient) Stream(ctx context.Context, req Request) (Stream, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.StreamErr != nil {
		return nil, f.StreamErr
	}
	return &fakeStream{chunks: f.Chunks, err: f.Err}, nil
}

// Requests returns the requests seen so far.
func (f *FakeClient) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.requests...)
}

// LastRequest returns the most recent request, or nil if none were made.
func (f *FakeClient) LastRequest() *Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	req := f.requests[len(f.requests)-1]
	return &req
}

type fakeStream struct {
	chunks []string
	err    error
	pos    int
}

func (s *fakeStream) Recv() (string, error) {
	if s.pos < len(s.chunks) {
		chunk := s.chunks[s.pos]
		s.pos++
		return chunk, nil
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

func (s *fakeStream) Close() error {
	return nil
}

var _ Client = (*FakeClient)(nil)
