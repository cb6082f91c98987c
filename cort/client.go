package cort

import "context"

// Client is a chat-completion backend. Implementations live in the provider
// package; the set of variants is closed and one is selected at session
// construction.
//
// Call sends the ordered message sequence and resolves to the completed
// response text. When stream is true the backend may deliver the text
// incrementally to a side channel of its own, but Call still returns only
// once the stream is fully drained and concatenated; no partial text escapes.
// Failures surface as *CallError.
type Client interface {
	// Name identifies the backend in logs and sentinel error text
	// (e.g. "OpenAI", "Claude").
	Name() string

	Call(ctx context.Context, messages []Message, temperature float64, stream bool) (string, error)
}
