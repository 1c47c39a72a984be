// Package llm provides the language-model fallback used when no curated
// answer matches. The engine treats the model as an opaque text generator
// behind the Generator interface so tests can substitute a stub.
package llm

import (
	"context"
	"errors"
)

var (
	// ErrNotConfigured signals that no API key was provided.
	ErrNotConfigured = errors.New("llm: not configured")

	// ErrUpstreamUnavailable signals a transport or provider failure, or an
	// empty completion. Callers degrade to a static contact reply instead of
	// surfacing this to users.
	ErrUpstreamUnavailable = errors.New("llm: upstream unavailable")
)

// Message is one prior conversation turn passed through to the model.
type Message struct {
	Role    string `json:"role"` // user or assistant
	Content string `json:"content"`
}

// Generator produces a reply for a user message under a fixed persona.
// history carries earlier turns of the same conversation; the engine keeps
// no memory of its own.
type Generator interface {
	GenerateReply(ctx context.Context, message string, history []Message) (string, error)
}
