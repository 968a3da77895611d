// Package agent produces assistant replies for transcribed caller turns.
package agent

import (
	"context"

	"github.com/vango-go/callbridge/pkg/session"
)

// DefaultSystemPrompt keeps replies short enough to speak.
const DefaultSystemPrompt = "You are a helpful voice assistant on a phone call. " +
	"Keep your responses concise and conversational, one to three sentences. " +
	"Do not use markdown, lists, or formatting. Speak naturally."

// Responder turns a conversation history into the next assistant reply.
// The history ends with the caller's latest turn; the system prompt is
// the implementation's concern and is never part of the history.
type Responder interface {
	Respond(ctx context.Context, history []session.Turn) (string, error)
}
