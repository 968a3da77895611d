// Package stt provides streaming speech-to-text for live call audio.
package stt

import "context"

// Event types emitted by the transcription stream. Anything other than a
// turn-boundary event is irrelevant to orchestration and ignored downstream.
const (
	TypeTurnInfo = "TurnInfo"

	EventStartOfTurn = "StartOfTurn"
	EventEndOfTurn   = "EndOfTurn"
)

// Event is one message from the transcription stream.
type Event struct {
	Type       string // message type; TypeTurnInfo marks turn boundaries
	Event      string // EventStartOfTurn or EventEndOfTurn when Type is TurnInfo
	Transcript string // finalized transcript, populated on EndOfTurn
}

// IsStartOfTurn reports whether the event marks the user starting to speak.
func (e Event) IsStartOfTurn() bool {
	return e.Type == TypeTurnInfo && e.Event == EventStartOfTurn
}

// IsEndOfTurn reports whether the event marks the user finishing a turn.
func (e Event) IsEndOfTurn() bool {
	return e.Type == TypeTurnInfo && e.Event == EventEndOfTurn
}

// Config describes the audio the connection will receive.
type Config struct {
	Model      string
	Encoding   string
	SampleRate int
}

// Connection is an open streaming transcription session for one call.
// Events are delivered in arrival order; the channel closes when the
// connection ends. Err reports why it ended, nil for a clean close.
type Connection interface {
	SendMedia(data []byte) error
	Events() <-chan Event
	Err() error
	Close() error
}

// Provider opens streaming transcription connections.
type Provider interface {
	Name() string
	Connect(ctx context.Context, cfg Config) (Connection, error)
}
