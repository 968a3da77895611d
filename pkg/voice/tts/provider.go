// Package tts provides streaming text-to-speech for call playback.
package tts

import "context"

// Request describes one synthesis job.
type Request struct {
	Text         string
	VoiceID      string
	ModelID      string
	OutputFormat string // e.g. "pcm_16000"
}

// Provider converts text to a stream of raw audio chunks.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// SynthesizeStream starts synthesis and returns a stream of audio
	// chunks. Chunks arrive in playback order.
	SynthesizeStream(ctx context.Context, req Request) (*Stream, error)
}

// Stream carries synthesized audio chunks. The chunks channel closes when
// synthesis completes or fails; Err distinguishes the two after close.
type Stream struct {
	chunks chan []byte
	err    error
	done   chan struct{}
}

// NewStream creates an empty stream. Used by provider implementations.
func NewStream() *Stream {
	return &Stream{
		chunks: make(chan []byte, 100),
		done:   make(chan struct{}),
	}
}

// Chunks returns the channel of audio chunks.
func (s *Stream) Chunks() <-chan []byte {
	return s.chunks
}

// Err reports why the stream ended. It blocks until the stream is done.
func (s *Stream) Err() error {
	<-s.done
	return s.err
}

// Close abandons the stream. Safe to call more than once.
func (s *Stream) Close() error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return nil
}

// SetError records the stream error. Call before finish.
func (s *Stream) SetError(err error) {
	s.err = err
}

// Send delivers a chunk to the consumer. Returns false once the stream
// has been closed.
func (s *Stream) Send(chunk []byte) bool {
	select {
	case s.chunks <- chunk:
		return true
	case <-s.done:
		return false
	}
}

// FinishSending closes the chunks channel to signal completion.
func (s *Stream) FinishSending() {
	close(s.chunks)
}
