// Package telephony is the media-stream surface toward the carrier.
package telephony

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/vango-go/callbridge/pkg/telephony/protocol"
)

// Conn is the subset of a websocket connection the leg needs. Satisfied by
// *websocket.Conn; tests substitute fakes.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Leg is one bidirectional media stream for a call. Inbound frames are
// decoded and delivered on Events; outbound audio and control frames go
// through the Send methods, serialized by a write mutex.
type Leg struct {
	conn   Conn
	logger *slog.Logger

	writeMu sync.Mutex
	closed  atomic.Bool

	streamMu sync.Mutex
	streamID string

	events chan any
	errMu  sync.Mutex
	err    error
}

func NewLeg(conn Conn, logger *slog.Logger) *Leg {
	if logger == nil {
		logger = slog.Default()
	}
	return &Leg{
		conn:   conn,
		logger: logger,
		events: make(chan any, 64),
	}
}

// Run reads inbound frames until the connection ends, then closes Events.
// Malformed frames are logged and skipped.
func (l *Leg) Run() {
	defer close(l.events)

	for {
		_, data, err := l.conn.ReadMessage()
		if err != nil {
			if !l.closed.Load() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				l.setErr(err)
			}
			return
		}

		event, err := protocol.DecodeEvent(data)
		if err != nil {
			l.logger.Warn("dropping malformed telephony frame", "error", err)
			continue
		}

		if start, ok := event.(protocol.StartEvent); ok {
			l.streamMu.Lock()
			l.streamID = start.Start.StreamID
			l.streamMu.Unlock()
		}

		l.events <- event
	}
}

// Events returns decoded inbound events in arrival order. The channel
// closes when the connection ends; Err reports why.
func (l *Leg) Events() <-chan any {
	return l.events
}

// StreamID returns the stream named by the start event, empty before it.
func (l *Leg) StreamID() string {
	l.streamMu.Lock()
	defer l.streamMu.Unlock()
	return l.streamID
}

// Err reports why the read loop ended, nil for a clean close.
func (l *Leg) Err() error {
	l.errMu.Lock()
	defer l.errMu.Unlock()
	return l.err
}

func (l *Leg) setErr(err error) {
	l.errMu.Lock()
	if l.err == nil {
		l.err = err
	}
	l.errMu.Unlock()
}

// SendMedia sends one frame of audio for playback on the call.
func (l *Leg) SendMedia(audio []byte, contentType string, sampleRate int) error {
	data, err := protocol.EncodePlayAudio(audio, contentType, sampleRate)
	if err != nil {
		return err
	}
	return l.write(data)
}

// SendCheckpoint asks the carrier to confirm, via a playedStream event,
// when all audio queued before this point has played.
func (l *Leg) SendCheckpoint(name string) error {
	data, err := protocol.EncodeCheckpoint(l.StreamID(), name)
	if err != nil {
		return err
	}
	return l.write(data)
}

// SendClearAudio flushes any audio still buffered on the carrier side.
func (l *Leg) SendClearAudio() error {
	data, err := protocol.EncodeClearAudio(l.StreamID())
	if err != nil {
		return err
	}
	return l.write(data)
}

func (l *Leg) write(data []byte) error {
	if l.closed.Load() {
		return fmt.Errorf("telephony leg closed")
	}
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	return l.conn.WriteMessage(websocket.TextMessage, data)
}

// Close shuts the underlying connection. Safe to call more than once.
func (l *Leg) Close() error {
	if l.closed.Swap(true) {
		return nil
	}
	return l.conn.Close()
}
