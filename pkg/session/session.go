// Package session owns per-call conversation state: one Session per active
// call-stream, held in a process-wide Store keyed by stream ID.
package session

import "sync"

// HistoryCap bounds conversation history at 10 user/assistant pairs.
const HistoryCap = 20

// Role identifies which side of the conversation produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one utterance in the conversation. Immutable once appended.
type Turn struct {
	Role    Role
	Content string
}

// Session is the live state for one active call-stream. It exclusively owns
// its history and playback flag; nothing outside this type mutates them.
type Session struct {
	StreamID  string
	CallID    string
	AccountID string

	mu             sync.Mutex
	history        []Turn
	playbackActive bool
}

func newSession(streamID, callID, accountID string) *Session {
	return &Session{
		StreamID:  streamID,
		CallID:    callID,
		AccountID: accountID,
		history:   make([]Turn, 0, HistoryCap),
	}
}

// AppendUser appends a user turn and enforces the history cap.
func (s *Session) AppendUser(text string) {
	s.append(Turn{Role: RoleUser, Content: text})
}

// AppendAssistant appends an assistant turn and enforces the history cap.
func (s *Session) AppendAssistant(text string) {
	s.append(Turn{Role: RoleAssistant, Content: text})
}

func (s *Session) append(turn Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, turn)
	if excess := len(s.history) - HistoryCap; excess > 0 {
		s.history = append(s.history[:0], s.history[excess:]...)
	}
}

// History returns a snapshot of the conversation in insertion order.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.history))
	copy(out, s.history)
	return out
}

// HistoryLen returns the current number of turns.
func (s *Session) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// PlaybackActive reports whether a reply is currently being played out.
func (s *Session) PlaybackActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playbackActive
}

// SetPlaybackActive records whether outbound audio is playing.
func (s *Session) SetPlaybackActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playbackActive = active
}
