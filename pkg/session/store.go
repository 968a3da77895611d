package session

import "sync"

// Store maps stream IDs to live Sessions. It is the only structure with
// cross-session visibility; lookups are by stream ID only.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
	}
}

// Create registers a fresh Session for streamID. A duplicate start for an
// already-active stream re-initializes the session, discarding prior history.
func (st *Store) Create(streamID, callID, accountID string) *Session {
	sess := newSession(streamID, callID, accountID)
	st.mu.Lock()
	st.sessions[streamID] = sess
	st.mu.Unlock()
	return sess
}

// Get returns the Session for streamID, if any.
func (st *Store) Get(streamID string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	sess, ok := st.sessions[streamID]
	return sess, ok
}

// Remove drops the Session for streamID. Removing an unknown or
// already-removed stream is a no-op.
func (st *Store) Remove(streamID string) {
	st.mu.Lock()
	delete(st.sessions, streamID)
	st.mu.Unlock()
}

// Count returns the number of active sessions.
func (st *Store) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
