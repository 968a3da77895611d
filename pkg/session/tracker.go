package session

import (
	"context"
	"sync"
)

// Tracker follows live call connections so shutdown can cancel them and wait
// for their goroutines to drain. It is keyed by connection, not by stream:
// a connection exists (and must be cancellable) before its start event names
// a stream.
type Tracker struct {
	mu    sync.Mutex
	conns map[string]*trackedConn
	wg    sync.WaitGroup
}

type trackedConn struct {
	cancel context.CancelFunc
	once   sync.Once
}

func NewTracker() *Tracker {
	return &Tracker{
		conns: make(map[string]*trackedConn),
	}
}

// Register records the cancel handle for a connection and returns its
// unregister func. Registering the same ID again cancels and replaces the
// previous entry.
func (t *Tracker) Register(connID string, cancel context.CancelFunc) (unregister func()) {
	entry := &trackedConn{cancel: cancel}

	t.mu.Lock()
	old := t.conns[connID]
	t.conns[connID] = entry
	t.wg.Add(1)
	t.mu.Unlock()

	if old != nil {
		if old.cancel != nil {
			old.cancel()
		}
		t.unregister(connID, old)
	}

	return func() { t.unregister(connID, entry) }
}

func (t *Tracker) unregister(connID string, entry *trackedConn) {
	entry.once.Do(func() {
		t.mu.Lock()
		if t.conns[connID] == entry {
			delete(t.conns, connID)
		}
		t.mu.Unlock()
		t.wg.Done()
	})
}

// Count returns the number of tracked connections.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}

// CancelAll cancels every tracked connection and returns how many it hit.
func (t *Tracker) CancelAll() (canceled int) {
	var cancels []context.CancelFunc
	t.mu.Lock()
	for _, entry := range t.conns {
		if entry.cancel != nil {
			cancels = append(cancels, entry.cancel)
		}
	}
	t.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
		canceled++
	}
	return canceled
}

// Wait blocks until every tracked connection has unregistered, or ctx ends.
// Returns false if the context expired first.
func (t *Tracker) Wait(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		defer close(done)
		t.wg.Wait()
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
