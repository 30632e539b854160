// Package conversation holds the session chat log and its derived flags.
//
// The store is the single owner of conversation state. Components mutate it
// only through the methods here; everything else reads snapshots. There is
// no persistence: the log lives and dies with the process.
package conversation

import (
	"sync"
	"time"
)

// Store is an append-only conversation log plus derived flags.
// Safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	turns []Turn
	flags Flags

	// now is injectable for deterministic tests.
	now func() time.Time

	listenerMu sync.RWMutex
	listeners  []func()
}

// NewStore creates an empty conversation store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// NewStoreWithClock creates a store with a custom clock.
func NewStoreWithClock(now func() time.Time) *Store {
	return &Store{now: now}
}

// Append adds a turn to the log and returns it. Appends are unconditional;
// input validation (non-empty user text) belongs to the submission path.
func (s *Store) Append(kind TurnKind, text string) Turn {
	turn := Turn{Kind: kind, Text: text, CreatedAt: s.now()}

	s.mu.Lock()
	s.turns = append(s.turns, turn)
	s.mu.Unlock()

	s.notify()
	return turn
}

// Clear resets the log. Flags are untouched; an in-flight submission stays
// in flight.
func (s *Store) Clear() {
	s.mu.Lock()
	s.turns = nil
	s.mu.Unlock()

	s.notify()
}

// Turns returns a copy of the log.
func (s *Store) Turns() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of turns.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// BeginSubmission marks a chat submission in flight. It returns false when
// one is already in flight: submissions are serialized, a second submit is
// rejected rather than queued.
func (s *Store) BeginSubmission() bool {
	s.mu.Lock()
	if s.flags.Loading {
		s.mu.Unlock()
		return false
	}
	s.flags.Loading = true
	s.mu.Unlock()

	s.notify()
	return true
}

// EndSubmission marks the in-flight submission finished. Call exactly once
// per successful BeginSubmission, on both success and failure paths.
func (s *Store) EndSubmission() {
	s.mu.Lock()
	s.flags.Loading = false
	s.mu.Unlock()

	s.notify()
}

// SetListening updates the capture flag.
func (s *Store) SetListening(v bool) {
	s.setFlag(func(f *Flags) { f.Listening = v })
}

// SetSpeaking updates the output flag.
func (s *Store) SetSpeaking(v bool) {
	s.setFlag(func(f *Flags) { f.Speaking = v })
}

// Flags returns the current derived flags.
func (s *Store) Flags() Flags {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags
}

// Subscribe registers a change listener. Listeners are called after every
// mutation, outside the store lock, on the mutating goroutine.
func (s *Store) Subscribe(fn func()) {
	s.listenerMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenerMu.Unlock()
}

func (s *Store) setFlag(set func(*Flags)) {
	s.mu.Lock()
	set(&s.flags)
	s.mu.Unlock()

	s.notify()
}

func (s *Store) notify() {
	s.listenerMu.RLock()
	listeners := s.listeners
	s.listenerMu.RUnlock()
	for _, fn := range listeners {
		fn()
	}
}
