package speech

import (
	"errors"
	"sync"
)

// ErrAudioLocked is returned when output is requested before the user has
// unlocked audio. Output is suppressed, never queued.
var ErrAudioLocked = errors.New("speech: audio output locked pending user interaction")

// UnlockCause identifies what triggered an unlock attempt. Autoplay policy
// only honors direct user interaction; everything else is rejected so a
// timer or network callback can never sneak the gate open.
type UnlockCause string

const (
	CauseUserInteraction UnlockCause = "user_interaction"
	CauseTimer           UnlockCause = "timer"
	CauseNetwork         UnlockCause = "network"
)

// Gate is the one-time audio unlock. It starts locked, transitions to
// unlocked at most once per session, and never reverts.
type Gate struct {
	mu       sync.Mutex
	unlocked bool
}

// NewGate returns a locked gate.
func NewGate() *Gate { return &Gate{} }

// Unlock attempts the locked→unlocked transition. Returns true only on the
// transition itself: a non-interaction cause or an already-unlocked gate
// returns false.
func (g *Gate) Unlock(cause UnlockCause) bool {
	if cause != CauseUserInteraction {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.unlocked {
		return false
	}
	g.unlocked = true
	return true
}

// Unlocked reports the gate state.
func (g *Gate) Unlocked() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.unlocked
}
