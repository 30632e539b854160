// Package speech coordinates microphone capture and spoken output.
//
// The coordinator is a small state machine over capture and playback
// events. It guarantees two invariants the rest of the app relies on: at
// most one output session is ever audible, and output never starts before
// the user has unlocked audio. Recognition and playback backends are
// injected, so tests drive every transition deterministically.
package speech

import (
	"context"
	"errors"
	"sync"
)

// ErrBusy is returned when listening is requested while a reply is pending
// or being spoken.
var ErrBusy = errors.New("speech: reply in progress")

// State is the coordinator's lifecycle state.
type State int

const (
	// StateIdle means no capture or output activity.
	StateIdle State = iota
	// StateListening means microphone capture is running.
	StateListening
	// StateAwaitingReply means a chat submission is in flight.
	StateAwaitingReply
	// StateSpeaking means an output session is active.
	StateSpeaking
)

// String returns a human-readable state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateAwaitingReply:
		return "awaiting_reply"
	case StateSpeaking:
		return "speaking"
	default:
		return "unknown"
	}
}

// outputSession tracks one in-flight playback goroutine.
type outputSession struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Coordinator owns the speech lifecycle. Safe for concurrent use.
type Coordinator struct {
	recognizer Recognizer // nil when capture is unavailable
	output     Output
	gate       *Gate

	mu      sync.Mutex
	state   State
	session *outputSession

	onState           func(State)
	onFinalTranscript func(text string)
	onOutputDone      func(err error)
	onCaptureError    func(err error)
}

// NewCoordinator wires a coordinator over the given backends.
// recognizer may be nil; ToggleListening then reports the missing
// capability instead of crashing.
func NewCoordinator(recognizer Recognizer, output Output, gate *Gate) *Coordinator {
	c := &Coordinator{
		recognizer: recognizer,
		output:     output,
		gate:       gate,
		state:      StateIdle,
	}

	if recognizer != nil {
		recognizer.OnStart(func() { c.setState(StateListening) })
		recognizer.OnEnd(func() {
			c.mu.Lock()
			ended := c.state == StateListening
			if ended {
				c.state = StateIdle
			}
			c.mu.Unlock()
			if ended {
				c.emitState(StateIdle)
			}
		})
		recognizer.OnTranscript(func(text string, isFinal bool) {
			if !isFinal {
				return
			}
			c.mu.Lock()
			fn := c.onFinalTranscript
			c.mu.Unlock()
			if fn != nil {
				fn(text)
			}
		})
		recognizer.OnError(func(err error) {
			c.mu.Lock()
			fn := c.onCaptureError
			c.mu.Unlock()
			if fn != nil {
				fn(err)
			}
		})
	}

	return c
}

// OnState sets the state-change callback.
func (c *Coordinator) OnState(fn func(State)) {
	c.mu.Lock()
	c.onState = fn
	c.mu.Unlock()
}

// OnFinalTranscript sets the callback for a final capture transcript.
// The receiver submits it as a chat message.
func (c *Coordinator) OnFinalTranscript(fn func(text string)) {
	c.mu.Lock()
	c.onFinalTranscript = fn
	c.mu.Unlock()
}

// OnOutputDone sets the callback for output session completion. Called
// with the playback error, or nil on clean completion. Not called for
// sessions cancelled by a newer submission.
func (c *Coordinator) OnOutputDone(fn func(err error)) {
	c.mu.Lock()
	c.onOutputDone = fn
	c.mu.Unlock()
}

// OnCaptureError sets the callback for recognizer errors.
func (c *Coordinator) OnCaptureError(fn func(err error)) {
	c.mu.Lock()
	c.onCaptureError = fn
	c.mu.Unlock()
}

// State returns the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Gate returns the audio unlock gate.
func (c *Coordinator) Gate() *Gate { return c.gate }

// CaptureAvailable reports whether a recognizer backend exists.
func (c *Coordinator) CaptureAvailable() bool { return c.recognizer != nil }

// ToggleListening starts capture from Idle or stops an active capture.
// Pressing the mic twice rapidly therefore starts once and stops once.
func (c *Coordinator) ToggleListening() error {
	if c.recognizer == nil {
		return ErrNoRecognizer
	}

	c.mu.Lock()
	state := c.state
	c.mu.Unlock()

	switch state {
	case StateListening:
		return c.recognizer.Stop()
	case StateIdle:
		return c.recognizer.Start()
	default:
		return ErrBusy
	}
}

// BeginAwait transitions into AwaitingReply for a new chat submission.
// Any in-progress output session is cancelled and drained first so replies
// never overlap audibly, and active capture is stopped.
func (c *Coordinator) BeginAwait() {
	c.cancelActiveSession()
	if c.recognizer != nil {
		_ = c.recognizer.Stop()
	}
	c.setState(StateAwaitingReply)
}

// FailReply returns to Idle after a failed submission.
func (c *Coordinator) FailReply() {
	c.setState(StateIdle)
}

// Speak starts the output session for a ready reply. If the gate is still
// locked the output is suppressed (not queued) and ErrAudioLocked is
// returned with the coordinator back at Idle. Playback runs async; watch
// OnOutputDone and OnState for completion.
func (c *Coordinator) Speak(ctx context.Context, utt Utterance) error {
	if !c.gate.Unlocked() {
		c.setState(StateIdle)
		return ErrAudioLocked
	}

	// Serialize: a prior session must be fully gone before the next one.
	c.cancelActiveSession()

	sctx, cancel := context.WithCancel(ctx)
	session := &outputSession{cancel: cancel, done: make(chan struct{})}

	c.mu.Lock()
	c.session = session
	c.state = StateSpeaking
	c.mu.Unlock()
	c.emitState(StateSpeaking)

	go func() {
		err := c.output.Speak(sctx, utt)
		cancel()

		c.mu.Lock()
		current := c.session == session
		if current {
			c.session = nil
			c.state = StateIdle
		}
		done := c.onOutputDone
		c.mu.Unlock()

		if current {
			c.emitState(StateIdle)
			if done != nil && !errors.Is(err, context.Canceled) {
				done(err)
			}
		}
		// A superseded session stays silent: the canceller owns the next
		// state transition.
		close(session.done)
	}()

	return nil
}

// StopOutput cancels any active output session and waits for it to drain.
// Used at teardown and by the dashboard stop control.
func (c *Coordinator) StopOutput() {
	c.cancelActiveSession()
	c.mu.Lock()
	idle := c.state == StateSpeaking
	if idle {
		c.state = StateIdle
	}
	c.mu.Unlock()
	if idle {
		c.emitState(StateIdle)
	}
}

// cancelActiveSession detaches and drains the current session, if any.
func (c *Coordinator) cancelActiveSession() {
	c.mu.Lock()
	session := c.session
	c.session = nil
	c.mu.Unlock()

	if session != nil {
		session.cancel()
		<-session.done
	}
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	c.mu.Unlock()
	if changed {
		c.emitState(s)
	}
}

func (c *Coordinator) emitState(s State) {
	c.mu.Lock()
	fn := c.onState
	c.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}
