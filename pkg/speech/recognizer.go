package speech

import (
	"errors"
	"sync"
)

// Recognizer errors.
var (
	// ErrNoRecognizer means no capture backend exists on this host.
	// Surfaced as a disabled mic affordance, never a crash.
	ErrNoRecognizer = errors.New("speech: no recognizer available")

	// ErrAlreadyListening is returned by Start during active capture.
	ErrAlreadyListening = errors.New("speech: recognizer already listening")
)

// Recognizer captures user speech and yields transcripts through callbacks.
// Implementations deliver OnStart once per capture, any number of
// transcripts, then OnEnd exactly once when capture finishes for any
// reason.
type Recognizer interface {
	// Start begins one capture session.
	Start() error

	// Stop ends the capture session, if any. Idempotent.
	Stop() error

	// OnStart sets the callback for capture actually beginning.
	OnStart(fn func())

	// OnEnd sets the callback for capture ending.
	OnEnd(fn func())

	// OnTranscript sets the transcript callback. isFinal marks the
	// transcript that should be submitted as a chat message.
	OnTranscript(fn func(text string, isFinal bool))

	// OnError sets the capture error callback.
	OnError(fn func(err error))
}

// MockRecognizer is a scriptable Recognizer for tests. Capture events are
// driven explicitly via the Emit methods.
type MockRecognizer struct {
	// StartErr, when set, makes Start fail with it, simulating a capture
	// backend that cannot start.
	StartErr error

	mu      sync.Mutex
	active  bool
	starts  int
	stops   int
	onStart func()
	onEnd   func()
	onText  func(text string, isFinal bool)
	onError func(err error)
}

// NewMockRecognizer creates an idle mock recognizer.
func NewMockRecognizer() *MockRecognizer { return &MockRecognizer{} }

// Start implements Recognizer.
func (m *MockRecognizer) Start() error {
	m.mu.Lock()
	if m.StartErr != nil {
		err := m.StartErr
		m.mu.Unlock()
		return err
	}
	if m.active {
		m.mu.Unlock()
		return ErrAlreadyListening
	}
	m.active = true
	m.starts++
	onStart := m.onStart
	m.mu.Unlock()

	if onStart != nil {
		onStart()
	}
	return nil
}

// Stop implements Recognizer.
func (m *MockRecognizer) Stop() error {
	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return nil
	}
	m.active = false
	m.stops++
	onEnd := m.onEnd
	m.mu.Unlock()

	if onEnd != nil {
		onEnd()
	}
	return nil
}

// OnStart implements Recognizer.
func (m *MockRecognizer) OnStart(fn func()) {
	m.mu.Lock()
	m.onStart = fn
	m.mu.Unlock()
}

// OnEnd implements Recognizer.
func (m *MockRecognizer) OnEnd(fn func()) {
	m.mu.Lock()
	m.onEnd = fn
	m.mu.Unlock()
}

// OnTranscript implements Recognizer.
func (m *MockRecognizer) OnTranscript(fn func(text string, isFinal bool)) {
	m.mu.Lock()
	m.onText = fn
	m.mu.Unlock()
}

// OnError implements Recognizer.
func (m *MockRecognizer) OnError(fn func(err error)) {
	m.mu.Lock()
	m.onError = fn
	m.mu.Unlock()
}

// EmitTranscript delivers a transcript as if capture produced it.
// A final transcript also ends capture, like one-shot browser recognition.
func (m *MockRecognizer) EmitTranscript(text string, isFinal bool) {
	m.mu.Lock()
	onText := m.onText
	m.mu.Unlock()

	if onText != nil {
		onText(text, isFinal)
	}
	if isFinal {
		_ = m.Stop()
	}
}

// EmitError delivers a capture error.
func (m *MockRecognizer) EmitError(err error) {
	m.mu.Lock()
	onError := m.onError
	m.mu.Unlock()

	if onError != nil {
		onError(err)
	}
}

// Active reports whether capture is running.
func (m *MockRecognizer) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Starts returns how many times capture started.
func (m *MockRecognizer) Starts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts
}

// Stops returns how many times capture stopped.
func (m *MockRecognizer) Stops() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}

// Verify MockRecognizer implements Recognizer at compile time.
var _ Recognizer = (*MockRecognizer)(nil)
