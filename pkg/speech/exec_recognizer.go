package speech

import (
	"bufio"
	"os/exec"
	"strings"
	"sync"
)

// ExecRecognizer adapts a host speech-to-text command to the Recognizer
// interface. The command is expected to capture one utterance and print
// the transcript to stdout (vosk-transcriber and whisper-cli style);
// the first non-empty line is taken as the final transcript and capture
// ends. One-shot, like the dashboard mic button.
type ExecRecognizer struct {
	bin  string
	args []string

	mu  sync.Mutex
	cmd *exec.Cmd

	onStart      func()
	onEnd        func()
	onTranscript func(text string, isFinal bool)
	onError      func(err error)
}

// NewExecRecognizer creates a recognizer over the given command line.
// Returns ErrNoRecognizer when the command is empty or not on PATH, so
// callers degrade to a disabled mic instead of failing startup.
func NewExecRecognizer(command []string) (*ExecRecognizer, error) {
	if len(command) == 0 {
		return nil, ErrNoRecognizer
	}
	bin, err := exec.LookPath(command[0])
	if err != nil {
		return nil, ErrNoRecognizer
	}
	return &ExecRecognizer{bin: bin, args: command[1:]}, nil
}

// Start launches one capture. Returns ErrAlreadyListening while a capture
// is running.
func (r *ExecRecognizer) Start() error {
	r.mu.Lock()
	if r.cmd != nil {
		r.mu.Unlock()
		return ErrAlreadyListening
	}
	cmd := exec.Command(r.bin, r.args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		r.mu.Unlock()
		return err
	}
	if err := cmd.Start(); err != nil {
		r.mu.Unlock()
		return err
	}
	r.cmd = cmd
	r.mu.Unlock()

	r.mu.Lock()
	started := r.onStart
	r.mu.Unlock()
	if started != nil {
		started()
	}

	go func() {
		scanner := bufio.NewScanner(stdout)
		var final string
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				final = line
				break
			}
		}
		scanErr := scanner.Err()

		r.mu.Lock()
		if r.cmd == cmd {
			r.cmd = nil
		}
		r.mu.Unlock()

		cmd.Process.Kill()
		cmd.Wait()

		r.mu.Lock()
		ended := r.onEnd
		r.mu.Unlock()
		if ended != nil {
			ended()
		}
		if final != "" {
			r.mu.Lock()
			fn := r.onTranscript
			r.mu.Unlock()
			if fn != nil {
				fn(final, true)
			}
		} else if scanErr != nil {
			r.mu.Lock()
			fn := r.onError
			r.mu.Unlock()
			if fn != nil {
				fn(scanErr)
			}
		}
	}()

	return nil
}

// Stop kills an active capture. No-op when idle; the reader goroutine
// still delivers OnEnd.
func (r *ExecRecognizer) Stop() error {
	r.mu.Lock()
	cmd := r.cmd
	r.cmd = nil
	r.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		cmd.Process.Kill()
	}
	return nil
}

// OnStart sets the capture-started callback.
func (r *ExecRecognizer) OnStart(fn func()) {
	r.mu.Lock()
	r.onStart = fn
	r.mu.Unlock()
}

// OnEnd sets the capture-ended callback.
func (r *ExecRecognizer) OnEnd(fn func()) {
	r.mu.Lock()
	r.onEnd = fn
	r.mu.Unlock()
}

// OnTranscript sets the transcript callback.
func (r *ExecRecognizer) OnTranscript(fn func(text string, isFinal bool)) {
	r.mu.Lock()
	r.onTranscript = fn
	r.mu.Unlock()
}

// OnError sets the capture error callback.
func (r *ExecRecognizer) OnError(fn func(err error)) {
	r.mu.Lock()
	r.onError = fn
	r.mu.Unlock()
}

// Active reports whether a capture is running.
func (r *ExecRecognizer) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cmd != nil
}

var _ Recognizer = (*ExecRecognizer)(nil)
