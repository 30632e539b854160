package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/mainhushivam/go-jarvis/pkg/gateway"
)

// Sentinel errors for output conditions.
var (
	// ErrNoClip is returned by ClipOutput when the utterance carries no
	// remote clip; the fallback chain treats it as "try the next output".
	ErrNoClip = errors.New("speech: utterance has no remote clip")

	// ErrSynthUnavailable is returned when no synthesis command exists on
	// this host. Surfaced once as a capability notice, never retried.
	ErrSynthUnavailable = errors.New("speech: no synthesis command available")

	// ErrNoOutputs is returned when a fallback chain has no outputs.
	ErrNoOutputs = errors.New("speech: no outputs configured")

	// ErrPlayerUnavailable is returned when no audio player command exists
	// on this host.
	ErrPlayerUnavailable = errors.New("speech: no audio player command available")
)

// Source identifies which output path produced audio.
type Source string

const (
	SourceRemoteClip Source = "remote_clip"
	SourceSynthesis  Source = "local_synthesis"
	SourceNone       Source = "none"
)

// Utterance is one reply to be spoken.
type Utterance struct {
	// Text is always present; synthesis falls back to it.
	Text string

	// ClipURL optionally points at backend-rendered audio.
	ClipURL string
}

// Output produces audible speech for one utterance. Speak blocks until
// playback completes, errors, or ctx is cancelled.
type Output interface {
	Speak(ctx context.Context, utt Utterance) error
	Source() Source
}

// PlayFunc plays raw audio bytes (a downloaded clip).
type PlayFunc func(ctx context.Context, audio []byte) error

// SynthFunc renders and plays text locally.
type SynthFunc func(ctx context.Context, text string) error

// ClipOutput plays backend-provided clips: download via the gateway, play
// via the injected player.
type ClipOutput struct {
	api  gateway.API
	play PlayFunc
}

// NewClipOutput creates a clip output. play must not be nil.
func NewClipOutput(api gateway.API, play PlayFunc) *ClipOutput {
	return &ClipOutput{api: api, play: play}
}

// Speak implements Output.
func (o *ClipOutput) Speak(ctx context.Context, utt Utterance) error {
	if utt.ClipURL == "" {
		return ErrNoClip
	}
	audio, err := o.api.FetchClip(ctx, utt.ClipURL)
	if err != nil {
		return fmt.Errorf("speech: fetch clip: %w", err)
	}
	return o.play(ctx, audio)
}

// Source implements Output.
func (o *ClipOutput) Source() Source { return SourceRemoteClip }

// NewExecPlayFunc returns a PlayFunc backed by an audio player command
// (mpv, ffplay, or afplay, first found wins). The clip is staged in a
// temp file because the players want a seekable input.
func NewExecPlayFunc() (PlayFunc, error) {
	type candidate struct {
		name string
		args []string
	}
	for _, c := range []candidate{
		{"mpv", []string{"--really-quiet", "--no-video"}},
		{"ffplay", []string{"-autoexit", "-nodisp", "-loglevel", "error"}},
		{"afplay", nil},
	} {
		bin, err := exec.LookPath(c.name)
		if err != nil {
			continue
		}
		args := c.args
		return func(ctx context.Context, audio []byte) error {
			f, err := os.CreateTemp("", "jarvis-clip-*.mp3")
			if err != nil {
				return fmt.Errorf("speech: stage clip: %w", err)
			}
			defer os.Remove(f.Name())

			if _, err := f.Write(audio); err != nil {
				f.Close()
				return fmt.Errorf("speech: stage clip: %w", err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("speech: stage clip: %w", err)
			}
			return exec.CommandContext(ctx, bin, append(args, f.Name())...).Run()
		}, nil
	}
	return nil, ErrPlayerUnavailable
}

// SynthOutput speaks via local synthesis.
type SynthOutput struct {
	synth SynthFunc
}

// NewSynthOutput creates a synthesis output from an arbitrary synth func.
func NewSynthOutput(synth SynthFunc) *SynthOutput {
	return &SynthOutput{synth: synth}
}

// NewExecSynthOutput creates a synthesis output backed by a speech command
// (espeak-ng, espeak, or say, first found wins). voice is passed to the
// command when non-empty. Returns ErrSynthUnavailable when no command
// exists; callers degrade to a disabled affordance, not a crash.
func NewExecSynthOutput(voice string) (*SynthOutput, error) {
	type candidate struct {
		name      string
		voiceFlag string
	}
	for _, c := range []candidate{
		{"espeak-ng", "-v"},
		{"espeak", "-v"},
		{"say", "-v"},
	} {
		bin, err := exec.LookPath(c.name)
		if err != nil {
			continue
		}
		flag := c.voiceFlag
		return NewSynthOutput(func(ctx context.Context, text string) error {
			args := []string{}
			if voice != "" {
				args = append(args, flag, voice)
			}
			args = append(args, text)
			return exec.CommandContext(ctx, bin, args...).Run()
		}), nil
	}
	return nil, ErrSynthUnavailable
}

// Speak implements Output.
func (o *SynthOutput) Speak(ctx context.Context, utt Utterance) error {
	if utt.Text == "" {
		return nil
	}
	return o.synth(ctx, utt.Text)
}

// Source implements Output.
func (o *SynthOutput) Source() Source { return SourceSynthesis }

// FallbackOutput tries outputs in order; the first success wins. This is
// how a failed remote clip (404, decode error) immediately retries as local
// synthesis of the same text instead of failing silently.
type FallbackOutput struct {
	outputs []Output
	logger  *slog.Logger
}

// NewFallbackOutput creates a fallback chain. At least one output required.
func NewFallbackOutput(outputs ...Output) (*FallbackOutput, error) {
	if len(outputs) == 0 {
		return nil, ErrNoOutputs
	}
	return &FallbackOutput{
		outputs: outputs,
		logger:  slog.Default().With("component", "speech.fallback"),
	}, nil
}

// Speak implements Output.
func (f *FallbackOutput) Speak(ctx context.Context, utt Utterance) error {
	var errs []error
	for i, out := range f.outputs {
		err := out.Speak(ctx, utt)
		if err == nil {
			if i > 0 {
				f.logger.Info("fallback output succeeded",
					"source", out.Source(),
					"chars", len(utt.Text),
				)
			}
			return nil
		}

		errs = append(errs, err)
		// A chain member declining (no clip to play) is routine; real
		// failures are worth a warning.
		if !errors.Is(err, ErrNoClip) {
			f.logger.Warn("output failed, trying next",
				"source", out.Source(),
				"error", err,
			)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return &OutputError{Errors: errs}
}

// Source implements Output.
func (f *FallbackOutput) Source() Source {
	if len(f.outputs) == 1 {
		return f.outputs[0].Source()
	}
	return SourceNone
}

// OutputError aggregates errors from every output in a chain.
type OutputError struct {
	Errors []error
}

// Error implements the error interface.
func (e *OutputError) Error() string {
	if len(e.Errors) == 0 {
		return "speech: no errors recorded"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("speech: %v", e.Errors[0])
	}
	return fmt.Sprintf("speech: all %d outputs failed, last error: %v", len(e.Errors), e.Errors[len(e.Errors)-1])
}

// Unwrap returns the last error in the chain.
func (e *OutputError) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[len(e.Errors)-1]
}

// Verify implementations at compile time.
var (
	_ Output = (*ClipOutput)(nil)
	_ Output = (*SynthOutput)(nil)
	_ Output = (*FallbackOutput)(nil)
)
