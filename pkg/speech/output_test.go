package speech_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mainhushivam/go-jarvis/pkg/gateway"
	"github.com/mainhushivam/go-jarvis/pkg/speech"
)

// recordingSynth is a SynthFunc that remembers what it spoke.
type recordingSynth struct {
	mu     sync.Mutex
	spoken []string
	err    error
}

func (r *recordingSynth) speak(ctx context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.spoken = append(r.spoken, text)
	return nil
}

func (r *recordingSynth) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.spoken) == 0 {
		return ""
	}
	return r.spoken[len(r.spoken)-1]
}

func TestClipOutputRequiresClip(t *testing.T) {
	out := speech.NewClipOutput(gateway.NewMock(), func(ctx context.Context, audio []byte) error {
		t.Error("player must not run without a clip")
		return nil
	})

	err := out.Speak(context.Background(), speech.Utterance{Text: "hello"})
	if !errors.Is(err, speech.ErrNoClip) {
		t.Errorf("expected ErrNoClip, got %v", err)
	}
}

func TestClipOutputPlaysFetchedAudio(t *testing.T) {
	mock := gateway.NewMock()
	mock.FetchClipFunc = func(ctx context.Context, url string) ([]byte, error) {
		return []byte("clip-bytes"), nil
	}

	var played []byte
	out := speech.NewClipOutput(mock, func(ctx context.Context, audio []byte) error {
		played = audio
		return nil
	})

	err := out.Speak(context.Background(), speech.Utterance{Text: "hi", ClipURL: "/clips/a.mp3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(played) != "clip-bytes" {
		t.Errorf("unexpected audio %q", played)
	}
}

func TestFallbackRetriesWithSynthesisOnClipFailure(t *testing.T) {
	mock := gateway.NewMock()
	mock.FetchClipFunc = func(ctx context.Context, url string) ([]byte, error) {
		return nil, &gateway.APIError{StatusCode: 404, Endpoint: url}
	}

	synth := &recordingSynth{}
	chain, err := speech.NewFallbackOutput(
		speech.NewClipOutput(mock, func(ctx context.Context, audio []byte) error { return nil }),
		speech.NewSynthOutput(synth.speak),
	)
	if err != nil {
		t.Fatalf("chain setup failed: %v", err)
	}

	utt := speech.Utterance{Text: "All systems nominal.", ClipURL: "/clips/missing.mp3"}
	if err := chain.Speak(context.Background(), utt); err != nil {
		t.Fatalf("expected fallback success, got %v", err)
	}
	if synth.last() != "All systems nominal." {
		t.Errorf("synthesis should speak the same reply text, got %q", synth.last())
	}
}

func TestFallbackAggregatesWhenAllFail(t *testing.T) {
	mock := gateway.NewMock()
	mock.FetchClipFunc = func(ctx context.Context, url string) ([]byte, error) {
		return nil, &gateway.APIError{StatusCode: 404, Endpoint: url}
	}

	synth := &recordingSynth{err: errors.New("synth broken")}
	chain, _ := speech.NewFallbackOutput(
		speech.NewClipOutput(mock, func(ctx context.Context, audio []byte) error { return nil }),
		speech.NewSynthOutput(synth.speak),
	)

	err := chain.Speak(context.Background(), speech.Utterance{Text: "x", ClipURL: "/c.mp3"})
	var outErr *speech.OutputError
	if !errors.As(err, &outErr) {
		t.Fatalf("expected OutputError, got %v", err)
	}
	if len(outErr.Errors) != 2 {
		t.Errorf("expected 2 recorded failures, got %d", len(outErr.Errors))
	}
}

func TestFallbackStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	synth := &recordingSynth{}
	chain, _ := speech.NewFallbackOutput(
		speech.NewSynthOutput(func(ctx context.Context, text string) error {
			cancel()
			return errors.New("interrupted")
		}),
		speech.NewSynthOutput(synth.speak),
	)

	err := chain.Speak(ctx, speech.Utterance{Text: "x"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if synth.last() != "" {
		t.Error("cancelled chain must not try further outputs")
	}
}

func TestNewFallbackOutputRequiresOutputs(t *testing.T) {
	if _, err := speech.NewFallbackOutput(); !errors.Is(err, speech.ErrNoOutputs) {
		t.Errorf("expected ErrNoOutputs, got %v", err)
	}
}
