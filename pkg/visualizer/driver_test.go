package visualizer_test

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/mainhushivam/go-jarvis/pkg/visualizer"
)

func TestWaveformIsDeterministicAndBounded(t *testing.T) {
	a := visualizer.Waveform(1.25, 64)
	b := visualizer.Waveform(1.25, 64)

	if len(a) != 64 {
		t.Fatalf("expected 64 samples, got %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("waveform must be a pure function of elapsed time")
		}
		if math.Abs(a[i]) > 1 {
			t.Fatalf("sample %d out of range: %f", i, a[i])
		}
	}

	later := visualizer.Waveform(2.5, 64)
	same := true
	for i := range a {
		if a[i] != later[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("waveform should move with elapsed time")
	}
}

func TestDriverRendersWhileActiveAndStopsClean(t *testing.T) {
	var mu sync.Mutex
	var frames []visualizer.Frame
	d := visualizer.NewDriver(32, 5*time.Millisecond, func(f visualizer.Frame) {
		mu.Lock()
		frames = append(frames, f)
		mu.Unlock()
	})

	d.Start()
	if !d.Running() {
		t.Fatal("driver should be running")
	}

	time.Sleep(30 * time.Millisecond)
	d.Stop()
	if d.Running() {
		t.Fatal("driver should have stopped")
	}

	mu.Lock()
	count := len(frames)
	last := frames[count-1]
	mu.Unlock()

	if count < 2 {
		t.Fatalf("expected several frames, got %d", count)
	}
	if last.Active {
		t.Error("final frame must be the idle indicator")
	}
	for _, s := range last.Samples {
		if s != 0 {
			t.Error("idle frame must be a flat line")
			break
		}
	}

	// No leaked frame callbacks after deactivation.
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	after := len(frames)
	mu.Unlock()
	if after != count {
		t.Errorf("frames rendered after stop: %d -> %d", count, after)
	}
}

func TestDriverStopIsIdempotentAndRestartable(t *testing.T) {
	var mu sync.Mutex
	active := 0
	d := visualizer.NewDriver(8, 5*time.Millisecond, func(f visualizer.Frame) {
		if f.Active {
			mu.Lock()
			active++
			mu.Unlock()
		}
	})

	d.Stop() // stop before start is a no-op
	d.Start()
	d.Start() // second start must not spawn a second loop
	time.Sleep(20 * time.Millisecond)
	d.Stop()
	d.Stop()

	mu.Lock()
	firstRun := active
	mu.Unlock()
	if firstRun == 0 {
		t.Fatal("expected frames from first run")
	}

	d.Start()
	time.Sleep(20 * time.Millisecond)
	d.Stop()

	mu.Lock()
	secondRun := active - firstRun
	mu.Unlock()
	if secondRun == 0 {
		t.Error("driver must be restartable after stop")
	}
}
