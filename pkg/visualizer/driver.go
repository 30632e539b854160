// Package visualizer renders a synthetic waveform while speech output is
// active. The waveform is parametrized by elapsed time, not real audio
// amplitude - the backend provides none - so it is a pure cosmetic signal
// derived from the speaking state.
package visualizer

import (
	"math"
	"sync"
	"time"
)

// Defaults for the frame loop.
const (
	// DefaultWidth is the number of waveform samples per frame.
	DefaultWidth = 64

	// DefaultRate approximates a browser animation frame cadence without
	// flooding websocket clients.
	DefaultRate = 50 * time.Millisecond

	// phaseStep and phaseSpeed reproduce the page visualizer's
	// sin(x*0.04 + now/200) shape, normalized to [-1, 1].
	phaseStep  = 0.04
	phaseSpeed = 5.0 // 1/(200ms) in seconds
)

// Frame is one rendered waveform.
type Frame struct {
	// Samples are normalized heights in [-1, 1], left to right.
	Samples []float64 `json:"samples"`

	// Active is false only for the final idle frame after Stop.
	Active bool `json:"active"`
}

// Waveform computes the synthetic waveform at elapsed time t (seconds).
// Pure function, exported for deterministic tests.
func Waveform(t float64, width int) []float64 {
	samples := make([]float64, width)
	phase := t * phaseSpeed
	for x := range samples {
		samples[x] = math.Sin(float64(x)*phaseStep*float64(DefaultWidth)/float64(width) + phase)
	}
	return samples
}

// IdleFrame returns the flat line drawn when output is inactive.
func IdleFrame(width int) Frame {
	return Frame{Samples: make([]float64, width), Active: false}
}

// Driver runs the frame loop. Start begins per-frame rendering; Stop
// always cancels the loop and emits one idle frame, so no callback can
// outlive deactivation.
type Driver struct {
	width  int
	rate   time.Duration
	render func(Frame)

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewDriver creates a driver that hands frames to render.
// Zero width and rate fall back to the defaults.
func NewDriver(width int, rate time.Duration, render func(Frame)) *Driver {
	if width <= 0 {
		width = DefaultWidth
	}
	if rate <= 0 {
		rate = DefaultRate
	}
	return &Driver{width: width, rate: rate, render: render}
}

// Start begins the frame loop. No-op when already running.
func (d *Driver) Start() {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	stop := make(chan struct{})
	done := make(chan struct{})
	d.stop = stop
	d.done = done
	d.mu.Unlock()

	go d.loop(stop, done)
}

// Stop cancels the frame loop and draws the idle indicator. Idempotent;
// blocks until the loop goroutine has exited so no frame lands after it
// returns.
func (d *Driver) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	stop := d.stop
	done := d.done
	d.mu.Unlock()

	close(stop)
	<-done
	d.render(IdleFrame(d.width))
}

// Running reports whether the frame loop is active.
func (d *Driver) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

func (d *Driver) loop(stop, done chan struct{}) {
	defer close(done)

	start := time.Now()
	ticker := time.NewTicker(d.rate)
	defer ticker.Stop()

	// First frame immediately, like the page's draw-then-schedule loop.
	d.render(Frame{Samples: Waveform(0, d.width), Active: true})

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t := time.Since(start).Seconds()
			d.render(Frame{Samples: Waveform(t, d.width), Active: true})
		}
	}
}
