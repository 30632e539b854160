package hub

import (
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestHubRunAndStop(t *testing.T) {
	h := New("test")
	go h.Run()

	waitFor(t, h.IsRunning, "hub never started")
	if h.ClientCount() != 0 {
		t.Errorf("fresh hub should have no clients, got %d", h.ClientCount())
	}

	// Broadcasting with no clients must not block or panic.
	if err := h.BroadcastJSON(map[string]string{"hello": "world"}); err != nil {
		t.Fatalf("broadcast failed: %v", err)
	}

	h.Stop()
	waitFor(t, func() bool { return !h.IsRunning() }, "hub never stopped")

	h.Stop() // idempotent
}

func TestBroadcastJSONRejectsUnencodable(t *testing.T) {
	h := New("test")
	if err := h.BroadcastJSON(make(chan int)); err == nil {
		t.Fatal("expected a marshal error")
	}
}

func TestStopDisconnectsRegisteredClients(t *testing.T) {
	h := New("test")
	go h.Run()
	waitFor(t, h.IsRunning, "hub never started")

	// A bare client is enough to exercise register/stop bookkeeping; the
	// pumps need a live websocket and are not run here.
	c := &Client{hub: h, send: make(chan Message, 1)}
	h.attach(c)
	waitFor(t, func() bool { return h.ClientCount() == 1 }, "client never registered")

	h.Stop()
	waitFor(t, func() bool { return h.ClientCount() == 0 }, "stop must drop clients")

	if _, open := <-c.send; open {
		t.Error("stop must close client send channels")
	}

	// Detach after stop must not deadlock.
	h.detach(c)
}
