package assistant

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mainhushivam/go-jarvis/pkg/conversation"
	"github.com/mainhushivam/go-jarvis/pkg/devices"
	"github.com/mainhushivam/go-jarvis/pkg/gateway"
	"github.com/mainhushivam/go-jarvis/pkg/speech"
	"github.com/mainhushivam/go-jarvis/pkg/visualizer"
	"github.com/mainhushivam/go-jarvis/pkg/web"
)

// User-facing copy.
const (
	// Greeting is the first turn of every session. Spoken output only
	// starts after the first user interaction unlocks audio.
	Greeting = "JARVIS online. Voice systems will activate after your first interaction."

	// FallbackReply is shown when a chat submission cannot reach the
	// backend. The raw error goes to the log, not the conversation.
	FallbackReply = "I encountered a connection problem. Please try again."
)

// ErrSubmissionInFlight is returned when a chat submission is attempted
// while another is still pending. Submissions are serialized, not queued.
var ErrSubmissionInFlight = errors.New("assistant: a submission is already in flight")

// App wires the client together and owns its lifecycle.
type App struct {
	cfg    Config
	logger *slog.Logger

	api         gateway.API
	store       *conversation.Store
	gate        *speech.Gate
	coordinator *speech.Coordinator
	poller      *devices.Poller
	viz         *visualizer.Driver
	server      *web.Server

	mu     sync.Mutex
	status gateway.Status
	ctx    context.Context
}

// New assembles the application from its injected backends. recognizer
// may be nil when no capture backend is available; the mic control then
// reports the missing capability instead of failing silently.
func New(cfg Config, api gateway.API, recognizer speech.Recognizer, output speech.Output) *App {
	store := conversation.NewStore()
	gate := speech.NewGate()
	coordinator := speech.NewCoordinator(recognizer, output, gate)
	poller := devices.NewPoller(api, cfg.PollInterval)
	server := web.NewServer(cfg.DashboardPort, store, poller)

	a := &App{
		cfg:         cfg,
		logger:      slog.Default().With("component", "assistant"),
		api:         api,
		store:       store,
		gate:        gate,
		coordinator: coordinator,
		poller:      poller,
		server:      server,
		status:      gateway.StatusConnecting,
	}
	a.viz = visualizer.NewDriver(0, 0, server.PushFrame)

	store.Subscribe(func() {
		server.PushConversation()
		a.pushStatus()
	})
	poller.Subscribe(server.PushDevices)

	coordinator.OnState(a.onSpeechState)
	coordinator.OnFinalTranscript(func(text string) {
		if err := a.SubmitAsync(text); err != nil {
			a.logger.Warn("voice submission rejected", "error", err)
		}
	})
	coordinator.OnCaptureError(func(err error) {
		a.logger.Warn("speech capture error", "error", err)
	})
	coordinator.OnOutputDone(func(err error) {
		if err != nil {
			a.logger.Warn("speech output failed", "error", err)
		}
	})

	server.OnChat = a.SubmitAsync
	server.OnMicToggle = a.ToggleMic
	server.OnUnlockAudio = a.UnlockAudio
	server.OnClear = store.Clear
	server.OnToggle = func(deviceID string) error {
		return poller.Toggle(a.context(), deviceID)
	}
	server.OnSetLevel = func(deviceID string, level float64) error {
		return poller.SetLevel(a.context(), deviceID, level)
	}

	return a
}

// Run starts the poller, health watcher and dashboard, then blocks until
// ctx is cancelled and everything is torn down.
func (a *App) Run(ctx context.Context) error {
	a.mu.Lock()
	a.ctx = ctx
	a.mu.Unlock()

	a.store.Append(conversation.KindSystem, Greeting)

	go a.watchHealth(ctx)
	go a.poller.Run(ctx)
	a.server.StartAsync()

	<-ctx.Done()

	a.coordinator.StopOutput()
	a.poller.Stop()
	a.viz.Stop()
	return a.server.Shutdown()
}

// Submit runs one chat submission synchronously: user turn, backend call,
// reply (or fallback) turn, speech. Returns ErrSubmissionInFlight when
// another submission is pending.
func (a *App) Submit(ctx context.Context, text string) error {
	trimmed, err := a.beginSubmission(text)
	if err != nil {
		return err
	}
	return a.completeSubmission(ctx, trimmed)
}

// SubmitAsync accepts or rejects a submission synchronously and runs the
// backend round-trip in the background. This is the path used by the
// dashboard chat box and final voice transcripts.
func (a *App) SubmitAsync(text string) error {
	trimmed, err := a.beginSubmission(text)
	if err != nil {
		return err
	}
	go a.completeSubmission(a.context(), trimmed)
	return nil
}

// beginSubmission validates the message and claims the submission slot.
// On success the user turn is already appended and capture stopped.
func (a *App) beginSubmission(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", gateway.ErrEmptyMessage
	}
	if !a.store.BeginSubmission() {
		return "", ErrSubmissionInFlight
	}

	a.store.Append(conversation.KindUser, trimmed)
	a.coordinator.BeginAwait()
	return trimmed, nil
}

func (a *App) completeSubmission(ctx context.Context, text string) error {
	reply, err := a.api.SendChat(ctx, text, a.cfg.UserID)

	// Teardown cancels the app context while a submission may still be in
	// flight. A response (or cancellation error) landing after that is
	// dropped without touching the store or the coordinator; shutdown must
	// not fabricate a connection-problem turn.
	if ctx.Err() != nil {
		a.logger.Debug("late chat response dropped at teardown")
		return ctx.Err()
	}

	if err != nil {
		a.logger.Warn("chat submission failed", "error", err)
		a.store.Append(conversation.KindAssistant, FallbackReply)
		a.coordinator.FailReply()
		a.store.EndSubmission()
		return err
	}

	a.store.Append(conversation.KindAssistant, reply.Response)

	// Device-control replies changed backend state; reconcile the panel
	// once, out of band.
	if reply.Intent != nil && reply.Intent.Type == gateway.IntentDeviceControl {
		a.poller.RefreshNow()
	}

	utt := speech.Utterance{Text: reply.Response, ClipURL: reply.AudioURL}
	if err := a.coordinator.Speak(ctx, utt); err != nil {
		if errors.Is(err, speech.ErrAudioLocked) {
			a.logger.Debug("speech suppressed, audio still locked")
		} else {
			a.logger.Warn("speech not started", "error", err)
		}
	}
	a.store.EndSubmission()
	return nil
}

// ToggleMic flips microphone capture. A mic press is a user gesture, so
// it also unlocks audio output on first use.
func (a *App) ToggleMic() error {
	a.UnlockAudio()
	return a.coordinator.ToggleListening()
}

// UnlockAudio records a user interaction against the audio gate.
// Returns true only on the first unlock.
func (a *App) UnlockAudio() bool {
	first := a.gate.Unlock(speech.CauseUserInteraction)
	if first {
		a.logger.Info("audio output unlocked")
		a.pushStatus()
	}
	return first
}

// Status returns the last observed backend reachability.
func (a *App) Status() gateway.Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Store returns the conversation store.
func (a *App) Store() *conversation.Store { return a.store }

// Poller returns the device poller.
func (a *App) Poller() *devices.Poller { return a.poller }

// Coordinator returns the speech coordinator.
func (a *App) Coordinator() *speech.Coordinator { return a.coordinator }

// Gate returns the audio unlock gate.
func (a *App) Gate() *speech.Gate { return a.gate }

// watchHealth keeps the reachability indicator current: one immediate
// check, then one per interval.
func (a *App) watchHealth(ctx context.Context) {
	a.setStatus(a.api.CheckHealth(ctx))

	interval := a.cfg.HealthInterval
	if interval <= 0 {
		interval = DefaultConfig().HealthInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.setStatus(a.api.CheckHealth(ctx))
		}
	}
}

func (a *App) setStatus(status gateway.Status) {
	a.mu.Lock()
	changed := a.status != status
	a.status = status
	a.mu.Unlock()

	if changed {
		a.logger.Info("backend status changed", "status", status)
		a.pushStatus()
	}
}

func (a *App) onSpeechState(s speech.State) {
	a.store.SetListening(s == speech.StateListening)
	a.store.SetSpeaking(s == speech.StateSpeaking)

	if s == speech.StateSpeaking {
		a.viz.Start()
	} else {
		a.viz.Stop()
	}
}

func (a *App) pushStatus() {
	a.server.PushStatus(web.StatusView{
		Status:        a.Status(),
		Flags:         a.store.Flags(),
		AudioUnlocked: a.gate.Unlocked(),
	})
}

func (a *App) context() context.Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ctx != nil {
		return a.ctx
	}
	return context.Background()
}
