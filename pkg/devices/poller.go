// Package devices maintains the local cache of device and sensor state.
//
// The backend owns the truth; this cache is refreshed on a fixed interval
// and replaced wholesale on every successful poll. User toggles are applied
// optimistically for responsiveness and reconciled against the next
// snapshot, with an explicit per-device pending marker so revert-on-failure
// stays unambiguous even when a poll lands mid-toggle.
package devices

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mainhushivam/go-jarvis/pkg/gateway"
)

// DefaultInterval is the scheduled poll period.
const DefaultInterval = 5 * time.Second

// ErrNotSwitch is returned when Toggle is called on a set-point device;
// numeric devices go through SetLevel.
var ErrNotSwitch = errors.New("devices: device has a numeric set-point, use SetLevel")

// Poller owns the device/sensor cache and its refresh loop.
// No other component writes the cache; user toggles go through Toggle.
type Poller struct {
	api      gateway.API
	interval time.Duration
	logger   *slog.Logger

	mu      sync.RWMutex
	devices map[string]gateway.Device
	sensors gateway.Sensors
	// pending marks devices with an optimistic value awaiting
	// confirm-or-revert. Poll results do not clobber pending devices.
	pending map[string]struct{}

	stop     chan struct{}
	stopOnce sync.Once
	kick     chan struct{}

	listenerMu sync.RWMutex
	listeners  []func()
}

// NewPoller creates a poller over the given gateway.
// A zero interval falls back to DefaultInterval.
func NewPoller(api gateway.API, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		api:      api,
		interval: interval,
		logger:   slog.Default().With("component", "devices"),
		devices:  map[string]gateway.Device{},
		pending:  map[string]struct{}{},
		stop:     make(chan struct{}),
		kick:     make(chan struct{}, 1),
	}
}

// Run starts the refresh loop: one immediate refresh, then one per
// interval, plus any out-of-band refreshes requested via RefreshNow.
// Blocks until Stop is called.
func (p *Poller) Run(ctx context.Context) {
	p.Refresh(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Refresh(ctx)
		case <-p.kick:
			p.Refresh(ctx)
		}
	}
}

// Stop halts the refresh loop. Idempotent.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

// RefreshNow requests an out-of-band refresh from the running loop.
// Non-blocking; coalesces with an already-queued request.
func (p *Poller) RefreshNow() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Refresh fetches one snapshot and merges it into the cache. On failure the
// prior state is left untouched; the condition is transient and the next
// tick self-heals, so nothing is surfaced to the user.
func (p *Poller) Refresh(ctx context.Context) {
	snap, err := p.api.FetchDeviceStatus(ctx)
	if err != nil {
		p.logger.Debug("status refresh failed, keeping cache", "error", err)
		return
	}

	p.mu.Lock()
	fresh := make(map[string]gateway.Device, len(snap.Devices))
	for id, dev := range snap.Devices {
		// A pending optimistic value beats a possibly-stale poll result
		// until the control call resolves it.
		if _, isPending := p.pending[id]; isPending {
			if local, ok := p.devices[id]; ok {
				dev.State = local.State
			}
		}
		fresh[id] = dev
	}
	p.devices = fresh
	p.sensors = snap.Sensors
	p.mu.Unlock()

	p.notify()
}

// Toggle flips a switch device optimistically, issues the control call, and
// schedules an out-of-band refresh to reconcile. On control failure the
// local flip is reverted immediately.
func (p *Poller) Toggle(ctx context.Context, deviceID string) error {
	p.mu.Lock()
	dev, ok := p.devices[deviceID]
	if !ok {
		p.mu.Unlock()
		return &gateway.APIError{StatusCode: 404, Endpoint: deviceID, Message: "unknown device"}
	}
	if dev.State.Numeric {
		p.mu.Unlock()
		return ErrNotSwitch
	}
	previous := dev.State
	dev.State = previous.Toggled()
	p.devices[deviceID] = dev
	p.pending[deviceID] = struct{}{}
	action := gateway.ActionOff
	if dev.State.On {
		action = gateway.ActionOn
	}
	p.mu.Unlock()

	p.notify()

	if err := p.api.SetDeviceState(ctx, deviceID, action, nil); err != nil {
		// Revert the optimistic flip right away rather than waiting for
		// the next reconciliation.
		p.mu.Lock()
		if cur, ok := p.devices[deviceID]; ok {
			cur.State = previous
			p.devices[deviceID] = cur
		}
		delete(p.pending, deviceID)
		p.mu.Unlock()

		p.notify()
		p.logger.Warn("device control failed, reverted", "device", deviceID, "error", err)
		return err
	}

	p.mu.Lock()
	delete(p.pending, deviceID)
	p.mu.Unlock()

	p.RefreshNow()
	return nil
}

// SetLevel sets a numeric device (thermostat) optimistically, mirroring
// Toggle's confirm-or-revert contract.
func (p *Poller) SetLevel(ctx context.Context, deviceID string, level float64) error {
	p.mu.Lock()
	dev, ok := p.devices[deviceID]
	if !ok {
		p.mu.Unlock()
		return &gateway.APIError{StatusCode: 404, Endpoint: deviceID, Message: "unknown device"}
	}
	previous := dev.State
	dev.State = gateway.Level(level)
	p.devices[deviceID] = dev
	p.pending[deviceID] = struct{}{}
	p.mu.Unlock()

	p.notify()

	if err := p.api.SetDeviceState(ctx, deviceID, gateway.ActionSet, &level); err != nil {
		p.mu.Lock()
		if cur, ok := p.devices[deviceID]; ok {
			cur.State = previous
			p.devices[deviceID] = cur
		}
		delete(p.pending, deviceID)
		p.mu.Unlock()

		p.notify()
		return err
	}

	p.mu.Lock()
	delete(p.pending, deviceID)
	p.mu.Unlock()

	p.RefreshNow()
	return nil
}

// Snapshot returns a copy of the device map and the sensor snapshot.
func (p *Poller) Snapshot() (map[string]gateway.Device, gateway.Sensors) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	devices := make(map[string]gateway.Device, len(p.devices))
	for id, dev := range p.devices {
		devices[id] = dev
	}
	return devices, p.sensors
}

// Devices returns the cached devices sorted by name for stable display.
func (p *Poller) Devices() []gateway.Device {
	p.mu.RLock()
	out := make([]gateway.Device, 0, len(p.devices))
	for _, dev := range p.devices {
		out = append(out, dev)
	}
	p.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Sensors returns the cached sensor snapshot.
func (p *Poller) Sensors() gateway.Sensors {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sensors
}

// Pending reports whether a device has an unresolved optimistic change.
func (p *Poller) Pending(deviceID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.pending[deviceID]
	return ok
}

// PendingIDs returns the devices with unresolved optimistic changes,
// sorted for stable display.
func (p *Poller) PendingIDs() []string {
	p.mu.RLock()
	out := make([]string, 0, len(p.pending))
	for id := range p.pending {
		out = append(out, id)
	}
	p.mu.RUnlock()

	sort.Strings(out)
	return out
}

// Subscribe registers a change listener, called after every cache change.
func (p *Poller) Subscribe(fn func()) {
	p.listenerMu.Lock()
	p.listeners = append(p.listeners, fn)
	p.listenerMu.Unlock()
}

func (p *Poller) notify() {
	p.listenerMu.RLock()
	listeners := p.listeners
	p.listenerMu.RUnlock()
	for _, fn := range listeners {
		fn()
	}
}
