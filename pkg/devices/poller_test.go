package devices_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/mainhushivam/go-jarvis/pkg/devices"
	"github.com/mainhushivam/go-jarvis/pkg/gateway"
)

func TestRefreshReplacesWholesale(t *testing.T) {
	ctx := context.Background()
	mock := gateway.NewMock()
	p := devices.NewPoller(mock, time.Minute)

	p.Refresh(ctx)
	devs, sensors := p.Snapshot()
	if len(devs) == 0 {
		t.Fatal("expected simulated devices")
	}
	if sensors.Temperature != 25 {
		t.Errorf("unexpected sensors: %+v", sensors)
	}

	// Backend drops to a single device; the cache follows wholesale.
	mock.FetchDeviceStatusFunc = func(ctx context.Context) (*gateway.StatusSnapshot, error) {
		return &gateway.StatusSnapshot{
			Devices: map[string]gateway.Device{
				"light_main": {ID: "light_main", Name: "Main Light", Type: "light", State: gateway.Bool(true)},
			},
			Sensors: gateway.Sensors{Temperature: 30},
		}, nil
	}
	p.Refresh(ctx)

	devs, sensors = p.Snapshot()
	if len(devs) != 1 {
		t.Errorf("expected wholesale replace, got %d devices", len(devs))
	}
	if sensors.Temperature != 30 {
		t.Errorf("expected sensors replaced, got %+v", sensors)
	}
}

func TestRefreshFailureKeepsCache(t *testing.T) {
	ctx := context.Background()
	mock := gateway.NewMock()
	p := devices.NewPoller(mock, time.Minute)

	p.Refresh(ctx)
	before, sensorsBefore := p.Snapshot()

	mock.FetchDeviceStatusFunc = func(ctx context.Context) (*gateway.StatusSnapshot, error) {
		return nil, &gateway.ConnectivityError{Endpoint: "/api/devices/status", Err: errors.New("timeout")}
	}
	p.Refresh(ctx)

	after, sensorsAfter := p.Snapshot()
	if !reflect.DeepEqual(before, after) || sensorsBefore != sensorsAfter {
		t.Error("transient failure must leave the cache untouched")
	}
}

func TestRefreshIsIdempotent(t *testing.T) {
	ctx := context.Background()
	p := devices.NewPoller(gateway.NewMock(), time.Minute)

	p.Refresh(ctx)
	first, firstSensors := p.Snapshot()
	p.Refresh(ctx)
	second, secondSensors := p.Snapshot()

	if !reflect.DeepEqual(first, second) || firstSensors != secondSensors {
		t.Error("back-to-back refreshes with stable backend must match")
	}
}

func TestToggleOptimisticSuccess(t *testing.T) {
	ctx := context.Background()
	mock := gateway.NewMock()
	p := devices.NewPoller(mock, time.Hour)

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	defer func() {
		p.Stop()
		<-done
	}()

	// Wait for the initial refresh.
	waitFor(t, func() bool {
		devs, _ := p.Snapshot()
		return len(devs) > 0
	})

	if err := p.Toggle(ctx, "light_main"); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}

	devs, _ := p.Snapshot()
	if !devs["light_main"].State.On {
		t.Error("expected optimistic flip to on")
	}
	if p.Pending("light_main") {
		t.Error("pending marker should clear after control success")
	}
	if mock.CallCount("SetDeviceState") != 1 {
		t.Errorf("expected 1 control call, got %d", mock.CallCount("SetDeviceState"))
	}

	// The out-of-band reconciliation refresh lands without waiting for the
	// hour-long tick.
	waitFor(t, func() bool { return mock.CallCount("FetchDeviceStatus") >= 2 })
}

func TestToggleRevertsOnControlFailure(t *testing.T) {
	ctx := context.Background()
	mock := gateway.NewMock()
	mock.SetDeviceStateFunc = func(ctx context.Context, deviceID string, action gateway.Action, value *float64) error {
		return &gateway.ConnectivityError{Endpoint: "/api/devices/control", Err: errors.New("refused")}
	}
	p := devices.NewPoller(mock, time.Minute)
	p.Refresh(ctx)

	before, _ := p.Snapshot()
	if err := p.Toggle(ctx, "fan_main"); err == nil {
		t.Fatal("expected toggle error")
	}

	after, _ := p.Snapshot()
	if after["fan_main"].State != before["fan_main"].State {
		t.Error("failed control call must revert the optimistic flip")
	}
	if p.Pending("fan_main") {
		t.Error("pending marker must clear on revert")
	}
}

func TestToggleRejectsNumericDevice(t *testing.T) {
	ctx := context.Background()
	mock := gateway.NewMock()
	p := devices.NewPoller(mock, time.Minute)
	p.Refresh(ctx)

	before, _ := p.Snapshot()
	if err := p.Toggle(ctx, "thermostat"); !errors.Is(err, devices.ErrNotSwitch) {
		t.Fatalf("expected ErrNotSwitch, got %v", err)
	}

	after, _ := p.Snapshot()
	if after["thermostat"].State != before["thermostat"].State {
		t.Error("rejected toggle must not touch the set-point")
	}
	if p.Pending("thermostat") {
		t.Error("rejected toggle must not mark the device pending")
	}
	if mock.CallCount("SetDeviceState") != 0 {
		t.Errorf("rejected toggle must not issue a control call, got %d", mock.CallCount("SetDeviceState"))
	}

	// SetLevel remains the set-point path.
	if err := p.SetLevel(ctx, "thermostat", 24); err != nil {
		t.Fatalf("set level failed: %v", err)
	}
	devs, _ := p.Snapshot()
	if devs["thermostat"].State != gateway.Level(24) {
		t.Errorf("unexpected set-point: %+v", devs["thermostat"].State)
	}
}

func TestPollDoesNotClobberPendingDevice(t *testing.T) {
	ctx := context.Background()
	mock := gateway.NewMock()

	release := make(chan struct{})
	mock.SetDeviceStateFunc = func(ctx context.Context, deviceID string, action gateway.Action, value *float64) error {
		<-release
		return nil
	}

	p := devices.NewPoller(mock, time.Minute)
	p.Refresh(ctx)

	toggleDone := make(chan error, 1)
	go func() { toggleDone <- p.Toggle(ctx, "light_main") }()

	waitFor(t, func() bool { return p.Pending("light_main") })

	// A poll lands mid-toggle with the stale off state; the optimistic
	// value must survive until the control call resolves.
	p.Refresh(ctx)
	devs, _ := p.Snapshot()
	if !devs["light_main"].State.On {
		t.Error("pending optimistic value was clobbered by a stale poll")
	}

	close(release)
	if err := <-toggleDone; err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
}

func TestStopTerminatesLoop(t *testing.T) {
	p := devices.NewPoller(gateway.NewMock(), 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		p.Run(context.Background())
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	p.Stop()
	p.Stop() // idempotent

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller loop did not stop")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
