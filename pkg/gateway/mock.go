package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Mock implements API for tests and for --demo mode.
// All methods can be customized via function fields; the defaults simulate
// a small smart home so the app is usable with no backend at all.
type Mock struct {
	// CheckHealthFunc is called when CheckHealth is invoked.
	// If nil, returns StatusOnline.
	CheckHealthFunc func(ctx context.Context) Status

	// FetchDeviceStatusFunc is called when FetchDeviceStatus is invoked.
	// If nil, returns the simulated home.
	FetchDeviceStatusFunc func(ctx context.Context) (*StatusSnapshot, error)

	// SendChatFunc is called when SendChat is invoked.
	// If nil, returns a canned echo reply.
	SendChatFunc func(ctx context.Context, message, userID string) (*ChatReply, error)

	// SetDeviceStateFunc is called when SetDeviceState is invoked.
	// If nil, mutates the simulated home.
	SetDeviceStateFunc func(ctx context.Context, deviceID string, action Action, value *float64) error

	// FetchClipFunc is called when FetchClip is invoked.
	// If nil, returns ErrNoClip.
	FetchClipFunc func(ctx context.Context, url string) ([]byte, error)

	// Simulated home state (used by the default funcs).
	homeMu  sync.Mutex
	devices map[string]Device
	sensors Sensors

	// Tracking
	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation for verification.
type MockCall struct {
	Method string
	Arg    string
	Time   time.Time
}

// NewMock creates a mock gateway preloaded with the simulated home.
func NewMock() *Mock {
	return &Mock{
		devices: map[string]Device{
			"light_main":    {ID: "light_main", Name: "Main Light", Type: "light", State: Bool(false)},
			"light_bedroom": {ID: "light_bedroom", Name: "Bedroom Light", Type: "light", State: Bool(false)},
			"fan_main":      {ID: "fan_main", Name: "Ceiling Fan", Type: "fan", State: Bool(false)},
			"ac_main":       {ID: "ac_main", Name: "Air Conditioner", Type: "ac", State: Bool(false)},
			"thermostat":    {ID: "thermostat", Name: "Thermostat", Type: "thermostat", State: Level(22)},
		},
		sensors: Sensors{
			Temperature: 25,
			Humidity:    50,
			LightLevel:  500,
			Motion:      false,
			GasLevel:    120,
		},
	}
}

// CheckHealth calls CheckHealthFunc and records the call.
func (m *Mock) CheckHealth(ctx context.Context) Status {
	m.recordCall("CheckHealth", "")
	if m.CheckHealthFunc != nil {
		return m.CheckHealthFunc(ctx)
	}
	return StatusOnline
}

// FetchDeviceStatus calls FetchDeviceStatusFunc and records the call.
func (m *Mock) FetchDeviceStatus(ctx context.Context) (*StatusSnapshot, error) {
	m.recordCall("FetchDeviceStatus", "")
	if m.FetchDeviceStatusFunc != nil {
		return m.FetchDeviceStatusFunc(ctx)
	}

	m.homeMu.Lock()
	defer m.homeMu.Unlock()
	devices := make(map[string]Device, len(m.devices))
	for id, dev := range m.devices {
		devices[id] = dev
	}
	return &StatusSnapshot{Devices: devices, Sensors: m.sensors}, nil
}

// SendChat calls SendChatFunc and records the call.
func (m *Mock) SendChat(ctx context.Context, message, userID string) (*ChatReply, error) {
	m.recordCall("SendChat", message)
	if m.SendChatFunc != nil {
		return m.SendChatFunc(ctx, message, userID)
	}
	return &ChatReply{
		Response: fmt.Sprintf("Acknowledged: %s", message),
	}, nil
}

// SetDeviceState calls SetDeviceStateFunc and records the call.
func (m *Mock) SetDeviceState(ctx context.Context, deviceID string, action Action, value *float64) error {
	m.recordCall("SetDeviceState", fmt.Sprintf("%s %s", deviceID, action))
	if m.SetDeviceStateFunc != nil {
		return m.SetDeviceStateFunc(ctx, deviceID, action, value)
	}

	m.homeMu.Lock()
	defer m.homeMu.Unlock()
	dev, ok := m.devices[deviceID]
	if !ok {
		return &APIError{StatusCode: 404, Endpoint: pathDeviceControl, Message: "unknown device"}
	}
	switch action {
	case ActionOn:
		dev.State = Bool(true)
	case ActionOff:
		dev.State = Bool(false)
	case ActionSet:
		if value != nil {
			dev.State = Level(*value)
		}
	}
	m.devices[deviceID] = dev
	return nil
}

// FetchClip calls FetchClipFunc and records the call.
func (m *Mock) FetchClip(ctx context.Context, url string) ([]byte, error) {
	m.recordCall("FetchClip", url)
	if m.FetchClipFunc != nil {
		return m.FetchClipFunc(ctx, url)
	}
	return nil, ErrNoClip
}

// SetSensors replaces the simulated sensor snapshot (demo scripting).
func (m *Mock) SetSensors(s Sensors) {
	m.homeMu.Lock()
	m.sensors = s
	m.homeMu.Unlock()
}

// recordCall adds a call to the tracking list.
func (m *Mock) recordCall(method, arg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Method: method, Arg: arg, Time: time.Now()})
}

// Calls returns all recorded method calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of times a method was called.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// Reset clears all recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// Verify Mock implements API at compile time.
var _ API = (*Mock)(nil)
