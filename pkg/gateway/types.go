package gateway

import (
	"encoding/json"
	"fmt"
)

// Status represents backend reachability as shown to the user.
type Status string

const (
	// StatusConnecting is the initial state before the first health check.
	StatusConnecting Status = "connecting"
	// StatusOnline means the last health check reported healthy.
	StatusOnline Status = "online"
	// StatusOffline means the last health check failed or was unhealthy.
	StatusOffline Status = "offline"
)

// Action is a device control verb accepted by the backend.
type Action string

const (
	ActionOn  Action = "on"
	ActionOff Action = "off"
	ActionSet Action = "set"
)

// Value is a device state value: boolean for switches (lights, fans),
// numeric for set-points (thermostat). The backend sends either shape
// under the same "state" key.
type Value struct {
	// On is the switch state. Meaningful only when Numeric is false.
	On bool

	// Level is the numeric set-point. Meaningful only when Numeric is true.
	Level float64

	// Numeric distinguishes set-point devices from switches.
	Numeric bool
}

// Bool returns a switch value.
func Bool(on bool) Value { return Value{On: on} }

// Level returns a numeric set-point value.
func Level(v float64) Value { return Value{Level: v, Numeric: true} }

// Toggled returns the flipped switch value. Numeric values are unchanged;
// there is nothing sensible to flip a set-point to.
func (v Value) Toggled() Value {
	if v.Numeric {
		return v
	}
	return Value{On: !v.On}
}

// UnmarshalJSON accepts either a JSON boolean or a JSON number.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch val := raw.(type) {
	case bool:
		*v = Value{On: val}
	case float64:
		*v = Value{Level: val, Numeric: true}
	default:
		return fmt.Errorf("gateway: unsupported device state %T", raw)
	}
	return nil
}

// MarshalJSON mirrors UnmarshalJSON.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.Numeric {
		return json.Marshal(v.Level)
	}
	return json.Marshal(v.On)
}

// Device is one controllable endpoint reported by the backend.
// The backend owns the authoritative copy; everything client-side is cache.
type Device struct {
	// ID is the stable key assigned by the backend (the map key in the
	// status payload).
	ID string `json:"-"`

	// Name is the display label.
	Name string `json:"name"`

	// Type is a category tag (light, fan, ac, thermostat) used for icons.
	Type string `json:"type"`

	// State is the current on/off or set-point value.
	State Value `json:"state"`
}

// Sensors is the full environmental snapshot. It is read-only from the
// client's perspective and replaced wholesale on each poll.
type Sensors struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	LightLevel  float64 `json:"light_level"`
	Motion      bool    `json:"motion"`
	GasLevel    float64 `json:"gas_level"`
}

// StatusSnapshot is the combined device and sensor view from one poll.
type StatusSnapshot struct {
	Devices map[string]Device `json:"devices"`
	Sensors Sensors           `json:"sensors"`
}

// Intent is the backend's classification of a chat message.
type Intent struct {
	Type string `json:"type"`
}

// IntentDeviceControl marks replies that changed device state server-side.
// The caller should refresh device status when it sees this.
const IntentDeviceControl = "device_control"

// ChatReply is a successful response from the chat endpoint.
type ChatReply struct {
	// Response is the assistant's text reply.
	Response string `json:"response"`

	// Intent is present when the backend classified the message.
	Intent *Intent `json:"intent,omitempty"`

	// AudioURL optionally points at a pre-rendered speech clip. Absent
	// means the client should synthesize locally.
	AudioURL string `json:"audio_url,omitempty"`
}

// HasClip reports whether the reply carries a remote speech clip.
func (r *ChatReply) HasClip() bool {
	return r != nil && r.AudioURL != ""
}
