// Package assistant orchestrates the JARVIS client: it wires the backend
// gateway, conversation store, speech coordinator, device poller,
// visualizer and dashboard into one application.
package assistant

import (
	"time"

	"github.com/mainhushivam/go-jarvis/internal/config"
)

// Config holds all configuration for the assistant application.
// Flag parsing is done in cmd/jarvis/main.go; this struct is data only.
type Config struct {
	// Debug enables verbose debug logging.
	Debug bool

	// APIURL is the base URL of the JARVIS backend.
	APIURL string

	// UserID identifies this client in chat submissions.
	UserID string

	// DashboardPort is the local dashboard listen port.
	DashboardPort string

	// PollInterval is the device status refresh period.
	PollInterval time.Duration

	// HealthInterval is the backend reachability check period.
	HealthInterval time.Duration

	// Voice is the synthesis voice passed to the local TTS engine.
	Voice string

	// CaptureCommand is the host speech-to-text command line, empty when
	// the mic affordance is disabled.
	CaptureCommand string

	// Demo runs against a simulated backend instead of the network.
	Demo bool
}

// DefaultConfig returns sensible defaults for the assistant.
func DefaultConfig() Config {
	return Config{
		APIURL:         config.DefaultAPIURL,
		UserID:         config.DefaultUserID,
		DashboardPort:  config.DefaultDashboardPort,
		PollInterval:   5 * time.Second,
		HealthInterval: 15 * time.Second,
		Voice:          "en",
	}
}

// LoadEnvConfig loads configuration values from environment variables.
// Call this after flag parsing to apply environment overrides.
func (c *Config) LoadEnvConfig() {
	if c.APIURL == "" || c.APIURL == config.DefaultAPIURL {
		c.APIURL = config.APIURL()
	}
	if c.UserID == "" || c.UserID == config.DefaultUserID {
		c.UserID = config.UserID()
	}
	if c.DashboardPort == "" || c.DashboardPort == config.DefaultDashboardPort {
		c.DashboardPort = config.DashboardPort()
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.APIURL == "" && !c.Demo {
		return &ConfigError{Field: "APIURL", Message: "backend URL is required (set JARVIS_API_URL or --api-url)"}
	}
	if c.UserID == "" {
		return &ConfigError{Field: "UserID", Message: "user id must not be empty"}
	}
	if c.PollInterval < time.Second {
		return &ConfigError{Field: "PollInterval", Message: "poll interval must be at least one second"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
