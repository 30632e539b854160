// Package config provides configuration helpers for go-jarvis commands.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Default backend configuration.
const (
	// DefaultAPIURL is the hosted JARVIS backend. Override with
	// JARVIS_API_URL or the --api-url flag; no rebuild required.
	DefaultAPIURL = "https://mainhushivam-jarvis-api.hf.space"

	DefaultUserID        = "web_user"
	DefaultDashboardPort = "8090"
)

// LoadDotenv loads a .env file if present. Missing files are not an error;
// explicit environment variables always win over .env values.
func LoadDotenv() {
	_ = godotenv.Load()
}

// APIURL returns the backend base URL from JARVIS_API_URL.
// Falls back to DefaultAPIURL if not set. A trailing slash is stripped so
// callers can join paths with a plain "+".
func APIURL() string {
	if url := os.Getenv("JARVIS_API_URL"); url != "" {
		return strings.TrimRight(url, "/")
	}
	return DefaultAPIURL
}

// UserID returns the chat user id from JARVIS_USER_ID or the default.
func UserID() string {
	if id := os.Getenv("JARVIS_USER_ID"); id != "" {
		return id
	}
	return DefaultUserID
}

// DashboardPort returns the local dashboard port from JARVIS_DASHBOARD_PORT.
func DashboardPort() string {
	if port := os.Getenv("JARVIS_DASHBOARD_PORT"); port != "" {
		return port
	}
	return DefaultDashboardPort
}
