// Package gateway wraps the JARVIS backend HTTP API.
//
// The backend is the single source of truth for chat responses and device
// state. This client is deliberately thin: fixed base URL plus path, JSON
// in and out, no retry logic. Transient failures are recovered by the
// caller's own schedule (the device poller re-polls, the user re-sends).
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mainhushivam/go-jarvis/internal/httpc"
)

// Backend API paths.
const (
	pathHealth        = "/health"
	pathDeviceStatus  = "/api/devices/status"
	pathChat          = "/api/chat"
	pathDeviceControl = "/api/devices/control"
)

// maxErrorBody limits how much of an error response is kept for logging.
const maxErrorBody = 512

// API is the backend surface consumed by the rest of the app.
// Client implements it against the real backend; Mock implements it for
// tests and demo mode.
type API interface {
	// CheckHealth reports backend reachability. Failures of any kind map
	// to StatusOffline; this never returns an error.
	CheckHealth(ctx context.Context) Status

	// FetchDeviceStatus returns the full device and sensor snapshot.
	// On error the caller must keep its previous cached value.
	FetchDeviceStatus(ctx context.Context) (*StatusSnapshot, error)

	// SendChat submits one user message and returns the assistant reply.
	SendChat(ctx context.Context, message, userID string) (*ChatReply, error)

	// SetDeviceState issues a control command. The caller is expected to
	// refresh status afterwards to confirm; on error it reverts any
	// optimistic local change.
	SetDeviceState(ctx context.Context, deviceID string, action Action, value *float64) error

	// FetchClip downloads a reply's audio clip.
	FetchClip(ctx context.Context, url string) ([]byte, error)
}

// Client is the HTTP implementation of API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a gateway client for the given base URL.
// The URL must not end with a slash (internal/config.APIURL guarantees
// this for env-sourced values).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    httpc.Client,
		logger:  slog.Default().With("component", "gateway"),
	}
}

// NewClientWithHTTP creates a gateway client with a custom http.Client.
// Used by tests with httptest servers.
func NewClientWithHTTP(baseURL string, hc *http.Client) *Client {
	c := NewClient(baseURL)
	c.http = hc
	return c
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// CheckHealth implements API. Anything short of a 2xx with
// {"status":"healthy"} is offline.
func (c *Client) CheckHealth(ctx context.Context) Status {
	var payload struct {
		Status string `json:"status"`
	}
	if err := c.getJSON(ctx, pathHealth, &payload); err != nil {
		c.logger.Debug("health check failed", "error", err)
		return StatusOffline
	}
	if payload.Status != "healthy" {
		return StatusOffline
	}
	return StatusOnline
}

// FetchDeviceStatus implements API.
func (c *Client) FetchDeviceStatus(ctx context.Context) (*StatusSnapshot, error) {
	var snap StatusSnapshot
	if err := c.getJSON(ctx, pathDeviceStatus, &snap); err != nil {
		return nil, err
	}
	if snap.Devices == nil {
		snap.Devices = map[string]Device{}
	}
	// The payload keys devices by id; copy the key into each value so
	// callers can pass Device around without the map.
	for id, dev := range snap.Devices {
		dev.ID = id
		snap.Devices[id] = dev
	}
	return &snap, nil
}

// SendChat implements API.
func (c *Client) SendChat(ctx context.Context, message, userID string) (*ChatReply, error) {
	if message == "" {
		return nil, ErrEmptyMessage
	}
	body := map[string]string{
		"message": message,
		"user_id": userID,
	}
	var reply ChatReply
	if err := c.postJSON(ctx, pathChat, body, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// SetDeviceState implements API.
func (c *Client) SetDeviceState(ctx context.Context, deviceID string, action Action, value *float64) error {
	body := map[string]any{
		"device": deviceID,
		"action": string(action),
	}
	if value != nil {
		body["value"] = *value
	}
	return c.postJSON(ctx, pathDeviceControl, body, nil)
}

// FetchClip implements API. The URL comes from a chat reply and may be
// absolute or relative to the backend base.
func (c *Client) FetchClip(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, ErrNoClip
	}
	if url[0] == '/' {
		url = c.baseURL + url
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &ConnectivityError{Endpoint: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Endpoint: url}
	}
	return io.ReadAll(resp.Body)
}

// getJSON performs a GET and decodes the response into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, path, out)
}

// postJSON performs a POST with a JSON body and decodes the response into
// out. Pass nil out to discard the response body (control acks).
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("gateway: marshal %s body: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(req, path, out)
}

// doJSON executes the request and maps failures onto the error taxonomy.
func (c *Client) doJSON(req *http.Request, path string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return &ConnectivityError{Endpoint: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Endpoint: path, Message: string(bytes.TrimSpace(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("gateway: decode %s response: %w", path, err)
	}
	return nil
}

// Verify Client implements API at compile time.
var _ API = (*Client)(nil)
