package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/mainhushivam/go-jarvis/pkg/conversation"
	"github.com/mainhushivam/go-jarvis/pkg/gateway"
	"github.com/mainhushivam/go-jarvis/pkg/hub"
)

// ConversationView is the conversation payload for REST and websocket.
type ConversationView struct {
	Turns []conversation.Turn `json:"turns"`
	Flags conversation.Flags  `json:"flags"`
}

// DeviceView flattens a device with its map key for the dashboard.
type DeviceView struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Type  string        `json:"type"`
	State gateway.Value `json:"state"`
}

// DevicesView is the device panel payload.
type DevicesView struct {
	Devices []DeviceView    `json:"devices"`
	Sensors gateway.Sensors `json:"sensors"`
	Pending []string        `json:"pending"`
}

func (s *Server) conversationView() ConversationView {
	return ConversationView{Turns: s.store.Turns(), Flags: s.store.Flags()}
}

func (s *Server) devicesView() DevicesView {
	list := s.poller.Devices()
	view := DevicesView{
		Devices: make([]DeviceView, 0, len(list)),
		Sensors: s.poller.Sensors(),
		Pending: s.poller.PendingIDs(),
	}
	for _, d := range list {
		view.Devices = append(view.Devices, DeviceView{
			ID:    d.ID,
			Name:  d.Name,
			Type:  d.Type,
			State: d.State,
		})
	}
	return view
}

// handleStatus returns the latest status view.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return c.JSON(s.status)
}

// handleGetConversation returns the conversation log and flags.
func (s *Server) handleGetConversation(c *fiber.Ctx) error {
	return c.JSON(s.conversationView())
}

// ChatRequest is the request body for a typed message.
type ChatRequest struct {
	Message string `json:"message"`
}

// handleChat submits a typed message through the assistant.
func (s *Server) handleChat(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if s.OnChat == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "chat not configured",
		})
	}
	if err := s.OnChat(req.Message); err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"accepted": true})
}

// handleClearConversation wipes the conversation log.
func (s *Server) handleClearConversation(c *fiber.Ctx) error {
	if s.OnClear != nil {
		s.OnClear()
	}
	return c.JSON(fiber.Map{"cleared": true})
}

// handleGetDevices returns the device panel snapshot.
func (s *Server) handleGetDevices(c *fiber.Ctx) error {
	return c.JSON(s.devicesView())
}

// handleToggleDevice flips a binary device.
func (s *Server) handleToggleDevice(c *fiber.Ctx) error {
	id := c.Params("id")
	if s.OnToggle == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "device control not configured",
		})
	}
	if err := s.OnToggle(id); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"device": id, "accepted": true})
}

// SetLevelRequest is the request body for an analog device.
type SetLevelRequest struct {
	Level float64 `json:"level"`
}

// handleSetDeviceLevel sets an analog device level.
func (s *Server) handleSetDeviceLevel(c *fiber.Ctx) error {
	id := c.Params("id")

	var req SetLevelRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if s.OnSetLevel == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "device control not configured",
		})
	}
	if err := s.OnSetLevel(id, req.Level); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"device": id, "level": req.Level, "accepted": true})
}

// handleMicToggle flips microphone capture.
func (s *Server) handleMicToggle(c *fiber.Ctx) error {
	if s.OnMicToggle == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "microphone not configured",
		})
	}
	if err := s.OnMicToggle(); err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"accepted": true})
}

// handleUnlockAudio records a user interaction that unlocks speech
// output. Only the first call flips the gate.
func (s *Server) handleUnlockAudio(c *fiber.Ctx) error {
	unlocked := false
	if s.OnUnlockAudio != nil {
		unlocked = s.OnUnlockAudio()
	}
	return c.JSON(fiber.Map{"unlocked": unlocked})
}

// handleStatusWS streams status updates. The current view is sent on
// connect so new clients do not wait for the next change.
func (s *Server) handleStatusWS(c *websocket.Conn) {
	s.statusMu.RLock()
	c.WriteJSON(s.status)
	s.statusMu.RUnlock()

	hub.NewClient(s.statusHub, c).Run()
}

// handleConversationWS streams conversation updates.
func (s *Server) handleConversationWS(c *websocket.Conn) {
	c.WriteJSON(s.conversationView())

	hub.NewClient(s.conversationHub, c).Run()
}

// handleDevicesWS streams device panel updates.
func (s *Server) handleDevicesWS(c *websocket.Conn) {
	c.WriteJSON(s.devicesView())

	hub.NewClient(s.devicesHub, c).Run()
}

// handleFramesWS streams visualizer frames.
func (s *Server) handleFramesWS(c *websocket.Conn) {
	hub.NewClient(s.frameHub, c).Run()
}
