// Package web serves the dashboard: REST endpoints mirroring the
// assistant's state plus websocket push channels for status,
// conversation and visualizer frames.
package web

import (
	"log/slog"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/mainhushivam/go-jarvis/pkg/conversation"
	"github.com/mainhushivam/go-jarvis/pkg/devices"
	"github.com/mainhushivam/go-jarvis/pkg/gateway"
	"github.com/mainhushivam/go-jarvis/pkg/hub"
	"github.com/mainhushivam/go-jarvis/pkg/visualizer"
)

// StatusView is the status payload pushed to dashboard clients.
type StatusView struct {
	Status        gateway.Status     `json:"status"`
	Flags         conversation.Flags `json:"flags"`
	AudioUnlocked bool               `json:"audio_unlocked"`
}

// Server is the dashboard HTTP and websocket server.
type Server struct {
	app    *fiber.App
	port   string
	logger *slog.Logger

	store  *conversation.Store
	poller *devices.Poller

	// Hubs for websocket broadcast, one per push channel
	statusHub       *hub.Hub
	conversationHub *hub.Hub
	devicesHub      *hub.Hub
	frameHub        *hub.Hub

	// Latest status view, re-sent to clients on connect
	status   StatusView
	statusMu sync.RWMutex

	// Action callbacks wired by the assistant
	OnChat        func(message string) error
	OnMicToggle   func() error
	OnUnlockAudio func() bool
	OnClear       func()
	OnToggle      func(deviceID string) error
	OnSetLevel    func(deviceID string, level float64) error
}

// NewServer creates the dashboard server. The store and poller are read
// directly; mutations go through the On* callbacks so the assistant
// keeps ownership of the submission pipeline.
func NewServer(port string, store *conversation.Store, poller *devices.Poller) *Server {
	s := &Server{
		port:            port,
		logger:          slog.Default().With("component", "web"),
		store:           store,
		poller:          poller,
		statusHub:       hub.New("status"),
		conversationHub: hub.New("conversation"),
		devicesHub:      hub.New("devices"),
		frameHub:        hub.New("frames"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "JARVIS Dashboard",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	// Static files
	app.Static("/", "./web")

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/conversation", s.handleGetConversation)
	api.Post("/chat", s.handleChat)
	api.Post("/conversation/clear", s.handleClearConversation)
	api.Get("/devices", s.handleGetDevices)
	api.Post("/devices/:id/toggle", s.handleToggleDevice)
	api.Post("/devices/:id/level", s.handleSetDeviceLevel)
	api.Post("/mic/toggle", s.handleMicToggle)
	api.Post("/audio/unlock", s.handleUnlockAudio)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/conversation", websocket.New(s.handleConversationWS))
	app.Get("/ws/devices", websocket.New(s.handleDevicesWS))
	app.Get("/ws/frames", websocket.New(s.handleFramesWS))

	s.app = app
	return s
}

// Start starts the hubs and listens on the configured port. Blocks.
func (s *Server) Start() error {
	s.logger.Info("dashboard listening", "addr", "http://localhost:"+s.port)

	go s.statusHub.Run()
	go s.conversationHub.Run()
	go s.devicesHub.Run()
	go s.frameHub.Run()

	return s.app.Listen(":" + s.port)
}

// StartAsync starts the web server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("dashboard server stopped", "error", err)
		}
	}()
}

// PushStatus records the latest status view and broadcasts it.
func (s *Server) PushStatus(v StatusView) {
	s.statusMu.Lock()
	s.status = v
	s.statusMu.Unlock()

	s.statusHub.BroadcastJSON(v)
}

// PushConversation broadcasts the current conversation log.
func (s *Server) PushConversation() {
	s.conversationHub.BroadcastJSON(s.conversationView())
}

// PushDevices broadcasts the current device panel snapshot.
func (s *Server) PushDevices() {
	s.devicesHub.BroadcastJSON(s.devicesView())
}

// PushFrame broadcasts one visualizer frame.
func (s *Server) PushFrame(f visualizer.Frame) {
	s.frameHub.BroadcastJSON(f)
}

// Shutdown stops the hubs and gracefully closes the listener.
func (s *Server) Shutdown() error {
	s.statusHub.Stop()
	s.conversationHub.Stop()
	s.devicesHub.Stop()
	s.frameHub.Stop()
	return s.app.Shutdown()
}
