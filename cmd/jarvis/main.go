// JARVIS client daemon: connects the hosted JARVIS backend to a local
// dashboard with chat, voice output, device control and live sensors.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	cli "github.com/spf13/pflag"

	"github.com/mainhushivam/go-jarvis/internal/config"
	"github.com/mainhushivam/go-jarvis/internal/log"
	"github.com/mainhushivam/go-jarvis/pkg/assistant"
	"github.com/mainhushivam/go-jarvis/pkg/gateway"
	"github.com/mainhushivam/go-jarvis/pkg/speech"
)

func main() {
	cfg := parseFlags()

	level := "info"
	if cfg.Debug {
		level = "debug"
	}
	log.Init(level)

	if err := cfg.Validate(); err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(1)
	}

	var api gateway.API
	if cfg.Demo {
		log.Info("demo mode, using simulated backend")
		api = gateway.NewMock()
	} else {
		api = gateway.NewClient(cfg.APIURL)
	}

	app := assistant.New(cfg, api, buildRecognizer(cfg.CaptureCommand), buildOutput(api, cfg.Voice))

	log.Info("starting jarvis client",
		"session", uuid.NewString(),
		"backend", cfg.APIURL,
		"dashboard_port", cfg.DashboardPort,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx); err != nil {
		log.Error("runtime error", "error", err)
		os.Exit(1)
	}
}

// buildRecognizer wires the capture command, when one is configured and
// present on this host. A nil return disables the mic affordance.
func buildRecognizer(command string) speech.Recognizer {
	if command == "" {
		log.Info("no capture command configured, dashboard chat is the input path")
		return nil
	}
	rec, err := speech.NewExecRecognizer(strings.Fields(command))
	if err != nil {
		log.Warn("capture command unavailable, microphone disabled", "command", command)
		return nil
	}
	return rec
}

// buildOutput assembles the speech output chain: remote clip playback
// first, local synthesis as fallback. Missing host commands degrade the
// chain instead of failing startup.
func buildOutput(api gateway.API, voice string) speech.Output {
	var outputs []speech.Output

	if play, err := speech.NewExecPlayFunc(); err == nil {
		outputs = append(outputs, speech.NewClipOutput(api, play))
	} else {
		log.Warn("no audio player command found, remote clips disabled")
	}

	if synth, err := speech.NewExecSynthOutput(voice); err == nil {
		outputs = append(outputs, synth)
	} else {
		log.Warn("no synthesis command found, local synthesis disabled")
	}

	if len(outputs) == 0 {
		log.Warn("speech output unavailable, replies will be text only")
		outputs = append(outputs, speech.NewSynthOutput(func(ctx context.Context, text string) error {
			return speech.ErrSynthUnavailable
		}))
	}

	chain, err := speech.NewFallbackOutput(outputs...)
	if err != nil {
		log.Error("speech output setup failed", "error", err)
		os.Exit(1)
	}
	return chain
}

// parseFlags parses command line flags and returns configuration.
func parseFlags() assistant.Config {
	cfg := assistant.DefaultConfig()

	debug := cli.Bool("debug", false, "Enable verbose debug logging")
	apiURL := cli.String("api-url", "", "Backend base URL (overrides JARVIS_API_URL)")
	userID := cli.String("user", "", "Chat user id (overrides JARVIS_USER_ID)")
	port := cli.StringP("port", "p", "", "Dashboard port (overrides JARVIS_DASHBOARD_PORT)")
	interval := cli.Duration("poll-interval", cfg.PollInterval, "Device status poll interval")
	voice := cli.String("voice", cfg.Voice, "Local synthesis voice")
	sttCmd := cli.String("stt-cmd", "", "Speech capture command printing a transcript on stdout")
	demo := cli.Bool("demo", false, "Run against a simulated backend")
	cli.Parse()

	config.LoadDotenv()
	cfg.LoadEnvConfig()

	cfg.Debug = *debug
	cfg.Demo = *demo
	cfg.Voice = *voice
	cfg.CaptureCommand = *sttCmd
	if *apiURL != "" {
		cfg.APIURL = *apiURL
	}
	if *userID != "" {
		cfg.UserID = *userID
	}
	if *port != "" {
		cfg.DashboardPort = *port
	}
	if *interval >= time.Second {
		cfg.PollInterval = *interval
	}
	return cfg
}
