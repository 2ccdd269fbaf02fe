// Package web provides the local dashboard: a REST API over the chat
// session, a websocket that mirrors session state, and a websocket through
// which a browser tab serves as the speech engine.
package web

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-companion/pkg/chat"
	"github.com/teslashibe/go-companion/pkg/hub"
	"github.com/teslashibe/go-companion/pkg/voice"
)

//go:embed static
var staticFiles embed.FS

// DefaultPort is the dashboard port.
const DefaultPort = 8088

// shutdownTimeout bounds graceful shutdown of the HTTP server.
const shutdownTimeout = 5 * time.Second

// VoiceControl is the part of the voice bridge the dashboard drives.
type VoiceControl interface {
	Status() voice.Status
	StartListening() error
	StopListening() error
	SetMuted(muted bool) error
	Subscribe(fn func(voice.Status)) func()
}

// Option configures a Server.
type Option func(*Server)

// WithVoice exposes the voice bridge through /api/voice.
func WithVoice(v VoiceControl) Option {
	return func(s *Server) {
		s.voice = v
	}
}

// WithSpeech serves a browser speech engine on /ws/speech.
func WithSpeech(rs *RemoteSpeech) Option {
	return func(s *Server) {
		s.speech = rs
	}
}

// WithLogger sets the structured logger for the server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// Server is the dashboard server.
type Server struct {
	app      *fiber.App
	session  *chat.Session
	voice    VoiceControl
	speech   *RemoteSpeech
	stateHub *hub.Hub
	validate *validator.Validate
	logger   *slog.Logger
}

// NewServer creates a dashboard for session.
func NewServer(session *chat.Session, opts ...Option) *Server {
	s := &Server{
		session:  session,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   slog.Default().With("component", "web"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.stateHub = hub.New("state", s.logger)

	app := fiber.New(fiber.Config{
		AppName:               "Companion Dashboard",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	// CORS for local development
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/session", s.handleSession)
	api.Post("/messages", s.handleSendMessage)
	api.Get("/avatars", s.handleListAvatars)
	api.Post("/avatar", s.handleSelectAvatar)
	api.Post("/avatar/open", s.handleOpenCustomizer)
	api.Post("/avatar/close", s.handleCloseCustomizer)
	api.Get("/voice", s.handleVoiceStatus)
	api.Post("/voice/listen", s.handleVoiceListen)
	api.Post("/voice/stop", s.handleVoiceStop)
	api.Post("/voice/mute", s.handleVoiceMute)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/state", websocket.New(s.handleStateWS))
	app.Get("/ws/speech", websocket.New(s.handleSpeechWS))

	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err) // embedded directory always exists
	}
	app.Use("/", filesystem.New(filesystem.Config{
		Root:  http.FS(static),
		Index: "index.html",
	}))

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run listens on addr and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves the dashboard on ln until ctx is cancelled. State changes are
// broadcast to /ws/state clients while serving.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	hubCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.stateHub.Run(hubCtx)

	unwatch := s.watch()
	defer unwatch()

	s.logger.Info("dashboard listening", "url", "http://"+ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listener(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

// watch forwards session and voice changes to the state hub.
func (s *Server) watch() func() {
	unsubSession := s.session.Subscribe(func(change chat.Change) {
		if err := s.stateHub.BroadcastJSON(hub.KindSession, change.State); err != nil {
			s.logger.Warn("broadcast session", "error", err)
		}
	})
	unsubVoice := func() {}
	if s.voice != nil {
		unsubVoice = s.voice.Subscribe(func(status voice.Status) {
			if err := s.stateHub.BroadcastJSON(hub.KindVoice, status); err != nil {
				s.logger.Warn("broadcast voice", "error", err)
			}
		})
	}
	return func() {
		unsubSession()
		unsubVoice()
	}
}
