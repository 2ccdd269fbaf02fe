package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-companion/pkg/avatar"
	"github.com/teslashibe/go-companion/pkg/eventloop"
	"github.com/teslashibe/go-companion/pkg/hub"
)

// MessageRequest is the body of POST /api/messages. Text may be empty but
// must be present.
type MessageRequest struct {
	Text *string `json:"text" validate:"required,max=4096"`
}

// AvatarRequest is the body of POST /api/avatar.
type AvatarRequest struct {
	Ref string `json:"ref" validate:"required,max=2048"`
}

// MuteRequest is the body of POST /api/voice/mute.
type MuteRequest struct {
	Muted *bool `json:"muted" validate:"required"`
}

var errVoiceDisabled = fiber.NewError(fiber.StatusServiceUnavailable, "voice control disabled")

// handleError renders every error as {"error": "..."}.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, eventloop.ErrStopped):
		code = fiber.StatusServiceUnavailable
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Warn("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// bind parses and validates a JSON body.
func (s *Server) bind(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body: "+err.Error())
	}
	if err := s.validate.Struct(v); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

func accepted(c *fiber.Ctx) error {
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "accepted"})
}

// handleSession returns the session snapshot.
func (s *Server) handleSession(c *fiber.Ctx) error {
	return c.JSON(s.session.Snapshot())
}

// handleSendMessage appends a user message.
func (s *Server) handleSendMessage(c *fiber.Ctx) error {
	var req MessageRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	if err := s.session.SendUserMessage(*req.Text); err != nil {
		return err
	}
	return accepted(c)
}

// handleListAvatars returns the built-in presets.
func (s *Server) handleListAvatars(c *fiber.Ctx) error {
	return c.JSON(avatar.Presets)
}

// handleSelectAvatar sets the avatar and closes the customizer.
func (s *Server) handleSelectAvatar(c *fiber.Ctx) error {
	var req AvatarRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	if err := s.session.SelectAvatar(req.Ref); err != nil {
		return err
	}
	return accepted(c)
}

func (s *Server) handleOpenCustomizer(c *fiber.Ctx) error {
	if err := s.session.OpenCustomizer(); err != nil {
		return err
	}
	return accepted(c)
}

func (s *Server) handleCloseCustomizer(c *fiber.Ctx) error {
	if err := s.session.CloseCustomizer(); err != nil {
		return err
	}
	return accepted(c)
}

// handleVoiceStatus returns the voice bridge status.
func (s *Server) handleVoiceStatus(c *fiber.Ctx) error {
	if s.voice == nil {
		return errVoiceDisabled
	}
	return c.JSON(s.voice.Status())
}

func (s *Server) handleVoiceListen(c *fiber.Ctx) error {
	if s.voice == nil {
		return errVoiceDisabled
	}
	if err := s.voice.StartListening(); err != nil {
		return err
	}
	return accepted(c)
}

func (s *Server) handleVoiceStop(c *fiber.Ctx) error {
	if s.voice == nil {
		return errVoiceDisabled
	}
	if err := s.voice.StopListening(); err != nil {
		return err
	}
	return accepted(c)
}

func (s *Server) handleVoiceMute(c *fiber.Ctx) error {
	if s.voice == nil {
		return errVoiceDisabled
	}
	var req MuteRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	if err := s.voice.SetMuted(*req.Muted); err != nil {
		return err
	}
	return accepted(c)
}

// handleStateWS streams session and voice snapshots, starting with the
// current ones.
func (s *Server) handleStateWS(c *websocket.Conn) {
	var initial []hub.Message
	if msg, err := hub.Encode(hub.KindSession, s.session.Snapshot()); err == nil {
		initial = append(initial, msg)
	}
	if s.voice != nil {
		if msg, err := hub.Encode(hub.KindVoice, s.voice.Status()); err == nil {
			initial = append(initial, msg)
		}
	}
	hub.NewClient(s.stateHub, c, initial...).Run()
}

// handleSpeechWS attaches a browser speech engine.
func (s *Server) handleSpeechWS(c *websocket.Conn) {
	if s.speech == nil {
		c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "speech engine disabled"))
		return
	}
	s.speech.Attach(c)
}
