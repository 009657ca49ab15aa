// Package httpapi exposes the assistant over HTTP.
package httpapi

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/gmoreiraDEV/basix-engine/agent/agents/assistant"
	contractx "github.com/gmoreiraDEV/basix-engine/agent/contract"
)

// Config is read with the HTTP prefix.
type Config struct {
	ListenAddr string `split_words:"true" default:":8080"`
}

type Assistant interface {
	Handle(ctx context.Context, req assistant.Request) (assistant.Envelope, error)
}

type Server struct {
	config    Config
	assistant Assistant
	app       *fiber.App
}

func NewServer(config Config, a Assistant) (*Server, error) {
	if a == nil {
		return nil, errors.New("assistant is required")
	}
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:    config,
		assistant: a,
		app:       app,
	}

	app.Get("/ping", s.handlePing)
	app.Post("/v1/messages", s.handleMessage)

	return s, nil
}

func (s *Server) Run() error {
	log.Info().Str("listen", s.config.ListenAddr).Msg("starting HTTP server")
	return s.app.Listen(s.config.ListenAddr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

func (s *Server) handleMessage(c *fiber.Ctx) error {
	var req assistant.Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(assistant.Envelope{
			Success: false,
			Error:   "invalid request body",
		})
	}

	env, err := s.assistant.Handle(c.UserContext(), req)
	switch {
	case errors.Is(err, contractx.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(env)
	case err != nil:
		log.Error().Err(err).Msg("message handling failed")
		return c.Status(fiber.StatusInternalServerError).JSON(env)
	}
	return c.JSON(env)
}
