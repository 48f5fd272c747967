// Package server provides the HTTP API for registrybot.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/registrybot/internal/dispatch"
)

// ErrInvalidConfig indicates invalid server configuration.
var ErrInvalidConfig = errors.New("invalid configuration")

// WhatsAppProcessor answers one inbound WhatsApp message.
type WhatsAppProcessor interface {
	Process(ctx context.Context, from, body string) string
}

// WebProcessor answers one stateless web message.
type WebProcessor interface {
	Process(ctx context.Context, message string) string
}

// MessageSender delivers an outbound channel message.
type MessageSender interface {
	Send(ctx context.Context, to, body string) error
}

// Enqueuer schedules background work. *dispatch.Dispatcher satisfies it.
type Enqueuer interface {
	Enqueue(task dispatch.Task)
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Server exposes the webhook and web chat endpoints.
type Server struct {
	echo       *echo.Echo
	whatsapp   WhatsAppProcessor
	web        WebProcessor
	sender     MessageSender
	dispatcher Enqueuer
	logger     *zap.Logger
	config     Config
}

// NewServer creates the HTTP server.
func NewServer(whatsapp WhatsAppProcessor, web WebProcessor, sender MessageSender, dispatcher Enqueuer, logger *zap.Logger, cfg Config) (*Server, error) {
	if whatsapp == nil {
		return nil, fmt.Errorf("%w: whatsapp processor is required", ErrInvalidConfig)
	}
	if web == nil {
		return nil, fmt.Errorf("%w: web processor is required", ErrInvalidConfig)
	}
	if sender == nil {
		return nil, fmt.Errorf("%w: message sender is required", ErrInvalidConfig)
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("%w: dispatcher is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Port == 0 {
		cfg.Port = 3002
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:       e,
		whatsapp:   whatsapp,
		web:        web,
		sender:     sender,
		dispatcher: dispatcher,
		logger:     logger,
		config:     cfg,
	}
	s.registerRoutes()

	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.POST("/whatsapp-endpoint", s.handleWhatsApp)
	s.echo.POST("/web-endpoint", s.handleWeb)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// WebRequest is the request body for POST /web-endpoint.
type WebRequest struct {
	Message string `json:"message"`
}

// WebResponse is the response body for POST /web-endpoint.
type WebResponse struct {
	Response string `json:"response"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleWhatsApp acknowledges the webhook immediately. The answer is
// produced and delivered out-of-band by a dispatcher worker; queued
// tasks deliberately outlive the webhook request's context.
func (s *Server) handleWhatsApp(c echo.Context) error {
	from := strings.TrimSpace(c.FormValue("From"))
	body := c.FormValue("Body")

	if from == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "From field is required")
	}

	s.dispatcher.Enqueue(func() error {
		ctx := context.Background()
		reply := s.whatsapp.Process(ctx, from, body)
		if reply == "" {
			return nil
		}
		if err := s.sender.Send(ctx, from, reply); err != nil {
			return fmt.Errorf("delivering reply to %s: %w", from, err)
		}
		return nil
	})

	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleWeb(c echo.Context) error {
	var req WebRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid web request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	reply := s.web.Process(c.Request().Context(), req.Message)
	return c.JSON(http.StatusOK, WebResponse{Response: reply})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
