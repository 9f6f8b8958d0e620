package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/fabian-lindhardt/ableton-ebs/internal/config"
	"github.com/fabian-lindhardt/ableton-ebs/internal/domain"
	apperrors "github.com/fabian-lindhardt/ableton-ebs/internal/errors"
	"github.com/fabian-lindhardt/ableton-ebs/internal/relay"
	"github.com/fabian-lindhardt/ableton-ebs/internal/session"
)

// Default connection limits for the WebSocket endpoint.
const (
	defaultMaxConnections      = 1024
	defaultMaxConnectionsPerIP = 16
	defaultConnectionsPerSec   = 10.0
	defaultConnectionBurst     = 10
)

// TokenVerifier validates an extension-helper JWT and returns the caller's
// identity. Implemented by twitch.Verifier; tests supply fakes.
type TokenVerifier interface {
	Verify(token string) (domain.Claims, error)
}

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	relay     *relay.Relay
	sessions  domain.SessionService
	gateway   *session.Gateway
	verifier  TokenVerifier
	limits    *ConnectionLimits
	upgrader  websocket.Upgrader
	startTime time.Time
}

func NewServer(cfg *config.Config, r *relay.Relay, sessions domain.SessionService, gateway *session.Gateway, verifier TokenVerifier) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:     e,
		config:   cfg,
		relay:    r,
		sessions: sessions,
		gateway:  gateway,
		verifier: verifier,
		limits: NewConnectionLimits(
			defaultMaxConnections,
			defaultMaxConnectionsPerIP,
			defaultConnectionsPerSec,
			defaultConnectionBurst,
		),
		startTime: time.Now(),
	}

	srv.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     srv.checkOrigin,
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
