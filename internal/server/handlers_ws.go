package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/fabian-lindhardt/ableton-ebs/internal/domain"
	"github.com/fabian-lindhardt/ableton-ebs/internal/logging"
)

const maxMessageSize = 64 * 1024

// checkOrigin gates browser upgrades against the configured allowlist. An
// empty allowlist admits everything; a request without an Origin header is a
// non-browser client (the bridge) and is always admitted.
func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.config.AllowedOrigins) == 0 {
		return true
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	for _, allowed := range s.config.AllowedOrigins {
		if strings.EqualFold(origin, allowed) {
			return true
		}
	}
	return false
}

func (s *Server) handleWebSocket(c echo.Context) error {
	ip := c.RealIP()

	allowed, reason := s.limits.Acquire(ip)
	if !allowed {
		slog.Warn("WebSocket connection rejected", "ip", ip, "reason", reason)
		return c.String(http.StatusTooManyRequests, "connection limit reached")
	}
	defer s.limits.Release(ip)

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade WebSocket: %w", err)
	}

	connID := uuid.NewString()
	log := logging.WithConnection(connID)
	log.Debug("WebSocket connected", "ip", ip)

	conn.SetReadLimit(maxMessageSize)
	s.relay.Attach(conn)

	// Read pump — blocks until the connection closes. Malformed frames are
	// dropped; the connection stays up.
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var env domain.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			log.Debug("Dropping malformed message", "error", err)
			continue
		}
		s.relay.HandleMessage(conn, env)
	}

	s.relay.Detach(conn)
	log.Debug("WebSocket disconnected")

	return nil //nolint:nilerr // ReadMessage err is block-scoped; outer err is nil
}
