package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fabian-lindhardt/ableton-ebs/internal/domain"
	apperrors "github.com/fabian-lindhardt/ableton-ebs/internal/errors"
	"github.com/fabian-lindhardt/ableton-ebs/internal/logging"
)

// actions the producer understands. Anything else is rejected before the
// gateway is even consulted.
var allowedActions = map[string]bool{
	"noteon":       true,
	"noteoff":      true,
	"cc":           true,
	"fader":        true,
	"knob":         true,
	"start":        true,
	"stop":         true,
	"launch_clip":  true,
	"launch_scene": true,
	"stop_track":   true,
}

func (s *Server) handleState(c echo.Context) error {
	snapshot := s.relay.Snapshot()
	if err := c.JSON(200, snapshot); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleSessionStatus(c echo.Context) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return apperrors.InternalError("missing claims in context", nil)
	}

	status := s.sessions.Status(c.Request().Context(), claims.EntitlementKey())
	if err := c.JSON(200, map[string]any{"success": true, "session": status}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleTransaction(c echo.Context) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return apperrors.InternalError("missing claims in context", nil)
	}

	var req struct {
		SKU           string `json:"sku"`
		TransactionID string `json:"transactionId"`
	}
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.SKU == "" {
		return apperrors.ValidationError("sku is required")
	}
	if req.TransactionID == "" {
		return apperrors.ValidationError("transactionId is required")
	}

	sess, err := s.sessions.Extend(c.Request().Context(), claims.EntitlementKey(), req.SKU, req.TransactionID)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownSKU) {
			return apperrors.ValidationError("unknown sku").WithField("sku", req.SKU)
		}
		return apperrors.InternalError("failed to extend session", err)
	}

	if err := c.JSON(200, map[string]any{"success": true, "session": sess}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleTrial(c echo.Context) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return apperrors.InternalError("missing claims in context", nil)
	}

	result, err := s.sessions.ActivateFreeTrial(c.Request().Context(), claims.EntitlementKey())
	if err != nil {
		var cooldown *domain.CooldownActiveError
		if errors.As(err, &cooldown) {
			return apperrors.RateLimitedError("free trial on cooldown").
				WithField("remainingSeconds", int64(cooldown.Remaining.Seconds()))
		}
		return apperrors.InternalError("failed to activate free trial", err)
	}

	if err := c.JSON(200, result); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleDevSession(c echo.Context) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return apperrors.InternalError("missing claims in context", nil)
	}

	var req struct {
		DurationSeconds int `json:"durationSeconds"`
	}
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.DurationSeconds <= 0 {
		req.DurationSeconds = 3600
	}

	sess, err := s.sessions.GrantDev(c.Request().Context(), claims.EntitlementKey(), time.Duration(req.DurationSeconds)*time.Second)
	if err != nil {
		return apperrors.InternalError("failed to grant dev session", err)
	}

	if err := c.JSON(200, map[string]any{"success": true, "session": sess}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleTrigger(c echo.Context) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return apperrors.InternalError("missing claims in context", nil)
	}

	var req struct {
		Action string          `json:"action"`
		Data   json.RawMessage `json:"data"`
	}
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if !allowedActions[req.Action] {
		return apperrors.ValidationError("unknown action").WithField("action", req.Action)
	}

	if err := s.gateway.Authorize(c.Request().Context(), claims); err != nil {
		return apperrors.ForbiddenError("active session required")
	}

	payload, err := json.Marshal(domain.Envelope{Type: req.Action, Data: req.Data})
	if err != nil {
		return apperrors.InternalError("failed to marshal command", err)
	}

	if err := s.relay.Forward(payload); err != nil {
		if errors.Is(err, domain.ErrProducerUnavailable) {
			return apperrors.UnavailableError("producer not connected", err)
		}
		return apperrors.InternalError("failed to forward command", err)
	}

	logging.WithUser(claims.EntitlementKey()).Debug("Command forwarded", "action", req.Action)

	if err := c.JSON(200, map[string]any{"success": true}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
