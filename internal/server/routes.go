package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints (no auth required)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/version", s.handleVersion)

	// Relay endpoint: producer and consumers both connect here; the
	// identify message decides the role.
	s.echo.GET("/ws", s.handleWebSocket)

	// Viewer API (extension JWT required)
	api := s.echo.Group("/api", s.requireAuth)
	api.GET("/state", s.handleState)
	api.GET("/session", s.handleSessionStatus)
	api.POST("/transaction", s.handleTransaction)
	api.POST("/trial", s.handleTrial)
	api.POST("/trigger", s.handleTrigger)

	// Dev escape hatch, never registered in production
	if !s.config.IsProduction() {
		api.POST("/dev-session", s.handleDevSession)
	}
}
