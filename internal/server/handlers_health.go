package server

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fabian-lindhardt/ableton-ebs/internal/version"
)

func (s *Server) handleLiveness(c echo.Context) error {
	uptime := time.Since(s.startTime).Seconds()
	return c.JSON(200, map[string]any{
		"status": "ok",
		"uptime": uptime,
	})
}

// handleReadiness reports ready whenever the process serves traffic. A
// missing producer is an expected state (the bridge restores it with a
// bulk_sync replay), so it is reported but never fails readiness.
func (s *Server) handleReadiness(c echo.Context) error {
	return c.JSON(200, map[string]any{
		"status":             "ready",
		"producer_connected": s.relay.ProducerConnected(),
		"consumers":          s.relay.ConsumerCount(),
		"connections": map[string]any{
			"current":      s.limits.Global().Current(),
			"max":          s.limits.Global().Max(),
			"capacity_pct": s.limits.Global().CapacityPct(),
			"unique_ips":   s.limits.PerIP().UniqueIPs(),
		},
	})
}

func (s *Server) handleVersion(c echo.Context) error {
	return c.JSON(200, version.Get())
}
