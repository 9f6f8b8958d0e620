// Package server implements the HTTP surface using the Echo framework.
//
// Routes: health/metrics, the relay WebSocket endpoint, and the viewer API
// (state bootstrap, session status, transactions, free trial, command
// triggering). Handlers split by concern: handlers_ws.go, handlers_api.go,
// handlers_health.go. Viewer requests authenticate with the Twitch
// extension-helper JWT via the auth middleware in auth.go.
package server
