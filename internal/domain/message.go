package domain

import "encoding/json"

// Message types exchanged over the persistent WebSocket connection.
const (
	MessageIdentify = "identify"
	MessageSync     = "sync"
	MessageBulkSync = "bulk_sync"
	MessageMetadata = "metadata"
)

// Producer roles accepted in an identify message. "bridge" is the legacy
// role name sent by older bridge builds.
const (
	RoleProducer = "producer"
	RoleBridge   = "bridge"
)

// Envelope is the wire format for all messages on the relay connection.
type Envelope struct {
	Type string          `json:"type"`
	Role string          `json:"role,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}
