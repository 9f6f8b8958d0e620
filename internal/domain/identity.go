package domain

// Viewer roles carried by the extension-helper token.
const (
	RoleBroadcaster = "broadcaster"
	RoleModerator   = "moderator"
	RoleViewer      = "viewer"
	RoleExternal    = "external"
)

// Claims is the authenticated identity attached to an API request.
type Claims struct {
	UserID       string
	OpaqueUserID string
	ChannelID    string
	Role         string
}

// EntitlementKey returns the identifier sessions are keyed by. Twitch only
// populates user_id when the viewer has shared their identity; the opaque
// ID is always present.
func (c Claims) EntitlementKey() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.OpaqueUserID
}
