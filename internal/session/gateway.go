package session

import (
	"context"

	"github.com/fabian-lindhardt/ableton-ebs/internal/domain"
)

// BypassPolicy selects which roles skip the entitlement check outside
// production. The source of truth for who may bypass in production is
// always just the broadcaster.
type BypassPolicy string

const (
	// BypassBroadcasterOnly allows only the broadcaster role to bypass.
	BypassBroadcasterOnly BypassPolicy = "broadcaster_only"
	// BypassAnyNonViewer additionally allows any non-viewer role
	// (moderator, external test harnesses) outside production.
	BypassAnyNonViewer BypassPolicy = "any_non_viewer"
)

// ParseBypassPolicy converts a config string, defaulting to the stricter
// broadcaster-only policy.
func ParseBypassPolicy(s string) BypassPolicy {
	if s == string(BypassAnyNonViewer) {
		return BypassAnyNonViewer
	}
	return BypassBroadcasterOnly
}

// Gateway is the request-time entitlement decision. It wraps every
// privileged producer-forwarding action; read-only state and status
// queries are never gated.
type Gateway struct {
	sessions   domain.SessionService
	production bool
	policy     BypassPolicy
}

func NewGateway(sessions domain.SessionService, production bool, policy BypassPolicy) *Gateway {
	return &Gateway{sessions: sessions, production: production, policy: policy}
}

// Authorize decides in strict precedence order: broadcaster role, then the
// non-production bypass policy, then an active session. Anything else is
// denied with domain.ErrEntitlementRequired.
func (g *Gateway) Authorize(ctx context.Context, claims domain.Claims) error {
	if claims.Role == domain.RoleBroadcaster {
		return nil
	}

	if !g.production && g.policy == BypassAnyNonViewer &&
		claims.Role != "" && claims.Role != domain.RoleViewer {
		return nil
	}

	if g.sessions.Status(ctx, claims.EntitlementKey()).Active {
		return nil
	}

	return domain.ErrEntitlementRequired
}
