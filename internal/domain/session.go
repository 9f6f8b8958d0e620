package domain

import (
	"context"
	"time"
)

// Session is a user's current paid or granted entitlement window.
type Session struct {
	UserID        string    `json:"-"`
	ExpiresAt     time.Time `json:"expiresAt"`
	SKU           string    `json:"sku"`
	TransactionID string    `json:"transactionId,omitempty"`
}

// SessionStatus is the result of a status query. RemainingMs is only
// meaningful when Active is true.
type SessionStatus struct {
	Active      bool      `json:"active"`
	ExpiresAt   time.Time `json:"expiresAt,omitzero"`
	RemainingMs int64     `json:"remainingMs,omitempty"`
}

// TrialResult reports a granted free-trial activation. Cooldown rejections
// travel as CooldownActiveError instead, carrying the remaining wait.
type TrialResult struct {
	Available bool     `json:"available"`
	Session   *Session `json:"session,omitempty"`
}

// SessionService manages per-user expiring entitlements.
type SessionService interface {
	// Extend stacks the SKU's duration onto a still-active session, or
	// grants a fresh window from now. Unknown SKUs fail without mutation.
	Extend(ctx context.Context, userID, sku, transactionID string) (*Session, error)

	// Status reports whether the user holds an active session, lazily
	// evicting expired records.
	Status(ctx context.Context, userID string) SessionStatus

	// ActivateFreeTrial grants the free-trial SKU, gated by a per-user
	// cooldown. A rejected activation reports the remaining cooldown.
	ActivateFreeTrial(ctx context.Context, userID string) (*TrialResult, error)

	// GrantDev overwrites the user's session with an explicit duration.
	// Only available outside production.
	GrantDev(ctx context.Context, userID string, duration time.Duration) (*Session, error)
}
