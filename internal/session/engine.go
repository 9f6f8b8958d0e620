package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/fabian-lindhardt/ableton-ebs/internal/domain"
	"github.com/fabian-lindhardt/ableton-ebs/internal/metrics"
)

// SKUs sold through the extension's Bits catalog. Durations are fixed
// server-side; the catalog price lives in the Twitch developer console.
const (
	SKUVip5Min  = "vip_5min"
	SKUVip15Min = "vip_15min"
	SKUVip60Min = "vip_60min"
	SKUTrial    = "free_trial"
	SKUDev      = "dev_grant"
)

var skuDurations = map[string]time.Duration{
	SKUVip5Min:  5 * time.Minute,
	SKUVip15Min: 15 * time.Minute,
	SKUVip60Min: 60 * time.Minute,
	SKUTrial:    5 * time.Minute,
}

// DefaultTrialCooldown is the minimum gap between free-trial activations
// per user.
const DefaultTrialCooldown = 5 * time.Minute

type record struct {
	expiresAt     time.Time
	sku           string
	transactionID string
}

// Engine holds all session state in memory. Sessions do not survive a
// restart — that is deliberate; the whole system recovers from its
// producers, not from disk.
//
// Unlike the relay, the engine is called directly from concurrent HTTP
// handlers, so a mutex guards the maps.
type Engine struct {
	clock         clockwork.Clock
	trialCooldown time.Duration

	mu        sync.Mutex
	sessions  map[string]*record
	lastTrial map[string]time.Time
}

var _ domain.SessionService = (*Engine)(nil)

func NewEngine(clock clockwork.Clock, trialCooldown time.Duration) *Engine {
	return &Engine{
		clock:         clock,
		trialCooldown: trialCooldown,
		sessions:      make(map[string]*record),
		lastTrial:     make(map[string]time.Time),
	}
}

// Extend looks up the SKU's duration and stacks it onto the user's session.
// An active session keeps its accrued time: the new expiry is the old expiry
// plus the duration. A stale or absent record is replaced by now + duration.
// Unknown SKUs fail before any state is touched.
func (e *Engine) Extend(_ context.Context, userID, sku, transactionID string) (*domain.Session, error) {
	duration, ok := skuDurations[sku]
	if !ok {
		metrics.SessionPurchasesTotal.WithLabelValues(sku, "unknown_sku").Inc()
		return nil, domain.ErrUnknownSKU
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	base := now
	if existing, ok := e.sessions[userID]; ok && existing.expiresAt.After(now) {
		base = existing.expiresAt
	}

	rec := &record{
		expiresAt:     base.Add(duration),
		sku:           sku,
		transactionID: transactionID,
	}
	e.sessions[userID] = rec
	metrics.SessionsActive.Set(float64(len(e.sessions)))
	metrics.SessionPurchasesTotal.WithLabelValues(sku, "ok").Inc()

	slog.Info("Session extended",
		"user_id", userID,
		"sku", sku,
		"expires_at", rec.expiresAt,
		"remaining", rec.expiresAt.Sub(now),
	)

	return e.toSession(userID, rec), nil
}

// Status reports the user's entitlement. Expired records are evicted here,
// lazily — an expired session and an absent one are the same thing.
func (e *Engine) Status(_ context.Context, userID string) domain.SessionStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.sessions[userID]
	if !ok {
		return domain.SessionStatus{Active: false}
	}

	now := e.clock.Now()
	if !rec.expiresAt.After(now) {
		delete(e.sessions, userID)
		metrics.SessionsActive.Set(float64(len(e.sessions)))
		return domain.SessionStatus{Active: false}
	}

	return domain.SessionStatus{
		Active:      true,
		ExpiresAt:   rec.expiresAt,
		RemainingMs: rec.expiresAt.Sub(now).Milliseconds(),
	}
}

// ActivateFreeTrial grants the trial SKU through the same stacking rule as
// a purchase, gated by a per-user cooldown. The cooldown record is
// monotonic and never removed: the gate is evaluated against the last
// activation indefinitely.
func (e *Engine) ActivateFreeTrial(ctx context.Context, userID string) (*domain.TrialResult, error) {
	e.mu.Lock()
	now := e.clock.Now()
	if last, ok := e.lastTrial[userID]; ok {
		if elapsed := now.Sub(last); elapsed < e.trialCooldown {
			e.mu.Unlock()
			metrics.FreeTrialsTotal.WithLabelValues("cooldown").Inc()
			return nil, &domain.CooldownActiveError{Remaining: e.trialCooldown - elapsed}
		}
	}
	e.lastTrial[userID] = now
	e.mu.Unlock()

	sess, err := e.Extend(ctx, userID, SKUTrial, "")
	if err != nil {
		return nil, err
	}

	metrics.FreeTrialsTotal.WithLabelValues("granted").Inc()
	return &domain.TrialResult{Available: true, Session: sess}, nil
}

// GrantDev overwrites the user's session outright with the given duration.
// The caller is responsible for restricting this to non-production builds.
func (e *Engine) GrantDev(_ context.Context, userID string, duration time.Duration) (*domain.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec := &record{
		expiresAt: e.clock.Now().Add(duration),
		sku:       SKUDev,
	}
	e.sessions[userID] = rec
	metrics.SessionsActive.Set(float64(len(e.sessions)))

	slog.Info("Dev session granted", "user_id", userID, "duration", duration)
	return e.toSession(userID, rec), nil
}

func (e *Engine) toSession(userID string, rec *record) *domain.Session {
	return &domain.Session{
		UserID:        userID,
		ExpiresAt:     rec.expiresAt,
		SKU:           rec.sku,
		TransactionID: rec.transactionID,
	}
}
