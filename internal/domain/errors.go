package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnknownSKU          = errors.New("unknown sku")
	ErrProducerUnavailable = errors.New("producer not connected")
	ErrEntitlementRequired = errors.New("active session required")
)

// CooldownActiveError rejects a free-trial activation before the cooldown
// window has elapsed.
type CooldownActiveError struct {
	Remaining time.Duration
}

func (e *CooldownActiveError) Error() string {
	return fmt.Sprintf("free trial on cooldown for another %s", e.Remaining.Round(time.Second))
}
