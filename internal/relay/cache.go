package relay

import (
	"log/slog"

	"github.com/fabian-lindhardt/ableton-ebs/internal/domain"
)

// StateCache holds the last known value of every control the producer has
// reported, plus the latest metadata snapshot. It is owned by the relay
// actor and must only be touched from the actor goroutine.
type StateCache struct {
	values   map[domain.ControlKey]int
	metadata *domain.MetadataSnapshot
}

func NewStateCache() *StateCache {
	return &StateCache{values: make(map[domain.ControlKey]int)}
}

// ApplySync upserts a single control value. Last write wins.
func (c *StateCache) ApplySync(d domain.SyncData) {
	c.values[d.Key()] = d.Value
}

// ApplyBulk merges many entries at once without any emission. This is the
// restore path after a relay restart: the producer replays its own cache.
// Malformed keys are skipped. Returns the number of entries applied.
func (c *StateCache) ApplyBulk(entries map[string]int) int {
	applied := 0
	for raw, value := range entries {
		key, err := domain.ParseControlKey(raw)
		if err != nil {
			slog.Warn("Skipping malformed bulk_sync key", "key", raw, "error", err)
			continue
		}
		c.values[key] = value
		applied++
	}
	return applied
}

// ReplaceMetadata swaps in a new metadata snapshot wholesale.
func (c *StateCache) ReplaceMetadata(m domain.MetadataSnapshot) {
	c.metadata = &m
}

// Snapshot returns a deep copy safe to hand to another goroutine.
func (c *StateCache) Snapshot() domain.StateSnapshot {
	state := make(map[string]int, len(c.values))
	for key, value := range c.values {
		state[key.String()] = value
	}

	snap := domain.StateSnapshot{State: state}
	if c.metadata != nil {
		meta := *c.metadata
		meta.Tracks = append([]domain.Track(nil), c.metadata.Tracks...)
		meta.Scenes = append([]domain.Scene(nil), c.metadata.Scenes...)
		for i, track := range meta.Tracks {
			meta.Tracks[i].Clips = append([]domain.Clip(nil), track.Clips...)
		}
		snap.Metadata = &meta
	}
	return snap
}

// Len returns the number of cached control values.
func (c *StateCache) Len() int {
	return len(c.values)
}
