package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ControlKey identifies one logical control on the rig: a (MIDI channel,
// controller number) pair. Channel is 0-15, controller 0-127.
type ControlKey struct {
	Channel    int
	Controller int
}

// String renders the key in the wire format used by bulk_sync payloads,
// e.g. "2-74" for channel 2, controller 74.
func (k ControlKey) String() string {
	return strconv.Itoa(k.Channel) + "-" + strconv.Itoa(k.Controller)
}

// ParseControlKey parses a "channel-controller" wire key.
func ParseControlKey(s string) (ControlKey, error) {
	ch, ctrl, ok := strings.Cut(s, "-")
	if !ok {
		return ControlKey{}, fmt.Errorf("invalid control key %q", s)
	}
	channel, err := strconv.Atoi(ch)
	if err != nil {
		return ControlKey{}, fmt.Errorf("invalid channel in control key %q: %w", s, err)
	}
	controller, err := strconv.Atoi(ctrl)
	if err != nil {
		return ControlKey{}, fmt.Errorf("invalid controller in control key %q: %w", s, err)
	}
	return ControlKey{Channel: channel, Controller: controller}, nil
}

// SyncData is the payload of a single control-value change.
type SyncData struct {
	Channel    int `json:"channel"`
	Controller int `json:"controller"`
	Value      int `json:"value"`
}

// Key returns the ControlKey this sync event belongs to.
func (d SyncData) Key() ControlKey {
	return ControlKey{Channel: d.Channel, Controller: d.Controller}
}

// StateSnapshot is a read-only copy of the relay's cached state, used to
// bootstrap a newly-connecting viewer.
type StateSnapshot struct {
	State    map[string]int    `json:"state"`
	Metadata *MetadataSnapshot `json:"metadata"`
}
