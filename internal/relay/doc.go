// Package relay implements the producer-to-consumer fan-out core using the actor pattern.
//
// A single goroutine owns the state cache, the producer link, and the consumer set;
// all mutation goes through a command channel (no mutexes on shared maps). Per-connection
// write goroutines handle slow clients gracefully. Emissions toward the external
// broadcast API are rate-limited per control key by a trailing-edge throttle.
package relay
