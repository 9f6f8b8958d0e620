// Package session implements the entitlement engine: per-user expiring
// session records purchased with Bits, with stacking extension arithmetic,
// a cooldown-gated free trial, and the gateway that decides whether a
// caller may perform privileged actions.
package session
