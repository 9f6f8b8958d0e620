// Package twitch talks to the Twitch extension platform: verifying the
// extension-helper JWT carried by viewer requests, and publishing emitted
// state to the rate-limited extension PubSub broadcast API.
package twitch
