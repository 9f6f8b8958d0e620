// Package config provides environment-based configuration.
//
// Loads env vars into the Config struct with defaults, validates required
// fields per environment (production forbids the dev token and requires the
// extension credentials), and checks value formats up front.
package config
