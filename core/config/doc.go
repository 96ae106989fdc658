// Package config loads application configuration from environment
// variables and an optional .env file.
//
// Defaults come from `default:` struct tags, discovered by reflection
// and registered in Viper so AutomaticEnv picks up every key. Nested
// keys map to underscore-separated environment variables, e.g.
// DATABASE_HOST -> database.host.
//
// Each partial config lives next to the package it configures
// (database.Config, logger.Config, events.Config, ...); this package
// only composes them.
package config
