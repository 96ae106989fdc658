// Package server holds the HTTP server configuration.
//
// The main application entry point handles server startup; this package
// only defines the configuration structure embedded by core/config,
// including the default lookback window for suggestion generation.
package server
