// Package cache provides a small Redis-backed JSON cache.
//
// Its only current consumer is the settings service, which caches the
// tenant platform priority array used to compute attribute defaults.
// The cache is strictly optional: a nil cache reads through to the
// database on every call.
package cache
