// Package settings manages per-tenant configuration: the dynamic
// attribute registry members are validated against, and the platform
// priority order that picks default attribute values. Priority reads
// go through the Redis cache since every member upsert consults them.
package settings
