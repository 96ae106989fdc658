// Package events publishes entity lifecycle events to Kafka.
//
// The merge engine itself never talks to the search index. After a
// merge commits it emits an entity.sync event for the surviving entity
// and an entity.remove event for the retired one; a downstream worker
// owns the actual reindexing. Emission failures are logged by callers
// and never fail the operation that triggered them, the database state
// is already durable by the time an event is written.
package events
