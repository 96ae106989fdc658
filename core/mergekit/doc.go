// Package mergekit implements the generic field reconciliation engine
// used when two entities are combined.
//
// The engine is a deep merge with a strategy map: callers provide a
// Policy per semantic field (keep the earliest date, sum reach, union
// emails, ...) and the default deep merge covers everything else. The
// result contains only the fields that actually changed, which is what
// gets persisted as the update to the surviving entity.
//
// The engine is pure: it performs no I/O and never mutates its inputs,
// so it is reusable across entity kinds (members, organizations) and
// trivially testable.
package mergekit
