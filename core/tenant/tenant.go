package tenant

import "github.com/google/uuid"

// Scope identifies the tenant (and the segments inside it) an operation
// runs against. Every service method takes a Scope explicitly; nothing
// in the engine reads tenancy from ambient state, which is what keeps
// suggestion generation and merges from ever crossing tenant
// boundaries.
type Scope struct {
	ID         uuid.UUID
	SegmentIDs []uuid.UUID
}

// New creates a scope for a tenant with the given segments.
func New(id uuid.UUID, segmentIDs ...uuid.UUID) Scope {
	return Scope{ID: id, SegmentIDs: segmentIDs}
}
