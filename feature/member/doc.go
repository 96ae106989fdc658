// Package member implements the member half of the deduplication
// engine: identity-keyed upserts, merge suggestion generation and the
// merge itself.
//
// # Identity Map
//
// Every external identity is normalized into an IdentityMap
// (platform -> identities) before it touches the database. A
// (tenant, platform, username) triple is owned by exactly one member
// at a time; upserts match on ownership and merges transfer it.
//
// # Candidate Graph
//
// Suggested duplicates live as directional edges in member_to_merges,
// confirmed non-duplicates in member_no_merges. The service layer
// writes both directions of a pair and keeps the two relations
// mutually exclusive.
//
// # Merge
//
// Merge folds one member into another inside a single transaction:
// identity ownership transfer, policy-driven field reconciliation,
// bulk child reassignment, graph edge rewiring, soft delete of the
// loser. Search-index events and the object-storage snapshot fire
// after commit and are best-effort.
//
// # Components
//
//   - Service: upsert, update, merge, graph and bulk-delete operations.
//   - SuggestionEngine: SQL generators finding likely duplicate pairs.
//   - Graph: the candidate edge store.
//   - Handler: HTTP endpoints under /members.
//   - Loader: registers the feature with the application.
package member
