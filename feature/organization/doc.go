// Package organization implements the organization half of the
// deduplication engine. Organizations follow the same model as
// members: identity-owned entities with a candidate graph and a
// transactional merge, with a smaller field surface and a single
// suggestion generator.
package organization
