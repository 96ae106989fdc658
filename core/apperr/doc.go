// Package apperr defines the error kinds surfaced by the entity
// services: validation, not-found, configuration, and conflict errors.
//
// Services never leak raw driver errors for the failure modes callers
// are supposed to branch on. TranslateDB maps unique-constraint and
// record-not-found errors from the database layer into these kinds so
// a handler can render "field already exists" instead of a constraint
// violation string.
package apperr
