// Package database provides the GORM connection used by every feature.
//
// Postgres is the production dialect. Sqlite is supported so service
// and repository code can be exercised against an in-memory database in
// tests without a running server.
//
// # Transactions
//
// Services open transactions with db.Transaction at the outermost call
// and pass the open *gorm.DB handle down to repository-level functions.
// Repository functions fall back to the base connection when the handle
// is nil, so they compose into a single atomic unit without any global
// transaction bookkeeping.
//
// # Locking
//
// LockForUpdate adds SELECT ... FOR UPDATE semantics on dialects that
// support it, which is what keeps two concurrent merges of overlapping
// entities from interleaving.
package database
