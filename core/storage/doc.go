// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client to provide a simplified interface for the
// operations the merge engine needs. This abstraction supports both AWS S3
// and self-hosted MinIO instances.
//
// # Client Interface
//
// The Client interface abstracts the underlying storage provider, making it
// easier to mock storage interactions for unit testing (as seen in
// core/storage/mocks).
//
// # Archive
//
// Archive is the one consumer: it stores a JSON snapshot of both entities
// after each committed merge, keyed by tenant, entity type, and the merged
// pair. Archiving is strictly best-effort; failures are logged by the
// caller and never affect the merge.
//
// # Usage
//
//	client, err := storage.NewClient(config)
//	archive := storage.NewArchive(client, config.Bucket)
package storage
