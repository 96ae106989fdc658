package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// Archive writes pre-merge snapshots of entity pairs to object storage
// so a merge can be audited (or manually unwound) after the fact. It is
// a best-effort collaborator: the merge itself never depends on it.
type Archive struct {
	client Client
	bucket string
}

// NewArchive creates an archive writing into the given bucket. A nil
// client disables archiving.
func NewArchive(client Client, bucket string) *Archive {
	if client == nil {
		return nil
	}
	return &Archive{client: client, bucket: bucket}
}

// MergeSnapshot is the archived record of one merge.
type MergeSnapshot struct {
	TenantID   uuid.UUID `json:"tenantId"`
	EntityType string    `json:"entityType"`
	OriginalID uuid.UUID `json:"originalId"`
	MergedID   uuid.UUID `json:"mergedId"`
	Original   any       `json:"original"`
	Merged     any       `json:"merged"`
	MergedAt   time.Time `json:"mergedAt"`
}

// StoreMergeSnapshot serializes and uploads the snapshot. Safe to call
// on a nil archive.
func (a *Archive) StoreMergeSnapshot(ctx context.Context, snapshot MergeSnapshot) error {
	if a == nil {
		return nil
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal merge snapshot: %w", err)
	}

	objectName := fmt.Sprintf("merges/%s/%s/%d-%s-%s.json",
		snapshot.TenantID, snapshot.EntityType,
		snapshot.MergedAt.UTC().Unix(), snapshot.OriginalID, snapshot.MergedID)

	_, err = a.client.PutObject(ctx, a.bucket, objectName,
		bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("failed to store merge snapshot: %w", err)
	}

	return nil
}
