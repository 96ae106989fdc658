package member

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"community-hub/core/tenant"
	"community-hub/feature/member/models"
)

// Confidence assigned per generator. Verified email overlap is a
// near-certain signal, a shared username across platforms slightly
// less so. Name similarity carries the trigram score itself.
const (
	confidenceSameEmail    = 1.0
	confidenceSameUsername = 0.95
	nameSimilarityFloor    = 0.5
)

// maxPersistConcurrency caps the parallel edge-insert chunks per run.
const maxPersistConcurrency = 4

// SuggestionEngine scans recently changed members for likely
// duplicates and records them as candidate edges. The queries are
// plain SQL because the matching predicates (cross-platform joins,
// jsonb containment, pg_trgm) have no useful ORM spelling.
type SuggestionEngine struct {
	db       *gorm.DB
	graph    *Graph
	log      *zap.Logger
	lookback time.Duration
}

func NewSuggestionEngine(db *gorm.DB, graph *Graph, log *zap.Logger, lookback time.Duration) *SuggestionEngine {
	return &SuggestionEngine{db: db, graph: graph, log: log, lookback: lookback}
}

type suggestionRow struct {
	MemberID   uuid.UUID `gorm:"column:member_id"`
	ToMergeID  uuid.UUID `gorm:"column:to_merge_id"`
	Similarity float64   `gorm:"column:similarity"`
}

// Run executes all generators for one tenant scope and persists the
// union of their hits. Returns the number of directional edges written
// attempts; edges that already exist are silently skipped by the store.
func (e *SuggestionEngine) Run(ctx context.Context, scope tenant.Scope) (int, error) {
	since := time.Now().Add(-e.lookback)

	var rows []suggestionRow
	for name, query := range map[string]string{
		"username": byUsernameQuery(len(scope.SegmentIDs) > 0),
		"email":    byEmailQuery(len(scope.SegmentIDs) > 0),
		"name":     bySimilarNameQuery(len(scope.SegmentIDs) > 0),
	} {
		found, err := e.query(ctx, query, scope, since)
		if err != nil {
			return 0, err
		}
		e.log.Debug("suggestion generator finished",
			zap.String("generator", name),
			zap.Int("hits", len(found)))
		rows = append(rows, found...)
	}

	edges := symmetricEdges(rows)
	return len(edges), e.persist(ctx, edges)
}

// symmetricEdges expands every hit into both directions so either
// member surfaces the other as a suggestion.
func symmetricEdges(rows []suggestionRow) []models.MemberToMerge {
	edges := make([]models.MemberToMerge, 0, len(rows)*2)
	for _, row := range rows {
		similarity := row.Similarity
		edges = append(edges,
			models.MemberToMerge{MemberID: row.MemberID, ToMergeID: row.ToMergeID, Similarity: &similarity},
			models.MemberToMerge{MemberID: row.ToMergeID, ToMergeID: row.MemberID, Similarity: &similarity},
		)
	}
	return edges
}

func (e *SuggestionEngine) query(ctx context.Context, query string, scope tenant.Scope, since time.Time) ([]suggestionRow, error) {
	var rows []suggestionRow
	params := map[string]any{
		"tenant": scope.ID,
		"since":  since,
	}
	if len(scope.SegmentIDs) > 0 {
		params["segments"] = scope.SegmentIDs
	}
	err := e.db.WithContext(ctx).Raw(query, params).Scan(&rows).Error
	return rows, err
}

// persist writes edges in chunks so one failed chunk does not undo the
// suggestions already stored. Failures are logged and reported but
// previous chunks stand.
func (e *SuggestionEngine) persist(ctx context.Context, edges []models.MemberToMerge) error {
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(maxPersistConcurrency)
	for start := 0; start < len(edges); start += suggestionChunkSize {
		chunk := edges[start:min(start+suggestionChunkSize, len(edges))]
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := e.graph.AddToMerge(nil, chunk); err != nil {
				e.log.Error("suggestion chunk failed",
					zap.Int("size", len(chunk)),
					zap.Error(err))
				return err
			}
			return nil
		})
	}
	return group.Wait()
}

// segmentFilter is shared by every generator so suggestions never cross
// segment boundaries the caller did not ask for.
func segmentFilter(alias string) string {
	return ` AND EXISTS (
           SELECT 1 FROM member_segments ms
           WHERE ms.member_id = ` + alias + `.id AND ms.segment_id IN @segments)`
}

// byUsernameQuery matches members that use the same username on
// different platforms. Same-platform matches are impossible here since
// (tenant, platform, username) is unique.
func byUsernameQuery(segmented bool) string {
	q := `
WITH recent AS (
    SELECT mi.member_id, mi.username, mi.platform, m.tenant_id
    FROM member_identities mi
    JOIN members m ON m.id = mi.member_id AND m.deleted_at IS NULL
    WHERE mi.tenant_id = @tenant
      AND mi.created_at >= @since`
	if segmented {
		q += ` AND EXISTS (
          SELECT 1 FROM member_segments ms
          WHERE ms.member_id = m.id AND ms.segment_id IN @segments)`
	}
	q += `
)
SELECT DISTINCT r.member_id   AS member_id,
       other.member_id        AS to_merge_id,
       CAST(` + fmt.Sprintf("%.2f", confidenceSameUsername) + ` AS float) AS similarity
FROM recent r
JOIN member_identities other
  ON other.tenant_id = r.tenant_id
 AND other.username  = r.username
 AND other.platform <> r.platform
 AND other.member_id <> r.member_id
JOIN members om ON om.id = other.member_id AND om.deleted_at IS NULL`
	return q + excludeKnownPairs("r.member_id", "other.member_id")
}

// byEmailQuery matches members sharing at least one email address.
func byEmailQuery(segmented bool) string {
	q := `
WITH recent AS (
    SELECT m.id, m.tenant_id, m.emails
    FROM members m
    WHERE m.tenant_id = @tenant
      AND m.deleted_at IS NULL
      AND m.updated_at >= @since
      AND jsonb_array_length(m.emails) > 0`
	if segmented {
		q += segmentFilter("m")
	}
	q += `
)
SELECT DISTINCT r.id        AS member_id,
       other.id             AS to_merge_id,
       CAST(` + fmt.Sprintf("%.2f", confidenceSameEmail) + ` AS float) AS similarity
FROM recent r
JOIN members other
  ON other.tenant_id = r.tenant_id
 AND other.id <> r.id
 AND other.deleted_at IS NULL
 AND EXISTS (
     SELECT 1
     FROM jsonb_array_elements_text(r.emails) re(email)
     JOIN jsonb_array_elements_text(other.emails) oe(email) ON re.email = oe.email)`
	return q + excludeKnownPairs("r.id", "other.id")
}

// bySimilarNameQuery matches members whose display names are close
// under pg_trgm similarity.
func bySimilarNameQuery(segmented bool) string {
	q := `
WITH recent AS (
    SELECT m.id, m.tenant_id, m.display_name
    FROM members m
    WHERE m.tenant_id = @tenant
      AND m.deleted_at IS NULL
      AND m.updated_at >= @since
      AND m.display_name <> ''`
	if segmented {
		q += segmentFilter("m")
	}
	q += `
)
SELECT DISTINCT r.id AS member_id,
       other.id      AS to_merge_id,
       similarity(r.display_name, other.display_name) AS similarity
FROM recent r
JOIN members other
  ON other.tenant_id = r.tenant_id
 AND other.id <> r.id
 AND other.deleted_at IS NULL
 AND similarity(r.display_name, other.display_name) > ` + fmt.Sprintf("%.2f", nameSimilarityFloor)
	return q + excludeKnownPairs("r.id", "other.id")
}

// excludeKnownPairs filters out pairs that already carry a candidate or
// a no-merge edge, in either direction.
func excludeKnownPairs(left, right string) string {
	return `
WHERE NOT EXISTS (
    SELECT 1 FROM member_to_merges tm
    WHERE (tm.member_id = ` + left + ` AND tm.to_merge_id = ` + right + `)
       OR (tm.member_id = ` + right + ` AND tm.to_merge_id = ` + left + `))
  AND NOT EXISTS (
    SELECT 1 FROM member_no_merges nm
    WHERE (nm.member_id = ` + left + ` AND nm.no_merge_id = ` + right + `)
       OR (nm.member_id = ` + right + ` AND nm.no_merge_id = ` + left + `))`
}
