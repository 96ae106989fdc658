package member

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"community-hub/core/apperr"
	"community-hub/core/database"
	"community-hub/core/events"
	"community-hub/core/storage"
	"community-hub/core/tenant"
	"community-hub/feature/member/models"
	"community-hub/feature/settings"
)

const entityTypeMember = "member"

// MergeStatus reports how a merge request ended.
type MergeStatus string

const (
	// MergeStatusMerged means the pair was combined and the losing
	// member soft-deleted.
	MergeStatusMerged MergeStatus = "merged"
	// MergeStatusSameEntity means both IDs named the same member. The
	// call is a no-op so retried merges stay idempotent.
	MergeStatusSameEntity MergeStatus = "same-entity"
)

// MergeResult is the outcome of a merge: the surviving member's ID and
// how the request ended.
type MergeResult struct {
	Status   MergeStatus `json:"status"`
	MemberID uuid.UUID   `json:"memberId"`
}

// UpsertInput is the dynamic payload accepted by Upsert. Username takes
// any of the shapes NormalizeUsername understands; zero-valued fields
// are left untouched on an existing member.
type UpsertInput struct {
	DisplayName string              `json:"displayName"`
	Platform    string              `json:"platform"`
	Username    any                 `json:"username"`
	Emails      models.StringList   `json:"emails"`
	Attributes  models.AttributeMap `json:"attributes"`
	Reach       models.ReachMap     `json:"reach"`
	Score       *int                `json:"score"`
	JoinedAt    time.Time           `json:"joinedAt"`
}

// UpdateInput is the payload for a direct update of one member.
// Provided fields overwrite, except reach, which is recomputed from
// old and new values.
type UpdateInput struct {
	DisplayName string              `json:"displayName"`
	Platform    string              `json:"platform"`
	Username    any                 `json:"username"`
	Emails      models.StringList   `json:"emails"`
	Attributes  models.AttributeMap `json:"attributes"`
	Reach       models.ReachMap     `json:"reach"`
	Score       *int                `json:"score"`
	JoinedAt    time.Time           `json:"joinedAt"`
}

// Service implements member lifecycle, deduplication and merging.
type Service struct {
	db       *gorm.DB
	graph    *Graph
	settings *settings.Service
	emitter  events.Emitter
	archive  *storage.Archive
	log      *zap.Logger
}

func NewService(db *gorm.DB, graph *Graph, settingsSvc *settings.Service,
	emitter events.Emitter, archive *storage.Archive, log *zap.Logger) *Service {
	return &Service{
		db:       db,
		graph:    graph,
		settings: settingsSvc,
		emitter:  emitter,
		archive:  archive,
		log:      log,
	}
}

// FindByID loads a member with its identities.
func (s *Service) FindByID(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Member, error) {
	var member models.Member
	err := s.db.WithContext(ctx).
		Preload("Identities").
		Where("tenant_id = ?", scope.ID).
		First(&member, "id = ?", id).Error
	if err != nil {
		return nil, apperr.TranslateDB(err, entityTypeMember, id.String(), "")
	}
	return &member, nil
}

// Upsert creates a member, or folds the input into the member that
// already owns one of the given identities. This is the write path
// integrations hit on every activity, so identity ownership decides
// matching, never display names.
func (s *Service) Upsert(ctx context.Context, scope tenant.Scope, input UpsertInput) (*models.Member, error) {
	identities, err := NormalizeUsername(input.Username, input.Platform)
	if err != nil {
		return nil, err
	}
	if len(identities) == 0 {
		return nil, apperr.NewValidation("at least one identity is required")
	}
	attributes, priorities, err := s.prepareAttributes(ctx, scope, input.Attributes)
	if err != nil {
		return nil, err
	}

	var out *models.Member
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.findByIdentities(tx, scope, identities)
		if err != nil {
			return err
		}
		if existing == nil {
			out, err = s.createMember(tx, scope, input, identities, attributes)
			return err
		}
		out, err = s.foldIntoExisting(tx, scope, existing, input, identities, attributes, priorities)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.emitSync(ctx, scope.ID, out.ID)
	return out, nil
}

// Update overwrites the provided fields of one member. New identities
// are claimed for it; an identity owned by another member is a
// conflict, not a merge.
func (s *Service) Update(ctx context.Context, scope tenant.Scope, id uuid.UUID, input UpdateInput) (*models.Member, error) {
	attributes, _, err := s.prepareAttributes(ctx, scope, input.Attributes)
	if err != nil {
		return nil, err
	}
	var identities IdentityMap
	if input.Username != nil {
		identities, err = NormalizeUsername(input.Username, input.Platform)
		if err != nil {
			return nil, err
		}
	}

	var out *models.Member
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		member, err := s.findForUpdate(tx, scope, id)
		if err != nil {
			return err
		}

		columns := map[string]any{}
		if input.DisplayName != "" {
			columns["display_name"] = input.DisplayName
		}
		if input.Emails != nil {
			columns["emails"] = input.Emails
		}
		if attributes != nil {
			columns["attributes"] = attributes
		}
		if input.Reach != nil {
			columns["reach"] = CalculateReach(member.Reach, input.Reach)
		}
		if input.Score != nil {
			columns["score"] = *input.Score
		}
		if !input.JoinedAt.IsZero() {
			columns["joined_at"] = input.JoinedAt
		}
		if len(columns) > 0 {
			if err := tx.Model(member).Updates(columns).Error; err != nil {
				return err
			}
		}

		if identities != nil {
			owned := ownedIdentityMap(member.Identities)
			if err := s.claimIdentities(tx, scope, member.ID, NewIdentities(owned, identities)); err != nil {
				return err
			}
		}

		out, err = s.reload(tx, scope, member.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.emitSync(ctx, scope.ID, out.ID)
	return out, nil
}

// Merge combines toMergeID into originalID. The original keeps its ID
// and absorbs the other member's identities, children and reconciled
// fields; the loser is soft-deleted. Everything happens in one
// transaction. Event emission and snapshot archival run after commit
// and never fail the merge.
func (s *Service) Merge(ctx context.Context, scope tenant.Scope, originalID, toMergeID uuid.UUID) (MergeResult, error) {
	if originalID == toMergeID {
		return MergeResult{Status: MergeStatusSameEntity, MemberID: originalID}, nil
	}

	priorities, err := s.settings.PlatformPriorities(ctx, scope.ID)
	if err != nil {
		return MergeResult{}, err
	}

	var originalBefore, toMergeBefore models.Member
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		original, err := s.findForUpdate(tx, scope, originalID)
		if err != nil {
			return err
		}
		toMerge, err := s.findForUpdate(tx, scope, toMergeID)
		if err != nil {
			return err
		}
		originalBefore, toMergeBefore = *original, *toMerge

		// Identity rows are unique per (tenant, platform, username), so
		// the losing member's identities transfer wholesale.
		err = tx.Model(&models.MemberIdentity{}).
			Where("member_id = ?", toMerge.ID).
			Update("member_id", original.ID).Error
		if err != nil {
			return err
		}

		updates := s.reconcileFields(original, toMerge)
		if err := applyAttributeDefaults(updates, priorities); err != nil {
			return err
		}
		if len(updates) > 0 {
			if err := tx.Model(original).Updates(updates).Error; err != nil {
				return err
			}
		}

		if err := s.moveChildren(tx, toMerge.ID, original.ID); err != nil {
			return err
		}
		if err := s.graph.MoveEdges(tx, toMerge.ID, original.ID); err != nil {
			return err
		}

		return tx.Delete(toMerge).Error
	})
	if err != nil {
		return MergeResult{}, err
	}

	s.emitSync(ctx, scope.ID, originalID)
	s.emitRemove(ctx, scope.ID, toMergeID)
	s.archiveSnapshot(ctx, scope.ID, originalBefore, toMergeBefore)

	return MergeResult{Status: MergeStatusMerged, MemberID: originalID}, nil
}

// SuggestMerge records a candidate pair symmetrically. Pairs already
// confirmed as not-duplicates are left alone.
func (s *Service) SuggestMerge(ctx context.Context, scope tenant.Scope, memberID, toMergeID uuid.UUID, similarity *float64) error {
	if memberID == toMergeID {
		return apperr.NewValidation("cannot suggest merging a member with itself")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.findForUpdate(tx, scope, memberID); err != nil {
			return err
		}
		if _, err := s.findForUpdate(tx, scope, toMergeID); err != nil {
			return err
		}
		excluded, err := s.graph.FindNoMerge(tx, memberID)
		if err != nil {
			return err
		}
		for _, id := range excluded {
			if id == toMergeID {
				return nil
			}
		}
		return s.graph.AddToMerge(tx, []models.MemberToMerge{
			{MemberID: memberID, ToMergeID: toMergeID, Similarity: similarity},
			{MemberID: toMergeID, ToMergeID: memberID, Similarity: similarity},
		})
	})
}

// DismissSuggestion withdraws a standing candidate pair in both
// directions. Unlike MarkNoMerge it records nothing, so generators may
// surface the pair again on a later run.
func (s *Service) DismissSuggestion(ctx context.Context, scope tenant.Scope, memberID, toMergeID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.findForUpdate(tx, scope, memberID); err != nil {
			return err
		}
		if err := s.graph.RemoveToMerge(tx, memberID, toMergeID); err != nil {
			return err
		}
		return s.graph.RemoveToMerge(tx, toMergeID, memberID)
	})
}

// MarkNoMerge marks a pair as confirmed-not-duplicates in both
// directions, retracting any standing suggestion.
func (s *Service) MarkNoMerge(ctx context.Context, scope tenant.Scope, memberID, noMergeID uuid.UUID) error {
	if memberID == noMergeID {
		return apperr.NewValidation("cannot exclude a member from merging with itself")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.findForUpdate(tx, scope, memberID); err != nil {
			return err
		}
		if _, err := s.findForUpdate(tx, scope, noMergeID); err != nil {
			return err
		}
		if err := s.graph.AddNoMerge(tx, memberID, noMergeID); err != nil {
			return err
		}
		return s.graph.AddNoMerge(tx, noMergeID, memberID)
	})
}

// FindMergeSuggestions lists the outgoing candidate edges of a member.
func (s *Service) FindMergeSuggestions(ctx context.Context, scope tenant.Scope, memberID uuid.UUID) ([]models.MemberToMerge, error) {
	if _, err := s.FindByID(ctx, scope, memberID); err != nil {
		return nil, err
	}
	return s.graph.FindToMerge(s.db.WithContext(ctx), memberID)
}

// DestroyBulk soft-deletes members and hard-deletes their identities,
// children and graph edges in one transaction.
func (s *Service) DestroyBulk(ctx context.Context, scope tenant.Scope, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&models.Member{}).
			Where("tenant_id = ? AND id IN ?", scope.ID, ids).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count != int64(len(ids)) {
			return apperr.NewValidation("one or more members do not exist in this tenant")
		}

		if err := s.graph.PruneEdges(tx, ids); err != nil {
			return err
		}
		for _, child := range []any{
			&models.MemberIdentity{}, &models.Activity{},
			&models.MemberTag{}, &models.MemberNote{}, &models.MemberTask{},
			&models.MemberOrganization{}, &models.MemberSegment{},
		} {
			if err := tx.Where("member_id IN ?", ids).Delete(child).Error; err != nil {
				return err
			}
		}
		return tx.Where("tenant_id = ? AND id IN ?", scope.ID, ids).
			Delete(&models.Member{}).Error
	})
	if err != nil {
		return err
	}

	for _, id := range ids {
		s.emitRemove(ctx, scope.ID, id)
	}
	return nil
}

// findForUpdate loads a member row-locked inside the caller's
// transaction, identities preloaded.
func (s *Service) findForUpdate(tx *gorm.DB, scope tenant.Scope, id uuid.UUID) (*models.Member, error) {
	var member models.Member
	err := database.LockForUpdate(tx).
		Preload("Identities").
		Where("tenant_id = ?", scope.ID).
		First(&member, "id = ?", id).Error
	if err != nil {
		return nil, apperr.TranslateDB(err, entityTypeMember, id.String(), "")
	}
	return &member, nil
}

func (s *Service) reload(tx *gorm.DB, scope tenant.Scope, id uuid.UUID) (*models.Member, error) {
	var member models.Member
	err := tx.Preload("Identities").
		Where("tenant_id = ?", scope.ID).
		First(&member, "id = ?", id).Error
	if err != nil {
		return nil, apperr.TranslateDB(err, entityTypeMember, id.String(), "")
	}
	return &member, nil
}

// findByIdentities returns the member owning any of the given
// (platform, username) pairs, or nil when the pairs are unclaimed.
func (s *Service) findByIdentities(tx *gorm.DB, scope tenant.Scope, identities IdentityMap) (*models.Member, error) {
	var pairs [][]any
	for platform, list := range identities {
		for _, identity := range list {
			pairs = append(pairs, []any{platform, identity.Username})
		}
	}

	var row models.MemberIdentity
	err := tx.Where("tenant_id = ?", scope.ID).
		Where("(platform, username) IN ?", pairs).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.findForUpdate(tx, scope, row.MemberID)
}

func (s *Service) createMember(tx *gorm.DB, scope tenant.Scope, input UpsertInput,
	identities IdentityMap, attributes models.AttributeMap) (*models.Member, error) {

	displayName := input.DisplayName
	if displayName == "" {
		// Fall back to the first username by platform order.
		platforms := identities.Platforms()
		displayName = identities[platforms[0]][0].Username
	}
	joinedAt := input.JoinedAt
	if joinedAt.IsZero() {
		joinedAt = time.Now().UTC()
	}
	score := -1
	if input.Score != nil {
		score = *input.Score
	}

	member := models.Member{
		TenantID:    scope.ID,
		DisplayName: displayName,
		Emails:      input.Emails,
		Attributes:  attributes,
		Reach:       CalculateReach(nil, input.Reach),
		Score:       score,
		JoinedAt:    joinedAt,
	}
	if err := tx.Create(&member).Error; err != nil {
		return nil, err
	}
	if err := s.claimIdentities(tx, scope, member.ID, identities); err != nil {
		return nil, err
	}
	for _, segmentID := range scope.SegmentIDs {
		segment := models.MemberSegment{MemberID: member.ID, SegmentID: segmentID, TenantID: scope.ID}
		if err := tx.Create(&segment).Error; err != nil {
			return nil, err
		}
	}
	return s.reload(tx, scope, member.ID)
}

// foldIntoExisting merges the upsert input into the member that already
// owns one of its identities, using the same field policies a full
// merge uses.
func (s *Service) foldIntoExisting(tx *gorm.DB, scope tenant.Scope, existing *models.Member, input UpsertInput,
	identities IdentityMap, attributes models.AttributeMap, priorities []string) (*models.Member, error) {

	incoming := map[string]any{}
	if input.DisplayName != "" {
		incoming["displayName"] = input.DisplayName
	}
	if input.Emails != nil {
		incoming["emails"] = input.Emails
	}
	if attributes != nil {
		incoming["attributes"] = attributesToAny(attributes)
	}
	if input.Reach != nil {
		incoming["reach"] = input.Reach
	}
	if input.Score != nil {
		incoming["score"] = *input.Score
	}
	if !input.JoinedAt.IsZero() {
		incoming["joinedAt"] = input.JoinedAt
	}

	updates := memberColumnUpdates(mergeFields(mergeFieldMap(existing), incoming))
	if err := applyAttributeDefaults(updates, priorities); err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := tx.Model(existing).Updates(updates).Error; err != nil {
			return nil, err
		}
	}

	owned := ownedIdentityMap(existing.Identities)
	if err := s.claimIdentities(tx, scope, existing.ID, NewIdentities(owned, identities)); err != nil {
		return nil, err
	}

	for _, segmentID := range scope.SegmentIDs {
		segment := models.MemberSegment{MemberID: existing.ID, SegmentID: segmentID, TenantID: scope.ID}
		err := tx.Where("member_id = ? AND segment_id = ?", existing.ID, segmentID).
			FirstOrCreate(&segment).Error
		if err != nil {
			return nil, err
		}
	}

	return s.reload(tx, scope, existing.ID)
}

// claimIdentities inserts identity rows for a member. A row already
// owned by another member surfaces as a ConflictError.
func (s *Service) claimIdentities(tx *gorm.DB, scope tenant.Scope, memberID uuid.UUID, identities IdentityMap) error {
	for platform, list := range identities {
		for _, identity := range list {
			row := models.MemberIdentity{
				MemberID:      memberID,
				TenantID:      scope.ID,
				Platform:      platform,
				Username:      identity.Username,
				IntegrationID: identity.IntegrationID,
			}
			if err := tx.Create(&row).Error; err != nil {
				return apperr.TranslateDB(err, entityTypeMember, memberID.String(),
					fmt.Sprintf("identity %s:%s", platform, identity.Username))
			}
		}
	}
	return nil
}

// reconcileFields runs the field reconciler over two members and
// returns the column updates for the surviving one.
func (s *Service) reconcileFields(original, toMerge *models.Member) map[string]any {
	return memberColumnUpdates(mergeFields(mergeFieldMap(original), mergeFieldMap(toMerge)))
}

// moveChildren reassigns the loser's owned and joined children to the
// winner. Join rows the winner already has are dropped first so the
// bulk updates cannot trip composite unique indexes.
func (s *Service) moveChildren(tx *gorm.DB, from, to uuid.UUID) error {
	err := tx.Model(&models.Activity{}).
		Where("member_id = ?", from).
		Update("member_id", to).Error
	if err != nil {
		return err
	}

	joins := []struct {
		table  string
		column string
	}{
		{"member_tags", "tag_id"},
		{"member_notes", "note_id"},
		{"member_tasks", "task_id"},
		{"member_organizations", "organization_id"},
		{"member_segments", "segment_id"},
	}
	for _, join := range joins {
		err := tx.Exec(fmt.Sprintf(
			`DELETE FROM %s WHERE member_id = ? AND %s IN (SELECT %s FROM %s WHERE member_id = ?)`,
			join.table, join.column, join.column, join.table), from, to).Error
		if err != nil {
			return err
		}
		err = tx.Exec(fmt.Sprintf(
			`UPDATE %s SET member_id = ? WHERE member_id = ?`, join.table), to, from).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func ownedIdentityMap(rows []models.MemberIdentity) IdentityMap {
	out := IdentityMap{}
	for _, row := range rows {
		out[row.Platform] = append(out[row.Platform], models.Identity{
			Username:      row.Username,
			IntegrationID: row.IntegrationID,
		})
	}
	return out
}

// prepareAttributes validates an incoming attribute document against
// the tenant registry and synthesizes its default values.
func (s *Service) prepareAttributes(ctx context.Context, scope tenant.Scope, attributes models.AttributeMap) (models.AttributeMap, []string, error) {
	if len(attributes) == 0 {
		return nil, nil, nil
	}
	registry, err := s.settings.ListAttributes(ctx, scope.ID)
	if err != nil {
		return nil, nil, err
	}
	if err := ValidateAttributes(attributes, registry); err != nil {
		return nil, nil, err
	}
	priorities, err := s.settings.PlatformPriorities(ctx, scope.ID)
	if err != nil {
		return nil, nil, err
	}
	computed, err := ComputeDefaults(attributes, priorities)
	if err != nil {
		return nil, nil, err
	}
	return computed, priorities, nil
}

// applyAttributeDefaults re-synthesizes the default values of a
// combined attribute document. Combining two documents keeps whichever
// defaults were already written, which is wrong as soon as the other
// side carries a higher-priority platform, so the defaults are always
// recomputed from the merged platform set.
func applyAttributeDefaults(updates map[string]any, priorities []string) error {
	raw, ok := updates["attributes"]
	if !ok {
		return nil
	}
	attrs, ok := raw.(models.AttributeMap)
	if !ok || len(attrs) == 0 {
		return nil
	}
	withDefaults, err := ComputeDefaults(attrs, priorities)
	if err != nil {
		return err
	}
	updates["attributes"] = withDefaults
	return nil
}

func (s *Service) emitSync(ctx context.Context, tenantID, id uuid.UUID) {
	if err := s.emitter.EmitSync(ctx, entityTypeMember, tenantID, id); err != nil {
		s.log.Warn("sync event emission failed",
			zap.String("memberId", id.String()), zap.Error(err))
	}
}

func (s *Service) emitRemove(ctx context.Context, tenantID, id uuid.UUID) {
	if err := s.emitter.EmitRemove(ctx, entityTypeMember, tenantID, id); err != nil {
		s.log.Warn("remove event emission failed",
			zap.String("memberId", id.String()), zap.Error(err))
	}
}

func (s *Service) archiveSnapshot(ctx context.Context, tenantID uuid.UUID, original, merged models.Member) {
	err := s.archive.StoreMergeSnapshot(ctx, storage.MergeSnapshot{
		TenantID:   tenantID,
		EntityType: entityTypeMember,
		OriginalID: original.ID,
		MergedID:   merged.ID,
		Original:   original,
		Merged:     merged,
		MergedAt:   time.Now().UTC(),
	})
	if err != nil {
		s.log.Warn("merge snapshot archival failed",
			zap.String("originalId", original.ID.String()),
			zap.String("mergedId", merged.ID.String()),
			zap.Error(err))
	}
}
