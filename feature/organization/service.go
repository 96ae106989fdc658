package organization

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
	"community-hub/core/mergekit"
	"community-hub/core/storage"
	"community-hub/core/tenant"
	membermodels "community-hub/feature/member/models"
	"community-hub/feature/organization/models"
)

const entityTypeOrganization = "organization"

// MergeStatus reports how an organization merge ended.
type MergeStatus string

const (
	MergeStatusMerged     MergeStatus = "merged"
	MergeStatusSameEntity MergeStatus = "same-entity"
)

// MergeResult is the outcome of an organization merge.
type MergeResult struct {
	Status         MergeStatus `json:"status"`
	OrganizationID uuid.UUID   `json:"organizationId"`
}

// UpsertInput creates or enriches an organization keyed by its
// (platform, name) identity.
type UpsertInput struct {
	DisplayName  string                  `json:"displayName"`
	Platform     string                  `json:"platform"`
	Name         string                  `json:"name"`
	Description  string                  `json:"description"`
	Logo         string                  `json:"logo"`
	Website      string                  `json:"website"`
	Emails       membermodels.StringList `json:"emails"`
	PhoneNumbers membermodels.StringList `json:"phoneNumbers"`
}

// Service implements organization lifecycle and merging.
type Service struct {
	db      *gorm.DB
	graph   *Graph
	emitter events.Emitter
	archive *storage.Archive
	log     *zap.Logger
}

func NewService(db *gorm.DB, graph *Graph, emitter events.Emitter,
	archive *storage.Archive, log *zap.Logger) *Service {
	return &Service{db: db, graph: graph, emitter: emitter, archive: archive, log: log}
}

// FindByID loads an organization with its identities.
func (s *Service) FindByID(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Organization, error) {
	var org models.Organization
	err := s.db.WithContext(ctx).
		Preload("Identities").
		Where("tenant_id = ?", scope.ID).
		First(&org, "id = ?", id).Error
	if err != nil {
		return nil, apperr.TranslateDB(err, entityTypeOrganization, id.String(), "")
	}
	return &org, nil
}

// Upsert creates an organization or enriches the one owning the given
// (platform, name) identity.
func (s *Service) Upsert(ctx context.Context, scope tenant.Scope, input UpsertInput) (*models.Organization, error) {
	if input.Platform == "" || input.Name == "" {
		return nil, apperr.NewValidation("platform and name are required")
	}

	var out *models.Organization
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.OrganizationIdentity
		err := tx.Where("tenant_id = ? AND platform = ? AND name = ?",
			scope.ID, input.Platform, input.Name).
			Take(&row).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			out, err = s.create(tx, scope, input)
			return err
		}

		existing, err := s.findForUpdate(tx, scope, row.OrganizationID)
		if err != nil {
			return err
		}
		updates := orgColumnUpdates(mergekit.Merge(
			orgFieldMap(existing), orgFieldMapFromInput(input), mergePolicies()))
		if len(updates) > 0 {
			if err := tx.Model(existing).Updates(updates).Error; err != nil {
				return err
			}
		}
		out, err = s.reload(tx, scope, existing.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.emitSync(ctx, scope.ID, out.ID)
	return out, nil
}

// Merge folds toMergeID into originalID, mirroring the member merge:
// identity transfer, field reconciliation, child reassignment, edge
// rewiring and a soft delete, all in one transaction.
func (s *Service) Merge(ctx context.Context, scope tenant.Scope, originalID, toMergeID uuid.UUID) (MergeResult, error) {
	if originalID == toMergeID {
		return MergeResult{Status: MergeStatusSameEntity, OrganizationID: originalID}, nil
	}

	var originalBefore, toMergeBefore models.Organization
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		original, err := s.findForUpdate(tx, scope, originalID)
		if err != nil {
			return err
		}
		toMerge, err := s.findForUpdate(tx, scope, toMergeID)
		if err != nil {
			return err
		}
		originalBefore, toMergeBefore = *original, *toMerge

		err = tx.Model(&models.OrganizationIdentity{}).
			Where("organization_id = ?", toMerge.ID).
			Update("organization_id", original.ID).Error
		if err != nil {
			return err
		}

		updates := orgColumnUpdates(mergekit.Merge(
			orgFieldMap(original), orgFieldMap(toMerge), mergePolicies()))
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

	return MergeResult{Status: MergeStatusMerged, OrganizationID: originalID}, nil
}

// SuggestMerge records a candidate pair symmetrically unless the pair
// is already confirmed as not-duplicates.
func (s *Service) SuggestMerge(ctx context.Context, scope tenant.Scope, organizationID, toMergeID uuid.UUID, similarity *float64) error {
	if organizationID == toMergeID {
		return apperr.NewValidation("cannot suggest merging an organization with itself")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.findForUpdate(tx, scope, organizationID); err != nil {
			return err
		}
		if _, err := s.findForUpdate(tx, scope, toMergeID); err != nil {
			return err
		}
		excluded, err := s.graph.FindNoMerge(tx, organizationID)
		if err != nil {
			return err
		}
		for _, id := range excluded {
			if id == toMergeID {
				return nil
			}
		}
		return s.graph.AddToMerge(tx, []models.OrganizationToMerge{
			{OrganizationID: organizationID, ToMergeID: toMergeID, Similarity: similarity},
			{OrganizationID: toMergeID, ToMergeID: organizationID, Similarity: similarity},
		})
	})
}

// DismissSuggestion withdraws a standing candidate pair in both
// directions without recording an exclusion.
func (s *Service) DismissSuggestion(ctx context.Context, scope tenant.Scope, organizationID, toMergeID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.findForUpdate(tx, scope, organizationID); err != nil {
			return err
		}
		if err := s.graph.RemoveToMerge(tx, organizationID, toMergeID); err != nil {
			return err
		}
		return s.graph.RemoveToMerge(tx, toMergeID, organizationID)
	})
}

// MarkNoMerge confirms a pair as not-duplicates in both directions.
func (s *Service) MarkNoMerge(ctx context.Context, scope tenant.Scope, organizationID, noMergeID uuid.UUID) error {
	if organizationID == noMergeID {
		return apperr.NewValidation("cannot exclude an organization from merging with itself")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.findForUpdate(tx, scope, organizationID); err != nil {
			return err
		}
		if _, err := s.findForUpdate(tx, scope, noMergeID); err != nil {
			return err
		}
		if err := s.graph.AddNoMerge(tx, organizationID, noMergeID); err != nil {
			return err
		}
		return s.graph.AddNoMerge(tx, noMergeID, organizationID)
	})
}

// FindMergeSuggestions lists the outgoing candidate edges.
func (s *Service) FindMergeSuggestions(ctx context.Context, scope tenant.Scope, organizationID uuid.UUID) ([]models.OrganizationToMerge, error) {
	if _, err := s.FindByID(ctx, scope, organizationID); err != nil {
		return nil, err
	}
	return s.graph.FindToMerge(s.db.WithContext(ctx), organizationID)
}

// GenerateSuggestions finds organizations that share an identity name
// across platforms or a website, and records them as candidates.
func (s *Service) GenerateSuggestions(ctx context.Context, scope tenant.Scope) (int, error) {
	query := `
SELECT DISTINCT oi.organization_id AS organization_id,
       other.organization_id       AS to_merge_id
FROM organization_identities oi
JOIN organization_identities other
  ON other.tenant_id = oi.tenant_id
 AND other.name = oi.name
 AND other.platform <> oi.platform
 AND other.organization_id <> oi.organization_id
JOIN organizations o  ON o.id  = oi.organization_id    AND o.deleted_at IS NULL
JOIN organizations oo ON oo.id = other.organization_id AND oo.deleted_at IS NULL
WHERE oi.tenant_id = @tenant
UNION
SELECT DISTINCT o.id AS organization_id, other.id AS to_merge_id
FROM organizations o
JOIN organizations other
  ON other.tenant_id = o.tenant_id
 AND other.id <> o.id
 AND other.website = o.website
 AND other.deleted_at IS NULL
WHERE o.tenant_id = @tenant
  AND o.deleted_at IS NULL
  AND o.website <> ''`

	var rows []struct {
		OrganizationID uuid.UUID `gorm:"column:organization_id"`
		ToMergeID      uuid.UUID `gorm:"column:to_merge_id"`
	}
	err := s.db.WithContext(ctx).
		Raw(query, map[string]any{"tenant": scope.ID}).
		Scan(&rows).Error
	if err != nil {
		return 0, err
	}

	edges := make([]models.OrganizationToMerge, 0, len(rows))
	for _, row := range rows {
		excluded, err := s.graph.FindNoMerge(nil, row.OrganizationID)
		if err != nil {
			return 0, err
		}
		skip := false
		for _, id := range excluded {
			if id == row.ToMergeID {
				skip = true
				break
			}
		}
		if !skip {
			edges = append(edges, models.OrganizationToMerge{
				OrganizationID: row.OrganizationID, ToMergeID: row.ToMergeID})
		}
	}
	if len(edges) == 0 {
		return 0, nil
	}
	return len(edges), s.graph.AddToMerge(nil, edges)
}

func (s *Service) create(tx *gorm.DB, scope tenant.Scope, input UpsertInput) (*models.Organization, error) {
	displayName := input.DisplayName
	if displayName == "" {
		displayName = input.Name
	}
	org := models.Organization{
		TenantID:     scope.ID,
		DisplayName:  displayName,
		Description:  input.Description,
		Logo:         input.Logo,
		Website:      input.Website,
		Emails:       input.Emails,
		PhoneNumbers: input.PhoneNumbers,
	}
	if err := tx.Create(&org).Error; err != nil {
		return nil, err
	}
	identity := models.OrganizationIdentity{
		OrganizationID: org.ID,
		TenantID:       scope.ID,
		Platform:       input.Platform,
		Name:           input.Name,
	}
	if err := tx.Create(&identity).Error; err != nil {
		return nil, apperr.TranslateDB(err, entityTypeOrganization, org.ID.String(),
			fmt.Sprintf("identity %s:%s", input.Platform, input.Name))
	}
	return s.reload(tx, scope, org.ID)
}

func (s *Service) findForUpdate(tx *gorm.DB, scope tenant.Scope, id uuid.UUID) (*models.Organization, error) {
	var org models.Organization
	err := database.LockForUpdate(tx).
		Preload("Identities").
		Where("tenant_id = ?", scope.ID).
		First(&org, "id = ?", id).Error
	if err != nil {
		return nil, apperr.TranslateDB(err, entityTypeOrganization, id.String(), "")
	}
	return &org, nil
}

func (s *Service) reload(tx *gorm.DB, scope tenant.Scope, id uuid.UUID) (*models.Organization, error) {
	var org models.Organization
	err := tx.Preload("Identities").
		Where("tenant_id = ?", scope.ID).
		First(&org, "id = ?", id).Error
	if err != nil {
		return nil, apperr.TranslateDB(err, entityTypeOrganization, id.String(), "")
	}
	return &org, nil
}

// moveChildren reassigns activities and member links from the losing
// organization to the surviving one.
func (s *Service) moveChildren(tx *gorm.DB, from, to uuid.UUID) error {
	err := tx.Model(&membermodels.Activity{}).
		Where("organization_id = ?", from).
		Update("organization_id", to).Error
	if err != nil {
		return err
	}
	err = tx.Exec(`DELETE FROM member_organizations
		WHERE organization_id = ?
		  AND member_id IN (SELECT member_id FROM member_organizations WHERE organization_id = ?)`,
		from, to).Error
	if err != nil {
		return err
	}
	return tx.Exec(`UPDATE member_organizations SET organization_id = ? WHERE organization_id = ?`,
		to, from).Error
}

func (s *Service) emitSync(ctx context.Context, tenantID, id uuid.UUID) {
	if err := s.emitter.EmitSync(ctx, entityTypeOrganization, tenantID, id); err != nil {
		s.log.Warn("sync event emission failed",
			zap.String("organizationId", id.String()), zap.Error(err))
	}
}

func (s *Service) emitRemove(ctx context.Context, tenantID, id uuid.UUID) {
	if err := s.emitter.EmitRemove(ctx, entityTypeOrganization, tenantID, id); err != nil {
		s.log.Warn("remove event emission failed",
			zap.String("organizationId", id.String()), zap.Error(err))
	}
}

func (s *Service) archiveSnapshot(ctx context.Context, tenantID uuid.UUID, original, merged models.Organization) {
	err := s.archive.StoreMergeSnapshot(ctx, storage.MergeSnapshot{
		TenantID:   tenantID,
		EntityType: entityTypeOrganization,
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
