package organization

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"community-hub/feature/organization/models"
)

// Graph persists merge candidate edges between organizations. Same
// directional-edge model as the member graph, smaller surface.
type Graph struct {
	db *gorm.DB
}

func NewGraph(db *gorm.DB) *Graph {
	return &Graph{db: db}
}

func (g *Graph) handle(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return g.db
}

// AddToMerge stores candidate edges, ignoring ones that already exist.
func (g *Graph) AddToMerge(tx *gorm.DB, edges []models.OrganizationToMerge) error {
	filtered := edges[:0]
	for _, edge := range edges {
		if edge.OrganizationID != edge.ToMergeID {
			filtered = append(filtered, edge)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	return g.handle(tx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&filtered).Error
}

// AddNoMerge records a confirmed non-duplicate and retracts any
// standing suggestion in the same direction.
func (g *Graph) AddNoMerge(tx *gorm.DB, organizationID, noMergeID uuid.UUID) error {
	db := g.handle(tx)
	edge := models.OrganizationNoMerge{OrganizationID: organizationID, NoMergeID: noMergeID}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&edge).Error; err != nil {
		return err
	}
	return db.
		Where("organization_id = ? AND to_merge_id = ?", organizationID, noMergeID).
		Delete(&models.OrganizationToMerge{}).Error
}

// RemoveToMerge withdraws one directional candidate edge.
func (g *Graph) RemoveToMerge(tx *gorm.DB, organizationID, toMergeID uuid.UUID) error {
	return g.handle(tx).
		Where("organization_id = ? AND to_merge_id = ?", organizationID, toMergeID).
		Delete(&models.OrganizationToMerge{}).Error
}

// FindToMerge returns the outgoing candidate edges of an organization.
func (g *Graph) FindToMerge(tx *gorm.DB, organizationID uuid.UUID) ([]models.OrganizationToMerge, error) {
	var edges []models.OrganizationToMerge
	err := g.handle(tx).
		Where("organization_id = ?", organizationID).
		Find(&edges).Error
	return edges, err
}

// FindNoMerge returns the IDs excluded from merging with the given
// organization, in either direction.
func (g *Graph) FindNoMerge(tx *gorm.DB, organizationID uuid.UUID) ([]uuid.UUID, error) {
	var edges []models.OrganizationNoMerge
	err := g.handle(tx).
		Where("organization_id = ? OR no_merge_id = ?", organizationID, organizationID).
		Find(&edges).Error
	if err != nil {
		return nil, err
	}
	out := make([]uuid.UUID, 0, len(edges))
	for _, edge := range edges {
		if edge.OrganizationID == organizationID {
			out = append(out, edge.NoMergeID)
		} else {
			out = append(out, edge.OrganizationID)
		}
	}
	return out, nil
}

// MoveEdges redirects every edge touching from onto to, dropping
// duplicates and self-loops.
func (g *Graph) MoveEdges(tx *gorm.DB, from, to uuid.UUID) error {
	db := g.handle(tx)

	statements := []struct {
		query string
		args  []any
	}{
		{`DELETE FROM organization_to_merges
		   WHERE organization_id = ?
		     AND to_merge_id IN (SELECT to_merge_id FROM organization_to_merges WHERE organization_id = ?)`,
			[]any{from, to}},
		{`DELETE FROM organization_to_merges
		   WHERE to_merge_id = ?
		     AND organization_id IN (SELECT organization_id FROM organization_to_merges WHERE to_merge_id = ?)`,
			[]any{from, to}},
		{`UPDATE organization_to_merges SET organization_id = ? WHERE organization_id = ?`, []any{to, from}},
		{`UPDATE organization_to_merges SET to_merge_id = ? WHERE to_merge_id = ?`, []any{to, from}},
		{`DELETE FROM organization_to_merges WHERE organization_id = to_merge_id`, nil},
		{`DELETE FROM organization_no_merges
		   WHERE organization_id = ?
		     AND no_merge_id IN (SELECT no_merge_id FROM organization_no_merges WHERE organization_id = ?)`,
			[]any{from, to}},
		{`DELETE FROM organization_no_merges
		   WHERE no_merge_id = ?
		     AND organization_id IN (SELECT organization_id FROM organization_no_merges WHERE no_merge_id = ?)`,
			[]any{from, to}},
		{`UPDATE organization_no_merges SET organization_id = ? WHERE organization_id = ?`, []any{to, from}},
		{`UPDATE organization_no_merges SET no_merge_id = ? WHERE no_merge_id = ?`, []any{to, from}},
		{`DELETE FROM organization_no_merges WHERE organization_id = no_merge_id`, nil},
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt.query, stmt.args...).Error; err != nil {
			return err
		}
	}
	return nil
}

// PruneEdges removes every edge touching any of the given organizations.
func (g *Graph) PruneEdges(tx *gorm.DB, organizationIDs []uuid.UUID) error {
	if len(organizationIDs) == 0 {
		return nil
	}
	db := g.handle(tx)
	err := db.
		Where("organization_id IN ? OR to_merge_id IN ?", organizationIDs, organizationIDs).
		Delete(&models.OrganizationToMerge{}).Error
	if err != nil {
		return err
	}
	return db.
		Where("organization_id IN ? OR no_merge_id IN ?", organizationIDs, organizationIDs).
		Delete(&models.OrganizationNoMerge{}).Error
}
