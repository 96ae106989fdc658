package member

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"community-hub/feature/member/models"
)

// suggestionChunkSize bounds a single multi-row insert of candidate
// edges so large generator batches don't blow up one statement.
const suggestionChunkSize = 100

// Graph persists the merge candidate edges between members. Edges are
// stored directionally; symmetry is the caller's concern.
type Graph struct {
	db *gorm.DB
}

func NewGraph(db *gorm.DB) *Graph {
	return &Graph{db: db}
}

// handle lets graph operations join a caller's transaction. A nil tx
// falls back to the base connection.
func (g *Graph) handle(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return g.db
}

// AddToMerge stores candidate edges, deduplicating the batch and
// ignoring edges that already exist.
func (g *Graph) AddToMerge(tx *gorm.DB, edges []models.MemberToMerge) error {
	seen := make(map[[2]uuid.UUID]struct{}, len(edges))
	unique := make([]models.MemberToMerge, 0, len(edges))
	for _, edge := range edges {
		key := [2]uuid.UUID{edge.MemberID, edge.ToMergeID}
		if _, dup := seen[key]; dup || edge.MemberID == edge.ToMergeID {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, edge)
	}
	if len(unique) == 0 {
		return nil
	}
	return g.handle(tx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&unique, suggestionChunkSize).Error
}

// AddNoMerge records that two members must never be suggested again
// and retracts any standing candidate edge in the same direction.
func (g *Graph) AddNoMerge(tx *gorm.DB, memberID, noMergeID uuid.UUID) error {
	db := g.handle(tx)
	edge := models.MemberNoMerge{MemberID: memberID, NoMergeID: noMergeID}
	err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&edge).Error
	if err != nil {
		return err
	}
	return db.
		Where("member_id = ? AND to_merge_id = ?", memberID, noMergeID).
		Delete(&models.MemberToMerge{}).Error
}

// RemoveToMerge drops the candidate edge memberID -> toMergeID.
func (g *Graph) RemoveToMerge(tx *gorm.DB, memberID, toMergeID uuid.UUID) error {
	return g.handle(tx).
		Where("member_id = ? AND to_merge_id = ?", memberID, toMergeID).
		Delete(&models.MemberToMerge{}).Error
}

// FindToMerge returns the outgoing candidate edges of a member.
func (g *Graph) FindToMerge(tx *gorm.DB, memberID uuid.UUID) ([]models.MemberToMerge, error) {
	var edges []models.MemberToMerge
	err := g.handle(tx).
		Where("member_id = ?", memberID).
		Find(&edges).Error
	return edges, err
}

// FindNoMerge returns the IDs a member is excluded from merging with,
// in either direction.
func (g *Graph) FindNoMerge(tx *gorm.DB, memberID uuid.UUID) ([]uuid.UUID, error) {
	var edges []models.MemberNoMerge
	err := g.handle(tx).
		Where("member_id = ? OR no_merge_id = ?", memberID, memberID).
		Find(&edges).Error
	if err != nil {
		return nil, err
	}
	out := make([]uuid.UUID, 0, len(edges))
	for _, edge := range edges {
		if edge.MemberID == memberID {
			out = append(out, edge.NoMergeID)
		} else {
			out = append(out, edge.MemberID)
		}
	}
	return out, nil
}

// MoveEdges redirects every edge touching from onto to, then drops the
// self-loops and duplicates the redirect produced. Used when the losing
// side of a merge disappears.
func (g *Graph) MoveEdges(tx *gorm.DB, from, to uuid.UUID) error {
	db := g.handle(tx)

	// Drop edges that would collide with an existing edge of the winner.
	err := db.Exec(`DELETE FROM member_to_merges
		WHERE member_id = ?
		  AND to_merge_id IN (SELECT to_merge_id FROM member_to_merges WHERE member_id = ?)`,
		from, to).Error
	if err != nil {
		return err
	}
	err = db.Exec(`DELETE FROM member_to_merges
		WHERE to_merge_id = ?
		  AND member_id IN (SELECT member_id FROM member_to_merges WHERE to_merge_id = ?)`,
		from, to).Error
	if err != nil {
		return err
	}
	if err := db.Model(&models.MemberToMerge{}).
		Where("member_id = ?", from).Update("member_id", to).Error; err != nil {
		return err
	}
	if err := db.Model(&models.MemberToMerge{}).
		Where("to_merge_id = ?", from).Update("to_merge_id", to).Error; err != nil {
		return err
	}
	if err := db.
		Where("member_id = to_merge_id").
		Delete(&models.MemberToMerge{}).Error; err != nil {
		return err
	}

	err = db.Exec(`DELETE FROM member_no_merges
		WHERE member_id = ?
		  AND no_merge_id IN (SELECT no_merge_id FROM member_no_merges WHERE member_id = ?)`,
		from, to).Error
	if err != nil {
		return err
	}
	err = db.Exec(`DELETE FROM member_no_merges
		WHERE no_merge_id = ?
		  AND member_id IN (SELECT member_id FROM member_no_merges WHERE no_merge_id = ?)`,
		from, to).Error
	if err != nil {
		return err
	}
	if err := db.Model(&models.MemberNoMerge{}).
		Where("member_id = ?", from).Update("member_id", to).Error; err != nil {
		return err
	}
	if err := db.Model(&models.MemberNoMerge{}).
		Where("no_merge_id = ?", from).Update("no_merge_id", to).Error; err != nil {
		return err
	}
	return db.
		Where("member_id = no_merge_id").
		Delete(&models.MemberNoMerge{}).Error
}

// PruneEdges removes every edge touching any of the given members.
func (g *Graph) PruneEdges(tx *gorm.DB, memberIDs []uuid.UUID) error {
	if len(memberIDs) == 0 {
		return nil
	}
	db := g.handle(tx)
	err := db.
		Where("member_id IN ? OR to_merge_id IN ?", memberIDs, memberIDs).
		Delete(&models.MemberToMerge{}).Error
	if err != nil {
		return err
	}
	return db.
		Where("member_id IN ? OR no_merge_id IN ?", memberIDs, memberIDs).
		Delete(&models.MemberNoMerge{}).Error
}
