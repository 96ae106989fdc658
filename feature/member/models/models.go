package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ReachTotalKey is the synthesized key holding the summed reach.
const ReachTotalKey = "total"

// ReachNotComputed is the sentinel total for a member without any
// per-platform reach value.
const ReachNotComputed int64 = -1

// AttributeDefaultKey is the synthesized platform key holding the
// default attribute value chosen by platform priority.
const AttributeDefaultKey = "default"

// Member is a person-entity: an identity container subject to
// deduplication and merging.
type Member struct {
	ID          uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID    uuid.UUID    `gorm:"type:uuid;not null;index" json:"tenantId"`
	DisplayName string       `gorm:"not null" json:"displayName"`
	Emails      StringList   `gorm:"type:jsonb" json:"emails"`
	Attributes  AttributeMap `gorm:"type:jsonb" json:"attributes"`
	Reach       ReachMap     `gorm:"type:jsonb" json:"reach"`
	Score       int          `json:"score"`
	JoinedAt    time.Time    `json:"joinedAt"`

	Identities []MemberIdentity `gorm:"foreignKey:MemberID" json:"identities"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (m *Member) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Identity is the canonical normalized form of one external identity:
// a username on a platform, optionally scoped to an integration.
type Identity struct {
	Username      string     `json:"username"`
	IntegrationID *uuid.UUID `json:"integrationId,omitempty"`
}

// MemberIdentity is the persisted identity row. An identity belongs to
// exactly one member; merges transfer ownership, never copy.
type MemberIdentity struct {
	MemberID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"memberId"`
	TenantID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uix_member_identity" json:"tenantId"`
	Platform      string     `gorm:"not null;uniqueIndex:uix_member_identity" json:"platform"`
	Username      string     `gorm:"not null;uniqueIndex:uix_member_identity" json:"username"`
	IntegrationID *uuid.UUID `gorm:"type:uuid" json:"integrationId,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// Activity is an event performed by a member, optionally attributed to
// an organization. Owned child: reassigned by foreign key on merge.
type Activity struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenantId"`
	MemberID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"memberId"`
	OrganizationID *uuid.UUID     `gorm:"type:uuid;index" json:"organizationId,omitempty"`
	Platform       string         `json:"platform"`
	Type           string         `json:"type"`
	Timestamp      time.Time      `json:"timestamp"`
	Payload        datatypes.JSON `gorm:"type:jsonb" json:"payload,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

func (a *Activity) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Tag labels members within a tenant.
type Tag struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index" json:"tenantId"`
	Name     string    `gorm:"not null" json:"name"`
}

func (t *Tag) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// MemberTag is the member<->tag join row.
type MemberTag struct {
	MemberID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uix_member_tag" json:"memberId"`
	TagID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uix_member_tag" json:"tagId"`
}

// Note is a free-form operator note attached to members.
type Note struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index" json:"tenantId"`
	Body     string    `json:"body"`
}

func (n *Note) BeforeCreate(*gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// MemberNote is the member<->note join row.
type MemberNote struct {
	MemberID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uix_member_note" json:"memberId"`
	NoteID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uix_member_note" json:"noteId"`
}

// Task is an operator task that can reference members.
type Task struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index" json:"tenantId"`
	Name     string    `json:"name"`
	Status   string    `json:"status"`
}

func (t *Task) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// MemberTask is the member<->task join row.
type MemberTask struct {
	MemberID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uix_member_task" json:"memberId"`
	TaskID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uix_member_task" json:"taskId"`
}

// MemberOrganization links a member to an organization.
type MemberOrganization struct {
	MemberID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uix_member_organization" json:"memberId"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uix_member_organization" json:"organizationId"`
	CreatedAt      time.Time `json:"createdAt"`
}

// MemberSegment records a member's membership in a tenant segment.
type MemberSegment struct {
	MemberID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uix_member_segment" json:"memberId"`
	SegmentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uix_member_segment" json:"segmentId"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index" json:"tenantId"`
}

// MemberToMerge is a directed suggested-duplicate edge between two
// members. The service layer records edges symmetrically; the row
// itself is directional.
type MemberToMerge struct {
	MemberID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uix_member_to_merge" json:"memberId"`
	ToMergeID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uix_member_to_merge" json:"toMergeId"`
	Similarity *float64  `json:"similarity,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// MemberNoMerge is a directed confirmed-not-duplicate edge. Mutually
// exclusive with MemberToMerge for the same pair.
type MemberNoMerge struct {
	MemberID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uix_member_no_merge" json:"memberId"`
	NoMergeID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uix_member_no_merge" json:"noMergeId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// All returns every model in this package, in a FK-safe migration order.
func All() []any {
	return []any{
		&Member{}, &MemberIdentity{}, &Activity{},
		&Tag{}, &MemberTag{}, &Note{}, &MemberNote{}, &Task{}, &MemberTask{},
		&MemberOrganization{}, &MemberSegment{},
		&MemberToMerge{}, &MemberNoMerge{},
	}
}
