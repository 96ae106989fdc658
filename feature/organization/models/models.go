package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	membermodels "community-hub/feature/member/models"
)

// Organization is a company-entity members belong to. Like members,
// organizations are subject to deduplication and merging.
type Organization struct {
	ID           uuid.UUID               `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID     uuid.UUID               `gorm:"type:uuid;not null;index" json:"tenantId"`
	DisplayName  string                  `gorm:"not null" json:"displayName"`
	Description  string                  `json:"description"`
	Logo         string                  `json:"logo"`
	Website      string                  `json:"website"`
	Emails       membermodels.StringList `gorm:"type:jsonb" json:"emails"`
	PhoneNumbers membermodels.StringList `gorm:"type:jsonb" json:"phoneNumbers"`

	Identities []OrganizationIdentity `gorm:"foreignKey:OrganizationID" json:"identities"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (o *Organization) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrganizationIdentity is the persisted identity row: the name an
// organization goes by on one platform. Owned by exactly one
// organization per tenant.
type OrganizationIdentity struct {
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index" json:"organizationId"`
	TenantID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uix_organization_identity" json:"tenantId"`
	Platform       string    `gorm:"not null;uniqueIndex:uix_organization_identity" json:"platform"`
	Name           string    `gorm:"not null;uniqueIndex:uix_organization_identity" json:"name"`
	CreatedAt      time.Time `json:"createdAt"`
}

// OrganizationToMerge is a directed suggested-duplicate edge.
type OrganizationToMerge struct {
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uix_organization_to_merge" json:"organizationId"`
	ToMergeID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uix_organization_to_merge" json:"toMergeId"`
	Similarity     *float64  `json:"similarity,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// OrganizationNoMerge is a directed confirmed-not-duplicate edge.
type OrganizationNoMerge struct {
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uix_organization_no_merge" json:"organizationId"`
	NoMergeID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uix_organization_no_merge" json:"noMergeId"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// All returns every model in this package, in a FK-safe migration order.
func All() []any {
	return []any{
		&Organization{}, &OrganizationIdentity{},
		&OrganizationToMerge{}, &OrganizationNoMerge{},
	}
}
