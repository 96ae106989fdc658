package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Attribute value types accepted by the registry.
const (
	AttributeTypeBoolean = "boolean"
	AttributeTypeNumber  = "number"
	AttributeTypeString  = "string"
	AttributeTypeDate    = "date"
	AttributeTypeEmail   = "email"
	AttributeTypeURL     = "url"
)

func ValidAttributeType(t string) bool {
	switch t {
	case AttributeTypeBoolean, AttributeTypeNumber, AttributeTypeString,
		AttributeTypeDate, AttributeTypeEmail, AttributeTypeURL:
		return true
	}
	return false
}

// Priorities is an ordered platform list stored as a JSON column.
type Priorities []string

func (p Priorities) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (p *Priorities) Scan(value any) error {
	if value == nil {
		*p = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported column type %T", value)
	}
	return json.Unmarshal(raw, p)
}

// AttributeSetting declares a dynamic attribute a tenant may store on
// its members.
type AttributeSetting struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"               json:"id"`
	TenantID  uuid.UUID `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:uix_attribute_setting" json:"tenantId"`
	Name      string    `gorm:"column:name;not null;uniqueIndex:uix_attribute_setting"                json:"name"`
	Label     string    `gorm:"column:label;not null"                        json:"label"`
	Type      string    `gorm:"column:type;not null"                         json:"type"`
	Show      bool      `gorm:"column:show;not null"                         json:"show"`
	CanDelete bool      `gorm:"column:can_delete;not null"                   json:"canDelete"`
	CreatedAt time.Time `gorm:"column:created_at"                            json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at"                            json:"updatedAt"`
}

func (AttributeSetting) TableName() string { return "attribute_settings" }

func (s *AttributeSetting) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// TenantSetting holds per-tenant configuration, currently the platform
// priority order used to pick default attribute values.
type TenantSetting struct {
	ID                  uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"            json:"id"`
	TenantID            uuid.UUID  `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex" json:"tenantId"`
	AttributePriorities Priorities `gorm:"column:attribute_priorities;type:jsonb"    json:"attributePriorities"`
	CreatedAt           time.Time  `gorm:"column:created_at"                         json:"createdAt"`
	UpdatedAt           time.Time  `gorm:"column:updated_at"                         json:"updatedAt"`
}

func (TenantSetting) TableName() string { return "tenant_settings" }

func (s *TenantSetting) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// All lists the settings models in migration order.
func All() []any {
	return []any{
		&AttributeSetting{},
		&TenantSetting{},
	}
}
