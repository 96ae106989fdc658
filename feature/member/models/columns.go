package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSON column helpers shared by the entity models. Attributes, reach
// and email lists are stored as jsonb documents; these types give them
// a typed Go surface while keeping Scan/Value symmetric across the
// postgres and sqlite dialects.

// StringList is a jsonb-backed list of strings (emails, phone numbers).
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal(StringList{})
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(src any) error {
	return scanJSON(src, l)
}

// Contains reports whether the list holds the given value.
func (l StringList) Contains(value string) bool {
	for _, item := range l {
		if item == value {
			return true
		}
	}
	return false
}

// ReachMap maps platform -> reach value, with the computed "total" key.
type ReachMap map[string]int64

func (m ReachMap) Value() (driver.Value, error) {
	if m == nil {
		return json.Marshal(ReachMap{})
	}
	return json.Marshal(m)
}

func (m *ReachMap) Scan(src any) error {
	return scanJSON(src, m)
}

// AttributeMap maps attributeName -> platform -> value, including the
// synthesized "default" platform key.
type AttributeMap map[string]map[string]any

func (m AttributeMap) Value() (driver.Value, error) {
	if m == nil {
		return json.Marshal(AttributeMap{})
	}
	return json.Marshal(m)
}

func (m *AttributeMap) Scan(src any) error {
	return scanJSON(src, m)
}

func scanJSON(src, dst any) error {
	if src == nil {
		return nil
	}
	switch raw := src.(type) {
	case []byte:
		return json.Unmarshal(raw, dst)
	case string:
		return json.Unmarshal([]byte(raw), dst)
	default:
		return fmt.Errorf("unsupported json column source type %T", src)
	}
}
