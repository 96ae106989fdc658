package member

import (
	"sort"
	"time"

	"community-hub/core/apperr"
	"community-hub/feature/member/models"
	settingsmodels "community-hub/feature/settings/models"
)

// ValidateAttributes checks an incoming attribute document against the
// tenant's registry. Unknown attribute names and values of the wrong
// type are rejected before anything is written.
func ValidateAttributes(attributes models.AttributeMap, registry []settingsmodels.AttributeSetting) error {
	byName := make(map[string]settingsmodels.AttributeSetting, len(registry))
	for _, setting := range registry {
		byName[setting.Name] = setting
	}

	for name, platforms := range attributes {
		setting, ok := byName[name]
		if !ok {
			return apperr.NewValidation("attribute %s is not registered for this tenant", name)
		}
		for platform, value := range platforms {
			if platform == models.AttributeDefaultKey {
				continue
			}
			if value == nil {
				continue
			}
			if !valueMatchesType(value, setting.Type) {
				return apperr.NewValidation(
					"attribute %s: value for platform %s is not of type %s",
					name, platform, setting.Type)
			}
		}
	}
	return nil
}

func valueMatchesType(value any, attrType string) bool {
	switch attrType {
	case settingsmodels.AttributeTypeBoolean:
		_, ok := value.(bool)
		return ok
	case settingsmodels.AttributeTypeNumber:
		switch value.(type) {
		case int, int32, int64, float32, float64:
			return true
		}
		return false
	case settingsmodels.AttributeTypeString,
		settingsmodels.AttributeTypeEmail,
		settingsmodels.AttributeTypeURL:
		_, ok := value.(string)
		return ok
	case settingsmodels.AttributeTypeDate:
		switch v := value.(type) {
		case time.Time:
			return true
		case string:
			_, err := time.Parse(time.RFC3339, v)
			return err == nil
		}
		return false
	}
	return false
}

// ComputeDefaults synthesizes the "default" key of every attribute from
// the platform whose value ranks highest in the tenant's priority
// order. An attribute whose platforms are all unranked falls back to
// the lexicographically first platform so the result stays
// deterministic.
func ComputeDefaults(attributes models.AttributeMap, priorities []string) (models.AttributeMap, error) {
	if len(attributes) == 0 {
		return attributes, nil
	}
	if len(priorities) == 0 {
		return nil, &apperr.ConfigError{Message: "attribute platform priority array not found"}
	}

	rank := make(map[string]int, len(priorities))
	for i, platform := range priorities {
		rank[platform] = i
	}

	out := models.AttributeMap{}
	for name, platforms := range attributes {
		withDefault := make(map[string]any, len(platforms)+1)
		var candidates []string
		for platform, value := range platforms {
			if platform == models.AttributeDefaultKey {
				continue
			}
			withDefault[platform] = value
			if value != nil {
				candidates = append(candidates, platform)
			}
		}
		if len(candidates) == 0 {
			out[name] = withDefault
			continue
		}
		sort.Slice(candidates, func(i, j int) bool {
			ri, iRanked := rank[candidates[i]]
			rj, jRanked := rank[candidates[j]]
			switch {
			case iRanked && jRanked:
				return ri < rj
			case iRanked:
				return true
			case jRanked:
				return false
			default:
				return candidates[i] < candidates[j]
			}
		})
		withDefault[models.AttributeDefaultKey] = withDefault[candidates[0]]
		out[name] = withDefault
	}
	return out, nil
}
