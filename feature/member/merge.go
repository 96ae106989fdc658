package member

import (
	"time"

	"community-hub/core/mergekit"
	"community-hub/feature/member/models"
)

// Dates within this window after the epoch come from activities without
// a real timestamp and are treated as unknown when picking the earliest
// joinedAt.
const joinedAtValidityWindow = 5 * 24 * time.Hour

// earliestJoinedAt keeps the earlier of two valid dates. An unknown
// (pre-window) date always loses to a valid one; two unknown dates keep
// the original.
func earliestJoinedAt(oldDate, newDate time.Time) time.Time {
	floor := time.Unix(0, 0).UTC().Add(joinedAtValidityWindow)
	oldValid := oldDate.After(floor)
	newValid := newDate.After(floor)

	switch {
	case oldValid && newValid:
		if newDate.Before(oldDate) {
			return newDate
		}
		return oldDate
	case oldValid:
		return oldDate
	case newValid:
		return newDate
	default:
		return oldDate
	}
}

// NewIdentities returns the identities of incoming that original does
// not already own: whole platforms absent from original, plus
// individual (platform, username) pairs new for a shared platform.
// Nothing from original is ever dropped, nothing is duplicated.
func NewIdentities(original, incoming IdentityMap) IdentityMap {
	toKeep := IdentityMap{}
	for platform, identities := range incoming {
		existing, ok := original[platform]
		if !ok {
			toKeep[platform] = identities
			continue
		}
		var fresh []models.Identity
		for _, identity := range identities {
			known := false
			for _, owned := range existing {
				if owned.Username == identity.Username {
					known = true
					break
				}
			}
			if !known {
				fresh = append(fresh, identity)
			}
		}
		if len(fresh) > 0 {
			toKeep[platform] = fresh
		}
	}
	return toKeep
}

// mergePolicies is the per-field conflict strategy used when two
// members are merged. Fields without a policy fall back to the
// reconciler's default deep merge.
func mergePolicies() map[string]mergekit.Policy {
	return map[string]mergekit.Policy{
		"joinedAt": func(oldValue, newValue any) any {
			oldDate, okOld := oldValue.(time.Time)
			newDate, okNew := newValue.(time.Time)
			if !okOld {
				return newValue
			}
			if !okNew {
				return oldValue
			}
			return earliestJoinedAt(oldDate, newDate)
		},
		// displayName is chosen at first creation and never overwritten
		"displayName": func(oldValue, _ any) any {
			return oldValue
		},
		"reach": func(oldValue, newValue any) any {
			return CalculateReach(toReachMap(oldValue), toReachMap(newValue))
		},
		"score": func(oldValue, newValue any) any {
			oldScore, okOld := oldValue.(int)
			newScore, okNew := newValue.(int)
			if !okOld {
				return newValue
			}
			if !okNew {
				return oldValue
			}
			if newScore > oldScore {
				return newScore
			}
			return oldScore
		},
		"emails": func(oldValue, newValue any) any {
			union := append(models.StringList{}, toStringList(oldValue)...)
			for _, email := range toStringList(newValue) {
				if !union.Contains(email) {
					union = append(union, email)
				}
			}
			return union
		},
	}
}

// mergeFields reconciles two field maps under the member policies and
// returns only what changed on the original side.
func mergeFields(original, incoming map[string]any) map[string]any {
	return mergekit.Merge(original, incoming, mergePolicies())
}

// mergeFieldMap projects the mergeable scalar and document fields of a
// member. Identities and child collections are handled separately by
// the orchestrator.
func mergeFieldMap(m *models.Member) map[string]any {
	return map[string]any{
		"displayName": m.DisplayName,
		"emails":      m.Emails,
		"score":       m.Score,
		"joinedAt":    m.JoinedAt,
		"reach":       m.Reach,
		"attributes":  attributesToAny(m.Attributes),
	}
}

// memberColumnUpdates converts the reconciled field map back into gorm
// column updates.
func memberColumnUpdates(updates map[string]any) map[string]any {
	columns := map[string]any{}
	for field, value := range updates {
		switch field {
		case "displayName":
			columns["display_name"] = value
		case "emails":
			columns["emails"] = toStringList(value)
		case "score":
			columns["score"] = value
		case "joinedAt":
			columns["joined_at"] = value
		case "reach":
			columns["reach"] = toReachMap(value)
		case "attributes":
			columns["attributes"] = attributesFromAny(value)
		}
	}
	return columns
}

func toReachMap(value any) models.ReachMap {
	switch reach := value.(type) {
	case models.ReachMap:
		return reach
	case map[string]int64:
		return models.ReachMap(reach)
	default:
		return models.ReachMap{}
	}
}

func toStringList(value any) models.StringList {
	switch list := value.(type) {
	case models.StringList:
		return list
	case []string:
		return models.StringList(list)
	case []any:
		out := make(models.StringList, 0, len(list))
		for _, element := range list {
			if s, ok := element.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// attributesToAny widens an AttributeMap so the reconciler's recursive
// map merge applies to it.
func attributesToAny(attributes models.AttributeMap) map[string]any {
	out := make(map[string]any, len(attributes))
	for name, platforms := range attributes {
		inner := make(map[string]any, len(platforms))
		for platform, value := range platforms {
			inner[platform] = value
		}
		out[name] = inner
	}
	return out
}

func attributesFromAny(value any) models.AttributeMap {
	raw, ok := value.(map[string]any)
	if !ok {
		if typed, ok := value.(models.AttributeMap); ok {
			return typed
		}
		return models.AttributeMap{}
	}
	out := models.AttributeMap{}
	for name, platforms := range raw {
		inner, ok := platforms.(map[string]any)
		if !ok {
			continue
		}
		out[name] = inner
	}
	return out
}
