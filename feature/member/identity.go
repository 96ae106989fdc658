package member

import (
	"fmt"
	"sort"

	"community-hub/core/apperr"
	"community-hub/feature/member/models"

	"github.com/google/uuid"
)

// IdentityMap is the canonical per-platform identity list produced by
// NormalizeUsername. Order within a platform is insertion order.
type IdentityMap map[string][]models.Identity

// Platforms returns the platform keys in sorted order.
func (m IdentityMap) Platforms() []string {
	out := make([]string, 0, len(m))
	for platform := range m {
		out = append(out, platform)
	}
	sort.Strings(out)
	return out
}

// Has reports whether the map contains the (platform, username) pair.
func (m IdentityMap) Has(platform, username string) bool {
	for _, identity := range m[platform] {
		if identity.Username == username {
			return true
		}
	}
	return false
}

// NormalizeUsername turns the dynamic "username" input shape into the
// canonical per-platform identity map. Accepted inputs:
//
//   - a plain string, wrapped under platformHint
//   - an IdentityMap, returned as-is (idempotent)
//   - a map keyed by platform where each value is a string, a single
//     identity (models.Identity or {username, integrationId} map), or
//     a list of either
//
// When platformHint is non-empty the result must contain it as a key,
// otherwise the input and the claimed platform don't correlate and a
// ValidationError is returned. A plain-string input without a hint is
// also a ValidationError: there is no platform to attach it to.
func NormalizeUsername(input any, platformHint string) (IdentityMap, error) {
	out := IdentityMap{}

	switch value := input.(type) {
	case nil:
		return nil, apperr.NewValidation("username is required")

	case string:
		if platformHint == "" {
			return nil, apperr.NewValidation("platform is required when username is a plain string")
		}
		if value == "" {
			return nil, apperr.NewValidation("username is required")
		}
		out[platformHint] = []models.Identity{{Username: value}}

	case IdentityMap:
		out = value

	case map[string][]models.Identity:
		out = value

	case map[string]any:
		for platform, raw := range value {
			identities, err := normalizePlatformValue(raw)
			if err != nil {
				return nil, apperr.NewValidation("invalid username input for platform %s: %v", platform, err)
			}
			out[platform] = identities
		}

	default:
		return nil, apperr.NewValidation("unsupported username input type %T", input)
	}

	// A platform key with no identities would reach the tuple-IN lookup
	// with an empty pair list and fail in the driver, so it is rejected
	// here regardless of which input shape produced it.
	for platform, identities := range out {
		if len(identities) == 0 {
			return nil, apperr.NewValidation("no identities provided for platform %s", platform)
		}
	}

	if platformHint != "" {
		if _, ok := out[platformHint]; !ok {
			return nil, apperr.NewValidation("platform and username mismatch")
		}
	}

	return out, nil
}

// normalizePlatformValue normalizes one platform's value to an identity
// list.
func normalizePlatformValue(raw any) ([]models.Identity, error) {
	switch value := raw.(type) {
	case string:
		return []models.Identity{{Username: value}}, nil
	case models.Identity:
		return []models.Identity{value}, nil
	case []models.Identity:
		return value, nil
	case map[string]any:
		identity, err := identityFromMap(value)
		if err != nil {
			return nil, err
		}
		return []models.Identity{identity}, nil
	case []any:
		out := make([]models.Identity, 0, len(value))
		for _, element := range value {
			identities, err := normalizePlatformValue(element)
			if err != nil {
				return nil, err
			}
			out = append(out, identities...)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", raw)
	}
}

func identityFromMap(value map[string]any) (models.Identity, error) {
	username, ok := value["username"].(string)
	if !ok || username == "" {
		return models.Identity{}, fmt.Errorf("identity object without username")
	}
	identity := models.Identity{Username: username}
	if raw, ok := value["integrationId"]; ok && raw != nil {
		switch id := raw.(type) {
		case string:
			parsed, err := uuid.Parse(id)
			if err != nil {
				return models.Identity{}, fmt.Errorf("invalid integrationId: %w", err)
			}
			identity.IntegrationID = &parsed
		case uuid.UUID:
			identity.IntegrationID = &id
		default:
			return models.Identity{}, fmt.Errorf("invalid integrationId type %T", raw)
		}
	}
	return identity, nil
}
