package member

import "community-hub/feature/member/models"

// CalculateReach combines two per-platform reach maps into one with a
// recomputed total. The new map's value wins per platform; platforms
// only present in the old map are kept. An explicit 0 is a valid reach
// value and is preserved. When no platform value remains the sentinel
// {total: -1} is returned.
func CalculateReach(oldReach, newReach models.ReachMap) models.ReachMap {
	out := models.ReachMap{}

	// Totals are recomputed, never merged field by field.
	for platform, value := range oldReach {
		if platform == models.ReachTotalKey {
			continue
		}
		out[platform] = value
	}
	for platform, value := range newReach {
		if platform == models.ReachTotalKey {
			continue
		}
		out[platform] = value
	}

	if len(out) == 0 {
		return models.ReachMap{models.ReachTotalKey: models.ReachNotComputed}
	}

	var total int64
	for _, value := range out {
		total += value
	}
	out[models.ReachTotalKey] = total

	return out
}
