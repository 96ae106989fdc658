package member

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"community-hub/feature/member/models"
)

func TestEarliestJoinedAtPicksOlderValidDate(t *testing.T) {
	older := time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, older, earliestJoinedAt(newer, older))
	assert.Equal(t, older, earliestJoinedAt(older, newer))
}

func TestEarliestJoinedAtIgnoresNearEpochDates(t *testing.T) {
	unknown := time.Unix(0, 0).UTC().Add(24 * time.Hour)
	valid := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, valid, earliestJoinedAt(unknown, valid))
	assert.Equal(t, valid, earliestJoinedAt(valid, unknown))
}

func TestEarliestJoinedAtBothUnknownKeepsOriginal(t *testing.T) {
	a := time.Unix(0, 0).UTC()
	b := time.Unix(0, 0).UTC().Add(time.Hour)

	assert.Equal(t, a, earliestJoinedAt(a, b))
}

func TestNewIdentitiesKeepsOnlyUnknown(t *testing.T) {
	original := IdentityMap{
		"github": {{Username: "anil"}},
	}
	incoming := IdentityMap{
		"github":  {{Username: "anil"}, {Username: "anil_dev"}},
		"discord": {{Username: "anil"}},
	}

	out := NewIdentities(original, incoming)

	assert.Equal(t, IdentityMap{
		"github":  {{Username: "anil_dev"}},
		"discord": {{Username: "anil"}},
	}, out)
}

func TestNewIdentitiesNothingNew(t *testing.T) {
	original := IdentityMap{"github": {{Username: "anil"}}}

	out := NewIdentities(original, IdentityMap{"github": {{Username: "anil"}}})

	assert.Empty(t, out)
}

func TestMergeFieldsDisplayNameKeepsOriginal(t *testing.T) {
	original := &models.Member{DisplayName: "Anil", Score: 1}
	incoming := &models.Member{DisplayName: "anil92", Score: 1}

	out := mergeFields(mergeFieldMap(original), mergeFieldMap(incoming))

	_, changed := out["displayName"]
	assert.False(t, changed)
}

func TestMergeFieldsScoreTakesMax(t *testing.T) {
	original := &models.Member{Score: 3}
	incoming := &models.Member{Score: 8}

	out := mergeFields(mergeFieldMap(original), mergeFieldMap(incoming))

	assert.Equal(t, 8, out["score"])
}

func TestMergeFieldsEmailsUnion(t *testing.T) {
	original := &models.Member{Emails: models.StringList{"a@x.com"}}
	incoming := &models.Member{Emails: models.StringList{"a@x.com", "b@x.com"}}

	out := mergeFields(mergeFieldMap(original), mergeFieldMap(incoming))

	assert.Equal(t, models.StringList{"a@x.com", "b@x.com"}, out["emails"])
}

func TestMergeFieldsReachRecomputed(t *testing.T) {
	original := &models.Member{Reach: models.ReachMap{"github": 10, "total": 10}}
	incoming := &models.Member{Reach: models.ReachMap{"twitter": 5, "total": 5}}

	out := mergeFields(mergeFieldMap(original), mergeFieldMap(incoming))

	assert.Equal(t, models.ReachMap{"github": 10, "twitter": 5, "total": 15}, out["reach"])
}

func TestMergeFieldsAttributesDeepMerged(t *testing.T) {
	original := &models.Member{Attributes: models.AttributeMap{
		"location": {"github": "Berlin", "default": "Berlin"},
	}}
	incoming := &models.Member{Attributes: models.AttributeMap{
		"location": {"discord": "Hamburg"},
		"bio":      {"github": "dev"},
	}}

	out := mergeFields(mergeFieldMap(original), mergeFieldMap(incoming))

	merged, ok := out["attributes"].(map[string]any)
	assert.True(t, ok)
	location := merged["location"].(map[string]any)
	assert.Equal(t, "Berlin", location["github"])
	assert.Equal(t, "Hamburg", location["discord"])
	assert.Equal(t, "Berlin", location["default"])
	assert.Contains(t, merged, "bio")
}

func TestMemberColumnUpdatesMapsFieldNames(t *testing.T) {
	columns := memberColumnUpdates(map[string]any{
		"displayName": "Anil",
		"emails":      models.StringList{"a@x.com"},
		"score":       5,
		"reach":       models.ReachMap{"total": 5},
	})

	assert.Equal(t, "Anil", columns["display_name"])
	assert.Equal(t, models.StringList{"a@x.com"}, columns["emails"])
	assert.Equal(t, 5, columns["score"])
	assert.Equal(t, models.ReachMap{"total": 5}, columns["reach"])
}
