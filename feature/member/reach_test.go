package member

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"community-hub/feature/member/models"
)

func TestCalculateReachCombinesAndTotals(t *testing.T) {
	out := CalculateReach(
		models.ReachMap{"github": 10, "total": 10},
		models.ReachMap{"twitter": 180},
	)

	assert.Equal(t, models.ReachMap{"github": 10, "twitter": 180, "total": 190}, out)
}

func TestCalculateReachNewValueWinsPerPlatform(t *testing.T) {
	out := CalculateReach(
		models.ReachMap{"github": 10, "total": 10},
		models.ReachMap{"github": 25},
	)

	assert.Equal(t, models.ReachMap{"github": 25, "total": 25}, out)
}

func TestCalculateReachEmptyGivesSentinel(t *testing.T) {
	out := CalculateReach(nil, nil)

	assert.Equal(t, models.ReachMap{"total": models.ReachNotComputed}, out)
}

func TestCalculateReachSentinelReplacedByExplicitZero(t *testing.T) {
	// A member whose reach was never computed gains a platform with an
	// explicit zero: zero is a value, not an absence.
	out := CalculateReach(
		models.ReachMap{"total": models.ReachNotComputed},
		models.ReachMap{"github": 0},
	)

	assert.Equal(t, models.ReachMap{"github": 0, "total": 0}, out)
}

func TestCalculateReachStaleTotalIgnored(t *testing.T) {
	out := CalculateReach(
		models.ReachMap{"github": 5, "total": 9000},
		models.ReachMap{"total": 1234},
	)

	assert.Equal(t, models.ReachMap{"github": 5, "total": 5}, out)
}
