package member

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"community-hub/feature/member/models"
	settingsmodels "community-hub/feature/settings/models"
)

var testDBCounter int

// setupTestDB opens a fresh in-memory database with the full schema.
// Shared cache keeps the database alive across pooled connections.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	testDBCounter++
	dsn := fmt.Sprintf("file:membertest%d?mode=memory&cache=shared", testDBCounter)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	var all []any
	all = append(all, settingsmodels.All()...)
	all = append(all, models.All()...)
	require.NoError(t, db.AutoMigrate(all...))
	return db
}

func edge(a, b uuid.UUID) models.MemberToMerge {
	return models.MemberToMerge{MemberID: a, ToMergeID: b}
}

func TestGraphAddToMergeDedupes(t *testing.T) {
	db := setupTestDB(t)
	graph := NewGraph(db)
	a, b := uuid.New(), uuid.New()

	err := graph.AddToMerge(nil, []models.MemberToMerge{
		edge(a, b), edge(a, b), edge(a, a),
	})
	require.NoError(t, err)

	edges, err := graph.FindToMerge(nil, a)
	require.NoError(t, err)
	assert.Len(t, edges, 1)
	assert.Equal(t, b, edges[0].ToMergeID)
}

func TestGraphAddToMergeExistingEdgeIgnored(t *testing.T) {
	db := setupTestDB(t)
	graph := NewGraph(db)
	a, b := uuid.New(), uuid.New()

	require.NoError(t, graph.AddToMerge(nil, []models.MemberToMerge{edge(a, b)}))
	require.NoError(t, graph.AddToMerge(nil, []models.MemberToMerge{edge(a, b)}))

	edges, err := graph.FindToMerge(nil, a)
	require.NoError(t, err)
	assert.Len(t, edges, 1)
}

func TestGraphNoMergeRetractsSuggestion(t *testing.T) {
	db := setupTestDB(t)
	graph := NewGraph(db)
	a, b := uuid.New(), uuid.New()

	require.NoError(t, graph.AddToMerge(nil, []models.MemberToMerge{edge(a, b)}))
	require.NoError(t, graph.AddNoMerge(nil, a, b))

	edges, err := graph.FindToMerge(nil, a)
	require.NoError(t, err)
	assert.Empty(t, edges, "toMerge and noMerge must stay mutually exclusive")

	excluded, err := graph.FindNoMerge(nil, a)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b}, excluded)
}

func TestGraphFindNoMergeBothDirections(t *testing.T) {
	db := setupTestDB(t)
	graph := NewGraph(db)
	a, b := uuid.New(), uuid.New()

	require.NoError(t, graph.AddNoMerge(nil, b, a))

	excluded, err := graph.FindNoMerge(nil, a)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b}, excluded)
}

func TestGraphMoveEdges(t *testing.T) {
	db := setupTestDB(t)
	graph := NewGraph(db)
	winner, loser, other := uuid.New(), uuid.New(), uuid.New()

	// The loser has an edge to a third member and one to the winner.
	require.NoError(t, graph.AddToMerge(nil, []models.MemberToMerge{
		edge(loser, other), edge(other, loser),
		edge(loser, winner), edge(winner, loser),
	}))

	require.NoError(t, graph.MoveEdges(nil, loser, winner))

	winnerEdges, err := graph.FindToMerge(nil, winner)
	require.NoError(t, err)
	require.Len(t, winnerEdges, 1)
	assert.Equal(t, other, winnerEdges[0].ToMergeID)

	loserEdges, err := graph.FindToMerge(nil, loser)
	require.NoError(t, err)
	assert.Empty(t, loserEdges)
}

func TestGraphMoveEdgesDropsDuplicates(t *testing.T) {
	db := setupTestDB(t)
	graph := NewGraph(db)
	winner, loser, other := uuid.New(), uuid.New(), uuid.New()

	// Both winner and loser already point at the same third member.
	require.NoError(t, graph.AddToMerge(nil, []models.MemberToMerge{
		edge(winner, other), edge(loser, other),
	}))

	require.NoError(t, graph.MoveEdges(nil, loser, winner))

	winnerEdges, err := graph.FindToMerge(nil, winner)
	require.NoError(t, err)
	assert.Len(t, winnerEdges, 1)
}

func TestGraphPruneEdges(t *testing.T) {
	db := setupTestDB(t)
	graph := NewGraph(db)
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	require.NoError(t, graph.AddToMerge(nil, []models.MemberToMerge{
		edge(a, b), edge(b, a), edge(b, c),
	}))
	require.NoError(t, graph.AddNoMerge(nil, c, a))

	require.NoError(t, graph.PruneEdges(nil, []uuid.UUID{a}))

	for _, id := range []uuid.UUID{a} {
		edges, err := graph.FindToMerge(nil, id)
		require.NoError(t, err)
		assert.Empty(t, edges)
		excluded, err := graph.FindNoMerge(nil, id)
		require.NoError(t, err)
		assert.Empty(t, excluded)
	}

	remaining, err := graph.FindToMerge(nil, b)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
	assert.Equal(t, c, remaining[0].ToMergeID)
}
