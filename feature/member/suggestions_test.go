package member

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"community-hub/core/tenant"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}

	dialector := postgres.New(postgres.Config{Conn: db})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}

	return gormDB, mock
}

func emptySuggestionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"member_id", "to_merge_id", "similarity"})
}

func TestSuggestionEngineRunsAllGenerators(t *testing.T) {
	db, mock := setupMockDB(t)
	engine := NewSuggestionEngine(db, NewGraph(db), zap.NewNop(), 24*time.Hour)

	// Run iterates the generators in map order, so the expectations
	// cannot be pinned to a sequence.
	mock.MatchExpectationsInOrder(false)
	mock.ExpectQuery("FROM member_identities mi").WillReturnRows(emptySuggestionRows())
	mock.ExpectQuery("jsonb_array_elements_text").WillReturnRows(emptySuggestionRows())
	mock.ExpectQuery(`similarity\(r\.display_name`).WillReturnRows(emptySuggestionRows())

	count, err := engine.Run(context.Background(), tenant.New(uuid.New()))
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSuggestionQueryScansRows(t *testing.T) {
	db, mock := setupMockDB(t)
	engine := NewSuggestionEngine(db, NewGraph(db), zap.NewNop(), 24*time.Hour)

	a, b := uuid.New(), uuid.New()
	rows := emptySuggestionRows().AddRow(a.String(), b.String(), 0.95)
	mock.ExpectQuery("FROM member_identities mi").WillReturnRows(rows)

	found, err := engine.query(context.Background(), byUsernameQuery(false), tenant.New(uuid.New()), time.Now())
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, a, found[0].MemberID)
	assert.Equal(t, b, found[0].ToMergeID)
	assert.InDelta(t, 0.95, found[0].Similarity, 0.001)
}

func TestSymmetricEdges(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	edges := symmetricEdges([]suggestionRow{{MemberID: a, ToMergeID: b, Similarity: 0.8}})

	require.Len(t, edges, 2)
	assert.Equal(t, a, edges[0].MemberID)
	assert.Equal(t, b, edges[0].ToMergeID)
	assert.Equal(t, b, edges[1].MemberID)
	assert.Equal(t, a, edges[1].ToMergeID)
	require.NotNil(t, edges[0].Similarity)
	assert.InDelta(t, 0.8, *edges[0].Similarity, 0.001)
}

func TestGeneratorQueriesExcludeKnownPairs(t *testing.T) {
	for name, query := range map[string]string{
		"username": byUsernameQuery(false),
		"email":    byEmailQuery(false),
		"name":     bySimilarNameQuery(false),
	} {
		assert.Contains(t, query, "member_to_merges", name)
		assert.Contains(t, query, "member_no_merges", name)
	}
}

func TestGeneratorQueriesApplySegmentFilter(t *testing.T) {
	for name, query := range map[string]string{
		"username": byUsernameQuery(true),
		"email":    byEmailQuery(true),
		"name":     bySimilarNameQuery(true),
	} {
		assert.Contains(t, query, "segment_id IN @segments", name)
	}
	assert.False(t, strings.Contains(byEmailQuery(false), "@segments"))
}
