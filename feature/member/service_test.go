package member

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"community-hub/core/apperr"
	"community-hub/core/events"
	"community-hub/core/tenant"
	"community-hub/feature/member/models"
	"community-hub/feature/settings"
	settingsmodels "community-hub/feature/settings/models"
)

func setupService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	graph := NewGraph(db)
	settingsSvc := settings.NewService(db, nil, zap.NewNop())
	svc := NewService(db, graph, settingsSvc, events.NopEmitter{}, nil, zap.NewNop())
	return svc, db
}

func TestUpsertCreatesMember(t *testing.T) {
	svc, _ := setupService(t)
	scope := tenant.New(uuid.New())
	ctx := context.Background()

	member, err := svc.Upsert(ctx, scope, UpsertInput{
		DisplayName: "Anil",
		Platform:    "github",
		Username:    "anil",
		Emails:      models.StringList{"anil@example.com"},
		Reach:       models.ReachMap{"github": 10},
	})
	require.NoError(t, err)

	assert.Equal(t, "Anil", member.DisplayName)
	assert.Equal(t, scope.ID, member.TenantID)
	require.Len(t, member.Identities, 1)
	assert.Equal(t, "github", member.Identities[0].Platform)
	assert.Equal(t, "anil", member.Identities[0].Username)
	assert.Equal(t, int64(10), member.Reach["total"])
	assert.Equal(t, -1, member.Score)
}

func TestUpsertDisplayNameDefaultsToUsername(t *testing.T) {
	svc, _ := setupService(t)
	scope := tenant.New(uuid.New())

	member, err := svc.Upsert(context.Background(), scope, UpsertInput{
		Platform: "github",
		Username: "anil",
	})
	require.NoError(t, err)

	assert.Equal(t, "anil", member.DisplayName)
}

func TestUpsertFoldsIntoIdentityOwner(t *testing.T) {
	svc, _ := setupService(t)
	scope := tenant.New(uuid.New())
	ctx := context.Background()

	first, err := svc.Upsert(ctx, scope, UpsertInput{
		DisplayName: "Anil",
		Platform:    "github",
		Username:    "anil",
		Emails:      models.StringList{"anil@example.com"},
		Reach:       models.ReachMap{"github": 10},
	})
	require.NoError(t, err)

	// Same github identity plus a new discord one: no second member.
	second, err := svc.Upsert(ctx, scope, UpsertInput{
		DisplayName: "anil92",
		Username: map[string]any{
			"github":  "anil",
			"discord": "anil92",
		},
		Emails: models.StringList{"anil@work.com"},
		Reach:  models.ReachMap{"discord": 5},
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Anil", second.DisplayName, "display name is never overwritten")
	assert.Len(t, second.Identities, 2)
	assert.ElementsMatch(t, models.StringList{"anil@example.com", "anil@work.com"}, second.Emails)
	assert.Equal(t, int64(15), second.Reach["total"])
}

func TestUpsertWithoutIdentityFails(t *testing.T) {
	svc, _ := setupService(t)
	scope := tenant.New(uuid.New())

	_, err := svc.Upsert(context.Background(), scope, UpsertInput{DisplayName: "Anil"})

	assert.True(t, apperr.IsValidation(err))
}

func TestUpsertIsTenantScoped(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	a, err := svc.Upsert(ctx, tenant.New(uuid.New()), UpsertInput{Platform: "github", Username: "anil"})
	require.NoError(t, err)
	b, err := svc.Upsert(ctx, tenant.New(uuid.New()), UpsertInput{Platform: "github", Username: "anil"})
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID, "same identity in two tenants must stay two members")
}

func TestUpdateOverwritesFields(t *testing.T) {
	svc, _ := setupService(t)
	scope := tenant.New(uuid.New())
	ctx := context.Background()

	member, err := svc.Upsert(ctx, scope, UpsertInput{
		DisplayName: "Anil",
		Platform:    "github",
		Username:    "anil",
		Reach:       models.ReachMap{"github": 10},
	})
	require.NoError(t, err)

	score := 7
	updated, err := svc.Update(ctx, scope, member.ID, UpdateInput{
		DisplayName: "Anil K.",
		Score:       &score,
		Reach:       models.ReachMap{"twitter": 100},
	})
	require.NoError(t, err)

	assert.Equal(t, "Anil K.", updated.DisplayName)
	assert.Equal(t, 7, updated.Score)
	// Reach is combined, not replaced.
	assert.Equal(t, int64(110), updated.Reach["total"])
}

func TestUpdateIdentityConflict(t *testing.T) {
	svc, _ := setupService(t)
	scope := tenant.New(uuid.New())
	ctx := context.Background()

	_, err := svc.Upsert(ctx, scope, UpsertInput{Platform: "github", Username: "anil"})
	require.NoError(t, err)
	other, err := svc.Upsert(ctx, scope, UpsertInput{Platform: "discord", Username: "someone"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, scope, other.ID, UpdateInput{
		Platform: "github",
		Username: "anil",
	})

	assert.True(t, apperr.IsConflict(err), "claiming another member's identity must conflict")
}

func TestUpdateUnknownMember(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Update(context.Background(), tenant.New(uuid.New()), uuid.New(), UpdateInput{})

	assert.True(t, apperr.IsNotFound(err))
}

func TestMergeCombinesMembers(t *testing.T) {
	svc, db := setupService(t)
	scope := tenant.New(uuid.New())
	ctx := context.Background()

	original, err := svc.Upsert(ctx, scope, UpsertInput{
		DisplayName: "Anil",
		Platform:    "github",
		Username:    "anil",
		Emails:      models.StringList{"anil@example.com"},
		Reach:       models.ReachMap{"github": 10},
		JoinedAt:    time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	duplicate, err := svc.Upsert(ctx, scope, UpsertInput{
		DisplayName: "anil92",
		Platform:    "discord",
		Username:    "anil",
		Emails:      models.StringList{"anil@work.com"},
		Reach:       models.ReachMap{"discord": 5},
		JoinedAt:    time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	third, err := svc.Upsert(ctx, scope, UpsertInput{Platform: "slack", Username: "anil3"})
	require.NoError(t, err)

	// An activity owned by the duplicate and a suggestion towards a
	// third member, both expected to follow the merge.
	activity := models.Activity{TenantID: scope.ID, MemberID: duplicate.ID, Platform: "discord"}
	require.NoError(t, db.Create(&activity).Error)
	require.NoError(t, svc.SuggestMerge(ctx, scope, duplicate.ID, third.ID, nil))

	result, err := svc.Merge(ctx, scope, original.ID, duplicate.ID)
	require.NoError(t, err)
	assert.Equal(t, MergeStatusMerged, result.Status)
	assert.Equal(t, original.ID, result.MemberID)

	merged, err := svc.FindByID(ctx, scope, original.ID)
	require.NoError(t, err)

	assert.Len(t, merged.Identities, 2, "identity ownership transfers to the survivor")
	assert.ElementsMatch(t, models.StringList{"anil@example.com", "anil@work.com"}, merged.Emails)
	assert.Equal(t, "Anil", merged.DisplayName)
	assert.Equal(t, int64(15), merged.Reach["total"])
	assert.Equal(t, time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC), merged.JoinedAt.UTC(),
		"earliest valid joinedAt wins")

	// The loser is gone.
	_, err = svc.FindByID(ctx, scope, duplicate.ID)
	assert.True(t, apperr.IsNotFound(err))

	// Its activity now belongs to the survivor.
	var moved models.Activity
	require.NoError(t, db.Take(&moved, "id = ?", activity.ID).Error)
	assert.Equal(t, original.ID, moved.MemberID)

	// Its suggestion edge was rewired to the survivor.
	edges, err := svc.FindMergeSuggestions(ctx, scope, original.ID)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, third.ID, edges[0].ToMergeID)
}

func TestMergeRecomputesAttributeDefaults(t *testing.T) {
	svc, db := setupService(t)
	scope := tenant.New(uuid.New())
	ctx := context.Background()

	settingsSvc := settings.NewService(db, nil, zap.NewNop())
	require.NoError(t, settingsSvc.SetPlatformPriorities(ctx, scope.ID,
		settingsmodels.Priorities{"github", "discord"}))

	original := models.Member{
		TenantID:    scope.ID,
		DisplayName: "Anil",
		JoinedAt:    time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		Attributes: models.AttributeMap{
			"bio": {"github": "from-github", "default": "from-github"},
		},
	}
	require.NoError(t, db.Create(&original).Error)

	duplicate := models.Member{
		TenantID:    scope.ID,
		DisplayName: "anil92",
		JoinedAt:    time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC),
		Attributes: models.AttributeMap{
			"bio": {"discord": "from-discord", "default": "from-discord"},
		},
	}
	require.NoError(t, db.Create(&duplicate).Error)

	_, err := svc.Merge(ctx, scope, original.ID, duplicate.ID)
	require.NoError(t, err)

	merged, err := svc.FindByID(ctx, scope, original.ID)
	require.NoError(t, err)

	bio := merged.Attributes["bio"]
	assert.Equal(t, "from-github", bio["default"],
		"default follows the platform priority ranking, not merge order")
	assert.Equal(t, "from-github", bio["github"])
	assert.Equal(t, "from-discord", bio["discord"])
}

func TestUpsertFoldRecomputesAttributeDefaults(t *testing.T) {
	svc, db := setupService(t)
	scope := tenant.New(uuid.New())
	ctx := context.Background()

	settingsSvc := settings.NewService(db, nil, zap.NewNop())
	require.NoError(t, settingsSvc.SetPlatformPriorities(ctx, scope.ID,
		settingsmodels.Priorities{"github", "discord"}))
	require.NoError(t, settingsSvc.EnsureAttributes(ctx, scope.ID, []settingsmodels.AttributeSetting{
		{Name: "bio", Label: "Bio", Type: settingsmodels.AttributeTypeString, Show: true, CanDelete: true},
	}))

	_, err := svc.Upsert(ctx, scope, UpsertInput{
		Platform:   "github",
		Username:   "anil",
		Attributes: models.AttributeMap{"bio": {"github": "from-github"}},
	})
	require.NoError(t, err)

	// The discord document folds into the same member; its default must
	// not displace the github one.
	folded, err := svc.Upsert(ctx, scope, UpsertInput{
		Username:   map[string]any{"github": "anil", "discord": "anil92"},
		Attributes: models.AttributeMap{"bio": {"discord": "from-discord"}},
	})
	require.NoError(t, err)

	bio := folded.Attributes["bio"]
	assert.Equal(t, "from-github", bio["default"])
	assert.Equal(t, "from-discord", bio["discord"])
}

func TestMergeSameMemberIsNoop(t *testing.T) {
	svc, _ := setupService(t)
	scope := tenant.New(uuid.New())
	ctx := context.Background()

	member, err := svc.Upsert(ctx, scope, UpsertInput{Platform: "github", Username: "anil"})
	require.NoError(t, err)

	result, err := svc.Merge(ctx, scope, member.ID, member.ID)
	require.NoError(t, err)

	assert.Equal(t, MergeStatusSameEntity, result.Status)
	_, err = svc.FindByID(ctx, scope, member.ID)
	assert.NoError(t, err)
}

func TestMergeUnknownMember(t *testing.T) {
	svc, _ := setupService(t)
	scope := tenant.New(uuid.New())
	ctx := context.Background()

	member, err := svc.Upsert(ctx, scope, UpsertInput{Platform: "github", Username: "anil"})
	require.NoError(t, err)

	_, err = svc.Merge(ctx, scope, member.ID, uuid.New())
	assert.True(t, apperr.IsNotFound(err))
}

func TestMergeRollsBackOnFailure(t *testing.T) {
	svc, db := setupService(t)
	scope := tenant.New(uuid.New())
	ctx := context.Background()

	original, err := svc.Upsert(ctx, scope, UpsertInput{Platform: "github", Username: "anil"})
	require.NoError(t, err)
	duplicate, err := svc.Upsert(ctx, scope, UpsertInput{Platform: "discord", Username: "anil"})
	require.NoError(t, err)

	// Sabotage the child reassignment step mid-transaction.
	require.NoError(t, db.Migrator().DropTable(&models.Activity{}))

	_, err = svc.Merge(ctx, scope, original.ID, duplicate.ID)
	require.Error(t, err)

	// Nothing of the partial merge may stick.
	left, err := svc.FindByID(ctx, scope, original.ID)
	require.NoError(t, err)
	assert.Len(t, left.Identities, 1)

	right, err := svc.FindByID(ctx, scope, duplicate.ID)
	require.NoError(t, err)
	assert.Len(t, right.Identities, 1)
}

func TestSuggestMergeSymmetricAndExcluded(t *testing.T) {
	svc, _ := setupService(t)
	scope := tenant.New(uuid.New())
	ctx := context.Background()

	a, err := svc.Upsert(ctx, scope, UpsertInput{Platform: "github", Username: "a"})
	require.NoError(t, err)
	b, err := svc.Upsert(ctx, scope, UpsertInput{Platform: "github", Username: "b"})
	require.NoError(t, err)

	require.NoError(t, svc.SuggestMerge(ctx, scope, a.ID, b.ID, nil))

	forward, err := svc.FindMergeSuggestions(ctx, scope, a.ID)
	require.NoError(t, err)
	backward, err := svc.FindMergeSuggestions(ctx, scope, b.ID)
	require.NoError(t, err)
	assert.Len(t, forward, 1)
	assert.Len(t, backward, 1)

	// After a no-merge, re-suggesting is silently skipped.
	require.NoError(t, svc.MarkNoMerge(ctx, scope, a.ID, b.ID))
	require.NoError(t, svc.SuggestMerge(ctx, scope, a.ID, b.ID, nil))

	forward, err = svc.FindMergeSuggestions(ctx, scope, a.ID)
	require.NoError(t, err)
	assert.Empty(t, forward)
}

func TestDismissSuggestionRemovesBothDirections(t *testing.T) {
	svc, _ := setupService(t)
	scope := tenant.New(uuid.New())
	ctx := context.Background()

	a, err := svc.Upsert(ctx, scope, UpsertInput{Platform: "github", Username: "a"})
	require.NoError(t, err)
	b, err := svc.Upsert(ctx, scope, UpsertInput{Platform: "github", Username: "b"})
	require.NoError(t, err)

	require.NoError(t, svc.SuggestMerge(ctx, scope, a.ID, b.ID, nil))
	require.NoError(t, svc.DismissSuggestion(ctx, scope, a.ID, b.ID))

	forward, err := svc.FindMergeSuggestions(ctx, scope, a.ID)
	require.NoError(t, err)
	backward, err := svc.FindMergeSuggestions(ctx, scope, b.ID)
	require.NoError(t, err)
	assert.Empty(t, forward)
	assert.Empty(t, backward)

	// A dismissal is not an exclusion: the pair may be suggested again.
	require.NoError(t, svc.SuggestMerge(ctx, scope, a.ID, b.ID, nil))
	forward, err = svc.FindMergeSuggestions(ctx, scope, a.ID)
	require.NoError(t, err)
	assert.Len(t, forward, 1)
}

func TestDismissSuggestionUnknownMember(t *testing.T) {
	svc, _ := setupService(t)
	scope := tenant.New(uuid.New())

	err := svc.DismissSuggestion(context.Background(), scope, uuid.New(), uuid.New())

	assert.True(t, apperr.IsNotFound(err))
}

func TestMarkNoMergeSelfFails(t *testing.T) {
	svc, _ := setupService(t)
	id := uuid.New()

	err := svc.MarkNoMerge(context.Background(), tenant.New(uuid.New()), id, id)

	assert.True(t, apperr.IsValidation(err))
}

func TestDestroyBulk(t *testing.T) {
	svc, db := setupService(t)
	scope := tenant.New(uuid.New())
	ctx := context.Background()

	a, err := svc.Upsert(ctx, scope, UpsertInput{Platform: "github", Username: "a"})
	require.NoError(t, err)
	b, err := svc.Upsert(ctx, scope, UpsertInput{Platform: "github", Username: "b"})
	require.NoError(t, err)
	keeper, err := svc.Upsert(ctx, scope, UpsertInput{Platform: "github", Username: "keeper"})
	require.NoError(t, err)
	require.NoError(t, svc.SuggestMerge(ctx, scope, a.ID, keeper.ID, nil))

	require.NoError(t, svc.DestroyBulk(ctx, scope, []uuid.UUID{a.ID, b.ID}))

	_, err = svc.FindByID(ctx, scope, a.ID)
	assert.True(t, apperr.IsNotFound(err))
	_, err = svc.FindByID(ctx, scope, b.ID)
	assert.True(t, apperr.IsNotFound(err))

	// No orphaned identities or edges.
	var identityCount int64
	require.NoError(t, db.Model(&models.MemberIdentity{}).
		Where("member_id IN ?", []uuid.UUID{a.ID, b.ID}).
		Count(&identityCount).Error)
	assert.Zero(t, identityCount)

	edges, err := svc.FindMergeSuggestions(ctx, scope, keeper.ID)
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestDestroyBulkUnknownID(t *testing.T) {
	svc, _ := setupService(t)
	scope := tenant.New(uuid.New())

	err := svc.DestroyBulk(context.Background(), scope, []uuid.UUID{uuid.New()})

	assert.True(t, apperr.IsValidation(err))
}
