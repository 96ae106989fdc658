package organization

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"community-hub/core/apperr"
	"community-hub/core/events"
	"community-hub/core/tenant"
	membermodels "community-hub/feature/member/models"
	"community-hub/feature/organization/models"
)

var testDBCounter int

func setupService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	testDBCounter++
	dsn := fmt.Sprintf("file:orgtest%d?mode=memory&cache=shared", testDBCounter)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	var all []any
	all = append(all, membermodels.All()...)
	all = append(all, models.All()...)
	require.NoError(t, db.AutoMigrate(all...))

	svc := NewService(db, NewGraph(db), events.NopEmitter{}, nil, zap.NewNop())
	return svc, db
}

func TestOrganizationUpsertCreates(t *testing.T) {
	svc, _ := setupService(t)
	scope := tenant.New(uuid.New())

	org, err := svc.Upsert(context.Background(), scope, UpsertInput{
		Platform: "github",
		Name:     "acme",
		Website:  "https://acme.dev",
	})
	require.NoError(t, err)

	assert.Equal(t, "acme", org.DisplayName)
	assert.Equal(t, "https://acme.dev", org.Website)
	require.Len(t, org.Identities, 1)
	assert.Equal(t, "github", org.Identities[0].Platform)
}

func TestOrganizationUpsertEnrichesOwner(t *testing.T) {
	svc, _ := setupService(t)
	scope := tenant.New(uuid.New())
	ctx := context.Background()

	first, err := svc.Upsert(ctx, scope, UpsertInput{
		DisplayName: "ACME Inc",
		Platform:    "github",
		Name:        "acme",
	})
	require.NoError(t, err)

	second, err := svc.Upsert(ctx, scope, UpsertInput{
		DisplayName: "acme-bot",
		Platform:    "github",
		Name:        "acme",
		Description: "tooling company",
		Emails:      membermodels.StringList{"hello@acme.dev"},
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "ACME Inc", second.DisplayName, "display name is never overwritten")
	assert.Equal(t, "tooling company", second.Description)
	assert.Equal(t, membermodels.StringList{"hello@acme.dev"}, second.Emails)
}

func TestOrganizationUpsertRequiresIdentity(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Upsert(context.Background(), tenant.New(uuid.New()), UpsertInput{
		DisplayName: "ACME",
	})

	assert.True(t, apperr.IsValidation(err))
}

func TestOrganizationMerge(t *testing.T) {
	svc, db := setupService(t)
	scope := tenant.New(uuid.New())
	ctx := context.Background()

	original, err := svc.Upsert(ctx, scope, UpsertInput{
		DisplayName: "ACME Inc",
		Platform:    "github",
		Name:        "acme",
		Emails:      membermodels.StringList{"hello@acme.dev"},
	})
	require.NoError(t, err)

	duplicate, err := svc.Upsert(ctx, scope, UpsertInput{
		DisplayName: "acme gmbh",
		Platform:    "linkedin",
		Name:        "acme",
		Description: "tooling company",
		Logo:        "https://acme.dev/logo.png",
		Emails:      membermodels.StringList{"hello@acme.dev", "sales@acme.dev"},
	})
	require.NoError(t, err)

	// A member link and an activity attributed to the duplicate.
	memberID := uuid.New()
	require.NoError(t, db.Create(&membermodels.Member{
		ID: memberID, TenantID: scope.ID, DisplayName: "Anil",
	}).Error)
	require.NoError(t, db.Create(&membermodels.MemberOrganization{
		MemberID: memberID, OrganizationID: duplicate.ID,
	}).Error)
	activity := membermodels.Activity{
		TenantID: scope.ID, MemberID: memberID, OrganizationID: &duplicate.ID,
	}
	require.NoError(t, db.Create(&activity).Error)

	result, err := svc.Merge(ctx, scope, original.ID, duplicate.ID)
	require.NoError(t, err)
	assert.Equal(t, MergeStatusMerged, result.Status)

	merged, err := svc.FindByID(ctx, scope, original.ID)
	require.NoError(t, err)

	assert.Equal(t, "ACME Inc", merged.DisplayName)
	assert.Equal(t, "tooling company", merged.Description, "empty fields are filled from the loser")
	assert.Equal(t, "https://acme.dev/logo.png", merged.Logo)
	assert.ElementsMatch(t, membermodels.StringList{"hello@acme.dev", "sales@acme.dev"}, merged.Emails)
	assert.Len(t, merged.Identities, 2)

	_, err = svc.FindByID(ctx, scope, duplicate.ID)
	assert.True(t, apperr.IsNotFound(err))

	var movedActivity membermodels.Activity
	require.NoError(t, db.Take(&movedActivity, "id = ?", activity.ID).Error)
	require.NotNil(t, movedActivity.OrganizationID)
	assert.Equal(t, original.ID, *movedActivity.OrganizationID)

	var linkCount int64
	require.NoError(t, db.Model(&membermodels.MemberOrganization{}).
		Where("organization_id = ?", original.ID).
		Count(&linkCount).Error)
	assert.Equal(t, int64(1), linkCount)
}

func TestOrganizationMergeSameEntity(t *testing.T) {
	svc, _ := setupService(t)
	scope := tenant.New(uuid.New())

	org, err := svc.Upsert(context.Background(), scope, UpsertInput{Platform: "github", Name: "acme"})
	require.NoError(t, err)

	result, err := svc.Merge(context.Background(), scope, org.ID, org.ID)
	require.NoError(t, err)
	assert.Equal(t, MergeStatusSameEntity, result.Status)
}

func TestOrganizationSuggestAndNoMerge(t *testing.T) {
	svc, _ := setupService(t)
	scope := tenant.New(uuid.New())
	ctx := context.Background()

	a, err := svc.Upsert(ctx, scope, UpsertInput{Platform: "github", Name: "acme"})
	require.NoError(t, err)
	b, err := svc.Upsert(ctx, scope, UpsertInput{Platform: "linkedin", Name: "acme-corp"})
	require.NoError(t, err)

	require.NoError(t, svc.SuggestMerge(ctx, scope, a.ID, b.ID, nil))

	edges, err := svc.FindMergeSuggestions(ctx, scope, a.ID)
	require.NoError(t, err)
	assert.Len(t, edges, 1)

	require.NoError(t, svc.MarkNoMerge(ctx, scope, a.ID, b.ID))
	require.NoError(t, svc.SuggestMerge(ctx, scope, a.ID, b.ID, nil))

	edges, err = svc.FindMergeSuggestions(ctx, scope, a.ID)
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestOrganizationDismissSuggestion(t *testing.T) {
	svc, _ := setupService(t)
	scope := tenant.New(uuid.New())
	ctx := context.Background()

	a, err := svc.Upsert(ctx, scope, UpsertInput{Platform: "github", Name: "acme"})
	require.NoError(t, err)
	b, err := svc.Upsert(ctx, scope, UpsertInput{Platform: "linkedin", Name: "acme-corp"})
	require.NoError(t, err)

	require.NoError(t, svc.SuggestMerge(ctx, scope, a.ID, b.ID, nil))
	require.NoError(t, svc.DismissSuggestion(ctx, scope, a.ID, b.ID))

	edges, err := svc.FindMergeSuggestions(ctx, scope, a.ID)
	require.NoError(t, err)
	assert.Empty(t, edges)

	// Dismissal leaves no exclusion behind.
	require.NoError(t, svc.SuggestMerge(ctx, scope, a.ID, b.ID, nil))
	edges, err = svc.FindMergeSuggestions(ctx, scope, b.ID)
	require.NoError(t, err)
	assert.Len(t, edges, 1)
}

func TestOrganizationGenerateSuggestions(t *testing.T) {
	svc, _ := setupService(t)
	scope := tenant.New(uuid.New())
	ctx := context.Background()

	a, err := svc.Upsert(ctx, scope, UpsertInput{Platform: "github", Name: "acme"})
	require.NoError(t, err)
	b, err := svc.Upsert(ctx, scope, UpsertInput{Platform: "linkedin", Name: "acme"})
	require.NoError(t, err)
	// Unrelated organization, must not match.
	_, err = svc.Upsert(ctx, scope, UpsertInput{Platform: "github", Name: "other"})
	require.NoError(t, err)

	count, err := svc.GenerateSuggestions(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one pair, both directions")

	edges, err := svc.FindMergeSuggestions(ctx, scope, a.ID)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, b.ID, edges[0].ToMergeID)
}
