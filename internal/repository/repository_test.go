package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcsmartbytes/job-sense/internal/domain"
	"github.com/mcsmartbytes/job-sense/internal/repository"
	"github.com/mcsmartbytes/job-sense/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestBuildOrderClause(t *testing.T) {
	fields := map[string]string{"name": "name", "createdAt": "created_at"}

	assert.Equal(t, "name ASC", repository.BuildOrderClause(repository.SortConfig{Field: "name", Order: repository.SortOrderAsc}, fields, "updated_at"))
	assert.Equal(t, "updated_at DESC", repository.BuildOrderClause(repository.SortConfig{Field: "password_hash; --", Order: repository.SortOrderDesc}, fields, "updated_at"))
	assert.Equal(t, repository.SortOrderAsc, repository.ParseSortOrder("ASC"))
	assert.Equal(t, repository.SortOrderDesc, repository.ParseSortOrder("sideways"))
}

func TestOwnedBy_NilUserMatchesNothing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	owner := testutil.CreateTestUser(t, db, "owner@example.com")
	testutil.CreateTestSite(t, db, owner.ID, "Lot A")

	var sites []domain.Site
	require.NoError(t, db.Scopes(repository.OwnedBy(uuid.Nil)).Find(&sites).Error)
	assert.Empty(t, sites)

	require.NoError(t, db.Scopes(repository.OwnedBy(owner.ID)).Find(&sites).Error)
	assert.Len(t, sites, 1)
}

func TestUserRepository_EmailNormalized(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()

	user := &domain.User{Email: "  Crew@Example.COM ", PasswordHash: "x"}
	require.NoError(t, repo.Create(ctx, user))
	assert.Equal(t, "crew@example.com", user.Email)

	found, err := repo.GetByEmail(ctx, "CREW@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	exists, err := repo.EmailExists(ctx, "crew@EXAMPLE.com")
	require.NoError(t, err)
	assert.True(t, exists)

	err = repo.UpdateProfile(ctx, uuid.New(), map[string]interface{}{"full_name": "Nobody"})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSiteRepository_OwnershipAndObjects(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewSiteRepository(db)
	ctx := context.Background()

	owner := testutil.CreateTestUser(t, db, "owner@example.com")
	other := testutil.CreateTestUser(t, db, "other@example.com")
	site := testutil.CreateTestSite(t, db, owner.ID, "Mall lot")

	_, err := repo.GetByID(ctx, other.ID, site.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	first := []domain.SiteObject{
		{ObjectType: "parking", Geometry: `{"type":"Polygon"}`, Measurements: `{"area":100}`},
		{ObjectType: "stripe", Geometry: `{"type":"LineString"}`, Measurements: `{}`},
	}
	require.NoError(t, repo.ReplaceObjects(ctx, site.ID, first))

	objects, err := repo.ListObjects(ctx, site.ID)
	require.NoError(t, err)
	assert.Len(t, objects, 2)

	second := []domain.SiteObject{{ObjectType: "unclassified", Geometry: `{"type":"Point"}`, Measurements: `{}`}}
	require.NoError(t, repo.ReplaceObjects(ctx, site.ID, second))

	objects, err = repo.ListObjects(ctx, site.ID)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, `{"type":"Point"}`, objects[0].Geometry)

	require.NoError(t, repo.ReplaceObjects(ctx, site.ID, nil))
	objects, err = repo.ListObjects(ctx, site.ID)
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestSiteRepository_DeleteDetachesEstimates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewSiteRepository(db)
	ctx := context.Background()

	owner := testutil.CreateTestUser(t, db, "owner@example.com")
	other := testutil.CreateTestUser(t, db, "other@example.com")
	site := testutil.CreateTestSite(t, db, owner.ID, "Church lot")
	estimate := &domain.Estimate{UserID: owner.ID, SiteID: &site.ID, Title: "Sealcoat"}
	require.NoError(t, db.Create(estimate).Error)

	assert.ErrorIs(t, repo.Delete(ctx, other.ID, site.ID), gorm.ErrRecordNotFound)
	require.NoError(t, repo.Delete(ctx, owner.ID, site.ID))

	var reloaded domain.Estimate
	require.NoError(t, db.First(&reloaded, "id = ?", estimate.ID).Error)
	assert.Nil(t, reloaded.SiteID)
}

func TestCostCodeRepository_CreateMissingIsIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewCostCodeRepository(db)
	ctx := context.Background()
	owner := testutil.CreateTestUser(t, db, "owner@example.com")

	codes := func() []domain.CostCode {
		return []domain.CostCode{
			{UserID: owner.ID, Code: "SEAL-2", Label: "Sealcoat (2 coats)", Trade: "Sealcoating"},
			{UserID: owner.ID, Code: "ASPH-PAVE", Label: "Asphalt Paving", Trade: "Asphalt"},
		}
	}
	require.NoError(t, repo.CreateMissing(ctx, codes()))
	require.NoError(t, repo.CreateMissing(ctx, codes()))

	list, err := repo.List(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "ASPH-PAVE", list[0].Code)
	assert.Equal(t, "SEAL-2", list[1].Code)
}

func TestEstimateRepository_LineItemsRecomputeTotal(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewEstimateRepository(db)
	ctx := context.Background()

	owner := testutil.CreateTestUser(t, db, "owner@example.com")
	estimate := &domain.Estimate{UserID: owner.ID, Title: "Restripe"}
	require.NoError(t, repo.Create(ctx, estimate))

	first := &domain.EstimateLineItem{
		EstimateID:  estimate.ID,
		Description: "Stalls",
		Quantity:    decimal.NewFromInt(40),
		Unit:        "stall",
		UnitPrice:   decimal.RequireFromString("4.50"),
		Total:       decimal.RequireFromString("180.00"),
	}
	total, err := repo.AddLineItem(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "180.00", total.StringFixed(2))

	second := &domain.EstimateLineItem{
		EstimateID:  estimate.ID,
		Description: "ADA stalls",
		Quantity:    decimal.NewFromInt(2),
		Unit:        "stall",
		UnitPrice:   decimal.RequireFromString("75.25"),
		Total:       decimal.RequireFromString("150.50"),
	}
	total, err = repo.AddLineItem(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, "330.50", total.StringFixed(2))

	loaded, err := repo.GetWithLineItems(ctx, owner.ID, estimate.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.LineItems, 2)
	assert.Equal(t, "330.50", loaded.Total.StringFixed(2))

	total, err = repo.DeleteLineItem(ctx, estimate.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "150.50", total.StringFixed(2))

	_, err = repo.DeleteLineItem(ctx, estimate.ID, first.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	total, err = repo.DeleteLineItem(ctx, estimate.ID, second.ID)
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}

func TestEstimateRepository_DeleteScopedToOwner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewEstimateRepository(db)
	ctx := context.Background()

	owner := testutil.CreateTestUser(t, db, "owner@example.com")
	other := testutil.CreateTestUser(t, db, "other@example.com")
	estimate := &domain.Estimate{UserID: owner.ID, Title: "Patch"}
	require.NoError(t, repo.Create(ctx, estimate))

	assert.ErrorIs(t, repo.Delete(ctx, other.ID, estimate.ID), gorm.ErrRecordNotFound)
	require.NoError(t, repo.Delete(ctx, owner.ID, estimate.ID))

	_, err := repo.GetByID(ctx, owner.ID, estimate.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestJobRepository_CreateFromEstimateOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewJobRepository(db)
	ctx := context.Background()

	owner := testutil.CreateTestUser(t, db, "owner@example.com")
	estimate := &domain.Estimate{UserID: owner.ID, Title: "Overlay"}
	require.NoError(t, db.Create(estimate).Error)

	job := &domain.Job{UserID: owner.ID, EstimateID: &estimate.ID, Name: "Overlay", Status: domain.JobStatusActive}
	budgets := []domain.JobBudget{
		{Description: "Asphalt", BudgetTotal: decimal.RequireFromString("1000.00")},
		{Description: "Striping", BudgetTotal: decimal.RequireFromString("250.00")},
	}
	require.NoError(t, repo.CreateFromEstimate(ctx, job, budgets))

	again := &domain.Job{UserID: owner.ID, EstimateID: &estimate.ID, Name: "Overlay", Status: domain.JobStatusActive}
	assert.ErrorIs(t, repo.CreateFromEstimate(ctx, again, nil), repository.ErrAlreadyConverted)

	exists, err := repo.ExistsForEstimate(ctx, estimate.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, repo.AddCost(ctx, &domain.JobCost{JobID: job.ID, Description: "Tack coat", Amount: decimal.RequireFromString("99.99")}))

	detail, err := repo.GetDetail(ctx, owner.ID, job.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Budgets, 2)
	require.Len(t, detail.Costs, 1)
	assert.Equal(t, "99.99", detail.Costs[0].Amount.StringFixed(2))
	assert.Equal(t, domain.JobStatusActive, detail.Status)

	other := testutil.CreateTestUser(t, db, "other@example.com")
	_, err = repo.GetDetail(ctx, other.ID, job.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestJobRepository_UpdateStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewJobRepository(db)
	ctx := context.Background()

	owner := testutil.CreateTestUser(t, db, "owner@example.com")
	job := &domain.Job{UserID: owner.ID, Name: "Crack fill", Status: domain.JobStatusActive}
	require.NoError(t, repo.CreateFromEstimate(ctx, job, nil))

	end := time.Now().UTC().Truncate(time.Second)
	job.Status = domain.JobStatusCompleted
	job.EndDate = &end
	require.NoError(t, repo.UpdateStatus(ctx, job))

	reloaded, err := repo.GetByID(ctx, owner.ID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, reloaded.Status)
	require.NotNil(t, reloaded.EndDate)

	job.UserID = uuid.New()
	assert.ErrorIs(t, repo.UpdateStatus(ctx, job), gorm.ErrRecordNotFound)
}

func TestTokenRepository_ConsumeOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewTokenRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	user := &domain.User{Email: "new@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)

	token := &domain.VerificationToken{UserID: user.ID, TokenHash: "abc123", ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, repo.CreateVerification(ctx, token))

	found, err := repo.GetVerificationByHash(ctx, "abc123")
	require.NoError(t, err)
	require.NoError(t, repo.ConsumeVerification(ctx, found, now))
	assert.ErrorIs(t, repo.ConsumeVerification(ctx, found, now), gorm.ErrRecordNotFound)

	var reloaded domain.User
	require.NoError(t, db.First(&reloaded, "id = ?", user.ID).Error)
	assert.True(t, reloaded.IsVerified())

	reset := &domain.PasswordResetToken{UserID: user.ID, TokenHash: "def456", ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, repo.CreatePasswordReset(ctx, reset))
	require.NoError(t, repo.ConsumePasswordReset(ctx, reset, "new-hash", now))
	assert.ErrorIs(t, repo.ConsumePasswordReset(ctx, reset, "other-hash", now), gorm.ErrRecordNotFound)

	require.NoError(t, db.First(&reloaded, "id = ?", user.ID).Error)
	assert.Equal(t, "new-hash", reloaded.PasswordHash)
}

func TestTokenRepository_DeleteStale(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewTokenRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	user := &domain.User{Email: "stale@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)

	oldUse := now.Add(-10 * 24 * time.Hour)
	require.NoError(t, repo.CreateVerification(ctx, &domain.VerificationToken{UserID: user.ID, TokenHash: "expired", ExpiresAt: now.Add(-8 * 24 * time.Hour)}))
	require.NoError(t, repo.CreateVerification(ctx, &domain.VerificationToken{UserID: user.ID, TokenHash: "fresh", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, repo.CreatePasswordReset(ctx, &domain.PasswordResetToken{UserID: user.ID, TokenHash: "used", ExpiresAt: now.Add(time.Hour), UsedAt: &oldUse}))

	removed, err := repo.DeleteStale(ctx, now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	_, err = repo.GetVerificationByHash(ctx, "fresh")
	assert.NoError(t, err)
}
