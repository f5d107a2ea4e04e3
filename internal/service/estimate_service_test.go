package service_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/mcsmartbytes/job-sense/internal/domain"
	"github.com/mcsmartbytes/job-sense/internal/repository"
	"github.com/mcsmartbytes/job-sense/internal/service"
	"github.com/mcsmartbytes/job-sense/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSiteService(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := newEstimateFixture(db)
	owner := testutil.CreateTestUser(t, db, "owner@example.com")
	other := testutil.CreateTestUser(t, db, "other@example.com")
	ctx := userContext(owner.ID)

	site, err := f.sites.Create(ctx, &domain.CreateSiteRequest{Name: " Lowe's Lot ", Address: "1 Main St"})
	require.NoError(t, err)
	assert.Equal(t, "Lowe's Lot", site.Name)

	t.Run("replace objects defaults type and measurements", func(t *testing.T) {
		resp, err := f.sites.ReplaceObjects(ctx, site.ID, &domain.ReplaceSiteObjectsRequest{
			Features: []domain.SiteFeatureInput{
				{Geometry: json.RawMessage(`{"type":"Polygon","coordinates":[]}`)},
				{ObjectType: "parking", Geometry: json.RawMessage(`{"type":"Point"}`), Measurements: json.RawMessage(`{"area":120.5}`)},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, resp.Count)

		objects, err := f.sites.ListObjects(ctx, site.ID)
		require.NoError(t, err)
		require.Len(t, objects, 2)
		types := []string{objects[0].ObjectType, objects[1].ObjectType}
		assert.ElementsMatch(t, []string{"unclassified", "parking"}, types)
		for _, obj := range objects {
			if obj.ObjectType == "unclassified" {
				assert.JSONEq(t, `{}`, string(obj.Measurements))
			}
		}
	})

	t.Run("replace with empty list clears objects", func(t *testing.T) {
		resp, err := f.sites.ReplaceObjects(ctx, site.ID, &domain.ReplaceSiteObjectsRequest{})
		require.NoError(t, err)
		assert.Equal(t, 0, resp.Count)

		objects, err := f.sites.ListObjects(ctx, site.ID)
		require.NoError(t, err)
		assert.Empty(t, objects)
	})

	t.Run("invalid geometry rejected", func(t *testing.T) {
		_, err := f.sites.ReplaceObjects(ctx, site.ID, &domain.ReplaceSiteObjectsRequest{
			Features: []domain.SiteFeatureInput{{Geometry: json.RawMessage(`{not json`)}},
		})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("other users cannot see or delete the site", func(t *testing.T) {
		otherCtx := userContext(other.ID)
		_, err := f.sites.GetByID(otherCtx, site.ID)
		assert.ErrorIs(t, err, service.ErrNotFound)

		_, err = f.sites.ReplaceObjects(otherCtx, site.ID, &domain.ReplaceSiteObjectsRequest{})
		assert.ErrorIs(t, err, service.ErrNotFound)

		assert.ErrorIs(t, f.sites.Delete(otherCtx, site.ID), service.ErrNotFound)

		sites, err := f.sites.List(otherCtx, repository.DefaultSortConfig())
		require.NoError(t, err)
		assert.Empty(t, sites)
	})

	t.Run("delete keeps estimates", func(t *testing.T) {
		estimate, err := f.estimates.Create(ctx, &domain.CreateEstimateRequest{SiteID: site.ID})
		require.NoError(t, err)

		require.NoError(t, f.sites.Delete(ctx, site.ID))

		got, err := f.estimates.GetByID(ctx, estimate.ID)
		require.NoError(t, err)
		assert.Nil(t, got.SiteID)
	})
}

func TestCostCodeService_SeedsOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := newEstimateFixture(db)
	user := testutil.CreateTestUser(t, db, "codes@example.com")
	ctx := userContext(user.ID)

	codes, err := f.costCodes.List(ctx)
	require.NoError(t, err)
	require.Len(t, codes, len(service.DefaultCostCodes))
	assert.Equal(t, "ASPH-CRACK", codes[0].Code)

	again, err := f.costCodes.List(ctx)
	require.NoError(t, err)
	assert.Len(t, again, len(service.DefaultCostCodes))

	other := testutil.CreateTestUser(t, db, "other@example.com")
	otherCodes, err := f.costCodes.List(userContext(other.ID))
	require.NoError(t, err)
	assert.Len(t, otherCodes, len(service.DefaultCostCodes))
	assert.NotEqual(t, codes[0].ID, otherCodes[0].ID)
}

func TestEstimateService_LineItemsKeepTotal(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := newEstimateFixture(db)
	user := testutil.CreateTestUser(t, db, "estimator@example.com")
	site := testutil.CreateTestSite(t, db, user.ID, "Target Lot")
	ctx := userContext(user.ID)

	estimate, err := f.estimates.Create(ctx, &domain.CreateEstimateRequest{SiteID: site.ID})
	require.NoError(t, err)
	assert.Equal(t, "Target Lot Estimate", estimate.Title)
	assert.Equal(t, domain.EstimateStatusDraft, estimate.Status)
	assert.Equal(t, "0.00", estimate.Total)

	codes, err := f.costCodes.List(ctx)
	require.NoError(t, err)

	withFirst, err := f.estimates.AddLineItem(ctx, estimate.ID, &domain.AddLineItemRequest{
		Description: "Sealcoat",
		Quantity:    "1500",
		Unit:        "sqft",
		UnitPrice:   "0.18",
		CostCodeID:  &codes[0].ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "270.00", withFirst.Total)

	withSecond, err := f.estimates.AddLineItem(ctx, estimate.ID, &domain.AddLineItemRequest{
		Description: "ADA stall",
		Quantity:    "2",
		Unit:        "ea",
		UnitPrice:   "85.50",
	})
	require.NoError(t, err)
	assert.Equal(t, "441.00", withSecond.Total)
	require.Len(t, withSecond.LineItems, 2)
	require.NotNil(t, withSecond.LineItems[0].CostCode)

	t.Run("non-positive amounts are rejected without changes", func(t *testing.T) {
		for _, req := range []domain.AddLineItemRequest{
			{Description: "x", Quantity: "0", Unit: "ea", UnitPrice: "1"},
			{Description: "x", Quantity: "1", Unit: "ea", UnitPrice: "-3"},
			{Description: "x", Quantity: "abc", Unit: "ea", UnitPrice: "1"},
			{Description: " ", Quantity: "1", Unit: "ea", UnitPrice: "1"},
		} {
			req := req
			_, err := f.estimates.AddLineItem(ctx, estimate.ID, &req)
			assert.ErrorIs(t, err, service.ErrInvalidInput)
		}

		got, err := f.estimates.GetByID(ctx, estimate.ID)
		require.NoError(t, err)
		assert.Equal(t, "441.00", got.Total)
	})

	t.Run("amounts finer than the stored scale are rejected", func(t *testing.T) {
		for _, req := range []domain.AddLineItemRequest{
			{Description: "x", Quantity: "3", Unit: "ea", UnitPrice: "10.005"},
			{Description: "x", Quantity: "1.0005", Unit: "ea", UnitPrice: "1"},
			{Description: "x", Quantity: "1", Unit: "ea", UnitPrice: "0.001"},
		} {
			req := req
			_, err := f.estimates.AddLineItem(ctx, estimate.ID, &req)
			assert.ErrorIs(t, err, service.ErrInvalidInput, req.Quantity+" x "+req.UnitPrice)
		}

		got, err := f.estimates.GetByID(ctx, estimate.ID)
		require.NoError(t, err)
		assert.Equal(t, "441.00", got.Total)
		assert.Len(t, got.LineItems, 2)
	})

	t.Run("unknown cost code rejected", func(t *testing.T) {
		unknown := uuid.New()
		_, err := f.estimates.AddLineItem(ctx, estimate.ID, &domain.AddLineItemRequest{
			Description: "x", Quantity: "1", Unit: "ea", UnitPrice: "1", CostCodeID: &unknown,
		})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("delete recomputes", func(t *testing.T) {
		afterDelete, err := f.estimates.DeleteLineItem(ctx, estimate.ID, withSecond.LineItems[0].ID)
		require.NoError(t, err)
		assert.Equal(t, "171.00", afterDelete.Total)

		empty, err := f.estimates.DeleteLineItem(ctx, estimate.ID, withSecond.LineItems[1].ID)
		require.NoError(t, err)
		assert.Equal(t, "0.00", empty.Total)
		assert.Empty(t, empty.LineItems)

		_, err = f.estimates.DeleteLineItem(ctx, estimate.ID, uuid.New())
		assert.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("amounts at the stored scale are accepted", func(t *testing.T) {
		got, err := f.estimates.AddLineItem(ctx, estimate.ID, &domain.AddLineItemRequest{
			Description: "Crack fill", Quantity: "2.125", Unit: "lf", UnitPrice: "10.500",
		})
		require.NoError(t, err)
		assert.Equal(t, "22.31", got.Total)
	})
}

func TestEstimateService_Ownership(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := newEstimateFixture(db)
	owner := testutil.CreateTestUser(t, db, "owner@example.com")
	intruder := testutil.CreateTestUser(t, db, "intruder@example.com")
	site := testutil.CreateTestSite(t, db, owner.ID, "Owner Lot")

	estimate, err := f.estimates.Create(userContext(owner.ID), &domain.CreateEstimateRequest{SiteID: site.ID})
	require.NoError(t, err)

	ctx := userContext(intruder.ID)
	_, err = f.estimates.Create(ctx, &domain.CreateEstimateRequest{SiteID: site.ID})
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = f.estimates.AddLineItem(ctx, estimate.ID, &domain.AddLineItemRequest{
		Description: "x", Quantity: "1", Unit: "ea", UnitPrice: "1",
	})
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = f.estimates.ConvertToJob(ctx, estimate.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	assert.ErrorIs(t, f.estimates.Delete(ctx, estimate.ID), service.ErrNotFound)

	got, err := f.estimates.GetByID(userContext(owner.ID), estimate.ID)
	require.NoError(t, err)
	assert.Equal(t, "0.00", got.Total)

	_, err = f.estimates.List(context.Background(), repository.DefaultSortConfig())
	assert.ErrorIs(t, err, service.ErrUnauthorized)
}

func TestEstimateService_Update(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := newEstimateFixture(db)
	user := testutil.CreateTestUser(t, db, "u@example.com")
	site := testutil.CreateTestSite(t, db, user.ID, "Lot")
	ctx := userContext(user.ID)

	estimate, err := f.estimates.Create(ctx, &domain.CreateEstimateRequest{SiteID: site.ID, Title: "Spring sealcoat"})
	require.NoError(t, err)
	assert.Equal(t, "Spring sealcoat", estimate.Title)

	status := domain.EstimateStatusSent
	updated, err := f.estimates.Update(ctx, estimate.ID, &domain.UpdateEstimateRequest{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, domain.EstimateStatusSent, updated.Status)
	assert.Equal(t, "Spring sealcoat", updated.Title)

	blank := "  "
	_, err = f.estimates.Update(ctx, estimate.ID, &domain.UpdateEstimateRequest{Title: &blank})
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	bogus := domain.EstimateStatus("Paid")
	_, err = f.estimates.Update(ctx, estimate.ID, &domain.UpdateEstimateRequest{Status: &bogus})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestEstimateService_ConvertToJob(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := newEstimateFixture(db)
	user := testutil.CreateTestUser(t, db, "pm@example.com")
	site := testutil.CreateTestSite(t, db, user.ID, "Costco")
	ctx := userContext(user.ID)

	estimate, err := f.estimates.Create(ctx, &domain.CreateEstimateRequest{SiteID: site.ID})
	require.NoError(t, err)
	_, err = f.estimates.AddLineItem(ctx, estimate.ID, &domain.AddLineItemRequest{Description: "Paving", Quantity: "10", Unit: "ton", UnitPrice: "10"})
	require.NoError(t, err)
	_, err = f.estimates.AddLineItem(ctx, estimate.ID, &domain.AddLineItemRequest{Description: "Striping", Quantity: "1", Unit: "ls", UnitPrice: "50"})
	require.NoError(t, err)

	job, err := f.estimates.ConvertToJob(ctx, estimate.ID)
	require.NoError(t, err)
	assert.Equal(t, "Costco Estimate", job.Name)
	assert.Equal(t, domain.JobStatusActive, job.Status)
	require.NotNil(t, job.EstimateID)
	assert.Equal(t, estimate.ID, *job.EstimateID)
	require.Len(t, job.Budgets, 2)
	assert.Equal(t, "150.00", job.Variance.BudgetTotal)

	t.Run("second conversion conflicts", func(t *testing.T) {
		_, err := f.estimates.ConvertToJob(ctx, estimate.ID)
		assert.ErrorIs(t, err, service.ErrConflict)
	})

	t.Run("budgets do not follow later estimate changes", func(t *testing.T) {
		_, err := f.estimates.AddLineItem(ctx, estimate.ID, &domain.AddLineItemRequest{Description: "Extra", Quantity: "1", Unit: "ea", UnitPrice: "999"})
		require.NoError(t, err)

		detail, err := f.jobs.GetDetail(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, "150.00", detail.Variance.BudgetTotal)
		assert.Len(t, detail.Budgets, 2)
	})

	t.Run("converted estimate cannot be deleted", func(t *testing.T) {
		assert.ErrorIs(t, f.estimates.Delete(ctx, estimate.ID), service.ErrConflict)
	})
}

func TestEstimateService_DeleteAndPDF(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := newEstimateFixture(db)
	user := testutil.CreateTestUser(t, db, "pdf@example.com")
	site := testutil.CreateTestSite(t, db, user.ID, "Office Park")
	ctx := userContext(user.ID)

	estimate, err := f.estimates.Create(ctx, &domain.CreateEstimateRequest{SiteID: site.ID})
	require.NoError(t, err)
	_, err = f.estimates.AddLineItem(ctx, estimate.ID, &domain.AddLineItemRequest{Description: "Crack sealing", Quantity: "300", Unit: "lf", UnitPrice: "1.25"})
	require.NoError(t, err)

	name, content, err := f.estimates.RenderPDF(ctx, estimate.ID)
	require.NoError(t, err)
	assert.Regexp(t, `^EST-[0-9A-F]{8}\.pdf$`, name)
	assert.True(t, bytes.HasPrefix(content, []byte("%PDF")))

	require.NoError(t, f.estimates.Delete(ctx, estimate.ID))
	_, err = f.estimates.GetByID(ctx, estimate.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	var count int64
	require.NoError(t, db.Model(&domain.EstimateLineItem{}).Where("estimate_id = ?", estimate.ID).Count(&count).Error)
	assert.Zero(t, count)
}
