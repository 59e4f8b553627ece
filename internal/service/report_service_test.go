package service

import (
	"context"
	"testing"
	"time"

	"backend/internal/model"
	"backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reportFixtures(t *testing.T) ([]model.Request, *model.RequestType, *model.RequestType) {
	t.Helper()

	itGroup := uuid.New()
	corpGroup := uuid.New()
	changeType := &model.RequestType{ID: uuid.New(), Name: model.RequestTypeChange, GroupID: &itGroup, Group: &model.Group{ID: itGroup, Name: "IT"}}
	assetType := &model.RequestType{ID: uuid.New(), Name: model.RequestTypeAsset, GroupID: &corpGroup, Group: &model.Group{ID: corpGroup, Name: "Corporate"}}

	requests := []model.Request{
		{
			ID:          uuid.New(),
			Title:       "Upgrade firewall",
			Status:      model.StatusPending,
			RequestType: changeType,
			Data:        `{}`,
			CreatedAt:   time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:          uuid.New(),
			Title:       "Monitors for design team",
			Status:      model.StatusPending,
			RequestType: assetType,
			Data:        `{"asset_name":"Monitor","quantity":4,"estimated_cost":"1200.50","justification":"Dual-screen setups for design"}`,
			CreatedAt:   time.Date(2026, 8, 10, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:          uuid.New(),
			Title:       "Docking stations",
			Status:      model.StatusApproved,
			RequestType: assetType,
			Data:        `{"asset_name":"Dock","quantity":2,"estimated_cost":"300","justification":"Hot desk equipment"}`,
			CreatedAt:   time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
			Approvals:   []model.Approval{{ID: uuid.New(), Status: model.StatusApproved}},
		},
	}
	return requests, changeType, assetType
}

func newReportService(stored []model.Request) ReportService {
	requests := &fakeRequestRepo{
		listAllFn: func(ctx context.Context) ([]model.Request, error) {
			return stored, nil
		},
	}
	refdata := &fakeRefDataRepo{
		listGroupsFn: func(ctx context.Context) ([]model.Group, error) {
			return []model.Group{{ID: uuid.New(), Name: "IT"}, {ID: uuid.New(), Name: "Corporate"}}, nil
		},
	}
	return NewReportService(requests, refdata)
}

func TestGetReport_SumsPendingAssetCosts(t *testing.T) {
	stored, _, _ := reportFixtures(t)
	svc := newReportService(stored)
	admin := model.Principal{UserID: uuid.New(), Tier: model.TierAdmin}

	report, err := svc.GetReport(context.Background(), admin, ReportFilter{})

	require.NoError(t, err)
	assert.Equal(t, 3, report.TotalRequests)
	assert.Equal(t, 2, report.PendingRequests)
	assert.Equal(t, 1, report.ApprovedRequests)
	// Only the pending asset request counts: the approved dock order and
	// the pending change request contribute nothing.
	assert.True(t, report.PendingAssetCost.Equal(decimal.RequireFromString("1200.50")),
		"got %s", report.PendingAssetCost)
	assert.Len(t, report.AvailableGroups, 2)
}

func TestGetReport_Filters(t *testing.T) {
	stored, changeType, _ := reportFixtures(t)
	svc := newReportService(stored)
	admin := model.Principal{UserID: uuid.New(), Tier: model.TierAdmin}

	report, err := svc.GetReport(context.Background(), admin, ReportFilter{Status: model.StatusApproved})
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalRequests)
	assert.Equal(t, "Docking stations", report.Rows[0].Title)
	assert.Equal(t, model.StatusApproved, report.Rows[0].LatestApproval)

	report, err = svc.GetReport(context.Background(), admin, ReportFilter{GroupID: changeType.GroupID.String()})
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalRequests)
	assert.Equal(t, "Upgrade firewall", report.Rows[0].Title)

	from := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	report, err = svc.GetReport(context.Background(), admin, ReportFilter{From: &from})
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalRequests)
}

func TestGetReport_UserForbidden(t *testing.T) {
	stored, _, _ := reportFixtures(t)
	svc := newReportService(stored)

	_, err := svc.GetReport(context.Background(), model.Principal{UserID: uuid.New(), Tier: model.TierUser}, ReportFilter{})

	require.Error(t, err)
	assert.Equal(t, apperror.CodeForbidden, apperror.From(err).Code)
}
