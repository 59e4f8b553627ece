package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperror"

	"github.com/shopspring/decimal"
)

// --- DTOs ---

type ReportFilter struct {
	Status   string
	TypeName string
	GroupID  string
	From     *time.Time
	To       *time.Time
}

type ReportRow struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Type           string `json:"type"`
	GroupName      string `json:"group_name,omitempty"`
	RequesterName  string `json:"requester_name"`
	Status         string `json:"status"`
	LatestApproval string `json:"latest_approval"`
	ApproverName   string `json:"approver_name,omitempty"`
	CreatedAt      string `json:"created_at"`
}

type GroupOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Report struct {
	Rows             []ReportRow     `json:"rows"`
	TotalRequests    int             `json:"total_requests"`
	PendingRequests  int             `json:"pending_requests"`
	ApprovedRequests int             `json:"approved_requests"`
	RejectedRequests int             `json:"rejected_requests"`
	PendingAssetCost decimal.Decimal `json:"pending_asset_cost"`
	AvailableGroups  []GroupOption   `json:"available_groups"`
}

// --- Interface ---

type ReportService interface {
	GetReport(ctx context.Context, principal model.Principal, filter ReportFilter) (*Report, error)
}

type reportService struct {
	requests repository.RequestRepository
	refdata  repository.RefDataRepository
}

func NewReportService(requests repository.RequestRepository, refdata repository.RefDataRepository) ReportService {
	return &reportService{requests: requests, refdata: refdata}
}

// --- Implementation ---

// GetReport builds a filtered summary over the caller's visible requests.
// Plain users have no reporting surface.
func (s *reportService) GetReport(ctx context.Context, principal model.Principal, filter ReportFilter) (*Report, error) {
	if !principal.CanApprove() {
		return nil, apperror.Forbidden("reports are available to managers and admins only")
	}

	var (
		requests []model.Request
		err      error
	)
	if principal.IsAdmin() {
		requests, err = s.requests.ListAll(ctx)
	} else {
		requests, err = s.requests.ListForManager(ctx, principal.GroupIDs, principal.UserID)
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}

	report := &Report{
		Rows:             make([]ReportRow, 0, len(requests)),
		PendingAssetCost: decimal.Zero,
	}

	for _, req := range requests {
		if !matchesReportFilter(req, filter) {
			continue
		}

		report.TotalRequests++
		switch req.Status {
		case model.StatusPending:
			report.PendingRequests++
		case model.StatusApproved:
			report.ApprovedRequests++
		case model.StatusRejected:
			report.RejectedRequests++
		}

		if req.Status == model.StatusPending {
			report.PendingAssetCost = report.PendingAssetCost.Add(pendingAssetCost(req))
		}

		report.Rows = append(report.Rows, toReportRow(req))
	}

	groups, err := s.availableGroups(ctx, principal)
	if err != nil {
		return nil, err
	}
	report.AvailableGroups = groups

	return report, nil
}

func (s *reportService) availableGroups(ctx context.Context, principal model.Principal) ([]GroupOption, error) {
	var (
		groups []model.Group
		err    error
	)
	if principal.IsAdmin() {
		groups, err = s.refdata.ListGroups(ctx)
	} else {
		groups, err = s.refdata.FindGroupsByIDs(ctx, principal.GroupIDs)
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}

	options := make([]GroupOption, 0, len(groups))
	for _, g := range groups {
		options = append(options, GroupOption{ID: g.ID.String(), Name: g.Name})
	}
	return options, nil
}

// --- Helpers ---

func matchesReportFilter(req model.Request, filter ReportFilter) bool {
	if filter.Status != "" && !strings.EqualFold(req.Status, filter.Status) {
		return false
	}
	if filter.TypeName != "" {
		if req.RequestType == nil || !strings.EqualFold(req.RequestType.Name, filter.TypeName) {
			return false
		}
	}
	if filter.GroupID != "" {
		if req.RequestType == nil || req.RequestType.GroupID == nil || req.RequestType.GroupID.String() != filter.GroupID {
			return false
		}
	}
	if filter.From != nil && req.CreatedAt.Before(*filter.From) {
		return false
	}
	if filter.To != nil && req.CreatedAt.After(*filter.To) {
		return false
	}
	return true
}

// pendingAssetCost extracts the estimated cost from an asset request's
// payload; anything else contributes zero.
func pendingAssetCost(req model.Request) decimal.Decimal {
	if req.RequestType == nil || req.RequestType.Name != model.RequestTypeAsset {
		return decimal.Zero
	}
	var data model.AssetRequestData
	if err := json.Unmarshal([]byte(req.Data), &data); err != nil {
		return decimal.Zero
	}
	return data.EstimatedCost
}

func toReportRow(req model.Request) ReportRow {
	row := ReportRow{
		ID:        req.ID.String(),
		Title:     req.Title,
		Status:    req.Status,
		CreatedAt: req.CreatedAt.Format(time.RFC3339),
	}
	if req.RequestType != nil {
		row.Type = req.RequestType.Name
		if req.RequestType.Group != nil {
			row.GroupName = req.RequestType.Group.Name
		}
	}
	if req.User != nil {
		row.RequesterName = req.User.Name
	}

	// The latest approval decides the "in-flight" column; rows come back
	// in creation order so the last entry is the newest.
	if n := len(req.Approvals); n > 0 {
		latest := req.Approvals[n-1]
		row.LatestApproval = latest.Status
		if latest.Approver != nil {
			row.ApproverName = latest.Approver.Name
		}
	} else {
		row.LatestApproval = model.StatusPending
	}
	return row
}
