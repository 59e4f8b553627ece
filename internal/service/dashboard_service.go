package service

import (
	"context"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperror"
)

const recentRequestLimit = 5

// --- DTOs ---

type DashboardStats struct {
	TotalRequests    int               `json:"total_requests"`
	PendingRequests  int               `json:"pending_requests"`
	ApprovedRequests int               `json:"approved_requests"`
	RejectedRequests int               `json:"rejected_requests"`
	PendingApprovals int               `json:"pending_approvals"`
	RecentRequests   []RequestResponse `json:"recent_requests"`
}

// --- Interface ---

type DashboardService interface {
	GetStats(ctx context.Context, principal model.Principal) (*DashboardStats, error)
}

type dashboardService struct {
	requests  repository.RequestRepository
	approvals repository.ApprovalRepository
}

func NewDashboardService(requests repository.RequestRepository, approvals repository.ApprovalRepository) DashboardService {
	return &dashboardService{requests: requests, approvals: approvals}
}

// --- Implementation ---

// GetStats aggregates counts over the requests the caller can see, so a
// user's dashboard reflects only their own submissions while a manager's
// covers their groups.
func (s *dashboardService) GetStats(ctx context.Context, principal model.Principal) (*DashboardStats, error) {
	var (
		requests []model.Request
		err      error
	)
	switch principal.Tier {
	case model.TierAdmin:
		requests, err = s.requests.ListAll(ctx)
	case model.TierManager:
		requests, err = s.requests.ListForManager(ctx, principal.GroupIDs, principal.UserID)
	default:
		requests, err = s.requests.ListByUser(ctx, principal.UserID)
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}

	stats := &DashboardStats{
		TotalRequests:  len(requests),
		RecentRequests: make([]RequestResponse, 0, recentRequestLimit),
	}
	for _, req := range requests {
		switch req.Status {
		case model.StatusPending:
			stats.PendingRequests++
		case model.StatusApproved:
			stats.ApprovedRequests++
		case model.StatusRejected:
			stats.RejectedRequests++
		}
	}

	// Lists come back newest first, so the head is the recent slice
	for i := 0; i < len(requests) && i < recentRequestLimit; i++ {
		stats.RecentRequests = append(stats.RecentRequests, toRequestResponse(requests[i]))
	}

	if principal.CanApprove() {
		pending, err := s.pendingApprovals(ctx, principal)
		if err != nil {
			return nil, err
		}
		stats.PendingApprovals = pending
	}

	return stats, nil
}

func (s *dashboardService) pendingApprovals(ctx context.Context, principal model.Principal) (int, error) {
	var (
		approvals []model.Approval
		err       error
	)
	if principal.IsAdmin() {
		approvals, err = s.approvals.ListPendingAll(ctx)
	} else {
		approvals, err = s.approvals.ListPendingForManager(ctx, principal.GroupIDs, principal.UserID)
	}
	if err != nil {
		return 0, apperror.Internal(err)
	}
	return len(approvals), nil
}
