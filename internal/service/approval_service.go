package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type DecideApprovalInput struct {
	Status string  `json:"status" binding:"required,oneof=approved rejected"`
	Notes  *string `json:"notes"`
}

type PendingApprovalResponse struct {
	ID            string  `json:"id"`
	RequestID     string  `json:"request_id"`
	RequestTitle  string  `json:"request_title"`
	RequestType   string  `json:"request_type"`
	RequesterName string  `json:"requester_name"`
	ApproverID    string  `json:"approver_id"`
	ApproverName  string  `json:"approver_name,omitempty"`
	Status        string  `json:"status"`
	Notes         *string `json:"notes"`
	CreatedAt     string  `json:"created_at"`
}

// --- Interface ---

type ApprovalService interface {
	DecideApproval(ctx context.Context, principal model.Principal, approvalID string, input DecideApprovalInput) (RequestResponse, error)
	ListPendingApprovals(ctx context.Context, principal model.Principal) ([]PendingApprovalResponse, error)
	DeleteApproval(ctx context.Context, principal model.Principal, approvalID string) error
}

type approvalService struct {
	approvals repository.ApprovalRepository
	requests  repository.RequestRepository
	audit     repository.AuditRepository
	txm       repository.TransactionManager
	events    EventPublisher
}

func NewApprovalService(
	approvals repository.ApprovalRepository,
	requests repository.RequestRepository,
	audit repository.AuditRepository,
	txm repository.TransactionManager,
	events EventPublisher,
) ApprovalService {
	return &approvalService{
		approvals: approvals,
		requests:  requests,
		audit:     audit,
		txm:       txm,
		events:    events,
	}
}

// --- Implementation ---

// DecideApproval applies a manager's or admin's verdict to a pending
// approval and recomputes the request status from all sibling approvals.
// The whole mutation runs in one transaction so two concurrent decisions
// on sibling approvals cannot leave the request status stale.
func (s *approvalService) DecideApproval(ctx context.Context, principal model.Principal, approvalID string, input DecideApprovalInput) (RequestResponse, error) {
	if input.Status != model.StatusApproved && input.Status != model.StatusRejected {
		return RequestResponse{}, apperror.InvalidInput("status must be approved or rejected")
	}

	if !principal.CanApprove() {
		return RequestResponse{}, apperror.Forbidden("only managers and admins may decide approvals")
	}

	id, err := uuid.Parse(approvalID)
	if err != nil {
		return RequestResponse{}, apperror.InvalidInput("invalid approval id")
	}

	var requestID uuid.UUID
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		approval, err := s.approvals.FindByIDWithRelations(txCtx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("approval not found")
			}
			return apperror.Internal(err)
		}
		requestID = approval.RequestID

		if err := s.authorizeDecision(principal, approval); err != nil {
			return err
		}

		if approval.Status != model.StatusPending {
			return apperror.InvalidState("approval is already " + approval.Status)
		}

		// Claim rule: an authorized actor deciding someone else's
		// pending approval takes it over.
		if approval.ApproverID != principal.UserID {
			approval.ApproverID = principal.UserID
			approval.Approver = nil
		}

		approval.Status = input.Status
		approval.Notes = input.Notes
		if err := s.approvals.Update(txCtx, approval); err != nil {
			return apperror.Internal(err)
		}

		siblings, err := s.approvals.ListByRequest(txCtx, approval.RequestID)
		if err != nil {
			return apperror.Internal(err)
		}

		newStatus := model.AggregateStatus(siblings)
		if approval.Request == nil || approval.Request.Status != newStatus {
			if err := s.requests.UpdateStatus(txCtx, approval.RequestID, newStatus); err != nil {
				return apperror.Internal(err)
			}
		}

		action := model.ActionApproveRequest
		if input.Status == model.StatusRejected {
			action = model.ActionRejectRequest
		}
		details, _ := json.Marshal(map[string]interface{}{
			"approval_id": approval.ID.String(),
			"decision":    input.Status,
			"decided_at":  time.Now().Format(time.RFC3339),
		})
		userID := principal.UserID
		entry := model.AuditLog{
			UserID:   &userID,
			Action:   action,
			EntityID: approval.RequestID.String(),
			Details:  string(details),
		}
		if err := s.audit.Log(txCtx, &entry); err != nil {
			return apperror.Internal(err)
		}

		return nil
	})
	if err != nil {
		return RequestResponse{}, err
	}

	updated, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return RequestResponse{}, apperror.Internal(err)
	}

	if s.events != nil {
		event := EventRequestApproved
		if input.Status == model.StatusRejected {
			event = EventRequestRejected
		}
		s.events.Publish(event, map[string]string{
			"request_id": updated.ID.String(),
			"title":      updated.Title,
			"status":     updated.Status,
		})
	}

	return toRequestResponse(*updated), nil
}

// authorizeDecision enforces the group-scoped permission rule: admins
// always pass; managers pass when their group memberships intersect the
// request type's owning group, or when they already are the approval's
// named approver (an approver retains rights outside their group).
func (s *approvalService) authorizeDecision(principal model.Principal, approval *model.Approval) error {
	if principal.IsAdmin() {
		return nil
	}

	if approval.ApproverID == principal.UserID {
		return nil
	}

	if approval.Request != nil && approval.Request.RequestType != nil {
		groupID := approval.Request.RequestType.GroupID
		if groupID != nil && principal.InGroup(*groupID) {
			return nil
		}
	}

	return apperror.Forbidden("you don't have permission to approve this request")
}

func (s *approvalService) ListPendingApprovals(ctx context.Context, principal model.Principal) ([]PendingApprovalResponse, error) {
	var (
		approvals []model.Approval
		err       error
	)
	switch principal.Tier {
	case model.TierAdmin:
		approvals, err = s.approvals.ListPendingAll(ctx)
	case model.TierManager:
		approvals, err = s.approvals.ListPendingForManager(ctx, principal.GroupIDs, principal.UserID)
	default:
		approvals, err = s.approvals.ListPendingByApprover(ctx, principal.UserID)
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}

	result := make([]PendingApprovalResponse, 0, len(approvals))
	for _, a := range approvals {
		result = append(result, toPendingApprovalResponse(a))
	}
	return result, nil
}

// DeleteApproval removes an approval row (admin only) and recomputes the
// request status from the remaining rows; a request with no approvals
// left falls back to pending.
func (s *approvalService) DeleteApproval(ctx context.Context, principal model.Principal, approvalID string) error {
	if !principal.IsAdmin() {
		return apperror.Forbidden("only admins may delete approvals")
	}

	id, err := uuid.Parse(approvalID)
	if err != nil {
		return apperror.InvalidInput("invalid approval id")
	}

	return s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		approval, err := s.approvals.FindByIDWithRelations(txCtx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("approval not found")
			}
			return apperror.Internal(err)
		}

		if err := s.approvals.Delete(txCtx, id); err != nil {
			return apperror.Internal(err)
		}

		remaining, err := s.approvals.ListByRequest(txCtx, approval.RequestID)
		if err != nil {
			return apperror.Internal(err)
		}
		newStatus := model.AggregateStatus(remaining)
		if approval.Request == nil || approval.Request.Status != newStatus {
			if err := s.requests.UpdateStatus(txCtx, approval.RequestID, newStatus); err != nil {
				return apperror.Internal(err)
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"approval_id": approval.ID.String(),
			"request_id":  approval.RequestID.String(),
		})
		userID := principal.UserID
		entry := model.AuditLog{
			UserID:   &userID,
			Action:   model.ActionDeleteApproval,
			EntityID: approval.RequestID.String(),
			Details:  string(details),
		}
		if err := s.audit.Log(txCtx, &entry); err != nil {
			return apperror.Internal(err)
		}

		return nil
	})
}

// --- Helpers ---

func toPendingApprovalResponse(a model.Approval) PendingApprovalResponse {
	resp := PendingApprovalResponse{
		ID:         a.ID.String(),
		RequestID:  a.RequestID.String(),
		ApproverID: a.ApproverID.String(),
		Status:     a.Status,
		Notes:      a.Notes,
		CreatedAt:  a.CreatedAt.Format(time.RFC3339),
	}
	if a.Approver != nil {
		resp.ApproverName = a.Approver.Name
	}
	if a.Request != nil {
		resp.RequestTitle = a.Request.Title
		if a.Request.RequestType != nil {
			resp.RequestType = a.Request.RequestType.Name
		}
		if a.Request.User != nil {
			resp.RequesterName = a.Request.User.Name
		}
	}
	return resp
}
