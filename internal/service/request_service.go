package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperror"
	"backend/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type AttachmentInput struct {
	FileID   string `json:"file_id" binding:"required"`
	FileURL  string `json:"file_url" binding:"required"`
	FileName string `json:"file_name" binding:"required"`
	FileSize string `json:"file_size"`
	FileType string `json:"file_type"`
}

type SubmitRequestInput struct {
	Title         string            `json:"title" binding:"required,min=5"`
	Description   string            `json:"description" binding:"required,min=10"`
	RequestTypeID string            `json:"request_type_id" binding:"required"`
	Data          json.RawMessage   `json:"data"`
	Attachments   []AttachmentInput `json:"attachments"`
}

// RequestFilter is applied as a post-query predicate over the
// visibility-scoped result set.
type RequestFilter struct {
	GroupIDs []string
	TypeName string
	Search   string
	Page     int
	Limit    int
}

type ApprovalSummary struct {
	ID           string  `json:"id"`
	ApproverID   string  `json:"approver_id"`
	ApproverName string  `json:"approver_name,omitempty"`
	Status       string  `json:"status"`
	Notes        *string `json:"notes"`
	UpdatedAt    string  `json:"updated_at"`
}

type AttachmentSummary struct {
	ID       string `json:"id"`
	FileName string `json:"file_name"`
	FileURL  string `json:"file_url"`
	FileSize string `json:"file_size"`
	FileType string `json:"file_type"`
}

type RequestResponse struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      string              `json:"status"`
	Type        string              `json:"type"`
	GroupName   string              `json:"group_name,omitempty"`
	CreatedBy   string              `json:"created_by"`
	CreatorName string              `json:"creator_name,omitempty"`
	Data        json.RawMessage     `json:"data"`
	Approvals   []ApprovalSummary   `json:"approvals"`
	Attachments []AttachmentSummary `json:"attachments"`
	CreatedAt   string              `json:"created_at"`
	UpdatedAt   string              `json:"updated_at"`
}

// --- Interface ---

type RequestService interface {
	SubmitRequest(ctx context.Context, principal model.Principal, input SubmitRequestInput) (RequestResponse, error)
	ListRequests(ctx context.Context, principal model.Principal, filter RequestFilter) ([]RequestResponse, int64, error)
	GetRequest(ctx context.Context, principal model.Principal, id string) (RequestResponse, error)
}

type requestService struct {
	requests  repository.RequestRepository
	approvals repository.ApprovalRepository
	refdata   repository.RefDataRepository
	users     repository.UserRepository
	audit     repository.AuditRepository
	txm       repository.TransactionManager
	events    EventPublisher
}

func NewRequestService(
	requests repository.RequestRepository,
	approvals repository.ApprovalRepository,
	refdata repository.RefDataRepository,
	users repository.UserRepository,
	audit repository.AuditRepository,
	txm repository.TransactionManager,
	events EventPublisher,
) RequestService {
	return &requestService{
		requests:  requests,
		approvals: approvals,
		refdata:   refdata,
		users:     users,
		audit:     audit,
		txm:       txm,
		events:    events,
	}
}

// --- Implementation ---

// SubmitRequest creates a request together with its initial approval row
// and attachments in a single transaction. Submission is group-gated:
// only admins or members of the request type's owning group may submit.
func (s *requestService) SubmitRequest(ctx context.Context, principal model.Principal, input SubmitRequestInput) (RequestResponse, error) {
	typeID, err := uuid.Parse(input.RequestTypeID)
	if err != nil {
		return RequestResponse{}, apperror.InvalidInput("invalid request_type_id")
	}

	requestType, err := s.refdata.FindRequestTypeByID(ctx, typeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RequestResponse{}, apperror.NotFound("request type not found")
		}
		return RequestResponse{}, apperror.Internal(err)
	}

	// Group gate: types with no owning group are open to everyone
	if requestType.GroupID != nil && !principal.IsAdmin() && !principal.InGroup(*requestType.GroupID) {
		return RequestResponse{}, apperror.Forbidden("you are not a member of the group owning this request type")
	}

	data := input.Data
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	if err := model.ValidateRequestData(requestType.Name, data); err != nil {
		return RequestResponse{}, apperror.InvalidInput(err.Error())
	}

	approverID, err := s.resolveApprover(ctx, principal, requestType)
	if err != nil {
		return RequestResponse{}, err
	}

	request := model.Request{
		Title:         input.Title,
		Description:   input.Description,
		UserID:        principal.UserID,
		RequestTypeID: requestType.ID,
		Data:          string(data),
		Status:        model.StatusPending,
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.requests.Create(txCtx, &request); err != nil {
			return apperror.Internal(err)
		}

		approval := model.Approval{
			RequestID:  request.ID,
			ApproverID: approverID,
			Status:     model.StatusPending,
		}
		if err := s.approvals.Create(txCtx, &approval); err != nil {
			return apperror.Internal(err)
		}

		if len(input.Attachments) > 0 {
			attachments := make([]model.Attachment, 0, len(input.Attachments))
			for _, a := range input.Attachments {
				attachments = append(attachments, model.Attachment{
					RequestID: request.ID,
					FileName:  a.FileName,
					FileURL:   a.FileURL,
					FileSize:  a.FileSize,
					FileType:  a.FileType,
				})
			}
			if err := s.requests.CreateAttachments(txCtx, attachments); err != nil {
				return apperror.Internal(err)
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"request_type": requestType.Name,
			"approver_id":  approverID.String(),
		})
		userID := principal.UserID
		entry := model.AuditLog{
			UserID:     &userID,
			Action:     model.ActionSubmitRequest,
			EntityID:   request.ID.String(),
			EntityName: request.Title,
			Details:    string(details),
		}
		if err := s.audit.Log(txCtx, &entry); err != nil {
			return apperror.Internal(err)
		}

		return nil
	})
	if err != nil {
		return RequestResponse{}, err
	}

	created, err := s.requests.FindByID(ctx, request.ID)
	if err != nil {
		return RequestResponse{}, apperror.Internal(err)
	}

	if s.events != nil {
		s.events.Publish(EventRequestSubmitted, map[string]string{
			"request_id": created.ID.String(),
			"title":      created.Title,
			"status":     created.Status,
		})
	}

	return toRequestResponse(*created), nil
}

// resolveApprover picks the initial approver: the creator's designated
// approver, falling back to a manager of the owning group for non-change
// types. Change requests strictly require a designated approver.
func (s *requestService) resolveApprover(ctx context.Context, principal model.Principal, requestType *model.RequestType) (uuid.UUID, error) {
	if principal.ApproverID != nil {
		return *principal.ApproverID, nil
	}

	if requestType.Name == model.RequestTypeChange {
		return uuid.Nil, apperror.InvalidState("no approver assigned to this user")
	}

	if requestType.GroupID != nil {
		manager, err := s.users.FindGroupManager(ctx, *requestType.GroupID)
		if err == nil {
			return manager.ID, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, apperror.Internal(err)
		}
	}

	return uuid.Nil, apperror.InvalidState("no approver could be resolved for this request")
}

func (s *requestService) ListRequests(ctx context.Context, principal model.Principal, filter RequestFilter) ([]RequestResponse, int64, error) {
	requests, err := s.listVisible(ctx, principal)
	if err != nil {
		return nil, 0, apperror.Internal(err)
	}

	filtered := filterRequests(requests, filter)
	total := int64(len(filtered))

	params := pagination.Clamp(filter.Page, filter.Limit)
	start := params.Offset
	if start > len(filtered) {
		start = len(filtered)
	}
	end := start + params.Limit
	if end > len(filtered) {
		end = len(filtered)
	}

	result := make([]RequestResponse, 0, end-start)
	for _, req := range filtered[start:end] {
		result = append(result, toRequestResponse(req))
	}
	return result, total, nil
}

func (s *requestService) GetRequest(ctx context.Context, principal model.Principal, id string) (RequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return RequestResponse{}, apperror.InvalidInput("invalid request id")
	}

	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RequestResponse{}, apperror.NotFound("request not found")
		}
		return RequestResponse{}, apperror.Internal(err)
	}

	if !s.visibleTo(principal, request) {
		// Invisible requests read as missing, not forbidden
		return RequestResponse{}, apperror.NotFound("request not found")
	}

	return toRequestResponse(*request), nil
}

func (s *requestService) listVisible(ctx context.Context, principal model.Principal) ([]model.Request, error) {
	switch principal.Tier {
	case model.TierAdmin:
		return s.requests.ListAll(ctx)
	case model.TierManager:
		return s.requests.ListForManager(ctx, principal.GroupIDs, principal.UserID)
	default:
		return s.requests.ListByUser(ctx, principal.UserID)
	}
}

func (s *requestService) visibleTo(principal model.Principal, request *model.Request) bool {
	switch principal.Tier {
	case model.TierAdmin:
		return true
	case model.TierManager:
		if request.RequestType != nil && request.RequestType.GroupID != nil && principal.InGroup(*request.RequestType.GroupID) {
			return true
		}
		for _, a := range request.Approvals {
			if a.ApproverID == principal.UserID {
				return true
			}
		}
		return false
	default:
		return request.UserID == principal.UserID
	}
}

// --- Helpers ---

func filterRequests(requests []model.Request, filter RequestFilter) []model.Request {
	groupSet := make(map[string]bool, len(filter.GroupIDs))
	for _, id := range filter.GroupIDs {
		groupSet[id] = true
	}

	filtered := make([]model.Request, 0, len(requests))
	for _, req := range requests {
		if len(groupSet) > 0 {
			if req.RequestType == nil || req.RequestType.GroupID == nil || !groupSet[req.RequestType.GroupID.String()] {
				continue
			}
		}
		if filter.TypeName != "" {
			if req.RequestType == nil || !strings.EqualFold(req.RequestType.Name, filter.TypeName) {
				continue
			}
		}
		if filter.Search != "" {
			if !strings.Contains(strings.ToLower(req.Title), strings.ToLower(filter.Search)) {
				continue
			}
		}
		filtered = append(filtered, req)
	}
	return filtered
}

func toRequestResponse(req model.Request) RequestResponse {
	resp := RequestResponse{
		ID:          req.ID.String(),
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		CreatedBy:   req.UserID.String(),
		Data:        json.RawMessage(req.Data),
		Approvals:   make([]ApprovalSummary, 0, len(req.Approvals)),
		Attachments: make([]AttachmentSummary, 0, len(req.Attachments)),
		CreatedAt:   req.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   req.UpdatedAt.Format(time.RFC3339),
	}

	if req.RequestType != nil {
		resp.Type = req.RequestType.Name
		if req.RequestType.Group != nil {
			resp.GroupName = req.RequestType.Group.Name
		}
	}
	if req.User != nil {
		resp.CreatorName = req.User.Name
	}

	for _, a := range req.Approvals {
		summary := ApprovalSummary{
			ID:         a.ID.String(),
			ApproverID: a.ApproverID.String(),
			Status:     a.Status,
			Notes:      a.Notes,
			UpdatedAt:  a.UpdatedAt.Format(time.RFC3339),
		}
		if a.Approver != nil {
			summary.ApproverName = a.Approver.Name
		}
		resp.Approvals = append(resp.Approvals, summary)
	}

	for _, att := range req.Attachments {
		resp.Attachments = append(resp.Attachments, AttachmentSummary{
			ID:       att.ID.String(),
			FileName: att.FileName,
			FileURL:  att.FileURL,
			FileSize: att.FileSize,
			FileType: att.FileType,
		})
	}

	return resp
}
