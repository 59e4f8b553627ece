package service

import (
	"context"
	"encoding/json"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperror"
)

type AuditLogResponse struct {
	ID         string          `json:"id"`
	UserID     *string         `json:"user_id"`
	UserName   string          `json:"user_name,omitempty"`
	Action     string          `json:"action"`
	EntityID   string          `json:"entity_id"`
	EntityName string          `json:"entity_name,omitempty"`
	Details    json.RawMessage `json:"details"`
	CreatedAt  string          `json:"created_at"`
}

type AuditService interface {
	ListLogs(ctx context.Context, principal model.Principal, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	audit repository.AuditRepository
}

func NewAuditService(audit repository.AuditRepository) AuditService {
	return &auditService{audit: audit}
}

func (s *auditService) ListLogs(ctx context.Context, principal model.Principal, page, limit int) ([]AuditLogResponse, int64, error) {
	if !principal.IsAdmin() {
		return nil, 0, apperror.Forbidden("audit logs are admin only")
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	logs, total, err := s.audit.List(ctx, page, limit)
	if err != nil {
		return nil, 0, apperror.Internal(err)
	}

	responses := make([]AuditLogResponse, 0, len(logs))
	for _, entry := range logs {
		resp := AuditLogResponse{
			ID:         entry.ID.String(),
			Action:     entry.Action,
			EntityID:   entry.EntityID,
			EntityName: entry.EntityName,
			Details:    json.RawMessage(entry.Details),
			CreatedAt:  entry.CreatedAt.Format(time.RFC3339),
		}
		if entry.UserID != nil {
			id := entry.UserID.String()
			resp.UserID = &id
		}
		if entry.User != nil {
			resp.UserName = entry.User.Name
		}
		responses = append(responses, resp)
	}
	return responses, total, nil
}
