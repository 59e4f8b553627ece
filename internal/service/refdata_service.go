package service

import (
	"context"
	"encoding/json"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperror"
)

type RequestTypeResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	GroupID     *string         `json:"group_id"`
	GroupName   string          `json:"group_name,omitempty"`
	Schema      json.RawMessage `json:"schema"`
}

type RefDataService interface {
	ListGroups(ctx context.Context) ([]GroupOption, error)
	ListRequestTypes(ctx context.Context, principal model.Principal) ([]RequestTypeResponse, error)
}

type refDataService struct {
	refdata repository.RefDataRepository
}

func NewRefDataService(refdata repository.RefDataRepository) RefDataService {
	return &refDataService{refdata: refdata}
}

func (s *refDataService) ListGroups(ctx context.Context) ([]GroupOption, error) {
	groups, err := s.refdata.ListGroups(ctx)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	options := make([]GroupOption, 0, len(groups))
	for _, g := range groups {
		options = append(options, GroupOption{ID: g.ID.String(), Name: g.Name})
	}
	return options, nil
}

// ListRequestTypes returns the types the caller may submit against:
// everything for admins, otherwise ungrouped types plus those owned by
// one of the caller's groups.
func (s *refDataService) ListRequestTypes(ctx context.Context, principal model.Principal) ([]RequestTypeResponse, error) {
	types, err := s.refdata.ListRequestTypes(ctx)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	responses := make([]RequestTypeResponse, 0, len(types))
	for _, t := range types {
		if !principal.IsAdmin() && t.GroupID != nil && !principal.InGroup(*t.GroupID) {
			continue
		}
		resp := RequestTypeResponse{
			ID:          t.ID.String(),
			Name:        t.Name,
			Description: t.Description,
			Schema:      json.RawMessage(t.Schema),
		}
		if t.GroupID != nil {
			id := t.GroupID.String()
			resp.GroupID = &id
		}
		if t.Group != nil {
			resp.GroupName = t.Group.Name
		}
		responses = append(responses, resp)
	}
	return responses, nil
}
