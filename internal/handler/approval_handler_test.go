package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeApprovalService struct {
	DecideApprovalFn       func(ctx context.Context, principal model.Principal, approvalID string, input service.DecideApprovalInput) (service.RequestResponse, error)
	ListPendingApprovalsFn func(ctx context.Context, principal model.Principal) ([]service.PendingApprovalResponse, error)
	DeleteApprovalFn       func(ctx context.Context, principal model.Principal, approvalID string) error
}

func (f *fakeApprovalService) DecideApproval(ctx context.Context, principal model.Principal, approvalID string, input service.DecideApprovalInput) (service.RequestResponse, error) {
	return f.DecideApprovalFn(ctx, principal, approvalID, input)
}

func (f *fakeApprovalService) ListPendingApprovals(ctx context.Context, principal model.Principal) ([]service.PendingApprovalResponse, error) {
	return f.ListPendingApprovalsFn(ctx, principal)
}

func (f *fakeApprovalService) DeleteApproval(ctx context.Context, principal model.Principal, approvalID string) error {
	return f.DeleteApprovalFn(ctx, principal, approvalID)
}

func testContext(t *testing.T, method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func TestApprovalHandler_DecideApproval(t *testing.T) {
	principal := model.Principal{UserID: uuid.New(), Tier: model.TierManager}
	approvalID := uuid.New().String()

	t.Run("success", func(t *testing.T) {
		svc := &fakeApprovalService{
			DecideApprovalFn: func(ctx context.Context, p model.Principal, id string, input service.DecideApprovalInput) (service.RequestResponse, error) {
				assert.Equal(t, principal.UserID, p.UserID)
				assert.Equal(t, approvalID, id)
				assert.Equal(t, model.StatusApproved, input.Status)
				return service.RequestResponse{ID: uuid.NewString(), Status: model.StatusApproved}, nil
			},
		}
		h := NewApprovalHandler(svc)

		c, w := testContext(t, http.MethodPatch, "/api/approvals/"+approvalID, `{"status":"approved"}`)
		c.Set("principal", principal)
		c.Params = gin.Params{{Key: "id", Value: approvalID}}

		h.DecideApproval(c)

		require.Equal(t, http.StatusOK, w.Code)
		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "success", resp["status"])
	})

	t.Run("invalid body rejected", func(t *testing.T) {
		h := NewApprovalHandler(&fakeApprovalService{})

		c, w := testContext(t, http.MethodPatch, "/api/approvals/"+approvalID, `{"status":"maybe"}`)
		c.Set("principal", principal)
		c.Params = gin.Params{{Key: "id", Value: approvalID}}

		h.DecideApproval(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("conflict maps to 409 with code", func(t *testing.T) {
		svc := &fakeApprovalService{
			DecideApprovalFn: func(ctx context.Context, p model.Principal, id string, input service.DecideApprovalInput) (service.RequestResponse, error) {
				return service.RequestResponse{}, apperror.InvalidState("approval is already approved")
			},
		}
		h := NewApprovalHandler(svc)

		c, w := testContext(t, http.MethodPatch, "/api/approvals/"+approvalID, `{"status":"rejected"}`)
		c.Set("principal", principal)
		c.Params = gin.Params{{Key: "id", Value: approvalID}}

		h.DecideApproval(c)

		require.Equal(t, http.StatusConflict, w.Code)
		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, apperror.CodeInvalidState, resp["error_code"])
	})
}

func TestApprovalHandler_ListPendingApprovals(t *testing.T) {
	principal := model.Principal{UserID: uuid.New(), Tier: model.TierManager}

	svc := &fakeApprovalService{
		ListPendingApprovalsFn: func(ctx context.Context, p model.Principal) ([]service.PendingApprovalResponse, error) {
			return []service.PendingApprovalResponse{{ID: uuid.NewString(), Status: model.StatusPending}}, nil
		},
	}
	h := NewApprovalHandler(svc)

	c, w := testContext(t, http.MethodGet, "/api/approvals", "")
	c.Set("principal", principal)

	h.ListPendingApprovals(c)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data []service.PendingApprovalResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 1)
}
