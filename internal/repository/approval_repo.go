package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ApprovalRepository interface {
	Create(ctx context.Context, approval *model.Approval) error
	FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.Approval, error)
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]model.Approval, error)
	ListPendingAll(ctx context.Context) ([]model.Approval, error)
	ListPendingForManager(ctx context.Context, groupIDs []uuid.UUID, approverID uuid.UUID) ([]model.Approval, error)
	ListPendingByApprover(ctx context.Context, approverID uuid.UUID) ([]model.Approval, error)
	Update(ctx context.Context, approval *model.Approval) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type approvalRepository struct {
	db *gorm.DB
}

func NewApprovalRepository(db *gorm.DB) ApprovalRepository {
	return &approvalRepository{db: db}
}

func (r *approvalRepository) Create(ctx context.Context, approval *model.Approval) error {
	return GetDB(ctx, r.db).Create(approval).Error
}

func (r *approvalRepository) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.Approval, error) {
	var approval model.Approval
	if err := GetDB(ctx, r.db).
		Preload("Approver").
		Preload("Request").
		Preload("Request.User").
		Preload("Request.RequestType").
		First(&approval, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &approval, nil
}

func (r *approvalRepository) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]model.Approval, error) {
	var approvals []model.Approval
	if err := GetDB(ctx, r.db).
		Where("request_id = ?", requestID).
		Order("created_at asc").Find(&approvals).Error; err != nil {
		return nil, err
	}
	return approvals, nil
}

func (r *approvalRepository) ListPendingAll(ctx context.Context) ([]model.Approval, error) {
	var approvals []model.Approval
	if err := r.withRelations(GetDB(ctx, r.db)).
		Where("approvals.status = ?", model.StatusPending).
		Order("approvals.created_at DESC").Find(&approvals).Error; err != nil {
		return nil, err
	}
	return approvals, nil
}

// ListPendingForManager returns pending approvals whose request type
// belongs to one of the manager's groups, plus any directly assigned to
// the manager regardless of group.
func (r *approvalRepository) ListPendingForManager(ctx context.Context, groupIDs []uuid.UUID, approverID uuid.UUID) ([]model.Approval, error) {
	db := GetDB(ctx, r.db)

	inGroups := db.Table("requests").Select("requests.id").
		Joins("JOIN request_types ON request_types.id = requests.request_type_id").
		Where("request_types.group_id IN ?", groupIDs)

	var approvals []model.Approval
	if err := r.withRelations(db).
		Where("approvals.status = ?", model.StatusPending).
		Where("approvals.request_id IN (?) OR approvals.approver_id = ?", inGroups, approverID).
		Order("approvals.created_at DESC").Find(&approvals).Error; err != nil {
		return nil, err
	}
	return approvals, nil
}

func (r *approvalRepository) ListPendingByApprover(ctx context.Context, approverID uuid.UUID) ([]model.Approval, error) {
	var approvals []model.Approval
	if err := r.withRelations(GetDB(ctx, r.db)).
		Where("approvals.status = ? AND approvals.approver_id = ?", model.StatusPending, approverID).
		Order("approvals.created_at DESC").Find(&approvals).Error; err != nil {
		return nil, err
	}
	return approvals, nil
}

func (r *approvalRepository) Update(ctx context.Context, approval *model.Approval) error {
	return GetDB(ctx, r.db).Save(approval).Error
}

func (r *approvalRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Approval{}).Error
}

func (r *approvalRepository) withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Approver").
		Preload("Request").
		Preload("Request.User").
		Preload("Request.RequestType").
		Preload("Request.Attachments")
}
