package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestRepository persists requests and their attachments. The List
// variants mirror the three visibility tiers: admins see everything,
// managers see requests whose type belongs to one of their groups or
// where they are the named approver, users see their own.
type RequestRepository interface {
	Create(ctx context.Context, req *model.Request) error
	CreateAttachments(ctx context.Context, attachments []model.Attachment) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Request, error)
	ListAll(ctx context.Context) ([]model.Request, error)
	ListForManager(ctx context.Context, groupIDs []uuid.UUID, approverID uuid.UUID) ([]model.Request, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Request, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

type requestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, req *model.Request) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *requestRepository) CreateAttachments(ctx context.Context, attachments []model.Attachment) error {
	if len(attachments) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&attachments).Error
}

func (r *requestRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	var req model.Request
	if err := r.withRelations(GetDB(ctx, r.db)).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) ListAll(ctx context.Context) ([]model.Request, error) {
	var requests []model.Request
	if err := r.withRelations(GetDB(ctx, r.db)).
		Order("created_at DESC").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *requestRepository) ListForManager(ctx context.Context, groupIDs []uuid.UUID, approverID uuid.UUID) ([]model.Request, error) {
	db := GetDB(ctx, r.db)

	assigned := db.Table("approvals").Select("request_id").Where("approver_id = ?", approverID)
	inGroups := db.Table("request_types").Select("id").Where("group_id IN ?", groupIDs)

	var requests []model.Request
	if err := r.withRelations(db).
		Where("request_type_id IN (?) OR id IN (?)", inGroups, assigned).
		Order("created_at DESC").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *requestRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Request, error) {
	var requests []model.Request
	if err := r.withRelations(GetDB(ctx, r.db)).
		Where("user_id = ?", userID).
		Order("created_at DESC").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *requestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return GetDB(ctx, r.db).Model(&model.Request{}).
		Where("id = ?", id).Update("status", status).Error
}

func (r *requestRepository) withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("User").
		Preload("RequestType").
		Preload("RequestType.Group").
		Preload("Approvals").
		Preload("Approvals.Approver").
		Preload("Attachments")
}
