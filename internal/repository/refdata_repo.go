package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RefDataRepository serves the static reference entities: roles, groups
// and request types.
type RefDataRepository interface {
	FindRoleByName(ctx context.Context, name string) (*model.Role, error)
	FindRolesByNames(ctx context.Context, names []string) ([]model.Role, error)
	ListRoles(ctx context.Context) ([]model.Role, error)

	FindGroupByID(ctx context.Context, id uuid.UUID) (*model.Group, error)
	FindGroupsByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Group, error)
	ListGroups(ctx context.Context) ([]model.Group, error)

	FindRequestTypeByID(ctx context.Context, id uuid.UUID) (*model.RequestType, error)
	FindRequestTypeByName(ctx context.Context, name string) (*model.RequestType, error)
	ListRequestTypes(ctx context.Context) ([]model.RequestType, error)
}

type refDataRepository struct {
	db *gorm.DB
}

func NewRefDataRepository(db *gorm.DB) RefDataRepository {
	return &refDataRepository{db: db}
}

func (r *refDataRepository) FindRoleByName(ctx context.Context, name string) (*model.Role, error) {
	var role model.Role
	if err := GetDB(ctx, r.db).Where("name = ?", name).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *refDataRepository) FindRolesByNames(ctx context.Context, names []string) ([]model.Role, error) {
	var roles []model.Role
	if err := GetDB(ctx, r.db).Where("name IN ?", names).Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *refDataRepository) ListRoles(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	if err := GetDB(ctx, r.db).Order("created_at asc").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *refDataRepository) FindGroupByID(ctx context.Context, id uuid.UUID) (*model.Group, error) {
	var group model.Group
	if err := GetDB(ctx, r.db).First(&group, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *refDataRepository) FindGroupsByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Group, error) {
	var groups []model.Group
	if err := GetDB(ctx, r.db).Where("id IN ?", ids).Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *refDataRepository) ListGroups(ctx context.Context) ([]model.Group, error) {
	var groups []model.Group
	if err := GetDB(ctx, r.db).Order("name asc").Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *refDataRepository) FindRequestTypeByID(ctx context.Context, id uuid.UUID) (*model.RequestType, error) {
	var rt model.RequestType
	if err := GetDB(ctx, r.db).Preload("Group").First(&rt, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}

func (r *refDataRepository) FindRequestTypeByName(ctx context.Context, name string) (*model.RequestType, error) {
	var rt model.RequestType
	if err := GetDB(ctx, r.db).Preload("Group").Where("name = ?", name).First(&rt).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}

func (r *refDataRepository) ListRequestTypes(ctx context.Context) ([]model.RequestType, error) {
	var types []model.RequestType
	if err := GetDB(ctx, r.db).Preload("Group").Order("name asc").Find(&types).Error; err != nil {
		return nil, err
	}
	return types, nil
}
