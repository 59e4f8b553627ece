package repository

import (
	"context"
	"time"

	"backend/internal/model"

	"gorm.io/gorm"
)

type FileTokenRepository interface {
	Create(ctx context.Context, token *model.FileToken) error
	FindByToken(ctx context.Context, token string) (*model.FileToken, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type fileTokenRepository struct {
	db *gorm.DB
}

func NewFileTokenRepository(db *gorm.DB) FileTokenRepository {
	return &fileTokenRepository{db: db}
}

func (r *fileTokenRepository) Create(ctx context.Context, token *model.FileToken) error {
	return GetDB(ctx, r.db).Create(token).Error
}

func (r *fileTokenRepository) FindByToken(ctx context.Context, token string) (*model.FileToken, error) {
	var ft model.FileToken
	if err := GetDB(ctx, r.db).Where("token = ?", token).First(&ft).Error; err != nil {
		return nil, err
	}
	return &ft, nil
}

// DeleteExpired removes all tokens past their expiry. Safe to run
// concurrently with issuance: new tokens always carry a future expiry.
func (r *fileTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := GetDB(ctx, r.db).Where("expires < ?", now).Delete(&model.FileToken{})
	return res.RowsAffected, res.Error
}
