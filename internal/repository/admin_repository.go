package repository

import (
	"chapter_tracker_backend/internal/model"
	"context"

	"gorm.io/gorm"
)

type AdminRepository struct {
	DB *gorm.DB
}

func NewAdminRepository(db *gorm.DB) *AdminRepository {
	return &AdminRepository{DB: db}
}

func (r *AdminRepository) Create(ctx context.Context, admin *model.Admin) error {
	return r.DB.WithContext(ctx).Create(admin).Error
}

func (r *AdminRepository) FindByID(ctx context.Context, id string) (*model.Admin, error) {
	var admin model.Admin
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&admin).Error
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

func (r *AdminRepository) FindByEmail(ctx context.Context, email string) (*model.Admin, error) {
	var admin model.Admin
	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&admin).Error
	if err != nil {
		return nil, err
	}
	return &admin, nil
}
