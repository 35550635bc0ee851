package db

import (
	"context"
	"errors"

	"ohmage/internal/domain"

	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model UserModel
	err := r.db.WithContext(ctx).First(&model, "username = ?", username).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return userFromModel(model), nil
}

func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := UserModel{
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		Email:        user.Email,
		Disabled:     user.Disabled,
		CreatedAt:    user.CreatedAt,
	}
	err := r.db.WithContext(ctx).Create(&model).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrDuplicate
	}
	return err
}

func userFromModel(model UserModel) *domain.User {
	return &domain.User{
		Username:     model.Username,
		PasswordHash: model.PasswordHash,
		Email:        model.Email,
		Disabled:     model.Disabled,
		CreatedAt:    model.CreatedAt,
	}
}
