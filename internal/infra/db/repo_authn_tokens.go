package db

import (
	"context"
	"errors"

	"ohmage/internal/domain"

	"gorm.io/gorm"
)

type AuthenticationTokenRepository struct {
	db *gorm.DB
}

func NewAuthenticationTokenRepository(db *gorm.DB) *AuthenticationTokenRepository {
	return &AuthenticationTokenRepository{db: db}
}

func (r *AuthenticationTokenRepository) GetByAccessToken(ctx context.Context, accessToken string) (*domain.AuthenticationToken, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model AuthenticationTokenModel
	err := r.db.WithContext(ctx).First(&model, "access_token = ?", accessToken).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return authenticationTokenFromModel(model), nil
}

func (r *AuthenticationTokenRepository) GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.AuthenticationToken, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model AuthenticationTokenModel
	err := r.db.WithContext(ctx).First(&model, "refresh_token = ?", refreshToken).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return authenticationTokenFromModel(model), nil
}

func (r *AuthenticationTokenRepository) Create(ctx context.Context, token domain.AuthenticationToken) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := AuthenticationTokenModel{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Username:     token.Username,
		Granted:      token.Granted,
		Expires:      token.Expires,
		Invalidated:  token.Invalidated,
	}
	err := r.db.WithContext(ctx).Create(&model).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrDuplicate
	}
	return err
}

func (r *AuthenticationTokenRepository) Invalidate(ctx context.Context, accessToken string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	res := r.db.WithContext(ctx).
		Model(&AuthenticationTokenModel{}).
		Where("access_token = ?", accessToken).
		Update("invalidated", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func authenticationTokenFromModel(model AuthenticationTokenModel) *domain.AuthenticationToken {
	return &domain.AuthenticationToken{
		AccessToken:  model.AccessToken,
		RefreshToken: model.RefreshToken,
		Username:     model.Username,
		Granted:      model.Granted,
		Expires:      model.Expires,
		Invalidated:  model.Invalidated,
	}
}
