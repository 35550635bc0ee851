package db

import (
	"context"
	"errors"

	"ohmage/internal/domain"

	"gorm.io/gorm"
)

type AuthorizationTokenRepository struct {
	db *gorm.DB
}

func NewAuthorizationTokenRepository(db *gorm.DB) *AuthorizationTokenRepository {
	return &AuthorizationTokenRepository{db: db}
}

func (r *AuthorizationTokenRepository) GetByAccessToken(ctx context.Context, accessToken string) (*domain.AuthorizationToken, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model AuthorizationTokenModel
	err := r.db.WithContext(ctx).First(&model, "access_token = ?", accessToken).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return authorizationTokenFromModel(model), nil
}

func (r *AuthorizationTokenRepository) GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.AuthorizationToken, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model AuthorizationTokenModel
	err := r.db.WithContext(ctx).First(&model, "refresh_token = ?", refreshToken).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return authorizationTokenFromModel(model), nil
}

func (r *AuthorizationTokenRepository) Create(ctx context.Context, token domain.AuthorizationToken) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := AuthorizationTokenModel{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ClientID:     token.ClientID,
		Username:     token.Username,
		Scopes:       joinScopes(token.Scopes),
		Granted:      token.Granted,
		Expires:      token.Expires,
		Revoked:      token.Revoked,
	}
	err := r.db.WithContext(ctx).Create(&model).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrDuplicate
	}
	return err
}

func (r *AuthorizationTokenRepository) Revoke(ctx context.Context, accessToken string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	res := r.db.WithContext(ctx).
		Model(&AuthorizationTokenModel{}).
		Where("access_token = ?", accessToken).
		Update("revoked", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func authorizationTokenFromModel(model AuthorizationTokenModel) *domain.AuthorizationToken {
	return &domain.AuthorizationToken{
		AccessToken:  model.AccessToken,
		RefreshToken: model.RefreshToken,
		ClientID:     model.ClientID,
		Username:     model.Username,
		Scopes:       splitScopes(model.Scopes),
		Granted:      model.Granted,
		Expires:      model.Expires,
		Revoked:      model.Revoked,
	}
}
