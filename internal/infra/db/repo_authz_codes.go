package db

import (
	"context"
	"errors"
	"time"

	"ohmage/internal/domain"

	"gorm.io/gorm"
)

type AuthorizationCodeRepository struct {
	db *gorm.DB
}

func NewAuthorizationCodeRepository(db *gorm.DB) *AuthorizationCodeRepository {
	return &AuthorizationCodeRepository{db: db}
}

func (r *AuthorizationCodeRepository) Get(ctx context.Context, code string) (*domain.AuthorizationCode, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model AuthorizationCodeModel
	err := r.db.WithContext(ctx).First(&model, "code = ?", code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return authorizationCodeFromModel(model), nil
}

func (r *AuthorizationCodeRepository) Create(ctx context.Context, code domain.AuthorizationCode) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := AuthorizationCodeModel{
		Code:      code.Code,
		ClientID:  code.ClientID,
		Username:  code.Username,
		Scopes:    joinScopes(code.Scopes),
		CreatedAt: code.Created,
		ExpiresAt: code.Expires,
		UsedAt:    code.UsedAt,
	}
	err := r.db.WithContext(ctx).Create(&model).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrDuplicate
	}
	return err
}

// MarkUsed burns a code. Guarding on used_at IS NULL makes the burn
// atomic: with two racing exchanges only one sees a row change.
func (r *AuthorizationCodeRepository) MarkUsed(ctx context.Context, code string, usedAt time.Time) error {
	if r.db == nil {
		return errDBUnavailable
	}
	res := r.db.WithContext(ctx).
		Model(&AuthorizationCodeModel{}).
		Where("code = ? AND used_at IS NULL", code).
		Update("used_at", usedAt)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func authorizationCodeFromModel(model AuthorizationCodeModel) *domain.AuthorizationCode {
	return &domain.AuthorizationCode{
		Code:     model.Code,
		ClientID: model.ClientID,
		Username: model.Username,
		Scopes:   splitScopes(model.Scopes),
		Created:  model.CreatedAt,
		Expires:  model.ExpiresAt,
		UsedAt:   model.UsedAt,
	}
}
