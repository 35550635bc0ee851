package db

import (
	"context"
	"errors"

	"ohmage/internal/domain"

	"gorm.io/gorm"
)

type ClientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

func (r *ClientRepository) GetByID(ctx context.Context, clientID string) (*domain.Client, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model ClientModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", clientID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return clientFromModel(model), nil
}

func (r *ClientRepository) Create(ctx context.Context, client domain.Client) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := ClientModel{
		ID:          client.ID,
		SecretHash:  client.SecretHash,
		Name:        client.Name,
		Description: client.Description,
		Owner:       client.Owner,
		Disabled:    client.Disabled,
		CreatedAt:   client.CreatedAt,
	}
	err := r.db.WithContext(ctx).Create(&model).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrDuplicate
	}
	return err
}

func clientFromModel(model ClientModel) *domain.Client {
	return &domain.Client{
		ID:          model.ID,
		SecretHash:  model.SecretHash,
		Name:        model.Name,
		Description: model.Description,
		Owner:       model.Owner,
		Disabled:    model.Disabled,
		CreatedAt:   model.CreatedAt,
	}
}
