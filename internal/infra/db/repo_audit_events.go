package db

import (
	"context"

	"github.com/google/uuid"

	"ohmage/internal/domain"

	"gorm.io/gorm"
)

type AuditEventRepository struct {
	db *gorm.DB
}

func NewAuditEventRepository(db *gorm.DB) *AuditEventRepository {
	return &AuditEventRepository{db: db}
}

func (r *AuditEventRepository) Append(ctx context.Context, event domain.AuditEvent) error {
	if r.db == nil {
		return errDBUnavailable
	}
	id := event.ID
	if id == "" {
		id = uuid.NewString()
	}
	model := AuditEventModel{
		ID:         id,
		Username:   event.Username,
		ClientID:   event.ClientID,
		EventType:  string(event.EventType),
		Result:     string(event.Result),
		Detail:     event.Detail,
		RemoteAddr: event.RemoteAddr,
		CreatedAt:  event.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

// ListRecent returns the newest events first, for operator inspection.
func (r *AuditEventRepository) ListRecent(ctx context.Context, limit int) ([]domain.AuditEvent, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	if limit <= 0 {
		limit = 100
	}
	var models []AuditEventModel
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.AuditEvent, 0, len(models))
	for _, model := range models {
		out = append(out, domain.AuditEvent{
			ID:         model.ID,
			Username:   model.Username,
			ClientID:   model.ClientID,
			EventType:  domain.AuditEventType(model.EventType),
			Result:     domain.AuditResult(model.Result),
			Detail:     model.Detail,
			RemoteAddr: model.RemoteAddr,
			CreatedAt:  model.CreatedAt,
		})
	}
	return out, nil
}
