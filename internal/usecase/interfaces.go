package usecase

import (
	"context"
	"time"

	"ohmage/internal/domain"
)

type AuthenticationTokenStore interface {
	GetByAccessToken(ctx context.Context, accessToken string) (*domain.AuthenticationToken, error)
}

type AuthorizationTokenStore interface {
	GetByAccessToken(ctx context.Context, accessToken string) (*domain.AuthorizationToken, error)
}

type AuthenticationTokenRepository interface {
	AuthenticationTokenStore
	GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.AuthenticationToken, error)
	Create(ctx context.Context, token domain.AuthenticationToken) error
	Invalidate(ctx context.Context, accessToken string) error
}

type AuthorizationTokenRepository interface {
	AuthorizationTokenStore
	GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.AuthorizationToken, error)
	Create(ctx context.Context, token domain.AuthorizationToken) error
	Revoke(ctx context.Context, accessToken string) error
}

type AuthorizationCodeRepository interface {
	Get(ctx context.Context, code string) (*domain.AuthorizationCode, error)
	Create(ctx context.Context, code domain.AuthorizationCode) error
	MarkUsed(ctx context.Context, code string, usedAt time.Time) error
}

type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Create(ctx context.Context, user domain.User) error
}

type ClientRepository interface {
	GetByID(ctx context.Context, clientID string) (*domain.Client, error)
	Create(ctx context.Context, client domain.Client) error
}

type AuditEventRepository interface {
	Append(ctx context.Context, event domain.AuditEvent) error
}

type Clock func() time.Time
