package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"ohmage/internal/domain"
)

const defaultAuthenticationTokenLifetime = 24 * time.Hour

type IssueAuthenticationTokenRequest struct {
	Username string
	Password string
}

type IssueAuthenticationTokenResponse struct {
	Token domain.AuthenticationToken
}

// IssueAuthenticationToken trades a username and password for a fresh
// token pair. Unknown users and bad passwords fail identically.
type IssueAuthenticationToken struct {
	Users         UserRepository
	Tokens        AuthenticationTokenRepository
	TokenLifetime time.Duration
	Now           Clock
}

func (uc *IssueAuthenticationToken) Execute(ctx context.Context, req IssueAuthenticationTokenRequest) (*IssueAuthenticationTokenResponse, error) {
	if req.Username == "" || req.Password == "" {
		return nil, domain.ErrInvalidInput
	}
	user, err := uc.Users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	if user.Disabled {
		return nil, domain.ErrAccountDisabled
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, domain.ErrUnauthorized
	}

	now := uc.now()
	token := domain.AuthenticationToken{
		AccessToken:  uuid.NewString(),
		RefreshToken: uuid.NewString(),
		Username:     user.Username,
		Granted:      now,
		Expires:      now.Add(uc.lifetime()),
	}
	if err := uc.Tokens.Create(ctx, token); err != nil {
		return nil, err
	}
	return &IssueAuthenticationTokenResponse{Token: token}, nil
}

func (uc *IssueAuthenticationToken) lifetime() time.Duration {
	if uc.TokenLifetime > 0 {
		return uc.TokenLifetime
	}
	return defaultAuthenticationTokenLifetime
}

func (uc *IssueAuthenticationToken) now() time.Time {
	if uc != nil && uc.Now != nil {
		return uc.Now()
	}
	return time.Now().UTC()
}

type RefreshAuthenticationTokenRequest struct {
	RefreshToken string
}

type RefreshAuthenticationTokenResponse struct {
	Token domain.AuthenticationToken
}

// RefreshAuthenticationToken rotates a token pair. The old pair is
// invalidated before the successor is persisted, so a stolen refresh
// token can be used at most once.
type RefreshAuthenticationToken struct {
	Tokens        AuthenticationTokenRepository
	TokenLifetime time.Duration
	Now           Clock
}

func (uc *RefreshAuthenticationToken) Execute(ctx context.Context, req RefreshAuthenticationTokenRequest) (*RefreshAuthenticationTokenResponse, error) {
	if req.RefreshToken == "" {
		return nil, domain.ErrInvalidInput
	}
	current, err := uc.Tokens.GetByRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	if !current.Refreshable() {
		return nil, domain.ErrUnauthorized
	}
	if err := uc.Tokens.Invalidate(ctx, current.AccessToken); err != nil {
		return nil, err
	}

	now := uc.now()
	next := domain.AuthenticationToken{
		AccessToken:  uuid.NewString(),
		RefreshToken: uuid.NewString(),
		Username:     current.Username,
		Granted:      now,
		Expires:      now.Add(uc.lifetime()),
	}
	if err := uc.Tokens.Create(ctx, next); err != nil {
		return nil, err
	}
	return &RefreshAuthenticationTokenResponse{Token: next}, nil
}

func (uc *RefreshAuthenticationToken) lifetime() time.Duration {
	if uc.TokenLifetime > 0 {
		return uc.TokenLifetime
	}
	return defaultAuthenticationTokenLifetime
}

func (uc *RefreshAuthenticationToken) now() time.Time {
	if uc != nil && uc.Now != nil {
		return uc.Now()
	}
	return time.Now().UTC()
}

type InvalidateAuthenticationTokenRequest struct {
	AccessToken string
}

// InvalidateAuthenticationToken ends a session. The token stays on
// record so later lookups report it as no longer valid rather than
// unknown.
type InvalidateAuthenticationToken struct {
	Tokens AuthenticationTokenRepository
}

func (uc *InvalidateAuthenticationToken) Execute(ctx context.Context, req InvalidateAuthenticationTokenRequest) error {
	if req.AccessToken == "" {
		return domain.ErrInvalidInput
	}
	if err := uc.Tokens.Invalidate(ctx, req.AccessToken); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrUnauthorized
		}
		return err
	}
	return nil
}
