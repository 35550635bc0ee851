package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"ohmage/internal/domain"
)

const (
	defaultAuthorizationTokenLifetime = time.Hour
	defaultAuthorizationCodeLifetime  = 10 * time.Minute

	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeRefreshToken      = "refresh_token"
)

type GrantAuthorizationCodeRequest struct {
	Username string
	ClientID string
	Scopes   []string
}

type GrantAuthorizationCodeResponse struct {
	Code domain.AuthorizationCode
}

// GrantAuthorizationCode records an end user's approval of a third
// party. The code is one-shot and short-lived; the client must trade
// it for a token before it expires.
type GrantAuthorizationCode struct {
	Clients      ClientRepository
	Codes        AuthorizationCodeRepository
	CodeLifetime time.Duration
	Now          Clock
}

func (uc *GrantAuthorizationCode) Execute(ctx context.Context, req GrantAuthorizationCodeRequest) (*GrantAuthorizationCodeResponse, error) {
	if req.Username == "" || req.ClientID == "" {
		return nil, domain.ErrInvalidInput
	}
	if len(req.Scopes) == 0 {
		return nil, fmt.Errorf("%w: at least one scope is required", domain.ErrInvalidInput)
	}
	client, err := uc.Clients.GetByID(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown client", domain.ErrInvalidInput)
		}
		return nil, err
	}
	if client.Disabled {
		return nil, fmt.Errorf("%w: client is disabled", domain.ErrInvalidInput)
	}

	now := uc.now()
	code := domain.AuthorizationCode{
		Code:     uuid.NewString(),
		ClientID: client.ID,
		Username: req.Username,
		Scopes:   append([]string(nil), req.Scopes...),
		Created:  now,
		Expires:  now.Add(uc.lifetime()),
	}
	if err := uc.Codes.Create(ctx, code); err != nil {
		return nil, err
	}
	return &GrantAuthorizationCodeResponse{Code: code}, nil
}

func (uc *GrantAuthorizationCode) lifetime() time.Duration {
	if uc.CodeLifetime > 0 {
		return uc.CodeLifetime
	}
	return defaultAuthorizationCodeLifetime
}

func (uc *GrantAuthorizationCode) now() time.Time {
	if uc != nil && uc.Now != nil {
		return uc.Now()
	}
	return time.Now().UTC()
}

type ExchangeAuthorizationTokenRequest struct {
	ClientID     string
	ClientSecret string
	GrantType    string
	Code         string
	RefreshToken string
}

type ExchangeAuthorizationTokenResponse struct {
	Token domain.AuthorizationToken
}

// ExchangeAuthorizationToken is the token endpoint for third parties.
// Both grants require the client secret; a code is burned on first
// use and a refresh token is rotated on use.
type ExchangeAuthorizationToken struct {
	Clients       ClientRepository
	Codes         AuthorizationCodeRepository
	Tokens        AuthorizationTokenRepository
	TokenLifetime time.Duration
	Now           Clock
}

func (uc *ExchangeAuthorizationToken) Execute(ctx context.Context, req ExchangeAuthorizationTokenRequest) (*ExchangeAuthorizationTokenResponse, error) {
	if req.ClientID == "" || req.ClientSecret == "" {
		return nil, domain.ErrInvalidInput
	}
	client, err := uc.Clients.GetByID(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	if client.Disabled {
		return nil, domain.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(client.SecretHash), []byte(req.ClientSecret)); err != nil {
		return nil, domain.ErrUnauthorized
	}

	switch req.GrantType {
	case GrantTypeAuthorizationCode:
		return uc.exchangeCode(ctx, client.ID, req.Code)
	case GrantTypeRefreshToken:
		return uc.exchangeRefreshToken(ctx, client.ID, req.RefreshToken)
	default:
		return nil, fmt.Errorf("%w: unsupported grant type %q", domain.ErrInvalidInput, req.GrantType)
	}
}

func (uc *ExchangeAuthorizationToken) exchangeCode(ctx context.Context, clientID, rawCode string) (*ExchangeAuthorizationTokenResponse, error) {
	if rawCode == "" {
		return nil, domain.ErrInvalidInput
	}
	code, err := uc.Codes.Get(ctx, rawCode)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	now := uc.now()
	if code.ClientID != clientID || !code.ExchangeableAt(now) {
		return nil, domain.ErrUnauthorized
	}
	if err := uc.Codes.MarkUsed(ctx, code.Code, now); err != nil {
		// A lost race on the burn means the code was just spent.
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	return uc.mint(ctx, clientID, code.Username, code.Scopes)
}

func (uc *ExchangeAuthorizationToken) exchangeRefreshToken(ctx context.Context, clientID, refreshToken string) (*ExchangeAuthorizationTokenResponse, error) {
	if refreshToken == "" {
		return nil, domain.ErrInvalidInput
	}
	current, err := uc.Tokens.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	if current.ClientID != clientID || current.Revoked {
		return nil, domain.ErrUnauthorized
	}
	if err := uc.Tokens.Revoke(ctx, current.AccessToken); err != nil {
		return nil, err
	}
	return uc.mint(ctx, clientID, current.Username, current.Scopes)
}

func (uc *ExchangeAuthorizationToken) mint(ctx context.Context, clientID, username string, scopes []string) (*ExchangeAuthorizationTokenResponse, error) {
	now := uc.now()
	token := domain.AuthorizationToken{
		AccessToken:  uuid.NewString(),
		RefreshToken: uuid.NewString(),
		ClientID:     clientID,
		Username:     username,
		Scopes:       append([]string(nil), scopes...),
		Granted:      now,
		Expires:      now.Add(uc.lifetime()),
	}
	if err := uc.Tokens.Create(ctx, token); err != nil {
		return nil, err
	}
	return &ExchangeAuthorizationTokenResponse{Token: token}, nil
}

func (uc *ExchangeAuthorizationToken) lifetime() time.Duration {
	if uc.TokenLifetime > 0 {
		return uc.TokenLifetime
	}
	return defaultAuthorizationTokenLifetime
}

func (uc *ExchangeAuthorizationToken) now() time.Time {
	if uc != nil && uc.Now != nil {
		return uc.Now()
	}
	return time.Now().UTC()
}

type RevokeAuthorizationTokenRequest struct {
	AccessToken string

	// Exactly one of the two identifies the caller: the end user who
	// granted the token or the client holding it.
	Username string
	ClientID string
}

// RevokeAuthorizationToken withdraws a bearer token. Only the granting
// user or the holding client may revoke it.
type RevokeAuthorizationToken struct {
	Tokens AuthorizationTokenRepository
}

func (uc *RevokeAuthorizationToken) Execute(ctx context.Context, req RevokeAuthorizationTokenRequest) error {
	if req.AccessToken == "" {
		return domain.ErrInvalidInput
	}
	token, err := uc.Tokens.GetByAccessToken(ctx, req.AccessToken)
	if err != nil {
		return err
	}
	allowed := (req.Username != "" && token.Username == req.Username) ||
		(req.ClientID != "" && token.ClientID == req.ClientID)
	if !allowed {
		return domain.ErrForbidden
	}
	return uc.Tokens.Revoke(ctx, token.AccessToken)
}
