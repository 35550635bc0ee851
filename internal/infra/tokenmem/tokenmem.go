// Package tokenmem holds the in-memory credential stores used when no
// database is configured. Every bin is safe for concurrent use and
// hands out copies, never its own records.
package tokenmem

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"ohmage/internal/domain"
)

type AuthenticationTokenStore struct {
	mu        sync.RWMutex
	byAccess  map[string]domain.AuthenticationToken
	byRefresh map[string]string
}

func NewAuthenticationTokenStore() *AuthenticationTokenStore {
	return &AuthenticationTokenStore{
		byAccess:  make(map[string]domain.AuthenticationToken),
		byRefresh: make(map[string]string),
	}
}

func (s *AuthenticationTokenStore) GetByAccessToken(ctx context.Context, accessToken string) (*domain.AuthenticationToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, ok := s.byAccess[accessToken]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &token, nil
}

func (s *AuthenticationTokenStore) GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.AuthenticationToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	accessToken, ok := s.byRefresh[refreshToken]
	if !ok {
		return nil, domain.ErrNotFound
	}
	token := s.byAccess[accessToken]
	return &token, nil
}

func (s *AuthenticationTokenStore) Create(ctx context.Context, token domain.AuthenticationToken) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byAccess[token.AccessToken]; ok {
		return domain.ErrDuplicate
	}
	s.byAccess[token.AccessToken] = token
	s.byRefresh[token.RefreshToken] = token.AccessToken
	return nil
}

func (s *AuthenticationTokenStore) Invalidate(ctx context.Context, accessToken string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.byAccess[accessToken]
	if !ok {
		return domain.ErrNotFound
	}
	token.Invalidated = true
	s.byAccess[accessToken] = token
	return nil
}

type AuthorizationTokenStore struct {
	mu        sync.RWMutex
	byAccess  map[string]domain.AuthorizationToken
	byRefresh map[string]string
}

func NewAuthorizationTokenStore() *AuthorizationTokenStore {
	return &AuthorizationTokenStore{
		byAccess:  make(map[string]domain.AuthorizationToken),
		byRefresh: make(map[string]string),
	}
}

func (s *AuthorizationTokenStore) GetByAccessToken(ctx context.Context, accessToken string) (*domain.AuthorizationToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, ok := s.byAccess[accessToken]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneAuthorizationToken(token)
	return &out, nil
}

func (s *AuthorizationTokenStore) GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.AuthorizationToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	accessToken, ok := s.byRefresh[refreshToken]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneAuthorizationToken(s.byAccess[accessToken])
	return &out, nil
}

func (s *AuthorizationTokenStore) Create(ctx context.Context, token domain.AuthorizationToken) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byAccess[token.AccessToken]; ok {
		return domain.ErrDuplicate
	}
	s.byAccess[token.AccessToken] = cloneAuthorizationToken(token)
	s.byRefresh[token.RefreshToken] = token.AccessToken
	return nil
}

func (s *AuthorizationTokenStore) Revoke(ctx context.Context, accessToken string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.byAccess[accessToken]
	if !ok {
		return domain.ErrNotFound
	}
	token.Revoked = true
	s.byAccess[accessToken] = token
	return nil
}

type AuthorizationCodeStore struct {
	mu    sync.RWMutex
	codes map[string]domain.AuthorizationCode
}

func NewAuthorizationCodeStore() *AuthorizationCodeStore {
	return &AuthorizationCodeStore{codes: make(map[string]domain.AuthorizationCode)}
}

func (s *AuthorizationCodeStore) Get(ctx context.Context, code string) (*domain.AuthorizationCode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.codes[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneAuthorizationCode(stored)
	return &out, nil
}

func (s *AuthorizationCodeStore) Create(ctx context.Context, code domain.AuthorizationCode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.codes[code.Code]; ok {
		return domain.ErrDuplicate
	}
	s.codes[code.Code] = cloneAuthorizationCode(code)
	return nil
}

func (s *AuthorizationCodeStore) MarkUsed(ctx context.Context, code string, usedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.codes[code]
	if !ok {
		return domain.ErrNotFound
	}
	at := usedAt
	stored.UsedAt = &at
	s.codes[code] = stored
	return nil
}

type UserStore struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]domain.User)}
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[username]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &user, nil
}

func (s *UserStore) Create(ctx context.Context, user domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Username]; ok {
		return domain.ErrDuplicate
	}
	s.users[user.Username] = user
	return nil
}

type ClientStore struct {
	mu      sync.RWMutex
	clients map[string]domain.Client
}

func NewClientStore() *ClientStore {
	return &ClientStore{clients: make(map[string]domain.Client)}
}

func (s *ClientStore) GetByID(ctx context.Context, clientID string) (*domain.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	client, ok := s.clients[clientID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &client, nil
}

func (s *ClientStore) Create(ctx context.Context, client domain.Client) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[client.ID]; ok {
		return domain.ErrDuplicate
	}
	s.clients[client.ID] = client
	return nil
}

type AuditLog struct {
	mu     sync.RWMutex
	events []domain.AuditEvent
}

func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

func (l *AuditLog) Append(ctx context.Context, event domain.AuditEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	l.events = append(l.events, event)
	return nil
}

// Events returns a snapshot, newest last.
func (l *AuditLog) Events() []domain.AuditEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.AuditEvent, len(l.events))
	copy(out, l.events)
	return out
}

func cloneAuthorizationToken(token domain.AuthorizationToken) domain.AuthorizationToken {
	token.Scopes = append([]string(nil), token.Scopes...)
	return token
}

func cloneAuthorizationCode(code domain.AuthorizationCode) domain.AuthorizationCode {
	code.Scopes = append([]string(nil), code.Scopes...)
	if code.UsedAt != nil {
		at := *code.UsedAt
		code.UsedAt = &at
	}
	return code
}
