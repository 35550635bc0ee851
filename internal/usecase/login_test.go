package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"ohmage/internal/domain"
)

var lifecycleNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func lifecycleClock() time.Time { return lifecycleNow }

type userRepoStub struct {
	users map[string]domain.User
}

func (r *userRepoStub) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, ok := r.users[username]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &user, nil
}

func (r *userRepoStub) Create(ctx context.Context, user domain.User) error {
	if r.users == nil {
		r.users = map[string]domain.User{}
	}
	if _, ok := r.users[user.Username]; ok {
		return domain.ErrDuplicate
	}
	r.users[user.Username] = user
	return nil
}

type authnTokenRepoStub struct {
	tokens map[string]domain.AuthenticationToken
}

func (r *authnTokenRepoStub) GetByAccessToken(ctx context.Context, accessToken string) (*domain.AuthenticationToken, error) {
	token, ok := r.tokens[accessToken]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &token, nil
}

func (r *authnTokenRepoStub) GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.AuthenticationToken, error) {
	for _, token := range r.tokens {
		if token.RefreshToken == refreshToken {
			return &token, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *authnTokenRepoStub) Create(ctx context.Context, token domain.AuthenticationToken) error {
	if r.tokens == nil {
		r.tokens = map[string]domain.AuthenticationToken{}
	}
	if _, ok := r.tokens[token.AccessToken]; ok {
		return domain.ErrDuplicate
	}
	r.tokens[token.AccessToken] = token
	return nil
}

func (r *authnTokenRepoStub) Invalidate(ctx context.Context, accessToken string) error {
	token, ok := r.tokens[accessToken]
	if !ok {
		return domain.ErrNotFound
	}
	token.Invalidated = true
	r.tokens[accessToken] = token
	return nil
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(hash)
}

func TestIssueAuthenticationToken(t *testing.T) {
	users := &userRepoStub{users: map[string]domain.User{
		"alice": {Username: "alice", PasswordHash: hashPassword(t, "correct horse")},
	}}
	tokens := &authnTokenRepoStub{}
	uc := &IssueAuthenticationToken{
		Users:         users,
		Tokens:        tokens,
		TokenLifetime: time.Hour,
		Now:           lifecycleClock,
	}

	resp, err := uc.Execute(context.Background(), IssueAuthenticationTokenRequest{
		Username: "alice",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	token := resp.Token
	if token.AccessToken == "" || token.RefreshToken == "" {
		t.Fatal("expected minted token pair")
	}
	if token.AccessToken == token.RefreshToken {
		t.Fatal("access and refresh tokens must differ")
	}
	if token.Username != "alice" {
		t.Fatalf("unexpected username: %s", token.Username)
	}
	if !token.Expires.Equal(lifecycleNow.Add(time.Hour)) {
		t.Fatalf("unexpected expiry: %v", token.Expires)
	}
	if _, ok := tokens.tokens[token.AccessToken]; !ok {
		t.Fatal("token was not persisted")
	}
	if !token.ValidAt(lifecycleNow) {
		t.Fatal("fresh token must be valid")
	}
}

func TestIssueAuthenticationToken_Rejections(t *testing.T) {
	users := &userRepoStub{users: map[string]domain.User{
		"alice": {Username: "alice", PasswordHash: hashPassword(t, "correct horse")},
		"mallory": {
			Username:     "mallory",
			PasswordHash: hashPassword(t, "let me in"),
			Disabled:     true,
		},
	}}
	uc := &IssueAuthenticationToken{
		Users:  users,
		Tokens: &authnTokenRepoStub{},
		Now:    lifecycleClock,
	}

	cases := []struct {
		name    string
		req     IssueAuthenticationTokenRequest
		wantErr error
	}{
		{name: "unknown user", req: IssueAuthenticationTokenRequest{Username: "bob", Password: "whatever"}, wantErr: domain.ErrUnauthorized},
		{name: "wrong password", req: IssueAuthenticationTokenRequest{Username: "alice", Password: "incorrect horse"}, wantErr: domain.ErrUnauthorized},
		{name: "disabled account", req: IssueAuthenticationTokenRequest{Username: "mallory", Password: "let me in"}, wantErr: domain.ErrAccountDisabled},
		{name: "missing username", req: IssueAuthenticationTokenRequest{Password: "whatever"}, wantErr: domain.ErrInvalidInput},
		{name: "missing password", req: IssueAuthenticationTokenRequest{Username: "alice"}, wantErr: domain.ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.Execute(context.Background(), tc.req)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestRefreshAuthenticationToken(t *testing.T) {
	tokens := &authnTokenRepoStub{tokens: map[string]domain.AuthenticationToken{
		"old-access": {
			AccessToken:  "old-access",
			RefreshToken: "old-refresh",
			Username:     "alice",
			Granted:      lifecycleNow.Add(-time.Hour),
			Expires:      lifecycleNow.Add(time.Hour),
		},
	}}
	uc := &RefreshAuthenticationToken{
		Tokens:        tokens,
		TokenLifetime: time.Hour,
		Now:           lifecycleClock,
	}

	resp, err := uc.Execute(context.Background(), RefreshAuthenticationTokenRequest{RefreshToken: "old-refresh"})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if resp.Token.AccessToken == "old-access" || resp.Token.RefreshToken == "old-refresh" {
		t.Fatal("expected a new token pair")
	}
	if resp.Token.Username != "alice" {
		t.Fatalf("unexpected username: %s", resp.Token.Username)
	}
	old := tokens.tokens["old-access"]
	if !old.Invalidated {
		t.Fatal("old token must be invalidated")
	}

	// The old refresh token is now burned.
	if _, err := uc.Execute(context.Background(), RefreshAuthenticationTokenRequest{RefreshToken: "old-refresh"}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected second refresh to fail, got %v", err)
	}
}

func TestRefreshAuthenticationToken_ExpiredButNotInvalidated(t *testing.T) {
	tokens := &authnTokenRepoStub{tokens: map[string]domain.AuthenticationToken{
		"stale-access": {
			AccessToken:  "stale-access",
			RefreshToken: "stale-refresh",
			Username:     "alice",
			Granted:      lifecycleNow.Add(-48 * time.Hour),
			Expires:      lifecycleNow.Add(-24 * time.Hour),
		},
	}}
	uc := &RefreshAuthenticationToken{Tokens: tokens, Now: lifecycleClock}

	// Expiry ends the access token, not the session; only an explicit
	// invalidation does that.
	resp, err := uc.Execute(context.Background(), RefreshAuthenticationTokenRequest{RefreshToken: "stale-refresh"})
	if err != nil {
		t.Fatalf("refresh of expired token: %v", err)
	}
	if !resp.Token.ValidAt(lifecycleNow) {
		t.Fatal("successor token must be valid")
	}
}

func TestRefreshAuthenticationToken_Rejections(t *testing.T) {
	tokens := &authnTokenRepoStub{tokens: map[string]domain.AuthenticationToken{
		"dead-access": {
			AccessToken:  "dead-access",
			RefreshToken: "dead-refresh",
			Username:     "alice",
			Expires:      lifecycleNow.Add(time.Hour),
			Invalidated:  true,
		},
	}}
	uc := &RefreshAuthenticationToken{Tokens: tokens, Now: lifecycleClock}

	for _, tc := range []struct {
		name         string
		refreshToken string
		wantErr      error
	}{
		{name: "unknown refresh token", refreshToken: "no-such", wantErr: domain.ErrUnauthorized},
		{name: "invalidated token", refreshToken: "dead-refresh", wantErr: domain.ErrUnauthorized},
		{name: "empty refresh token", refreshToken: "", wantErr: domain.ErrInvalidInput},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.Execute(context.Background(), RefreshAuthenticationTokenRequest{RefreshToken: tc.refreshToken})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestInvalidateAuthenticationToken(t *testing.T) {
	tokens := &authnTokenRepoStub{tokens: map[string]domain.AuthenticationToken{
		"tok-1": {
			AccessToken:  "tok-1",
			RefreshToken: "ref-1",
			Username:     "alice",
			Expires:      lifecycleNow.Add(time.Hour),
		},
	}}
	uc := &InvalidateAuthenticationToken{Tokens: tokens}

	if err := uc.Execute(context.Background(), InvalidateAuthenticationTokenRequest{AccessToken: "tok-1"}); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if !tokens.tokens["tok-1"].Invalidated {
		t.Fatal("token must be invalidated")
	}
	if tokens.tokens["tok-1"].ValidAt(lifecycleNow) {
		t.Fatal("invalidated token must not be valid")
	}
	if err := uc.Execute(context.Background(), InvalidateAuthenticationTokenRequest{AccessToken: "no-such"}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for unknown token, got %v", err)
	}
}

func TestCreateUser(t *testing.T) {
	users := &userRepoStub{}
	uc := &CreateUser{Users: users, BcryptCost: bcrypt.MinCost, Now: lifecycleClock}

	resp, err := uc.Execute(context.Background(), CreateUserRequest{
		Username: "  alice  ",
		Password: "correct horse",
		Email:    "alice@example.org",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if resp.User.Username != "alice" {
		t.Fatalf("expected trimmed username, got %q", resp.User.Username)
	}
	if resp.User.PasswordHash == "correct horse" || resp.User.PasswordHash == "" {
		t.Fatal("password must be stored hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(resp.User.PasswordHash), []byte("correct horse")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}

	if _, err := uc.Execute(context.Background(), CreateUserRequest{Username: "alice", Password: "another pass"}); !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if _, err := uc.Execute(context.Background(), CreateUserRequest{Username: "bob", Password: "short"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for short password, got %v", err)
	}
}
