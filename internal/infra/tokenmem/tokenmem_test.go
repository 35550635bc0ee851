package tokenmem

import (
	"context"
	"errors"
	"testing"
	"time"

	"ohmage/internal/domain"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func TestAuthenticationTokenStore(t *testing.T) {
	store := NewAuthenticationTokenStore()
	ctx := context.Background()
	token := domain.AuthenticationToken{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		Username:     "alice",
		Granted:      testNow,
		Expires:      testNow.Add(time.Hour),
	}

	if err := store.Create(ctx, token); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, token); !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	got, err := store.GetByAccessToken(ctx, "access-1")
	if err != nil {
		t.Fatalf("get by access token: %v", err)
	}
	if got.Username != "alice" {
		t.Fatalf("unexpected token: %+v", got)
	}

	byRefresh, err := store.GetByRefreshToken(ctx, "refresh-1")
	if err != nil {
		t.Fatalf("get by refresh token: %v", err)
	}
	if byRefresh.AccessToken != "access-1" {
		t.Fatalf("refresh lookup returned wrong token: %+v", byRefresh)
	}

	if _, err := store.GetByAccessToken(ctx, "no-such"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := store.Invalidate(ctx, "access-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	got, err = store.GetByAccessToken(ctx, "access-1")
	if err != nil {
		t.Fatalf("get after invalidate: %v", err)
	}
	if !got.Invalidated {
		t.Fatal("invalidation must be visible to later reads")
	}
	if err := store.Invalidate(ctx, "no-such"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAuthenticationTokenStore_HandsOutCopies(t *testing.T) {
	store := NewAuthenticationTokenStore()
	ctx := context.Background()
	if err := store.Create(ctx, domain.AuthenticationToken{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		Username:     "alice",
		Expires:      testNow.Add(time.Hour),
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.GetByAccessToken(ctx, "access-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got.Invalidated = true

	again, err := store.GetByAccessToken(ctx, "access-1")
	if err != nil {
		t.Fatalf("get again: %v", err)
	}
	if again.Invalidated {
		t.Fatal("mutating a returned token must not touch the store")
	}
}

func TestAuthorizationTokenStore(t *testing.T) {
	store := NewAuthorizationTokenStore()
	ctx := context.Background()
	token := domain.AuthorizationToken{
		AccessToken:  "bearer-1",
		RefreshToken: "bearer-refresh-1",
		ClientID:     "client-a",
		Username:     "alice",
		Scopes:       []string{"read"},
		Expires:      testNow.Add(time.Hour),
	}
	if err := store.Create(ctx, token); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.GetByAccessToken(ctx, "bearer-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got.Scopes[0] = "mutated"
	again, err := store.GetByAccessToken(ctx, "bearer-1")
	if err != nil {
		t.Fatalf("get again: %v", err)
	}
	if again.Scopes[0] != "read" {
		t.Fatal("scope slices must not be shared with callers")
	}

	byRefresh, err := store.GetByRefreshToken(ctx, "bearer-refresh-1")
	if err != nil {
		t.Fatalf("get by refresh token: %v", err)
	}
	if byRefresh.AccessToken != "bearer-1" {
		t.Fatalf("refresh lookup returned wrong token: %+v", byRefresh)
	}

	if err := store.Revoke(ctx, "bearer-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	revoked, err := store.GetByAccessToken(ctx, "bearer-1")
	if err != nil {
		t.Fatalf("get after revoke: %v", err)
	}
	if !revoked.Revoked {
		t.Fatal("revocation must be visible to later reads")
	}
}

func TestAuthorizationCodeStore(t *testing.T) {
	store := NewAuthorizationCodeStore()
	ctx := context.Background()
	code := domain.AuthorizationCode{
		Code:     "code-1",
		ClientID: "client-a",
		Username: "alice",
		Scopes:   []string{"read"},
		Created:  testNow,
		Expires:  testNow.Add(10 * time.Minute),
	}
	if err := store.Create(ctx, code); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.Get(ctx, "code-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UsedAt != nil {
		t.Fatal("fresh code must be unused")
	}

	usedAt := testNow.Add(time.Minute)
	if err := store.MarkUsed(ctx, "code-1", usedAt); err != nil {
		t.Fatalf("mark used: %v", err)
	}
	got, err = store.Get(ctx, "code-1")
	if err != nil {
		t.Fatalf("get after mark used: %v", err)
	}
	if got.UsedAt == nil || !got.UsedAt.Equal(usedAt) {
		t.Fatalf("unexpected used-at: %v", got.UsedAt)
	}
	if got.ExchangeableAt(testNow.Add(2 * time.Minute)) {
		t.Fatal("used code must not be exchangeable")
	}

	if err := store.MarkUsed(ctx, "no-such", usedAt); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUserAndClientStores(t *testing.T) {
	users := NewUserStore()
	clients := NewClientStore()
	ctx := context.Background()

	if err := users.Create(ctx, domain.User{Username: "alice", PasswordHash: "hash"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := users.Create(ctx, domain.User{Username: "alice"}); !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("expected duplicate user error, got %v", err)
	}
	user, err := users.GetByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.PasswordHash != "hash" {
		t.Fatalf("unexpected user: %+v", user)
	}

	if err := clients.Create(ctx, domain.Client{ID: "client-a", Name: "Browser"}); err != nil {
		t.Fatalf("create client: %v", err)
	}
	if err := clients.Create(ctx, domain.Client{ID: "client-a"}); !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("expected duplicate client error, got %v", err)
	}
	if _, err := clients.GetByID(ctx, "no-such"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAuditLogAssignsIDs(t *testing.T) {
	log := NewAuditLog()
	ctx := context.Background()

	if err := log.Append(ctx, domain.AuditEvent{
		EventType: domain.AuditEventLogin,
		Result:    domain.AuditResultSuccess,
		Username:  "alice",
		CreatedAt: testNow,
	}); err != nil {
		t.Fatalf("append: %v", err)
	}
	events := log.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].ID == "" {
		t.Fatal("append must assign an id")
	}

	events[0].Username = "mallory"
	if log.Events()[0].Username != "alice" {
		t.Fatal("snapshot must not alias the log")
	}
}

func TestContextCancellation(t *testing.T) {
	store := NewAuthenticationTokenStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.GetByAccessToken(ctx, "access-1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
	if err := store.Create(ctx, domain.AuthenticationToken{AccessToken: "a", RefreshToken: "r"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}
