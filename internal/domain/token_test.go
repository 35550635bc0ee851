package domain

import (
	"context"
	"testing"
	"time"
)

func TestTokenLocationPermits(t *testing.T) {
	cases := []struct {
		location      TokenLocation
		fromParameter bool
		want          bool
	}{
		{TokenLocationEither, false, true},
		{TokenLocationEither, true, true},
		{TokenLocationParameter, false, false},
		{TokenLocationParameter, true, true},
		{TokenLocationCookie, false, true},
		{TokenLocationCookie, true, false},
	}
	for _, tc := range cases {
		if got := tc.location.Permits(tc.fromParameter); got != tc.want {
			t.Fatalf("%s.Permits(%v) = %v, want %v", tc.location, tc.fromParameter, got, tc.want)
		}
	}
}

func TestRequestContextRoundTrip(t *testing.T) {
	rc := RequestContext{
		AuthenticationToken:  &AuthenticationToken{Username: "alice"},
		TokenIsFromParameter: true,
	}
	ctx := WithRequestContext(context.Background(), rc)
	got, ok := RequestContextFrom(ctx)
	if !ok {
		t.Fatal("expected a request context")
	}
	if !got.Authenticated() || got.Username() != "alice" || !got.TokenIsFromParameter {
		t.Fatalf("unexpected context: %+v", got)
	}

	if _, ok := RequestContextFrom(context.Background()); ok {
		t.Fatal("bare context should not carry an admission result")
	}
}

func TestRequestContextUsername(t *testing.T) {
	authn := RequestContext{AuthenticationToken: &AuthenticationToken{Username: "alice"}}
	if authn.Username() != "alice" {
		t.Fatalf("got %q", authn.Username())
	}

	authz := RequestContext{AuthorizationToken: &AuthorizationToken{Username: "bob"}}
	if authz.Authenticated() {
		t.Fatal("a bearer-only request is not a first-party session")
	}
	if authz.Username() != "bob" {
		t.Fatalf("got %q", authz.Username())
	}

	both := RequestContext{
		AuthenticationToken: &AuthenticationToken{Username: "alice"},
		AuthorizationToken:  &AuthorizationToken{Username: "bob"},
	}
	if both.Username() != "alice" {
		t.Fatalf("got %q", both.Username())
	}

	if (RequestContext{}).Username() != "" {
		t.Fatal("anonymous request should have no username")
	}
}

func TestAuthenticationTokenValidity(t *testing.T) {
	now := time.Now().UTC()
	token := AuthenticationToken{Granted: now, Expires: now.Add(time.Hour)}

	if !token.ValidAt(now) {
		t.Fatal("fresh token should be valid")
	}
	if token.ValidAt(now.Add(time.Hour)) {
		t.Fatal("token should expire at the boundary")
	}
	if !token.Refreshable() {
		t.Fatal("expired tokens stay refreshable until invalidated")
	}

	token.Invalidated = true
	if token.ValidAt(now) {
		t.Fatal("invalidated token should not authenticate")
	}
	if token.Refreshable() {
		t.Fatal("invalidated token should not refresh")
	}
}

func TestAuthorizationTokenValidity(t *testing.T) {
	now := time.Now().UTC()
	token := AuthorizationToken{
		Scopes:  []string{"profile", "read"},
		Granted: now,
		Expires: now.Add(time.Hour),
	}

	if !token.ValidAt(now) {
		t.Fatal("fresh token should be valid")
	}
	if !token.HasScope("profile") || token.HasScope("write") {
		t.Fatalf("unexpected scope check: %v", token.Scopes)
	}

	token.Revoked = true
	if token.ValidAt(now) {
		t.Fatal("revoked token should not authenticate")
	}
}

func TestAuthorizationCodeExchangeable(t *testing.T) {
	now := time.Now().UTC()
	code := AuthorizationCode{Created: now, Expires: now.Add(10 * time.Minute)}

	if !code.ExchangeableAt(now) {
		t.Fatal("fresh code should be exchangeable")
	}
	if code.ExchangeableAt(now.Add(10 * time.Minute)) {
		t.Fatal("code should expire at the boundary")
	}

	used := now.Add(time.Minute)
	code.UsedAt = &used
	if code.ExchangeableAt(now.Add(2 * time.Minute)) {
		t.Fatal("used code should not be exchangeable again")
	}
}
