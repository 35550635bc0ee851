package domain

import "time"

// AuthenticationToken is a first-party session credential minted at login.
// The access and refresh values are opaque strings; validity is tracked in
// the store, never inside the token value itself.
type AuthenticationToken struct {
	AccessToken  string
	RefreshToken string
	Username     string
	Granted      time.Time
	Expires      time.Time
	Invalidated  bool
}

// ValidAt reports whether the token may authenticate a request at the given
// instant.
func (t AuthenticationToken) ValidAt(now time.Time) bool {
	if t.Invalidated {
		return false
	}
	return now.Before(t.Expires)
}

// Refreshable reports whether the token's refresh value may still be
// exchanged for a successor. Expiry alone does not end the refresh window;
// explicit invalidation does.
func (t AuthenticationToken) Refreshable() bool {
	return !t.Invalidated
}

// AuthorizationToken is a third-party bearer credential issued to a client
// on behalf of a user.
type AuthorizationToken struct {
	AccessToken  string
	RefreshToken string
	ClientID     string
	Username     string
	Scopes       []string
	Granted      time.Time
	Expires      time.Time
	Revoked      bool
}

func (t AuthorizationToken) ValidAt(now time.Time) bool {
	if t.Revoked {
		return false
	}
	return now.Before(t.Expires)
}

func (t AuthorizationToken) HasScope(scope string) bool {
	for _, s := range t.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// AuthorizationCode is a one-shot grant binding a client to a user's
// approval of a scope set.
type AuthorizationCode struct {
	Code     string
	ClientID string
	Username string
	Scopes   []string
	Created  time.Time
	Expires  time.Time
	UsedAt   *time.Time
}

func (c AuthorizationCode) ExchangeableAt(now time.Time) bool {
	if c.UsedAt != nil {
		return false
	}
	return now.Before(c.Expires)
}
