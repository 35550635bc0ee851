package domain

import "context"

// RequestContext is the admission result attached to a request after the
// credential resolution step. Nil pointer fields mean the corresponding
// credential was not supplied; an anonymous request carries a context with
// both tokens nil.
type RequestContext struct {
	AuthenticationToken *AuthenticationToken

	// TokenIsFromParameter is true when at least one auth_token parameter
	// occurrence was observed, even if an identical cookie was also sent.
	TokenIsFromParameter bool

	AuthorizationToken *AuthorizationToken
}

func (rc RequestContext) Authenticated() bool {
	return rc.AuthenticationToken != nil
}

func (rc RequestContext) Username() string {
	if rc.AuthenticationToken != nil {
		return rc.AuthenticationToken.Username
	}
	if rc.AuthorizationToken != nil {
		return rc.AuthorizationToken.Username
	}
	return ""
}

// TokenLocation is a per-route policy for where the authentication token
// must have been supplied.
type TokenLocation string

const (
	// TokenLocationEither accepts a token from a cookie or a parameter.
	TokenLocationEither TokenLocation = "either"
	// TokenLocationParameter requires at least one parameter occurrence;
	// state-changing routes use this so a bare cookie cannot drive them.
	TokenLocationParameter TokenLocation = "parameter"
	// TokenLocationCookie requires the token to have arrived only as a
	// cookie.
	TokenLocationCookie TokenLocation = "cookie"
)

// Permits reports whether a token observed with the given parameter flag
// satisfies the location policy.
func (l TokenLocation) Permits(fromParameter bool) bool {
	switch l {
	case TokenLocationParameter:
		return fromParameter
	case TokenLocationCookie:
		return !fromParameter
	default:
		return true
	}
}

type requestContextKey struct{}

// WithRequestContext attaches the admission result to ctx. The transport
// layer calls this once per request; the key being present means the
// resolver ran.
func WithRequestContext(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// RequestContextFrom reports the admission result carried by ctx, if any.
func RequestContextFrom(ctx context.Context) (RequestContext, bool) {
	rc, ok := ctx.Value(requestContextKey{}).(RequestContext)
	return rc, ok
}
